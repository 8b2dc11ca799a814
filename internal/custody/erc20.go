package custody

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// erc20ABI covers the two calls escrow needs plus balanceOf.
const erc20ABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var ErrTxReverted = errors.New("transaction reverted")

// Backend is the node API the ERC20 custody uses. *ethclient.Client satisfies
// it, and so does the simulated backend client in tests.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ERC20Options configures NewERC20.
type ERC20Options struct {
	Token          common.Address
	Key            *ecdsa.PrivateKey
	ChainID        *big.Int
	ConfirmTimeout time.Duration
	// GasLimit skips gas estimation when non-zero.
	GasLimit uint64
}

// ERC20 keeps escrowed value in an ERC-20 token. The escrow account is the
// address of the configured private key; donors approve it before donating.
type ERC20 struct {
	backend        Backend
	token          *bind.BoundContract
	key            *ecdsa.PrivateKey
	chainID        *big.Int
	escrow         common.Address
	confirmTimeout time.Duration
	gasLimit       uint64
	close          func()
}

var _ escrow.Custody = (*ERC20)(nil)

// ParseERC20ABI parses the token interface used by the ERC20 custody.
func ParseERC20ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc20ABI))
}

// DialERC20 connects to the node and binds the token contract.
func DialERC20(ctx context.Context, cfg config.CustodyConfig) (*ERC20, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	escrowAddr := crypto.PubkeyToAddress(key.PublicKey)
	if cfg.EscrowAddress != "" && common.HexToAddress(cfg.EscrowAddress) != escrowAddr {
		return nil, fmt.Errorf("escrow address %s does not match private key address %s", cfg.EscrowAddress, escrowAddr.Hex())
	}

	client, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RpcUrl, err)
	}

	chainID := big.NewInt(cfg.ChainId)
	if cfg.ChainId == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
	}

	e, err := NewERC20(client, ERC20Options{
		Token:          common.HexToAddress(cfg.TokenAddress),
		Key:            key,
		ChainID:        chainID,
		ConfirmTimeout: cfg.ConfirmTimeout,
		GasLimit:       cfg.GasLimit,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	e.close = client.Close
	return e, nil
}

// NewERC20 binds the token on an existing backend.
func NewERC20(backend Backend, opts ERC20Options) (*ERC20, error) {
	if opts.Key == nil || opts.ChainID == nil {
		return nil, errors.New("erc20 custody requires a key and a chain id")
	}
	parsed, err := ParseERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	timeout := opts.ConfirmTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	escrowAddr := crypto.PubkeyToAddress(opts.Key.PublicKey)

	logger.Info("ERC20 custody ready: token %s, escrow %s, chain %s", opts.Token.Hex(), escrowAddr.Hex(), opts.ChainID)
	return &ERC20{
		backend:        backend,
		token:          bind.NewBoundContract(opts.Token, parsed, backend, backend, backend),
		key:            opts.Key,
		chainID:        opts.ChainID,
		escrow:         escrowAddr,
		confirmTimeout: timeout,
		gasLimit:       opts.GasLimit,
	}, nil
}

// ValidAccount reports whether account is a hex address.
func ValidAccount(account string) bool {
	return common.IsHexAddress(account)
}

// EscrowAddress returns the address that holds escrowed tokens.
func (e *ERC20) EscrowAddress() string {
	return e.escrow.Hex()
}

// Pull moves amount from the donor into escrow with transferFrom.
func (e *ERC20) Pull(ctx context.Context, from string, amount uint64) error {
	return e.transact(ctx, "transferFrom", common.HexToAddress(from), e.escrow, new(big.Int).SetUint64(amount))
}

// Push moves amount out of escrow with transfer.
func (e *ERC20) Push(ctx context.Context, to string, amount uint64) error {
	return e.transact(ctx, "transfer", common.HexToAddress(to), new(big.Int).SetUint64(amount))
}

// BalanceOf reads the token balance of account.
func (e *ERC20) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	var out []interface{}
	if err := e.token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(account)); err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (e *ERC20) Close() {
	if e.close != nil {
		e.close()
	}
}

// transact sends the call and waits for its receipt, ignoring cancellation
// of ctx. Errors before broadcast are plain failures. A receipt missing after
// confirmTimeout yields escrow.ErrTransferPending.
func (e *ERC20) transact(ctx context.Context, method string, args ...interface{}) error {
	ctx = context.WithoutCancel(ctx)

	opts, err := bind.NewKeyedTransactorWithChainID(e.key, e.chainID)
	if err != nil {
		return fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = e.gasLimit

	tx, err := e.token.Transact(opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	logger.Debug("Sent %s tx %s", method, tx.Hash().Hex())

	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, e.backend, tx)
	if err != nil {
		return fmt.Errorf("%s tx %s not mined: %w: %v", method, tx.Hash().Hex(), escrow.ErrTransferPending, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s tx %s: %w", method, tx.Hash().Hex(), ErrTxReverted)
	}
	return nil
}
