package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blues/escrow/internal/escrow"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// MemoryToken is an in-process token with ERC-20 style balances and
// allowances. Pull behaves like transferFrom into the escrow account, Push
// like transfer out of it.
type MemoryToken struct {
	mu         sync.Mutex
	escrow     string
	balances   map[string]uint64
	allowances map[string]uint64 // owner -> amount approved for escrow
}

var _ escrow.Custody = (*MemoryToken)(nil)

// NewMemoryToken creates a token whose escrow account is named escrowAccount.
func NewMemoryToken(escrowAccount string) *MemoryToken {
	return &MemoryToken{
		escrow:     escrowAccount,
		balances:   make(map[string]uint64),
		allowances: make(map[string]uint64),
	}
}

// Mint credits amount to account.
func (t *MemoryToken) Mint(account string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] += amount
}

// Approve lets escrow pull up to amount from owner.
func (t *MemoryToken) Approve(owner string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[owner] = amount
}

func (t *MemoryToken) BalanceOf(account string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

func (t *MemoryToken) Allowance(owner string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner]
}

// EscrowAccount returns the account that holds escrowed funds.
func (t *MemoryToken) EscrowAccount() string {
	return t.escrow
}

func (t *MemoryToken) Pull(_ context.Context, from string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[from] < amount {
		return fmt.Errorf("pull %d from %s: %w", amount, from, ErrInsufficientAllowance)
	}
	if t.balances[from] < amount {
		return fmt.Errorf("pull %d from %s: %w", amount, from, ErrInsufficientBalance)
	}
	t.allowances[from] -= amount
	t.balances[from] -= amount
	t.balances[t.escrow] += amount
	return nil
}

func (t *MemoryToken) Push(_ context.Context, to string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[t.escrow] < amount {
		return fmt.Errorf("push %d to %s: %w", amount, to, ErrInsufficientBalance)
	}
	t.balances[t.escrow] -= amount
	t.balances[to] += amount
	return nil
}
