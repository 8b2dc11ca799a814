package custody

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryTokenPullPush(t *testing.T) {
	ctx := context.Background()
	token := NewMemoryToken("escrow")
	token.Mint("alice", 100)
	token.Approve("alice", 60)

	if err := token.Pull(ctx, "alice", 40); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got := token.BalanceOf("alice"); got != 60 {
		t.Errorf("alice balance = %d, want 60", got)
	}
	if got := token.Allowance("alice"); got != 20 {
		t.Errorf("alice allowance = %d, want 20", got)
	}
	if got := token.BalanceOf(token.EscrowAccount()); got != 40 {
		t.Errorf("escrow balance = %d, want 40", got)
	}

	if err := token.Push(ctx, "bob", 25); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got := token.BalanceOf("bob"); got != 25 {
		t.Errorf("bob balance = %d, want 25", got)
	}
	if got := token.BalanceOf("escrow"); got != 15 {
		t.Errorf("escrow balance = %d, want 15", got)
	}
}

func TestMemoryTokenRejections(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		approve uint64
		pull    uint64
		want    error
	}{
		{"no allowance", 100, 0, 10, ErrInsufficientAllowance},
		{"allowance too small", 100, 5, 10, ErrInsufficientAllowance},
		{"balance too small", 5, 100, 10, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := NewMemoryToken("escrow")
			token.Mint("alice", tt.balance)
			token.Approve("alice", tt.approve)

			err := token.Pull(context.Background(), "alice", tt.pull)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got := token.BalanceOf("alice"); got != tt.balance {
				t.Errorf("balance changed to %d", got)
			}
			if got := token.Allowance("alice"); got != tt.approve {
				t.Errorf("allowance changed to %d", got)
			}
		})
	}

	t.Run("push beyond escrow", func(t *testing.T) {
		token := NewMemoryToken("escrow")
		token.Mint("escrow", 3)
		if err := token.Push(context.Background(), "bob", 4); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("err = %v, want ErrInsufficientBalance", err)
		}
		if got := token.BalanceOf("escrow"); got != 3 {
			t.Errorf("escrow balance = %d, want 3", got)
		}
	})
}
