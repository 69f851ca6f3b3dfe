// Package ledger provides an in-process token ledger holding the payout vault.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
)

// Vault is a balance book keyed by account. It implements domain.Ledger.
type Vault struct {
	mu       sync.Mutex
	balances map[string]uint64
	logger   *slog.Logger
}

// NewVault creates a ledger seeded with the given opening balances.
func NewVault(opening map[string]uint64, logger *slog.Logger) *Vault {
	balances := make(map[string]uint64, len(opening))
	for acct, amt := range opening {
		balances[acct] = amt
	}
	return &Vault{balances: balances, logger: logger}
}

// Transfer moves amount from one account to another. It fails with
// domain.ErrInsufficientFunds without touching either balance when from
// cannot cover the amount.
func (v *Vault) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == "" || to == "" {
		return fmt.Errorf("transfer requires both accounts")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[from] < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", domain.ErrInsufficientFunds, from, v.balances[from], amount)
	}
	v.balances[from] -= amount
	v.balances[to] += amount

	v.logger.Info("ledger transfer", "from", from, "to", to, "amount", amount)
	return nil
}

// Balance returns the current balance of an account.
func (v *Vault) Balance(account string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[account]
}
