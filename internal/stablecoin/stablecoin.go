// Package stablecoin defines the external stable-coin ledger interface the
// treasury draws on. Amounts are 6-decimal fixed-point units (1 USDC = 1_000000).
package stablecoin

import (
	"context"
	"errors"
	"fmt"
)

// Decimals is the fixed-point precision of all amounts.
const Decimals = 6

// unitsPerWhole is 10^Decimals.
const unitsPerWhole = 1_000000

// Ledger is the external stable-coin account view keyed by address. The
// treasury never caches balances; every read goes through BalanceOf.
type Ledger interface {
	// BalanceOf returns the live balance of an account.
	BalanceOf(ctx context.Context, account string) (uint64, error)

	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to string, amount uint64) error

	// TransferFrom moves amount from an account using spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to string, amount uint64) error

	// Allowance returns how much spender may draw from owner's account.
	Allowance(ctx context.Context, owner, spender string) (uint64, error)
}

// Transfer failure kinds reported by Ledger implementations.
var (
	ErrInsufficientFunds     = errors.New("insufficient stable-coin funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// FormatUnits renders a 6-decimal amount as a human-readable decimal string.
func FormatUnits(amount uint64) string {
	return fmt.Sprintf("%d.%06d", amount/unitsPerWhole, amount%unitsPerWhole)
}

// ToUnits converts whole coins to 6-decimal units.
func ToUnits(whole uint64) uint64 {
	return whole * unitsPerWhole
}
