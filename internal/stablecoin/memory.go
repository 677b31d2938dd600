package stablecoin

import (
	"context"
	"fmt"
	"sync"

	"erc1155-treasury-lab/internal/domain"
)

// MemoryLedger is an in-memory stable-coin ledger for tests and simulation.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]uint64
	allowances map[string]uint64 // keyed by (owner, spender)
}

// NewMemoryLedger creates an empty in-memory stable-coin ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]uint64),
		allowances: make(map[string]uint64),
	}
}

func allowanceKey(owner, spender string) string {
	return fmt.Sprintf("%s|%s", domain.NormalizeAddress(owner), domain.NormalizeAddress(spender))
}

// SetBalance seeds an account balance.
func (m *MemoryLedger) SetBalance(account string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[domain.NormalizeAddress(account)] = amount
}

// Approve grants spender an allowance over owner's account.
func (m *MemoryLedger) Approve(owner, spender string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey(owner, spender)] = amount
}

// BalanceOf returns the live balance of an account.
func (m *MemoryLedger) BalanceOf(_ context.Context, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[domain.NormalizeAddress(account)], nil
}

// Transfer moves amount from one account to another.
func (m *MemoryLedger) Transfer(_ context.Context, from, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transferLocked(from, to, amount)
}

// TransferFrom moves amount from an account using spender's allowance.
func (m *MemoryLedger) TransferFrom(_ context.Context, spender, from, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := allowanceKey(from, spender)
	if m.allowances[key] < amount {
		return fmt.Errorf("%w: spender %s has %s of %s's funds, wants %s",
			ErrInsufficientAllowance, spender, FormatUnits(m.allowances[key]), from, FormatUnits(amount))
	}

	if err := m.transferLocked(from, to, amount); err != nil {
		return err
	}
	m.allowances[key] -= amount
	return nil
}

// Allowance returns how much spender may draw from owner's account.
func (m *MemoryLedger) Allowance(_ context.Context, owner, spender string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[allowanceKey(owner, spender)], nil
}

func (m *MemoryLedger) transferLocked(from, to string, amount uint64) error {
	fromKey := domain.NormalizeAddress(from)
	if m.balances[fromKey] < amount {
		return fmt.Errorf("%w: %s holds %s, transfer wants %s",
			ErrInsufficientFunds, from, FormatUnits(m.balances[fromKey]), FormatUnits(amount))
	}

	m.balances[fromKey] -= amount
	m.balances[domain.NormalizeAddress(to)] += amount
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)
