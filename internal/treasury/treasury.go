// Package treasury implements the USDC-denominated buy-back and dividend
// mechanism layered on the collection ledger.
package treasury

import (
	"context"
	"fmt"
	"log"
	"sync"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/ledger"
	"erc1155-treasury-lab/internal/stablecoin"
)

// Treasury accounts for the contract-held stable-coin balance. Outbound
// operations are owner-gated and balance-checked against the live external
// ledger before any transfer.
type Treasury struct {
	mu sync.Mutex

	owner   string
	account string // the treasury's own address on the stable-coin ledger
	tokens  *ledger.Ledger
	usdc    stablecoin.Ledger

	logger *log.Logger
}

// Options contains configuration for creating a Treasury.
type Options struct {
	Owner   string
	Account string
	Tokens  *ledger.Ledger
	USDC    stablecoin.Ledger
	Logger  *log.Logger
}

// New creates a new treasury.
func New(opts Options) *Treasury {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Treasury{
		owner:   domain.NormalizeAddress(opts.Owner),
		account: domain.NormalizeAddress(opts.Account),
		tokens:  opts.Tokens,
		usdc:    opts.USDC,
		logger:  logger,
	}
}

// Account returns the treasury's stable-coin account address.
func (t *Treasury) Account() string {
	return t.account
}

// requireOwner checks the caller against the designated owner.
func (t *Treasury) requireOwner(caller string) error {
	if domain.NormalizeAddress(caller) != t.owner {
		return fmt.Errorf("%w: caller %s is not the owner", ledger.ErrUnauthorized, caller)
	}
	return nil
}

// GetBalance reads the treasury's held stable-coin quantity from the external
// ledger's view of the treasury account. Never cached.
func (t *Treasury) GetBalance(ctx context.Context) (uint64, error) {
	balance, err := t.usdc.BalanceOf(ctx, t.account)
	if err != nil {
		return 0, fmt.Errorf("stable-coin balance of %s: %w", t.account, err)
	}
	return balance, nil
}

// AddFunds pulls amount from the depositor's external account into the
// treasury. The depositor must have approved the treasury beforehand; anyone
// may call.
func (t *Treasury) AddFunds(ctx context.Context, from string, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: deposit amount must be positive", ledger.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usdc.TransferFrom(ctx, t.account, from, t.account, amount); err != nil {
		return fmt.Errorf("%w: pull %s from %s: %v",
			ledger.ErrTransferFailed, stablecoin.FormatUnits(amount), from, err)
	}

	t.logger.Printf("Deposited %s USDC from %s", stablecoin.FormatUnits(amount), from)
	return nil
}

// Withdraw transfers amount from the treasury to the owner. Owner-only.
func (t *Treasury) Withdraw(ctx context.Context, caller string, amount uint64) error {
	if err := t.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: withdraw amount must be positive", ledger.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireFundsLocked(ctx, amount); err != nil {
		return err
	}

	if err := t.usdc.Transfer(ctx, t.account, t.owner, amount); err != nil {
		return fmt.Errorf("%w: withdraw %s: %v", ledger.ErrTransferFailed, stablecoin.FormatUnits(amount), err)
	}

	t.logger.Printf("Withdrew %s USDC to owner", stablecoin.FormatUnits(amount))
	return nil
}

// Payback burns tokenAmount of tokenID from the holder and pays usdcAmount in
// exchange. Burn and payment are atomic: a payment failure rolls the burn
// back, so no burn-without-payment state is observable. Owner-only.
func (t *Treasury) Payback(ctx context.Context, caller, from string, tokenID, tokenAmount, usdcAmount uint64) error {
	if err := t.requireOwner(caller); err != nil {
		return err
	}
	if tokenAmount == 0 || usdcAmount == 0 {
		return fmt.Errorf("%w: payback amounts must be positive", ledger.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Validate everything before mutating: token exists, holder owns enough,
	// treasury holds enough.
	if _, err := t.tokens.GetTokenInfo(ctx, tokenID); err != nil {
		return err
	}

	held, err := t.tokens.BalanceOf(ctx, from, tokenID)
	if err != nil {
		return fmt.Errorf("balance of %s for token %d: %w", from, tokenID, err)
	}
	if held < tokenAmount {
		return fmt.Errorf("%w: holder %s has %d of token %d, payback wants %d",
			ledger.ErrInsufficientBalance, from, held, tokenID, tokenAmount)
	}

	if err := t.requireFundsLocked(ctx, usdcAmount); err != nil {
		return err
	}

	if err := t.tokens.BurnForTreasury(ctx, from, tokenID, tokenAmount); err != nil {
		return fmt.Errorf("burn %d of token %d from %s: %w", tokenAmount, tokenID, from, err)
	}

	if err := t.usdc.Transfer(ctx, t.account, from, usdcAmount); err != nil {
		// Restore the burned balance so the failed payback leaves no trace.
		if restoreErr := t.tokens.MintForTreasury(ctx, from, tokenID, tokenAmount); restoreErr != nil {
			t.logger.Printf("Error restoring burned balance after failed payback: %v", restoreErr)
		}
		return fmt.Errorf("%w: pay %s to %s: %v",
			ledger.ErrTransferFailed, stablecoin.FormatUnits(usdcAmount), from, err)
	}

	t.logger.Printf("Payback: burned %d of token %d from %s for %s USDC",
		tokenAmount, tokenID, from, stablecoin.FormatUnits(usdcAmount))
	return nil
}

// PayDividend transfers usdcAmount to the recipient with no token burn. Owner-only.
func (t *Treasury) PayDividend(ctx context.Context, caller, to string, usdcAmount uint64) error {
	if err := t.requireOwner(caller); err != nil {
		return err
	}
	if domain.IsZeroAddress(to) || to == "" {
		return fmt.Errorf("%w: dividend recipient is the null address", ledger.ErrInvalidArgument)
	}
	if usdcAmount == 0 {
		return fmt.Errorf("%w: dividend amount must be positive", ledger.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireFundsLocked(ctx, usdcAmount); err != nil {
		return err
	}

	if err := t.usdc.Transfer(ctx, t.account, to, usdcAmount); err != nil {
		return fmt.Errorf("%w: pay %s to %s: %v",
			ledger.ErrTransferFailed, stablecoin.FormatUnits(usdcAmount), to, err)
	}

	t.logger.Printf("Dividend: paid %s USDC to %s", stablecoin.FormatUnits(usdcAmount), to)
	return nil
}

// requireFundsLocked checks the live treasury balance covers amount. Caller holds t.mu.
func (t *Treasury) requireFundsLocked(ctx context.Context, amount uint64) error {
	balance, err := t.usdc.BalanceOf(ctx, t.account)
	if err != nil {
		return fmt.Errorf("stable-coin balance of %s: %w", t.account, err)
	}
	if balance < amount {
		return fmt.Errorf("%w: treasury holds %s, operation wants %s",
			ledger.ErrInsufficientBalance, stablecoin.FormatUnits(balance), stablecoin.FormatUnits(amount))
	}
	return nil
}
