package treasury

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/ledger"
	"erc1155-treasury-lab/internal/stablecoin"
	"erc1155-treasury-lab/internal/storage/memory"
)

const (
	owner    = "0x00000000000000000000000000000000000a11ce"
	treasury = "0x000000000000000000000000000000000000beef"
	holder   = "0x0000000000000000000000000000000000000b0b"
)

type fixture struct {
	treasury *Treasury
	tokens   *ledger.Ledger
	usdc     *stablecoin.MemoryLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens := ledger.New(ledger.Options{
		Owner:        owner,
		TokenStore:   memory.NewTokenStore(),
		BalanceStore: memory.NewBalanceStore(),
		TransferLog:  memory.NewTransferLogStore(),
	})
	usdc := stablecoin.NewMemoryLedger()

	vault := New(Options{
		Owner:   owner,
		Account: treasury,
		Tokens:  tokens,
		USDC:    usdc,
	})

	ctx := context.Background()
	if err := tokens.CreateToken(ctx, owner, 3, "Gold Pass", "", 100); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := tokens.Mint(ctx, owner, holder, 3, 10); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	return &fixture{treasury: vault, tokens: tokens, usdc: usdc}
}

func TestGetBalanceReadsLiveLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	balance, err := f.treasury.GetBalance(ctx)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected 0, got %d", balance)
	}

	// An external credit is visible immediately, no caching.
	f.usdc.SetBalance(treasury, 100_000000)
	balance, _ = f.treasury.GetBalance(ctx)
	if balance != 100_000000 {
		t.Errorf("expected 100_000000, got %d", balance)
	}
}

func TestAddFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(holder, 50_000000)
	f.usdc.Approve(holder, treasury, 30_000000)

	if err := f.treasury.AddFunds(ctx, holder, 30_000000); err != nil {
		t.Fatalf("AddFunds failed: %v", err)
	}

	balance, _ := f.treasury.GetBalance(ctx)
	if balance != 30_000000 {
		t.Errorf("expected treasury 30_000000, got %d", balance)
	}
	held, _ := f.usdc.BalanceOf(ctx, holder)
	if held != 20_000000 {
		t.Errorf("expected depositor 20_000000, got %d", held)
	}
}

func TestAddFundsWithoutApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(holder, 50_000000)

	err := f.treasury.AddFunds(ctx, holder, 30_000000)
	if !errors.Is(err, ledger.ErrTransferFailed) {
		t.Errorf("expected ErrTransferFailed, got %v", err)
	}
}

func TestAddFundsZeroAmount(t *testing.T) {
	f := newFixture(t)
	err := f.treasury.AddFunds(context.Background(), holder, 0)
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(treasury, 100_000000)

	if err := f.treasury.Withdraw(ctx, owner, 40_000000); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	balance, _ := f.treasury.GetBalance(ctx)
	if balance != 60_000000 {
		t.Errorf("expected 60_000000, got %d", balance)
	}
	ownerBal, _ := f.usdc.BalanceOf(ctx, owner)
	if ownerBal != 40_000000 {
		t.Errorf("expected owner 40_000000, got %d", ownerBal)
	}
}

func TestWithdrawOverBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(treasury, 10_000000)

	err := f.treasury.Withdraw(ctx, owner, 10_000001)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	balance, _ := f.treasury.GetBalance(ctx)
	if balance != 10_000000 {
		t.Errorf("treasury changed by failed withdraw: %d", balance)
	}
}

func TestWithdrawNonOwner(t *testing.T) {
	f := newFixture(t)
	f.usdc.SetBalance(treasury, 10_000000)

	err := f.treasury.Withdraw(context.Background(), holder, 1)
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPayback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(treasury, 100_000000)

	// Buy back 4 of token 3 for 50 USDC.
	if err := f.treasury.Payback(ctx, owner, holder, 3, 4, 50_000000); err != nil {
		t.Fatalf("Payback failed: %v", err)
	}

	held, _ := f.tokens.BalanceOf(ctx, holder, 3)
	if held != 6 {
		t.Errorf("expected 6 tokens left, got %d", held)
	}
	info, _ := f.tokens.GetTokenInfo(ctx, 3)
	if info.CurrentSupply != 6 {
		t.Errorf("expected supply 6, got %d", info.CurrentSupply)
	}
	holderUSDC, _ := f.usdc.BalanceOf(ctx, holder)
	if holderUSDC != 50_000000 {
		t.Errorf("expected holder paid 50_000000, got %d", holderUSDC)
	}
	balance, _ := f.treasury.GetBalance(ctx)
	if balance != 50_000000 {
		t.Errorf("expected treasury 50_000000, got %d", balance)
	}

	// A second payback the treasury can no longer afford fails with every
	// balance unchanged.
	err := f.treasury.Payback(ctx, owner, holder, 3, 2, 60_000000)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	held, _ = f.tokens.BalanceOf(ctx, holder, 3)
	if held != 6 {
		t.Errorf("token balance changed by failed payback: %d", held)
	}
	holderUSDC, _ = f.usdc.BalanceOf(ctx, holder)
	if holderUSDC != 50_000000 {
		t.Errorf("USDC balance changed by failed payback: %d", holderUSDC)
	}
}

func TestPaybackValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.usdc.SetBalance(treasury, 100_000000)

	// Non-owner caller
	if err := f.treasury.Payback(ctx, holder, holder, 3, 1, 1); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	// Unknown token
	if err := f.treasury.Payback(ctx, owner, holder, 9, 1, 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// Holder owns too few
	if err := f.treasury.Payback(ctx, owner, holder, 3, 11, 1); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	// Zero amounts
	if err := f.treasury.Payback(ctx, owner, holder, 3, 0, 1); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero tokens, got %v", err)
	}
	if err := f.treasury.Payback(ctx, owner, holder, 3, 1, 0); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero usdc, got %v", err)
	}
}

// failingLedger wraps the memory stable-coin ledger and fails outbound
// transfers, exercising the payback rollback path.
type failingLedger struct {
	*stablecoin.MemoryLedger
}

func (f *failingLedger) Transfer(ctx context.Context, from, to string, amount uint64) error {
	return fmt.Errorf("simulated transfer outage")
}

func TestPaybackRollsBackBurnOnTransferFailure(t *testing.T) {
	tokens := ledger.New(ledger.Options{
		Owner:        owner,
		TokenStore:   memory.NewTokenStore(),
		BalanceStore: memory.NewBalanceStore(),
	})
	usdc := &failingLedger{stablecoin.NewMemoryLedger()}
	usdc.SetBalance(treasury, 100_000000)

	vault := New(Options{Owner: owner, Account: treasury, Tokens: tokens, USDC: usdc})

	ctx := context.Background()
	if err := tokens.CreateToken(ctx, owner, 3, "Gold Pass", "", 100); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := tokens.Mint(ctx, owner, holder, 3, 10); err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	err := vault.Payback(ctx, owner, holder, 3, 4, 50_000000)
	if !errors.Is(err, ledger.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The burn was rolled back.
	held, _ := tokens.BalanceOf(ctx, holder, 3)
	if held != 10 {
		t.Errorf("expected restored balance 10, got %d", held)
	}
	info, _ := tokens.GetTokenInfo(ctx, 3)
	if info.CurrentSupply != 10 {
		t.Errorf("expected restored supply 10, got %d", info.CurrentSupply)
	}
}

func TestPayDividend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.usdc.SetBalance(treasury, 100_000000)

	if err := f.treasury.PayDividend(ctx, owner, holder, 25_000000); err != nil {
		t.Fatalf("PayDividend failed: %v", err)
	}

	holderUSDC, _ := f.usdc.BalanceOf(ctx, holder)
	if holderUSDC != 25_000000 {
		t.Errorf("expected 25_000000, got %d", holderUSDC)
	}
	// Dividends never touch token balances.
	held, _ := f.tokens.BalanceOf(ctx, holder, 3)
	if held != 10 {
		t.Errorf("token balance changed by dividend: %d", held)
	}
}

func TestPayDividendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.usdc.SetBalance(treasury, 100_000000)

	if err := f.treasury.PayDividend(ctx, holder, holder, 1); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.treasury.PayDividend(ctx, owner, domain.ZeroAddress, 1); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for null recipient, got %v", err)
	}
	if err := f.treasury.PayDividend(ctx, owner, holder, 0); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero amount, got %v", err)
	}
	if err := f.treasury.PayDividend(ctx, owner, holder, 100_000001); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}
