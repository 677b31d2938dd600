package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"erc1155-treasury-lab/internal/aggregate"
	"erc1155-treasury-lab/internal/deployment"
	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/ledger"
	"erc1155-treasury-lab/internal/observability"
	"erc1155-treasury-lab/internal/stablecoin"
	"erc1155-treasury-lab/internal/storage"
	"erc1155-treasury-lab/internal/storage/memory"
	"erc1155-treasury-lab/internal/storage/migrations"
	pgstore "erc1155-treasury-lab/internal/storage/postgres"
	"erc1155-treasury-lab/internal/treasury"
)

// Well-known local simulation accounts.
const (
	ownerAddr    = "0x00000000000000000000000000000000000a11ce"
	treasuryAddr = "0x000000000000000000000000000000000000beef"
	holderAddr   = "0x0000000000000000000000000000000000000b0b"
)

func main() {
	seedUSDC := flag.Uint64("seed-usdc", 1_000, "Whole USDC minted to the owner for funding")
	fundUSDC := flag.Uint64("fund-usdc", 500, "Whole USDC the owner deposits into the treasury")
	walletsPath := flag.String("wallets", "", "Write the simulation address book to this path (empty to skip)")
	recordPath := flag.String("record", "", "Write a deployment record to this path (empty to skip)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for ledger storage (empty for in-memory)")

	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags)

	if err := run(context.Background(), logger, *seedUSDC, *fundUSDC, *walletsPath, *recordPath, *postgresDSN); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

// openStores selects the ledger storage backend. An empty DSN gives the
// in-memory stores, otherwise the Postgres stores with migrations applied.
func openStores(ctx context.Context, logger *log.Logger, dsn string) (storage.TokenStore, storage.BalanceStore, storage.TransferLogStore, func(), error) {
	if dsn == "" {
		logger.Printf("Using in-memory storage")
		return memory.NewTokenStore(), memory.NewBalanceStore(), memory.NewTransferLogStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Printf("Using postgres storage")
	return pgstore.NewTokenStore(pool), pgstore.NewBalanceStore(pool), pgstore.NewTransferLogStore(pool), pool.Close, nil
}

func run(ctx context.Context, logger *log.Logger, seedUSDC, fundUSDC uint64, walletsPath, recordPath, postgresDSN string) error {
	if seedUSDC > math.MaxUint64/stablecoin.ToUnits(1) {
		return fmt.Errorf("seed-usdc %d overflows 6-decimal units", seedUSDC)
	}

	tokenStore, balanceStore, transferLog, closeStores, err := openStores(ctx, logger, postgresDSN)
	if err != nil {
		return err
	}
	defer closeStores()

	tokens := ledger.New(ledger.Options{
		Owner:        ownerAddr,
		TokenStore:   tokenStore,
		BalanceStore: balanceStore,
		TransferLog:  transferLog,
		Collection: domain.CollectionInfo{
			Name:        "Season Pass Collection",
			Symbol:      "PASS",
			URITemplate: "https://meta.example/{id}.json",
		},
		Logger: logger,
	})

	usdc := stablecoin.NewMemoryLedger()
	usdc.SetBalance(ownerAddr, stablecoin.ToUnits(seedUSDC))

	vault := treasury.New(treasury.Options{
		Owner:   ownerAddr,
		Account: treasuryAddr,
		Tokens:  tokens,
		USDC:    usdc,
		Logger:  logger,
	})

	// Collection setup: three token classes with distinct supply caps.
	type tokenDef struct {
		id        uint64
		name      string
		maxSupply uint64
		mint      uint64
	}
	defs := []tokenDef{
		{1, "Gold Pass", 100, 40},
		{2, "Silver Pass", 1_000, 250},
		{3, "Bronze Pass", 10_000, 900},
	}
	for _, d := range defs {
		if err := tokens.CreateToken(ctx, ownerAddr, d.id, d.name, "", d.maxSupply); err != nil {
			return fmt.Errorf("create token %d: %w", d.id, err)
		}
		if err := tokens.Mint(ctx, ownerAddr, holderAddr, d.id, d.mint); err != nil {
			return fmt.Errorf("mint token %d: %w", d.id, err)
		}
		observability.RecordLedgerOp("mint", nil)

		tokenURI, err := tokens.URI(ctx, d.id)
		if err != nil {
			return fmt.Errorf("resolve uri %d: %w", d.id, err)
		}
		logger.Printf("Created %s (id=%d, cap=%d, minted=%d) uri=%s",
			d.name, d.id, d.maxSupply, d.mint, tokenURI)
	}

	// Fund the treasury from the owner's USDC balance.
	usdc.Approve(ownerAddr, treasuryAddr, stablecoin.ToUnits(fundUSDC))
	if err := vault.AddFunds(ctx, ownerAddr, stablecoin.ToUnits(fundUSDC)); err != nil {
		return fmt.Errorf("fund treasury: %w", err)
	}
	balance, err := vault.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("read treasury balance: %w", err)
	}
	logger.Printf("Treasury funded: %s USDC", stablecoin.FormatUnits(balance))

	// Buy back 10 Gold Passes from the holder at 5 USDC each.
	paybackUnits := stablecoin.ToUnits(50)
	if err := vault.Payback(ctx, ownerAddr, holderAddr, 1, 10, paybackUnits); err != nil {
		return fmt.Errorf("payback: %w", err)
	}
	observability.RecordPayback(paybackUnits)
	logger.Printf("Bought back 10 of token 1 for %s USDC", stablecoin.FormatUnits(paybackUnits))

	// Pay a 25 USDC dividend to the holder.
	dividendUnits := stablecoin.ToUnits(25)
	if err := vault.PayDividend(ctx, ownerAddr, holderAddr, dividendUnits); err != nil {
		return fmt.Errorf("dividend: %w", err)
	}
	observability.RecordDividend(dividendUnits)
	logger.Printf("Paid %s USDC dividend to %s", stablecoin.FormatUnits(dividendUnits), holderAddr)

	// Summarize the transfer activity the run produced.
	events, err := transferLog.GetByTimeRange(ctx, 0, time.Now().UnixMilli()+1)
	if err != nil {
		return fmt.Errorf("load transfer log: %w", err)
	}
	summary := aggregate.Summarize(events)
	logger.Printf("Ledger activity: %d events, %d participants, volume %d",
		summary.EventCount, summary.UniqueParticipants, summary.TotalVolume)

	// Final balances.
	for _, d := range defs {
		held, err := tokens.BalanceOf(ctx, holderAddr, d.id)
		if err != nil {
			return err
		}
		info, err := tokens.GetTokenInfo(ctx, d.id)
		if err != nil {
			return err
		}
		logger.Printf("Token %d: holder=%d supply=%d/%d", d.id, held, info.CurrentSupply, info.MaxSupply)
	}
	holderUSDC, err := usdc.BalanceOf(ctx, holderAddr)
	if err != nil {
		return err
	}
	remaining, err := vault.GetBalance(ctx)
	if err != nil {
		return err
	}
	logger.Printf("USDC: holder=%s treasury=%s",
		stablecoin.FormatUnits(holderUSDC), stablecoin.FormatUnits(remaining))

	if walletsPath != "" {
		book := domain.AddressBook{
			"owner":    ownerAddr,
			"treasury": treasuryAddr,
			"holder":   holderAddr,
		}
		if err := deployment.SaveAddressBook(walletsPath, book); err != nil {
			return err
		}
		logger.Printf("Address book written to %s", walletsPath)
	}
	if recordPath != "" {
		record := domain.DeploymentRecord{
			ContractAddress: treasuryAddr,
			Network:         "simulation",
		}
		if err := deployment.SaveRecord(recordPath, record); err != nil {
			return err
		}
		logger.Printf("Deployment record written to %s", recordPath)
	}

	return nil
}
