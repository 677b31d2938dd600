package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/eth"
	"erc1155-treasury-lab/internal/observability"
	"erc1155-treasury-lab/internal/reporting"
	"erc1155-treasury-lab/internal/scanner"
	"erc1155-treasury-lab/internal/storage"
	chstore "erc1155-treasury-lab/internal/storage/clickhouse"
	"erc1155-treasury-lab/internal/storage/migrations"
	pgstore "erc1155-treasury-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	rpcEndpoint := flag.String("rpc-endpoint", "", "Ethereum RPC HTTP endpoint")
	contract := flag.String("contract", "", "Collection contract address")
	fromBlock := flag.Uint64("from-block", 0, "Start block for the scan")
	toBlock := flag.Uint64("to-block", 0, "End block for the scan (0 = chain tip)")
	recentDepth := flag.Uint64("recent-depth", scanner.DefaultRecentDepth, "Window depth when no start block is given")
	chunkSize := flag.Uint64("chunk-size", scanner.DefaultChunkSize, "Initial block span per log query")
	throttle := flag.Duration("throttle", scanner.DefaultThrottle, "Pause between chunk queries")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for event archival (empty to skip)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for event archival (empty to skip)")
	outPath := flag.String("out", "", "Write the Markdown report to this path (empty = stdout)")
	csvPath := flag.String("csv-out", "", "Write the per-token CSV to this path (empty to skip)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *contract == "" {
		logger.Fatal("--contract is required")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling scan...", sig)
		cancel()
	}()

	if err := run(ctx, logger, config{
		rpcEndpoint:   *rpcEndpoint,
		contract:      *contract,
		fromBlock:     *fromBlock,
		toBlock:       *toBlock,
		recentDepth:   *recentDepth,
		chunkSize:     *chunkSize,
		throttle:      *throttle,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		outPath:       *outPath,
		csvPath:       *csvPath,
	}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
}

type config struct {
	rpcEndpoint   string
	contract      string
	fromBlock     uint64
	toBlock       uint64
	recentDepth   uint64
	chunkSize     uint64
	throttle      time.Duration
	postgresDSN   string
	clickhouseDSN string
	outPath       string
	csvPath       string
}

func run(ctx context.Context, logger *log.Logger, cfg config) error {
	rpc := eth.NewHTTPClient(cfg.rpcEndpoint)

	scan := scanner.New(scanner.Options{
		Chain:       rpc,
		Contract:    cfg.contract,
		ChunkSize:   cfg.chunkSize,
		Throttle:    cfg.throttle,
		RecentDepth: cfg.recentDepth,
		Logger:      logger,
	})

	var result *scanner.Result
	var err error
	if cfg.fromBlock > 0 {
		to := cfg.toBlock
		if to == 0 {
			to, err = rpc.BlockNumber(ctx)
			if err != nil {
				return fmt.Errorf("resolve chain tip: %w", err)
			}
		}
		result, err = scan.Scan(ctx, cfg.fromBlock, to)
	} else {
		result, err = scan.ScanRecent(ctx)
	}
	if err != nil {
		return err
	}

	observability.RecordScan(result.ChunkQueries, result.RangeSplits,
		len(result.SkippedRanges), result.Duration.Seconds())
	for _, ev := range result.Events {
		observability.RecordEventScanned(string(ev.Kind))
	}

	if cfg.postgresDSN != "" {
		if err := archiveToPostgres(ctx, logger, cfg.postgresDSN, result.Events); err != nil {
			return err
		}
	}
	if cfg.clickhouseDSN != "" {
		if err := archiveToClickhouse(ctx, logger, cfg.clickhouseDSN, result.Events); err != nil {
			return err
		}
	}

	report := reporting.NewGenerator(cfg.contract).Generate(result)

	md := reporting.RenderMarkdown(report)
	if cfg.outPath != "" {
		if err := os.WriteFile(cfg.outPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Printf("Report written to %s", cfg.outPath)
	} else {
		fmt.Print(md)
	}

	if cfg.csvPath != "" {
		if err := os.WriteFile(cfg.csvPath, []byte(reporting.RenderCSV(report.TokenRows)), 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		logger.Printf("CSV written to %s", cfg.csvPath)
	}

	return nil
}

func archiveToPostgres(ctx context.Context, logger *log.Logger, dsn string, events []*domain.TransferEvent) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := pgstore.NewTransferLogStore(pool)
	if err := insertEvents(ctx, store, events); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Printf("Postgres archive skipped: range already archived")
			return nil
		}
		return fmt.Errorf("archive to postgres: %w", err)
	}
	logger.Printf("Archived %d events to postgres", len(events))
	return nil
}

func archiveToClickhouse(ctx context.Context, logger *log.Logger, dsn string, events []*domain.TransferEvent) error {
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := chstore.NewTransferEventStore(conn)
	if err := insertEvents(ctx, store, events); err != nil {
		return fmt.Errorf("archive to clickhouse: %w", err)
	}
	logger.Printf("Archived %d events to clickhouse", len(events))
	return nil
}

func insertEvents(ctx context.Context, store storage.TransferLogStore, events []*domain.TransferEvent) error {
	return store.InsertBulk(ctx, events)
}
