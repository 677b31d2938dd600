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

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/eth"
	"erc1155-treasury-lab/internal/observability"
	chstore "erc1155-treasury-lab/internal/storage/clickhouse"
	"erc1155-treasury-lab/internal/storage/migrations"
)

func main() {
	wsEndpoint := flag.String("ws-endpoint", "", "Ethereum WebSocket endpoint")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Ethereum RPC HTTP endpoint for block timestamps (optional)")
	contract := flag.String("contract", "", "Collection contract address")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for event archival (empty to skip)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *contract == "" {
		logger.Fatal("--contract is required")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, logger, *wsEndpoint, *rpcEndpoint, *contract, *clickhouseDSN); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, wsEndpoint, rpcEndpoint, contract, clickhouseDSN string) error {
	ws, err := eth.NewWSClient(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	var rpc *eth.HTTPClient
	if rpcEndpoint != "" {
		rpc = eth.NewHTTPClient(rpcEndpoint)
	}

	var archive *chstore.TransferEventStore
	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		archive = chstore.NewTransferEventStore(conn)
	}

	logs, err := ws.SubscribeLogs(ctx, eth.LogsFilter{
		Address: domain.NormalizeAddress(contract),
		Topics: [][]string{
			{eth.TopicTransferSingle, eth.TopicTransferBatch},
		},
	})
	if err != nil {
		return fmt.Errorf("subscribe to transfer logs: %w", err)
	}

	logger.Printf("Watching transfers on %s", contract)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-logs:
			if !ok {
				return fmt.Errorf("log subscription closed")
			}
			if l.Removed {
				logger.Printf("Reorged log dropped: block=%d tx=%s", l.BlockNumber, l.TxHash)
				continue
			}

			event, err := eth.DecodeTransferLog(l)
			if err != nil {
				logger.Printf("Skipping undecodable log in block %d: %v", l.BlockNumber, err)
				continue
			}
			if rpc != nil {
				sec, err := rpc.BlockTimestamp(ctx, event.BlockNumber)
				if err != nil {
					logger.Printf("Timestamp lookup failed for block %d: %v", event.BlockNumber, err)
				} else {
					event.Timestamp = sec * 1000
				}
			}

			observability.RecordEventScanned(string(event.Kind))
			logger.Printf("%s block=%d tx=%s from=%s to=%s ids=%v amounts=%v",
				event.Kind, event.BlockNumber, event.TxRef,
				event.From, event.To, event.TokenIDs, event.Amounts)

			if archive != nil {
				if err := archive.Insert(ctx, event); err != nil {
					logger.Printf("Archive insert failed: %v", err)
				}
			}
		}
	}
}
