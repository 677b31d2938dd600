package eth

import "context"

// ChainClient defines the Ethereum RPC HTTP interface consumed by the scanner.
type ChainClient interface {
	// BlockNumber retrieves the current chain tip.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetLogs retrieves logs matching the filter over an inclusive block range.
	GetLogs(ctx context.Context, q FilterQuery) ([]Log, error)

	// BlockTimestamp retrieves the wall-clock time of a block in Unix seconds.
	BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error)
}

// FilterQuery is an eth_getLogs filter over [FromBlock, ToBlock].
type FilterQuery struct {
	Address   string
	Topics    [][]string // positional topic filters, empty position matches any
	FromBlock uint64
	ToBlock   uint64
}

// Log is one emitted contract log entry.
type Log struct {
	Address     string
	Topics      []string
	Data        string // 0x-prefixed hex
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	Removed     bool
}
