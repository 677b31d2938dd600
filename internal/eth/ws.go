package eth

import "context"

// WSClient defines the Ethereum WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to contract logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan Log, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines the eth_subscribe "logs" filter.
type LogsFilter struct {
	// Address restricts notifications to one contract; empty matches all.
	Address string
	// Topics are positional topic filters.
	Topics [][]string
}
