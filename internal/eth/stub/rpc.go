// Package stub provides an in-memory eth.ChainClient for testing.
package stub

import (
	"context"
	"errors"

	"erc1155-treasury-lab/internal/eth"
)

// ErrNotFound is returned when a block is not known to the stub.
var ErrNotFound = errors.New("not found")

// ChainClient implements eth.ChainClient for testing. Logs are stored per
// block; MaxRange simulates a provider rejecting over-wide queries.
type ChainClient struct {
	// Tip is the current chain height.
	Tip uint64
	// Logs maps block number to the logs emitted in that block.
	Logs map[uint64][]eth.Log
	// Timestamps maps block number to its wall-clock time (Unix seconds).
	// Blocks without an entry derive a synthetic timestamp from their number.
	Timestamps map[uint64]int64
	// MaxRange, when non-zero, makes GetLogs fail with a range error for any
	// query spanning more blocks.
	MaxRange uint64
	// FailRanges triggers an unclassified error for queries whose from-block
	// is in the set.
	FailRanges map[uint64]error
	// FailTimestamps makes BlockTimestamp fail for the listed blocks.
	FailTimestamps map[uint64]error

	// Queries records every GetLogs call for assertions.
	Queries []eth.FilterQuery
}

// NewChainClient creates a new stub chain client.
func NewChainClient() *ChainClient {
	return &ChainClient{
		Logs:           make(map[uint64][]eth.Log),
		Timestamps:     make(map[uint64]int64),
		FailRanges:     make(map[uint64]error),
		FailTimestamps: make(map[uint64]error),
	}
}

// AddLog records a log in its block.
func (c *ChainClient) AddLog(l eth.Log) {
	c.Logs[l.BlockNumber] = append(c.Logs[l.BlockNumber], l)
	if l.BlockNumber > c.Tip {
		c.Tip = l.BlockNumber
	}
}

// BlockNumber retrieves the current chain tip.
func (c *ChainClient) BlockNumber(_ context.Context) (uint64, error) {
	return c.Tip, nil
}

// GetLogs retrieves logs over [FromBlock, ToBlock], honoring MaxRange.
func (c *ChainClient) GetLogs(_ context.Context, q eth.FilterQuery) ([]eth.Log, error) {
	c.Queries = append(c.Queries, q)

	if err, ok := c.FailRanges[q.FromBlock]; ok {
		return nil, err
	}

	span := q.ToBlock - q.FromBlock + 1
	if c.MaxRange > 0 && span > c.MaxRange {
		return nil, &eth.RPCError{Code: -32005, Message: "query returned more than 10000 results"}
	}

	var logs []eth.Log
	for b := q.FromBlock; b <= q.ToBlock; b++ {
		for _, l := range c.Logs[b] {
			if matches(l, q) {
				logs = append(logs, l)
			}
		}
	}
	return logs, nil
}

// BlockTimestamp retrieves the block's wall-clock time.
func (c *ChainClient) BlockTimestamp(_ context.Context, blockNumber uint64) (int64, error) {
	if err, ok := c.FailTimestamps[blockNumber]; ok {
		return 0, err
	}
	if ts, ok := c.Timestamps[blockNumber]; ok {
		return ts, nil
	}
	// Synthetic 12-second block spacing keeps ordering tests deterministic.
	return int64(blockNumber) * 12, nil
}

// matches applies the address and first-position topic filter.
func matches(l eth.Log, q eth.FilterQuery) bool {
	if q.Address != "" && l.Address != q.Address {
		return false
	}
	if len(q.Topics) == 0 || len(q.Topics[0]) == 0 {
		return true
	}
	if len(l.Topics) == 0 {
		return false
	}
	for _, t := range q.Topics[0] {
		if l.Topics[0] == t {
			return true
		}
	}
	return false
}

var _ eth.ChainClient = (*ChainClient)(nil)
