// Package scanner reconstructs the collection's transfer history from a
// range-limited remote log source, splitting chunks the provider rejects and
// skipping sub-ranges that stay unretrievable.
package scanner

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/eth"
)

// Default configuration values.
const (
	DefaultChunkSize   = 100
	MinChunkSize       = 10
	DefaultThrottle    = 200 * time.Millisecond
	DefaultRecentDepth = 10000
)

// Scanner retrieves historical TransferSingle/TransferBatch events for one
// contract. Each Scan call is self-contained; no state is shared between runs.
type Scanner struct {
	chain       eth.ChainClient
	contract    string
	chunkSize   uint64
	throttle    time.Duration
	recentDepth uint64
	logger      *log.Logger
}

// Options contains configuration for creating a Scanner.
type Options struct {
	Chain    eth.ChainClient
	Contract string
	// ChunkSize is the initial block span per log query (default 100).
	ChunkSize uint64
	// Throttle is the pause between successful chunk queries (default 200ms).
	Throttle time.Duration
	// RecentDepth bounds ScanRecent's window when no start block is given
	// (default 10000 blocks).
	RecentDepth uint64
	Logger      *log.Logger
}

// New creates a new event scanner.
func New(opts Options) *Scanner {
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	throttle := opts.Throttle
	if throttle == 0 {
		throttle = DefaultThrottle
	}

	recentDepth := opts.RecentDepth
	if recentDepth == 0 {
		recentDepth = DefaultRecentDepth
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Scanner{
		chain:       opts.Chain,
		contract:    domain.NormalizeAddress(opts.Contract),
		chunkSize:   chunkSize,
		throttle:    throttle,
		recentDepth: recentDepth,
		logger:      logger,
	}
}

// Result contains the reconstructed event stream and scan statistics.
// SkippedRanges lists sub-ranges dropped by the lossy-continue policy, so
// consumers can detect an incomplete reconstruction.
type Result struct {
	Events        []*domain.TransferEvent
	Range         domain.BlockRange
	SkippedRanges []domain.BlockRange
	ChunkQueries  int
	RangeSplits   int
	Duration      time.Duration
}

// Complete reports whether no sub-range was skipped.
func (r *Result) Complete() bool {
	return len(r.SkippedRanges) == 0
}

// ScanRecent scans a bounded recent window ending at the current chain tip.
func (s *Scanner) ScanRecent(ctx context.Context) (*Result, error) {
	tip, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain tip: %w", err)
	}

	from := uint64(0)
	if tip >= s.recentDepth {
		from = tip - s.recentDepth + 1
	}
	return s.Scan(ctx, from, tip)
}

// Scan retrieves all transfer events in [from, to], annotates them with block
// timestamps and returns them sorted ascending by timestamp, stable with
// respect to retrieval order on ties.
func (s *Scanner) Scan(ctx context.Context, from, to uint64) (*Result, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range: from %d > to %d", from, to)
	}

	start := time.Now()
	result := &Result{
		Range: domain.BlockRange{From: from, To: to},
	}

	s.logger.Printf("Scanning blocks %d..%d (chunk size %d)", from, to, s.chunkSize)

	seen := make(map[string]struct{})
	pos := from
	for pos <= to {
		// Cooperative cancellation between chunk iterations.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := pos + s.chunkSize - 1
		if end > to {
			end = to
		}

		events := s.scanRange(ctx, pos, end, s.chunkSize, result)
		for _, e := range events {
			key := fmt.Sprintf("%s|%d", e.TxRef, e.LogIndex)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Events = append(result.Events, e)
		}

		pos = end + 1

		if pos <= to {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.throttle):
			}
		}
	}

	if err := s.annotateTimestamps(ctx, result); err != nil {
		return nil, err
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Timestamp < result.Events[j].Timestamp
	})

	result.Duration = time.Since(start)
	s.logger.Printf("Scan complete: %d events, %d queries, %d splits, %d skipped ranges in %v",
		len(result.Events), result.ChunkQueries, result.RangeSplits, len(result.SkippedRanges), result.Duration)

	return result, nil
}

// scanRange queries one sub-range, splitting on provider range limits. A
// sub-range that stays unretrievable is recorded as skipped and dropped; the
// scan continues (availability over completeness).
func (s *Scanner) scanRange(ctx context.Context, from, to, chunkSize uint64, result *Result) []*domain.TransferEvent {
	result.ChunkQueries++

	events, err := s.fetchRange(ctx, from, to)
	if err == nil {
		return events
	}

	if eth.IsRangeTooLarge(err) && chunkSize > MinChunkSize {
		smaller := chunkSize / 10
		if smaller < MinChunkSize {
			smaller = MinChunkSize
		}

		result.RangeSplits++
		s.logger.Printf("Range %d..%d too large, retrying with chunk size %d", from, to, smaller)

		var all []*domain.TransferEvent
		for sub := from; sub <= to; sub += smaller {
			subEnd := sub + smaller - 1
			if subEnd > to {
				subEnd = to
			}
			all = append(all, s.scanRange(ctx, sub, subEnd, smaller, result)...)
		}
		return all
	}

	result.SkippedRanges = append(result.SkippedRanges, domain.BlockRange{From: from, To: to})
	s.logger.Printf("Skipping blocks %d..%d: %v", from, to, err)
	return nil
}

// fetchRange issues the single and batch transfer queries for one sub-range.
func (s *Scanner) fetchRange(ctx context.Context, from, to uint64) ([]*domain.TransferEvent, error) {
	var events []*domain.TransferEvent

	for _, topic := range []string{eth.TopicTransferSingle, eth.TopicTransferBatch} {
		logs, err := s.chain.GetLogs(ctx, eth.FilterQuery{
			Address:   s.contract,
			Topics:    [][]string{{topic}},
			FromBlock: from,
			ToBlock:   to,
		})
		if err != nil {
			return nil, err
		}

		for _, l := range logs {
			if l.Removed {
				continue
			}
			e, err := eth.DecodeTransferLog(l)
			if err != nil {
				s.logger.Printf("Error decoding log %s/%d: %v", l.TxHash, l.LogIndex, err)
				continue
			}
			events = append(events, e)
		}
	}

	return events, nil
}

// annotateTimestamps fills in block wall-clock times, cached per block. A
// block whose timestamp cannot be fetched has its events dropped and the
// block recorded as a skipped range, same lossy policy as range retrieval.
// Cancellation still aborts the scan.
func (s *Scanner) annotateTimestamps(ctx context.Context, result *Result) error {
	cache := make(map[uint64]int64)
	failed := make(map[uint64]struct{})

	kept := result.Events[:0]
	for _, e := range result.Events {
		if _, bad := failed[e.BlockNumber]; bad {
			continue
		}
		ts, ok := cache[e.BlockNumber]
		if !ok {
			sec, err := s.chain.BlockTimestamp(ctx, e.BlockNumber)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed[e.BlockNumber] = struct{}{}
				result.SkippedRanges = append(result.SkippedRanges,
					domain.BlockRange{From: e.BlockNumber, To: e.BlockNumber})
				s.logger.Printf("Skipping block %d, timestamp lookup failed: %v", e.BlockNumber, err)
				continue
			}
			ts = sec * 1000
			cache[e.BlockNumber] = ts
		}
		e.Timestamp = ts
		kept = append(kept, e)
	}
	result.Events = kept
	return nil
}
