package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"erc1155-treasury-lab/internal/eth"
	"erc1155-treasury-lab/internal/eth/stub"
)

const contract = "0xcc00000000000000000000000000000000000001"

func word(v uint64) string {
	return fmt.Sprintf("%064x", v)
}

func addressTopic(addr string) string {
	return "0x" + strings.Repeat("0", 24) + addr[2:]
}

// singleLog builds an encoded TransferSingle log.
func singleLog(block, logIndex, tokenID, amount uint64) eth.Log {
	return eth.Log{
		Address: contract,
		Topics: []string{
			eth.TopicTransferSingle,
			addressTopic("0x00000000000000000000000000000000000a11ce"),
			addressTopic("0x0000000000000000000000000000000000000000"),
			addressTopic("0x0000000000000000000000000000000000000b0b"),
		},
		Data:        "0x" + word(tokenID) + word(amount),
		BlockNumber: block,
		TxHash:      fmt.Sprintf("0xtx%d", block),
		LogIndex:    logIndex,
	}
}

func newScanner(chain eth.ChainClient, chunkSize uint64) *Scanner {
	return New(Options{
		Chain:     chain,
		Contract:  contract,
		ChunkSize: chunkSize,
		Throttle:  time.Millisecond,
	})
}

func TestScanRetrievesAllEvents(t *testing.T) {
	chain := stub.NewChainClient()
	for b := uint64(1); b <= 100; b++ {
		chain.AddLog(singleLog(b, 0, 1, b))
	}

	result, err := newScanner(chain, 100).Scan(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Events) != 100 {
		t.Errorf("expected 100 events, got %d", len(result.Events))
	}
	if !result.Complete() {
		t.Errorf("unexpected skipped ranges: %v", result.SkippedRanges)
	}
	if result.ChunkQueries == 0 {
		t.Error("expected chunk queries to be counted")
	}
	if result.Range.From != 1 || result.Range.To != 100 {
		t.Errorf("unexpected range: %+v", result.Range)
	}
}

func TestScanSplitsOnRangeRejection(t *testing.T) {
	chain := stub.NewChainClient()
	chain.MaxRange = 20
	for b := uint64(1); b <= 100; b++ {
		chain.AddLog(singleLog(b, 0, 1, b))
	}

	result, err := newScanner(chain, 100).Scan(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// The 100-block chunk is rejected; tenths of it fit under the cap.
	if len(result.Events) != 100 {
		t.Errorf("expected all 100 events after splitting, got %d", len(result.Events))
	}
	if result.RangeSplits == 0 {
		t.Error("expected range splits to be counted")
	}
	if !result.Complete() {
		t.Errorf("unexpected skipped ranges: %v", result.SkippedRanges)
	}
}

func TestScanSkipsUnrecoverableRange(t *testing.T) {
	chain := stub.NewChainClient()
	chain.MaxRange = 20
	for b := uint64(1); b <= 100; b++ {
		chain.AddLog(singleLog(b, 0, 1, b))
	}
	// Blocks 41..50 stay broken even at the reduced chunk size.
	chain.FailRanges[41] = errors.New("backend exploded")

	result, err := newScanner(chain, 100).Scan(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Complete() {
		t.Fatal("expected a skipped range")
	}
	if len(result.SkippedRanges) != 1 {
		t.Fatalf("expected 1 skipped range, got %v", result.SkippedRanges)
	}
	skipped := result.SkippedRanges[0]
	if skipped.From != 41 || skipped.To != 50 {
		t.Errorf("unexpected skipped range: %+v", skipped)
	}
	// The scan continued past the bad range.
	if len(result.Events) != 90 {
		t.Errorf("expected 90 events around the gap, got %d", len(result.Events))
	}
}

func TestScanSkipsBlocksWithoutTimestamp(t *testing.T) {
	chain := stub.NewChainClient()
	chain.AddLog(singleLog(10, 0, 1, 5))
	chain.AddLog(singleLog(20, 0, 1, 7))
	chain.AddLog(singleLog(20, 1, 1, 9))
	chain.FailTimestamps[20] = errors.New("block unavailable")

	result, err := newScanner(chain, 100).Scan(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Events of the unresolvable block are dropped, the rest survive
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if result.Events[0].BlockNumber != 10 {
		t.Errorf("wrong event survived: block %d", result.Events[0].BlockNumber)
	}

	if len(result.SkippedRanges) != 1 {
		t.Fatalf("expected 1 skipped range, got %v", result.SkippedRanges)
	}
	if result.SkippedRanges[0].From != 20 || result.SkippedRanges[0].To != 20 {
		t.Errorf("expected skipped range 20-20, got %+v", result.SkippedRanges[0])
	}
	if result.Complete() {
		t.Error("scan with dropped blocks reported complete")
	}
}

func TestScanDeduplicatesAcrossChunks(t *testing.T) {
	chain := stub.NewChainClient()
	// The same (tx, log index) delivered twice by the provider.
	chain.AddLog(singleLog(5, 0, 1, 10))
	chain.AddLog(singleLog(5, 0, 1, 10))

	result, err := newScanner(chain, 10).Scan(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Events) != 1 {
		t.Errorf("expected duplicate suppression, got %d events", len(result.Events))
	}
}

func TestScanOrdersByTimestamp(t *testing.T) {
	chain := stub.NewChainClient()
	// Insert out of block order; synthetic timestamps follow block numbers.
	for _, b := range []uint64{30, 10, 20} {
		chain.AddLog(singleLog(b, 0, 1, 1))
	}

	result, err := newScanner(chain, 100).Scan(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Events))
	}
	var prev int64
	for _, e := range result.Events {
		if e.Timestamp < prev {
			t.Errorf("events out of order: %d after %d", e.Timestamp, prev)
		}
		if e.Timestamp != int64(e.BlockNumber)*12*1000 {
			t.Errorf("timestamp not annotated in ms: block=%d ts=%d", e.BlockNumber, e.Timestamp)
		}
		prev = e.Timestamp
	}
}

func TestScanRecentBoundsWindow(t *testing.T) {
	chain := stub.NewChainClient()
	chain.Tip = 500
	chain.AddLog(singleLog(495, 0, 1, 1))

	s := New(Options{
		Chain:       chain,
		Contract:    contract,
		Throttle:    time.Millisecond,
		RecentDepth: 50,
	})
	result, err := s.ScanRecent(context.Background())
	if err != nil {
		t.Fatalf("ScanRecent failed: %v", err)
	}
	if result.Range.From != 451 || result.Range.To != 500 {
		t.Errorf("unexpected window: %+v", result.Range)
	}
	if len(result.Events) != 1 {
		t.Errorf("expected 1 event in window, got %d", len(result.Events))
	}
}

func TestScanRecentShallowChain(t *testing.T) {
	chain := stub.NewChainClient()
	chain.Tip = 5

	s := New(Options{
		Chain:       chain,
		Contract:    contract,
		Throttle:    time.Millisecond,
		RecentDepth: 50,
	})
	result, err := s.ScanRecent(context.Background())
	if err != nil {
		t.Fatalf("ScanRecent failed: %v", err)
	}
	if result.Range.From != 0 || result.Range.To != 5 {
		t.Errorf("expected genesis-clamped window, got %+v", result.Range)
	}
}

func TestScanInvalidRange(t *testing.T) {
	if _, err := newScanner(stub.NewChainClient(), 10).Scan(context.Background(), 10, 5); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	chain := stub.NewChainClient()
	for b := uint64(1); b <= 100; b++ {
		chain.AddLog(singleLog(b, 0, 1, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newScanner(chain, 10).Scan(ctx, 1, 100); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScanSkipsRemovedLogs(t *testing.T) {
	chain := stub.NewChainClient()
	l := singleLog(5, 0, 1, 10)
	l.Removed = true
	chain.AddLog(l)

	result, err := newScanner(chain, 10).Scan(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Events) != 0 {
		t.Errorf("reorged log was not dropped: %d events", len(result.Events))
	}
}
