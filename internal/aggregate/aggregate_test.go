package aggregate

import (
	"testing"

	"erc1155-treasury-lab/internal/domain"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrC = "0x3333333333333333333333333333333333333333"
)

func sampleEvents() []*domain.TransferEvent {
	return []*domain.TransferEvent{
		{
			Kind: domain.TransferSingle, Timestamp: 1000,
			From: domain.ZeroAddress, To: addrA,
			TokenIDs: []uint64{1}, Amounts: []uint64{50},
		},
		{
			Kind: domain.TransferSingle, Timestamp: 3000,
			From: addrA, To: addrB,
			TokenIDs: []uint64{1}, Amounts: []uint64{20},
		},
		{
			Kind: domain.TransferBatch, Timestamp: 2000,
			From: addrB, To: domain.ZeroAddress,
			TokenIDs: []uint64{1, 2}, Amounts: []uint64{5, 7},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEvents())

	if s.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", s.EventCount)
	}
	// The zero address is not a participant.
	if s.UniqueParticipants != 2 {
		t.Errorf("UniqueParticipants = %d, want 2", s.UniqueParticipants)
	}
	if s.TotalVolume != 82 {
		t.Errorf("TotalVolume = %d, want 82", s.TotalVolume)
	}
	// Timestamps are scanned, not assumed sorted.
	if s.FirstTimestamp != 1000 || s.LastTimestamp != 3000 {
		t.Errorf("timestamps = %d..%d, want 1000..3000", s.FirstTimestamp, s.LastTimestamp)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.EventCount != 0 || s.UniqueParticipants != 0 || s.TotalVolume != 0 {
		t.Errorf("non-zero summary for empty stream: %+v", s)
	}
	if s.FirstTimestamp != 0 || s.LastTimestamp != 0 {
		t.Errorf("non-zero timestamps for empty stream: %+v", s)
	}
}

func TestSummarizeCaseInsensitiveParticipants(t *testing.T) {
	events := []*domain.TransferEvent{
		{From: addrA, To: "0X1111111111111111111111111111111111111111", TokenIDs: []uint64{1}, Amounts: []uint64{1}},
	}
	s := Summarize(events)
	if s.UniqueParticipants != 1 {
		t.Errorf("case variants counted separately: %d participants", s.UniqueParticipants)
	}
}

func TestFilterByToken(t *testing.T) {
	events := sampleEvents()

	got := FilterByToken(events, 2)
	if len(got) != 1 || got[0].Kind != domain.TransferBatch {
		t.Errorf("unexpected filter result: %+v", got)
	}

	got = FilterByToken(events, 1)
	if len(got) != 3 {
		t.Errorf("expected all 3 events for token 1, got %d", len(got))
	}

	if got := FilterByToken(events, 9); len(got) != 0 {
		t.Errorf("expected no events for unknown token, got %d", len(got))
	}
}

func TestFilterByAddress(t *testing.T) {
	events := sampleEvents()

	got := FilterByAddress(events, addrB)
	if len(got) != 2 {
		t.Fatalf("expected 2 events touching addrB, got %d", len(got))
	}
	// Order preserved
	if got[0].Timestamp != 3000 || got[1].Timestamp != 2000 {
		t.Errorf("filter reordered events: %d, %d", got[0].Timestamp, got[1].Timestamp)
	}

	// Case-insensitive match
	got = FilterByAddress(events, "0X2222222222222222222222222222222222222222")
	if len(got) != 2 {
		t.Errorf("case-insensitive match failed: %d events", len(got))
	}

	if got := FilterByAddress(events, addrC); len(got) != 0 {
		t.Errorf("expected no events for uninvolved address, got %d", len(got))
	}
}
