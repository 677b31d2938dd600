// Package aggregate derives summary statistics and filtered views from a
// reconstructed transfer event stream. All functions are pure.
package aggregate

import (
	"erc1155-treasury-lab/internal/domain"
)

// Summary holds the statistics of one event stream.
type Summary struct {
	EventCount         int
	UniqueParticipants int
	TotalVolume        uint64
	// FirstTimestamp and LastTimestamp are zero for an empty stream.
	FirstTimestamp int64
	LastTimestamp  int64
}

// Summarize computes the stream statistics in a single pass. The zero address
// is excluded from the participant set on both sides since it only marks mints
// and burns.
func Summarize(events []*domain.TransferEvent) Summary {
	summary := Summary{EventCount: len(events)}

	participants := make(map[string]struct{})
	for i, e := range events {
		if !domain.IsZeroAddress(e.From) {
			participants[domain.NormalizeAddress(e.From)] = struct{}{}
		}
		if !domain.IsZeroAddress(e.To) {
			participants[domain.NormalizeAddress(e.To)] = struct{}{}
		}

		summary.TotalVolume += e.TotalAmount()

		if i == 0 || e.Timestamp < summary.FirstTimestamp {
			summary.FirstTimestamp = e.Timestamp
		}
		if i == 0 || e.Timestamp > summary.LastTimestamp {
			summary.LastTimestamp = e.Timestamp
		}
	}

	summary.UniqueParticipants = len(participants)
	return summary
}

// FilterByToken returns events touching tokenID, preserving order.
func FilterByToken(events []*domain.TransferEvent, tokenID uint64) []*domain.TransferEvent {
	var filtered []*domain.TransferEvent
	for _, e := range events {
		if e.ContainsToken(tokenID) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FilterByAddress returns events whose sender or receiver matches address,
// case-insensitively, preserving order.
func FilterByAddress(events []*domain.TransferEvent, address string) []*domain.TransferEvent {
	norm := domain.NormalizeAddress(address)

	var filtered []*domain.TransferEvent
	for _, e := range events {
		if domain.NormalizeAddress(e.From) == norm || domain.NormalizeAddress(e.To) == norm {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
