package reporting

import (
	"time"

	"erc1155-treasury-lab/internal/domain"
)

// Report summarizes the outcome of one historical transfer scan.
type Report struct {
	// Metadata
	ReportID    string
	GeneratedAt time.Time
	Contract    string
	Range       domain.BlockRange

	// Scan mechanics
	ScanStats ScanStats

	// Activity across the scanned window
	Activity ActivitySection

	// Per-token breakdown (sorted by token ID)
	TokenRows []TokenRow

	// Most active participants (sorted by transfer count, then address)
	ParticipantRows []ParticipantRow
}

// ScanStats records how the scan executed.
type ScanStats struct {
	ChunkQueries  int
	RangeSplits   int
	SkippedRanges []domain.BlockRange
	Duration      time.Duration
}

// Complete reports whether every sub-range was retrieved.
func (s ScanStats) Complete() bool {
	return len(s.SkippedRanges) == 0
}

// ActivitySection describes overall transfer activity.
type ActivitySection struct {
	EventCount         int
	SingleCount        int
	BatchCount         int
	UniqueParticipants int
	TotalVolume        uint64
	FirstTimestamp     int64 // Unix ms
	LastTimestamp      int64 // Unix ms
}

// TokenRow is one row in the per-token activity table.
type TokenRow struct {
	TokenID       uint64
	TransferCount int
	Volume        uint64
	Minted        uint64
	Burned        uint64
}

// ParticipantRow is one row in the participant activity table.
type ParticipantRow struct {
	Address       string
	TransferCount int
	Sent          uint64
	Received      uint64
}
