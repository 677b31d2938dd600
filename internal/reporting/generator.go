package reporting

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"erc1155-treasury-lab/internal/aggregate"
	"erc1155-treasury-lab/internal/domain"
	"erc1155-treasury-lab/internal/scanner"
)

// Generator produces scan reports.
type Generator struct {
	contract string
	now      func() time.Time // Injectable clock for deterministic output
	newID    func() string
}

// NewGenerator creates a report generator for a contract address.
func NewGenerator(contract string) *Generator {
	return &Generator{
		contract: domain.NormalizeAddress(contract),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithIDFunc sets a custom report ID source for deterministic output.
func (g *Generator) WithIDFunc(newID func() string) *Generator {
	g.newID = newID
	return g
}

// Generate builds a complete report from one scan result.
func (g *Generator) Generate(result *scanner.Result) *Report {
	summary := aggregate.Summarize(result.Events)

	singles, batches := 0, 0
	for _, ev := range result.Events {
		if ev.Kind == domain.TransferBatch {
			batches++
		} else {
			singles++
		}
	}

	return &Report{
		ReportID:    g.newID(),
		GeneratedAt: g.now(),
		Contract:    g.contract,
		Range:       result.Range,
		ScanStats: ScanStats{
			ChunkQueries:  result.ChunkQueries,
			RangeSplits:   result.RangeSplits,
			SkippedRanges: result.SkippedRanges,
			Duration:      result.Duration,
		},
		Activity: ActivitySection{
			EventCount:         summary.EventCount,
			SingleCount:        singles,
			BatchCount:         batches,
			UniqueParticipants: summary.UniqueParticipants,
			TotalVolume:        summary.TotalVolume,
			FirstTimestamp:     summary.FirstTimestamp,
			LastTimestamp:      summary.LastTimestamp,
		},
		TokenRows:       buildTokenRows(result.Events),
		ParticipantRows: buildParticipantRows(result.Events),
	}
}

func buildTokenRows(events []*domain.TransferEvent) []TokenRow {
	byToken := make(map[uint64]*TokenRow)
	for _, ev := range events {
		for i, id := range ev.TokenIDs {
			row, ok := byToken[id]
			if !ok {
				row = &TokenRow{TokenID: id}
				byToken[id] = row
			}
			amount := ev.Amounts[i]
			row.TransferCount++
			row.Volume += amount
			if domain.IsZeroAddress(ev.From) {
				row.Minted += amount
			}
			if domain.IsZeroAddress(ev.To) {
				row.Burned += amount
			}
		}
	}

	rows := make([]TokenRow, 0, len(byToken))
	for _, row := range byToken {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TokenID < rows[j].TokenID })
	return rows
}

func buildParticipantRows(events []*domain.TransferEvent) []ParticipantRow {
	byAddr := make(map[string]*ParticipantRow)
	get := func(addr string) *ParticipantRow {
		row, ok := byAddr[addr]
		if !ok {
			row = &ParticipantRow{Address: addr}
			byAddr[addr] = row
		}
		return row
	}

	for _, ev := range events {
		total := ev.TotalAmount()
		if !domain.IsZeroAddress(ev.From) {
			row := get(domain.NormalizeAddress(ev.From))
			row.TransferCount++
			row.Sent += total
		}
		if !domain.IsZeroAddress(ev.To) {
			row := get(domain.NormalizeAddress(ev.To))
			row.TransferCount++
			row.Received += total
		}
	}

	rows := make([]ParticipantRow, 0, len(byAddr))
	for _, row := range byAddr {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TransferCount != rows[j].TransferCount {
			return rows[i].TransferCount > rows[j].TransferCount
		}
		return rows[i].Address < rows[j].Address
	})
	return rows
}
