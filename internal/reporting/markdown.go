package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Transfer Scan Report\n\n")
	sb.WriteString(fmt.Sprintf("Report ID: %s\n\n", r.ReportID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Contract: %s | Blocks %d-%d\n\n", r.Contract, r.Range.From, r.Range.To))

	// Scan Stats
	sb.WriteString("## Scan\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Chunk Queries | %d |\n", r.ScanStats.ChunkQueries))
	sb.WriteString(fmt.Sprintf("| Range Splits | %d |\n", r.ScanStats.RangeSplits))
	sb.WriteString(fmt.Sprintf("| Skipped Ranges | %d |\n", len(r.ScanStats.SkippedRanges)))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", r.ScanStats.Duration))
	sb.WriteString("\n")

	if r.ScanStats.Complete() {
		sb.WriteString("**Scan complete.** Every sub-range was retrieved.\n\n")
	} else {
		sb.WriteString("**Scan incomplete.** The following sub-ranges were dropped:\n\n")
		for _, skipped := range r.ScanStats.SkippedRanges {
			sb.WriteString(fmt.Sprintf("- blocks %d-%d\n", skipped.From, skipped.To))
		}
		sb.WriteString("\n")
	}

	// Activity
	sb.WriteString("## Activity\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Events | %d |\n", r.Activity.EventCount))
	sb.WriteString(fmt.Sprintf("| Single Transfers | %d |\n", r.Activity.SingleCount))
	sb.WriteString(fmt.Sprintf("| Batch Transfers | %d |\n", r.Activity.BatchCount))
	sb.WriteString(fmt.Sprintf("| Unique Participants | %d |\n", r.Activity.UniqueParticipants))
	sb.WriteString(fmt.Sprintf("| Total Volume | %d |\n", r.Activity.TotalVolume))
	sb.WriteString(fmt.Sprintf("| First Timestamp (ms) | %d |\n", r.Activity.FirstTimestamp))
	sb.WriteString(fmt.Sprintf("| Last Timestamp (ms) | %d |\n", r.Activity.LastTimestamp))
	sb.WriteString("\n")

	// Per-token breakdown
	sb.WriteString("## Tokens\n\n")
	if len(r.TokenRows) > 0 {
		sb.WriteString("| Token | Transfers | Volume | Minted | Burned |\n")
		sb.WriteString("|-------|-----------|--------|--------|--------|\n")
		for _, row := range r.TokenRows {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n",
				row.TokenID, row.TransferCount, row.Volume, row.Minted, row.Burned))
		}
	} else {
		sb.WriteString("No token activity in range.\n")
	}
	sb.WriteString("\n")

	// Participants
	sb.WriteString("## Participants\n\n")
	if len(r.ParticipantRows) > 0 {
		sb.WriteString("| Address | Transfers | Sent | Received |\n")
		sb.WriteString("|---------|-----------|------|----------|\n")
		for _, row := range r.ParticipantRows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n",
				row.Address, row.TransferCount, row.Sent, row.Received))
		}
	} else {
		sb.WriteString("No participants in range.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
