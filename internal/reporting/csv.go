package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-token activity rows as CSV string.
func RenderCSV(rows []TokenRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("token_id,transfer_count,volume,minted,burned\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d,%d\n",
			row.TokenID,
			row.TransferCount,
			row.Volume,
			row.Minted,
			row.Burned,
		))
	}

	return sb.String()
}
