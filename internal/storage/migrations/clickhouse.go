package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	chstore "erc1155-treasury-lab/internal/storage/clickhouse"
)

// clickhouseFS carries the transfer-event archive schema.
//
//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// RunClickhouseMigrations applies all embedded SQL files in lexical order.
// Statements use IF NOT EXISTS and are safe to re-apply.
func RunClickhouseMigrations(ctx context.Context, conn *chstore.Conn) error {
	files, err := listSQL(clickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(clickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
