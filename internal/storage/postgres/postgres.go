package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// appName marks this module's connections in pg_stat_activity.
const appName = "erc1155-treasury-lab"

// Pool is the shared connection pool behind the token, balance and
// transfer-log stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to Postgres and verifies the connection. The stores issue
// short transactional statements, so the pool keeps the pgx defaults apart
// from the application name.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// isDuplicateKeyError reports a unique-constraint violation. The stores map
// it to storage.ErrDuplicateKey: token id collisions on token insert,
// (tx_ref, log_index) collisions on transfer-log writes.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	// 23505 unique_violation
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isNotFoundError reports an empty result where one row was required.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
