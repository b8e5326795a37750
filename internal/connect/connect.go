// Package connect validates live database connections before they are added
// as data sources.
package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultTimeout bounds a connection check.
const DefaultTimeout = 10 * time.Second

// CheckPostgres connects to the given DSN and pings it. A nil error means
// the connection is usable as a data source.
func CheckPostgres(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("connection did not respond to ping: %w", err)
	}
	return nil
}
