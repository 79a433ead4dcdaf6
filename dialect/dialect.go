// Package dialect defines the database abstraction consumed by relic.
//
// A Driver wraps exactly one underlying connection and exposes the two
// operations the persistence core needs: Query, returning a forward-only
// row cursor, and Exec, returning an affected-row count. Concrete drivers
// are injected at construction time; backend selection is a runtime
// configuration concern, never a build variant.
package dialect

import (
	"context"
	"log/slog"
)

// Dialect names supported by the production driver.
const (
	SQLite   = "sqlite"
	MySQL    = "mysql"
	Postgres = "postgres"
)

// Querier wraps the Query and Exec methods shared by drivers.
type Querier interface {
	// Query runs a statement that returns rows. Parameters bind to `?`
	// placeholders in order.
	Query(ctx context.Context, query string, args []Value) (Rows, error)

	// Exec runs a statement that returns no rows and reports the number
	// of rows affected.
	Exec(ctx context.Context, query string, args []Value) (int64, error)
}

// Driver is the interface every database backend implements.
type Driver interface {
	Querier

	// Dialect returns the dialect name of the driver.
	Dialect() string

	// Close closes the underlying connection.
	Close() error
}

// Rows is a suspending, forward-only, non-restartable row cursor.
type Rows interface {
	// Next returns the next row, or (nil, nil) once the cursor is
	// exhausted.
	Next(ctx context.Context) (Row, error)

	// Close releases the cursor. Close is idempotent.
	Close() error
}

// Row is a single result row addressed by column index.
type Row interface {
	// Get returns the value at the given column index. It fails if the
	// index is out of range.
	Get(index int) (Value, error)

	// Len returns the number of columns in the row.
	Len() int
}

// DebugDriver is a driver that logs all driver operations.
type DebugDriver struct {
	Driver
	log *slog.Logger
}

// Debug gets a driver and an optional logger and returns a new debugged
// driver that prints all outgoing operations with their parameters.
func Debug(d Driver, logger ...*slog.Logger) Driver {
	l := slog.Default()
	if len(logger) > 0 {
		l = logger[0]
	}
	return &DebugDriver{d, l}
}

// Query logs its arguments and calls the underlying driver Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args []Value) (Rows, error) {
	d.log.LogAttrs(ctx, slog.LevelDebug, "driver.Query",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return d.Driver.Query(ctx, query, args)
}

// Exec logs its arguments and calls the underlying driver Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args []Value) (int64, error) {
	d.log.LogAttrs(ctx, slog.LevelDebug, "driver.Exec",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return d.Driver.Exec(ctx, query, args)
}
