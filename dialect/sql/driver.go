package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/syssam/relic/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
// It wraps exactly one *sql.DB handle; it performs no pooling or
// multiplexing of its own and imposes no mutual exclusion on callers.
type Driver struct {
	db      *sql.DB
	dialect string
}

// Open opens a database/sql connection for the given dialect and returns
// a Driver wrapping it. The dialect name doubles as the database/sql
// driver name, so the corresponding driver package must be registered by
// the caller (the config package registers sqlite, mysql and postgres).
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", dialect, err)
	}
	// One handle wraps exactly one underlying connection. This keeps
	// BEGIN/COMMIT pairs on a single session and makes ":memory:"
	// databases stable across statements.
	db.SetMaxOpenConns(1)
	return OpenDB(dialect, db), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return &Driver{db: db, dialect: dialect}
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Dialect implements the dialect.Driver method.
func (d *Driver) Dialect() string {
	// The driver may be registered under a suffixed name (e.g. "sqlite3").
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Ping verifies the connection is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("dialect/sql: ping: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.db.Close() }

// Query implements the dialect.Querier method.
func (d *Driver) Query(ctx context.Context, query string, args []dialect.Value) (dialect.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, bindArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	n := 0
	if cols, err := rows.Columns(); err == nil {
		n = len(cols)
	}
	return &rowsCursor{rows: rows, columns: n}, nil
}

// Exec implements the dialect.Querier method.
func (d *Driver) Exec(ctx context.Context, query string, args []dialect.Value) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, bindArgs(args)...)
	if err != nil {
		return 0, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dialect/sql: exec: rows affected: %w", err)
	}
	return affected, nil
}

var _ dialect.Driver = (*Driver)(nil)

// bindArgs converts portable values to database/sql arguments. Together
// with scanValue it is the single adapter between dialect.Value and
// backend-native types.
func bindArgs(args []dialect.Value) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, v := range args {
		out[i] = bindValue(v)
	}
	return out
}

func bindValue(v dialect.Value) any {
	switch v.Kind() {
	case dialect.KindInteger:
		i, _ := v.Int64()
		return i
	case dialect.KindReal:
		f, _ := v.Float64()
		return f
	case dialect.KindText:
		s, _ := v.Text()
		return s
	case dialect.KindBlob:
		b, _ := v.Bytes()
		return b
	default:
		return nil
	}
}

// scanValue converts a backend-native scanned value to a portable one.
func scanValue(src any) (dialect.Value, error) {
	switch src := src.(type) {
	case nil:
		return dialect.Null(), nil
	case int64:
		return dialect.Integer(src), nil
	case float64:
		return dialect.Real(src), nil
	case bool:
		return dialect.Bool(src), nil
	case string:
		return dialect.Text(src), nil
	case []byte:
		// []byte buffers are reused by database/sql between scans.
		return dialect.Blob(append([]byte(nil), src...)), nil
	case time.Time:
		return dialect.Text(src.Format(time.RFC3339Nano)), nil
	default:
		return dialect.Value{}, fmt.Errorf("dialect/sql: unsupported column type %T", src)
	}
}

// rowsCursor adapts *sql.Rows to the dialect.Rows cursor contract.
type rowsCursor struct {
	rows    *sql.Rows
	columns int
	closed  bool
}

// Next implements dialect.Rows. The context was bound by the query that
// produced the cursor; it is accepted for interface symmetry only.
func (c *rowsCursor) Next(_ context.Context) (dialect.Row, error) {
	if c.closed {
		return nil, nil
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("dialect/sql: rows: %w", err)
		}
		_ = c.Close()
		return nil, nil
	}
	dest := make([]any, c.columns)
	for i := range dest {
		dest[i] = new(any)
	}
	if err := c.rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("dialect/sql: scan: %w", err)
	}
	row := make(rowValues, c.columns)
	for i, d := range dest {
		v, err := scanValue(*d.(*any))
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// Close implements dialect.Rows.
func (c *rowsCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}

// rowValues is a materialized row addressed by column index.
type rowValues []dialect.Value

// Get implements dialect.Row.
func (r rowValues) Get(index int) (dialect.Value, error) {
	if index < 0 || index >= len(r) {
		return dialect.Value{}, fmt.Errorf("dialect/sql: column index %d out of range [0, %d)", index, len(r))
	}
	return r[index], nil
}

// Len implements dialect.Row.
func (r rowValues) Len() int { return len(r) }
