// Package migrate tracks and applies schema migrations.
//
// A Migration moves through two states: pending (ExecutedAt is nil) and
// executed (ExecutedAt set, immutably, once recorded). The Manager owns
// the tracking table and runs every migration inside an explicit
// BEGIN/COMMIT pair; atomicity is exactly whatever the backend provides
// for that statement pair.
package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/relic"
	"github.com/syssam/relic/dialect"
)

// TimeFormat is the fixed textual timestamp format of the tracking table.
const TimeFormat = time.RFC3339Nano

// Migration is a named, timestamped unit of schema-change SQL. IDs are
// collision-resistant random identifiers; no ordering is derived from
// them (ordering uses CreatedAt).
type Migration struct {
	ID        string
	Name      string
	SQL       string
	CreatedAt time.Time
	// ExecutedAt is nil until ExecuteMigration records it.
	ExecutedAt *time.Time
	// Down is the optional reverse SQL. It is carried in memory for
	// callers that want to run it themselves; the Manager never
	// executes it.
	Down string
}

// Pending reports whether the migration has not been executed.
func (m Migration) Pending() bool { return m.ExecutedAt == nil }

// New creates a pending migration with a fresh random id.
func New(name, sql string) Migration {
	return Migration{
		ID:        uuid.NewString(),
		Name:      name,
		SQL:       sql,
		CreatedAt: time.Now().UTC(),
	}
}

// FromFile creates a pending migration whose SQL is read from a file.
func FromFile(name, path string) (Migration, error) {
	sql, err := os.ReadFile(path)
	if err != nil {
		return Migration{}, &relic.MigrationError{Name: name, Err: fmt.Errorf("read migration file: %w", err)}
	}
	return New(name, string(sql)), nil
}

// GenerateName derives a migration name from a description:
// a timestamp prefix plus the lowercased description with every
// non-alphanumeric run collapsed to underscores.
func GenerateName(description string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(description) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '-':
			b.WriteByte('_')
		}
	}
	return time.Now().UTC().Format("20060102_150405") + "_" + b.String()
}

// Builder provides a fluent interface for constructing migrations with
// up and down SQL.
type Builder struct {
	name string
	up   string
	down string
}

// NewBuilder creates a migration builder for the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Up sets the SQL applied by the migration.
func (b *Builder) Up(sql string) *Builder {
	b.up = sql
	return b
}

// Down sets the reverse SQL. It is informational only; see Migration.Down.
func (b *Builder) Down(sql string) *Builder {
	b.down = sql
	return b
}

// Build returns the pending migration.
func (b *Builder) Build() Migration {
	m := New(b.name, b.up)
	m.Down = b.down
	return m
}

// Manager owns the tracking table and the database handle for its
// lifetime.
type Manager struct {
	drv dialect.Driver
}

// NewManager returns a manager over the given driver.
func NewManager(drv dialect.Driver) *Manager {
	return &Manager{drv: drv}
}

// Driver returns the underlying driver.
func (m *Manager) Driver() dialect.Driver { return m.drv }

// Init creates the tracking table. It is idempotent.
func (m *Manager) Init(ctx context.Context) error {
	const sql = `CREATE TABLE IF NOT EXISTS migrations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	sql TEXT NOT NULL,
	created_at TEXT NOT NULL,
	executed_at TEXT
)`
	if _, err := m.drv.Exec(ctx, sql, nil); err != nil {
		return &relic.MigrationError{Err: fmt.Errorf("init tracking table: %w", err)}
	}
	return nil
}

// ExecuteMigration runs the migration SQL and records a tracking row
// with a fresh executed timestamp, inside a BEGIN/COMMIT pair. On any
// failure after BEGIN a ROLLBACK is issued before the error is returned,
// so a failed migration leaves no tracking row behind.
func (m *Manager) ExecuteMigration(ctx context.Context, mig Migration) error {
	if _, err := m.drv.Exec(ctx, "BEGIN", nil); err != nil {
		return &relic.MigrationError{Name: mig.Name, Err: err}
	}
	if err := m.executeInTx(ctx, mig); err != nil {
		if _, rbErr := m.drv.Exec(ctx, "ROLLBACK", nil); rbErr != nil {
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return &relic.MigrationError{Name: mig.Name, Err: err}
	}
	if _, err := m.drv.Exec(ctx, "COMMIT", nil); err != nil {
		return &relic.MigrationError{Name: mig.Name, Err: err}
	}
	return nil
}

func (m *Manager) executeInTx(ctx context.Context, mig Migration) error {
	if _, err := m.drv.Exec(ctx, mig.SQL, nil); err != nil {
		return err
	}
	const insert = `INSERT INTO migrations (id, name, sql, created_at, executed_at) VALUES (?, ?, ?, ?, ?)`
	_, err := m.drv.Exec(ctx, insert, []dialect.Value{
		dialect.Text(mig.ID),
		dialect.Text(mig.Name),
		dialect.Text(mig.SQL),
		dialect.Text(mig.CreatedAt.Format(TimeFormat)),
		dialect.Text(time.Now().UTC().Format(TimeFormat)),
	})
	return err
}

// RollbackMigration deletes the tracking row for the given id. It only
// forgets that the migration happened; the migration's down SQL is never
// executed and the schema is not reversed.
func (m *Manager) RollbackMigration(ctx context.Context, id string) error {
	if _, err := m.drv.Exec(ctx, "DELETE FROM migrations WHERE id = ?", []dialect.Value{dialect.Text(id)}); err != nil {
		return &relic.MigrationError{Err: err}
	}
	return nil
}

// Migrations reads all tracking rows ordered by creation time. A
// malformed timestamp fails the whole read.
func (m *Manager) Migrations(ctx context.Context) ([]Migration, error) {
	const query = `SELECT id, name, sql, created_at, executed_at FROM migrations ORDER BY created_at`
	rows, err := m.drv.Query(ctx, query, nil)
	if err != nil {
		return nil, &relic.MigrationError{Err: err}
	}
	defer rows.Close()
	var out []Migration
	for {
		row, err := rows.Next(ctx)
		if err != nil {
			return nil, &relic.MigrationError{Err: err}
		}
		if row == nil {
			return out, nil
		}
		mig, err := decodeMigration(row)
		if err != nil {
			return nil, err
		}
		out = append(out, mig)
	}
}

func decodeMigration(row dialect.Row) (Migration, error) {
	var mig Migration
	var err error
	if mig.ID, err = relic.ScanText(row, 0); err != nil {
		return Migration{}, &relic.MigrationError{Err: err}
	}
	if mig.Name, err = relic.ScanText(row, 1); err != nil {
		return Migration{}, &relic.MigrationError{Err: err}
	}
	if mig.SQL, err = relic.ScanText(row, 2); err != nil {
		return Migration{}, &relic.MigrationError{Name: mig.Name, Err: err}
	}
	created, err := relic.ScanText(row, 3)
	if err != nil {
		return Migration{}, &relic.MigrationError{Name: mig.Name, Err: err}
	}
	if mig.CreatedAt, err = time.Parse(TimeFormat, created); err != nil {
		return Migration{}, &relic.MigrationError{Name: mig.Name, Err: fmt.Errorf("invalid created_at %q: %w", created, err)}
	}
	executed, err := relic.ScanNullText(row, 4)
	if err != nil {
		return Migration{}, &relic.MigrationError{Name: mig.Name, Err: err}
	}
	if executed != nil {
		t, err := time.Parse(TimeFormat, *executed)
		if err != nil {
			return Migration{}, &relic.MigrationError{Name: mig.Name, Err: fmt.Errorf("invalid executed_at %q: %w", *executed, err)}
		}
		mig.ExecutedAt = &t
	}
	return mig, nil
}

// PendingMigrations returns the tracked migrations that have not been
// executed. Together with ExecutedMigrations it covers the full set with
// no overlap.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	return m.partition(ctx, true)
}

// ExecutedMigrations returns the tracked migrations that have been
// executed.
func (m *Manager) ExecutedMigrations(ctx context.Context) ([]Migration, error) {
	return m.partition(ctx, false)
}

func (m *Manager) partition(ctx context.Context, pending bool) ([]Migration, error) {
	migs, err := m.Migrations(ctx)
	if err != nil {
		return nil, err
	}
	out := migs[:0:0]
	for _, mig := range migs {
		if mig.Pending() == pending {
			out = append(out, mig)
		}
	}
	return out, nil
}

// RunMigrations applies ExecuteMigration to every entry whose own
// ExecutedAt field is still nil. It does NOT cross-check the persisted
// tracking table: a freshly constructed migration always runs. Callers
// that must avoid re-application filter against PendingMigrations, or
// use Sync.
func (m *Manager) RunMigrations(ctx context.Context, migrations []Migration) error {
	for _, mig := range migrations {
		if !mig.Pending() {
			continue
		}
		if err := m.ExecuteMigration(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}

// Sync runs only the given migrations whose name is not yet present in
// the persisted tracking table. It is the idempotent, opt-in counterpart
// to RunMigrations.
func (m *Manager) Sync(ctx context.Context, migrations []Migration) error {
	tracked, err := m.Migrations(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(tracked))
	for _, mig := range tracked {
		seen[mig.Name] = struct{}{}
	}
	for _, mig := range migrations {
		if _, ok := seen[mig.Name]; ok {
			continue
		}
		if err := m.ExecuteMigration(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}
