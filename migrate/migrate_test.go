package migrate_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/relic"
	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
	"github.com/syssam/relic/migrate"
)

func setupManager(t *testing.T) *migrate.Manager {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	m := migrate.NewManager(drv)
	require.NoError(t, m.Init(t.Context()))
	return m
}

func TestInitIdempotent(t *testing.T) {
	m := setupManager(t)
	require.NoError(t, m.Init(t.Context()))
	require.NoError(t, m.Init(t.Context()))

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	assert.Empty(t, migs)
}

func TestNew(t *testing.T) {
	a := migrate.New("first", "CREATE TABLE a (id INTEGER)")
	b := migrate.New("second", "CREATE TABLE b (id INTEGER)")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.True(t, a.Pending())
	assert.Nil(t, a.ExecutedAt)
}

func TestExecuteMigration(t *testing.T) {
	m := setupManager(t)
	mig := migrate.New("create_items", "CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT)")
	require.NoError(t, m.ExecuteMigration(t.Context(), mig))

	// The schema change is visible.
	_, err := m.Driver().Exec(t.Context(), "INSERT INTO items (label) VALUES (?)",
		[]dialect.Value{dialect.Text("x")})
	require.NoError(t, err)

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	require.Len(t, migs, 1)
	assert.Equal(t, mig.ID, migs[0].ID)
	assert.Equal(t, "create_items", migs[0].Name)
	assert.Equal(t, mig.SQL, migs[0].SQL)
	require.NotNil(t, migs[0].ExecutedAt)
	assert.False(t, migs[0].Pending())
}

func TestPendingExecutedPartition(t *testing.T) {
	m := setupManager(t)
	require.NoError(t, m.ExecuteMigration(t.Context(),
		migrate.New("one", "CREATE TABLE one (id INTEGER)")))
	require.NoError(t, m.ExecuteMigration(t.Context(),
		migrate.New("two", "CREATE TABLE two (id INTEGER)")))

	pending, err := m.PendingMigrations(t.Context())
	require.NoError(t, err)
	executed, err := m.ExecutedMigrations(t.Context())
	require.NoError(t, err)
	all, err := m.Migrations(t.Context())
	require.NoError(t, err)

	assert.Empty(t, pending)
	assert.Len(t, executed, 2)
	assert.Equal(t, len(all), len(pending)+len(executed))
}

func TestExecuteMigrationFailureLeavesNoTrackingRow(t *testing.T) {
	m := setupManager(t)
	err := m.ExecuteMigration(t.Context(), migrate.New("broken", "THIS IS NOT SQL"))
	require.Error(t, err)
	assert.True(t, relic.IsMigration(err))

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	assert.Empty(t, migs, "a failed migration is rolled back, not recorded")

	// The connection is usable again: the rollback released the
	// transaction.
	require.NoError(t, m.ExecuteMigration(t.Context(),
		migrate.New("recovery", "CREATE TABLE recovery (id INTEGER)")))
}

func TestRollbackMigrationForgetsOnly(t *testing.T) {
	m := setupManager(t)
	mig := migrate.NewBuilder("create_gone").
		Up("CREATE TABLE gone (id INTEGER)").
		Down("DROP TABLE gone").
		Build()
	require.NoError(t, m.ExecuteMigration(t.Context(), mig))
	require.NoError(t, m.RollbackMigration(t.Context(), mig.ID))

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	assert.Empty(t, migs)

	// The down SQL was never run: the table is still there.
	_, err = m.Driver().Exec(t.Context(), "INSERT INTO gone (id) VALUES (?)",
		[]dialect.Value{dialect.Integer(1)})
	require.NoError(t, err)
}

func TestMigrationsOrderedByCreatedAt(t *testing.T) {
	m := setupManager(t)
	older := migrate.New("older", "CREATE TABLE older (id INTEGER)")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := migrate.New("newer", "CREATE TABLE newer (id INTEGER)")
	newer.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Execute out of creation order.
	require.NoError(t, m.ExecuteMigration(t.Context(), newer))
	require.NoError(t, m.ExecuteMigration(t.Context(), older))

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, "older", migs[0].Name)
	assert.Equal(t, "newer", migs[1].Name)
}

func TestMigrationsRejectsMalformedTimestamp(t *testing.T) {
	m := setupManager(t)
	_, err := m.Driver().Exec(t.Context(),
		"INSERT INTO migrations (id, name, sql, created_at, executed_at) VALUES (?, ?, ?, ?, ?)",
		[]dialect.Value{
			dialect.Text("bad-id"),
			dialect.Text("bad"),
			dialect.Text("SELECT 1"),
			dialect.Text("not a timestamp"),
			dialect.Null(),
		})
	require.NoError(t, err)

	_, err = m.Migrations(t.Context())
	require.Error(t, err)
	assert.True(t, relic.IsMigration(err))
}

func TestRunMigrationsSkipsExecutedEntries(t *testing.T) {
	m := setupManager(t)
	done := migrate.New("done", "CREATE TABLE done (id INTEGER)")
	now := time.Now().UTC()
	done.ExecutedAt = &now
	todo := migrate.New("todo", "CREATE TABLE todo (id INTEGER)")

	require.NoError(t, m.RunMigrations(t.Context(), []migrate.Migration{done, todo}))

	migs, err := m.Migrations(t.Context())
	require.NoError(t, err)
	require.Len(t, migs, 1)
	assert.Equal(t, "todo", migs[0].Name)
}

// RunMigrations checks only the in-memory ExecutedAt field, so replaying
// the same slice re-applies the SQL and fails. Sync is the idempotent
// alternative.
func TestRunMigrationsIsNotIdempotent(t *testing.T) {
	m := setupManager(t)
	migs := []migrate.Migration{migrate.New("again", "CREATE TABLE again (id INTEGER)")}
	require.NoError(t, m.RunMigrations(t.Context(), migs))
	assert.Error(t, m.RunMigrations(t.Context(), migs))
}

func TestSyncIdempotent(t *testing.T) {
	m := setupManager(t)
	migs := []migrate.Migration{migrate.New("synced", "CREATE TABLE synced (id INTEGER)")}
	require.NoError(t, m.Sync(t.Context(), migs))
	require.NoError(t, m.Sync(t.Context(), migs))
	require.NoError(t, m.Sync(t.Context(), migs))

	tracked, err := m.Migrations(t.Context())
	require.NoError(t, err)
	assert.Len(t, tracked, 1)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE f (id INTEGER)"), 0o644))

	mig, err := migrate.FromFile("from_file", path)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE f (id INTEGER)", mig.SQL)
	assert.True(t, mig.Pending())

	_, err = migrate.FromFile("missing", filepath.Join(t.TempDir(), "nope.sql"))
	require.Error(t, err)
	assert.True(t, relic.IsMigration(err))
}

func TestGenerateName(t *testing.T) {
	name := migrate.GenerateName("Add User-Email Index!")
	assert.True(t, strings.HasSuffix(name, "_add_user_email_index"))
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_`), name)
}

func TestBuilder(t *testing.T) {
	mig := migrate.NewBuilder("with_down").
		Up("CREATE TABLE wd (id INTEGER)").
		Down("DROP TABLE wd").
		Build()
	assert.Equal(t, "with_down", mig.Name)
	assert.Equal(t, "CREATE TABLE wd (id INTEGER)", mig.SQL)
	assert.Equal(t, "DROP TABLE wd", mig.Down)
	assert.NotEmpty(t, mig.ID)
}

func TestTemplates(t *testing.T) {
	ct := migrate.CreateTable("users", [][2]string{
		{"id", "INTEGER PRIMARY KEY"},
		{"name", "TEXT NOT NULL"},
	})
	assert.Equal(t, "create_table_users", ct.Name)
	assert.Equal(t, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)", ct.SQL)
	assert.Equal(t, "DROP TABLE users", ct.Down)

	ac := migrate.AddColumn("users", "age", "INTEGER")
	assert.Equal(t, "add_column_users_age", ac.Name)
	assert.Equal(t, "ALTER TABLE users ADD COLUMN age INTEGER", ac.SQL)
	assert.Equal(t, "ALTER TABLE users DROP COLUMN age", ac.Down)

	dc := migrate.DropColumn("users", "age")
	assert.Equal(t, "ALTER TABLE users DROP COLUMN age", dc.SQL)
	assert.Empty(t, dc.Down)

	ci := migrate.CreateIndex("idx_users_email", "users", "email")
	assert.Equal(t, "CREATE INDEX idx_users_email ON users (email)", ci.SQL)
	assert.Equal(t, "DROP INDEX idx_users_email", ci.Down)

	di := migrate.DropIndex("idx_users_email")
	assert.Equal(t, "DROP INDEX idx_users_email", di.SQL)
	assert.Empty(t, di.Down)
}

func TestTemplateMigrationsApply(t *testing.T) {
	m := setupManager(t)
	migs := []migrate.Migration{
		migrate.CreateTable("things", [][2]string{{"id", "INTEGER PRIMARY KEY"}, {"label", "TEXT"}}),
		migrate.AddColumn("things", "weight", "REAL"),
		migrate.CreateIndex("idx_things_label", "things", "label"),
	}
	require.NoError(t, m.RunMigrations(t.Context(), migs))

	_, err := m.Driver().Exec(t.Context(),
		"INSERT INTO things (label, weight) VALUES (?, ?)",
		[]dialect.Value{dialect.Text("box"), dialect.Real(1.25)})
	require.NoError(t, err)

	executed, err := m.ExecutedMigrations(t.Context())
	require.NoError(t, err)
	assert.Len(t, executed, 3)
}
