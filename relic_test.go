package relic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/relic"
	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
)

// User is a model fixture in the exact shape relicgen emits.
type User struct {
	ID       *int64
	Name     string
	Email    string
	Age      *int64
	Score    *float64
	IsActive bool
}

func (*User) TableName() string { return "users" }

func (*User) Columns() []relic.Column {
	return []relic.Column{
		{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT", PrimaryKey: true},
		{Name: "name", Type: "TEXT NOT NULL"},
		{Name: "email", Type: "TEXT NOT NULL"},
		{Name: "age", Type: "INTEGER", Optional: true},
		{Name: "score", Type: "REAL", Optional: true},
		{Name: "is_active", Type: "INTEGER"},
	}
}

func (m *User) PrimaryKey() (dialect.Value, bool) {
	if m.ID == nil {
		return dialect.Null(), false
	}
	return dialect.Integer(*m.ID), true
}

func (m *User) Encode() []relic.ColumnValue {
	return []relic.ColumnValue{
		{Column: "id", Value: dialect.NullableInteger(m.ID)},
		{Column: "name", Value: dialect.Text(m.Name)},
		{Column: "email", Value: dialect.Text(m.Email)},
		{Column: "age", Value: dialect.NullableInteger(m.Age)},
		{Column: "score", Value: dialect.NullableReal(m.Score)},
		{Column: "is_active", Value: dialect.Bool(m.IsActive)},
	}
}

func (m *User) Decode(row dialect.Row) error {
	var err error
	if m.ID, err = relic.ScanNullInt64(row, 0); err != nil {
		return err
	}
	if m.Name, err = relic.ScanText(row, 1); err != nil {
		return err
	}
	if m.Email, err = relic.ScanText(row, 2); err != nil {
		return err
	}
	if m.Age, err = relic.ScanNullInt64(row, 3); err != nil {
		return err
	}
	if m.Score, err = relic.ScanNullFloat64(row, 4); err != nil {
		return err
	}
	if m.IsActive, err = relic.ScanBool(row, 5); err != nil {
		return err
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func user(name, email string, age *int64, score *float64, active bool) *User {
	return &User{Name: name, Email: email, Age: age, Score: score, IsActive: active}
}

func setupDB(t *testing.T) dialect.Driver {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	_, err = drv.Exec(context.Background(), relic.MigrationSQL(&User{}), nil)
	require.NoError(t, err)
	return drv
}

// insertAndGet creates the user and reads the stored row back by email,
// since Create does not populate the generated key.
func insertAndGet(t *testing.T, drv dialect.Driver, u *User) *User {
	t.Helper()
	require.NoError(t, relic.Create(context.Background(), drv, u))
	rows, err := relic.FindWhere[User](context.Background(), drv, sql.EQ("email", dialect.Text(u.Email)))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	stored := rows[0]
	for _, r := range rows {
		if r.ID != nil && (stored.ID == nil || *r.ID > *stored.ID) {
			stored = r
		}
	}
	require.NotNil(t, stored.ID)
	return stored
}
