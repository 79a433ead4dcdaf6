package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relic/dialect"
)

func TestRenderLeafOperators(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
		sql  string
		args []dialect.Value
	}{
		{"eq", EQ("age", dialect.Integer(40)), "age = ?", []dialect.Value{dialect.Integer(40)}},
		{"neq", NEQ("name", dialect.Text("x")), "name != ?", []dialect.Value{dialect.Text("x")}},
		{"gt", GT("age", dialect.Integer(30)), "age > ?", []dialect.Value{dialect.Integer(30)}},
		{"gte", GTE("age", dialect.Integer(30)), "age >= ?", []dialect.Value{dialect.Integer(30)}},
		{"lt", LT("score", dialect.Real(1.5)), "score < ?", []dialect.Value{dialect.Real(1.5)}},
		{"lte", LTE("score", dialect.Real(1.5)), "score <= ?", []dialect.Value{dialect.Real(1.5)}},
		{"like", Like("email", dialect.Text("%@example.com")), "email LIKE ?", []dialect.Value{dialect.Text("%@example.com")}},
		{"in", In("id", dialect.Integer(1), dialect.Integer(2), dialect.Integer(3)), "id IN (?, ?, ?)", []dialect.Value{dialect.Integer(1), dialect.Integer(2), dialect.Integer(3)}},
		{"is null", IsNull("age"), "age IS NULL", nil},
		{"is not null", NotNull("age"), "age IS NOT NULL", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Render(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, len(tt.args), len(args))
			for i := range tt.args {
				assert.True(t, tt.args[i].Equal(args[i]), "arg %d", i)
			}
		})
	}
}

func TestRenderEmptyGroups(t *testing.T) {
	sql, args, err := Render(And())
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, args)

	sql, args, err = Render(Or())
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)
	assert.Empty(t, args)

	sql, args, err = Render(In("id"))
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)
	assert.Empty(t, args)
}

func TestRenderComposite(t *testing.T) {
	p := And(
		GT("age", dialect.Integer(30)),
		EQ("is_active", dialect.Bool(false)),
	)
	sql, args, err := Render(p)
	require.NoError(t, err)
	assert.Equal(t, "(age > ?) AND (is_active = ?)", sql)
	require.Len(t, args, 2)
	assert.True(t, args[0].Equal(dialect.Integer(30)))
	assert.True(t, args[1].Equal(dialect.Integer(0)), "booleans encode as integer 0/1")
}

func TestRenderNestedParenthesization(t *testing.T) {
	p := Or(
		And(
			EQ("a", dialect.Integer(1)),
			Or(
				EQ("b", dialect.Integer(2)),
				EQ("c", dialect.Integer(3)),
			),
		),
		IsNull("d"),
	)
	sql, _, err := Render(p)
	require.NoError(t, err)
	assert.Equal(t, "((a = ?) AND ((b = ?) OR (c = ?))) OR (d IS NULL)", sql)
}

// Placeholder count must equal parameter count, and parameters must
// appear in the same left-to-right order as their placeholders,
// regardless of tree shape.
func TestRenderPlaceholderOrdering(t *testing.T) {
	trees := []Predicate{
		EQ("a", dialect.Integer(1)),
		And(
			EQ("a", dialect.Integer(1)),
			In("b", dialect.Integer(2), dialect.Integer(3)),
			Or(
				Like("c", dialect.Text("4")),
				And(
					GT("d", dialect.Integer(5)),
					IsNull("e"),
					LTE("f", dialect.Integer(6)),
				),
			),
		),
		Or(
			And(),
			In("g", dialect.Integer(7)),
			NotNull("h"),
			Or(In("i"), EQ("j", dialect.Integer(8))),
		),
	}
	for _, p := range trees {
		sql, args, err := Render(p)
		require.NoError(t, err)
		assert.Equal(t, strings.Count(sql, "?"), len(args), "sql: %s", sql)
	}

	// Depth-first, left-to-right: integer payloads mark positions.
	p := And(
		EQ("x", dialect.Integer(1)),
		Or(
			EQ("y", dialect.Integer(2)),
			In("z", dialect.Integer(3), dialect.Integer(4)),
		),
		EQ("w", dialect.Integer(5)),
	)
	_, args, err := Render(p)
	require.NoError(t, err)
	require.Len(t, args, 5)
	for i, a := range args {
		n, err := a.Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
	}
}

func TestRenderArityViolations(t *testing.T) {
	_, _, err := Render(Filter{Column: "a", Op: OpEQ})
	assert.Error(t, err)

	_, _, err = Render(Filter{Column: "a", Op: OpIsNull, Values: []dialect.Value{dialect.Integer(1)}})
	assert.Error(t, err)

	_, _, err = Render(Filter{Op: OpEQ, Values: []dialect.Value{dialect.Integer(1)}})
	assert.Error(t, err, "empty column")

	_, _, err = Render(nil)
	assert.Error(t, err)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "age ASC", OrderBy([]Order{Asc("age")}))
	assert.Equal(t, "age DESC, name ASC", OrderBy([]Order{Desc("age"), Asc("name")}))
	assert.Equal(t, "", OrderBy(nil))
}
