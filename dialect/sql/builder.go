// Package sql renders relic predicate trees into parameterized SQL and
// provides the production dialect.Driver implementation on top of
// database/sql.
package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/relic/dialect"
)

// Op is a leaf comparison operator.
type Op uint8

// Leaf comparison operators.
const (
	OpEQ Op = iota // =
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpLike
	OpIn
	OpIsNull
	OpNotNull
)

var opText = [...]string{
	OpEQ:      "=",
	OpNEQ:     "!=",
	OpGT:      ">",
	OpGTE:     ">=",
	OpLT:      "<",
	OpLTE:     "<=",
	OpLike:    "LIKE",
	OpIn:      "IN",
	OpIsNull:  "IS NULL",
	OpNotNull: "IS NOT NULL",
}

// String returns the SQL text of the operator.
func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return "<invalid>"
}

// Predicate is a node in a composable filter tree: a single column
// comparison, or an AND/OR group of child predicates. Trees nest
// arbitrarily and are consumed once by Render.
type Predicate interface {
	predicate()
}

// Filter is a single column/operator/operand comparison. The column
// identifier is a trusted string supplied by the model contract or the
// caller; only operand values are parameterized.
type Filter struct {
	Column string
	Op     Op
	// Values holds the operands. IN consumes all of them, IS NULL and
	// IS NOT NULL take none, every other operator takes exactly one.
	Values []dialect.Value
}

func (Filter) predicate() {}

// AndPredicate is the conjunction of its children.
type AndPredicate []Predicate

func (AndPredicate) predicate() {}

// OrPredicate is the disjunction of its children.
type OrPredicate []Predicate

func (OrPredicate) predicate() {}

// EQ returns a `column = ?` filter.
func EQ(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpEQ, Values: []dialect.Value{v}}
}

// NEQ returns a `column != ?` filter.
func NEQ(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpNEQ, Values: []dialect.Value{v}}
}

// GT returns a `column > ?` filter.
func GT(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpGT, Values: []dialect.Value{v}}
}

// GTE returns a `column >= ?` filter.
func GTE(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpGTE, Values: []dialect.Value{v}}
}

// LT returns a `column < ?` filter.
func LT(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpLT, Values: []dialect.Value{v}}
}

// LTE returns a `column <= ?` filter.
func LTE(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpLTE, Values: []dialect.Value{v}}
}

// Like returns a `column LIKE ?` filter. The caller supplies wildcard
// characters in the operand.
func Like(column string, v dialect.Value) Filter {
	return Filter{Column: column, Op: OpLike, Values: []dialect.Value{v}}
}

// In returns a `column IN (?, ...)` filter with one placeholder per value.
// An empty list renders a fragment that matches no rows.
func In(column string, vs ...dialect.Value) Filter {
	return Filter{Column: column, Op: OpIn, Values: vs}
}

// IsNull returns a `column IS NULL` filter.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// NotNull returns a `column IS NOT NULL` filter.
func NotNull(column string) Filter {
	return Filter{Column: column, Op: OpNotNull}
}

// And groups predicates with AND. And() with no children renders an
// always-true fragment.
func And(ps ...Predicate) Predicate { return AndPredicate(ps) }

// Or groups predicates with OR. Or() with no children renders an
// always-false fragment.
func Or(ps ...Predicate) Predicate { return OrPredicate(ps) }

// Builder accumulates a SQL fragment and its ordered parameter list.
// It owns no state beyond the call that constructs it.
type Builder struct {
	sb   strings.Builder
	args []dialect.Value
}

// Render renders a predicate tree into a SQL fragment plus the ordered
// parameter list. Parameters concatenate in depth-first, left-to-right
// traversal order, so the position of every `?` in the fragment matches
// its parameter's position in the list.
func Render(p Predicate) (string, []dialect.Value, error) {
	b := &Builder{}
	if err := b.render(p); err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.args, nil
}

func (b *Builder) render(p Predicate) error {
	switch p := p.(type) {
	case Filter:
		return b.filter(p)
	case AndPredicate:
		return b.group([]Predicate(p), " AND ", "1 = 1")
	case OrPredicate:
		return b.group([]Predicate(p), " OR ", "1 = 0")
	case nil:
		return fmt.Errorf("dialect/sql: nil predicate")
	default:
		return fmt.Errorf("dialect/sql: unknown predicate type %T", p)
	}
}

func (b *Builder) group(ps []Predicate, sep, empty string) error {
	if len(ps) == 0 {
		b.sb.WriteString(empty)
		return nil
	}
	for i, p := range ps {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		b.sb.WriteByte('(')
		if err := b.render(p); err != nil {
			return err
		}
		b.sb.WriteByte(')')
	}
	return nil
}

func (b *Builder) filter(f Filter) error {
	if f.Column == "" {
		return fmt.Errorf("dialect/sql: filter with empty column")
	}
	switch f.Op {
	case OpIsNull, OpNotNull:
		if len(f.Values) != 0 {
			return fmt.Errorf("dialect/sql: %s %s takes no operand, got %d", f.Column, f.Op, len(f.Values))
		}
		b.sb.WriteString(f.Column)
		b.sb.WriteByte(' ')
		b.sb.WriteString(f.Op.String())
	case OpIn:
		// IN () is not valid SQL. An empty list matches no rows.
		if len(f.Values) == 0 {
			b.sb.WriteString("1 = 0")
			return nil
		}
		b.sb.WriteString(f.Column)
		b.sb.WriteString(" IN (")
		for i, v := range f.Values {
			if i > 0 {
				b.sb.WriteString(", ")
			}
			b.sb.WriteByte('?')
			b.args = append(b.args, v)
		}
		b.sb.WriteByte(')')
	default:
		if int(f.Op) >= len(opText) {
			return fmt.Errorf("dialect/sql: invalid operator %d", f.Op)
		}
		if len(f.Values) != 1 {
			return fmt.Errorf("dialect/sql: %s %s takes one operand, got %d", f.Column, f.Op, len(f.Values))
		}
		b.sb.WriteString(f.Column)
		b.sb.WriteByte(' ')
		b.sb.WriteString(f.Op.String())
		b.sb.WriteString(" ?")
		b.args = append(b.args, f.Values[0])
	}
	return nil
}

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(column string) Order { return Order{Column: column} }

// Desc returns a descending order term.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// String returns the SQL text of the term.
func (o Order) String() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

// OrderBy renders an ORDER BY clause body with one comma-separated term
// per entry, in insertion order. No secondary key is added implicitly.
func OrderBy(orders []Order) string {
	terms := make([]string, len(orders))
	for i, o := range orders {
		terms[i] = o.String()
	}
	return strings.Join(terms, ", ")
}
