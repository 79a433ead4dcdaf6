package relic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
)

// Query accumulates a table name, an optional predicate, an ordered sort
// list and an optional limit/offset, and produces SELECT and
// SELECT COUNT statements. It is a value object: built, configured via
// chained calls, executed once, then discarded.
type Query struct {
	table  string
	pred   sql.Predicate
	orders []sql.Order
	limit  *int64
	offset *int64
}

// NewQuery returns a query against the given table. The table name is
// fixed at construction.
func NewQuery(table string) *Query {
	return &Query{table: table}
}

// Where sets the predicate, replacing any previous one.
func (q *Query) Where(p sql.Predicate) *Query {
	q.pred = p
	return q
}

// OrderBy appends sort terms. The append order is the ORDER BY emission
// order; no implicit re-sort is applied.
func (q *Query) OrderBy(orders ...sql.Order) *Query {
	q.orders = append(q.orders, orders...)
	return q
}

// Limit sets the LIMIT clause.
func (q *Query) Limit(n int64) *Query {
	q.limit = &n
	return q
}

// Offset sets the OFFSET clause.
func (q *Query) Offset(n int64) *Query {
	q.offset = &n
	return q
}

// selectSQL emits the SELECT statement with the given column list.
func (q *Query) selectSQL(columns []string) (string, []dialect.Value, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	args, err := q.whereSQL(&b)
	if err != nil {
		return "", nil, err
	}
	if len(q.orders) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(sql.OrderBy(q.orders))
	}
	if q.limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(*q.limit, 10))
	}
	if q.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatInt(*q.offset, 10))
	}
	return b.String(), args, nil
}

// countSQL emits the SELECT COUNT statement. Sort, limit and offset are
// ignored: the count always reflects the filtered, unpaginated set.
func (q *Query) countSQL() (string, []dialect.Value, error) {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(q.table)
	args, err := q.whereSQL(&b)
	if err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func (q *Query) whereSQL(b *strings.Builder) ([]dialect.Value, error) {
	if q.pred == nil {
		return nil, nil
	}
	frag, args, err := sql.Render(q.pred)
	if err != nil {
		return nil, err
	}
	b.WriteString(" WHERE ")
	b.WriteString(frag)
	return args, nil
}

// Count runs the SELECT COUNT statement and returns the scalar result.
func (q *Query) Count(ctx context.Context, drv dialect.Driver) (int64, error) {
	query, args, err := q.countSQL()
	if err != nil {
		return 0, err
	}
	rows, err := drv.Query(ctx, query, args)
	if err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()
	row, err := rows.Next(ctx)
	if err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	if row == nil {
		return 0, &QueryError{Query: query, Err: fmt.Errorf("count returned no rows")}
	}
	v, err := row.Get(0)
	if err != nil {
		return 0, &DecodeError{Table: q.table, Err: err}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, &DecodeError{Table: q.table, Err: err}
	}
	return n, nil
}

// QueryAll runs the query's SELECT statement and decodes every row into
// a fresh instance. A decode failure aborts the whole call with a
// DecodeError; no partial results are returned.
func QueryAll[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, q *Query) ([]*T, error) {
	var probe T
	query, args, err := q.selectSQL(columnNames(PT(&probe)))
	if err != nil {
		return nil, err
	}
	rows, err := drv.Query(ctx, query, args)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()
	return decodeRows[T, PT](ctx, q.table, rows)
}

func decodeRows[T any, PT ModelPtr[T]](ctx context.Context, table string, rows dialect.Rows) ([]*T, error) {
	var out []*T
	for {
		row, err := rows.Next(ctx)
		if err != nil {
			return nil, &QueryError{Query: table, Err: err}
		}
		if row == nil {
			return out, nil
		}
		m := PT(new(T))
		if err := m.Decode(row); err != nil {
			return nil, &DecodeError{Table: table, Err: err}
		}
		out = append(out, (*T)(m))
	}
}
