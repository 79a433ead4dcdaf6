// Package relic is a small object-relational persistence layer: typed
// entities implementing the Model contract are stored and retrieved
// through parameterized SQL built from composable predicate trees, with a
// migration subsystem tracking schema changes.
//
// All operations go through a single dialect.Driver wrapping one
// underlying connection. Concurrent callers sharing one driver must
// serialize their own calls or rely on the backend; this layer imposes no
// mutual exclusion. Nothing here retries: every failure surfaces as a
// typed error and retry policy is left to the caller.
package relic

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
)

// Column describes one column of a persisted entity.
type Column struct {
	// Name is the column identifier. Trusted, never escaped as data.
	Name string
	// Type is the SQL type text used in CREATE TABLE.
	Type string
	// PrimaryKey marks the primary-key column. A model has zero or one.
	PrimaryKey bool
	// Optional marks a nullable column.
	Optional bool
}

// ColumnValue is an encoded (column, value) pair.
type ColumnValue struct {
	Column string
	Value  dialect.Value
}

// Model is the capability contract every persisted entity type
// implements. Implementations are usually emitted by relicgen, but any
// type providing a stable column order and a zero-or-one primary key
// satisfies the contract.
type Model interface {
	// TableName returns the table identifier.
	TableName() string
	// Columns returns the ordered column list. The order is the Decode
	// and SELECT order and must be stable.
	Columns() []Column
	// PrimaryKey returns the primary-key value. The boolean is false
	// when the key is unset (an auto-generated key before insertion).
	PrimaryKey() (dialect.Value, bool)
	// Encode returns the ordered (column, value) pairs of the instance.
	Encode() []ColumnValue
	// Decode fills the instance from a row whose columns are in
	// Columns() order.
	Decode(row dialect.Row) error
}

// ModelPtr is the constraint tying a model type to its pointer, letting
// the generic read paths construct fresh instances to decode into.
type ModelPtr[T any] interface {
	*T
	Model
}

// MigrationSQL derives a CREATE TABLE statement from the model's column
// metadata.
func MigrationSQL(m Model) string {
	cols := m.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", m.TableName(), strings.Join(defs, ", "))
}

// columnNames returns the column identifiers in declaration order.
func columnNames(m Model) []string {
	cols := m.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// primaryColumn returns the primary-key column name, or "" if the model
// has none.
func primaryColumn(m Model) string {
	for _, c := range m.Columns() {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// Create inserts the instance. Columns whose primary key is unset are
// omitted from the INSERT so the backend can generate the key. The
// generated key is NOT populated back on the instance; callers that need
// it must re-query.
func Create(ctx context.Context, drv dialect.Driver, m Model) error {
	pkCol := primaryColumn(m)
	_, pkSet := m.PrimaryKey()
	var (
		names        []string
		placeholders []string
		args         []dialect.Value
	)
	for _, cv := range m.Encode() {
		if cv.Column == pkCol && !pkSet {
			continue
		}
		names = append(names, cv.Column)
		placeholders = append(placeholders, "?")
		args = append(args, cv.Value)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.TableName(), strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := drv.Exec(ctx, query, args); err != nil {
		return &QueryError{Query: query, Err: err}
	}
	return nil
}

// FindByID returns the row with the given primary key, or nil if absent.
// Absence is not an error.
func FindByID[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, id dialect.Value) (*T, error) {
	var probe T
	pkCol := primaryColumn(PT(&probe))
	if pkCol == "" {
		return nil, fmt.Errorf("%w: model %s has no primary key", ErrConfiguration, PT(&probe).TableName())
	}
	rows, err := QueryAll[T, PT](ctx, drv, NewQuery(PT(&probe).TableName()).
		Where(sql.EQ(pkCol, id)).
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindAll returns every row of the model's table.
func FindAll[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver) ([]*T, error) {
	var probe T
	return QueryAll[T, PT](ctx, drv, NewQuery(PT(&probe).TableName()))
}

// FindWhere returns the rows matching the predicate.
func FindWhere[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, p sql.Predicate) ([]*T, error) {
	var probe T
	return QueryAll[T, PT](ctx, drv, NewQuery(PT(&probe).TableName()).Where(p))
}

// Update writes every non-primary-key column of the instance by primary
// key. Success is defined purely by statement execution: updating a
// nonexistent key succeeds silently with zero rows changed.
func Update(ctx context.Context, drv dialect.Driver, m Model) error {
	pkCol := primaryColumn(m)
	pk, ok := m.PrimaryKey()
	if pkCol == "" || !ok {
		return fmt.Errorf("%w: update requires a primary key value", ErrConfiguration)
	}
	var (
		sets []string
		args []dialect.Value
	)
	for _, cv := range m.Encode() {
		if cv.Column == pkCol {
			continue
		}
		sets = append(sets, cv.Column+" = ?")
		args = append(args, cv.Value)
	}
	args = append(args, pk)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		m.TableName(), strings.Join(sets, ", "), pkCol)
	if _, err := drv.Exec(ctx, query, args); err != nil {
		return &QueryError{Query: query, Err: err}
	}
	return nil
}

// Delete removes the instance's row by primary key. It reports true
// whenever the statement executes without a driver error, regardless of
// whether a matching row existed. This is a deliberate contract:
// deleting a non-existent id still returns true.
func Delete(ctx context.Context, drv dialect.Driver, m Model) (bool, error) {
	pkCol := primaryColumn(m)
	pk, ok := m.PrimaryKey()
	if pkCol == "" || !ok {
		return false, fmt.Errorf("%w: delete requires a primary key value", ErrConfiguration)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.TableName(), pkCol)
	if _, err := drv.Exec(ctx, query, []dialect.Value{pk}); err != nil {
		return false, &QueryError{Query: query, Err: err}
	}
	return true, nil
}

// BulkDelete removes the rows whose primary key is in ids and returns
// the affected-row count reported by the driver. Unlike Delete, this
// path reports true removal count.
func BulkDelete[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, ids []dialect.Value) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var probe T
	pkCol := primaryColumn(PT(&probe))
	if pkCol == "" {
		return 0, fmt.Errorf("%w: model %s has no primary key", ErrConfiguration, PT(&probe).TableName())
	}
	frag, args, err := sql.Render(sql.In(pkCol, ids...))
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", PT(&probe).TableName(), frag)
	n, err := drv.Exec(ctx, query, args)
	if err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	return n, nil
}

// DeleteWhere removes the rows matching the predicate and returns the
// affected-row count.
func DeleteWhere[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, p sql.Predicate) (int64, error) {
	var probe T
	frag, args, err := sql.Render(p)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", PT(&probe).TableName(), frag)
	n, err := drv.Exec(ctx, query, args)
	if err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	return n, nil
}

// Count returns the unfiltered row count of the model's table.
func Count[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver) (int64, error) {
	var probe T
	return NewQuery(PT(&probe).TableName()).Count(ctx, drv)
}

// CountWhere returns the filtered row count.
func CountWhere[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, p sql.Predicate) (int64, error) {
	var probe T
	return NewQuery(PT(&probe).TableName()).Where(p).Count(ctx, drv)
}

// CreateOrUpdate performs Update when the instance's primary-key value is
// set and Create otherwise. No existence check precedes the update
// branch; a key that does not exist yields a no-op success, mirroring
// Update's contract.
func CreateOrUpdate(ctx context.Context, drv dialect.Driver, m Model) error {
	if _, ok := m.PrimaryKey(); ok {
		return Update(ctx, drv, m)
	}
	return Create(ctx, drv, m)
}

// FindPaginated runs a count query and a limited/offset select query
// under the same predicate (pass nil for none) and returns the page with
// Total and TotalPages filled.
func FindPaginated[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, pg Pagination, p sql.Predicate) (*Page[T], error) {
	if err := pg.validate(); err != nil {
		return nil, err
	}
	var probe T
	q := NewQuery(PT(&probe).TableName())
	if p != nil {
		q.Where(p)
	}
	total, err := q.Count(ctx, drv)
	if err != nil {
		return nil, err
	}
	q.Limit(pg.PerPage).Offset(pg.offset())
	data, err := QueryAll[T, PT](ctx, drv, q)
	if err != nil {
		return nil, err
	}
	pg.fill(total)
	return &Page[T]{Data: data, Pagination: pg}, nil
}

// Search builds the OR-across-columns LIKE filter and delegates to the
// paginated read path. A nil pagination reads page 1 with the default
// page size.
func Search[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, s SearchFilter, pg *Pagination) (*Page[T], error) {
	page := DefaultPagination()
	if pg != nil {
		page = *pg
	}
	return FindPaginated[T, PT](ctx, drv, page, s.Predicate())
}
