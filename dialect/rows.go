package dialect

import (
	"context"
	"fmt"
)

// NewRow returns an in-memory Row over the given values.
func NewRow(values ...Value) Row { return memRow(values) }

// RowsOf returns an in-memory Rows cursor over the given rows. It is the
// building block for fake drivers and cached result replay.
func RowsOf(rows ...Row) Rows { return &memRows{rows: rows} }

type memRow []Value

func (r memRow) Get(index int) (Value, error) {
	if index < 0 || index >= len(r) {
		return Value{}, fmt.Errorf("dialect: column index %d out of range [0, %d)", index, len(r))
	}
	return r[index], nil
}

func (r memRow) Len() int { return len(r) }

type memRows struct {
	rows []Row
	next int
}

func (m *memRows) Next(context.Context) (Row, error) {
	if m.next >= len(m.rows) {
		return nil, nil
	}
	row := m.rows[m.next]
	m.next++
	return row, nil
}

func (m *memRows) Close() error { return nil }
