package relic

import (
	"fmt"

	"github.com/syssam/relic/dialect"
	"github.com/syssam/relic/dialect/sql"
)

// DefaultPerPage is the page size used when no pagination is supplied.
const DefaultPerPage = 20

// Pagination is a page-indexed read window. Page is 1-indexed. Total and
// TotalPages are nil until a count query fills them.
type Pagination struct {
	Page       int64
	PerPage    int64
	Total      *int64
	TotalPages *int64
}

// NewPagination stores the raw request. Values below one are rejected at
// query time, never clamped.
func NewPagination(page, perPage int64) Pagination {
	return Pagination{Page: page, PerPage: perPage}
}

// DefaultPagination returns page 1 with the default page size.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPerPage)
}

// validate rejects page or per_page below one. The offset arithmetic is
// undefined otherwise, so violations are errors, not clamps.
func (p Pagination) validate() error {
	if p.Page < 1 || p.PerPage < 1 {
		return fmt.Errorf("%w: got page=%d per_page=%d", ErrInvalidPagination, p.Page, p.PerPage)
	}
	return nil
}

func (p Pagination) offset() int64 {
	return (p.Page - 1) * p.PerPage
}

// fill records the count-query result and derives the page count,
// rounding up.
func (p *Pagination) fill(total int64) {
	pages := (total + p.PerPage - 1) / p.PerPage
	p.Total = &total
	p.TotalPages = &pages
}

// Page is one window of decoded entities plus its pagination state.
type Page[T any] struct {
	Data       []*T
	Pagination Pagination
}

// SearchFilter ORs a LIKE predicate across a column list. Case
// sensitivity is whatever the underlying collation provides.
type SearchFilter struct {
	Term    string
	Columns []string
}

// NewSearchFilter returns a filter matching rows where any of the given
// columns contains term.
func NewSearchFilter(term string, columns ...string) SearchFilter {
	return SearchFilter{Term: term, Columns: columns}
}

// Predicate expands the filter to Or(col LIKE %term% for each column).
func (s SearchFilter) Predicate() sql.Predicate {
	ps := make([]sql.Predicate, len(s.Columns))
	for i, col := range s.Columns {
		ps[i] = sql.Like(col, dialect.Text("%"+s.Term+"%"))
	}
	return sql.Or(ps...)
}
