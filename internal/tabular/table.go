// Package tabular exposes query results to table views through one
// parametrized model: a header list, a row source and a page cursor.
package tabular

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPageSize is used when a table is created with a non-positive size
const DefaultPageSize = 100

// ErrNoPage is returned when the cursor is moved past either end
var ErrNoPage = errors.New("no such page")

// Model is the read side of a table view
type Model interface {
	Headers() []string
	RowCount() int
	Row(i int) []interface{}
}

// RowSource loads at most limit rows starting at offset and reports the
// total number of rows available.
type RowSource func(ctx context.Context, offset, limit int) (rows [][]interface{}, total int, err error)

// Page is one loaded window of rows
type Page struct {
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
	Number  int             `json:"page"`
	Size    int             `json:"page_size"`
	Total   int             `json:"total"`
}

// Pages is the number of pages needed for Total rows, at least one
func (p *Page) Pages() int {
	return pageCount(p.Total, p.Size)
}

// Table is a paged Model over a RowSource. Page numbers start at 1.
type Table struct {
	headers []string
	source  RowSource
	size    int
	current *Page
}

// NewTable creates a table; call Load before reading rows
func NewTable(headers []string, source RowSource, pageSize int) *Table {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Table{
		headers: headers,
		source:  source,
		size:    pageSize,
	}
}

// Load fetches page n
func (t *Table) Load(ctx context.Context, n int) (*Page, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrNoPage, n)
	}
	rows, total, err := t.source(ctx, (n-1)*t.size, t.size)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d: %w", n, err)
	}
	if n > 1 && n > pageCount(total, t.size) {
		return nil, fmt.Errorf("%w: %d", ErrNoPage, n)
	}
	t.current = &Page{
		Headers: t.headers,
		Rows:    rows,
		Number:  n,
		Size:    t.size,
		Total:   total,
	}
	return t.current, nil
}

// Next loads the page after the current one
func (t *Table) Next(ctx context.Context) (*Page, error) {
	if t.current == nil {
		return t.Load(ctx, 1)
	}
	if t.current.Number >= t.Pages() {
		return nil, ErrNoPage
	}
	return t.Load(ctx, t.current.Number+1)
}

// Prev loads the page before the current one
func (t *Table) Prev(ctx context.Context) (*Page, error) {
	if t.current == nil || t.current.Number <= 1 {
		return nil, ErrNoPage
	}
	return t.Load(ctx, t.current.Number-1)
}

// Page returns the current page number, 0 before the first Load
func (t *Table) Page() int {
	if t.current == nil {
		return 0
	}
	return t.current.Number
}

// Pages returns the page count as of the last Load
func (t *Table) Pages() int {
	if t.current == nil {
		return 0
	}
	return t.current.Pages()
}

func (t *Table) Headers() []string { return t.headers }

// RowCount is the number of rows on the current page
func (t *Table) RowCount() int {
	if t.current == nil {
		return 0
	}
	return len(t.current.Rows)
}

func (t *Table) Row(i int) []interface{} {
	return t.current.Rows[i]
}

// Static adapts an in-memory result set
func Static(headers []string, rows [][]interface{}) Model {
	return &staticModel{headers: headers, rows: rows}
}

type staticModel struct {
	headers []string
	rows    [][]interface{}
}

func (m *staticModel) Headers() []string       { return m.headers }
func (m *staticModel) RowCount() int           { return len(m.rows) }
func (m *staticModel) Row(i int) []interface{} { return m.rows[i] }

// SliceSource serves rows from memory
func SliceSource(rows [][]interface{}) RowSource {
	return func(_ context.Context, offset, limit int) ([][]interface{}, int, error) {
		total := len(rows)
		if offset >= total {
			return [][]interface{}{}, total, nil
		}
		end := offset + limit
		if end > total {
			end = total
		}
		return rows[offset:end], total, nil
	}
}

// Rows copies every row of a model
func Rows(m Model) [][]interface{} {
	out := make([][]interface{}, m.RowCount())
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
