package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
)

// QueryBuilder reads the rows a configuration selects
type QueryBuilder interface {
	Fetch(ctx context.Context, cfg *ReportConfiguration) (*RenderedReport, error)
}

// SQLQueryBuilder runs builder queries against the shared database
type SQLQueryBuilder struct {
	db       *sqlx.DB
	designer *builder.ReportDesigner
}

// NewSQLQueryBuilder creates a query builder
func NewSQLQueryBuilder(db *sqlx.DB, designer *builder.ReportDesigner) *SQLQueryBuilder {
	return &SQLQueryBuilder{db: db, designer: designer}
}

// Fetch returns headers and rows in primary-key order. The returned report
// has no chart.
func (q *SQLQueryBuilder) Fetch(ctx context.Context, cfg *ReportConfiguration) (*RenderedReport, error) {
	query, err := q.designer.BuildQuery(builder.InventorySource, cfg.Fields, cfg.Filters)
	if err != nil {
		return nil, newStageError(StageConfiguration, err)
	}

	rows, err := q.db.QueryxContext(ctx, q.db.Rebind(query.SQL), query.Args...)
	if err != nil {
		return nil, newStageError(StageQuery, fmt.Errorf("failed to query inventory: %w", err))
	}
	defer rows.Close()

	report := &RenderedReport{
		Headers: query.Columns,
		Rows:    [][]interface{}{},
	}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, newStageError(StageQuery, fmt.Errorf("failed to scan inventory row: %w", err))
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		report.Rows = append(report.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, newStageError(StageQuery, fmt.Errorf("failed to read inventory rows: %w", err))
	}

	return report, nil
}

// normalizeValue maps driver values onto int64, float64, string or nil.
// Dates are rendered YYYY-MM-DD.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case int64, float64, string:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(builder.DateLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}
