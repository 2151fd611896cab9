package builder

import (
	"fmt"
	"strings"
)

// Filters are the optional constraints of a report. A nil or empty value
// means no constraint. Dates use the YYYY-MM-DD layout.
type Filters struct {
	Category  *string `json:"category"`
	Condition *string `json:"condition"`
	DateFrom  *string `json:"date_from"`
	DateTo    *string `json:"date_to"`
}

// Query is a read-only statement with bound arguments. Placeholders are
// written as "?" and must be rebound for the target driver.
type Query struct {
	SQL     string
	Args    []interface{}
	Columns []string
}

// BuildQuery builds the SELECT for the given fields and filters. Unknown
// fields are dropped; when none remain the default field set is used.
func (d *ReportDesigner) BuildQuery(source string, fields []string, filters Filters) (*Query, error) {
	ds, err := d.GetDataSource(source)
	if err != nil {
		return nil, err
	}

	columns := ds.SanitizeFields(fields)
	if len(columns) == 0 {
		columns = ds.SanitizeFields(DefaultFields)
	}

	var conditions []string
	var args []interface{}

	addCondition := func(expr string, value *string) {
		if value == nil || *value == "" {
			return
		}
		conditions = append(conditions, expr)
		args = append(args, *value)
	}
	addCondition("category = ?", filters.Category)
	addCondition("condition = ?", filters.Condition)
	addCondition("purchase_date >= ?", filters.DateFrom)
	addCondition("purchase_date <= ?", filters.DateTo)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(columns, ", "), ds.Table)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	if ds.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(ds.OrderBy)
	}

	return &Query{
		SQL:     sb.String(),
		Args:    args,
		Columns: columns,
	}, nil
}
