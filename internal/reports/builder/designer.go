package builder

import (
	"fmt"
)

// InventorySource is the only data source reports can read from
const InventorySource = "inventory"

// DefaultFields is substituted when a configuration selects no usable field
var DefaultFields = []string{"id", "name", "category", "quantity", "condition"}

// Offered values for the enumerated inventory columns
var (
	Categories = []string{"Balls", "Equipment"}
	Conditions = []string{"New", "Good", "Worn", "Broken"}
)

// ReportDesigner holds the schemas of the data sources reports may select from.
// The registered field list is the allow-list: column names are only ever
// interpolated into SQL after being matched against it.
type ReportDesigner struct {
	dataSources map[string]*DataSourceSchema
}

// DataSourceSchema represents the schema of a data source
type DataSourceSchema struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Table       string        `json:"-"`
	OrderBy     string        `json:"-"`
	Fields      []FieldSchema `json:"fields"`
}

// FieldSchema represents a selectable column
type FieldSchema struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"` // string, integer, date
	Label      string   `json:"label"`
	EnumValues []string `json:"enum_values,omitempty"`
	Filterable bool     `json:"filterable"`
}

// NewReportDesigner creates a designer with the inventory source registered
func NewReportDesigner() *ReportDesigner {
	designer := &ReportDesigner{
		dataSources: make(map[string]*DataSourceSchema),
	}
	designer.RegisterDataSource(&DataSourceSchema{
		Name:        InventorySource,
		DisplayName: "Sports equipment",
		Table:       "inventory",
		OrderBy:     "id",
		Fields: []FieldSchema{
			{Name: "id", Type: "integer", Label: "ID"},
			{Name: "name", Type: "string", Label: "Name"},
			{Name: "category", Type: "string", Label: "Category", EnumValues: Categories, Filterable: true},
			{Name: "quantity", Type: "integer", Label: "Quantity"},
			{Name: "condition", Type: "string", Label: "Condition", EnumValues: Conditions, Filterable: true},
			{Name: "purchase_date", Type: "date", Label: "Purchase date", Filterable: true},
			{Name: "service_life", Type: "integer", Label: "Service life"},
		},
	})
	return designer
}

// RegisterDataSource adds or replaces a data source schema
func (d *ReportDesigner) RegisterDataSource(schema *DataSourceSchema) {
	d.dataSources[schema.Name] = schema
}

// GetDataSource returns a registered data source
func (d *ReportDesigner) GetDataSource(name string) (*DataSourceSchema, error) {
	ds, ok := d.dataSources[name]
	if !ok {
		return nil, fmt.Errorf("data source not found: %s", name)
	}
	return ds, nil
}

// GetFieldsForDataSource returns the selectable fields of a data source
func (d *ReportDesigner) GetFieldsForDataSource(name string) ([]FieldSchema, error) {
	ds, err := d.GetDataSource(name)
	if err != nil {
		return nil, err
	}
	return ds.Fields, nil
}

// HasField reports whether name is on the allow-list
func (s *DataSourceSchema) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Field looks up a field schema by name
func (s *DataSourceSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// SanitizeFields keeps allowed fields in their given order, dropping unknown
// names and repeats. The result may be empty.
func (s *DataSourceSchema) SanitizeFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] || !s.HasField(f) {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
