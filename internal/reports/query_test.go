package reports

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/database/dbtest"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
)

type inventoryRow struct {
	name, category, condition, purchased string
	quantity, serviceLife                int
}

func seedInventory(t *testing.T, db *sqlx.DB, rows ...inventoryRow) {
	t.Helper()
	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO inventory (name, category, quantity, condition, purchase_date, service_life) VALUES (?, ?, ?, ?, ?, ?)`,
			r.name, r.category, r.quantity, r.condition, r.purchased, r.serviceLife)
		require.NoError(t, err)
	}
}

var scenarioInventory = []inventoryRow{
	{name: "Ball A", category: "Balls", quantity: 5, condition: "Good", purchased: "2021-09-01", serviceLife: 3},
	{name: "Net B", category: "Equipment", quantity: 2, condition: "Worn", purchased: "2019-03-15", serviceLife: 5},
	{name: "Ball C", category: "Balls", quantity: 7, condition: "New", purchased: "2024-02-10", serviceLife: 4},
}

func normalized(t *testing.T, cfg *ReportConfiguration) *ReportConfiguration {
	t.Helper()
	require.NoError(t, cfg.Normalize(builder.NewReportDesigner()))
	return cfg
}

func TestFetch_BallsBarScenario(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory[:2]...)
	pipeline := NewPipeline(NewSQLQueryBuilder(db, builder.NewReportDesigner()), chart.NewRenderer(chart.DefaultOptions()), "", zap.NewNop())

	cfg := normalized(t, &ReportConfiguration{
		Fields:        []string{"name", "category", "quantity"},
		Filters:       Filters{Category: strPtr("Balls")},
		Visualization: VisualizationBar,
	})
	report, err := pipeline.Render(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "category", "quantity"}, report.Headers)
	assert.Equal(t, [][]interface{}{{"Ball A", "Balls", int64(5)}}, report.Rows)
	require.NotNil(t, report.Chart)
	assert.Equal(t, []string{"Ball A"}, report.Chart.Categories)
	assert.Equal(t, chart.FallbackValueLabel, report.Chart.YLabel)
}

func TestFetch_SingleRowLineChart(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory[:2]...)
	pipeline := NewPipeline(NewSQLQueryBuilder(db, builder.NewReportDesigner()), chart.NewRenderer(chart.DefaultOptions()), "", zap.NewNop())

	cfg := normalized(t, &ReportConfiguration{
		Fields:        []string{"id", "name", "category", "quantity"},
		Filters:       Filters{Category: strPtr("Balls")},
		Visualization: VisualizationLine,
	})
	report, err := pipeline.Render(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	require.NotNil(t, report.Chart)
	assert.Equal(t, []float64{5}, report.Chart.Values)
	assert.False(t, report.Chart.Empty)

	img, err := png.DecodeConfig(bytes.NewReader(report.Chart.PNG))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Width)
}

func TestFetch_EmptyInventoryPieGivesValidImage(t *testing.T) {
	db := dbtest.Open(t)
	pipeline := NewPipeline(NewSQLQueryBuilder(db, builder.NewReportDesigner()), chart.NewRenderer(chart.DefaultOptions()), "", zap.NewNop())

	cfg := normalized(t, &ReportConfiguration{Visualization: VisualizationPie})
	report, err := pipeline.Render(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	require.NotNil(t, report.Chart)
	assert.True(t, report.Chart.Empty)

	img, err := png.DecodeConfig(bytes.NewReader(report.Chart.PNG))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Width)
	assert.Equal(t, 200, img.Height)
}

func TestFetch_UnknownFieldIsDropped(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory...)
	qb := NewSQLQueryBuilder(db, builder.NewReportDesigner())

	cfg := normalized(t, &ReportConfiguration{Fields: []string{"name", "1; DROP TABLE inventory", "quantity"}})
	report, err := qb.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "quantity"}, report.Headers)
	assert.Len(t, report.Rows, 3)
}

func TestFetch_ColumnsStayWithinSelection(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory...)
	qb := NewSQLQueryBuilder(db, builder.NewReportDesigner())

	subsets := [][]string{
		{"id"},
		{"purchase_date", "name"},
		{"service_life", "condition", "category"},
		{"id", "name", "category", "quantity", "condition", "purchase_date", "service_life"},
	}
	for _, fields := range subsets {
		cfg := normalized(t, &ReportConfiguration{Fields: fields})
		report, err := qb.Fetch(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, fields, report.Headers)
		for _, row := range report.Rows {
			assert.Len(t, row, len(fields))
		}
	}
}

func TestFetch_DatesAreRenderedAsDays(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory[0])
	qb := NewSQLQueryBuilder(db, builder.NewReportDesigner())

	report, err := qb.Fetch(context.Background(), normalized(t, &ReportConfiguration{Fields: []string{"purchase_date", "service_life"}}))
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"2021-09-01", int64(3)}}, report.Rows)
}

func TestFetch_FilteringIsMonotonic(t *testing.T) {
	db := dbtest.Open(t)
	seedInventory(t, db, scenarioInventory...)
	qb := NewSQLQueryBuilder(db, builder.NewReportDesigner())
	ctx := context.Background()

	full := Filters{
		Category:  strPtr("Balls"),
		Condition: strPtr("Good"),
		DateFrom:  strPtr("2020-01-01"),
		DateTo:    strPtr("2022-12-31"),
	}
	ids := func(f Filters) map[int64]bool {
		report, err := qb.Fetch(ctx, normalized(t, &ReportConfiguration{Fields: []string{"id"}, Filters: f}))
		require.NoError(t, err)
		out := make(map[int64]bool)
		for _, row := range report.Rows {
			out[row[0].(int64)] = true
		}
		return out
	}

	// every combination of filters, each compared with the same set minus one key
	for mask := 0; mask < 16; mask++ {
		f := Filters{}
		if mask&1 != 0 {
			f.Category = full.Category
		}
		if mask&2 != 0 {
			f.Condition = full.Condition
		}
		if mask&4 != 0 {
			f.DateFrom = full.DateFrom
		}
		if mask&8 != 0 {
			f.DateTo = full.DateTo
		}
		with := ids(f)
		for bit := 0; bit < 4; bit++ {
			if mask&(1<<bit) == 0 {
				continue
			}
			without := f
			switch bit {
			case 0:
				without.Category = nil
			case 1:
				without.Condition = nil
			case 2:
				without.DateFrom = nil
			case 3:
				without.DateTo = nil
			}
			superset := ids(without)
			for id := range with {
				assert.True(t, superset[id], "mask %d without bit %d lost row %d", mask, bit, id)
			}
		}
	}

	assert.Len(t, ids(full), 1)
	assert.Len(t, ids(Filters{}), 3)
}

func TestFetch_StorageErrorIsQueryFailure(t *testing.T) {
	db := dbtest.Open(t)
	_, err := db.Exec(`DROP TABLE inventory`)
	require.NoError(t, err)

	_, err = NewSQLQueryBuilder(db, builder.NewReportDesigner()).Fetch(context.Background(), normalized(t, &ReportConfiguration{}))
	assert.ErrorIs(t, err, ErrQuery)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, int64(3), normalizeValue(3))
	assert.Equal(t, float64(1.5), normalizeValue(float32(1.5)))
	assert.Equal(t, "abc", normalizeValue([]byte("abc")))
	assert.Nil(t, normalizeValue(nil))
}
