package analytics

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalanis/beacon/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	require.NoError(t, err)
	return d
}

func intPtr(v int) *int { return &v }

func TestDailySeries_GroupsAndSorts(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-02"), Sales: 30},
			{Date: day(t, "2024-01-01"), Sales: 10},
			{Date: day(t, "2024-01-02"), Sales: 20},
		},
	}

	series := svc.DailySeries(view)

	require.Len(t, series, 2)
	assert.Equal(t, day(t, "2024-01-01"), series[0].Date)
	assert.Equal(t, 10.0, series[0].Value)
	assert.Equal(t, 50.0, series[1].Value)
}

func TestMovingAverage(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-01"), Sales: 10},
			{Date: day(t, "2024-01-02"), Sales: 20},
			{Date: day(t, "2024-01-03"), Sales: 30},
			{Date: day(t, "2024-01-04"), Sales: 40},
		},
	}
	series := svc.DailySeries(view)

	overlay := svc.MovingAverage(series, 3)

	require.Len(t, overlay, 2, "first window-1 days have no average")
	assert.Equal(t, day(t, "2024-01-03"), overlay[0].Date)
	assert.InDelta(t, 20, overlay[0].Value, 1e-9)
	assert.InDelta(t, 30, overlay[1].Value, 1e-9)
}

func TestMovingAverage_ShortSeries(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{{Date: day(t, "2024-01-01"), Sales: 10}},
	}
	assert.Nil(t, svc.MovingAverage(svc.DailySeries(view), 7))
}

func TestProductTotals_SortedDescending(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-01"), Product: "Widget", Sales: 100},
			{Date: day(t, "2024-01-02"), Product: "Gadget", Sales: 300},
			{Date: day(t, "2024-01-03"), Product: "Widget", Sales: 150},
		},
	}

	totals := svc.ProductTotals(view)

	require.Len(t, totals, 2)
	assert.Equal(t, CategoryTotal{Label: "Gadget", Total: 300}, totals[0])
	assert.Equal(t, CategoryTotal{Label: "Widget", Total: 250}, totals[1])
}

func TestMonthlySales(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-02-15"), Sales: 40},
			{Date: day(t, "2024-01-10"), Sales: 10},
			{Date: day(t, "2024-01-20"), Sales: 20},
		},
	}

	monthly := svc.MonthlySales(view)

	require.Len(t, monthly, 2)
	assert.Equal(t, CategoryTotal{Label: "2024-01", Total: 30}, monthly[0])
	assert.Equal(t, CategoryTotal{Label: "2024-02", Total: 40}, monthly[1])
}

func TestRegionProductMix(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-01"), Region: "North", Product: "Widget", Sales: 10},
			{Date: day(t, "2024-01-02"), Region: "North", Product: "Widget", Sales: 15},
			{Date: day(t, "2024-01-03"), Region: "South", Product: "Gadget", Sales: 20},
		},
	}

	mix := svc.RegionProductMix(view)

	require.Len(t, mix, 2)
	assert.Equal(t, MixEntry{Region: "North", Product: "Widget", Total: 25}, mix[0])
	assert.Equal(t, MixEntry{Region: "South", Product: "Gadget", Total: 20}, mix[1])
}

func TestHourlyHeatmap(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		HasHour: true,
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-01"), Region: "North", Hour: intPtr(9), Sales: 10},
			{Date: day(t, "2024-01-02"), Region: "North", Hour: intPtr(9), Sales: 20},
			{Date: day(t, "2024-01-03"), Region: "North", Hour: intPtr(17), Sales: 5},
		},
	}

	cells, err := svc.HourlyHeatmap(view)
	require.NoError(t, err)

	require.Len(t, cells, 2)
	assert.Equal(t, HeatmapCell{Region: "North", Hour: 9, Total: 30}, cells[0])
	assert.Equal(t, HeatmapCell{Region: "North", Hour: 17, Total: 5}, cells[1])
}

func TestHourlyHeatmap_RequiresHourColumn(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.HourlyHeatmap(domain.SalesTable{})
	assert.Error(t, err)
}

func TestFindCorrelations(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// Sales is exactly 10x Units: perfect positive correlation.
	view := domain.SalesTable{
		Records: []domain.SalesRecord{
			{Date: day(t, "2024-01-01"), Units: 1, Sales: 10},
			{Date: day(t, "2024-01-02"), Units: 3, Sales: 30},
			{Date: day(t, "2024-01-03"), Units: 2, Sales: 20},
			{Date: day(t, "2024-01-04"), Units: 5, Sales: 50},
		},
	}

	correlations := svc.FindCorrelations(view, 0.7)

	require.Len(t, correlations, 1)
	assert.Equal(t, "Units", correlations[0].Column1)
	assert.Equal(t, "Sales", correlations[0].Column2)
	assert.InDelta(t, 1.0, correlations[0].R, 1e-9)
}

func TestFindCorrelations_TooFewRows(t *testing.T) {
	svc := NewService(zerolog.Nop())

	view := domain.SalesTable{
		Records: []domain.SalesRecord{{Date: day(t, "2024-01-01"), Units: 1, Sales: 10}},
	}
	assert.Nil(t, svc.FindCorrelations(view, 0.7))
}
