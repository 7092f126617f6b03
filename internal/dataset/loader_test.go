package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validCustomersCSV = "Segment,Customer Count,Satisfaction\n" +
	"Premium,10,4.5\n" +
	"Standard,50,\n"

func TestLoad_FullDataset(t *testing.T) {
	dir := t.TempDir()
	salesPath := writeFile(t, dir, "sales.csv",
		"Date,Region,Product,Units,Sales,Customer ID,Hour\n"+
			"2024-01-01,North,Widget,2,199.98,C001,9\n"+
			"2024-01-02,South,Gadget,1,49.99,C002,\n")
	customersPath := writeFile(t, dir, "customers.csv", validCustomersCSV)

	loader := NewLoader(salesPath, customersPath, zerolog.Nop())
	ds, err := loader.Load()
	require.NoError(t, err)

	require.Len(t, ds.Sales.Records, 2)
	assert.True(t, ds.Sales.HasCustomerID)
	assert.True(t, ds.Sales.HasHour)
	assert.False(t, ds.Sales.HasChannel)

	first := ds.Sales.Records[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "North", first.Region)
	assert.Equal(t, 2, first.Units)
	assert.InDelta(t, 199.98, first.Sales, 1e-9)
	require.NotNil(t, first.Hour)
	assert.Equal(t, 9, *first.Hour)
	assert.Nil(t, ds.Sales.Records[1].Hour, "blank optional cell stays nil")

	require.Len(t, ds.Customers.Records, 2)
	assert.True(t, ds.Customers.HasSatisfaction)
	assert.False(t, ds.Customers.HasChannel)
	require.NotNil(t, ds.Customers.Records[0].Satisfaction)
	assert.Nil(t, ds.Customers.Records[1].Satisfaction)

	assert.False(t, ds.LoadedAt.IsZero())
}

func TestLoad_MinimalColumns(t *testing.T) {
	dir := t.TempDir()
	salesPath := writeFile(t, dir, "sales.csv",
		"Date,Region,Product,Units,Sales\n"+
			"2024-01-01,North,Widget,1,10\n")
	customersPath := writeFile(t, dir, "customers.csv",
		"Segment,Customer Count\nPremium,10\n")

	loader := NewLoader(salesPath, customersPath, zerolog.Nop())
	ds, err := loader.Load()
	require.NoError(t, err)

	assert.False(t, ds.Sales.HasCustomerID)
	assert.False(t, ds.Sales.HasHour)
	assert.False(t, ds.Customers.HasSatisfaction)
}

func TestLoad_AlternateDateFormats(t *testing.T) {
	dir := t.TempDir()
	salesPath := writeFile(t, dir, "sales.csv",
		"Date,Region,Product,Units,Sales\n"+
			"2024-01-01 13:45:00,North,Widget,1,10\n"+
			"01/15/2024,North,Widget,1,10\n")
	customersPath := writeFile(t, dir, "customers.csv",
		"Segment,Customer Count\nPremium,10\n")

	loader := NewLoader(salesPath, customersPath, zerolog.Nop())
	ds, err := loader.Load()
	require.NoError(t, err)

	require.Len(t, ds.Sales.Records, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ds.Sales.Records[0].Date,
		"time-of-day is truncated to the calendar day")
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ds.Sales.Records[1].Date)
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	customersPath := writeFile(t, dir, "customers.csv", validCustomersCSV)

	tests := []struct {
		name     string
		salesCSV string
	}{
		{"missing required column", "Date,Region,Units,Sales\n2024-01-01,North,1,10\n"},
		{"bad date", "Date,Region,Product,Units,Sales\nyesterday,North,Widget,1,10\n"},
		{"negative units", "Date,Region,Product,Units,Sales\n2024-01-01,North,Widget,-1,10\n"},
		{"bad sales value", "Date,Region,Product,Units,Sales\n2024-01-01,North,Widget,1,lots\n"},
		{"hour out of range", "Date,Region,Product,Units,Sales,Hour\n2024-01-01,North,Widget,1,10,25\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			salesPath := writeFile(t, dir, "bad_sales.csv", tt.salesCSV)
			loader := NewLoader(salesPath, customersPath, zerolog.Nop())

			ds, err := loader.Load()
			assert.Error(t, err)
			assert.Empty(t, ds.Sales.Records, "failed loads degrade to an empty dataset")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	customersPath := writeFile(t, dir, "customers.csv", validCustomersCSV)

	loader := NewLoader(filepath.Join(dir, "nope.csv"), customersPath, zerolog.Nop())
	ds, err := loader.Load()

	assert.Error(t, err)
	require.NotNil(t, ds)
	assert.Empty(t, ds.Sales.Records)
}

func TestCache_TTL(t *testing.T) {
	cache := NewCache(time.Hour)

	_, fresh := cache.Get()
	assert.False(t, fresh, "empty cache is never fresh")

	ds := &Dataset{LoadedAt: time.Now().UTC()}
	cache.Set(ds)

	got, fresh := cache.Get()
	assert.True(t, fresh)
	assert.Same(t, ds, got)

	// An expired snapshot is still returned, just marked stale.
	stale := &Dataset{LoadedAt: time.Now().UTC().Add(-2 * time.Hour)}
	cache.Set(stale)

	got, fresh = cache.Get()
	assert.False(t, fresh)
	assert.Same(t, stale, got)
}
