// Package dataset loads the sales and customer tables from flat CSV files
// and caches the result for a bounded time.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
)

// Dataset is one loaded snapshot of both tables.
type Dataset struct {
	Sales     domain.SalesTable
	Customers domain.CustomerTable
	LoadedAt  time.Time
}

// Empty returns a dataset with zero rows in both tables. Used when loading
// fails: the dashboard degrades to empty data instead of terminating.
func Empty() *Dataset {
	return &Dataset{LoadedAt: time.Now().UTC()}
}

// dateLayouts are the accepted Date column formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
}

// Loader parses the two CSV files into typed tables.
type Loader struct {
	salesPath     string
	customersPath string
	log           zerolog.Logger
}

// NewLoader creates a loader for the given file paths.
func NewLoader(salesPath, customersPath string, log zerolog.Logger) *Loader {
	return &Loader{
		salesPath:     salesPath,
		customersPath: customersPath,
		log:           log.With().Str("component", "dataset").Logger(),
	}
}

// Load reads both files. On any failure it returns a dataset with empty
// tables together with the error, so callers can report once and continue.
func (l *Loader) Load() (*Dataset, error) {
	sales, err := l.loadSales()
	if err != nil {
		return Empty(), fmt.Errorf("error loading sales data: %w", err)
	}

	customers, err := l.loadCustomers()
	if err != nil {
		return Empty(), fmt.Errorf("error loading customer data: %w", err)
	}

	ds := &Dataset{
		Sales:     sales,
		Customers: customers,
		LoadedAt:  time.Now().UTC(),
	}

	l.log.Info().
		Int("sales_rows", len(sales.Records)).
		Int("customer_rows", len(customers.Records)).
		Msg("Dataset loaded")

	return ds, nil
}

// columnIndex maps header names to their position, trimming surrounding
// whitespace. Lookups are by exact name.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func (l *Loader) loadSales() (domain.SalesTable, error) {
	var table domain.SalesTable

	f, err := os.Open(l.salesPath)
	if err != nil {
		return table, fmt.Errorf("failed to open %s: %w", l.salesPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return table, fmt.Errorf("failed to read header: %w", err)
	}
	cols := columnIndex(header)

	for _, required := range []string{"Date", "Region", "Product", "Units", "Sales"} {
		if _, ok := cols[required]; !ok {
			return table, fmt.Errorf("missing required column %q", required)
		}
	}

	customerIDCol, hasCustomerID := cols["Customer ID"]
	hourCol, hasHour := cols["Hour"]
	channelCol, hasChannel := cols["Channel"]

	table.HasCustomerID = hasCustomerID
	table.HasHour = hasHour
	table.HasChannel = hasChannel

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.SalesTable{}, fmt.Errorf("malformed row at line %d: %w", line+1, err)
		}
		line++

		date, err := parseDate(row[cols["Date"]])
		if err != nil {
			return domain.SalesTable{}, fmt.Errorf("line %d: %w", line, err)
		}

		units, err := strconv.Atoi(strings.TrimSpace(row[cols["Units"]]))
		if err != nil || units < 0 {
			return domain.SalesTable{}, fmt.Errorf("line %d: invalid Units value %q", line, row[cols["Units"]])
		}

		sales, err := strconv.ParseFloat(strings.TrimSpace(row[cols["Sales"]]), 64)
		if err != nil || sales < 0 {
			return domain.SalesTable{}, fmt.Errorf("line %d: invalid Sales value %q", line, row[cols["Sales"]])
		}

		rec := domain.SalesRecord{
			Date:    date,
			Region:  strings.TrimSpace(row[cols["Region"]]),
			Product: strings.TrimSpace(row[cols["Product"]]),
			Units:   units,
			Sales:   sales,
		}

		if hasCustomerID {
			rec.CustomerID = strings.TrimSpace(row[customerIDCol])
		}
		if hasHour {
			if v := strings.TrimSpace(row[hourCol]); v != "" {
				hour, err := strconv.Atoi(v)
				if err != nil || hour < 0 || hour > 23 {
					return domain.SalesTable{}, fmt.Errorf("line %d: invalid Hour value %q", line, v)
				}
				rec.Hour = &hour
			}
		}
		if hasChannel {
			if v := strings.TrimSpace(row[channelCol]); v != "" {
				rec.Channel = &v
			}
		}

		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func (l *Loader) loadCustomers() (domain.CustomerTable, error) {
	var table domain.CustomerTable

	f, err := os.Open(l.customersPath)
	if err != nil {
		return table, fmt.Errorf("failed to open %s: %w", l.customersPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return table, fmt.Errorf("failed to read header: %w", err)
	}
	cols := columnIndex(header)

	for _, required := range []string{"Segment", "Customer Count"} {
		if _, ok := cols[required]; !ok {
			return table, fmt.Errorf("missing required column %q", required)
		}
	}

	satisfactionCol, hasSatisfaction := cols["Satisfaction"]
	ltvCol, hasLTV := cols["Lifetime Value"]
	channelCol, hasChannel := cols["Channel"]
	latCol, hasLat := cols["Latitude"]
	lonCol, hasLon := cols["Longitude"]
	hasGeo := hasLat && hasLon

	table.HasSatisfaction = hasSatisfaction
	table.HasLifetimeValue = hasLTV
	table.HasChannel = hasChannel
	table.HasGeo = hasGeo

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.CustomerTable{}, fmt.Errorf("malformed row at line %d: %w", line+1, err)
		}
		line++

		count, err := strconv.Atoi(strings.TrimSpace(row[cols["Customer Count"]]))
		if err != nil || count < 0 {
			return domain.CustomerTable{}, fmt.Errorf("line %d: invalid Customer Count value %q", line, row[cols["Customer Count"]])
		}

		rec := domain.CustomerRecord{
			Segment:       strings.TrimSpace(row[cols["Segment"]]),
			CustomerCount: count,
		}

		if hasSatisfaction {
			if v, ok := parseOptionalFloat(row[satisfactionCol]); ok {
				rec.Satisfaction = v
			}
		}
		if hasLTV {
			if v, ok := parseOptionalFloat(row[ltvCol]); ok {
				rec.LifetimeValue = v
			}
		}
		if hasChannel {
			if v := strings.TrimSpace(row[channelCol]); v != "" {
				rec.Channel = &v
			}
		}
		if hasGeo {
			lat, okLat := parseOptionalFloat(row[latCol])
			lon, okLon := parseOptionalFloat(row[lonCol])
			if okLat && okLon {
				rec.Latitude = lat
				rec.Longitude = lon
			}
		}

		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// parseDate tries each accepted layout, normalizing to UTC midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable Date value %q", s)
}

// parseOptionalFloat returns (nil, false) for blank cells, a pointer for
// parseable values. Unparseable non-blank cells are treated as blank.
func parseOptionalFloat(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}
