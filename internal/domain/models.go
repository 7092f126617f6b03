// Package domain contains the core data model shared by all Beacon modules.
// Types here are pure data: no infrastructure dependencies, no behavior
// beyond small helpers that keep invariants local to the type.
package domain

import "time"

// DateLayout is the canonical wire format for calendar dates.
const DateLayout = "2006-01-02"

// SalesRecord is one row of the sales table.
// CustomerID, Hour and Channel are optional columns; their presence is
// tracked on SalesTable so callers branch on typed flags, not field probing.
type SalesRecord struct {
	Date       time.Time `json:"date"`
	Region     string    `json:"region"`
	Product    string    `json:"product"`
	CustomerID string    `json:"customer_id,omitempty"`
	Units      int       `json:"units"`
	Sales      float64   `json:"sales"`
	Hour       *int      `json:"hour,omitempty"`
	Channel    *string   `json:"channel,omitempty"`
}

// SalesTable holds sales rows plus the optional-column schema detected at load.
type SalesTable struct {
	Records       []SalesRecord
	HasCustomerID bool
	HasHour       bool
	HasChannel    bool
}

// CustomerRecord is one row of the customer table. Customer counts are not
// time-indexed in this model, so there is no date column.
type CustomerRecord struct {
	Segment       string   `json:"segment"`
	CustomerCount int      `json:"customer_count"`
	Satisfaction  *float64 `json:"satisfaction,omitempty"`
	LifetimeValue *float64 `json:"lifetime_value,omitempty"`
	Channel       *string  `json:"channel,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// CustomerTable holds customer rows plus the optional-column schema.
type CustomerTable struct {
	Records          []CustomerRecord
	HasSatisfaction  bool
	HasLifetimeValue bool
	HasChannel       bool
	HasGeo           bool
}

// FilterSelection is the user's current filter state.
// Empty category sets mean "all included" - this is the single semantics
// used everywhere; UI code that pre-populates the full category list is
// equivalent by construction.
type FilterSelection struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Regions   []string  `json:"regions"`
	Products  []string  `json:"products"`
	Segments  []string  `json:"segments"`
}

// Valid reports whether the selection is internally consistent.
func (f FilterSelection) Valid() bool {
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return true // open-ended ranges are allowed
	}
	return !f.StartDate.After(f.EndDate)
}

// SeriesPoint is one (date, value) observation of a daily series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Day truncates a timestamp to its calendar day in UTC. All daily
// aggregation keys go through this so rows with time-of-day components
// group correctly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SavedView is a named snapshot of filter selections for later recall.
// Views live in process memory only; they are not persisted.
type SavedView struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	Filters     FilterSelection `json:"filters"`
	ActiveTab   string          `json:"active_tab"`
}
