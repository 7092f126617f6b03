package filtering

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mgalanis/beacon/internal/domain"
)

// SelectionFromQuery parses a filter selection from request query
// parameters: start and end as YYYY-MM-DD, regions/products/segments as
// comma-separated lists. Absent parameters leave their dimension open.
func SelectionFromQuery(q url.Values) (domain.FilterSelection, error) {
	var sel domain.FilterSelection
	var err error

	if sel.StartDate, err = parseQueryDate(q.Get("start")); err != nil {
		return sel, fmt.Errorf("invalid start date: %w", err)
	}
	if sel.EndDate, err = parseQueryDate(q.Get("end")); err != nil {
		return sel, fmt.Errorf("invalid end date: %w", err)
	}

	sel.Regions = splitList(q.Get("regions"))
	sel.Products = splitList(q.Get("products"))
	sel.Segments = splitList(q.Get("segments"))

	if !sel.Valid() {
		return sel, fmt.Errorf("start date %s is after end date %s",
			sel.StartDate.Format(domain.DateLayout), sel.EndDate.Format(domain.DateLayout))
	}

	return sel, nil
}

func parseQueryDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", raw)
	}
	return domain.Day(t), nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
