// Package insights computes customer demographic aggregates: segment
// sizes, satisfaction and lifetime-value averages, channel splits, and the
// sales-per-customer blend of the two datasets.
package insights

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
)

// SegmentCount is the total customer count of one segment.
type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

// SegmentAverage is a per-segment mean of an optional numeric column.
type SegmentAverage struct {
	Segment string  `json:"segment"`
	Average float64 `json:"average"`
}

// ChannelSegmentCount is one (channel, segment) customer count cell.
type ChannelSegmentCount struct {
	Channel string `json:"channel"`
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

// SegmentRatio relates total filtered sales to a segment's customer base.
type SegmentRatio struct {
	Segment          string  `json:"segment"`
	Customers        int     `json:"customers"`
	SalesPerCustomer float64 `json:"sales_per_customer"`
}

// Service computes customer aggregates over a filtered view.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new insights service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "insights").Logger(),
	}
}

// SegmentCounts sums customer counts per segment, sorted descending.
func (s *Service) SegmentCounts(view domain.CustomerTable) []SegmentCount {
	bySegment := make(map[string]int)
	for _, rec := range view.Records {
		bySegment[rec.Segment] += rec.CustomerCount
	}

	counts := make([]SegmentCount, 0, len(bySegment))
	for seg, n := range bySegment {
		counts = append(counts, SegmentCount{Segment: seg, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Segment < counts[j].Segment
	})

	return counts
}

// SatisfactionBySegment averages the satisfaction score per segment.
// Returns an error when the dataset has no Satisfaction column.
func (s *Service) SatisfactionBySegment(view domain.CustomerTable) ([]SegmentAverage, error) {
	if !view.HasSatisfaction {
		return nil, fmt.Errorf("customer data has no Satisfaction column")
	}
	return averageBySegment(view, func(r domain.CustomerRecord) *float64 { return r.Satisfaction }), nil
}

// LifetimeValueBySegment averages the lifetime value per segment.
// Returns an error when the dataset has no Lifetime Value column.
func (s *Service) LifetimeValueBySegment(view domain.CustomerTable) ([]SegmentAverage, error) {
	if !view.HasLifetimeValue {
		return nil, fmt.Errorf("customer data has no Lifetime Value column")
	}
	return averageBySegment(view, func(r domain.CustomerRecord) *float64 { return r.LifetimeValue }), nil
}

func averageBySegment(view domain.CustomerTable, value func(domain.CustomerRecord) *float64) []SegmentAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range view.Records {
		v := value(rec)
		if v == nil {
			continue
		}
		sums[rec.Segment] += *v
		counts[rec.Segment]++
	}

	out := make([]SegmentAverage, 0, len(sums))
	for seg, sum := range sums {
		out = append(out, SegmentAverage{Segment: seg, Average: sum / float64(counts[seg])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })

	return out
}

// ChannelSegmentCounts sums customer counts per (channel, segment) cell.
// Returns an error when the dataset has no Channel column.
func (s *Service) ChannelSegmentCounts(view domain.CustomerTable) ([]ChannelSegmentCount, error) {
	if !view.HasChannel {
		return nil, fmt.Errorf("customer data has no Channel column")
	}

	type cell struct{ channel, segment string }
	byCell := make(map[cell]int)
	for _, rec := range view.Records {
		if rec.Channel == nil {
			continue
		}
		byCell[cell{*rec.Channel, rec.Segment}] += rec.CustomerCount
	}

	cells := make([]ChannelSegmentCount, 0, len(byCell))
	for c, n := range byCell {
		cells = append(cells, ChannelSegmentCount{Channel: c.channel, Segment: c.segment, Count: n})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Channel != cells[j].Channel {
			return cells[i].Channel < cells[j].Channel
		}
		return cells[i].Segment < cells[j].Segment
	})

	return cells, nil
}

// SalesPerCustomer divides the filtered total sales by each segment's
// customer count. Segments with zero customers are skipped rather than
// reported as infinite.
func (s *Service) SalesPerCustomer(sales domain.SalesTable, customers domain.CustomerTable) []SegmentRatio {
	var totalSales float64
	for _, rec := range sales.Records {
		totalSales += rec.Sales
	}

	counts := s.SegmentCounts(customers)

	out := make([]SegmentRatio, 0, len(counts))
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		out = append(out, SegmentRatio{
			Segment:          c.Segment,
			Customers:        c.Count,
			SalesPerCustomer: totalSales / float64(c.Count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })

	return out
}
