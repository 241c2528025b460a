package types

import (
	"sort"
	"time"
)

// PricePoint represents the total cost of electricity for one hour.
type PricePoint struct {
	// StartsAt is the start of the hour in UTC.
	StartsAt time.Time `json:"startsAt"`

	// Total is the price per kWh including energy and tax in the home's
	// currency.
	Total float64 `json:"total"`
}

// PriceSeries is an ordered list of hourly prices starting at the current
// hour. Points are unique by StartsAt.
type PriceSeries struct {
	Points []PricePoint `json:"points"`
}

// NewPriceSeries sorts the points by StartsAt and drops any points that share
// a StartsAt with an earlier point in the input.
func NewPriceSeries(points []PricePoint) *PriceSeries {
	seen := make(map[int64]struct{}, len(points))
	unique := make([]PricePoint, 0, len(points))
	for _, p := range points {
		key := p.StartsAt.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].StartsAt.Before(unique[j].StartsAt)
	})
	return &PriceSeries{Points: unique}
}

// Len returns the number of points, treating a nil series as empty.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// BucketLevel classifies a price relative to the range of the series.
type BucketLevel string

const (
	BucketLow    BucketLevel = "low"
	BucketMedium BucketLevel = "medium"
	BucketHigh   BucketLevel = "high"
)

// PriceRow is a single price prepared for display.
type PriceRow struct {
	StartsAt time.Time `json:"startsAt"`

	// Label is the local hour, "00" through "23".
	Label string `json:"label"`

	// Display is the total scaled by 100 (e.g. öre or cents per kWh).
	Display float64     `json:"display"`
	Level   BucketLevel `json:"level"`
}
