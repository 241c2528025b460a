package types

import "time"

// Snapshot is the outcome of one polling cycle. A nil Prices or Climate means
// that source produced no data this cycle; the matching error says why, and is
// nil when the source simply isn't set up on the account.
type Snapshot struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration

	Prices    *PriceSeries
	PriceRows []PriceRow
	PriceErr  error

	Climate    *ClimateSet
	ClimateErr error
}
