package utility

import (
	"math"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

// PriceCeiling caps the upper end of the range used for bucketing so a single
// spike doesn't push every other hour into the low bucket.
const PriceCeiling = 1.5

// Bucket splits the range between the cheapest price and the capped most
// expensive price into thirds and classifies each point. Prices on a boundary
// go to the lower bucket. Labels are the hour of StartsAt in loc, or in the
// local time zone when loc is nil.
func Bucket(series *types.PriceSeries, loc *time.Location) []types.PriceRow {
	if series.Len() == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, p := range series.Points {
		lo = math.Min(lo, p.Total)
		hi = math.Max(hi, p.Total)
	}
	hi = math.Min(hi, PriceCeiling)
	third := (hi - lo) / 3

	rows := make([]types.PriceRow, 0, len(series.Points))
	for _, p := range series.Points {
		level := types.BucketHigh
		switch {
		case p.Total <= lo+third:
			level = types.BucketLow
		case p.Total <= lo+2*third:
			level = types.BucketMedium
		}
		rows = append(rows, types.PriceRow{
			StartsAt: p.StartsAt,
			Label:    p.StartsAt.In(loc).Format("15"),
			Display:  p.Total * 100,
			Level:    level,
		})
	}
	return rows
}
