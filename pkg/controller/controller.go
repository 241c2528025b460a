package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bwestlin/pi-home-info/pkg/climate"
	"github.com/bwestlin/pi-home-info/pkg/config"
	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/types"
	"github.com/bwestlin/pi-home-info/pkg/utility"
)

// Controller runs one polling cycle against both data sources.
type Controller struct {
	prices  utility.Provider
	climate climate.Source
	loc     *time.Location
	timeout time.Duration

	now func() time.Time
}

// NewController creates a new Controller. loc is the zone used for the hour
// labels and defaults to the local zone. A zero timeout leaves the cycle
// bounded only by ctx.
func NewController(prices utility.Provider, source climate.Source, loc *time.Location, timeout time.Duration) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		prices:  prices,
		climate: source,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
	}
}

// RunCycle fetches prices and temperatures concurrently and returns whatever
// it got. A failure in one source never affects the other and is recorded in
// the snapshot rather than returned.
func (c *Controller) RunCycle(ctx context.Context, creds types.Credentials) types.Snapshot {
	snap := types.Snapshot{
		CycleID:   uuid.NewString(),
		StartedAt: c.now().UTC(),
	}
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("cycleID", snap.CycleID)))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log.Ctx(ctx).DebugContext(ctx, "cycle started")

	// neither pipeline returns an error so one failing never cancels the other
	var eg errgroup.Group
	eg.Go(func() error {
		snap.Prices, snap.PriceErr = c.fetchPrices(ctx, creds.Tibber)
		if snap.PriceErr == nil {
			snap.PriceRows = utility.Bucket(snap.Prices, c.loc)
		}
		return nil
	})
	eg.Go(func() error {
		snap.Climate, snap.ClimateErr = c.fetchClimate(ctx, creds.Verisure)
		return nil
	})
	_ = eg.Wait()

	snap.Duration = c.now().UTC().Sub(snap.StartedAt)
	log.Ctx(ctx).InfoContext(
		ctx,
		"cycle finished",
		slog.Int("prices", snap.Prices.Len()),
		slog.Int("temperatures", snap.Climate.Len()),
		slog.Duration("duration", snap.Duration),
	)
	return snap
}

func (c *Controller) fetchPrices(ctx context.Context, creds types.TibberCredentials) (*types.PriceSeries, error) {
	if err := config.CheckTibber(creds); err != nil {
		logFailure(ctx, "prices", err)
		return nil, err
	}
	series, err := c.prices.FetchPrices(ctx, creds.Token)
	if err != nil {
		logFailure(ctx, "prices", err)
		return nil, err
	}
	if series == nil {
		log.Ctx(ctx).DebugContext(ctx, "no price subscription on account")
	}
	return series, nil
}

func (c *Controller) fetchClimate(ctx context.Context, creds types.VerisureCredentials) (*types.ClimateSet, error) {
	if err := config.CheckVerisure(creds); err != nil {
		logFailure(ctx, "climate", err)
		return nil, err
	}
	set, err := c.climate.FetchClimate(ctx, creds)
	if err != nil {
		logFailure(ctx, "climate", err)
		return nil, err
	}
	return set, nil
}

func logFailure(ctx context.Context, source string, err error) {
	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindNetwork
	}
	log.Ctx(ctx).WarnContext(
		ctx,
		"source failed",
		slog.String("source", source),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	)
}
