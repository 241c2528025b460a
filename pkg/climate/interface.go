package climate

import (
	"context"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

// Source defines the interface for fetching indoor/outdoor temperatures.
type Source interface {
	// FetchClimate authenticates, finds the account's installation and returns
	// its temperatures. Nothing is kept between calls.
	FetchClimate(ctx context.Context, creds types.VerisureCredentials) (*types.ClimateSet, error)
}
