package utility

import (
	"context"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

// Provider defines the interface for fetching energy prices.
type Provider interface {
	// FetchPrices returns the hourly prices from the start of the current hour
	// through the end of tomorrow, when published. A nil series with a nil
	// error means the account has no home with a price subscription.
	FetchPrices(ctx context.Context, token types.SecretString) (*types.PriceSeries, error)
}
