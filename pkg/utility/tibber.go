package utility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/types"
)

const tibberPriceQuery = `{
  viewer {
    homes {
      currentSubscription {
        priceInfo {
          today { total energy tax startsAt currency level }
          tomorrow { total energy tax startsAt currency level }
        }
      }
    }
  }
}`

// Tibber implements the Provider interface for the Tibber GraphQL API.
type Tibber struct {
	apiURL string
	client *http.Client
	now    func() time.Time
}

func newTibber(apiURL string, client *http.Client) *Tibber {
	return &Tibber{
		apiURL: apiURL,
		client: client,
		now:    time.Now,
	}
}

type tibberRequest struct {
	Query string `json:"query"`
}

type tibberResponse struct {
	Data   *tibberData    `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type tibberData struct {
	Viewer struct {
		Homes []*tibberHome `json:"homes"`
	} `json:"viewer"`
}

type tibberHome struct {
	CurrentSubscription *struct {
		PriceInfo *struct {
			Today    []*tibberPrice `json:"today"`
			Tomorrow []*tibberPrice `json:"tomorrow"`
		} `json:"priceInfo"`
	} `json:"currentSubscription"`
}

// tibberPrice mirrors the API's price object. Only StartsAt and Total are
// used; both are optional in the schema.
type tibberPrice struct {
	Total    *float64 `json:"total"`
	Energy   *float64 `json:"energy"`
	Tax      *float64 `json:"tax"`
	StartsAt *string  `json:"startsAt"`
	Currency string   `json:"currency"`
	Level    *string  `json:"level"`
}

// FetchPrices retrieves today's and tomorrow's prices for every home on the
// account and returns the ones starting at or after the current hour.
func (t *Tibber) FetchPrices(ctx context.Context, token types.SecretString) (*types.PriceSeries, error) {
	const op = "tibber.fetchPrices"

	if token.Unmask() == "" {
		return nil, types.NewError(types.KindAuth, op, "missing api token", nil)
	}

	body, err := json.Marshal(tibberRequest{Query: tibberPriceQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tibber query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", t.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Unmask())

	log.Ctx(ctx).DebugContext(ctx, "fetching prices from tibber", slog.String("url", t.apiURL))
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.KindNetwork, op, "failed to fetch prices", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.KindNetwork, op, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, types.NewError(types.KindAuth, op, fmt.Sprintf("tibber api returned status: %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.Ctx(ctx).WarnContext(ctx, "tibber api error", slog.Int("status", resp.StatusCode), slog.String("body", truncate(raw, 512)))
		return nil, types.NewError(types.KindNetwork, op, fmt.Sprintf("tibber api returned status: %d", resp.StatusCode), nil)
	}

	var data tibberResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode tibber response", slog.Any("error", err))
		return nil, types.NewError(types.KindDecode, op, "failed to decode response", err)
	}
	for _, e := range data.Errors {
		if e.Extensions.Code == "UNAUTHENTICATED" {
			return nil, types.NewError(types.KindAuth, op, e.Message, nil)
		}
	}
	if data.Data == nil {
		if len(data.Errors) > 0 {
			return nil, types.NewError(types.KindDecode, op, "tibber api error: "+data.Errors[0].Message, nil)
		}
		return nil, types.NewError(types.KindDecode, op, "response has no data", nil)
	}

	start := t.now().UTC().Truncate(time.Hour)
	var (
		points     []types.PricePoint
		configured bool
		skipped    int
	)
	for _, home := range data.Data.Viewer.Homes {
		if home == nil || home.CurrentSubscription == nil || home.CurrentSubscription.PriceInfo == nil {
			continue
		}
		configured = true
		info := home.CurrentSubscription.PriceInfo
		for _, p := range append(info.Today, info.Tomorrow...) {
			point, ok := p.toPoint()
			if !ok {
				skipped++
				continue
			}
			if point.StartsAt.Before(start) {
				continue
			}
			points = append(points, point)
		}
	}
	if !configured {
		log.Ctx(ctx).InfoContext(ctx, "no tibber home with a price subscription")
		return nil, nil
	}

	series := types.NewPriceSeries(points)
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched tibber prices",
		slog.Time("start", start),
		slog.Int("count", series.Len()),
		slog.Int("skipped", skipped),
	)
	return series, nil
}

func (p *tibberPrice) toPoint() (types.PricePoint, bool) {
	if p == nil || p.Total == nil || p.StartsAt == nil {
		return types.PricePoint{}, false
	}
	ts, err := time.Parse(time.RFC3339, *p.StartsAt)
	if err != nil {
		return types.PricePoint{}, false
	}
	return types.PricePoint{StartsAt: ts.UTC(), Total: *p.Total}, true
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
