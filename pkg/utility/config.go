package utility

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/common"
	"github.com/levenlabs/go-lflag"
)

const defaultTibberAPIURL = "https://api.tibber.com/v1-beta/gql"

// Configured sets up the Tibber price provider based on flags.
func Configured() *Tibber {
	t := newTibber(defaultTibberAPIURL, common.HTTPClient(30*time.Second))

	apiURL := lflag.String("tibber-api-url", defaultTibberAPIURL, "URL for the Tibber GraphQL API")
	timeout := lflag.Duration("tibber-http-timeout", 30*time.Second, "Timeout for a single request to the Tibber API")

	lflag.Do(func() {
		t.apiURL = *apiURL
		t.client = common.HTTPClient(*timeout)
		if err := t.Validate(); err != nil {
			panic(fmt.Sprintf("tibber validation failed: %v", err))
		}
	})

	return t
}

// Validate ensures the configuration is valid.
func (t *Tibber) Validate() error {
	if t.apiURL == "" {
		return fmt.Errorf("tibber-api-url is required")
	}
	if _, err := url.Parse(t.apiURL); err != nil {
		return fmt.Errorf("failed to parse tibber url (%s): %w", t.apiURL, err)
	}
	return nil
}
