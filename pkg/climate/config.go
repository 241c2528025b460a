package climate

import (
	"fmt"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
)

const (
	defaultVerisureAPIURL = "https://m-api01.verisure.com"
	// the API doesn't accept every client, this one is known to work
	defaultVerisureUserAgent = "curl/7.81.0"
)

// Configured sets up the Verisure climate source based on flags.
func Configured() *Verisure {
	v := &Verisure{
		baseURL:   defaultVerisureAPIURL,
		userAgent: defaultVerisureUserAgent,
		timeout:   30 * time.Second,
	}

	apiURL := lflag.String(
		"verisure-api-url",
		defaultVerisureAPIURL,
		"Base URL for the Verisure API (the provider alternates between m-api01 and m-api02)",
	)
	userAgent := lflag.String("verisure-user-agent", defaultVerisureUserAgent, "User-Agent sent to the Verisure API")
	timeout := lflag.Duration("verisure-http-timeout", 30*time.Second, "Timeout for a single request to the Verisure API")

	lflag.Do(func() {
		v.baseURL = *apiURL
		v.userAgent = *userAgent
		v.timeout = *timeout
		if err := v.Validate(); err != nil {
			panic(fmt.Sprintf("verisure validation failed: %v", err))
		}
	})

	return v
}

// Validate ensures the configuration is valid.
func (v *Verisure) Validate() error {
	if v.baseURL == "" {
		return fmt.Errorf("verisure-api-url is required")
	}
	u, err := url.Parse(v.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse verisure url (%s): %w", v.baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("verisure url must be absolute: %s", v.baseURL)
	}
	return nil
}
