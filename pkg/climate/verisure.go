package climate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/common"
	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/types"
)

// Verisure implements the Source interface for the Verisure API. It holds
// only configuration; every call runs on a fresh Session.
type Verisure struct {
	baseURL   string
	userAgent string
	timeout   time.Duration

	// newClient returns the HTTP client for a new session. It defaults to
	// common.SessionClient and is replaced in tests.
	newClient func() (*http.Client, error)
}

// NewVerisure returns a Verisure source that talks to baseURL.
func NewVerisure(baseURL string) *Verisure {
	return &Verisure{
		baseURL:   baseURL,
		userAgent: defaultVerisureUserAgent,
		timeout:   30 * time.Second,
	}
}

func (v *Verisure) sessionClient() (*http.Client, error) {
	if v.newClient != nil {
		return v.newClient()
	}
	return v.defaultClient()
}

func (v *Verisure) defaultClient() (*http.Client, error) {
	return common.SessionClient(v.timeout, v.userAgent)
}

// FetchClimate logs in, resolves the installation and fetches its climate
// readings. The session is discarded afterwards, whether or not it succeeded.
func (v *Verisure) FetchClimate(ctx context.Context, creds types.VerisureCredentials) (*types.ClimateSet, error) {
	client, err := v.sessionClient()
	if err != nil {
		return nil, types.NewError(types.KindConfig, "verisure.session", "failed to create http client", err)
	}
	s := NewSession(client, v.baseURL)
	defer s.Close()

	log.Ctx(ctx).DebugContext(ctx, "logging in to verisure", slog.String("url", v.baseURL))
	if err := s.Login(ctx, creds.Username, creds.Password); err != nil {
		return nil, err
	}

	giid, err := s.ResolveInstallationID(ctx, creds.Username)
	if err != nil {
		return nil, err
	}

	return s.FetchClimate(ctx, giid)
}
