package climate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/types"
)

const (
	verisureLoginPath   = "auth/login"
	verisureGraphQLPath = "graphql"
)

const accountInstallationsQuery = `query AccountInstallations($email: String!) {
  account(email: $email) {
    owainstallations {
      giid
      alias
      type
      subsidiary
      dealerId
      installationOwner
      subtype
      __typename
    }
    __typename
  }
}
`

const climateQuery = `query Climate($giid: String!) {
  installation(giid: $giid) {
    climates {
      device {
        deviceLabel
        area
        __typename
      }
      humidityEnabled
      humidityTimestamp
      humidityValue
      temperatureTimestamp
      temperatureValue
      __typename
    }
    __typename
  }
}
`

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateInstallationResolved
	stateClimateFetched
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	case stateInstallationResolved:
		return "installation_resolved"
	case stateClimateFetched:
		return "climate_fetched"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("sessionState(%d)", int(s))
	}
}

// Session is one authenticated conversation with the Verisure API. The
// client's cookie jar carries the login cookies to the GraphQL calls, so a
// Session must only be used for a single cycle and by a single goroutine.
type Session struct {
	client  *http.Client
	baseURL string

	state sessionState
	giid  types.InstallationID
}

// NewSession returns an unauthenticated session. The client should have its
// own cookie jar (see common.SessionClient).
func NewSession(client *http.Client, baseURL string) *Session {
	return &Session{
		client:  client,
		baseURL: baseURL,
	}
}

// Close drops the cookies and idle connections of the session. Any further
// call fails.
func (s *Session) Close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	s.giid = ""
	s.client.Jar = nil
	s.client.CloseIdleConnections()
}

type loginResponse struct {
	AccessToken               string `json:"accessToken"`
	AccessTokenMaxAgeSeconds  int    `json:"accessTokenMaxAgeSeconds"`
	RefreshToken              string `json:"refreshToken"`
	RefreshTokenMaxAgeSeconds int    `json:"refreshTokenMaxAgeSeconds"`
}

// Login exchanges the account credentials for session cookies. The tokens in
// the response are checked but not kept; the cookies are what authenticate
// the following calls.
func (s *Session) Login(ctx context.Context, username string, password types.SecretString) error {
	const op = "verisure.login"

	if s.state != stateUnauthenticated {
		return s.fail(types.NewError(types.KindAuth, op, "session is "+s.state.String(), nil))
	}
	if username == "" || password.Unmask() == "" {
		return s.fail(types.NewError(types.KindAuth, op, "missing username or password", nil))
	}

	req, err := s.newRequest(ctx, verisureLoginPath, nil)
	if err != nil {
		return s.fail(err)
	}
	req.SetBasicAuth(username, password.Unmask())

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(types.NewError(types.KindNetwork, op, "login request failed", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.fail(types.NewError(types.KindNetwork, op, "failed to read login response", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"verisure login failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(body, 512)),
		)
		return s.fail(types.NewError(
			types.KindAuth,
			op,
			fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(body, 512)),
			nil,
		))
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return s.fail(types.NewError(types.KindAuth, op, "malformed login response", err))
	}
	if lr.AccessToken == "" || lr.RefreshToken == "" {
		return s.fail(types.NewError(types.KindAuth, op, "login response is missing tokens", nil))
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"verisure login success",
		slog.String("username", username),
		slog.Int("accessTokenMaxAgeSeconds", lr.AccessTokenMaxAgeSeconds),
	)
	s.state = stateAuthenticated
	return nil
}

type owaInstallation struct {
	GIID              string  `json:"giid"`
	Alias             string  `json:"alias"`
	Type              string  `json:"type"`
	Subsidiary        *string `json:"subsidiary"`
	DealerID          *string `json:"dealerId"`
	InstallationOwner *string `json:"installationOwner"`
	Subtype           *string `json:"subtype"`
}

type accountInstallationsData struct {
	Account *struct {
		OWAInstallations []owaInstallation `json:"owainstallations"`
	} `json:"account"`
}

// ResolveInstallationID looks up the installation for the account email. The
// first installation is used.
func (s *Session) ResolveInstallationID(ctx context.Context, email string) (types.InstallationID, error) {
	const op = "verisure.resolveInstallationID"

	if s.state != stateAuthenticated {
		return "", s.fail(types.NewError(types.KindAuth, op, "session is "+s.state.String(), nil))
	}

	var data accountInstallationsData
	err := s.query(ctx, op, graphQLOperation{
		OperationName: "AccountInstallations",
		Variables:     map[string]string{"email": email},
		Query:         accountInstallationsQuery,
	}, &data)
	if err != nil {
		return "", s.fail(err)
	}
	if data.Account == nil {
		return "", s.fail(types.NewError(types.KindDecode, op, "response has no account", nil))
	}
	if len(data.Account.OWAInstallations) == 0 {
		return "", s.fail(types.NewError(types.KindNotFound, op, "no installation found for account", nil))
	}

	inst := data.Account.OWAInstallations[0]
	if inst.GIID == "" {
		return "", s.fail(types.NewError(types.KindDecode, op, "installation has no giid", nil))
	}
	if len(data.Account.OWAInstallations) > 1 {
		log.Ctx(ctx).WarnContext(
			ctx,
			"account has multiple installations, using the first",
			slog.Int("count", len(data.Account.OWAInstallations)),
			slog.String("giid", inst.GIID),
		)
	}
	log.Ctx(ctx).DebugContext(ctx, "resolved verisure installation", slog.String("giid", inst.GIID), slog.String("alias", inst.Alias))

	s.giid = types.InstallationID(inst.GIID)
	s.state = stateInstallationResolved
	return s.giid, nil
}

type climateData struct {
	Installation *struct {
		Climates []struct {
			Device *struct {
				DeviceLabel string `json:"deviceLabel"`
				Area        string `json:"area"`
			} `json:"device"`
			HumidityEnabled  *bool    `json:"humidityEnabled"`
			HumidityValue    *float64 `json:"humidityValue"`
			TemperatureValue *float64 `json:"temperatureValue"`
		} `json:"climates"`
	} `json:"installation"`
}

// FetchClimate returns the latest temperature of every climate sensor in the
// installation. Sensors without a temperature are left out. giid must be the
// value returned by ResolveInstallationID.
func (s *Session) FetchClimate(ctx context.Context, giid types.InstallationID) (*types.ClimateSet, error) {
	const op = "verisure.fetchClimate"

	switch {
	case s.state == stateAuthenticated:
		return nil, s.fail(types.NewError(types.KindNotFound, op, "installation is not resolved", nil))
	case s.state != stateInstallationResolved:
		return nil, s.fail(types.NewError(types.KindAuth, op, "session is "+s.state.String(), nil))
	case giid == "" || giid != s.giid:
		return nil, s.fail(types.NewError(types.KindNotFound, op, "installation id does not match the session", nil))
	}

	var data climateData
	err := s.query(ctx, op, graphQLOperation{
		OperationName: "Climate",
		Variables:     map[string]string{"giid": string(giid)},
		Query:         climateQuery,
	}, &data)
	if err != nil {
		return nil, s.fail(err)
	}
	if data.Installation == nil {
		return nil, s.fail(types.NewError(types.KindDecode, op, "response has no installation", nil))
	}

	set := types.NewClimateSet()
	for _, c := range data.Installation.Climates {
		if c.Device == nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping climate record without device")
			continue
		}
		if c.TemperatureValue == nil {
			log.Ctx(ctx).DebugContext(ctx, "skipping climate record without temperature", slog.String("area", c.Device.Area))
			continue
		}
		set.Set(c.Device.Area, *c.TemperatureValue)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched verisure climate",
		slog.Int("records", len(data.Installation.Climates)),
		slog.Int("areas", set.Len()),
	)

	s.state = stateClimateFetched
	return set, nil
}

type graphQLOperation struct {
	OperationName string            `json:"operationName"`
	Variables     map[string]string `json:"variables"`
	Query         string            `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts a single operation as a batch and decodes the data member of
// the response into dest. The API answers a batch of one either with an
// array or with a bare object, so both are accepted.
func (s *Session) query(ctx context.Context, op string, operation graphQLOperation, dest interface{}) error {
	body, err := json.Marshal([]graphQLOperation{operation})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", operation.OperationName, err)
	}
	req, err := s.newRequest(ctx, verisureGraphQLPath, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return types.NewError(types.KindNetwork, op, "graphql request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewError(types.KindNetwork, op, "failed to read graphql response", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return types.NewError(types.KindAuth, op, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(raw, 512)), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.Ctx(ctx).ErrorContext(ctx, "verisure api error", slog.Int("status", resp.StatusCode), slog.String("body", truncate(raw, 512)))
		return types.NewError(types.KindNetwork, op, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var gr graphQLResponse
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []graphQLResponse
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return types.NewError(types.KindDecode, op, "failed to decode graphql response", err)
		}
		if len(batch) == 0 {
			return types.NewError(types.KindDecode, op, "empty graphql batch response", nil)
		}
		gr = batch[0]
	} else if err := json.Unmarshal(trimmed, &gr); err != nil {
		return types.NewError(types.KindDecode, op, "failed to decode graphql response", err)
	}

	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		if len(gr.Errors) > 0 {
			return types.NewError(types.KindDecode, op, "graphql error: "+gr.Errors[0].Message, nil)
		}
		return types.NewError(types.KindDecode, op, "graphql response has no data", nil)
	}
	if err := json.Unmarshal(gr.Data, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode verisure data", slog.Any("error", err), slog.String("body", truncate(raw, 512)))
		return types.NewError(types.KindDecode, op, "unexpected graphql data", err)
	}
	return nil
}

func (s *Session) newRequest(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, types.NewError(types.KindConfig, "verisure", "invalid api url", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u.JoinPath(endpoint).String(), bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.KindConfig, "verisure", "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// fail closes the session so none of the remaining steps can run.
func (s *Session) fail(err error) error {
	s.Close()
	return err
}

func truncate(b []byte, n int) string {
	str := strings.TrimSpace(string(b))
	if len(str) > n {
		return str[:n] + "..."
	}
	return str
}
