package climate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwestlin/pi-home-info/pkg/common"
	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// fakeVerisure mimics the three endpoints used by a session. Zero values
// give a working account with one installation "ABC123".
type fakeVerisure struct {
	loginStatus   int
	loginBody     string
	installations string
	climates      string
	batchResponse bool

	logins  atomic.Int32
	queries atomic.Int32
}

func (f *fakeVerisure) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		switch r.URL.Path {
		case "/auth/login":
			f.logins.Add(1)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok, "login should use basic auth")
			if f.loginStatus != 0 {
				w.WriteHeader(f.loginStatus)
				_, _ = w.Write([]byte(f.loginBody))
				return
			}
			if user != "user@example.com" || pass != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"errorCode":"AUT_00001","errorMessage":"Invalid credentials"}`))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "vid", Value: "cookie-" + user, Path: "/"})
			body := f.loginBody
			if body == "" {
				body = `{"accessToken":"at","accessTokenMaxAgeSeconds":900,"refreshToken":"rt","refreshTokenMaxAgeSeconds":86400}`
			}
			_, _ = w.Write([]byte(body))
		case "/graphql":
			f.queries.Add(1)
			if c, err := r.Cookie("vid"); err != nil || c.Value != "cookie-user@example.com" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var ops []graphQLOperation
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&ops)) || !assert.Len(t, ops, 1) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			var data string
			switch ops[0].OperationName {
			case "AccountInstallations":
				assert.Equal(t, "user@example.com", ops[0].Variables["email"])
				data = f.installations
				if data == "" {
					data = `{"account":{"owainstallations":[{"giid":"ABC123","alias":"Home","type":"ALARM","subsidiary":null,"dealerId":"1"}]}}`
				}
			case "Climate":
				assert.Equal(t, "ABC123", ops[0].Variables["giid"])
				data = f.climates
				if data == "" {
					data = `{"installation":{"climates":[
						{"device":{"deviceLabel":"A1","area":"Kitchen"},"temperatureValue":21.5,"humidityValue":40},
						{"device":{"deviceLabel":"B2","area":"Garage"},"temperatureValue":null}
					]}}`
				}
			default:
				t.Errorf("unexpected operation %s", ops[0].OperationName)
			}
			resp := `{"data":` + data + `}`
			if f.batchResponse {
				resp = "[" + resp + "]"
			}
			_, _ = w.Write([]byte(resp))
		default:
			http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
		}
	})
}

func newTestSession(t *testing.T, ts *httptest.Server) *Session {
	client, err := common.SessionClient(5*time.Second, "curl/7.81.0")
	require.NoError(t, err)
	return NewSession(client, ts.URL)
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Full Flow", func(t *testing.T) {
		f := &fakeVerisure{}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))

		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, types.InstallationID("ABC123"), giid)

		set, err := s.FetchClimate(ctx, giid)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"Kitchen": 21.5}, set.Map())

		_, ok := set.Get("Garage")
		assert.False(t, ok, "null temperature must not be stored as zero")
	})

	t.Run("Batch Response", func(t *testing.T) {
		f := &fakeVerisure{batchResponse: true}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, types.InstallationID("ABC123"), giid)
	})

	t.Run("Login Rejected", func(t *testing.T) {
		f := &fakeVerisure{}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		err := s.Login(ctx, "user@example.com", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrAuth)
		assert.Contains(t, err.Error(), "Invalid credentials", "body should be reported")

		_, err = s.ResolveInstallationID(ctx, "user@example.com")
		assert.ErrorIs(t, err, types.ErrAuth)
		assert.Equal(t, int32(0), f.queries.Load(), "no further steps after a failed login")
	})

	t.Run("Login Missing Tokens", func(t *testing.T) {
		f := &fakeVerisure{loginBody: `{"accessToken":"at","accessTokenMaxAgeSeconds":900}`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		err := newTestSession(t, ts).Login(ctx, "user@example.com", "hunter2")
		assert.ErrorIs(t, err, types.ErrAuth)
	})

	t.Run("Login Malformed Body", func(t *testing.T) {
		f := &fakeVerisure{loginBody: `<html>`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		err := newTestSession(t, ts).Login(ctx, "user@example.com", "hunter2")
		assert.ErrorIs(t, err, types.ErrAuth)
	})

	t.Run("Login Server Error", func(t *testing.T) {
		f := &fakeVerisure{loginStatus: http.StatusServiceUnavailable, loginBody: "maintenance"}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		err := newTestSession(t, ts).Login(ctx, "user@example.com", "hunter2")
		assert.ErrorIs(t, err, types.ErrAuth)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "maintenance")
	})

	t.Run("No Installations", func(t *testing.T) {
		f := &fakeVerisure{installations: `{"account":{"owainstallations":[]}}`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))

		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Empty(t, giid)
	})

	t.Run("Installations Schema Mismatch", func(t *testing.T) {
		f := &fakeVerisure{installations: `{"account":{"owainstallations":"nope"}}`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))

		_, err := s.ResolveInstallationID(ctx, "user@example.com")
		assert.ErrorIs(t, err, types.ErrDecode)
	})

	t.Run("GraphQL Errors", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/login" {
				_, _ = w.Write([]byte(`{"accessToken":"at","refreshToken":"rt"}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Not authorized"}]}`))
		}))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))

		_, err := s.ResolveInstallationID(ctx, "user@example.com")
		assert.ErrorIs(t, err, types.ErrDecode)
		assert.Contains(t, err.Error(), "Not authorized")
	})

	t.Run("Climate Skips Incomplete Records", func(t *testing.T) {
		f := &fakeVerisure{climates: `{"installation":{"climates":[
			{"device":null,"temperatureValue":10},
			{"device":{"area":"Outside"},"temperatureValue":-3.5},
			{"device":{"area":"Hall"}},
			{"device":{"area":"Outside"},"temperatureValue":-4}
		]}}`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)

		set, err := s.FetchClimate(ctx, giid)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"Outside": -4}, set.Map(), "last reading for an area wins")
	})

	t.Run("Climate Empty", func(t *testing.T) {
		f := &fakeVerisure{climates: `{"installation":{"climates":[]}}`}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)

		set, err := s.FetchClimate(ctx, giid)
		require.NoError(t, err)
		require.NotNil(t, set)
		assert.Equal(t, 0, set.Len())
	})

	t.Run("Out Of Order", func(t *testing.T) {
		f := &fakeVerisure{}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		_, err := s.ResolveInstallationID(ctx, "user@example.com")
		assert.ErrorIs(t, err, types.ErrAuth)

		s = newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		_, err = s.FetchClimate(ctx, "ABC123")
		assert.ErrorIs(t, err, types.ErrNotFound)

		s = newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		_, err = s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)
		_, err = s.FetchClimate(ctx, "OTHER")
		assert.ErrorIs(t, err, types.ErrNotFound)

		assert.Equal(t, int32(1), f.queries.Load(), "out of order calls must not reach the API")
	})

	t.Run("Not Reusable", func(t *testing.T) {
		f := &fakeVerisure{}
		ts := httptest.NewServer(f.handler(t))
		defer ts.Close()

		s := newTestSession(t, ts)
		require.NoError(t, s.Login(ctx, "user@example.com", "hunter2"))
		giid, err := s.ResolveInstallationID(ctx, "user@example.com")
		require.NoError(t, err)
		_, err = s.FetchClimate(ctx, giid)
		require.NoError(t, err)

		err = s.Login(ctx, "user@example.com", "hunter2")
		assert.ErrorIs(t, err, types.ErrAuth)
		_, err = s.FetchClimate(ctx, giid)
		assert.ErrorIs(t, err, types.ErrAuth)
		assert.Equal(t, int32(1), f.logins.Load())
	})

	t.Run("Network Error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		s := newTestSession(t, ts)
		ts.Close()

		err := s.Login(ctx, "user@example.com", "hunter2")
		assert.ErrorIs(t, err, types.ErrNetwork)
	})
}
