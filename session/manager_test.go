package session_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/session"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/jrsteele09/go-merch-storefront/storage/memstore"
	"github.com/stretchr/testify/require"
)

const (
	testRefreshToken = "refresh-1"
	testEmail        = "ana@example.com"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked-by-client"))
	require.NoError(t, err)
	return signed
}

func userToken(t *testing.T, sub float64, role string) string {
	return signToken(t, jwt.MapClaims{
		"sub":       sub,
		"email":     testEmail,
		"role":      role,
		"firstName": "Ana",
		"lastName":  "Gómez",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"jti":       time.Now().UnixNano(),
	})
}

// testFixture is a fake backend with one protected route and the refresh
// endpoint.
type testFixture struct {
	server        *httptest.Server
	repo          *memstore.InMemoryRepo
	manager       *session.Manager
	staleToken    string
	freshToken    string
	valid         atomic.Value // string
	protectedHits atomic.Int32
	refreshHits   atomic.Int32
	refreshOK     atomic.Bool
	refreshDelay  time.Duration
	alwaysDeny    atomic.Bool
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:       memstore.New(),
		staleToken: userToken(t, 7, "USER"),
		freshToken: userToken(t, 7, "USER"),
	}
	f.valid.Store(f.freshToken)
	f.refreshOK.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		f.protectedHits.Add(1)
		if f.alwaysDeny.Load() || r.Header.Get("Authorization") != "Bearer "+f.valid.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("ok:"), body...))
	})
	mux.HandleFunc("POST "+session.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken == "" {
			// no refresh cookie in tests
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.refreshHits.Add(1)
		time.Sleep(f.refreshDelay)
		if !f.refreshOK.Load() || req.RefreshToken != testRefreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": f.freshToken})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.manager = session.NewManager(f.repo, session.NewHTTPRefresher(f.server.URL, f.server.Client()),
		session.WithHTTPClient(f.server.Client()))
	return f
}

func (f *testFixture) get(t *testing.T, ctx context.Context) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/protected", nil)
	require.NoError(t, err)
	return f.manager.Do(ctx, req)
}

func TestLogin(t *testing.T) {
	t.Run("commits tokens and claims", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.freshToken, testRefreshToken))

		require.Equal(t, session.Authenticated, f.manager.State())
		claims, ok := f.manager.Claims()
		require.True(t, ok)
		require.Equal(t, "7", claims.UserID)
		require.Equal(t, testEmail, claims.Email)
		require.Equal(t, "Ana Gómez", claims.DisplayName())
		require.False(t, f.manager.IsAdmin())

		stored, err := f.repo.Get(storage.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, f.freshToken, stored)
		stored, err = f.repo.Get(storage.KeyRefreshToken)
		require.NoError(t, err)
		require.Equal(t, testRefreshToken, stored)
	})

	t.Run("invalid token clears session", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.freshToken, testRefreshToken))

		err := f.manager.Login("not.a.jwt", "")
		require.ErrorIs(t, err, errors.ErrInvalidToken)
		require.Equal(t, session.Unauthenticated, f.manager.State())
		_, ok := f.manager.Claims()
		require.False(t, ok)
		require.False(t, f.repo.Has(storage.KeyAccessToken))
	})

	t.Run("omitted refresh token keeps the previous one", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))
		require.NoError(t, f.manager.Login(f.freshToken, ""))
		require.Equal(t, testRefreshToken, f.manager.RefreshToken())
	})

	t.Run("admin role", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(userToken(t, 1, session.RoleAdmin), ""))
		require.True(t, f.manager.IsAdmin())
	})
}

func TestLoadAndLogout(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(f.freshToken, testRefreshToken))

	rehydrated := session.NewManager(f.repo, nil)
	rehydrated.Load()
	require.True(t, rehydrated.IsAuthenticated())
	require.Equal(t, testRefreshToken, rehydrated.RefreshToken())

	rehydrated.Logout()
	require.Equal(t, session.Unauthenticated, rehydrated.State())
	require.False(t, f.repo.Has(storage.KeyAccessToken))
	require.False(t, f.repo.Has(storage.KeyRefreshToken))

	require.NoError(t, f.repo.Set(storage.KeyAccessToken, "garbage"))
	require.NoError(t, f.repo.Set(storage.KeyRefreshToken, testRefreshToken))
	corrupt := session.NewManager(f.repo, nil)
	corrupt.Load()
	require.False(t, corrupt.IsAuthenticated())
	require.False(t, f.repo.Has(storage.KeyRefreshToken))
}

func TestDo(t *testing.T) {
	t.Run("valid token needs no refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.freshToken, testRefreshToken))

		resp, err := f.get(t, context.Background())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 1, f.protectedHits.Load())
		require.EqualValues(t, 0, f.refreshHits.Load())
	})

	t.Run("401 then refresh issues exactly two calls", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		resp, err := f.get(t, context.Background())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 2, f.protectedHits.Load())
		require.EqualValues(t, 1, f.refreshHits.Load())
		require.Equal(t, f.freshToken, f.manager.AccessToken())
		require.Equal(t, testRefreshToken, f.manager.RefreshToken())
	})

	t.Run("request body is replayed on retry", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		req, err := http.NewRequest(http.MethodPost, f.server.URL+"/protected", io.NopCloser(strings.NewReader(`{"a":1}`)))
		require.NoError(t, err)
		resp, err := f.manager.Do(context.Background(), req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, `ok:{"a":1}`, string(body))
	})

	t.Run("failed refresh expires the session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.refreshOK.Store(false)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		resp, err := f.get(t, context.Background())
		require.Nil(t, resp)
		require.ErrorIs(t, err, errors.ErrSessionExpired)
		require.Equal(t, session.Unauthenticated, f.manager.State())
		require.False(t, f.repo.Has(storage.KeyAccessToken))
		require.False(t, f.repo.Has(storage.KeyRefreshToken))
		require.EqualValues(t, 1, f.protectedHits.Load())
	})

	t.Run("persistent 401 is returned without a second retry", func(t *testing.T) {
		f := setupTestFixture(t)
		f.alwaysDeny.Store(true)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		resp, err := f.get(t, context.Background())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.EqualValues(t, 2, f.protectedHits.Load())
		require.EqualValues(t, 1, f.refreshHits.Load())
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("network failure is not retried", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.freshToken, testRefreshToken))

		req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/unreachable", nil)
		require.NoError(t, err)
		_, err = f.manager.Do(context.Background(), req)
		require.ErrorIs(t, err, errors.ErrNetworkFailure)
		require.EqualValues(t, 0, f.refreshHits.Load())
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("concurrent 401s share one refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		f.refreshDelay = 50 * time.Millisecond
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		const callers = 5
		var wg sync.WaitGroup
		statuses := make([]int, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp, err := f.get(t, context.Background())
				if err != nil {
					return
				}
				statuses[i] = resp.StatusCode
				_ = resp.Body.Close()
			}(i)
		}
		wg.Wait()

		require.EqualValues(t, 1, f.refreshHits.Load())
		for _, status := range statuses {
			require.Equal(t, http.StatusOK, status)
		}
	})

	t.Run("managers over the same storage share a refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		other := session.NewManager(f.repo, session.NewHTTPRefresher(f.server.URL, f.server.Client()),
			session.WithHTTPClient(f.server.Client()))
		other.Load()

		resp, err := f.get(t, context.Background())
		require.NoError(t, err)
		_ = resp.Body.Close()

		req, err := http.NewRequest(http.MethodGet, f.server.URL+"/protected", nil)
		require.NoError(t, err)
		resp, err = other.Do(context.Background(), req)
		require.NoError(t, err)
		_ = resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 1, f.refreshHits.Load())
		require.Equal(t, f.freshToken, other.AccessToken())
	})
}

func TestRefreshAccessToken(t *testing.T) {
	t.Run("falls back to body and rotates", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		require.True(t, f.manager.RefreshAccessToken(context.Background()))
		require.Equal(t, f.freshToken, f.manager.AccessToken())
	})

	t.Run("rejection reports false and keeps session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.refreshOK.Store(false)
		require.NoError(t, f.manager.Login(f.staleToken, testRefreshToken))

		require.False(t, f.manager.RefreshAccessToken(context.Background()))
		require.Equal(t, f.staleToken, f.manager.AccessToken())
	})
}
