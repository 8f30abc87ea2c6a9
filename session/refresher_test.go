package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-merch-storefront/session"
	"github.com/stretchr/testify/require"
)

func TestRefresherFallsBackPastAnEndlessRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+session.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken == "" {
			// cookie attempt: reject with a body that never ends
			w.WriteHeader(http.StatusUnauthorized)
			chunk := make([]byte, 32<<10)
			for r.Context().Err() == nil {
				if _, err := w.Write(chunk); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			}
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	refresher := session.NewHTTPRefresher(srv.URL, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tok, err := refresher.Refresh(ctx, testRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok.AccessToken)
}
