package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// RefreshPath is the backend endpoint that mints a new access token
const RefreshPath = "/auth/refresh"

// maxBodyDrain bounds how much of an unread body is discarded before close
const maxBodyDrain = 64 << 10

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Refresher exchanges a refresh credential for a new token pair. An empty
// RefreshToken in the result means the backend did not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HTTPRefresher posts to the backend refresh endpoint. The first attempt relies
// on the refresh cookie held by the client's jar; if the backend answers 400 or
// 401 it retries once with the refresh token in the body.
type HTTPRefresher struct {
	url    string
	client Doer
}

var _ Refresher = (*HTTPRefresher)(nil)

func NewHTTPRefresher(apiURL string, client Doer) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		url:    strings.TrimRight(apiURL, "/") + RefreshPath,
		client: client,
	}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := r.post(ctx, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		log.Debug().Int("status", resp.StatusCode).Msg("cookie refresh rejected, retrying with body")

		body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
		if err != nil {
			return nil, fmt.Errorf("HTTPRefresher.Refresh marshal: %w", err)
		}
		if resp, err = r.post(ctx, body); err != nil {
			return nil, err
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("refresh rejected with status %d: %w", resp.StatusCode, errors.ErrSessionExpired)
	}

	var payload refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("refresh response: %w", errors.ErrInvalidToken)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("refresh response has no access token: %w", errors.ErrInvalidToken)
	}

	return &oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

func (r *HTTPRefresher) post(ctx context.Context, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPRefresher new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNetworkFailure, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))
	_ = resp.Body.Close()
}
