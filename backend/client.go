// Package backend is a typed client for the shop's backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

// maxBodyDrain bounds how much of an unread body is discarded before close
const maxBodyDrain = 64 << 10

// Doer sends HTTP requests. Both *http.Client and a bound session manager
// satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPError is a non-2xx answer from the backend. It unwraps to
// ErrNetworkFailure.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return errors.ErrNetworkFailure
}

// StatusOf returns the backend status carried by err, or 0
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// MessageOf returns the backend's message, or fallback when there is none
func MessageOf(err error, fallback string) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return fallback
}

// Client calls the backend. Public endpoints go through the anonymous doer;
// use As to get a client whose calls carry a session.
type Client struct {
	baseURL string
	doer    Doer
}

func New(baseURL string, doer Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// As returns a client that sends every request through doer
func (c *Client) As(doer Doer) *Client {
	return &Client{baseURL: c.baseURL, doer: doer}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON, sendJSON and sendMultipart decode a 2xx body into out when out is
// not nil.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return fmt.Errorf("backend GET %s: %w", path, err)
	}
	return c.roundTrip(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend %s %s marshal: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(req, out)
}

// File is an upload forwarded to the backend
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Form is a multipart body: plain fields plus files under a field name
type Form struct {
	Fields map[string]string
	Files  map[string][]File
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, form Form, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range form.Fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("backend multipart field %s: %w", name, err)
		}
	}
	for field, files := range form.Files {
		for _, f := range files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
			ctype := f.ContentType
			if ctype == "" {
				ctype = "application/octet-stream"
			}
			h.Set("Content-Type", ctype)
			part, err := w.CreatePart(h)
			if err != nil {
				return fmt.Errorf("backend multipart file %s: %w", f.Name, err)
			}
			if _, err := part.Write(f.Data); err != nil {
				return fmt.Errorf("backend multipart file %s: %w", f.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("backend multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, nil), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, errors.ErrNetworkFailure) || errors.Is(err, errors.ErrSessionExpired) {
			return err
		}
		return fmt.Errorf("%w: %w", errors.ErrNetworkFailure, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
		log.Debug().Str("method", req.Method).Str("url", req.URL.Path).Int("status", resp.StatusCode).Msg("backend call failed")
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s %s decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// readMessage extracts {"message": ...}; the backend may send a string or a
// list of validation messages.
func readMessage(body io.Reader) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxBodyDrain)).Decode(&payload); err != nil || len(payload.Message) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(payload.Message, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(payload.Message, &many); err == nil {
		return strings.Join(many, ", ")
	}
	return ""
}
