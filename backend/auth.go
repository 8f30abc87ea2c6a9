package backend

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login response has no access token: %w", errors.ErrInvalidToken)
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.sendJSON(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// CreateAdmin registers a back office user. The caller must be an admin.
func (c *Client) CreateAdmin(ctx context.Context, req CreateAdminRequest) error {
	req.Role = "ADMIN"
	return c.sendJSON(ctx, http.MethodPost, "/auth/create-admin", nil, req, nil)
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone keeps the digits of an Argentine number without the trunk 0
// or the 54 country code. ok is false when fewer than ten digits remain.
func NormalizePhone(raw string) (phone string, ok bool) {
	phone = nonDigits.ReplaceAllString(raw, "")
	phone = strings.TrimPrefix(phone, "0")
	phone = strings.TrimPrefix(phone, "54")
	return phone, len(phone) >= 10
}
