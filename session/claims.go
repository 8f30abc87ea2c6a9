package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

// RoleAdmin is the role claim the backend issues to back office users
const RoleAdmin = "ADMIN"

// UnverifiedClaims are identity claims read from an access token without
// checking its signature. They are only fit for choosing what to render; the
// backend re-derives identity on every protected call.
type UnverifiedClaims struct {
	Email     string
	Role      string
	UserID    string // sub
	FirstName string
	LastName  string
	ExpiresAt time.Time // zero when the token carries no exp
}

// DisplayName is the first and last name, or the email when neither is set
func (c UnverifiedClaims) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.Email
	}
}

func (c UnverifiedClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

var parser = jwt.NewParser()

// DecodeUnverified reads the payload of a compact JWT. Any token that is not a
// well formed JWT yields ErrInvalidToken.
func DecodeUnverified(accessToken string) (UnverifiedClaims, error) {
	if accessToken == "" {
		return UnverifiedClaims{}, errors.Wrapf(errors.ErrInvalidToken, "empty token")
	}

	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, mc); err != nil {
		return UnverifiedClaims{}, errors.Wrapf(errors.ErrInvalidToken, "decode: %v", err)
	}

	claims := UnverifiedClaims{
		Email:     stringClaim(mc, "email"),
		Role:      stringClaim(mc, "role"),
		UserID:    stringClaim(mc, "sub"),
		FirstName: stringClaim(mc, "firstName"),
		LastName:  stringClaim(mc, "lastName"),
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// stringClaim tolerates numeric claims; the backend sends sub as a number
func stringClaim(mc jwt.MapClaims, name string) string {
	switch v := mc[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
