package storage

import "github.com/jrsteele09/go-merch-storefront/internal/errors"

// Keys owned by the session and cart components. The checkout confirmation
// screen is the only other reader (justPurchased / transferTotal).
const (
	KeyAccessToken   = "accessToken"
	KeyRefreshToken  = "refreshToken"
	KeyCart          = "cart"
	KeyJustPurchased = "justPurchased"
	KeyTransferTotal = "transferTotal"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.ErrNotFound

// Repo is durable key/value storage scoped to a single client: one browser
// visitor or one CLI profile. Values are opaque strings.
type Repo interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// GetOptional returns the stored value, or ok=false when the key is absent
func GetOptional(repo Repo, key string) (value string, ok bool, err error) {
	value, err = repo.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
