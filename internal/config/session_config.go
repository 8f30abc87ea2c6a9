package config

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type SessionConfig interface {
	GetSessionKey() []byte
	GetCSRFKey() []byte
	GetSealKey() (*[32]byte, bool)
	GetCookieSecure() bool
	GetVisitorMaxAge() time.Duration
}

// Session holds secrets resolved once per process. Missing secrets are replaced
// by random development keys, which invalidates visitor cookies on restart.
type Session struct {
	once       sync.Once
	sessionKey []byte
	csrfKey    []byte
	sealKey    *[32]byte
}

var _ SessionConfig = (*Session)(nil)

func (s *Session) load() {
	s.once.Do(func() {
		s.sessionKey = secretFromEnv("SESSION_KEY")
		s.csrfKey = secretFromEnv("CSRF_KEY")

		raw, err := base64.StdEncoding.DecodeString(GetEnv("STORAGE_SEAL_KEY", ""))
		if err == nil && len(raw) == 32 {
			var key [32]byte
			copy(key[:], raw)
			s.sealKey = &key
		} else if len(raw) > 0 {
			log.Warn().Msg("STORAGE_SEAL_KEY must be 32 bytes base64 encoded; tokens will be stored unsealed")
		}
	})
}

func (s *Session) GetSessionKey() []byte {
	s.load()
	return s.sessionKey
}

func (s *Session) GetCSRFKey() []byte {
	s.load()
	return s.csrfKey
}

// GetSealKey returns the key used to seal tokens at rest, if one is configured
func (s *Session) GetSealKey() (*[32]byte, bool) {
	s.load()
	return s.sealKey, s.sealKey != nil
}

func (s *Session) GetCookieSecure() bool {
	return GetEnv("COOKIE_SECURE", "false") == "true"
}

func (s *Session) GetVisitorMaxAge() time.Duration {
	return 30 * 24 * time.Hour
}

func secretFromEnv(name string) []byte {
	value := GetEnv(name, "")
	if value == "" {
		log.Warn().Str("env", name).Msg("secret not set, generating a random development key")
		return randomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(decoded) < 32 {
		log.Warn().Str("env", name).Msg("secret is invalid or shorter than 32 bytes, generating a random development key")
		return randomBytes(32)
	}
	return decoded
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
