package storage

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// SealedRepo encrypts the values of selected keys before they reach the
// underlying repo. Other keys pass through untouched.
type SealedRepo struct {
	repo   Repo
	key    *[32]byte
	sealed map[string]struct{}
}

var _ Repo = (*SealedRepo)(nil)

// Sealed wraps repo so that the given keys are stored with nacl/secretbox
func Sealed(repo Repo, key *[32]byte, keys ...string) *SealedRepo {
	sealed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sealed[k] = struct{}{}
	}
	return &SealedRepo{repo: repo, key: key, sealed: sealed}
}

func (s *SealedRepo) isSealed(key string) bool {
	_, ok := s.sealed[key]
	return ok
}

func (s *SealedRepo) Get(key string) (string, error) {
	value, err := s.repo.Get(key)
	if err != nil || !s.isSealed(key) {
		return value, err
	}

	box, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(box) < nonceSize {
		return "", fmt.Errorf("key %q: %w", key, errors.ErrSealed)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", fmt.Errorf("key %q: %w", key, errors.ErrSealed)
	}
	return string(plain), nil
}

func (s *SealedRepo) Set(key, value string) error {
	if !s.isSealed(key) {
		return s.repo.Set(key, value)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("SealedRepo.Set rand.Read: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, s.key)
	return s.repo.Set(key, base64.RawURLEncoding.EncodeToString(box))
}

func (s *SealedRepo) Remove(key string) error {
	return s.repo.Remove(key)
}
