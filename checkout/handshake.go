package checkout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/rs/zerolog/log"
)

// JustPurchased is the value stored under storage.KeyJustPurchased
const JustPurchased = "true"

// DefaultClearDelay is how long the handshake keys outlive a successful read
const DefaultClearDelay = time.Second

var ErrNoPendingPurchase = errors.ErrNoPendingPurchase

// Clearer empties a cart
type Clearer interface {
	Clear()
}

// Handshake passes the final total from the purchase flow to the transfer
// confirmation page through durable storage.
type Handshake struct {
	repo      storage.Repo
	delay     time.Duration
	afterFunc func(d time.Duration, f func())
}

type HandshakeOption func(*Handshake)

func WithClearDelay(d time.Duration) HandshakeOption {
	return func(h *Handshake) {
		h.delay = d
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling the erase
func WithAfterFunc(afterFunc func(d time.Duration, f func())) HandshakeOption {
	return func(h *Handshake) {
		h.afterFunc = afterFunc
	}
}

func NewHandshake(repo storage.Repo, opts ...HandshakeOption) *Handshake {
	h := &Handshake{
		repo:  repo,
		delay: DefaultClearDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Begin records a finished purchase. Call it right before sending the client
// to the transfer confirmation page.
func (h *Handshake) Begin(total float64) error {
	if err := h.repo.Set(storage.KeyJustPurchased, JustPurchased); err != nil {
		return errors.Wrapf(err, "handshake: storing purchase flag")
	}
	if err := h.repo.Set(storage.KeyTransferTotal, strconv.FormatFloat(total, 'f', -1, 64)); err != nil {
		return errors.Wrapf(err, "handshake: storing transfer total")
	}
	return nil
}

// Consume validates the pending purchase and returns its total. On success the
// cart is cleared and both keys are erased after the clear delay. Anything
// else yields ErrNoPendingPurchase.
func (h *Handshake) Consume(cart Clearer) (float64, error) {
	flag, _, err := storage.GetOptional(h.repo, storage.KeyJustPurchased)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoPendingPurchase, err)
	}
	raw, _, err := storage.GetOptional(h.repo, storage.KeyTransferTotal)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoPendingPurchase, err)
	}

	if flag != JustPurchased || raw == "" {
		return 0, ErrNoPendingPurchase
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(total) {
		return 0, fmt.Errorf("transfer total %q: %w", raw, ErrNoPendingPurchase)
	}

	cart.Clear()
	h.afterFunc(h.delay, h.erase)
	return total, nil
}

func (h *Handshake) erase() {
	for _, key := range []string{storage.KeyJustPurchased, storage.KeyTransferTotal} {
		if err := h.repo.Remove(key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("handshake: erasing key")
		}
	}
}

// FormatTotal renders an amount the way the confirmation page shows it
func FormatTotal(total float64) string {
	return fmt.Sprintf("$%.2f", total)
}
