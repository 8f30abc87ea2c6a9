package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/cart"
	"github.com/jrsteele09/go-merch-storefront/checkout"
	"github.com/jrsteele09/go-merch-storefront/session"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyVisitor stores the *visitor built by VisitorMiddleware
const ContextKeyVisitor ContextKey = "visitor"

const (
	visitorCookieName = "merch_visitor"
	visitorIDKey      = "id"
	cartOpenKey       = "cartOpen"
	noticeFlashKey    = "notice"
	errorFlashKey     = "error"

	noticeLoginRequired = "Iniciá sesión para continuar."
	noticeAdminRequired = "Necesitás una cuenta de administrador."
)

// visitor is everything one browser owns for the length of a request: its
// storage namespace and the session, cart and handshake built on top of it.
type visitor struct {
	id        string
	web       *sessions.Session
	session   *session.Manager
	cart      *cart.Store
	handshake *checkout.Handshake
	api       *backend.Client
}

func visitorFrom(r *http.Request) *visitor {
	v, _ := r.Context().Value(ContextKeyVisitor).(*visitor)
	return v
}

func (v *visitor) notify(msg string) {
	v.web.AddFlash(msg, noticeFlashKey)
}

func (v *visitor) alert(msg string) {
	v.web.AddFlash(msg, errorFlashKey)
}

func (v *visitor) setCartOpen(open bool) {
	v.cart.SetOpen(open)
	v.web.Values[cartOpenKey] = open
}

// save writes the visitor cookie. It must run before the response is written.
func (v *visitor) save(w http.ResponseWriter, r *http.Request) {
	if err := v.web.Save(r, w); err != nil {
		log.Err(err).Str("visitor", v.id).Msg("saving visitor cookie")
	}
}

// newVisitor wires one namespace of client storage into the session, cart and
// handshake of a visitor
func (s *Server) newVisitor(ctx context.Context, id string, web *sessions.Session) *visitor {
	var repo storage.Repo = s.store.Namespace(id)
	if key, ok := s.config.GetSealKey(); ok {
		repo = storage.Sealed(repo, key, storage.KeyAccessToken, storage.KeyRefreshToken)
	}

	mgr := session.NewManager(repo, s.refresher,
		session.WithHTTPClient(s.httpClient),
		session.WithFlightGroup(s.flights),
	)
	mgr.Load()

	c := cart.NewStore(repo)
	c.Load()
	if open, _ := web.Values[cartOpenKey].(bool); open {
		c.SetOpen(true)
	}

	return &visitor{
		id:        id,
		web:       web,
		session:   mgr,
		cart:      c,
		handshake: checkout.NewHandshake(repo, checkout.WithClearDelay(s.config.GetHandshakeClearDelay())),
		api:       s.api.As(mgr.As(ctx)),
	}
}

// VisitorMiddleware identifies the browser by a signed cookie and loads its
// client storage
func (s *Server) VisitorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		web, err := s.cookies.Get(r, visitorCookieName)
		if err != nil {
			// Unreadable cookie (rotated key, tampering); start over with a new visitor
			log.Debug().Err(err).Msg("discarding visitor cookie")
		}

		id, _ := web.Values[visitorIDKey].(string)
		isNew := id == ""
		if isNew {
			id = uuid.NewString()
			web.Values[visitorIDKey] = id
		}

		v := s.newVisitor(r.Context(), id, web)
		if isNew {
			v.save(w, r)
		}

		ctx := context.WithValue(r.Context(), ContextKeyVisitor, v)
		next(w, r.WithContext(ctx))
	}
}

// CheckoutGuardMiddleware sends visitors with an empty cart away from the
// checkout route
func (s *Server) CheckoutGuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if redirect, ok := checkout.Guard(r.URL.Path, v.cart); ok {
			v.notify(redirect.Notice)
			redirectSuccess(w, r, v, redirect.To)
			return
		}
		next(w, r)
	}
}

// RequireLogin sends anonymous visitors to the login page, remembering where
// they were going
func (s *Server) RequireLogin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			v := visitorFrom(r)
			if !v.session.IsAuthenticated() {
				v.notify(noticeLoginRequired)
				redirectSuccess(w, r, v, loginURL(returnPath(r)))
				return
			}
			next(w, r)
		}
	}
}

// RequireAdmin gates the back office on the unverified role claim. The backend
// authorises every admin call itself.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			v := visitorFrom(r)
			if !v.session.IsAuthenticated() {
				v.notify(noticeLoginRequired)
				redirectSuccess(w, r, v, loginURL(returnPath(r)))
				return
			}
			if !v.session.IsAdmin() {
				v.alert(noticeAdminRequired)
				redirectSuccess(w, r, v, RouteHome)
				return
			}
			next(w, r)
		}
	}
}

func loginURL(next string) string {
	if next == "" || next == RouteHome {
		return RouteLogin
	}
	return RouteLogin + "?next=" + url.QueryEscape(next)
}

// returnPath is where a POST should land afterwards: the page it came from
// when that page is on this site, else home
func returnPath(r *http.Request) string {
	if r.Method == http.MethodGet {
		return r.URL.RequestURI()
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		return ref.RequestURI()
	}
	return RouteHome
}

// safeNext accepts only local paths so ?next= cannot redirect off site
func safeNext(next, fallback string) string {
	if len(next) > 0 && next[0] == '/' && (len(next) == 1 || (next[1] != '/' && next[1] != '\\')) {
		return next
	}
	return fallback
}
