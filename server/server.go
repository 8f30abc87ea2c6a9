package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/config"
	"github.com/jrsteele09/go-merch-storefront/session"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Namespacer hands out one storage namespace per visitor
type Namespacer interface {
	Namespace(namespace string) storage.Repo
}

// Purger drops namespaces that have not been written since cutoff
type Purger interface {
	PurgeBefore(cutoff time.Time) (int64, error)
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	handler    http.Handler
	routes     []string
	config     config.Config
	store      Namespacer
	httpClient *http.Client
	api        *backend.Client
	refresher  session.Refresher
	cookies    *sessions.CookieStore
	flights    *singleflight.Group
	typeaheads *typeaheads
	assets     assetIndex
	skipCSRF   bool
}

type Option func(*Server)

// WithHTTPClient sets the client used for every backend call
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.httpClient = client
	}
}

func New(cfg config.Config, store Namespacer, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("[Server New] a client storage is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		store:      store,
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		flights:    &singleflight.Group{},
		typeaheads: newTypeaheads(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = cfg.GetEnv()
	s.api = backend.New(cfg.GetAPIURL(), s.httpClient)
	s.refresher = session.NewHTTPRefresher(cfg.GetAPIURL(), s.httpClient)

	s.cookies = sessions.NewCookieStore(cfg.GetSessionKey())
	s.cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.GetVisitorMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   cfg.GetCookieSecure(),
		SameSite: http.SameSiteLaxMode,
	}

	assets, err := loadAssets()
	if err != nil {
		return nil, err
	}
	s.assets = assets

	s.initRoutes()
	s.logRoutes()
	s.handler = s.protect(s.mux)

	return s, nil
}

// protect wraps the mux with CSRF checks on every unsafe method
func (s *Server) protect(next http.Handler) http.Handler {
	if s.skipCSRF {
		return next
	}

	var trusted []string
	for origin := range s.config.GetAllowedOrigins() {
		trusted = append(trusted, strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"))
	}
	protect := csrf.Protect(s.config.GetCSRFKey(),
		csrf.Secure(s.config.GetCookieSecure()),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trusted),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Err(csrf.FailureReason(r)).Str("path", r.URL.Path).Msg("csrf check failed")
			http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
		})),
	)(next)

	secure := s.config.GetCookieSecure()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !secure {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protect.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// Housekeeping purges idle visitor storage and forgets idle type-ahead state
// until ctx is done.
func (s *Server) Housekeeping(ctx context.Context, purger Purger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.typeaheads.evictIdle(now.Add(-typeaheadIdle))
			if purger == nil {
				continue
			}
			removed, err := purger.PurgeBefore(now.Add(-s.config.GetStorageRetention()))
			if err != nil {
				log.Error().Err(err).Msg("purging visitor storage")
				continue
			}
			if removed > 0 {
				log.Info().Int64("rows", removed).Msg("purged idle visitor storage")
			}
		}
	}
}

// typeaheads keeps one search box per visitor so a new query cancels the
// previous one
type typeaheads struct {
	mu      sync.Mutex
	entries map[string]*typeaheadEntry
}

type typeaheadEntry struct {
	search   *backend.Typeahead
	lastUsed time.Time
}

const typeaheadIdle = 10 * time.Minute

func newTypeaheads() *typeaheads {
	return &typeaheads{entries: make(map[string]*typeaheadEntry)}
}

func (t *typeaheads) get(visitorID string, api *backend.Client) *backend.Typeahead {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[visitorID]
	if !ok {
		e = &typeaheadEntry{search: backend.NewTypeahead(api)}
		t.entries[visitorID] = e
	}
	e.lastUsed = time.Now()
	return e.search
}

func (t *typeaheads) evictIdle(before time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, e := range t.entries {
		if e.lastUsed.Before(before) {
			delete(t.entries, id)
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
