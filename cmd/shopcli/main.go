// Command shopcli drives the storefront from a terminal. Each profile keeps its
// session and cart in the same client storage the web storefront uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/cart"
	"github.com/jrsteele09/go-merch-storefront/checkout"
	"github.com/jrsteele09/go-merch-storefront/internal/config"
	"github.com/jrsteele09/go-merch-storefront/session"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/jrsteele09/go-merch-storefront/storage/sqlstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: shopcli [-profile name] [-db path] <command> [args]

commands:
  login -email e -password p
  logout
  whoami
  products [-category id]
  cart list | add -id n [-qty n] [-variant v] | remove -id n [-variant v] | clear
  checkout transfer|hosted [-pickup] [-address a] [-postal cp]
  orders
`

// client is one CLI profile wired the same way the storefront wires a visitor
type client struct {
	cfg       config.Config
	api       *backend.Client
	session   *session.Manager
	cart      *cart.Store
	handshake *checkout.Handshake
	store     *sqlstore.Store
	out       io.Writer
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg := config.New()
	global := flag.NewFlagSet("shopcli", flag.ExitOnError)
	profile := global.String("profile", "default", "profile whose session and cart to use")
	dbPath := global.String("db", defaultDBPath(), "sqlite file holding the profiles")
	verbose := global.Bool("v", false, "log requests")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	args := global.Args()
	if len(args) == 0 {
		figure.NewFigure(cfg.GetAppName(), "cybermedium", true).Print()
		fmt.Println()
		fmt.Print(usage)
		os.Exit(1)
	}

	if err := run(cfg, *dbPath, *profile, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, dbPath, profile string, args []string) error {
	c, err := newClient(cfg, dbPath, profile)
	if err != nil {
		return err
	}
	defer c.store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.GetRequestTimeout())
	defer cancel()
	return c.dispatch(ctx, args[0], args[1:])
}

func defaultDBPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "shopcli", "profiles.db")
	}
	return "shopcli.db"
}

func newClient(cfg config.Config, dbPath, profile string) (*client, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating profile folder: %w", err)
	}
	store, err := sqlstore.Open(sqlstore.DriverSQLite, dbPath)
	if err != nil {
		return nil, err
	}

	var repo storage.Repo = store.Namespace("profile:" + profile)
	if key, ok := cfg.GetSealKey(); ok {
		repo = storage.Sealed(repo, key, storage.KeyAccessToken, storage.KeyRefreshToken)
	}

	// One process is one user, so the backend's refresh cookie can live in a jar
	jar, err := cookiejar.New(nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.GetRequestTimeout(), Jar: jar}

	c := newProfileClient(cfg, repo, httpClient)
	c.store = store
	return c, nil
}

// newProfileClient wires the session, cart and handshake of one profile over
// repo
func newProfileClient(cfg config.Config, repo storage.Repo, httpClient *http.Client) *client {
	mgr := session.NewManager(repo, session.NewHTTPRefresher(cfg.GetAPIURL(), httpClient), session.WithHTTPClient(httpClient))
	mgr.Load()
	items := cart.NewStore(repo)
	items.Load()

	return &client{
		cfg:     cfg,
		api:     backend.New(cfg.GetAPIURL(), httpClient),
		session: mgr,
		cart:    items,
		// The confirmation is printed once, so the handshake is erased right away
		handshake: checkout.NewHandshake(repo, checkout.WithAfterFunc(func(_ time.Duration, f func()) { f() })),
		out:       os.Stdout,
	}
}
