// Package sqlstore keeps client storage namespaces in a SQL table. SQLite is
// used for single-node deployments and CLI profiles, Postgres when several
// storefront instances share visitors.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/storage"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_storage (
	namespace  TEXT   NOT NULL,
	item_key   TEXT   NOT NULL,
	value      TEXT   NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (namespace, item_key)
)`

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store owns the database handle. Use Namespace to get a storage.Repo.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the storage table when missing
func Open(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open ping: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns the repo holding one client's keys
func (s *Store) Namespace(namespace string) storage.Repo {
	return &namespaceRepo{store: s, namespace: namespace}
}

// PurgeBefore removes every namespace whose newest write is older than cutoff
func (s *Store) PurgeBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(s.rebind(`
		DELETE FROM client_storage WHERE namespace IN (
			SELECT namespace FROM client_storage GROUP BY namespace HAVING MAX(updated_at) < ?
		)`), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlstore.PurgeBefore: %w", err)
	}
	return res.RowsAffected()
}

// rebind converts ? placeholders to $n for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type namespaceRepo struct {
	store     *Store
	namespace string
}

var _ storage.Repo = (*namespaceRepo)(nil)

func (r *namespaceRepo) Get(key string) (string, error) {
	var value string
	err := r.store.db.QueryRow(
		r.store.rebind(`SELECT value FROM client_storage WHERE namespace = ? AND item_key = ?`),
		r.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore.Get %q: %w", key, err)
	}
	return value, nil
}

func (r *namespaceRepo) Set(key, value string) error {
	_, err := r.store.db.Exec(r.store.rebind(`
		INSERT INTO client_storage (namespace, item_key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, item_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		r.namespace, key, value, NowTimeFunc().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlstore.Set %q: %w", key, err)
	}
	return nil
}

func (r *namespaceRepo) Remove(key string) error {
	_, err := r.store.db.Exec(
		r.store.rebind(`DELETE FROM client_storage WHERE namespace = ? AND item_key = ?`),
		r.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("sqlstore.Remove %q: %w", key, err)
	}
	return nil
}
