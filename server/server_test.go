package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/config"
	"github.com/jrsteele09/go-merch-storefront/server"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/jrsteele09/go-merch-storefront/storage/sqlstore"
	"github.com/stretchr/testify/require"
)

const (
	testPassword   = "secret"
	testUserEmail  = "ana@example.com"
	testAdminEmail = "admin@example.com"
	saleTotal      = 3000.0
)

// visitorStore remembers the last namespace the storefront opened so tests
// can reach a visitor's storage
type visitorStore struct {
	*sqlstore.Store
	mu   sync.Mutex
	last string
}

func (s *visitorStore) Namespace(namespace string) storage.Repo {
	s.mu.Lock()
	s.last = namespace
	s.mu.Unlock()
	return s.Store.Namespace(namespace)
}

func (s *visitorStore) lastVisitor() storage.Repo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Namespace(s.last)
}

type testFixture struct {
	backend     *httptest.Server
	storefront  *httptest.Server
	store       *visitorStore
	client      *http.Client
	sales       atomic.Int32
	expireOrder atomic.Bool
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func accessToken(t *testing.T, email string) string {
	t.Helper()
	role := "USER"
	if email == testAdminEmail {
		role = "ADMIN"
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       7,
		"email":     email,
		"role":      role,
		"firstName": "Ana",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("not-checked-by-storefront"))
	require.NoError(t, err)
	return signed
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{}

	remera := backend.Product{
		ID:       1,
		Name:     "Remera",
		Price:    1500,
		Category: backend.CategoryRef{ID: 3, Name: "Ropa"},
		Images:   []backend.ProductImage{{URL: "/img/remera.jpg"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /product/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeBody(w, http.StatusNotFound, map[string]string{"message": "Producto inexistente"})
			return
		}
		writeBody(w, http.StatusOK, remera)
	})
	mux.HandleFunc("GET /product", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []backend.Product{remera})
	})
	mux.HandleFunc("GET /category", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []backend.Category{})
	})
	mux.HandleFunc("GET /carousel-image", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, []backend.CarouselImage{})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req backend.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != testPassword {
			writeBody(w, http.StatusUnauthorized, map[string]string{"message": "Credenciales inválidas"})
			return
		}
		writeBody(w, http.StatusOK, map[string]string{
			"accessToken":  accessToken(t, req.Email),
			"refreshToken": "refresh-" + req.Email,
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /sales/secure-create", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.sales.Add(1)
		writeBody(w, http.StatusCreated, backend.CreateSaleResponse{ID: 10, Total: saleTotal})
	})
	mux.HandleFunc("GET /sales/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.expireOrder.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeBody(w, http.StatusOK, []backend.Order{{ID: 10, Total: saleTotal, Status: "pending"}})
	})
	mux.HandleFunc("GET /public/search", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, backend.SearchResult{
			Products: []backend.SearchProduct{{ID: 1, Name: "Remera", Price: 1500}},
		})
	})
	f.backend = httptest.NewServer(mux)
	t.Cleanup(f.backend.Close)

	t.Setenv("ENV", "TEST")
	t.Setenv("API_URL", f.backend.URL)
	t.Setenv("HANDSHAKE_CLEAR_DELAY_MS", "0")

	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "visitors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f.store = &visitorStore{Store: db}

	srv, err := server.New(config.New(), f.store, server.WithoutCSRF())
	require.NoError(t, err)
	f.storefront = httptest.NewServer(srv)
	t.Cleanup(f.storefront.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *testFixture) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(body),
	}
}

func (f *testFixture) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.storefront.URL+path, nil)
	require.NoError(t, err)
	return f.do(t, req)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.storefront.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func (f *testFixture) login(t *testing.T, email string) response {
	t.Helper()
	return f.post(t, server.RouteLogin, url.Values{"email": {email}, "password": {testPassword}})
}

func (f *testFixture) addRemera(t *testing.T, qty string) response {
	t.Helper()
	return f.post(t, server.RouteCartAdd, url.Values{"id": {"1"}, "quantity": {qty}, "next": {server.RouteStorefront}})
}

func TestCart(t *testing.T) {
	t.Run("add merges into the cart and opens the panel", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.addRemera(t, "1")
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteStorefront, resp.location)
		f.addRemera(t, "1")

		page := f.get(t, server.RouteStorefront)
		require.Equal(t, http.StatusOK, page.status)
		require.Contains(t, page.body, "Producto agregado al carrito.")
		require.Contains(t, page.body, "Total: $3000.00")
	})

	t.Run("invalid quantity is rejected", func(t *testing.T) {
		f := setupTestFixture(t)

		resp := f.addRemera(t, "0")
		require.Equal(t, http.StatusSeeOther, resp.status)

		page := f.get(t, server.RouteStorefront)
		require.Contains(t, page.body, "No se pudo agregar el producto al carrito.")
		require.Equal(t, server.RouteStorefront, f.get(t, server.RouteCheckout).location)
	})

	t.Run("remove empties the cart", func(t *testing.T) {
		f := setupTestFixture(t)
		f.addRemera(t, "2")
		require.Equal(t, http.StatusOK, f.get(t, server.RouteCheckout).status)

		f.post(t, server.RouteCartRemove, url.Values{"id": {"1"}})
		require.Equal(t, server.RouteStorefront, f.get(t, server.RouteCheckout).location)
	})

	t.Run("htmx requests get an HX-Redirect", func(t *testing.T) {
		f := setupTestFixture(t)
		req, err := http.NewRequest(http.MethodPost, f.storefront.URL+server.RouteCartClear, strings.NewReader("next=%2Ftienda"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")

		resp := f.do(t, req)
		require.Equal(t, http.StatusNoContent, resp.status)
		require.Equal(t, server.RouteStorefront, resp.header.Get("HX-Redirect"))
	})
}

func TestCheckoutGuard(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, server.RouteCheckout)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteStorefront, resp.location)
	require.Contains(t, f.get(t, server.RouteStorefront).body, "El carrito está vacío. Redirigiendo...")

	// post-payment pages are reachable with an empty cart
	require.Equal(t, http.StatusOK, f.get(t, server.RoutePaymentSuccess).status)
}

func TestLogin(t *testing.T) {
	t.Run("buyers land home", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.login(t, testUserEmail)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteHome, resp.location)
	})

	t.Run("admins land on the back office", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.login(t, testAdminEmail)
		require.Equal(t, server.RouteAdminDashboard, resp.location)
	})

	t.Run("next wins over the default landing", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.post(t, server.RouteLogin, url.Values{
			"email": {testUserEmail}, "password": {testPassword}, "next": {server.RouteMyOrders},
		})
		require.Equal(t, server.RouteMyOrders, resp.location)
	})

	t.Run("off site next is ignored", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.post(t, server.RouteLogin, url.Values{
			"email": {testUserEmail}, "password": {testPassword}, "next": {"//evil.example.com"},
		})
		require.Equal(t, server.RouteHome, resp.location)
	})

	t.Run("bad credentials show the backend message", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.post(t, server.RouteLogin, url.Values{"email": {testUserEmail}, "password": {"nope"}})
		require.Equal(t, server.RouteLogin, resp.location)
		require.Contains(t, f.get(t, server.RouteLogin).body, "Credenciales inválidas")
	})
}

func TestAccessGates(t *testing.T) {
	t.Run("anonymous admin request goes to login", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.get(t, server.RouteAdminDashboard)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteLogin+"?next=%2Fadmin", resp.location)
	})

	t.Run("buyers cannot open the back office", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t, testUserEmail)
		resp := f.get(t, server.RouteAdminDashboard)
		require.Equal(t, server.RouteHome, resp.location)
	})

	t.Run("anonymous purchase goes to login", func(t *testing.T) {
		f := setupTestFixture(t)
		f.addRemera(t, "1")
		resp := f.post(t, server.RoutePayByTransfer, url.Values{"deliveryMethod": {backend.DeliveryPickup}})
		require.Equal(t, server.RouteLogin, resp.location)
		require.Zero(t, f.sales.Load())
	})
}

func TestPayByTransfer(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testUserEmail)
	f.addRemera(t, "2")

	t.Run("shipping needs an address", func(t *testing.T) {
		resp := f.post(t, server.RoutePayByTransfer, url.Values{"deliveryMethod": {backend.DeliveryShipping}})
		require.Equal(t, server.RouteCheckout, resp.location)
		require.Zero(t, f.sales.Load())
	})

	t.Run("registers the sale and shows the bank details once", func(t *testing.T) {
		resp := f.post(t, server.RoutePayByTransfer, url.Values{"deliveryMethod": {backend.DeliveryPickup}})
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RoutePaymentTransfer, resp.location)
		require.EqualValues(t, 1, f.sales.Load())

		page := f.get(t, server.RoutePaymentTransfer)
		require.Equal(t, http.StatusOK, page.status)
		require.Contains(t, page.body, "$3000.00")

		require.Eventually(t, func() bool {
			return f.get(t, server.RoutePaymentTransfer).location == server.RouteStorefront
		}, 2*time.Second, 20*time.Millisecond)
		require.Equal(t, server.RouteStorefront, f.get(t, server.RouteCheckout).location)
	})
}

func TestPaymentTransferWithoutPurchase(t *testing.T) {
	t.Run("fresh visitor goes to the storefront", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.get(t, server.RoutePaymentTransfer)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteStorefront, resp.location)
	})

	t.Run("unparseable total goes to the storefront", func(t *testing.T) {
		f := setupTestFixture(t)
		f.addRemera(t, "1")

		repo := f.store.lastVisitor()
		require.NoError(t, repo.Set(storage.KeyJustPurchased, "true"))
		require.NoError(t, repo.Set(storage.KeyTransferTotal, "not-a-number"))

		resp := f.get(t, server.RoutePaymentTransfer)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteStorefront, resp.location)
		require.NotContains(t, resp.body, "not-a-number")

		// the cart survives a rejected handshake
		require.Equal(t, http.StatusOK, f.get(t, server.RouteCheckout).status)
	})
}

func TestSessionExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testUserEmail)
	require.Equal(t, http.StatusOK, f.get(t, server.RouteMyOrders).status)

	f.expireOrder.Store(true)
	resp := f.get(t, server.RouteMyOrders)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteLogin+"?next=%2Fmy-orders", resp.location)

	// the failed refresh logged the visitor out
	f.expireOrder.Store(false)
	require.Equal(t, server.RouteLogin+"?next=%2Fmy-orders", f.get(t, server.RouteMyOrders).location)
}

func TestCatalog(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("product page", func(t *testing.T) {
		page := f.get(t, "/tienda/1")
		require.Equal(t, http.StatusOK, page.status)
		require.Contains(t, page.body, "Remera")
	})

	t.Run("missing product is a 404", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, f.get(t, "/tienda/99").status)
		require.Equal(t, http.StatusNotFound, f.get(t, "/tienda/abc").status)
	})

	t.Run("search answers json", func(t *testing.T) {
		resp := f.get(t, server.RouteSearch+"?q=rem")
		require.Equal(t, http.StatusOK, resp.status)

		var res backend.SearchResult
		require.NoError(t, json.Unmarshal([]byte(resp.body), &res))
		require.Len(t, res.Products, 1)
		require.Equal(t, "Remera", res.Products[0].Name)
	})

	t.Run("blank search has no hits", func(t *testing.T) {
		resp := f.get(t, server.RouteSearch+"?q=+")
		require.Equal(t, http.StatusOK, resp.status)

		var res backend.SearchResult
		require.NoError(t, json.Unmarshal([]byte(resp.body), &res))
		require.True(t, res.Empty())
	})
}

func TestAssets(t *testing.T) {
	f := setupTestFixture(t)

	css := f.get(t, "/css/site.css")
	require.Equal(t, http.StatusOK, css.status)
	require.Equal(t, "text/css; charset=utf-8", css.header.Get("Content-Type"))
	etag := css.header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, f.storefront.URL+"/css/site.css", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, f.do(t, req).status)

	require.Equal(t, http.StatusNotFound, f.get(t, "/css/missing.css").status)
	require.Equal(t, http.StatusNotFound, f.get(t, "/js/site.css").status)
}
