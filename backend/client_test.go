package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	mux    *http.ServeMux
	server *httptest.Server
	client *backend.Client
	calls  atomic.Int32
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{mux: http.NewServeMux()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	f.client = backend.New(f.server.URL+"/", f.server.Client())
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPError(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /product/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Producto no encontrado"})
	})
	f.mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": []string{"email must be an email", "password too short"}})
	})

	_, err := f.client.Product(context.Background(), 1)
	require.ErrorIs(t, err, errors.ErrNetworkFailure)
	require.Equal(t, http.StatusNotFound, backend.StatusOf(err))
	require.Equal(t, "Producto no encontrado", backend.MessageOf(err, "fallback"))

	err = f.client.Register(context.Background(), backend.RegisterRequest{Email: "x"})
	require.Equal(t, "email must be an email, password too short", backend.MessageOf(err, "fallback"))
}

func TestTransportErrorIsNetworkFailure(t *testing.T) {
	client := backend.New("http://127.0.0.1:1", nil)
	_, err := client.Categories(context.Background(), backend.CategoryFilter{})
	require.ErrorIs(t, err, errors.ErrNetworkFailure)
	require.Zero(t, backend.StatusOf(err))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "camel case", body: map[string]string{"accessToken": "at", "refreshToken": "rt"}},
		{name: "snake case", body: map[string]string{"access_token": "at", "refresh_token": "rt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
				var req backend.LoginRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				require.Equal(t, "ana@example.com", req.Email)
				writeJSON(w, http.StatusOK, tt.body)
			})

			res, err := f.client.Login(context.Background(), "ana@example.com", "secret")
			require.NoError(t, err)
			require.Equal(t, "at", res.AccessToken)
			require.Equal(t, "rt", res.RefreshToken)
		})
	}
}

func TestCategoriesQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /category", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("hideEmpty"))
		require.Equal(t, "true", r.URL.Query().Get("withCounts"))
		require.Equal(t, "false", r.URL.Query().Get("onlyActive"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "Remeras", "imageUrl": "/r.jpg", "_count": map[string]int{"products": 4}},
			{"id": 2, "name": "Tazas", "imageUrl": "/t.jpg"},
		})
	})

	cats, err := f.client.Categories(context.Background(), backend.HomeCategories())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	require.Equal(t, 4, cats[0].ProductCount())
	require.Equal(t, -1, cats[1].ProductCount())
}

func TestCreateProductMultipart(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /product", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Remera", r.FormValue("name"))
		require.Equal(t, "12.5", r.FormValue("price"))
		require.Equal(t, "3", r.FormValue("categoryId"))
		require.JSONEq(t, `[{"name":"Talle","options":["S","M"]}]`, r.FormValue("variants"))

		files := r.MultipartForm.File["images"]
		require.Len(t, files, 1)
		require.Equal(t, "front.jpg", files[0].Filename)
		fh, err := files[0].Open()
		require.NoError(t, err)
		data, err := io.ReadAll(fh)
		require.NoError(t, err)
		require.Equal(t, "jpeg-bytes", string(data))

		writeJSON(w, http.StatusCreated, map[string]any{"id": 10, "name": "Remera", "price": 12.5})
	})

	p, err := f.client.CreateProduct(context.Background(), backend.ProductInput{
		Name:       "Remera",
		Price:      12.5,
		CategoryID: 3,
		Variants: []backend.VariantInput{
			{Name: " Talle ", Options: []string{"S", " ", "M"}},
			{Name: "Color"},
			{Name: " ", Options: []string{"rojo"}},
		},
		Images: []backend.File{{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, p.ID)
}

func TestCarousel(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /carousel-image", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "b", "imageUrl": "/2.jpg", "order": 2, "isActive": true},
			{"id": 7, "imageUrl": "/0.jpg", "order": 0, "isActive": true},
		})
	})
	var saved []backend.CarouselSlot
	f.mux.HandleFunc("PATCH /carousel-image/bulk", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
		w.WriteHeader(http.StatusOK)
	})
	f.mux.HandleFunc("PATCH /carousel-image/7", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]bool{"isActive": false}, body)
		w.WriteHeader(http.StatusOK)
	})

	images, err := f.client.CarouselImages(context.Background())
	require.NoError(t, err)
	require.Equal(t, backend.FlexID("7"), images[0].ID)
	require.Equal(t, backend.FlexID("b"), images[1].ID)

	require.NoError(t, f.client.SaveCarousel(context.Background(), []backend.CarouselSlot{
		{ID: "7", ImageURL: "/0.jpg", Order: 1},
		{ImageURL: "", Order: 2},
		{ImageURL: "/x.jpg", Order: -1},
	}))
	require.Len(t, saved, 1)
	require.Equal(t, 1, saved[0].Order)

	require.NoError(t, f.client.DeactivateCarouselImage(context.Background(), "7"))
	_, err = f.client.UploadCarouselImage(context.Background(), backend.File{Name: "a.jpg"}, -1)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestCreateSale(t *testing.T) {
	t.Run("shipping without address never reaches the backend", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.client.CreateSale(context.Background(), backend.CreateSaleRequest{
			UserID: 1, ProductIDs: []int64{1}, DeliveryMethod: backend.DeliveryShipping,
		})
		require.ErrorIs(t, err, errors.ErrMissingAddress)
		require.Zero(t, f.calls.Load())
	})

	t.Run("returns the backend total", func(t *testing.T) {
		f := setupTestFixture(t)
		f.mux.HandleFunc("POST /sales/secure-create", func(w http.ResponseWriter, r *http.Request) {
			var req backend.CreateSaleRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, []int64{4, 5}, req.ProductIDs)
			require.Equal(t, "Av. Siempreviva 742", req.ShippingAddress)
			writeJSON(w, http.StatusCreated, map[string]any{"total": 150.5})
		})

		res, err := f.client.CreateSale(context.Background(), backend.CreateSaleRequest{
			UserID: 1, ProductIDs: []int64{4, 5}, DeliveryMethod: backend.DeliveryShipping,
			ShippingAddress: "Av. Siempreviva 742",
		})
		require.NoError(t, err)
		require.InDelta(t, 150.5, res.Total, 1e-9)
	})
}

func TestPaymentPreferenceWithoutURL(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /payments/create-preference", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	_, err := f.client.CreatePaymentPreference(context.Background(), backend.PreferenceRequest{Email: "a@b.c"})
	require.ErrorIs(t, err, errors.ErrPaymentUnavailable)
}

func TestSyncZecat(t *testing.T) {
	f := setupTestFixture(t)
	var scope string
	f.mux.HandleFunc("POST /admin/zecat/sync", func(w http.ResponseWriter, r *http.Request) {
		scope = r.URL.Query().Get("scope")
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, f.client.SyncZecat(context.Background(), backend.ZecatCategories))
	require.Equal(t, "categories", scope)
	require.ErrorIs(t, f.client.SyncZecat(context.Background(), "everything"), errors.ErrInvalidRequest)
}

func TestTypeaheadCancelsSupersededQuery(t *testing.T) {
	f := setupTestFixture(t)
	started := make(chan struct{})
	f.mux.HandleFunc("GET /public/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "rem" {
			close(started)
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"products":   []map[string]any{{"id": 1, "name": "Remera", "price": 10, "categoryName": "Ropa"}},
			"categories": []map[string]any{},
		})
	})

	ta := backend.NewTypeahead(f.client)
	firstErr := make(chan error, 1)
	go func() {
		_, err := ta.Search(context.Background(), "rem")
		firstErr <- err
	}()
	<-started

	res, err := ta.Search(context.Background(), "remera")
	require.NoError(t, err)
	require.Len(t, res.Products, 1)

	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search was not cancelled")
	}
}

func TestBlankSearchSkipsBackend(t *testing.T) {
	f := setupTestFixture(t)
	res, err := f.client.Search(context.Background(), "   ", 0)
	require.NoError(t, err)
	require.True(t, res.Empty())
	require.Zero(t, f.calls.Load())
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{raw: "011 1234-5678", want: "1112345678", valid: true},
		{raw: "+54 11 1234 5678", want: "1112345678", valid: true},
		{raw: "1234", want: "1234", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := backend.NormalizePhone(tt.raw)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.valid, ok)
		})
	}
}

// streamForever writes prefix and then filler until the client hangs up
func streamForever(w http.ResponseWriter, r *http.Request, status int, prefix string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, prefix)
	chunk := make([]byte, 32<<10)
	for r.Context().Err() == nil {
		if _, err := w.Write(chunk); err != nil {
			return
		}
		w.(http.Flusher).Flush()
	}
}

func TestErrorBodyIsNotReadToTheEnd(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /product/1", func(w http.ResponseWriter, r *http.Request) {
		streamForever(w, r, http.StatusInternalServerError, `{"message":"boom"}`)
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.client.Product(context.Background(), 1)
		done <- err
	}()

	select {
	case err := <-done:
		require.Equal(t, http.StatusInternalServerError, backend.StatusOf(err))
		require.Equal(t, "boom", backend.MessageOf(err, ""))
	case <-time.After(5 * time.Second):
		t.Fatal("client kept reading an endless error body")
	}
}
