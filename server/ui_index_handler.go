package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgCatalogUnavailable = "No pudimos cargar el catálogo. Intentá de nuevo en unos minutos."
	msgProductNotFound    = "El producto no existe."
)

// HomeHandler renders the carousel and the categories that have products
func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		slides, err := s.api.CarouselImages(r.Context())
		if err != nil {
			log.Err(err).Msg("loading carousel")
		}
		active := slides[:0]
		for _, img := range slides {
			if img.IsActive {
				active = append(active, img)
			}
		}
		data["Slides"] = active

		categories, err := s.api.Categories(r.Context(), backend.HomeCategories())
		if err != nil {
			log.Err(err).Msg("loading home categories")
			data["Error"] = msgCatalogUnavailable
		}
		data["Categories"] = categories

		s.renderPage(w, r, v, "Inicio", "home.html", data)
	}
}

// StorefrontHandler lists products, optionally of one category
func (s *Server) StorefrontHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)

		data := map[string]any{"CategoryID": categoryID}
		categories, err := s.api.Categories(r.Context(), backend.CategoryFilter{HideEmpty: true})
		if err != nil {
			log.Err(err).Msg("loading categories")
		}
		data["Categories"] = categories

		products, err := s.api.Products(r.Context(), categoryID)
		if err != nil {
			log.Err(err).Int64("category", categoryID).Msg("loading products")
			data["Error"] = msgCatalogUnavailable
		}
		data["Products"] = products

		s.renderPage(w, r, v, "Tienda", "storefront.html", data)
	}
}

// ProductHandler renders one product with its variant selector
func (s *Server) ProductHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.renderError(w, r, v, http.StatusNotFound, msgProductNotFound)
			return
		}

		product, err := s.api.Product(r.Context(), id)
		if backend.StatusOf(err) == http.StatusNotFound {
			s.renderError(w, r, v, http.StatusNotFound, msgProductNotFound)
			return
		}
		if err != nil {
			log.Err(err).Int64("product", id).Msg("loading product")
			s.renderError(w, r, v, http.StatusBadGateway, msgCatalogUnavailable)
			return
		}

		s.renderPage(w, r, v, product.Name, "product.html", map[string]any{"Product": product})
	}
}

// SearchHandler answers the search box. A newer query from the same visitor
// cancels this one, which then answers 204.
func (s *Server) SearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		search := s.typeaheads.get(v.id, s.api)

		res, err := search.Search(r.Context(), r.URL.Query().Get("q"))
		if errors.Is(err, context.Canceled) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			log.Err(err).Msg("search failed")
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": backend.MessageOf(err, "search unavailable")})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
