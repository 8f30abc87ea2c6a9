package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const msgAdminLoadFailed = "No se pudieron cargar los datos."

// loadFailed reports a failed back office read. It returns true when the
// visitor was redirected because the session ended.
func loadFailed(w http.ResponseWriter, r *http.Request, v *visitor, data map[string]any, err error) bool {
	if errors.Is(err, errors.ErrSessionExpired) {
		redirectOnError(w, r, v, err, RouteLogin, msgAdminLoadFailed)
		return true
	}
	log.Err(err).Str("path", r.URL.Path).Msg("admin load failed")
	data["Error"] = backend.MessageOf(err, msgAdminLoadFailed)
	return false
}

// AdminDashboardHandler renders the admin dashboard
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		products, err := s.api.Products(r.Context(), 0)
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}
		sales, err := v.api.Sales(r.Context())
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}

		revenue := 0.0
		for _, sale := range sales {
			revenue += sale.Total
		}
		data["ProductCount"] = len(products)
		data["SaleCount"] = len(sales)
		data["Revenue"] = revenue

		s.renderAdminPage(w, r, v, "dashboard", "Dashboard", "admin_dashboard.html", data)
	}
}

// AdminProductsHandler lists the catalog
func (s *Server) AdminProductsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		products, err := s.api.Products(r.Context(), 0)
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}
		data["Products"] = products

		s.renderAdminPage(w, r, v, "products", "Productos", "admin_products.html", data)
	}
}

// productFormView prefills the product form; blank on create
type productFormView struct {
	Action   string
	Product  backend.Product
	Variants []variantFormView
}

type variantFormView struct {
	Name    string
	Options string
}

// AdminProductFormHandler renders the create form, or the edit form when the
// route carries an id
func (s *Server) AdminProductFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}
		form := productFormView{Action: RouteAdminProducts}

		if raw := r.PathValue("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				redirectWithError(w, r, v, RouteAdminProducts, msgProductNotFound)
				return
			}
			product, err := s.api.Product(r.Context(), id)
			if err != nil {
				redirectOnError(w, r, v, err, RouteAdminProducts, msgProductNotFound)
				return
			}
			form.Action = RouteAdminProducts + "/" + raw
			form.Product = *product
			for _, variant := range product.Variants {
				view := variantFormView{Name: variant.Name}
				for i, opt := range variant.Options {
					if i > 0 {
						view.Options += ", "
					}
					view.Options += opt.Value
				}
				form.Variants = append(form.Variants, view)
			}
		}
		// one blank row to add a variant
		form.Variants = append(form.Variants, variantFormView{})
		data["Form"] = form

		categories, err := s.api.Categories(r.Context(), backend.CategoryFilter{})
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}
		data["Categories"] = categories

		title := "Nuevo producto"
		if form.Product.ID != 0 {
			title = "Editar producto"
		}
		s.renderAdminPage(w, r, v, "products", title, "admin_product_form.html", data)
	}
}

// AdminCategoriesHandler lists categories with their product counts
func (s *Server) AdminCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		categories, err := s.api.Categories(r.Context(), backend.CategoryFilter{WithCounts: true})
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}
		data["Categories"] = categories

		s.renderAdminPage(w, r, v, "categories", "Categorías", "admin_categories.html", data)
	}
}

// carouselSlotView is one slot of the carousel editor; Image is nil when empty
type carouselSlotView struct {
	Order int
	Image *backend.CarouselImage
}

// AdminCarouselHandler shows the fixed carousel slots
func (s *Server) AdminCarouselHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		images, err := s.api.CarouselImages(r.Context())
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}

		slots := make([]carouselSlotView, s.config.GetCarouselSlots())
		for i := range slots {
			slots[i].Order = i
		}
		for i := range images {
			if o := images[i].Order; o >= 0 && o < len(slots) {
				slots[o].Image = &images[i]
			}
		}
		data["Slots"] = slots

		s.renderAdminPage(w, r, v, "carousel", "Carrusel", "admin_carousel.html", data)
	}
}

// AdminSalesHandler lists every sale
func (s *Server) AdminSalesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		data := map[string]any{}

		sales, err := v.api.Sales(r.Context())
		if err != nil && loadFailed(w, r, v, data, err) {
			return
		}
		data["Sales"] = sales

		s.renderAdminPage(w, r, v, "sales", "Ventas", "admin_sales.html", data)
	}
}

// AdminCreateAdminPageHandler renders the back office user form
func (s *Server) AdminCreateAdminPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		s.renderAdminPage(w, r, v, "users", "Crear administrador", "admin_create_admin.html", nil)
	}
}

// AdminIntegrationsHandler renders the catalog sync controls
func (s *Server) AdminIntegrationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		s.renderAdminPage(w, r, v, "integrations", "Integraciones", "admin_integrations.html", map[string]any{
			"Scopes": []backend.ZecatScope{backend.ZecatAll, backend.ZecatCategories, backend.ZecatProducts},
		})
	}
}
