package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/imaging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	maxUploadBytes = 32 << 20

	msgInvalidProduct   = "Completá nombre, precio y categoría."
	msgInvalidImage     = "La imagen no es válida. Usá JPG o PNG."
	msgSaveFailed       = "No se pudieron guardar los cambios."
	msgDeleteFailed     = "No se pudo eliminar."
	msgSaved            = "Cambios guardados."
	msgDeleted          = "Eliminado."
	msgAdminCreated     = "Administrador creado."
	msgSyncDone         = "Sincronización completada."
	msgSyncFailed       = "La sincronización falló."
	msgInvalidSyncScope = "Alcance de sincronización inválido."
	msgCategoryImage    = "La categoría necesita una imagen."
	msgCarouselSlot     = "Elegí un lugar del carrusel."
)

// readImages prepares every upload under field for the backend
func (s *Server) readImages(r *http.Request, field string) ([]backend.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	files := make([]backend.File, 0, len(headers))
	for _, fh := range headers {
		file, err := s.readImage(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func (s *Server) readImage(fh *multipart.FileHeader) (backend.File, error) {
	f, err := fh.Open()
	if err != nil {
		return backend.File{}, errors.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return backend.File{}, errors.Wrapf(err, "read upload %s", fh.Filename)
	}
	prepared, err := imaging.Prepare(fh.Filename, data, int(s.config.GetMaxImageWidth()))
	if err != nil {
		return backend.File{}, err
	}
	return backend.File{Name: prepared.Name, ContentType: prepared.ContentType, Data: prepared.Data}, nil
}

func parseUpload(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// readProductInput reads the product form. Variants arrive as parallel
// variantName / variantOptions fields, options comma separated.
func (s *Server) readProductInput(r *http.Request) (backend.ProductInput, error) {
	if err := parseUpload(r); err != nil {
		return backend.ProductInput{}, err
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("price")), 64)
	if err != nil || price < 0 {
		return backend.ProductInput{}, errors.Errorf("price %q", r.FormValue("price"))
	}
	categoryID, err := strconv.ParseInt(r.FormValue("categoryId"), 10, 64)
	if err != nil {
		return backend.ProductInput{}, errors.Errorf("category %q", r.FormValue("categoryId"))
	}
	in := backend.ProductInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       price,
		CategoryID:  categoryID,
	}
	if in.Name == "" {
		return backend.ProductInput{}, errors.New("name is required")
	}

	names := r.Form["variantName"]
	options := r.Form["variantOptions"]
	for i, name := range names {
		var opts []string
		if i < len(options) {
			opts = strings.Split(options[i], ",")
		}
		in.Variants = append(in.Variants, backend.VariantInput{Name: name, Options: opts})
	}
	return in, nil
}

// AdminProductCreateHandler creates a product with its images
func (s *Server) AdminProductCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		in, err := s.readProductInput(r)
		if err != nil {
			log.Debug().Err(err).Msg("invalid product form")
			redirectWithError(w, r, v, RouteAdminProductNew, msgInvalidProduct)
			return
		}
		if in.Images, err = s.readImages(r, "images"); err != nil {
			log.Debug().Err(err).Msg("invalid product image")
			redirectWithError(w, r, v, RouteAdminProductNew, msgInvalidImage)
			return
		}

		if _, err := v.api.CreateProduct(r.Context(), in); err != nil {
			redirectOnError(w, r, v, err, RouteAdminProductNew, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminProducts)
	}
}

// AdminProductUpdateHandler replaces a product. New images are appended by
// the backend.
func (s *Server) AdminProductUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			redirectWithError(w, r, v, RouteAdminProducts, msgProductNotFound)
			return
		}
		edit := RouteAdminProducts + "/" + r.PathValue("id") + "/edit"

		in, err := s.readProductInput(r)
		if err != nil {
			log.Debug().Err(err).Msg("invalid product form")
			redirectWithError(w, r, v, edit, msgInvalidProduct)
			return
		}
		if in.Images, err = s.readImages(r, "images"); err != nil {
			log.Debug().Err(err).Msg("invalid product image")
			redirectWithError(w, r, v, edit, msgInvalidImage)
			return
		}

		if _, err := v.api.UpdateProduct(r.Context(), id, in); err != nil {
			redirectOnError(w, r, v, err, edit, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminProducts)
	}
}

func (s *Server) AdminProductDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			redirectWithError(w, r, v, RouteAdminProducts, msgProductNotFound)
			return
		}
		if err := v.api.DeleteProduct(r.Context(), id); err != nil {
			redirectOnError(w, r, v, err, RouteAdminProducts, msgDeleteFailed)
			return
		}
		v.notify(msgDeleted)
		redirectSuccess(w, r, v, RouteAdminProducts)
	}
}

// AdminCategoryCreateHandler creates a category; the image is required
func (s *Server) AdminCategoryCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if err := parseUpload(r); err != nil {
			redirectWithError(w, r, v, RouteAdminCategories, msgInvalidImage)
			return
		}
		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			redirectWithError(w, r, v, RouteAdminCategories, msgMissingFields)
			return
		}
		images, err := s.readImages(r, "image")
		if err != nil {
			redirectWithError(w, r, v, RouteAdminCategories, msgInvalidImage)
			return
		}
		if len(images) == 0 {
			redirectWithError(w, r, v, RouteAdminCategories, msgCategoryImage)
			return
		}

		if _, err := v.api.CreateCategory(r.Context(), name, images[0]); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCategories, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminCategories)
	}
}

func (s *Server) AdminCategoryDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			redirectWithError(w, r, v, RouteAdminCategories, msgDeleteFailed)
			return
		}
		if err := v.api.DeleteCategory(r.Context(), id); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCategories, msgDeleteFailed)
			return
		}
		v.notify(msgDeleted)
		redirectSuccess(w, r, v, RouteAdminCategories)
	}
}

// AdminCarouselUploadHandler uploads an image into a slot and saves the
// layout with the new image replacing whatever held that slot
func (s *Server) AdminCarouselUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if err := parseUpload(r); err != nil {
			redirectWithError(w, r, v, RouteAdminCarousel, msgInvalidImage)
			return
		}
		order, err := strconv.Atoi(r.FormValue("order"))
		if err != nil || order < 0 || order >= s.config.GetCarouselSlots() {
			redirectWithError(w, r, v, RouteAdminCarousel, msgCarouselSlot)
			return
		}
		files, err := s.readImages(r, "file")
		if err != nil || len(files) == 0 {
			redirectWithError(w, r, v, RouteAdminCarousel, msgInvalidImage)
			return
		}

		imageURL, err := v.api.UploadCarouselImage(r.Context(), files[0], order)
		if err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgSaveFailed)
			return
		}

		current, err := s.api.CarouselImages(r.Context())
		if err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgSaveFailed)
			return
		}
		slots := []backend.CarouselSlot{{ImageURL: imageURL, Order: order}}
		for _, img := range current {
			if img.Order != order && img.ImageURL != imageURL {
				slots = append(slots, backend.CarouselSlot{ID: img.ID, ImageURL: img.ImageURL, Order: img.Order})
			}
		}
		if err := v.api.SaveCarousel(r.Context(), slots); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminCarousel)
	}
}

// AdminCarouselOrderHandler saves a new slot order. The form repeats id,
// imageUrl and order once per image.
func (s *Server) AdminCarouselOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, v, RouteAdminCarousel, msgSaveFailed)
			return
		}
		ids, urls, orders := r.PostForm["id"], r.PostForm["imageUrl"], r.PostForm["order"]
		if len(ids) != len(urls) || len(ids) != len(orders) {
			redirectWithError(w, r, v, RouteAdminCarousel, msgSaveFailed)
			return
		}

		slots := make([]backend.CarouselSlot, 0, len(ids))
		for i := range ids {
			order, err := strconv.Atoi(orders[i])
			if err != nil {
				redirectWithError(w, r, v, RouteAdminCarousel, msgCarouselSlot)
				return
			}
			slots = append(slots, backend.CarouselSlot{ID: backend.FlexID(ids[i]), ImageURL: urls[i], Order: order})
		}
		if err := v.api.SaveCarousel(r.Context(), slots); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminCarousel)
	}
}

func (s *Server) AdminCarouselDeactivateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if err := v.api.DeactivateCarouselImage(r.Context(), backend.FlexID(r.PathValue("id"))); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgSaveFailed)
			return
		}
		v.notify(msgSaved)
		redirectSuccess(w, r, v, RouteAdminCarousel)
	}
}

func (s *Server) AdminCarouselDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		if err := v.api.DeleteCarouselImage(r.Context(), backend.FlexID(r.PathValue("id"))); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCarousel, msgDeleteFailed)
			return
		}
		v.notify(msgDeleted)
		redirectSuccess(w, r, v, RouteAdminCarousel)
	}
}

// AdminCreateAdminHandler registers another back office user
func (s *Server) AdminCreateAdminHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		req := backend.CreateAdminRequest{
			Email:     strings.TrimSpace(r.PostFormValue("email")),
			Password:  r.PostFormValue("password"),
			FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
			LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		}
		if req.Email == "" || req.Password == "" {
			redirectWithError(w, r, v, RouteAdminCreateAdmin, msgMissingFields)
			return
		}
		if err := v.api.CreateAdmin(r.Context(), req); err != nil {
			redirectOnError(w, r, v, err, RouteAdminCreateAdmin, msgSaveFailed)
			return
		}
		log.Info().Str("email", req.Email).Msg("admin created")
		v.notify(msgAdminCreated)
		redirectSuccess(w, r, v, RouteAdminCreateAdmin)
	}
}

// AdminZecatSyncHandler runs the catalog import for the posted scope
func (s *Server) AdminZecatSyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		scope := backend.ZecatScope(r.PostFormValue("scope"))
		if !scope.Valid() {
			redirectWithError(w, r, v, RouteAdminIntegrations, msgInvalidSyncScope)
			return
		}
		if err := v.api.SyncZecat(r.Context(), scope); err != nil {
			redirectOnError(w, r, v, err, RouteAdminIntegrations, msgSyncFailed)
			return
		}
		log.Info().Str("scope", string(scope)).Msg("zecat sync finished")
		v.notify(msgSyncDone)
		redirectSuccess(w, r, v, RouteAdminIntegrations)
	}
}
