package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-merch-storefront/cart"
)

const (
	msgInvalidItem = "No se pudo agregar el producto al carrito."
	msgItemAdded   = "Producto agregado al carrito."
)

// formVariant reads the optional variant field. A missing field is no
// variant; a present but empty one is the empty variant.
func formVariant(r *http.Request) *string {
	values, ok := r.PostForm["variant"]
	if !ok || len(values) == 0 {
		return nil
	}
	return cart.Variant(values[0])
}

// CartAddHandler snapshots the product from the catalog and merges it into the
// cart, then opens the cart panel
func (s *Server) CartAddHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		back := safeNext(r.FormValue("next"), returnPath(r))

		id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
		if err != nil {
			redirectWithError(w, r, v, back, msgInvalidItem)
			return
		}
		qty := 1
		if raw := r.PostFormValue("quantity"); raw != "" {
			if qty, err = strconv.Atoi(raw); err != nil {
				redirectWithError(w, r, v, back, msgInvalidItem)
				return
			}
		}

		product, err := s.api.Product(r.Context(), id)
		if err != nil {
			redirectOnError(w, r, v, err, back, msgProductNotFound)
			return
		}

		err = v.cart.Add(cart.Item{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.MainImage(),
			Quantity: qty,
			Variant:  formVariant(r),
		})
		if err != nil {
			redirectWithError(w, r, v, back, msgInvalidItem)
			return
		}

		v.setCartOpen(v.cart.IsOpen())
		v.notify(msgItemAdded)
		redirectSuccess(w, r, v, back)
	}
}

// CartRemoveHandler drops the line matching id and variant
func (s *Server) CartRemoveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		back := safeNext(r.FormValue("next"), returnPath(r))

		id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
		if err == nil {
			v.cart.Remove(id, formVariant(r))
		}
		redirectSuccess(w, r, v, back)
	}
}

// CartClearHandler empties the cart
func (s *Server) CartClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		v.cart.Clear()
		redirectSuccess(w, r, v, safeNext(r.FormValue("next"), returnPath(r)))
	}
}

// CartToggleHandler opens or closes the cart panel
func (s *Server) CartToggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		open := !v.cart.IsOpen()
		if raw := r.PostFormValue("open"); raw != "" {
			open, _ = strconv.ParseBool(raw)
		}
		v.setCartOpen(open)
		redirectSuccess(w, r, v, safeNext(r.FormValue("next"), returnPath(r)))
	}
}
