package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const noticeSessionExpired = "Sesión expirada. Iniciá sesión nuevamente."

// redirectSuccess helper for htmx-aware redirects. The visitor cookie is saved
// first so queued notices survive the redirect.
func redirectSuccess(w http.ResponseWriter, r *http.Request, v *visitor, path string) {
	if v != nil {
		v.save(w, r)
	}
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError shows errorMsg as a toast on the page at path
func redirectWithError(w http.ResponseWriter, r *http.Request, v *visitor, path, errorMsg string) {
	v.alert(errorMsg)
	redirectSuccess(w, r, v, path)
}

// redirectOnError turns a failed backend call into a redirect. An expired
// session goes to the login page, anything else back to path with the
// backend's message or fallback.
func redirectOnError(w http.ResponseWriter, r *http.Request, v *visitor, err error, path, fallback string) {
	if errors.Is(err, errors.ErrSessionExpired) {
		v.notify(noticeSessionExpired)
		redirectSuccess(w, r, v, loginURL(returnPath(r)))
		return
	}
	if !errors.Is(err, context.Canceled) {
		log.Err(err).Str("path", r.URL.Path).Str("visitor", v.id).Msg("backend call failed")
	}
	redirectWithError(w, r, v, path, backend.MessageOf(err, fallback))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
