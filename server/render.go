package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/jrsteele09/go-merch-storefront/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// pageData is what every layout needs on top of the page's own fields
func (s *Server) pageData(w http.ResponseWriter, r *http.Request, v *visitor, title string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	claims, loggedIn := v.session.Claims()

	data["AppName"] = s.config.GetAppName()
	data["PageTitle"] = title
	data["Path"] = r.URL.Path
	data["CSRFField"] = csrf.TemplateField(r)
	data["LoggedIn"] = loggedIn
	data["IsAdmin"] = loggedIn && claims.IsAdmin()
	data["UserName"] = claims.DisplayName()
	data["Cart"] = v.cart
	data["CartOpen"] = v.cart.IsOpen()
	data["Notices"] = utils.ToStringSlice(v.web.Flashes(noticeFlashKey))
	data["Errors"] = utils.ToStringSlice(v.web.Flashes(errorFlashKey))

	// Reading the flashes consumed them
	v.save(w, r)
	return data
}

// renderPage renders contentTemplate inside the storefront layout
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, v *visitor, title, contentTemplate string, data map[string]any) {
	s.renderInLayout(w, r, v, http.StatusOK, "layout.html", title, contentTemplate, data)
}

// renderAdminPage renders a page with the admin layout
func (s *Server) renderAdminPage(w http.ResponseWriter, r *http.Request, v *visitor, activePage, title, contentTemplate string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["ActivePage"] = activePage
	s.renderInLayout(w, r, v, http.StatusOK, "admin_layout.html", title, contentTemplate, data)
}

// renderError renders the storefront error page with status
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, v *visitor, status int, msg string) {
	s.renderInLayout(w, r, v, status, "layout.html", "Error", "error.html", map[string]any{"Message": msg})
}

func (s *Server) renderInLayout(w http.ResponseWriter, r *http.Request, v *visitor, status int, layout, title, contentTemplate string, data map[string]any) {
	data = s.pageData(w, r, v, title, data)

	// Load content template
	contentTmpl, err := ParseTemplate(contentTemplate)
	if err != nil {
		log.Err(err).Str("template", contentTemplate).Msg("Failed to parse content template")
		http.Error(w, "Failed to load content template", http.StatusInternalServerError)
		return
	}

	// Render content to string
	var contentBuf strings.Builder
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		log.Err(err).Str("template", contentTemplate).Msg("Failed to render content template")
		http.Error(w, "Failed to render content", http.StatusInternalServerError)
		return
	}
	data["Content"] = template.HTML(contentBuf.String())

	// Load layout template
	layoutTmpl, err := ParseTemplate(layout)
	if err != nil {
		log.Err(err).Str("template", layout).Msg("Failed to parse layout template")
		http.Error(w, "Failed to load layout template", http.StatusInternalServerError)
		return
	}

	var page strings.Builder
	if err := layoutTmpl.Execute(&page, data); err != nil {
		log.Err(err).Str("template", layout).Msg("Failed to render layout template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(page.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}
