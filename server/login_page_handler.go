package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidCredentials = "Email o contraseña incorrectos."
	msgLoginFailed        = "No se pudo iniciar sesión. Intentá de nuevo."
	msgMissingFields      = "Completá todos los campos."
	msgPasswordMismatch   = "Las contraseñas no coinciden."
	msgInvalidPhone       = "Ingresá un teléfono válido con código de área."
	msgRegisterFailed     = "No se pudo completar el registro."
	msgRegistered         = "Registro exitoso. Iniciá sesión."
	msgLoggedOut          = "Cerraste sesión."
	msgOrdersUnavailable  = "No pudimos cargar tus compras."
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Email string // Preserve email on error
	Next  string
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		s.renderPage(w, r, v, "Iniciar sesión", "login.html", map[string]any{
			"Login": LoginPageData{
				Email: r.URL.Query().Get("email"),
				Next:  safeNext(r.URL.Query().Get("next"), ""),
			},
		})
	}
}

// LoginSubmissionHandler exchanges the credentials for a token pair and
// stores it in the visitor's session. Admins land on the back office.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		next := safeNext(r.PostFormValue("next"), "")

		retry := RouteLogin
		if next != "" {
			retry = loginURL(next)
		}

		if email == "" || password == "" {
			redirectWithError(w, r, v, retry, msgMissingFields)
			return
		}

		tokens, err := s.api.Login(r.Context(), email, password)
		if err != nil {
			switch backend.StatusOf(err) {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
				redirectWithError(w, r, v, retry, backend.MessageOf(err, msgInvalidCredentials))
			default:
				log.Err(err).Msg("login failed")
				redirectWithError(w, r, v, retry, msgLoginFailed)
			}
			return
		}

		if err := v.session.Login(tokens.AccessToken, tokens.RefreshToken); err != nil {
			log.Err(err).Msg("backend issued an unreadable access token")
			redirectWithError(w, r, v, retry, msgLoginFailed)
			return
		}

		claims, _ := v.session.Claims()
		log.Info().Str("visitor", v.id).Str("user", claims.UserID).Str("role", claims.Role).Msg("login")

		switch {
		case next != "":
			redirectSuccess(w, r, v, next)
		case claims.IsAdmin():
			redirectSuccess(w, r, v, RouteAdminDashboard)
		default:
			redirectSuccess(w, r, v, RouteHome)
		}
	}
}

// RegisterPageHandler displays the sign up form
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		s.renderPage(w, r, v, "Crear cuenta", "register.html", map[string]any{
			"RecaptchaSiteKey": s.config.GetRecaptchaSiteKey(),
		})
	}
}

// RegisterSubmissionHandler validates the form locally and forwards it to the
// backend, which owns every other rule
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		req := backend.RegisterRequest{
			Email:     strings.TrimSpace(r.PostFormValue("email")),
			Password:  r.PostFormValue("password"),
			FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
			LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
			Recaptcha: r.PostFormValue("g-recaptcha-response"),
		}

		if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
			redirectWithError(w, r, v, RouteRegister, msgMissingFields)
			return
		}
		if req.Password != r.PostFormValue("confirmPassword") {
			redirectWithError(w, r, v, RouteRegister, msgPasswordMismatch)
			return
		}
		phone, ok := backend.NormalizePhone(r.PostFormValue("phone"))
		if !ok {
			redirectWithError(w, r, v, RouteRegister, msgInvalidPhone)
			return
		}
		req.Phone = phone

		if err := s.api.Register(r.Context(), req); err != nil {
			log.Err(err).Msg("register failed")
			redirectWithError(w, r, v, RouteRegister, backend.MessageOf(err, msgRegisterFailed))
			return
		}

		v.notify(msgRegistered)
		redirectSuccess(w, r, v, RouteLogin+"?email="+url.QueryEscape(req.Email))
	}
}

// LogoutHandler forgets the visitor's tokens. The cart stays.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		v.session.Logout()
		v.notify(msgLoggedOut)
		redirectSuccess(w, r, v, RouteHome)
	}
}

// MyOrdersHandler lists the signed in buyer's purchases
func (s *Server) MyOrdersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		claims, _ := v.session.Claims()

		data := map[string]any{}
		orders, err := v.api.UserOrders(r.Context(), claims.UserID)
		if errors.Is(err, errors.ErrSessionExpired) {
			redirectOnError(w, r, v, err, RouteHome, msgOrdersUnavailable)
			return
		}
		if err != nil {
			log.Err(err).Str("user", claims.UserID).Msg("loading orders")
			data["Error"] = backend.MessageOf(err, msgOrdersUnavailable)
		}
		data["Orders"] = orders

		s.renderPage(w, r, v, "Mis compras", "my_orders.html", data)
	}
}
