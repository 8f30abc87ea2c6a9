package server

// WithoutCSRF turns off the CSRF check so tests can post plain forms
func WithoutCSRF() Option {
	return func(s *Server) {
		s.skipCSRF = true
	}
}
