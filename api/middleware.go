package api

import (
	"net/http"

	"github.com/mapy-io/mapy/api/util"
)

// middleware handles request logging & CORS for control-plane routes
func (s *Server) middleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Infof("%s %s", r.Method, r.URL.Path)

		s.addCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			util.EmptyOkHandler(w, r)
			return
		}

		handler(w, r)
	}
}

// dispatchMiddleware fronts the catch-all data plane: CORS headers are
// still added, but per-request logging is left to the log ring
func (s *Server) dispatchMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.addCORSHeaders(w, r)
		handler.ServeHTTP(w, r)
	})
}

// addCORSHeaders adds CORS header info for allowed origins. The default
// configuration permits any origin, any headers, and all mutating verbs
func (s *Server) addCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, o := range s.cfg.API.AllowedOrigins {
		if o == "*" || o == origin {
			if o == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			return
		}
	}
}
