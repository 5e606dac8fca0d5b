package api

import (
	"net/http"
)

// openPaths are reachable without an API key: the health probe, the metrics
// scrape, and the WebSocket stream (which carries no control surface).
var openPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
	"/ws":      true,
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("X-API-Key") != s.cfg.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
