package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// QueryParam carries the key on WebSocket upgrade requests. Browsers cannot
// set custom headers on a WebSocket handshake, so only upgrades may use it.
const QueryParam = "api_key"

// APIKey returns middleware that enforces API key authentication on every
// request whose path is not in exempt.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the value of header is compared to key in constant time.
//     WebSocket upgrade requests without the header may pass the key in the
//     QueryParam query parameter instead.
//   - A missing, empty, or incorrect key returns 401 Unauthorized.
func APIKey(mode, header, key string, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		// Non-apikey modes or unconfigured key → allow everything.
		if mode != "apikey" || key == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(header)
			if got == "" && websocket.IsWebSocketUpgrade(r) {
				got = r.URL.Query().Get(QueryParam)
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				slog.Debug("auth: rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
