package auth

import (
	"encoding/json"
	"net/http"

	"github.com/openbias/biasd/internal/models"
)

const (
	apiKeyHeader     = "api-key"
	apiKeyQueryParam = "api_key"
)

// Middleware enforces authentication. In open mode all requests pass
// through; otherwise the api-key header or the api_key query parameter must
// carry a configured key.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if s.VerifyKey(r.Header.Get(apiKeyHeader)) || s.VerifyKey(r.URL.Query().Get(apiKeyQueryParam)) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(models.ErrUnauthorized.Status)
		_ = json.NewEncoder(w).Encode(models.ErrUnauthorized)
	})
}
