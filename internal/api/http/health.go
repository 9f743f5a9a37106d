package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/docsauth/internal/api/authn"
	"github.com/aussiebroadwan/docsauth/pkg/authsdk"
	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/slogx"
)

// LivezHandler reports the process is up.
func LivezHandler(start time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(start).Round(time.Second).String(),
			Version: version,
		})
	}
}

// ReadyzHandler reports whether tokens can be verified, which for both
// strategies means the identity provider is reachable.
func ReadyzHandler(version string, v httpx.TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready, ok := v.(authn.Readiness); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := ready.Ready(ctx); err != nil {
				slogx.FromContext(r.Context()).Warn("identity provider not ready", "err", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{Status: "unavailable", Version: version})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok", Version: version})
	}
}
