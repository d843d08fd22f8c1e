package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/castellan-io/castellan/internal/authz"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit endpoints. The listing and export routes
// carry a stricter per-caller rate limit than the rest of the API.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Post("/impersonation", h.handleLogImpersonation)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/", h.handleList)
		gr.Get("/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if subject := strings.TrimSpace(authz.FromContext(r.Context()).SubjectID); subject != "" {
		return "subject:" + subject, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
