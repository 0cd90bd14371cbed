package results

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers results and analytics routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/results/{session_id}", func(r chi.Router) {
		r.Get("/", h.GetResults)
		r.Get("/export", h.ExportResults)
	})
	r.Get("/session/{session_id}/analytics", h.GetSessionAnalytics)
	r.Get("/dashboard", h.GetDashboard)
}
