package call

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers call flow routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/start-session", h.StartSession)
	r.Get("/introduction", h.GetIntroduction)
	r.Get("/next-question", h.NextQuestion)
	r.Post("/submit-answer", h.SubmitAnswer)
	r.Post("/save-call-analytics", h.SaveCallAnalytics)
	r.Get("/questions", h.GetQuestions)
}
