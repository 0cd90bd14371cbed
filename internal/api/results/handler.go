package results

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/logger"
	"github.com/voxline/voiceqa-backend/internal/pkg/response"
)

type Handler struct {
	usecase ResultsUsecase
}

func NewHandler(usecase ResultsUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// GetResults handles GET /api/results/{session_id} - Session transcript
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.AddFields(ctx,
		zap.String("session_id", sessionID),
		zap.String("action", "GetResults"),
	)

	ctxzap.Debug(ctx, "fetching session results")

	results, err := h.usecase.GetSessionResults(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, results)
}

// ExportResults handles GET /api/results/{session_id}/export - Transcript download
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.AddFields(ctx,
		zap.String("session_id", sessionID),
		zap.String("action", "ExportResults"),
	)

	formatParam := r.URL.Query().Get("format")
	switch formatParam {
	case "":
		formatParam = string(entity.FormatMarkdown)
	case "md":
		// Short form used by download links.
		formatParam = string(entity.FormatMarkdown)
	}

	format := entity.ResultFormat(formatParam)
	if !format.IsValid() {
		ctxzap.Warn(ctx, "invalid format parameter", zap.String("format", formatParam))
		h.respondError(ctx, w, http.StatusBadRequest, "format must be one of: markdown, docx, pdf", entity.ErrInvalidFormat)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("format", string(format)))

	export, err := h.usecase.ExportResults(ctx, sessionID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "results exported", zap.Int("bytes", len(export.Data)))
	response.File(w, export.ContentType, export.Filename, export.Data)
}

// GetSessionAnalytics handles GET /api/session/{session_id}/analytics
func (h *Handler) GetSessionAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.AddFields(ctx,
		zap.String("session_id", sessionID),
		zap.String("action", "GetSessionAnalytics"),
	)

	analytics, err := h.usecase.GetSessionAnalytics(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, analytics)
}

// GetDashboard handles GET /api/dashboard - Aggregates across all sessions
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GetDashboard")

	stats, err := h.usecase.GetDashboard(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// Helper methods
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.JSON(w, status, data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrSessionNotFound) || errors.Is(err, entity.ErrAnswerNotFound) {
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	} else if errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrInvalidFormat) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
