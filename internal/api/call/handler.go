package call

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/logger"
	"github.com/voxline/voiceqa-backend/internal/pkg/response"
	"github.com/voxline/voiceqa-backend/internal/pkg/validator"
)

type Handler struct {
	usecase   CallUsecase
	validator *validator.Validator
}

func NewHandler(usecase CallUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// StartSession handles POST /api/start-session - Start new call session
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "StartSession")

	resp, err := h.usecase.StartSession(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

// GetIntroduction handles GET /api/introduction - Greeting text and audio
func (h *Handler) GetIntroduction(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GetIntroduction")

	resp, err := h.usecase.GetIntroduction(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// NextQuestion handles GET /api/next-question - Question at a zero-based index
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.URL.Query().Get("session_id")

	ctx = logger.AddFields(ctx,
		zap.String("session_id", sessionID),
		zap.String("action", "NextQuestion"),
	)

	if sessionID == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "session_id is required", entity.ErrMissingField)
		return
	}

	indexParam := r.URL.Query().Get("index")
	index, err := strconv.Atoi(indexParam)
	if err != nil || index < 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "index must be a non-negative integer", entity.ErrInvalidParameter)
		return
	}

	ctxzap.Debug(ctx, "fetching question", zap.Int("index", index))

	resp, err := h.usecase.NextQuestion(ctx, sessionID, index)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// SubmitAnswer handles POST /api/submit-answer - Submit recorded answer audio
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "SubmitAnswer")

	if err := r.ParseMultipartForm(h.validator.MaxUploadSize()); err != nil {
		ctxzap.Error(ctx, "failed to parse multipart form", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "failed to parse form", err)
		return
	}

	sessionID := r.FormValue("session_id")
	questionID, err := strconv.Atoi(r.FormValue("question_id"))
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "question_id must be an integer", entity.ErrInvalidParameter)
		return
	}

	// Attempt is optional; the client sends rejections+1 so the fallback
	// phrasing can change on repeats.
	attempt := 1
	if v := r.FormValue("attempt"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			attempt = parsed
		}
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		ctxzap.Error(ctx, "missing audio file", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "audio_file is required", err)
		return
	}
	defer file.Close()

	ctx = logger.AddFields(ctx,
		zap.String("session_id", sessionID),
		zap.Int("question_id", questionID),
	)

	if err := h.validator.ValidateSubmitAnswer(sessionID, questionID, header); err != nil {
		ctxzap.Error(ctx, "failed to validate request", zap.Error(err))
		h.handleUsecaseError(ctx, w, err)
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "failed to read audio file", err)
		return
	}

	ctxzap.Info(ctx, "submitting answer",
		zap.Int64("size_bytes", header.Size),
		zap.Int("attempt", attempt),
	)

	resp, err := h.usecase.SubmitAnswer(ctx, sessionID, questionID, audio, attempt)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// SaveCallAnalytics handles POST /api/save-call-analytics - End-of-call flush
func (h *Handler) SaveCallAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "SaveCallAnalytics")

	var req entity.SaveCallAnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateSaveAnalytics(&req); err != nil {
		ctxzap.Error(ctx, "failed to validate request", zap.Error(err))
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("session_id", req.SessionID))
	ctxzap.Info(ctx, "saving call analytics",
		zap.Int("entries", len(req.Analytics)),
		zap.String("status", string(req.Status)),
	)

	resp, err := h.usecase.SaveCallAnalytics(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetQuestions handles GET /api/questions - Full call script in order
func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GetQuestions")

	questions, err := h.usecase.GetQuestions(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"questions": questions,
		"total":     len(questions),
	})
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
	if errors.Is(err, entity.ErrSessionNotFound) || errors.Is(err, entity.ErrQuestionNotFound) || errors.Is(err, entity.ErrIndexOutOfRange) {
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	} else if errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrInvalidFormat) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	} else if errors.Is(err, entity.ErrInvalidAudioFile) || errors.Is(err, entity.ErrAudioFileTooBig) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	} else if errors.Is(err, entity.ErrSessionNotActive) || errors.Is(err, entity.ErrSessionCompleted) {
		h.respondError(ctx, w, http.StatusConflict, "invalid session state", err)
	} else if errors.Is(err, entity.ErrSynthesisMisconfigured) || errors.Is(err, entity.ErrTranscriptionUnavailable) {
		h.respondError(ctx, w, http.StatusServiceUnavailable, "speech service unavailable", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
