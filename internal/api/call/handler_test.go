package call

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/validator"
)

type stubUsecase struct {
	startResp *entity.StartCallResponse
	startErr  error

	introResp *entity.IntroductionResponse
	introErr  error

	nextResp      *entity.NextQuestionResponse
	nextErr       error
	nextSessionID string
	nextIndex     int

	submitResp    *entity.SubmitAnswerResult
	submitErr     error
	submitSession string
	submitQID     int
	submitAudio   []byte
	submitAttempt int

	analyticsResp *entity.SaveCallAnalyticsResponse
	analyticsErr  error
	analyticsReq  *entity.SaveCallAnalyticsRequest

	questions    []entity.Question
	questionsErr error
}

func (s *stubUsecase) StartSession(_ context.Context) (*entity.StartCallResponse, error) {
	return s.startResp, s.startErr
}

func (s *stubUsecase) GetIntroduction(_ context.Context) (*entity.IntroductionResponse, error) {
	return s.introResp, s.introErr
}

func (s *stubUsecase) NextQuestion(_ context.Context, sessionID string, index int) (*entity.NextQuestionResponse, error) {
	s.nextSessionID = sessionID
	s.nextIndex = index
	return s.nextResp, s.nextErr
}

func (s *stubUsecase) SubmitAnswer(_ context.Context, sessionID string, questionID int, audio []byte, attempt int) (*entity.SubmitAnswerResult, error) {
	s.submitSession = sessionID
	s.submitQID = questionID
	s.submitAudio = audio
	s.submitAttempt = attempt
	return s.submitResp, s.submitErr
}

func (s *stubUsecase) SaveCallAnalytics(_ context.Context, req *entity.SaveCallAnalyticsRequest) (*entity.SaveCallAnalyticsResponse, error) {
	s.analyticsReq = req
	return s.analyticsResp, s.analyticsErr
}

func (s *stubUsecase) GetQuestions(_ context.Context) ([]entity.Question, error) {
	return s.questions, s.questionsErr
}

func newTestRouter(uc CallUsecase) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(uc, validator.NewValidator(config.UploadConfig{MaxAudioFileSize: 1 << 20}))
	RegisterRoutes(r, h)
	return r
}

// multipartAnswer builds a submit-answer form. An empty filename omits the
// audio part entirely.
func multipartAnswer(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s) error = %v", k, err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("audio_file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write(audio); err != nil {
			t.Fatalf("write audio part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestStartSessionRoute(t *testing.T) {
	uc := &stubUsecase{startResp: &entity.StartCallResponse{SessionID: "sess-1", TotalQuestions: 7}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/start-session", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rr.Code, rr.Body.String())
	}
	var resp entity.StartCallResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.SessionID != "sess-1" || resp.TotalQuestions != 7 {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartSessionRoute_UsecaseError(t *testing.T) {
	uc := &stubUsecase{startErr: errors.New("db down")}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/start-session", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestIntroductionRoute(t *testing.T) {
	uc := &stubUsecase{introResp: &entity.IntroductionResponse{
		Text:     "Welcome to the screening call.",
		AudioURL: "/static/audio/introduction.mp3",
	}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/introduction", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	var resp entity.IntroductionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.Text != "Welcome to the screening call." || resp.AudioURL != "/static/audio/introduction.mp3" {
		t.Errorf("response = %+v", resp)
	}
}

func TestNextQuestionRoute(t *testing.T) {
	uc := &stubUsecase{nextResp: &entity.NextQuestionResponse{
		ID:           4,
		QuestionText: "What is your date of birth?",
		Category:     entity.QuestionCategoryDate,
		IsRequired:   true,
		AudioURL:     "/static/audio/question_4_sess-1.mp3",
	}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/next-question?session_id=sess-1&index=3", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if uc.nextSessionID != "sess-1" || uc.nextIndex != 3 {
		t.Errorf("usecase called with (%q, %d), want (sess-1, 3)", uc.nextSessionID, uc.nextIndex)
	}
	var resp entity.NextQuestionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.ID != 4 || resp.AudioURL == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestNextQuestionRoute_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing session id", "/next-question?index=0"},
		{"missing index", "/next-question?session_id=sess-1"},
		{"non-numeric index", "/next-question?session_id=sess-1&index=two"},
		{"negative index", "/next-question?session_id=sess-1&index=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubUsecase{})
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestNextQuestionRoute_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", entity.ErrSessionNotFound, http.StatusNotFound},
		{"question not found", entity.ErrQuestionNotFound, http.StatusNotFound},
		{"index out of range", entity.ErrIndexOutOfRange, http.StatusNotFound},
		{"invalid parameter", entity.ErrInvalidParameter, http.StatusBadRequest},
		{"session completed", entity.ErrSessionCompleted, http.StatusConflict},
		{"session not active", entity.ErrSessionNotActive, http.StatusConflict},
		{"synthesis down", entity.ErrSynthesisMisconfigured, http.StatusServiceUnavailable},
		{"transcription down", entity.ErrTranscriptionUnavailable, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubUsecase{nextErr: tt.err})
			req := httptest.NewRequest(http.MethodGet, "/next-question?session_id=sess-1&index=0", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestSubmitAnswerRoute(t *testing.T) {
	uc := &stubUsecase{submitResp: &entity.SubmitAnswerResult{
		Success:    true,
		QuestionID: 3,
		AnswerText: "John Smith",
		Confidence: 0.92,
	}}
	router := newTestRouter(uc)

	body, contentType := multipartAnswer(t, map[string]string{
		"session_id":  "sess-1",
		"question_id": "3",
		"attempt":     "2",
	}, "answer.wav", []byte("RIFFdata"))

	req := httptest.NewRequest(http.MethodPost, "/submit-answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if uc.submitSession != "sess-1" || uc.submitQID != 3 || uc.submitAttempt != 2 {
		t.Errorf("usecase called with (%q, %d, attempt %d)", uc.submitSession, uc.submitQID, uc.submitAttempt)
	}
	if string(uc.submitAudio) != "RIFFdata" {
		t.Errorf("audio passed through = %q", uc.submitAudio)
	}

	var resp entity.SubmitAnswerResult
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !resp.Success || resp.AnswerText != "John Smith" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSubmitAnswerRoute_AttemptDefaultsToOne(t *testing.T) {
	uc := &stubUsecase{submitResp: &entity.SubmitAnswerResult{Success: true}}
	router := newTestRouter(uc)

	body, contentType := multipartAnswer(t, map[string]string{
		"session_id":  "sess-1",
		"question_id": "1",
	}, "answer.wav", []byte("RIFF"))

	req := httptest.NewRequest(http.MethodPost, "/submit-answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if uc.submitAttempt != 1 {
		t.Errorf("attempt = %d, want 1", uc.submitAttempt)
	}
}

// A rejected answer is a normal outcome for the caller, not an HTTP error.
func TestSubmitAnswerRoute_ValidationFailureIs200(t *testing.T) {
	uc := &stubUsecase{submitResp: &entity.SubmitAnswerResult{
		ValidationFailed: true,
		QuestionID:       1,
		FallbackMessage:  "I need a clear yes or no answer to this question. Please respond with yes or no.",
		FallbackAudioURL: "/static/audio/fallback_1_sess-1_a1.mp3",
		OriginalAnswer:   "maybe",
	}}
	router := newTestRouter(uc)

	body, contentType := multipartAnswer(t, map[string]string{
		"session_id":  "sess-1",
		"question_id": "1",
	}, "answer.wav", []byte("RIFF"))

	req := httptest.NewRequest(http.MethodPost, "/submit-answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	var resp entity.SubmitAnswerResult
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !resp.ValidationFailed || resp.Success {
		t.Errorf("response = %+v, want validation failure", resp)
	}
	if resp.FallbackMessage == "" || resp.FallbackAudioURL == "" {
		t.Errorf("fallback fields missing: %+v", resp)
	}
}

func TestSubmitAnswerRoute_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{
			"missing audio file",
			map[string]string{"session_id": "sess-1", "question_id": "1"},
			"",
		},
		{
			"missing question id",
			map[string]string{"session_id": "sess-1"},
			"answer.wav",
		},
		{
			"missing session id",
			map[string]string{"question_id": "1"},
			"answer.wav",
		},
		{
			"wrong extension",
			map[string]string{"session_id": "sess-1", "question_id": "1"},
			"answer.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubUsecase{})
			body, contentType := multipartAnswer(t, tt.fields, tt.filename, []byte("RIFF"))

			req := httptest.NewRequest(http.MethodPost, "/submit-answer", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSubmitAnswerRoute_OversizedFile(t *testing.T) {
	router := chi.NewRouter()
	h := NewHandler(&stubUsecase{}, validator.NewValidator(config.UploadConfig{MaxAudioFileSize: 4}))
	RegisterRoutes(router, h)

	body, contentType := multipartAnswer(t, map[string]string{
		"session_id":  "sess-1",
		"question_id": "1",
	}, "answer.wav", []byte("way past four bytes"))

	req := httptest.NewRequest(http.MethodPost, "/submit-answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestSaveCallAnalyticsRoute(t *testing.T) {
	uc := &stubUsecase{analyticsResp: &entity.SaveCallAnalyticsResponse{Success: true, Saved: 2}}
	router := newTestRouter(uc)

	payload := `{
		"session_id": "sess-1",
		"status": "completed",
		"analytics": [
			{"question_id": 1, "response_time_ms": 900, "answer_duration_ms": 2100, "completed": true},
			{"question_id": 2, "response_time_ms": 4200, "hesitation_detected": true, "completed": true}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/save-call-analytics", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if uc.analyticsReq == nil {
		t.Fatal("usecase never called")
	}
	if uc.analyticsReq.SessionID != "sess-1" || uc.analyticsReq.Status != entity.SessionStatusCompleted {
		t.Errorf("request = %+v", uc.analyticsReq)
	}
	if len(uc.analyticsReq.Analytics) != 2 || !uc.analyticsReq.Analytics[1].HesitationDetected {
		t.Errorf("analytics entries = %+v", uc.analyticsReq.Analytics)
	}

	var resp entity.SaveCallAnalyticsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !resp.Success || resp.Saved != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSaveCallAnalyticsRoute_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"session_id": `},
		{"missing session id", `{"analytics": [{"question_id": 1}]}`},
		{"unknown status", `{"session_id": "sess-1", "status": "paused"}`},
		{"bad entry question id", `{"session_id": "sess-1", "analytics": [{"question_id": 0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubUsecase{})
			req := httptest.NewRequest(http.MethodPost, "/save-call-analytics", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSaveCallAnalyticsRoute_UnknownSession(t *testing.T) {
	uc := &stubUsecase{analyticsErr: entity.ErrSessionNotFound}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/save-call-analytics",
		strings.NewReader(`{"session_id": "ghost", "analytics": []}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestQuestionsRoute(t *testing.T) {
	uc := &stubUsecase{questions: []entity.Question{
		{ID: 1, QuestionText: "What is your full name?", Category: entity.QuestionCategoryName, IsRequired: true, Order: 1},
		{ID: 2, QuestionText: "Are you a US citizen?", Category: entity.QuestionCategoryYesNo, IsRequired: true, Order: 2},
	}}
	router := newTestRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}

	var body struct {
		Questions []entity.Question `json:"questions"`
		Total     int               `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Total != 2 || len(body.Questions) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Questions[0].ID != 1 || body.Questions[1].QuestionText != "Are you a US citizen?" {
		t.Errorf("questions = %+v", body.Questions)
	}
}
