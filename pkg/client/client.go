// Package client is a typed HTTP client for the voiceqa backend call API.
// The call binary drives the whole conversation through it; nothing here
// keeps state, so one Client is safe for concurrent use.
package client

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/common"
	pkgHTTP "github.com/voxline/voiceqa-backend/pkg/http"
)

type Client struct {
	conn   *pkgHTTP.Connector
	logger *zap.Logger
}

// New builds a client for the backend at cfg.Url. The connector handles
// timeouts, request logging and auth; methods here only shape requests.
func New(cfg config.HTTPClientConfig, logger *zap.Logger) *Client {
	return &Client{
		conn:   common.NewBaseConnector(cfg),
		logger: logger,
	}
}

// withLogger gives the connector's log transport a sink. The call binary's
// contexts never pass through the server middleware that usually provides
// one.
func (c *Client) withLogger(ctx context.Context) context.Context {
	return ctxzap.ToContext(ctx, c.logger)
}

// StartSession allocates a new call session on the backend.
func (c *Client) StartSession(ctx context.Context) (*entity.StartCallResponse, error) {
	var resp entity.StartCallResponse
	if err := c.conn.DoRequest(c.withLogger(ctx), http.MethodPost, "/api/start-session", nil, &resp); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &resp, nil
}

// Introduction returns the greeting text and its synthesized audio URL.
func (c *Client) Introduction(ctx context.Context) (*entity.IntroductionResponse, error) {
	var resp entity.IntroductionResponse
	if err := c.conn.DoRequest(c.withLogger(ctx), http.MethodGet, "/api/introduction", nil, &resp); err != nil {
		return nil, fmt.Errorf("get introduction: %w", err)
	}
	return &resp, nil
}

// NextQuestion resolves the question at a zero-based index for the session.
func (c *Client) NextQuestion(ctx context.Context, sessionID string, index int) (*entity.NextQuestionResponse, error) {
	endpoint := fmt.Sprintf("/api/next-question?session_id=%s&index=%d", url.QueryEscape(sessionID), index)

	var resp entity.NextQuestionResponse
	if err := c.conn.DoRequest(c.withLogger(ctx), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("next question %d: %w", index, err)
	}
	return &resp, nil
}

// SubmitAnswer uploads recorded answer audio for one question. Attempt is
// 1-based and repeats after a validation rejection. Both outcomes come back
// as a SubmitAnswerResult; only transport and server failures are errors.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, questionID, attempt int, audio []byte) (*entity.SubmitAnswerResult, error) {
	prepare := func(w *multipart.Writer) error {
		if err := w.WriteField("session_id", sessionID); err != nil {
			return err
		}
		if err := w.WriteField("question_id", fmt.Sprintf("%d", questionID)); err != nil {
			return err
		}
		if err := w.WriteField("attempt", fmt.Sprintf("%d", attempt)); err != nil {
			return err
		}

		part, err := w.CreateFormFile("audio_file", fmt.Sprintf("answer_%d.wav", questionID))
		if err != nil {
			return err
		}
		_, err = part.Write(audio)
		return err
	}

	var resp entity.SubmitAnswerResult
	if err := c.conn.DoMultipartRequest(c.withLogger(ctx), http.MethodPost, "/api/submit-answer", prepare, &resp); err != nil {
		return nil, fmt.Errorf("submit answer for question %d: %w", questionID, err)
	}
	return &resp, nil
}

// SaveCallAnalytics flushes the per-question analytics batch and, when the
// request carries a status, closes the session out on the backend.
func (c *Client) SaveCallAnalytics(ctx context.Context, req *entity.SaveCallAnalyticsRequest) (*entity.SaveCallAnalyticsResponse, error) {
	var resp entity.SaveCallAnalyticsResponse
	if err := c.conn.DoRequest(c.withLogger(ctx), http.MethodPost, "/api/save-call-analytics", req, &resp); err != nil {
		return nil, fmt.Errorf("save call analytics: %w", err)
	}
	return &resp, nil
}

// Questions returns the full call script in order.
func (c *Client) Questions(ctx context.Context) ([]entity.Question, error) {
	var resp struct {
		Questions []entity.Question `json:"questions"`
		Total     int               `json:"total"`
	}
	if err := c.conn.DoRequest(c.withLogger(ctx), http.MethodGet, "/api/questions", nil, &resp); err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	return resp.Questions, nil
}

// FetchAudio downloads a synthesized asset by the URL the API handed out,
// e.g. /static/audio/question_1_abc.wav. Absolute URLs are fetched as-is.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	var opts []pkgHTTP.RequestOpt
	if isAbsoluteURL(audioURL) {
		opts = append(opts, pkgHTTP.WithURL(audioURL))
	}

	data, err := c.conn.DoRawRequest(c.withLogger(ctx), http.MethodGet, audioURL, "", nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch audio %s: %w", audioURL, err)
	}
	return data, nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
