package call

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

type CallUsecase interface {
	StartSession(ctx context.Context) (*entity.StartCallResponse, error)
	GetIntroduction(ctx context.Context) (*entity.IntroductionResponse, error)
	NextQuestion(ctx context.Context, sessionID string, index int) (*entity.NextQuestionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, questionID int, audio []byte, attempt int) (*entity.SubmitAnswerResult, error)
	SaveCallAnalytics(ctx context.Context, req *entity.SaveCallAnalyticsRequest) (*entity.SaveCallAnalyticsResponse, error)
	GetQuestions(ctx context.Context) ([]entity.Question, error)
}
