package session

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/callclient/snapshot"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

// API is the backend surface the session drives. *client.Client satisfies it.
type API interface {
	StartSession(ctx context.Context) (*entity.StartCallResponse, error)
	Introduction(ctx context.Context) (*entity.IntroductionResponse, error)
	NextQuestion(ctx context.Context, sessionID string, index int) (*entity.NextQuestionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, questionID, attempt int, audio []byte) (*entity.SubmitAnswerResult, error)
	SaveCallAnalytics(ctx context.Context, req *entity.SaveCallAnalyticsRequest) (*entity.SaveCallAnalyticsResponse, error)
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// SnapshotStore persists the recovery snapshot. *snapshot.Store satisfies it.
type SnapshotStore interface {
	Load(ctx context.Context) (*snapshot.Snapshot, error)
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Clear(ctx context.Context) error
}
