package results

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

type ResultsUsecase interface {
	GetSessionResults(ctx context.Context, sessionID string) (*entity.SessionResults, error)
	GetSessionAnalytics(ctx context.Context, sessionID string) (*entity.SessionAnalytics, error)
	GetDashboard(ctx context.Context) (*entity.DashboardStats, error)
	ExportResults(ctx context.Context, sessionID string, format entity.ResultFormat) (*entity.ResultsExport, error)
}
