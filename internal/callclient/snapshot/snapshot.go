// Package snapshot persists the minimal call state needed to resume an
// interrupted session: who we are, the questions resolved so far, and where
// the caller stopped. The whole snapshot is one versioned JSON document; a
// document that fails any structural check is treated as absent, never
// partially applied.
package snapshot

import (
	"fmt"
	"time"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// CurrentVersion is bumped whenever the snapshot layout changes. Older
// documents are discarded rather than migrated; a stale call recording
// session is not worth carrying conversion code for.
const CurrentVersion = 1

type Snapshot struct {
	Version              int                           `json:"version"`
	SessionID            string                        `json:"session_id"`
	TotalQuestions       int                           `json:"total_questions"`
	Questions            []entity.NextQuestionResponse `json:"questions"`
	CurrentQuestionIndex int                           `json:"current_question_index"`
	SavedAt              time.Time                     `json:"saved_at"`
}

// Validate checks the document is complete enough to resume from. Resume
// replays the current question, so the question list must reach the index.
func (s *Snapshot) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("%w: version %d, want %d", entity.ErrSnapshotInvalid, s.Version, CurrentVersion)
	}
	if s.SessionID == "" {
		return fmt.Errorf("%w: missing session id", entity.ErrSnapshotInvalid)
	}
	if s.TotalQuestions <= 0 {
		return fmt.Errorf("%w: total questions %d", entity.ErrSnapshotInvalid, s.TotalQuestions)
	}
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= s.TotalQuestions {
		return fmt.Errorf("%w: index %d outside [0,%d)", entity.ErrSnapshotInvalid, s.CurrentQuestionIndex, s.TotalQuestions)
	}
	if s.CurrentQuestionIndex >= len(s.Questions) {
		return fmt.Errorf("%w: question at index %d not captured", entity.ErrSnapshotInvalid, s.CurrentQuestionIndex)
	}
	return nil
}
