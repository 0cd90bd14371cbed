package session

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/callclient/audio"
	"github.com/voxline/voiceqa-backend/internal/callclient/snapshot"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

// begin either resumes from a snapshot or dials a fresh session. Dialing
// fails closed: no retry, the call is abandoned with the surfaced error.
func (s *Session) begin(ctx context.Context) {
	s.transition(PhaseDialing)

	snap, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("snapshot unusable, starting fresh", zap.Error(err))
	}
	if snap != nil {
		s.resume(ctx, snap)
		return
	}
	s.startFresh(ctx)
}

func (s *Session) startFresh(ctx context.Context) {
	resp, err := s.api.StartSession(ctx)
	if err != nil {
		s.fail(ctx, fmt.Errorf("start session: %w", err))
		return
	}
	s.sessionID = resp.SessionID
	s.total = resp.TotalQuestions

	s.logger.Info("session started",
		zap.String("session_id", s.sessionID),
		zap.Int("total_questions", s.total),
	)

	q, err := s.api.NextQuestion(ctx, s.sessionID, 0)
	if err != nil {
		s.fail(ctx, fmt.Errorf("fetch first question: %w", err))
		return
	}
	s.questions = append(s.questions, *q)
	s.index = 0
	s.saveSnapshot(ctx)

	if s.cfg.PlayIntroduction {
		intro, err := s.api.Introduction(ctx)
		if err != nil {
			// The greeting is a nicety; the call goes on without it.
			s.logger.Warn("introduction unavailable", zap.Error(err))
		} else {
			s.introURL = intro.AudioURL
		}
	}

	s.enterSpeaking(ctx)
}

// resume rehydrates from the snapshot and replays the current question.
// Indices before it were answered in the interrupted run.
func (s *Session) resume(ctx context.Context, snap *snapshot.Snapshot) {
	s.sessionID = snap.SessionID
	s.total = snap.TotalQuestions
	s.questions = snap.Questions
	s.index = snap.CurrentQuestionIndex
	for i := 0; i < s.index; i++ {
		s.answered[i] = true
	}

	s.logger.Info("resuming interrupted session",
		zap.String("session_id", s.sessionID),
		zap.Int("index", s.index),
		zap.Int("total_questions", s.total),
	)
	s.emit(Event{Kind: EventNotice, Text: "Resuming your previous call.", Index: s.index, Total: s.total})

	s.enterSpeaking(ctx)
}

// enterSpeaking plays the current question, preceded by the greeting when
// one is pending. Playback completion, playback failure and missing audio
// all funnel into recording; unplayable audio must never strand the caller.
func (s *Session) enterSpeaking(ctx context.Context) {
	s.transition(PhaseSpeaking)

	q := s.questions[s.index]
	s.emit(Event{Kind: EventQuestion, Question: q.QuestionText, Index: s.index, Total: s.total})

	clips := make([]string, 0, 2)
	if s.introURL != "" {
		clips = append(clips, s.introURL)
		s.introURL = ""
	}
	clips = append(clips, q.AudioURL)

	s.startPlayback(ctx, clips)
}

// enterFallback plays the re-prompt utterance, then recording restarts for
// the same index.
func (s *Session) enterFallback(ctx context.Context, res *entity.SubmitAnswerResult) {
	s.emit(Event{Kind: EventFallback, Text: res.FallbackMessage, Index: s.index, Total: s.total})

	if res.FallbackAudioURL == "" {
		s.enterRecording(ctx)
		return
	}

	s.transition(PhaseSpeaking)
	s.startPlayback(ctx, []string{res.FallbackAudioURL})
}

func (s *Session) startPlayback(ctx context.Context, urls []string) {
	epoch := s.epoch
	playCtx, cancel := context.WithCancel(ctx)
	s.cancelPlayback = cancel

	go func() {
		defer cancel()
		for _, u := range urls {
			if u == "" {
				continue
			}
			data, err := s.api.FetchAudio(playCtx, u)
			if err != nil {
				if playCtx.Err() != nil {
					return
				}
				s.logger.Warn("audio fetch failed, skipping playback",
					zap.String("url", u), zap.Error(err))
				continue
			}
			if err := s.player.Play(playCtx, data); err != nil {
				if playCtx.Err() != nil {
					return
				}
				s.logger.Warn("playback failed, continuing", zap.Error(err))
			}
		}
		s.post(trigger{kind: trigPlaybackDone, epoch: epoch})
	}()
}

func (s *Session) enterRecording(ctx context.Context) {
	s.transition(PhaseRecording)
	s.cycle++

	capture, err := s.recorder.Start(ctx)
	if err != nil {
		s.fail(ctx, fmt.Errorf("start capture: %w", err))
		return
	}
	s.capture = capture
	s.recordingStart = time.Now()
	s.speechAt = time.Time{}
	s.speechLevels = s.speechLevels[:0]
	s.silence.Reset()

	s.scheduleTick()
	s.schedule(s.cfg.Flow.MaxListenDuration, trigMaxListen)
	s.scheduleSafety()
}

func (s *Session) scheduleTick() {
	s.schedule(s.cfg.Flow.SampleInterval, trigSilenceTick)
}

// handleTick samples the microphone level, feeds the silence window and
// submits once the caller has spoken and then gone quiet. Silence before
// any speech keeps the window resetting; only the listen ceiling can force
// an exit then.
func (s *Session) handleTick(ctx context.Context) {
	level := s.capture.Level()
	s.emitLevel(level)

	if s.silence.Speaking(level) {
		if s.speechAt.IsZero() {
			s.speechAt = time.Now()
		}
		s.speechLevels = append(s.speechLevels, level)
	}

	if s.silence.Observe(level, s.cfg.Flow.SampleInterval) {
		if s.speechAt.IsZero() {
			s.silence.Reset()
		} else {
			s.beginSubmit(ctx, false)
			return
		}
	}

	s.scheduleTick()
}

// beginSubmit ends the capture and uploads it. forced marks a ceiling
// submission, which goes out even when the capture is empty so the server
// can reject it and re-prompt.
func (s *Session) beginSubmit(ctx context.Context, forced bool) {
	s.freezeMeasurements()

	data, err := s.capture.Stop()
	if err != nil {
		s.logger.Warn("stop capture", zap.Error(err))
	}
	s.capture = nil

	if len(data) == 0 && !forced {
		s.logger.Info("capture produced no audio, listening again", zap.Int("index", s.index))
		s.enterRecording(ctx)
		return
	}

	if s.answered[s.index] {
		s.logger.Info("question already answered, skipping submit", zap.Int("index", s.index))
		s.beginAdvance(ctx)
		return
	}

	s.transition(PhaseSubmitting)

	q := s.questions[s.index]
	attempt := s.rejection[s.index] + 1
	cycle := s.cycle

	go func() {
		res, err := s.api.SubmitAnswer(ctx, s.sessionID, q.ID, attempt, data)
		s.post(trigger{kind: trigSubmitResult, cycle: cycle, result: res, err: err})
	}()
}

func (s *Session) handleSubmitResult(ctx context.Context, res *entity.SubmitAnswerResult, err error) {
	if err != nil {
		s.rejection[s.index]++
		if s.rejection[s.index] >= s.cfg.Flow.MaxValidationRetries {
			s.fail(ctx, fmt.Errorf("submit answer for question %d: %w", s.questions[s.index].ID, err))
			return
		}
		s.logger.Warn("answer submission failed, re-recording", zap.Error(err))
		s.emit(Event{Kind: EventNotice, Text: "Could not reach the server. Please answer once more.", Index: s.index, Total: s.total})
		s.enterRecording(ctx)
		return
	}

	if res.ValidationFailed || !res.Success {
		s.handleRejection(ctx, res)
		return
	}

	s.handleAcceptance(ctx, res)
}

func (s *Session) handleRejection(ctx context.Context, res *entity.SubmitAnswerResult) {
	s.rejection[s.index]++
	count := s.rejection[s.index]

	s.logger.Info("answer rejected",
		zap.Int("index", s.index),
		zap.Int("rejections", count),
		zap.String("original", res.OriginalAnswer),
	)

	if count >= s.cfg.Flow.MaxValidationRetries {
		s.fail(ctx, fmt.Errorf("question %d rejected %d times: %w",
			s.questions[s.index].ID, count, entity.ErrTooManyRejections))
		return
	}

	s.enterFallback(ctx, res)
}

func (s *Session) handleAcceptance(ctx context.Context, res *entity.SubmitAnswerResult) {
	s.answered[s.index] = true
	s.appendAnalytics(res.Confidence, true)

	s.logger.Info("answer accepted",
		zap.Int("index", s.index),
		zap.String("answer", res.AnswerText),
		zap.Float64("confidence", res.Confidence),
	)
	s.emit(Event{Kind: EventTranscript, Text: res.AnswerText, Confidence: res.Confidence, Index: s.index, Total: s.total})

	s.beginAdvance(ctx)
}

// handleSafetyNet force-advances a question whose recording or submission
// stalled past the ceiling plus margin. No answer is recorded for it.
func (s *Session) handleSafetyNet(ctx context.Context) {
	s.logger.Warn("safety ceiling hit, forcing advancement",
		zap.Int("index", s.index),
		zap.String("phase", s.phase.String()),
	)

	if s.phase == PhaseRecording {
		s.freezeMeasurements()
		s.stopCapture()
	}
	s.appendAnalytics(0, false)
	s.emit(Event{Kind: EventNotice, Text: "Moving on to the next question.", Index: s.index, Total: s.total})

	s.beginAdvance(ctx)
}

// beginAdvance is the only place the machine moves past a question. The
// advancing flag collapses overlapping triggers into a single increment.
func (s *Session) beginAdvance(ctx context.Context) {
	if s.advancing {
		return
	}
	s.advancing = true

	s.stopSafety()
	s.cycle++

	s.transition(PhaseAdvancing)
	s.schedule(s.cfg.Flow.PacingDelay, trigPacingDone)
}

func (s *Session) handlePacingDone(ctx context.Context) {
	if s.index+1 >= s.total {
		s.complete(ctx)
		return
	}
	// Questions rehydrated from a snapshot are already resolved.
	if s.index+1 < len(s.questions) {
		s.index++
		s.advancing = false
		s.saveSnapshot(ctx)
		s.enterSpeaking(ctx)
		return
	}
	s.fetchNext(ctx)
}

func (s *Session) fetchNext(ctx context.Context) {
	next := s.index + 1
	epoch := s.epoch
	sessionID := s.sessionID

	go func() {
		var q *entity.NextQuestionResponse
		err := retry.Do(func() error {
			var ferr error
			q, ferr = s.api.NextQuestion(ctx, sessionID, next)
			return ferr
		}, s.retryOptions(ctx)...)

		s.post(trigger{kind: trigNextQuestion, epoch: epoch, question: q, err: err})
	}()
}

func (s *Session) handleNextQuestion(ctx context.Context, q *entity.NextQuestionResponse, err error) {
	if err != nil {
		s.fail(ctx, fmt.Errorf("fetch question %d: %w", s.index+1, err))
		return
	}

	s.questions = append(s.questions, *q)
	s.index++
	s.advancing = false
	s.saveSnapshot(ctx)

	s.enterSpeaking(ctx)
}

func (s *Session) complete(ctx context.Context) {
	s.flush(ctx, entity.SessionStatusCompleted)
	s.clearSnapshot(ctx)
	s.transition(PhaseCompleted)

	s.logger.Info("call completed",
		zap.String("session_id", s.sessionID),
		zap.Int("answered", len(s.answered)),
	)
	s.emit(Event{Kind: EventEnded, Status: entity.SessionStatusCompleted, Answered: len(s.answered), Total: s.total})
}

// fail abandons the call with a surfaced error.
func (s *Session) fail(ctx context.Context, err error) {
	s.runErr = err
	s.logger.Error("call abandoned", zap.Error(err))

	s.stopCapture()
	s.stopPlayback()
	s.stopSafety()

	s.flush(ctx, entity.SessionStatusAbandoned)
	s.clearSnapshot(ctx)
	s.transition(PhaseAbandoned)
	s.emit(Event{Kind: EventEnded, Status: entity.SessionStatusAbandoned, Answered: len(s.answered), Total: s.total, Err: err})
}

// finishCall handles an explicit hangup or context cancellation: devices
// stop before the machine moves, the analytics batch flushes once, and the
// snapshot is cleared so the next launch starts fresh.
func (s *Session) finishCall(ctx context.Context) {
	if s.phase.IsTerminal() {
		return
	}
	s.logger.Info("hangup", zap.String("phase", s.phase.String()), zap.Int("index", s.index))

	s.stopCapture()
	s.stopPlayback()
	s.stopSafety()

	status := entity.SessionStatusAbandoned
	phase := PhaseAbandoned
	if s.total > 0 && len(s.answered) == s.total {
		status = entity.SessionStatusCompleted
		phase = PhaseCompleted
	}

	s.flush(ctx, status)
	s.clearSnapshot(ctx)
	s.transition(phase)
	s.emit(Event{Kind: EventEnded, Status: status, Answered: len(s.answered), Total: s.total})
}

// flush sends the analytics batch with the terminal status, exactly once,
// best-effort. It must work even when the run context is already cancelled.
func (s *Session) flush(ctx context.Context, status entity.SessionStatus) {
	if s.flushed {
		return
	}
	s.flushed = true

	if s.sessionID == "" {
		return
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	req := &entity.SaveCallAnalyticsRequest{
		SessionID: s.sessionID,
		Status:    status,
		Analytics: s.analytics,
	}
	if _, err := s.api.SaveCallAnalytics(fctx, req); err != nil {
		s.logger.Warn("analytics flush failed", zap.Error(err))
		return
	}
	s.logger.Info("analytics flushed",
		zap.Int("entries", len(s.analytics)),
		zap.String("status", string(status)),
	)
}

// freezeMeasurements fixes the per-question telemetry at the moment the
// recording ends, before network latency can smear it.
func (s *Session) freezeMeasurements() {
	elapsed := time.Since(s.recordingStart)
	s.lastDuration = elapsed
	if s.speechAt.IsZero() {
		s.lastResponse = elapsed
	} else {
		s.lastResponse = s.speechAt.Sub(s.recordingStart)
	}
	s.lastQuality = audio.QualityScore(s.speechLevels)
}

func (s *Session) appendAnalytics(confidence float64, completed bool) {
	s.analytics = append(s.analytics, entity.AnalyticsEntry{
		QuestionID:         s.questions[s.index].ID,
		ResponseTimeMs:     s.lastResponse.Milliseconds(),
		AnswerDurationMs:   s.lastDuration.Milliseconds(),
		AudioQualityScore:  s.lastQuality,
		ConfidenceScore:    confidence,
		HesitationDetected: s.lastResponse > s.cfg.Flow.HesitationThreshold,
		Completed:          completed,
	})
}

func (s *Session) stopCapture() {
	if s.capture == nil {
		return
	}
	if _, err := s.capture.Stop(); err != nil {
		s.logger.Warn("stop capture", zap.Error(err))
	}
	s.capture = nil
}

func (s *Session) stopPlayback() {
	if s.cancelPlayback != nil {
		s.cancelPlayback()
		s.cancelPlayback = nil
	}
}

func (s *Session) saveSnapshot(ctx context.Context) {
	snap := &snapshot.Snapshot{
		SessionID:            s.sessionID,
		TotalQuestions:       s.total,
		Questions:            s.questions,
		CurrentQuestionIndex: s.index,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		// Recovery is a convenience; the live call outranks it.
		s.logger.Warn("snapshot save failed", zap.Error(err))
	}
}

func (s *Session) clearSnapshot(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("snapshot clear failed", zap.Error(err))
	}
}
