// Package session runs the client half of a voice call: it plays each
// question, records the spoken answer, submits it and advances through the
// list. The whole conversation is one state machine driven by a single
// dispatch goroutine; playback, capture reads, timers and network calls all
// report back as triggers, and a trigger stamped with a superseded epoch or
// cycle is dropped instead of firing into a later state.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/callclient/audio"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	pkgRetry "github.com/voxline/voiceqa-backend/internal/pkg/retry"
)

// Config carries the conversation timing knobs and the next-question fetch
// retry policy.
type Config struct {
	Flow             config.CallFlowConfig
	FetchRetry       pkgRetry.RetryConfig
	PlayIntroduction bool
}

// Deps are the collaborators the session drives. All are required.
type Deps struct {
	API      API
	Recorder audio.Recorder
	Player   audio.Player
	Store    SnapshotStore
	Logger   *zap.Logger
}

type triggerKind int

const (
	trigPlaybackDone triggerKind = iota
	trigSilenceTick
	trigMaxListen
	trigSafetyNet
	trigSubmitResult
	trigPacingDone
	trigNextQuestion
)

// trigger is one input to the dispatch loop. epoch-stamped triggers are
// valid for exactly one phase; cycle-stamped ones (safety net, submit
// result) survive the recording-to-submitting transition of the attempt
// that created them.
type trigger struct {
	kind     triggerKind
	epoch    uint64
	cycle    uint64
	result   *entity.SubmitAnswerResult
	question *entity.NextQuestionResponse
	err      error
}

type Session struct {
	cfg      Config
	api      API
	recorder audio.Recorder
	player   audio.Player
	store    SnapshotStore
	logger   *zap.Logger

	started    atomic.Bool
	triggers   chan trigger
	events     chan Event
	hangup     chan struct{}
	hangupOnce sync.Once

	// Everything below is owned by the dispatch goroutine.
	phase Phase
	epoch uint64
	cycle uint64

	sessionID string
	total     int
	questions []entity.NextQuestionResponse
	index     int
	answered  map[int]bool
	rejection map[int]int

	introURL string

	capture        audio.Capture
	silence        *audio.SilenceTracker
	cancelPlayback context.CancelFunc

	recordingStart time.Time
	speechAt       time.Time
	speechLevels   []float64

	// Measurements frozen when a recording ends, consumed when the
	// attempt resolves.
	lastResponse time.Duration
	lastDuration time.Duration
	lastQuality  float64

	analytics []entity.AnalyticsEntry
	flushed   bool

	// advancing collapses overlapping advance triggers (safety net firing
	// while an accepted answer is already moving on) into one increment.
	advancing bool

	timers      []*time.Timer
	safetyTimer *time.Timer

	runErr error
}

func New(cfg Config, deps Deps) *Session {
	return &Session{
		cfg:       cfg,
		api:       deps.API,
		recorder:  deps.Recorder,
		player:    deps.Player,
		store:     deps.Store,
		logger:    deps.Logger,
		triggers:  make(chan trigger, 64),
		events:    make(chan Event, 128),
		hangup:    make(chan struct{}),
		phase:     PhaseIdle,
		answered:  make(map[int]bool),
		rejection: make(map[int]int),
		silence:   audio.NewSilenceTracker(cfg.Flow.SilenceThreshold, cfg.Flow.SilenceWindow),
	}
}

// Events streams the call to the UI. The channel closes once the call ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Hangup ends the call from outside the dispatch loop. Safe to call from any
// goroutine, any number of times.
func (s *Session) Hangup() {
	s.hangupOnce.Do(func() { close(s.hangup) })
}

// Run drives the call to a terminal phase and returns the failure that
// abandoned it, if any. A user hangup is not an error. Run may be called
// once per Session.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return entity.ErrCallAlreadyStarted
	}
	defer close(s.events)

	s.begin(ctx)

	for !s.phase.IsTerminal() {
		select {
		case <-ctx.Done():
			s.finishCall(ctx)
		case <-s.hangup:
			s.finishCall(ctx)
		case trig := <-s.triggers:
			s.dispatch(ctx, trig)
		}
	}

	return s.runErr
}

func (s *Session) dispatch(ctx context.Context, trig trigger) {
	switch trig.kind {
	case trigPlaybackDone:
		if s.phase != PhaseSpeaking || trig.epoch != s.epoch {
			return
		}
		s.enterRecording(ctx)

	case trigSilenceTick:
		if s.phase != PhaseRecording || trig.epoch != s.epoch {
			return
		}
		s.handleTick(ctx)

	case trigMaxListen:
		if s.phase != PhaseRecording || trig.epoch != s.epoch {
			return
		}
		s.logger.Info("listen ceiling reached, submitting capture",
			zap.Int("index", s.index))
		s.beginSubmit(ctx, true)

	case trigSafetyNet:
		if trig.cycle != s.cycle {
			return
		}
		if s.phase != PhaseRecording && s.phase != PhaseSubmitting {
			return
		}
		s.handleSafetyNet(ctx)

	case trigSubmitResult:
		if s.phase != PhaseSubmitting || trig.cycle != s.cycle {
			return
		}
		s.handleSubmitResult(ctx, trig.result, trig.err)

	case trigPacingDone:
		if s.phase != PhaseAdvancing || trig.epoch != s.epoch {
			return
		}
		s.handlePacingDone(ctx)

	case trigNextQuestion:
		if s.phase != PhaseAdvancing || trig.epoch != s.epoch {
			return
		}
		s.handleNextQuestion(ctx, trig.question, trig.err)
	}
}

func (s *Session) post(trig trigger) {
	s.triggers <- trig
}

// transition bumps the epoch, invalidating every outstanding phase-scoped
// timer. The safety net timer is cycle-scoped and survives on purpose.
func (s *Session) transition(p Phase) {
	s.stopTimers()

	prev := s.phase
	s.phase = p
	s.epoch++

	s.logger.Debug("phase transition",
		zap.String("from", prev.String()),
		zap.String("to", p.String()),
		zap.Int("index", s.index),
	)
	s.emit(Event{Kind: EventPhase, Phase: p, Index: s.index, Total: s.total})
}

// schedule arms a phase-scoped timer stamped with the current epoch.
func (s *Session) schedule(d time.Duration, kind triggerKind) {
	epoch := s.epoch
	t := time.AfterFunc(d, func() {
		s.post(trigger{kind: kind, epoch: epoch})
	})
	s.timers = append(s.timers, t)
}

// scheduleSafety arms the cycle-scoped advancement guard covering both the
// recording and the submission of one attempt.
func (s *Session) scheduleSafety() {
	cycle := s.cycle
	s.safetyTimer = time.AfterFunc(s.cfg.Flow.MaxListenDuration+s.cfg.Flow.SafetyMargin, func() {
		s.post(trigger{kind: trigSafetyNet, cycle: cycle})
	})
}

func (s *Session) stopTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]
}

func (s *Session) stopSafety() {
	if s.safetyTimer != nil {
		s.safetyTimer.Stop()
		s.safetyTimer = nil
	}
}

func (s *Session) emit(ev Event) {
	s.events <- ev
}

// emitLevel drops samples instead of queueing when the UI lags; levels are
// cosmetic.
func (s *Session) emitLevel(level float64) {
	select {
	case s.events <- Event{Kind: EventLevel, Level: level, Index: s.index, Total: s.total}:
	default:
	}
}

func (s *Session) retryOptions(ctx context.Context) []retry.Option {
	opts := s.cfg.FetchRetry.ToRetryOptions()
	return append(opts, retry.Context(ctx))
}
