package builder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/callclient/audio"
	"github.com/voxline/voiceqa-backend/internal/callclient/session"
	"github.com/voxline/voiceqa-backend/internal/callclient/snapshot"
	"github.com/voxline/voiceqa-backend/internal/callclient/ui"
	"github.com/voxline/voiceqa-backend/internal/config"
	pkglogger "github.com/voxline/voiceqa-backend/internal/pkg/logger"
	"github.com/voxline/voiceqa-backend/pkg/client"
)

// CallApp is the assembled call client: one session wired to the backend,
// the audio devices and the snapshot store.
type CallApp struct {
	cfg    *config.CallConfig
	sess   *session.Session
	store  *snapshot.Store
	logger *zap.Logger
}

// BuildCallClient composes the call client from args (use os.Args[1:]).
func BuildCallClient(args []string) (*CallApp, error) {
	cfg, err := config.LoadCallConfig(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to a file: stdout belongs to the UI.
	logger, err := pkglogger.NewFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building call client",
		zap.String("server", cfg.ServerURL),
		zap.Bool("headless", cfg.Headless),
	)

	httpCfg := cfg.HTTPClient
	httpCfg.Url = cfg.ServerURL
	api := client.New(httpCfg, logger)

	store, err := snapshot.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if cfg.NewSession {
		if err := store.Clear(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("discard snapshot: %w", err)
		}
		logger.Info("Saved snapshot discarded, starting a new session")
	}

	recorder, err := audio.NewFFmpegRecorder(cfg.AudioCfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("setup recorder: %w", err)
	}
	player, err := audio.NewFFplayPlayer(logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("setup player: %w", err)
	}

	fetchRetry := cfg.FetchRetry
	fetchRetry.Delay = cfg.FlowCfg.FetchRetryDelay

	sess := session.New(session.Config{
		Flow:             cfg.FlowCfg,
		FetchRetry:       fetchRetry,
		PlayIntroduction: cfg.PlayIntroduction,
	}, session.Deps{
		API:      api,
		Recorder: recorder,
		Player:   player,
		Store:    store,
		Logger:   logger,
	})

	logger.Info("Call client built successfully")

	return &CallApp{
		cfg:    cfg,
		sess:   sess,
		store:  store,
		logger: logger,
	}, nil
}

// Run drives one call to a terminal state and returns the failure that
// abandoned it, if any.
func (a *CallApp) Run() error {
	defer a.store.Close()
	defer a.logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.sess.Run(ctx)
	}()

	if a.cfg.Headless {
		return a.runHeadless(errChan)
	}
	return a.runTerminalUI(errChan)
}

// runHeadless prints plain transcript lines. SIGINT and SIGTERM hang up
// gracefully so the analytics batch still flushes.
func (a *CallApp) runHeadless(errChan <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		a.sess.Hangup()
	}()

	ui.Headless(os.Stdout, a.sess.Events())
	return <-errChan
}

// runTerminalUI hosts the call in the full-screen UI. The terminal is in raw
// mode, so ctrl+c arrives as a key press and the model turns it into a
// hangup.
func (a *CallApp) runTerminalUI(errChan <-chan error) error {
	program := tea.NewProgram(ui.New(a.sess, a.sess.Events()))
	if _, err := program.Run(); err != nil {
		// The UI is gone; wind the session down and drain its events so it
		// can finish flushing.
		a.sess.Hangup()
		go func() {
			for range a.sess.Events() {
			}
		}()
		<-errChan
		return fmt.Errorf("terminal ui: %w", err)
	}
	return <-errChan
}
