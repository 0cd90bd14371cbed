package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "call.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		SessionID:      "sess-1",
		TotalQuestions: 3,
		Questions: []entity.NextQuestionResponse{
			{ID: 1, QuestionText: "Are you over 18?", Category: entity.QuestionCategoryYesNo, AudioURL: "/static/audio/q1.wav"},
			{ID: 2, QuestionText: "What is your full name?", Category: entity.QuestionCategoryName, AudioURL: "/static/audio/q2.wav"},
		},
		CurrentQuestionIndex: 1,
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot from empty store, got %+v", snap)
	}
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.SessionID != "sess-1" || got.CurrentQuestionIndex != 1 || got.TotalQuestions != 3 {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if got.Version != CurrentVersion {
		t.Errorf("version = %d, want %d", got.Version, CurrentVersion)
	}
	if len(got.Questions) != 2 || got.Questions[1].Category != entity.QuestionCategoryName {
		t.Errorf("questions not preserved: %+v", got.Questions)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt not stamped on save")
	}
}

func TestStoreSaveReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testSnapshot()
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := testSnapshot()
	second.CurrentQuestionIndex = 0
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CurrentQuestionIndex != 0 {
		t.Errorf("index = %d, want 0 (latest save wins)", got.CurrentQuestionIndex)
	}
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil after clear, got %+v", snap)
	}
}

func TestStoreLoadCorruptPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `INSERT INTO call_snapshot (id, payload) VALUES (1, 'not-json{')`)
	if err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	_, err = store.Load(ctx)
	if !errors.Is(err, entity.ErrSnapshotInvalid) {
		t.Errorf("expected ErrSnapshotInvalid, got %v", err)
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		valid  bool
	}{
		{name: "complete", mutate: func(s *Snapshot) {}, valid: true},
		{name: "wrong version", mutate: func(s *Snapshot) { s.Version = CurrentVersion + 1 }},
		{name: "missing session id", mutate: func(s *Snapshot) { s.SessionID = "" }},
		{name: "zero totals", mutate: func(s *Snapshot) { s.TotalQuestions = 0 }},
		{name: "negative index", mutate: func(s *Snapshot) { s.CurrentQuestionIndex = -1 }},
		{name: "index past total", mutate: func(s *Snapshot) { s.CurrentQuestionIndex = 3 }},
		{name: "question list short of index", mutate: func(s *Snapshot) { s.Questions = s.Questions[:1] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot()
			snap.Version = CurrentVersion
			tt.mutate(snap)

			err := snap.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, entity.ErrSnapshotInvalid) {
				t.Errorf("Validate() = %v, want ErrSnapshotInvalid", err)
			}
		})
	}
}
