package chat

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/knet-ai/research-client/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "text"})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(testLogger(), t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	data := store.Load()

	if data.Conversations == nil || len(data.Conversations) != 0 {
		t.Errorf("expected empty conversation slice, got %#v", data.Conversations)
	}
	if data.CurrentConversationID != "" {
		t.Errorf("expected empty current id, got %q", data.CurrentConversationID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	data := ChatData{
		Conversations: []Conversation{
			{
				ID:          "conv-1",
				Title:       "Quantum computing",
				LastUpdated: "2025-06-01T12:00:00Z",
				Active:      true,
				Messages: []Message{
					{ID: "m1", Role: RoleUser, Content: "What is quantum computing?", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
					{ID: "m2", Role: RoleAssistant, Content: "Quantum computing is...", Timestamp: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)},
				},
			},
			{
				ID:          "conv-2",
				Title:       "Roman aqueducts",
				LastUpdated: "2025-05-30T09:00:00Z",
				Messages:    []Message{},
			},
		},
		CurrentConversationID: "conv-1",
	}

	if err := store.Save(data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()
	if diff := cmp.Diff(data, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadMalformedDataReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.dataFilePath(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Load twice: a malformed file must not wedge the store.
	for i := 0; i < 2; i++ {
		data := store.Load()
		if len(data.Conversations) != 0 {
			t.Fatalf("load %d: expected empty data, got %d conversations", i, len(data.Conversations))
		}
	}
}

func TestLoadFinalizesInFlightMessages(t *testing.T) {
	store := newTestStore(t)

	data := ChatData{
		Conversations: []Conversation{
			{
				ID: "conv-1",
				Messages: []Message{
					{ID: "m1", Role: RoleUser, Content: "topic"},
					{ID: "m2", Role: RoleAssistant, Content: "Searching...", IsProgress: true, Progress: 40},
				},
			},
		},
		CurrentConversationID: "conv-1",
	}
	if err := store.Save(data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()

	msg := loaded.Conversations[0].Messages[1]
	if msg.IsProgress {
		t.Error("progress flag survived reload")
	}
	if msg.Content != "Connection error" {
		t.Errorf("expected Connection error, got %q", msg.Content)
	}
}

func TestLoadClearsDanglingCurrentID(t *testing.T) {
	store := newTestStore(t)

	data := ChatData{
		Conversations:         []Conversation{{ID: "conv-1", Messages: []Message{}}},
		CurrentConversationID: "gone",
	}
	if err := store.Save(data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()
	if loaded.CurrentConversationID != "" {
		t.Errorf("expected dangling current id cleared, got %q", loaded.CurrentConversationID)
	}
}

func TestBackupCopiesAndPrunes(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(ChatData{Conversations: []Conversation{}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Plant a stale backup that should be pruned.
	dir := filepath.Join(store.dir, backupDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(dir, "chatdata-20200101T000000.json")
	if err := os.WriteFile(stale, []byte("{}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := store.Backup(24 * time.Hour); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale backup not pruned")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 fresh backup, got %d", len(entries))
	}
}

func TestBackupWithoutDataIsNoop(t *testing.T) {
	store := newTestStore(t)

	if err := store.Backup(24 * time.Hour); err != nil {
		t.Fatalf("Backup on empty store: %v", err)
	}
}
