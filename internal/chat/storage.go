package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knet-ai/research-client/internal/logger"
)

const (
	dataFileName = "chatdata.json"
	backupDir    = "backups"
)

// Store persists the full conversation set as a single JSON file under the
// profile directory. Writes are best-effort and last-write-wins; loading is
// defensive and never fails.
type Store struct {
	logger *logger.Logger
	dir    string
	mu     sync.RWMutex
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(logger *logger.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Store{
		logger: logger,
		dir:    dir,
	}, nil
}

func (s *Store) dataFilePath() string {
	return filepath.Join(s.dir, dataFileName)
}

// Load reads the persisted chat data. Missing or malformed data yields an
// empty ChatData, never an error. Any message persisted mid-research (the tab
// closed while a turn was in flight) is finalized as a connection error,
// since no live research is resumable.
func (s *Store) Load() ChatData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	empty := ChatData{Conversations: []Conversation{}}

	data, err := os.ReadFile(s.dataFilePath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithComponent("chat-store").Warn("failed to read chat data, starting empty",
				slog.String("error", err.Error()))
		}
		return empty
	}

	var parsed ChatData
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.logger.WithComponent("chat-store").Warn("malformed chat data, starting empty",
			slog.String("error", err.Error()))
		return empty
	}

	if parsed.Conversations == nil {
		parsed.Conversations = []Conversation{}
	}
	for i := range parsed.Conversations {
		normalizeLoaded(&parsed.Conversations[i])
	}

	// The active pointer must refer to an existing conversation.
	if parsed.CurrentConversationID != "" {
		found := false
		for i := range parsed.Conversations {
			if parsed.Conversations[i].ID == parsed.CurrentConversationID {
				found = true
				break
			}
		}
		if !found {
			parsed.CurrentConversationID = ""
		}
	}

	return parsed
}

// normalizeLoaded finalizes crash-recovery leftovers in a stored conversation.
func normalizeLoaded(conv *Conversation) {
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	for i := range conv.Messages {
		if conv.Messages[i].IsProgress {
			conv.Messages[i].Content = connectionErrorText
			conv.Messages[i].IsProgress = false
		}
	}
}

// Save writes the full snapshot. The write goes through a temp file and
// rename so a crash mid-write cannot truncate the existing data.
func (s *Store) Save(data ChatData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat data: %w", err)
	}

	tmp := s.dataFilePath() + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write chat data: %w", err)
	}
	if err := os.Rename(tmp, s.dataFilePath()); err != nil {
		return fmt.Errorf("failed to replace chat data: %w", err)
	}

	return nil
}

// Backup copies the current data file into the backup directory and prunes
// backups older than maxAge.
func (s *Store) Backup(maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithComponent("chat-store")

	data, err := os.ReadFile(s.dataFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing to back up yet
		}
		return fmt.Errorf("failed to read chat data for backup: %w", err)
	}

	dir := filepath.Join(s.dir, backupDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("chatdata-%s.json", time.Now().UTC().Format("20060102T150405"))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	now := time.Now()
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
				log.Error("failed to remove old backup",
					slog.String("file", file.Name()),
					slog.String("error", err.Error()))
			} else {
				log.Info("removed old backup",
					slog.String("file", file.Name()),
					slog.Duration("age", now.Sub(info.ModTime())))
			}
		}
	}

	return nil
}
