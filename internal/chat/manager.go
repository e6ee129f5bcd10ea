package chat

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/knet-ai/research-client/internal/logger"
	"github.com/knet-ai/research-client/internal/transport"
)

// Commander is the outbound half of the transport channel. Commands are
// fire-and-forget; an error means the command could not be written locally.
type Commander interface {
	StartResearch(topic string, maxDepth, numSitesPerQuery int) error
	AbortResearch() error
}

// Manager owns the conversation set, the active pointer and the live session
// state. Every state transition goes through the reducer; every change to the
// conversation set or the active conversation's messages is mirrored to the
// store. A single mutex keeps user actions and inbound transport events from
// overlapping.
type Manager struct {
	logger  *logger.Logger
	store   *Store
	channel Commander
	reducer *Reducer

	mu            sync.Mutex
	session       SessionState
	conversations []Conversation
	currentID     string
	options       Options
}

// NewManager loads persisted chat data and rehydrates the session from the
// active conversation, if any.
func NewManager(log *logger.Logger, store *Store, channel Commander, options Options) *Manager {
	m := &Manager{
		logger:  log,
		store:   store,
		channel: channel,
		reducer: NewReducer(),
		session: SessionState{Messages: []Message{}},
		options: options,
	}

	data := store.Load()
	m.conversations = data.Conversations
	m.currentID = data.CurrentConversationID

	if m.currentID != "" {
		for i := range m.conversations {
			if m.conversations[i].ID == m.currentID {
				m.session.Messages = copyMessages(m.conversations[i].Messages)
				break
			}
		}
	}

	return m
}

// Session returns a snapshot of the live session state.
func (m *Manager) Session() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session
	state.Messages = copyMessages(state.Messages)
	return state
}

// Conversations returns a snapshot of the conversation list.
func (m *Manager) Conversations() []Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Conversation, len(m.conversations))
	for i, conv := range m.conversations {
		out[i] = conv
		out[i].Messages = copyMessages(conv.Messages)
	}
	return out
}

// CurrentConversationID returns the active conversation id, or "".
func (m *Manager) CurrentConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// Options returns the current research options.
func (m *Manager) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options
}

// SetOptions replaces the research options after validation.
func (m *Manager) SetOptions(options Options) error {
	if err := options.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = options
	return nil
}

// FindMessage looks a message up in the live session by id.
func (m *Manager) FindMessage(id string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.session.Messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// SendMessage starts a research turn: it creates the conversation if none is
// active, appends the user message and the progress placeholder through the
// reducer, persists, and forwards a start_research command upstream. A
// transport failure surfaces as a session error.
func (m *Manager) SendMessage(content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return
	}

	m.mu.Lock()

	if m.currentID == "" {
		conv := Conversation{
			ID:          uuid.New().String(),
			Title:       deriveTitle(trimmed),
			LastUpdated: time.Now().Format(time.RFC3339),
			Messages:    []Message{},
			Active:      true,
		}
		for i := range m.conversations {
			m.conversations[i].Active = false
		}
		m.conversations = append([]Conversation{conv}, m.conversations...)
		m.currentID = conv.ID
	} else {
		m.touchActiveLocked()
	}

	m.session = m.reducer.Apply(m.session, Send{Content: trimmed})
	m.persistLocked()

	options := m.options
	m.mu.Unlock()

	if err := m.channel.StartResearch(trimmed, options.MaxDepth, options.NumSitesPerQuery); err != nil {
		m.logger.WithComponent("chat-manager").Error("failed to send start_research",
			slog.String("error", err.Error()))
		m.mu.Lock()
		m.session = m.reducer.Apply(m.session, TransportError{Message: "Failed to connect to research server"})
		m.persistLocked()
		m.mu.Unlock()
	}
}

// NewConversation clears the active pointer and resets the session. Stored
// conversations are untouched.
func (m *Manager) NewConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newConversationLocked()
	m.persistLocked()
}

func (m *Manager) newConversationLocked() {
	m.currentID = ""
	for i := range m.conversations {
		m.conversations[i].Active = false
	}
	m.session = SessionState{Messages: []Message{}}
}

// SelectConversation activates a stored conversation and rehydrates the
// session from it. An unknown id is a silent no-op.
func (m *Manager) SelectConversation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := -1
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			found = i
			break
		}
	}
	if found == -1 {
		return
	}

	for i := range m.conversations {
		m.conversations[i].Active = i == found
	}
	m.currentID = id
	m.session = SessionState{
		Messages:  copyMessages(m.conversations[found].Messages),
		IsLoading: false,
	}
	m.persistLocked()
}

// DeleteConversation removes a conversation; deleting the active one resets
// the session.
func (m *Manager) DeleteConversation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.conversations[:0]
	for _, conv := range m.conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	m.conversations = kept

	if m.currentID == id {
		m.newConversationLocked()
	}
	m.persistLocked()
}

// DeleteAllConversations empties the conversation set.
func (m *Manager) DeleteAllConversations() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations = []Conversation{}
	m.newConversationLocked()
	m.persistLocked()
}

// AbortResearch asks the backend to cancel the in-flight turn. The session
// keeps loading until the research_aborted event arrives.
func (m *Manager) AbortResearch() {
	err := m.channel.AbortResearch()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.WithComponent("chat-manager").Error("failed to send abort_research",
			slog.String("error", err.Error()))
		m.session.Error = "Failed to abort research"
		return
	}
	m.session.IsLoading = true
}

// HandleEvent is the single dispatch point for inbound transport events.
// Events always apply to whichever session is current; there is no routing
// of late events to the conversation that started the turn.
func (m *Manager) HandleEvent(event transport.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logger.WithComponent("chat-manager")

	switch e := event.(type) {
	case transport.Connected:
		log.Info("connected to research server")
	case transport.Disconnected:
		log.Warn("disconnected from research server")
		m.session = m.reducer.Apply(m.session, Disconnected{})
		m.persistLocked()
	case transport.Status:
		m.session = m.reducer.Apply(m.session, StatusUpdate{
			Message:  e.Message,
			Progress: e.Progress,
			Tree:     e.Tree,
		})
		m.persistLocked()
	case transport.Complete:
		m.session = m.reducer.Apply(m.session, Complete{
			Content:   e.Content,
			Media:     e.Media,
			Tree:      e.Tree,
			Timestamp: e.Timestamp,
		})
		m.touchActiveLocked()
		m.persistLocked()
	case transport.Aborted:
		m.session = m.reducer.Apply(m.session, Aborted{})
		m.persistLocked()
	case transport.BackendError:
		m.session = m.reducer.Apply(m.session, TransportError{Message: e.Message})
	default:
		log.Debug("ignoring unhandled transport event")
	}
}

// touchActiveLocked bumps the active conversation's LastUpdated.
func (m *Manager) touchActiveLocked() {
	for i := range m.conversations {
		if m.conversations[i].ID == m.currentID {
			m.conversations[i].LastUpdated = time.Now().Format(time.RFC3339)
			return
		}
	}
}

// persistLocked writes the full snapshot with the active conversation's
// messages mirrored from the session. Failures are logged, never surfaced.
func (m *Manager) persistLocked() {
	data := ChatData{
		Conversations:         make([]Conversation, len(m.conversations)),
		CurrentConversationID: m.currentID,
	}
	for i, conv := range m.conversations {
		data.Conversations[i] = conv
		if conv.ID == m.currentID {
			data.Conversations[i].Messages = copyMessages(m.session.Messages)
			m.conversations[i].Messages = copyMessages(m.session.Messages)
		}
	}

	if err := m.store.Save(data); err != nil {
		m.logger.WithComponent("chat-manager").Error("failed to persist chat data",
			slog.String("error", err.Error()))
	}
}
