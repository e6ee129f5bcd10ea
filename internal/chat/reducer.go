package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/knet-ai/research-client/internal/research"
)

// Event is one input to the session reducer: a user action or an inbound
// transport event, already mapped to reducer terms by the Manager.
type Event interface {
	isEvent()
}

// Send appends a user message and the in-flight assistant placeholder.
// Content must already be trimmed and non-empty.
type Send struct {
	Content string
}

// StatusUpdate replaces the in-flight placeholder's content, progress and
// tree in place, or appends a fresh placeholder if none exists.
type StatusUpdate struct {
	Message  string
	Progress int
	Tree     *research.Tree
}

// Complete finalizes the research turn: the placeholder is removed and the
// synthesized answer appended.
type Complete struct {
	Content   string
	Media     *research.Media
	Tree      *research.Tree
	Timestamp time.Time
}

// Aborted finalizes the turn with a cancellation notice.
type Aborted struct{}

// TransportError surfaces a session-level error without touching messages.
type TransportError struct {
	Message string
}

// Disconnected finalizes any in-flight placeholder with a connection error.
type Disconnected struct{}

func (Send) isEvent()           {}
func (StatusUpdate) isEvent()   {}
func (Complete) isEvent()       {}
func (Aborted) isEvent()        {}
func (TransportError) isEvent() {}
func (Disconnected) isEvent()   {}

// Reducer folds events into session states. It owns no state of its own;
// clock and id generation are injectable for tests.
type Reducer struct {
	now   func() time.Time
	newID func() string
}

// NewReducer returns a reducer using the wall clock and random UUIDs.
func NewReducer() *Reducer {
	return &Reducer{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Apply produces the next session state from the current one and a single
// event. The input state is never mutated; the message slice is copied before
// any change.
func (r *Reducer) Apply(state SessionState, event Event) SessionState {
	switch e := event.(type) {
	case Send:
		return r.applySend(state, e)
	case StatusUpdate:
		return r.applyStatus(state, e)
	case Complete:
		return r.applyComplete(state, e)
	case Aborted:
		return r.applyAborted(state)
	case TransportError:
		state.Error = e.Message
		state.IsLoading = false
		return state
	case Disconnected:
		return r.applyDisconnected(state)
	}
	return state
}

func (r *Reducer) applySend(state SessionState, e Send) SessionState {
	messages := append(copyMessages(state.Messages),
		Message{
			ID:        r.newID(),
			Role:      RoleUser,
			Content:   e.Content,
			Timestamp: r.now(),
		},
		Message{
			ID:         r.newID(),
			Role:       RoleAssistant,
			Content:    loadingText,
			Timestamp:  r.now(),
			IsProgress: true,
			Progress:   0,
		})

	return SessionState{
		Messages:  messages,
		IsLoading: true,
		Error:     "",
	}
}

func (r *Reducer) applyStatus(state SessionState, e StatusUpdate) SessionState {
	messages := copyMessages(state.Messages)

	if i := lastProgressIndex(messages); i >= 0 {
		messages[i].Content = e.Message
		messages[i].Progress = e.Progress
		messages[i].Timestamp = r.now()
		if e.Tree != nil {
			messages[i].ResearchTree = e.Tree
		}
	} else {
		messages = append(messages, Message{
			ID:           r.newID(),
			Role:         RoleAssistant,
			Content:      e.Message,
			Timestamp:    r.now(),
			IsProgress:   true,
			Progress:     e.Progress,
			ResearchTree: e.Tree,
			Media:        &research.Media{},
		})
	}

	state.Messages = messages
	state.IsLoading = true
	return state
}

func (r *Reducer) applyComplete(state SessionState, e Complete) SessionState {
	messages := removeProgress(copyMessages(state.Messages))

	content := e.Content
	if content == "" {
		content = noContentFallback
	}
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = r.now()
	}

	state.Messages = append(messages, Message{
		ID:           r.newID(),
		Role:         RoleAssistant,
		Content:      content,
		Timestamp:    timestamp,
		Media:        e.Media,
		ResearchTree: e.Tree,
	})
	state.IsLoading = false
	return state
}

func (r *Reducer) applyAborted(state SessionState) SessionState {
	messages := removeProgress(copyMessages(state.Messages))

	state.Messages = append(messages, Message{
		ID:        r.newID(),
		Role:      RoleAssistant,
		Content:   canceledText,
		Timestamp: r.now(),
	})
	state.IsLoading = false
	return state
}

func (r *Reducer) applyDisconnected(state SessionState) SessionState {
	messages := copyMessages(state.Messages)
	for i := range messages {
		if messages[i].IsProgress {
			messages[i].Content = connectionErrorText
			messages[i].IsProgress = false
		}
	}

	state.Messages = messages
	state.IsLoading = false
	state.Error = disconnectNotice
	return state
}

// lastProgressIndex finds the in-flight placeholder: the last assistant
// message flagged IsProgress. Returns -1 when none exists.
func lastProgressIndex(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant && messages[i].IsProgress {
			return i
		}
	}
	return -1
}

func removeProgress(messages []Message) []Message {
	if i := lastProgressIndex(messages); i >= 0 {
		messages = append(messages[:i], messages[i+1:]...)
	}
	return messages
}

func copyMessages(messages []Message) []Message {
	return append([]Message(nil), messages...)
}
