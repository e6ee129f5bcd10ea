package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/knet-ai/research-client/internal/research"
)

func testReducer() *Reducer {
	seq := 0
	return &Reducer{
		now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		newID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
}

func countProgress(messages []Message) int {
	n := 0
	for _, msg := range messages {
		if msg.IsProgress {
			n++
		}
	}
	return n
}

func TestSendAppendsUserAndPlaceholder(t *testing.T) {
	r := testReducer()

	state := r.Apply(SessionState{Error: "old error"}, Send{Content: "What is quantum computing?"})

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	user, placeholder := state.Messages[0], state.Messages[1]
	if user.Role != RoleUser || user.Content != "What is quantum computing?" {
		t.Errorf("unexpected user message: %+v", user)
	}
	if placeholder.Role != RoleAssistant || !placeholder.IsProgress {
		t.Errorf("expected assistant placeholder, got %+v", placeholder)
	}
	if placeholder.Content != "Loading..." {
		t.Errorf("expected Loading... placeholder, got %q", placeholder.Content)
	}
	if placeholder.Progress != 0 {
		t.Errorf("expected progress 0, got %d", placeholder.Progress)
	}
	if !state.IsLoading {
		t.Error("expected IsLoading true")
	}
	if state.Error != "" {
		t.Errorf("expected error cleared, got %q", state.Error)
	}
}

func TestStatusUpdateReplacesPlaceholderInPlace(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "What is quantum computing?"})
	placeholderID := state.Messages[1].ID

	tree := &research.Tree{Query: "quantum computing", Depth: 0}
	state = r.Apply(state, StatusUpdate{Message: "Searching...", Progress: 40, Tree: tree})

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	msg := state.Messages[1]
	if msg.ID != placeholderID {
		t.Errorf("placeholder id changed: %s -> %s", placeholderID, msg.ID)
	}
	if msg.Content != "Searching..." || msg.Progress != 40 {
		t.Errorf("placeholder not updated: %+v", msg)
	}
	if msg.ResearchTree != tree {
		t.Error("research tree not attached")
	}
	if !msg.IsProgress {
		t.Error("placeholder lost IsProgress")
	}
}

func TestStatusUpdateKeepsTreeWhenEventOmitsIt(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})

	tree := &research.Tree{Query: "topic", Depth: 0}
	state = r.Apply(state, StatusUpdate{Message: "Exploring", Progress: 30, Tree: tree})
	state = r.Apply(state, StatusUpdate{Message: "Still exploring", Progress: 50})

	if state.Messages[1].ResearchTree != tree {
		t.Error("tree dropped by update without tree payload")
	}
	if state.Messages[1].Progress != 50 {
		t.Errorf("expected progress 50, got %d", state.Messages[1].Progress)
	}
}

func TestStatusUpdateWithoutPlaceholderAppendsOne(t *testing.T) {
	r := testReducer()

	state := r.Apply(SessionState{}, StatusUpdate{Message: "Searching...", Progress: 10})

	if len(state.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(state.Messages))
	}
	if !state.Messages[0].IsProgress || state.Messages[0].Role != RoleAssistant {
		t.Errorf("expected appended placeholder, got %+v", state.Messages[0])
	}
	if !state.IsLoading {
		t.Error("expected IsLoading true")
	}
}

func TestAtMostOneProgressMessage(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})

	for i := 0; i < 20; i++ {
		state = r.Apply(state, StatusUpdate{Message: fmt.Sprintf("step %d", i), Progress: i * 5})
		if got := countProgress(state.Messages); got != 1 {
			t.Fatalf("after update %d: expected exactly 1 progress message, got %d", i, got)
		}
	}
	if len(state.Messages) != 2 {
		t.Errorf("expected history to stay at 2 messages, got %d", len(state.Messages))
	}
}

func TestCompleteReplacesPlaceholder(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "What is quantum computing?"})
	state = r.Apply(state, StatusUpdate{Message: "Searching...", Progress: 40})

	ts := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	tree := &research.Tree{Query: "quantum computing", Depth: 0}
	state = r.Apply(state, Complete{Content: "Quantum computing is...", Tree: tree, Timestamp: ts})

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	final := state.Messages[1]
	if final.Content != "Quantum computing is..." {
		t.Errorf("unexpected final content %q", final.Content)
	}
	if final.IsProgress {
		t.Error("final message still flagged in progress")
	}
	if !final.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, final.Timestamp)
	}
	if final.ResearchTree != tree {
		t.Error("final tree not attached")
	}
	if state.IsLoading {
		t.Error("expected IsLoading false")
	}
	if countProgress(state.Messages) != 0 {
		t.Error("progress message survived completion")
	}
}

func TestCompleteWithoutPlaceholder(t *testing.T) {
	r := testReducer()

	state := r.Apply(SessionState{}, Complete{Content: "answer"})

	if len(state.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(state.Messages))
	}
	if countProgress(state.Messages) != 0 {
		t.Error("unexpected progress message")
	}
	if state.IsLoading {
		t.Error("expected IsLoading false")
	}
}

func TestCompleteWithEmptyContentFallsBack(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})

	state = r.Apply(state, Complete{})

	final := state.Messages[len(state.Messages)-1]
	if final.Content != "Error: No content available" {
		t.Errorf("expected fallback content, got %q", final.Content)
	}
	if final.Timestamp.IsZero() {
		t.Error("expected timestamp defaulted")
	}
}

func TestAborted(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})
	state = r.Apply(state, StatusUpdate{Message: "Searching...", Progress: 20})

	state = r.Apply(state, Aborted{})

	final := state.Messages[len(state.Messages)-1]
	if final.Content != "Research has been canceled." {
		t.Errorf("unexpected abort message %q", final.Content)
	}
	if countProgress(state.Messages) != 0 {
		t.Error("progress message survived abort")
	}
	if state.IsLoading {
		t.Error("expected IsLoading false")
	}
}

func TestTransportErrorLeavesMessagesAlone(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})
	before := len(state.Messages)

	state = r.Apply(state, TransportError{Message: "backend exploded"})

	if len(state.Messages) != before {
		t.Errorf("messages changed: %d -> %d", before, len(state.Messages))
	}
	if state.Error != "backend exploded" {
		t.Errorf("expected error set, got %q", state.Error)
	}
	if state.IsLoading {
		t.Error("expected IsLoading false")
	}
}

func TestDisconnectedFinalizesPlaceholder(t *testing.T) {
	r := testReducer()
	state := r.Apply(SessionState{}, Send{Content: "topic"})
	state = r.Apply(state, StatusUpdate{Message: "Searching...", Progress: 60})

	state = r.Apply(state, Disconnected{})

	msg := state.Messages[1]
	if msg.Content != "Connection error" {
		t.Errorf("expected Connection error, got %q", msg.Content)
	}
	if msg.IsProgress {
		t.Error("placeholder still flagged in progress")
	}
	if state.IsLoading {
		t.Error("expected IsLoading false")
	}
	if state.Error != "Lost connection to research server" {
		t.Errorf("unexpected error %q", state.Error)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	r := testReducer()
	original := r.Apply(SessionState{}, Send{Content: "topic"})
	originalContent := original.Messages[1].Content

	_ = r.Apply(original, StatusUpdate{Message: "changed", Progress: 50})

	if original.Messages[1].Content != originalContent {
		t.Error("Apply mutated the input state")
	}
}
