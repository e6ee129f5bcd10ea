package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/knet-ai/research-client/internal/research"
)

// Event is one typed inbound event from the research backend, delivered on
// the channel's single event stream.
type Event interface {
	isEvent()
}

// Connected signals the channel is up (initial connect or reconnect).
type Connected struct{}

// Disconnected signals the channel went down. Err is nil on clean shutdown.
type Disconnected struct {
	Err error
}

// Status is a progress update for the in-flight research turn.
type Status struct {
	Message  string
	Progress int
	Tree     *research.Tree
}

// Complete carries the final synthesized answer.
type Complete struct {
	Content   string
	Media     *research.Media
	Tree      *research.Tree
	Timestamp time.Time
}

// Aborted confirms a cancellation request.
type Aborted struct{}

// BackendError is an error reported by the backend.
type BackendError struct {
	Message string
}

func (Connected) isEvent()    {}
func (Disconnected) isEvent() {}
func (Status) isEvent()       {}
func (Complete) isEvent()     {}
func (Aborted) isEvent()      {}
func (BackendError) isEvent() {}

// envelope is the wire format: a type discriminator plus the union of all
// event payload fields.
type envelope struct {
	Type         string          `json:"type"`
	Message      string          `json:"message,omitempty"`
	Progress     int             `json:"progress,omitempty"`
	Content      string          `json:"content,omitempty"`
	Media        *research.Media `json:"media,omitempty"`
	ResearchTree *research.Tree  `json:"research_tree,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
}

// Outbound commands.
type startResearchCommand struct {
	Type             string `json:"type"`
	Topic            string `json:"topic"`
	MaxDepth         int    `json:"max_depth"`
	NumSitesPerQuery int    `json:"num_sites_per_query"`
}

type abortResearchCommand struct {
	Type string `json:"type"`
}

// decodeEvent parses one wire message into a typed event.
func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	switch env.Type {
	case "status":
		return Status{
			Message:  env.Message,
			Progress: env.Progress,
			Tree:     env.ResearchTree,
		}, nil
	case "research_complete":
		var ts time.Time
		if env.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, env.Timestamp); err == nil {
				ts = parsed
			}
		}
		return Complete{
			Content:   env.Content,
			Media:     env.Media,
			Tree:      env.ResearchTree,
			Timestamp: ts,
		}, nil
	case "research_aborted":
		return Aborted{}, nil
	case "error":
		return BackendError{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
