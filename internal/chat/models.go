package chat

import (
	"time"

	"github.com/knet-ai/research-client/internal/config"
	"github.com/knet-ai/research-client/internal/research"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fixed message texts. The reducer identifies the in-flight placeholder by
// the IsProgress flag, never by matching these strings.
const (
	loadingText         = "Loading..."
	canceledText        = "Research has been canceled."
	connectionErrorText = "Connection error"
	disconnectNotice    = "Lost connection to research server"
	noContentFallback   = "Error: No content available"
)

// Message is one chat turn. While a research turn is in flight, exactly one
// assistant message has IsProgress set; its content, progress and tree are
// replaced in place as status events arrive.
type Message struct {
	ID           string         `json:"id"`
	Role         Role           `json:"role"`
	Content      string         `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
	IsProgress   bool           `json:"is_progress,omitempty"`
	Progress     int            `json:"progress,omitempty"`
	ResearchTree *research.Tree  `json:"research_tree,omitempty"`
	Media        *research.Media `json:"media,omitempty"`
}

// SessionState is the live state of the active conversation.
type SessionState struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"is_loading"`
	Error     string    `json:"error,omitempty"`
}

// Conversation is one stored thread. Messages mirror SessionState.Messages
// while the conversation is active.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastUpdated string    `json:"last_updated"`
	Messages    []Message `json:"messages"`
	Active      bool      `json:"active"`
}

// ChatData is the persisted root: every conversation plus the active pointer.
type ChatData struct {
	Conversations         []Conversation `json:"conversations"`
	CurrentConversationID string         `json:"current_conversation_id,omitempty"`
}

// Options are the research settings sent with every start_research command.
type Options struct {
	Depth            config.Depth `json:"depth"`
	Sources          bool         `json:"sources"`
	Citations        bool         `json:"citations"`
	MaxDepth         int          `json:"max_depth"`
	NumSitesPerQuery int          `json:"num_sites_per_query"`
}

// OptionsFromDefaults builds runtime options from configured defaults.
func OptionsFromDefaults(d config.ResearchDefaults) Options {
	return Options{
		Depth:            d.Depth,
		Sources:          d.Sources,
		Citations:        d.Citations,
		MaxDepth:         d.MaxDepth,
		NumSitesPerQuery: d.NumSitesPerQuery,
	}
}

// Validate checks option ranges and normalizes the depth.
func (o *Options) Validate() error {
	defaults := config.ResearchDefaults{
		Depth:            o.Depth,
		Sources:          o.Sources,
		Citations:        o.Citations,
		MaxDepth:         o.MaxDepth,
		NumSitesPerQuery: o.NumSitesPerQuery,
	}
	if err := defaults.Validate(); err != nil {
		return err
	}
	o.Depth = defaults.Depth
	return nil
}

const titleMaxLen = 30

// deriveTitle produces a conversation title from its first user message,
// truncated to 30 characters plus an ellipsis.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return content
}
