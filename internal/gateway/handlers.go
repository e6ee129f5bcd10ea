package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/knet-ai/research-client/internal/chat"
	"github.com/knet-ai/research-client/internal/logger"
	"github.com/knet-ai/research-client/internal/research"
)

const (
	defaultGraphWidth  = 1200.0
	defaultGraphHeight = 800.0
)

// Handler exposes the conversation manager and its derived views to the
// presentation layer. Handlers never mutate state except through manager
// actions.
type Handler struct {
	logger  *logger.Logger
	manager *chat.Manager
	views   *viewCache
}

// NewHandler creates a gateway handler around the manager.
func NewHandler(log *logger.Logger, manager *chat.Manager) *Handler {
	return &Handler{
		logger:  log,
		manager: manager,
		views:   newViewCache(),
	}
}

// GetSession returns the live session snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Session())
}

// conversationSummary elides message bodies from list responses.
type conversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LastUpdated  string `json:"last_updated"`
	Active       bool   `json:"active"`
	MessageCount int    `json:"message_count"`
}

// ListConversations returns the conversation list, newest-interacted first.
func (h *Handler) ListConversations(c *gin.Context) {
	conversations := h.manager.Conversations()
	summaries := make([]conversationSummary, len(conversations))
	for i, conv := range conversations {
		summaries[i] = conversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			LastUpdated:  conv.LastUpdated,
			Active:       conv.Active,
			MessageCount: len(conv.Messages),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations":           summaries,
		"current_conversation_id": h.manager.CurrentConversationID(),
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage starts a research turn.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.manager.SendMessage(req.Content)
	c.JSON(http.StatusAccepted, h.manager.Session())
}

// NewConversation clears the active conversation.
func (h *Handler) NewConversation(c *gin.Context) {
	h.manager.NewConversation()
	c.JSON(http.StatusOK, h.manager.Session())
}

// SelectConversation activates a stored conversation. Unknown ids are a
// no-op, mirroring the manager's semantics.
func (h *Handler) SelectConversation(c *gin.Context) {
	id := c.Param("id")
	ctx := logger.WithConversationID(c.Request.Context(), id)
	h.logger.WithContext(ctx).WithComponent("gateway").Debug("selecting conversation")

	h.manager.SelectConversation(id)
	c.JSON(http.StatusOK, h.manager.Session())
}

// DeleteConversation removes one conversation.
func (h *Handler) DeleteConversation(c *gin.Context) {
	h.manager.DeleteConversation(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// DeleteAllConversations empties the conversation set.
func (h *Handler) DeleteAllConversations(c *gin.Context) {
	h.manager.DeleteAllConversations()
	c.Status(http.StatusNoContent)
}

// AbortResearch requests cancellation of the in-flight turn.
func (h *Handler) AbortResearch(c *gin.Context) {
	h.manager.AbortResearch()
	c.JSON(http.StatusAccepted, h.manager.Session())
}

// GetOptions returns the current research options.
func (h *Handler) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Options())
}

// PutOptions replaces the research options.
func (h *Handler) PutOptions(c *gin.Context) {
	var options chat.Options
	if err := c.ShouldBindJSON(&options); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.manager.SetOptions(options); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.manager.Options())
}

// GetSources returns the aggregated source list for a message's tree.
func (h *Handler) GetSources(c *gin.Context) {
	msg, ok := h.manager.FindMessage(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": h.views.viewsFor(msg).sources})
}

// GetGraph runs the force layout for a message's tree and returns the
// positioned nodes and edges. The simulation runs under the request context,
// so an abandoned request cancels it.
func (h *Handler) GetGraph(c *gin.Context) {
	msg, ok := h.manager.FindMessage(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	width := queryFloat(c, "width", defaultGraphWidth)
	height := queryFloat(c, "height", defaultGraphHeight)

	ctx := logger.WithOperation(c.Request.Context(), "graph_layout")
	views := h.views.viewsFor(msg)
	sim := research.NewSimulation(views.nodes, views.edges, width, height)
	if err := sim.Run(ctx); err != nil {
		if errors.Is(err, ctx.Err()) {
			return // client went away
		}
		h.logger.WithComponent("gateway").LogError(ctx, err, "layout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "layout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": sim.Positions(),
		"edges": views.edges,
	})
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
