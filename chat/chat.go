package chat

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medivault-backend/login"
	"medivault-backend/sse"
)

type Handler struct {
	Assistant *Assistant
	AITimeout time.Duration
}

func NewHandler(a *Assistant) *Handler {
	return &Handler{Assistant: a, AITimeout: 90 * time.Second}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/chat", h.Chat)
	r.POST("/chat/stream", h.Stream)
	r.POST("/chat-document", h.Document)
}

type chatRequest struct {
	Message   string `json:"message"`
	UserEmail string `json:"userEmail"`
}

// owner picks the history to load: the supplied email, else the verified
// caller, else none.
func owner(c *gin.Context, supplied string) (string, bool) {
	email := strings.TrimSpace(supplied)
	if email == "" {
		if id := login.Current(c); id != nil {
			email = id.Email
		}
	}
	if email != "" && !login.Authorize(c, email) {
		return "", false
	}
	return email, true
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "message is required"})
		return
	}
	email, ok := owner(c, req.UserEmail)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	defer cancel()
	start := time.Now()
	reply := h.Assistant.AnswerContext(ctx, req.Message, email)
	log.Printf("[CHAT][CONTEXT] owner=%s chars=%d elapsed=%s", email, len(reply), time.Since(start))
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) Stream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "message is required"})
		return
	}
	email, ok := owner(c, req.UserEmail)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	defer cancel()
	sse.Stream(c, h.Assistant.StreamContext(ctx, req.Message, email))
}

func (h *Handler) Document(c *gin.Context) {
	var req struct {
		RecordID string `json:"recordId"`
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RecordID) == "" || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "recordId and question are required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	defer cancel()

	rec, reply := h.Assistant.FindRecord(ctx, req.RecordID)
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"reply": reply})
		return
	}
	if !login.Authorize(c, rec.Owner) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": h.Assistant.AnswerRecord(ctx, rec, req.Question)})
}
