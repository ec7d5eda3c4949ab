// Package predict hosts the doctor-facing AI tools: symptom risk prediction
// and drug interaction checks.
package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medivault-backend/analyzer"
)

const systemPrompt = "Return valid JSON analysis."

// shapes describes the JSON object each tool must answer with.
var shapes = map[string]string{
	"symptoms": `Respond with JSON only, in this shape:
{"risk": "Low|Moderate|High", "score": 0-100, "condition": "most likely condition", "explanation": "short reasoning", "tests": ["recommended test"]}`,
	"drugs": `Respond with JSON only, in this shape:
{"status": "Safe|Caution|Dangerous", "message": "one line verdict", "details": "interaction details"}`,
}

var ErrUnknownType = errors.New("unknown analysis type")

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Tools struct {
	AI Completer
}

// Analyze runs one tool. A nil map with a nil error means the model answered
// but no JSON object could be parsed from it.
func (t *Tools) Analyze(ctx context.Context, kind, input string) (map[string]any, error) {
	shape, ok := shapes[kind]
	if !ok {
		return nil, ErrUnknownType
	}
	user := fmt.Sprintf("Analyze %s: %s\n\n%s", kind, input, shape)
	raw, err := t.AI.Complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, err
	}
	body := analyzer.ExtractJSON(raw)
	if body == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		log.Printf("[PREDICT][PARSE] type=%s err=%v", kind, err)
		return nil, nil
	}
	return out, nil
}

type Handler struct {
	Tools     *Tools
	AITimeout time.Duration
}

func NewHandler(ai Completer) *Handler {
	return &Handler{Tools: &Tools{AI: ai}, AITimeout: 90 * time.Second}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/ai-predict", h.Predict)
}

func (h *Handler) Predict(c *gin.Context) {
	var req struct {
		Type  string `json:"type"`
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Input) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "type and input are required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	defer cancel()

	data, err := h.Tools.Analyze(ctx, strings.ToLower(strings.TrimSpace(req.Type)), req.Input)
	switch {
	case errors.Is(err, ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "type must be symptoms or drugs"})
		return
	case err != nil:
		log.Printf("[PREDICT][ERROR] type=%s err=%v", req.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "AI analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
