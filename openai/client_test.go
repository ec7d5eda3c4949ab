package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"medivault-backend/config"
	openaipkg "medivault-backend/openai"
)

// fakeLLM serves /v1/chat/completions and records the last request body.
func fakeLLM(t *testing.T, reply string, lastBody *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		if lastBody != nil {
			*lastBody = string(b)
		}
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.Unmarshal(b, &req)
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, tok := range strings.SplitAfter(reply, " ") {
				chunk, _ := json.Marshal(map[string]any{
					"id": "c1", "object": "chat.completion.chunk",
					"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": tok}}},
				})
				_, _ = w.Write([]byte("data: " + string(chunk) + "\n\n"))
			}
			_, _ = w.Write([]byte("data: [DONE]\n\n"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "c1", "object": "chat.completion",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
}

func newClient(srv *httptest.Server) *openaipkg.Client {
	return openaipkg.NewClient(config.Config{
		LLMAPIKey:   "test-key",
		LLMBaseURL:  srv.URL + "/v1",
		LLMModel:    "llama-3.3-70b-versatile",
		VisionModel: "vision-model",
	})
}

func TestComplete_SendsSystemAndUser(t *testing.T) {
	var body string
	srv := fakeLLM(t, `{"ok":true}`, &body)
	defer srv.Close()

	got, err := newClient(srv).Complete(context.Background(), "Return valid JSON analysis.", "Analyze symptoms: cough")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected reply %q", got)
	}
	for _, want := range []string{`"role":"system"`, "Return valid JSON analysis.", "Analyze symptoms: cough", `"temperature":0.3`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s: %s", want, body)
		}
	}
}

func TestStreamMessage_CollectsTokens(t *testing.T) {
	srv := fakeLLM(t, "rest and fluids help", nil)
	defer srv.Close()

	ch, err := newClient(srv).StreamMessage(context.Background(), "sys", "hi")
	if err != nil {
		t.Fatalf("StreamMessage error: %v", err)
	}
	var sb strings.Builder
	for tok := range ch {
		sb.WriteString(tok)
	}
	if sb.String() != "rest and fluids help" {
		t.Fatalf("got %q", sb.String())
	}
}

func TestRecognize_SendsImagePart(t *testing.T) {
	var body string
	srv := fakeLLM(t, "Hemoglobin 13.5 g/dL", &body)
	defer srv.Close()

	img := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := newClient(srv).Recognize(context.Background(), img, "image/png")
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if got != "Hemoglobin 13.5 g/dL" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(body, "data:image/png;base64,") || !strings.Contains(body, `"vision-model"`) {
		t.Fatalf("image part not sent: %s", body)
	}
}

func TestNoKey(t *testing.T) {
	c := openaipkg.NewClient(config.Config{LLMModel: "m"})
	if _, err := c.Complete(context.Background(), "", "x"); !errors.Is(err, openaipkg.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := c.StreamMessage(context.Background(), "", "x"); !errors.Is(err, openaipkg.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
