package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"medivault-backend/config"
)

// ErrNoAPIKey is returned by every call when no LLM key is configured.
var ErrNoAPIKey = errors.New("LLM API key not configured")

// Client talks to any OpenAI-compatible chat completion endpoint (Groq by
// default).
type Client struct {
	api         *openai.Client
	Model       string
	VisionModel string
	Temperature float32
	hasKey      bool
}

func NewClient(cfg config.Config) *Client {
	key := sanitizeEnv(cfg.LLMAPIKey)
	oc := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.LLMBaseURL); base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		Model:       cfg.LLMModel,
		VisionModel: cfg.VisionModel,
		Temperature: 0.3,
		hasKey:      key != "",
	}
}

// sanitizeEnv strips surrounding whitespace and one pair of matching quotes,
// which .env files frequently leave around secrets.
func sanitizeEnv(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func (c *Client) messages(system, user string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
}

// Complete sends one system+user exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.hasKey {
		return "", ErrNoAPIKey
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: c.Temperature,
		Messages:    c.messages(system, user),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamMessage streams the assistant reply token by token. The channel is
// closed when the stream ends or ctx is cancelled.
func (c *Client) StreamMessage(ctx context.Context, system, user string) (<-chan string, error) {
	if !c.hasKey {
		return nil, ErrNoAPIKey
	}
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: c.Temperature,
		Messages:    c.messages(system, user),
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer stream.Close()
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err != nil {
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- resp.Choices[0].Delta.Content:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

const visionPrompt = "Transcribe all text visible in this medical document image exactly as written. Return only the transcribed text, no commentary."

// Recognize sends an image to the vision model and returns its transcription.
// It satisfies files.OCR so it can stand in for tesseract.
func (c *Client) Recognize(ctx context.Context, path, mediaType string) (string, error) {
	if !c.hasKey {
		return "", ErrNoAPIKey
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if mediaType == "" || !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(raw))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.VisionModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto}},
			},
		}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
