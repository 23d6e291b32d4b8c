package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/core"
)

// ErrChatFailed wraps any general-chat backend failure.
var ErrChatFailed = errors.New("chat completion failed")

// Structs for the OpenAI-compatible /chat/completions wire format.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterChat talks to OpenRouter's OpenAI-compatible completion
// endpoint. One attempt per call; the HTTP client timeout is the only
// bound besides ctx.
type OpenRouterChat struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

func NewOpenRouterChat(baseURL, apiKey, model string, timeout time.Duration, log zerolog.Logger) *OpenRouterChat {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouterChat{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Complete sends the full ordered transcript and returns the assistant
// text of the first choice.
func (o *OpenRouterChat) Complete(ctx context.Context, transcript []core.Turn) (string, error) {
	msgs := make([]chatMessage, 0, len(transcript))
	for _, t := range transcript {
		msgs = append(msgs, chatMessage{Role: t.Role, Content: t.Content})
	}

	payloadBytes, err := json.Marshal(chatPayload{Model: o.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		o.log.Warn().Int("status", resp.StatusCode).Bytes("body", body).
			Msg("chat completion returned non-200")
		return "", fmt.Errorf("%w: status %s", ErrChatFailed, resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrChatFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrChatFailed)
	}
	return out.Choices[0].Message.Content, nil
}

var _ core.ChatProvider = (*OpenRouterChat)(nil)
