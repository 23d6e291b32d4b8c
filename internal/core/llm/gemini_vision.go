package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/aftr-app/aftr-backend/internal/core"
)

// ErrGenerationFailed wraps any vision-service failure so callers can
// distinguish "the model call broke" from their own errors.
var ErrGenerationFailed = errors.New("vision generation failed")

// maxSystemMessageLen bounds the stored persona seed.
const maxSystemMessageLen = 16 << 10

type GeminiVision struct {
	client    *genai.Client
	modelName string
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string) (*GeminiVision, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiVision{client: cl, modelName: modelName}, nil
}

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Describe submits the prompt plus image attachments and returns the
// generated analysis text, capped at maxSystemMessageLen. With zero
// images the call still runs text-only. No retries.
func (g *GeminiVision) Describe(ctx context.Context, prompt string, images []core.ImagePart) (string, error) {
	m := g.client.GenerativeModel(g.modelName)

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData(subtypeOf(img.MIMEType), img.Bytes))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return truncate(b.String(), maxSystemMessageLen), nil
}

// subtypeOf maps "image/jpeg" to the bare "jpeg" format genai expects.
func subtypeOf(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok {
		return sub
	}
	return mimeType
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var _ core.VisionProvider = (*GeminiVision)(nil)
