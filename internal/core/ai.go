package core

import "context"

// Roles used throughout the chat transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one in-memory message of a transcript.
type Turn struct {
	Role    string
	Content string
}

// ImagePart is a normalized, decodable image payload ready for
// submission to a vision model.
type ImagePart struct {
	Bytes    []byte
	MIMEType string
}

// VisionProvider generates free text from a prompt plus zero or more
// image attachments.
type VisionProvider interface {
	Describe(ctx context.Context, prompt string, images []ImagePart) (string, error)
}

// ChatProvider completes a conversation. The transcript is ordered:
// system turn first (if any), then alternating user/assistant turns.
type ChatProvider interface {
	Complete(ctx context.Context, transcript []Turn) (string, error)
}

// FitnessProvider answers fitness/diet/workout queries via an external
// data service and returns display-ready text.
type FitnessProvider interface {
	Query(ctx context.Context, message string) (string, error)
}
