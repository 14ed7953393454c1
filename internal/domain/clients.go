package domain

import "context"

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TutorMessage is one role-tagged chat message. ImageURL, when set, is sent
// as an inline image part next to Text.
type TutorMessage struct {
	Role     string
	Text     string
	ImageURL string
}

type TutorRequest struct {
	APIKey      string
	Model       string
	Messages    []TutorMessage
	Temperature float32
	MaxTokens   int
}

type TutorClient interface {
	// Complete returns the first choice's message text.
	Complete(ctx context.Context, req TutorRequest) (string, error)
}
