package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/buildconfig"
	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ChatClient speaks the OpenAI-compatible chat-completions protocol that
// Groq, OpenAI and Cerebras all serve. The API key travels with each request
// because callers may bring their own.
type ChatClient struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewChatClient(url string, logger *zap.Logger) *ChatClient {
	c := &ChatClient{
		url:        url,
		httpClient: &http.Client{},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tutor-chat",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("tutor circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Caller-side problems say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrInvalidCredential) ||
				errors.Is(err, domain.ErrRateLimited) ||
				errors.Is(err, context.Canceled)
		},
	})
	return c
}

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// chatMessage.Content is a plain string for text-only messages and a part
// list when an image is attached.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func toChatMessages(msgs []domain.TutorMessage) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ImageURL == "" {
			out = append(out, chatMessage{Role: m.Role, Content: m.Text})
			continue
		}
		out = append(out, chatMessage{
			Role: m.Role,
			Content: []contentPart{
				{Type: "text", Text: m.Text},
				{Type: "image_url", ImageURL: &imageURL{URL: m.ImageURL}},
			},
		})
	}
	return out
}

func (c *ChatClient) Complete(ctx context.Context, req domain.TutorRequest) (string, error) {
	if req.APIKey == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrTutorUnavailable, domain.ErrMissingCredential)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", domain.ErrTutorUnavailable, err)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *ChatClient) complete(ctx context.Context, req domain.TutorRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    toChatMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal chat request: %w", domain.ErrTutorUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create chat request: %w", domain.ErrTutorUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("User-Agent", buildconfig.UserAgent())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: chat request failed: %w", domain.ErrTutorUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read chat response: %w", domain.ErrTutorUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal chat response: %w", domain.ErrTutorUnavailable, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: chat API error: %s", domain.ErrTutorUnavailable, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: chat API returned no choices", domain.ErrTutorUnavailable)
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: chat API returned an empty message", domain.ErrTutorUnavailable)
	}
	return text, nil
}

func statusError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrTutorUnavailable, domain.ErrInvalidCredential)
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w (status %d)", domain.ErrTutorUnavailable, domain.ErrRateLimited, status)
	default:
		return fmt.Errorf("%w: chat API returned status %d: %s", domain.ErrTutorUnavailable, status, truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
