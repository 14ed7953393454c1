package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/buildconfig"
	"github.com/Harshitk-cp/doubtsolver/internal/config"
	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/llm"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

// maxImageBytes caps how much of a content URL is read for vision mode.
const maxImageBytes = 8 << 20

// TutorService builds the prompt, calls the generative tutor and scores what
// comes back.
type TutorService struct {
	client     domain.TutorClient
	cfg        config.TutorConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func NewTutorService(client domain.TutorClient, cfg config.TutorConfig, logger *zap.Logger, metrics *observability.Metrics) *TutorService {
	return &TutorService{
		client:     client,
		cfg:        cfg,
		httpClient: newContentClient(20*time.Second, cfg.ContentHosts),
		logger:     logger,
		metrics:    metrics,
	}
}

// VisionRequested reports whether req qualifies for vision mode: a visual
// context flag, a content URL and an image content type, all at once.
func VisionRequested(req domain.ResolveRequest) bool {
	return req.VisualContext &&
		strings.TrimSpace(req.ContentURL) != "" &&
		strings.EqualFold(strings.TrimSpace(req.ContentType), domain.ContentTypeImage)
}

// Explain asks the tutor for a fresh answer. Every error it returns wraps
// domain.ErrTutorUnavailable.
func (s *TutorService) Explain(ctx context.Context, req domain.ResolveRequest) (*domain.Resolution, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = s.cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrTutorUnavailable, domain.ErrMissingCredential)
	}

	vision := VisionRequested(req)
	var imageURL string
	if vision {
		dataURL, err := s.fetchImage(ctx, req.ContentURL)
		if err != nil {
			s.logger.Warn("vision image unavailable, falling back to text", zap.String("content_url", req.ContentURL), zap.Error(err))
			s.metrics.Degraded("vision_fetch")
			vision = false
		} else {
			imageURL = dataURL
		}
	}

	prompt := llm.BuildPrompt(llm.PromptInput{
		Query:        req.Query,
		Context:      req.Context,
		SelectedText: req.SelectedText,
		Language:     req.Language,
		DisplayName:  req.DisplayName,
		Vision:       vision,
	})

	model := s.cfg.TextModel
	mode := "text"
	if vision {
		model = s.cfg.VisionModel
		mode = "vision"
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := s.client.Complete(callCtx, domain.TutorRequest{
		APIKey: apiKey,
		Model:  model,
		Messages: []domain.TutorMessage{
			{Role: "system", Text: prompt.System},
			{Role: "user", Text: prompt.User, ImageURL: imageURL},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	s.metrics.TutorCall(mode, time.Since(start))
	if err != nil {
		s.logger.Error("tutor call failed",
			zap.String("mode", mode),
			zap.String("prompt_mode", string(prompt.Mode)),
			zap.Error(err))
		if !errors.Is(err, domain.ErrTutorUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrTutorUnavailable, err)
		}
		return nil, err
	}

	formatting := AnalyzeFormatting(text)
	modelConf := DefaultModelConfidence
	confidence, breakdown := ScoreConfidence(ConfidenceParams{
		ModelConfidence:   &modelConf,
		HasGeneralContext: strings.TrimSpace(req.Context) != "",
		HasSelectedText:   strings.TrimSpace(req.SelectedText) != "",
		HasVisualContext:  req.VisualContext,
		VisionMode:        vision,
		ResponseLength:    len([]rune(text)),
		FormattingScore:   formatting.Score,
		ContentType:       req.ContentType,
	})
	breakdown.FormattingFlags = formatting.Details

	source := domain.SourceAI
	if vision {
		source = domain.SourceAIVision
	}

	s.logger.Debug("tutor answered",
		zap.String("mode", mode),
		zap.String("prompt_mode", string(prompt.Mode)),
		zap.String("query_class", string(prompt.Class)),
		zap.Int("confidence", confidence))

	return &domain.Resolution{
		Explanation:         text,
		Confidence:          confidence,
		ConfidenceBreakdown: &breakdown,
		Source:              source,
	}, nil
}

// fetchImage downloads url and returns it as a base64 data URL. Only https
// URLs on public hosts, limited to cfg.ContentHosts when set, are fetched.
func (s *TutorService) fetchImage(ctx context.Context, url string) (string, error) {
	if err := checkContentURL(url, s.cfg.ContentHosts); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create image request: %w", err)
	}
	req.Header.Set("User-Agent", buildconfig.UserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("image is empty")
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mime := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("content is %s, not an image", mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
