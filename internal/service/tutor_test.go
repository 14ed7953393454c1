package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/config"
	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTutorConfig() config.TutorConfig {
	return config.TutorConfig{
		Provider:    "mock",
		APIKey:      "default-key",
		TextModel:   "text-model",
		VisionModel: "vision-model",
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     5 * time.Second,
	}
}

// pngBytes is a valid PNG signature followed by filler.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// imageServer serves test images over TLS on loopback. Tests that fetch from
// it swap in srv.Client(), since the default client refuses loopback.
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slide.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVisionRequested(t *testing.T) {
	full := domain.ResolveRequest{VisualContext: true, ContentURL: "https://cdn/x.png", ContentType: "image"}
	assert.True(t, VisionRequested(full))

	noFlag := full
	noFlag.VisualContext = false
	assert.False(t, VisionRequested(noFlag))

	noURL := full
	noURL.ContentURL = ""
	assert.False(t, VisionRequested(noURL))

	video := full
	video.ContentType = "video"
	assert.False(t, VisionRequested(video))
}

func TestExplain_TextMode(t *testing.T) {
	client := llm.NewMockClient()
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

	res, err := svc.Explain(context.Background(), domain.ResolveRequest{
		Query:        "What is a closure?",
		Context:      "JavaScript basics",
		SelectedText: "function outer() {}",
		Language:     "English",
		DisplayName:  "Asha",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SourceAI, res.Source)
	assert.Equal(t, client.Response, res.Explanation)
	require.NotNil(t, res.ConfidenceBreakdown)
	assert.Equal(t, res.Confidence, res.ConfidenceBreakdown.FinalScore)
	assert.InDelta(t, DefaultModelConfidence, res.ConfidenceBreakdown.ModelConfidence, 1e-9)
	assert.True(t, res.ConfidenceBreakdown.FormattingFlags.MainHeading)

	call, ok := client.LastCall()
	require.True(t, ok)
	assert.Equal(t, "default-key", call.APIKey)
	assert.Equal(t, "text-model", call.Model)
	assert.InDelta(t, 0.7, call.Temperature, 1e-6)
	assert.Equal(t, 2048, call.MaxTokens)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "system", call.Messages[0].Role)
	assert.Equal(t, "user", call.Messages[1].Role)
	assert.Empty(t, call.Messages[1].ImageURL)
	assert.Contains(t, call.Messages[1].Text, "What is a closure?")
}

func TestExplain_CallerKeyOverridesDefault(t *testing.T) {
	client := llm.NewMockClient()
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

	_, err := svc.Explain(context.Background(), domain.ResolveRequest{Query: "q", APIKey: "caller-key"})
	require.NoError(t, err)

	call, _ := client.LastCall()
	assert.Equal(t, "caller-key", call.APIKey)
}

func TestExplain_MissingCredential(t *testing.T) {
	client := llm.NewMockClient()
	cfg := testTutorConfig()
	cfg.APIKey = ""
	svc := NewTutorService(client, cfg, zap.NewNop(), nil)

	_, err := svc.Explain(context.Background(), domain.ResolveRequest{Query: "q"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTutorUnavailable)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	_, called := client.LastCall()
	assert.False(t, called, "no call is made without a credential")
}

func TestExplain_UpstreamErrorIsWrapped(t *testing.T) {
	client := llm.NewMockClient()
	client.Error = errors.New("connection reset")
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

	_, err := svc.Explain(context.Background(), domain.ResolveRequest{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrTutorUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestExplain_KeepsSpecificKind(t *testing.T) {
	client := llm.NewMockClient()
	client.Error = errors.Join(domain.ErrTutorUnavailable, domain.ErrRateLimited)
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

	_, err := svc.Explain(context.Background(), domain.ResolveRequest{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrTutorUnavailable)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestExplain_VisionMode(t *testing.T) {
	srv := imageServer(t)
	client := llm.NewMockClient()
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)
	svc.httpClient = srv.Client()

	res, err := svc.Explain(context.Background(), domain.ResolveRequest{
		Query:         "What does this diagram show?",
		VisualContext: true,
		ContentURL:    srv.URL + "/slide.png",
		ContentType:   "image",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SourceAIVision, res.Source)
	assert.True(t, res.ConfidenceBreakdown.VisionMode)

	call, _ := client.LastCall()
	assert.Equal(t, "vision-model", call.Model)
	assert.True(t, strings.HasPrefix(call.Messages[1].ImageURL, "data:image/png;base64,"))
}

func TestExplain_VisionFetchFailureFallsBackToText(t *testing.T) {
	srv := imageServer(t)
	tests := []struct {
		name string
		path string
	}{
		{"not found", "/missing.png"},
		{"not an image", "/page.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockClient()
			svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)
			svc.httpClient = srv.Client()

			res, err := svc.Explain(context.Background(), domain.ResolveRequest{
				Query:         "What does this show?",
				VisualContext: true,
				ContentURL:    srv.URL + tt.path,
				ContentType:   "image",
			})

			require.NoError(t, err)
			assert.Equal(t, domain.SourceAI, res.Source)
			call, _ := client.LastCall()
			assert.Equal(t, "text-model", call.Model)
			assert.Empty(t, call.Messages[1].ImageURL)
		})
	}
}

func TestExplain_VisionRefusesInternalHosts(t *testing.T) {
	srv := imageServer(t)
	tests := []struct {
		name string
		url  string
	}{
		{"loopback", srv.URL + "/slide.png"},
		{"plain http", strings.Replace(srv.URL, "https://", "http://", 1) + "/slide.png"},
		{"metadata endpoint", "https://169.254.169.254/latest/meta-data/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockClient()
			svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

			res, err := svc.Explain(context.Background(), domain.ResolveRequest{
				Query:         "What does this show?",
				VisualContext: true,
				ContentURL:    tt.url,
				ContentType:   "image",
			})

			require.NoError(t, err)
			assert.Equal(t, domain.SourceAI, res.Source)
			call, _ := client.LastCall()
			assert.Equal(t, "text-model", call.Model)
			assert.Empty(t, call.Messages[1].ImageURL)
		})
	}
}

func TestExplain_RegionModePrompt(t *testing.T) {
	client := llm.NewMockClient()
	svc := NewTutorService(client, testTutorConfig(), zap.NewNop(), nil)

	_, err := svc.Explain(context.Background(), domain.ResolveRequest{
		Query:   "What is this?",
		Context: llm.RegionSentinel + `{"transcript":"we now add the vectors","timestamp":"04:12"}`,
	})
	require.NoError(t, err)

	call, _ := client.LastCall()
	assert.Contains(t, call.Messages[0].Text, "Do NOT greet")
	assert.Contains(t, call.Messages[1].Text, "04:12")
}
