package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTutorTemperature = 0.7
	DefaultTutorMaxTokens   = 2048
	DefaultTutorTimeout     = 45 * time.Second
)

type tutorPreset struct {
	baseURL     string
	textModel   string
	visionModel string
	keyEnv      string
}

var tutorPresets = map[string]tutorPreset{
	"groq": {
		baseURL:     "https://api.groq.com/openai/v1/chat/completions",
		textModel:   "llama-3.3-70b-versatile",
		visionModel: "meta-llama/llama-4-scout-17b-16e-instruct",
		keyEnv:      "GROQ_API_KEY",
	},
	"openai": {
		baseURL:     "https://api.openai.com/v1/chat/completions",
		textModel:   "gpt-4o-mini",
		visionModel: "gpt-4o",
		keyEnv:      "OPENAI_API_KEY",
	},
	"cerebras": {
		baseURL:     "https://api.cerebras.ai/v1/chat/completions",
		textModel:   "llama-3.3-70b",
		visionModel: "llama-3.3-70b",
		keyEnv:      "CEREBRAS_API_KEY",
	},
	"mock": {},
}

// TutorConfig is read once at startup and handed to the tutor gateway. It is
// a plain value; nothing mutates it after Tutor returns.
type TutorConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// ContentHosts limits vision image fetches to these hosts and their
	// subdomains. Empty allows any public host.
	ContentHosts []string
}

// Tutor builds the tutor configuration from the provider preset, letting any
// TUTOR_* variable override it. TUTOR_API_KEY wins over the provider's own
// key variable.
func Tutor() TutorConfig {
	provider := TutorProvider()
	preset, ok := tutorPresets[provider]
	if !ok {
		preset = tutorPresets["groq"]
	}

	cfg := TutorConfig{
		Provider:    provider,
		BaseURL:     firstNonEmpty(os.Getenv("TUTOR_BASE_URL"), preset.baseURL),
		TextModel:   firstNonEmpty(os.Getenv("TUTOR_TEXT_MODEL"), preset.textModel),
		VisionModel: firstNonEmpty(os.Getenv("TUTOR_VISION_MODEL"), preset.visionModel),
		Temperature: DefaultTutorTemperature,
		MaxTokens:   DefaultTutorMaxTokens,
		Timeout:     DefaultTutorTimeout,
	}

	cfg.APIKey = os.Getenv("TUTOR_API_KEY")
	if cfg.APIKey == "" && preset.keyEnv != "" {
		cfg.APIKey = os.Getenv(preset.keyEnv)
	}
	// The mock tutor needs no credential, but the gateway still requires one.
	if cfg.APIKey == "" && provider == "mock" {
		cfg.APIKey = "mock"
	}

	if secs, err := strconv.Atoi(os.Getenv("TUTOR_TIMEOUT_SECONDS")); err == nil && secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	for _, h := range strings.Split(os.Getenv("CONTENT_HOSTS"), ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			cfg.ContentHosts = append(cfg.ContentHosts, h)
		}
	}

	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
