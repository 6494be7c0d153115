package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.0-flash"
)

// Config for an OpenAI-compatible chat completions endpoint.
type Config struct {
	APIKey            string
	BaseURL           string        // default Gemini's OpenAI-compatible endpoint
	Model             string        // e.g. "gemini-2.0-flash", "gpt-4o-mini"
	Temperature       float32       // 0..2
	Timeout           time.Duration // per request attempt
	MaxRetries        int           // attempts after the first
	RequestsPerMinute int           // 0 disables client-side throttling
	RetryDelay        time.Duration
}

// ConfigFrom maps the application's vision section onto a client Config.
func ConfigFrom(v common.VisionConfig) Config {
	return Config{
		APIKey:            v.APIKey,
		BaseURL:           v.BaseURL,
		Model:             v.Model,
		Temperature:       v.Temperature,
		Timeout:           v.Timeout,
		MaxRetries:        v.MaxRetries,
		RequestsPerMinute: v.RequestsPerMinute,
	}
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient validates cfg and fills defaults. A missing API key is a
// configuration error.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.ConfigurationError("vision api key is required (GEMINI_API_KEY or OPENAI_API_KEY)", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (c *Client) Model() string { return c.cfg.Model }
