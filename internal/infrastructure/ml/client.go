package ml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsLens/internal/config"
	"NewsLens/internal/domain"
	"NewsLens/internal/infrastructure/httpx"
	"NewsLens/internal/ports"
)

// Client talks to the external analysis service that scores item quality and
// proposes topic tags.
type Client struct {
	http *httpx.Client
}

var _ ports.Analyzer = (*Client)(nil)

// NewClient creates a reusable client. It returns nil when no endpoint is configured.
func NewClient(cfg config.AnalysisConfig, res config.ResilienceConfig, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	return &Client{
		http: httpx.New(httpx.Options{
			Name:            "analysis",
			BaseURL:         cfg.Endpoint,
			APIKey:          cfg.APIKey,
			Timeout:         cfg.Timeout,
			MaxRetries:      res.MaxRetries,
			Backoff:         res.Backoff,
			MaxBackoff:      res.MaxBackoff,
			BreakerFailures: res.BreakerFailures,
			BreakerCooldown: res.BreakerCooldown,
			RatePerSecond:   res.RatePerSecond,
			Burst:           res.Burst,
			Logger:          logger,
		}),
	}
}

// Analyze sends the item text for feature extraction. The response is
// returned as-is; callers sanitize it.
func (c *Client) Analyze(ctx context.Context, title, summary string) (domain.RawAnalysis, error) {
	if c == nil || c.http == nil {
		return domain.RawAnalysis{}, errors.New("analysis client is not configured")
	}

	payload := map[string]any{
		"title":   title,
		"summary": summary,
	}

	var out domain.RawAnalysis
	if err := c.http.PostJSON(ctx, "/analyze", payload, &out); err != nil {
		return domain.RawAnalysis{}, fmt.Errorf("analyze: %w", err)
	}
	return out, nil
}
