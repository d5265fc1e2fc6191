package insights

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/model"
	"github.com/sells-group/coverage-cli/internal/monitoring"
	"github.com/sells-group/coverage-cli/internal/resilience"
	"github.com/sells-group/coverage-cli/pkg/anthropic"
)

// ErrNotConfigured is returned when no model API key is set.
var ErrNotConfigured = eris.New("insights: AI provider not configured")

const (
	recommendationTemperature = 0.7
	swotTemperature           = 0.6

	emptyRecommendation = "Unable to generate recommendation"
)

// Generator calls the model for recommendations and SWOT analyses.
type Generator struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	cache   Cache
	ttl     time.Duration
	retry   resilience.RetryConfig
	metrics *monitoring.Metrics
}

// Option customises a Generator.
type Option func(*Generator)

// WithCache enables answer caching for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cache = c
		g.ttl = ttl
	}
}

// WithMetrics records model calls and cache lookups.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithRetry overrides the retry policy. The rate limiter and retry
// classification are kept unless r sets its own.
func WithRetry(r resilience.RetryConfig) Option {
	return func(g *Generator) {
		if r.Limiter == nil {
			r.Limiter = g.retry.Limiter
		}
		if r.ShouldRetry == nil {
			r.ShouldRetry = g.retry.ShouldRetry
		}
		g.retry = r
	}
}

// NewGenerator builds a Generator. client may be nil, in which case every
// call fails with ErrNotConfigured.
func NewGenerator(client anthropic.Client, cfg config.AnthropicConfig, opts ...Option) *Generator {
	g := &Generator{
		client: client,
		cfg:    cfg,
		retry:  resilience.DefaultRetryConfig(),
	}
	if cfg.RateLimitRPS > 0 {
		g.retry.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	g.retry.ShouldRetry = retryable
	for _, o := range opts {
		o(g)
	}
	return g
}

// Configured reports whether the generator can reach a model.
func (g *Generator) Configured() bool {
	return g != nil && g.client != nil
}

// Recommend asks which office to open, given the ranked results.
func (g *Generator) Recommend(ctx context.Context, results []coverage.Result, cd *model.ContextualData, radiusKM float64) (string, error) {
	prompt := RecommendationPrompt(results, cd, radiusKM)
	text, err := g.complete(ctx, model.InsightRecommendation, prompt, recommendationTemperature, g.cfg.RecommendationMaxTokens)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return emptyRecommendation, nil
	}
	return text, nil
}

// SWOT runs a SWOT analysis for office. Unparseable answers degrade to the
// text parser and per-section defaults rather than failing.
func (g *Generator) SWOT(ctx context.Context, office coverage.Result, results []coverage.Result, cd *model.ContextualData, radiusKM float64) (*model.SWOT, error) {
	prompt := SWOTPrompt(office, results, cd, radiusKM)
	text, err := g.complete(ctx, model.InsightSWOT, prompt, swotTemperature, g.cfg.SWOTMaxTokens)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, eris.New("insights: empty swot response")
	}

	swot, fromJSON := ParseSWOT(text)
	if !fromJSON {
		zap.L().Warn("insights: swot response was not valid JSON, used text fallback",
			zap.String("office", office.OfficeName))
	}
	return swot, nil
}

func (g *Generator) complete(ctx context.Context, kind model.InsightKind, prompt string, temperature float64, maxTokens int64) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	key := CacheKey(g.cfg.Model, string(kind), prompt)
	if g.cache != nil {
		data, hit, err := g.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("insights: cache lookup failed", zap.Error(err))
		}
		g.metrics.ObserveCache(string(kind), hit)
		if hit {
			var text string
			if err := json.Unmarshal(data, &text); err == nil {
				return text, nil
			}
		}
	}

	req := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	}

	retry := g.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("insights." + string(kind))
	}
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, req)
	})
	if err != nil {
		g.metrics.ObserveInsight(string(kind), 0, 0, 0, err)
		return "", eris.Wrapf(err, "insights: %s", kind)
	}

	resp.Usage.LogCost(g.cfg.Model, string(kind))
	g.metrics.ObserveInsight(string(kind), resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.EstimateCost(g.cfg.Model), nil)

	text := resp.Text()
	if g.cache != nil && strings.TrimSpace(text) != "" {
		data, _ := json.Marshal(text)
		if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
			zap.L().Warn("insights: cache store failed", zap.Error(err))
		}
	}
	return text, nil
}

// retryable treats rate limits, overloads and 5xx as transient, plus
// network failures that never produced a status.
func retryable(err error) bool {
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err)
}
