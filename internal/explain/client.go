// Package explain produces an optional narrative paragraph over a finished
// comparison report (SPEC_FULL.md §8). It is disabled unless OPENAI_API_KEY
// is set, and a failure here never touches report.ok or the process exit
// code: the worst that can happen is "no narrative available".
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/yourorg/skewsentry/internal/runner"
)

const maxFeaturesInPrompt = 8

// Config configures a Client. Zero values fall back to sane defaults; see
// internal/config for the process-wide environment-driven defaults.
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	CacheTTL   time.Duration
	CacheSize  int
}

// Client wraps openai-go, reusing the teacher's circuit breaker and cache
// shape (ai.Client / ai.CircuitBreaker / ai.Cache) so a flaky or rate-limited
// provider degrades gracefully instead of slowing down or failing a check.
type Client struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	breaker    *circuitBreaker
	cache      *cache
}

// NewClient constructs a Client. Returns (nil, nil) when cfg.APIKey is
// empty: callers should treat a nil Client as "explainer disabled" rather
// than an error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))

	return &Client{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		breaker:    newCircuitBreaker(defaultCircuitBreakerConfig()),
		cache:      newCache(cacheSize, cacheTTL),
	}, nil
}

// worstFeature is the trimmed-down shape of a runner.FeatureReport the
// prompt actually needs.
type worstFeature struct {
	Name            string  `json:"feature"`
	MismatchRate    float64 `json:"mismatch_rate"`
	NumRowsCompared int     `json:"rows_compared"`
	MeanAbsDiff     float64 `json:"mean_absolute_difference,omitempty"`
	Missing         bool    `json:"missing"`
}

// Narrate returns a short paragraph explaining the likely cause of the
// report's worst-offending features, or ("", nil) if the report is OK (no
// narrative needed) or the client is disabled. Any provider failure is
// logged and reported as ("", err) so the caller can fall back to "no
// narrative available" without affecting the run's exit code.
func (c *Client) Narrate(ctx context.Context, report *runner.ComparisonReport) (string, error) {
	if c == nil || report.OK {
		return "", nil
	}

	worst := worstFeatures(report, maxFeaturesInPrompt)
	if len(worst) == 0 {
		return "", nil
	}

	key, err := makePayloadHash(worst)
	if err != nil {
		return "", fmt.Errorf("explain: hashing payload: %w", err)
	}
	if cached, ok := c.cache.get(key); ok {
		return cached, nil
	}

	narrative, err := c.callWithBreaker(ctx, worst)
	if err != nil {
		slog.Warn("explain_narrative_failed", "error", err)
		return "", err
	}

	c.cache.set(key, narrative)
	return narrative, nil
}

// worstFeatures picks up to n features ordered by mismatch rate descending
// (missing features sort first, as spec.md treats them as the worst case),
// matching the teacher's pattern of truncating prompt payloads to a byte/row
// budget (client.go's MaxSuggestionsContentBytes and friends) rather than
// shipping the whole report.
func worstFeatures(report *runner.ComparisonReport, n int) []worstFeature {
	features := make([]worstFeature, 0, len(report.PerFeature))
	for _, f := range report.PerFeature {
		if !f.Missing && f.MismatchRate == 0 {
			continue
		}
		wf := worstFeature{
			Name:            f.FeatureName,
			MismatchRate:    f.MismatchRate,
			NumRowsCompared: f.NumRowsCompared,
			Missing:         f.Missing,
		}
		if f.MeanAbsoluteDifference != nil {
			wf.MeanAbsDiff = *f.MeanAbsoluteDifference
		}
		features = append(features, wf)
	}

	sort.SliceStable(features, func(i, j int) bool {
		if features[i].Missing != features[j].Missing {
			return features[i].Missing
		}
		return features[i].MismatchRate > features[j].MismatchRate
	})

	if len(features) > n {
		features = features[:n]
	}
	return features
}

// callWithBreaker wraps the chat completion call with circuit breaker
// protection, the same pattern as the teacher's Client.callWithBreaker.
func (c *Client) callWithBreaker(ctx context.Context, worst []worstFeature) (string, error) {
	if !c.breaker.allow() {
		return "", fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
	}

	narrative, err := c.callWithRetry(ctx, worst)
	if err != nil {
		classified := classifyError(statusCodeOf(err), err)
		if classified.category == categoryTransient {
			c.breaker.recordFailure()
		}
		return "", err
	}

	c.breaker.recordSuccess()
	return narrative, nil
}

func (c *Client) callWithRetry(ctx context.Context, worst []worstFeature) (string, error) {
	var lastErr error

	maxAttempts := 1 + c.maxRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelayFor(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		narrative, err := c.callOnce(reqCtx, worst)
		cancel()
		if err == nil {
			return narrative, nil
		}

		lastErr = err
		classified := classifyError(statusCodeOf(err), err)
		if classified.category != categoryTransient {
			return "", lastErr
		}
	}

	return "", lastErr
}

func (c *Client) callOnce(ctx context.Context, worst []worstFeature) (string, error) {
	prompt := buildPrompt(worst)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(400),
	})
	if err != nil {
		return "", translateError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", ErrRefused, choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

const systemPrompt = "You are a data engineer explaining training/serving skew " +
	"in a machine learning feature pipeline. Given a list of features with " +
	"their mismatch rates between an offline and online computation, write a " +
	"short paragraph (3-5 sentences) hypothesizing the likely cause, focused " +
	"on the worst offenders. Do not suggest fixes beyond a one-sentence " +
	"pointer; do not repeat the raw numbers verbatim."

func buildPrompt(worst []worstFeature) string {
	var b strings.Builder
	b.WriteString("Per-feature skew summary (worst first):\n")
	for _, f := range worst {
		if f.Missing {
			fmt.Fprintf(&b, "- %s: missing entirely from one side\n", f.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s: mismatch_rate=%.4f rows_compared=%d", f.Name, f.MismatchRate, f.NumRowsCompared)
		if f.MeanAbsDiff != 0 {
			fmt.Fprintf(&b, " mean_absolute_difference=%.6f", f.MeanAbsDiff)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// translateError converts an openai-go error into an explain domain error,
// mirroring the teacher's Client.translateError.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		if apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if apiErr.StatusCode >= 400 {
			// keep the API error reachable so classifyError sees the 4xx
			// status and treats it as permanent.
			return fmt.Errorf("explain: request rejected: %w", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timeout", ErrUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func statusCodeOf(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func (c *Client) retryDelayFor(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base := c.retryDelay * time.Duration(1<<uint(attempt-1))
	maxJitter := int64(base / 4)
	if maxJitter <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(maxJitter+1))
}
