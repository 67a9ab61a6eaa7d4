// Package qualify scores extracted candidates against a program's niche
// with an LLM and parses the structured verdict out of free-form replies.
package qualify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leadscout/leadscout/internal/extract"
	"github.com/leadscout/leadscout/internal/provider"
	"github.com/leadscout/leadscout/internal/store"
)

// PainSignal is one pain point the model surfaced while scoring.
type PainSignal struct {
	Category  string `json:"category"`
	Intensity int    `json:"intensity"`
	Quote     string `json:"quote"`
}

// Result is the parsed qualification verdict for one candidate.
type Result struct {
	Score     int          `json:"score"`
	Reasoning string       `json:"reasoning"`
	Pains     []PainSignal `json:"pains"`
}

// Qualifier drives the scoring calls. Retries cover transient transport
// errors only; a reply that arrives but cannot be parsed is a final
// qualification failure for that candidate.
type Qualifier struct {
	provider    provider.LLMProvider
	model       string
	maxTokens   int
	temperature float64
	attempts    int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option tweaks Qualifier construction.
type Option func(*Qualifier)

// WithRetries sets the transient-error retry budget and base backoff delay.
func WithRetries(attempts int, baseDelay time.Duration) Option {
	return func(q *Qualifier) {
		if attempts > 0 {
			q.attempts = attempts
		}
		if baseDelay > 0 {
			q.baseDelay = baseDelay
		}
	}
}

// WithSampling overrides the generation parameters.
func WithSampling(maxTokens int, temperature float64) Option {
	return func(q *Qualifier) {
		q.maxTokens = maxTokens
		q.temperature = temperature
	}
}

// New builds a Qualifier on the given provider and model. An empty model
// falls back to the provider default.
func New(p provider.LLMProvider, model string, opts ...Option) *Qualifier {
	q := &Qualifier{
		provider:    p,
		model:       model,
		maxTokens:   800,
		temperature: 0.2,
		attempts:    3,
		baseDelay:   time.Second,
		sleep:       sleepCtx,
	}
	if q.model == "" {
		q.model = p.DefaultModel()
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

const systemPrompt = `You are a B2B lead qualification analyst. Given a program niche and a chat participant's recent messages, decide how likely the participant is a prospective buyer in that niche.

Reply with a single JSON object, no other text:
{"score": <0-100>, "reasoning": "<one or two sentences>", "pains": [{"category": "<short category>", "intensity": <1-5>, "quote": "<verbatim or lightly trimmed quote>"}]}

Score 0 means definitely not a prospect, 100 means an ideal prospect actively looking. List a pain only when the participant's own words express a concrete problem.`

// Qualify scores one candidate. The returned error is either a transport
// failure that exhausted retries or a *ParseError for an unusable reply.
func (q *Qualifier) Qualify(ctx context.Context, program *store.Program, c extract.Candidate) (*Result, error) {
	req := &provider.ChatRequest{
		Model:       q.model,
		MaxTokens:   q.maxTokens,
		Temperature: q.temperature,
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(program, c)},
		},
	}

	var resp *provider.ChatResponse
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = q.provider.Chat(ctx, req)
		if err == nil {
			break
		}
		if !provider.IsTransient(err) || attempt >= q.attempts {
			return nil, fmt.Errorf("qualification call failed: %w", err)
		}
		delay := q.baseDelay << (attempt - 1)
		slog.Debug("retrying qualification call", "user", c.UserID, "attempt", attempt, "delay", delay, "error", err)
		if err := q.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	var result Result
	if err := DecodeReply(resp.Content, &result); err != nil {
		return nil, err
	}
	result.Score = clamp(result.Score, 0, 100)
	for i := range result.Pains {
		result.Pains[i].Intensity = clamp(result.Pains[i].Intensity, 1, 5)
		if result.Pains[i].Category == "" {
			result.Pains[i].Category = "general"
		}
	}
	return &result, nil
}

func buildPrompt(program *store.Program, c extract.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Niche: %s\n", program.Niche)
	if c.Bio != "" {
		fmt.Fprintf(&b, "Participant bio: %s\n", c.Bio)
	}
	fmt.Fprintf(&b, "Activity: %d messages, last active %s, freshness %s\n",
		c.MessageCount, c.LastActive.UTC().Format(time.RFC3339), c.Freshness)
	b.WriteString("Recent messages:\n")
	for _, m := range c.Messages {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
