// Package assistant answers free-text operator questions about the current dashboard view.
package assistant

import (
	"context"
	"fmt"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/metrics"
	"github.com/myrjola/resqlink/internal/scoring"
	"github.com/myrjola/resqlink/internal/store"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrDisabled      = errors.NewSentinel("assistant is not configured")
	ErrEmptyQuestion = errors.NewSentinel("question is required")
	ErrNoAnswer      = errors.NewSentinel("assistant returned no answer")
)

const (
	MaxTokens      = 512
	maxRankedCases = 5
	systemPrompt   = `You assist operators of a missing-person case dashboard. ` +
		`Answer briefly and only from the dashboard briefing below. ` +
		`If the briefing does not contain the answer, say so.`
)

type Config struct {
	APIKey string `env:"OPENAI_API_KEY"       envDefault:""`
	// BaseURL overrides the OpenAI endpoint, e.g. for a compatible proxy.
	BaseURL string        `env:"OPENAI_BASE_URL"      envDefault:""`
	Model   string        `env:"RESQ_ASSISTANT_MODEL" envDefault:"gpt-3.5-turbo-1106"`
	Timeout time.Duration `env:"RESQ_ASSISTANT_TIMEOUT" envDefault:"30s"`
}

type Assistant struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New returns an assistant. Without an API key the assistant is disabled and Ask returns ErrDisabled.
func New(cfg Config, logger *slog.Logger) *Assistant {
	a := &Assistant{
		client:  nil,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With("source", "Assistant"),
	}
	if a.model == "" {
		a.model = openai.GPT3Dot5Turbo1106
	}
	if cfg.APIKey == "" {
		return a
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	a.client = openai.NewClientWithConfig(config)
	return a
}

func (a *Assistant) Enabled() bool {
	return a.client != nil
}

// Ask answers question using briefing as the only source of facts.
func (a *Assistant) Ask(ctx context.Context, question string, briefing string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     a.model,
			MaxTokens: MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + "\n\n" + briefing},
				{Role: openai.ChatMessageRoleUser, Content: question},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", a.model))
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", ErrNoAnswer
	}
	a.logger.LogAttrs(ctx, slog.LevelDebug, "assistant answered",
		slog.Duration("duration", time.Since(start)),
		slog.Int("totalTokens", completion.Usage.TotalTokens))
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// Briefing summarises the view for the assistant's system prompt.
func Briefing(v store.View, m metrics.Metrics, ranked []scoring.Ranked) string {
	var b strings.Builder
	if !v.LastRefreshed.IsZero() {
		fmt.Fprintf(&b, "Last refreshed: %s\n", v.LastRefreshed.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Cases: %d total", m.Cases.Total)
	for i, label := range m.StatusChart.Labels {
		fmt.Fprintf(&b, ", %d %s", m.StatusChart.Data[i], label)
	}
	b.WriteString("\nUrgency:")
	for i, label := range m.UrgencyChart.Labels {
		fmt.Fprintf(&b, " %s %d", label, m.UrgencyChart.Data[i])
	}
	fmt.Fprintf(&b, "\nTips: %d total, %d verified, %d unverified\n", m.Tips.Total, m.Tips.Verified, m.Tips.Unverified)
	fmt.Fprintf(&b, "Sighting reports: %d total, %d pending review\n", m.Reports.Total, m.Reports.Pending)
	fmt.Fprintf(&b, "Rewards: %d total; redemptions pending review: %d\n", m.Rewards.Total, m.Redemptions.Pending)
	fmt.Fprintf(&b, "Honour users: %d with %d points in total\n", m.Users.Total, m.Users.TotalScore)

	if len(ranked) > 0 {
		b.WriteString("Most urgent cases:\n")
	}
	for i, r := range ranked {
		if i == maxRankedCases {
			break
		}
		fmt.Fprintf(&b, "- #%d %s, age %d, last seen at %s, %s urgency, status %s, score %.2f\n",
			r.Case.ID, r.Case.Name, r.Case.Age, r.Case.Location, r.Case.Urgency, r.Case.Status, r.Score)
	}
	return b.String()
}
