package assistant_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/metrics"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/scoring"
	"github.com/myrjola/resqlink/internal/store"
	"github.com/myrjola/resqlink/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeOpenAI struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	answer   string
	status   int
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ //nolint:exhaustruct // minimal response
		ID:    "chatcmpl-1",
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{{ //nolint:exhaustruct // minimal response
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.answer},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func (f *fakeOpenAI) received() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

func (f *fakeOpenAI) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func newAssistant(t *testing.T, fake *fakeOpenAI) *assistant.Assistant {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return assistant.New(assistant.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1/",
		Model:   "test-model",
		Timeout: time.Second,
	}, testhelpers.NewLogger(io.Discard))
}

func TestAssistant_Ask(t *testing.T) {
	fake := &fakeOpenAI{answer: "  Michael Chen is the most urgent case.  "} //nolint:exhaustruct // zero state
	a := newAssistant(t, fake)

	answer, err := a.Ask(context.Background(), "Which case is most urgent?", "Cases: 3 total")
	require.NoError(t, err)
	require.Equal(t, "Michael Chen is the most urgent case.", answer)

	requests := fake.received()
	require.Len(t, requests, 1)
	req := requests[0]
	require.Equal(t, "test-model", req.Model)
	require.Equal(t, assistant.MaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Contains(t, req.Messages[0].Content, "Cases: 3 total")
	require.Equal(t, "Which case is most urgent?", req.Messages[1].Content)
}

func TestAssistant_Errors(t *testing.T) {
	disabled := assistant.New(assistant.Config{APIKey: "", BaseURL: "", Model: "", Timeout: 0},
		testhelpers.NewLogger(io.Discard))
	require.False(t, disabled.Enabled())
	_, err := disabled.Ask(context.Background(), "hello", "")
	require.ErrorIs(t, err, assistant.ErrDisabled)

	fake := &fakeOpenAI{} //nolint:exhaustruct // zero state
	a := newAssistant(t, fake)
	require.True(t, a.Enabled())

	_, err = a.Ask(context.Background(), "   ", "")
	require.ErrorIs(t, err, assistant.ErrEmptyQuestion)
	require.Empty(t, fake.received())

	_, err = a.Ask(context.Background(), "anything?", "")
	require.ErrorIs(t, err, assistant.ErrNoAnswer)

	fake.fail(http.StatusInternalServerError)
	_, err = a.Ask(context.Background(), "anything?", "")
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestBriefing(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	v := store.View{ //nolint:exhaustruct // only collections matter
		Cases: []models.Case{
			{ID: 1, Name: "Sarah Johnson", Age: 14, Location: "Central Park, Manhattan",
				Urgency: models.UrgencyHigh, Status: models.CaseStatusPending, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: 2, Name: "Michael Chen", Age: 8, Location: "Sunset Mall Food Court",
				Urgency: models.UrgencyHigh, Status: models.CaseStatusActive, CreatedAt: now},
		},
		Tips:          []models.Tip{{ID: 1, Verified: true}},
		LastRefreshed: now,
	}
	got := assistant.Briefing(v, metrics.Compute(v), scoring.Rank(v.Cases, now))

	require.Contains(t, got, "Last refreshed: 2026-10-18T12:00:00Z")
	require.Contains(t, got, "Cases: 2 total, 1 Pending, 1 Active, 0 Solved, 0 Rejected")
	require.Contains(t, got, "Urgency: High 2 Medium 0 Low 0")
	require.Contains(t, got, "Tips: 1 total, 1 verified, 0 unverified")
	require.Contains(t, got, "- #2 Michael Chen, age 8, last seen at Sunset Mall Food Court, High urgency, status Active, score 1.00")
	require.Less(t, strings.Index(got, "#2 Michael Chen"), strings.Index(got, "#1 Sarah Johnson"))
}
