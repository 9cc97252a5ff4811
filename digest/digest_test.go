package digest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blackpanther093/manage/logger"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 450)
	got := Truncate(long, 400)
	assert.Len(t, got, 400)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 397), strings.TrimSuffix(got, "..."))

	assert.Equal(t, "short", Truncate("short", 400))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	// counts runes, not bytes
	assert.Equal(t, "नम...", Truncate("नमस्ते दुनिया", 5))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", Clip("abcdef", 3))
	assert.Equal(t, "abc", Clip("abc", 10))
}

func TestSummarize_Fallbacks(t *testing.T) {
	raw := strings.Repeat("dal had a stone. ", 40)
	failing := SummarizerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	})
	blank := SummarizerFunc(func(context.Context, string) (string, error) {
		return "   ", nil
	})

	tests := []struct {
		name string
		s    Summarizer
		want string
	}{
		{"error", failing, Clip(strings.TrimSpace(raw), 400)},
		{"empty output", blank, Clip(strings.TrimSpace(raw), 400)},
		{"nil summarizer", nil, Clip(strings.TrimSpace(raw), 400)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(context.Background(), logger.Nop(), tt.s, raw, 400)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), 400)
		})
	}
}

func TestSummarize_TruncatesLongSummary(t *testing.T) {
	verbose := SummarizerFunc(func(context.Context, string) (string, error) {
		return strings.Repeat("x", 500), nil
	})
	got := Summarize(context.Background(), logger.Nop(), verbose, "stone in dal", 400)
	assert.Equal(t, strings.Repeat("x", 397)+"...", got)
}

func TestSummarize_EmptyText(t *testing.T) {
	called := false
	s := SummarizerFunc(func(context.Context, string) (string, error) {
		called = true
		return "x", nil
	})
	assert.Empty(t, Summarize(context.Background(), logger.Nop(), s, "  \n ", 400))
	assert.False(t, called)
}

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier()
	tests := []struct {
		text string
		want Label
	}{
		{"Found a cockroach in the biryani", Critical},
		{"There was a NAIL in my food!", Critical},
		{"Fish fry had a very foul smell", Critical},
		{"Paratha was warm and crispy", Normal},
		{"Curd was fresh and cool", Normal},
		{"The chair was broken", Normal},
		{"Strawberry shake was nice", Normal},
	}
	for _, tt := range tests {
		got, err := k.Classify(context.Background(), tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestKeywordClassifier_CustomTerms(t *testing.T) {
	k := NewKeywordClassifier("too salty", "")
	got, _ := k.Classify(context.Background(), "Sambar was TOO salty.")
	assert.Equal(t, Critical, got)
	got, _ = k.Classify(context.Background(), "Found a cockroach")
	assert.Equal(t, Normal, got)
}

type fakeChat struct {
	calls   atomic.Int32
	fail    int32
	answer  string
	lastReq openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	n := f.calls.Add(1)
	f.lastReq = req
	if n <= f.fail {
		return openai.ChatCompletionResponse{}, errors.New("503 service unavailable")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.answer}}},
	}, nil
}

func testConfig() *Config {
	return (&Config{APIKey: "k", RetryBackoff: time.Millisecond}).MergeDefaults()
}

func TestCompleter_RetriesThenSucceeds(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	chat := &fakeChat{fail: 2, answer: "  Stone found in dal at Food Sutra.  "}
	c := newCompleter(zap.New(core), chat, testConfig())

	got, err := NewLLMSummarizer(c).Summarize(context.Background(), "stone in dal")
	require.NoError(t, err)
	assert.Equal(t, "Stone found in dal at Food Sutra.", got)
	assert.Equal(t, int32(3), chat.calls.Load())
	assert.Equal(t, 2, logs.FilterMessage("completion failed, retrying").Len())

	assert.Equal(t, "llama-3.3-70b-versatile", chat.lastReq.Model)
	assert.Equal(t, 150, chat.lastReq.MaxTokens)
	require.Len(t, chat.lastReq.Messages, 1)
	assert.Contains(t, chat.lastReq.Messages[0].Content, "Keep it under 400 characters.")
	assert.Contains(t, chat.lastReq.Messages[0].Content, "stone in dal")
}

func TestCompleter_GivesUp(t *testing.T) {
	chat := &fakeChat{fail: 10}
	c := newCompleter(nil, chat, testConfig())

	_, err := c.Complete(context.Background(), "p", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest: completion failed")
	assert.Equal(t, int32(3), chat.calls.Load())
}

func TestCompleter_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.RetryBackoff = time.Hour
	chat := &fakeChat{fail: 10}
	c := newCompleter(nil, chat, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := c.Complete(ctx, "p", 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), chat.calls.Load())
}

func TestCompleter_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RatePerSecond = 0.001
	cfg.Burst = 1
	chat := &fakeChat{fail: 10}
	c := newCompleter(nil, chat, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, "p", 10, 0)
	assert.Error(t, err)
	assert.Equal(t, int32(1), chat.calls.Load(), "second attempt must wait for a token")
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		answer  string
		want    Label
		wantErr bool
	}{
		{"Critical", Critical, false},
		{"critical.", Critical, false},
		{" Normal\n", Normal, false},
		{"maybe", "", true},
	}
	for _, tt := range tests {
		c := newCompleter(nil, &fakeChat{answer: tt.answer}, testConfig())
		got, err := NewLLMClassifier(c).Classify(context.Background(), "hair in rice")
		if tt.wantErr {
			assert.Error(t, err, tt.answer)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNew_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		answer := "Urgent: insects reported in lunch dal."
		if req.MaxTokens == 5 {
			answer = "Critical"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer},
			}},
		})
	}))
	defer srv.Close()

	classifier, summarizer, err := New(nil, &Config{
		Classifier: ClassifierLLM,
		BaseURL:    srv.URL,
		APIKey:     "secret",
	})
	require.NoError(t, err)

	label, err := classifier.Classify(context.Background(), "insects in dal")
	require.NoError(t, err)
	assert.Equal(t, Critical, label)

	summary, err := summarizer.Summarize(context.Background(), "insects in dal")
	require.NoError(t, err)
	assert.Equal(t, "Urgent: insects reported in lunch dal.", summary)
}

func TestNew_WithoutAPIKey(t *testing.T) {
	classifier, summarizer, err := New(nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &KeywordClassifier{}, classifier)

	_, err = summarizer.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, "x", Summarize(context.Background(), logger.Nop(), summarizer, "x", 400))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, (&Config{Classifier: ClassifierLLM}).MergeDefaults().Validate(), ErrMissingAPIKey)
	assert.Error(t, (&Config{Classifier: "bayes"}).MergeDefaults().Validate())
	assert.Error(t, (&Config{MaxChars: 2}).MergeDefaults().Validate())
}
