package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blackpanther093/manage/logger"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const summaryPrompt = `You are generating a short, urgent admin notification based on student critical feedback.
Rules:
- Be brief and to the point (max 3-4 sentences).
- Use a direct, alerting tone (no over-explanation).
- Include only the key problem(s) without unnecessary details.
- Keep it under %d characters.
- Focus on actionable issues that require immediate attention.

Critical Feedback:
%s`

const classifyPrompt = `Classify the following mess food feedback.
Answer with exactly one word: Critical if it reports a hygiene, safety or health problem
(foreign objects, insects, spoiled or raw food, illness), otherwise Normal.

Feedback:
%s`

// chatClient is the part of *openai.Client used here
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Completer sends single-prompt chat completions with retries
type Completer struct {
	log     logger.Logger
	client  chatClient
	cfg     *Config
	limiter *rate.Limiter
}

// NewCompleter creates a Completer for an OpenAI-compatible endpoint
func NewCompleter(log logger.Logger, cfg *Config) (*Completer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return newCompleter(log, openai.NewClientWithConfig(clientConfig), cfg), nil
}

func newCompleter(log logger.Logger, client chatClient, cfg *Config) *Completer {
	if log == nil {
		log = logger.Nop()
	}
	return &Completer{
		log:     log,
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// Complete sends prompt as one user message and returns the trimmed answer
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        1,
		N:           1,
	}

	var answer string
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyResponse
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", ErrCompletion(err)
	}
	return answer, nil
}

// doWithRetry runs fn with a per-attempt timeout and exponential backoff
func (c *Completer) doWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == c.cfg.MaxRetries-1 {
			break
		}
		wait := c.cfg.RetryBackoff << attempt
		c.log.Debug("completion failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// LLMSummarizer writes digests with a chat completion model
type LLMSummarizer struct {
	completer *Completer
}

// NewLLMSummarizer creates a summarizer on c
func NewLLMSummarizer(c *Completer) *LLMSummarizer {
	return &LLMSummarizer{completer: c}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	cfg := s.completer.cfg
	out, err := s.completer.Complete(ctx, fmt.Sprintf(summaryPrompt, cfg.MaxChars, text), cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return "", err
	}
	return Truncate(out, cfg.MaxChars), nil
}

// LLMClassifier asks a chat completion model for the label
type LLMClassifier struct {
	completer *Completer
}

// NewLLMClassifier creates a classifier on c
func NewLLMClassifier(c *Completer) *LLMClassifier {
	return &LLMClassifier{completer: c}
}

func (l *LLMClassifier) Classify(ctx context.Context, text string) (Label, error) {
	out, err := l.completer.Complete(ctx, fmt.Sprintf(classifyPrompt, text), 5, 0)
	if err != nil {
		return "", err
	}
	word := strings.Trim(strings.ToLower(out), " .\"'\n")
	switch {
	case strings.HasPrefix(word, "critical"):
		return Critical, nil
	case strings.HasPrefix(word, "normal"):
		return Normal, nil
	}
	return "", ErrUnexpectedLabel(out)
}

type disabledSummarizer struct{}

func (disabledSummarizer) Summarize(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// New builds the classifier and summarizer described by cfg. Without an API
// key the summarizer always fails, so digests carry the raw feedback text.
func New(log logger.Logger, cfg *Config) (Classifier, Summarizer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	var classifier Classifier = NewKeywordClassifier(cfg.CriticalTerms...)
	if cfg.APIKey == "" {
		log.Warn("digest api key not set, summaries fall back to raw feedback")
		return classifier, disabledSummarizer{}, nil
	}

	completer, err := NewCompleter(log, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Classifier == ClassifierLLM {
		classifier = NewLLMClassifier(completer)
	}
	log.Info("digest collaborators ready",
		zap.String("classifier", cfg.Classifier),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL),
	)
	return classifier, NewLLMSummarizer(completer), nil
}
