// Package digest classifies student feedback and condenses the critical
// part of it into a short admin notification.
package digest

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/blackpanther093/manage/logger"
	"go.uber.org/zap"
)

// Label is the class assigned to one feedback comment
type Label string

const (
	Critical Label = "Critical"
	Normal   Label = "Normal"
)

// DefaultMaxChars bounds the length of a digest
const DefaultMaxChars = 400

// Classifier labels a feedback comment
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// Summarizer condenses critical feedback into a notification body
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(ctx context.Context, text string) (Label, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Label, error) { return f(ctx, text) }

// SummarizerFunc adapts a function to Summarizer
type SummarizerFunc func(ctx context.Context, text string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) { return f(ctx, text) }

// Truncate shortens s to at most max runes, replacing the tail with "..."
// when it has to cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// Clip keeps the first max runes of s without an ellipsis
func Clip(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// Summarize asks s for a digest of text and falls back to the first max runes
// of text when s fails or returns nothing. An empty text yields "".
func Summarize(ctx context.Context, log logger.Logger, s Summarizer, text string, max int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if s == nil {
		return Clip(text, max)
	}
	summary, err := s.Summarize(ctx, text)
	if err != nil {
		log.Warn("summarizer failed, using raw feedback", zap.Error(err))
		return Clip(text, max)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		log.Warn("summarizer returned empty digest, using raw feedback")
		return Clip(text, max)
	}
	return Truncate(summary, max)
}
