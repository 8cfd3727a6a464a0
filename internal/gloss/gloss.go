package gloss

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// Glosser rewrites learner text into sign gloss: upper-case tokens, one per sign.
type Glosser interface {
	Gloss(ctx context.Context, text string) (string, error)
}

// Passthrough upper-cases the text without reordering or dropping words.
type Passthrough struct{}

var _ Glosser = Passthrough{}

func (Passthrough) Gloss(_ context.Context, text string) (string, error) {
	return Normalize(text), nil
}

// Normalize upper-cases letters, turns every other rune into a separator and collapses runs of
// separators into single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if r == '\'' {
			continue
		}
		space = true
	}
	return b.String()
}

type fallback struct {
	primary   Glosser
	secondary Glosser
	logger    *slog.Logger
}

// WithFallback returns a Glosser that tries primary and falls back to secondary when primary
// fails or returns nothing.
func WithFallback(primary, secondary Glosser, logger *slog.Logger) Glosser {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *fallback) Gloss(ctx context.Context, text string) (string, error) {
	out, err := f.primary.Gloss(ctx, text)
	if err == nil && out != "" {
		return out, nil
	}
	if err != nil {
		f.logger.Warn("gloss failed, using fallback", "error", err)
	}
	return f.secondary.Gloss(ctx, text)
}
