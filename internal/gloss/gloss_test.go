package gloss

import (
	"context"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello world", "HELLO WORLD"},
		{"  Don't   stop!! ", "DONT STOP"},
		{"café, naïve", "CAFÉ NAÏVE"},
		{"R2-D2", "R D"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Gloss(context.Background(), "where is the library?")
	if err != nil || got != "WHERE IS THE LIBRARY" {
		t.Fatalf("Gloss = %q, %v", got, err)
	}
}

func TestGeminiCleansReply(t *testing.T) {
	var prompts []string
	g := &Gemini{model: "test", generate: func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "\n  Gloss: Library where?\nThis drops the article.", nil
	}}

	got, err := g.Gloss(context.Background(), "Where is the library?")
	if err != nil {
		t.Fatalf("Gloss: %v", err)
	}
	if got != "LIBRARY WHERE" {
		t.Errorf("Gloss = %q", got)
	}
	if len(prompts) != 1 || prompts[0] != "Where is the library?" {
		t.Errorf("prompts = %q", prompts)
	}

	if got, err := g.Gloss(context.Background(), "   "); err != nil || got != "" || len(prompts) != 1 {
		t.Errorf("blank text reached the model: %q %v", got, err)
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), " ", ""); !errors.Is(err, errEmptyAPIKey) {
		t.Errorf("err = %v", err)
	}
}

func TestFallback(t *testing.T) {
	failing := &Gemini{model: "test", generate: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	empty := &Gemini{model: "test", generate: func(context.Context, string) (string, error) {
		return "!!!", nil
	}}

	for name, primary := range map[string]Glosser{"error": failing, "empty": empty} {
		t.Run(name, func(t *testing.T) {
			got, err := WithFallback(primary, Passthrough{}, nil).Gloss(context.Background(), "thank you")
			if err != nil || got != "THANK YOU" {
				t.Fatalf("Gloss = %q, %v", got, err)
			}
		})
	}
}
