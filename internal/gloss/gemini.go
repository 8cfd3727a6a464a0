package gloss

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

const systemPrompt = `You convert English sentences into sign language gloss for an animated signing avatar.
Rules:
- Output only the gloss on a single line, nothing else.
- Use upper-case English words, one word per sign, separated by spaces.
- Drop articles, auxiliary verbs and filler words (A, AN, THE, IS, ARE, TO BE).
- Keep names and words with no sign as they are so they can be fingerspelled.
- Do not add punctuation, numbering or explanations.`

var errEmptyAPIKey = errors.New("gemini api key is empty")

// generateFunc sends a prompt to the model and returns its text reply.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Gemini glosses text with a Gemini model.
type Gemini struct {
	model    string
	generate generateFunc
}

var _ Glosser = &Gemini{}

// NewGemini creates a Gemini glosser on the Gemini API backend.
//
// Parameters:
//   - ctx: used for client construction only
//   - apiKey: the Gemini API key
//   - model: the model name, DefaultModel when empty
//
// Returns:
//   - *Gemini: the glosser
//   - error: an error if the key is empty or the client could not be created
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errEmptyAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	g := &Gemini{model: model}
	g.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

// Model returns the model name.
func (g *Gemini) Model() string {
	return g.model
}

func (g *Gemini) Gloss(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	reply, err := g.generate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("gloss with %s: %w", g.model, err)
	}
	return Normalize(firstLine(reply)), nil
}

// firstLine returns the first non-empty line with any "GLOSS:" label removed.
func firstLine(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i := strings.Index(strings.ToUpper(line), "GLOSS:"); i >= 0 {
			line = line[i+len("GLOSS:"):]
		}
		return line
	}
	return ""
}
