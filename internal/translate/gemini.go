package translate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini translates with a Gemini model through the GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. It returns nil, nil without an API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, nil
	}
	return newGemini(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

func newGemini(ctx context.Context, cfg *genai.ClientConfig, model string) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Translate(ctx context.Context, req Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(req.Text),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(geminiInstruction(req), genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
		})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func geminiInstruction(req Request) string {
	from := "the detected source language"
	if req.Source != "" {
		from = "language code " + req.Source
	}
	return fmt.Sprintf("Translate the user's text from %s to language code %s. "+
		"Reply with the translation only, without quotes, notes or explanations.", from, req.Target)
}
