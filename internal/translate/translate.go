// Package translate translates text through a chain of providers, falling back in order.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidInput is returned for requests without text or target language.
	ErrInvalidInput = errors.New("text and target language are required")
	// ErrNoProviders is returned by a chain without configured providers.
	ErrNoProviders = errors.New("no translation providers configured")
)

// Request is a translation request. An empty Source asks the provider to detect it.
type Request struct {
	Text   string `json:"text" validate:"required,max=5000"`
	Source string `json:"source" validate:"omitempty,min=2,max=10"`
	Target string `json:"target" validate:"required,min=2,max=10"`
}

// Result is a successful translation.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Provider is a single translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

// Chain tries its providers in order and returns the first success.
type Chain struct {
	providers []Provider
}

// NewChain creates a chain trying providers in the given order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Options selects the providers of a chain built with New.
type Options struct {
	GoogleAPIKey      string
	LibreTranslateURL string
	LibreTranslateKey string
	MyMemoryEnabled   bool
	GeminiAPIKey      string
	GeminiModel       string
}

// New builds the chain google, libretranslate, mymemory, gemini from the configured providers.
func New(ctx context.Context, opts Options) (*Chain, error) {
	var providers []Provider
	if g := NewGoogle(opts.GoogleAPIKey); g != nil {
		providers = append(providers, g)
	}
	if l := NewLibre(opts.LibreTranslateURL, opts.LibreTranslateKey); l != nil {
		providers = append(providers, l)
	}
	if m := NewMyMemory(opts.MyMemoryEnabled); m != nil {
		providers = append(providers, m)
	}
	gemini, err := NewGemini(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	if err != nil {
		return nil, err
	}
	if gemini != nil {
		providers = append(providers, gemini)
	}
	return NewChain(providers...), nil
}

// Providers returns the names of the configured providers in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Translate runs the providers in order. When all fail the joined errors are returned.
func (c *Chain) Translate(ctx context.Context, req Request) (Result, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.Target = strings.TrimSpace(req.Target)
	req.Source = strings.TrimSpace(req.Source)
	if req.Text == "" || req.Target == "" {
		return Result{}, ErrInvalidInput
	}
	if len(c.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	var errs []error
	for _, p := range c.providers {
		text, err := p.Translate(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return Result{Text: text, Provider: p.Name()}, nil
		}
		if err == nil {
			err = errors.New("empty translation")
		}
		log.Warn().Err(err).Str("provider", p.Name()).Msg("Translation provider failed")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("all translation providers failed: %w", errors.Join(errs...))
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(truncate(string(data), 200)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
