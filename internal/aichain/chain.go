// Package aichain cascades text generation across AI providers in
// priority order, returning the first success.
package aichain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNoProviders is returned when no configured provider is registered.
var ErrNoProviders = eris.New("aichain: no providers configured")

// Provider is a single text-generation backend.
type Provider interface {
	// Name identifies the provider in logs and stored analyses.
	Name() string
	// Configured reports whether the provider has what it needs to run
	// (API key, reachable server). Unconfigured providers are skipped.
	Configured() bool
	// Generate produces a completion for prompt under the given system
	// instruction.
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Chain tries providers in registration order, returning the first
// success. A lead is never blocked on AI availability: when every
// provider fails, callers fall back to deterministic scoring.
type Chain struct {
	providers []Provider
}

// NewChain creates a Chain over the given providers. Order is priority
// order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Available reports whether at least one provider is configured.
func (c *Chain) Available() bool {
	for _, p := range c.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// Generate tries each configured provider in order and returns the first
// non-empty completion along with the provider name that produced it.
func (c *Chain) Generate(ctx context.Context, prompt, system string) (string, string, error) {
	var lastErr error
	tried := 0
	for _, p := range c.providers {
		if !p.Configured() {
			continue
		}
		tried++
		text, err := p.Generate(ctx, prompt, system)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, p.Name(), nil
		}
		if err != nil {
			zap.L().Debug("aichain: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if tried == 0 {
		return "", "", ErrNoProviders
	}
	if lastErr != nil {
		return "", "", eris.Wrap(lastErr, "aichain: all providers failed")
	}
	return "", "", eris.New("aichain: all providers returned empty output")
}

// jsonSystemInstruction is appended to the system prompt so models
// answer with a bare JSON object.
const jsonSystemInstruction = "Отвечай ТОЛЬКО валидным JSON без пояснений и без другого текста."

// GenerateJSON runs Generate with the JSON-only instruction appended to
// the system prompt and unmarshals the completion into out, tolerating
// markdown fences and surrounding prose around the JSON object. The
// provider name that produced the payload is returned.
func (c *Chain) GenerateJSON(ctx context.Context, prompt, system string, out any) (string, error) {
	if system == "" {
		system = jsonSystemInstruction
	} else {
		system += " " + jsonSystemInstruction
	}
	text, provider, err := c.Generate(ctx, prompt, system)
	if err != nil {
		return "", err
	}
	cleaned := cleanJSON(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return "", eris.Wrapf(err, "aichain: parse JSON from %s", provider)
	}
	return provider, nil
}

// cleanJSON strips markdown fences and leading/trailing prose so model
// output parses as a JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
