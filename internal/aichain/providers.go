package aichain

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/webtailor-studio/leadgen-cli/pkg/claude"
	"github.com/webtailor-studio/leadgen-cli/pkg/gemini"
	"github.com/webtailor-studio/leadgen-cli/pkg/groq"
	"github.com/webtailor-studio/leadgen-cli/pkg/ollama"
	"github.com/webtailor-studio/leadgen-cli/pkg/openrouter"
)

// GeminiProvider adapts the Gemini client to the chain.
type GeminiProvider struct {
	client gemini.Client
	apiKey string
}

// NewGemini creates a Gemini provider. An empty apiKey leaves it
// unconfigured.
func NewGemini(apiKey string, opts ...gemini.Option) *GeminiProvider {
	p := &GeminiProvider{apiKey: apiKey}
	if apiKey != "" {
		p.client = gemini.NewClient(apiKey, opts...)
	}
	return p
}

func (p *GeminiProvider) Name() string     { return "gemini" }
func (p *GeminiProvider) Configured() bool { return p.apiKey != "" }

func (p *GeminiProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	req := gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: prompt}}},
		},
	}
	if system != "" {
		req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: system}}}
	}
	resp, err := p.client.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GroqProvider adapts the Groq client to the chain.
type GroqProvider struct {
	client groq.Client
	apiKey string
}

// NewGroq creates a Groq provider. An empty apiKey leaves it
// unconfigured.
func NewGroq(apiKey string, opts ...groq.Option) *GroqProvider {
	p := &GroqProvider{apiKey: apiKey}
	if apiKey != "" {
		p.client = groq.NewClient(apiKey, opts...)
	}
	return p
}

func (p *GroqProvider) Name() string     { return "groq" }
func (p *GroqProvider) Configured() bool { return p.apiKey != "" }

func (p *GroqProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []groq.Message
	if system != "" {
		messages = append(messages, groq.Message{Role: "system", Content: system})
	}
	messages = append(messages, groq.Message{Role: "user", Content: prompt})

	resp, err := p.client.ChatCompletion(ctx, groq.ChatCompletionRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("groq: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenRouterProvider adapts the OpenRouter client to the chain.
type OpenRouterProvider struct {
	client openrouter.Client
	apiKey string
}

// NewOpenRouter creates an OpenRouter provider. An empty apiKey leaves
// it unconfigured.
func NewOpenRouter(apiKey string, opts ...openrouter.Option) *OpenRouterProvider {
	p := &OpenRouterProvider{apiKey: apiKey}
	if apiKey != "" {
		p.client = openrouter.NewClient(apiKey, opts...)
	}
	return p
}

func (p *OpenRouterProvider) Name() string     { return "openrouter" }
func (p *OpenRouterProvider) Configured() bool { return p.apiKey != "" }

func (p *OpenRouterProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []openrouter.Message
	if system != "" {
		messages = append(messages, openrouter.Message{Role: "system", Content: system})
	}
	messages = append(messages, openrouter.Message{Role: "user", Content: prompt})

	resp, err := p.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openrouter: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ClaudeProvider adapts the Anthropic client to the chain.
type ClaudeProvider struct {
	client claude.Client
	apiKey string
}

// NewClaude creates a Claude provider. An empty apiKey leaves it
// unconfigured.
func NewClaude(apiKey string, opts ...claude.Option) *ClaudeProvider {
	p := &ClaudeProvider{apiKey: apiKey}
	if apiKey != "" {
		p.client = claude.NewClient(apiKey, opts...)
	}
	return p
}

func (p *ClaudeProvider) Name() string     { return "claude" }
func (p *ClaudeProvider) Configured() bool { return p.apiKey != "" }

func (p *ClaudeProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, claude.MessageRequest{
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// OllamaProvider adapts a local Ollama server to the chain. It is the
// last resort before the deterministic fallback.
type OllamaProvider struct {
	client  ollama.Client
	enabled bool
}

// NewOllama creates an Ollama provider.
func NewOllama(enabled bool, opts ...ollama.Option) *OllamaProvider {
	p := &OllamaProvider{enabled: enabled}
	if enabled {
		p.client = ollama.NewClient(opts...)
	}
	return p
}

func (p *OllamaProvider) Name() string     { return "ollama" }
func (p *OllamaProvider) Configured() bool { return p.enabled }

func (p *OllamaProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []ollama.Message
	if system != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: system})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: prompt})

	resp, err := p.client.Chat(ctx, ollama.ChatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
