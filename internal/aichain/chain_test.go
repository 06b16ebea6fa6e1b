package aichain

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name       string
	configured bool
	text       string
	err        error
	calls      int
	system     string
}

func (p *fakeProvider) Name() string     { return p.name }
func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Generate(_ context.Context, _, system string) (string, error) {
	p.calls++
	p.system = system
	return p.text, p.err
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &fakeProvider{name: "first", configured: true, text: "hello"}
	second := &fakeProvider{name: "second", configured: true, text: "unused"}
	c := NewChain(first, second)

	text, provider, err := c.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "first", provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChainFallsThroughFailures(t *testing.T) {
	broken := &fakeProvider{name: "broken", configured: true, err: eris.New("boom")}
	empty := &fakeProvider{name: "empty", configured: true, text: "  "}
	working := &fakeProvider{name: "working", configured: true, text: "answer"}
	c := NewChain(broken, empty, working)

	text, provider, err := c.Generate(context.Background(), "prompt", "sys")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, "working", provider)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, empty.calls)
}

func TestChainSkipsUnconfigured(t *testing.T) {
	skipped := &fakeProvider{name: "skipped", configured: false, text: "never"}
	working := &fakeProvider{name: "working", configured: true, text: "ok"}
	c := NewChain(skipped, working)

	_, provider, err := c.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "working", provider)
	assert.Equal(t, 0, skipped.calls)
}

func TestChainAllFail(t *testing.T) {
	a := &fakeProvider{name: "a", configured: true, err: eris.New("down")}
	b := &fakeProvider{name: "b", configured: true, err: eris.New("also down")}
	c := NewChain(a, b)

	_, _, err := c.Generate(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
}

func TestChainNoProviders(t *testing.T) {
	c := NewChain(&fakeProvider{name: "off", configured: false})
	assert.False(t, c.Available())

	_, _, err := c.Generate(context.Background(), "prompt", "")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestGenerateJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{
			name: "bare_json",
			text: `{"score": 85, "is_spam": false}`,
		},
		{
			name: "fenced_json",
			text: "```json\n{\"score\": 85, \"is_spam\": false}\n```",
		},
		{
			name: "fenced_no_language",
			text: "```\n{\"score\": 85, \"is_spam\": false}\n```",
		},
		{
			name: "surrounding_prose",
			text: "Here is the analysis:\n{\"score\": 85, \"is_spam\": false}\nHope that helps!",
		},
		{
			name:    "not_json",
			text:    "I cannot analyze this lead.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChain(&fakeProvider{name: "fake", configured: true, text: tt.text})

			var out struct {
				Score  float64 `json:"score"`
				IsSpam bool    `json:"is_spam"`
			}
			provider, err := c.GenerateJSON(context.Background(), "prompt", "", &out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "fake", provider)
			assert.Equal(t, 85.0, out.Score)
			assert.False(t, out.IsSpam)
		})
	}
}

func TestGenerateJSONAppendsInstruction(t *testing.T) {
	p := &fakeProvider{name: "fake", configured: true, text: `{"score": 1}`}
	c := NewChain(p)

	var out map[string]any
	_, err := c.GenerateJSON(context.Background(), "prompt", "Ты эксперт.", &out)
	require.NoError(t, err)
	assert.Equal(t, "Ты эксперт. "+jsonSystemInstruction, p.system)

	// An empty system prompt still carries the instruction.
	_, err = c.GenerateJSON(context.Background(), "prompt", "", &out)
	require.NoError(t, err)
	assert.Equal(t, jsonSystemInstruction, p.system)
}

func TestCleanJSON(t *testing.T) {
	got := cleanJSON("```json\n{\"a\": {\"b\": 1}}\n```")
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	// Nested braces keep the outermost pair.
	got = cleanJSON(`prefix {"a": {"b": 1}} suffix`)
	assert.Equal(t, `{"a": {"b": 1}}`, got)
}
