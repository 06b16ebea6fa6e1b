package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/webtailor-studio/leadgen-cli/internal/aichain"
	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
	"github.com/webtailor-studio/leadgen-cli/pkg/claude"
	"github.com/webtailor-studio/leadgen-cli/pkg/gemini"
	"github.com/webtailor-studio/leadgen-cli/pkg/groq"
	"github.com/webtailor-studio/leadgen-cli/pkg/ollama"
	"github.com/webtailor-studio/leadgen-cli/pkg/openrouter"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newFetcher() fetcher.Fetcher {
	return fetcher.NewHTTP(fetcher.Options{
		Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		UserAgent:   cfg.Fetch.UserAgent,
		PerHostRate: rate.Limit(cfg.Fetch.PerHostRPS),
	})
}

// newChain builds the provider chain in fixed priority order. Providers
// without credentials stay in the chain but are skipped at call time.
func newChain() *aichain.Chain {
	return aichain.NewChain(
		aichain.NewGemini(cfg.AI.Gemini.Key, gemini.WithModel(cfg.AI.Gemini.Model)),
		aichain.NewGroq(cfg.AI.Groq.Key, groq.WithModel(cfg.AI.Groq.Model)),
		aichain.NewOpenRouter(cfg.AI.OpenRouter.Key,
			openrouter.WithModel(cfg.AI.OpenRouter.Model),
			openrouter.WithReferer(cfg.AI.OpenRouter.Referer, cfg.AI.OpenRouter.Title)),
		aichain.NewClaude(cfg.AI.Claude.Key, claude.WithModel(cfg.AI.Claude.Model)),
		aichain.NewOllama(cfg.AI.Ollama.Enabled,
			ollama.WithBaseURL(cfg.AI.Ollama.BaseURL),
			ollama.WithModel(cfg.AI.Ollama.Model)),
	)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
