package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// browserAgents is the pool a session user-agent is drawn from. Each
// HTTPFetcher picks one at construction and keeps it for its lifetime.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

const maxBodyBytes = 2 << 20 // 2 MiB cap per page

// Options configures an HTTPFetcher.
type Options struct {
	Timeout   time.Duration // per-request timeout, default 30s
	UserAgent string        // fixed user-agent; random browser UA when empty
	// PerHostRate throttles requests per host; zero disables limiting.
	PerHostRate  rate.Limit
	PerHostBurst int
}

// HTTPFetcher implements Fetcher over net/http with a pooled transport,
// a session-scoped randomized user-agent and optional per-host rate
// limiting.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	opts      Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTP creates an HTTPFetcher with the given options.
func NewHTTP(opts Options) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = browserAgents[rand.IntN(len(browserAgents))]
	}
	if opts.PerHostBurst == 0 {
		opts.PerHostBurst = 1
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: ua,
		opts:      opts,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Fetch downloads rawURL. Non-2xx responses are returned as errors; the
// caller treats them as FetchError and skips the target.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.wait(ctx, rawURL); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: create request %s", rawURL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}
	elapsed := time.Since(start).Milliseconds()

	result := &Result{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
		ElapsedMS:  elapsed,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.L().Debug("fetcher: non-2xx response",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return result, eris.Errorf("fetcher: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	return result, nil
}

// Close releases idle connections held by the transport.
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}

func (f *HTTPFetcher) wait(ctx context.Context, rawURL string) error {
	if f.opts.PerHostRate == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil // let the request itself fail with a useful error
	}

	f.mu.Lock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(f.opts.PerHostRate, f.opts.PerHostBurst)
		f.limiters[u.Host] = lim
	}
	f.mu.Unlock()

	return lim.Wait(ctx)
}
