package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/skills-monitor/app/cache"
)

// FetchError describes a failed GET. StatusCode is zero when no response
// was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	cache      cache.Cache
	cacheTTL   time.Duration
}

type FetcherOption func(*Fetcher)

// WithCache serves repeated GETs of the same URL from c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the body of url. Non-200 responses are reported as *FetchError.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	key := cache.ResponseKey(url)
	if f.cache != nil {
		data, err := f.cache.Get(ctx, key)
		if err == nil {
			slog.Debug("Response served from cache", "url", url)
			return data, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("Cache read failed", "url", url, "error", err)
		}
	}

	data, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, data, f.cacheTTL); err != nil {
			slog.Warn("Cache write failed", "url", url, "error", err)
		}
	}

	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}
