package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/skills-monitor/app/cache"
	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryCache) Close() error { return nil }

func collect(t *testing.T, s Source) ([]posting.Raw, []error) {
	t.Helper()
	var raws []posting.Raw
	var errs []error
	for raw, err := range s.Fetch(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raws = append(raws, raw)
	}
	return raws, errs
}

func TestFetcherSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	data, err := NewFetcher(srv.Client(), "JobSkillsTrendBot/1.0", time.Second).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, "JobSkillsTrendBot/1.0", got)
}

func TestFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), "ua", time.Second).Get(context.Background(), srv.URL+"/x")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, srv.URL+"/x", fetchErr.URL)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), "ua", 50*time.Millisecond).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetcherUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "body")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), "ua", time.Second, WithCache(newMemoryCache(), time.Minute))
	for range 3 {
		data, err := f.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "body", string(data))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestLever(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("mode"))
		switch r.URL.Path {
		case "/acme":
			fmt.Fprint(w, `[
				{"text": "Data Engineer", "hostedUrl": "https://jobs.lever.co/acme/1", "createdAt": 1709632800000,
				 "categories": {"location": "Remote"}, "descriptionPlain": "Python and SQL"},
				{"applyUrl": "https://jobs.lever.co/acme/2/apply", "description": "<p>Spark</p><p>Kafka</p>"}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	lever := NewLever(NewFetcher(srv.Client(), "ua", time.Second), []string{"missing", "acme"})
	lever.baseURL = srv.URL

	raws, errs := collect(t, lever)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "lever company missing")
	require.Len(t, raws, 2)

	first := raws[0]
	assert.Equal(t, "lever", first.Source)
	assert.Equal(t, "Data Engineer", first.Title)
	assert.Equal(t, "acme", first.Company)
	assert.Equal(t, "Remote", first.Location)
	assert.Equal(t, "2024-03-05T10:00:00Z", first.PostedAt)
	assert.Equal(t, "https://jobs.lever.co/acme/1", first.URL)
	assert.Equal(t, "Python and SQL", first.DescriptionText)

	second := raws[1]
	assert.Equal(t, "Untitled", second.Title)
	assert.Equal(t, "https://jobs.lever.co/acme/2/apply", second.URL)
	assert.Empty(t, second.PostedAt)
	assert.Equal(t, "Spark Kafka", posting.Normalize(second).Text)
}

func TestLeverStopsWhenConsumerStops(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[{"text": "a"}, {"text": "b"}]`)
	}))
	defer srv.Close()

	lever := NewLever(NewFetcher(srv.Client(), "ua", time.Second), []string{"one", "two"})
	lever.baseURL = srv.URL

	for range lever.Fetch(context.Background()) {
		break
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestGreenhouse(t *testing.T) {
	board := `{"jobs": [{"title": "Analytics Engineer", "absolute_url": "https://boards.greenhouse.io/airbnb/jobs/1",
		"updated_at": "2024-03-05T10:00:00-05:00", "location": {"name": "San Francisco"},
		"content": "&lt;p&gt;dbt &amp;amp; Airflow&lt;/p&gt;"}]}`

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		assert.Equal(t, "/airbnb/jobs", r.URL.Path)
		fmt.Fprint(w, board)
	}))
	defer srv.Close()

	t.Run("title and location only", func(t *testing.T) {
		gh := NewGreenhouse(NewFetcher(srv.Client(), "ua", time.Second), []string{"airbnb"}, false)
		gh.baseURL = srv.URL

		raws, errs := collect(t, gh)
		require.Empty(t, errs)
		require.Len(t, raws, 1)
		assert.Empty(t, query)
		assert.Equal(t, "greenhouse", raws[0].Source)
		assert.Equal(t, "airbnb", raws[0].Company)
		assert.Equal(t, "San Francisco", raws[0].Location)
		assert.Equal(t, "2024-03-05T10:00:00-05:00", raws[0].PostedAt)
		assert.Equal(t, "Analytics Engineer @ San Francisco", raws[0].DescriptionText)
		assert.Empty(t, raws[0].DescriptionHTML)
	})

	t.Run("with content", func(t *testing.T) {
		gh := NewGreenhouse(NewFetcher(srv.Client(), "ua", time.Second), []string{"airbnb"}, true)
		gh.baseURL = srv.URL

		raws, errs := collect(t, gh)
		require.Empty(t, errs)
		require.Len(t, raws, 1)
		assert.Equal(t, "content=true", query)
		assert.Equal(t, "<p>dbt &amp; Airflow</p>", raws[0].DescriptionHTML)
		assert.Equal(t, "dbt & Airflow", posting.Normalize(raws[0]).Text)
	})
}

func TestGreenhouseBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>")
	}))
	defer srv.Close()

	gh := NewGreenhouse(NewFetcher(srv.Client(), "ua", time.Second), []string{"x"}, false)
	gh.baseURL = srv.URL

	raws, errs := collect(t, gh)
	assert.Empty(t, raws)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "failed to decode board")
}

func writeFeedConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yml"), []byte(body), 0o644))
}

func TestConfigCache(t *testing.T) {
	dir := t.TempDir()
	writeFeedConfig(t, dir, "beta", "url: https://beta.example.com/jobs.rss\ncompany: Beta\nsettings:\n  enabled: true\n")
	writeFeedConfig(t, dir, "alpha", "url: https://alpha.example.com/jobs.rss\nsettings:\n  enabled: true\n  max_items: 5\n")
	writeFeedConfig(t, dir, "off", "url: https://off.example.com/jobs.rss\n")

	cc := NewConfigCache(dir)
	require.NoError(t, cc.Run())
	assert.Equal(t, 3, cc.GetConfigCount())

	enabled := cc.GetEnabledConfigs()
	require.Len(t, enabled, 2)
	assert.Equal(t, "alpha", enabled[0].Name)
	assert.Equal(t, 5, enabled[0].Settings.MaxItems)
	assert.Equal(t, 30, enabled[0].Settings.Timeout)
	assert.Equal(t, "Beta", enabled[1].Company)
}

func TestConfigCacheValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", "company: X\n"},
		{"bad url", "url: not a url\n"},
		{"negative timeout", "url: https://x.example.com/rss\nsettings:\n  timeout: -1\n"},
		{"bad yaml", "url: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFeedConfig(t, dir, "feed", tt.body)
			assert.Error(t, NewConfigCache(dir).Run())
		})
	}
}

func TestConfigCacheMissingDir(t *testing.T) {
	cc := NewConfigCache(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, cc.Run())
	assert.Empty(t, cc.GetEnabledConfigs())
}

const jobsFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Jobs</title>
    <item>
      <title>ML Engineer</title>
      <link>%[1]s/jobs/1</link>
      <description>&lt;p&gt;LangChain and RAG&lt;/p&gt;</description>
      <pubDate>Tue, 05 Mar 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>%[1]s/jobs/2</link>
      <description>Tableau</description>
    </item>
    <item>
      <title>Third</title>
      <link>%[1]s/jobs/3</link>
    </item>
  </channel>
</rss>`

func jobPage(title string) string {
	paragraph := "Our platform team builds streaming pipelines on Kafka and batch jobs on Spark. " +
		"You will own ingestion, modelling and the data contracts between services. "
	return "<html><head><title>" + title + "</title></head><body><nav>Home Jobs About</nav><article><h1>" + title + "</h1>" +
		"<p>" + strings.Repeat(paragraph, 4) + "</p><p>" + strings.Repeat(paragraph, 4) + "</p></article>" +
		"<footer>Copyright</footer></body></html>"
}

func TestRSS(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/feed.rss":
			fmt.Fprintf(w, jobsFeed, srv.URL)
		case strings.HasPrefix(r.URL.Path, "/jobs/"):
			fmt.Fprint(w, jobPage("Job "+strings.TrimPrefix(r.URL.Path, "/jobs/")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFeedConfig(t, dir, "acme", "url: "+srv.URL+"/feed.rss\ncompany: Acme\nsettings:\n  enabled: true\n  max_items: 2\n")
	writeFeedConfig(t, dir, "broken", "url: "+srv.URL+"/missing.rss\nsettings:\n  enabled: true\n")

	rss := NewRSS(NewFetcher(srv.Client(), "ua", time.Second), NewConfigCache(dir))
	raws, errs := collect(t, rss)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "feed broken")
	require.Len(t, raws, 2)

	first := raws[0]
	assert.Equal(t, "company_rss", first.Source)
	assert.Equal(t, "ML Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, srv.URL+"/jobs/1", first.URL)
	assert.Equal(t, "2024-03-05T10:00:00Z", first.PostedAt)
	assert.Equal(t, "LangChain and RAG", posting.Normalize(first).Text)
	assert.Empty(t, first.DescriptionText)

	assert.Equal(t, "Untitled", raws[1].Title)
}

func TestRSSExtractContent(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.rss" {
			fmt.Fprintf(w, jobsFeed, srv.URL)
			return
		}
		fmt.Fprint(w, jobPage("Data Platform Engineer"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFeedConfig(t, dir, "acme", "url: "+srv.URL+"/feed.rss\nsettings:\n  enabled: true\n  max_items: 1\n  extract_content: true\n")

	rss := NewRSS(NewFetcher(srv.Client(), "ua", time.Second), NewConfigCache(dir))
	raws, errs := collect(t, rss)

	require.Empty(t, errs)
	require.Len(t, raws, 1)
	assert.Contains(t, raws[0].DescriptionText, "Kafka")
	assert.Contains(t, raws[0].DescriptionText, "Spark")
}

func TestContentExtractorEmpty(t *testing.T) {
	_, err := NewContentExtractor().Run(nil, nil)
	assert.Error(t, err)
}
