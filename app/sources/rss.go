package sources

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/mmcdole/gofeed"
)

// RSS reads the job feeds configured in a feeds directory. Configurations
// are reloaded on every fetch.
type RSS struct {
	fetcher   *Fetcher
	configs   *ConfigCache
	extractor *ContentExtractor
}

func NewRSS(fetcher *Fetcher, configs *ConfigCache) *RSS {
	return &RSS{
		fetcher:   fetcher,
		configs:   configs,
		extractor: NewContentExtractor(),
	}
}

func (r *RSS) Name() string { return "company_rss" }

func (r *RSS) Fetch(ctx context.Context) iter.Seq2[posting.Raw, error] {
	return func(yield func(posting.Raw, error) bool) {
		if err := r.configs.Run(); err != nil {
			yield(posting.Raw{}, fmt.Errorf("failed to load feed configs: %w", err))
			return
		}

		for _, config := range r.configs.GetEnabledConfigs() {
			if ctx.Err() != nil {
				yield(posting.Raw{}, ctx.Err())
				return
			}

			items, err := r.fetchFeed(ctx, config)
			if err != nil {
				if !yield(posting.Raw{}, fmt.Errorf("feed %s: %w", config.Name, err)) {
					return
				}
				continue
			}

			for _, item := range items {
				if !yield(r.toRaw(ctx, config, item), nil) {
					return
				}
			}
		}
	}
}

func (r *RSS) fetchFeed(ctx context.Context, config *FeedConfig) ([]*gofeed.Item, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	data, err := r.fetcher.Get(timeoutCtx, config.URL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := feed.Items
	if limit := config.Settings.MaxItems; limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *RSS) toRaw(ctx context.Context, config *FeedConfig, item *gofeed.Item) posting.Raw {
	raw := posting.Raw{
		Source:          r.Name(),
		Title:           firstNonBlank(item.Title, untitled),
		Company:         config.Company,
		URL:             item.Link,
		PostedAt:        item.Published,
		DescriptionHTML: firstNonBlank(item.Content, item.Description),
	}
	if item.PublishedParsed != nil {
		raw.PostedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		raw.PostedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	if config.Settings.ExtractContent && item.Link != "" {
		text, err := r.extractPage(ctx, config, item.Link)
		if err != nil {
			slog.Debug("Content extraction failed", "feed", config.Name, "link", item.Link, "error", err)
		} else {
			raw.DescriptionText = text
		}
	}

	return raw
}

func (r *RSS) extractPage(ctx context.Context, config *FeedConfig, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	data, err := r.fetcher.Get(timeoutCtx, link)
	if err != nil {
		return "", err
	}
	return r.extractor.Run(data, pageURL)
}
