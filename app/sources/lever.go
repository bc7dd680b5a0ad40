package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

const LeverBaseURL = "https://api.lever.co/v0/postings"

type leverPosting struct {
	Text             string  `json:"text"`
	Title            string  `json:"title"`
	HostedURL        string  `json:"hostedUrl"`
	ApplyURL         string  `json:"applyUrl"`
	URL              string  `json:"url"`
	CreatedAt        int64   `json:"createdAt"`
	DescriptionPlain *string `json:"descriptionPlain"`
	Description      string  `json:"description"`
	Categories       struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// Lever reads the public postings API of each configured account.
type Lever struct {
	fetcher   *Fetcher
	companies []string
	baseURL   string
}

func NewLever(fetcher *Fetcher, companies []string) *Lever {
	return &Lever{fetcher: fetcher, companies: companies, baseURL: LeverBaseURL}
}

func (l *Lever) Name() string { return "lever" }

func (l *Lever) Fetch(ctx context.Context) iter.Seq2[posting.Raw, error] {
	return func(yield func(posting.Raw, error) bool) {
		for _, company := range l.companies {
			if ctx.Err() != nil {
				yield(posting.Raw{}, ctx.Err())
				return
			}

			jobs, err := l.fetchCompany(ctx, company)
			if err != nil {
				if !yield(posting.Raw{}, fmt.Errorf("lever company %s: %w", company, err)) {
					return
				}
				continue
			}

			for _, job := range jobs {
				if !yield(l.toRaw(company, job), nil) {
					return
				}
			}
		}
	}
}

func (l *Lever) fetchCompany(ctx context.Context, company string) ([]leverPosting, error) {
	endpoint := fmt.Sprintf("%s/%s?mode=json", l.baseURL, url.PathEscape(company))
	data, err := l.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var jobs []leverPosting
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode postings: %w", err)
	}
	return jobs, nil
}

func (l *Lever) toRaw(company string, job leverPosting) posting.Raw {
	raw := posting.Raw{
		Source:   l.Name(),
		Title:    firstNonBlank(job.Text, job.Title, untitled),
		Company:  company,
		Location: job.Categories.Location,
		URL:      firstNonBlank(job.HostedURL, job.ApplyURL, job.URL),
	}
	if job.CreatedAt > 0 {
		raw.PostedAt = time.UnixMilli(job.CreatedAt).UTC().Format(time.RFC3339)
	}
	if job.DescriptionPlain != nil && *job.DescriptionPlain != "" {
		raw.DescriptionText = *job.DescriptionPlain
	} else {
		raw.DescriptionHTML = job.Description
	}
	return raw
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
