package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"iter"
	"net/url"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

const GreenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

type greenhouseBoard struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
	Content     string `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

// Greenhouse reads the public job board API of each configured board token.
// Without content the posting text is only "<title> @ <location>".
type Greenhouse struct {
	fetcher        *Fetcher
	boards         []string
	includeContent bool
	baseURL        string
}

func NewGreenhouse(fetcher *Fetcher, boards []string, includeContent bool) *Greenhouse {
	return &Greenhouse{fetcher: fetcher, boards: boards, includeContent: includeContent, baseURL: GreenhouseBaseURL}
}

func (g *Greenhouse) Name() string { return "greenhouse" }

func (g *Greenhouse) Fetch(ctx context.Context) iter.Seq2[posting.Raw, error] {
	return func(yield func(posting.Raw, error) bool) {
		for _, token := range g.boards {
			if ctx.Err() != nil {
				yield(posting.Raw{}, ctx.Err())
				return
			}

			jobs, err := g.fetchBoard(ctx, token)
			if err != nil {
				if !yield(posting.Raw{}, fmt.Errorf("greenhouse board %s: %w", token, err)) {
					return
				}
				continue
			}

			for _, job := range jobs {
				if !yield(g.toRaw(token, job), nil) {
					return
				}
			}
		}
	}
}

func (g *Greenhouse) fetchBoard(ctx context.Context, token string) ([]greenhouseJob, error) {
	endpoint := fmt.Sprintf("%s/%s/jobs", g.baseURL, url.PathEscape(token))
	if g.includeContent {
		endpoint += "?content=true"
	}

	data, err := g.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var board greenhouseBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}
	return board.Jobs, nil
}

func (g *Greenhouse) toRaw(token string, job greenhouseJob) posting.Raw {
	title := firstNonBlank(job.Title, untitled)
	raw := posting.Raw{
		Source:   g.Name(),
		Title:    title,
		Company:  token,
		Location: job.Location.Name,
		PostedAt: job.UpdatedAt,
		URL:      job.AbsoluteURL,
	}
	if g.includeContent && job.Content != "" {
		raw.DescriptionHTML = html.UnescapeString(job.Content)
	} else {
		raw.DescriptionText = title + " @ " + job.Location.Name
	}
	return raw
}
