package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/skills-monitor/app/alerts"
	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/lysyi3m/skills-monitor/app/skills"
	"github.com/lysyi3m/skills-monitor/app/sources"
	"github.com/lysyi3m/skills-monitor/app/storage"
	"github.com/lysyi3m/skills-monitor/app/trends"
	"golang.org/x/sync/errgroup"
)

type Notifier interface {
	Notify(ctx context.Context, d alerts.Decision) (bool, error)
}

type Options struct {
	Whitelist        []string
	AlertTargetSkill string
	AlertMinMentions int
	Workers          int
}

type Collector struct {
	sources   []sources.Source
	extractor *skills.Extractor
	store     storage.Store
	notifier  Notifier
	opts      Options
}

func New(srcs []sources.Source, store storage.Store, notifier Notifier, opts Options) *Collector {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Collector{
		sources:   srcs,
		extractor: skills.NewExtractor(),
		store:     store,
		notifier:  notifier,
		opts:      opts,
	}
}

// SourceResult reports what one source produced. Err joins every failure
// the source yielded; postings fetched before or after a failure are kept.
type SourceResult struct {
	Name     string
	Postings []posting.Posting
	Err      error
	Duration time.Duration
}

// Run is the in-memory outcome of fetching every source.
type Run struct {
	ID       string
	Postings []posting.Posting
	Sources  []SourceResult
}

// Report summarises an executed collection run.
type Report struct {
	RunID     string
	Rows      int
	Counts    map[string]int
	Alert     alerts.Decision
	AlertSent bool
	Sources   []SourceResult
	Duration  time.Duration
}

// Collect fetches all sources in parallel, normalizes every posting and
// extracts its skills. Source failures never abort the run.
func (c *Collector) Collect(ctx context.Context) Run {
	run := Run{
		ID:      uuid.NewString(),
		Sources: make([]SourceResult, len(c.sources)),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for i, src := range c.sources {
		g.Go(func() error {
			run.Sources[i] = c.collectSource(gCtx, src)
			return nil
		})
	}
	_ = g.Wait()

	for _, result := range run.Sources {
		if result.Err != nil {
			slog.Warn("Source failed", "run_id", run.ID, "source", result.Name, "rows", len(result.Postings), "error", result.Err)
		}
		run.Postings = append(run.Postings, result.Postings...)
	}

	return run
}

func (c *Collector) collectSource(ctx context.Context, src sources.Source) SourceResult {
	start := time.Now()
	result := SourceResult{Name: src.Name()}

	var errs []error
	for raw, err := range src.Fetch(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raw.Source = src.Name()
		p := posting.Normalize(raw)
		p.Skills = c.extractor.Extract(p.Text, c.opts.Whitelist)
		result.Postings = append(result.Postings, p)
	}

	result.Err = errors.Join(errs...)
	result.Duration = time.Since(start)
	slog.Debug("Source fetched", "source", result.Name, "rows", len(result.Postings), "duration", result.Duration)
	return result
}

// Execute runs one full cycle: collect, persist, count, alert. Only a
// persistence failure fails the run; alert delivery errors are logged.
func (c *Collector) Execute(ctx context.Context) (*Report, error) {
	start := time.Now()

	if len(c.sources) == 0 {
		slog.Info("No sources configured. Set LEVER_COMPANIES, GREENHOUSE_BOARDS or add feeds to FEEDS_DIR")
		return &Report{Counts: map[string]int{}}, nil
	}

	run := c.Collect(ctx)
	report := &Report{
		RunID:   run.ID,
		Counts:  map[string]int{},
		Sources: run.Sources,
	}

	if len(run.Postings) == 0 {
		slog.Info("No rows collected; check your sources/config", "run_id", run.ID)
		report.Duration = time.Since(start)
		return report, nil
	}

	stored, err := c.store.Append(ctx, run.ID, run.Postings)
	if err != nil {
		return nil, fmt.Errorf("failed to persist run %s: %w", run.ID, err)
	}
	report.Rows = len(stored)
	report.Counts = trends.Counts(trends.ExplodeSkills(stored))

	report.Alert = alerts.Check(report.Counts, c.opts.AlertTargetSkill, c.opts.AlertMinMentions)
	if c.notifier != nil {
		sent, err := c.notifier.Notify(ctx, report.Alert)
		if err != nil {
			slog.Error("Alert delivery failed", "run_id", run.ID, "skill", report.Alert.Skill, "error", err)
		}
		report.AlertSent = sent
	}

	report.Duration = time.Since(start)

	slog.Info("Collection completed",
		"run_id", run.ID,
		"sources", len(run.Sources),
		"rows", report.Rows,
		"skills", len(report.Counts),
		"alert_sent", report.AlertSent,
		"duration", report.Duration)

	return report, nil
}
