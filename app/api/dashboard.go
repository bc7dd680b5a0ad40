package api

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/lysyi3m/skills-monitor/app/tasks"
	"github.com/lysyi3m/skills-monitor/app/trends"
)

//go:embed templates/*.html
var templatesFS embed.FS

const emptyMessage = "No data found yet. Run the collector, then refresh."

type bar struct {
	Skill   string
	Count   int
	Percent int
}

type trendRow struct {
	Bucket string
	Counts []int
}

type dashboardPage struct {
	Version string
	Empty   bool
	Message string

	Start     string
	End       string
	Bucket    string
	Top       int
	Lines     int
	Sources   []string
	Companies []string
	Skills    []string
	Options   trends.Options

	Summary     trends.Summary
	Bars        []bar
	TrendSkills []string
	TrendRows   []trendRow
	Recent      []posting.Row
	ExportURL   template.URL
	CanCollect  bool
	LastRun     *tasks.RunStatus
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"value": posting.Value,
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"join": strings.Join,
		"has": func(values []string, v string) bool {
			return slices.Contains(values, v)
		},
	}).ParseFS(templatesFS, "templates/*.html"))
}

// Dashboard renders the HTML view. Without an explicit date range it
// shows the last defaultDays days of data.
func (h *Handler) Dashboard(c *gin.Context) {
	page := dashboardPage{
		Version:    h.version,
		Bucket:     string(trends.Day),
		Top:        trends.DefaultTopN,
		Lines:      defaultLines,
		CanCollect: h.scheduler != nil && h.executor != nil,
	}
	if h.scheduler != nil {
		page.LastRun = h.scheduler.LastRun()
	}

	p, err := parseParams(c)
	if err != nil {
		page.Message = err.Error()
		c.HTML(http.StatusBadRequest, "dashboard.html", page)
		return
	}

	all, err := h.store.Load(c.Request.Context())
	if err != nil {
		slog.Error("Storage error", "operation", "load_rows", "error", err)
		page.Message = "Failed to load stored rows"
		c.HTML(http.StatusInternalServerError, "dashboard.html", page)
		return
	}
	if len(all) == 0 {
		page.Empty = true
		page.Message = emptyMessage
		c.HTML(http.StatusOK, "dashboard.html", page)
		return
	}

	if !p.hasWindow() {
		if w, ok := trends.DefaultWindow(all, defaultDays); ok {
			start, end := w.Start, w.End
			p.Query.Start, p.Query.End = &start, &end
		}
	}

	rows := h.filterer.Run(all, p.Query)
	s := &selection{params: p, all: all, rows: rows, mentions: trends.ExplodeSkills(rows)}

	page.Bucket = string(p.Bucket)
	page.Top = p.Top
	page.Lines = p.Lines
	page.Sources = p.Query.Sources
	page.Companies = p.Query.Companies
	page.Skills = p.Query.Skills
	page.Options = trends.BuildOptions(all)
	if p.Query.Start != nil {
		page.Start = p.Query.Start.UTC().Format(dateLayout)
	}
	if p.Query.End != nil {
		page.End = p.Query.End.UTC().Format(dateLayout)
	}

	page.Summary = s.summary()
	page.Bars = bars(s.top())
	page.TrendSkills = s.trendSkills()
	page.TrendRows = trendTable(page.TrendSkills, s.trend(page.TrendSkills))
	page.Recent = trends.Recent(rows, recentLimit)
	page.ExportURL = exportURL(page)

	c.HTML(http.StatusOK, "dashboard.html", page)
}

func bars(top []trends.SkillCount) []bar {
	out := make([]bar, 0, len(top))
	if len(top) == 0 {
		return out
	}
	peak := top[0].Count
	for _, sc := range top {
		out = append(out, bar{Skill: sc.Skill, Count: sc.Count, Percent: sc.Count * 100 / max(peak, 1)})
	}
	return out
}

// trendTable pivots per-skill series into one row per bucket, oldest first.
func trendTable(skills []string, series map[string][]trends.Point) []trendRow {
	counts := make(map[time.Time][]int)
	for i, skill := range skills {
		for _, pt := range series[skill] {
			row, ok := counts[pt.Bucket]
			if !ok {
				row = make([]int, len(skills))
				counts[pt.Bucket] = row
			}
			row[i] = pt.Count
		}
	}

	buckets := make([]time.Time, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	slices.SortFunc(buckets, func(a, b time.Time) int { return a.Compare(b) })

	rows := make([]trendRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, trendRow{Bucket: b.Format(dateLayout), Counts: counts[b]})
	}
	return rows
}

// exportURL links to the CSV of exactly the rows on the page, including the
// default window when the request named none.
func exportURL(page dashboardPage) template.URL {
	q := url.Values{}
	if page.Start != "" {
		q.Set("start", page.Start)
	}
	if page.End != "" {
		q.Set("end", page.End)
	}
	for _, v := range page.Sources {
		q.Add("source", v)
	}
	for _, v := range page.Companies {
		q.Add("company", v)
	}
	for _, v := range page.Skills {
		q.Add("skill", v)
	}
	return template.URL("/export.csv?" + q.Encode())
}
