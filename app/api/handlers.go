package api

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/lysyi3m/skills-monitor/app/storage"
	"github.com/lysyi3m/skills-monitor/app/tasks"
	"github.com/lysyi3m/skills-monitor/app/trends"
)

func NewHandler(store RowLoader, scheduler tasks.TaskSchedulerInterface, executor tasks.Executor, version string) *Handler {
	return &Handler{
		store:     store,
		filterer:  trends.NewFilterer(),
		scheduler: scheduler,
		executor:  executor,
		version:   version,
	}
}

// selection is one request's filtered view of the stored rows.
type selection struct {
	params   viewParams
	all      []posting.Row
	rows     []posting.Row
	mentions []trends.Mention
}

func (h *Handler) selectRows(c *gin.Context, p viewParams) (*selection, bool) {
	all, err := h.store.Load(c.Request.Context())
	if err != nil {
		slog.Error("Storage error", "operation", "load_rows", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stored rows"})
		return nil, false
	}

	rows := h.filterer.Run(all, p.Query)
	return &selection{
		params:   p,
		all:      all,
		rows:     rows,
		mentions: trends.ExplodeSkills(rows),
	}, true
}

func (h *Handler) parseAndSelect(c *gin.Context) (*selection, bool) {
	p, err := parseParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return h.selectRows(c, p)
}

func (s *selection) summary() trends.Summary {
	summary := trends.Summarize(s.rows, s.mentions)
	if s.params.hasWindow() {
		w := trends.Window{}
		if s.params.Query.Start != nil {
			w.Start = *s.params.Query.Start
		} else if summary.Window != nil {
			w.Start = summary.Window.Start
		}
		if s.params.Query.End != nil {
			w.End = *s.params.Query.End
		} else if summary.Window != nil {
			w.End = summary.Window.End
		}
		summary.Window = &w
	}
	return summary
}

func (s *selection) top() []trends.SkillCount {
	return trends.TopN(trends.Counts(s.mentions), s.params.Top)
}

// trendSkills are the explicitly selected skills, or else the leading
// entries of the top list.
func (s *selection) trendSkills() []string {
	var chosen []string
	if len(s.params.Query.Skills) > 0 {
		for _, skill := range s.params.Query.Skills {
			chosen = append(chosen, strings.ToLower(skill))
		}
		slices.Sort(chosen)
		chosen = slices.Compact(chosen)
	} else {
		for _, sc := range s.top() {
			chosen = append(chosen, sc.Skill)
		}
	}
	if len(chosen) > s.params.Lines {
		chosen = chosen[:s.params.Lines]
	}
	return chosen
}

func (s *selection) trend(skills []string) map[string][]trends.Point {
	selected := make([]trends.Mention, 0, len(s.mentions))
	for _, m := range s.mentions {
		if slices.Contains(skills, m.Skill) {
			selected = append(selected, m)
		}
	}
	return trends.Trend(selected, s.params.Bucket)
}

func (h *Handler) GetSummary(c *gin.Context) {
	s, ok := h.parseAndSelect(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.summary())
}

func (h *Handler) GetTopSkills(c *gin.Context) {
	s, ok := h.parseAndSelect(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"skills":   s.top(),
		"mentions": len(s.mentions),
	})
}

func (h *Handler) GetSkillTrend(c *gin.Context) {
	s, ok := h.parseAndSelect(c)
	if !ok {
		return
	}
	skills := s.trendSkills()
	c.JSON(http.StatusOK, gin.H{
		"bucket": s.params.Bucket,
		"skills": skills,
		"series": s.trend(skills),
	})
}

type jobResponse struct {
	Source    string     `json:"source"`
	Title     string     `json:"title"`
	Company   *string    `json:"company,omitempty"`
	Location  *string    `json:"location,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
	URL       *string    `json:"url,omitempty"`
	Skills    []string   `json:"skills"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

func (h *Handler) GetJobs(c *gin.Context) {
	s, ok := h.parseAndSelect(c)
	if !ok {
		return
	}

	limit := recentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, 1000)
	}

	recent := trends.Recent(s.rows, limit)
	jobs := make([]jobResponse, 0, len(recent))
	for _, row := range recent {
		jobs = append(jobs, jobResponse{
			Source:    row.Source,
			Title:     row.Title,
			Company:   row.Company,
			Location:  row.Location,
			PostedAt:  row.PostedAt,
			URL:       row.URL,
			Skills:    row.Skills,
			FetchedAt: row.FetchedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(s.rows),
	})
}

func (h *Handler) GetOptions(c *gin.Context) {
	all, err := h.store.Load(c.Request.Context())
	if err != nil {
		slog.Error("Storage error", "operation", "load_rows", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stored rows"})
		return
	}
	c.JSON(http.StatusOK, trends.BuildOptions(all))
}

func (h *Handler) ExportCSV(c *gin.Context) {
	s, ok := h.parseAndSelect(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="filtered_jobs.csv"`)
	c.Header("X-Rows", strconv.Itoa(len(s.rows)))
	c.Status(http.StatusOK)

	if err := storage.WriteCSV(c.Writer, s.rows, true); err != nil {
		slog.Error("CSV export failed", "error", err)
	}
}

func (h *Handler) TriggerCollect(c *gin.Context) {
	if h.scheduler == nil || h.executor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Collection is not available"})
		return
	}

	task := tasks.NewCollectTask(h.executor, "manual")
	if err := h.scheduler.EnqueueTask(task); err != nil {
		if errors.Is(err, tasks.ErrQueueFull) {
			c.JSON(http.StatusConflict, gin.H{"error": "A collection run is already queued"})
			return
		}
		slog.Error("Failed to enqueue collection", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue collection"})
		return
	}

	slog.Info("Collection enqueued", "task_id", task.GetID(), "trigger", task.Trigger)
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.GetID(), "status": "queued"})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}
	if h.scheduler != nil {
		if last := h.scheduler.LastRun(); last != nil {
			health["last_run"] = last
		}
	}
	c.JSON(http.StatusOK, health)
}
