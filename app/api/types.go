package api

import (
	"context"

	"github.com/lysyi3m/skills-monitor/app/posting"
	"github.com/lysyi3m/skills-monitor/app/tasks"
	"github.com/lysyi3m/skills-monitor/app/trends"
)

// RowLoader reads every stored row.
type RowLoader interface {
	Load(ctx context.Context) ([]posting.Row, error)
}

type Handler struct {
	store     RowLoader
	filterer  *trends.Filterer
	scheduler tasks.TaskSchedulerInterface
	executor  tasks.Executor
	version   string
}

const (
	minTopN      = 5
	maxTopN      = 30
	defaultLines = 4
	maxLines     = 6
	recentLimit  = 200
	defaultDays  = 30
)
