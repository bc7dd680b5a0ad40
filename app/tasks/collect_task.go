package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/skills-monitor/app/collector"
)

// Executor runs one collection cycle.
type Executor interface {
	Execute(ctx context.Context) (*collector.Report, error)
}

type CollectTask struct {
	Task
	Trigger  string // "manual", "schedule" or "startup"
	executor Executor
	report   *collector.Report
}

func NewCollectTask(executor Executor, trigger string) *CollectTask {
	return &CollectTask{
		Task:     NewTask(TaskTypeCollect),
		Trigger:  trigger,
		executor: executor,
	}
}

func (t *CollectTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.executor.Execute(ctx)
	if err != nil {
		return err
	}
	t.report = report

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", t.Trigger,
		"run_id", report.RunID,
		"rows", report.Rows,
		"duration", t.GetDuration())

	return nil
}

// Report is the outcome of a successful Execute.
func (t *CollectTask) Report() *collector.Report {
	return t.report
}
