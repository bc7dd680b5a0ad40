package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned when a run is already waiting to execute.
var ErrQueueFull = errors.New("task queue is full")

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// RunStatus describes the most recently finished task.
type RunStatus struct {
	TaskID     string        `json:"task_id"`
	Trigger    string        `json:"trigger,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	Rows       int           `json:"rows"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Scheduler executes tasks one at a time, so collection runs never append
// concurrently. With a positive interval it also enqueues a collection on
// every tick.
type Scheduler struct {
	executor  Executor
	interval  time.Duration
	timeout   time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	mu      sync.RWMutex
	lastRun *RunStatus
}

func NewScheduler(executor Executor, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		executor:  executor,
		interval:  interval,
		timeout:   10 * time.Minute,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewCollectTask(s.executor, "schedule")); err != nil {
					slog.Debug("Scheduled collection skipped", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		slog.Debug("Task enqueued", "type", string(task.GetType()), "id", task.GetID())
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) LastRun() *RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return nil
	}
	status := *s.lastRun
	return &status
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	err := task.Execute(taskCtx)

	status := &RunStatus{
		TaskID:     task.GetID(),
		FinishedAt: time.Now().UTC(),
		Duration:   task.GetDuration(),
	}
	if ct, ok := task.(*CollectTask); ok {
		status.Trigger = ct.Trigger
		if report := ct.Report(); report != nil {
			status.RunID = report.RunID
			status.Rows = report.Rows
		}
	}
	if err != nil {
		status.Error = err.Error()
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}

	s.mu.Lock()
	s.lastRun = status
	s.mu.Unlock()
}
