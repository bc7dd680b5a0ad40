package tasks

// TaskSchedulerInterface is what the dashboard needs from the scheduler:
// queueing a run and reading the outcome of the last one.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	LastRun() *RunStatus
}
