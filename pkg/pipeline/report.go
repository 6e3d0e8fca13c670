package pipeline

import "time"

// TaskStatus is the terminal disposition of one task in a run
type TaskStatus string

const (
	// TaskStatusPending marks a task the run never reached (abort).
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusCompleted marks a task whose action succeeded.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed marks a task whose action returned an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked marks a task permanently prevented from running
	// by a failed dependency. Distinct from both completed and failed.
	TaskStatusBlocked TaskStatus = "blocked"
)

// TaskResult records the outcome of one task
type TaskResult struct {
	ID       string
	Status   TaskStatus
	Err      error
	Duration time.Duration
}

// Report summarizes one pipeline run. Success is true only when every
// registered task completed.
type Report struct {
	RunID    string
	Results  map[string]TaskResult
	Success  bool
	Aborted  bool
	Progress float64
	Duration time.Duration
}

// CountByStatus returns how many tasks finished with the given status
func (r *Report) CountByStatus(status TaskStatus) int {
	count := 0
	for _, result := range r.Results {
		if result.Status == status {
			count++
		}
	}
	return count
}

// FirstFailure returns the result of one failed task, or nil
func (r *Report) FirstFailure() *TaskResult {
	for _, result := range r.Results {
		if result.Status == TaskStatusFailed {
			res := result
			return &res
		}
	}
	return nil
}
