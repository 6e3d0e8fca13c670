// Package pipeline schedules a graph of interdependent build steps,
// executing them in waves of maximal safe concurrency and containing the
// effect of a failure to the failed task's dependents.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/google/uuid"
)

// Action is one unit of work. It reports success or failure and nothing
// else; results flow through side effects the action owns.
type Action func(ctx context.Context) error

// Task is a named unit of work with declared dependency edges
type Task struct {
	ID        string
	DependsOn []string
	Weight    float64
	Action    Action
}

// ConfigurationError marks an invalid task graph: an unknown dependency
// id or a dependency cycle. It is raised before any task executes and is
// never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "pipeline configuration error: " + e.Reason
}

// Sink receives progress events during a run. The pipeline performs no
// I/O itself; every observable side effect goes through the sink.
type Sink interface {
	TaskStarted(id string)
	TaskSucceeded(id string, duration time.Duration)
	TaskFailed(id string, err error, duration time.Duration)
	Progress(percent float64)
}

// nopSink keeps the sink optional
type nopSink struct{}

func (nopSink) TaskStarted(string)                      {}
func (nopSink) TaskSucceeded(string, time.Duration)     {}
func (nopSink) TaskFailed(string, error, time.Duration) {}
func (nopSink) Progress(float64)                        {}

// taskState is attached 1:1 to a task for the lifetime of one run and is
// mutated only by the scheduler, never by task bodies.
type taskState int

const (
	statePending taskState = iota
	stateRunning
	stateCompleted
	stateFailed
)

// Pipeline owns a set of registered tasks and executes them as one run
type Pipeline struct {
	tasks   map[string]*Task
	order   []string
	logger  logger.Logger
	sink    Sink
	aborted atomic.Bool
}

// New creates an empty pipeline. A nil sink is replaced with a no-op.
func New(log logger.Logger, sink Sink) *Pipeline {
	if sink == nil {
		sink = nopSink{}
	}
	return &Pipeline{
		tasks:  make(map[string]*Task),
		logger: log,
		sink:   sink,
	}
}

// Add registers a task. Duplicate ids are a configuration error.
func (p *Pipeline) Add(task Task) error {
	if task.ID == "" {
		return &ConfigurationError{Reason: "task id must not be empty"}
	}
	if _, exists := p.tasks[task.ID]; exists {
		return &ConfigurationError{Reason: fmt.Sprintf("duplicate task id %q", task.ID)}
	}
	if task.Action == nil {
		return &ConfigurationError{Reason: fmt.Sprintf("task %q has no action", task.ID)}
	}
	t := task
	p.tasks[t.ID] = &t
	p.order = append(p.order, t.ID)
	return nil
}

// Abort stops the run at the next wave boundary. Tasks already running
// are allowed to finish; no new waves start. There is no mid-task
// cancellation beyond whatever the action does with its context.
func (p *Pipeline) Abort() {
	p.aborted.Store(true)
}

// Validate checks that every declared dependency references a registered
// task and that the dependency graph is acyclic.
func (p *Pipeline) Validate() error {
	for _, id := range p.order {
		for _, dep := range p.tasks[id].DependsOn {
			if _, ok := p.tasks[dep]; !ok {
				return &ConfigurationError{
					Reason: fmt.Sprintf("task %q depends on unknown task %q", id, dep),
				}
			}
		}
	}
	return p.checkCycles()
}

// checkCycles runs a depth-first search with a recursion stack; a
// back-edge to a task still on the stack signals a cycle.
func (p *Pipeline) checkCycles() error {
	visited := make(map[string]bool, len(p.tasks))
	onStack := make(map[string]bool, len(p.tasks))

	var visit func(id string) error
	visit = func(id string) error {
		visited[id] = true
		onStack[id] = true
		for _, dep := range p.tasks[id].DependsOn {
			if onStack[dep] {
				return &ConfigurationError{
					Reason: fmt.Sprintf("dependency cycle through %q and %q", id, dep),
				}
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		onStack[id] = false
		return nil
	}

	for _, id := range p.order {
		if !visited[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Execute runs all registered tasks. It returns a ConfigurationError
// before any task starts when the graph is invalid; task failures are
// reported in the Report, never as an error from Execute.
func (p *Pipeline) Execute(ctx context.Context) (*Report, error) {
	if err := p.Validate(); err != nil {
		if p.logger != nil {
			p.logger.Error("Pipeline validation failed", logger.WithField("error", err))
		}
		return nil, err
	}

	runID := uuid.New().String()
	started := time.Now()

	states := make(map[string]taskState, len(p.tasks))
	results := make(map[string]TaskResult, len(p.tasks))
	for _, id := range p.order {
		states[id] = statePending
	}

	totalWeight := 0.0
	for _, id := range p.order {
		totalWeight += p.weightOf(id)
	}

	completedWeight := 0.0
	var mu sync.Mutex

	for {
		if p.aborted.Load() {
			break
		}

		wave := p.executableSet(states)
		if len(wave) == 0 {
			// Terminal: either everything is done or the remaining
			// pending tasks are blocked by a failure. Waves join
			// synchronously, so nothing can still be running here.
			break
		}

		if p.logger != nil {
			p.logger.Debug("Starting wave",
				logger.WithField("run", runID),
				logger.WithField("tasks", len(wave)))
		}

		sg, _ := NewSafeGroup(ctx, p.logger)
		for _, id := range wave {
			states[id] = stateRunning
			taskID := id
			task := p.tasks[taskID]

			sg.Go(func() error {
				p.sink.TaskStarted(taskID)
				taskStart := time.Now()
				err := p.runAction(ctx, task)
				duration := time.Since(taskStart)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					states[taskID] = stateFailed
					results[taskID] = TaskResult{ID: taskID, Status: TaskStatusFailed, Err: err, Duration: duration}
					p.sink.TaskFailed(taskID, err, duration)
				} else {
					states[taskID] = stateCompleted
					results[taskID] = TaskResult{ID: taskID, Status: TaskStatusCompleted, Duration: duration}
					completedWeight += p.weightOf(taskID)
					p.sink.TaskSucceeded(taskID, duration)
				}
				return nil
			})
		}
		// Await the whole wave; a failed sibling never interrupts the
		// others.
		_ = sg.Wait()

		if totalWeight > 0 {
			p.sink.Progress(completedWeight / totalWeight * 100)
		}
	}

	// Remaining pending tasks either sit behind a failed dependency
	// (blocked) or were never reached because of an abort (pending).
	blocked := p.blockedSet(states)
	for _, id := range p.order {
		if states[id] != statePending {
			continue
		}
		status := TaskStatusPending
		if blocked[id] {
			status = TaskStatusBlocked
		}
		results[id] = TaskResult{ID: id, Status: status}
	}

	report := &Report{
		RunID:    runID,
		Results:  results,
		Aborted:  p.aborted.Load(),
		Duration: time.Since(started),
	}
	if totalWeight > 0 {
		report.Progress = completedWeight / totalWeight * 100
	}
	report.Success = !report.Aborted && report.CountByStatus(TaskStatusCompleted) == len(p.tasks)

	return report, nil
}

// runAction invokes the task body, converting panics into failures
func (p *Pipeline) runAction(ctx context.Context, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", task.ID, r)
		}
	}()
	return task.Action(ctx)
}

// executableSet returns, in registration order, every pending task whose
// dependencies have all completed.
func (p *Pipeline) executableSet(states map[string]taskState) []string {
	var wave []string
	for _, id := range p.order {
		if states[id] != statePending {
			continue
		}
		ready := true
		for _, dep := range p.tasks[id].DependsOn {
			if states[dep] != stateCompleted {
				ready = false
				break
			}
		}
		if ready {
			wave = append(wave, id)
		}
	}
	return wave
}

// blockedSet marks pending tasks with a failed dependency, directly or
// transitively.
func (p *Pipeline) blockedSet(states map[string]taskState) map[string]bool {
	blocked := make(map[string]bool)

	var isBlocked func(id string) bool
	isBlocked = func(id string) bool {
		if blocked[id] {
			return true
		}
		for _, dep := range p.tasks[id].DependsOn {
			if states[dep] == stateFailed || (states[dep] == statePending && isBlocked(dep)) {
				blocked[id] = true
				return true
			}
		}
		return false
	}

	for _, id := range p.order {
		if states[id] == statePending {
			isBlocked(id)
		}
	}
	return blocked
}

func (p *Pipeline) weightOf(id string) float64 {
	w := p.tasks[id].Weight
	if w <= 0 {
		return 1
	}
	return w
}
