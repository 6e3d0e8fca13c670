package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlasforge/atlasforge/pkg/batch"
)

// recordingNotifier captures per-job events
type recordingNotifier struct {
	mu        sync.Mutex
	started   []string
	succeeded []string
	failed    []string
}

func (n *recordingNotifier) JobStarted(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, id)
}

func (n *recordingNotifier) JobSucceeded(id string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded = append(n.succeeded, id)
}

func (n *recordingNotifier) JobFailed(id string, _ error, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, id)
}

func TestRun_NeverExceedsLimit(t *testing.T) {
	var current, peak atomic.Int32

	var jobs []batch.Job
	for i := 0; i < 5; i++ {
		jobs = append(jobs, batch.Job{
			ID: fmt.Sprintf("job-%d", i),
			Action: func(ctx context.Context) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				current.Add(-1)
				return nil
			},
		})
	}

	runner := batch.NewRunner(nil, nil)
	report := runner.Run(context.Background(), jobs, 2)

	if !report.Success {
		t.Fatalf("expected success, got %+v", report)
	}
	if peak.Load() > 2 {
		t.Errorf("concurrency limit exceeded: peak %d", peak.Load())
	}
	if peak.Load() < 2 {
		t.Errorf("expected jobs to overlap up to the limit, peak %d", peak.Load())
	}
	if len(report.Results) != 5 {
		t.Errorf("expected 5 results, got %d", len(report.Results))
	}
	// 5 jobs of ~30ms at 2 in flight need at least 3 turns.
	if report.Duration < 80*time.Millisecond {
		t.Errorf("finished suspiciously fast: %v", report.Duration)
	}
}

func TestRun_TopsUpAsSlotsFree(t *testing.T) {
	release := make(chan struct{})
	var lateStarted atomic.Bool

	jobs := []batch.Job{
		{ID: "slow", Action: func(ctx context.Context) error {
			<-release
			return nil
		}},
		{ID: "quick", Action: func(ctx context.Context) error { return nil }},
		{ID: "late", Action: func(ctx context.Context) error {
			lateStarted.Store(true)
			close(release)
			return nil
		}},
	}

	runner := batch.NewRunner(nil, nil)
	report := runner.Run(context.Background(), jobs, 2)

	// "late" only runs because "quick" finishing freed a slot while
	// "slow" was still blocked.
	if !lateStarted.Load() {
		t.Error("expected the third job to start before the first finished")
	}
	if !report.Success || report.Successes != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestRun_CountsFailures(t *testing.T) {
	boom := errors.New("copy failed")
	notifier := &recordingNotifier{}

	jobs := []batch.Job{
		{ID: "ok-1", Action: func(ctx context.Context) error { return nil }},
		{ID: "bad", Action: func(ctx context.Context) error { return boom }},
		{ID: "ok-2", Action: func(ctx context.Context) error { return nil }},
	}

	runner := batch.NewRunner(nil, notifier)
	report := runner.Run(context.Background(), jobs, 3)

	if report.Successes != 2 || report.Failures != 1 {
		t.Errorf("got %d successes / %d failures, want 2 / 1", report.Successes, report.Failures)
	}
	if report.Success {
		t.Error("expected Success false with a failed job")
	}
	if report.Aborted {
		t.Error("a job failure is not an abort")
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != "bad" {
		t.Errorf("notifier failures: got %v", notifier.failed)
	}
	if len(notifier.started) != 3 {
		t.Errorf("expected 3 start events, got %d", len(notifier.started))
	}
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	jobs := []batch.Job{
		{ID: "explosive", Action: func(ctx context.Context) error { panic("kaboom") }},
	}

	runner := batch.NewRunner(nil, nil)
	report := runner.Run(context.Background(), jobs, 1)

	if report.Failures != 1 {
		t.Fatalf("expected 1 failure, got %+v", report)
	}
	if report.Results[0].Err == nil {
		t.Error("expected an error on the panicked job result")
	}
}

func TestRunSequential_PreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	var jobs []batch.Job
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("job-%d", i)
		jobs = append(jobs, batch.Job{ID: id, Action: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}})
	}

	runner := batch.NewRunner(nil, nil)
	report := runner.RunSequential(context.Background(), jobs)

	if !report.Success {
		t.Fatalf("expected success, got %+v", report)
	}
	for i, id := range order {
		if want := fmt.Sprintf("job-%d", i); id != want {
			t.Errorf("execution order position %d: got %s, want %s", i, id, want)
		}
	}
	for i, result := range report.Results {
		if want := fmt.Sprintf("job-%d", i); result.ID != want {
			t.Errorf("result order position %d: got %s, want %s", i, result.ID, want)
		}
	}
}

func TestAbort_StopsToppingUp(t *testing.T) {
	runner := batch.NewRunner(nil, nil)

	var ran atomic.Int32
	var jobs []batch.Job
	jobs = append(jobs, batch.Job{ID: "aborter", Action: func(ctx context.Context) error {
		ran.Add(1)
		runner.Abort()
		time.Sleep(10 * time.Millisecond)
		return nil
	}})
	for i := 0; i < 4; i++ {
		jobs = append(jobs, batch.Job{ID: fmt.Sprintf("job-%d", i), Action: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
	}

	report := runner.Run(context.Background(), jobs, 1)

	if ran.Load() != 1 {
		t.Errorf("expected only the first job to run, %d ran", ran.Load())
	}
	if !report.Aborted {
		t.Error("expected Aborted true")
	}
	if report.Success {
		t.Error("an aborted run is not a success")
	}
	// The in-flight job was never force-killed.
	if report.Successes != 1 {
		t.Errorf("expected the aborting job to finish successfully, got %+v", report)
	}
}
