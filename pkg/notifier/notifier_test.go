package notifier_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/atlasforge/atlasforge/pkg/notifier"
)

// Notifications stay disabled in tests so no desktop popups fire.
func newTestNotifier(t *testing.T) (*notifier.ExportNotifier, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "debug", &buf)
	return notifier.New(notifier.Config{Enabled: false}, log), &buf
}

func TestTaskEventsAreLoggedWithStage(t *testing.T) {
	n, buf := newTestNotifier(t)

	n.TaskStarted("pack-atlas")
	n.TaskSucceeded("pack-atlas", 120*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "pack-atlas") {
		t.Error("expected stage name in output")
	}
	if !strings.Contains(output, "120ms") {
		t.Errorf("expected millisecond duration in output, got %q", output)
	}
}

func TestTaskFailedLogsError(t *testing.T) {
	n, buf := newTestNotifier(t)

	n.TaskFailed("bundle-scripts", errors.New("entry not found"), 40*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "bundle-scripts") {
		t.Error("expected stage name in output")
	}
	if !strings.Contains(output, "entry not found") {
		t.Error("expected error text in output")
	}
}

func TestDurationFormats(t *testing.T) {
	n, buf := newTestNotifier(t)

	n.TaskSucceeded("sub-second", 250*time.Millisecond)
	n.TaskSucceeded("seconds", 2500*time.Millisecond)
	n.TaskSucceeded("minutes", 90*time.Second)

	output := buf.String()
	for _, want := range []string{"250ms", "2.5s", "1m30s"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got %q", want, output)
		}
	}
}

func TestNotifyExportComplete(t *testing.T) {
	n, buf := newTestNotifier(t)

	n.NotifyExportComplete("demo", true, time.Second)
	if !strings.Contains(buf.String(), "Export of demo finished") {
		t.Errorf("expected success summary, got %q", buf.String())
	}

	buf.Reset()
	n.NotifyExportComplete("demo", false, time.Second)
	if !strings.Contains(buf.String(), "Export of demo failed") {
		t.Errorf("expected failure summary, got %q", buf.String())
	}
}

func TestJobEventsLogAtDebug(t *testing.T) {
	n, buf := newTestNotifier(t)

	n.JobStarted("assets/hero.json")
	n.JobSucceeded("assets/hero.json", 5*time.Millisecond)
	n.JobFailed("assets/villain.json", errors.New("permission denied"), time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "assets/hero.json") {
		t.Error("expected job id in output")
	}
	if !strings.Contains(output, "permission denied") {
		t.Error("expected failure reason in output")
	}
}
