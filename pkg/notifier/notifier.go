// Package notifier surfaces export progress through structured logs and
// desktop notifications. It implements the pipeline sink and the batch
// notifier, so every task and job event flows through one place.
package notifier

import (
	"fmt"
	"time"

	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/gen2brain/beeep"
)

// Config represents notification configuration
type Config struct {
	Enabled      bool
	SuccessSound string
	FailureSound string
}

// ExportNotifier handles export progress notifications
type ExportNotifier struct {
	enabled      bool
	successSound string
	failureSound string
	logger       logger.Logger
}

// New creates a new export notifier
func New(config Config, log logger.Logger) *ExportNotifier {
	return &ExportNotifier{
		enabled:      config.Enabled,
		successSound: config.SuccessSound,
		failureSound: config.FailureSound,
		logger:       log,
	}
}

// TaskStarted logs the start of a pipeline task
func (n *ExportNotifier) TaskStarted(id string) {
	n.logger.WithStage(id).Debug("Stage started")
}

// TaskSucceeded logs a completed pipeline task with its duration
func (n *ExportNotifier) TaskSucceeded(id string, duration time.Duration) {
	n.logger.WithStage(id).Success(fmt.Sprintf("Stage completed in %s", formatDuration(duration)))
}

// TaskFailed logs and notifies about a failed pipeline task
func (n *ExportNotifier) TaskFailed(id string, err error, duration time.Duration) {
	n.logger.WithStage(id).Error("Stage failed",
		logger.WithField("error", err),
		logger.WithField("duration", formatDuration(duration)))

	if !n.enabled {
		return
	}
	title := "❌ Export Stage Failed"
	message := fmt.Sprintf("%s: %v", id, err)
	n.sendNotification(title, message, n.failureSound)
}

// Progress logs the weighted pipeline progress
func (n *ExportNotifier) Progress(percent float64) {
	n.logger.Debug(fmt.Sprintf("Export progress: %.0f%%", percent))
}

// JobStarted logs the start of a batch job
func (n *ExportNotifier) JobStarted(id string) {
	n.logger.Debug("Copy job started", logger.WithField("job", id))
}

// JobSucceeded logs a completed batch job
func (n *ExportNotifier) JobSucceeded(id string, duration time.Duration) {
	n.logger.Debug("Copy job finished",
		logger.WithField("job", id),
		logger.WithField("duration", formatDuration(duration)))
}

// JobFailed logs a failed batch job
func (n *ExportNotifier) JobFailed(id string, err error, duration time.Duration) {
	n.logger.Error("Copy job failed",
		logger.WithField("job", id),
		logger.WithField("error", err))
}

// NotifyExportComplete sends the end-of-run desktop notification
func (n *ExportNotifier) NotifyExportComplete(project string, success bool, duration time.Duration) {
	if success {
		n.logger.Success(fmt.Sprintf("Export of %s finished in %s", project, formatDuration(duration)))
	} else {
		n.logger.Error(fmt.Sprintf("Export of %s failed after %s", project, formatDuration(duration)))
	}

	if !n.enabled {
		return
	}

	if success {
		title := "✅ Export Succeeded"
		message := fmt.Sprintf("%s exported in %s", project, formatDuration(duration))
		n.sendNotification(title, message, n.successSound)
	} else {
		title := "❌ Export Failed"
		message := fmt.Sprintf("%s failed after %s", project, formatDuration(duration))
		n.sendNotification(title, message, n.failureSound)
	}
}

// Private methods

func (n *ExportNotifier) sendNotification(title, message, soundName string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	// Play sound if specified
	if soundName != "" {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
