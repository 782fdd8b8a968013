// Package notifier raises desktop notifications when a stress session ends
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/corestress/corestress/pkg/logger"
)

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Beep additionally sounds the system bell on failure, for unattended rigs
	Beep bool
}

// SendFunc delivers one notification
type SendFunc func(title, message string) error

// StressNotifier reports the end of a stress session
type StressNotifier struct {
	enabled bool
	beep    bool
	send    SendFunc
	logger  logger.Logger
}

// New creates a notifier backed by beeep
func New(config Config, log logger.Logger) *StressNotifier {
	return NewWithSender(config, log, func(title, message string) error {
		return beeep.Notify(title, message, "")
	})
}

// NewWithSender creates a notifier that delivers through send
func NewWithSender(config Config, log logger.Logger, send SendFunc) *StressNotifier {
	return &StressNotifier{
		enabled: config.Enabled,
		beep:    config.Beep,
		send:    send,
		logger:  log,
	}
}

// NotifyRunFailed reports a fatal error that stopped the run loop
func (n *StressNotifier) NotifyRunFailed(run int, err error) {
	if !n.enabled {
		return
	}

	n.sendNotification("❌ Stress run failed", fmt.Sprintf("run #%d: %v", run, err))

	if n.beep {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

// NotifyInterrupted reports that the operator stopped the session
func (n *StressNotifier) NotifyInterrupted(runs int, elapsed time.Duration) {
	if !n.enabled {
		return
	}

	n.sendNotification("⏹ Stress stopped",
		fmt.Sprintf("%d completed runs in %s", runs, formatDuration(elapsed)))
}

func (n *StressNotifier) sendNotification(title, message string) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
