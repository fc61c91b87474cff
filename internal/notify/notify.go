// Package notify sends desktop notifications when a transfer batch ends.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/filehop/filehop/internal/config"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/transfer"
	stringutil "github.com/filehop/filehop/internal/util/strings"
)

// appName is the title prefix of every notification.
const appName = "filehop"

// SendFunc delivers one notification.
type SendFunc func(title, message string) error

// Notifier handles desktop notifications.
type Notifier struct {
	logger *logging.Logger
	send   SendFunc

	mu           sync.RWMutex
	enabled      bool
	showComplete bool
	showFailed   bool
}

// NewNotifier creates a notifier from the [notifications] config section.
func NewNotifier(cfg config.NotificationConfig, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Notifier{
		logger:       logger,
		send:         beeepNotify,
		enabled:      cfg.Enabled,
		showComplete: cfg.ShowComplete,
		showFailed:   cfg.ShowFailed,
	}
}

// WithSender replaces the delivery function; used by tests.
func (n *Notifier) WithSender(send SendFunc) *Notifier {
	n.send = send
	return n
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// BatchFinished reports the outcome of an upload or download batch.
// A batch with any failure uses the failure notification.
func (n *Notifier) BatchFinished(direction transfer.Direction, completed, failed int) {
	n.mu.RLock()
	enabled, showComplete, showFailed := n.enabled, n.showComplete, n.showFailed
	n.mu.RUnlock()

	if !enabled || completed+failed == 0 {
		return
	}

	noun := "Upload"
	if direction == transfer.DirectionDownload {
		noun = "Download"
	}

	var title, message string
	if failed > 0 {
		if !showFailed {
			return
		}
		title = fmt.Sprintf("%s: %s failed", appName, noun)
		message = fmt.Sprintf("%s failed, %s completed.",
			stringutil.Count(failed, "file"), stringutil.Count(completed, "file"))
	} else {
		if !showComplete {
			return
		}
		title = fmt.Sprintf("%s: %s complete", appName, noun)
		message = fmt.Sprintf("%s transferred.", stringutil.Count(completed, "file"))
	}

	if err := n.send(title, message); err != nil {
		n.logger.Warn().Err(err).Str("direction", string(direction)).Msg("Failed to send batch notification")
	}
}

// Alert sends a prominent notification for problems that need attention,
// such as the file service failing to start.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}

	title := appName + " alert"
	if err := beeep.Alert(title, truncate(message, 200), ""); err != nil {
		if err := n.send(title, truncate(message, 200)); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

func beeepNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
