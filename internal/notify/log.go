// internal/notify/log.go
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/metrics"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

// LogNotifier writes notifications to the log instead of sending them. It always
// succeeds and remembers what it would have sent.
type LogNotifier struct {
	logger        logger.Logger
	reviewerEmail string

	mu   sync.Mutex
	sent []models.Notification
}

func NewLogNotifier(reviewerEmail string, log logger.Logger) *LogNotifier {
	return &LogNotifier{
		logger:        log.WithFields(map[string]interface{}{"notifier": "log"}),
		reviewerEmail: reviewerEmail,
	}
}

func (n *LogNotifier) NotifySubmission(_ context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool {
	n.add(models.NotificationSubmission, n.reviewerEmail, "New Hosting Assessment: "+agency.AgencyName, map[string]interface{}{
		"agencyName":     agency.AgencyName,
		"recommendation": string(result.Recommendation),
		"reviewUrl":      reviewURL,
	})
	return true
}

func (n *LogNotifier) NotifyConfirmation(_ context.Context, contactEmail string, result *scoring.Result) bool {
	n.add(models.NotificationConfirmation, contactEmail, "Your Hosting Assessment Was Received", map[string]interface{}{
		"recommendation": string(result.Recommendation),
	})
	return true
}

func (n *LogNotifier) NotifyDecision(_ context.Context, contactEmail, agencyName string, decision models.Status, notes string) bool {
	n.add(models.NotificationDecision, contactEmail, "Hosting Assessment "+capitalize(string(decision))+": "+agencyName, map[string]interface{}{
		"decision": string(decision),
		"notes":    notes,
	})
	return true
}

// Sent returns a copy of every notification logged so far.
func (n *LogNotifier) Sent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.sent...)
}

func (n *LogNotifier) add(kind models.NotificationKind, to, subject string, fields map[string]interface{}) {
	note := models.Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Recipient: to,
		Channel:   "log",
		Status:    "sent",
		Subject:   subject,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	}

	n.mu.Lock()
	n.sent = append(n.sent, note)
	n.mu.Unlock()

	metrics.NotificationsSent.WithLabelValues(string(kind), "logged").Inc()

	fields["notificationId"] = note.ID
	fields["kind"] = string(kind)
	fields["recipient"] = to
	fields["subject"] = subject
	n.logger.Info("Notification (not sent)", fields)
}
