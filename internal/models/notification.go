// internal/models/notification.go
package models

type NotificationKind string

const (
	NotificationSubmission   NotificationKind = "submission"
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationDecision     NotificationKind = "decision"
)

// Notification records one delivery attempt.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Channel   string           `json:"channel"` // "email", "sns", "log"
	Status    string           `json:"status"`  // "sent", "failed", "disabled"
	Subject   string           `json:"subject,omitempty"`
	MessageID string           `json:"messageId,omitempty"`
	Error     string           `json:"error,omitempty"`
	SentAt    string           `json:"sentAt,omitempty"`
}

type NotificationTemplate struct {
	Kind     NotificationKind `json:"kind"`
	Subject  string           `json:"subject"`
	Body     string           `json:"body"`
	HTMLBody string           `json:"htmlBody,omitempty"`
}
