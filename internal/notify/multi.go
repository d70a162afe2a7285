// internal/notify/multi.go
package notify

import (
	"context"

	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

// Notifier mirrors the lifecycle's notifier contract.
type Notifier interface {
	NotifySubmission(ctx context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool
	NotifyConfirmation(ctx context.Context, contactEmail string, result *scoring.Result) bool
	NotifyDecision(ctx context.Context, contactEmail, agencyName string, decision models.Status, notes string) bool
}

var (
	_ Notifier = (*EmailNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
)

// Multi fans out to every notifier and succeeds only when all of them do. Every
// notifier is called even after one fails.
type Multi []Notifier

func (m Multi) NotifySubmission(ctx context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool {
	ok := true
	for _, n := range m {
		ok = n.NotifySubmission(ctx, agency, result, reviewURL) && ok
	}
	return ok
}

func (m Multi) NotifyConfirmation(ctx context.Context, contactEmail string, result *scoring.Result) bool {
	ok := true
	for _, n := range m {
		ok = n.NotifyConfirmation(ctx, contactEmail, result) && ok
	}
	return ok
}

func (m Multi) NotifyDecision(ctx context.Context, contactEmail, agencyName string, decision models.Status, notes string) bool {
	ok := true
	for _, n := range m {
		ok = n.NotifyDecision(ctx, contactEmail, agencyName, decision, notes) && ok
	}
	return ok
}
