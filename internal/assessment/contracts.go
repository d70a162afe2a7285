// internal/assessment/contracts.go
package assessment

import (
	"context"

	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

// Store is the durable keyed record store. Implementations must make Create and
// CompareAndSwap atomic.
type Store interface {
	// Create persists a new record. It fails with a conflict error if the id exists.
	Create(ctx context.Context, record *models.Assessment) (string, error)
	// Get fails with a not-found error for unknown ids.
	Get(ctx context.Context, id string) (*models.Assessment, error)
	// Update replaces the whole record. It fails with a not-found error if absent.
	Update(ctx context.Context, record *models.Assessment) error
	// CompareAndSwap replaces the record only while its stored status equals expected.
	// It fails with a not-found error or an invalid-transition error naming the stored status.
	CompareAndSwap(ctx context.Context, record *models.Assessment, expected models.Status) error
	// List returns every record in no particular order.
	List(ctx context.Context) ([]*models.Assessment, error)
}

// Notifier delivers lifecycle notifications. It reports success and never fails the caller.
type Notifier interface {
	NotifySubmission(ctx context.Context, agency models.AgencyInfo, result *scoring.Result, reviewURL string) bool
	NotifyConfirmation(ctx context.Context, contactEmail string, result *scoring.Result) bool
	NotifyDecision(ctx context.Context, contactEmail, agencyName string, decision models.Status, notes string) bool
}

// Indexer mirrors records into a search index for the dashboard.
type Indexer interface {
	Index(ctx context.Context, record *models.Assessment) error
}

// Scorer is satisfied by *scoring.Engine.
type Scorer interface {
	Score(answers scoring.AnswerSet) (*scoring.Result, error)
}

// Recorder counts lifecycle operations by outcome, e.g. the OpenTelemetry meters.
type Recorder interface {
	RecordOperation(ctx context.Context, operation, outcome string)
}
