// internal/workers/assessment/review-assessment/handler.go
package reviewassessment

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/common/camunda"
	"hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/validation"
)

const (
	TaskType = "review-assessment"
)

// Reviewer is satisfied by *assessment.Service.
type Reviewer interface {
	Review(ctx context.Context, id string, decision string, notes string) (*assessment.ReviewOutcome, error)
}

type Handler struct {
	config       *Config
	reviewer     Reviewer
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, reviewer Reviewer, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = LoadConfig().Timeout
	}
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		reviewer:     reviewer,
		errorHandler: errors.NewErrorHandler(scoped),
		logger:       scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, validation.SchemaReview, &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey":       job.Key,
			"assessmentId": output.AssessmentID,
			"error":        err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":       job.Key,
		"assessmentId": output.AssessmentID,
		"status":       output.Status,
	})
}

// Execute records the decision. A second review of the same assessment fails with
// INVALID_TRANSITION, which the process models as a BPMN error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	id := strings.TrimSpace(input.AssessmentID)
	if id == "" {
		return nil, errors.NewValidationError("assessmentId is required", []string{"assessmentId"}, nil)
	}

	outcome, err := h.reviewer.Review(ctx, id, input.Decision, input.Notes)
	if err != nil {
		return nil, err
	}

	rec := outcome.Assessment
	output := &Output{
		AssessmentID:     rec.ID,
		Status:           string(rec.Status),
		DecisionNotified: outcome.Notifications.Decision != nil && *outcome.Notifications.Decision,
	}
	if rec.ReviewedAt != nil {
		output.ReviewedAt = rec.ReviewedAt.UTC().Format(time.RFC3339)
	}
	return output, nil
}
