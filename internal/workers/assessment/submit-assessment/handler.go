// internal/workers/assessment/submit-assessment/handler.go
package submitassessment

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/common/camunda"
	"hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

const (
	TaskType = "submit-assessment"
)

// Submitter is satisfied by *assessment.Service.
type Submitter interface {
	Submit(ctx context.Context, agency models.AgencyInfo, answers scoring.AnswerSet) (*assessment.SubmitOutcome, error)
}

type Handler struct {
	config       *Config
	submitter    Submitter
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, submitter Submitter, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = LoadConfig().Timeout
	}
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		submitter:    submitter,
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
	if err := camunda.DecodeVariables(job, "", &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		// The record is already stored; a redelivered job would create a second one.
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
	})
}

// Execute scores, persists and notifies. Notification failures are reported in the
// output flags and never fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.submitter.Submit(ctx, input.AgencyInfo.toModel(), scoring.AnswerSet(input.Answers))
	if err != nil {
		return nil, err
	}

	rec := outcome.Assessment
	return &Output{
		AssessmentID:         rec.ID,
		Status:               string(rec.Status),
		SubmittedAt:          rec.SubmittedAt.UTC().Format(time.RFC3339),
		Recommendation:       string(rec.ScoringResult.Recommendation),
		ReviewURL:            outcome.ReviewURL,
		SubmissionNotified:   delivered(outcome.Notifications.Submission),
		ConfirmationNotified: delivered(outcome.Notifications.Confirmation),
	}, nil
}

func delivered(flag *bool) bool {
	return flag != nil && *flag
}
