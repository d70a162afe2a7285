// internal/workers/assessment/score-assessment/handler.go
package scoreassessment

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hosting-assessment/internal/common/camunda"
	"hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/validation"
	"hosting-assessment/internal/render"
	"hosting-assessment/internal/scoring"
)

const (
	TaskType = "score-assessment"
)

// Scorer is satisfied by *assessment.Service and *scoring.Engine.
type Scorer interface {
	Score(answers scoring.AnswerSet) (*scoring.Result, error)
}

type Handler struct {
	config       *Config
	scorer       Scorer
	renderer     *render.Renderer
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, scorer Scorer, renderer *render.Renderer, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = LoadConfig().Timeout
	}
	if renderer == nil {
		renderer = render.Default()
	}
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		scorer:       scorer,
		renderer:     renderer,
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
	if err := camunda.DecodeVariables(job, validation.SchemaScore, &input); err != nil {
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
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":         job.Key,
		"recommendation": output.Recommendation,
	})
}

// Execute scores the answers without persisting anything.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	result, err := h.scorer.Score(scoring.AnswerSet(input.Answers))
	if err != nil {
		return nil, err
	}

	output := &Output{
		Scores:          result.Scores,
		Recommendation:  string(result.Recommendation),
		Explanations:    append([]string{}, result.Explanations...),
		AppAge:          result.AppAge,
		Migration:       result.Migration,
		MigrationSource: result.MigrationSource,
		CatalogVersion:  result.CatalogVersion,
	}
	if h.config.IncludeReport {
		output.Report = h.renderer.Text(result)
	}
	return output, nil
}
