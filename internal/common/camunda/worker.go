// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/metrics"
	"hosting-assessment/internal/common/validation"
)

// JobRecorder receives per-job outcomes, e.g. the OpenTelemetry meters.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Manager opens job workers and closes them together on shutdown.
type Manager struct {
	client   zbc.Client
	recorder JobRecorder
	logger   logger.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

// NewManager takes an optional recorder.
func NewManager(client zbc.Client, recorder JobRecorder, log logger.Logger) *Manager {
	return &Manager{
		client:   client,
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "worker-manager"}),
		workers:  make(map[string]worker.JobWorker),
	}
}

// Register opens a worker for taskType unless it is disabled. It reports whether a
// worker was started.
func (m *Manager) Register(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		m.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := m.client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, m.recorder)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	m.mu.Lock()
	m.workers[taskType] = jobWorker
	m.mu.Unlock()

	m.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Running lists the task types with an open worker.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.workers))
	for t := range m.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling and waits for in-flight jobs until ctx expires.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	workers := m.workers
	m.workers = make(map[string]worker.JobWorker)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for taskType, w := range workers {
		m.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		wg.Add(1)
		go func(w worker.JobWorker) {
			defer wg.Done()
			w.AwaitClose()
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("timed out waiting for workers to drain", nil)
	}
}

// Job outcomes as seen by Instrument.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrown    = "error_thrown"
	OutcomeNone      = "no_command"
)

// outcomeClient notes which job command the handler issued.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = OutcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = OutcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = OutcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}

// Instrument records the active gauge, the duration and the outcome of every job.
// recorder may be nil.
func Instrument(taskType string, handler worker.JobHandler, recorder JobRecorder) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		tracked := &outcomeClient{JobClient: client, outcome: OutcomeNone}
		start := time.Now()
		handler(tracked, job)
		elapsed := time.Since(start)

		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		if recorder != nil {
			ctx := context.Background()
			recorder.RecordJobProcessed(ctx, taskType, tracked.outcome)
			recorder.RecordJobDuration(ctx, taskType, elapsed, tracked.outcome)
		}
	}
}

// CompleteJob sends the output variables and counts the completion.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	return nil
}

// DecodeVariables validates the job variables against the named request schema, when
// one is given, and unmarshals them into out. Bad variables become validation errors
// so the process can route them on a boundary event.
func DecodeVariables(job entities.Job, schema string, out interface{}) error {
	if schema != "" {
		vars, err := job.GetVariablesAsMap()
		if err != nil {
			return errors.NewValidationError("job variables are not a JSON object: "+err.Error(), nil, []string{"(root)"})
		}
		result, err := validation.ValidateInput(schema, vars)
		if err != nil {
			return err
		}
		if verr := result.AsError(); verr != nil {
			return verr
		}
	}
	if err := json.Unmarshal([]byte(job.Variables), out); err != nil {
		return errors.NewValidationError("invalid job variables: "+err.Error(), nil, []string{"(root)"})
	}
	return nil
}
