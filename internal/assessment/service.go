// internal/assessment/service.go
package assessment

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/metrics"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

const DefaultMaxCreateAttempts = 5

type Config struct {
	// ReviewBaseURL prefixes the reviewer link, e.g. "https://hosting.example.gov".
	ReviewBaseURL     string
	MaxCreateAttempts int
}

// NotificationReport tells the caller which notifications were delivered.
type NotificationReport struct {
	Submission   *bool `json:"submission,omitempty"`
	Confirmation *bool `json:"confirmation,omitempty"`
	Decision     *bool `json:"decision,omitempty"`
}

// AllDelivered is false if any attempted notification failed.
func (r NotificationReport) AllDelivered() bool {
	for _, v := range []*bool{r.Submission, r.Confirmation, r.Decision} {
		if v != nil && !*v {
			return false
		}
	}
	return true
}

// Failed lists the notification kinds that were attempted and failed.
func (r NotificationReport) Failed() []models.NotificationKind {
	var out []models.NotificationKind
	if r.Submission != nil && !*r.Submission {
		out = append(out, models.NotificationSubmission)
	}
	if r.Confirmation != nil && !*r.Confirmation {
		out = append(out, models.NotificationConfirmation)
	}
	if r.Decision != nil && !*r.Decision {
		out = append(out, models.NotificationDecision)
	}
	return out
}

type SubmitOutcome struct {
	Assessment    *models.Assessment `json:"assessment"`
	ReviewURL     string             `json:"review_url"`
	Notifications NotificationReport `json:"notifications"`
}

type ReviewOutcome struct {
	Assessment    *models.Assessment `json:"assessment"`
	Notifications NotificationReport `json:"notifications"`
}

type Dashboard struct {
	Assessments []*models.Assessment  `json:"assessments"`
	Counts      map[models.Status]int `json:"counts"`
	Total       int                   `json:"total"`
}

// Service runs the assessment lifecycle: pending on submit, approved or rejected on review.
type Service struct {
	config   Config
	store    Store
	notifier Notifier
	scorer   Scorer
	indexer  Indexer
	recorder Recorder
	tracer   trace.Tracer
	logger   logger.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithIndexer(indexer Indexer) Option {
	return func(s *Service) { s.indexer = indexer }
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(config Config, store Store, notifier Notifier, scorer Scorer, log logger.Logger, opts ...Option) *Service {
	if config.MaxCreateAttempts <= 0 {
		config.MaxCreateAttempts = DefaultMaxCreateAttempts
	}
	if scorer == nil {
		scorer = scoring.Default()
	}
	s := &Service{
		config:   config,
		store:    store,
		notifier: notifier,
		scorer:   scorer,
		tracer:   otel.Tracer("hosting-assessment/assessment"),
		logger:   log.WithFields(map[string]interface{}{"component": "assessment-lifecycle"}),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs the engine without persisting anything.
func (s *Service) Score(answers scoring.AnswerSet) (*scoring.Result, error) {
	start := time.Now()
	result, err := s.scorer.Score(answers)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	return result, err
}

// Submit scores the answers, persists a pending record and notifies the reviewer and
// the submitting contact. Notification failures are reported, not returned.
func (s *Service) Submit(ctx context.Context, agency models.AgencyInfo, answers scoring.AnswerSet) (*SubmitOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Submit")
	defer span.End()

	agency = normalizeAgency(agency)
	if err := validateAgency(agency); err != nil {
		return nil, s.fail(ctx, span, "submit", err)
	}

	result, err := s.Score(answers)
	if err != nil {
		return nil, s.fail(ctx, span, "submit", err)
	}

	record := &models.Assessment{
		Status:        models.StatusPending,
		SubmittedAt:   s.now(),
		AgencyInfo:    agency,
		ScoringResult: result,
	}

	id, err := s.create(ctx, record)
	if err != nil {
		return nil, s.fail(ctx, span, "submit", err)
	}
	span.SetAttributes(
		attribute.String("assessment.id", id),
		attribute.String("assessment.recommendation", string(result.Recommendation)),
	)

	reviewURL := s.ReviewURL(id)
	var submitted, confirmed bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		submitted = s.notifier.NotifySubmission(gctx, agency, result.Clone(), reviewURL)
		return nil
	})
	g.Go(func() error {
		confirmed = s.notifier.NotifyConfirmation(gctx, agency.ContactEmail, result.Clone())
		return nil
	})
	_ = g.Wait()

	s.index(ctx, record)

	metrics.AssessmentsSubmitted.WithLabelValues(string(result.Recommendation)).Inc()
	s.record(ctx, "submit", "ok")
	s.logger.Info("Assessment submitted", map[string]interface{}{
		"assessmentId":         id,
		"agency":               agency.AgencyName,
		"recommendation":       result.Recommendation,
		"submissionNotified":   submitted,
		"confirmationNotified": confirmed,
	})

	return &SubmitOutcome{
		Assessment: record.Clone(),
		ReviewURL:  reviewURL,
		Notifications: NotificationReport{
			Submission:   &submitted,
			Confirmation: &confirmed,
		},
	}, nil
}

// create assigns a fresh id, regenerating it on collision.
func (s *Service) create(ctx context.Context, record *models.Assessment) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxCreateAttempts; attempt++ {
		record.ID = s.newID()
		id, err := s.store.Create(ctx, record)
		if err == nil {
			return id, nil
		}
		if !apperrors.IsConflict(err) {
			return "", err
		}
		lastErr = err
		s.logger.Warn("Assessment id collision, regenerating", map[string]interface{}{
			"assessmentId": record.ID,
			"attempt":      attempt,
		})
	}
	return "", apperrors.NewStorageError("create", fmt.Errorf("no unique id after %d attempts: %w", s.config.MaxCreateAttempts, lastErr))
}

// Review records the reviewer decision on a pending assessment. Only one review can
// ever succeed for a given id.
func (s *Service) Review(ctx context.Context, id string, decision string, notes string) (*ReviewOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Review", trace.WithAttributes(attribute.String("assessment.id", id)))
	defer span.End()

	status, ok := models.ParseDecision(decision)
	if !ok {
		err := apperrors.NewValidationError(
			fmt.Sprintf("decision must be %q or %q, got %q", models.StatusApproved, models.StatusRejected, decision),
			nil, []string{"decision"})
		return nil, s.fail(ctx, span, "review", err)
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, "review", err)
	}
	if current.Status != models.StatusPending {
		return nil, s.fail(ctx, span, "review", apperrors.NewInvalidTransitionError(id, string(current.Status)))
	}

	reviewedAt := s.now()
	updated := current.Clone()
	updated.Status = status
	updated.ReviewedAt = &reviewedAt
	updated.ReviewNotes = strings.TrimSpace(notes)

	if err := s.store.CompareAndSwap(ctx, updated, models.StatusPending); err != nil {
		return nil, s.fail(ctx, span, "review", err)
	}

	notified := s.notifier.NotifyDecision(ctx, updated.AgencyInfo.ContactEmail, updated.AgencyInfo.AgencyName, status, updated.ReviewNotes)
	s.index(ctx, updated)

	metrics.AssessmentsReviewed.WithLabelValues(string(status)).Inc()
	s.record(ctx, "review", "ok")
	s.logger.Info("Assessment reviewed", map[string]interface{}{
		"assessmentId":     id,
		"decision":         status,
		"decisionNotified": notified,
	})

	return &ReviewOutcome{
		Assessment:    updated.Clone(),
		Notifications: NotificationReport{Decision: &notified},
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Assessment, error) {
	return s.store.Get(ctx, id)
}

// Dashboard lists every assessment newest first, with per-status counts.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	models.SortBySubmittedDesc(records)

	counts := map[models.Status]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for _, r := range records {
		counts[r.Status]++
	}
	return &Dashboard{Assessments: records, Counts: counts, Total: len(records)}, nil
}

func (s *Service) ReviewURL(id string) string {
	return strings.TrimRight(s.config.ReviewBaseURL, "/") + "/review/" + id
}

func (s *Service) index(ctx context.Context, record *models.Assessment) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, record); err != nil {
		s.logger.Warn("Failed to index assessment", map[string]interface{}{
			"assessmentId": record.ID,
			"error":        err.Error(),
		})
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	code := string(apperrors.Normalize(err).Code)
	metrics.AssessmentErrors.WithLabelValues(operation, code).Inc()
	s.record(ctx, operation, code)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	return err
}

func (s *Service) record(ctx context.Context, operation, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordOperation(ctx, operation, outcome)
	}
}

func normalizeAgency(a models.AgencyInfo) models.AgencyInfo {
	return models.AgencyInfo{
		AgencyName:   strings.TrimSpace(a.AgencyName),
		ContactName:  strings.TrimSpace(a.ContactName),
		ContactEmail: strings.TrimSpace(a.ContactEmail),
		Department:   strings.TrimSpace(a.Department),
	}
}

func validateAgency(a models.AgencyInfo) error {
	var missing, invalid []string
	if a.AgencyName == "" {
		missing = append(missing, "agency_name")
	}
	if a.ContactName == "" {
		missing = append(missing, "contact_name")
	}
	if a.ContactEmail == "" {
		missing = append(missing, "contact_email")
	} else if _, err := mail.ParseAddress(a.ContactEmail); err != nil {
		invalid = append(invalid, "contact_email")
	}
	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing agency fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid agency fields: "+strings.Join(invalid, ", "))
	}
	return apperrors.NewValidationError(strings.Join(parts, "; "), missing, invalid)
}
