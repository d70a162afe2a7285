package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
	"hosting-assessment/internal/store/memory"
)

type recordingNotifier struct {
	mu           sync.Mutex
	submission   bool
	confirmation bool
	decision     bool
	calls        []string
	reviewURLs   []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{submission: true, confirmation: true, decision: true}
}

func (n *recordingNotifier) NotifySubmission(_ context.Context, _ models.AgencyInfo, _ *scoring.Result, reviewURL string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "submission")
	n.reviewURLs = append(n.reviewURLs, reviewURL)
	return n.submission
}

func (n *recordingNotifier) NotifyConfirmation(_ context.Context, email string, _ *scoring.Result) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "confirmation:"+email)
	return n.confirmation
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, email, _ string, decision models.Status, _ string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, fmt.Sprintf("decision:%s:%s", email, decision))
	return n.decision
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type recordingIndexer struct {
	mu      sync.Mutex
	err     error
	indexed []models.Status
}

func (i *recordingIndexer) Index(_ context.Context, rec *models.Assessment) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, rec.Status)
	return i.err
}

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func validAnswers() scoring.AnswerSet {
	return scoring.AnswerSet{
		"fault_tolerance":    "high",
		"latency":            "low",
		"data_volume":        "low",
		"security":           "low",
		"migration":          "low",
		"ops_expertise":      "aws",
		"budget":             "low",
		"compliance":         "no",
		"scalability":        "yes",
		"containerized":      "yes",
		"compatible_runtime": "yes",
		"no_hardware_deps":   "yes",
	}
}

func validAgency() models.AgencyInfo {
	return models.AgencyInfo{
		AgencyName:   " Test Agency ",
		ContactName:  "Jordan Lee",
		ContactEmail: "jordan@example.gov",
		Department:   "IT",
	}
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *recordingNotifier
	indexer  *recordingIndexer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		notifier: newRecordingNotifier(),
		indexer:  &recordingIndexer{},
	}
	var seq int64
	base := []Option{
		WithIndexer(f.indexer),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", atomic.AddInt64(&seq, 1)) }),
	}
	f.svc = NewService(Config{ReviewBaseURL: "https://assess.example.gov/"}, f.store, f.notifier, nil,
		logger.NewNoOpLogger(), append(base, opts...)...)
	return f
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.NoError(t, err)

	rec := out.Assessment
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, fixedNow, rec.SubmittedAt)
	assert.Nil(t, rec.ReviewedAt)
	assert.Empty(t, rec.ReviewNotes)
	assert.Equal(t, "Test Agency", rec.AgencyInfo.AgencyName)
	assert.Equal(t, scoring.AWS, rec.ScoringResult.Recommendation)
	assert.Equal(t, "https://assess.example.gov/review/id-1", out.ReviewURL)

	require.NotNil(t, out.Notifications.Submission)
	require.NotNil(t, out.Notifications.Confirmation)
	assert.Nil(t, out.Notifications.Decision)
	assert.True(t, out.Notifications.AllDelivered())
	assert.ElementsMatch(t, []string{"submission", "confirmation:jordan@example.gov"}, f.notifier.Calls())
	assert.Equal(t, []string{"https://assess.example.gov/review/id-1"}, f.notifier.reviewURLs)

	stored, err := f.store.Get(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, []models.Status{models.StatusPending}, f.indexer.indexed)
}

func TestSubmit_ValidationHasNoSideEffects(t *testing.T) {
	tests := []struct {
		name        string
		agency      models.AgencyInfo
		answers     scoring.AnswerSet
		wantMissing []string
		wantInvalid []string
	}{
		{
			name:        "missing agency fields",
			agency:      models.AgencyInfo{AgencyName: "  ", ContactEmail: "jordan@example.gov"},
			answers:     validAnswers(),
			wantMissing: []string{"agency_name", "contact_name"},
		},
		{
			name:        "bad email",
			agency:      models.AgencyInfo{AgencyName: "A", ContactName: "B", ContactEmail: "not-an-email"},
			answers:     validAnswers(),
			wantInvalid: []string{"contact_email"},
		},
		{
			name:   "incomplete answers",
			agency: validAgency(),
			answers: func() scoring.AnswerSet {
				a := validAnswers()
				delete(a, "budget")
				a["latency"] = "extreme"
				return a
			}(),
			wantMissing: []string{"budget"},
			wantInvalid: []string{"latency"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Submit(context.Background(), tt.agency, tt.answers)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.wantMissing, apperrors.MetadataStrings(err, "missing"))
			assert.Equal(t, tt.wantInvalid, apperrors.MetadataStrings(err, "invalid"))

			all, err := f.store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, f.notifier.Calls())
		})
	}
}

func TestSubmit_RegeneratesIDOnCollision(t *testing.T) {
	ids := []string{"taken", "taken", "fresh"}
	var n int32
	f := newFixture(t, WithIDGenerator(func() string {
		return ids[atomic.AddInt32(&n, 1)-1]
	}))

	_, err := f.store.Create(context.Background(), &models.Assessment{ID: "taken", Status: models.StatusApproved})
	require.NoError(t, err)

	out, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.NoError(t, err)
	assert.Equal(t, "fresh", out.Assessment.ID)

	taken, err := f.store.Get(context.Background(), "taken")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, taken.Status, "existing record must not be overwritten")
}

func TestSubmit_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, WithIDGenerator(func() string { return "taken" }))
	_, err := f.store.Create(context.Background(), &models.Assessment{ID: "taken"})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.Error(t, err)
	assert.False(t, apperrors.IsConflict(err), "collisions are never surfaced as conflicts")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStorageFailed))
}

func TestSubmit_NotificationFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.notifier.confirmation = false

	out, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.NoError(t, err)
	assert.False(t, out.Notifications.AllDelivered())
	assert.Equal(t, []models.NotificationKind{models.NotificationConfirmation}, out.Notifications.Failed())

	_, err = f.store.Get(context.Background(), out.Assessment.ID)
	assert.NoError(t, err)
}

func TestSubmit_IndexFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = errors.New("es down")

	_, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	assert.NoError(t, err)
}

func TestSubmit_StoredResultIsASnapshot(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.NoError(t, err)

	out.Assessment.ScoringResult.Explanations[0] = "tampered"
	out.Assessment.ScoringResult.Answers["latency"] = "high"

	stored, err := f.store.Get(context.Background(), out.Assessment.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", stored.ScoringResult.Explanations[0])
	assert.Equal(t, "low", stored.ScoringResult.Answers["latency"])
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	sub, err := f.svc.Submit(context.Background(), validAgency(), validAnswers())
	require.NoError(t, err)

	out, err := f.svc.Review(context.Background(), sub.Assessment.ID, "APPROVED", "  looks good ")
	require.NoError(t, err)

	rec := out.Assessment
	assert.Equal(t, models.StatusApproved, rec.Status)
	require.NotNil(t, rec.ReviewedAt)
	assert.Equal(t, fixedNow, *rec.ReviewedAt)
	assert.Equal(t, "looks good", rec.ReviewNotes)
	assert.Equal(t, sub.Assessment.ScoringResult, rec.ScoringResult)
	require.NotNil(t, out.Notifications.Decision)
	assert.True(t, *out.Notifications.Decision)
	assert.Contains(t, f.notifier.Calls(), "decision:jordan@example.gov:approved")
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusApproved}, f.indexer.indexed)
}

func TestReview_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, err := f.svc.Submit(ctx, validAgency(), validAnswers())
	require.NoError(t, err)
	id := sub.Assessment.ID

	t.Run("invalid decision is rejected before lookup", func(t *testing.T) {
		_, err := f.svc.Review(ctx, "does-not-exist", "maybe", "")
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, []string{"decision"}, apperrors.MetadataStrings(err, "invalid"))
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		_, err := f.svc.Review(ctx, id, "pending", "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.svc.Review(ctx, "does-not-exist", "approved", "")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("second review is rejected", func(t *testing.T) {
		_, err := f.svc.Review(ctx, id, "rejected", "no")
		require.NoError(t, err)

		_, err = f.svc.Review(ctx, id, "approved", "changed my mind")
		require.True(t, apperrors.IsInvalidTransition(err))
		assert.Equal(t, "rejected", apperrors.Normalize(err).Metadata["currentStatus"])

		stored, err := f.store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, stored.Status)
		assert.Equal(t, "no", stored.ReviewNotes)
	})
}

func TestReview_ConcurrentReviewsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, err := f.svc.Submit(ctx, validAgency(), validAnswers())
	require.NoError(t, err)

	const reviewers = 10
	var wins, transitions int32
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := "approved"
			if i%2 == 1 {
				decision = "rejected"
			}
			_, err := f.svc.Review(ctx, sub.Assessment.ID, decision, "")
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case apperrors.IsInvalidTransition(err):
				atomic.AddInt32(&transitions, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, reviewers-1, transitions)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	var clock int64
	f := newFixture(t, WithClock(func() time.Time {
		return fixedNow.Add(time.Duration(atomic.AddInt64(&clock, 1)) * time.Hour)
	}))

	var ids []string
	for i := 0; i < 3; i++ {
		out, err := f.svc.Submit(ctx, validAgency(), validAnswers())
		require.NoError(t, err)
		ids = append(ids, out.Assessment.ID)
	}
	_, err := f.svc.Review(ctx, ids[0], "approved", "")
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dash.Total)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{dash.Assessments[0].ID, dash.Assessments[1].ID, dash.Assessments[2].ID})
	assert.Equal(t, map[models.Status]int{
		models.StatusPending:  2,
		models.StatusApproved: 1,
		models.StatusRejected: 0,
	}, dash.Counts)
}

func TestDashboard_Empty(t *testing.T) {
	dash, err := newFixture(t).svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dash.Total)
	assert.Empty(t, dash.Assessments)
}

func TestScore_DoesNotPersist(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Score(validAnswers())
	require.NoError(t, err)
	assert.Equal(t, scoring.AWS, result.Recommendation)

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
