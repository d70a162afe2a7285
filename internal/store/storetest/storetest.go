// Package storetest holds the behavioural suite every assessment store must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

// NewRecord builds a pending assessment with a real scoring result.
func NewRecord(t testing.TB, id string, submittedAt time.Time) *models.Assessment {
	t.Helper()
	result, err := scoring.Score(scoring.AnswerSet{
		"fault_tolerance":    "high",
		"latency":            "low",
		"data_volume":        "moderate",
		"security":           "low",
		"migration":          "low",
		"ops_expertise":      "aws",
		"budget":             "low",
		"compliance":         "no",
		"scalability":        "yes",
		"containerized":      "yes",
		"compatible_runtime": "yes",
		"no_hardware_deps":   "no",
	})
	require.NoError(t, err)

	return &models.Assessment{
		ID:          id,
		Status:      models.StatusPending,
		SubmittedAt: submittedAt.UTC().Truncate(time.Microsecond),
		AgencyInfo: models.AgencyInfo{
			AgencyName:   "Test Agency",
			ContactName:  "Jordan Lee",
			ContactEmail: "jordan@example.gov",
			Department:   "IT Department",
		},
		ScoringResult: result,
	}
}

// Run exercises the store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) assessment.Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	t.Run("CreateThenGet", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "a-1", base)

		id, err := s.Create(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, "a-1", id)

		got, err := s.Get(ctx, "a-1")
		require.NoError(t, err)
		if diff := cmp.Diff(rec, got); diff != "" {
			t.Errorf("stored record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CreateConflict", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewRecord(t, "dup", base))
		require.NoError(t, err)

		_, err = s.Create(ctx, NewRecord(t, "dup", base.Add(time.Minute)))
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err), "got %v", err)

		got, err := s.Get(ctx, "dup")
		require.NoError(t, err)
		assert.True(t, got.SubmittedAt.Equal(base))
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	})

	t.Run("UpdateReplacesRecord", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "u-1", base)
		_, err := s.Create(ctx, rec)
		require.NoError(t, err)

		rec.ReviewNotes = "looked fine"
		rec.AgencyInfo.Department = "Operations"
		require.NoError(t, s.Update(ctx, rec))

		got, err := s.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "looked fine", got.ReviewNotes)
		assert.Equal(t, "Operations", got.AgencyInfo.Department)
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, NewRecord(t, "ghost", base))
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "c-1", base)
		_, err := s.Create(ctx, rec)
		require.NoError(t, err)

		reviewed := base.Add(time.Hour)
		approved := rec.Clone()
		approved.Status = models.StatusApproved
		approved.ReviewedAt = &reviewed
		approved.ReviewNotes = "ok"
		require.NoError(t, s.CompareAndSwap(ctx, approved, models.StatusPending))

		rejected := rec.Clone()
		rejected.Status = models.StatusRejected
		err = s.CompareAndSwap(ctx, rejected, models.StatusPending)
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err), "got %v", err)
		assert.Equal(t, "approved", apperrors.Normalize(err).Metadata["currentStatus"])

		got, err := s.Get(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
		require.NotNil(t, got.ReviewedAt)
		assert.True(t, got.ReviewedAt.Equal(reviewed))
	})

	t.Run("CompareAndSwapNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.CompareAndSwap(ctx, NewRecord(t, "ghost", base), models.StatusPending)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	})

	t.Run("ConcurrentCompareAndSwapHasOneWinner", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "race", base)
		_, err := s.Create(ctx, rec)
		require.NoError(t, err)

		const contenders = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := rec.Clone()
				next.Status = models.StatusApproved
				if i%2 == 1 {
					next.Status = models.StatusRejected
				}
				next.ReviewNotes = fmt.Sprintf("reviewer %d", i)

				err := s.CompareAndSwap(ctx, next, models.StatusPending)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case apperrors.IsInvalidTransition(err):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, contenders-1, conflicts)
	})

	t.Run("ListReturnsEverything", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			_, err := s.Create(ctx, NewRecord(t, fmt.Sprintf("l-%d", i), base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		records, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)

		ids := map[string]bool{}
		for _, r := range records {
			ids[r.ID] = true
			assert.NotNil(t, r.ScoringResult)
		}
		assert.Equal(t, map[string]bool{"l-0": true, "l-1": true, "l-2": true}, ids)
	})

	t.Run("ReturnedRecordsAreSnapshots", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "snap", base)
		_, err := s.Create(ctx, rec)
		require.NoError(t, err)

		rec.ReviewNotes = "mutated after create"
		got, err := s.Get(ctx, "snap")
		require.NoError(t, err)
		assert.Empty(t, got.ReviewNotes)

		got.ScoringResult.Answers["budget"] = "high"
		again, err := s.Get(ctx, "snap")
		require.NoError(t, err)
		assert.Equal(t, "low", again.ScoringResult.Answers["budget"])
	})
}
