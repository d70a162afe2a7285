package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/database"
	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/store/storetest"
)

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) assessment.Store {
		client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "assessments.db")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		s := New(client.DB, SQLite, logger.NewNoOpLogger())
		require.NoError(t, s.Migrate(context.Background()))
		return s
	})
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "a.db")})
	require.NoError(t, err)
	defer client.Close()

	s := New(client.DB, SQLite, logger.NewNoOpLogger())
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestToOrdinal(t *testing.T) {
	assert.Equal(t, "WHERE id = ?1 AND status = ?11", toOrdinal("WHERE id = $1 AND status = $11"))
	assert.Equal(t, insertQuery, Postgres.rebind(insertQuery))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, Postgres, logger.NewNoOpLogger()), mock
}

var submitted = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func recordRows(status string, reviewedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "status", "submitted_at", "reviewed_at", "agency_name", "contact_name",
		"contact_email", "department", "scoring_result", "review_notes",
	}).AddRow(
		"abc", status, "2025-03-14T09:26:53.000000000Z", reviewedAt, "Test Agency", "Jordan Lee",
		"jordan@example.gov", "", `{"recommendation":"aws","scores":{"aws":14,"on_prem_cloud":1,"physical":0}}`, "",
	)
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS assessments")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate(t *testing.T) {
	t.Run("inserts row", func(t *testing.T) {
		s, mock := newMockStore(t)
		rec := storetest.NewRecord(t, "abc", submitted)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
			WithArgs("abc", "pending", "2025-03-14T09:26:53.000000000Z", nil,
				"Test Agency", "Jordan Lee", "jordan@example.gov", "IT Department", sqlmock.AnyArg(), "").
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := s.Create(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, "abc", id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing id is a conflict", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := s.Create(context.Background(), storetest.NewRecord(t, "abc", submitted))
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("driver error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
			WillReturnError(errors.New("connection reset"))

		_, err := s.Create(context.Background(), storetest.NewRecord(t, "abc", submitted))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseInsertFailed))
	})
}

func TestPostgresGet(t *testing.T) {
	t.Run("maps columns", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE id = $1")).
			WithArgs("abc").
			WillReturnRows(recordRows("approved", "2025-03-15T10:00:00.000000000Z"))

		got, err := s.Get(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.True(t, got.SubmittedAt.Equal(submitted))
		require.NotNil(t, got.ReviewedAt)
		assert.Equal(t, 15, got.ReviewedAt.Day())
		require.NotNil(t, got.ScoringResult)
		assert.EqualValues(t, "aws", got.ScoringResult.Recommendation)
		assert.Equal(t, 14, got.ScoringResult.Scores.AWS)
	})

	t.Run("missing row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE id = $1")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := s.Get(context.Background(), "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestPostgresCompareAndSwap(t *testing.T) {
	rec := func(t *testing.T) *models.Assessment {
		r := storetest.NewRecord(t, "abc", submitted)
		r.Status = models.StatusApproved
		return r
	}

	t.Run("applies when status matches", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $11")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.CompareAndSwap(context.Background(), rec(t), models.StatusPending))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports stored status on mismatch", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $11")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE id = $1")).
			WillReturnRows(recordRows("rejected", nil))

		err := s.CompareAndSwap(context.Background(), rec(t), models.StatusPending)
		require.True(t, apperrors.IsInvalidTransition(err))
		assert.Equal(t, "rejected", apperrors.Normalize(err).Metadata["currentStatus"])
	})

	t.Run("missing record", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $11")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM assessments WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := s.CompareAndSwap(context.Background(), rec(t), models.StatusPending)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestPostgresList(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC")).
		WillReturnRows(recordRows("pending", nil))

	got, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ReviewedAt)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC")).
		WillReturnError(errors.New("timeout"))
	_, err = s.List(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecutionFailed))
}
