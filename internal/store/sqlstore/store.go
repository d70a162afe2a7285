// internal/store/sqlstore/store.go
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
)

// Fixed width so that text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const columns = `id, status, submitted_at, reviewed_at, agency_name, contact_name, contact_email, department, scoring_result, review_notes`

const (
	insertQuery = `INSERT INTO assessments (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

	updateQuery = `UPDATE assessments SET status = $2, submitted_at = $3, reviewed_at = $4, agency_name = $5,
contact_name = $6, contact_email = $7, department = $8, scoring_result = $9, review_notes = $10
WHERE id = $1`

	casQuery = updateQuery + ` AND status = $11`

	getQuery = `SELECT ` + columns + ` FROM assessments WHERE id = $1`

	listQuery = `SELECT ` + columns + ` FROM assessments ORDER BY submitted_at DESC, id ASC`
)

// Store persists assessments in a SQL table, one row per record.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
}

func New(db *sql.DB, dialect Dialect, log logger.Logger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  log.WithFields(map[string]interface{}{"store": dialect.Name}),
	}
}

// Migrate creates the assessments table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return apperrors.NewStorageError("migrate", err)
	}
	s.logger.Debug("Schema ready", nil)
	return nil
}

func (s *Store) Create(ctx context.Context, record *models.Assessment) (string, error) {
	args, err := rowArgs(record)
	if err != nil {
		return "", err
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(insertQuery), args...)
	if err != nil {
		return "", apperrors.NewDatabaseInsertFailedError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", apperrors.NewDatabaseInsertFailedError(err)
	}
	if n == 0 {
		return "", apperrors.NewConflictError(record.ID)
	}
	return record.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Assessment, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(getQuery), id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get", err)
	}
	return record, nil
}

func (s *Store) Update(ctx context.Context, record *models.Assessment) error {
	args, err := rowArgs(record)
	if err != nil {
		return err
	}

	n, err := s.exec(ctx, "update", updateQuery, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError(record.ID)
	}
	return nil
}

// CompareAndSwap relies on the status predicate in the UPDATE for atomicity. When no row
// changes, a follow-up read tells a missing record from a status mismatch.
func (s *Store) CompareAndSwap(ctx context.Context, record *models.Assessment, expected models.Status) error {
	args, err := rowArgs(record)
	if err != nil {
		return err
	}

	n, err := s.exec(ctx, "compare_and_swap", casQuery, append(args, string(expected))...)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	current, err := s.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	return apperrors.NewInvalidTransitionError(record.ID, string(current.Status))
}

func (s *Store) List(ctx context.Context) ([]*models.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(listQuery))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list", err)
	}
	defer rows.Close()

	out := make([]*models.Assessment, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list", err)
	}
	return out, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError(op, err)
	}
	return n, nil
}

func rowArgs(record *models.Assessment) ([]interface{}, error) {
	result, err := json.Marshal(record.ScoringResult)
	if err != nil {
		return nil, apperrors.NewStorageError("encode", err)
	}

	var reviewedAt sql.NullString
	if record.ReviewedAt != nil {
		reviewedAt = sql.NullString{String: formatTime(*record.ReviewedAt), Valid: true}
	}

	return []interface{}{
		record.ID,
		string(record.Status),
		formatTime(record.SubmittedAt),
		reviewedAt,
		record.AgencyInfo.AgencyName,
		record.AgencyInfo.ContactName,
		record.AgencyInfo.ContactEmail,
		record.AgencyInfo.Department,
		string(result),
		record.ReviewNotes,
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*models.Assessment, error) {
	var (
		record      models.Assessment
		status      string
		submittedAt string
		reviewedAt  sql.NullString
		result      sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&status,
		&submittedAt,
		&reviewedAt,
		&record.AgencyInfo.AgencyName,
		&record.AgencyInfo.ContactName,
		&record.AgencyInfo.ContactEmail,
		&record.AgencyInfo.Department,
		&result,
		&record.ReviewNotes,
	)
	if err != nil {
		return nil, err
	}

	record.Status = models.Status(status)
	if record.SubmittedAt, err = time.Parse(timeLayout, submittedAt); err != nil {
		return nil, fmt.Errorf("submitted_at: %w", err)
	}
	if reviewedAt.Valid {
		t, err := time.Parse(timeLayout, reviewedAt.String)
		if err != nil {
			return nil, fmt.Errorf("reviewed_at: %w", err)
		}
		record.ReviewedAt = &t
	}
	if result.Valid && result.String != "" && result.String != "null" {
		var sr scoring.Result
		if err := json.Unmarshal([]byte(result.String), &sr); err != nil {
			return nil, fmt.Errorf("scoring_result: %w", err)
		}
		record.ScoringResult = &sr
	}
	return &record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
