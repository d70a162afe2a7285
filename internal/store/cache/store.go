// internal/store/cache/store.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"hosting-assessment/internal/assessment"
	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/metrics"
	"hosting-assessment/internal/models"
)

const DefaultKeyPrefix = "assessment:"

// Store is a write-through redis cache in front of another store. The wrapped store stays
// the source of truth; cache failures are logged and never reach the caller.
type Store struct {
	next   assessment.Store
	redis  redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func New(next assessment.Store, client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		next:   next,
		redis:  client,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"store": "cache"}),
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) Create(ctx context.Context, record *models.Assessment) (string, error) {
	id, err := s.next.Create(ctx, record)
	if err != nil {
		return "", err
	}
	s.put(ctx, record)
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Assessment, error) {
	raw, err := s.redis.Get(ctx, s.key(id)).Bytes()
	switch {
	case err == nil:
		var record models.Assessment
		jsonErr := json.Unmarshal(raw, &record)
		if jsonErr == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return &record, nil
		}
		s.warn("decode", id, jsonErr)
		s.evict(ctx, id)
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	default:
		s.warn("get", id, err)
	}

	record, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, record)
	return record, nil
}

func (s *Store) Update(ctx context.Context, record *models.Assessment) error {
	if err := s.next.Update(ctx, record); err != nil {
		s.evict(ctx, record.ID)
		return err
	}
	s.put(ctx, record)
	return nil
}

// CompareAndSwap evicts on failure so a stale cached status cannot mask the stored one.
func (s *Store) CompareAndSwap(ctx context.Context, record *models.Assessment, expected models.Status) error {
	if err := s.next.CompareAndSwap(ctx, record, expected); err != nil {
		s.evict(ctx, record.ID)
		return err
	}
	s.put(ctx, record)
	return nil
}

func (s *Store) List(ctx context.Context) ([]*models.Assessment, error) {
	return s.next.List(ctx)
}

func (s *Store) put(ctx context.Context, record *models.Assessment) {
	data, err := json.Marshal(record)
	if err != nil {
		s.warn("encode", record.ID, err)
		return
	}
	if err := s.redis.Set(ctx, s.key(record.ID), string(data), s.ttl).Err(); err != nil {
		s.warn("set", record.ID, err)
	}
}

// fill caches a record read from the wrapped store. SETNX keeps it from replacing an
// entry a concurrent write already put.
func (s *Store) fill(ctx context.Context, record *models.Assessment) {
	data, err := json.Marshal(record)
	if err != nil {
		s.warn("encode", record.ID, err)
		return
	}
	if err := s.redis.SetNX(ctx, s.key(record.ID), string(data), s.ttl).Err(); err != nil {
		s.warn("setnx", record.ID, err)
	}
}

func (s *Store) evict(ctx context.Context, id string) {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		s.warn("del", id, err)
	}
}

func (s *Store) warn(op, id string, err error) {
	metrics.CacheRequests.WithLabelValues("error").Inc()
	s.logger.Warn("Assessment cache operation failed", map[string]interface{}{
		"assessmentId": id,
		"error":        apperrors.NewCacheError(op, err),
	})
}
