package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
)

type response struct {
	status int
	body   string
}

// fakeTransport answers requests in order and records what it saw.
type fakeTransport struct {
	mu        sync.Mutex
	responses []response
	err       error
	requests  []*http.Request
	bodies    []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body := ""
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)

	if f.err != nil {
		return nil, f.err
	}

	r := response{status: http.StatusOK, body: `{}`}
	if len(f.responses) > 0 {
		r, f.responses = f.responses[0], f.responses[1:]
	}

	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: r.status,
		Status:     http.StatusText(r.status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

func newIndexer(t *testing.T, ft *fakeTransport) *Indexer {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{"http://es.test:9200"},
		Transport:    ft,
		DisableRetry: true,
	})
	require.NoError(t, err)
	return New(client, "", logger.NewNoOpLogger())
}

func record() *models.Assessment {
	return &models.Assessment{
		ID:          "abc",
		Status:      models.StatusPending,
		SubmittedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		AgencyInfo:  models.AgencyInfo{AgencyName: "Dept of Revenue", ContactEmail: "a@b.gov"},
	}
}

func TestIndex(t *testing.T) {
	ft := &fakeTransport{responses: []response{{status: http.StatusCreated, body: `{"result":"created"}`}}}
	idx := newIndexer(t, ft)

	require.NoError(t, idx.Index(context.Background(), record()))
	require.Len(t, ft.requests, 1)

	req := ft.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/assessments/_doc/abc", req.URL.Path)
	assert.Equal(t, "wait_for", req.URL.Query().Get("refresh"))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ft.bodies[0]), &doc))
	assert.Equal(t, "pending", doc["status"])
	assert.Contains(t, doc, "agency_info")
}

func TestIndex_Errors(t *testing.T) {
	ft := &fakeTransport{responses: []response{{status: http.StatusBadRequest, body: `{"error":"mapper_parsing_exception"}`}}}
	err := newIndexer(t, ft).Index(context.Background(), record())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))

	ft = &fakeTransport{err: errors.New("dial tcp: connection refused")}
	err = newIndexer(t, ft).Index(context.Background(), record())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeElasticsearchConnectionFailed))
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		ft := &fakeTransport{responses: []response{
			{status: http.StatusNotFound},
			{status: http.StatusOK, body: `{"acknowledged":true}`},
		}}
		require.NoError(t, newIndexer(t, ft).EnsureIndex(context.Background()))
		require.Len(t, ft.requests, 2)
		assert.Equal(t, http.MethodHead, ft.requests[0].Method)
		assert.Equal(t, http.MethodPut, ft.requests[1].Method)
		assert.Contains(t, ft.bodies[1], `"submitted_at"`)
	})

	t.Run("existing index is left alone", func(t *testing.T) {
		ft := &fakeTransport{responses: []response{{status: http.StatusOK}}}
		require.NoError(t, newIndexer(t, ft).EnsureIndex(context.Background()))
		assert.Len(t, ft.requests, 1)
	})

	t.Run("lost creation race", func(t *testing.T) {
		ft := &fakeTransport{responses: []response{
			{status: http.StatusNotFound},
			{status: http.StatusBadRequest, body: `{"error":{"type":"resource_already_exists_exception"}}`},
		}}
		require.NoError(t, newIndexer(t, ft).EnsureIndex(context.Background()))
	})
}

func TestSearch(t *testing.T) {
	ft := &fakeTransport{responses: []response{{status: http.StatusOK, body: `{
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_id": "b", "_source": {"id": "b", "status": "approved", "submitted_at": "2025-03-15T09:00:00Z", "agency_info": {"agency_name": "Dept of Revenue"}}},
				{"_id": "a", "_source": {"id": "a", "status": "approved", "submitted_at": "2025-03-14T09:00:00Z", "agency_info": {"agency_name": "Revenue Office"}}}
			]
		}
	}`}}}
	idx := newIndexer(t, ft)

	got, err := idx.Search(context.Background(), Query{Status: "Approved", Recommendation: "aws", Agency: "revenue"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Assessments, 2)
	assert.Equal(t, "b", got.Assessments[0].ID)
	assert.Equal(t, models.StatusApproved, got.Assessments[1].Status)

	assert.Equal(t, "/assessments/_search", ft.requests[0].URL.Path)
	assert.Equal(t, "25", ft.requests[0].URL.Query().Get("size"))
	body := ft.bodies[0]
	assert.Contains(t, body, `{"term":{"status":"approved"}}`)
	assert.Contains(t, body, `{"term":{"scoring_result.recommendation":"aws"}}`)
	assert.Contains(t, body, `{"match":{"agency_info.agency_name":"revenue"}}`)
}

func TestBuildQuery_MatchAll(t *testing.T) {
	q := buildQuery(Query{})
	assert.Equal(t, map[string]interface{}{"match_all": map[string]interface{}{}}, q["query"])
}

func TestSearch_ServerError(t *testing.T) {
	ft := &fakeTransport{responses: []response{{status: http.StatusInternalServerError, body: `{}`}}}
	_, err := newIndexer(t, ft).Search(context.Background(), Query{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}
