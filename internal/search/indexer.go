// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
)

const DefaultIndex = "assessments"

const indexMapping = `{
  "mappings": {
    "dynamic_templates": [
      {"answers": {"path_match": "scoring_result.answers.*", "mapping": {"type": "keyword"}}}
    ],
    "properties": {
      "id":           {"type": "keyword"},
      "status":       {"type": "keyword"},
      "submitted_at": {"type": "date"},
      "reviewed_at":  {"type": "date"},
      "review_notes": {"type": "text"},
      "agency_info": {
        "properties": {
          "agency_name":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
          "contact_name":  {"type": "text"},
          "contact_email": {"type": "keyword"},
          "department":    {"type": "text", "fields": {"raw": {"type": "keyword"}}}
        }
      },
      "scoring_result": {
        "properties": {
          "recommendation": {"type": "keyword"},
          "app_age":        {"type": "keyword"},
          "migration":      {"type": "keyword"},
          "explanations":   {"type": "text"}
        }
      }
    }
  }
}`

// Indexer mirrors assessment records into an Elasticsearch index and queries them for
// the dashboard. The record store stays authoritative.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	drain(res)
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return apperrors.NewSearchQueryFailedError("index_exists", fmt.Errorf("status %s", res.Status()))
	}

	res, err = i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()
	// Another instance may have created it in between.
	if res.IsError() && !bytes.Contains(readAll(res), []byte("resource_already_exists_exception")) {
		return apperrors.NewSearchQueryFailedError("create_index", fmt.Errorf("status %s", res.Status()))
	}

	i.logger.Info("Search index created", nil)
	return nil
}

// Index upserts the record document under its id.
func (i *Indexer) Index(ctx context.Context, record *models.Assessment) error {
	body, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewSearchQueryFailedError("index", err)
	}

	res, err := i.client.Index(i.index, bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(record.ID),
		i.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchQueryFailedError("index", fmt.Errorf("%s: %s", res.Status(), readAll(res)))
	}
	return nil
}

// Query filters the dashboard. Empty fields match everything.
type Query struct {
	Status         string
	Recommendation string
	Agency         string
	From           int
	Size           int
}

type Result struct {
	Total       int                  `json:"total"`
	Assessments []*models.Assessment `json:"assessments"`
}

func (i *Indexer) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 25
	}
	if q.From < 0 {
		q.From = 0
	}

	body, _ := json.Marshal(buildQuery(q))
	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError("search", fmt.Errorf("%s: %s", res.Status(), readAll(res)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Assessment `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("decode", err)
	}

	out := &Result{
		Total:       parsed.Hits.Total.Value,
		Assessments: make([]*models.Assessment, 0, len(parsed.Hits.Hits)),
	}
	for idx := range parsed.Hits.Hits {
		rec := parsed.Hits.Hits[idx].Source
		out.Assessments = append(out.Assessments, &rec)
	}
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	filterClauses := []interface{}{}
	mustClauses := []interface{}{}

	if q.Status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": strings.ToLower(q.Status)},
		})
	}
	if q.Recommendation != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"scoring_result.recommendation": strings.ToLower(q.Recommendation)},
		})
	}
	if q.Agency != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"match": map[string]interface{}{"agency_info.agency_name": q.Agency},
		})
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filterClauses) > 0 || len(mustClauses) > 0 {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
				"must":   mustClauses,
			},
		}
	}

	return map[string]interface{}{
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"submitted_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

func readAll(res *esapi.Response) []byte {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return data
}

func drain(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
