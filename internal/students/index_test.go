// internal/students/index_test.go
package students

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "icfes-recommender/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type esRequest struct {
	Method string
	Path   string
	Body   []byte
}

// fakeElasticsearch answers with the status and body returned by respond
// and records every request.
type fakeElasticsearch struct {
	mu       sync.Mutex
	requests []esRequest
	respond  func(r *http.Request) (int, string)
}

func newTestIndex(t *testing.T, respond func(r *http.Request) (int, string)) (*ElasticIndex, *fakeElasticsearch) {
	t.Helper()
	fake := &fakeElasticsearch{respond: respond}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fake.mu.Lock()
		fake.requests = append(fake.requests, esRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		fake.mu.Unlock()

		status, payload := fake.respond(r)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)

	return NewElasticIndex(client, "recommendations"), fake
}

func TestElasticIndex_Put(t *testing.T) {
	index, fake := newTestIndex(t, func(r *http.Request) (int, string) {
		return http.StatusCreated, `{"result":"created"}`
	})
	rec := createTestRecommendation(t, "EST001")

	require.NoError(t, index.Put(context.Background(), rec))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/recommendations/_doc/EST001", req.Path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &doc))
	assert.Equal(t, "EST001", doc["estudiante_id"])
	assert.Equal(t, "Humanidades", doc["categoria_principal"])
	assert.Equal(t, "different_category", doc["rama"])
	assert.Len(t, doc["carreras"], 2)
}

func TestElasticIndex_Put_Error(t *testing.T) {
	index, _ := newTestIndex(t, func(r *http.Request) (int, string) {
		return http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`
	})

	err := index.Put(context.Background(), createTestRecommendation(t, "EST001"))
	assertCode(t, err, apperrors.ErrCodeSearchIndexFailed)
}

func TestElasticIndex_Remove(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode apperrors.ErrorCode
	}{
		{name: "deleted", status: http.StatusOK},
		{name: "absent document", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantCode: apperrors.ErrCodeSearchIndexFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, fake := newTestIndex(t, func(r *http.Request) (int, string) {
				return tt.status, `{}`
			})

			err := index.Remove(context.Background(), "EST001")
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assertCode(t, err, tt.wantCode)
			}
			require.Len(t, fake.requests, 1)
			assert.Equal(t, http.MethodDelete, fake.requests[0].Method)
		})
	}
}

func TestElasticIndex_CategoryCounts(t *testing.T) {
	index, fake := newTestIndex(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `{
			"hits": {"total": {"value": 5}},
			"aggregations": {"categorias": {"buckets": [
				{"key": "STEM", "doc_count": 3},
				{"key": "Humanidades", "doc_count": 2}
			]}}
		}`
	})

	counts, err := index.CategoryCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"STEM": 3, "Humanidades": 2}, counts)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/recommendations/_search", fake.requests[0].Path)
	assert.Contains(t, string(fake.requests[0].Body), "categoria_principal")
}

func TestElasticIndex_CategoryCounts_Error(t *testing.T) {
	index, _ := newTestIndex(t, func(r *http.Request) (int, string) {
		return http.StatusNotFound, `{"error":"index_not_found_exception"}`
	})

	_, err := index.CategoryCounts(context.Background())
	assertCode(t, err, apperrors.ErrCodeSearchIndexFailed)
}
