// internal/students/index.go
package students

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/recommendation"

	"github.com/elastic/go-elasticsearch/v8"
)

// IndexMapping is the mapping used when creating the recommendation index.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "estudiante_id":       {"type": "keyword"},
      "categoria_principal": {"type": "keyword"},
      "categorias":          {"type": "keyword"},
      "rama":                {"type": "keyword"},
      "carreras":            {"type": "keyword"},
      "top_areas": {
        "properties": {
          "area":       {"type": "keyword"},
          "puntuacion": {"type": "float"},
          "categoria":  {"type": "keyword"}
        }
      },
      "indexado": {"type": "date"}
    }
  }
}`

// Index publishes recommendations for search and aggregates them.
type Index interface {
	Put(ctx context.Context, rec *StudentRecommendation) error
	Remove(ctx context.Context, id string) error
	CategoryCounts(ctx context.Context) (map[string]int64, error)
}

type indexDocument struct {
	StudentID       string                    `json:"estudiante_id"`
	PrimaryCategory recommendation.Category   `json:"categoria_principal"`
	Categories      []recommendation.Category `json:"categorias"`
	Branch          recommendation.Branch     `json:"rama"`
	Programs        []string                  `json:"carreras"`
	TopAreas        []recommendation.TopArea  `json:"top_areas"`
	IndexedAt       time.Time                 `json:"indexado"`
}

func newIndexDocument(rec *StudentRecommendation) indexDocument {
	doc := indexDocument{
		StudentID: rec.StudentID,
		Branch:    rec.Result.Branch(),
		TopAreas:  rec.Result.TopAreas,
		IndexedAt: time.Now().UTC(),
	}
	if len(rec.Result.TopAreas) > 0 {
		doc.PrimaryCategory = rec.Result.TopAreas[0].Category
	}
	for _, r := range rec.Result.Recommendations {
		doc.Categories = append(doc.Categories, r.Category)
		doc.Programs = append(doc.Programs, r.Program)
	}
	return doc
}

// ElasticIndex is the go-elasticsearch backed Index.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{client: client, index: index}
}

func (e *ElasticIndex) Put(ctx context.Context, rec *StudentRecommendation) error {
	body, err := json.Marshal(newIndexDocument(rec))
	if err != nil {
		return apperrors.NewSearchIndexFailedError("encode", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(rec.StudentID),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError("index", fmt.Errorf("status %s", res.Status()))
	}
	return nil
}

// Remove deletes a student's document. A missing document is not an error.
func (e *ElasticIndex) Remove(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.index,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchIndexFailedError("delete", fmt.Errorf("status %s", res.Status()))
	}
	return nil
}

const categoryAggregation = `{
  "size": 0,
  "aggs": {
    "categorias": {
      "terms": {"field": "categoria_principal", "size": 10}
    }
  }
}`

type categoryAggResponse struct {
	Aggregations struct {
		Categorias struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int64  `json:"doc_count"`
			} `json:"buckets"`
		} `json:"categorias"`
	} `json:"aggregations"`
}

// CategoryCounts returns how many indexed students have each primary
// category.
func (e *ElasticIndex) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(strings.NewReader(categoryAggregation)),
	)
	if err != nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchIndexFailedError("aggregate", fmt.Errorf("status %s", res.Status()))
	}

	var parsed categoryAggResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchIndexFailedError("decode", err)
	}

	counts := make(map[string]int64, len(parsed.Aggregations.Categorias.Buckets))
	for _, b := range parsed.Aggregations.Categorias.Buckets {
		counts[b.Key] = b.DocCount
	}
	return counts, nil
}
