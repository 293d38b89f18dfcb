// internal/workers/recommendation/fetch-student-recommendation/models.go
package fetchstudentrecommendation

import (
	"time"

	"icfes-recommender/internal/recommendation"
)

type Input struct {
	StudentID string `json:"studentId"`
}

type Output struct {
	StudentID       string                          `json:"studentId"`
	Scores          map[string]float64              `json:"scores"`
	TopAreas        []recommendation.TopArea        `json:"topAreas"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
	PrimaryCategory recommendation.Category         `json:"primaryCategory"`
	Cached          bool                            `json:"cached"`
	GeneratedAt     time.Time                       `json:"generatedAt"`
}
