// internal/workers/recommendation/recommend-areas/models.go
package recommendareas

import "icfes-recommender/internal/recommendation"

type Input struct {
	StudentID string                     `json:"studentId,omitempty"`
	Scores    recommendation.ScoreRecord `json:"scores"`
}

type Output struct {
	StudentID       string                          `json:"studentId,omitempty"`
	TopAreas        []recommendation.TopArea        `json:"topAreas"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
	PrimaryCategory recommendation.Category         `json:"primaryCategory"`
	Branch          recommendation.Branch           `json:"branch"`
}
