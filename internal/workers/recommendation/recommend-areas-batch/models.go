// internal/workers/recommendation/recommend-areas-batch/models.go
package recommendareasbatch

import "icfes-recommender/internal/recommendation"

type Input struct {
	Students []StudentScores `json:"students"`
}

type StudentScores struct {
	StudentID string                     `json:"studentId"`
	Scores    recommendation.ScoreRecord `json:"scores"`
}

type Output struct {
	BatchID   string          `json:"batchId"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Results   []StudentResult `json:"results"`
	Failures  []FailedStudent `json:"failures"`
}

type StudentResult struct {
	Index           int                             `json:"index"`
	StudentID       string                          `json:"studentId,omitempty"`
	TopAreas        []recommendation.TopArea        `json:"topAreas"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
}

type FailedStudent struct {
	Index     int    `json:"index"`
	StudentID string `json:"studentId,omitempty"`
	Error     string `json:"error"`
}
