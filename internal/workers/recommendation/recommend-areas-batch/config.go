// internal/workers/recommendation/recommend-areas-batch/config.go
package recommendareasbatch

import (
	"time"

	"icfes-recommender/internal/common/validation"
)

type Config struct {
	Timeout     time.Duration
	Concurrency int
	MaxStudents int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		Concurrency: 4,
		MaxStudents: validation.MaxBatchSize,
	}
}
