// internal/workers/recommendation/fetch-student-recommendation/config.go
package fetchstudentrecommendation

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
