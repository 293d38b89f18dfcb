// internal/workers/recommendation/recommend-areas/config.go
package recommendareas

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
