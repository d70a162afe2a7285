// internal/workers/assessment/submit-assessment/config.go
package submitassessment

import "time"

type Config struct {
	// Timeout bounds persistence plus notification delivery for one job.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
