// internal/workers/assessment/score-assessment/config.go
package scoreassessment

import "time"

type Config struct {
	Timeout time.Duration
	// IncludeReport adds the plain text report to the job output.
	IncludeReport bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
