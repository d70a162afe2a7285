// internal/workers/assessment/score-assessment/models.go
package scoreassessment

import "hosting-assessment/internal/scoring"

type Input struct {
	Answers map[string]string `json:"answers"`
}

type Output struct {
	Scores          scoring.ScoreVector `json:"scores"`
	Recommendation  string              `json:"recommendation"`
	Explanations    []string            `json:"explanations"`
	AppAge          string              `json:"appAge"`
	Migration       string              `json:"migration"`
	MigrationSource string              `json:"migrationSource"`
	CatalogVersion  string              `json:"catalogVersion"`
	Report          string              `json:"report,omitempty"`
}
