// internal/workers/assessment/review-assessment/models.go
package reviewassessment

type Input struct {
	AssessmentID string `json:"assessmentId"`
	Decision     string `json:"decision"`
	Notes        string `json:"notes"`
}

type Output struct {
	AssessmentID     string `json:"assessmentId"`
	Status           string `json:"status"`
	ReviewedAt       string `json:"reviewedAt"` // RFC 3339
	DecisionNotified bool   `json:"decisionNotified"`
}
