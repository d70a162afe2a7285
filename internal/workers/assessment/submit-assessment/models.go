// internal/workers/assessment/submit-assessment/models.go
package submitassessment

import "hosting-assessment/internal/models"

type AgencyInfo struct {
	AgencyName   string `json:"agencyName"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	Department   string `json:"department"`
}

func (a AgencyInfo) toModel() models.AgencyInfo {
	return models.AgencyInfo{
		AgencyName:   a.AgencyName,
		ContactName:  a.ContactName,
		ContactEmail: a.ContactEmail,
		Department:   a.Department,
	}
}

type Input struct {
	AgencyInfo AgencyInfo        `json:"agencyInfo"`
	Answers    map[string]string `json:"answers"`
}

type Output struct {
	AssessmentID         string `json:"assessmentId"`
	Status               string `json:"status"`
	SubmittedAt          string `json:"submittedAt"` // RFC 3339
	Recommendation       string `json:"recommendation"`
	ReviewURL            string `json:"reviewUrl"`
	SubmissionNotified   bool   `json:"submissionNotified"`
	ConfirmationNotified bool   `json:"confirmationNotified"`
}
