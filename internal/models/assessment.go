// internal/models/assessment.go
package models

import (
	"sort"
	"strings"
	"time"

	"hosting-assessment/internal/scoring"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseDecision accepts a review decision in any case.
func ParseDecision(v string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(v))); s {
	case StatusApproved, StatusRejected:
		return s, true
	default:
		return "", false
	}
}

type AgencyInfo struct {
	AgencyName   string `json:"agency_name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Department   string `json:"department,omitempty"`
}

// Assessment is the persisted record of one submission and its review outcome.
type Assessment struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	AgencyInfo    AgencyInfo      `json:"agency_info"`
	ScoringResult *scoring.Result `json:"scoring_result"`
	ReviewNotes   string          `json:"review_notes"`
}

// Clone returns a snapshot that shares nothing with the receiver.
func (a *Assessment) Clone() *Assessment {
	if a == nil {
		return nil
	}
	out := *a
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		out.ReviewedAt = &t
	}
	out.ScoringResult = a.ScoringResult.Clone()
	return &out
}

// SortBySubmittedDesc orders records newest first, breaking ties by id.
func SortBySubmittedDesc(records []*Assessment) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
}
