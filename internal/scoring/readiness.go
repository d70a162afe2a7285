// internal/scoring/readiness.go
package scoring

import "hosting-assessment/pkg/catalog"

// ReadinessThreshold is the number of "yes" readiness answers that make an app modern.
const ReadinessThreshold = 2

// ClassifyAppAge counts "yes" answers across the readiness questions.
func ClassifyAppAge(answers AnswerSet, readiness []catalog.Question) string {
	yes := 0
	for _, q := range readiness {
		if answers[q.Key] == "yes" {
			yes++
		}
	}
	if yes >= ReadinessThreshold {
		return AppAgeModern
	}
	return AppAgeLegacy
}
