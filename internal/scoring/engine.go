// internal/scoring/engine.go
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/pkg/catalog"
)

// Engine scores answer sets against a catalog. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	catalog *catalog.Catalog
}

// NewEngine checks that every rule input is either answered through the catalog or derived.
func NewEngine(cat *catalog.Catalog) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if len(cat.Questions(catalog.GroupReadiness)) == 0 {
		return nil, fmt.Errorf("catalog has no readiness questions")
	}
	for _, r := range rules {
		if derivedKeys[r.key] {
			continue
		}
		if _, ok := cat.Lookup(r.key); !ok {
			return nil, fmt.Errorf("catalog is missing question %q used by the scoring rules", r.key)
		}
	}
	return &Engine{catalog: cat}, nil
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns an engine over the embedded catalog.
func Default() *Engine {
	defaultOnce.Do(func() {
		e, err := NewEngine(catalog.Default())
		if err != nil {
			panic(fmt.Sprintf("scoring: %v", err))
		}
		defaultEngine = e
	})
	return defaultEngine
}

// Score runs the default engine.
func Score(answers AnswerSet) (*Result, error) {
	return Default().Score(answers)
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Score validates, classifies and scores the answers. Nothing is computed unless the
// whole answer set is valid.
func (e *Engine) Score(answers AnswerSet) (*Result, error) {
	normalized, source, err := e.Normalize(answers)
	if err != nil {
		return nil, err
	}

	normalized[KeyAppAge] = ClassifyAppAge(normalized, e.catalog.Questions(catalog.GroupReadiness))
	if source == MigrationDerived {
		normalized[KeyMigration] = DeriveMigration(normalized)
	}

	var (
		scores        ScoreVector
		contributions []Contribution
		reasons       []string
	)
	for _, r := range rules {
		value := normalized[r.key]
		for _, eff := range r.outcomes[value] {
			scores.Add(eff.platform, eff.points)
			contributions = append(contributions, Contribution{
				Rule:     r.key,
				Value:    value,
				Platform: eff.platform,
				Points:   eff.points,
			})
		}
	}

	recommendation := scores.Best()
	for _, r := range rules {
		for _, eff := range r.outcomes[normalized[r.key]] {
			if eff.platform == recommendation && eff.explanation != "" {
				reasons = append(reasons, eff.explanation)
			}
		}
	}
	if reasons == nil {
		reasons = []string{}
	}

	return &Result{
		Answers:         normalized,
		Scores:          scores,
		Recommendation:  recommendation,
		Explanations:    reasons,
		AppAge:          normalized[KeyAppAge],
		Migration:       normalized[KeyMigration],
		MigrationSource: source,
		Contributions:   contributions,
		CatalogVersion:  e.catalog.Version,
	}, nil
}

// Normalize lower-cases and trims every answer and checks it against the catalog. It
// returns the migration input mode that the answers select. Two raw keys that normalize
// to the same key make that key invalid.
func (e *Engine) Normalize(answers AnswerSet) (AnswerSet, string, error) {
	out := make(AnswerSet, len(answers)+2)
	ambiguous := map[string]bool{}
	for k, v := range answers {
		key := strings.ToLower(strings.TrimSpace(k))
		if derivedKeys[key] {
			continue
		}
		if _, dup := out[key]; dup {
			ambiguous[key] = true
		}
		out[key] = strings.ToLower(strings.TrimSpace(v))
	}
	if len(ambiguous) > 0 {
		invalid := e.ambiguousKeys(ambiguous)
		return nil, "", apperrors.NewValidationError(validationDetails(nil, invalid), nil, invalid)
	}

	source := MigrationDirect
	if out[KeyMigration] == "" {
		delete(out, KeyMigration)
		for _, q := range e.catalog.Questions(catalog.GroupMigrationFactors) {
			if out[q.Key] != "" {
				source = MigrationDerived
				break
			}
		}
	}

	var missing, invalid []string
	for _, g := range e.catalog.Groups {
		required := !g.Optional
		if g.Name == catalog.GroupMigrationFactors {
			required = source == MigrationDerived
		}
		for _, q := range g.Questions {
			v, ok := out[q.Key]
			switch {
			case q.Key == KeyMigration && source == MigrationDerived:
			case !ok || v == "":
				if required {
					missing = append(missing, q.Key)
				}
				delete(out, q.Key)
			case !q.Allows(v):
				invalid = append(invalid, q.Key)
			}
		}
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return nil, "", apperrors.NewValidationError(validationDetails(missing, invalid), missing, invalid)
	}
	return out, source, nil
}

// ambiguousKeys orders the keys catalog questions first, then the rest alphabetically.
func (e *Engine) ambiguousKeys(keys map[string]bool) []string {
	var out, extra []string
	for _, q := range e.catalog.All() {
		if keys[q.Key] {
			out = append(out, q.Key)
			delete(keys, q.Key)
		}
	}
	for key := range keys {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func validationDetails(missing, invalid []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing answers: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid answers: "+strings.Join(invalid, ", "))
	}
	return strings.Join(parts, "; ")
}
