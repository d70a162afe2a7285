// internal/scoring/types.go
package scoring

import "strings"

// Platform is one of the three hosting targets.
type Platform string

const (
	AWS         Platform = "aws"
	OnPremCloud Platform = "on_prem_cloud"
	Physical    Platform = "physical"
)

// Platforms is the canonical order. Ties in the score vector resolve to the earliest entry.
var Platforms = []Platform{AWS, OnPremCloud, Physical}

func (p Platform) Valid() bool {
	for _, c := range Platforms {
		if c == p {
			return true
		}
	}
	return false
}

// Label renders the platform for reports, e.g. "ON_PREM_CLOUD".
func (p Platform) Label() string {
	return strings.ToUpper(string(p))
}

// Title renders a human name, e.g. "On Prem Cloud".
func (p Platform) Title() string {
	switch p {
	case AWS:
		return "AWS"
	case OnPremCloud:
		return "On Prem Cloud"
	case Physical:
		return "Physical"
	default:
		return string(p)
	}
}

// ScoreVector holds the per-platform totals of one scoring run.
type ScoreVector struct {
	AWS         int `json:"aws"`
	OnPremCloud int `json:"on_prem_cloud"`
	Physical    int `json:"physical"`
}

func (v *ScoreVector) Add(p Platform, points int) {
	switch p {
	case AWS:
		v.AWS += points
	case OnPremCloud:
		v.OnPremCloud += points
	case Physical:
		v.Physical += points
	}
}

func (v ScoreVector) Get(p Platform) int {
	switch p {
	case AWS:
		return v.AWS
	case OnPremCloud:
		return v.OnPremCloud
	case Physical:
		return v.Physical
	}
	return 0
}

func (v ScoreVector) Total() int {
	return v.AWS + v.OnPremCloud + v.Physical
}

// Best returns the arg-max. A later platform must score strictly higher to win, so ties
// resolve in canonical order.
// TODO: revisit whether a tie should surface as "no clear winner" instead of preferring aws.
func (v ScoreVector) Best() Platform {
	best := Platforms[0]
	for _, p := range Platforms[1:] {
		if v.Get(p) > v.Get(best) {
			best = p
		}
	}
	return best
}

// AnswerSet maps question keys to lower-case option values.
type AnswerSet map[string]string

func (a AnswerSet) Clone() AnswerSet {
	if a == nil {
		return nil
	}
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Contribution is one rule increment that fired during a run.
type Contribution struct {
	Rule     string   `json:"rule"`
	Value    string   `json:"value"`
	Platform Platform `json:"platform"`
	Points   int      `json:"points"`
}

// Migration input modes.
const (
	MigrationDirect  = "direct"
	MigrationDerived = "derived"
)

// Application age values derived from the readiness answers.
const (
	AppAgeModern = "modern"
	AppAgeLegacy = "legacy"
)

// Result is the frozen output of one scoring run.
type Result struct {
	Answers         AnswerSet      `json:"answers"`
	Scores          ScoreVector    `json:"scores"`
	Recommendation  Platform       `json:"recommendation"`
	Explanations    []string       `json:"explanations"`
	AppAge          string         `json:"app_age"`
	Migration       string         `json:"migration"`
	MigrationSource string         `json:"migration_source"`
	Contributions   []Contribution `json:"contributions,omitempty"`
	CatalogVersion  string         `json:"catalog_version"`
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Answers = r.Answers.Clone()
	if r.Explanations != nil {
		out.Explanations = append(make([]string, 0, len(r.Explanations)), r.Explanations...)
	}
	if r.Contributions != nil {
		out.Contributions = append(make([]Contribution, 0, len(r.Contributions)), r.Contributions...)
	}
	return &out
}
