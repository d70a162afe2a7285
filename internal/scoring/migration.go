// internal/scoring/migration.go
package scoring

type migrationWeight struct {
	key    string
	value  string
	points int
}

var migrationWeights = []migrationWeight{
	{"custom_hardware", "yes", 2},
	{"legacy_software", "yes", 2},
	{"large_data", "yes", 1},
	{"many_integrations", "yes", 1},
	{"documentation", "not documented", 2},
	{"documentation", "somewhat", 1},
}

const (
	migrationHighAt     = 4
	migrationModerateAt = 2
)

// MigrationPoints sums the weighted migration factors.
func MigrationPoints(answers AnswerSet) int {
	points := 0
	for _, w := range migrationWeights {
		if answers[w.key] == w.value {
			points += w.points
		}
	}
	return points
}

// DeriveMigration maps the factor points onto low/moderate/high.
func DeriveMigration(answers AnswerSet) string {
	switch points := MigrationPoints(answers); {
	case points >= migrationHighAt:
		return "high"
	case points >= migrationModerateAt:
		return "moderate"
	default:
		return "low"
	}
}
