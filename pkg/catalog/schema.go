// pkg/catalog/schema.go
package catalog

const (
	GroupRequirements     = "requirements"
	GroupReadiness        = "readiness"
	GroupMigrationFactors = "migration_factors"
)

// Catalog is the versioned question set. It is loaded once and never mutated.
type Catalog struct {
	Version     string  `yaml:"version" json:"version"`
	LastUpdated string  `yaml:"lastUpdated" json:"lastUpdated"`
	Groups      []Group `yaml:"groups" json:"groups"`
}

type Group struct {
	Name      string     `yaml:"name" json:"name"`
	Title     string     `yaml:"title" json:"title"`
	Optional  bool       `yaml:"optional" json:"optional"`
	Questions []Question `yaml:"questions" json:"questions"`
}

type Question struct {
	Key     string   `yaml:"key" json:"key"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Help    string   `yaml:"help,omitempty" json:"help,omitempty"`
}

// Allows reports whether value is one of the question's options.
func (q Question) Allows(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}
