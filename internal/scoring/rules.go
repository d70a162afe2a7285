// internal/scoring/rules.go
package scoring

// Question keys the rule table reads.
const (
	KeyFaultTolerance = "fault_tolerance"
	KeyLatency        = "latency"
	KeyDataVolume     = "data_volume"
	KeySecurity       = "security"
	KeyAppAge         = "app_age"
	KeyMigration      = "migration"
	KeyOpsExpertise   = "ops_expertise"
	KeyBudget         = "budget"
	KeyCompliance     = "compliance"
	KeyScalability    = "scalability"
)

type effect struct {
	platform    Platform
	points      int
	explanation string
}

type rule struct {
	key      string
	outcomes map[string][]effect
}

// rules is evaluated top to bottom on every run. Effects without an explanation still
// score but are never surfaced as a reason.
var rules = []rule{
	{
		key: KeyFaultTolerance,
		outcomes: map[string][]effect{
			"high":     {{AWS, 2, "High fault tolerance needs are best met by AWS."}},
			"moderate": {{OnPremCloud, 1, "Moderate fault tolerance can be handled by on-prem cloud."}},
		},
	},
	{
		key: KeyLatency,
		outcomes: map[string][]effect{
			"high":     {{Physical, 2, "High latency sensitivity is best served by physical infrastructure."}},
			"moderate": {{OnPremCloud, 1, "Moderate latency sensitivity is suitable for on-prem cloud."}},
		},
	},
	{
		key: KeyDataVolume,
		outcomes: map[string][]effect{
			"high":     {{OnPremCloud, 2, "High data volume is often better managed on-premises."}},
			"moderate": {{AWS, 1, ""}},
			"low":      {{AWS, 2, ""}},
		},
	},
	{
		key: KeySecurity,
		outcomes: map[string][]effect{
			"high":     {{Physical, 2, "High security needs are best met by physical hosting."}},
			"moderate": {{OnPremCloud, 2, "Moderate security needs are met by on-prem cloud."}},
			"low":      {{AWS, 1, ""}},
		},
	},
	{
		key: KeyAppAge,
		outcomes: map[string][]effect{
			AppAgeModern: {{AWS, 2, "Modern, cloud-ready applications are ideal for AWS."}},
			AppAgeLegacy: {{Physical, 2, "Legacy applications are often better suited to physical servers."}},
		},
	},
	{
		key: KeyMigration,
		outcomes: map[string][]effect{
			"low":      {{AWS, 2, "Low migration complexity makes AWS adoption easier."}},
			"moderate": {{OnPremCloud, 1, "Moderate migration complexity fits on-prem cloud."}},
			"high":     {{Physical, 2, "High migration complexity favors staying on physical infrastructure."}},
		},
	},
	{
		key: KeyOpsExpertise,
		outcomes: map[string][]effect{
			"aws":     {{AWS, 2, "Your team has AWS expertise."}},
			"vmware":  {{OnPremCloud, 2, "Your team has VMware/on-prem expertise."}},
			"minimal": {{Physical, 1, "Minimal cloud/on-prem expertise may require physical hosting."}},
		},
	},
	{
		key: KeyBudget,
		outcomes: map[string][]effect{
			"low":      {{AWS, 2, "Low budget sensitivity favors AWS's cost efficiency."}},
			"moderate": {{OnPremCloud, 1, ""}},
		},
	},
	{
		key: KeyCompliance,
		outcomes: map[string][]effect{
			"yes": {
				{OnPremCloud, 2, "Compliance requirements are often easier to meet on-premises."},
				{AWS, 1, ""},
			},
			"no": {{AWS, 1, "No strict compliance requirements allow for public cloud hosting."}},
		},
	},
	{
		key: KeyScalability,
		outcomes: map[string][]effect{
			"yes": {
				{AWS, 2, "AWS is well-suited for scalable workloads."},
				{OnPremCloud, 1, "On-prem cloud can support some scalability needs."},
			},
			"no": {{Physical, 1, "Physical infrastructure is suitable for stable, non-scaling workloads."}},
		},
	},
}

// derivedKeys are rule inputs computed by the engine rather than answered.
var derivedKeys = map[string]bool{KeyAppAge: true}
