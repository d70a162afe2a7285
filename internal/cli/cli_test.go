package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hosting-assessment/internal/bootstrap"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// scenarioA answers favour aws with scores aws=14, on_prem_cloud=1, physical=0.
var scenarioA = []string{
	"--fault_tolerance", "low",
	"--latency", "low",
	"--data_volume", "low",
	"--security", "low",
	"--migration", "low",
	"--ops_expertise", "aws",
	"--budget", "low",
	"--compliance", "no",
	"--scalability", "yes",
	"--containerized", "yes",
	"--compatible_runtime", "yes",
	"--no_hardware_deps", "yes",
}

var agencyFlags = []string{
	"--agency-name", "Harbor Authority",
	"--contact-name", "Dana Wu",
	"--contact-email", "dana@example.gov",
}

func without(args []string, keys ...string) []string {
	var out []string
	for i := 0; i < len(args); i += 2 {
		skip := false
		for _, k := range keys {
			if args[i] == "--"+k {
				skip = true
			}
		}
		if !skip {
			out = append(out, args[i], args[i+1])
		}
	}
	return out
}

type harness struct {
	app   *bootstrap.App
	loads int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.Backend = config.BackendMemory
	cfg.Notifications.ReviewerEmail = "reviewer@example.gov"
	cfg.Notifications.ReviewBaseURL = "http://localhost:8080"

	app, err := bootstrap.Build(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	return &harness{app: app}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(Options{
		Load: func(context.Context, Settings) (*bootstrap.App, error) {
			h.loads++
			return h.app, nil
		},
		In: strings.NewReader(stdin),
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

var idPattern = regexp.MustCompile(`Assessment (\S+) submitted`)

func (h *harness) submit(t *testing.T) string {
	t.Helper()
	out, _, err := h.run(t, "", append(append([]string{"submit"}, agencyFlags...), scenarioA...)...)
	require.NoError(t, err)
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

// ==========================
// questions / score
// ==========================

func TestQuestions(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", "questions")
	require.NoError(t, err)

	assert.Contains(t, out, "--fault_tolerance")
	assert.Contains(t, out, "options: yes, no")
	assert.Contains(t, out, "(optional)")
	assert.Equal(t, 0, h.loads)
}

func TestScore_Flags(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", append([]string{"score"}, scenarioA...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Recommendation: AWS")
	assert.Contains(t, out, "Scores: aws=14, on_prem_cloud=1, physical=0")
	assert.Contains(t, out, "Application age: modern")
	assert.Contains(t, out, "Your team has AWS expertise.")
	assert.NotContains(t, out, "Contributions")
	assert.Equal(t, 0, h.loads, "scoring never touches the store")
}

func TestScore_Explain(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", append([]string{"score", "--explain"}, scenarioA...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Contributions")
	assert.Regexp(t, `ops_expertise\s+aws\s+aws \+2`, out)
}

func TestScore_JSON(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", append([]string{"score", "--format", "json"}, scenarioA...)...)
	require.NoError(t, err)

	assert.Contains(t, out, `"recommendation": "aws"`)
	assert.Contains(t, out, `"app_age": "modern"`)
}

func TestScore_OutputFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "report.txt")
	_, errOut, err := h.run(t, "", append([]string{"score", "--output", path}, scenarioA...)...)
	require.NoError(t, err)

	assert.Contains(t, errOut, "Report saved to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hosting Recommendation Report")
	assert.Contains(t, string(data), "Final Recommendation: AWS")
}

func TestScore_MissingAnswers(t *testing.T) {
	h := newHarness(t)
	_, errOut, err := h.run(t, "", append([]string{"score"}, without(scenarioA, "budget", "containerized")...)...)
	require.Error(t, err)

	assert.Contains(t, errOut, "Missing answers: budget, containerized")
	assert.Contains(t, errOut, "--interactive")
}

func TestScore_InvalidAnswer(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"score"}, without(scenarioA, "latency")...)
	_, errOut, err := h.run(t, "", append(args, "--latency", "extreme")...)
	require.Error(t, err)
	assert.Contains(t, errOut, "Invalid answers: latency")
}

func TestScore_Interactive(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"score", "-i"}, without(scenarioA, "budget", "containerized")...)
	out, _, err := h.run(t, "cheap\nLOW\nyes\n", args...)
	require.NoError(t, err)

	assert.Contains(t, out, `"cheap" is not a valid answer`)
	assert.Contains(t, out, "Recommendation: AWS")
	assert.Contains(t, out, "Scores: aws=14, on_prem_cloud=1, physical=0")
}

func TestScore_InteractiveInputClosed(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"score", "-i"}, without(scenarioA, "budget")...)
	_, _, err := h.run(t, "", args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answer for budget")
}

func TestScore_InteractiveSkipsMigrationWhenFactorsGiven(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"score", "-i", "--format", "json"}, without(scenarioA, "migration")...)
	args = append(args,
		"--custom_hardware", "no",
		"--legacy_software", "no",
		"--large_data", "no",
		"--many_integrations", "no",
		"--documentation", "documented",
	)
	out, _, err := h.run(t, "", args...)
	require.NoError(t, err)
	assert.Contains(t, out, `"migration_source": "derived"`)
}

func TestScore_InteractiveAsksRemainingMigrationFactors(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"score", "-i", "--format", "json"}, without(scenarioA, "migration")...)
	args = append(args,
		"--custom_hardware", "yes",
		"--legacy_software", "no",
	)
	out, _, err := h.run(t, "yes\nno\nmaybe\nsomewhat\n", args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Does the app hold a large amount of data to move")
	assert.NotContains(t, out, "Does the app depend on custom or specialized hardware")
	assert.Contains(t, out, `"maybe" is not a valid answer`)
	assert.Contains(t, out, `"migration_source": "derived"`)
	assert.Contains(t, out, `"migration": "high"`)
}

// ==========================
// submit / review / list / show
// ==========================

func TestSubmit(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", append(append([]string{"submit"}, agencyFlags...), scenarioA...)...)
	require.NoError(t, err)

	assert.Regexp(t, `Assessment \S+ submitted`, out)
	assert.Contains(t, out, "Recommendation: AWS")
	assert.Contains(t, out, "Status: pending")
	assert.Contains(t, out, "Review URL: http://localhost:8080/review/")
	assert.Regexp(t, `submission\s+sent`, out)
	assert.Regexp(t, `confirmation\s+sent`, out)
	assert.Equal(t, 1, h.loads)
}

func TestSubmit_MissingContact(t *testing.T) {
	h := newHarness(t)
	args := append([]string{"submit", "--agency-name", "Harbor Authority"}, scenarioA...)
	_, errOut, err := h.run(t, "", args...)
	require.Error(t, err)
	assert.Contains(t, errOut, "contact_name")

	dash, err := h.app.Service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dash.Total)
}

func TestReview(t *testing.T) {
	h := newHarness(t)
	id := h.submit(t)

	out, _, err := h.run(t, "", "review", id, "--decision", "approved", "--notes", "go ahead")
	require.NoError(t, err)
	assert.Contains(t, out, "Assessment "+id+" approved")
	assert.Contains(t, out, "Notes: go ahead")
	assert.Regexp(t, `decision\s+sent`, out)

	_, _, err = h.run(t, "", "review", id, "--decision", "rejected")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approved")
}

func TestReview_BadDecision(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, "", "review", "some-id", "--decision", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--decision must be approved or rejected")
	assert.Equal(t, 0, h.loads)

	_, _, err = h.run(t, "", "review", "some-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "decision" not set`)
}

func TestList(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No assessments submitted yet.")

	first := h.submit(t)
	second := h.submit(t)
	_, _, err = h.run(t, "", "review", first, "--decision", "rejected")
	require.NoError(t, err)

	out, _, err = h.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)
	assert.Contains(t, out, "Harbor Authority")
	assert.Contains(t, out, "Total: 2 (pending 1, approved 0, rejected 1)")

	out, _, err = h.run(t, "", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, second)
	assert.NotContains(t, out, first)

	_, _, err = h.run(t, "", "list", "--status", "archived")
	require.Error(t, err)
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	id := h.submit(t)

	out, _, err := h.run(t, "", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Assessment "+id)
	assert.Contains(t, out, "Status: pending")
	assert.Contains(t, out, "Contact: Dana Wu <dana@example.gov>")
	assert.Contains(t, out, "Final Recommendation: AWS")

	out, _, err = h.run(t, "", "show", id, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "`+string(models.StatusPending)+`"`)

	_, _, err = h.run(t, "", "show", "missing-id")
	require.Error(t, err)
}
