// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hosting-assessment/internal/api"
	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/bootstrap"
	"hosting-assessment/internal/cli"
	"hosting-assessment/internal/common/camunda/camundatest"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/notify"

	reviewassessment "hosting-assessment/internal/workers/assessment/review-assessment"
	scoreassessment "hosting-assessment/internal/workers/assessment/score-assessment"
	submitassessment "hosting-assessment/internal/workers/assessment/submit-assessment"
)

// Scenario C: compliance-heavy workload handled by a VMware team.
var scenarioC = map[string]string{
	"fault_tolerance":    "low",
	"latency":            "low",
	"data_volume":        "high",
	"security":           "moderate",
	"migration":          "low",
	"ops_expertise":      "vmware",
	"budget":             "high",
	"compliance":         "yes",
	"scalability":        "no",
	"containerized":      "no",
	"compatible_runtime": "no",
	"no_hardware_deps":   "no",
}

type env struct {
	app      *bootstrap.App
	notifier *notify.LogNotifier
	server   *api.Server
	redis    *miniredis.Miniredis
}

// newEnv wires the sqlite store behind the redis cache, the way a single-node
// deployment runs it.
func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "assessments.db")
	cfg.Cache.Enabled = true
	cfg.Cache.TTLSeconds = 300
	cfg.Cache.KeyPrefix = "assessment:"
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Notifications.ReviewerEmail = "eotss@example.gov"
	cfg.Notifications.ReviewBaseURL = "https://hosting.example.gov"

	log := logger.NewTestLogger(t)
	notifier := notify.NewLogNotifier(cfg.Notifications.ReviewerEmail, log)
	app, err := bootstrap.Build(context.Background(), cfg, log, bootstrap.WithNotifier(notifier))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &env{
		app:      app,
		notifier: notifier,
		server:   api.New(api.Config{}, app.Service, app.Catalog, app.Renderer, nil, log),
		redis:    mr,
	}
}

func (e *env) request(t *testing.T, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *env) cli(t *testing.T, args ...string) string {
	t.Helper()
	color.NoColor = true
	root := cli.NewRootCommand(cli.Options{
		Catalog: e.app.Catalog,
		Load:    func(context.Context, cli.Settings) (*bootstrap.App, error) { return e.app, nil },
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

// Every surface runs the same engine and store: the workflow scores and submits, the
// reviewer decides over REST, the CLI reads the result back.
func TestLifecycle_AcrossSurfaces(t *testing.T) {
	e := newEnv(t)
	log := logger.NewTestLogger(t)

	// score-assessment worker
	scoreClient := camundatest.NewJobClient()
	scoreassessment.NewHandler(nil, e.app.Engine, e.app.Renderer, log).
		Handle(scoreClient, camundatest.NewJob(scoreassessment.TaskType, 1, 3, map[string]interface{}{
			"answers": scenarioC,
		}))
	scored, ok := scoreClient.CompletedVariables()
	require.True(t, ok)
	assert.Equal(t, "on_prem_cloud", scored["recommendation"])

	// submit-assessment worker
	submitClient := camundatest.NewJobClient()
	submitassessment.NewHandler(nil, e.app.Service, log).
		Handle(submitClient, camundatest.NewJob(submitassessment.TaskType, 2, 3, map[string]interface{}{
			"agencyInfo": map[string]string{
				"agencyName":   "Department of Corrections",
				"contactName":  "Riley Chen",
				"contactEmail": "riley@example.gov",
			},
			"answers": scenarioC,
		}))
	submitted, ok := submitClient.CompletedVariables()
	require.True(t, ok)
	id, _ := submitted["assessmentId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "on_prem_cloud", submitted["recommendation"])
	assert.Equal(t, "https://hosting.example.gov/review/"+id, submitted["reviewUrl"])
	assert.True(t, e.redis.Exists("assessment:"+id))

	// REST: dashboard and record
	status, data := e.request(t, http.MethodGet, "/api/v1/assessments/"+id, "")
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Contains(t, string(data), `"status":"pending"`)

	status, data = e.request(t, http.MethodGet, "/review/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "Department of Corrections")

	// REST: reviewer approves
	status, data = e.request(t, http.MethodPost, "/api/v1/assessments/"+id+"/review",
		`{"decision": "approved", "notes": "on-prem capacity confirmed"}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var reviewed assessment.ReviewOutcome
	require.NoError(t, json.Unmarshal(data, &reviewed))
	assert.Equal(t, "approved", string(reviewed.Assessment.Status))

	// review-assessment worker sees the terminal state
	reviewClient := camundatest.NewJobClient()
	reviewassessment.NewHandler(nil, e.app.Service, log).
		Handle(reviewClient, camundatest.NewJob(reviewassessment.TaskType, 3, 3, map[string]string{
			"assessmentId": id,
			"decision":     "rejected",
		}))
	thrown := reviewClient.Thrown()
	require.Len(t, thrown, 1)
	assert.Equal(t, "INVALID_TRANSITION", thrown[0].ErrorCode)

	// CLI reads through the cache and the sqlite store
	out := e.cli(t, "show", id)
	assert.Contains(t, out, "Status: approved")
	assert.Contains(t, out, "Notes: on-prem capacity confirmed")
	assert.Contains(t, out, "Final Recommendation: ON_PREM_CLOUD")

	e.redis.FlushAll()
	out = e.cli(t, "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Total: 1 (pending 0, approved 1, rejected 0)")

	// submission, confirmation and decision
	assert.Len(t, e.notifier.Sent(), 3)
}

func TestSubmitOverREST_RejectsBadPayloadWithoutWriting(t *testing.T) {
	e := newEnv(t)

	status, data := e.request(t, http.MethodPost, "/api/v1/assessments", `{"answers": {}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "VALIDATION_FAILED")

	dash, err := e.app.Service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dash.Total)
	assert.Empty(t, e.notifier.Sent())
}
