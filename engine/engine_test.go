package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/flowkit/binding"
	"github.com/kbukum/flowkit/broker"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/engine"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/planner"
	"github.com/kbukum/flowkit/store"
	"github.com/kbukum/flowkit/taskgraph"
)

const engineWorkflow = `
$1:
  Input:
    HTTPInput:
      url: http://host/a.dat
$2:
  OutputCollector:
    datafile: $1
`

const secretWorkflow = `
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
      token_sensitive: null
  Filter:
    date:
      DateTimeFilter:
        pattern: "%Y%m%d"
`

func writeDocument(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

type fakeBroker struct {
	name      string
	submitted []string
	submitErr error
	probe     *broker.Status
	probeErr  error
}

func (f *fakeBroker) Name() string {
	if f.name == "" {
		return broker.KindPegasus
	}
	return f.name
}

func (f *fakeBroker) Submit(_ context.Context, runDir string) error {
	f.submitted = append(f.submitted, runDir)
	return f.submitErr
}

func (f *fakeBroker) Status(context.Context, string) (*broker.Status, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.probe != nil {
		return f.probe, nil
	}
	return &broker.Status{State: broker.StateRunning, Detail: "workflow is still executing"}, nil
}

func testConfig(t *testing.T, dir, mode string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.General.Mode = mode
	cfg.General.WorkDir = filepath.Join(dir, "runs")
	cfg.Store.Path = filepath.Join(dir, "flowkit.db")
	cfg.Store.LogLevel = "silent"
	cfg.ApplyDefaults()
	return cfg
}

// newTestEngine pins the planner clock so run ids are deterministic.
func newTestEngine(t *testing.T, cfg *config.Config, seconds int64, opts ...engine.Option) *engine.Engine {
	t.Helper()
	p := planner.New(planner.Config{
		Target:  cfg.General.Target,
		DataDir: cfg.Registry.DataDir,
		ToolDir: cfg.Registry.ToolDir,
		Hub:     cfg.Registry.Hub,
		RunBase: cfg.General.WorkDir,
	}, planner.WithClock(func() time.Time { return time.Unix(seconds, 0) }))
	opts = append([]engine.Option{engine.WithPlanner(p)}, opts...)
	e, err := engine.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestPlanDevelopmentMode(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{}
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102, engine.WithBroker(fb))

	res, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, engineWorkflow)})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Submitted {
		t.Error("development mode submitted the run")
	}
	if len(fb.submitted) != 0 {
		t.Errorf("broker called %d times in development mode", len(fb.submitted))
	}
	if !strings.HasPrefix(res.Name, "run-") {
		t.Errorf("default name = %q, want run- prefix", res.Name)
	}
	if _, err := os.Stat(res.Plan.GraphPath); err != nil {
		t.Errorf("graph file missing: %v", err)
	}

	rs, err := e.Status(context.Background(), res.Name)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Run.Status != store.StatusPlanned {
		t.Errorf("status = %q, want planned", rs.Run.Status)
	}
	if rs.Run.RunID != "1723040102" {
		t.Errorf("run id = %q", rs.Run.RunID)
	}
	if rs.Backend != nil {
		t.Error("planned run was probed")
	}
}

func TestPlanProductionSubmits(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{}
	e := newTestEngine(t, testConfig(t, dir, config.ModeProduction), 1723040102, engine.WithBroker(fb))

	res, err := e.Plan(context.Background(), engine.PlanRequest{
		DocumentPath: writeDocument(t, engineWorkflow),
		Name:         "demo",
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !res.Submitted {
		t.Error("production mode did not submit")
	}
	if len(fb.submitted) != 1 || fb.submitted[0] != res.Plan.RunDir {
		t.Errorf("broker submitted %v, want [%s]", fb.submitted, res.Plan.RunDir)
	}

	rs, err := e.Status(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Run.Status != store.StatusSubmitted {
		t.Errorf("status = %q, want submitted", rs.Run.Status)
	}
	if rs.Backend == nil || rs.Backend.State != broker.StateRunning {
		t.Errorf("backend probe = %+v, want running", rs.Backend)
	}
}

func TestPlanNoSubmitOverride(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{}
	e := newTestEngine(t, testConfig(t, dir, config.ModeProduction), 1723040102, engine.WithBroker(fb))

	res, err := e.Plan(context.Background(), engine.PlanRequest{
		DocumentPath: writeDocument(t, engineWorkflow),
		NoSubmit:     true,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Submitted || len(fb.submitted) != 0 {
		t.Error("NoSubmit still handed the run to the broker")
	}
}

func TestPlanSubmitFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{submitErr: errors.New("queue unavailable")}
	e := newTestEngine(t, testConfig(t, dir, config.ModeProduction), 1723040102, engine.WithBroker(fb))

	_, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, engineWorkflow)})
	if err == nil {
		t.Fatal("Plan succeeded despite a failing broker")
	}

	rs, err := e.Status(context.Background(), "")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Run.Status != store.StatusFailed {
		t.Errorf("status = %q, want failed", rs.Run.Status)
	}
	if !strings.Contains(rs.Run.Detail, "queue unavailable") {
		t.Errorf("detail = %q, want broker error", rs.Run.Detail)
	}
}

func TestPlanCollectsSecretsFromSource(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102,
		engine.WithBroker(&fakeBroker{}),
		engine.WithSecretSource(engine.Chain{engine.StaticSource{
			"stage-1-Input": {"token_sensitive": "tok-9"},
		}}),
	)

	res, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, secretWorkflow)})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	values := buildJobSensitiveValues(t, res.Plan.Graph, "Input")
	if values["token_sensitive"] != "tok-9" {
		t.Errorf("sensitive payload = %v", values)
	}
}

func TestPlanPresetSecretsSkipSource(t *testing.T) {
	dir := t.TempDir()
	// An empty chain fails any collection attempt, so success proves
	// the preset values were used.
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102,
		engine.WithBroker(&fakeBroker{}),
		engine.WithSecretSource(engine.Chain{}),
	)

	res, err := e.Plan(context.Background(), engine.PlanRequest{
		DocumentPath: writeDocument(t, secretWorkflow),
		Secrets: planner.Secrets{
			"stage-1-Input": {"token_sensitive": "preset-tok"},
		},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	values := buildJobSensitiveValues(t, res.Plan.Graph, "Input")
	if values["token_sensitive"] != "preset-tok" {
		t.Errorf("sensitive payload = %v", values)
	}
}

func TestPlanEnvSecret(t *testing.T) {
	t.Setenv("FLOWKIT_SECRET_STAGE_1_INPUT_TOKEN_SENSITIVE", "env-tok")
	dir := t.TempDir()
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102,
		engine.WithBroker(&fakeBroker{}),
		engine.WithSecretSource(engine.EnvSource{}),
	)

	res, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, secretWorkflow)})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	values := buildJobSensitiveValues(t, res.Plan.Graph, "Input")
	if values["token_sensitive"] != "env-tok" {
		t.Errorf("sensitive payload = %v", values)
	}
}

func TestPlanMissingSecret(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102,
		engine.WithBroker(&fakeBroker{}),
		engine.WithSecretSource(engine.Chain{engine.StaticSource{}}),
	)

	_, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, secretWorkflow)})
	if err == nil {
		t.Fatal("Plan succeeded without a sensitive value")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeSecurity {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeSecurity)
	}
}

func TestStatusCompletesRun(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{}
	e := newTestEngine(t, testConfig(t, dir, config.ModeProduction), 1723040102, engine.WithBroker(fb))

	res, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, engineWorkflow)})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	fb.probe = &broker.Status{State: broker.StateComplete, Detail: "workflow database staged back to run directory"}
	rs, err := e.Status(context.Background(), res.Name)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Backend == nil || rs.Backend.State != broker.StateComplete {
		t.Fatalf("backend probe = %+v, want complete", rs.Backend)
	}
	if rs.Run.Status != store.StatusComplete {
		t.Errorf("status = %q, want complete", rs.Run.Status)
	}

	// The transition is persisted, so the next query needs no probe.
	rs, err = e.Status(context.Background(), res.Name)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Run.Status != store.StatusComplete {
		t.Errorf("persisted status = %q, want complete", rs.Run.Status)
	}
	if rs.Backend != nil {
		t.Error("completed run was probed again")
	}
}

func TestStatusProbeFailureKeepsRecord(t *testing.T) {
	dir := t.TempDir()
	fb := &fakeBroker{probeErr: errors.New("stat denied")}
	e := newTestEngine(t, testConfig(t, dir, config.ModeProduction), 1723040102, engine.WithBroker(fb))

	res, err := e.Plan(context.Background(), engine.PlanRequest{DocumentPath: writeDocument(t, engineWorkflow)})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	rs, err := e.Status(context.Background(), res.Name)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rs.Run.Status != store.StatusSubmitted {
		t.Errorf("status = %q, want submitted", rs.Run.Status)
	}
	if rs.Backend != nil {
		t.Error("failed probe still reported a backend state")
	}
}

func TestStatusUnknownRun(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102, engine.WithBroker(&fakeBroker{}))

	_, err := e.Status(context.Background(), "no-such-run")
	if err == nil {
		t.Fatal("Status succeeded for an unknown run")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeNotFound {
		t.Fatalf("error = %v, want %s", err, apperrors.ErrCodeNotFound)
	}
}

func TestListRunsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, config.ModeDevelopment)
	doc := writeDocument(t, engineWorkflow)

	e1 := newTestEngine(t, cfg, 100, engine.WithBroker(&fakeBroker{}))
	if _, err := e1.Plan(context.Background(), engine.PlanRequest{DocumentPath: doc, Name: "first"}); err != nil {
		t.Fatalf("Plan first: %v", err)
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2 := newTestEngine(t, cfg, 200, engine.WithBroker(&fakeBroker{}))
	if _, err := e2.Plan(context.Background(), engine.PlanRequest{DocumentPath: doc, Name: "second"}); err != nil {
		t.Fatalf("Plan second: %v", err)
	}

	runs, err := e2.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Name != "second" || runs[1].Name != "first" {
		t.Errorf("order = [%s %s], want newest first", runs[0].Name, runs[1].Name)
	}
}

func TestHealthReportsStore(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, testConfig(t, dir, config.ModeDevelopment), 1723040102, engine.WithBroker(&fakeBroker{}))

	sh := e.Health(context.Background())
	if sh.Status != observability.HealthStatusUp {
		t.Errorf("health = %q, want up", sh.Status)
	}
	if len(sh.Components) != 1 || sh.Components[0].Name != "store" {
		t.Errorf("components = %+v", sh.Components)
	}
}

// buildJobSensitiveValues decodes the sensitive payload slot of the
// named occurrence's build job.
func buildJobSensitiveValues(t *testing.T, g *taskgraph.Workflow, occurrenceID string) map[string]string {
	t.Helper()
	for _, job := range g.Jobs {
		if job.Name != taskgraph.ExecBuildStage || len(job.Arguments) < 11 {
			continue
		}
		if job.Arguments[2] != occurrenceID {
			continue
		}
		values, err := binding.DecodePayload(job.Arguments[10])
		if err != nil {
			t.Fatalf("decode sensitive payload: %v", err)
		}
		return values
	}
	t.Fatalf("no build job for occurrence %s", occurrenceID)
	return nil
}
