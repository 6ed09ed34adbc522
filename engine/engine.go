package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kbukum/flowkit/broker"
	"github.com/kbukum/flowkit/compile"
	"github.com/kbukum/flowkit/config"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/planner"
	"github.com/kbukum/flowkit/secrets"
	"github.com/kbukum/flowkit/store"
	"github.com/kbukum/flowkit/validation"
	"github.com/kbukum/flowkit/workflow"
)

// Engine is the execution controller: it plans workflow documents into
// run directories, records runs, hands them to the configured broker,
// and bridges the build commands the outer graph invokes back to the
// stage compiler.
type Engine struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *observability.Metrics

	planner   *planner.Planner
	broker    broker.Broker
	store     *store.Store
	ownStore  bool
	secretSrc SecretSource
	session   *compile.Session
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics attaches run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStore injects an opened run store. The caller keeps ownership and
// closes it.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
			e.ownStore = false
		}
	}
}

// WithBroker replaces the broker selected through configuration.
func WithBroker(b broker.Broker) Option {
	return func(e *Engine) {
		if b != nil {
			e.broker = b
		}
	}
}

// WithSecretSource replaces the source sensitive values are collected
// from at plan time.
func WithSecretSource(src SecretSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.secretSrc = src
		}
	}
}

// WithPlanner replaces the planner built from configuration.
func WithPlanner(p *planner.Planner) Option {
	return func(e *Engine) {
		if p != nil {
			e.planner = p
		}
	}
}

// New creates an Engine from the loaded configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, apperrors.Validation("engine requires a configuration")
	}
	e := &Engine{
		cfg: cfg,
		log: logger.NewDefault(config.ToolName),
		secretSrc: Chain{
			EnvSource{},
			&PromptSource{In: os.Stdin, Out: os.Stderr},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("engine")

	if e.planner == nil {
		e.planner = planner.New(planner.Config{
			Target:  cfg.General.Target,
			DataDir: cfg.Registry.DataDir,
			ToolDir: cfg.Registry.ToolDir,
			Hub:     cfg.Registry.Hub,
			RunBase: cfg.General.WorkDir,
		}, planner.WithLogger(e.log))
	}
	if e.broker == nil {
		b, err := broker.New(cfg.General.Broker, broker.WithLogger(e.log))
		if err != nil {
			return nil, err
		}
		e.broker = b
	}
	return e, nil
}

// Close releases resources the engine opened itself.
func (e *Engine) Close() error {
	if e.store != nil && e.ownStore {
		return e.store.Close()
	}
	return nil
}

// PlanRequest describes one plan invocation.
type PlanRequest struct {
	// DocumentPath is the workflow document to plan.
	DocumentPath string
	// Name overrides the generated run name.
	Name string
	// Secrets carries pre-collected sensitive values keyed by
	// occurrence stage name; anything missing is collected through the
	// engine's secret source.
	Secrets planner.Secrets
	// NoSubmit plans only, regardless of the configured mode.
	NoSubmit bool
}

// PlanResult reports a planned run.
type PlanResult struct {
	Plan *planner.Plan
	// Name is the run name recorded in the store.
	Name string
	// Submitted reports whether the run was handed to the broker.
	Submitted bool
}

// Plan validates the document, collects sensitive values, lays out the
// run directory with the outer graph and catalog, records the run, and
// in production mode hands it to the broker. A failed submission is
// recorded before the error is returned; the planned run directory is
// kept either way.
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if err := validation.New().Required("document", req.DocumentPath).Validate(); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = "run-" + uuid.NewString()
	}

	oc := observability.NewOperationContext(config.ToolName, "plan", "", name, e.metrics)
	ctx, span := oc.StartSpanForOperation(ctx, "operation.plan")
	status := "ok"
	var opErr error
	defer func() { oc.EndOperation(ctx, span, status, opErr) }()

	fail := func(err error) (*PlanResult, error) {
		status = "error"
		opErr = err
		return nil, err
	}

	doc, err := workflow.ParseFile(req.DocumentPath)
	if err != nil {
		return fail(err)
	}
	if err := doc.Validate(); err != nil {
		return fail(err)
	}

	secretValues, err := e.collectSecrets(ctx, doc, req.Secrets)
	if err != nil {
		return fail(err)
	}

	plan, err := e.planner.Plan(ctx, doc, req.DocumentPath, secretValues)
	if err != nil {
		return fail(err)
	}

	if err := e.ensureStore(ctx); err != nil {
		return fail(err)
	}
	record := &store.WorkflowRun{
		RunID:    plan.RunID,
		Name:     name,
		Document: req.DocumentPath,
		Stages:   plan.Stages,
		Target:   plan.Target,
		Broker:   e.broker.Name(),
		Status:   store.StatusPlanned,
		RunDir:   plan.RunDir,
		JobDir:   plan.JobDir,
	}
	if err := e.store.CreateRun(ctx, record); err != nil {
		return fail(err)
	}

	result := &PlanResult{Plan: plan, Name: name}
	if req.NoSubmit || e.cfg.General.Mode != config.ModeProduction {
		e.log.Info("Run planned without submission", map[string]interface{}{
			"run_id": plan.RunID,
			"name":   name,
			"mode":   e.cfg.General.Mode,
		})
		return result, nil
	}

	if err := e.broker.Submit(ctx, plan.RunDir); err != nil {
		if upErr := e.store.UpdateStatus(ctx, plan.RunID, store.StatusFailed, err.Error()); upErr != nil {
			e.log.WithError(upErr).Error("Recording failed submission")
		}
		if e.metrics != nil {
			e.metrics.RecordSubmit(ctx, e.broker.Name(), "error")
		}
		if appErr, ok := apperrors.AsAppError(err); ok {
			return fail(appErr.WithDetail("run_id", plan.RunID))
		}
		return fail(err)
	}
	if err := e.store.UpdateStatus(ctx, plan.RunID, store.StatusSubmitted, ""); err != nil {
		return fail(err)
	}
	if e.metrics != nil {
		e.metrics.RecordSubmit(ctx, e.broker.Name(), "ok")
	}
	result.Submitted = true

	e.log.Info("Run planned and submitted", map[string]interface{}{
		"run_id": plan.RunID,
		"name":   name,
		"broker": e.broker.Name(),
	})
	return result, nil
}

// collectSecrets gathers a plaintext for every sensitive argument the
// document declares, preferring pre-collected values over the source.
func (e *Engine) collectSecrets(ctx context.Context, doc *workflow.Document, preset planner.Secrets) (planner.Secrets, error) {
	collected := planner.Secrets{}
	for _, occ := range doc.Occurrences() {
		if len(occ.SensitiveArgs) == 0 {
			continue
		}
		values := make(map[string]string, len(occ.SensitiveArgs))
		for _, arg := range occ.SensitiveArgs {
			if v, ok := preset[occ.StageName()][arg]; ok {
				values[arg] = v
				continue
			}
			if e.secretSrc == nil {
				return nil, apperrors.Security(fmt.Sprintf("no source for sensitive argument %s of %s", arg, occ.StageName()), nil)
			}
			v, err := e.secretSrc.Collect(ctx, occ.StageName(), arg)
			if err != nil {
				return nil, err
			}
			values[arg] = v
		}
		collected[occ.StageName()] = values
	}
	return collected, nil
}

// ensureStore opens the run store on first use.
func (e *Engine) ensureStore(ctx context.Context) error {
	if e.store != nil {
		return nil
	}
	s, err := store.Open(ctx, e.cfg.Store, e.log)
	if err != nil {
		return err
	}
	e.store = s
	e.ownStore = true
	return nil
}

// compiler returns the shared compile session. Build jobs run with the
// staged public key in their working directory.
func (e *Engine) compiler() *compile.Session {
	if e.session == nil {
		e.session = compile.NewSession(secrets.PublicKeyFile,
			compile.WithLogger(e.log),
			compile.WithMetrics(e.metrics),
		)
	}
	return e.session
}
