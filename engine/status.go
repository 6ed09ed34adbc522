package engine

import (
	"context"

	"github.com/kbukum/flowkit/broker"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/store"
	"github.com/kbukum/flowkit/version"
)

// RunStatus pairs a stored run record with a live backend probe.
type RunStatus struct {
	Run *store.WorkflowRun
	// Backend is nil when the run was never submitted or the probe
	// failed.
	Backend *broker.Status
}

// Status reports one run; an empty nameOrID selects the most recent.
// Submitted runs are probed through their recorded broker, and a run
// whose backend reports complete is transitioned in the store.
func (e *Engine) Status(ctx context.Context, nameOrID string) (*RunStatus, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanStoreQuery)
	defer span.End()

	if err := e.ensureStore(ctx); err != nil {
		return nil, err
	}

	var run *store.WorkflowRun
	var err error
	if nameOrID == "" {
		run, err = e.store.LatestRun(ctx)
	} else {
		run, err = e.store.FindRun(ctx, nameOrID)
	}
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrRunID, run.RunID)

	rs := &RunStatus{Run: run}
	if run.Status != store.StatusSubmitted {
		return rs, nil
	}

	b, err := e.runBroker(run.Broker)
	if err != nil {
		return nil, err
	}
	probe, err := b.Status(ctx, run.RunDir)
	if err != nil {
		// The record still answers the question; the probe is advisory.
		e.log.WithError(err).Warn("Backend probe failed", map[string]interface{}{
			"run_id": run.RunID,
		})
		return rs, nil
	}
	rs.Backend = probe

	if probe.State == broker.StateComplete {
		if err := e.store.UpdateStatus(ctx, run.RunID, store.StatusComplete, probe.Detail); err != nil {
			return nil, err
		}
		run.Status = store.StatusComplete
		run.Detail = probe.Detail
	}
	return rs, nil
}

// ListRuns returns the most recent runs, newest first.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]store.WorkflowRun, error) {
	if err := e.ensureStore(ctx); err != nil {
		return nil, err
	}
	return e.store.ListRuns(ctx, limit)
}

// runBroker resolves the broker a run was submitted through. The
// configured broker is reused when the kinds match, so injected brokers
// also serve status probes.
func (e *Engine) runBroker(kind string) (broker.Broker, error) {
	if e.broker != nil && (kind == "" || e.broker.Name() == kind) {
		return e.broker, nil
	}
	return broker.New(kind, broker.WithLogger(e.log))
}

// Health reports the controller's dependencies for the status command.
func (e *Engine) Health(ctx context.Context) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(config.ToolName, version.Version)
	if err := e.ensureStore(ctx); err != nil {
		sh.AddComponent(observability.Health{
			Name:    "store",
			Status:  observability.HealthStatusDown,
			Message: err.Error(),
		})
		return sh
	}
	sh.AddComponent(e.store.CheckHealth(ctx))
	return sh
}
