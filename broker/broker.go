package broker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/planner"
	"github.com/kbukum/flowkit/process"
	"github.com/kbukum/flowkit/resilience"
)

// Broker kinds selectable through configuration.
const (
	KindPegasus = "pegasus"
	KindPortal  = "portal"
)

// Run states reported by a status probe.
const (
	StateRunning  = "running"
	StateComplete = "complete"
)

// Default submission tooling. The pegasus broker plans and submits in one
// step; the portal broker queues a hosted planning tool instead.
const (
	DefaultPegasusBin = "pegasus-plan"
	DefaultSubmitBin  = "submit"
	DefaultSubmitTool = "pegasus-plan-flowkit"
)

// Status is the result of probing a run directory for backend progress
// markers.
type Status struct {
	// State is running or complete.
	State string
	// Detail names the marker the state was derived from.
	Detail string
}

// Broker hands a planned run directory to an execution backend and probes
// its progress. The run directory must already hold the generated graph
// and transformation catalog.
type Broker interface {
	// Name identifies the broker kind.
	Name() string
	// Submit hands the graph in runDir to the backend for execution.
	Submit(ctx context.Context, runDir string) error
	// Status probes runDir for backend progress markers.
	Status(ctx context.Context, runDir string) (*Status, error)
}

// Runner executes a submission command. Tests substitute a recording fake.
type Runner func(ctx context.Context, cmd process.Command) (*process.Result, error)

type options struct {
	log        *logger.Logger
	runner     Runner
	retry      resilience.RetryConfig
	pegasusBin string
	submitBin  string
	submitTool string
}

// Option adjusts broker construction.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(o *options) {
		if run != nil {
			o.runner = run
		}
	}
}

// WithRetry replaces the submission retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithPegasusBin overrides the pegasus planning binary.
func WithPegasusBin(bin string) Option {
	return func(o *options) {
		if bin != "" {
			o.pegasusBin = bin
		}
	}
}

// WithSubmitBin overrides the hosted submit binary.
func WithSubmitBin(bin string) Option {
	return func(o *options) {
		if bin != "" {
			o.submitBin = bin
		}
	}
}

// WithSubmitTool overrides the hosted planning tool name.
func WithSubmitTool(tool string) Option {
	return func(o *options) {
		if tool != "" {
			o.submitTool = tool
		}
	}
}

func defaultOptions() options {
	retry := resilience.DefaultRetryConfig()
	retry.RetryIf = func(err error) bool {
		return resilience.DefaultRetryIf(err) && apperrors.IsRetryable(err)
	}
	return options{
		log:        logger.NewDefault("flowkit"),
		runner:     process.Run,
		retry:      retry,
		pegasusBin: DefaultPegasusBin,
		submitBin:  DefaultSubmitBin,
		submitTool: DefaultSubmitTool,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.WithComponent("broker")
	return o
}

// New returns the broker for the given kind.
func New(kind string, opts ...Option) (Broker, error) {
	switch kind {
	case KindPegasus:
		return NewPegasus(opts...), nil
	case KindPortal:
		return NewPortal(opts...), nil
	default:
		return nil, apperrors.InvalidInput("broker", fmt.Sprintf("unknown kind %q", kind))
	}
}

// submitGraph runs the submission command with retry. The graph file must
// exist under runDir before anything is launched.
func submitGraph(ctx context.Context, kind string, o options, runDir string, cmd process.Command) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanSubmitRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrBrokerKind, kind)

	graphPath := filepath.Join(runDir, planner.GraphFile)
	if _, err := os.Stat(graphPath); err != nil {
		appErr := apperrors.LocalResource(graphPath, err)
		observability.SetSpanError(ctx, appErr)
		return appErr
	}

	retry := o.retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			o.log.Warn("Submission failed, retrying", map[string]interface{}{
				"broker":  kind,
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
		}
	}

	var last *process.Result
	err := resilience.RetryFunc(ctx, retry, func() error {
		res, runErr := o.runner(ctx, cmd)
		last = res
		return runErr
	})
	if err != nil {
		appErr := apperrors.BrokerError(kind, err)
		if tail := stderrTail(last); tail != "" {
			appErr = appErr.WithDetail("stderr", tail)
		}
		observability.SetSpanError(ctx, appErr)
		return appErr
	}

	o.log.Info("Run submitted", map[string]interface{}{
		"broker":  kind,
		"run_dir": runDir,
		"binary":  cmd.Binary,
	})
	return nil
}

// markerStatus reports complete when marker exists under runDir, running
// otherwise. A missing run directory is an error, not a state.
func markerStatus(runDir, marker, completeDetail string) (*Status, error) {
	if _, err := os.Stat(runDir); err != nil {
		return nil, apperrors.LocalResource(runDir, err)
	}
	if _, err := os.Stat(filepath.Join(runDir, marker)); err != nil {
		if os.IsNotExist(err) {
			return &Status{State: StateRunning, Detail: "workflow is still executing"}, nil
		}
		return nil, apperrors.LocalResource(filepath.Join(runDir, marker), err)
	}
	return &Status{State: StateComplete, Detail: completeDetail}, nil
}

// stderrTail returns the trailing portion of captured stderr for error
// details. Submission tools print the useful part last.
func stderrTail(res *process.Result) string {
	if res == nil {
		return ""
	}
	s := strings.TrimSpace(string(res.Stderr))
	const limit = 512
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
