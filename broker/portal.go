package broker

import (
	"context"

	"github.com/kbukum/flowkit/planner"
	"github.com/kbukum/flowkit/process"
	"github.com/kbukum/flowkit/taskgraph"
)

// AnalysisFile is written to the run directory by the hosted backend when
// the run has finished.
const AnalysisFile = "pegasus.analysis"

// Portal submits runs through a hosted submit tool that queues the
// planning step on a community cluster head node. The catalog is shipped
// alongside the graph so the head node can resolve executables.
type Portal struct {
	opts options
}

// NewPortal returns a broker backed by the hosted submit tool.
func NewPortal(opts ...Option) *Portal {
	return &Portal{opts: buildOptions(opts)}
}

// Name implements Broker.
func (p *Portal) Name() string { return KindPortal }

// Submit queues the graph with the hosted planning tool and returns
// without waiting for execution.
func (p *Portal) Submit(ctx context.Context, runDir string) error {
	cmd := process.Command{
		Binary: p.opts.submitBin,
		Args:   []string{"--detach", "-i", taskgraph.CatalogFile, p.opts.submitTool, "--dax", planner.GraphFile},
		Dir:    runDir,
	}
	return submitGraph(ctx, KindPortal, p.opts, runDir, cmd)
}

// Status reports complete once the backend has written its analysis file
// into the run directory.
func (p *Portal) Status(_ context.Context, runDir string) (*Status, error) {
	return markerStatus(runDir, AnalysisFile, "analysis file present in run directory")
}
