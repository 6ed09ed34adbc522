package broker

import (
	"context"
	"path/filepath"

	"github.com/kbukum/flowkit/planner"
	"github.com/kbukum/flowkit/process"
)

// OutputDir is the folder inside a run directory where the backend stages
// final outputs.
const OutputDir = "output"

// TrackingDBFile is the workflow tracking database the backend moves to
// the top of the run directory once the run finishes.
const TrackingDBFile = "workflow.db"

// Pegasus plans and submits runs directly with the pegasus-plan command
// line tool on the local machine.
type Pegasus struct {
	opts options
}

// NewPegasus returns a broker backed by a local pegasus-plan install.
func NewPegasus(opts ...Option) *Pegasus {
	return &Pegasus{opts: buildOptions(opts)}
}

// Name implements Broker.
func (p *Pegasus) Name() string { return KindPegasus }

// Submit plans the graph and submits it in one call. Outputs are staged
// into the run directory's output folder.
func (p *Pegasus) Submit(ctx context.Context, runDir string) error {
	cmd := process.Command{
		Binary: p.opts.pegasusBin,
		Args:   []string{"--output-dir", filepath.Join(runDir, OutputDir), "--submit", planner.GraphFile},
		Dir:    runDir,
	}
	return submitGraph(ctx, KindPegasus, p.opts, runDir, cmd)
}

// Status reports complete once the workflow tracking database has been
// staged back to the top of the run directory.
func (p *Pegasus) Status(_ context.Context, runDir string) (*Status, error) {
	return markerStatus(runDir, TrackingDBFile, "workflow database staged back to run directory")
}
