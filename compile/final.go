package compile

import (
	"context"

	"github.com/kbukum/flowkit/manifest"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/taskgraph"
	"github.com/kbukum/flowkit/validation"
)

// FinalRequest describes the delivery fragment that closes a run.
type FinalRequest struct {
	// Stages is the number of stages in the workflow document.
	Stages int
	// RunDir is the local run directory holding the result manifests.
	RunDir string
	// JobDir is the shared data directory on the execution target.
	JobDir string
	// OutputPath is where the fragment file is written.
	OutputPath string
}

// CompileFinal builds the fragment that delivers the last stage's
// products back to the submit host. Product names are only known once
// the last stage has run, so the fragment is compiled from its result
// manifest: a single move task copies the products out of the stage
// data directory and stages every listed name back.
func (s *Session) CompileFinal(ctx context.Context, req FinalRequest) (*Result, error) {
	v := validation.New()
	v.Min("stages", req.Stages, 1)
	v.Required("runDir", req.RunDir)
	v.Required("jobDir", req.JobDir)
	v.Required("outputPath", req.OutputPath)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanEmitGraph)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrStageNumber, req.Stages)

	products, err := manifest.Read(manifest.Path(req.RunDir, req.Stages))
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	fragment := taskgraph.New("final")
	move := fragment.NewJob(taskgraph.ExecMove, stageDataDir(req.JobDir, req.Stages))
	move.AddArgs(products...)
	for _, name := range products {
		move.AddOutput(name, true)
	}

	if err := fragment.Write(req.OutputPath); err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	s.log.WithContext(ctx).Info("final fragment compiled", map[string]interface{}{
		"products": len(products),
		"fragment": req.OutputPath,
	})
	return &Result{
		Fragment: fragment,
		Tasks:    1,
		Manifest: manifest.Name(req.Stages),
		Path:     req.OutputPath,
	}, nil
}
