package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kbukum/flowkit/binding"
	"github.com/kbukum/flowkit/compile"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/workflow"
)

// Build command arities. The planner emits these argument vectors on
// the build jobs of the outer graph.
const (
	StageArgCount = 13
	FinalArgCount = 5
)

// StageArgs is the decoded build-stage argument vector:
//
//	document stage occurrence plugin fragment jobDir runDir
//	varDeps stageRefs localFiles sensitiveValues singleValueRefs target
//
// The CSV dependency slots document the occurrence's inputs in the
// graph; they are re-derived from the document here, so only the
// payload slots are decoded.
type StageArgs struct {
	DocumentPath    string
	Stage           int
	OccurrenceID    string
	Plugin          string
	FragmentPath    string
	JobDir          string
	RunDir          string
	LocalFiles      map[string]string
	SensitiveValues map[string]string
	Target          string
}

// ParseStageArgs decodes the positional vector of a build-stage job.
func ParseStageArgs(args []string) (*StageArgs, error) {
	if len(args) != StageArgCount {
		return nil, apperrors.InvalidInput("args", fmt.Sprintf("build-stage takes %d arguments, got %d", StageArgCount, len(args)))
	}
	stage, err := strconv.Atoi(args[1])
	if err != nil || stage < 1 {
		return nil, apperrors.InvalidFormat("stage", "positive integer")
	}
	if _, _, err := workflow.ParseOccurrenceID(args[2]); err != nil {
		return nil, err
	}
	local, err := binding.DecodePayload(args[9])
	if err != nil {
		return nil, err
	}
	sensitive, err := binding.DecodePayload(args[10])
	if err != nil {
		return nil, err
	}
	return &StageArgs{
		DocumentPath:    args[0],
		Stage:           stage,
		OccurrenceID:    args[2],
		Plugin:          args[3],
		FragmentPath:    args[4],
		JobDir:          args[5],
		RunDir:          args[6],
		LocalFiles:      local,
		SensitiveValues: sensitive,
		Target:          args[12],
	}, nil
}

// BuildStage compiles one occurrence fragment from the positional
// vector its build job was planned with. The occurrence is looked up in
// the staged document copy, so the fragment always reflects the
// document the run was planned from.
func (e *Engine) BuildStage(ctx context.Context, args []string) (*compile.Result, error) {
	sa, err := ParseStageArgs(args)
	if err != nil {
		return nil, err
	}

	doc, err := workflow.ParseFile(sa.DocumentPath)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	stage := doc.Stage(sa.Stage)
	if stage == nil {
		return nil, apperrors.Validation(fmt.Sprintf("document has no stage %d", sa.Stage))
	}
	occ := stage.Occurrence(sa.OccurrenceID)
	if occ == nil {
		return nil, apperrors.Validation(fmt.Sprintf("stage %d has no occurrence %s", sa.Stage, sa.OccurrenceID))
	}
	if occ.Plugin.Name != sa.Plugin {
		return nil, apperrors.Validation(fmt.Sprintf("occurrence %s binds plugin %s, not %s", sa.OccurrenceID, occ.Plugin.Name, sa.Plugin))
	}

	return e.compiler().CompileStage(ctx, compile.Request{
		Occurrence:      occ,
		RunDir:          sa.RunDir,
		JobDir:          sa.JobDir,
		Target:          sa.Target,
		SensitiveValues: sa.SensitiveValues,
		LocalFiles:      sa.LocalFiles,
		OutputPath:      sa.FragmentPath,
	})
}

// FinalArgs is the decoded build-final argument vector:
//
//	stages fragment jobDir runDir target
type FinalArgs struct {
	Stages       int
	FragmentPath string
	JobDir       string
	RunDir       string
	Target       string
}

// ParseFinalArgs decodes the positional vector of the build-final job.
func ParseFinalArgs(args []string) (*FinalArgs, error) {
	if len(args) != FinalArgCount {
		return nil, apperrors.InvalidInput("args", fmt.Sprintf("build-final takes %d arguments, got %d", FinalArgCount, len(args)))
	}
	stages, err := strconv.Atoi(args[0])
	if err != nil || stages < 1 {
		return nil, apperrors.InvalidFormat("stages", "positive integer")
	}
	return &FinalArgs{
		Stages:       stages,
		FragmentPath: args[1],
		JobDir:       args[2],
		RunDir:       args[3],
		Target:       args[4],
	}, nil
}

// BuildFinal compiles the delivery fragment that returns the last
// stage's products to the submit host.
func (e *Engine) BuildFinal(ctx context.Context, args []string) (*compile.Result, error) {
	fa, err := ParseFinalArgs(args)
	if err != nil {
		return nil, err
	}
	return e.compiler().CompileFinal(ctx, compile.FinalRequest{
		Stages:     fa.Stages,
		RunDir:     fa.RunDir,
		JobDir:     fa.JobDir,
		OutputPath: fa.FragmentPath,
	})
}
