package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/flowkit/binding"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/localfile"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/secrets"
	"github.com/kbukum/flowkit/taskgraph"
	"github.com/kbukum/flowkit/util"
	"github.com/kbukum/flowkit/workflow"
)

// Config locates the pieces a planned run depends on.
type Config struct {
	// Target is the execution site jobs are scheduled on.
	Target string
	// DataDir is the remote base directory for per-run job directories.
	DataDir string
	// ToolDir is the flowkit installation root; its bin directory holds
	// the build and helper executables.
	ToolDir string
	// Hub is the container registry prefix plugin images are pulled
	// from.
	Hub string
	// RunBase is the local directory run directories are created under.
	// Empty means the current working directory.
	RunBase string
}

// ApplyDefaults fills unset fields with the standard deployment layout.
func (c *Config) ApplyDefaults() {
	if c.Target == "" {
		c.Target = "condorpool"
	}
	if c.DataDir == "" {
		c.DataDir = "/data"
	}
	if c.ToolDir == "" {
		c.ToolDir = "/apps/share64/flowkit"
	}
	if c.Hub == "" {
		c.Hub = "docker://flowkit"
	}
}

// Secrets carries plan-time sensitive values, keyed by occurrence stage
// name and then argument name.
type Secrets map[string]map[string]string

// Plan is a fully planned run: the outer graph and catalog on disk plus
// the layout the run executes in.
type Plan struct {
	RunID  string
	Name   string
	Target string

	// RunDir is the local run directory; DocumentPath, GraphPath, and
	// CatalogPath live inside it.
	RunDir       string
	DocumentPath string
	GraphPath    string
	CatalogPath  string

	// JobDir is the shared data directory on the execution target.
	JobDir string

	Stages  int
	Graph   *taskgraph.Workflow
	Catalog *taskgraph.Catalog
}

// Planner builds outer graphs from validated workflow documents.
type Planner struct {
	cfg Config
	log *logger.Logger
	now func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the planner logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Planner) {
		if log != nil {
			p.log = log
		}
	}
}

// WithClock overrides the time source run ids derive from.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Planner.
func New(cfg Config, opts ...Option) *Planner {
	cfg.ApplyDefaults()
	p := &Planner{
		cfg: cfg,
		log: logger.NewDefault("flowkit"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("planner")
	return p
}

// planEnv bundles the per-run values occurrence jobs are built from.
type planEnv struct {
	docPath string
	docLFN  string
	runDir  string
	jobDir  string
	target  string
	secrets Secrets
}

// Plan lays out a run directory for the document and builds the outer
// graph and transformation catalog into it. The document must already
// be validated; secretValues must hold a plaintext for every sensitive
// argument the document declares.
func (p *Planner) Plan(ctx context.Context, doc *workflow.Document, documentPath string, secretValues Secrets) (*Plan, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanPlanWorkflow)
	defer span.End()

	if doc == nil || doc.NumStages() == 0 {
		return nil, apperrors.Validation("workflow document has no stages")
	}

	id := NewRunID(p.now())
	base := p.cfg.RunBase
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, apperrors.LocalResource(".", err)
		}
		base = wd
	}
	runDir := RunDir(base, id)
	if err := EnsureRunDir(runDir); err != nil {
		return nil, err
	}
	docCopy, err := copyDocument(documentPath, runDir)
	if err != nil {
		return nil, err
	}

	env := planEnv{
		docPath: docCopy,
		docLFN:  filepath.Base(docCopy),
		runDir:  runDir,
		jobDir:  JobDir(p.cfg.DataDir, id),
		target:  p.cfg.Target,
		secrets: secretValues,
	}

	name := "flowkit-" + id
	graph, err := p.buildGraph(doc, env, name)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	catalog := p.BuildCatalog(doc)

	graphPath := filepath.Join(runDir, GraphFile)
	if err := graph.Write(graphPath); err != nil {
		return nil, err
	}
	catalogPath := filepath.Join(runDir, taskgraph.CatalogFile)
	if err := catalog.Write(catalogPath); err != nil {
		return nil, err
	}

	observability.SetSpanAttribute(ctx, observability.AttrRunID, id)
	p.log.WithContext(ctx).Info("workflow planned", map[string]interface{}{
		"run_id":  id,
		"stages":  doc.NumStages(),
		"jobs":    len(graph.Jobs),
		"run_dir": runDir,
		"target":  env.target,
	})

	return &Plan{
		RunID:        id,
		Name:         name,
		Target:       env.target,
		RunDir:       runDir,
		DocumentPath: docCopy,
		GraphPath:    graphPath,
		CatalogPath:  catalogPath,
		JobDir:       env.jobDir,
		Stages:       doc.NumStages(),
		Graph:        graph,
		Catalog:      catalog,
	}, nil
}

// buildGraph lays the run skeleton: create the job directory, generate
// the run key pair, then per stage a directory job followed by the
// stage's build and subworkflow jobs, and finally the delivery pair.
// Stages chain through their leaf subworkflows, so every stage starts
// only after the previous one delivered its result manifest.
func (p *Planner) buildGraph(doc *workflow.Document, env planEnv, name string) (*taskgraph.Workflow, error) {
	g := taskgraph.New(name)

	mkdirJob := g.NewJob(taskgraph.ExecMkdir, "-p", env.jobDir)
	keygen := g.NewJob(taskgraph.ExecKeygen, env.jobDir)
	keygen.AddOutput(secrets.PublicKeyFile, false)
	g.AddDependency(mkdirJob, keygen)

	leaf := keygen
	for n := 1; n <= doc.NumStages(); n++ {
		stage := doc.Stage(n)
		stageDir := g.NewJob(taskgraph.ExecMkdir, stageMkdirArgs(stage, env.jobDir)...)
		g.AddDependency(leaf, stageDir)

		stageLeaf, err := p.planStage(g, stage, stageDir, env)
		if err != nil {
			return nil, err
		}
		leaf = stageLeaf
	}

	final := g.NewJob(taskgraph.ExecBuildFinal,
		strconv.Itoa(doc.NumStages()),
		FinalFragment,
		env.jobDir,
		env.runDir,
		env.target,
	).RunLocal()
	final.AddOutput(FinalFragment, false)
	g.AddDependency(leaf, final)

	finalSub := g.NewSubworkflow(FinalFragment, plannerArgs(env.target, "final")...)
	g.AddDependency(final, finalSub)

	return g, nil
}

// planStage adds the build and subworkflow jobs of one stage. An
// occurrence is planned once the filters it depends on are planned, so
// chained filters order themselves; the Input or Processor subworkflow
// becomes the stage leaf everything downstream waits on.
func (p *Planner) planStage(g *taskgraph.Workflow, stage *workflow.Stage, stageDir *taskgraph.Job, env planEnv) (*taskgraph.Job, error) {
	planned := make(map[string]*taskgraph.Job)
	pending := stage.Occurrences()
	for len(pending) > 0 {
		progressed := false
		var remaining []*workflow.Occurrence
		for _, occ := range pending {
			if !ready(occ, planned) {
				remaining = append(remaining, occ)
				continue
			}
			sub, err := p.addOccurrence(g, occ, stageDir, planned, env)
			if err != nil {
				return nil, err
			}
			planned[occ.ID()] = sub
			progressed = true
		}
		if !progressed {
			return nil, apperrors.Graph(fmt.Sprintf("occurrences of stage %d cannot be ordered", stage.Number), nil)
		}
		pending = remaining
	}

	leafID := "Processor"
	if stage.Connector() {
		leafID = "Input"
	}
	leaf := planned[leafID]
	if leaf == nil {
		return nil, apperrors.Graph(fmt.Sprintf("stage %d has no leaf occurrence", stage.Number), nil)
	}
	return leaf, nil
}

func ready(occ *workflow.Occurrence, planned map[string]*taskgraph.Job) bool {
	for _, dep := range occ.DependsOn {
		if planned[dep] == nil {
			return false
		}
	}
	return true
}

// addOccurrence emits the local build job and the subworkflow job of
// one occurrence. The build job reads the document copy and the result
// manifests in the run directory and writes the fragment the
// subworkflow executes, so it must run after the subworkflows of every
// filter the occurrence depends on.
func (p *Planner) addOccurrence(g *taskgraph.Workflow, occ *workflow.Occurrence, stageDir *taskgraph.Job, planned map[string]*taskgraph.Job, env planEnv) (*taskgraph.Job, error) {
	fragment := occ.StageName() + ".yml"

	localArgs, err := localFileArgs(occ)
	if err != nil {
		return nil, err
	}
	localPayload, err := binding.EncodePayload(localArgs)
	if err != nil {
		return nil, err
	}
	sensitive, err := sensitivePayload(occ, env.secrets)
	if err != nil {
		return nil, err
	}

	build := g.NewJob(taskgraph.ExecBuildStage,
		env.docLFN,
		strconv.Itoa(occ.Stage),
		occ.ID(),
		occ.Plugin.Name,
		fragment,
		env.jobDir,
		env.runDir,
		util.JoinNames(occ.VarDeps),
		intsCSV(occ.StageRefs),
		localPayload,
		sensitive,
		intsCSV(occ.SingleValueRefs),
		env.target,
	).RunLocal()
	build.AddInputPFN(env.docLFN, "file://"+env.docPath)
	if len(occ.SensitiveArgs) > 0 {
		build.AddInput(secrets.PublicKeyFile)
	}
	build.AddOutput(fragment, false)

	g.AddDependency(stageDir, build)
	for _, dep := range occ.DependsOn {
		g.AddDependency(planned[dep], build)
	}

	sub := g.NewSubworkflow(fragment, plannerArgs(env.target, occ.StageName())...)
	g.AddDependency(build, sub)
	return sub, nil
}

// localFileArgs finds plugin arguments whose scalar values name files
// on the submit host. Detection happens at plan time so the recorded
// paths stay valid for the build job regardless of where the planner
// was invoked from.
func localFileArgs(occ *workflow.Occurrence) (map[string]string, error) {
	var local map[string]string
	for _, arg := range occ.Plugin.Args {
		if arg.Null {
			continue
		}
		if len(workflow.Variables(arg.Value)) > 0 || len(workflow.StageRefs(arg.Value)) > 0 {
			continue
		}
		if !localfile.IsLocalPath(arg.Value) {
			continue
		}
		abs, err := filepath.Abs(arg.Value)
		if err != nil {
			return nil, apperrors.LocalResource(arg.Value, err)
		}
		if local == nil {
			local = make(map[string]string)
		}
		local[arg.Name] = abs
	}
	return local, nil
}

// sensitivePayload encodes the plan-time values for the occurrence's
// sensitive arguments. Values collected for other occurrences are never
// included.
func sensitivePayload(occ *workflow.Occurrence, collected Secrets) (string, error) {
	if len(occ.SensitiveArgs) == 0 {
		return util.NoValue, nil
	}
	values := collected[occ.StageName()]
	plain := make(map[string]string, len(occ.SensitiveArgs))
	for _, name := range occ.SensitiveArgs {
		value, ok := values[name]
		if !ok {
			return "", apperrors.Security(fmt.Sprintf("no value collected for sensitive argument %s of %s", name, occ.StageName()), nil)
		}
		plain[name] = value
	}
	return binding.EncodePayload(plain)
}

// stageMkdirArgs creates the stage data directory, plus the filter
// scratch directory for connector stages that bind variables.
func stageMkdirArgs(stage *workflow.Stage, jobDir string) []string {
	args := []string{"-p", fmt.Sprintf("%s/%d", jobDir, stage.Number)}
	if stage.Connector() && len(stage.Filters) > 0 {
		args = append(args, fmt.Sprintf("%s/%d/filters", jobDir, stage.Number))
	}
	return args
}

// plannerArgs are the planning flags passed through to subworkflow
// invocations.
func plannerArgs(target, basename string) []string {
	return []string{"--sites", target, "--output-sites", "local", "--basename", basename}
}

func intsCSV(values []int) string {
	if len(values) == 0 {
		return util.NoValue
	}
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = strconv.Itoa(v)
	}
	return util.JoinNames(names)
}
