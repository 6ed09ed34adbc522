package compile

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kbukum/flowkit/binding"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/localfile"
	"github.com/kbukum/flowkit/manifest"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/taskgraph"
	"github.com/kbukum/flowkit/util"
	"github.com/kbukum/flowkit/validation"
	"github.com/kbukum/flowkit/workflow"
)

// Request describes one plugin occurrence to compile into a fragment.
type Request struct {
	// Occurrence selects the plugin occurrence being compiled.
	Occurrence *workflow.Occurrence

	// RunDir is the local run directory holding the result manifests of
	// occurrences that already executed.
	RunDir string
	// JobDir is the shared data directory on the execution target.
	JobDir string
	// Target names the execution site tasks run on.
	Target string

	// SensitiveValues maps sensitive argument names to the plaintext
	// collected when the run was planned.
	SensitiveValues map[string]string
	// LocalFiles maps argument names to the local paths bound in the
	// workflow document.
	LocalFiles map[string]string

	// OutputPath is where the fragment file is written.
	OutputPath string
}

func (r Request) validate() error {
	v := validation.New()
	v.Custom(r.Occurrence != nil, "occurrence", "must be provided")
	v.Required("runDir", r.RunDir)
	v.Required("jobDir", r.JobDir)
	v.Required("target", r.Target)
	v.Required("outputPath", r.OutputPath)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Result reports what one compile produced.
type Result struct {
	// Fragment is the compiled task graph.
	Fragment *taskgraph.Workflow
	// Tasks is the number of per-binding task nodes.
	Tasks int
	// Manifest is the logical name of the result manifest the
	// aggregation job stages back to the run directory.
	Manifest string
	// Path is where the fragment file was written.
	Path string
}

// CompileStage compiles one plugin occurrence into a task-graph
// fragment: resolve the occurrence's value lists from result manifests,
// expand them into bindings, protect sensitive values and resolve local
// files once, emit one task node per binding, close the fragment with a
// single aggregation node, and write the graph to req.OutputPath. If
// any step fails no fragment file is produced.
func (s *Session) CompileStage(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	occ := req.Occurrence

	ctx, span := observability.StartSpan(ctx, observability.SpanCompileStage)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrStageNumber, occ.Stage)
	observability.SetSpanAttribute(ctx, observability.AttrPluginID, occ.ID())

	res, err := s.compile(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
		if s.metrics != nil {
			s.metrics.RecordError(ctx, string(apperrors.Wrap(err).Code), "compile")
		}
		return nil, err
	}

	observability.SetSpanAttribute(ctx, observability.AttrTaskCount, res.Tasks)
	if s.metrics != nil {
		s.metrics.RecordStageCompiled(ctx, occ.Role.String(), res.Tasks)
	}
	return res, nil
}

func (s *Session) compile(ctx context.Context, req Request) (*Result, error) {
	occ := req.Occurrence
	log := s.log.WithContext(ctx).WithStage(occ.Stage)

	vars, refs, err := resolveDependencies(occ, req.RunDir)
	if err != nil {
		return nil, err
	}

	bindings, err := binding.Expand(vars, refs, singleValueSet(occ))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordBindingsExpanded(ctx, len(bindings))
	}

	sensitivePayload, err := s.protect(ctx, occ, req.SensitiveValues)
	if err != nil {
		return nil, err
	}
	primaries, companions, err := localfile.Resolve(req.LocalFiles)
	if err != nil {
		return nil, err
	}
	localPayload, err := stagedNamePayload(req.LocalFiles)
	if err != nil {
		return nil, err
	}

	fragment := taskgraph.New(occ.StageName())
	tasks := make([]*taskgraph.Job, 0, len(bindings))
	for i, b := range bindings {
		task, err := taskNode(fragment, occ, req, i, b, localPayload, sensitivePayload)
		if err != nil {
			return nil, err
		}
		for _, ref := range primaries {
			task.AddInputPFN(ref.Name, "file://"+ref.Path)
		}
		for _, ref := range companions {
			task.AddInputPFN(ref.Name, "file://"+ref.Path)
		}
		tasks = append(tasks, task)
	}

	agg, manifestName := aggregationNode(fragment, occ, req, len(tasks))
	for _, task := range tasks {
		fragment.AddDependency(task, agg)
	}

	if err := fragment.Write(req.OutputPath); err != nil {
		return nil, err
	}

	log.Info("stage fragment compiled", map[string]interface{}{
		"occurrence": occ.ID(),
		"plugin":     occ.Plugin.Name,
		"tasks":      len(tasks),
		"fragment":   req.OutputPath,
	})
	return &Result{
		Fragment: fragment,
		Tasks:    len(tasks),
		Manifest: manifestName,
		Path:     req.OutputPath,
	}, nil
}

// resolveDependencies reads the result manifests this occurrence
// depends on. Variable manifests come from filters of the same stage,
// reference manifests from earlier stages. A missing or unreadable
// manifest is a dependency failure.
func resolveDependencies(occ *workflow.Occurrence, runDir string) (vars, refs *binding.Collection, err error) {
	if len(occ.VarDeps) > 0 {
		vars = binding.NewCollection()
		for _, v := range occ.VarDeps {
			values, err := manifest.Read(manifest.FilterPath(runDir, occ.Stage, v))
			if err != nil {
				return nil, nil, err
			}
			vars.Add(v, values)
		}
	}
	if len(occ.StageRefs) > 0 {
		refs = binding.NewCollection()
		for _, k := range occ.StageRefs {
			values, err := manifest.Read(manifest.Path(runDir, k))
			if err != nil {
				return nil, nil, err
			}
			refs.Add(strconv.Itoa(k), values)
		}
	}
	return vars, refs, nil
}

// singleValueSet names the reference axes truncated to their first
// value because some binding value wraps the reference in dir().
func singleValueSet(occ *workflow.Occurrence) map[string]bool {
	if len(occ.SingleValueRefs) == 0 {
		return nil
	}
	single := make(map[string]bool, len(occ.SingleValueRefs))
	for _, k := range occ.SingleValueRefs {
		single[strconv.Itoa(k)] = true
	}
	return single
}

// protect encrypts the collected sensitive values under the session
// key and encodes them as one payload argument. Occurrences with no
// sensitive arguments never touch key material.
func (s *Session) protect(ctx context.Context, occ *workflow.Occurrence, values map[string]string) (string, error) {
	if len(occ.SensitiveArgs) == 0 {
		return util.NoValue, nil
	}
	plain := make(map[string]string, len(occ.SensitiveArgs))
	for _, name := range occ.SensitiveArgs {
		value, ok := values[name]
		if !ok {
			return "", apperrors.Security(fmt.Sprintf("no value collected for sensitive argument %s", name), nil)
		}
		plain[name] = value
	}

	keyring, err := s.Keyring()
	if err != nil {
		return "", err
	}
	protected, err := keyring.Protect(plain)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordSecretsProtected(ctx, len(protected))
	}
	return binding.EncodePayload(protected)
}

// stagedNamePayload maps each local-file argument to the base name its
// file is staged under in the task working directory.
func stagedNamePayload(args map[string]string) (string, error) {
	if len(args) == 0 {
		return util.NoValue, nil
	}
	staged := make(map[string]string, len(args))
	for name, path := range args {
		staged[name] = filepath.Base(path)
	}
	return binding.EncodePayload(staged)
}

// bindingPayloads encodes one binding for transport. Connector tasks
// receive variable bindings and stage-reference bindings as separate
// payloads; processor tasks receive a single merged payload with the
// reference slot left empty.
func bindingPayloads(occ *workflow.Occurrence, b binding.Binding) (bindPayload, refPayload string, err error) {
	if occ.Role == workflow.RoleProcessor {
		merged, err := binding.EncodePayload(b.Merged())
		if err != nil {
			return "", "", err
		}
		return merged, util.NoValue, nil
	}
	bindPayload, err = binding.EncodePayload(b.Primary)
	if err != nil {
		return "", "", err
	}
	refPayload, err = binding.EncodePayload(b.Secondary)
	if err != nil {
		return "", "", err
	}
	return bindPayload, refPayload, nil
}

// taskNode emits the task for one binding. Every task carries the same
// seven-argument vector so the runtime wrapper never has to guess
// arity: stage, plugin, bindings, references, local files, sensitive
// values, output target.
func taskNode(fragment *taskgraph.Workflow, occ *workflow.Occurrence, req Request, index int, b binding.Binding, localPayload, sensitivePayload string) (*taskgraph.Job, error) {
	bindPayload, refPayload, err := bindingPayloads(occ, b)
	if err != nil {
		return nil, err
	}
	return fragment.NewJob(pluginExec(occ),
		strconv.Itoa(occ.Stage),
		occ.Plugin.Name,
		bindPayload,
		refPayload,
		localPayload,
		sensitivePayload,
		outputTarget(occ, req.JobDir, index),
	), nil
}

func pluginExec(occ *workflow.Occurrence) string {
	if occ.Role == workflow.RoleProcessor {
		return taskgraph.ProcessorPluginExec(occ.Plugin.Name)
	}
	return taskgraph.ConnectorPluginExec(occ.Plugin.Name)
}

// stageDataDir is the shared directory a stage's artifacts land in.
func stageDataDir(jobDir string, stage int) string {
	return fmt.Sprintf("%s/%d", jobDir, stage)
}

// filterDir holds per-binding filter artifacts. Keeping them out of the
// stage data directory stops the collector from reporting them as
// stage products.
func filterDir(jobDir string, stage int) string {
	return stageDataDir(jobDir, stage) + "/filters"
}

// filterArtifactPrefix names per-binding filter outputs; the task index
// is appended so concurrent tasks never collide and the merge step has
// a stable read order.
func filterArtifactPrefix(stage int, variable string) string {
	return fmt.Sprintf("filter-%d-%s", stage, variable)
}

func outputTarget(occ *workflow.Occurrence, jobDir string, index int) string {
	if occ.Role == workflow.RoleFilter {
		return fmt.Sprintf("%s/%s-%d.txt", filterDir(jobDir, occ.Stage), filterArtifactPrefix(occ.Stage, occ.Variable), index)
	}
	return stageDataDir(jobDir, occ.Stage)
}

// aggregationNode closes the fragment with its single collection step,
// depending on every task node. Filter artifacts merge in binding-index
// order into the per-variable manifest; Input and Processor products
// are collected from the stage data directory into the stage manifest.
// Either way the manifest is staged back to the run directory.
func aggregationNode(fragment *taskgraph.Workflow, occ *workflow.Occurrence, req Request, taskCount int) (*taskgraph.Job, string) {
	var job *taskgraph.Job
	var name string
	if occ.Role == workflow.RoleFilter {
		name = manifest.FilterName(occ.Stage, occ.Variable)
		job = fragment.NewJob(taskgraph.ExecMerge,
			filterDir(req.JobDir, occ.Stage),
			filterArtifactPrefix(occ.Stage, occ.Variable),
			strconv.Itoa(taskCount),
			name,
		)
	} else {
		name = manifest.Name(occ.Stage)
		job = fragment.NewJob(taskgraph.ExecCollect,
			stageDataDir(req.JobDir, occ.Stage),
			name,
		)
	}
	job.AddOutput(name, true)
	return job, name
}
