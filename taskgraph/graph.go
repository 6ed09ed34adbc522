package taskgraph

import (
	"fmt"
)

// Job types in the backend graph description.
const (
	// JobTypeJob is a plain executable invocation.
	JobTypeJob = "job"
	// JobTypeSubworkflow is a nested workflow planned and executed by
	// the backend from a graph file produced at run time.
	JobTypeSubworkflow = "pegasusWorkflow"
)

// File use link types.
const (
	UseInput  = "input"
	UseOutput = "output"
)

// formatVersion is the backend graph description version emitted and
// accepted by this package.
const formatVersion = "5.0"

// FileUse declares one logical file consumed or produced by a job. A
// PFN pins the logical name to a physical location; subworkflow graph
// files must stay logical so the producing build job cannot be bypassed.
type FileUse struct {
	LFN             string `yaml:"lfn"`
	Type            string `yaml:"type"`
	StageOut        bool   `yaml:"stageOut,omitempty"`
	RegisterReplica bool   `yaml:"registerReplica,omitempty"`
	PFN             string `yaml:"pfn,omitempty"`
}

// Job is one node of the graph: a plain executable invocation or a
// subworkflow execution.
type Job struct {
	Type      string                       `yaml:"type"`
	Name      string                       `yaml:"name,omitempty"`
	File      string                       `yaml:"file,omitempty"`
	ID        string                       `yaml:"id"`
	Arguments []string                     `yaml:"arguments,omitempty"`
	Uses      []FileUse                    `yaml:"uses,omitempty"`
	Profiles  map[string]map[string]string `yaml:"profiles,omitempty"`
}

// AddArgs appends arguments to the job's argument vector.
func (j *Job) AddArgs(args ...string) *Job {
	j.Arguments = append(j.Arguments, args...)
	return j
}

// AddInput declares a logical input file.
func (j *Job) AddInput(lfn string) *Job {
	j.Uses = append(j.Uses, FileUse{LFN: lfn, Type: UseInput})
	return j
}

// AddInputPFN declares an input file pinned to a physical location.
func (j *Job) AddInputPFN(lfn, pfn string) *Job {
	j.Uses = append(j.Uses, FileUse{LFN: lfn, Type: UseInput, PFN: pfn})
	return j
}

// AddOutput declares a logical output file. Staged-out outputs are
// returned to the submit host when the job completes.
func (j *Job) AddOutput(lfn string, stageOut bool) *Job {
	j.Uses = append(j.Uses, FileUse{LFN: lfn, Type: UseOutput, StageOut: stageOut})
	return j
}

// SetProfile sets a profile entry under a namespace, such as
// hints/execution.site.
func (j *Job) SetProfile(namespace, key, value string) *Job {
	if j.Profiles == nil {
		j.Profiles = make(map[string]map[string]string)
	}
	if j.Profiles[namespace] == nil {
		j.Profiles[namespace] = make(map[string]string)
	}
	j.Profiles[namespace][key] = value
	return j
}

// RunLocal hints the backend to run the job on the submit host.
func (j *Job) RunLocal() *Job {
	return j.SetProfile("hints", "execution.site", "local")
}

// Dependency lists the jobs that must wait for a parent job.
type Dependency struct {
	ID       string   `yaml:"id"`
	Children []string `yaml:"children"`
}

// Workflow is a backend graph: jobs in construction order plus their
// dependency edges. Job ids are assigned sequentially so two builds of
// the same input produce identical graphs.
type Workflow struct {
	Pegasus      string       `yaml:"pegasus"`
	Name         string       `yaml:"name"`
	Jobs         []*Job       `yaml:"jobs"`
	Dependencies []Dependency `yaml:"jobDependencies,omitempty"`

	seq      int
	depIndex map[string]int
}

// New creates an empty workflow graph.
func New(name string) *Workflow {
	return &Workflow{Pegasus: formatVersion, Name: name}
}

// AddJob appends a job, assigning the next sequential id when the job
// does not carry one.
func (w *Workflow) AddJob(job *Job) *Job {
	if job.ID == "" {
		w.seq++
		job.ID = fmt.Sprintf("ID%07d", w.seq)
	}
	w.Jobs = append(w.Jobs, job)
	return job
}

// NewJob appends a plain job invoking the named transformation.
func (w *Workflow) NewJob(transformation string, args ...string) *Job {
	return w.AddJob(&Job{Type: JobTypeJob, Name: transformation, Arguments: args})
}

// NewSubworkflow appends a subworkflow job executing the given graph
// file. The file is declared as a logical input so the backend stages
// it from the job that builds it.
func (w *Workflow) NewSubworkflow(file string, args ...string) *Job {
	job := &Job{Type: JobTypeSubworkflow, File: file, Arguments: args}
	job.AddInput(file)
	return w.AddJob(job)
}

// Job returns the job with the given id, or nil.
func (w *Workflow) Job(id string) *Job {
	for _, j := range w.Jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// AddDependency records that the children run after the parent.
func (w *Workflow) AddDependency(parent *Job, children ...*Job) {
	if len(children) == 0 {
		return
	}
	if w.depIndex == nil {
		w.depIndex = make(map[string]int)
	}
	idx, ok := w.depIndex[parent.ID]
	if !ok {
		w.Dependencies = append(w.Dependencies, Dependency{ID: parent.ID})
		idx = len(w.Dependencies) - 1
		w.depIndex[parent.ID] = idx
	}
	for _, child := range children {
		w.Dependencies[idx].Children = append(w.Dependencies[idx].Children, child.ID)
	}
}
