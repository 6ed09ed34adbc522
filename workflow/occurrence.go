package workflow

import (
	"fmt"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Occurrence is one compiler invocation unit: the Input plugin of a
// connector stage, one filter variable of a connector stage, or the
// plugin of a processor stage. Output plugins are validated but have no
// build step, so they produce no occurrence.
type Occurrence struct {
	Stage    int
	Role     Role
	Variable string
	Plugin   *Plugin

	// VarDeps lists the %{var} dependencies of the plugin's binding
	// values, in first-appearance order.
	VarDeps []string
	// StageRefs lists the earlier stages referenced by binding values,
	// in first-appearance order.
	StageRefs []int
	// SingleValueRefs lists the referenced stages whose value list
	// contributes only its first value, because some binding value
	// wraps the reference in dir() modifiers.
	SingleValueRefs []int
	// SensitiveArgs lists argument names whose values are collected at
	// plan time and encrypted before emission, in argument order.
	SensitiveArgs []string
	// DependsOn lists the occurrence ids of the filters that must run
	// before this occurrence, in VarDeps order.
	DependsOn []string
}

// ID returns the occurrence identifier within its stage: Input,
// Filter:<variable>, or Processor.
func (o *Occurrence) ID() string {
	switch o.Role {
	case RoleInput:
		return "Input"
	case RoleFilter:
		return "Filter:" + o.Variable
	default:
		return "Processor"
	}
}

// StageName returns the unique occurrence name used for fragment files
// and subworkflow basenames.
func (o *Occurrence) StageName() string {
	switch o.Role {
	case RoleInput:
		return fmt.Sprintf("stage-%d-Input", o.Stage)
	case RoleFilter:
		return fmt.Sprintf("stage-%d-Filter-%s", o.Stage, o.Variable)
	default:
		return fmt.Sprintf("stage-%d-Processor", o.Stage)
	}
}

// ParseOccurrenceID splits an occurrence identifier into its role and,
// for filters, its variable.
func ParseOccurrenceID(id string) (Role, string, error) {
	switch {
	case id == "Input":
		return RoleInput, "", nil
	case id == "Processor":
		return RoleProcessor, "", nil
	case strings.HasPrefix(id, "Filter:"):
		variable := strings.TrimPrefix(id, "Filter:")
		if variable == "" {
			return 0, "", apperrors.Validation(fmt.Sprintf("occurrence id %q is missing its filter variable", id))
		}
		return RoleFilter, variable, nil
	default:
		return 0, "", apperrors.Validation(fmt.Sprintf("unknown occurrence id %q", id))
	}
}

// Occurrences derives the stage's compiler invocation units from its
// validated definition. For connector stages the Input occurrence comes
// first, followed by filter occurrences in document order; the Input
// occurrence depends on the filters binding its variables, and each
// filter depends on the filters binding its own variable dependencies.
func (s *Stage) Occurrences() []*Occurrence {
	if !s.Connector() {
		occ := &Occurrence{Stage: s.Number, Role: RoleProcessor, Plugin: s.Processor}
		occ.analyze()
		return []*Occurrence{occ}
	}

	occs := make([]*Occurrence, 0, len(s.Filters)+1)

	input := &Occurrence{Stage: s.Number, Role: RoleInput, Plugin: s.Input}
	input.analyze()
	occs = append(occs, input)

	for _, fb := range s.Filters {
		occ := &Occurrence{Stage: s.Number, Role: RoleFilter, Variable: fb.Variable, Plugin: fb.Plugin}
		occ.analyze()
		occs = append(occs, occ)
	}

	// Validation guarantees every variable is bound by exactly one
	// filter, so each dependency resolves to a filter occurrence of
	// this stage.
	for _, occ := range occs {
		for _, v := range occ.VarDeps {
			occ.DependsOn = append(occ.DependsOn, "Filter:"+v)
		}
	}
	return occs
}

// Occurrence returns the stage's occurrence with the given id, or nil.
func (s *Stage) Occurrence(id string) *Occurrence {
	for _, occ := range s.Occurrences() {
		if occ.ID() == id {
			return occ
		}
	}
	return nil
}

// Occurrences derives every stage's occurrences in stage order.
func (d *Document) Occurrences() []*Occurrence {
	var occs []*Occurrence
	for _, s := range d.Stages {
		occs = append(occs, s.Occurrences()...)
	}
	return occs
}

// analyze extracts the plugin's variable dependencies, stage
// references, single-value references, and sensitive arguments from its
// binding values.
func (o *Occurrence) analyze() {
	seenVar := make(map[string]bool)
	seenRef := make(map[int]bool)
	seenSingle := make(map[int]bool)

	for _, arg := range o.Plugin.Args {
		if arg.Sensitive() {
			o.SensitiveArgs = append(o.SensitiveArgs, arg.Name)
		}
		if arg.Null {
			continue
		}
		for _, v := range Variables(arg.Value) {
			if !seenVar[v] {
				seenVar[v] = true
				o.VarDeps = append(o.VarDeps, v)
			}
		}
		single := HasDirModifier(arg.Value)
		for _, ref := range StageRefs(arg.Value) {
			if !seenRef[ref] {
				seenRef[ref] = true
				o.StageRefs = append(o.StageRefs, ref)
			}
			if single && !seenSingle[ref] {
				seenSingle[ref] = true
				o.SingleValueRefs = append(o.SingleValueRefs, ref)
			}
		}
	}
}
