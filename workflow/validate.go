package workflow

import (
	"fmt"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Validate applies the semantic rules of the document. Each variable
// must be introduced exactly once across a connector stage, bound by
// exactly one filter, and distinct from every bound argument name;
// binding values may reference at most one stage, bare or wrapped in
// dir() modifiers; Output plugins and processor arguments may not use
// variables.
func (d *Document) Validate() error {
	for _, stage := range d.Stages {
		if err := stage.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage) validate() error {
	if s.Connector() {
		return s.validateConnector()
	}
	return s.validateProcessor()
}

// connectorCheck accumulates variable and argument names while the
// stage's plugins are validated in document order.
type connectorCheck struct {
	stage       int
	vars        []string
	varSeen     map[string]bool
	argNames    map[string]bool
	filterBound map[string]bool
}

func (s *Stage) validateConnector() error {
	check := &connectorCheck{
		stage:       s.Number,
		varSeen:     make(map[string]bool),
		argNames:    make(map[string]bool),
		filterBound: make(map[string]bool),
	}

	if err := check.plugin(s.Input, sectionInput); err != nil {
		return err
	}

	for _, fb := range s.Filters {
		// The variable must already have appeared in an earlier
		// binding value; filters bind values, they do not introduce
		// new variables.
		if !check.varSeen[fb.Variable] {
			return apperrors.Validation(fmt.Sprintf("stage %d: only variables can be bound by a filter: %s", s.Number, fb.Variable))
		}
		if check.filterBound[fb.Variable] {
			return apperrors.Validation(fmt.Sprintf("stage %d: a variable can only be bound once by a filter: %s", s.Number, fb.Variable))
		}
		check.filterBound[fb.Variable] = true

		if err := check.plugin(fb.Plugin, sectionFilter); err != nil {
			return err
		}
	}

	if s.Output != nil {
		if err := check.plugin(s.Output, sectionOutput); err != nil {
			return err
		}
	}

	for _, v := range check.vars {
		if check.argNames[v] {
			return apperrors.Validation(fmt.Sprintf("stage %d: variable %s cannot also be a bound plugin argument", s.Number, v))
		}
		if !check.filterBound[v] {
			return apperrors.Validation(fmt.Sprintf("stage %d: variable %s is not bound by any filter", s.Number, v))
		}
	}
	return nil
}

func (c *connectorCheck) plugin(p *Plugin, section string) error {
	for _, arg := range p.Args {
		if arg.Null {
			if !nullAllowed(section, arg.Name) {
				return apperrors.Validation(fmt.Sprintf("stage %d: argument %s of plugin %s must have a binding if included", c.stage, arg.Name, p.Name))
			}
			c.argNames[arg.Name] = true
			continue
		}

		vars := Variables(arg.Value)
		if len(vars) > 0 && section == sectionOutput {
			return apperrors.Validation(fmt.Sprintf("stage %d: variables are not allowed in Output plugins", c.stage))
		}
		for _, v := range vars {
			if c.varSeen[v] {
				return apperrors.Validation(fmt.Sprintf("stage %d: variable %s cannot be reused", c.stage, v))
			}
			c.varSeen[v] = true
			c.vars = append(c.vars, v)
		}

		if err := ValidateStageRefs(arg.Value); err != nil {
			return err
		}
		c.argNames[arg.Name] = true
	}
	return nil
}

// nullAllowed reports whether an argument may appear without a value in
// the given section. Sensitive-suffixed arguments are prompted for at
// plan time anywhere except Output plugins; the legacy bare password
// prompt is restricted to Input plugins.
func nullAllowed(section, name string) bool {
	if strings.HasSuffix(name, sensitiveSuffix) {
		return section != sectionOutput
	}
	return section == sectionInput && name == "password"
}

func (s *Stage) validateProcessor() error {
	p := s.Processor
	for _, arg := range p.Args {
		if arg.Null {
			if !strings.HasSuffix(arg.Name, sensitiveSuffix) {
				return apperrors.Validation(fmt.Sprintf("stage %d: argument %s of plugin %s must have a binding if included", s.Number, arg.Name, p.Name))
			}
			continue
		}
		if len(Variables(arg.Value)) > 0 {
			return apperrors.Validation(fmt.Sprintf("stage %d: variables are not allowed in processor arguments", s.Number))
		}
		if err := ValidateStageRefs(arg.Value); err != nil {
			return err
		}
	}
	return nil
}
