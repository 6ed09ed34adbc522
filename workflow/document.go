package workflow

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Section names of a connector stage.
const (
	sectionInput  = "Input"
	sectionFilter = "Filter"
	sectionOutput = "Output"
)

// sensitiveSuffix marks an argument whose value must never travel in
// clear. Values for these arguments are collected at plan time and
// encrypted before they cross the compiler boundary.
const sensitiveSuffix = "_sensitive"

var stageKeyPattern = regexp.MustCompile(`^\$([0-9]+)$`)

// Arg is one named argument binding of a plugin instance. Null marks an
// argument listed without a value; validation restricts that to
// arguments whose values are prompted for at plan time.
type Arg struct {
	Name  string
	Value string
	Null  bool
}

// Sensitive reports whether the argument's value is collected at plan
// time and protected before emission. Both the _sensitive name suffix
// and the legacy bare password argument qualify.
func (a Arg) Sensitive() bool {
	return strings.HasSuffix(a.Name, sensitiveSuffix) || (a.Null && a.Name == "password")
}

// Plugin is one plugin instance: a plugin name and its ordered argument
// bindings.
type Plugin struct {
	Name string
	Args []Arg
}

// Arg returns the named argument binding, if present.
func (p *Plugin) Arg(name string) (Arg, bool) {
	for _, a := range p.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// FilterBinding binds one variable to the filter plugin that produces
// its values.
type FilterBinding struct {
	Variable string
	Plugin   *Plugin
}

// Stage is one workflow stage. A stage with an Input section is a
// connector stage carrying an Input plugin, filter bindings, and an
// optional Output plugin; any other stage is a processor stage with
// exactly one plugin.
type Stage struct {
	Number    int
	Input     *Plugin
	Filters   []FilterBinding
	Output    *Plugin
	Processor *Plugin
}

// Connector reports whether the stage is a connector stage.
func (s *Stage) Connector() bool {
	return s.Input != nil
}

// Filter returns the filter binding for a variable, if present.
func (s *Stage) Filter(variable string) (FilterBinding, bool) {
	for _, fb := range s.Filters {
		if fb.Variable == variable {
			return fb, true
		}
	}
	return FilterBinding{}, false
}

// Document is a parsed workflow: stages keyed $1..$n in the source,
// held in stage-number order.
type Document struct {
	Stages []*Stage
}

// NumStages returns the number of stages.
func (d *Document) NumStages() int {
	return len(d.Stages)
}

// Stage returns the stage with the given number, or nil.
func (d *Document) Stage(number int) *Stage {
	for _, s := range d.Stages {
		if s.Number == number {
			return s
		}
	}
	return nil
}

// ParseFile reads and parses a workflow document from a YAML file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NotFound("workflow document", path).WithCause(err)
	}
	return Parse(data)
}

// Parse parses a workflow document from YAML. Stage, filter, and
// argument order follow the source document; stages must be keyed
// $1..$n without gaps.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, apperrors.InvalidFormat("workflow document", "YAML mapping of stages").WithCause(err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, apperrors.Validation("workflow document is empty")
	}
	mapping := resolve(root.Content[0])
	if mapping.Kind != yaml.MappingNode {
		return nil, apperrors.Validation("workflow document must be a mapping of stages keyed $1..$n")
	}

	byNumber := make(map[int]*Stage)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := resolve(mapping.Content[i])
		m := stageKeyPattern.FindStringSubmatch(key.Value)
		if m == nil {
			return nil, apperrors.Validation(fmt.Sprintf("stage identifier %q must be of the form $<number>", key.Value))
		}
		number, err := strconv.Atoi(m[1])
		if err != nil || number < 1 {
			return nil, apperrors.Validation(fmt.Sprintf("stage identifier %q must use a positive stage number", key.Value))
		}
		if _, ok := byNumber[number]; ok {
			return nil, apperrors.Validation(fmt.Sprintf("stage $%d is defined more than once", number))
		}
		stage, err := parseStage(number, resolve(mapping.Content[i+1]))
		if err != nil {
			return nil, err
		}
		byNumber[number] = stage
	}
	if len(byNumber) == 0 {
		return nil, apperrors.Validation("workflow document does not define any stages")
	}
	for n := 1; n <= len(byNumber); n++ {
		if _, ok := byNumber[n]; !ok {
			return nil, apperrors.Validation(fmt.Sprintf("workflow stages must be numbered consecutively from $1; stage $%d is missing", n))
		}
	}

	doc := &Document{Stages: make([]*Stage, 0, len(byNumber))}
	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		doc.Stages = append(doc.Stages, byNumber[n])
	}
	return doc, nil
}

func parseStage(number int, node *yaml.Node) (*Stage, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return nil, apperrors.Validation(fmt.Sprintf("stage %d does not have any plugins", number))
	}

	connector := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		if resolve(node.Content[i]).Value == sectionInput {
			connector = true
			break
		}
	}
	if connector {
		return parseConnectorStage(number, node)
	}
	return parseProcessorStage(number, node)
}

func parseConnectorStage(number int, node *yaml.Node) (*Stage, error) {
	stage := &Stage{Number: number}
	for i := 0; i+1 < len(node.Content); i += 2 {
		section := resolve(node.Content[i]).Value
		value := resolve(node.Content[i+1])
		switch section {
		case sectionInput:
			if stage.Input != nil {
				return nil, apperrors.Validation(fmt.Sprintf("stage %d defines the Input section more than once", number))
			}
			plugin, err := parseSinglePlugin(value)
			if err != nil {
				return nil, apperrors.Validation(fmt.Sprintf("stage %d must have exactly one Input plugin", number)).WithCause(err)
			}
			stage.Input = plugin
		case sectionFilter:
			if value.Kind != yaml.MappingNode {
				return nil, apperrors.Validation(fmt.Sprintf("stage %d Filter section must map variables to filter plugins", number))
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				variable := resolve(value.Content[j]).Value
				plugin, err := parseSinglePlugin(resolve(value.Content[j+1]))
				if err != nil {
					return nil, apperrors.Validation(fmt.Sprintf("filter variable %s in stage %d must bind exactly one filter plugin", variable, number)).WithCause(err)
				}
				stage.Filters = append(stage.Filters, FilterBinding{Variable: variable, Plugin: plugin})
			}
		case sectionOutput:
			if stage.Output != nil {
				return nil, apperrors.Validation(fmt.Sprintf("stage %d defines the Output section more than once", number))
			}
			plugin, err := parseSinglePlugin(value)
			if err != nil {
				return nil, apperrors.Validation(fmt.Sprintf("stage %d must have exactly one Output plugin", number)).WithCause(err)
			}
			stage.Output = plugin
		default:
			return nil, apperrors.Validation(fmt.Sprintf("stage %d has an unknown section %q; connector stages allow Input, Filter, and Output", number, section))
		}
	}
	return stage, nil
}

func parseProcessorStage(number int, node *yaml.Node) (*Stage, error) {
	plugin, err := parseSinglePlugin(node)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("stage %d must bind exactly one processor plugin", number)).WithCause(err)
	}
	return &Stage{Number: number, Processor: plugin}, nil
}

// parseSinglePlugin parses a {PluginName: {args...}} mapping holding
// exactly one plugin.
func parseSinglePlugin(node *yaml.Node) (*Plugin, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, fmt.Errorf("expected a mapping with exactly one plugin")
	}
	name := resolve(node.Content[0]).Value
	return parsePlugin(name, resolve(node.Content[1]))
}

func parsePlugin(name string, argsNode *yaml.Node) (*Plugin, error) {
	plugin := &Plugin{Name: name}
	if isNull(argsNode) {
		return plugin, nil
	}
	if argsNode.Kind != yaml.MappingNode {
		return nil, apperrors.Validation(fmt.Sprintf("plugin %s must bind its arguments as a mapping", name))
	}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(argsNode.Content); i += 2 {
		argName := resolve(argsNode.Content[i]).Value
		if seen[argName] {
			return nil, apperrors.Validation(fmt.Sprintf("argument %s is bound more than once in plugin %s", argName, name))
		}
		seen[argName] = true

		value := resolve(argsNode.Content[i+1])
		switch {
		case isNull(value):
			plugin.Args = append(plugin.Args, Arg{Name: argName, Null: true})
		case value.Kind == yaml.ScalarNode:
			plugin.Args = append(plugin.Args, Arg{Name: argName, Value: value.Value})
		default:
			return nil, apperrors.Validation(fmt.Sprintf("argument %s of plugin %s must be a scalar value", argName, name))
		}
	}
	return plugin, nil
}

// resolve follows alias nodes to their anchor target.
func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") || node.Kind == 0
}
