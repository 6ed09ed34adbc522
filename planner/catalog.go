package planner

import (
	"fmt"
	"strings"

	"github.com/kbukum/flowkit/taskgraph"
	"github.com/kbukum/flowkit/workflow"
)

// Task wrapper paths inside plugin containers.
const (
	connectorWrapper = "/usr/local/bin/run-connector-plugin"
	processorWrapper = "/usr/local/bin/run-processor-plugin"
)

// BuildCatalog registers every executable the run's graphs invoke: the
// build tools on the submit host, the shared helpers on the target, and
// one containerized transformation per distinct plugin. Plugin images
// are pulled from the configured hub under the lowercased plugin name.
func (p *Planner) BuildCatalog(doc *workflow.Document) *taskgraph.Catalog {
	cat := taskgraph.NewCatalog()
	binDir := p.cfg.ToolDir + "/bin"

	cat.Add(taskgraph.Transformation{
		Name: taskgraph.ExecMkdir,
		Sites: []taskgraph.TransformationSite{
			{Name: p.cfg.Target, PFN: "/bin/mkdir", Type: "installed"},
		},
	})
	cat.Add(taskgraph.Transformation{
		Name: taskgraph.ExecKeygen,
		Sites: []taskgraph.TransformationSite{
			{Name: p.cfg.Target, PFN: binDir + "/" + taskgraph.ExecKeygen, Type: "installed"},
		},
	})
	for _, name := range []string{taskgraph.ExecBuildStage, taskgraph.ExecBuildFinal} {
		cat.Add(taskgraph.Transformation{
			Name: name,
			Sites: []taskgraph.TransformationSite{
				{Name: "local", PFN: binDir + "/" + name, Type: "installed"},
			},
		})
	}
	for _, name := range []string{taskgraph.ExecMerge, taskgraph.ExecCollect, taskgraph.ExecMove} {
		cat.Add(taskgraph.Transformation{
			Name: name,
			Sites: []taskgraph.TransformationSite{
				{Name: p.cfg.Target, PFN: binDir + "/" + name, Type: "installed"},
			},
		})
	}

	seenExec := make(map[string]bool)
	seenContainer := make(map[string]bool)
	for _, occ := range doc.Occurrences() {
		exec := pluginExec(occ)
		if seenExec[exec] {
			continue
		}
		seenExec[exec] = true

		container := strings.ToLower(occ.Plugin.Name)
		if !seenContainer[container] {
			seenContainer[container] = true
			cat.AddContainer(taskgraph.Container{
				Name:   container,
				Type:   "singularity",
				Image:  fmt.Sprintf("%s/%s:latest", p.cfg.Hub, container),
				Mounts: []string{p.cfg.DataDir + ":" + p.cfg.DataDir},
			})
		}

		wrapper := connectorWrapper
		if occ.Role == workflow.RoleProcessor {
			wrapper = processorWrapper
		}
		cat.Add(taskgraph.Transformation{
			Name: exec,
			Sites: []taskgraph.TransformationSite{
				{Name: p.cfg.Target, PFN: wrapper, Type: "installed", Container: container},
			},
		})
	}
	return cat
}

func pluginExec(occ *workflow.Occurrence) string {
	if occ.Role == workflow.RoleProcessor {
		return taskgraph.ProcessorPluginExec(occ.Plugin.Name)
	}
	return taskgraph.ConnectorPluginExec(occ.Plugin.Name)
}
