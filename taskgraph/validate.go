package taskgraph

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Transformation names used by outer-graph jobs. Plain jobs in an
// untrusted outer graph must be drawn from this closed set.
const (
	ExecMkdir      = "mkdir"
	ExecKeygen     = "gen-keypair"
	ExecBuildStage = "build-stage"
	ExecBuildFinal = "build-final"
)

// DefaultAllowedExecutables is the outer-graph executable allowlist.
var DefaultAllowedExecutables = []string{ExecMkdir, ExecKeygen, ExecBuildStage, ExecBuildFinal}

// DefaultAppPrefix is the standard installation prefix local
// transformations must live under on hosted deployments.
const DefaultAppPrefix = "/apps/share64"

// Transformation names used inside stage fragments. Plugin tasks run
// under per-plugin transformations so each resolves to its own
// container; the aggregation executables are shared.
const (
	ExecMerge   = "merge"
	ExecCollect = "collect"
	ExecMove    = "move"
)

// ConnectorPluginExec returns the transformation name running one
// connector plugin task.
func ConnectorPluginExec(plugin string) string {
	return "run-connector-plugin-" + plugin
}

// ProcessorPluginExec returns the transformation name running one
// processor plugin task.
func ProcessorPluginExec(plugin string) string {
	return "run-processor-plugin-" + plugin
}

// ValidateOuter checks an untrusted outer graph. Plain jobs must
// invoke allowed executables only, and subworkflow graph files must
// remain logical names so the build job that produces them cannot be
// bypassed with a pre-staged physical file.
func ValidateOuter(w *Workflow, allowed []string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	for _, job := range w.Jobs {
		switch job.Type {
		case JobTypeJob:
			if !allowedSet[job.Name] {
				return apperrors.Graph(fmt.Sprintf("executable %s is not allowed in the outer graph", job.Name), nil)
			}
		case JobTypeSubworkflow:
			if err := validateSubworkflowUses(job); err != nil {
				return err
			}
		default:
			return apperrors.Graph(fmt.Sprintf("job %s has unknown type %q", job.ID, job.Type), nil)
		}
	}
	return nil
}

func validateSubworkflowUses(job *Job) error {
	if filepath.Dir(job.File) != "." {
		return apperrors.Graph(fmt.Sprintf("subworkflow file %s must be a bare logical name", job.File), nil)
	}
	for _, use := range job.Uses {
		if use.LFN == job.File && use.Type == UseInput && use.PFN != "" {
			return apperrors.Graph(fmt.Sprintf("subworkflow file %s cannot be overridden with a physical path", job.File), nil)
		}
		if use.PFN != "" && filepath.Base(use.PFN) == job.File && filepath.Dir(use.PFN) != "." {
			return apperrors.Graph(fmt.Sprintf("subworkflow file %s cannot be overridden with a physical path", job.File), nil)
		}
	}
	return nil
}

// ValidateCatalog checks a transformation catalog: container images
// must come from a registry rather than a local file, and
// transformations running on the submit host outside a container must
// live under the standard application prefix.
func ValidateCatalog(c *Catalog, appPrefix string) error {
	if appPrefix == "" {
		appPrefix = DefaultAppPrefix
	}

	for _, container := range c.Containers {
		if strings.HasPrefix(container.Image, "file://") {
			return apperrors.Graph(fmt.Sprintf("local container image %s is not allowed", container.Image), nil)
		}
	}

	for _, t := range c.Transformations {
		for _, site := range t.Sites {
			if site.Container != "" {
				continue
			}
			if site.Name == "local" && site.PFN != "" && !strings.HasPrefix(site.PFN, appPrefix) {
				return apperrors.Graph(fmt.Sprintf("transformation %s uses a non-standard local path %s", t.Name, site.PFN), nil)
			}
		}
	}
	return nil
}

// Validate checks a graph structurally and applies both outer-graph
// checks with the default allowlist and application prefix. The catalog
// may be nil when only the graph itself is being checked.
func Validate(w *Workflow, c *Catalog) error {
	if _, err := w.Levels(); err != nil {
		return err
	}
	if err := ValidateOuter(w, DefaultAllowedExecutables); err != nil {
		return err
	}
	if c != nil {
		return ValidateCatalog(c, DefaultAppPrefix)
	}
	return nil
}
