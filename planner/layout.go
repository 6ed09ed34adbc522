package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/taskgraph"
)

// GraphFile is the outer graph filename inside a run directory.
const GraphFile = "graph.yml"

// FinalFragment is the logical name of the delivery fragment the final
// build job produces at run time.
const FinalFragment = "final.yml"

// NewRunID derives the run identifier from the submission time. Epoch
// seconds sort chronologically and double as directory names on both
// the submit host and the target.
func NewRunID(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// RunDir is the local run directory for a run id.
func RunDir(base, id string) string {
	return filepath.Join(base, id)
}

// JobDir is the shared data directory for a run id on the execution
// target. Target paths are POSIX regardless of the submit host.
func JobDir(dataDir, id string) string {
	return fmt.Sprintf("%s/%s", dataDir, id)
}

// EnsureRunDir creates the run directory.
func EnsureRunDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return apperrors.LocalResource(path, err)
	}
	return nil
}

// copyDocument snapshots the workflow document into the run directory
// so build jobs read a stable copy for the lifetime of the run. A
// document named like one of the planner's own outputs is copied under
// a neutral name.
func copyDocument(path, runDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.LocalResource(path, err)
	}
	name := filepath.Base(path)
	switch name {
	case GraphFile, FinalFragment, taskgraph.CatalogFile:
		name = "document.yml"
	}
	dest := filepath.Join(runDir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", apperrors.LocalResource(dest, err)
	}
	return dest, nil
}
