package taskgraph

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Encode serializes the workflow graph as backend YAML.
func (w *Workflow) Encode(out io.Writer) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(w); err != nil {
		return apperrors.Graph("workflow graph cannot be encoded", err)
	}
	return enc.Close()
}

// Write serializes the workflow graph to a file. The graph is encoded
// to memory first, so a failed encode leaves no partial file.
func (w *Workflow) Write(path string) error {
	var buf bytes.Buffer
	if err := w.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return apperrors.Graph(fmt.Sprintf("workflow graph file %s cannot be written", path), err)
	}
	return nil
}

// Decode parses a workflow graph from backend YAML.
func Decode(r io.Reader) (*Workflow, error) {
	var w Workflow
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, apperrors.InvalidFormat("workflow graph", "backend YAML workflow").WithCause(err)
	}
	return &w, nil
}

// Read parses a workflow graph from a file.
func Read(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NotFound("workflow graph file", path).WithCause(err)
	}
	return Decode(bytes.NewReader(data))
}
