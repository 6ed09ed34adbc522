package taskgraph

import (
	"bytes"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/kbukum/flowkit/errors"
)

// CatalogFile is the transformation catalog filename expected next to
// an outer workflow graph.
const CatalogFile = "transformations.yml"

// Container describes an execution container image for plugin
// transformations.
type Container struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Image  string   `yaml:"image"`
	Mounts []string `yaml:"mounts,omitempty"`
}

// TransformationSite maps a transformation to its physical location on
// one execution site, optionally inside a container.
type TransformationSite struct {
	Name      string `yaml:"name"`
	PFN       string `yaml:"pfn,omitempty"`
	Type      string `yaml:"type,omitempty"`
	Container string `yaml:"container,omitempty"`
}

// Transformation names one executable and the sites providing it.
type Transformation struct {
	Name  string               `yaml:"name"`
	Sites []TransformationSite `yaml:"sites"`
}

// Catalog is the transformation catalog accompanying an outer graph:
// the containers and executables its jobs may invoke.
type Catalog struct {
	Pegasus         string           `yaml:"pegasus"`
	Containers      []Container      `yaml:"containers,omitempty"`
	Transformations []Transformation `yaml:"transformations"`
}

// NewCatalog creates an empty transformation catalog.
func NewCatalog() *Catalog {
	return &Catalog{Pegasus: formatVersion}
}

// AddContainer registers a container image.
func (c *Catalog) AddContainer(container Container) *Catalog {
	c.Containers = append(c.Containers, container)
	return c
}

// Add registers a transformation.
func (c *Catalog) Add(t Transformation) *Catalog {
	c.Transformations = append(c.Transformations, t)
	return c
}

// Transformation returns the named transformation, if registered.
func (c *Catalog) Transformation(name string) (Transformation, bool) {
	for _, t := range c.Transformations {
		if t.Name == name {
			return t, true
		}
	}
	return Transformation{}, false
}

// Write serializes the catalog to a file.
func (c *Catalog) Write(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return apperrors.Graph("transformation catalog cannot be encoded", err)
	}
	if err := enc.Close(); err != nil {
		return apperrors.Graph("transformation catalog cannot be encoded", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return apperrors.Graph(fmt.Sprintf("transformation catalog %s cannot be written", path), err)
	}
	return nil
}

// ReadCatalog parses a transformation catalog from a file.
func ReadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NotFound("transformation catalog", path).WithCause(err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apperrors.InvalidFormat("transformation catalog", "backend YAML catalog").WithCause(err)
	}
	return &c, nil
}
