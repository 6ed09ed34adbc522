package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Name returns the result manifest filename for a stage.
func Name(stage int) string {
	return fmt.Sprintf("results_%d.txt", stage)
}

// FilterName returns the result manifest filename for a filter variable.
func FilterName(stage int, variable string) string {
	return fmt.Sprintf("results_%d_%s.txt", stage, variable)
}

// Path joins the directory delivered manifests land in, normally the
// run directory, with the stage manifest name.
func Path(dir string, stage int) string {
	return filepath.Join(dir, Name(stage))
}

// FilterPath joins the manifest directory with a filter manifest name.
func FilterPath(dir string, stage int, variable string) string {
	return filepath.Join(dir, FilterName(stage, variable))
}

// Read loads an ordered value list from a manifest file. One value per
// line; blank lines are skipped, order and duplicates are preserved.
// A missing, unreadable, or empty manifest means the producing stage
// never delivered results, so all three are dependency errors.
func Read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Dependency(fmt.Sprintf("result manifest %s does not exist", path), err)
		}
		return nil, apperrors.Dependency(fmt.Sprintf("result manifest %s cannot be read", path), err)
	}

	values := Parse(string(data))
	if len(values) == 0 {
		return nil, apperrors.Dependency(fmt.Sprintf("result manifest %s is empty", path), nil)
	}
	return values, nil
}

// Parse splits manifest text into its ordered values.
func Parse(text string) []string {
	var values []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values = append(values, line)
	}
	return values
}

// Write stores an ordered value list as a manifest file, one value per line.
func Write(path string, values []string) error {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(v)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperrors.LocalResource(path, err)
	}
	return nil
}
