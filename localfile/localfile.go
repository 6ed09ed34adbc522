package localfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

// ShapefileExt marks primary files whose format spreads across sibling
// files sharing the base name. Transferring only the .shp silently
// corrupts the artifact, so siblings are discovered and shipped along.
const ShapefileExt = ".shp"

// InputRef is a transferable task input: the logical name tasks address
// it by, and the local path it is staged from.
type InputRef struct {
	Name string
	Path string
}

// IsLocalPath reports whether a binding value names a local file. A value
// qualifies when it looks like a path (contains a dot or separator) and a
// regular file exists at it.
func IsLocalPath(value string) bool {
	if !strings.Contains(value, ".") && !strings.Contains(value, string(os.PathSeparator)) {
		return false
	}
	info, err := os.Stat(value)
	return err == nil && info.Mode().IsRegular()
}

// Resolve maps arg name → local path bindings to transferable inputs.
// It returns the primary inputs in argument-name order and any discovered
// companion inputs, each registered under its base filename with an
// absolute source path. A bound path that is not an existing regular file
// is a local-resource error.
func Resolve(args map[string]string) ([]InputRef, []InputRef, error) {
	if len(args) == 0 {
		return nil, nil, nil
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var primaries, companions []InputRef
	for _, argName := range names {
		path := args[argName]
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, apperrors.LocalResource(path, err)
		}
		if !info.Mode().IsRegular() {
			return nil, nil, apperrors.LocalResource(path, fmt.Errorf("not a regular file"))
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, apperrors.LocalResource(path, err)
		}
		primaries = append(primaries, InputRef{Name: filepath.Base(abs), Path: abs})

		if filepath.Ext(abs) == ShapefileExt {
			siblings, err := Companions(abs)
			if err != nil {
				return nil, nil, err
			}
			companions = append(companions, siblings...)
		}
	}
	return primaries, companions, nil
}

// Companions scans the primary file's directory for files sharing its
// base name under a different extension and returns them in filename
// order. The primary itself is never included.
func Companions(path string) ([]InputRef, error) {
	dir := filepath.Dir(path)
	primaryName := filepath.Base(path)
	stem := strings.TrimSuffix(primaryName, filepath.Ext(primaryName))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.LocalResource(path, err)
	}

	var refs []InputRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == primaryName {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) != stem {
			continue
		}
		refs = append(refs, InputRef{Name: name, Path: filepath.Join(dir, name)})
	}
	return refs, nil
}
