package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
)

var (
	varPattern = regexp.MustCompile(`%\{(.+?)\}`)
	refPattern = regexp.MustCompile(`\$([0-9]+)`)
)

// dirModifierPrefix marks a binding value whose stage reference should
// contribute only its first value to expansion.
const dirModifierPrefix = "dir("

// Variables returns the %{name} variable occurrences in a binding value,
// in order of appearance. Every occurrence is returned, including
// repeats; callers that need uniqueness de-duplicate themselves.
func Variables(value string) []string {
	matches := varPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// StageRefs returns the $N stage references in a binding value, in order
// of appearance, including repeats.
func StageRefs(value string) []int {
	matches := refPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		refs = append(refs, n)
	}
	return refs
}

// HasDirModifier reports whether a binding value applies at least one
// dir(...) modifier to its stage reference.
func HasDirModifier(value string) bool {
	return strings.HasPrefix(value, dirModifierPrefix)
}

// ValidateStageRefs checks the stage-reference form of one binding
// value. A value without references always passes. A value with
// references must contain exactly one, and must consist of that
// reference alone or of the reference wrapped in one or more nested
// dir(...) modifiers. References cannot be mixed with literal text or
// variables inside a single value.
func ValidateStageRefs(value string) error {
	refs := StageRefs(value)
	if len(refs) == 0 {
		return nil
	}
	if len(refs) > 1 {
		return apperrors.Validation(fmt.Sprintf("cannot reference more than one stage in a binding: %s", value))
	}
	kernel := "$" + strconv.Itoa(refs[0])
	if !dirWrapped(value, kernel) {
		return apperrors.Validation(fmt.Sprintf("a stage reference must be bare or wrapped in dir() modifiers: %s", value))
	}
	return nil
}

// dirWrapped reports whether value is kernel wrapped in zero or more
// well-formed dir(...) layers.
func dirWrapped(value, kernel string) bool {
	for strings.HasPrefix(value, dirModifierPrefix) {
		if !strings.HasSuffix(value, ")") {
			return false
		}
		value = value[len(dirModifierPrefix) : len(value)-1]
	}
	return value == kernel
}
