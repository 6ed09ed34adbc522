package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/planner"
)

// DefaultSecretEnvPrefix is the environment prefix sensitive values are
// looked up under.
const DefaultSecretEnvPrefix = "FLOWKIT_SECRET"

// SecretSource supplies plaintext values for sensitive plugin arguments
// at plan time. Collect returns a not-found error when the source has
// no value, letting a Chain move on to the next source.
type SecretSource interface {
	Collect(ctx context.Context, occurrence, arg string) (string, error)
}

// Chain tries each source in order, moving on when one has no value.
type Chain []SecretSource

// Collect implements SecretSource.
func (c Chain) Collect(ctx context.Context, occurrence, arg string) (string, error) {
	for _, src := range c {
		v, err := src.Collect(ctx, occurrence, arg)
		if err == nil {
			return v, nil
		}
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeNotFound {
			continue
		}
		return "", err
	}
	return "", apperrors.Security(fmt.Sprintf("no value available for sensitive argument %s of %s", arg, occurrence), nil)
}

// EnvSource reads sensitive values from the environment under
// <prefix>_<OCCURRENCE>_<ARG>, uppercased with separators folded to
// underscores: stage-1-Input / password becomes
// FLOWKIT_SECRET_STAGE_1_INPUT_PASSWORD.
type EnvSource struct {
	// Prefix defaults to DefaultSecretEnvPrefix.
	Prefix string
}

// Collect implements SecretSource.
func (s EnvSource) Collect(_ context.Context, occurrence, arg string) (string, error) {
	name := s.VarName(occurrence, arg)
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", apperrors.NotFound("secret", name)
	}
	return v, nil
}

// VarName returns the environment variable a value is looked up under.
func (s EnvSource) VarName(occurrence, arg string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultSecretEnvPrefix
	}
	return prefix + "_" + envToken(occurrence) + "_" + envToken(arg)
}

func envToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// PromptSource collects values interactively: the prompt goes to Out
// and one line per value is read from In. Collected values are never
// logged.
type PromptSource struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// Collect implements SecretSource.
func (p *PromptSource) Collect(_ context.Context, occurrence, arg string) (string, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	fmt.Fprintf(p.Out, "Value for %s of %s: ", arg, occurrence)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", apperrors.LocalResource("secret input", err)
		}
		return "", apperrors.Security(fmt.Sprintf("input ended before a value for %s of %s was provided", arg, occurrence), nil)
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// StaticSource serves pre-collected values, keyed like planner.Secrets.
// Used by tests and by deployments that receive values with the
// request.
type StaticSource planner.Secrets

// Collect implements SecretSource.
func (s StaticSource) Collect(_ context.Context, occurrence, arg string) (string, error) {
	if v, ok := s[occurrence][arg]; ok {
		return v, nil
	}
	return "", apperrors.NotFound("secret", occurrence+"/"+arg)
}
