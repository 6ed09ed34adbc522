package compile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/flowkit/compile"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/manifest"
	"github.com/kbukum/flowkit/taskgraph"
)

func TestCompileFinal(t *testing.T) {
	runDir := t.TempDir()
	writeManifest(t, manifest.Path(runDir, 2), "mosaic.tif", "summary.csv")

	session := compile.NewSession("")
	res, err := session.CompileFinal(context.Background(), compile.FinalRequest{
		Stages:     2,
		RunDir:     runDir,
		JobDir:     "/data/1723040102",
		OutputPath: filepath.Join(t.TempDir(), "final.yml"),
	})
	if err != nil {
		t.Fatalf("CompileFinal failed: %v", err)
	}

	if len(res.Fragment.Jobs) != 1 {
		t.Fatalf("expected a single move job, got %d", len(res.Fragment.Jobs))
	}
	move := res.Fragment.Jobs[0]
	if move.Name != taskgraph.ExecMove {
		t.Errorf("expected %s job, got %s", taskgraph.ExecMove, move.Name)
	}
	wantArgs := []string{"/data/1723040102/2", "mosaic.tif", "summary.csv"}
	if diff := cmp.Diff(wantArgs, move.Arguments); diff != "" {
		t.Errorf("move arguments mismatch (-want +got):\n%s", diff)
	}
	for i, name := range []string{"mosaic.tif", "summary.csv"} {
		use := move.Uses[i]
		if use.LFN != name || !use.StageOut {
			t.Errorf("use %d: expected staged-out %s, got %+v", i, name, use)
		}
	}
	if res.Fragment.Name != "final" {
		t.Errorf("unexpected fragment name %s", res.Fragment.Name)
	}
}

func TestCompileFinalMissingManifest(t *testing.T) {
	out := filepath.Join(t.TempDir(), "final.yml")
	session := compile.NewSession("")
	_, err := session.CompileFinal(context.Background(), compile.FinalRequest{
		Stages:     3,
		RunDir:     t.TempDir(),
		JobDir:     "/data/1723040102",
		OutputPath: out,
	})
	if err == nil {
		t.Fatal("expected a dependency error for the missing manifest")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeDependency {
		t.Errorf("expected dependency error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("failed compile must not leave a fragment file behind")
	}
}
