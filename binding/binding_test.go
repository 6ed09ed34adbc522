package binding_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/flowkit/binding"
	apperrors "github.com/kbukum/flowkit/errors"
)

func TestCollectionOrder(t *testing.T) {
	c := binding.NewCollection().
		Add("date", []string{"2020-01-01"}).
		Add("site", []string{"a", "b"})

	if diff := cmp.Diff([]string{"date", "site"}, c.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, c.Values("site")); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("expected Len 2, got %d", c.Len())
	}
}

func TestCollectionAddReplaces(t *testing.T) {
	c := binding.NewCollection().
		Add("date", []string{"old"}).
		Add("site", []string{"a"}).
		Add("date", []string{"new"})

	if diff := cmp.Diff([]string{"date", "site"}, c.Names()); diff != "" {
		t.Errorf("declaration order changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"new"}, c.Values("date")); diff != "" {
		t.Errorf("values not replaced (-want +got):\n%s", diff)
	}
}

func TestExpandRightmostFastest(t *testing.T) {
	c := binding.NewCollection().
		Add("a", []string{"1", "2"}).
		Add("b", []string{"x", "y"})

	combs, err := binding.Expand(c, nil, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	want := []map[string]string{
		{"a": "1", "b": "x"},
		{"a": "1", "b": "y"},
		{"a": "2", "b": "x"},
		{"a": "2", "b": "y"},
	}
	if len(combs) != len(want) {
		t.Fatalf("expected %d bindings, got %d", len(want), len(combs))
	}
	for i, b := range combs {
		if diff := cmp.Diff(want[i], b.Primary); diff != "" {
			t.Errorf("binding %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestExpandProvenance(t *testing.T) {
	vars := binding.NewCollection().Add("date", []string{"2020-01-01", "2020-01-02"})
	refs := binding.NewCollection().Add("1", []string{"/data/a.tif"})

	combs, err := binding.Expand(vars, refs, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combs) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(combs))
	}
	for i, b := range combs {
		if len(b.Primary) != 1 || len(b.Secondary) != 1 {
			t.Fatalf("binding %d: expected one primary and one secondary entry, got %v / %v", i, b.Primary, b.Secondary)
		}
		if b.Secondary["1"] != "/data/a.tif" {
			t.Errorf("binding %d: secondary ref lost: %v", i, b.Secondary)
		}
	}
	if combs[0].Primary["date"] != "2020-01-01" || combs[1].Primary["date"] != "2020-01-02" {
		t.Errorf("primary order wrong: %v then %v", combs[0].Primary, combs[1].Primary)
	}
}

func TestExpandSingleValueTruncation(t *testing.T) {
	refs := binding.NewCollection().
		Add("1", []string{"/data/a.tif", "/data/b.tif", "/data/c.tif"}).
		Add("2", []string{"p", "q"})

	combs, err := binding.Expand(refs, nil, map[string]bool{"1": true})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combs) != 2 {
		t.Fatalf("expected 2 bindings (1 * 2), got %d", len(combs))
	}
	for i, b := range combs {
		if b.Primary["1"] != "/data/a.tif" {
			t.Errorf("binding %d: expected first value only, got %s", i, b.Primary["1"])
		}
	}
}

func TestExpandDuplicatesPreserved(t *testing.T) {
	c := binding.NewCollection().Add("v", []string{"dup", "dup"})

	combs, err := binding.Expand(c, nil, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combs) != 2 {
		t.Fatalf("expected duplicates to expand separately, got %d bindings", len(combs))
	}
}

func TestExpandNoDependencies(t *testing.T) {
	combs, err := binding.Expand(nil, nil, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combs) != 1 {
		t.Fatalf("expected single empty binding, got %d", len(combs))
	}
	if len(combs[0].Primary) != 0 || len(combs[0].Secondary) != 0 {
		t.Errorf("expected empty binding, got %v / %v", combs[0].Primary, combs[0].Secondary)
	}

	combs, err = binding.Expand(binding.NewCollection(), binding.NewCollection(), nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combs) != 1 {
		t.Fatalf("expected single empty binding for empty collections, got %d", len(combs))
	}
}

func TestExpandEmptyListIsDependencyError(t *testing.T) {
	c := binding.NewCollection().Add("v", nil)

	_, err := binding.Expand(c, nil, nil)
	if err == nil {
		t.Fatal("expected error for empty value list")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeDependency {
		t.Errorf("expected DEPENDENCY_ERROR, got %v", err)
	}
}

func TestCountMatchesExpand(t *testing.T) {
	vars := binding.NewCollection().
		Add("date", []string{"d1", "d2", "d3"}).
		Add("site", []string{"s1", "s2"})
	refs := binding.NewCollection().
		Add("1", []string{"a", "b", "c", "d"})
	single := map[string]bool{"1": true}

	count, err := binding.Count(vars, refs, single)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	combs, err := binding.Expand(vars, refs, single)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if count != len(combs) {
		t.Errorf("Count %d != len(Expand) %d", count, len(combs))
	}
	if count != 6 {
		t.Errorf("expected 3*2*1 = 6, got %d", count)
	}
}

func TestExpandDeterministic(t *testing.T) {
	vars := binding.NewCollection().
		Add("date", []string{"d1", "d2"}).
		Add("site", []string{"s1", "s2"})
	refs := binding.NewCollection().Add("1", []string{"a", "b"})

	first, err := binding.Expand(vars, refs, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	second, err := binding.Expand(vars, refs, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two runs differ (-first +second):\n%s", diff)
	}
}

func TestMerged(t *testing.T) {
	b := binding.Binding{
		Primary:   map[string]string{"date": "2020-01-01"},
		Secondary: map[string]string{"1": "/data/a.tif"},
	}
	want := map[string]string{"date": "2020-01-01", "1": "/data/a.tif"}
	if diff := cmp.Diff(want, b.Merged()); diff != "" {
		t.Errorf("Merged mismatch (-want +got):\n%s", diff)
	}
}
