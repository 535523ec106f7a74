package store

import (
	"testing"

	"ctabacktest/internal/search"
)

func sampleResults() []search.Result {
	return []search.Result{
		{Setting: search.Setting{"fast_window": 10, "slow_window": 20}, Target: 1.23},
		{Setting: search.Setting{"fast_window": 5, "slow_window": 30}, Target: 0.87},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	want := sampleResults()
	if err := s.SaveRun("run1", want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LoadRun("run1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Target != want[i].Target {
			t.Errorf("result %d Target = %v, want %v", i, got[i].Target, want[i].Target)
		}
		if got[i].Setting["fast_window"] != want[i].Setting["fast_window"] {
			t.Errorf("result %d fast_window = %v, want %v", i, got[i].Setting["fast_window"], want[i].Setting["fast_window"])
		}
	}
}

func TestLoadRunMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.LoadRun("nonexistent")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing run, got %+v", got)
	}
}

func TestSaveRunOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveRun("run1", []search.Result{{Target: 1}})
	_ = s.SaveRun("run1", []search.Result{{Target: 2}})

	got, err := s.LoadRun("run1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if len(got) != 1 || got[0].Target != 2 {
		t.Errorf("got = %+v, want a single result with Target=2 (latest save)", got)
	}
}
