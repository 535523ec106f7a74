package search

import (
	"context"
	"errors"
	"testing"
)

func TestGridSearchEvaluatesEverySetting(t *testing.T) {
	settings := []Setting{
		{"x": 1}, {"x": 2}, {"x": 3}, {"x": 4}, {"x": 5},
	}

	results := GridSearch(context.Background(), settings, 2, func(_ context.Context, s Setting) (float64, error) {
		return s["x"] * 10, nil
	})

	if len(results) != len(settings) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(settings))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Target < results[i].Target {
			t.Fatalf("results not sorted descending at %d: %v then %v", i, results[i-1].Target, results[i].Target)
		}
	}
	if results[0].Target != 50 {
		t.Errorf("best Target = %v, want 50", results[0].Target)
	}
}

func TestGridSearchPropagatesEvaluatorError(t *testing.T) {
	settings := []Setting{{"x": 1}, {"x": 2}}
	failFor := 2.0

	results := GridSearch(context.Background(), settings, 0, func(_ context.Context, s Setting) (float64, error) {
		if s["x"] == failFor {
			return 0, errors.New("evaluation failed")
		}
		return s["x"], nil
	})

	var sawErr bool
	for _, r := range results {
		if r.Setting["x"] == failFor {
			if r.Err == nil {
				t.Error("expected Err set for failing setting")
			}
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatal("did not find the failing setting in results")
	}
}

func TestGridSearchDefaultsWorkersWhenZeroOrNegative(t *testing.T) {
	settings := []Setting{{"x": 1}}
	results := GridSearch(context.Background(), settings, -5, func(_ context.Context, s Setting) (float64, error) {
		return s["x"], nil
	})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
}
