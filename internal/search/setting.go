// Package search implements the parameter-search driver layered on top of
// the backtesting core: grid search (worker-pool, exhaustive) and genetic
// search (population-based, for spaces too large to enumerate). Grounded on
// vnpy `backtesting.py OptimizationSetting`/`run_optimization`/
// `run_ga_optimization`.
//
// Neither search strategy depends on internal/engine directly: the caller
// supplies an Evaluator closure that builds and runs one backtest for a
// given Setting and returns its target value, so this package stays a
// scheduler over a pure function rather than owning engine construction.
package search

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Setting is one point in parameter space: parameter name → value.
type Setting map[string]float64

// ParamRange describes one swept parameter. A Step of zero means a fixed
// single value (Start only); vnpy's "not end and not step" branch.
type ParamRange struct {
	Name  string
	Start float64
	End   float64
	Step  float64
}

// OptimizationSetting accumulates the parameter ranges and target name for
// one search run (vnpy's OptimizationSetting.add_parameter/set_target).
type OptimizationSetting struct {
	ranges []ParamRange
	target string
}

// AddParameter adds one swept parameter. Passing only start fixes the
// parameter to that single value, matching vnpy's fixed-value shorthand.
func (o *OptimizationSetting) AddParameter(name string, start float64, end, step *float64) error {
	if end == nil && step == nil {
		o.ranges = append(o.ranges, ParamRange{Name: name, Start: start, End: start, Step: 0})
		return nil
	}
	if end == nil || step == nil {
		return fmt.Errorf("add_parameter %q: end and step must both be set or both omitted", name)
	}
	if start >= *end {
		return fmt.Errorf("add_parameter %q: start (%v) must be less than end (%v)", name, start, *end)
	}
	if *step <= 0 {
		return fmt.Errorf("add_parameter %q: step (%v) must be > 0", name, *step)
	}
	o.ranges = append(o.ranges, ParamRange{Name: name, Start: start, End: *end, Step: *step})
	return nil
}

// SetTarget names the statistic field the search ranks on (e.g.
// "sharpe_ratio", "total_return").
func (o *OptimizationSetting) SetTarget(name string) { o.target = name }

// Target returns the configured ranking target.
func (o *OptimizationSetting) Target() string { return o.target }

// values expands one ParamRange into its candidate list, stepping with
// shopspring/decimal to avoid float64 accumulation drift across many steps
// (a plain `value += step` loop can under- or over-shoot the `<= end`
// boundary after enough iterations).
func (r ParamRange) values() []float64 {
	if r.Step == 0 {
		return []float64{r.Start}
	}

	start := decimal.NewFromFloat(r.Start)
	end := decimal.NewFromFloat(r.End)
	step := decimal.NewFromFloat(r.Step)

	var out []float64
	for v := start; !v.GreaterThan(end); v = v.Add(step) {
		f, _ := v.Float64()
		out = append(out, f)
	}
	return out
}

// GenerateSettings expands every ParamRange into its candidate list and
// returns their Cartesian product (vnpy generate_setting), in the same
// parameter-ordering as AddParameter calls were made.
func (o *OptimizationSetting) GenerateSettings() []Setting {
	if len(o.ranges) == 0 {
		return nil
	}

	names := make([]string, len(o.ranges))
	valueLists := make([][]float64, len(o.ranges))
	for i, r := range o.ranges {
		names[i] = r.Name
		valueLists[i] = r.values()
	}

	var settings []Setting
	var build func(idx int, cur Setting)
	build = func(idx int, cur Setting) {
		if idx == len(names) {
			clone := make(Setting, len(cur))
			for k, v := range cur {
				clone[k] = v
			}
			settings = append(settings, clone)
			return
		}
		for _, v := range valueLists[idx] {
			cur[names[idx]] = v
			build(idx+1, cur)
		}
	}
	build(0, Setting{})

	return settings
}

// SortByTarget sorts results descending by target value (highest first),
// matching vnpy's `result_values.sort(reverse=True, ...)`.
func SortByTarget(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Target > results[j].Target })
}

// Result is one evaluated setting's outcome.
type Result struct {
	Setting Setting
	Target  float64
	Err     error
}
