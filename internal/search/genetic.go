package search

import (
	"context"
	"math/rand"
	"sort"
)

// GeneticSetting configures one genetic-search run. Unlike vnpy's
// run_ga_optimization — which stashes the strategy class, symbol, and every
// engine parameter into module-level globals so DEAP's multiprocessing
// workers can see them — every value a generation needs is carried
// explicitly in this struct and threaded through as a plain argument
// no package-level mutable state.
type GeneticSetting struct {
	ParamNames []string
	Candidates [][]float64 // Candidates[i] is the gene pool for ParamNames[i]

	PopSize     int
	Mu          int // survivors kept each generation; 0 defaults to 0.8*PopSize
	Generations int
	CxProb      float64 // probability an offspring is produced by crossover
	MutProb     float64 // probability an offspring is produced by mutation instead
	RandomSeed  int64
}

// mu returns the configured survivor count, defaulting to 0.8*PopSize when
// unset (vnpy's run_ga_optimization hardcodes this same 0.8 ratio).
func (g GeneticSetting) mu() int {
	if g.Mu > 0 {
		return g.Mu
	}
	mu := int(0.8 * float64(g.PopSize))
	if mu < 1 {
		mu = 1
	}
	return mu
}

// individual is one parameter vector: gene i holds a value drawn from
// Candidates[i].
type individual struct {
	genes   []float64
	fitness float64
}

func (g GeneticSetting) toSetting(ind individual) Setting {
	s := make(Setting, len(g.ParamNames))
	for i, name := range g.ParamNames {
		s[name] = ind.genes[i]
	}
	return s
}

func (g GeneticSetting) randomIndividual(rng *rand.Rand) individual {
	genes := make([]float64, len(g.ParamNames))
	for i, candidates := range g.Candidates {
		genes[i] = candidates[rng.Intn(len(candidates))]
	}
	return individual{genes: genes}
}

// crossTwoPoint swaps the gene segment between two random cut points
// between two parents, producing one child (vnpy's tools.cxTwoPoint,
// applied to one offspring at a time rather than swapping both parents
// in place).
func crossTwoPoint(a, b individual, rng *rand.Rand) individual {
	n := len(a.genes)
	if n < 2 {
		return a
	}
	p1 := rng.Intn(n)
	p2 := rng.Intn(n)
	if p1 > p2 {
		p1, p2 = p2, p1
	}

	child := individual{genes: append([]float64(nil), a.genes...)}
	copy(child.genes[p1:p2], b.genes[p1:p2])
	return child
}

// mutate replaces every gene with a fresh random candidate from its pool
// (vnpy's mutate_individual with indpb=1: once the mutation branch is
// chosen, every gene is resampled, not each independently at MutProb).
func (g GeneticSetting) mutate(ind individual, rng *rand.Rand) individual {
	out := individual{genes: append([]float64(nil), ind.genes...)}
	for i, candidates := range g.Candidates {
		out.genes[i] = candidates[rng.Intn(len(candidates))]
	}
	return out
}

// GASearch runs a (mu+lambda)-style elitist genetic search: each
// generation produces PopSize children from the current population via
// varOr-style selection (each child is built by exactly one of crossover,
// mutation, or direct reproduction, never a combination), evaluates them,
// and keeps the best mu individuals across parents and children for the
// next generation. This approximates vnpy's `algorithms.eaMuPlusLambda`
// with `tools.selNSGA2` selection — NSGA2 on a single scalar fitness
// degenerates to ordinary best-of-population ranking, which is what
// single-objective elitism produces here. Returns the surviving
// population's results sorted descending by fitness; Results[0] is the
// hall-of-fame best.
func GASearch(ctx context.Context, g GeneticSetting, eval Evaluator) []Result {
	rng := rand.New(rand.NewSource(g.RandomSeed))
	mu := g.mu()

	pop := make([]individual, g.PopSize)
	for i := range pop {
		pop[i] = g.randomIndividual(rng)
	}
	evaluatePopulation(ctx, g, pop, eval)

	for gen := 0; gen < g.Generations; gen++ {
		children := make([]individual, 0, g.PopSize)
		for len(children) < g.PopSize {
			p1 := pop[rng.Intn(len(pop))]

			var child individual
			switch r := rng.Float64(); {
			case r < g.CxProb:
				p2 := pop[rng.Intn(len(pop))]
				child = crossTwoPoint(p1, p2, rng)
			case r < g.CxProb+g.MutProb:
				child = g.mutate(p1, rng)
			default:
				child = individual{genes: append([]float64(nil), p1.genes...)}
			}
			children = append(children, child)
		}
		evaluatePopulation(ctx, g, children, eval)

		combined := append(append([]individual(nil), pop...), children...)
		sort.SliceStable(combined, func(i, j int) bool { return combined[i].fitness > combined[j].fitness })
		if mu < len(combined) {
			combined = combined[:mu]
		}
		pop = combined
	}

	results := make([]Result, len(pop))
	for i, ind := range pop {
		results[i] = Result{Setting: g.toSetting(ind), Target: ind.fitness}
	}
	SortByTarget(results)
	return results
}

func evaluatePopulation(ctx context.Context, g GeneticSetting, pop []individual, eval Evaluator) {
	for i := range pop {
		target, err := eval(ctx, g.toSetting(pop[i]))
		if err != nil {
			pop[i].fitness = -1 << 62 // sink evaluation failures to the bottom of selection
			continue
		}
		pop[i].fitness = target
	}
}
