// Package optimizer searches the space of join orders and join algorithms for
// a cheap plan. It runs iterative improvement, a series of randomized
// hill-climbs, and refines the result with simulated annealing. Plans are
// scored only by a cost model.
package optimizer

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"queryproc/pkg/logging"
	"queryproc/pkg/optimizer/costmodel"
	"queryproc/pkg/plan"
)

// Coster scores plans. *costmodel.Model is the production implementation.
type Coster interface {
	Cost(root plan.Node) (costmodel.Result, error)
}

// Params controls the length of the search. Counts are per join of the plan.
type Params struct {
	RestartsPerJoin int     // iterative improvement restarts
	StepsPerJoin    int     // local steps per restart, and moves per annealing stage
	StartFactor     float64 // initial temperature as a fraction of the starting cost
	Cooling         float64 // temperature multiplier between stages
	Patience        int     // stages without improvement before annealing stops
}

func DefaultParams() Params {
	return Params{
		RestartsPerJoin: 4,
		StepsPerJoin:    16,
		StartFactor:     0.1,
		Cooling:         0.95,
		Patience:        4,
	}
}

// Result is the outcome of one optimization.
type Result struct {
	Plan    plan.Node
	Cost    int64
	Initial int64
	// Improvement holds the best cost after each iterative improvement
	// restart, Annealing the best cost after each annealing stage.
	Improvement []int64
	Annealing   []int64
}

// Metrics counts optimizer activity.
type Metrics struct {
	PlansCosted     prometheus.Counter
	InfeasiblePlans prometheus.Counter
	UphillMoves     prometheus.Counter
	Optimizations   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "qp",
			Subsystem: "optimizer",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		PlansCosted:     counter("plans_costed_total", "Plans scored by the cost model."),
		InfeasiblePlans: counter("infeasible_plans_total", "Plans the cost model could not run."),
		UphillMoves:     counter("uphill_moves_total", "Costlier plans accepted by simulated annealing."),
		Optimizations:   counter("optimizations_total", "Completed optimizations."),
	}
}

// RandomOptimizer is a two-phase randomized join optimizer. It is not safe
// for concurrent use: it owns its random source.
type RandomOptimizer struct {
	coster  Coster
	rng     *rand.Rand
	params  Params
	metrics *Metrics
	log     *slog.Logger
}

// New creates an optimizer. A nil metrics value counts into unregistered
// counters.
func New(coster Coster, rng *rand.Rand, params Params, metrics *Metrics) *RandomOptimizer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &RandomOptimizer{
		coster:  coster,
		rng:     rng,
		params:  params,
		metrics: metrics,
		log:     logging.WithComponent("RandomOptimizer"),
	}
}

// Optimize returns the cheapest plan found starting from root. root is not
// modified; a plan without joins is returned as is.
func (o *RandomOptimizer) Optimize(root plan.Node) (*Result, error) {
	start := root.Clone()
	numJoins := plan.NumberJoins(start)

	initial, err := o.cost(start)
	if err != nil {
		return nil, err
	}
	res := &Result{Plan: root, Cost: initial, Initial: initial}
	if numJoins == 0 {
		return res, nil
	}

	best, bestCost, err := o.iterativeImprovement(start, initial, numJoins, res)
	if err != nil {
		return nil, err
	}
	o.log.Info("iterative improvement done",
		"initial_cost", initial, "cost", bestCost, "restarts", len(res.Improvement))

	best, bestCost, err = o.simulatedAnnealing(best, bestCost, numJoins, res)
	if err != nil {
		return nil, err
	}
	o.log.Info("simulated annealing done", "cost", bestCost, "stages", len(res.Annealing))
	o.log.Debug("cost traces", "improvement", res.Improvement, "annealing", res.Annealing)

	res.Plan, res.Cost = best, bestCost
	o.metrics.Optimizations.Inc()
	return res, nil
}

// iterativeImprovement restarts from a random neighbor of the best plan so
// far and descends until the step budget is spent, keeping the cheapest
// local minimum.
func (o *RandomOptimizer) iterativeImprovement(start plan.Node, startCost int64, numJoins int, res *Result) (plan.Node, int64, error) {
	best, bestCost := start, startCost
	restarts := o.params.RestartsPerJoin * numJoins
	steps := o.params.StepsPerJoin * numJoins

	for r := 0; r < restarts; r++ {
		current := Neighbor(best, numJoins, o.rng)
		currentCost, err := o.cost(current)
		if err != nil {
			return nil, 0, err
		}

		for s := 0; s < steps; s++ {
			candidate := Neighbor(current, numJoins, o.rng)
			candidateCost, err := o.cost(candidate)
			if err != nil {
				return nil, 0, err
			}
			if candidateCost < currentCost {
				current, currentCost = candidate, candidateCost
			}
		}

		if currentCost < bestCost {
			best, bestCost = current, currentCost
		}
		res.Improvement = append(res.Improvement, bestCost)
	}
	return best, bestCost, nil
}

// simulatedAnnealing walks from start, accepting a costlier neighbor with
// probability exp(-delta/T), and returns the cheapest plan visited.
func (o *RandomOptimizer) simulatedAnnealing(start plan.Node, startCost int64, numJoins int, res *Result) (plan.Node, int64, error) {
	state, stateCost := start, startCost
	best, bestCost := start, startCost
	steps := o.params.StepsPerJoin * numJoins

	temperature := o.params.StartFactor * float64(startCost)
	for unchanged := 0; temperature >= 1 && unchanged < o.params.Patience; temperature *= o.params.Cooling {
		improved := false
		for s := 0; s < steps; s++ {
			candidate := Neighbor(state, numJoins, o.rng)
			candidateCost, err := o.cost(candidate)
			if err != nil {
				return nil, 0, err
			}

			delta := float64(candidateCost) - float64(stateCost)
			if delta > 0 && o.rng.Float64() >= math.Exp(-delta/temperature) {
				continue
			}
			if delta > 0 {
				o.metrics.UphillMoves.Inc()
			}
			state, stateCost = candidate, candidateCost
			if stateCost < bestCost {
				best, bestCost = state, stateCost
				improved = true
			}
		}

		res.Annealing = append(res.Annealing, bestCost)
		if improved {
			unchanged = 0
		} else {
			unchanged++
		}
	}
	return best, bestCost, nil
}

func (o *RandomOptimizer) cost(p plan.Node) (int64, error) {
	r, err := o.coster.Cost(p)
	if err != nil {
		return 0, err
	}
	o.metrics.PlansCosted.Inc()
	if !r.Feasible {
		o.metrics.InfeasiblePlans.Inc()
	}
	return r.Cost, nil
}
