package main

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/query"
	"queryproc/pkg/iterator"
	"queryproc/pkg/logging"
	"queryproc/pkg/optimizer"
	"queryproc/pkg/optimizer/buffer"
	"queryproc/pkg/optimizer/costmodel"
	"queryproc/pkg/optimizer/statistics"
	"queryproc/pkg/plan"
	"queryproc/pkg/plan/planfile"
	"queryproc/pkg/planner"
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <plan.yaml>",
		Short: "compute table statistics from the CSV data of every table in a plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := planfile.Load(a.fs, args[0])
			if err != nil {
				return err
			}
			catalog, err := statistics.NewCatalog(a.fs, a.cfg.StatsDir)
			if err != nil {
				return err
			}
			defer catalog.Close()

			out := cmd.OutOrStdout()
			for _, name := range tableNames(q) {
				stats, err := statistics.Compute(query.NewCSVTable(a.fs, a.cfg.DataDir, name, q.Tables[name]))
				if err != nil {
					return err
				}
				if err := catalog.Save(name, stats); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s tuples -> %s\n", name, humanize.Comma(stats.Tuples), catalog.Path(name))
			}
			return nil
		},
	}
}

func newOptimizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <plan.yaml>",
		Short: "search for the cheapest plan and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := planfile.Load(a.fs, args[0])
			if err != nil {
				return err
			}
			res, err := a.optimize(q.Root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "initial cost: %s\n", formatCost(res.Initial))
			fmt.Fprintf(out, "final cost:   %s\n", formatCost(res.Cost))
			fmt.Fprint(out, plan.Format(res.Plan))
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var noOptimize bool

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "optimize a plan, execute it and print the result rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := planfile.Load(a.fs, args[0])
			if err != nil {
				return err
			}

			root := q.Root
			if !noOptimize {
				res, err := a.optimize(root)
				if err != nil {
					return err
				}
				if res.Cost == math.MaxInt64 {
					return dberror.Newf(dberror.ErrCategoryInfeasible, dberror.CodeNoEstimate,
						"no feasible plan within %d buffers", a.cfg.TotalBuffers)
				}
				root = res.Plan
			}
			return a.execute(cmd.OutOrStdout(), q, root)
		},
	}
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "execute the plan as written")
	return cmd
}

func (a *app) optimize(root plan.Node) (*optimizer.Result, error) {
	catalog, err := statistics.NewCatalog(a.fs, a.cfg.StatsDir)
	if err != nil {
		return nil, err
	}
	defer catalog.Close()

	buffers := buffer.New(a.cfg.TotalBuffers, plan.CountJoins(root))
	model := costmodel.New(catalog, buffers, a.cfg.PageSize)
	rng := rand.New(rand.NewSource(a.cfg.Optimizer.Seed)) // #nosec G404
	return optimizer.New(model, rng, a.cfg.OptimizerParams(), nil).Optimize(root)
}

func (a *app) execute(out io.Writer, q *planfile.Query, root plan.Node) error {
	tables := make(map[string]query.TableSource, len(q.Tables))
	for name, td := range q.Tables {
		tables[name] = query.NewCSVTable(a.fs, a.cfg.DataDir, name, td)
	}

	reg := prometheus.NewRegistry()
	env := execution.NewEnv(a.cfg.PageSize, spill.NewManager(a.fs, a.cfg.TempDir, spill.NewMetrics(reg)))
	buffers := buffer.New(a.cfg.TotalBuffers, plan.CountJoins(root))

	op, err := planner.New(env, buffers, tables).Build(root)
	if err != nil {
		return err
	}

	start := time.Now()
	fmt.Fprintln(out, strings.Join(op.GetTupleDesc().FieldNames, "\t"))
	var rows int64
	err = func() (err error) {
		// Close runs even when Open fails so partially written runs are removed.
		defer func() {
			if cerr := op.Close(); err == nil {
				err = cerr
			}
		}()
		if err := op.Open(); err != nil {
			return err
		}
		return iterator.ForEach(op, func(t *tuple.Tuple) error {
			rows++
			_, err := fmt.Fprintln(out, t.String())
			return err
		})
	}()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "(%s rows)\n", humanize.Comma(rows))
	logging.Info("query finished",
		"rows", rows,
		"elapsed", time.Since(start),
		"spilled", humanize.Bytes(uint64(counterValue(reg, "qp_spill_bytes_written_total"))),
		"runs", int64(counterValue(reg, "qp_spill_runs_created_total")))
	return nil
}

// counterValue reads a counter from reg, or 0 when it is absent.
func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func tableNames(q *planfile.Query) []string {
	names := make([]string, 0, len(q.Tables))
	for name := range q.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatCost(c int64) string {
	if c == math.MaxInt64 {
		return "infeasible"
	}
	return humanize.Comma(c)
}
