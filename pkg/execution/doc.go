// Package execution is the root of the query processor's execution engine.
//
// The engine uses the iterator (volcano) model over pages: every operator
// implements [queryproc/pkg/iterator.Operator] with Open / Next / Close and
// returns one bounded page of tuples per Next call. Operators are composed into
// a tree; calling Next on the root pulls pages through the pipeline.
//
// Memory is bounded by buffer budgets counted in pages. Operators whose input
// does not fit their budget spill sorted runs or materialized inputs to disk
// through [queryproc/pkg/spill] and delete them on Close.
//
// # Sub-packages
//
//   - [queryproc/pkg/execution/extsort]     – external merge sort.
//   - [queryproc/pkg/execution/join]        – block nested-loop, nested-loop
//     and sort-merge joins.
//   - [queryproc/pkg/execution/setops]      – duplicate elimination.
//   - [queryproc/pkg/execution/aggregation] – sort-based GROUP BY.
//   - [queryproc/pkg/execution/query]       – scan, selection and projection.
package execution
