// Package logging provides the process-wide structured logger of the query
// processor, a thin layer over [log/slog].
//
// Init installs the logger once at startup; until then GetLogger hands out an
// INFO text logger on stderr, so stdout stays free for query results.
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// The With helpers return child loggers carrying structured context:
//
//	log := logging.WithOperator("ExternalSort", id) // operator, instance
//	log := logging.WithRun(path)                    // run
//	log := logging.WithJoin(idx)                    // join
package logging
