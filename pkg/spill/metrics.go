package spill

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts spill activity. Counters are registered with the registerer
// given to NewMetrics; a nil registerer leaves them unregistered.
type Metrics struct {
	RunsCreated  prometheus.Counter
	RunsRemoved  prometheus.Counter
	PagesWritten prometheus.Counter
	PagesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	MergeRounds  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "qp",
			Subsystem: "spill",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		RunsCreated:  counter("runs_created_total", "Run files created."),
		RunsRemoved:  counter("runs_removed_total", "Run files deleted."),
		PagesWritten: counter("pages_written_total", "Pages written to run files."),
		PagesRead:    counter("pages_read_total", "Pages read back from run files."),
		BytesWritten: counter("bytes_written_total", "Bytes written to run files."),
		MergeRounds:  counter("merge_rounds_total", "External sort merge rounds."),
	}
}
