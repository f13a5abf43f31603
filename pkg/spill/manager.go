package spill

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/logging"
	"queryproc/pkg/tuple"
)

const component = "Spill"

// Manager creates, opens and deletes run files under one directory of an
// afero filesystem. A Manager may be shared by all operators of a query: run
// names are unique per operator instance (see Namer).
type Manager struct {
	fs      afero.Fs
	dir     string
	metrics *Metrics
}

// NewManager creates a manager writing under dir on fs. A nil metrics value
// selects unregistered counters.
func NewManager(fs afero.Fs, dir string, metrics *Metrics) *Manager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Manager{fs: fs, dir: dir, metrics: metrics}
}

// NewOsManager spills to dir on the local filesystem.
func NewOsManager(dir string, metrics *Metrics) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return NewManager(afero.NewOsFs(), dir, metrics)
}

// NewMemManager spills to an in-memory filesystem.
func NewMemManager() *Manager {
	return NewManager(afero.NewMemMapFs(), "/spill", nil)
}

func (m *Manager) Fs() afero.Fs { return m.fs }

func (m *Manager) Dir() string { return m.dir }

func (m *Manager) Metrics() *Metrics { return m.metrics }

// List returns the paths of all run files currently present.
func (m *Manager) List() ([]string, error) {
	return afero.Glob(m.fs, filepath.Join(m.dir, "*.run"))
}

// Namer generates run file names for one operator instance:
// <prefix>-<instance uuid>-r<round>-<seq>.run
type Namer struct {
	prefix string
	id     uuid.UUID
	seq    int
}

// NewNamer creates a namer with a fresh instance id.
func (m *Manager) NewNamer(prefix string) *Namer {
	return &Namer{prefix: prefix, id: uuid.New()}
}

// ID returns the instance id embedded in every generated name.
func (n *Namer) ID() string {
	return n.id.String()
}

// Next returns a new unique name for a run of the given merge round.
func (n *Namer) Next(round int) string {
	n.seq++
	return fmt.Sprintf("%s-%s-r%d-%d.run", n.prefix, n.id, round, n.seq)
}

// Create opens a new run file called name for writing pages of td.
func (m *Manager) Create(name string, td *tuple.TupleDescription, capacity int) (*Writer, error) {
	if err := m.fs.MkdirAll(m.dir, 0o750); err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "CreateRun", component)
	}

	path := filepath.Join(m.dir, name)
	f, err := m.fs.Create(path)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "CreateRun", component)
	}

	m.metrics.RunsCreated.Inc()
	return newWriter(m, f, &Run{Path: path, desc: td, capacity: capacity}), nil
}

// Open returns a reader positioned at the first page of run.
func (m *Manager) Open(run *Run) (*Reader, error) {
	f, err := m.fs.Open(run.Path)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "OpenRun", component)
	}
	return newReader(m, f, run), nil
}

// Remove deletes the file of run. Removing a run twice is not an error.
func (m *Manager) Remove(run *Run) error {
	if run == nil {
		return nil
	}
	if err := m.fs.Remove(run.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "RemoveRun", component)
	}
	m.metrics.RunsRemoved.Inc()
	logging.WithRun(run.Path).Debug("run removed", "pages", run.Pages)
	return nil
}

// WriteRun writes pages as one complete run file.
func (m *Manager) WriteRun(name string, td *tuple.TupleDescription, capacity int, pages []*tuple.Page) (*Run, error) {
	w, err := m.Create(name, td, capacity)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if err := w.WritePage(p); err != nil {
			_ = w.Abort()
			return nil, err
		}
	}
	return w.Finish()
}
