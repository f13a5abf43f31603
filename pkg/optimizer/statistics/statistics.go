// Package statistics reads, caches and computes table statistics: the tuple
// count of a table and the number of distinct values of each attribute.
//
// A statistics file <table>.stat has two lines:
//
//	<tuple count>
//	<distinct count of field 0> <distinct count of field 1> ...
package statistics

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/spf13/afero"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution/query"
	"queryproc/pkg/logging"
	"queryproc/pkg/primitives"
)

const component = "Statistics"

// TableStats are the statistics of one base table.
type TableStats struct {
	Tuples   int64
	Distinct []int64 // one entry per schema field, in schema order
}

// Parse reads statistics for a table of numFields fields.
func Parse(r io.Reader, numFields int) (*TableStats, error) {
	sc := bufio.NewScanner(r)

	line, ok := nextLine(sc)
	if !ok {
		return nil, malformed("missing tuple count")
	}
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return nil, malformed("first line must hold only the tuple count, got %q", line)
	}
	tuples, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || tuples < 0 {
		return nil, malformed("invalid tuple count %q", fields[0])
	}

	line, ok = nextLine(sc)
	if !ok {
		return nil, malformed("missing distinct counts")
	}
	fields = strings.Fields(line)
	if len(fields) != numFields {
		return nil, malformed("expected %d distinct counts, got %d", numFields, len(fields))
	}

	stats := &TableStats{Tuples: tuples, Distinct: make([]int64, numFields)}
	for i, f := range fields {
		d, err := strconv.ParseInt(f, 10, 64)
		if err != nil || d < 0 {
			return nil, malformed("invalid distinct count %q for field %d", f, i)
		}
		stats.Distinct[i] = d
	}
	if err := sc.Err(); err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeStatsMissing, "ParseStats", component)
	}
	return stats, nil
}

func nextLine(sc *bufio.Scanner) (string, bool) {
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

func malformed(format string, args ...any) error {
	return dberror.Newf(dberror.ErrCategoryFormat, dberror.CodeStatsMalformed, format, args...)
}

// Write renders stats in the file format Parse reads.
func Write(w io.Writer, stats *TableStats) error {
	parts := make([]string, len(stats.Distinct))
	for i, d := range stats.Distinct {
		parts[i] = strconv.FormatInt(d, 10)
	}
	_, err := fmt.Fprintf(w, "%d\n%s\n", stats.Tuples, strings.Join(parts, " "))
	return err
}

// Compute scans a table and counts its tuples and the distinct values of
// every field.
func Compute(table query.TableSource) (*TableStats, error) {
	td := table.TupleDesc()
	seen := make([]map[primitives.HashCode]struct{}, td.NumFields())
	for i := range seen {
		seen[i] = make(map[primitives.HashCode]struct{})
	}

	r, err := table.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stats := &TableStats{Distinct: make([]int64, td.NumFields())}
	for {
		t, err := r.Read()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		stats.Tuples++
		for i := range seen {
			h, err := t.Field(primitives.ColumnID(i)).Hash() // #nosec G115
			if err != nil {
				return nil, err
			}
			seen[i][h] = struct{}{}
		}
	}

	for i, s := range seen {
		stats.Distinct[i] = int64(len(s))
	}
	return stats, nil
}

// Catalog loads statistics files from one directory and caches them, so the
// thousands of plans costed by one optimization read each file once.
type Catalog struct {
	fs    afero.Fs
	dir   string
	cache *ristretto.Cache[string, *TableStats]
}

// NewCatalog creates a catalog over dir on fs.
func NewCatalog(fs afero.Fs, dir string) (*Catalog, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *TableStats]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Catalog{fs: fs, dir: dir, cache: cache}, nil
}

// Path returns the statistics file of table.
func (c *Catalog) Path(table string) string {
	return filepath.Join(c.dir, table+".stat")
}

// Table returns the statistics of table, whose schema has numFields fields.
// A missing file is a resource error, a malformed one a format error.
func (c *Catalog) Table(table string, numFields int) (*TableStats, error) {
	if stats, ok := c.cache.Get(table); ok && len(stats.Distinct) == numFields {
		return stats, nil
	}

	f, err := c.fs.Open(c.Path(table))
	if err != nil {
		return nil, dberror.NewWithCause(dberror.ErrCategoryResource, dberror.CodeStatsMissing, err,
			"no statistics for table %s", table)
	}
	defer f.Close()

	stats, err := Parse(f, numFields)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryFormat, dberror.CodeStatsMalformed, "LoadStats", table)
	}

	c.cache.Set(table, stats, int64(8*(1+len(stats.Distinct))))
	c.cache.Wait()
	logging.WithTable(table).Debug("statistics loaded", "tuples", stats.Tuples)
	return stats, nil
}

// Save writes stats as the statistics file of table and replaces any cached
// copy.
func (c *Catalog) Save(table string, stats *TableStats) error {
	if err := c.fs.MkdirAll(c.dir, 0o750); err != nil {
		return dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeStatsMissing, "SaveStats", table)
	}
	f, err := c.fs.Create(c.Path(table))
	if err != nil {
		return dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeStatsMissing, "SaveStats", table)
	}
	err = Write(f, stats)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeStatsMissing, "SaveStats", table)
	}
	c.cache.Del(table)
	return nil
}

// Close releases the cache.
func (c *Catalog) Close() {
	c.cache.Close()
}
