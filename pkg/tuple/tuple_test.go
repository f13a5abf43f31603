package tuple

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"queryproc/pkg/primitives"
	"queryproc/pkg/types"
)

func createTestTupleDesc() *TupleDescription {
	return MustSchema(
		FieldDesc{Name: "R.id", Type: types.IntType, PrimaryKey: true},
		FieldDesc{Name: "R.name", Type: types.StringType, Width: 8},
		FieldDesc{Name: "R.score", Type: types.FloatType},
	)
}

func createTestTuple(t *testing.T, td *TupleDescription, id int64, name string, score float64) *Tuple {
	t.Helper()
	tup, err := NewBuilder(td).AddInt(id).AddString(name).AddFloat(score).Build()
	if err != nil {
		t.Fatalf("build tuple: %v", err)
	}
	return tup
}

// ============================================================================
// TupleDescription
// ============================================================================

func TestTupleDescription_Sizes(t *testing.T) {
	td := createTestTupleDesc()

	if got := td.GetSize(); got != 8+12+8 {
		t.Errorf("GetSize() = %d, want 28", got)
	}
	if td.PrimaryKeyIndex() != 0 {
		t.Errorf("PrimaryKeyIndex() = %d, want 0", td.PrimaryKeyIndex())
	}
}

func TestTupleDescription_FindFieldIndex(t *testing.T) {
	left := createTestTupleDesc()
	right := MustSchema(FieldDesc{Name: "S.id", Type: types.IntType}, FieldDesc{Name: "S.tag", Type: types.StringType})
	joined := Combine(left, right)

	tests := []struct {
		name    string
		field   string
		want    int
		wantErr bool
	}{
		{"qualified left", "R.id", 0, false},
		{"qualified right", "S.id", 3, false},
		{"bare unique", "tag", 4, false},
		{"bare ambiguous", "id", -1, true},
		{"missing", "T.x", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := joined.FindFieldIndex(tt.field)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindFieldIndex(%q) err = %v, wantErr %v", tt.field, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FindFieldIndex(%q) = %d, want %d", tt.field, got, tt.want)
			}
		})
	}
}

func TestTupleDescription_ProjectKeepsWidths(t *testing.T) {
	td := createTestTupleDesc()
	p, err := td.Project([]primitives.ColumnID{1})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.NumFields() != 1 || p.FieldSize(0) != 12 {
		t.Errorf("projected schema = %v (size %d)", p, p.GetSize())
	}

	if _, err := td.Project([]primitives.ColumnID{5}); err == nil {
		t.Error("expected out-of-range projection to fail")
	}
}

// ============================================================================
// Tuple
// ============================================================================

func TestNewTuple_Validation(t *testing.T) {
	td := createTestTupleDesc()

	if _, err := NewTuple(td, types.NewIntField(1)); err == nil {
		t.Error("expected arity error")
	}
	if _, err := NewBuilder(td).AddString("x").Build(); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestCombineAndProject(t *testing.T) {
	td := createTestTupleDesc()
	a := createTestTuple(t, td, 1, "alice", 1.5)
	b := createTestTuple(t, td, 2, "bob", 2.5)

	joined, err := CombineTuples(a, b, nil)
	if err != nil {
		t.Fatalf("CombineTuples: %v", err)
	}
	if joined.NumFields() != 6 {
		t.Fatalf("joined arity = %d", joined.NumFields())
	}
	if joined.String() != "1\talice\t1.5\t2\tbob\t2.5" {
		t.Errorf("joined = %q", joined.String())
	}

	ptd, _ := joined.TupleDesc.Project([]primitives.ColumnID{3, 1})
	p, err := joined.Project([]primitives.ColumnID{3, 1}, ptd)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.String() != "2\talice" {
		t.Errorf("projected = %q", p.String())
	}
}

// ============================================================================
// Page
// ============================================================================

func TestPage_Capacity(t *testing.T) {
	td := createTestTupleDesc()
	if got := PageCapacity(100, td); got != 3 {
		t.Errorf("PageCapacity(100) = %d, want 3", got)
	}
	if got := PageCapacity(10, td); got != 1 {
		t.Errorf("PageCapacity(10) = %d, want 1", got)
	}

	page := NewPage(2)
	tup := createTestTuple(t, td, 1, "a", 0)
	if err := page.Add(tup); err != nil {
		t.Fatal(err)
	}
	if err := page.Add(tup); err != nil {
		t.Fatal(err)
	}
	if !page.IsFull() {
		t.Error("page should be full")
	}
	if err := page.Add(tup); !errors.Is(err, ErrPageFull) {
		t.Errorf("Add on full page = %v, want ErrPageFull", err)
	}
}

func TestPack(t *testing.T) {
	td := createTestTupleDesc()
	var tuples []*Tuple
	for i := 0; i < 5; i++ {
		tuples = append(tuples, createTestTuple(t, td, int64(i), "x", 0))
	}

	pages := Pack(tuples, 2)
	if len(pages) != 3 {
		t.Fatalf("Pack produced %d pages, want 3", len(pages))
	}
	if pages[2].Len() != 1 {
		t.Errorf("last page has %d tuples, want 1", pages[2].Len())
	}
}

// ============================================================================
// Comparator
// ============================================================================

func TestComparator(t *testing.T) {
	td := createTestTupleDesc()
	a := createTestTuple(t, td, 1, "b", 1)
	b := createTestTuple(t, td, 1, "a", 2)

	byID := NewComparator(Ascending(0))
	if byID.Compare(a, b) != 0 {
		t.Error("tuples should tie on id")
	}

	byIDName := NewComparator(Ascending(0, 1))
	if byIDName.Compare(a, b) <= 0 {
		t.Error("a should sort after b on (id, name)")
	}

	desc := NewComparator([]SortKey{{Field: 2, Descending: true}})
	if desc.Compare(a, b) <= 0 {
		t.Error("descending score should put b first")
	}

	if CompareOn(a, []primitives.ColumnID{2}, b, []primitives.ColumnID{0}) != 0 {
		t.Error("a.score (1.0) should equal b.id (1)")
	}
}

// ============================================================================
// Codec
// ============================================================================

func TestPageCodec_RoundTrip(t *testing.T) {
	td := createTestTupleDesc()
	page := NewPage(4)
	_ = page.Add(createTestTuple(t, td, 7, "seven", 7.5))
	_ = page.Add(createTestTuple(t, td, -1, "", 0))
	// A string built with a foreign width is re-encoded to the column width.
	odd, _ := NewTuple(td, types.NewIntField(3), types.NewStringField("wide", 64), types.NewFloatField(3))
	_ = page.Add(odd)

	var buf bytes.Buffer
	if err := WritePage(&buf, page); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := WritePage(&buf, NewPage(4)); err != nil {
		t.Fatalf("WritePage empty: %v", err)
	}

	got, err := ReadPage(&buf, td, 4)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("decoded %d tuples, want 3", got.Len())
	}
	for i := 0; i < page.Len(); i++ {
		if !got.Get(i).Equals(page.Get(i)) {
			t.Errorf("tuple %d = %v, want %v", i, got.Get(i), page.Get(i))
		}
	}

	empty, err := ReadPage(&buf, td, 4)
	if err != nil || !empty.IsEmpty() {
		t.Fatalf("empty page = %v, %v", empty, err)
	}

	if _, err := ReadPage(&buf, td, 4); err != io.EOF {
		t.Errorf("ReadPage at end = %v, want io.EOF", err)
	}
}

func TestPageCodec_Truncated(t *testing.T) {
	td := createTestTupleDesc()
	page := NewPage(1)
	_ = page.Add(createTestTuple(t, td, 1, "a", 1))

	var buf bytes.Buffer
	_ = WritePage(&buf, page)
	data := buf.Bytes()[:buf.Len()-3]

	if _, err := ReadPage(bytes.NewReader(data), td, 1); err != io.ErrUnexpectedEOF {
		t.Errorf("truncated page error = %v, want io.ErrUnexpectedEOF", err)
	}
}
