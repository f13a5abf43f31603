package primitives

import "testing"

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		in   string
		want Predicate
		ok   bool
	}{
		{"=", Equals, true},
		{"<>", NotEqual, true},
		{" >= ", GreaterThanOrEqual, true},
		{"LIKE", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePredicate(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParsePredicate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestJoinMethod_RoundTrip(t *testing.T) {
	for m := JoinMethod(0); m < NumJoinMethods; m++ {
		parsed, ok := ParseJoinMethod(m.String())
		if !ok || parsed != m {
			t.Errorf("ParseJoinMethod(%q) = %v, %v", m.String(), parsed, ok)
		}
	}
	if _, ok := ParseJoinMethod("hash"); ok {
		t.Error("hash join is not an available method")
	}
}
