package canon

import "testing"

func TestMarshalSortsObjectKeys(t *testing.T) {
	in := map[string]interface{}{"z": 1, "a": 2, "m": 3}
	out, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a":2,"m":3,"z":1}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalPreservesArrayOrder(t *testing.T) {
	in := []string{"c", "a", "b"}
	out, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `["c","a","b"]`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalNestedObjectsSortRecursively(t *testing.T) {
	type inner struct {
		Zeta  int `json:"zeta"`
		Alpha int `json:"alpha"`
	}
	type outer struct {
		Beta  inner `json:"beta"`
		Alpha int   `json:"alpha"`
	}
	out, err := Marshal(outer{Beta: inner{Zeta: 1, Alpha: 2}, Alpha: 9})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"alpha":9,"beta":{"alpha":2,"zeta":1}}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalIsDeterministicAcrossEquivalentInputs(t *testing.T) {
	a := map[string]interface{}{"x": 1, "y": []interface{}{1, 2, 3}}
	b := map[string]interface{}{"y": []interface{}{1, 2, 3}, "x": 1}
	outA, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal a: %v", err)
	}
	outB, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal b: %v", err)
	}
	if string(outA) != string(outB) {
		t.Fatalf("expected byte-equal canonicalization, got %s vs %s", outA, outB)
	}
}

func TestMarshalPreservesNumberFormatting(t *testing.T) {
	out, err := Marshal(map[string]interface{}{"v": 100.0})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"v":100}` {
		t.Fatalf("got %s", out)
	}
}

func TestCanonicalizeRejectsInvalidJSON(t *testing.T) {
	if _, err := Canonicalize([]byte("{not json")); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
