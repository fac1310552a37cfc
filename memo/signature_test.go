package memo

import "testing"

func TestSignature_Deterministic(t *testing.T) {
	a := NewSignature([]any{1, "two", 3.5}, map[string]any{"x": 1, "y": "z"})
	b := NewSignature([]any{1, "two", 3.5}, map[string]any{"y": "z", "x": 1})

	if a != b {
		t.Errorf("same arguments produced different signatures: %v vs %v", a, b)
	}
}

func TestSignature_DistinguishesValues(t *testing.T) {
	a := NewSignature([]any{1}, nil)
	b := NewSignature([]any{2}, nil)

	if a == b {
		t.Errorf("f(1) and f(2) collided: %v", a)
	}
}

func TestSignature_DistinguishesTypes(t *testing.T) {
	// The type prefix keeps 1 and "1" apart even though they render the
	// same as bare literals.
	a := NewSignature([]any{1}, nil)
	b := NewSignature([]any{"1"}, nil)

	if a == b {
		t.Errorf("f(1) and f(%q) collided: %v", "1", a)
	}

	c := NewSignature([]any{int64(1)}, nil)
	if a == c {
		t.Errorf("f(int(1)) and f(int64(1)) collided: %v", a)
	}
}

func TestSignature_PositionalAndKeywordNeverCollide(t *testing.T) {
	// f(1) and f(a=1) occupy different fields of the signature.
	pos := NewSignature([]any{1}, nil)
	kw := NewSignature(nil, map[string]any{"a": 1})

	if pos == kw {
		t.Errorf("positional and keyword calls collided: %v", pos)
	}
	if pos.Args == kw.Args && pos.Kwargs == kw.Kwargs {
		t.Error("signatures share both fields")
	}
}

func TestSignature_MapArgumentsStable(t *testing.T) {
	// fmt prints map keys sorted, so map-valued arguments stay stable.
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}

	a := NewSignature([]any{m1}, nil)
	b := NewSignature([]any{m2}, nil)
	if a != b {
		t.Errorf("equal maps produced different signatures: %v vs %v", a, b)
	}
}

func TestSignature_EmptyCall(t *testing.T) {
	sig := NewSignature(nil, nil)
	if sig.Args != "()" || sig.Kwargs != "{}" {
		t.Errorf("empty call signature = %+v, want ()/{}", sig)
	}
}
