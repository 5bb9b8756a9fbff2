package types

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestRender(t *testing.T) {
	four := uint32(4)
	tests := []struct {
		typ      Type
		expected string
	}{
		{Int(), "Int"},
		{PrimOf(Float32, 4), "Float32x4"},
		{PrimOf(Float64, 4), "Floatx4"},
		{Unit(), "()"},
		{TupleOf(Int(), Float()), "(Int, Float)"},
		{FunOf([]Type{Int(), BoolT()}, Float()), "(Int, Bool) -> Float"},
		{ArrayOf(CharT(), &four), "[Char; 4]"},
		{ArrayOf(P(0), nil), "[t1; _]"},
		{WithUnique(Named("Vec", Int()), true), "uniq Vec<Int>"},
		{UniqP(2), "uniq t3"},
		{Named("Pair", P(0), UniqP(1)), "Pair<t1, uniq t2>"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestSubstituteUniquenessExample(t *testing.T) {
	scheme := Named("T", Int(), P(0), UniqP(1))
	values := []Type{UniqP(3), Float()}

	got, changed, err := Substitute(scheme, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected changed result")
	}
	if got.String() != "T<Int, uniq t4, uniq Float>" {
		t.Errorf("unexpected rendering %q", got.String())
	}
}

func TestSubstituteUniquenessOr(t *testing.T) {
	tests := []struct {
		occurrence bool
		value      bool
		expected   bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}

	for _, tt := range tests {
		occ := &Param{Uniq: tt.occurrence, Index: 0}
		val := WithUnique(Int(), tt.value)
		got, _, err := Substitute(occ, []Type{val})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Unique() != tt.expected {
			t.Errorf("occurrence=%v value=%v: expected unique=%v, got %s",
				tt.occurrence, tt.value, tt.expected, got)
		}
	}
}

func TestSubstituteUnchanged(t *testing.T) {
	concrete := []Type{
		Int(),
		TupleOf(Int(), Named("List", Float())),
		FunOf([]Type{CharT()}, BoolT()),
	}
	for _, c := range concrete {
		got, changed, err := Substitute(c, []Type{Float()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if changed {
			t.Errorf("expected unchanged for %s", c)
		}
		if got != c {
			t.Errorf("expected same value back for %s", c)
		}
		// 空替换向量同样不变
		if _, changed, err := Substitute(c, nil); err != nil || changed {
			t.Errorf("expected unchanged with empty vector for %s (err=%v)", c, err)
		}
	}
}

func TestSubstituteIdentityRoundTrip(t *testing.T) {
	scheme := FunOf([]Type{P(0), Named("Box", UniqP(1))}, TupleOf(P(1), P(0)))
	values := []Type{Named("List", UniqP(2)), UniqP(0)}

	first, _, err := Substitute(scheme, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, changed, err := Substitute(first, Identity(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Errorf("identity substitution reported a change: %s -> %s", first, again)
	}
	if !Equal(first, again) {
		t.Errorf("identity substitution altered type:\n%s", spew.Sdump(first, again))
	}
}

func TestSubstituteIndexOutOfRange(t *testing.T) {
	_, _, err := Substitute(TupleOf(Int(), P(2)), []Type{Int(), Float()})
	if err == nil {
		t.Fatal("expected index error")
	}
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	var ie *IndexError
	if !errors.As(err, &ie) || ie.Index != 2 || ie.Len != 2 {
		t.Errorf("unexpected index error %#v", err)
	}
}

func TestEqualAndKey(t *testing.T) {
	a := Named("Pair", Int(), UniqP(0))
	b := Named("Pair", Int(), UniqP(0))
	c := Named("Pair", Int(), P(0))

	if !Equal(a, b) {
		t.Errorf("expected %s == %s", a, b)
	}
	if Equal(a, c) {
		t.Errorf("uniqueness must take part in equality: %s vs %s", a, c)
	}
	if Key([]Type{a, Int()}) != Key([]Type{b, Int()}) {
		t.Errorf("equal tuples must share a key")
	}
	if Key([]Type{a}) == Key([]Type{c}) {
		t.Errorf("distinct tuples must not share a key")
	}
}

func TestMatch(t *testing.T) {
	pattern := FunOf([]Type{P(0), Named("List", P(0))}, UniqP(1))
	actual := FunOf([]Type{Int(), Named("List", Int())}, WithUnique(Float(), true))

	bindings := make([]Type, 2)
	if err := Match(pattern, actual, bindings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(bindings[0], Int()) {
		t.Errorf("t1 bound to %s", bindings[0])
	}
	// uniq 出现处绑定去掉 uniq 的值
	if !Equal(bindings[1], Float()) {
		t.Errorf("t2 bound to %s", bindings[1])
	}

	back, _, err := Substitute(pattern, bindings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(back, actual) {
		t.Errorf("substituting bindings should rebuild actual, got %s", back)
	}
}

func TestMatchConflict(t *testing.T) {
	pattern := TupleOf(P(0), P(0))
	bindings := make([]Type, 1)
	err := Match(pattern, TupleOf(Int(), Float()), bindings)
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestMatchSharesUniqueness(t *testing.T) {
	u := WithUnique(Int(), true)
	tests := []struct {
		name    string
		pattern Type
		actual  Type
		want    Type
	}{
		{"unique then shared", TupleOf(P(0), P(0)), TupleOf(u, Int()), Int()},
		{"shared then unique", TupleOf(P(0), P(0)), TupleOf(Int(), u), Int()},
		{"both unique", TupleOf(P(0), P(0)), TupleOf(u, u), u},
		{"uniq occurrence then unique", TupleOf(UniqP(0), P(0)), TupleOf(u, u), Int()},
		{
			"nested",
			TupleOf(P(0), P(0)),
			TupleOf(TupleOf(u, Float()), WithUnique(TupleOf(u, Float()), true)),
			TupleOf(u, Float()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bindings := make([]Type, 1)
			if err := Match(tt.pattern, tt.actual, bindings); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Equal(bindings[0], tt.want) {
				t.Errorf("t1 bound to %s, want %s", bindings[0], tt.want)
			}
			back, _, err := Substitute(tt.pattern, bindings)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Assignable(tt.actual, back) {
				t.Errorf("%s should be usable as %s", tt.actual, back)
			}
		})
	}
}

func TestApplyPartialBindings(t *testing.T) {
	got := Apply(TupleOf(P(0), UniqP(1)), []Type{Int(), nil})
	if got.String() != "(Int, uniq t2)" {
		t.Errorf("unexpected rendering %s", got)
	}
}

func TestSize(t *testing.T) {
	if n := Size(TupleOf(Int(), Named("Box", P(0))), 100); n != 4 {
		t.Errorf("expected 4 nodes, got %d", n)
	}
	// 60 层共享的 (x, x) 展开后约 2^61 个节点
	x := Int()
	for i := 0; i < 60; i++ {
		x = TupleOf(x, x)
	}
	if n := Size(x, 1024); n != 1025 {
		t.Errorf("expected saturation at 1025, got %d", n)
	}
	if n := Size(x, 1<<40); n != 1<<40+1 {
		t.Errorf("expected saturation at 2^40+1, got %d", n)
	}
}

func TestMatchUniqueRequired(t *testing.T) {
	bindings := make([]Type, 1)
	if err := Match(UniqP(0), Int(), bindings); err == nil {
		t.Errorf("non-unique value must not match a uniq occurrence")
	}
}

func TestShape(t *testing.T) {
	three := uint32(3)
	tests := []struct {
		typ      Type
		expected string
	}{
		{Int(), "Int"},
		{TupleOf(Int(), Int()), "Tuple(2)"},
		{FunOf([]Type{Int()}, Int()), "Fun(1)"},
		{ArrayOf(Int(), &three), "Array(Some)"},
		{ArrayOf(Int(), nil), "Array(None)"},
		{Named("Point"), "Point"},
	}
	for _, tt := range tests {
		s, ok := ShapeOf(tt.typ)
		if !ok {
			t.Fatalf("no shape for %s", tt.typ)
		}
		if s.String() != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, s)
		}
	}
	if _, ok := ShapeOf(P(0)); ok {
		t.Errorf("parameters have no shape")
	}
}

func TestLookupPrim(t *testing.T) {
	if p, ok := LookupPrim("Floatx4"); !ok || p.Scalar != Float64 || p.Width != 4 {
		t.Errorf("Floatx4 lookup failed: %v %v", p, ok)
	}
	if _, ok := LookupPrim("Boolx4"); ok {
		t.Errorf("Bool has no vector forms")
	}
	if p, ok := LookupPrim("Int"); !ok || p.Scalar != Int64 {
		t.Errorf("Int lookup failed")
	}
}
