package resolve

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap/zaptest"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

func at(line int) token.Position { return token.Pos("eq.pc", line, 1) }

var eqTrait = &Trait{Name: "Eq", Ops: []string{"eq"}, Pos: at(1)}

func builtinEqInt() *Impl {
	return &Impl{Trait: "Eq", For: types.Int(), Builtin: true, Pos: at(3)}
}

// tupleEq impl<a, b> Eq for (a, b) where a: Eq, b: Eq
func tupleEq() *Impl {
	return &Impl{
		Trait:  "Eq",
		Params: []string{"a", "b"},
		For:    types.TupleOf(types.P(0), types.P(1)),
		Where: []Bound{
			{Param: 0, Trait: "Eq", Pos: at(4)},
			{Param: 1, Trait: "Eq", Pos: at(4)},
		},
		Ops: map[string]*ast.FuncDecl{"eq": {Name: "eq"}},
		Pos: at(4),
	}
}

func newResolver(t *testing.T, impls ...*Impl) *Resolver {
	t.Helper()
	r, err := New([]*Trait{eqTrait}, impls, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}
	return r
}

func TestResolveBuiltin(t *testing.T) {
	r := newResolver(t, builtinEqInt(), tupleEq())
	res, err := r.Resolve("Eq", types.Int(), at(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := res.Op("eq")
	if !ok || target.Builtin != "Eq.eq" {
		t.Errorf("builtin impl should map to Eq.eq, got %+v", target)
	}
}

func TestResolveTupleRecursively(t *testing.T) {
	r := newResolver(t, builtinEqInt(), tupleEq())
	res, err := r.Resolve("Eq", types.TupleOf(types.Int(), types.Int()), at(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Impl.Builtin || len(res.Requires) != 2 {
		t.Fatalf("unexpected resolution %s", spew.Sdump(res))
	}
	for _, sub := range res.Requires {
		if !sub.Impl.Builtin || !types.Equal(sub.Type, types.Int()) {
			t.Errorf("components should resolve to the builtin Int impl, got %s", sub.Impl.Label())
		}
	}
	if !types.EqualList(res.Args, []types.Type{types.Int(), types.Int()}) {
		t.Errorf("unexpected impl arguments %v", res.Args)
	}
	target, ok := res.Op("eq")
	if !ok || target.Decl == nil || target.Builtin != "" {
		t.Errorf("tuple impl op should be a user body, got %+v", target)
	}
}

func TestResolveMemo(t *testing.T) {
	r := newResolver(t, builtinEqInt(), tupleEq())
	pair := types.TupleOf(types.Int(), types.Int())
	first, _ := r.Resolve("Eq", pair, at(10))
	second, _ := r.Resolve("Eq", types.WithUnique(pair, true), at(11))
	if first != second {
		t.Errorf("uniqueness must not split the memo")
	}
	if r.Stats().MemoHits == 0 {
		t.Errorf("second lookup should hit the memo: %+v", r.Stats())
	}
}

func TestResolveNoImpl(t *testing.T) {
	r := newResolver(t, builtinEqInt(), tupleEq())
	_, err := r.Resolve("Eq", types.Float(), at(12))
	if !errors.HasCode(err, errors.E0500) {
		t.Fatalf("expected E0500, got %v", err)
	}
	d := errors.Diagnostics(err)[0]
	if d.Pos != at(12) {
		t.Errorf("error should be at the constraint position, got %s", d.Pos)
	}
	if !strings.Contains(d.Message, "'Eq'") || !strings.Contains(d.Message, "Float") {
		t.Errorf("message should name trait and type: %q", d.Message)
	}
	if len(d.Hints) == 0 {
		t.Errorf("expected an add-impl hint")
	}
}

func TestResolveNestedFailureHasNote(t *testing.T) {
	r := newResolver(t, builtinEqInt(), tupleEq())
	_, err := r.Resolve("Eq", types.TupleOf(types.Int(), types.Float()), at(13))
	if !errors.HasCode(err, errors.E0500) {
		t.Fatalf("expected E0500, got %v", err)
	}
	d := errors.Diagnostics(err)[0]
	if len(d.Notes) != 1 || !strings.Contains(d.Notes[0], "impl<a, b> Eq for (t1, t2)") {
		t.Errorf("expected a required-by note, got %v", d.Notes)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	blanket := &Impl{Trait: "Eq", Params: []string{"t"}, For: types.P(0), Builtin: true, Pos: at(5)}
	r := newResolver(t, builtinEqInt(), blanket)
	_, err := r.Resolve("Eq", types.Int(), at(14))
	if !errors.HasCode(err, errors.E0501) || !errors.IsFatal(err) {
		t.Fatalf("expected fatal E0501, got %v", err)
	}
	if !strings.Contains(err.Error(), "impl Eq for Int, impl<t> Eq for t1") {
		t.Errorf("candidates should be listed in declaration order: %v", err)
	}
}

func TestResolveDepthLimit(t *testing.T) {
	show := &Trait{Name: "Show", Ops: []string{"show"}}
	listShow := &Impl{
		Trait:  "Show",
		Params: []string{"t"},
		For:    types.Named("List", types.P(0)),
		Where:  []Bound{{Param: 0, Trait: "Show"}},
		Ops:    map[string]*ast.FuncDecl{"show": {Name: "show"}},
	}
	r, err := New([]*Trait{show}, []*Impl{listShow}, WithMaxDepth(2))
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	var ty types.Type = types.Int()
	for i := 0; i < 5; i++ {
		ty = types.Named("List", ty)
	}
	_, err = r.Resolve("Show", ty, at(20))
	if !errors.HasCode(err, errors.E0502) {
		t.Errorf("expected E0502, got %v", err)
	}
}

func TestNewValidatesImpls(t *testing.T) {
	missing := &Impl{Trait: "Eq", For: types.Float(), Ops: map[string]*ast.FuncDecl{}, Pos: at(6)}
	unknown := &Impl{Trait: "Ord", For: types.Int(), Builtin: true, Pos: at(7)}
	r, err := New([]*Trait{eqTrait}, []*Impl{missing, unknown})
	if !errors.HasCode(err, errors.E0503) || !errors.HasCode(err, errors.E0212) {
		t.Errorf("expected E0503 and E0212, got %v", err)
	}
	if r == nil || !r.HasTrait("Eq") || r.HasTrait("Ord") {
		t.Errorf("resolver should still be usable")
	}
}

func TestResolveRejectsParams(t *testing.T) {
	r := newResolver(t, builtinEqInt())
	_, err := r.Resolve("Eq", types.P(0), at(1))
	if !errors.HasCode(err, errors.E0900) {
		t.Errorf("expected an internal error, got %v", err)
	}
}
