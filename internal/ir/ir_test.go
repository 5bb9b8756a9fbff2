package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/tangzhangming/polyc/internal/types"
)

func idEntry(name string, t types.Type) *Fun {
	return &Fun{
		Name:     name,
		TypeArgs: []types.Type{t},
		Params:   []Local{{Name: "x", Type: t}},
		Result:   t,
		Body:     Body{&Return{Value: &VarRef{Kind: VarArg, Index: 0, Name: "x", Type: t}}},
	}
}

// sampleProgram main 以两组实参调用 id
func sampleProgram() *Program {
	p := NewProgram()
	id := &Caller{Name: "id", Entries: []*Fun{idEntry("id#0", types.Int()), idEntry("id#1", types.Float())}}
	main := &Fun{
		Name:   "main",
		Kernel: true,
		Result: types.Unit(),
		Locals: []Local{{Type: types.Int()}, {Type: types.Float()}},
		Body: Body{
			&Assign{
				Dest: &VarRef{Kind: VarLocal, Index: 0, Type: types.Int()},
				Op:   &Call{Target: FunRef{Name: "id", Key: 0, Generic: true}, Args: []Value{IntConst(types.Int(), 1)}, Type: types.Int()},
			},
			&Assign{
				Dest: &VarRef{Kind: VarLocal, Index: 1, Type: types.Float()},
				Op:   &Call{Target: FunRef{Name: "id", Key: 1, Generic: true}, Args: []Value{FloatConst(types.Float(), 2)}, Type: types.Float()},
			},
			&Return{},
		},
	}
	p.Funs = append(p.Funs, main, id)
	return p
}

func TestEffects(t *testing.T) {
	e := Effects{}.WithAlloc(RegionLocal)
	if !e.Local || e.Private || e.Global || !e.Allocates() {
		t.Errorf("unexpected effects %v", e)
	}
	u := e.Union(Effects{Panic: true})
	if u.String() != "local|panic" {
		t.Errorf("expected local|panic, got %s", u)
	}
	if (Effects{}).String() != "pure" {
		t.Errorf("empty effects should be pure")
	}
	if (Effects{}).WithAlloc(RegionConstant).Allocates() {
		t.Errorf("constant storage is not an allocation")
	}
}

func TestRegionWider(t *testing.T) {
	if RegionPrivate.Wider(RegionGlobal) != RegionGlobal || RegionLocal.Wider(RegionPrivate) != RegionLocal {
		t.Errorf("Wider should pick the broader region")
	}
}

func TestParseBinaryOp(t *testing.T) {
	tests := []struct {
		text    string
		op      BinaryOp
		compare bool
	}{
		{"+", OpAdd, false},
		{"<=", OpLe, true},
		{"<<", OpShl, false},
		{"&&", OpAnd, false},
	}
	for _, tt := range tests {
		op, ok := ParseBinaryOp(tt.text)
		if !ok || op != tt.op {
			t.Errorf("%s: expected %v, got %v (%v)", tt.text, tt.op, op, ok)
		}
		if op.IsCompare() != tt.compare {
			t.Errorf("%s: IsCompare mismatch", tt.text)
		}
		if op.String() != tt.text {
			t.Errorf("%s: round trip gave %s", tt.text, op)
		}
	}
	if _, ok := ParseBinaryOp("**"); ok {
		t.Errorf("** is not an operator")
	}
}

func TestTarget(t *testing.T) {
	p := sampleProgram()
	f, ok := p.Target(FunRef{Name: "id", Key: 1, Generic: true})
	if !ok || f.Name != "id#1" {
		t.Fatalf("expected id#1, got %v", f)
	}
	if _, ok := p.Target(FunRef{Name: "id", Key: 2, Generic: true}); ok {
		t.Errorf("key 2 does not exist")
	}
	if _, ok := p.Target(FunRef{Name: "id"}); ok {
		t.Errorf("a dispatch table needs a key")
	}
	if len(p.AllFuns()) != 3 {
		t.Errorf("expected 3 concrete functions, got %d", len(p.AllFuns()))
	}
}

func TestDumpDeterministic(t *testing.T) {
	a, err := Dump(sampleProgram())
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	b, err := Dump(sampleProgram())
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("dump is not deterministic")
	}
	out := string(a)
	for _, want := range []string{`"kind": "caller"`, `"kind": "call"`, `"kind": "return"`, `"result": "Float"`, `"kind": "arg"`} {
		if !strings.Contains(out, want) {
			t.Errorf("dump should contain %s:\n%s", want, out)
		}
	}
}

func TestVerifyOK(t *testing.T) {
	if err := Verify(sampleProgram()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyDanglingAndOrphan(t *testing.T) {
	p := sampleProgram()
	main := p.Funs[0].(*Fun)
	// 第二个调用改为不存在的键：键 2 悬空，键 1 无人引用
	main.Body[1].(*Assign).Op.(*Call).Target.Key = 2

	err := Verify(p)
	if err == nil {
		t.Fatalf("expected verification errors")
	}
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %s", spew.Sdump(errs))
	}
	var ve *VerifyError
	if !errors.As(errs[0], &ve) || !strings.Contains(ve.Msg, "no target") {
		t.Errorf("first error should be the dangling key: %v", errs[0])
	}
	if !strings.Contains(errs[1].Error(), "never called") {
		t.Errorf("second error should be the orphan entry: %v", errs[1])
	}
}

func TestVerifyRejectsParams(t *testing.T) {
	p := sampleProgram()
	p.Funs = append(p.Funs, idEntry("poly", types.P(0)))
	err := Verify(p)
	if err == nil || !strings.Contains(err.Error(), "type parameters") {
		t.Errorf("expected a type parameter error, got %v", err)
	}
}

func TestVerifyRejectsCapture(t *testing.T) {
	p := sampleProgram()
	f := idEntry("lam", types.Int())
	f.Body = Body{&Return{Value: &VarRef{Kind: VarCapture, Name: "y", Type: types.Int()}}}
	p.Funs = append(p.Funs, f)
	if err := Verify(p); err == nil || !strings.Contains(err.Error(), "unconverted capture") {
		t.Errorf("expected a capture error, got %v", err)
	}
}

type countingPass struct {
	runs int
}

func (c *countingPass) Name() string { return "count" }
func (c *countingPass) Run(p *Program) (bool, error) {
	c.runs++
	return c.runs == 1, nil
}

func TestPassManager(t *testing.T) {
	pm := NewPassManager(zaptest.NewLogger(t))
	c := &countingPass{}
	pm.AddPass(c)
	pm.AddPass(VerifyPass{})

	p := sampleProgram()
	if err := pm.Run(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pm.Run(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := pm.Stats()
	if stats.PassesRun != 4 || stats.TotalChanges != 1 || stats.PerPassChanges["count"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	p.Funs = p.Funs[:1]
	if err := pm.Run(p); err == nil {
		t.Errorf("verify pass should fail once the dispatch table is gone")
	}
}

func TestWalkRefsOrder(t *testing.T) {
	a := &VarRef{Kind: VarLocal, Index: 0, Type: types.Int()}
	b := &VarRef{Kind: VarArg, Index: 1, Type: types.Int()}
	dest := &VarRef{Kind: VarLocal, Index: 2, Type: types.Int()}
	body := Body{
		&Loop{Body: Body{
			&Assign{Dest: dest, Op: &Binary{Op: OpAdd, L: a, R: b, Type: types.Int()}},
			&Break{},
		}},
	}
	var got []*VarRef
	WalkRefs(body, func(r *VarRef) { got = append(got, r) })
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != dest {
		t.Errorf("unexpected walk order %s", spew.Sdump(got))
	}
}
