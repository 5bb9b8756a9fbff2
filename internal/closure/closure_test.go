package closure

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap/zaptest"

	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

func local(idx uint32, name string, region ir.Region, t types.Type) *ir.VarRef {
	return &ir.VarRef{Kind: ir.VarLocal, Region: region, Index: idx, Name: name, Type: t}
}

func captureRef(outer *ir.VarRef) *ir.VarRef {
	cp := *outer
	return &ir.VarRef{Kind: ir.VarCapture, Region: outer.Region, Name: outer.Name, Type: outer.Type, Outer: &cp}
}

// program main 中有 x（region 给定）与 y，lambda 依次读取 x、y、x
func program(xRegion ir.Region, hint *ir.Region) (*ir.Program, *ir.MakeClosure, *ir.Fun) {
	x := local(0, "x", xRegion, types.Int())
	y := local(1, "y", ir.RegionPrivate, types.Float())
	sig := types.FunOf(nil, types.Int())

	lambda := &ir.Fun{
		Name:   "main$lambda0",
		Lambda: true,
		Result: types.Int(),
		Body: ir.Body{
			&ir.Do{Op: &ir.Load{Src: captureRef(x)}},
			&ir.Do{Op: &ir.Load{Src: captureRef(y)}},
			&ir.Return{Value: captureRef(x)},
		},
	}
	mk := &ir.MakeClosure{Fun: lambda.Name, Type: sig, Pos: token.Pos("c.pc", 3, 9)}
	if hint != nil {
		mk.Region, mk.Hinted = *hint, true
	}
	f := local(2, "f", ir.RegionPrivate, sig)
	f.Kind = ir.VarClosureLocal
	callee := *f
	main := &ir.Fun{
		Name:   "main",
		Kernel: true,
		Result: types.Unit(),
		Locals: []ir.Local{
			{Name: "x", Type: types.Int(), Region: xRegion},
			{Name: "y", Type: types.Float()},
			{Name: "f", Type: sig},
		},
		Body: ir.Body{
			&ir.Assign{Dest: f, Op: mk},
			&ir.Do{Op: &ir.CallClosure{Closure: &callee, Type: types.Int()}},
			&ir.Return{},
		},
	}
	p := ir.NewProgram()
	p.Funs = append(p.Funs, lambda, main)
	return p, mk, lambda
}

func TestConvertCaptures(t *testing.T) {
	p, mk, lambda := program(ir.RegionLocal, nil)
	changed, err := NewPass(zaptest.NewLogger(t)).Run(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Errorf("pass should report a change")
	}

	env, ok := p.Struct("main$lambda0$env.local")
	if !ok {
		t.Fatalf("env record missing: %s", spew.Sdump(p.Structs))
	}
	if !env.Env || env.Region != ir.RegionLocal || len(env.Fields) != 2 {
		t.Errorf("unexpected env record %+v", env)
	}
	if env.Fields[0].Name != "x" || env.Fields[1].Name != "y" {
		t.Errorf("fields should follow first use: %+v", env.Fields)
	}
	if lambda.Env != env.Name || mk.Env != env.Name || mk.Region != ir.RegionLocal {
		t.Errorf("closure not linked to env: fun=%q mk=%+v", lambda.Env, mk)
	}
	if len(mk.Captures) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(mk.Captures))
	}
	if ref := mk.Captures[0].(*ir.VarRef); ref.Kind != ir.VarLocal || ref.Index != 0 {
		t.Errorf("capture should be main's x, got %s", ref)
	}

	var fields []uint32
	ir.WalkRefs(lambda.Body, func(ref *ir.VarRef) {
		if ref.Kind != ir.VarEnvField || ref.Outer != nil || ref.Region != ir.RegionLocal {
			t.Errorf("capture not rewritten: %+v", ref)
		}
		fields = append(fields, ref.Index)
	})
	if len(fields) != 3 || fields[0] != 0 || fields[1] != 1 || fields[2] != 0 {
		t.Errorf("unexpected env field indices %v", fields)
	}

	main, _ := p.Lookup("main")
	if r := main.(*ir.Fun).Locals[2].Region; r != ir.RegionLocal {
		t.Errorf("closure local should live in the env region, got %s", r)
	}
	call := main.(*ir.Fun).Body[1].(*ir.Do).Op.(*ir.CallClosure)
	if call.Region != ir.RegionLocal {
		t.Errorf("closure call should use the closure region, got %s", call.Region)
	}
	if err := ir.Verify(p); err != nil {
		t.Errorf("converted program should verify: %v", err)
	}
}

func TestConvertHintWidens(t *testing.T) {
	global := ir.RegionGlobal
	p, mk, _ := program(ir.RegionPrivate, &global)
	if _, err := NewPass(nil).Run(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mk.Region != ir.RegionGlobal || mk.Env != "main$lambda0$env.global" {
		t.Errorf("hint should widen the env region: %+v", mk)
	}
}

func TestConvertHintTooNarrow(t *testing.T) {
	private := ir.RegionPrivate
	p, _, _ := program(ir.RegionGlobal, &private)
	_, err := NewPass(nil).Run(p)
	if !errors.HasCode(err, errors.E0214) {
		t.Fatalf("expected E0214, got %v", err)
	}
	d := errors.Diagnostics(err)[0]
	if d.Pos != token.Pos("c.pc", 3, 9) {
		t.Errorf("error should point at the lambda, got %s", d.Pos)
	}
	if len(d.Hints) == 0 {
		t.Errorf("expected a region hint")
	}
}

func TestConvertNoCaptures(t *testing.T) {
	lambda := &ir.Fun{Name: "k$lambda0", Lambda: true, Result: types.Unit(), Body: ir.Body{&ir.Return{}}}
	mk := &ir.MakeClosure{Fun: lambda.Name, Type: types.FunOf(nil, types.Unit())}
	dest := local(0, "", ir.RegionPrivate, mk.Type)
	dest.Kind = ir.VarClosureLocal
	k := &ir.Fun{
		Name:   "k",
		Result: types.Unit(),
		Locals: []ir.Local{{Type: mk.Type}},
		Body:   ir.Body{&ir.Assign{Dest: dest, Op: mk}, &ir.Return{}},
	}
	p := ir.NewProgram()
	p.Funs = append(p.Funs, lambda, k)

	if _, err := NewPass(nil).Run(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, ok := p.Struct("k$lambda0$env.private")
	if !ok || len(env.Fields) != 0 {
		t.Errorf("an empty env record should still be emitted: %s", spew.Sdump(p.Structs))
	}
	if len(mk.Captures) != 0 {
		t.Errorf("unexpected captures %v", mk.Captures)
	}
}

func TestConvertNested(t *testing.T) {
	// main { x; outer = || { inner = || x } }
	x := local(0, "x", ir.RegionLocal, types.Int())
	innerSig := types.FunOf(nil, types.Int())

	inner := &ir.Fun{
		Name:   "main$lambda0$lambda0",
		Lambda: true,
		Result: types.Int(),
	}
	outerCapture := captureRef(x)
	inner.Body = ir.Body{&ir.Return{Value: captureRef(outerCapture)}}

	innerMk := &ir.MakeClosure{Fun: inner.Name, Type: innerSig}
	innerDest := local(0, "", ir.RegionPrivate, innerSig)
	innerDest.Kind = ir.VarClosureLocal
	outer := &ir.Fun{
		Name:   "main$lambda0",
		Lambda: true,
		Result: types.Unit(),
		Locals: []ir.Local{{Type: innerSig}},
		Body:   ir.Body{&ir.Assign{Dest: innerDest, Op: innerMk}, &ir.Return{}},
	}
	outerSig := types.FunOf(nil, types.Unit())
	outerMk := &ir.MakeClosure{Fun: outer.Name, Type: outerSig}
	outerDest := local(1, "", ir.RegionPrivate, outerSig)
	outerDest.Kind = ir.VarClosureLocal
	main := &ir.Fun{
		Name:   "main",
		Result: types.Unit(),
		Locals: []ir.Local{{Name: "x", Type: types.Int(), Region: ir.RegionLocal}, {Type: outerSig}},
		Body:   ir.Body{&ir.Assign{Dest: outerDest, Op: outerMk}, &ir.Return{}},
	}
	p := ir.NewProgram()
	p.Funs = append(p.Funs, inner, outer, main)

	if _, err := NewPass(zaptest.NewLogger(t)).Run(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(innerMk.Captures) != 1 {
		t.Fatalf("inner closure should capture x: %s", spew.Sdump(innerMk))
	}
	if ref := innerMk.Captures[0].(*ir.VarRef); ref.Kind != ir.VarEnvField || ref.Index != 0 {
		t.Errorf("inner capture should come from the outer env, got %s", ref)
	}
	if len(outerMk.Captures) != 1 {
		t.Fatalf("outer closure should forward x: %s", spew.Sdump(outerMk))
	}
	if ref := outerMk.Captures[0].(*ir.VarRef); ref.Kind != ir.VarLocal || ref.Index != 0 {
		t.Errorf("outer capture should be main's x, got %s", ref)
	}
	if outerMk.Region != ir.RegionLocal || innerMk.Region != ir.RegionLocal {
		t.Errorf("both envs should live in local memory: %s / %s", outerMk.Region, innerMk.Region)
	}
}

func TestConvertMissingConstruction(t *testing.T) {
	p := ir.NewProgram()
	p.Funs = append(p.Funs, &ir.Fun{Name: "ghost$lambda0", Lambda: true, Result: types.Unit()})
	_, err := NewPass(nil).Run(p)
	if !errors.HasCode(err, errors.E0900) {
		t.Errorf("expected an internal error, got %v", err)
	}
}
