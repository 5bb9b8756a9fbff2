package compiler

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// ============================================================================
// 函数降低状态
// ============================================================================

// funcState 一个具体函数（或提升后的 lambda）的降低状态
//
// 表达式降低返回 (值, 类型)；类型为 nil 表示该表达式不会正常结束
// （break、continue、return、panic）。
type funcState struct {
	c      *Compiler
	fun    *ir.Fun
	parent *funcState // lambda 的外层函数

	scope []string     // 类型参数名
	subst []types.Type // 当前特化的类型实参
	trace []token.Position

	scopes []map[string]*ir.VarRef
	vars   *[]uint32 // 当前块声明的局部变量
	body   *ir.Body  // 当前输出位置
	loops  int
	result types.Type
	infer  bool // 结果类型由 return 与函数体的值推断
}

func (c *Compiler) newFuncState(fun *ir.Fun, scope []string, subst []types.Type, parent *funcState) *funcState {
	fs := &funcState{
		c:      c,
		fun:    fun,
		parent: parent,
		scope:  scope,
		subst:  subst,
		scopes: []map[string]*ir.VarRef{make(map[string]*ir.VarRef)},
		vars:   new([]uint32),
		body:   &fun.Body,
	}
	if parent != nil {
		fs.trace = parent.trace
	} else {
		fs.trace = c.trace()
	}
	fun.Params = make([]ir.Local, 0)
	fun.Locals = make([]ir.Local, 0)
	fun.Body = make(ir.Body, 0)
	return fs
}

func (fs *funcState) emit(in ir.Instr) {
	*fs.body = append(*fs.body, in)
}

// nested 在新的指令序列中执行 fn 并返回该序列
func (fs *funcState) nested(fn func()) ir.Body {
	saved := fs.body
	out := make(ir.Body, 0)
	fs.body = &out
	fn()
	fs.body = saved
	return out
}

func (fs *funcState) pushScope() { fs.scopes = append(fs.scopes, make(map[string]*ir.VarRef)) }
func (fs *funcState) popScope()  { fs.scopes = fs.scopes[:len(fs.scopes)-1] }

func (fs *funcState) bind(name string, ref *ir.VarRef) {
	fs.scopes[len(fs.scopes)-1][name] = ref
}

// lookup 在本函数的词法作用域中查找变量
func (fs *funcState) lookup(name string) (*ir.VarRef, bool) {
	for i := len(fs.scopes) - 1; i >= 0; i-- {
		if ref, ok := fs.scopes[i][name]; ok {
			return ref, true
		}
	}
	if fs.parent != nil {
		if outer, ok := fs.parent.resolveVar(name); ok && outer.Kind != ir.VarGlobal {
			return &ir.VarRef{
				Kind:   ir.VarCapture,
				Region: outer.Region,
				Name:   name,
				Type:   outer.Type,
				Outer:  outer,
			}, true
		}
	}
	return nil, false
}

// resolveVar 依次查找局部变量（包括外层捕获）与全局变量，返回一份新的引用
func (fs *funcState) resolveVar(name string) (*ir.VarRef, bool) {
	if ref, ok := fs.lookup(name); ok {
		cp := *ref
		return &cp, true
	}
	if v, ok := fs.c.symbols.Vars[name]; ok {
		g := fs.c.prog.Vars
		if v.Index < len(g) && g[v.Index].Name == name {
			idx, err := safecast.Convert[uint32](v.Index)
			if err != nil {
				return nil, false
			}
			return &ir.VarRef{Kind: ir.VarGlobal, Region: g[v.Index].Storage, Index: idx, Name: name, Type: g[v.Index].Type}, true
		}
	}
	return nil, false
}

// newLocal 分配局部变量槽并在当前块中声明
func (fs *funcState) newLocal(name string, t types.Type, region ir.Region) (*ir.VarRef, error) {
	idx, err := safecast.Convert[uint32](len(fs.fun.Locals))
	if err != nil {
		return nil, errors.Internal(token.Position{}, fmt.Errorf("too many locals in %s: %w", fs.fun.Name, err))
	}
	if err := fs.c.ensureType(token.Position{}, t); err != nil {
		return nil, err
	}
	fs.fun.Locals = append(fs.fun.Locals, ir.Local{Name: name, Type: t, Region: region})
	*fs.vars = append(*fs.vars, idx)
	kind := ir.VarLocal
	if _, _, ok := types.FunParts(t); ok {
		kind = ir.VarClosureLocal
	}
	return &ir.VarRef{Kind: kind, Region: region, Index: idx, Name: name, Type: t}, nil
}

// temp 把运算结果存入新的临时变量
func (fs *funcState) temp(op ir.Op) (*ir.VarRef, error) {
	ref, err := fs.newLocal("", op.ResultType(), ir.RegionPrivate)
	if err != nil {
		return nil, err
	}
	fs.emit(&ir.Assign{Dest: ref, Op: op})
	cp := *ref
	return &cp, nil
}

func (fs *funcState) declareParam(p *ast.Param, t types.Type) {
	idx, err := safecast.Convert[uint32](len(fs.fun.Params))
	if err != nil {
		fs.c.report(errors.Internal(p.At, fmt.Errorf("too many parameters in %s: %w", fs.fun.Name, err)))
		return
	}
	region := irRegion(p.Region)
	fs.fun.Params = append(fs.fun.Params, ir.Local{Name: p.Name, Type: t, Region: region})
	kind := ir.VarArg
	if _, _, ok := types.FunParts(t); ok {
		kind = ir.VarClosureArg
	}
	fs.c.report(fs.c.ensureType(p.At, t))
	fs.bind(p.Name, &ir.VarRef{Kind: kind, Region: region, Index: idx, Name: p.Name, Type: t})
}

// elaborate 在当前特化下展开类型节点
func (fs *funcState) elaborate(te ast.TypeExpr) (types.Type, error) {
	t, err := fs.c.symbols.Elaborate(te, fs.scope)
	if err != nil {
		return nil, err
	}
	out, _, err := types.Substitute(t, fs.subst)
	if err != nil {
		return nil, errors.Internal(te.Pos(), err)
	}
	return out, nil
}

func (fs *funcState) ensureTypes(pos token.Position, ts ...types.Type) error {
	for _, t := range ts {
		if err := fs.c.ensureType(pos, t); err != nil {
			return err
		}
	}
	return nil
}

// lowerBody 降低函数体并生成返回
func (fs *funcState) lowerBody(body ast.Expr, result types.Type) {
	fs.result = result
	v, t, err := fs.lowerExpr(body)
	if fs.c.report(err) || err != nil || t == nil {
		return
	}
	if !types.Assignable(t, result) {
		fs.c.report(errors.New(errors.E0200, body.Pos(), result.String(), t.String()))
		return
	}
	fs.emitReturn(v)
}

func (fs *funcState) emitReturn(v ir.Value) {
	if k, ok := v.(*ir.Const); ok && types.Equal(k.Type, types.Unit()) {
		fs.emit(&ir.Return{})
		return
	}
	fs.emit(&ir.Return{Value: v})
}

// ============================================================================
// 语句
// ============================================================================

// lowerStmt 降低一条语句，返回值表示该语句是否发散
func (fs *funcState) lowerStmt(s ast.Stmt) (bool, error) {
	switch st := s.(type) {
	case *ast.Let:
		var (
			v   ir.Value
			t   types.Type
			err error
		)
		if lam, ok := st.Value.(*ast.Lambda); ok {
			v, t, err = fs.lowerLambda(lam, st.Region)
		} else {
			v, t, err = fs.lowerExpr(st.Value)
		}
		if err != nil {
			return false, err
		}
		if t == nil {
			return true, nil
		}
		if st.Type != nil {
			declared, err := fs.elaborate(st.Type)
			if err != nil {
				return false, err
			}
			if !types.Assignable(t, declared) {
				return false, errors.New(errors.E0200, st.Value.Pos(), declared.String(), t.String())
			}
			t = declared
		}
		ref, err := fs.newLocal(st.Name, t, irRegion(st.Region))
		if err != nil {
			return false, err
		}
		fs.emit(&ir.Assign{Dest: ref, Op: &ir.Load{Src: v}})
		fs.bind(st.Name, ref)
		return false, nil

	case *ast.Assign:
		dest, ok := fs.resolveVar(st.Name)
		if !ok {
			return false, errors.New(errors.E0204, st.At, st.Name)
		}
		v, t, err := fs.lowerExpr(st.Value)
		if err != nil || t == nil {
			return t == nil && err == nil, err
		}
		if !types.Assignable(t, dest.Type) {
			return false, errors.New(errors.E0200, st.Value.Pos(), dest.Type.String(), t.String())
		}
		fs.emit(&ir.Assign{Dest: dest, Op: &ir.Load{Src: v}})
		return false, nil

	case *ast.ExprStmt:
		if call, ok := st.X.(*ast.Call); ok {
			op, t, err := fs.lowerCall(call)
			if err != nil || op == nil {
				return op == nil && err == nil, err
			}
			fs.emit(&ir.Do{Op: op})
			return t == nil, nil
		}
		_, t, err := fs.lowerExpr(st.X)
		return t == nil && err == nil, err

	default:
		return false, errors.Internal(s.Pos(), fmt.Errorf("unexpected statement %T", s))
	}
}

// ============================================================================
// 表达式
// ============================================================================

func (fs *funcState) lowerExpr(e ast.Expr) (ir.Value, types.Type, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		t, err := intLitType(ex)
		if err != nil {
			return nil, nil, err
		}
		return ir.IntConst(t, ex.Value), t, nil

	case *ast.FloatLit:
		t, err := floatLitType(ex)
		if err != nil {
			return nil, nil, err
		}
		return ir.FloatConst(t, ex.Value), t, nil

	case *ast.BoolLit:
		return ir.BoolConst(ex.Value), types.BoolT(), nil

	case *ast.CharLit:
		return ir.IntConst(types.CharT(), int64(ex.Value)), types.CharT(), nil

	case *ast.Ident:
		ref, ok := fs.resolveVar(ex.Name)
		if !ok {
			return nil, nil, errors.New(errors.E0204, ex.At, ex.Name)
		}
		return ref, ref.Type, nil

	case *ast.Call:
		op, t, err := fs.lowerCall(ex)
		if err != nil || op == nil {
			return nil, nil, err
		}
		if types.Equal(types.StripUnique(t), types.Unit()) {
			fs.emit(&ir.Do{Op: op})
			return ir.UnitConst(), t, nil
		}
		ref, err := fs.temp(op)
		return ref, t, err

	case *ast.Lambda:
		return fs.lowerLambda(ex, ast.RegionNone)

	case *ast.TupleLit:
		if len(ex.Elems) == 0 {
			return ir.UnitConst(), types.Unit(), nil
		}
		vals, ts, err := fs.lowerList(ex.Elems)
		if err != nil || ts == nil {
			return nil, nil, err
		}
		t := types.TupleOf(ts...)
		if err := fs.c.ensureType(ex.At, t); err != nil {
			return nil, nil, err
		}
		ref, err := fs.temp(&ir.MakeAggregate{Type: t, Fields: vals})
		return ref, t, err

	case *ast.FieldExpr:
		return fs.lowerField(ex)

	case *ast.StructLit:
		return fs.lowerStructLit(ex)

	case *ast.UnionLit:
		return fs.lowerUnionLit(ex)

	case *ast.ArrayLit:
		return fs.lowerArrayLit(ex)

	case *ast.Binary:
		return fs.lowerBinary(ex)

	case *ast.Unary:
		return fs.lowerUnary(ex)

	case *ast.If:
		return fs.lowerIf(ex)

	case *ast.Block:
		return fs.lowerBlock(ex)

	case *ast.Switch:
		return fs.lowerSwitch(ex)

	case *ast.Match:
		return fs.lowerMatch(ex)

	case *ast.Loop:
		fs.loops++
		var err error
		body := fs.nested(func() {
			_, _, err = fs.lowerExpr(ex.Body)
		})
		fs.loops--
		if err != nil {
			return nil, nil, err
		}
		fs.emit(&ir.Loop{Body: body})
		return ir.UnitConst(), types.Unit(), nil

	case *ast.Break:
		if fs.loops == 0 {
			return nil, nil, errors.Suggest(errors.New(errors.E0208, ex.At), nil)
		}
		fs.emit(&ir.Break{})
		return nil, nil, nil

	case *ast.Continue:
		if fs.loops == 0 {
			return nil, nil, errors.Suggest(errors.New(errors.E0209, ex.At), nil)
		}
		fs.emit(&ir.Continue{})
		return nil, nil, nil

	case *ast.Return:
		var v ir.Value = ir.UnitConst()
		t := types.Type(types.Unit())
		if ex.Value != nil {
			var err error
			v, t, err = fs.lowerExpr(ex.Value)
			if err != nil || t == nil {
				return nil, nil, err
			}
		}
		if fs.infer {
			j, ok := join(fs.result, t)
			if !ok {
				return nil, nil, errors.New(errors.E0200, ex.At, fs.result.String(), t.String())
			}
			fs.result = j
		} else if !types.Assignable(t, fs.result) {
			return nil, nil, errors.New(errors.E0200, ex.At, fs.result.String(), t.String())
		}
		fs.emitReturn(v)
		return nil, nil, nil

	case *ast.Panic:
		trace := append([]token.Position{ex.At}, fs.trace...)
		fs.emit(&ir.Panic{Message: ex.Message, Trace: trace})
		return nil, nil, nil

	default:
		return nil, nil, errors.Internal(e.Pos(), fmt.Errorf("unexpected expression %T", e))
	}
}

// lowerList 依次降低表达式；有元素发散时类型列表为 nil
func (fs *funcState) lowerList(es []ast.Expr) ([]ir.Value, []types.Type, error) {
	vals := make([]ir.Value, len(es))
	ts := make([]types.Type, len(es))
	for i, e := range es {
		v, t, err := fs.lowerExpr(e)
		if err != nil || t == nil {
			return nil, nil, err
		}
		vals[i], ts[i] = v, t
	}
	return vals, ts, nil
}

// ============================================================================
// 块与分支
// ============================================================================

// lowerBlock 块内语句各自报告错误并继续，块的值写入外层声明的结果变量
func (fs *funcState) lowerBlock(b *ast.Block) (ir.Value, types.Type, error) {
	if len(b.Stmts) == 0 {
		if b.Value == nil {
			return ir.UnitConst(), types.Unit(), nil
		}
		return fs.lowerExpr(b.Value)
	}

	fs.pushScope()
	savedVars := fs.vars
	blockVars := make([]uint32, 0)
	fs.vars = &blockVars

	var (
		v        ir.Value = ir.UnitConst()
		t                 = types.Type(types.Unit())
		diverges bool
		valueErr error
		aborted  bool
	)
	body := fs.nested(func() {
		for _, s := range b.Stmts {
			d, err := fs.lowerStmt(s)
			if fs.c.report(err) {
				aborted = true
				return
			}
			if d {
				diverges = true
				return
			}
		}
		if b.Value != nil {
			v, t, valueErr = fs.lowerExpr(b.Value)
		}
	})

	fs.vars = savedVars
	fs.popScope()
	if aborted {
		return nil, nil, errAborted
	}
	if valueErr != nil {
		fs.emit(&ir.Block{Vars: blockVars, Body: body})
		return nil, nil, valueErr
	}
	if diverges || t == nil {
		fs.emit(&ir.Block{Vars: blockVars, Body: body})
		return nil, nil, nil
	}

	result, err := fs.joinInto(&body, v, t)
	if err != nil {
		return nil, nil, err
	}
	fs.emit(&ir.Block{Vars: blockVars, Body: body})
	return result, t, nil
}

// joinInto 把分支的值复制到外层声明的变量中；常量与 () 直接返回
func (fs *funcState) joinInto(body *ir.Body, v ir.Value, t types.Type) (ir.Value, error) {
	if k, ok := v.(*ir.Const); ok {
		return k, nil
	}
	ref, err := fs.newLocal("", t, ir.RegionPrivate)
	if err != nil {
		return nil, err
	}
	*body = append(*body, &ir.Assign{Dest: ref, Op: &ir.Load{Src: v}})
	cp := *ref
	return &cp, nil
}

// branch 分支降低的结果
type branch struct {
	body ir.Body
	val  ir.Value
	typ  types.Type // nil 表示发散
}

func (fs *funcState) lowerBranch(e ast.Expr, prologue func()) (branch, error) {
	var (
		br  branch
		err error
	)
	fs.pushScope()
	br.body = fs.nested(func() {
		if prologue != nil {
			prologue()
		}
		br.val, br.typ, err = fs.lowerExpr(e)
	})
	fs.popScope()
	return br, err
}

// mergeBranches 合并各分支的类型并把值写入同一个结果变量
func (fs *funcState) mergeBranches(pos token.Position, brs []*branch) (ir.Value, types.Type, error) {
	var t types.Type
	for _, br := range brs {
		joined, ok := join(t, br.typ)
		if !ok {
			return nil, nil, errors.New(errors.E0200, pos, t.String(), br.typ.String())
		}
		t = joined
	}
	if t == nil {
		return nil, nil, nil
	}
	if types.Equal(types.StripUnique(t), types.Unit()) {
		return ir.UnitConst(), t, nil
	}
	ref, err := fs.newLocal("", t, ir.RegionPrivate)
	if err != nil {
		return nil, nil, err
	}
	for _, br := range brs {
		if br.typ != nil {
			dest := *ref
			br.body = append(br.body, &ir.Assign{Dest: &dest, Op: &ir.Load{Src: br.val}})
		}
	}
	cp := *ref
	return &cp, t, nil
}

func (fs *funcState) lowerIf(ex *ast.If) (ir.Value, types.Type, error) {
	cond, ct, err := fs.lowerExpr(ex.Cond)
	if err != nil || ct == nil {
		return nil, nil, err
	}
	if !types.Equal(types.StripUnique(ct), types.BoolT()) {
		return nil, nil, errors.New(errors.E0200, ex.Cond.Pos(), "Bool", ct.String())
	}

	then, err := fs.lowerBranch(ex.Then, nil)
	if err != nil {
		return nil, nil, err
	}
	if ex.Else == nil {
		fs.emit(&ir.If{Cond: cond, Then: then.body})
		return ir.UnitConst(), types.Unit(), nil
	}
	els, err := fs.lowerBranch(ex.Else, nil)
	if err != nil {
		return nil, nil, err
	}
	v, t, err := fs.mergeBranches(ex.Else.Pos(), []*branch{&then, &els})
	if err != nil {
		return nil, nil, err
	}
	fs.emit(&ir.If{Cond: cond, Then: then.body, Else: els.body})
	return v, t, nil
}

func (fs *funcState) lowerSwitch(ex *ast.Switch) (ir.Value, types.Type, error) {
	subject, st, err := fs.lowerExpr(ex.Subject)
	if err != nil || st == nil {
		return nil, nil, err
	}
	prim, ok := types.PrimOfType(st)
	if !ok || prim.Width != 1 || prim.Scalar.IsFloat() {
		return nil, nil, errors.New(errors.E0216, ex.Subject.Pos(), st.String())
	}

	brs := make([]*branch, 0, len(ex.Cases)+1)
	cases := make([]ir.SwitchCase, len(ex.Cases))
	for i, cs := range ex.Cases {
		for _, val := range cs.Values {
			cv, err := caseValue(val, prim)
			if err != nil {
				return nil, nil, errors.New(errors.E0216, val.Pos(), st.String())
			}
			cases[i].Values = append(cases[i].Values, cv)
		}
		br, err := fs.lowerBranch(cs.Body, nil)
		if err != nil {
			return nil, nil, err
		}
		brs = append(brs, &br)
	}

	if ex.Default == nil {
		for i, br := range brs {
			cases[i].Body = br.body
		}
		fs.emit(&ir.Switch{Subject: subject, Cases: cases})
		return ir.UnitConst(), types.Unit(), nil
	}
	def, err := fs.lowerBranch(ex.Default, nil)
	if err != nil {
		return nil, nil, err
	}
	brs = append(brs, &def)
	v, t, err := fs.mergeBranches(ex.At, brs)
	if err != nil {
		return nil, nil, err
	}
	for i := range cases {
		cases[i].Body = brs[i].body
	}
	fs.emit(&ir.Switch{Subject: subject, Cases: cases, Default: def.body})
	return v, t, nil
}

// caseValue case 只能是与被分支值同类的字面量
func caseValue(e ast.Expr, prim types.Prim) (ir.CaseValue, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		if prim.Scalar.IsInteger() {
			return ir.CaseValue{Kind: ir.CaseInt, Int: v.Value}, nil
		}
	case *ast.CharLit:
		if prim.Scalar == types.Char {
			return ir.CaseValue{Kind: ir.CaseChar, Int: int64(v.Value)}, nil
		}
	case *ast.BoolLit:
		if prim.Scalar == types.Bool {
			return ir.CaseValue{Kind: ir.CaseMarker, Marker: strconv.FormatBool(v.Value)}, nil
		}
	}
	return ir.CaseValue{}, fmt.Errorf("invalid case")
}

func (fs *funcState) lowerMatch(ex *ast.Match) (ir.Value, types.Type, error) {
	subject, st, err := fs.lowerExpr(ex.Subject)
	if err != nil || st == nil {
		return nil, nil, err
	}
	con, _ := st.(*types.Con)
	var def *UnionDef
	if con != nil && con.Name.Kind == types.KindUser {
		def = fs.c.symbols.Unions[con.Name.Ident]
	}
	if def == nil {
		return nil, nil, errors.New(errors.E0200, ex.Subject.Pos(), "union", st.String())
	}
	args := types.StripUnique(st).(*types.Con).Args

	brs := make([]*branch, len(ex.Arms))
	cases := make([]ir.SwitchCase, len(ex.Arms))
	for i, arm := range ex.Arms {
		idx := -1
		for j, v := range def.Decl.Variants {
			if v.Name == arm.Variant {
				idx = j
			}
		}
		if idx < 0 {
			return nil, nil, errors.New(errors.E0211, arm.At, st.String(), arm.Variant)
		}
		payload, _, err := types.Substitute(def.Variants[idx], args)
		if err != nil {
			return nil, nil, errors.Internal(arm.At, err)
		}
		var bindErr error
		br, err := fs.lowerBranch(arm.Body, func() {
			if arm.Bind == "" {
				return
			}
			ref, err := fs.newLocal(arm.Bind, payload, ir.RegionPrivate)
			if err != nil {
				bindErr = err
				return
			}
			fi, err := safecast.Convert[uint32](idx)
			if err != nil {
				bindErr = errors.Internal(arm.At, err)
				return
			}
			fs.emit(&ir.Assign{Dest: ref, Op: &ir.LoadField{X: subject, Index: fi, Type: payload}})
			fs.bind(arm.Bind, ref)
		})
		if bindErr != nil {
			return nil, nil, bindErr
		}
		if err != nil {
			return nil, nil, err
		}
		brs[i] = &br
		cases[i].Values = []ir.CaseValue{{Kind: ir.CaseMarker, Marker: arm.Variant}}
	}

	v, t, err := fs.mergeBranches(ex.At, brs)
	if err != nil {
		return nil, nil, err
	}
	for i := range cases {
		cases[i].Body = brs[i].body
	}
	fs.emit(&ir.Switch{Subject: subject, Cases: cases})
	return v, t, nil
}

// ============================================================================
// 聚合值
// ============================================================================

func (fs *funcState) lowerField(ex *ast.FieldExpr) (ir.Value, types.Type, error) {
	x, xt, err := fs.lowerExpr(ex.X)
	if err != nil || xt == nil {
		return nil, nil, err
	}
	con, ok := xt.(*types.Con)
	if !ok {
		return nil, nil, errors.New(errors.E0210, ex.At, xt.String(), ex.Name)
	}

	var (
		idx int = -1
		ft  types.Type
	)
	switch con.Name.Kind {
	case types.KindTuple:
		if n, err := strconv.Atoi(ex.Name); err == nil && n >= 0 && n < len(con.Args) {
			idx, ft = n, con.Args[n]
		}
	case types.KindUser:
		if def, ok := fs.c.symbols.Structs[con.Name.Ident]; ok {
			args := types.StripUnique(con).(*types.Con).Args
			for i, f := range def.Decl.Fields {
				if f.Name == ex.Name {
					t, _, err := types.Substitute(def.Fields[i], args)
					if err != nil {
						return nil, nil, errors.Internal(ex.At, err)
					}
					idx, ft = i, t
				}
			}
		}
	}
	if idx < 0 {
		return nil, nil, errors.New(errors.E0210, ex.At, xt.String(), ex.Name)
	}
	if ref, ok := x.(*ir.VarRef); ok && ref.Region != ir.RegionPrivate {
		addr := *ref
		addr.Addr = true
		x = &addr
	}
	fi, err := safecast.Convert[uint32](idx)
	if err != nil {
		return nil, nil, errors.Internal(ex.At, err)
	}
	ref, err := fs.temp(&ir.LoadField{X: x, Index: fi, Type: ft})
	return ref, ft, err
}

// instantiate 求用户类型的类型实参：显式给出或由成员值推断
func (fs *funcState) instantiate(pos token.Position, name string, params []string, explicit []ast.TypeExpr, schemes []types.Type, vals []types.Type, valPos []token.Position) ([]types.Type, error) {
	if len(explicit) > 0 {
		if len(explicit) != len(params) {
			return nil, errors.New(errors.E0203, pos, name, len(params), len(explicit))
		}
		out := make([]types.Type, len(explicit))
		for i, te := range explicit {
			t, err := fs.elaborate(te)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	}
	bindings := make([]types.Type, len(params))
	for i, s := range schemes {
		if err := types.Match(s, vals[i], bindings); err != nil {
			if _, ok := err.(*types.MismatchError); ok {
				return nil, errors.New(errors.E0200, valPos[i], s.String(), vals[i].String())
			}
			return nil, errors.Internal(pos, err)
		}
	}
	for i, b := range bindings {
		if b == nil {
			return nil, errors.Suggest(errors.New(errors.E0201, pos, i+1, name), nil)
		}
	}
	return bindings, nil
}

func (fs *funcState) lowerStructLit(ex *ast.StructLit) (ir.Value, types.Type, error) {
	def, ok := fs.c.symbols.Structs[ex.Name]
	if !ok {
		return nil, nil, errors.New(errors.E0202, ex.At, ex.Name)
	}
	n := len(def.Decl.Fields)
	inits := make([]*ast.FieldInit, n)
	for _, fi := range ex.Fields {
		idx := -1
		for i, f := range def.Decl.Fields {
			if f.Name == fi.Name {
				idx = i
			}
		}
		if idx < 0 {
			return nil, nil, errors.New(errors.E0210, fi.At, ex.Name, fi.Name)
		}
		inits[idx] = fi
	}
	for i, f := range def.Decl.Fields {
		if inits[i] == nil {
			return nil, nil, errors.New(errors.E0219, ex.At, ex.Name, f.Name)
		}
	}

	vals := make([]ir.Value, n)
	ts := make([]types.Type, n)
	pos := make([]token.Position, n)
	for i, fi := range inits {
		v, t, err := fs.lowerExpr(fi.Value)
		if err != nil || t == nil {
			return nil, nil, err
		}
		vals[i], ts[i], pos[i] = v, t, fi.Value.Pos()
	}
	args, err := fs.instantiate(ex.At, ex.Name, def.Decl.TypeParams, ex.TypeArgs, def.Fields, ts, pos)
	if err != nil {
		return nil, nil, err
	}
	for i := range inits {
		want, _, err := types.Substitute(def.Fields[i], args)
		if err != nil {
			return nil, nil, errors.Internal(ex.At, err)
		}
		if !types.Assignable(ts[i], want) {
			return nil, nil, errors.New(errors.E0200, pos[i], want.String(), ts[i].String())
		}
	}
	t := types.Named(ex.Name, args...)
	if err := fs.c.ensureType(ex.At, t); err != nil {
		return nil, nil, err
	}
	ref, err := fs.temp(&ir.MakeAggregate{Type: t, Fields: vals})
	return ref, t, err
}

func (fs *funcState) lowerUnionLit(ex *ast.UnionLit) (ir.Value, types.Type, error) {
	def, ok := fs.c.symbols.Unions[ex.Name]
	if !ok {
		return nil, nil, errors.New(errors.E0202, ex.At, ex.Name)
	}
	idx := -1
	for i, v := range def.Decl.Variants {
		if v.Name == ex.Variant {
			idx = i
		}
	}
	if idx < 0 {
		return nil, nil, errors.New(errors.E0211, ex.At, ex.Name, ex.Variant)
	}
	v, vt, err := fs.lowerExpr(ex.Value)
	if err != nil || vt == nil {
		return nil, nil, err
	}
	args, err := fs.instantiate(ex.At, ex.Name, def.Decl.TypeParams, ex.TypeArgs,
		[]types.Type{def.Variants[idx]}, []types.Type{vt}, []token.Position{ex.Value.Pos()})
	if err != nil {
		return nil, nil, err
	}
	want, _, err := types.Substitute(def.Variants[idx], args)
	if err != nil {
		return nil, nil, errors.Internal(ex.At, err)
	}
	if !types.Assignable(vt, want) {
		return nil, nil, errors.New(errors.E0200, ex.Value.Pos(), want.String(), vt.String())
	}
	t := types.Named(ex.Name, args...)
	if err := fs.c.ensureType(ex.At, t); err != nil {
		return nil, nil, err
	}
	ref, err := fs.temp(&ir.MakeAggregate{Type: t, Variant: idx, Fields: []ir.Value{v}})
	return ref, t, err
}

func (fs *funcState) lowerArrayLit(ex *ast.ArrayLit) (ir.Value, types.Type, error) {
	if len(ex.Elems) == 0 {
		return nil, nil, errors.Suggest(errors.New(errors.E0201, ex.At, 1, "[]"), nil)
	}
	vals, ts, err := fs.lowerList(ex.Elems)
	if err != nil || ts == nil {
		return nil, nil, err
	}
	elem := ts[0]
	for i, t := range ts[1:] {
		joined, ok := join(elem, t)
		if !ok {
			return nil, nil, errors.New(errors.E0200, ex.Elems[i+1].Pos(), elem.String(), t.String())
		}
		elem = joined
	}
	var length *uint32
	if ex.Sized {
		n, err := safecast.Convert[uint32](len(ex.Elems))
		if err != nil {
			return nil, nil, errors.Internal(ex.At, err)
		}
		length = &n
	}
	t := types.ArrayOf(elem, length)
	if err := fs.c.ensureType(ex.At, t); err != nil {
		return nil, nil, err
	}
	ref, err := fs.temp(&ir.Alloc{Region: irRegion(ex.Region), Type: t, Elems: vals})
	return ref, t, err
}

// ============================================================================
// Lambda
// ============================================================================

// lowerLambda 把 lambda 体降低为独立函数并在原处构造闭包值
//
// 外层变量以 VarCapture 引用，闭包转换 Pass 再把它们改写为环境字段。
// 提升后的函数在体降低完成后才加入程序，因此内层 lambda 总在外层之前。
func (fs *funcState) lowerLambda(l *ast.Lambda, hint ast.Region) (ir.Value, types.Type, error) {
	c := fs.c
	c.lambdas[fs.fun.Name]++
	name := fmt.Sprintf("%s$lambda%d", fs.fun.Name, c.lambdas[fs.fun.Name]-1)
	fun := &ir.Fun{Name: name, Lambda: true}
	child := c.newFuncState(fun, fs.scope, fs.subst, fs)

	params := make([]types.Type, len(l.Params))
	for i, p := range l.Params {
		t, err := fs.elaborate(p.Type)
		if err != nil {
			return nil, nil, err
		}
		params[i] = t
		child.declareParam(p, t)
	}

	var result types.Type
	if l.Result != nil {
		t, err := fs.elaborate(l.Result)
		if err != nil {
			return nil, nil, err
		}
		result = t
		child.lowerBody(l.Body, result)
	} else {
		child.infer = true
		v, t, err := child.lowerExpr(l.Body)
		if c.report(err) || err != nil {
			return nil, nil, errAborted
		}
		joined, ok := join(child.result, t)
		if !ok {
			return nil, nil, errors.New(errors.E0200, l.Body.Pos(), child.result.String(), t.String())
		}
		if joined == nil {
			joined = types.Unit()
		}
		result = joined
		child.infer = false
		child.result = joined
		if t != nil {
			child.emitReturn(v)
		}
	}
	fun.Result = result
	c.prog.Funs = append(c.prog.Funs, fun)
	c.stats.Lambdas++

	region := l.Region
	if region == ast.RegionNone {
		region = hint
	}
	t := types.FunOf(params, result)
	mk := &ir.MakeClosure{
		Fun:    name,
		Type:   t,
		Region: irRegion(region),
		Hinted: region != ast.RegionNone,
		Pos:    l.At,
	}
	c.logger.Debug("lambda lifted", zap.String("fun", name), zap.Stringer("type", t))
	ref, err := fs.temp(mk)
	return ref, t, err
}
