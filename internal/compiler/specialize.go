package compiler

import (
	"fmt"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/i18n"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// ============================================================================
// 特化请求
// ============================================================================

// requestPlain 返回非泛型函数的调用目标，首次请求时降低其函数体
func (c *Compiler) requestPlain(def *FuncDef) ir.FunRef {
	ref := ir.FunRef{Name: def.Name}
	if _, ok := c.plain[def.Name]; ok {
		return ref
	}
	fun := &ir.Fun{Name: def.Name}
	c.plain[def.Name] = fun
	c.prog.Funs = append(c.prog.Funs, fun)
	c.stats.Plain++
	c.lowerFunc(def, fun, nil, token.Position{})
	return ref
}

// specialize 返回 def 在 typeArgs 下的分派键
//
// 同一实参元组总是得到同一个键；新键按首次请求的顺序递增分配，
// 并且在降低函数体之前登记，因此递归调用会复用它。
func (c *Compiler) specialize(def *FuncDef, typeArgs []types.Type, pos token.Position) (ir.FunRef, error) {
	table, ok := c.tables[def.Name]
	if !ok {
		table = &dispatchTable{
			caller: &ir.Caller{Name: def.Name},
			keys:   make(map[string]uint32),
		}
		c.tables[def.Name] = table
		c.prog.Funs = append(c.prog.Funs, table.caller)
	}

	if err := c.checkTypeSize(pos, def.Name, typeArgs...); err != nil {
		return ir.FunRef{}, err
	}
	memoKey := types.Key(typeArgs)
	if key, ok := table.keys[memoKey]; ok {
		c.stats.Reused++
		c.logger.Debug("specialization reused",
			zap.String("callee", def.Name),
			zap.Uint32("key", key),
			zap.String("type_args", memoKey))
		return ir.FunRef{Name: def.Name, Key: key, Generic: true}, nil
	}

	if len(c.requests) >= c.opts.MaxSpecializationDepth {
		d := errors.New(errors.E0502, pos, def.Name, c.opts.MaxSpecializationDepth)
		return ir.FunRef{}, errors.Suggest(d, nil)
	}

	key, err := safecast.Convert[uint32](len(table.caller.Entries))
	if err != nil {
		return ir.FunRef{}, errors.Internal(pos, fmt.Errorf("dispatch table of %s: %w", def.Name, err))
	}
	fun := &ir.Fun{Name: fmt.Sprintf("%s#%d", def.Name, key), TypeArgs: typeArgs}
	table.caller.Entries = append(table.caller.Entries, fun)
	table.keys[memoKey] = key
	c.stats.Specializations++
	c.logger.Debug("specialization requested",
		zap.String("callee", def.Name),
		zap.Uint32("key", key),
		zap.String("type_args", memoKey),
		zap.Int("depth", len(c.requests)))

	c.lowerFunc(def, fun, typeArgs, pos)
	return ir.FunRef{Name: def.Name, Key: key, Generic: true}, nil
}

// lowerFunc 在具体替换下降低函数体，错误直接报告
func (c *Compiler) lowerFunc(def *FuncDef, fun *ir.Fun, typeArgs []types.Type, pos token.Position) {
	c.requests = append(c.requests, request{name: def.Name, pos: pos})
	defer func() { c.requests = c.requests[:len(c.requests)-1] }()

	fs := c.newFuncState(fun, def.TypeParams, typeArgs, nil)
	fun.Kernel = def.Decl.Mods.Kernel
	fun.Inline = def.Decl.Mods.Inline

	for i, p := range def.Decl.Params {
		t, _, err := types.Substitute(def.Params[i], typeArgs)
		if err != nil {
			c.report(errors.Internal(p.At, err))
			return
		}
		fs.declareParam(p, t)
	}
	result, _, err := types.Substitute(def.Result, typeArgs)
	if err != nil {
		c.report(errors.Internal(def.Decl.At, err))
		return
	}
	fun.Result = result
	if c.report(c.ensureType(def.Decl.At, result)) {
		return
	}
	fs.lowerBody(def.Decl.Body, result)
}

// trace panic 的调用链：当前请求链上各次请求的调用位置，最内层在前
func (c *Compiler) trace() []token.Position {
	var out []token.Position
	for i := len(c.requests) - 1; i >= 0; i-- {
		if c.requests[i].pos.IsValid() {
			out = append(out, c.requests[i].pos)
		}
	}
	return out
}

// ============================================================================
// 调用
// ============================================================================

// lowerCall 降低调用，返回运算及其结果类型
func (fs *funcState) lowerCall(call *ast.Call) (ir.Op, types.Type, error) {
	c := fs.c
	if id, ok := call.Callee.(*ast.Ident); ok {
		if _, local := fs.lookup(id.Name); !local {
			if def, ok := c.symbols.Funcs[id.Name]; ok {
				return fs.lowerDirectCall(call, def)
			}
			if op, ok := c.symbols.TraitOps[id.Name]; ok {
				return fs.lowerTraitCall(call, op)
			}
			if _, ok := c.symbols.Vars[id.Name]; !ok {
				return nil, nil, errors.New(errors.E0205, id.At, id.Name)
			}
		}
	}

	closure, ct, err := fs.lowerExpr(call.Callee)
	if err != nil || ct == nil {
		return nil, nil, err
	}
	params, result, ok := types.FunParts(ct)
	if !ok {
		return nil, nil, errors.New(errors.E0206, call.Callee.Pos(), ct.String())
	}
	args, argTypes, err := fs.lowerArgs(call, call.Callee.String(), len(params))
	if err != nil || argTypes == nil {
		return nil, nil, err
	}
	if err := checkArgs(call, params, argTypes); err != nil {
		return nil, nil, err
	}
	return &ir.CallClosure{Closure: closure, Args: args, Type: result}, result, nil
}

// lowerArgs 检查参数个数并依次降低实参；有实参发散时 argTypes 为 nil
func (fs *funcState) lowerArgs(call *ast.Call, name string, want int) ([]ir.Value, []types.Type, error) {
	if len(call.Args) != want {
		return nil, nil, errors.New(errors.E0207, call.At, name, want, len(call.Args))
	}
	args := make([]ir.Value, len(call.Args))
	argTypes := make([]types.Type, len(call.Args))
	for i, a := range call.Args {
		v, t, err := fs.lowerExpr(a)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			return nil, nil, nil
		}
		args[i], argTypes[i] = v, t
	}
	return args, argTypes, nil
}

func checkArgs(call *ast.Call, params, argTypes []types.Type) error {
	for i, p := range params {
		if !types.Assignable(argTypes[i], p) {
			return errors.New(errors.E0200, call.Args[i].Pos(), p.String(), argTypes[i].String())
		}
	}
	return nil
}

// lowerDirectCall 调用用户函数：非泛型直接引用，泛型先推断类型实参再特化
func (fs *funcState) lowerDirectCall(call *ast.Call, def *FuncDef) (ir.Op, types.Type, error) {
	c := fs.c
	args, argTypes, err := fs.lowerArgs(call, def.Name, len(def.Params))
	if err != nil || argTypes == nil {
		return nil, nil, err
	}

	if !def.Generic() {
		if len(call.TypeArgs) > 0 {
			return nil, nil, errors.New(errors.E0203, call.At, def.Name, 0, len(call.TypeArgs))
		}
		if err := checkArgs(call, def.Params, argTypes); err != nil {
			return nil, nil, err
		}
		target := c.requestPlain(def)
		return &ir.Call{Target: target, Args: args, Type: def.Result}, def.Result, nil
	}

	typeArgs, err := fs.inferTypeArgs(call, def, argTypes)
	if err != nil {
		return nil, nil, err
	}
	if err := c.checkTypeSize(call.At, def.Name, typeArgs...); err != nil {
		return nil, nil, err
	}
	params, err := types.SubstituteAll(def.Params, typeArgs)
	if err != nil {
		return nil, nil, errors.Internal(call.At, err)
	}
	if err := checkArgs(call, params, argTypes); err != nil {
		return nil, nil, err
	}
	result, _, err := types.Substitute(def.Result, typeArgs)
	if err != nil {
		return nil, nil, errors.Internal(call.At, err)
	}
	for _, b := range def.Where {
		if _, err := c.resolver.Resolve(b.Trait, typeArgs[b.Param], b.Pos); err != nil {
			if d, ok := err.(*errors.Diagnostic); ok && !d.Fatal() {
				d.WithNote(i18n.NoteRequiredBy, fmt.Sprintf("call to '%s' at %s", def.Name, call.At))
			}
			return nil, nil, err
		}
	}
	if err := fs.ensureTypes(call.At, typeArgs...); err != nil {
		return nil, nil, err
	}
	target, err := c.specialize(def, typeArgs, call.At)
	if err != nil {
		return nil, nil, err
	}
	return &ir.Call{Target: target, Args: args, Type: result}, result, nil
}

// inferTypeArgs 显式类型实参优先，否则用参数方案单向匹配实参类型
func (fs *funcState) inferTypeArgs(call *ast.Call, def *FuncDef, argTypes []types.Type) ([]types.Type, error) {
	n := len(def.TypeParams)
	if len(call.TypeArgs) > 0 {
		if len(call.TypeArgs) != n {
			return nil, errors.New(errors.E0203, call.At, def.Name, n, len(call.TypeArgs))
		}
		out := make([]types.Type, n)
		for i, te := range call.TypeArgs {
			t, err := fs.elaborate(te)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	}

	bindings := make([]types.Type, n)
	for i, p := range def.Params {
		if err := types.Match(p, argTypes[i], bindings); err != nil {
			if _, ok := err.(*types.MismatchError); ok {
				return nil, errors.New(errors.E0200, call.Args[i].Pos(), types.Apply(p, bindings).String(), argTypes[i].String())
			}
			return nil, errors.Internal(call.At, err)
		}
	}
	for i, b := range bindings {
		if b == nil {
			return nil, errors.Suggest(errors.New(errors.E0201, call.At, i+1, def.Name), nil)
		}
	}
	return bindings, nil
}

// lowerTraitCall 调用 trait 操作：由实参确定 trait 参数，解析到唯一实现
func (fs *funcState) lowerTraitCall(call *ast.Call, op *TraitOpDef) (ir.Op, types.Type, error) {
	c := fs.c
	name := op.Decl.Name
	args, argTypes, err := fs.lowerArgs(call, name, len(op.Params))
	if err != nil || argTypes == nil {
		return nil, nil, err
	}

	bindings := make([]types.Type, 1)
	if len(call.TypeArgs) == 1 {
		t, err := fs.elaborate(call.TypeArgs[0])
		if err != nil {
			return nil, nil, err
		}
		bindings[0] = t
	}
	for i, p := range op.Params {
		if err := types.Match(p, argTypes[i], bindings); err != nil {
			if _, ok := err.(*types.MismatchError); ok {
				return nil, nil, errors.New(errors.E0200, call.Args[i].Pos(), p.String(), argTypes[i].String())
			}
			return nil, nil, errors.Internal(call.At, err)
		}
	}
	if bindings[0] == nil {
		return nil, nil, errors.Suggest(errors.New(errors.E0201, call.At, 1, name), nil)
	}
	self := bindings[0]
	result, _, err := types.Substitute(op.Result, bindings)
	if err != nil {
		return nil, nil, errors.Internal(call.At, err)
	}

	res, err := c.resolver.Resolve(op.Trait, self, call.At)
	if err != nil {
		return nil, nil, err
	}
	target, ok := res.Op(name)
	if !ok {
		return nil, nil, errors.New(errors.E0503, res.Impl.Pos, op.Trait, res.Type.String(), name)
	}
	if target.Builtin != "" {
		return &ir.BuiltinCall{Name: target.Builtin, Args: args, Type: result}, result, nil
	}

	def, ok := c.symbols.ImplFunc(target.Decl)
	if !ok {
		return nil, nil, errors.Internal(call.At, fmt.Errorf("no signature for %s of %s", name, target.Impl.Label()))
	}
	var ref ir.FunRef
	if def.Generic() {
		ref, err = c.specialize(def, target.Args, call.At)
		if err != nil {
			return nil, nil, err
		}
	} else {
		ref = c.requestPlain(def)
	}
	return &ir.Call{Target: ref, Args: args, Type: result}, result, nil
}
