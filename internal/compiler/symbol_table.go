package compiler

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/resolve"
	"github.com/tangzhangming/polyc/internal/types"
)

// StructDef 结构体定义，Fields 是以 TypeParams 为量词的类型方案
type StructDef struct {
	Decl   *ast.StructDecl
	Fields []types.Type
}

// UnionDef 联合体定义
type UnionDef struct {
	Decl     *ast.UnionDecl
	Variants []types.Type
}

// FuncDef 函数签名（包括 impl 中的操作）
type FuncDef struct {
	Name       string // IR 中的名字
	Decl       *ast.FuncDecl
	TypeParams []string
	Params     []types.Type
	Result     types.Type
	Where      []resolve.Bound
	Impl       *resolve.Impl // impl 操作所属的实现
}

// Generic 是否带类型参数
func (f *FuncDef) Generic() bool { return len(f.TypeParams) > 0 }

// TraitOpDef trait 操作签名，方案的唯一量词是 trait 参数
type TraitOpDef struct {
	Trait  string
	Decl   *ast.TraitOp
	Params []types.Type
	Result types.Type
}

// VarDef 全局变量
type VarDef struct {
	Decl  *ast.VarDecl
	Index int
}

// SymbolTable 符号表
//
// 所有定义按名字登记，互相引用（包括循环引用）通过名字查找完成。
// 类型、值、trait 各自是一个命名空间。
type SymbolTable struct {
	Structs  map[string]*StructDef
	Unions   map[string]*UnionDef
	Funcs    map[string]*FuncDef
	TraitOps map[string]*TraitOpDef
	Vars     map[string]*VarDef

	FuncOrder []*FuncDef // 顶层函数的声明顺序（不含 impl 操作）
	VarOrder  []*VarDef
	Traits    []*resolve.Trait
	Impls     []*resolve.Impl

	implFuncs map[*ast.FuncDecl]*FuncDef
	traits    map[string]*ast.TraitDecl
}

// NewSymbolTable 创建符号表
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Structs:   make(map[string]*StructDef),
		Unions:    make(map[string]*UnionDef),
		Funcs:     make(map[string]*FuncDef),
		TraitOps:  make(map[string]*TraitOpDef),
		Vars:      make(map[string]*VarDef),
		implFuncs: make(map[*ast.FuncDecl]*FuncDef),
		traits:    make(map[string]*ast.TraitDecl),
	}
}

// ImplFunc 返回 impl 操作对应的函数签名
func (st *SymbolTable) ImplFunc(decl *ast.FuncDecl) (*FuncDef, bool) {
	f, ok := st.implFuncs[decl]
	return f, ok
}

// Declare 登记程序中的所有声明并展开其签名
//
// 先登记名字再展开签名，因此声明顺序不影响互相引用。
func (st *SymbolTable) Declare(prog *ast.Program) error {
	var errs error
	report := func(err error) { errs = multierr.Append(errs, err) }

	typeNames := make(map[string]bool)
	valueNames := make(map[string]bool)
	dupType := func(d ast.Decl) bool {
		if typeNames[d.DeclName()] {
			report(errors.Suggest(errors.New(errors.E0215, d.Pos(), d.DeclName()), nil))
			return true
		}
		typeNames[d.DeclName()] = true
		return false
	}
	dupValue := func(d ast.Node, name string) bool {
		if valueNames[name] {
			report(errors.Suggest(errors.New(errors.E0215, d.Pos(), name), nil))
			return true
		}
		valueNames[name] = true
		return false
	}

	// 第一遍：登记名字
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			if !dupType(d) {
				st.Structs[d.Name] = &StructDef{Decl: d}
			}
		case *ast.UnionDecl:
			if !dupType(d) {
				st.Unions[d.Name] = &UnionDef{Decl: d}
			}
		case *ast.TraitDecl:
			if _, dup := st.traits[d.Name]; dup {
				report(errors.Suggest(errors.New(errors.E0215, d.At, d.Name), nil))
				continue
			}
			st.traits[d.Name] = d
			ops := make([]string, len(d.Ops))
			for i, op := range d.Ops {
				ops[i] = op.Name
			}
			st.Traits = append(st.Traits, &resolve.Trait{Name: d.Name, Ops: ops, Pos: d.At})
		}
	}

	// 第二遍：展开签名
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			if def, ok := st.Structs[d.Name]; ok && def.Decl == d {
				def.Fields = st.elaborateFields(d.Fields, d.TypeParams, report)
			}
		case *ast.UnionDecl:
			if def, ok := st.Unions[d.Name]; ok && def.Decl == d {
				def.Variants = st.elaborateFields(d.Variants, d.TypeParams, report)
			}
		case *ast.TraitDecl:
			if st.traits[d.Name] != d {
				continue
			}
			for _, op := range d.Ops {
				if dupValue(d, op.Name) {
					continue
				}
				scope := []string{d.Param}
				params, result, err := st.elaborateSig(op.Params, op.Result, scope)
				if err != nil {
					report(err)
					continue
				}
				st.TraitOps[op.Name] = &TraitOpDef{Trait: d.Name, Decl: op, Params: params, Result: result}
			}
		case *ast.FuncDecl:
			if dupValue(d, d.Name) {
				continue
			}
			def, err := st.elaborateFunc(d.Name, d, d.TypeParams, d.Where)
			if err != nil {
				report(err)
				continue
			}
			st.Funcs[d.Name] = def
			st.FuncOrder = append(st.FuncOrder, def)
		case *ast.VarDecl:
			if dupValue(d, d.Name) {
				continue
			}
			v := &VarDef{Decl: d, Index: len(st.VarOrder)}
			st.Vars[d.Name] = v
			st.VarOrder = append(st.VarOrder, v)
		case *ast.ImplDecl:
			if err := st.declareImpl(d); err != nil {
				report(err)
			}
		}
	}
	return errs
}

func (st *SymbolTable) elaborateFields(fields []*ast.FieldDecl, scope []string, report func(error)) []types.Type {
	out := make([]types.Type, len(fields))
	seen := make(map[string]bool)
	for i, f := range fields {
		if seen[f.Name] {
			report(errors.Suggest(errors.New(errors.E0215, f.At, f.Name), nil))
		}
		seen[f.Name] = true
		t, err := st.Elaborate(f.Type, scope)
		if err != nil {
			report(err)
			t = types.Unit()
		}
		out[i] = t
	}
	return out
}

func (st *SymbolTable) elaborateSig(params []ast.TypeExpr, result ast.TypeExpr, scope []string) ([]types.Type, types.Type, error) {
	out := make([]types.Type, len(params))
	for i, p := range params {
		t, err := st.Elaborate(p, scope)
		if err != nil {
			return nil, nil, err
		}
		out[i] = t
	}
	res, err := st.Elaborate(result, scope)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

func (st *SymbolTable) elaborateFunc(name string, d *ast.FuncDecl, scope []string, where []*ast.Constraint) (*FuncDef, error) {
	paramTypes := make([]ast.TypeExpr, len(d.Params))
	for i, p := range d.Params {
		paramTypes[i] = p.Type
	}
	params, result, err := st.elaborateSig(paramTypes, d.Result, scope)
	if err != nil {
		return nil, err
	}
	bounds, err := st.elaborateWhere(where, scope)
	if err != nil {
		return nil, err
	}
	return &FuncDef{
		Name:       name,
		Decl:       d,
		TypeParams: scope,
		Params:     params,
		Result:     result,
		Where:      bounds,
	}, nil
}

func (st *SymbolTable) elaborateWhere(where []*ast.Constraint, scope []string) ([]resolve.Bound, error) {
	var bounds []resolve.Bound
	for _, c := range where {
		idx := indexOf(scope, c.Param)
		if idx < 0 {
			return nil, errors.New(errors.E0202, c.At, c.Param)
		}
		for _, trait := range c.Traits {
			if _, ok := st.traits[trait]; !ok {
				return nil, errors.New(errors.E0212, c.At, trait)
			}
			bounds = append(bounds, resolve.Bound{Param: types.LocalType(idx), Trait: trait, Pos: c.At})
		}
	}
	return bounds, nil
}

func (st *SymbolTable) declareImpl(d *ast.ImplDecl) error {
	trait, ok := st.traits[d.Trait]
	if !ok {
		return errors.New(errors.E0212, d.At, d.Trait)
	}
	forType, err := st.Elaborate(d.For, d.Params)
	if err != nil {
		return err
	}
	bounds, err := st.elaborateWhere(d.Where, d.Params)
	if err != nil {
		return err
	}
	impl := &resolve.Impl{
		Trait:   d.Trait,
		Params:  d.Params,
		For:     forType,
		Where:   bounds,
		Builtin: d.Builtin,
		Ops:     make(map[string]*ast.FuncDecl),
		Pos:     d.At,
	}

	var errs error
	for _, op := range d.Ops {
		if !traitHasOp(trait, op.Name) {
			errs = multierr.Append(errs, errors.New(errors.E0213, op.At, d.Trait, op.Name))
			continue
		}
		if _, dup := impl.Ops[op.Name]; dup {
			errs = multierr.Append(errs, errors.Suggest(errors.New(errors.E0215, op.At, op.Name), nil))
			continue
		}
		name := fmt.Sprintf("%s.%s@%s", d.Trait, op.Name, forType)
		def, err := st.elaborateFunc(name, op, d.Params, nil)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		def.Impl = impl
		impl.Ops[op.Name] = op
		st.implFuncs[op] = def
	}
	st.Impls = append(st.Impls, impl)
	return errs
}

func traitHasOp(t *ast.TraitDecl, name string) bool {
	for _, op := range t.Ops {
		if op.Name == name {
			return true
		}
	}
	return false
}

// ============================================================================
// 类型展开
// ============================================================================

// Elaborate 把类型节点展开为类型值，scope 为量词列表
//
// 名字在 scope 中时展开为对应下标的类型参数；nil 表示 ()。
func (st *SymbolTable) Elaborate(te ast.TypeExpr, scope []string) (types.Type, error) {
	switch t := te.(type) {
	case nil:
		return types.Unit(), nil

	case *ast.NamedType:
		if idx := indexOf(scope, t.Name); idx >= 0 {
			if len(t.Args) > 0 {
				return nil, errors.New(errors.E0203, t.At, t.Name, 0, len(t.Args))
			}
			return &types.Param{Uniq: t.Uniq, Index: types.LocalType(idx)}, nil
		}
		if prim, ok := types.LookupPrim(t.Name); ok {
			if len(t.Args) > 0 {
				return nil, errors.New(errors.E0203, t.At, t.Name, 0, len(t.Args))
			}
			return &types.Con{Uniq: t.Uniq, Name: types.Name{Kind: types.KindPrim, Prim: prim}}, nil
		}
		var arity int
		if s, ok := st.Structs[t.Name]; ok {
			arity = len(s.Decl.TypeParams)
		} else if u, ok := st.Unions[t.Name]; ok {
			arity = len(u.Decl.TypeParams)
		} else {
			return nil, errors.New(errors.E0202, t.At, t.Name)
		}
		if arity != len(t.Args) {
			return nil, errors.New(errors.E0203, t.At, t.Name, arity, len(t.Args))
		}
		args, err := st.elaborateList(t.Args, scope)
		if err != nil {
			return nil, err
		}
		return types.WithUnique(types.Named(t.Name, args...), t.Uniq), nil

	case *ast.TupleType:
		elems, err := st.elaborateList(t.Elems, scope)
		if err != nil {
			return nil, err
		}
		return types.WithUnique(types.TupleOf(elems...), t.Uniq), nil

	case *ast.FunType:
		params, result, err := st.elaborateSig(t.Params, t.Result, scope)
		if err != nil {
			return nil, err
		}
		return types.WithUnique(types.FunOf(params, result), t.Uniq), nil

	case *ast.ArrayType:
		elem, err := st.Elaborate(t.Elem, scope)
		if err != nil {
			return nil, err
		}
		return types.WithUnique(types.ArrayOf(elem, t.Len), t.Uniq), nil

	default:
		return nil, errors.Internal(te.Pos(), fmt.Errorf("unexpected type node %T", te))
	}
}

func (st *SymbolTable) elaborateList(ts []ast.TypeExpr, scope []string) ([]types.Type, error) {
	out := make([]types.Type, len(ts))
	for i, t := range ts {
		r, err := st.Elaborate(t, scope)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
