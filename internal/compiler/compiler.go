// Package compiler 把表层语法树特化并降低为 IR
//
// 从 kernel 入口出发按需特化：非泛型函数只生成一次，泛型函数只以分派表出现，
// 每个不同的具体类型实参元组在首次遇到时分配下一个整数键。
// 降低完成后依次运行闭包转换、效果推断与 IR 校验。
package compiler

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/closure"
	"github.com/tangzhangming/polyc/internal/config"
	"github.com/tangzhangming/polyc/internal/effects"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/i18n"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/resolve"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// errAborted 遇到致命错误后用于展开降低过程，不会被报告
var errAborted = stderrors.New("compilation aborted")

// Compiler 编译器
//
// 每次 Compile 都重建全部表，同一个 Compiler 可以重复使用，但不能并发使用。
type Compiler struct {
	opts    config.CompilerOptions
	catalog i18n.Catalog
	logger  *zap.Logger

	symbols  *SymbolTable
	resolver *resolve.Resolver
	prog     *ir.Program
	reporter *errors.Reporter

	plain     map[string]*ir.Fun
	tables    map[string]*dispatchTable
	instances map[string]bool
	lambdas   map[string]int
	requests  []request
	stats     Stats
}

// Stats 编译统计
type Stats struct {
	Specializations int // 分派表条目数
	Reused          int // 命中记忆表的特化请求
	Plain           int // 非泛型函数数
	Lambdas         int // 提升的 lambda 数
	Passes          ir.PassStats
	Effects         effects.Stats
}

// dispatchTable 泛型定义的分派表与记忆表
type dispatchTable struct {
	caller *ir.Caller
	keys   map[string]uint32
}

// request 正在进行的特化请求
type request struct {
	name string
	pos  token.Position
}

// New 创建编译器，logger 为 nil 时不输出日志
func New(opts config.Options, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{opts: opts.Compiler, catalog: opts.Catalog(), logger: logger}
}

// Stats 返回最近一次编译的统计
func (c *Compiler) Stats() Stats { return c.stats }

// Compile 编译一个程序
//
// 所有相互独立的错误一起返回（multierr 组合的 *errors.Diagnostic），
// 消息按配置的语言渲染；出现致命错误时立即停止。有错误时不返回程序。
func (c *Compiler) Compile(prog *ast.Program) (*ir.Program, error) {
	c.reset()

	if c.report(c.symbols.Declare(prog)) {
		return nil, c.errs()
	}
	resolver, err := resolve.New(c.symbols.Traits, c.symbols.Impls,
		resolve.WithLogger(c.logger),
		resolve.WithMaxDepth(c.opts.MaxSpecializationDepth))
	c.resolver = resolver
	if c.report(err) {
		return nil, c.errs()
	}

	c.lowerGlobals()
	if c.reporter.HasFatal() {
		return nil, c.errs()
	}

	for _, def := range c.roots() {
		c.requestPlain(def)
		if c.reporter.HasFatal() {
			return nil, c.errs()
		}
	}
	if c.reporter.Len() > 0 {
		return nil, c.errs()
	}

	pm := ir.NewPassManager(c.logger)
	pm.AddPass(closure.NewPass(c.logger))
	effectsPass := effects.NewPass(c.logger)
	pm.AddPass(effectsPass)
	pm.AddPass(ir.VerifyPass{})
	if c.report(pm.Run(c.prog)) || c.reporter.Len() > 0 {
		return nil, c.errs()
	}

	c.stats.Passes = pm.Stats()
	c.stats.Effects = effectsPass.Stats()
	c.logger.Debug("compilation finished",
		zap.Int("specializations", c.stats.Specializations),
		zap.Int("reused", c.stats.Reused),
		zap.Int("functions", len(c.prog.AllFuns())))
	return c.prog, nil
}

func (c *Compiler) reset() {
	c.symbols = NewSymbolTable()
	c.resolver = nil
	c.prog = ir.NewProgram()
	c.reporter = errors.NewReporter()
	c.plain = make(map[string]*ir.Fun)
	c.tables = make(map[string]*dispatchTable)
	c.instances = make(map[string]bool)
	c.lambdas = make(map[string]int)
	c.requests = nil
	c.stats = Stats{}
}

// report 记录错误，返回是否遇到致命错误
//
// 非诊断错误（例如 IR 校验失败）包装为内部错误。
func (c *Compiler) report(err error) bool {
	if err == nil || err == errAborted {
		return c.reporter.HasFatal()
	}
	for _, e := range multierr.Errors(err) {
		if e == errAborted {
			continue
		}
		var d *errors.Diagnostic
		if !stderrors.As(e, &d) {
			e = errors.Internal(token.Position{}, e)
		}
		c.reporter.Report(e)
	}
	return c.reporter.HasFatal()
}

// roots 特化的起点：kernel 按声明顺序在前，其余非泛型函数随后
func (c *Compiler) roots() []*FuncDef {
	var kernels, others []*FuncDef
	for _, def := range c.symbols.FuncOrder {
		switch {
		case def.Decl.Mods.Kernel && def.Generic():
			c.report(errors.New(errors.E0201, def.Decl.At, 1, def.Name))
		case def.Decl.Mods.Kernel:
			kernels = append(kernels, def)
		case !def.Generic() && c.opts.EmitUnreachable:
			others = append(others, def)
		}
	}
	return append(kernels, others...)
}

// ============================================================================
// 全局变量
// ============================================================================

func (c *Compiler) lowerGlobals() {
	for _, v := range c.symbols.VarOrder {
		d := v.Decl
		init, err := constValue(d.Value)
		if err != nil {
			c.report(errors.New(errors.E0217, d.At, d.Name))
			continue
		}
		t := init.Type
		if d.Type != nil {
			declared, err := c.symbols.Elaborate(d.Type, nil)
			if err != nil {
				c.report(err)
				continue
			}
			if !types.Assignable(t, declared) {
				c.report(errors.New(errors.E0200, d.Value.Pos(), declared.String(), t.String()))
				continue
			}
			t = declared
			init.Type = declared
		}
		storage := ir.RegionGlobal
		if d.Mods.Region != ast.RegionNone {
			storage = irRegion(d.Mods.Region)
		}
		c.prog.Vars = append(c.prog.Vars, &ir.Var{Name: d.Name, Storage: storage, Type: t, Init: init})
	}
}

// constValue 全局变量初始值只能是字面量（或取负的数值字面量）
func constValue(e ast.Expr) (*ir.Const, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		t, err := intLitType(v)
		if err != nil {
			return nil, err
		}
		return ir.IntConst(t, v.Value), nil
	case *ast.FloatLit:
		t, err := floatLitType(v)
		if err != nil {
			return nil, err
		}
		return ir.FloatConst(t, v.Value), nil
	case *ast.BoolLit:
		return ir.BoolConst(v.Value), nil
	case *ast.CharLit:
		return ir.IntConst(types.CharT(), int64(v.Value)), nil
	case *ast.Unary:
		if v.Op != "-" {
			break
		}
		inner, err := constValue(v.X)
		if err != nil {
			return nil, err
		}
		if p, ok := types.PrimOfType(inner.Type); ok && (p.Scalar.IsInteger() || p.Scalar.IsFloat()) {
			inner.Int, inner.Float = -inner.Int, -inner.Float
			return inner, nil
		}
	}
	return nil, fmt.Errorf("not a constant")
}

// ============================================================================
// 类型实例
// ============================================================================

// errs 按配置的语言渲染已报告的错误
func (c *Compiler) errs() error {
	var out error
	for _, d := range errors.Diagnostics(c.reporter.Err()) {
		out = multierr.Append(out, d.Localize(c.catalog))
	}
	return out
}

// ensureType 为类型中出现的每个具体结构体、联合体与元组登记一次定义
//
// 字段以更大的实参引用自身的类型会无限展开，
// 因此类型节点数与嵌套实例化深度都有上限，超过时报告 E0502。
func (c *Compiler) ensureType(pos token.Position, t types.Type) error {
	return c.instantiateType(pos, t, 0)
}

func (c *Compiler) instantiateType(pos token.Position, t types.Type, depth int) error {
	con, ok := t.(*types.Con)
	if !ok {
		return nil
	}
	if err := c.checkTypeSize(pos, con.Name.String(), t); err != nil {
		return err
	}
	shared := types.StripUnique(t).(*types.Con)

	switch con.Name.Kind {
	case types.KindTuple:
		if len(con.Args) == 0 {
			return nil
		}
		name := shared.String()
		if c.instances[name] {
			return nil
		}
		c.instances[name] = true
		for _, a := range con.Args {
			if err := c.instantiateType(pos, a, depth); err != nil {
				return err
			}
		}
		fields := make([]ir.Field, len(con.Args))
		for i, a := range shared.Args {
			fields[i] = ir.Field{Name: fmt.Sprint(i), Type: a}
		}
		c.prog.Structs = append(c.prog.Structs, &ir.Struct{Name: name, Type: shared, Fields: fields})

	case types.KindUser:
		name := shared.String()
		if c.instances[name] {
			return nil
		}
		if depth >= c.opts.MaxSpecializationDepth {
			d := errors.New(errors.E0502, pos, con.Name.Ident, c.opts.MaxSpecializationDepth)
			return errors.Suggest(d, nil)
		}
		c.instances[name] = true
		for _, a := range con.Args {
			if err := c.instantiateType(pos, a, depth); err != nil {
				return err
			}
		}
		if def, ok := c.symbols.Structs[con.Name.Ident]; ok {
			s := &ir.Struct{Name: name, Type: shared}
			c.prog.Structs = append(c.prog.Structs, s)
			for i, f := range def.Decl.Fields {
				ft, _, err := types.Substitute(def.Fields[i], shared.Args)
				if err != nil {
					return errors.Internal(f.At, err)
				}
				s.Fields = append(s.Fields, ir.Field{Name: f.Name, Type: ft})
				if err := c.instantiateType(pos, ft, depth+1); err != nil {
					return err
				}
			}
		} else if def, ok := c.symbols.Unions[con.Name.Ident]; ok {
			u := &ir.Union{Name: name, Type: shared}
			c.prog.Unions = append(c.prog.Unions, u)
			for i, v := range def.Decl.Variants {
				vt, _, err := types.Substitute(def.Variants[i], shared.Args)
				if err != nil {
					return errors.Internal(v.At, err)
				}
				u.Variants = append(u.Variants, ir.Field{Name: v.Name, Type: vt})
				if err := c.instantiateType(pos, vt, depth+1); err != nil {
					return err
				}
			}
		}

	default:
		for _, a := range con.Args {
			if err := c.instantiateType(pos, a, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkTypeSize 类型节点数超过上限时报告 name 的特化无法终止
func (c *Compiler) checkTypeSize(pos token.Position, name string, ts ...types.Type) error {
	limit := c.opts.MaxTypeSize
	for _, t := range ts {
		if types.Size(t, limit) > limit {
			d := errors.NewMessage(errors.E0502, i18n.ErrTypeTooLarge, pos, name, limit)
			return errors.Suggest(d, nil)
		}
	}
	return nil
}

// irRegion 区域修饰到 IR 区域，未标注时为 private
func irRegion(r ast.Region) ir.Region {
	switch r {
	case ast.RegionLocal:
		return ir.RegionLocal
	case ast.RegionGlobal:
		return ir.RegionGlobal
	case ast.RegionConstant:
		return ir.RegionConstant
	default:
		return ir.RegionPrivate
	}
}
