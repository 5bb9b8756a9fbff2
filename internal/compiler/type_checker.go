package compiler

import (
	"fmt"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/types"
)

// ============================================================================
// 字面量类型
// ============================================================================

// intLitType 整数字面量的类型，带后缀时必须是整数原始类型
func intLitType(lit *ast.IntLit) (types.Type, error) {
	if lit.Type == "" {
		return types.Int(), nil
	}
	p, ok := types.LookupPrim(lit.Type)
	if !ok || p.Width != 1 || !p.Scalar.IsInteger() {
		return nil, errors.New(errors.E0202, lit.At, lit.Type)
	}
	return types.PrimOf(p.Scalar, 1), nil
}

// floatLitType 浮点字面量的类型
func floatLitType(lit *ast.FloatLit) (types.Type, error) {
	if lit.Type == "" {
		return types.Float(), nil
	}
	p, ok := types.LookupPrim(lit.Type)
	if !ok || p.Width != 1 || !p.Scalar.IsFloat() {
		return nil, errors.New(errors.E0202, lit.At, lit.Type)
	}
	return types.PrimOf(p.Scalar, 1), nil
}

// ============================================================================
// 分支合并
// ============================================================================

// join 两个分支类型的合并结果，nil 表示发散的分支
//
// 唯一值与共享值合并为共享值。
func join(a, b types.Type) (types.Type, bool) {
	switch {
	case a == nil:
		return b, true
	case b == nil:
		return a, true
	case types.Assignable(a, b):
		return b, true
	case types.Assignable(b, a):
		return a, true
	default:
		return nil, false
	}
}

// ============================================================================
// 运算符
// ============================================================================

// binaryType 检查二元运算的操作数并返回结果类型
func binaryType(op ir.BinaryOp, l, r types.Type) (types.Type, bool) {
	ls, rs := types.StripUnique(l), types.StripUnique(r)
	if !types.Equal(ls, rs) {
		return nil, false
	}
	p, ok := types.PrimOfType(ls)
	if !ok {
		return nil, false
	}
	numeric := p.Scalar.IsInteger() || p.Scalar.IsFloat()

	switch {
	case op.IsArith():
		if !numeric || (op == ir.OpMod && p.Scalar.IsFloat()) {
			return nil, false
		}
		return ls, true
	case op.IsBitwise():
		if !p.Scalar.IsInteger() {
			return nil, false
		}
		return ls, true
	case op == ir.OpEq || op == ir.OpNe:
		return types.BoolT(), true
	case op.IsCompare():
		if p.Width != 1 || !(numeric || p.Scalar == types.Char) {
			return nil, false
		}
		return types.BoolT(), true
	case op.IsLogic():
		if p.Scalar != types.Bool {
			return nil, false
		}
		return types.BoolT(), true
	}
	return nil, false
}

// unaryType 检查一元运算的操作数
func unaryType(op ir.UnaryOp, x types.Type) (types.Type, bool) {
	xs := types.StripUnique(x)
	p, ok := types.PrimOfType(xs)
	if !ok {
		return nil, false
	}
	switch op {
	case ir.OpNeg:
		return xs, p.Scalar.IsInteger() || p.Scalar.IsFloat()
	case ir.OpNot:
		return xs, p.Scalar == types.Bool || p.Scalar.IsInteger()
	}
	return nil, false
}

func (fs *funcState) lowerBinary(ex *ast.Binary) (ir.Value, types.Type, error) {
	op, ok := ir.ParseBinaryOp(ex.Op)
	if !ok {
		return nil, nil, errors.Internal(ex.At, fmt.Errorf("unknown operator %q", ex.Op))
	}
	l, lt, err := fs.lowerExpr(ex.Left)
	if err != nil || lt == nil {
		return nil, nil, err
	}
	if op.IsLogic() {
		return fs.lowerLogic(ex, op, l, lt)
	}
	r, rt, err := fs.lowerExpr(ex.Right)
	if err != nil || rt == nil {
		return nil, nil, err
	}
	t, ok := binaryType(op, lt, rt)
	if !ok {
		return nil, nil, errors.New(errors.E0218, ex.At, ex.Op, fmt.Sprintf("%s and %s", lt, rt))
	}
	ref, err := fs.temp(&ir.Binary{Op: op, L: l, R: r, Type: t})
	return ref, t, err
}

// lowerLogic 短路运算降低为条件分支
func (fs *funcState) lowerLogic(ex *ast.Binary, op ir.BinaryOp, l ir.Value, lt types.Type) (ir.Value, types.Type, error) {
	if _, ok := binaryType(op, lt, lt); !ok {
		return nil, nil, errors.New(errors.E0218, ex.At, ex.Op, lt.String())
	}
	right, err := fs.lowerBranch(ex.Right, nil)
	if err != nil {
		return nil, nil, err
	}
	if right.typ != nil {
		if _, ok := binaryType(op, lt, right.typ); !ok {
			return nil, nil, errors.New(errors.E0218, ex.At, ex.Op, fmt.Sprintf("%s and %s", lt, right.typ))
		}
	}
	short := branch{
		body: make(ir.Body, 0),
		val:  ir.BoolConst(op == ir.OpOr),
		typ:  types.BoolT(),
	}
	v, t, err := fs.mergeBranches(ex.At, []*branch{&right, &short})
	if err != nil {
		return nil, nil, err
	}
	if op == ir.OpAnd {
		fs.emit(&ir.If{Cond: l, Then: right.body, Else: short.body})
	} else {
		fs.emit(&ir.If{Cond: l, Then: short.body, Else: right.body})
	}
	return v, t, nil
}

func (fs *funcState) lowerUnary(ex *ast.Unary) (ir.Value, types.Type, error) {
	op, ok := ir.ParseUnaryOp(ex.Op)
	if !ok {
		return nil, nil, errors.Internal(ex.At, fmt.Errorf("unknown operator %q", ex.Op))
	}
	x, xt, err := fs.lowerExpr(ex.X)
	if err != nil || xt == nil {
		return nil, nil, err
	}
	t, ok := unaryType(op, xt)
	if !ok {
		return nil, nil, errors.New(errors.E0218, ex.At, ex.Op, xt.String())
	}
	ref, err := fs.temp(&ir.Unary{Op: op, X: x, Type: t})
	return ref, t, err
}
