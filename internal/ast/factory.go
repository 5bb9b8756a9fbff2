package ast

import "github.com/tangzhangming/polyc/internal/token"

// ============================================================================
// AST 节点工厂函数
// ============================================================================
//
// 上游解析器与测试通过这些函数构造节点，避免手动初始化字段出错。
// 位置参数统一放在第一位。
//
// ============================================================================

// ============================================================================
// 类型节点工厂
// ============================================================================

// NewNamedType 创建命名类型节点
func NewNamedType(pos token.Position, name string, args ...TypeExpr) *NamedType {
	return &NamedType{At: pos, Name: name, Args: args}
}

// NewUniqType 创建带 uniq 的命名类型节点
func NewUniqType(pos token.Position, name string, args ...TypeExpr) *NamedType {
	return &NamedType{At: pos, Name: name, Args: args, Uniq: true}
}

// NewTupleType 创建元组类型节点
func NewTupleType(pos token.Position, elems ...TypeExpr) *TupleType {
	return &TupleType{At: pos, Elems: elems}
}

// NewFunType 创建函数类型节点
func NewFunType(pos token.Position, params []TypeExpr, result TypeExpr) *FunType {
	return &FunType{At: pos, Params: params, Result: result}
}

// NewArrayType 创建数组类型节点，length < 0 表示无静态长度
func NewArrayType(pos token.Position, elem TypeExpr, length int) *ArrayType {
	t := &ArrayType{At: pos, Elem: elem}
	if length >= 0 {
		n := uint32(length)
		t.Len = &n
	}
	return t
}

// ============================================================================
// 声明工厂
// ============================================================================

// NewParam 创建参数
func NewParam(pos token.Position, name string, typ TypeExpr) *Param {
	return &Param{At: pos, Name: name, Type: typ}
}

// NewField 创建字段或变体
func NewField(pos token.Position, name string, typ TypeExpr) *FieldDecl {
	return &FieldDecl{At: pos, Name: name, Type: typ}
}

// NewConstraint 创建 where 约束
func NewConstraint(pos token.Position, param string, traits ...string) *Constraint {
	return &Constraint{At: pos, Param: param, Traits: traits}
}

// NewFunc 创建函数声明
func NewFunc(pos token.Position, name string, typeParams []string, params []*Param, result TypeExpr, body Expr) *FuncDecl {
	return &FuncDecl{
		At:         pos,
		Name:       name,
		TypeParams: typeParams,
		Params:     params,
		Result:     result,
		Body:       body,
	}
}

// NewKernel 创建 kernel 入口函数声明
func NewKernel(pos token.Position, name string, params []*Param, result TypeExpr, body Expr) *FuncDecl {
	fn := NewFunc(pos, name, nil, params, result, body)
	fn.Mods.Kernel = true
	return fn
}

// NewTrait 创建 trait 声明
func NewTrait(pos token.Position, name, param string, ops ...*TraitOp) *TraitDecl {
	return &TraitDecl{At: pos, Name: name, Param: param, Ops: ops}
}

// NewTraitOp 创建 trait 操作签名
func NewTraitOp(pos token.Position, name string, params []TypeExpr, result TypeExpr) *TraitOp {
	return &TraitOp{At: pos, Name: name, Params: params, Result: result}
}

// NewImpl 创建 impl 声明
func NewImpl(pos token.Position, trait string, params []string, forType TypeExpr, ops ...*FuncDecl) *ImplDecl {
	return &ImplDecl{At: pos, Trait: trait, Params: params, For: forType, Ops: ops}
}

// NewBuiltinImpl 创建 builtin impl 声明
func NewBuiltinImpl(pos token.Position, trait string, forType TypeExpr) *ImplDecl {
	return &ImplDecl{At: pos, Trait: trait, For: forType, Builtin: true}
}

// ============================================================================
// 表达式工厂
// ============================================================================

// NewIdent 创建名字引用
func NewIdent(pos token.Position, name string) *Ident {
	return &Ident{At: pos, Name: name}
}

// NewInt 创建整数字面量
func NewInt(pos token.Position, value int64) *IntLit {
	return &IntLit{At: pos, Value: value}
}

// NewFloat 创建浮点字面量
func NewFloat(pos token.Position, value float64) *FloatLit {
	return &FloatLit{At: pos, Value: value}
}

// NewBool 创建布尔字面量
func NewBool(pos token.Position, value bool) *BoolLit {
	return &BoolLit{At: pos, Value: value}
}

// NewCall 按名字调用
func NewCall(pos token.Position, callee string, args ...Expr) *Call {
	return &Call{At: pos, Callee: NewIdent(pos, callee), Args: args}
}

// NewBinary 创建二元运算
func NewBinary(pos token.Position, op string, left, right Expr) *Binary {
	return &Binary{At: pos, Op: op, Left: left, Right: right}
}

// NewTuple 创建元组字面量
func NewTuple(pos token.Position, elems ...Expr) *TupleLit {
	return &TupleLit{At: pos, Elems: elems}
}

// NewFieldExpr 创建字段访问
func NewFieldExpr(pos token.Position, x Expr, name string) *FieldExpr {
	return &FieldExpr{At: pos, X: x, Name: name}
}

// NewBlock 创建语句块
func NewBlock(pos token.Position, value Expr, stmts ...Stmt) *Block {
	return &Block{At: pos, Stmts: stmts, Value: value}
}

// NewLambda 创建 lambda
func NewLambda(pos token.Position, region Region, params []*Param, result TypeExpr, body Expr) *Lambda {
	return &Lambda{At: pos, Region: region, Params: params, Result: result, Body: body}
}

// NewLet 创建局部绑定
func NewLet(pos token.Position, name string, value Expr) *Let {
	return &Let{At: pos, Name: name, Value: value}
}
