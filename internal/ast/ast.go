// Package ast 定义上游解析器产出的表层语法树
//
// 中间层只读地消费这棵树，不重新解析。
package ast

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/polyc/internal/token"
)

// Node 是所有 AST 节点的基接口
type Node interface {
	Pos() token.Position // 返回节点在源代码中的位置
	String() string      // 返回节点的字符串表示（用于调试和诊断）
}

// Expr 表示一个表达式节点
type Expr interface {
	Node
	exprNode()
}

// Stmt 表示一个语句节点
type Stmt interface {
	Node
	stmtNode()
}

// Decl 表示一个顶层声明
type Decl interface {
	Node
	DeclName() string
	declNode()
}

// TypeExpr 表示类型节点
type TypeExpr interface {
	Node
	typeNode()
}

// ============================================================================
// 修饰符
// ============================================================================

// Region 内存区域修饰
type Region uint8

const (
	RegionNone     Region = iota // 未标注
	RegionPrivate                // private
	RegionLocal                  // local
	RegionGlobal                 // global
	RegionConstant               // constant（仅用于全局变量存储类）
)

func (r Region) String() string {
	switch r {
	case RegionPrivate:
		return "private"
	case RegionLocal:
		return "local"
	case RegionGlobal:
		return "global"
	case RegionConstant:
		return "constant"
	default:
		return ""
	}
}

// Modifiers 声明修饰符
type Modifiers struct {
	Region Region // 存储类 / 内存区域
	Inline bool   // inline
	Kernel bool   // kernel 入口
}

func (m Modifiers) String() string {
	var parts []string
	if m.Kernel {
		parts = append(parts, "kernel")
	}
	if m.Inline {
		parts = append(parts, "inline")
	}
	if m.Region != RegionNone {
		parts = append(parts, m.Region.String())
	}
	return strings.Join(parts, " ")
}

// ============================================================================
// 类型节点
// ============================================================================

// NamedType 命名类型 (Int, List<t>)，名字为类型参数时表示参数出现
type NamedType struct {
	At   token.Position
	Name string
	Args []TypeExpr
	Uniq bool
}

func (t *NamedType) Pos() token.Position { return t.At }
func (t *NamedType) String() string {
	s := t.Name
	if len(t.Args) > 0 {
		s += "<" + joinNodes(t.Args) + ">"
	}
	return uniqPrefix(t.Uniq) + s
}
func (t *NamedType) typeNode() {}

// TupleType 元组类型 (Int, Float)
type TupleType struct {
	At    token.Position
	Elems []TypeExpr
	Uniq  bool
}

func (t *TupleType) Pos() token.Position { return t.At }
func (t *TupleType) String() string      { return uniqPrefix(t.Uniq) + "(" + joinNodes(t.Elems) + ")" }
func (t *TupleType) typeNode()           {}

// FunType 函数类型 (Int, Int) -> Bool
type FunType struct {
	At     token.Position
	Params []TypeExpr
	Result TypeExpr
	Uniq   bool
}

func (t *FunType) Pos() token.Position { return t.At }
func (t *FunType) String() string {
	return uniqPrefix(t.Uniq) + "(" + joinNodes(t.Params) + ") -> " + t.Result.String()
}
func (t *FunType) typeNode() {}

// ArrayType 数组类型 [Int; 4] 或 [Int; _]
type ArrayType struct {
	At   token.Position
	Elem TypeExpr
	Len  *uint32 // nil 表示无静态长度
	Uniq bool
}

func (t *ArrayType) Pos() token.Position { return t.At }
func (t *ArrayType) String() string {
	if t.Len != nil {
		return fmt.Sprintf("%s[%s; %d]", uniqPrefix(t.Uniq), t.Elem, *t.Len)
	}
	return fmt.Sprintf("%s[%s; _]", uniqPrefix(t.Uniq), t.Elem)
}
func (t *ArrayType) typeNode() {}

// ============================================================================
// 声明
// ============================================================================

// Program 一个编译单元的全部声明
type Program struct {
	Decls []Decl
}

// FieldDecl 结构体字段或联合体变体
type FieldDecl struct {
	At   token.Position
	Name string
	Type TypeExpr
}

// StructDecl 结构体声明
type StructDecl struct {
	At         token.Position
	Name       string
	TypeParams []string
	Fields     []*FieldDecl
}

func (d *StructDecl) Pos() token.Position { return d.At }
func (d *StructDecl) String() string      { return "struct " + d.Name }
func (d *StructDecl) DeclName() string    { return d.Name }
func (d *StructDecl) declNode()           {}

// UnionDecl 联合体声明，每个变体携带一个载荷类型
type UnionDecl struct {
	At         token.Position
	Name       string
	TypeParams []string
	Variants   []*FieldDecl
}

func (d *UnionDecl) Pos() token.Position { return d.At }
func (d *UnionDecl) String() string      { return "union " + d.Name }
func (d *UnionDecl) DeclName() string    { return d.Name }
func (d *UnionDecl) declNode()           {}

// TraitOp trait 要求的操作，签名中可使用 trait 参数
type TraitOp struct {
	At     token.Position
	Name   string
	Params []TypeExpr
	Result TypeExpr
}

// TraitDecl trait 声明 trait Eq<t> { eq(t, t) -> Bool }
type TraitDecl struct {
	At    token.Position
	Name  string
	Param string
	Ops   []*TraitOp
}

func (d *TraitDecl) Pos() token.Position { return d.At }
func (d *TraitDecl) String() string      { return "trait " + d.Name }
func (d *TraitDecl) DeclName() string    { return d.Name }
func (d *TraitDecl) declNode()           {}

// Constraint where 约束 t: Eq + Ord
type Constraint struct {
	At     token.Position
	Param  string
	Traits []string
}

func (c *Constraint) String() string {
	return c.Param + ": " + strings.Join(c.Traits, " + ")
}

// ImplDecl 实现声明 impl<t> Eq for List<t> where t: Eq { ... }
//
// Builtin 为 true 时没有函数体，每个操作映射到固定的原生操作。
type ImplDecl struct {
	At      token.Position
	Trait   string
	Params  []string
	For     TypeExpr
	Where   []*Constraint
	Builtin bool
	Ops     []*FuncDecl
}

func (d *ImplDecl) Pos() token.Position { return d.At }
func (d *ImplDecl) String() string      { return "impl " + d.Trait + " for " + d.For.String() }
func (d *ImplDecl) DeclName() string    { return d.Trait + " for " + d.For.String() }
func (d *ImplDecl) declNode()           {}

// Param 函数或 lambda 参数
type Param struct {
	At     token.Position
	Name   string
	Type   TypeExpr
	Region Region
}

// FuncDecl 函数声明
type FuncDecl struct {
	At         token.Position
	Name       string
	Mods       Modifiers
	TypeParams []string
	Where      []*Constraint
	Params     []*Param
	Result     TypeExpr // nil 表示 ()
	Body       Expr
}

func (d *FuncDecl) Pos() token.Position { return d.At }
func (d *FuncDecl) String() string {
	s := "fn " + d.Name
	if len(d.TypeParams) > 0 {
		s += "<" + strings.Join(d.TypeParams, ", ") + ">"
	}
	return s
}
func (d *FuncDecl) DeclName() string { return d.Name }
func (d *FuncDecl) declNode()        {}

// VarDecl 全局变量声明，Mods.Region 为存储类
type VarDecl struct {
	At    token.Position
	Name  string
	Mods  Modifiers
	Type  TypeExpr
	Value Expr
}

func (d *VarDecl) Pos() token.Position { return d.At }
func (d *VarDecl) String() string      { return "var " + d.Name }
func (d *VarDecl) DeclName() string    { return d.Name }
func (d *VarDecl) declNode()           {}

// ============================================================================
// 表达式
// ============================================================================

// IntLit 整数字面量，Type 为空时为 Int
type IntLit struct {
	At    token.Position
	Value int64
	Type  string
}

func (e *IntLit) Pos() token.Position { return e.At }
func (e *IntLit) String() string      { return fmt.Sprintf("%d", e.Value) }
func (e *IntLit) exprNode()           {}

// FloatLit 浮点字面量，Type 为空时为 Float
type FloatLit struct {
	At    token.Position
	Value float64
	Type  string
}

func (e *FloatLit) Pos() token.Position { return e.At }
func (e *FloatLit) String() string      { return fmt.Sprintf("%g", e.Value) }
func (e *FloatLit) exprNode()           {}

// BoolLit 布尔字面量
type BoolLit struct {
	At    token.Position
	Value bool
}

func (e *BoolLit) Pos() token.Position { return e.At }
func (e *BoolLit) String() string      { return fmt.Sprintf("%t", e.Value) }
func (e *BoolLit) exprNode()           {}

// CharLit 字符字面量
type CharLit struct {
	At    token.Position
	Value rune
}

func (e *CharLit) Pos() token.Position { return e.At }
func (e *CharLit) String() string      { return fmt.Sprintf("%q", e.Value) }
func (e *CharLit) exprNode()           {}

// Ident 名字引用（变量、函数或 trait 操作）
type Ident struct {
	At   token.Position
	Name string
}

func (e *Ident) Pos() token.Position { return e.At }
func (e *Ident) String() string      { return e.Name }
func (e *Ident) exprNode()           {}

// Call 调用，TypeArgs 可显式给出被调函数的类型参数
type Call struct {
	At       token.Position
	Callee   Expr
	TypeArgs []TypeExpr
	Args     []Expr
}

func (e *Call) Pos() token.Position { return e.At }
func (e *Call) String() string      { return e.Callee.String() + "(" + joinNodes(e.Args) + ")" }
func (e *Call) exprNode()           {}

// Lambda 匿名函数，Region 为闭包环境要求的最小区域
type Lambda struct {
	At     token.Position
	Region Region
	Params []*Param
	Result TypeExpr
	Body   Expr
}

func (e *Lambda) Pos() token.Position { return e.At }
func (e *Lambda) String() string      { return "\\(...) -> {...}" }
func (e *Lambda) exprNode()           {}

// TupleLit 元组 (a, b)
type TupleLit struct {
	At    token.Position
	Elems []Expr
}

func (e *TupleLit) Pos() token.Position { return e.At }
func (e *TupleLit) String() string      { return "(" + joinNodes(e.Elems) + ")" }
func (e *TupleLit) exprNode()           {}

// FieldExpr 字段访问 x.name，元组字段用 "0"、"1"
type FieldExpr struct {
	At   token.Position
	X    Expr
	Name string
}

func (e *FieldExpr) Pos() token.Position { return e.At }
func (e *FieldExpr) String() string      { return e.X.String() + "." + e.Name }
func (e *FieldExpr) exprNode()           {}

// FieldInit 结构体字面量字段
type FieldInit struct {
	At    token.Position
	Name  string
	Value Expr
}

// StructLit 结构体字面量 Point { x: 1, y: 2 }
type StructLit struct {
	At       token.Position
	Name     string
	TypeArgs []TypeExpr
	Fields   []*FieldInit
}

func (e *StructLit) Pos() token.Position { return e.At }
func (e *StructLit) String() string      { return e.Name + " {...}" }
func (e *StructLit) exprNode()           {}

// UnionLit 联合体构造 Option<Int>::Some(1)
type UnionLit struct {
	At       token.Position
	Name     string
	TypeArgs []TypeExpr
	Variant  string
	Value    Expr
}

func (e *UnionLit) Pos() token.Position { return e.At }
func (e *UnionLit) String() string      { return e.Name + "::" + e.Variant + "(" + e.Value.String() + ")" }
func (e *UnionLit) exprNode()           {}

// ArrayLit 数组字面量，在 Region 指定的内存中分配
type ArrayLit struct {
	At     token.Position
	Region Region
	Sized  bool // true 时类型带静态长度
	Elems  []Expr
}

func (e *ArrayLit) Pos() token.Position { return e.At }
func (e *ArrayLit) String() string      { return "[" + joinNodes(e.Elems) + "]" }
func (e *ArrayLit) exprNode()           {}

// Binary 二元运算
type Binary struct {
	At    token.Position
	Op    string
	Left  Expr
	Right Expr
}

func (e *Binary) Pos() token.Position { return e.At }
func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}
func (e *Binary) exprNode() {}

// Unary 一元运算 (- / !)
type Unary struct {
	At token.Position
	Op string
	X  Expr
}

func (e *Unary) Pos() token.Position { return e.At }
func (e *Unary) String() string      { return e.Op + e.X.String() }
func (e *Unary) exprNode()           {}

// If 条件表达式，Else 为 nil 时值为 ()
type If struct {
	At   token.Position
	Cond Expr
	Then Expr
	Else Expr
}

func (e *If) Pos() token.Position { return e.At }
func (e *If) String() string      { return "if " + e.Cond.String() + " {...}" }
func (e *If) exprNode()           {}

// Block 语句块，Value 为 nil 时值为 ()
type Block struct {
	At    token.Position
	Stmts []Stmt
	Value Expr
}

func (e *Block) Pos() token.Position { return e.At }
func (e *Block) String() string      { return "{...}" }
func (e *Block) exprNode()           {}

// Case switch 分支，Values 必须是字面量
type Case struct {
	At     token.Position
	Values []Expr
	Body   Expr
}

// Switch 对有限字面量集合分支
type Switch struct {
	At      token.Position
	Subject Expr
	Cases   []*Case
	Default Expr
}

func (e *Switch) Pos() token.Position { return e.At }
func (e *Switch) String() string      { return "switch " + e.Subject.String() + " {...}" }
func (e *Switch) exprNode()           {}

// Arm match 分支，Bind 绑定变体载荷（可为空）
type Arm struct {
	At      token.Position
	Variant string
	Bind    string
	Body    Expr
}

// Match 对联合体变体分支
type Match struct {
	At      token.Position
	Subject Expr
	Arms    []*Arm
}

func (e *Match) Pos() token.Position { return e.At }
func (e *Match) String() string      { return "match " + e.Subject.String() + " {...}" }
func (e *Match) exprNode()           {}

// Loop 无条件循环，由 break 退出
type Loop struct {
	At   token.Position
	Body Expr
}

func (e *Loop) Pos() token.Position { return e.At }
func (e *Loop) String() string      { return "loop {...}" }
func (e *Loop) exprNode()           {}

// Break 跳出循环
type Break struct {
	At token.Position
}

func (e *Break) Pos() token.Position { return e.At }
func (e *Break) String() string      { return "break" }
func (e *Break) exprNode()           {}

// Continue 继续循环
type Continue struct {
	At token.Position
}

func (e *Continue) Pos() token.Position { return e.At }
func (e *Continue) String() string      { return "continue" }
func (e *Continue) exprNode()           {}

// Return 从函数返回
type Return struct {
	At    token.Position
	Value Expr
}

func (e *Return) Pos() token.Position { return e.At }
func (e *Return) String() string      { return "return" }
func (e *Return) exprNode()           {}

// Panic 终止执行
type Panic struct {
	At      token.Position
	Message string
}

func (e *Panic) Pos() token.Position { return e.At }
func (e *Panic) String() string      { return fmt.Sprintf("panic(%q)", e.Message) }
func (e *Panic) exprNode()           {}

// ============================================================================
// 语句
// ============================================================================

// Let 局部绑定，Region 标注值所在的内存区域
type Let struct {
	At     token.Position
	Name   string
	Region Region
	Type   TypeExpr
	Value  Expr
}

func (s *Let) Pos() token.Position { return s.At }
func (s *Let) String() string      { return "let " + s.Name + " = " + s.Value.String() }
func (s *Let) stmtNode()           {}

// Assign 给局部变量重新赋值
type Assign struct {
	At    token.Position
	Name  string
	Value Expr
}

func (s *Assign) Pos() token.Position { return s.At }
func (s *Assign) String() string      { return s.Name + " = " + s.Value.String() }
func (s *Assign) stmtNode()           {}

// ExprStmt 表达式语句
type ExprStmt struct {
	At token.Position
	X  Expr
}

func (s *ExprStmt) Pos() token.Position { return s.At }
func (s *ExprStmt) String() string      { return s.X.String() }
func (s *ExprStmt) stmtNode()           {}

// ============================================================================
// 辅助函数
// ============================================================================

func joinNodes[T Node](nodes []T) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func uniqPrefix(u bool) string {
	if u {
		return "uniq "
	}
	return ""
}
