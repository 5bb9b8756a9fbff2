package ir

import (
	"fmt"

	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// ============================================================================
// 值
// ============================================================================

// Value 操作数：变量引用或常量
type Value interface {
	ValueType() types.Type
	value()
}

// VarKind 变量引用的存储类
type VarKind uint8

const (
	VarGlobal       VarKind = iota // 全局变量
	VarLocal                       // 局部变量槽
	VarArg                         // 调用方传入的参数
	VarEnvField                    // 闭包环境记录字段
	VarClosureArg                  // 闭包值参数
	VarClosureLocal                // 闭包值局部变量
	VarCapture                     // 尚未转换的外层变量捕获
)

var varKindNames = [...]string{
	VarGlobal:       "global",
	VarLocal:        "local",
	VarArg:          "arg",
	VarEnvField:     "env",
	VarClosureArg:   "closure_arg",
	VarClosureLocal: "closure_local",
	VarCapture:      "capture",
}

func (k VarKind) String() string {
	if int(k) < len(varKindNames) {
		return varKindNames[k]
	}
	return fmt.Sprintf("VarKind(%d)", k)
}

// MarshalText 以名字序列化
func (k VarKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// VarRef 变量引用
//
// Region 对局部变量与参数是其存储区域，对环境字段与闭包值是所在记录的区域。
// Addr 表示取地址形式。VarCapture 只在闭包转换之前出现，Outer 为外层函数中的引用。
type VarRef struct {
	Kind   VarKind    `json:"kind"`
	Region Region     `json:"region"`
	Index  uint32     `json:"index"`
	Name   string     `json:"name,omitempty"`
	Type   types.Type `json:"type"`
	Addr   bool       `json:"addr,omitempty"`
	Outer  *VarRef    `json:"outer,omitempty"`
}

func (v *VarRef) ValueType() types.Type { return v.Type }
func (v *VarRef) value()                {}

// Same 是否引用同一存储位置（忽略类型与取地址）
func (v *VarRef) Same(o *VarRef) bool {
	return v.Kind == o.Kind && v.Index == o.Index && v.Name == o.Name
}

func (v *VarRef) String() string {
	prefix := ""
	if v.Addr {
		prefix = "&"
	}
	return fmt.Sprintf("%s%s.%s[%d]", prefix, v.Kind, v.Region, v.Index)
}

// Const 常量
type Const struct {
	Type  types.Type `json:"type"`
	Int   int64      `json:"int,omitempty"`
	Float float64    `json:"float,omitempty"`
	Bool  bool       `json:"bool,omitempty"`
}

func (c *Const) ValueType() types.Type { return c.Type }
func (c *Const) value()                {}

// IntConst 整数常量（字符常量也以码点存放在 Int 中）
func IntConst(t types.Type, v int64) *Const { return &Const{Type: t, Int: v} }

// FloatConst 浮点常量
func FloatConst(t types.Type, v float64) *Const { return &Const{Type: t, Float: v} }

// BoolConst 布尔常量
func BoolConst(v bool) *Const { return &Const{Type: types.BoolT(), Bool: v} }

// UnitConst 空元组值
func UnitConst() *Const { return &Const{Type: types.Unit()} }

// ============================================================================
// 运算
// ============================================================================

// Op 产生一个值的运算
type Op interface {
	ResultType() types.Type
	op()
}

// Load 读取一个值
type Load struct {
	Src Value `json:"src"`
}

// Unary 一元运算
type Unary struct {
	Op   UnaryOp    `json:"op"`
	X    Value      `json:"x"`
	Type types.Type `json:"type"`
}

// Binary 二元运算
type Binary struct {
	Op   BinaryOp   `json:"op"`
	L    Value      `json:"l"`
	R    Value      `json:"r"`
	Type types.Type `json:"type"`
}

// BuiltinCall 内建操作（包括 builtin impl 的操作）
type BuiltinCall struct {
	Name string     `json:"name"`
	Args []Value    `json:"args"`
	Type types.Type `json:"type"`
}

// FunRef 调用目标：Generic 为 true 时 Key 是分派表中的键
type FunRef struct {
	Name    string `json:"name"`
	Key     uint32 `json:"key"`
	Generic bool   `json:"generic,omitempty"`
}

func (r FunRef) String() string {
	if r.Generic {
		return fmt.Sprintf("%s#%d", r.Name, r.Key)
	}
	return r.Name
}

// Call 调用已解析的用户函数，Propagate 表示需要传播被调方的 panic
type Call struct {
	Target    FunRef     `json:"target"`
	Args      []Value    `json:"args"`
	Type      types.Type `json:"type"`
	Propagate bool       `json:"propagate,omitempty"`
}

// CallClosure 通过闭包值调用
type CallClosure struct {
	Closure   Value      `json:"closure"`
	Region    Region     `json:"region"`
	Args      []Value    `json:"args"`
	Type      types.Type `json:"type"`
	Propagate bool       `json:"propagate,omitempty"`
}

// LoadField 读取结构体/元组字段或联合体变体载荷
type LoadField struct {
	X     Value      `json:"x"`
	Index uint32     `json:"index"`
	Type  types.Type `json:"type"`
}

// MakeAggregate 构造结构体、元组或联合体值
//
// 联合体时 Variant 为变体下标，Fields 只有一个载荷。
type MakeAggregate struct {
	Type    types.Type `json:"type"`
	Variant int        `json:"variant"`
	Fields  []Value    `json:"fields"`
}

// Alloc 在区域中分配数组
type Alloc struct {
	Region Region     `json:"region"`
	Type   types.Type `json:"type"`
	Elems  []Value    `json:"elems"`
}

// MakeClosure 在区域中分配闭包环境并与代码指针配对
//
// 闭包转换之前 Env 与 Captures 为空，Region 为上下文提示（Hinted 为 true 时有效）。
type MakeClosure struct {
	Fun      string         `json:"fun"`
	Env      string         `json:"env"`
	Region   Region         `json:"region"`
	Hinted   bool           `json:"-"`
	Captures []Value        `json:"captures"`
	Type     types.Type     `json:"type"`
	Pos      token.Position `json:"-"`
}

func (o *Load) ResultType() types.Type          { return o.Src.ValueType() }
func (o *Unary) ResultType() types.Type         { return o.Type }
func (o *Binary) ResultType() types.Type        { return o.Type }
func (o *BuiltinCall) ResultType() types.Type   { return o.Type }
func (o *Call) ResultType() types.Type          { return o.Type }
func (o *CallClosure) ResultType() types.Type   { return o.Type }
func (o *LoadField) ResultType() types.Type     { return o.Type }
func (o *MakeAggregate) ResultType() types.Type { return o.Type }
func (o *Alloc) ResultType() types.Type         { return o.Type }
func (o *MakeClosure) ResultType() types.Type   { return o.Type }

func (*Load) op()          {}
func (*Unary) op()         {}
func (*Binary) op()        {}
func (*BuiltinCall) op()   {}
func (*Call) op()          {}
func (*CallClosure) op()   {}
func (*LoadField) op()     {}
func (*MakeAggregate) op() {}
func (*Alloc) op()         {}
func (*MakeClosure) op()   {}

// ============================================================================
// 指令
// ============================================================================

// Instr 指令
type Instr interface {
	instr()
}

// Body 指令序列
type Body []Instr

// Block 嵌套块，Vars 为块内声明的局部变量槽
type Block struct {
	Vars []uint32 `json:"vars"`
	Body Body     `json:"body"`
}

// Assign 计算运算结果并写入变量
type Assign struct {
	Dest *VarRef `json:"dest"`
	Op   Op      `json:"op"`
}

// Do 只为副作用执行运算
type Do struct {
	Op Op `json:"op"`
}

// Return 返回，Value 为 nil 表示返回 ()
type Return struct {
	Value Value `json:"value,omitempty"`
}

// If 条件分支
type If struct {
	Cond Value `json:"cond"`
	Then Body  `json:"then"`
	Else Body  `json:"else,omitempty"`
}

// CaseKind case 值种类
type CaseKind uint8

const (
	CaseInt    CaseKind = iota // 整数
	CaseChar                   // 字符
	CaseMarker                 // 内建标记（联合体变体名、布尔值）
)

// CaseValue switch 的 case 值
type CaseValue struct {
	Kind   CaseKind `json:"kind"`
	Int    int64    `json:"int,omitempty"`
	Marker string   `json:"marker,omitempty"`
}

func (c CaseValue) String() string {
	switch c.Kind {
	case CaseChar:
		return fmt.Sprintf("%q", rune(c.Int))
	case CaseMarker:
		return c.Marker
	default:
		return fmt.Sprintf("%d", c.Int)
	}
}

// SwitchCase switch 分支
type SwitchCase struct {
	Values []CaseValue `json:"values"`
	Body   Body        `json:"body"`
}

// Switch 对有限字面量集合分支
type Switch struct {
	Subject Value        `json:"subject"`
	Cases   []SwitchCase `json:"cases"`
	Default Body         `json:"default,omitempty"`
}

// Loop 无条件循环
type Loop struct {
	Body Body `json:"body"`
}

// Break 跳出最内层循环
type Break struct{}

// Continue 继续最内层循环
type Continue struct{}

// Panic 终止执行，Trace 为产生该 panic 的源位置链（最内层在前）
type Panic struct {
	Message string           `json:"message"`
	Trace   []token.Position `json:"trace"`
}

func (*Block) instr()    {}
func (*Assign) instr()   {}
func (*Do) instr()       {}
func (*Return) instr()   {}
func (*If) instr()       {}
func (*Switch) instr()   {}
func (*Loop) instr()     {}
func (*Break) instr()    {}
func (*Continue) instr() {}
func (*Panic) instr()    {}
