// Package types 实现类型值代数
//
// 类型值只有两种形态：
//   - Param: 类型方案内第 i 个类型参数的一次出现（带唯一性标记）
//   - Con:   具体或部分应用的类型构造（原始类型、元组、函数、数组、用户类型）
//
// 类型值创建后不可变，替换总是返回新值。
package types

import (
	"fmt"
	"strings"
)

// LocalType 类型参数在所属类型方案量词列表中的位置
//
// 仅在同一个方案内有意义，不能跨方案比较。
type LocalType uint32

// Type 类型值
type Type interface {
	Unique() bool   // 该出现是否带 uniq 限定
	String() string // 规范文本形式
	typeValue()
}

// Param 类型参数的一次出现
type Param struct {
	Uniq  bool
	Index LocalType
}

func (p *Param) Unique() bool { return p.Uniq }
func (p *Param) typeValue()   {}

// MarshalText 以规范文本形式序列化
func (p *Param) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// String 渲染为 t<index+1>
func (p *Param) String() string {
	s := fmt.Sprintf("t%d", p.Index+1)
	if p.Uniq {
		return "uniq " + s
	}
	return s
}

// Con 类型构造
//
// Args 的顺序即类型实参的位置顺序；函数类型的最后一个实参是返回类型。
type Con struct {
	Uniq bool
	Name Name
	Args []Type
}

func (c *Con) Unique() bool { return c.Uniq }
func (c *Con) typeValue()   {}

// MarshalText 以规范文本形式序列化
func (c *Con) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// String 返回规范文本形式（不使用函数语法糖）
func (c *Con) String() string {
	var s string
	switch c.Name.Kind {
	case KindTuple:
		s = "(" + joinTypes(c.Args) + ")"
	case KindFun:
		n := len(c.Args)
		if n == 0 {
			s = "() -> ()"
			break
		}
		s = "(" + joinTypes(c.Args[:n-1]) + ") -> " + c.Args[n-1].String()
	case KindArray:
		elem := "()"
		if len(c.Args) > 0 {
			elem = c.Args[0].String()
		}
		if c.Name.Sized {
			s = fmt.Sprintf("[%s; %d]", elem, c.Name.Len)
		} else {
			s = fmt.Sprintf("[%s; _]", elem)
		}
	default:
		s = c.Name.String()
		if len(c.Args) > 0 {
			s += "<" + joinTypes(c.Args) + ">"
		}
	}
	if c.Uniq {
		return "uniq " + s
	}
	return s
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ============================================================================
// 类型名
// ============================================================================

// NameKind 类型名种类
type NameKind uint8

const (
	KindPrim  NameKind = iota // 原始类型
	KindTuple                 // 元组
	KindFun                   // 函数
	KindArray                 // 数组（可选静态长度）
	KindUser                  // 用户定义类型
)

// Name 类型构造器的名字，可直接比较
type Name struct {
	Kind  NameKind
	Prim  Prim   // KindPrim
	Sized bool   // KindArray: 是否有静态长度
	Len   uint32 // KindArray: 静态长度
	Ident string // KindUser
}

// String 返回名字文本
func (n Name) String() string {
	switch n.Kind {
	case KindPrim:
		return n.Prim.String()
	case KindTuple:
		return "Tuple"
	case KindFun:
		return "Fun"
	case KindArray:
		if n.Sized {
			return fmt.Sprintf("Array(%d)", n.Len)
		}
		return "Array(_)"
	case KindUser:
		return n.Ident
	default:
		return "?"
	}
}

// ============================================================================
// 原始类型
// ============================================================================

// Scalar 标量种类
type Scalar uint8

const (
	Bool Scalar = iota
	Char
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
)

var scalarNames = [...]string{
	Bool:    "Bool",
	Char:    "Char",
	Int8:    "Int8",
	Int16:   "Int16",
	Int32:   "Int32",
	Int64:   "Int",
	UInt8:   "UInt8",
	UInt16:  "UInt16",
	UInt32:  "UInt32",
	UInt64:  "UInt",
	Float32: "Float32",
	Float64: "Float",
}

// IsInteger 是否整数
func (s Scalar) IsInteger() bool { return s >= Int8 && s <= UInt64 }

// IsFloat 是否浮点
func (s Scalar) IsFloat() bool { return s == Float32 || s == Float64 }

// Prim 原始类型：标量及其向量宽度（1 表示标量）
type Prim struct {
	Scalar Scalar
	Width  uint8
}

// String 返回原始类型名，如 Int、Floatx4
func (p Prim) String() string {
	name := "?"
	if int(p.Scalar) < len(scalarNames) {
		name = scalarNames[p.Scalar]
	}
	if p.Width > 1 {
		return fmt.Sprintf("%sx%d", name, p.Width)
	}
	return name
}

// vectorWidths 允许的向量宽度
var vectorWidths = []uint8{2, 3, 4, 8, 16}

var primByName = func() map[string]Prim {
	m := make(map[string]Prim)
	for s := range scalarNames {
		sc := Scalar(s)
		m[Prim{Scalar: sc, Width: 1}.String()] = Prim{Scalar: sc, Width: 1}
		if sc == Bool || sc == Char {
			continue
		}
		for _, w := range vectorWidths {
			p := Prim{Scalar: sc, Width: w}
			m[p.String()] = p
		}
	}
	return m
}()

// LookupPrim 按名字查找原始类型
func LookupPrim(name string) (Prim, bool) {
	p, ok := primByName[name]
	return p, ok
}

// ============================================================================
// 构造函数
// ============================================================================

// P 创建类型参数出现
func P(index LocalType) *Param { return &Param{Index: index} }

// UniqP 创建带 uniq 的类型参数出现
func UniqP(index LocalType) *Param { return &Param{Uniq: true, Index: index} }

// PrimOf 创建原始类型
func PrimOf(s Scalar, width uint8) *Con {
	if width == 0 {
		width = 1
	}
	return &Con{Name: Name{Kind: KindPrim, Prim: Prim{Scalar: s, Width: width}}}
}

// Int 64 位有符号整数
func Int() *Con { return PrimOf(Int64, 1) }

// Float 64 位浮点
func Float() *Con { return PrimOf(Float64, 1) }

// BoolT 布尔类型
func BoolT() *Con { return PrimOf(Bool, 1) }

// CharT 字符类型
func CharT() *Con { return PrimOf(Char, 1) }

// Unit 空元组
func Unit() *Con { return TupleOf() }

// TupleOf 创建元组类型
func TupleOf(elems ...Type) *Con {
	return &Con{Name: Name{Kind: KindTuple}, Args: elems}
}

// FunOf 创建函数类型，返回类型放在最后
func FunOf(params []Type, result Type) *Con {
	args := make([]Type, 0, len(params)+1)
	args = append(args, params...)
	args = append(args, result)
	return &Con{Name: Name{Kind: KindFun}, Args: args}
}

// ArrayOf 创建数组类型，length 为 nil 表示无静态长度
func ArrayOf(elem Type, length *uint32) *Con {
	n := Name{Kind: KindArray}
	if length != nil {
		n.Sized = true
		n.Len = *length
	}
	return &Con{Name: n, Args: []Type{elem}}
}

// Named 创建用户类型
func Named(ident string, args ...Type) *Con {
	return &Con{Name: Name{Kind: KindUser, Ident: ident}, Args: args}
}

// WithUnique 返回设置了唯一性标记的副本（标记相同时返回原值）
func WithUnique(t Type, uniq bool) Type {
	if t.Unique() == uniq {
		return t
	}
	switch v := t.(type) {
	case *Param:
		return &Param{Uniq: uniq, Index: v.Index}
	case *Con:
		return &Con{Uniq: uniq, Name: v.Name, Args: v.Args}
	default:
		panic(fmt.Sprintf("types: unexpected type value %T", t))
	}
}

// FunParts 拆分函数类型为参数与返回类型
func FunParts(t Type) ([]Type, Type, bool) {
	c, ok := t.(*Con)
	if !ok || c.Name.Kind != KindFun || len(c.Args) == 0 {
		return nil, nil, false
	}
	n := len(c.Args)
	return c.Args[:n-1], c.Args[n-1], true
}

// PrimOfType 返回原始类型信息
func PrimOfType(t Type) (Prim, bool) {
	c, ok := t.(*Con)
	if !ok || c.Name.Kind != KindPrim {
		return Prim{}, false
	}
	return c.Name.Prim, true
}
