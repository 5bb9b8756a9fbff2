package types

import "fmt"

// Shape 实现查找时使用的类型形状
//
// 用户类型与原始类型按名字区分；元组、函数按元数区分；
// 数组只区分有无静态长度（Array(Some) / Array(None)）。
type Shape struct {
	Kind  NameKind
	Prim  Prim
	Ident string
	Arity int
	Sized bool
}

// ShapeOf 计算类型的形状，类型参数没有形状
func ShapeOf(t Type) (Shape, bool) {
	c, ok := t.(*Con)
	if !ok {
		return Shape{}, false
	}
	s := Shape{Kind: c.Name.Kind}
	switch c.Name.Kind {
	case KindPrim:
		s.Prim = c.Name.Prim
	case KindUser:
		s.Ident = c.Name.Ident
	case KindTuple:
		s.Arity = len(c.Args)
	case KindFun:
		s.Arity = len(c.Args) - 1
	case KindArray:
		s.Sized = c.Name.Sized
	}
	return s, true
}

// String 返回形状文本
func (s Shape) String() string {
	switch s.Kind {
	case KindPrim:
		return s.Prim.String()
	case KindUser:
		return s.Ident
	case KindTuple:
		return fmt.Sprintf("Tuple(%d)", s.Arity)
	case KindFun:
		return fmt.Sprintf("Fun(%d)", s.Arity)
	case KindArray:
		if s.Sized {
			return "Array(Some)"
		}
		return "Array(None)"
	default:
		return "?"
	}
}
