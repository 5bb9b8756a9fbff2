package ir

import (
	"bytes"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// ============================================================================
// JSON 输出
// ============================================================================
//
// 每个指令、运算与顶层函数定义都带 "kind" 标签，类型以规范文本输出。
// 字段顺序固定，相同的程序总是得到相同的字节。
//
// ============================================================================

// Dump 把程序序列化为缩进 JSON
func Dump(p *Program) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// tagged 在对象最前面插入 kind 字段
func tagged(kind string, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	buf.WriteString(strconv.Quote(kind))
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (f *Fun) MarshalJSON() ([]byte, error) {
	type alias Fun
	return tagged("fun", (*alias)(f))
}

func (c *Caller) MarshalJSON() ([]byte, error) {
	type alias Caller
	return tagged("caller", (*alias)(c))
}

// ========== 运算 ==========

func (o *Load) MarshalJSON() ([]byte, error) {
	type alias Load
	return tagged("load", (*alias)(o))
}

func (o *Unary) MarshalJSON() ([]byte, error) {
	type alias Unary
	return tagged("unary", (*alias)(o))
}

func (o *Binary) MarshalJSON() ([]byte, error) {
	type alias Binary
	return tagged("binary", (*alias)(o))
}

func (o *BuiltinCall) MarshalJSON() ([]byte, error) {
	type alias BuiltinCall
	return tagged("builtin", (*alias)(o))
}

func (o *Call) MarshalJSON() ([]byte, error) {
	type alias Call
	return tagged("call", (*alias)(o))
}

func (o *CallClosure) MarshalJSON() ([]byte, error) {
	type alias CallClosure
	return tagged("call_closure", (*alias)(o))
}

func (o *LoadField) MarshalJSON() ([]byte, error) {
	type alias LoadField
	return tagged("load_field", (*alias)(o))
}

func (o *MakeAggregate) MarshalJSON() ([]byte, error) {
	type alias MakeAggregate
	return tagged("aggregate", (*alias)(o))
}

func (o *Alloc) MarshalJSON() ([]byte, error) {
	type alias Alloc
	return tagged("alloc", (*alias)(o))
}

func (o *MakeClosure) MarshalJSON() ([]byte, error) {
	type alias MakeClosure
	return tagged("make_closure", (*alias)(o))
}

// ========== 指令 ==========

func (i *Block) MarshalJSON() ([]byte, error) {
	type alias Block
	return tagged("block", (*alias)(i))
}

func (i *Assign) MarshalJSON() ([]byte, error) {
	type alias Assign
	return tagged("assign", (*alias)(i))
}

func (i *Do) MarshalJSON() ([]byte, error) {
	type alias Do
	return tagged("do", (*alias)(i))
}

func (i *Return) MarshalJSON() ([]byte, error) {
	type alias Return
	return tagged("return", (*alias)(i))
}

func (i *If) MarshalJSON() ([]byte, error) {
	type alias If
	return tagged("if", (*alias)(i))
}

func (i *Switch) MarshalJSON() ([]byte, error) {
	type alias Switch
	return tagged("switch", (*alias)(i))
}

func (i *Loop) MarshalJSON() ([]byte, error) {
	type alias Loop
	return tagged("loop", (*alias)(i))
}

func (i *Break) MarshalJSON() ([]byte, error)    { return []byte(`{"kind":"break"}`), nil }
func (i *Continue) MarshalJSON() ([]byte, error) { return []byte(`{"kind":"continue"}`), nil }

func (i *Panic) MarshalJSON() ([]byte, error) {
	type alias Panic
	return tagged("panic", (*alias)(i))
}
