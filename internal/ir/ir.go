// Package ir 定义特化后的中间表示
//
// IR 是完全解析过的：每个值都带具体类型，每个变量引用都标明存储类，
// 泛型定义只以分派表（Caller）的形式出现。下游代码生成器不再需要
// 任何类型或 trait 信息。
package ir

import (
	"fmt"

	"github.com/tangzhangming/polyc/internal/types"
)

// ============================================================================
// 内存区域与效果
// ============================================================================

// Region 内存区域
type Region uint8

const (
	RegionPrivate  Region = iota // 私有（每个执行单元）
	RegionLocal                  // 工作组共享
	RegionGlobal                 // 全局
	RegionConstant               // 常量存储（仅全局变量）
)

var regionNames = [...]string{
	RegionPrivate:  "private",
	RegionLocal:    "local",
	RegionGlobal:   "global",
	RegionConstant: "constant",
}

func (r Region) String() string {
	if int(r) < len(regionNames) {
		return regionNames[r]
	}
	return fmt.Sprintf("Region(%d)", r)
}

// MarshalText 以名字序列化
func (r Region) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Wider 返回两个区域中较宽的一个
func (r Region) Wider(o Region) Region {
	if o > r {
		return o
	}
	return r
}

// Effects 函数的效果标志
//
// 标志只会从 false 变为 true。
type Effects struct {
	Private bool `json:"private,omitempty"` // 可能在 private 内存分配
	Local   bool `json:"local,omitempty"`   // 可能在 local 内存分配
	Global  bool `json:"global,omitempty"`  // 可能在 global 内存分配
	Panic   bool `json:"panic,omitempty"`   // 可能 panic
}

// Union 合并两组效果
func (e Effects) Union(o Effects) Effects {
	return Effects{
		Private: e.Private || o.Private,
		Local:   e.Local || o.Local,
		Global:  e.Global || o.Global,
		Panic:   e.Panic || o.Panic,
	}
}

// WithAlloc 加上在区域 r 分配的效果
func (e Effects) WithAlloc(r Region) Effects {
	switch r {
	case RegionPrivate:
		e.Private = true
	case RegionLocal:
		e.Local = true
	case RegionGlobal:
		e.Global = true
	}
	return e
}

// Allocates 是否有任何分配
func (e Effects) Allocates() bool { return e.Private || e.Local || e.Global }

func (e Effects) String() string {
	s := ""
	flag := func(on bool, name string) {
		if on {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	flag(e.Private, "private")
	flag(e.Local, "local")
	flag(e.Global, "global")
	flag(e.Panic, "panic")
	if s == "" {
		return "pure"
	}
	return s
}

// ============================================================================
// 程序与定义
// ============================================================================

// Program 一次编译的完整输出
type Program struct {
	Structs []*Struct `json:"structs"`
	Unions  []*Union  `json:"unions"`
	Vars    []*Var    `json:"vars"`
	Funs    []FunDef  `json:"funs"`
}

// NewProgram 创建空程序
func NewProgram() *Program {
	return &Program{
		Structs: make([]*Struct, 0),
		Unions:  make([]*Union, 0),
		Vars:    make([]*Var, 0),
		Funs:    make([]FunDef, 0),
	}
}

// Field 结构体字段或联合体变体
type Field struct {
	Name string     `json:"name"`
	Type types.Type `json:"type"`
}

// Struct 具体结构体定义（包括元组实例与闭包环境记录）
type Struct struct {
	Name   string     `json:"name"`
	Type   types.Type `json:"type,omitempty"`
	Fields []Field    `json:"fields"`
	Env    bool       `json:"env,omitempty"`    // 闭包环境记录
	Region Region     `json:"region,omitempty"` // 环境记录所在区域
}

// Union 具体联合体定义
type Union struct {
	Name     string     `json:"name"`
	Type     types.Type `json:"type"`
	Variants []Field    `json:"variants"`
}

// Var 全局变量
type Var struct {
	Name    string     `json:"name"`
	Storage Region     `json:"storage"`
	Type    types.Type `json:"type"`
	Init    *Const     `json:"init,omitempty"`
}

// Local 参数或局部变量槽
type Local struct {
	Name   string     `json:"name,omitempty"`
	Type   types.Type `json:"type"`
	Region Region     `json:"region"`
}

// FunDef 顶层函数定义：具体函数或泛型定义的分派表
type FunDef interface {
	DefName() string
	funDef()
}

// Fun 具体函数
type Fun struct {
	Name     string       `json:"name"`
	TypeArgs []types.Type `json:"type_args,omitempty"` // 特化实参（非泛型为空）
	Params   []Local      `json:"params"`
	Result   types.Type   `json:"result"`
	Locals   []Local      `json:"locals"`
	Body     Body         `json:"body"`
	Effects  Effects      `json:"effects"`
	Kernel   bool         `json:"kernel,omitempty"`
	Inline   bool         `json:"inline,omitempty"`
	Lambda   bool         `json:"lambda,omitempty"`
	Env      string       `json:"env,omitempty"` // 提升后的 lambda 的环境记录名
}

func (f *Fun) DefName() string { return f.Name }
func (f *Fun) funDef()         {}

// Signature 函数类型（不含唯一性）
func (f *Fun) Signature() types.Type {
	params := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = types.StripUnique(p.Type)
	}
	return types.FunOf(params, types.StripUnique(f.Result))
}

// Caller 泛型定义的分派表：Entries[key] 是该键对应的特化
type Caller struct {
	Name    string `json:"name"`
	Entries []*Fun `json:"entries"`
}

func (c *Caller) DefName() string { return c.Name }
func (c *Caller) funDef()         {}

// Entry 按键取特化
func (c *Caller) Entry(key uint32) (*Fun, bool) {
	if int(key) >= len(c.Entries) {
		return nil, false
	}
	return c.Entries[key], true
}

// Lookup 按名字查找顶层函数定义
func (p *Program) Lookup(name string) (FunDef, bool) {
	for _, f := range p.Funs {
		if f.DefName() == name {
			return f, true
		}
	}
	return nil, false
}

// Target 解析调用目标
func (p *Program) Target(ref FunRef) (*Fun, bool) {
	def, ok := p.Lookup(ref.Name)
	if !ok {
		return nil, false
	}
	switch d := def.(type) {
	case *Fun:
		return d, !ref.Generic
	case *Caller:
		if !ref.Generic {
			return nil, false
		}
		return d.Entry(ref.Key)
	}
	return nil, false
}

// AllFuns 按程序顺序列出所有具体函数（分派表条目按键展开）
func (p *Program) AllFuns() []*Fun {
	var out []*Fun
	for _, def := range p.Funs {
		switch d := def.(type) {
		case *Fun:
			out = append(out, d)
		case *Caller:
			out = append(out, d.Entries...)
		}
	}
	return out
}

// Struct 按名字查找结构体
func (p *Program) Struct(name string) (*Struct, bool) {
	for _, s := range p.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Union 按名字查找联合体
func (p *Program) Union(name string) (*Union, bool) {
	for _, u := range p.Unions {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}
