package ir

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/hashicorp/go-set/v3"
	"go.uber.org/multierr"

	"github.com/tangzhangming/polyc/internal/types"
)

// VerifyError IR 不变量被破坏
type VerifyError struct {
	Fun string
	Msg string
}

func (e *VerifyError) Error() string {
	if e.Fun == "" {
		return "ir: " + e.Msg
	}
	return fmt.Sprintf("ir: %s: %s", e.Fun, e.Msg)
}

// Verify 检查程序的结构不变量
//
//   - 每个调用引用的分派键都在分派表中，分派表的每个条目都被至少一个调用引用
//   - 任何类型中都不再含类型参数
//   - 闭包转换已完成：没有外层捕获引用，环境记录都已定义
func Verify(p *Program) error {
	v := &verifier{p: p, referenced: set.New[FunRef](0)}

	for _, s := range p.Structs {
		for _, f := range s.Fields {
			v.checkType("struct "+s.Name, f.Type)
		}
	}
	for _, u := range p.Unions {
		for _, f := range u.Variants {
			v.checkType("union "+u.Name, f.Type)
		}
	}
	for _, g := range p.Vars {
		v.checkType("var "+g.Name, g.Type)
	}

	for _, def := range p.Funs {
		if c, ok := def.(*Caller); ok {
			for key, e := range c.Entries {
				if e == nil {
					v.fail(c.Name, "dispatch entry %d has no body", key)
				}
			}
		}
	}
	for _, f := range p.AllFuns() {
		if f != nil {
			v.checkFun(f)
		}
	}

	for _, def := range p.Funs {
		c, ok := def.(*Caller)
		if !ok {
			continue
		}
		for key := range c.Entries {
			k, err := safecast.Convert[uint32](key)
			if err != nil {
				v.fail(c.Name, "dispatch entry %d: %v", key, err)
				continue
			}
			ref := FunRef{Name: c.Name, Key: k, Generic: true}
			if !v.referenced.Contains(ref) {
				v.fail(c.Name, "dispatch entry %d is never called", key)
			}
		}
	}
	return v.err
}

type verifier struct {
	p          *Program
	referenced *set.Set[FunRef]
	err        error
}

func (v *verifier) fail(fun, format string, args ...interface{}) {
	v.err = multierr.Append(v.err, &VerifyError{Fun: fun, Msg: fmt.Sprintf(format, args...)})
}

func (v *verifier) checkType(where string, t types.Type) {
	if t == nil {
		v.fail(where, "missing type")
		return
	}
	if types.ContainsParams(t) {
		v.fail(where, "type %s still has type parameters", t)
	}
}

func (v *verifier) checkFun(f *Fun) {
	for _, l := range f.Params {
		v.checkType(f.Name, l.Type)
	}
	for _, l := range f.Locals {
		v.checkType(f.Name, l.Type)
	}
	v.checkType(f.Name, f.Result)
	if f.Lambda && f.Env != "" {
		if _, ok := v.p.Struct(f.Env); !ok {
			v.fail(f.Name, "environment %s is not defined", f.Env)
		}
	}

	WalkRefs(f.Body, func(ref *VarRef) {
		if ref.Kind == VarCapture {
			v.fail(f.Name, "unconverted capture of %s", ref.Name)
		}
		v.checkType(f.Name, ref.Type)
	})

	WalkOps(f.Body, func(op Op) {
		v.checkType(f.Name, op.ResultType())
		switch o := op.(type) {
		case *Call:
			if _, ok := v.p.Target(o.Target); !ok {
				v.fail(f.Name, "call to %s has no target", o.Target)
			}
			if o.Target.Generic {
				v.referenced.Insert(o.Target)
			}
		case *MakeClosure:
			if _, ok := v.p.Struct(o.Env); !ok {
				v.fail(f.Name, "closure %s has no environment record", o.Fun)
			}
			if _, ok := v.p.Lookup(o.Fun); !ok {
				v.fail(f.Name, "closure code %s is not defined", o.Fun)
			}
		}
	})
}
