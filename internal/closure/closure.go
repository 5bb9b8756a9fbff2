// Package closure 把提升后的 lambda 改写为显式环境记录
//
// 降低阶段把 lambda 体提升为独立函数，外层变量以 VarCapture 引用。
// 本 Pass 为每个 lambda 生成一个环境结构体，把捕获改写为环境字段，
// 并补全外层函数中对应 MakeClosure 的环境名、区域与捕获列表。
package closure

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// lambdaMarker 提升后 lambda 名字中外层函数名之后的部分
const lambdaMarker = "$lambda"

// Pass 闭包转换 Pass
type Pass struct {
	logger *zap.Logger
}

// NewPass 创建闭包转换 Pass
func NewPass(logger *zap.Logger) *Pass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{logger: logger}
}

func (*Pass) Name() string { return "closure" }

// Run 转换程序中的所有 lambda
//
// 内层 lambda 在程序中排在外层之前，因此处理外层时已经能看到
// 内层 MakeClosure 的捕获列表（它们本身也是外层的捕获）。
func (pass *Pass) Run(p *ir.Program) (bool, error) {
	funs := p.AllFuns()
	byName := make(map[string]*ir.Fun, len(funs))
	for _, f := range funs {
		byName[f.Name] = f
	}

	var errs error
	changed := false
	for _, f := range funs {
		if !f.Lambda {
			continue
		}
		if err := pass.convert(p, f, byName); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		changed = true
	}
	if errs != nil {
		return changed, errs
	}
	for _, f := range funs {
		if closureLocals(f) {
			changed = true
		}
	}
	return changed, nil
}

// capture 一个被捕获的外层变量
type capture struct {
	outer *ir.VarRef
	index uint32
}

func captureKey(ref *ir.VarRef) string {
	return fmt.Sprintf("%s/%d/%s", ref.Kind, ref.Index, ref.Name)
}

// convert 转换一个 lambda
func (pass *Pass) convert(p *ir.Program, f *ir.Fun, byName map[string]*ir.Fun) error {
	parent, mk := findClosure(f.Name, byName)
	if mk == nil {
		return errors.Internal(token.Position{}, fmt.Errorf("no closure construction for %s", f.Name))
	}

	// 按首次出现顺序收集捕获
	seen := set.New[string](0)
	var (
		order    []*capture
		byKey    = make(map[string]*capture)
		required = ir.RegionPrivate
	)
	ir.WalkRefs(f.Body, func(ref *ir.VarRef) {
		if ref.Kind != ir.VarCapture {
			return
		}
		key := captureKey(ref.Outer)
		if seen.Insert(key) {
			c := &capture{outer: ref.Outer, index: uint32(len(order))}
			order = append(order, c)
			byKey[key] = c
			required = required.Wider(ref.Region)
		}
	})

	region := required
	if mk.Hinted {
		if required > mk.Region {
			d := errors.New(errors.E0214, mk.Pos, required.String(), mk.Region.String())
			return errors.Suggest(d, map[string]string{"region": required.String()})
		}
		region = mk.Region
	}

	env := &ir.Struct{
		Name:   f.Name + "$env." + region.String(),
		Env:    true,
		Region: region,
		Fields: make([]ir.Field, len(order)),
	}
	for i, c := range order {
		env.Fields[i] = ir.Field{Name: c.outer.Name, Type: types.StripUnique(c.outer.Type)}
	}
	p.Structs = append(p.Structs, env)

	ir.WalkRefs(f.Body, func(ref *ir.VarRef) {
		if ref.Kind != ir.VarCapture {
			return
		}
		c := byKey[captureKey(ref.Outer)]
		ref.Kind = ir.VarEnvField
		ref.Index = c.index
		ref.Region = region
		ref.Outer = nil
	})

	f.Env = env.Name
	mk.Env = env.Name
	mk.Region = region
	mk.Captures = make([]ir.Value, len(order))
	for i, c := range order {
		outer := *c.outer
		mk.Captures[i] = &outer
	}

	pass.logger.Debug("closure converted",
		zap.String("lambda", f.Name),
		zap.String("parent", parent.Name),
		zap.Stringer("region", region),
		zap.Int("captures", len(order)))
	return nil
}

// findClosure 在外层函数中找到构造该 lambda 的 MakeClosure
func findClosure(name string, byName map[string]*ir.Fun) (*ir.Fun, *ir.MakeClosure) {
	i := strings.LastIndex(name, lambdaMarker)
	if i < 0 {
		return nil, nil
	}
	parent, ok := byName[name[:i]]
	if !ok {
		return nil, nil
	}
	var found *ir.MakeClosure
	ir.WalkOps(parent.Body, func(op ir.Op) {
		if mk, ok := op.(*ir.MakeClosure); ok && mk.Fun == name {
			found = mk
		}
	})
	return parent, found
}

// closureLocals 让闭包局部变量的区域跟随其环境记录的区域
//
// 局部变量的区域取自最后一次对它的赋值：MakeClosure 或另一个闭包引用。
// 闭包调用的区域取自被调闭包引用。
func closureLocals(f *ir.Fun) bool {
	regions := make(map[uint32]ir.Region)
	ir.WalkInstrs(f.Body, func(in ir.Instr) {
		a, ok := in.(*ir.Assign)
		if !ok || a.Dest.Kind != ir.VarClosureLocal {
			return
		}
		switch op := a.Op.(type) {
		case *ir.MakeClosure:
			regions[a.Dest.Index] = op.Region
		case *ir.Load:
			if src, ok := op.Src.(*ir.VarRef); ok {
				if r, ok := regions[src.Index]; ok && src.Kind == ir.VarClosureLocal {
					regions[a.Dest.Index] = r
				} else {
					regions[a.Dest.Index] = src.Region
				}
			}
		}
	})
	changed := false
	for idx, r := range regions {
		if int(idx) < len(f.Locals) {
			f.Locals[idx].Region = r
			changed = true
		}
	}
	ir.WalkRefs(f.Body, func(ref *ir.VarRef) {
		if ref.Kind != ir.VarClosureLocal {
			return
		}
		if r, ok := regions[ref.Index]; ok {
			ref.Region = r
		}
	})
	ir.WalkOps(f.Body, func(op ir.Op) {
		if call, ok := op.(*ir.CallClosure); ok {
			if ref, ok := call.Closure.(*ir.VarRef); ok && call.Region != ref.Region {
				call.Region = ref.Region
				changed = true
			}
		}
	})
	return changed
}
