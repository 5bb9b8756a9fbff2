// Package effects 推断每个具体函数可能产生的效果
//
// 效果只增不减：函数的效果是它自身直接产生的效果与所有可能被调函数
// 效果的并集。用工作队列迭代到不动点，递归与互递归自然收敛。
package effects

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/ir"
	"github.com/tangzhangming/polyc/internal/types"
)

// Stats 推断统计
type Stats struct {
	Functions  int // 具体函数数
	Iterations int // 处理的工作项数
	Rounds     int // 工作队列轮数，每轮处理上一轮入队的函数
	Changed    int // 效果被扩大的次数
}

// Pass 效果推断 Pass
type Pass struct {
	logger *zap.Logger
	stats  Stats
}

// NewPass 创建效果推断 Pass
func NewPass(logger *zap.Logger) *Pass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{logger: logger}
}

func (*Pass) Name() string { return "effects" }

// Stats 返回最近一次运行的统计
func (pass *Pass) Stats() Stats { return pass.stats }

// graph 调用图：callees[i] 为函数 i 可能调用的函数，callers 为反向边
type graph struct {
	funs    []*ir.Fun
	direct  []ir.Effects
	callees []*set.Set[int]
	callers []*set.Set[int]
}

// Run 计算所有函数的效果并标注调用点是否需要传播 panic
func (pass *Pass) Run(p *ir.Program) (bool, error) {
	g := build(p)
	pass.stats = Stats{Functions: len(g.funs)}

	before := make([]ir.Effects, len(g.funs))
	for i, f := range g.funs {
		before[i] = f.Effects
	}

	queue := make([]int, len(g.funs))
	queued := make([]bool, len(g.funs))
	for i := range g.funs {
		queue[i] = i
		queued[i] = true
	}
	for len(queue) > 0 {
		round := queue
		queue = nil
		pass.stats.Rounds++
		for _, i := range round {
			queued[i] = false
			pass.stats.Iterations++

			f := g.funs[i]
			eff := f.Effects.Union(g.direct[i])
			for _, j := range g.callees[i].Slice() {
				eff = eff.Union(g.funs[j].Effects)
			}
			if eff == f.Effects {
				continue
			}
			f.Effects = eff
			pass.stats.Changed++

			callers := g.callers[i].Slice()
			slices.Sort(callers)
			for _, j := range callers {
				if !queued[j] {
					queued[j] = true
					queue = append(queue, j)
				}
			}
		}
	}

	panicky := make(map[string]bool)
	for _, f := range g.funs {
		if f.Lambda && f.Effects.Panic {
			panicky[f.Signature().String()] = true
		}
	}
	changed := false
	for i, f := range g.funs {
		if f.Effects != before[i] {
			changed = true
		}
		if annotate(p, f, panicky) {
			changed = true
		}
	}

	pass.logger.Debug("effects inferred",
		zap.Int("functions", pass.stats.Functions),
		zap.Int("iterations", pass.stats.Iterations),
		zap.Int("rounds", pass.stats.Rounds),
		zap.Int("changed", pass.stats.Changed))
	return changed, nil
}

// build 收集每个函数的直接效果与调用边
func build(p *ir.Program) *graph {
	funs := p.AllFuns()
	g := &graph{
		funs:    funs,
		direct:  make([]ir.Effects, len(funs)),
		callees: make([]*set.Set[int], len(funs)),
		callers: make([]*set.Set[int], len(funs)),
	}
	index := make(map[*ir.Fun]int, len(funs))
	for i, f := range funs {
		index[f] = i
		g.callees[i] = set.New[int](0)
		g.callers[i] = set.New[int](0)
	}
	lambdas := lambdaSignatures(funs, index)

	for i, f := range funs {
		var direct ir.Effects
		ir.WalkInstrs(f.Body, func(in ir.Instr) {
			if _, ok := in.(*ir.Panic); ok {
				direct.Panic = true
			}
		})
		ir.WalkOps(f.Body, func(op ir.Op) {
			switch o := op.(type) {
			case *ir.Alloc:
				direct = direct.WithAlloc(o.Region)
			case *ir.MakeClosure:
				direct = direct.WithAlloc(o.Region)
			case *ir.Call:
				if callee, ok := p.Target(o.Target); ok {
					g.edge(i, index[callee])
				}
			case *ir.CallClosure:
				for _, j := range lambdas[signature(o.Closure.ValueType())] {
					g.edge(i, j)
				}
			}
		})
		g.direct[i] = direct
	}
	return g
}

func (g *graph) edge(from, to int) {
	g.callees[from].Insert(to)
	g.callers[to].Insert(from)
}

// lambdaSignatures 按签名分组的 lambda
//
// 闭包调用的目标在编译期未知，保守地认为它可能调用任何签名相同的 lambda。
func lambdaSignatures(funs []*ir.Fun, index map[*ir.Fun]int) map[string][]int {
	out := make(map[string][]int)
	for _, f := range funs {
		if f.Lambda {
			key := f.Signature().String()
			out[key] = append(out[key], index[f])
		}
	}
	return out
}

func signature(t types.Type) string {
	return types.StripUnique(t).String()
}

// annotate 标注调用点的 Propagate：被调方可能 panic 时为 true
//
// panicky 为可能 panic 的 lambda 签名。
func annotate(p *ir.Program, f *ir.Fun, panicky map[string]bool) bool {
	changed := false
	ir.WalkOps(f.Body, func(op ir.Op) {
		switch o := op.(type) {
		case *ir.Call:
			callee, ok := p.Target(o.Target)
			if ok && callee.Effects.Panic && !o.Propagate {
				o.Propagate = true
				changed = true
			}
		case *ir.CallClosure:
			if panicky[signature(o.Closure.ValueType())] && !o.Propagate {
				o.Propagate = true
				changed = true
			}
		}
	})
	return changed
}
