// Package resolve 把 trait 约束解析到唯一的实现
//
// 对一个 (trait, 具体类型)，候选实现是形状相同且 For 模式能匹配该类型的 impl。
// 没有候选报告 E0500，多于一个报告致命的 E0501。实现自身的 where 约束
// 在实现的类型实参上递归解析。
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/i18n"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

// DefaultMaxDepth 默认的约束嵌套深度上限
const DefaultMaxDepth = 64

// ============================================================================
// 输入
// ============================================================================

// Trait 已展开的 trait 声明
type Trait struct {
	Name string
	Ops  []string
	Pos  token.Position
}

// Bound 类型参数上的单个 trait 约束
type Bound struct {
	Param types.LocalType
	Trait string
	Pos   token.Position
}

// Impl 已展开的实现
//
// For 是以 Params 为量词的类型模式，Where 中的下标指向 Params。
type Impl struct {
	Trait   string
	Params  []string
	For     types.Type
	Where   []Bound
	Builtin bool
	Ops     map[string]*ast.FuncDecl
	Pos     token.Position
}

// Label 用于诊断的实现名
func (i *Impl) Label() string {
	s := "impl"
	if len(i.Params) > 0 {
		s += "<" + strings.Join(i.Params, ", ") + ">"
	}
	return s + " " + i.Trait + " for " + i.For.String()
}

// ============================================================================
// 输出
// ============================================================================

// Resolution 一次成功的解析
type Resolution struct {
	Trait    string
	Type     types.Type
	Impl     *Impl
	Args     []types.Type // 实现的类型实参
	Requires []*Resolution
}

// Target trait 操作的具体目标
//
// Builtin 非空时直接映射到原生操作，否则 Decl 在 Args 下特化。
type Target struct {
	Builtin string
	Decl    *ast.FuncDecl
	Impl    *Impl
	Args    []types.Type
}

// Op 取 trait 操作的目标
func (r *Resolution) Op(name string) (Target, bool) {
	if r.Impl.Builtin {
		return Target{Builtin: r.Trait + "." + name, Impl: r.Impl, Args: r.Args}, true
	}
	decl, ok := r.Impl.Ops[name]
	if !ok {
		return Target{}, false
	}
	return Target{Decl: decl, Impl: r.Impl, Args: r.Args}, true
}

// ============================================================================
// 解析器
// ============================================================================

// Stats 解析统计
type Stats struct {
	Lookups  int
	MemoHits int
}

type index struct {
	byShape map[types.Shape][]*Impl
	blanket []*Impl // For 为裸类型参数
}

// Resolver trait 解析器，每次编译新建一个
type Resolver struct {
	traits   map[string]*Trait
	impls    map[string]*index
	memo     map[string]*Resolution
	maxDepth int
	logger   *zap.Logger
	stats    Stats
}

// Option 解析器选项
type Option func(*Resolver)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxDepth 设置约束嵌套深度上限
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// New 建立 trait 与实现的索引
//
// 引用未定义 trait 的实现报告 E0212，非 builtin 实现缺少操作报告 E0503。
// 有错误时仍返回可用的解析器。
func New(traits []*Trait, impls []*Impl, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		traits:   make(map[string]*Trait, len(traits)),
		impls:    make(map[string]*index),
		memo:     make(map[string]*Resolution),
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, t := range traits {
		r.traits[t.Name] = t
		r.impls[t.Name] = &index{byShape: make(map[types.Shape][]*Impl)}
	}

	var errs error
	for _, impl := range impls {
		trait, ok := r.traits[impl.Trait]
		if !ok {
			errs = multierr.Append(errs, errors.New(errors.E0212, impl.Pos, impl.Trait))
			continue
		}
		if !impl.Builtin {
			for _, op := range trait.Ops {
				if _, ok := impl.Ops[op]; !ok {
					errs = multierr.Append(errs, errors.New(errors.E0503, impl.Pos, impl.Trait, impl.For.String(), op))
				}
			}
		}
		idx := r.impls[impl.Trait]
		if shape, ok := types.ShapeOf(impl.For); ok {
			idx.byShape[shape] = append(idx.byShape[shape], impl)
		} else {
			idx.blanket = append(idx.blanket, impl)
		}
	}
	return r, errs
}

// HasTrait trait 是否已定义
func (r *Resolver) HasTrait(name string) bool {
	_, ok := r.traits[name]
	return ok
}

// Stats 返回统计信息
func (r *Resolver) Stats() Stats { return r.stats }

// Resolve 在具体类型 t 上解析 trait，pos 为约束的源位置
func (r *Resolver) Resolve(trait string, t types.Type, pos token.Position) (*Resolution, error) {
	return r.resolve(trait, t, pos, 0)
}

func (r *Resolver) resolve(trait string, t types.Type, pos token.Position, depth int) (*Resolution, error) {
	r.stats.Lookups++
	if _, ok := r.traits[trait]; !ok {
		return nil, errors.New(errors.E0212, pos, trait)
	}
	if types.ContainsParams(t) {
		return nil, errors.Internal(pos, fmt.Errorf("resolving %s for non-concrete type %s", trait, t))
	}
	if depth > r.maxDepth {
		return nil, errors.Suggest(errors.New(errors.E0502, pos, trait+" for "+t.String(), r.maxDepth), nil)
	}

	shared := types.StripUnique(t)
	key := trait + " for " + shared.String()
	if res, ok := r.memo[key]; ok {
		r.stats.MemoHits++
		return res, nil
	}

	candidates, args, err := r.candidates(trait, shared, pos)
	if err != nil {
		return nil, err
	}
	switch len(candidates) {
	case 0:
		d := errors.New(errors.E0500, pos, trait, shared.String())
		return nil, errors.Suggest(d, map[string]string{"trait": trait, "type": shared.String()})
	case 1:
	default:
		labels := make([]string, len(candidates))
		for i, c := range candidates {
			labels[i] = c.Label()
		}
		return nil, errors.New(errors.E0501, pos, trait, shared.String(), strings.Join(labels, ", "))
	}

	impl := candidates[0]
	res := &Resolution{Trait: trait, Type: shared, Impl: impl, Args: args[0]}
	for _, b := range impl.Where {
		if int(b.Param) >= len(res.Args) {
			return nil, errors.Internal(b.Pos, &types.IndexError{Index: b.Param, Len: len(res.Args)})
		}
		sub, err := r.resolve(b.Trait, res.Args[b.Param], pos, depth+1)
		if err != nil {
			if d, ok := err.(*errors.Diagnostic); ok && !d.Fatal() {
				d.WithNote(i18n.NoteRequiredBy, impl.Label())
			}
			return nil, err
		}
		res.Requires = append(res.Requires, sub)
	}

	r.memo[key] = res
	r.logger.Debug("impl resolved",
		zap.String("trait", trait),
		zap.Stringer("type", shared),
		zap.String("impl", impl.Label()),
		zap.Int("depth", depth))
	return res, nil
}

// candidates 返回所有能匹配 t 的实现及各自的类型实参，按声明位置排序
func (r *Resolver) candidates(trait string, t types.Type, pos token.Position) ([]*Impl, [][]types.Type, error) {
	idx := r.impls[trait]
	var pool []*Impl
	if shape, ok := types.ShapeOf(t); ok {
		pool = append(pool, idx.byShape[shape]...)
	}
	pool = append(pool, idx.blanket...)
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Pos.Before(pool[j].Pos) })

	var (
		found []*Impl
		args  [][]types.Type
	)
	for _, impl := range pool {
		bindings := make([]types.Type, len(impl.Params))
		if err := types.Match(types.StripUnique(impl.For), t, bindings); err != nil {
			if _, mismatch := err.(*types.MismatchError); mismatch {
				continue
			}
			return nil, nil, errors.Internal(pos, err)
		}
		for i, b := range bindings {
			if b == nil {
				return nil, nil, errors.Internal(impl.Pos, fmt.Errorf("type parameter %s of %s does not occur in its target type", impl.Params[i], impl.Label()))
			}
		}
		found = append(found, impl)
		args = append(args, bindings)
	}
	return found, args, nil
}
