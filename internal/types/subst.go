package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexOutOfRange 类型参数下标超出替换向量长度
var ErrIndexOutOfRange = errors.New("type parameter index out of range")

// IndexError 替换向量与方案长度不一致（编译器内部错误）
type IndexError struct {
	Index LocalType
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("type parameter t%d used with %d substitution values", e.Index+1, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// ============================================================================
// 替换
// ============================================================================

// Substitute 将 t 中的每个 Param(q, i) 替换为 values[i]
//
// 结果的唯一性为 q 与 values[i] 自身唯一性的逻辑或，唯一性只会累积。
// changed 为 false 表示结果与输入结构相同，调用方可直接复用 t。
func Substitute(t Type, values []Type) (result Type, changed bool, err error) {
	switch v := t.(type) {
	case *Param:
		if int(v.Index) >= len(values) {
			return nil, false, &IndexError{Index: v.Index, Len: len(values)}
		}
		sub := values[v.Index]
		if sub == nil {
			return nil, false, &IndexError{Index: v.Index, Len: len(values)}
		}
		out := WithUnique(sub, v.Uniq || sub.Unique())
		if Equal(out, v) {
			return t, false, nil
		}
		return out, true, nil

	case *Con:
		var args []Type
		for i, arg := range v.Args {
			r, ch, err := Substitute(arg, values)
			if err != nil {
				return nil, false, err
			}
			if ch && args == nil {
				args = make([]Type, len(v.Args))
				copy(args, v.Args[:i])
			}
			if args != nil {
				args[i] = r
			}
		}
		if args == nil {
			return t, false, nil
		}
		return &Con{Uniq: v.Uniq, Name: v.Name, Args: args}, true, nil

	default:
		panic(fmt.Sprintf("types: unexpected type value %T", t))
	}
}

// SubstituteAll 对列表逐项替换
func SubstituteAll(ts []Type, values []Type) ([]Type, error) {
	out := make([]Type, len(ts))
	for i, t := range ts {
		r, _, err := Substitute(t, values)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Identity 返回长度为 n 的恒等替换向量
func Identity(n int) []Type {
	out := make([]Type, n)
	for i := range out {
		out[i] = P(LocalType(i))
	}
	return out
}

// ============================================================================
// 相等与键
// ============================================================================

// Equal 结构相等
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case *Param:
		y, ok := b.(*Param)
		return ok && x.Uniq == y.Uniq && x.Index == y.Index
	case *Con:
		y, ok := b.(*Con)
		if !ok || x.Uniq != y.Uniq || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EqualList 逐项结构相等
func EqualList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Key 类型元组的规范文本，用作特化记忆表的键
func Key(ts []Type) string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(joinTypes(ts))
	sb.WriteByte(']')
	return sb.String()
}

// Size 类型的节点数，共享的子项按出现次数计
//
// 替换会让同一个子项在结果中出现多次，展开后的树可能远大于实际分配的节点，
// 因此按指针记忆每个子项的大小，超过 limit 即停止计数并返回 limit+1。
func Size(t Type, limit int) int {
	memo := make(map[*Con]int)
	var size func(Type) int
	size = func(t Type) int {
		c, ok := t.(*Con)
		if !ok {
			return 1
		}
		if n, ok := memo[c]; ok {
			return n
		}
		n := 1
		for _, a := range c.Args {
			n += size(a)
			if n > limit {
				n = limit + 1
				break
			}
		}
		memo[c] = n
		return n
	}
	return size(t)
}

// ContainsParams 是否仍含类型参数
func ContainsParams(t Type) bool {
	switch v := t.(type) {
	case *Param:
		return true
	case *Con:
		for _, a := range v.Args {
			if ContainsParams(a) {
				return true
			}
		}
	}
	return false
}

// StripUnique 去掉所有层级的 uniq 标记（用于形状比较）
func StripUnique(t Type) Type {
	switch v := t.(type) {
	case *Param:
		return &Param{Index: v.Index}
	case *Con:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = StripUnique(a)
		}
		return &Con{Name: v.Name, Args: args}
	default:
		return t
	}
}

// ============================================================================
// 匹配
// ============================================================================

// MismatchError 模式与具体类型不匹配
type MismatchError struct {
	Pattern Type
	Actual  Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s, found %s", e.Pattern, e.Actual)
}

// Match 单向匹配：把 pattern 中的类型参数绑定到 actual 的对应部分
//
// bindings 按 LocalType 下标记录绑定结果。带 uniq 的参数出现要求实际类型唯一，
// 绑定时去掉该层 uniq，使后续替换时由出现处的标记恢复。
func Match(pattern, actual Type, bindings []Type) error {
	switch p := pattern.(type) {
	case *Param:
		if int(p.Index) >= len(bindings) {
			return &IndexError{Index: p.Index, Len: len(bindings)}
		}
		if p.Uniq && !actual.Unique() {
			return &MismatchError{Pattern: pattern, Actual: actual}
		}
		bound := actual
		if p.Uniq {
			bound = WithUnique(actual, false)
		}
		if prev := bindings[p.Index]; prev != nil {
			if Equal(prev, bound) {
				return nil
			}
			// 唯一值可以当作共享值使用：只差 uniq 时绑定两者的共享形式
			if !Equal(StripUnique(prev), StripUnique(bound)) {
				return &MismatchError{Pattern: prev, Actual: bound}
			}
			bindings[p.Index] = share(prev, bound)
			return nil
		}
		bindings[p.Index] = bound
		return nil

	case *Con:
		a, ok := actual.(*Con)
		if !ok || a.Name != p.Name || len(a.Args) != len(p.Args) {
			return &MismatchError{Pattern: pattern, Actual: actual}
		}
		if p.Uniq && !a.Uniq {
			return &MismatchError{Pattern: pattern, Actual: actual}
		}
		for i := range p.Args {
			if err := Match(p.Args[i], a.Args[i], bindings); err != nil {
				if _, ok := err.(*MismatchError); ok {
					return &MismatchError{Pattern: pattern, Actual: actual}
				}
				return err
			}
		}
		return nil

	default:
		panic(fmt.Sprintf("types: unexpected type value %T", pattern))
	}
}

// share 结构相同、只差 uniq 的两个类型的共同形式，只在两者都唯一的层级保留 uniq
func share(a, b Type) Type {
	switch x := a.(type) {
	case *Param:
		return &Param{Uniq: x.Uniq && b.Unique(), Index: x.Index}
	case *Con:
		y := b.(*Con)
		args := make([]Type, len(x.Args))
		for i := range x.Args {
			args[i] = share(x.Args[i], y.Args[i])
		}
		return &Con{Uniq: x.Uniq && y.Uniq, Name: x.Name, Args: args}
	default:
		return a
	}
}

// Apply 用已有绑定替换类型参数，未绑定的参数保持原样，用于诊断中显示期望类型
func Apply(t Type, bindings []Type) Type {
	switch v := t.(type) {
	case *Param:
		if int(v.Index) < len(bindings) && bindings[v.Index] != nil {
			b := bindings[v.Index]
			return WithUnique(b, v.Uniq || b.Unique())
		}
		return t
	case *Con:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = Apply(a, bindings)
		}
		return &Con{Uniq: v.Uniq, Name: v.Name, Args: args}
	default:
		return t
	}
}

// Assignable 值类型 from 能否用于期望类型 to
//
// 唯一值可以当作共享值使用，反之不行。
func Assignable(from, to Type) bool {
	switch t := to.(type) {
	case *Param:
		f, ok := from.(*Param)
		return ok && f.Index == t.Index && (f.Uniq || !t.Uniq)
	case *Con:
		f, ok := from.(*Con)
		if !ok || f.Name != t.Name || len(f.Args) != len(t.Args) {
			return false
		}
		if t.Uniq && !f.Uniq {
			return false
		}
		for i := range t.Args {
			if !Equal(StripUnique(f.Args[i]), StripUnique(t.Args[i])) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
