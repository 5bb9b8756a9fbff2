package errors

import (
	stderrors "errors"

	"go.uber.org/multierr"
)

// ============================================================================
// 错误报告器
// ============================================================================

// Reporter 收集一次编译中相互独立的诊断
//
// 同一诊断（错误码、位置、消息都相同）只记录一次；遇到致命错误后
// HasFatal 返回 true，调用方应停止后续处理。
type Reporter struct {
	err   error
	seen  map[string]struct{}
	count int
	fatal bool
}

// NewReporter 创建错误报告器
func NewReporter() *Reporter {
	return &Reporter{seen: make(map[string]struct{})}
}

// Report 记录错误，返回该错误是否致命
//
// 由 multierr 组合的错误会被拆开逐个记录。
func (r *Reporter) Report(err error) bool {
	if err == nil {
		return false
	}
	for _, e := range multierr.Errors(err) {
		var d *Diagnostic
		if stderrors.As(e, &d) {
			if _, dup := r.seen[d.key()]; dup {
				continue
			}
			r.seen[d.key()] = struct{}{}
			if d.Fatal() {
				r.fatal = true
			}
		}
		r.err = multierr.Append(r.err, e)
		r.count++
	}
	return r.fatal
}

// Err 返回组合后的错误，没有错误时为 nil
func (r *Reporter) Err() error { return r.err }

// Len 已记录的错误数
func (r *Reporter) Len() int { return r.count }

// HasFatal 是否记录过致命错误
func (r *Reporter) HasFatal() bool { return r.fatal }

// ============================================================================
// 辅助函数
// ============================================================================

// Diagnostics 把（可能组合的）错误展开为诊断列表，保持记录顺序
//
// 非诊断错误包装为内部错误。
func Diagnostics(err error) []*Diagnostic {
	if err == nil {
		return nil
	}
	var out []*Diagnostic
	for _, e := range multierr.Errors(err) {
		var d *Diagnostic
		if stderrors.As(e, &d) {
			out = append(out, d)
			continue
		}
		out = append(out, Internal(zeroPos, e))
	}
	return out
}

// IsFatal 错误中是否含致命诊断
func IsFatal(err error) bool {
	for _, d := range Diagnostics(err) {
		if d.Fatal() {
			return true
		}
	}
	return false
}

// HasCode 错误中是否含指定错误码
func HasCode(err error, code string) bool {
	for _, d := range Diagnostics(err) {
		if d.Code == code {
			return true
		}
	}
	return false
}
