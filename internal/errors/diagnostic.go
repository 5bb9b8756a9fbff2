package errors

import (
	"fmt"

	"github.com/tangzhangming/polyc/internal/i18n"
	"github.com/tangzhangming/polyc/internal/token"
)

// message 未渲染的消息
type message struct {
	id   string
	args []interface{}
}

// Diagnostic 诊断信息：源位置加可读消息
type Diagnostic struct {
	Code    string         // 错误码 (E0500)
	Level   Level          // 错误级别
	Pos     token.Position // 源位置
	Message string         // 主消息
	Hints   []string       // 修复建议
	Notes   []string       // 附加说明（如约束来源链）

	msg   message
	hints []message
	notes []message
	cause error
}

// Error 实现 error 接口
func (d *Diagnostic) Error() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", d.Pos, d.Message)
	}
	return d.Message
}

// Unwrap 返回内部原因（仅内部错误有）
func (d *Diagnostic) Unwrap() error { return d.cause }

// Fatal 是否致命
func (d *Diagnostic) Fatal() bool { return IsFatalCode(d.Code) }

// New 按错误码创建诊断，消息参数按错误码对应的消息格式填充
func New(code string, pos token.Position, args ...interface{}) *Diagnostic {
	info, ok := GetErrorInfo(code)
	if !ok {
		info = ErrorInfo{Code: code, Level: LevelError, MessageID: i18n.ErrInternal}
		args = []interface{}{fmt.Sprintf("unknown error code %s", code)}
	}
	d := &Diagnostic{
		Code:  code,
		Level: info.Level,
		Pos:   pos,
		msg:   message{id: info.MessageID, args: args},
	}
	d.Message = i18n.T(d.msg.id, d.msg.args...)
	return d
}

// NewMessage 按错误码创建诊断，但使用指定的消息
func NewMessage(code, id string, pos token.Position, args ...interface{}) *Diagnostic {
	d := New(code, pos)
	d.msg = message{id: id, args: args}
	d.Message = i18n.T(id, args...)
	return d
}

// Internal 包装编译器内部错误（E0900）
func Internal(pos token.Position, cause error) *Diagnostic {
	d := New(E0900, pos, cause.Error())
	d.cause = cause
	return d
}

// WithHint 追加修复建议
func (d *Diagnostic) WithHint(id string, args ...interface{}) *Diagnostic {
	m := message{id: id, args: args}
	d.hints = append(d.hints, m)
	d.Hints = append(d.Hints, i18n.T(m.id, m.args...))
	return d
}

// WithNote 追加说明
func (d *Diagnostic) WithNote(id string, args ...interface{}) *Diagnostic {
	m := message{id: id, args: args}
	d.notes = append(d.notes, m)
	d.Notes = append(d.Notes, i18n.T(m.id, m.args...))
	return d
}

// Localize 按目录语言重新渲染消息
func (d *Diagnostic) Localize(cat i18n.Catalog) *Diagnostic {
	out := *d
	out.Message = cat.T(d.msg.id, d.msg.args...)
	out.Hints = make([]string, len(d.hints))
	for i, h := range d.hints {
		out.Hints[i] = cat.T(h.id, h.args...)
	}
	out.Notes = make([]string, len(d.notes))
	for i, n := range d.notes {
		out.Notes[i] = cat.T(n.id, n.args...)
	}
	return &out
}

// key 去重键
func (d *Diagnostic) key() string {
	return d.Code + "|" + d.Pos.String() + "|" + d.Message
}

var zeroPos token.Position
