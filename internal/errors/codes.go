// Package errors 提供类型解析与特化阶段的诊断系统
//
// 核心只产生结构化的 (位置, 消息) 诊断；终端渲染见 Formatter，编辑器输出见 ToLSP。
package errors

import "github.com/tangzhangming/polyc/internal/i18n"

// ============================================================================
// 错误级别
// ============================================================================

// Level 错误级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
	LevelHelp                 // 帮助
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	case LevelHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ============================================================================
// 错误码 (E 开头)
// ============================================================================

const (
	// E0200-E0299: 类型与名字错误
	E0200 = "E0200" // 类型不匹配
	E0201 = "E0201" // 无法推断类型参数
	E0202 = "E0202" // 未定义的类型
	E0203 = "E0203" // 类型参数数量错误
	E0204 = "E0204" // 未定义的变量
	E0205 = "E0205" // 未定义的函数
	E0206 = "E0206" // 值不可调用
	E0207 = "E0207" // 参数数量错误
	E0208 = "E0208" // break 在循环外
	E0209 = "E0209" // continue 在循环外
	E0210 = "E0210" // 未定义的字段
	E0211 = "E0211" // 未定义的变体
	E0212 = "E0212" // 未定义的 trait
	E0213 = "E0213" // 未定义的 trait 操作
	E0214 = "E0214" // 闭包内存区域不匹配
	E0215 = "E0215" // 重复定义
	E0216 = "E0216" // 无效的 case 值
	E0217 = "E0217" // 全局变量初始值不是常量
	E0218 = "E0218" // 运算符不适用
	E0219 = "E0219" // 结构体字面量缺少字段

	// E0500-E0599: 约束与特化错误
	E0500 = "E0500" // 没有匹配的实现
	E0501 = "E0501" // 实现有歧义（致命）
	E0502 = "E0502" // 特化无法终止
	E0503 = "E0503" // 实现缺少操作

	// E0900: 内部错误
	E0900 = "E0900" // 替换下标越界等内部不变量被破坏（致命）
)

// ============================================================================
// 错误码信息
// ============================================================================

// ErrorInfo 错误码信息
type ErrorInfo struct {
	Code      string // 错误码
	Level     Level  // 错误级别
	MessageID string // i18n 消息 ID
	Category  string // 错误分类
	Fatal     bool   // 是否立即终止编译
}

// compilerErrors 错误码信息表
var compilerErrors = map[string]ErrorInfo{
	E0200: {E0200, LevelError, i18n.ErrTypeMismatch, "type", false},
	E0201: {E0201, LevelError, i18n.ErrCannotInferTypeArg, "type", false},
	E0202: {E0202, LevelError, i18n.ErrUnknownType, "type", false},
	E0203: {E0203, LevelError, i18n.ErrTypeArity, "type", false},
	E0204: {E0204, LevelError, i18n.ErrUnknownVariable, "name", false},
	E0205: {E0205, LevelError, i18n.ErrUnknownFunction, "name", false},
	E0206: {E0206, LevelError, i18n.ErrNotCallable, "call", false},
	E0207: {E0207, LevelError, i18n.ErrArgCount, "call", false},
	E0208: {E0208, LevelError, i18n.ErrBreakOutsideLoop, "flow", false},
	E0209: {E0209, LevelError, i18n.ErrContinueOutsideLoop, "flow", false},
	E0210: {E0210, LevelError, i18n.ErrUnknownField, "name", false},
	E0211: {E0211, LevelError, i18n.ErrUnknownVariant, "name", false},
	E0212: {E0212, LevelError, i18n.ErrUnknownTrait, "name", false},
	E0213: {E0213, LevelError, i18n.ErrUnknownTraitOp, "name", false},
	E0214: {E0214, LevelError, i18n.ErrClosureRegion, "closure", false},
	E0215: {E0215, LevelError, i18n.ErrDuplicateDef, "name", false},
	E0216: {E0216, LevelError, i18n.ErrInvalidCase, "flow", false},
	E0217: {E0217, LevelError, i18n.ErrNotConstant, "global", false},
	E0218: {E0218, LevelError, i18n.ErrInvalidOperand, "type", false},
	E0219: {E0219, LevelError, i18n.ErrMissingField, "name", false},

	E0500: {E0500, LevelError, i18n.ErrNoImpl, "impl", false},
	E0501: {E0501, LevelError, i18n.ErrAmbiguousImpl, "impl", true},
	E0502: {E0502, LevelError, i18n.ErrSpecializationDepth, "specialization", false},
	E0503: {E0503, LevelError, i18n.ErrMissingImplOp, "impl", false},

	E0900: {E0900, LevelError, i18n.ErrInternal, "internal", true},
}

// GetErrorInfo 获取错误码信息
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, ok := compilerErrors[code]
	return info, ok
}

// IsFatalCode 错误码是否致命
func IsFatalCode(code string) bool {
	return compilerErrors[code].Fatal
}
