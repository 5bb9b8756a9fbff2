package errors

import "github.com/tangzhangming/polyc/internal/i18n"

// ============================================================================
// 修复建议生成器
// ============================================================================

// Suggest 按错误码为诊断补充修复建议
//
// context 提供生成建议所需的名字，例如 "trait"、"type"、"region"。
// 已有建议的诊断保持不变。
func Suggest(d *Diagnostic, context map[string]string) *Diagnostic {
	if len(d.hints) > 0 {
		return d
	}
	switch d.Code {
	case E0500:
		if context["trait"] != "" && context["type"] != "" {
			d.WithHint(i18n.HintAddImpl, context["trait"], context["type"])
		}
		if context["constrained"] == "true" {
			d.WithHint(i18n.HintAddConstraint)
		}
	case E0201:
		d.WithHint(i18n.HintExplicitTypeArgs)
	case E0502:
		d.WithHint(i18n.HintBaseCase)
	case E0214:
		if context["region"] != "" {
			d.WithHint(i18n.HintAnnotateRegion, context["region"])
		}
	case E0215:
		d.WithHint(i18n.HintRemoveDuplicate)
	case E0208, E0209:
		d.WithHint(i18n.HintLoopOnly)
	}
	return d
}
