package errors

import (
	"fmt"
	"strings"
)

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 把诊断渲染为带源码上下文的文本
type Formatter struct {
	Colors     bool // 是否使用颜色
	ShowSource bool // 是否显示源代码
	ShowHints  bool // 是否显示修复建议
	TabWidth   int  // Tab 宽度
}

// NewFormatter 创建默认格式化器，颜色按终端能力决定
func NewFormatter() *Formatter {
	return &Formatter{
		Colors:     detectColorSupport(),
		ShowSource: true,
		ShowHints:  true,
		TabWidth:   4,
	}
}

// Format 格式化一条诊断
//
//	error[E0500]: no impl of 'Eq' for Float
//	 --> main.pc:12:5
//	   |
//	12 |     same(1.5, 2.5)
//	   |     ^
//	 = help: ...
//	 = note: ...
func (f *Formatter) Format(d *Diagnostic, sourceLines []string) string {
	var sb strings.Builder

	color := f.levelColor(d.Level)
	sb.WriteString(fmt.Sprintf("%s%s: %s\n",
		f.colorize(d.Level.String(), color),
		f.colorize("["+d.Code+"]", color),
		d.Message))

	if d.Pos.IsValid() {
		sb.WriteString(fmt.Sprintf(" %s %s\n", f.colorize("-->", ColorCyan), f.colorize(d.Pos.String(), ColorCyan)))
		if f.ShowSource && d.Pos.Line <= len(sourceLines) {
			sb.WriteString(f.formatSourceLine(sourceLines[d.Pos.Line-1], d.Pos.Line, d.Pos.Column))
		}
	}

	if f.ShowHints {
		for _, hint := range d.Hints {
			sb.WriteString(fmt.Sprintf("%s %s\n", f.colorize(" = help:", ColorCyan), hint))
		}
	}
	for _, note := range d.Notes {
		sb.WriteString(fmt.Sprintf("%s %s\n", f.colorize(" = note:", ColorCyan), note))
	}
	return sb.String()
}

// FormatAll 按记录顺序格式化（可能组合的）错误，sources 按文件名提供源码行
func (f *Formatter) FormatAll(err error, sources map[string][]string) string {
	var sb strings.Builder
	for i, d := range Diagnostics(err) {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.Format(d, sources[d.Pos.Filename]))
	}
	return sb.String()
}

// formatSourceLine 显示出错行并在列位置下方标注
func (f *Formatter) formatSourceLine(line string, lineNum, col int) string {
	var sb strings.Builder

	width := len(fmt.Sprintf("%d", lineNum))
	gutter := f.colorize(strings.Repeat(" ", width)+" |", ColorBlue)
	sb.WriteString(gutter + "\n")
	sb.WriteString(fmt.Sprintf("%s %s\n",
		f.colorize(fmt.Sprintf("%*d |", width, lineNum), ColorBlue),
		f.expandTabs(line)))

	if col > 0 {
		sb.WriteString(gutter + " " + strings.Repeat(" ", f.actualColumn(line, col)) + f.colorize("^", ColorRed) + "\n")
	}
	return sb.String()
}

// expandTabs 展开 Tab 为空格
func (f *Formatter) expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", f.TabWidth))
}

// actualColumn 展开 Tab 后第 col 列（从 1 开始）之前的宽度
func (f *Formatter) actualColumn(line string, col int) int {
	actual := 0
	for i := 0; i < col-1 && i < len(line); i++ {
		if line[i] == '\t' {
			actual += f.TabWidth
		} else {
			actual++
		}
	}
	return actual
}

func (f *Formatter) levelColor(level Level) Color {
	switch level {
	case LevelError:
		return ColorBoldRed
	case LevelWarning:
		return ColorBoldYellow
	case LevelNote:
		return ColorCyan
	case LevelHelp:
		return ColorGreen
	default:
		return ColorWhite
	}
}

func (f *Formatter) colorize(s string, color Color) string {
	if !f.Colors {
		return s
	}
	return Colorize(s, color)
}
