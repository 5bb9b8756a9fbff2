package errors

import (
	"sort"

	"fortio.org/safecast"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/tangzhangming/polyc/internal/token"
)

// diagnosticSource LSP 诊断来源
const diagnosticSource = "polyc"

// ToLSP 将诊断转换为 LSP 诊断
func ToLSP(d *Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	switch d.Level {
	case LevelWarning:
		severity = protocol.DiagnosticSeverityWarning
	case LevelNote:
		severity = protocol.DiagnosticSeverityInformation
	case LevelHelp:
		severity = protocol.DiagnosticSeverityHint
	}

	start := lspPosition(d.Pos)
	end := start
	end.Character++

	msg := d.Message
	for _, h := range d.Hints {
		msg += "\nhelp: " + h
	}
	for _, n := range d.Notes {
		msg += "\nnote: " + n
	}

	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: severity,
		Code:     d.Code,
		Source:   diagnosticSource,
		Message:  msg,
	}
}

// PublishParams 按文件分组生成 publishDiagnostics 参数，按文件名排序
func PublishParams(diags []*Diagnostic) []protocol.PublishDiagnosticsParams {
	byFile := make(map[string][]protocol.Diagnostic)
	for _, d := range diags {
		byFile[d.Pos.Filename] = append(byFile[d.Pos.Filename], ToLSP(d))
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	out := make([]protocol.PublishDiagnosticsParams, 0, len(files))
	for _, f := range files {
		out = append(out, protocol.PublishDiagnosticsParams{
			URI:         protocol.DocumentURI(uri.File(f)),
			Diagnostics: byFile[f],
		})
	}
	return out
}

// lspPosition LSP 行列从 0 开始
func lspPosition(p token.Position) protocol.Position {
	line, err := safecast.Convert[uint32](p.Line - 1)
	if err != nil {
		line = 0
	}
	col, err := safecast.Convert[uint32](p.Column - 1)
	if err != nil {
		col = 0
	}
	return protocol.Position{Line: line, Character: col}
}
