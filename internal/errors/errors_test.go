package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"go.lsp.dev/protocol"
	"go.uber.org/multierr"

	"github.com/tangzhangming/polyc/internal/i18n"
	"github.com/tangzhangming/polyc/internal/token"
)

func TestNewDiagnostic(t *testing.T) {
	pos := token.Pos("main.pc", 3, 7)
	d := New(E0500, pos, "Eq", "Point")

	if d.Error() != "main.pc:3:7: no implementation of trait 'Eq' for type Point" {
		t.Errorf("unexpected error text %q", d.Error())
	}
	if d.Fatal() {
		t.Errorf("E0500 is not fatal")
	}
	if !New(E0501, pos, "Eq", "Point", "a, b").Fatal() {
		t.Errorf("E0501 must be fatal")
	}
}

func TestInternalWrapsCause(t *testing.T) {
	cause := fmt.Errorf("substitution: %w", stderrors.New("boom"))
	d := Internal(token.Position{}, cause)
	if !d.Fatal() {
		t.Errorf("internal errors are fatal")
	}
	if !stderrors.Is(d, cause) {
		t.Errorf("internal diagnostic should unwrap to its cause")
	}
	if !strings.Contains(d.Message, "boom") {
		t.Errorf("message should carry the cause: %q", d.Message)
	}
}

func TestReporterDeduplicates(t *testing.T) {
	r := NewReporter()
	pos := token.Pos("a.pc", 1, 1)

	r.Report(New(E0204, pos, "x"))
	r.Report(New(E0204, pos, "x"))
	r.Report(multierr.Combine(New(E0204, pos, "x"), New(E0204, pos, "y")))

	if r.Len() != 2 {
		t.Fatalf("expected 2 distinct diagnostics, got %d", r.Len())
	}
	if r.HasFatal() {
		t.Errorf("no fatal error was reported")
	}

	diags := Diagnostics(r.Err())
	if len(diags) != 2 || !strings.Contains(diags[1].Message, "'y'") {
		t.Errorf("unexpected diagnostics order: %v", diags)
	}

	if !r.Report(New(E0501, pos, "Eq", "Int", "a, b")) {
		t.Errorf("fatal error should be flagged")
	}
	if !IsFatal(r.Err()) {
		t.Errorf("combined error should be fatal")
	}
	if !HasCode(r.Err(), E0501) {
		t.Errorf("combined error should contain E0501")
	}
}

func TestDiagnosticsWrapsPlainErrors(t *testing.T) {
	diags := Diagnostics(stderrors.New("plain"))
	if len(diags) != 1 || diags[0].Code != E0900 {
		t.Fatalf("plain errors become internal diagnostics, got %v", diags)
	}
	if Diagnostics(nil) != nil {
		t.Errorf("nil error has no diagnostics")
	}
}

func TestLocalize(t *testing.T) {
	d := New(E0500, token.Pos("a.pc", 2, 4), "Eq", "Int")
	Suggest(d, map[string]string{"trait": "Eq", "type": "Int"})

	zh := d.Localize(i18n.New(i18n.LangChinese))
	if zh.Message != "类型 Int 没有 trait 'Eq' 的实现" {
		t.Errorf("unexpected zh message %q", zh.Message)
	}
	if len(zh.Hints) != 1 || zh.Hints[0] != "添加 'impl Eq for Int'" {
		t.Errorf("unexpected zh hints %v", zh.Hints)
	}
	if d.Message == zh.Message {
		t.Errorf("Localize must not modify the original")
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		code     string
		args     []interface{}
		context  map[string]string
		expected int
	}{
		{E0500, []interface{}{"Eq", "Int"}, map[string]string{"trait": "Eq", "type": "Int", "constrained": "true"}, 2},
		{E0201, []interface{}{1, "id"}, nil, 1},
		{E0502, []interface{}{"grow", 8}, nil, 1},
		{E0208, nil, nil, 1},
		{E0204, []interface{}{"x"}, nil, 0},
	}
	for _, tt := range tests {
		d := Suggest(New(tt.code, token.Position{}, tt.args...), tt.context)
		if len(d.Hints) != tt.expected {
			t.Errorf("%s: expected %d hints, got %v", tt.code, tt.expected, d.Hints)
		}
	}
}

func TestToLSP(t *testing.T) {
	d := New(E0214, token.Pos("k.pc", 10, 5), "global", "private")
	d.WithHint(i18n.HintAnnotateRegion, "global")

	ld := ToLSP(d)
	if ld.Range.Start.Line != 9 || ld.Range.Start.Character != 4 {
		t.Errorf("unexpected range %+v", ld.Range)
	}
	if ld.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("unexpected severity %v", ld.Severity)
	}
	if ld.Code != E0214 || ld.Source != "polyc" {
		t.Errorf("unexpected code/source %v %v", ld.Code, ld.Source)
	}
	if !strings.Contains(ld.Message, "help: ") {
		t.Errorf("hints should be appended to the message: %q", ld.Message)
	}

	// 无效位置不能下溢
	zero := ToLSP(New(E0204, token.Position{}, "x"))
	if zero.Range.Start.Line != 0 || zero.Range.Start.Character != 0 {
		t.Errorf("invalid position should clamp to 0, got %+v", zero.Range.Start)
	}
}

func TestPublishParams(t *testing.T) {
	diags := []*Diagnostic{
		New(E0204, token.Pos("/src/b.pc", 1, 1), "x"),
		New(E0204, token.Pos("/src/a.pc", 1, 1), "y"),
		New(E0204, token.Pos("/src/b.pc", 2, 1), "z"),
	}
	params := PublishParams(diags)
	if len(params) != 2 {
		t.Fatalf("expected 2 files, got %d", len(params))
	}
	if !strings.HasSuffix(string(params[0].URI), "/src/a.pc") {
		t.Errorf("files should be sorted, first is %s", params[0].URI)
	}
	if len(params[1].Diagnostics) != 2 {
		t.Errorf("b.pc should carry 2 diagnostics")
	}
}

func TestFormatterRendersSource(t *testing.T) {
	f := &Formatter{ShowSource: true, ShowHints: true, TabWidth: 2}
	d := Suggest(New(E0208, token.Pos("main.pc", 2, 2)), nil).WithNote(i18n.NoteRequiredBy, "main")
	src := []string{"fn main() {", "\tbreak", "}"}

	out := f.Format(d, src)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !strings.HasPrefix(lines[0], "error[E0208]: ") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != " --> main.pc:2:2" {
		t.Errorf("unexpected location %q", lines[1])
	}
	if lines[3] != "2 |   break" {
		t.Errorf("tabs should be expanded: %q", lines[3])
	}
	// 第 2 列是 Tab 之后的 'b'
	if lines[4] != "  |   ^" {
		t.Errorf("caret misplaced: %q", lines[4])
	}
	if !strings.Contains(out, " = help: ") || !strings.Contains(out, " = note: ") {
		t.Errorf("hints and notes should be rendered:\n%s", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("colors disabled but output is colored")
	}
}

func TestFormatAllAndColors(t *testing.T) {
	err := multierr.Combine(
		New(E0204, token.Pos("a.pc", 1, 1), "x"),
		New(E0204, token.Position{}, "y"),
	)
	f := &Formatter{Colors: true, ShowSource: true, TabWidth: 4}
	out := f.FormatAll(err, map[string][]string{"a.pc": {"x"}})
	if !strings.Contains(out, "\033[") {
		t.Errorf("expected ANSI codes")
	}
	plain := Strip(out)
	if strings.Count(plain, "error[E0204]") != 2 {
		t.Errorf("expected both diagnostics:\n%s", plain)
	}
	if strings.Count(plain, "-->") != 1 {
		t.Errorf("positionless diagnostic should have no location:\n%s", plain)
	}
}
