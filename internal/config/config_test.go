package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	opts := Default()
	if opts.Compiler.MaxSpecializationDepth != DefaultMaxSpecializationDepth {
		t.Errorf("unexpected depth %d", opts.Compiler.MaxSpecializationDepth)
	}
	if opts.Compiler.MaxTypeSize != DefaultMaxTypeSize {
		t.Errorf("unexpected type size limit %d", opts.Compiler.MaxTypeSize)
	}
	if opts.Compiler.EmitUnreachable {
		t.Errorf("emit_unreachable defaults to false")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default options must be valid: %v", err)
	}
}

func TestParse(t *testing.T) {
	input := `
[compiler]
max_specialization_depth = 8
language = "zh"

[log]
level = "debug"
`
	opts, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Compiler.MaxSpecializationDepth != 8 {
		t.Errorf("expected depth 8, got %d", opts.Compiler.MaxSpecializationDepth)
	}
	// 未给出的字段保持默认
	if opts.Compiler.EmitUnreachable {
		t.Errorf("emit_unreachable should keep its default")
	}
	if opts.Catalog().Language() != "zh" {
		t.Errorf("expected zh catalog")
	}
	if _, err := NewLogger(opts); err != nil {
		t.Errorf("logger: %v", err)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[compiler]\nmax_specialization_depth = 0\n", "max_specialization_depth"},
		{"[compiler]\nmax_type_size = -1\n", "max_type_size"},
		{"[log]\nlevel = \"loud\"\n", "invalid log level"},
		{"[compiler\n", "failed to parse config"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.input))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("input %q: expected error containing %q, got %v", tt.input, tt.want, err)
		}
	}
}

func TestLoadDirAndRoundTrip(t *testing.T) {
	dir := t.TempDir()

	opts, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("missing file should give defaults: %v", err)
	}

	opts.Compiler.MaxSpecializationDepth = 12
	data, err := opts.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Compiler.MaxSpecializationDepth != 12 {
		t.Errorf("expected 12, got %d", loaded.Compiler.MaxSpecializationDepth)
	}
}
