// Package config 加载编译器选项
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tangzhangming/polyc/internal/i18n"
)

// 常量定义
const (
	ConfigFileName = "polyc.toml" // 配置文件名

	DefaultMaxSpecializationDepth = 64
	DefaultMaxTypeSize            = 1024
	DefaultLogLevel               = "warn"
)

// Options 编译器选项
type Options struct {
	Compiler CompilerOptions `toml:"compiler"`
	Log      LogOptions      `toml:"log"`
}

// CompilerOptions 编译选项
type CompilerOptions struct {
	// MaxSpecializationDepth 嵌套特化请求的最大深度，超过即报告特化无法终止
	MaxSpecializationDepth int `toml:"max_specialization_depth"`

	// MaxTypeSize 特化实参与类型实例的最大节点数，超过即报告特化无法终止
	MaxTypeSize int `toml:"max_type_size"`

	// EmitUnreachable 是否把未从 kernel 可达的非泛型函数也作为根，默认只从 kernel 出发
	EmitUnreachable bool `toml:"emit_unreachable"`

	// Language 诊断消息语言 (en / zh)
	Language string `toml:"language"`
}

// LogOptions 日志选项
type LogOptions struct {
	Level string `toml:"level"` // debug / info / warn / error
}

// Default 默认选项
func Default() Options {
	return Options{
		Compiler: CompilerOptions{
			MaxSpecializationDepth: DefaultMaxSpecializationDepth,
			MaxTypeSize:            DefaultMaxTypeSize,
			EmitUnreachable:        false,
			Language:               string(i18n.LangEnglish),
		},
		Log: LogOptions{Level: DefaultLogLevel},
	}
}

// Parse 从 TOML 文本解析选项，未给出的字段保持默认值
func Parse(data []byte) (Options, error) {
	opts := Default()
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Load 从文件加载选项
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadDir 读取目录下的 polyc.toml，不存在时返回默认选项
func LoadDir(dir string) (Options, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate 校验选项
func (o Options) Validate() error {
	if o.Compiler.MaxSpecializationDepth <= 0 {
		return fmt.Errorf("max_specialization_depth must be positive, got %d", o.Compiler.MaxSpecializationDepth)
	}
	if o.Compiler.MaxTypeSize <= 0 {
		return fmt.Errorf("max_type_size must be positive, got %d", o.Compiler.MaxTypeSize)
	}
	if _, err := o.level(); err != nil {
		return err
	}
	return nil
}

// Catalog 诊断消息目录
func (o Options) Catalog() i18n.Catalog {
	return i18n.New(i18n.ParseLanguage(o.Compiler.Language))
}

// Marshal 序列化为 TOML
func (o Options) Marshal() ([]byte, error) {
	return toml.Marshal(o)
}

func (o Options) level() (zapcore.Level, error) {
	var lvl zapcore.Level
	text := o.Log.Level
	if text == "" {
		text = DefaultLogLevel
	}
	if err := lvl.UnmarshalText([]byte(text)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", o.Log.Level, err)
	}
	return lvl, nil
}

// NewLogger 按配置的级别构造日志器
func NewLogger(o Options) (*zap.Logger, error) {
	lvl, err := o.level()
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
