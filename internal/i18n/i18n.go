// Package i18n 提供诊断消息的多语言目录
package i18n

import (
	"fmt"
	"strings"
)

// Language 语言类型
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// ParseLanguage 从字符串解析语言，未知值回退到英文
func ParseLanguage(lang string) Language {
	switch strings.ToLower(lang) {
	case "zh", "zh-cn", "zh-tw", "zh-hk", "chinese":
		return LangChinese
	default:
		return LangEnglish
	}
}

// Catalog 某种语言的消息目录
//
// 目录是值类型，每次编译按配置构造，不使用全局语言设置。
type Catalog struct {
	lang Language
}

// New 创建消息目录
func New(lang Language) Catalog {
	return Catalog{lang: lang}
}

// Language 返回目录语言
func (c Catalog) Language() Language {
	if c.lang == "" {
		return LangEnglish
	}
	return c.lang
}

// T 翻译消息（支持格式化参数）
func (c Catalog) T(msgID string, args ...interface{}) string {
	var messages map[string]string
	switch c.Language() {
	case LangChinese:
		messages = messagesZH
	default:
		messages = messagesEN
	}

	if msg, ok := messages[msgID]; ok {
		return format(msg, args)
	}

	// 回退到英文
	if msg, ok := messagesEN[msgID]; ok {
		return format(msg, args)
	}

	// 找不到翻译则返回原始 ID
	return msgID
}

// Has 消息 ID 是否存在于英文目录
func Has(msgID string) bool {
	_, ok := messagesEN[msgID]
	return ok
}

// T 使用英文目录翻译
func T(msgID string, args ...interface{}) string {
	return New(LangEnglish).T(msgID, args...)
}

func format(msg string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
