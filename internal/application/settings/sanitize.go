package settings

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 表单字段
const (
	FieldIDNumber = "id_number"
	FieldTitle    = "title"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(?:script|style)[^>]*>.*?</(?:script|style)\s*>`)
	tagRe         = regexp.MustCompile(`<[^<>]*>`)
	octetRe       = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	whitespaceRe  = regexp.MustCompile(`[\r\n\t ]+`)
)

// Sanitize 按字段规则清洗设置表单，未定义的字段被丢弃
func Sanitize(input map[string]string) map[string]any {
	out := make(map[string]any, 2)
	if v, ok := input[FieldIDNumber]; ok {
		out[FieldIDNumber] = AbsInt(v)
	}
	if v, ok := input[FieldTitle]; ok {
		out[FieldTitle] = SanitizeTextField(v)
	}
	return out
}

// AbsInt 解析前导整数并取绝对值，无法解析时为 0
// "12abc" -> 12, "-5" -> 5, "3.7" -> 3, "abc" -> 0
func AbsInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	// 取绝对值，符号直接跳过
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := int64(s[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			return math.MaxInt64
		}
		n = n*10 + d
	}
	return n
}

// SanitizeTextField 将用户输入清洗为单行纯文本
func SanitizeTextField(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}

	if strings.Contains(s, "<") {
		s = scriptStyleRe.ReplaceAllString(s, "")
		s = tagRe.ReplaceAllString(s, "")
		// 残留的孤立 '<' 转义
		s = strings.ReplaceAll(s, "<", "&lt;")
	}

	s = whitespaceRe.ReplaceAllString(s, " ")

	for octetRe.MatchString(s) {
		s = octetRe.ReplaceAllString(s, "")
	}
	s = whitespaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
