package seed

import (
	"path/filepath"
	"regexp"
	"strings"
)

// 文件名中嵌入的日期，日月年或年月日，分隔符支持 . - /
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}[./-]\d{1,2}[./-]\d{1,2}\b`),
}

var (
	datedWordPattern     = regexp.MustCompile(`(?i)\bdated\b`)
	counterSuffixPattern = regexp.MustCompile(`\(\s*\d+\s*\)$`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// TitleFromFilename 从文件名推导展示标题：分隔符换空格、去掉dated、
// 去掉日期片段、去掉末尾的"(1)"计数、压缩空白。
func TitleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	cleaned = datedWordPattern.ReplaceAllString(cleaned, " ")
	for _, pattern := range datePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, " ")
	}
	cleaned = strings.TrimSpace(counterSuffixPattern.ReplaceAllString(cleaned, ""))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}

// NormalizeForMatch 黑名单匹配用的归一化：小写、分隔符换空格、
// 去掉末尾计数、压缩空白。
func NormalizeForMatch(value string) string {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.NewReplacer("-", " ", "_", " ").Replace(cleaned)
	cleaned = counterSuffixPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
