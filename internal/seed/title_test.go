package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		title    string
	}{
		{"分隔符日期计数全套", "Tender-Notice_dated_10.12.2025 (1).pdf", "Tender Notice"},
		{"普通下划线文件名", "Exam_Schedule_2025.pdf", "Exam Schedule 2025"},
		{"dated大小写不敏感", "Holiday List DATED 01.01.2025.docx", "Holiday List"},
		{"年月日格式日期", "Admission 2025.06.01.pdf", "Admission"},
		{"无需清洗", "Results.png", "Results"},
		{"只有计数后缀", "Circular (3).pdf", "Circular"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.title, TitleFromFilename(tt.filename))
		})
	}
}

// 连字符日期先被换成空格，再也匹配不上日期模式，于是留在标题里。
// 这是历史行为，靠它推导出的标题已经入库，不能改。
func TestTitleFromFilenameHyphenDateSurvives(t *testing.T) {
	assert.Equal(t, "Tender 10 12 2025", TitleFromFilename("Tender-10-12-2025.pdf"))
}

func TestNormalizeForMatch(t *testing.T) {
	tests := []struct {
		raw        string
		normalized string
	}{
		{"NIRF 2025 Report", "nirf 2025 report"},
		{"NIRF_2025-Report (2)", "nirf 2025 report"},
		{"  Spaced   Out  ", "spaced out"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.normalized, NormalizeForMatch(tt.raw))
	}
}
