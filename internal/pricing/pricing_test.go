package pricing

import (
	"testing"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func resolved(name string, pages int) domain.FileDescriptor {
	return domain.FileDescriptor{FileName: name, PageCount: pages, PagesResolved: true}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		files    []domain.FileDescriptor
		expected int
	}{
		{name: "empty set", files: nil, expected: 0},
		{name: "single file", files: []domain.FileDescriptor{resolved("a.pdf", 3)}, expected: 3},
		{
			name:     "sum of files",
			files:    []domain.FileDescriptor{resolved("a.pdf", 3), resolved("b.pdf", 7)},
			expected: 10,
		},
		{
			name:     "unresolved counts as zero",
			files:    []domain.FileDescriptor{resolved("a.pdf", 3), {FileName: "b.pdf", PageCount: 9}},
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TotalPages(tt.files))
			assert.Equal(t, tt.expected, TotalPages(tt.files), "must be idempotent")
		})
	}
}

func TestPrice(t *testing.T) {
	rate := decimal.RequireFromString("0.50")

	assert.Equal(t, "1.50", Price(3, rate).StringFixed(2))
	assert.Equal(t, "0.00", Price(0, rate).StringFixed(2))
	assert.Equal(t, "6.30", Price(21, decimal.RequireFromString("0.30")).StringFixed(2))
}

func TestPrintable(t *testing.T) {
	files := []domain.FileDescriptor{resolved("a.pdf", 1), resolved("b.pdf", 2), resolved("c.pdf", 3)}

	got := Printable(files, map[string]struct{}{"b.pdf": {}})
	assert.Equal(t, []domain.FileDescriptor{resolved("a.pdf", 1), resolved("c.pdf", 3)}, got)

	assert.Empty(t, Printable(files, map[string]struct{}{"a.pdf": {}, "b.pdf": {}, "c.pdf": {}}))
	assert.Len(t, Printable(files, nil), 3)
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		fileCount int
		expected  []int
	}{
		{name: "single number", text: "2", fileCount: 3, expected: []int{2}},
		{name: "comma separated", text: "1,3", fileCount: 3, expected: []int{1, 3}},
		{name: "comma and spaces", text: " 1, 2 , 3 ", fileCount: 3, expected: []int{1, 2, 3}},
		{name: "extra delimiters", text: "1,,, 3\t", fileCount: 3, expected: []int{1, 3}},
		{name: "out of range dropped", text: "0,4,2", fileCount: 3, expected: []int{2}},
		{name: "garbage dropped", text: "one, 2, -1, 3x", fileCount: 3, expected: []int{2}},
		{name: "duplicates collapsed", text: "2,2,1", fileCount: 3, expected: []int{2, 1}},
		{name: "nothing usable", text: "hello", fileCount: 3, expected: []int{}},
		{name: "empty", text: "", fileCount: 3, expected: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSelection(tt.text, tt.fileCount))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "YES", Normalize("  yes \n"))
	assert.Equal(t, "SKIP", Normalize("Skip"))
}
