package pricing

import (
	"strconv"
	"strings"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/shopspring/decimal"
)

// TotalPages sums resolved page counts; unresolved or failed files count as 0
func TotalPages(files []domain.FileDescriptor) int {
	total := 0
	for _, f := range files {
		total += f.Pages()
	}
	return total
}

// Price returns totalPages × rate
func Price(totalPages int, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(totalPages)))
}

// Printable returns the files not marked as excluded, keeping upload order
func Printable(files []domain.FileDescriptor, excluded map[string]struct{}) []domain.FileDescriptor {
	out := make([]domain.FileDescriptor, 0, len(files))
	for _, f := range files {
		if _, skip := excluded[f.FileName]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ParseSelection extracts 1-based file numbers from text such as "1,3" or "2 4".
// Tokens that are not positive integers or exceed fileCount are dropped, as are repeats.
func ParseSelection(text string, fileCount int) []int {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	seen := make(map[int]bool, len(fields))
	numbers := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > fileCount || seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	return numbers
}

// Normalize trims and upper-cases an inbound command
func Normalize(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
