package pricing

import (
	"testing"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatter_FileList(t *testing.T) {
	f := Formatter{}
	files := []domain.FileDescriptor{resolved("doc.pdf", 3)}

	msg := f.FileList(files, 3, decimal.RequireFromString("1.5"))

	assert.Contains(t, msg, "1. doc.pdf (3 pages)")
	assert.Contains(t, msg, "Total: 3 pages")
	assert.Contains(t, msg, "Cost: 1.50")
	assert.Contains(t, msg, "YES")
	assert.Contains(t, msg, "SKIP")
}

func TestFormatter_FileListNumbering(t *testing.T) {
	f := Formatter{Currency: "₹"}
	files := []domain.FileDescriptor{resolved("a.pdf", 1), resolved("b.pdf", 2)}

	msg := f.FileList(files, 3, decimal.RequireFromString("1.5"))

	assert.Contains(t, msg, "2 PDFs")
	assert.Contains(t, msg, "1. a.pdf (1 pages)\n2. b.pdf (2 pages)")
	assert.Contains(t, msg, "Cost: ₹1.50")
}

func TestFormatter_FilesRemoved(t *testing.T) {
	f := Formatter{}
	msg := f.FilesRemoved([]string{"a.pdf"}, []domain.FileDescriptor{resolved("b.pdf", 4)}, 4, decimal.RequireFromString("2"))

	assert.Contains(t, msg, "- a.pdf")
	assert.Contains(t, msg, "1. b.pdf (4 pages)")
	assert.Contains(t, msg, "Total: 4 pages")
	assert.Contains(t, msg, "Cost: 2.00")
	assert.Contains(t, msg, "Reply YES")
}

func TestFormatter_Completed(t *testing.T) {
	f := Formatter{}
	msg := f.Completed(2, 5, decimal.RequireFromString("2.5"), "628111")

	assert.Contains(t, msg, "Files: 2")
	assert.Contains(t, msg, "Total Pages: 5")
	assert.Contains(t, msg, "Total Cost: 2.50")
	assert.Contains(t, msg, "628111")
}

func TestFormatter_OwnerReceipt(t *testing.T) {
	f := Formatter{}
	files := []domain.FileDescriptor{resolved("a.pdf", 1), resolved("b.pdf", 4)}
	msg := f.OwnerReceipt("628111", files, 5, decimal.RequireFromString("2.5"))

	assert.Contains(t, msg, "Customer: 628111")
	assert.Contains(t, msg, "1. a.pdf (1 pages)")
	assert.Contains(t, msg, "2. b.pdf (4 pages)")
	assert.Contains(t, msg, "Amount: 2.50")
}

func TestFormatter_RemovalPromptMentionsCommas(t *testing.T) {
	assert.Contains(t, Formatter{}.RemovalPrompt(), "comma-separated")
	assert.Contains(t, Formatter{}.CannotRemoveAll(), "Cannot remove all files")
}

func TestFormatter_FilesReceived(t *testing.T) {
	f := Formatter{}
	msg := f.FilesReceived([]domain.FileDescriptor{{FileName: "a.pdf"}, {FileName: "b.pdf"}})

	assert.Contains(t, msg, "Received 2 files")
	assert.Contains(t, msg, "1. a.pdf")
	assert.Contains(t, msg, "2. b.pdf")

	owner := f.OwnerFilesReceived("628111", []domain.FileDescriptor{{FileName: "a.pdf"}})
	assert.Contains(t, owner, "628111")
	assert.Contains(t, owner, "- a.pdf")
}
