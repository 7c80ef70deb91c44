package pricing

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/shopspring/decimal"
)

// Formatter builds the customer and owner facing texts.
// It holds no state besides presentation settings, so every method is a pure function of its inputs.
type Formatter struct {
	Currency string
}

// Money renders an amount with two decimals and the currency prefix
func (f Formatter) Money(amount decimal.Decimal) string {
	return f.Currency + amount.StringFixed(2)
}

func fileLines(files []domain.FileDescriptor) string {
	var b strings.Builder
	for i, file := range files {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s (%d pages)", i+1, file.FileName, file.Pages())
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// FileList enumerates the job's files with totals and the YES/SKIP prompt
func (f Formatter) FileList(files []domain.FileDescriptor, totalPages int, cost decimal.Decimal) string {
	return fmt.Sprintf(`You have %s ready to print:

%s

Total: %d pages
Cost: %s

Reply:
YES - Print all files
SKIP - Remove some files first`,
		plural(len(files), "PDF"), fileLines(files), totalPages, f.Money(cost))
}

// RemovalPrompt asks for the numbers of the files to skip
func (f Formatter) RemovalPrompt() string {
	return "Which files to skip? Reply with numbers (comma-separated)\nExample: 1,3 or just 2"
}

// InvalidSelection is sent when no usable file number was found
func (f Formatter) InvalidSelection() string {
	return "Invalid numbers. Please reply with file numbers to skip (e.g., 1,3)"
}

// CannotRemoveAll is sent when the exclusion list would leave nothing to print
func (f Formatter) CannotRemoveAll() string {
	return f.Error("Cannot remove all files. Please select at least one file to print.") + "\n\n" + f.RemovalPrompt()
}

// FilesRemoved confirms the exclusions and shows what will be printed
func (f Formatter) FilesRemoved(removed []string, remaining []domain.FileDescriptor, totalPages int, cost decimal.Decimal) string {
	removedLines := make([]string, len(removed))
	for i, name := range removed {
		removedLines[i] = "- " + name
	}

	return fmt.Sprintf(`Removed:
%s

Printing these files:
%s

Total: %d pages
Cost: %s

Confirm? Reply YES`,
		strings.Join(removedLines, "\n"), fileLines(remaining), totalPages, f.Money(cost))
}

// ConfirmPrompt re-asks for the final YES
func (f Formatter) ConfirmPrompt() string {
	return "Reply YES to confirm printing"
}

// Processing acknowledges the start of a print run
func (f Formatter) Processing() string {
	return "Processing your print job... please wait."
}

// Completed is the customer's completion summary; the customer id doubles as the pickup reference
func (f Formatter) Completed(fileCount, totalPages int, cost decimal.Decimal, customerID string) string {
	return fmt.Sprintf(`Print job sent to printer!

Files: %d
Total Pages: %d
Total Cost: %s

Pickup reference: %s
Collect from the shop & pay %s

Thank you!`,
		fileCount, totalPages, f.Money(cost), customerID, f.Money(cost))
}

// OwnerReceipt mirrors the completion summary for the shop owner with per-file counts
func (f Formatter) OwnerReceipt(customerID string, files []domain.FileDescriptor, totalPages int, cost decimal.Decimal) string {
	return fmt.Sprintf(`Print job sent to printer

Customer: %s
Files: %d
%s

Total Pages: %d
Amount: %s
Files start with %s_`,
		customerID, len(files), fileLines(files), totalPages, f.Money(cost), customerID)
}

// FilesReceived is the deferred summary sent after a burst of uploads
func (f Formatter) FilesReceived(files []domain.FileDescriptor) string {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = fmt.Sprintf("%d. %s", i+1, file.FileName)
	}
	return fmt.Sprintf("Received %s:\n%s\n\nSend any message when you are done uploading to see pages and cost.",
		plural(len(files), "file"), strings.Join(names, "\n"))
}

// OwnerFilesReceived tells the owner a customer uploaded files
func (f Formatter) OwnerFilesReceived(customerID string, files []domain.FileDescriptor) string {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = "- " + file.FileName
	}
	return fmt.Sprintf("New files from %s (%d):\n%s", customerID, len(files), strings.Join(names, "\n"))
}

// JobInProgress is the reply while a print run occupies the job
func (f Formatter) JobInProgress() string {
	return "Your previous job is still in progress.\nPlease wait for completion."
}

// NoFilesSelected is sent when finalization finds nothing printable
func (f Formatter) NoFilesSelected() string {
	return f.Error("No files selected for printing")
}

// PrinterFailed is sent when the printer rejected a file mid-run
func (f Formatter) PrinterFailed() string {
	return f.Error("The printer reported a problem. Please contact the shop.")
}

// GenericError is the catch-all reply
func (f Formatter) GenericError() string {
	return f.Error("Something went wrong. Please try again or contact support.")
}

// PDFOnly rejects non-PDF uploads
func (f Formatter) PDFOnly() string {
	return "Sorry, only PDF files are supported.\nPlease send PDF documents only."
}

// UploadFailed is sent when an upload could not be stored
func (f Formatter) UploadFailed() string {
	return f.Error("Failed to download file. Please try again.")
}

// Error prefixes a message as an error notice
func (f Formatter) Error(message string) string {
	return "Error: " + message
}
