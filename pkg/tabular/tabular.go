// Package tabular turns uploaded roster files (CSV, XLSX, XLS) into ordered candidate
// records. Parsing never fails: unreadable input yields no records and a diagnostic.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies the decoder used for a file.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// Diagnostics reported with an empty result.
const (
	DiagnosticEmptyFile   = "the file is empty"
	DiagnosticUnsupported = "unsupported file format; upload a CSV, XLSX or XLS file"
	DiagnosticNoDataRows  = "no student rows were found in the file"
)

// Record is one candidate row. Row is the 1-based row number in the source file.
type Record struct {
	Row   int    `json:"row"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Result carries the parsed records. HeaderRow is the 1-based header row, or 0 when the
// file had no recognizable header.
type Result struct {
	Records    []Record `json:"records"`
	Format     Format   `json:"format"`
	HeaderRow  int      `json:"headerRow"`
	Diagnostic string   `json:"diagnostic,omitempty"`
}

// Empty reports whether the parse produced nothing to reconcile.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Parse decodes data using the filename extension, then the declared MIME type, then
// content sniffing to pick a format.
func Parse(data []byte, filename, mimeType string) Result {
	if len(data) == 0 {
		return Result{Records: []Record{}, Diagnostic: DiagnosticEmptyFile}
	}

	format := DetectFormat(data, filename, mimeType)
	var (
		rows []sourceRow
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(data)
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatXLS:
		rows, err = readXLS(data)
	default:
		return Result{Records: []Record{}, Format: format, Diagnostic: DiagnosticUnsupported}
	}
	if err != nil {
		return Result{Records: []Record{}, Format: format, Diagnostic: err.Error()}
	}

	result := extract(rows)
	result.Format = format
	if len(result.Records) == 0 && result.Diagnostic == "" {
		result.Diagnostic = DiagnosticNoDataRows
	}
	return result
}

// DetectFormat picks the decoder for an upload.
func DetectFormat(data []byte, filename, mimeType string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}

	if format := formatFromMIME(mimeType); format != FormatUnknown {
		return format
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(mimeXLSX):
		return FormatXLSX
	case detected.Is(mimeXLS):
		return FormatXLS
	case strings.HasPrefix(detected.String(), "text/"):
		return FormatCSV
	}
	return FormatUnknown
}

func formatFromMIME(mimeType string) Format {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "text/csv", "text/plain", "text/tab-separated-values", "application/csv":
		return FormatCSV
	case mimeXLSX:
		return FormatXLSX
	case mimeXLS:
		return FormatXLS
	}
	return FormatUnknown
}
