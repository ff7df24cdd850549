package core

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads the first sheet of an .xlsx workbook. It is registered
// only when spreadsheet uploads are enabled.
//
// Spreadsheet rows omit trailing empty cells, so short rows are padded to
// the header width. Rows wider than the header are dropped and reported.
type XLSXParser struct{}

// Parse implements RecordParser.
func (XLSXParser) Parse(data []byte) (*ParsedFile, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}

	// Skip leading blank rows to find the header.
	start := 0
	for start < len(rows) && isEmptyRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	out := &ParsedFile{Header: normalizeHeader(rows[start])}
	for i := start + 1; i < len(rows); i++ {
		record := rows[i]
		line := i + 1
		if isEmptyRow(record) {
			continue
		}
		if len(record) > len(out.Header) {
			out.DroppedLines = append(out.DroppedLines, line)
			continue
		}
		if len(record) < len(out.Header) {
			padded := make([]string, len(out.Header))
			copy(padded, record)
			record = padded
		}
		out.Rows = append(out.Rows, newUploadRow(len(out.Rows)+2, line, out.Header, record))
	}
	return out, nil
}
