package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParsedFile is the output of a RecordParser.
type ParsedFile struct {
	Header []string // trimmed, lowercased header names in column order
	Rows   []UploadRow

	// DroppedLines lists the physical lines of records skipped because their
	// field count differed from the header's.
	DroppedLines []int
}

// HasColumn reports whether the header declares name.
func (p *ParsedFile) HasColumn(name string) bool {
	for _, h := range p.Header {
		if h == name {
			return true
		}
	}
	return false
}

// RecordParser turns an uploaded file into header-keyed rows.
type RecordParser interface {
	Parse(data []byte) (*ParsedFile, error)
}

// Parsers maps a lowercased file extension (".csv") to its parser.
type Parsers map[string]RecordParser

// DefaultParsers accepts delimited text only.
func DefaultParsers() Parsers {
	return Parsers{".csv": CSVParser{}}
}

// For returns the parser registered for filename's extension.
func (p Parsers) For(filename string) (RecordParser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if parser, ok := p[ext]; ok {
		return parser, nil
	}
	return nil, &UnsupportedFormatError{Extension: ext}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser reads comma-separated text. Quotes are parsed leniently and
// rows may have any field count; rows that do not match the header width
// are dropped and reported.
type CSVParser struct{}

// Parse implements RecordParser.
func (CSVParser) Parse(data []byte) (*ParsedFile, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, &ParseError{Err: errors.New("file contains binary data")}
	}
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, csvParseError(err)
	}

	out := &ParsedFile{Header: normalizeHeader(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvParseError(err)
		}
		line, _ := r.FieldPos(0)
		if isEmptyRow(record) {
			continue
		}
		if len(record) != len(out.Header) {
			out.DroppedLines = append(out.DroppedLines, line)
			continue
		}
		out.Rows = append(out.Rows, newUploadRow(len(out.Rows)+2, line, out.Header, record))
	}
	return out, nil
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.StartLine, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func newUploadRow(number, line int, header, record []string) UploadRow {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		fields[name] = record[i]
	}
	return UploadRow{Number: number, Line: line, Fields: fields}
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
		} else {
			buf.Write(data[:size])
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
