package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a header-led CSV file into named rows
type CSVParser struct {
	delimiter  rune
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// NewCSVParser creates a parser. A UTF-8 BOM is stripped and non UTF-8
// input is rejected.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter: ',',
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	buf := bufio.NewReader(r)
	head, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	const checkSize = 4096
	content, err := buf.Peek(checkSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if len(content) == checkSize {
		content = trimPartialRune(content)
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	parser.reader = csv.NewReader(buf)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1
	return parser, nil
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}

// trimPartialRune drops a rune cut in half by the peek window
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		r, _ := utf8.DecodeLastRune(b)
		if r != utf8.RuneError {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// NormalizeHeader lower-cases a column name and joins words with underscores,
// so "Batch Number" and "batch_number" address the same column
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := NormalizeHeader(h)
		p.headers[i] = name
		if name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a normalized header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[NormalizeHeader(name)]
	return ok
}

// RequireHeaders fails with MissingColumnsError if any column is absent
func (p *CSVParser) RequireHeaders(required ...string) error {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// Row is one data row keyed by normalized header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed value of a column
func (r *Row) Get(header string) string {
	return r.Data[NormalizeHeader(header)]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. io.EOF marks the end of the file.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, NewRowError(p.currentRow, "", ErrCodeImportCSVParsing, err.Error())
	}
	p.totalRows++

	row := &Row{LineNumber: p.currentRow, Data: make(map[string]string, len(p.headers))}
	for i, header := range p.headers {
		if header == "" {
			continue
		}
		if i < len(record) {
			row.Data[header] = strings.TrimSpace(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads all remaining non-empty rows. Malformed rows are
// reported in errs and skipped; reading continues after them.
func (p *CSVParser) ReadAllRows(errs *ErrorCollection) []*Row {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			if rowErr, ok := err.(RowError); ok {
				errs.Add(rowErr)
				continue
			}
			errs.Add(NewRowError(p.currentRow, "", ErrCodeImportCSVParsing, err.Error()))
			continue
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// TotalRows returns the total number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}
