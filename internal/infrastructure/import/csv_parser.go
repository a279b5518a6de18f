package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const encodingSniffSize = 4096

// Parser reads a header row followed by data rows keyed by header name
type Parser struct {
	delimiter  rune
	maxRows    int
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *Parser) {
		p.delimiter = d
	}
}

// WithMaxRows caps the number of data rows; 0 means unlimited
func WithMaxRows(n int) ParserOption {
	return func(p *Parser) {
		p.maxRows = n
	}
}

// NewParser strips a UTF-8 BOM and rejects input that is empty or not UTF-8
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		delimiter: ',',
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	buf := bufio.NewReaderSize(r, encodingSniffSize)
	head, err := buf.Peek(encodingSniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	truncated := len(head) == encodingSniffSize
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
		head = head[3:]
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8Prefix(head, truncated) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(buf)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// validUTF8Prefix tolerates a multi-byte rune cut off at the end of a
// truncated sniff window
func validUTF8Prefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		tail := b[len(b)-i:]
		if utf8.RuneStart(tail[0]) {
			return !utf8.FullRune(tail) && utf8.Valid(b[:len(b)-i])
		}
	}
	return false
}

// ParseHeader reads the header row. Names are lowercased and spaces or
// hyphens become underscores, so "Compare At Price" matches compare_at_price.
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, 0, len(record))
	for i, h := range record {
		name := NormalizeHeader(h)
		p.headers = append(p.headers, name)
		if name == "" {
			continue
		}
		if _, dup := p.headerMap[name]; !dup {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// NormalizeHeader canonicalizes a column name
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// Headers returns the parsed header names in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// HasHeader checks if a column exists
func (p *Parser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// MissingHeaders returns the required columns absent from the header
func (p *Parser) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row with its 1-based line number in the file
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column, or "" when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
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

// ReadRow reads the next row. It returns io.EOF at the end of input and
// ErrTooManyRows once the row cap is exceeded.
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRow, p.currentRow, err)
	}

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headerMap)),
	}
	for name, i := range p.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	if row.IsEmpty() {
		return row, nil
	}

	p.totalRows++
	if p.maxRows > 0 && p.totalRows > p.maxRows {
		return nil, ErrTooManyRows
	}
	return row, nil
}

// ReadAllRows reads the remaining non-empty rows
func (p *Parser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// TotalRows returns the number of non-empty data rows read
func (p *Parser) TotalRows() int {
	return p.totalRows
}
