package csvimport

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeRequiredField = "REQUIRED_FIELD"
	ErrCodeInvalidType   = "INVALID_TYPE"
	ErrCodeInvalidLength = "INVALID_LENGTH"
	ErrCodeInvalidRange  = "INVALID_RANGE"
	ErrCodeDuplicate     = "DUPLICATE_IN_FILE"
	ErrCodeInvalidValue  = "INVALID_VALUE"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeRejected      = "REJECTED"
)

var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not UTF-8
	ErrInvalidEncoding = errors.New("CSV file must be UTF-8 encoded")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrNoDataRows is returned when the CSV file has no data rows
	ErrNoDataRows = errors.New("CSV file contains no data rows")

	// ErrTooManyRows is returned when the file exceeds the row cap
	ErrTooManyRows = errors.New("CSV file has too many rows")

	// ErrMalformedRow wraps a csv syntax error
	ErrMalformedRow = errors.New("malformed CSV row")
)

// RowError is a problem with one cell or row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	rows       map[int]struct{}
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		rows:      make(map[int]struct{}),
		maxErrors: maxErrors,
	}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.rows[err.Row] = struct{}{}
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing required value
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column)})
}

// AddType records a value that does not parse as the expected type
func (ec *ErrorCollection) AddType(row int, column string, expected FieldType, value string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeInvalidType,
		Message: fmt.Sprintf("expected %s", expected), Value: value})
}

// AddLength records a value outside the length bounds
func (ec *ErrorCollection) AddLength(row int, column string, maxLen int) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeInvalidLength,
		Message: fmt.Sprintf("length must be at most %d", maxLen)})
}

// AddRange records a number below the minimum
func (ec *ErrorCollection) AddRange(row int, column, minimum, value string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeInvalidRange,
		Message: fmt.Sprintf("value must be at least %s", minimum), Value: value})
}

// AddDuplicate records a repeated value in a unique column
func (ec *ErrorCollection) AddDuplicate(row int, column, value string, firstRow int) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeDuplicate,
		Message: fmt.Sprintf("duplicate value (first seen in row %d)", firstRow), Value: value})
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not kept
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// RowCount returns how many distinct rows have at least one error
func (ec *ErrorCollection) RowCount() int {
	return len(ec.rows)
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// HasRow reports whether row has an error
func (ec *ErrorCollection) HasRow(row int) bool {
	_, ok := ec.rows[row]
	return ok
}

// IsTruncated returns true if some errors were not kept due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}
