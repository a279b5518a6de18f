package csvimport

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "integer"
	TypeDecimal FieldType = "decimal"
	TypeBool    FieldType = "boolean"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	MinValue   *decimal.Decimal
	Unique     bool
	CustomFunc func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder for a string column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// Bool sets the field type to boolean
func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

// MaxLength caps the value length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets the minimum numeric value
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Unique rejects repeated values within the file, ignoring case
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Custom sets an extra validation function
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows against a fixed set of rules
type FieldValidator struct {
	rules  []FieldRule
	seen   map[string]map[string]int // column -> folded value -> first row
	errors *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		seen:   make(map[string]map[string]int),
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow checks every rule and reports whether the row passed
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		if !v.validateField(row, rule) {
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	if value == "" {
		if rule.Required {
			v.errors.AddRequired(row.LineNumber, rule.Column)
			return false
		}
		return true
	}

	if !validType(value, rule.Type) {
		v.errors.AddType(row.LineNumber, rule.Column, rule.Type, value)
		return false
	}

	ok := true
	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		v.errors.AddLength(row.LineNumber, rule.Column, rule.MaxLength)
		ok = false
	}
	if rule.MinValue != nil && (rule.Type == TypeInt || rule.Type == TypeDecimal) {
		if d, err := decimal.NewFromString(value); err == nil && d.LessThan(*rule.MinValue) {
			v.errors.AddRange(row.LineNumber, rule.Column, rule.MinValue.String(), value)
			ok = false
		}
	}
	if rule.Unique {
		folded := strings.ToLower(value)
		if v.seen[rule.Column] == nil {
			v.seen[rule.Column] = make(map[string]int)
		}
		if first, dup := v.seen[rule.Column][folded]; dup {
			v.errors.AddDuplicate(row.LineNumber, rule.Column, value, first)
			ok = false
		} else {
			v.seen[rule.Column][folded] = row.LineNumber
		}
	}
	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.errors.Add(RowError{Row: row.LineNumber, Column: rule.Column, Code: ErrCodeInvalidValue,
				Message: err.Error(), Value: value})
			ok = false
		}
	}
	return ok
}

func validType(value string, t FieldType) bool {
	switch t {
	case TypeInt:
		_, err := strconv.Atoi(value)
		return err == nil
	case TypeDecimal:
		_, err := decimal.NewFromString(value)
		return err == nil
	case TypeBool:
		_, ok := ParseBool(value)
		return ok
	}
	return true
}

// ParseBool accepts true/false, yes/no, y/n and 1/0 in any case
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// SplitList splits a multi-value cell on '|' or ';' and drops blanks
func SplitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '|' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}
