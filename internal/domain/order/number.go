package order

import (
	"fmt"
	"regexp"
	"time"
)

const orderNumberDateLayout = "060102"

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{6}-\d{4}$`)

// OrderNumberPrefix returns the same-day prefix, e.g. "ORD-250601-"
func OrderNumberPrefix(day time.Time) string {
	return "ORD-" + day.Format(orderNumberDateLayout) + "-"
}

// FormatOrderNumber builds ORD-YYMMDD-#### where seq is the 1-based position of
// the order within its day.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", OrderNumberPrefix(day), seq)
}

// IsValidOrderNumber checks the ORD-YYMMDD-#### format
func IsValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
