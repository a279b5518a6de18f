package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Address is a postal shipping address. It is stored as a JSON column.
type Address struct {
	FullName string `json:"fullName"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// NewAddress trims every field and checks the required ones
func NewAddress(fullName, street, city, state, zipCode, country, phone string) (Address, error) {
	a := Address{
		FullName: strings.TrimSpace(fullName),
		Street:   strings.TrimSpace(street),
		City:     strings.TrimSpace(city),
		State:    strings.TrimSpace(state),
		ZipCode:  strings.TrimSpace(zipCode),
		Country:  strings.TrimSpace(country),
		Phone:    strings.TrimSpace(phone),
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate reports the first missing required field
func (a Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("shipping address %s is required", f.name)
		}
	}
	if len(a.ZipCode) > 20 {
		return errors.New("shipping address zipCode cannot exceed 20 characters")
	}
	return nil
}

// IsEmpty returns true when no field is set
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// String returns a single-line representation
func (a Address) String() string {
	if a.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.ZipCode, a.Country)
}

// Value implements driver.Valuer
func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	return json.Unmarshal(data, a)
}
