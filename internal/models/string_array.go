package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray is a []string stored as JSON in the database
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
	return json.Unmarshal(raw, s)
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// Join returns a string with elements joined by the specified separator
func (s StringArray) Join(sep string) string {
	return strings.Join(s, sep)
}
