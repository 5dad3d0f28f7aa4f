package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the date encodings accepted in vocabulary files.
// Athena exports use the compact form; hand-written files often use ISO dates.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// ToInt64 parses a cell as a base-10 integer. Surrounding spaces are ignored.
func ToInt64(val string) (int64, error) {
	v := strings.TrimSpace(val)
	if v == "" {
		return 0, fmt.Errorf("empty value is not an integer")
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", val)
	}
	return i, nil
}

// ToDate parses a cell as a calendar date (UTC midnight).
func ToDate(val string) (time.Time, error) {
	v := strings.TrimSpace(val)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty value is not a date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (expected YYYYMMDD or YYYY-MM-DD)", val)
}

// ToOptionalString returns nil for an empty cell and a pointer to the trimmed value otherwise.
func ToOptionalString(val string) *string {
	v := strings.TrimSpace(val)
	if v == "" {
		return nil
	}
	return &v
}

// ToString dereferences an optional string, yielding "" for nil.
func ToString(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
