package core

// convert.go turns raw filter input into values typed after a column's
// FieldType.
//
// User input is messy: numbers arrive as strings, dates in US, EU, ISO or
// textual layouts, multi-value filters as slices. A conversion that fails
// yields nil, and a nil converted value means the owning condition is
// dropped. It never means "match nothing".

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
		"20060102",
	}
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// ConvertToType converts a raw filter value to the Go representation of ft.
//
//   - number: strings are parsed as float64; failures and NaN yield nil.
//   - date, datetime: strings and time.Time become local midnight of that day;
//     unparseable strings yield nil.
//   - slices are converted element-wise into []any; if any element fails the
//     whole result is nil.
//
// Every other combination passes the value through unchanged.
func ConvertToType(value any, ft FieldType) any {
	if value == nil {
		return nil
	}

	if items, ok := sliceItems(value); ok {
		out := make([]any, len(items))
		for i, item := range items {
			converted := ConvertToType(item, ft)
			if converted == nil {
				return nil
			}
			out[i] = converted
		}
		return out
	}

	switch ft {
	case FieldNumber:
		if s, ok := value.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || math.IsNaN(f) {
				return nil
			}
			return f
		}
	case FieldDate, FieldDateTime:
		switch v := value.(type) {
		case string:
			t, ok := ParseDate(v)
			if !ok {
				return nil
			}
			return t
		case time.Time:
			return Midnight(v)
		}
	}
	return value
}

// ParseDate parses s at day granularity and returns local midnight of that
// day. Datetime inputs are accepted; their time of day is discarded.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Midnight(t.In(time.Local)), true
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Midnight(t), true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return Midnight(t), true
		}
	}

	return time.Time{}, false
}

// Midnight returns the start of t's day in the local time zone.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// toDate interprets a row value as a day. Unparseable values report false.
func toDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return Midnight(t), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return Midnight(*t), true
	case string:
		return ParseDate(t)
	default:
		return time.Time{}, false
	}
}

// toFloat reports the numeric value of v for any Go number type.
// Numeric strings are accepted so that JSON-sourced rows compare naturally.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isNumber reports whether v is a Go number (strings excluded).
func isNumber(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := toFloat(v)
	return ok
}

// sliceItems returns the elements of any slice or array value except byte
// slices, which are treated as scalars.
func sliceItems(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []byte:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isEmptyValue reports whether v counts as "no value" for filtering and
// sorting: nil, the empty string or a nil pointer.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *time.Time:
		return x == nil
	default:
		return false
	}
}
