package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// RequestData fetches locator with params appended to its query string.
func RequestData(ctx context.Context, t Transport, locator string, params map[string]any) (Payload, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, ErrInvalidLocator
	}
	return t.Fetch(ctx, EncodeURL(locator, params))
}

// EncodeURL appends params to locator. Keys are sorted. Slices become
// repeated key=value pairs and nil values are omitted. When locator already
// carries a query string the params are joined to it with "&".
func EncodeURL(locator string, params map[string]any) string {
	values := url.Values{}
	for key, v := range params {
		if v == nil {
			continue
		}
		if items, ok := listItems(v); ok {
			for _, item := range items {
				values.Add(key, formatParam(item))
			}
			continue
		}
		values.Add(key, formatParam(v))
	}

	query := values.Encode()
	if query == "" {
		return locator
	}

	switch {
	case !strings.Contains(locator, "?"):
		return locator + "?" + query
	case strings.HasSuffix(locator, "?"), strings.HasSuffix(locator, "&"):
		return locator + query
	default:
		return locator + "&" + query
	}
}

func listItems(v any) ([]any, bool) {
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func formatParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
