package store

import (
	"fmt"
	"reflect"
)

// newPage returns a pointer to an empty slice of dest's element type, and a func that
// appends the page's contents to dest.
func newPage(dest any) (any, func(), error) {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("destination must be a pointer to a slice, got %T", dest)
	}
	page := reflect.New(dv.Elem().Type())
	return page.Interface(), func() {
		dv.Elem().Set(reflect.AppendSlice(dv.Elem(), page.Elem()))
	}, nil
}

// isEmpty reports whether v is a nil or zero-length slice (or pointer to one).
func isEmpty(v any) bool {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
