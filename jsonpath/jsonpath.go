// Package jsonpath addresses values inside decoded JSON documents with dotted paths like
// "address.city" or "tags.0".
package jsonpath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrNotFound = fmt.Errorf("not-found")
	ErrBadArgs  = fmt.Errorf("bad-args")
)

const Separator = "."

func Split(path string) []string {
	return strings.Split(path, Separator)
}

func isRVZero(rv reflect.Value) bool {
	zv := reflect.Value{}
	return rv == zv
}

func queryValue(in any, spath string) (reflect.Value, error) {
	if spath == "" {
		return reflect.Value{}, errors.Join(ErrBadArgs, fmt.Errorf("empty path"))
	}
	crv := reflect.ValueOf(in)
	for _, elt := range Split(spath) {
		if elt == "" {
			return reflect.Value{}, errors.Join(ErrBadArgs, fmt.Errorf("empty segment in %q", spath))
		}
		for crv.Kind() == reflect.Interface || crv.Kind() == reflect.Pointer {
			if crv.IsNil() {
				return reflect.Value{}, errors.Join(ErrNotFound, fmt.Errorf("nil at %q", elt))
			}
			crv = crv.Elem()
		}

		switch crv.Kind() {
		case reflect.Slice, reflect.Array:
			ix, err := strconv.ParseInt(elt, 10, 64)
			if err != nil {
				return reflect.Value{}, errors.Join(ErrNotFound, fmt.Errorf("cannot parse %q as int for slice index: %w", elt, err))
			}
			if ix < 0 || ix >= int64(crv.Len()) {
				return reflect.Value{}, errors.Join(ErrNotFound, fmt.Errorf("invalid slice index %d (len=%d)", ix, crv.Len()))
			}
			crv = crv.Index(int(ix))
		case reflect.Map:
			if crv.Type().Key().Kind() != reflect.String {
				return reflect.Value{}, fmt.Errorf("cannot query non-string map keys. map keys are %s", crv.Type().Key().Kind().String())
			}
			crv = crv.MapIndex(reflect.ValueOf(elt).Convert(crv.Type().Key()))
			if isRVZero(crv) {
				return reflect.Value{}, errors.Join(ErrNotFound, fmt.Errorf("no such map key %q", elt))
			}
		default:
			return reflect.Value{}, errors.Join(ErrNotFound, fmt.Errorf("cannot query into %s at %q", crv.Kind(), elt))
		}
	}
	return crv, nil
}

// Query returns the value at spath.
func Query(in any, spath string) (any, error) {
	rv, err := queryValue(in, spath)
	if err != nil {
		return nil, fmt.Errorf("query-value: %w", err)
	}
	return rv.Interface(), nil
}

// Lookup is Query without the error detail. A present null value is reported as found.
func Lookup(in any, spath string) (any, bool) {
	v, err := Query(in, spath)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set assigns value at spath, creating intermediate maps where they are missing.
func Set(m map[string]any, spath string, value any) error {
	path := Split(spath)
	if hasEmptySegment(path) {
		return errors.Join(ErrBadArgs, fmt.Errorf("invalid path %q", spath))
	}
	cur := m
	for _, elt := range path[:len(path)-1] {
		next, ok := asObject(cur[elt])
		if !ok {
			next = map[string]any{}
		}
		cur[elt] = next
		cur = next
	}
	cur[path[len(path)-1]] = value
	return nil
}

// Delete removes the value at spath and reports whether it existed.
func Delete(m map[string]any, spath string) bool {
	path := Split(spath)
	cur := m
	for _, elt := range path[:len(path)-1] {
		next, ok := asObject(cur[elt])
		if !ok {
			return false
		}
		cur = next
	}
	last := path[len(path)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// Merge deep-merges src into dst: nested objects are merged key by key, all other values
// replace.
func Merge(dst, src map[string]any) {
	for k, sv := range src {
		sm, sok := asObject(sv)
		dm, dok := asObject(dst[k])
		if sok && dok {
			Merge(dm, sm)
			dst[k] = dm
			continue
		}
		if sok {
			dst[k] = Clone(sm)
			continue
		}
		dst[k] = sv
	}
}

// Clone deep-copies nested objects and arrays.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	if m, ok := asObject(v); ok {
		return Clone(m)
	}
	if vs, ok := v.([]any); ok {
		cs := make([]any, len(vs))
		for i, e := range vs {
			cs[i] = cloneValue(e)
		}
		return cs
	}
	return v
}

func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String && rv.Type().ConvertibleTo(reflect.TypeOf(map[string]any{})) {
		return rv.Convert(reflect.TypeOf(map[string]any{})).Interface().(map[string]any), true
	}
	return nil, false
}

func hasEmptySegment(path []string) bool {
	for _, p := range path {
		if p == "" {
			return true
		}
	}
	return false
}
