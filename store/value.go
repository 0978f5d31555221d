package store

import (
	"cmp"
	"encoding/json"
	"reflect"
	"slices"

	"github.com/mazzegi/docfacade/maps"
	"github.com/mazzegi/docfacade/query"
)

type class int

// values of different classes order by class
const (
	classNull class = iota
	classBool
	classNumber
	classString
	classArray
	classMap
	classOther
)

func classOf(v any) class {
	if v == nil {
		return classNull
	}
	switch v.(type) {
	case bool:
		return classBool
	case string:
		return classString
	case json.Number:
		return classNumber
	case Fields, map[string]any:
		return classMap
	case []any:
		return classArray
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return classNumber
	case reflect.Bool:
		return classBool
	case reflect.String:
		return classString
	case reflect.Slice, reflect.Array:
		return classArray
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return classMap
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return classNull
		}
		return classOf(rv.Elem().Interface())
	}
	return classOther
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer:
		return toFloat(rv.Elem().Interface())
	}
	return 0
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	return rv.Kind() == reflect.Bool && rv.Bool()
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return ""
}

// AsSlice returns the elements of an array value.
func AsSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if as, ok := v.([]any); ok {
		return as, true
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	as := make([]any, rv.Len())
	for i := range as {
		as[i] = rv.Index(i).Interface()
	}
	return as, true
}

// AsMap returns a map value keyed by string.
func AsMap(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return v, true
	case Fields:
		return v, true
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// Compare orders two field values: null < bool < number < string < array < map. Numbers
// compare numerically regardless of their Go type.
func Compare(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNull:
		return 0
	case classBool:
		ba, bb := toBool(a), toBool(b)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case classNumber:
		return cmp.Compare(toFloat(a), toFloat(b))
	case classString:
		return cmp.Compare(toString(a), toString(b))
	case classArray:
		sa, _ := AsSlice(a)
		sb, _ := AsSlice(b)
		return slices.CompareFunc(sa, sb, Compare)
	case classMap:
		ma, _ := AsMap(a)
		mb, _ := AsMap(b)
		return compareMaps(ma, mb)
	default:
		if reflect.DeepEqual(a, b) {
			return 0
		}
		return cmp.Compare(reflect.TypeOf(a).String(), reflect.TypeOf(b).String())
	}
}

func compareMaps(a, b map[string]any) int {
	ka := maps.OrderedKeys(a)
	kb := maps.OrderedKeys(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := cmp.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(ka), len(kb))
}

func Equal(a, b any) bool {
	return Compare(a, b) == 0
}

func containsValue(vs []any, v any) bool {
	return slices.ContainsFunc(vs, func(e any) bool { return Equal(e, v) })
}

// Evaluate reports whether a present field value v satisfies "v op comparator". Range
// operators only match values of the same type class.
func Evaluate(op Op, v any, comparator any) (bool, error) {
	switch op {
	case query.OpEqual:
		return Equal(v, comparator), nil
	case query.OpNotEqual:
		return !Equal(v, comparator), nil
	case query.OpLess, query.OpLessEqual, query.OpGreater, query.OpGreaterEqual:
		if classOf(v) != classOf(comparator) {
			return false, nil
		}
		c := Compare(v, comparator)
		switch op {
		case query.OpLess:
			return c < 0, nil
		case query.OpLessEqual:
			return c <= 0, nil
		case query.OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case query.OpArrayContains:
		vs, ok := AsSlice(v)
		if !ok {
			return false, nil
		}
		return containsValue(vs, comparator), nil
	case query.OpArrayContainsAny, query.OpIn, query.OpNotIn:
		cs, ok := AsSlice(comparator)
		if !ok {
			return false, Errorf(CodeInvalidArgument, "operator %q requires an array comparator, got %T", op, comparator)
		}
		switch op {
		case query.OpIn:
			return containsValue(cs, v), nil
		case query.OpNotIn:
			return !containsValue(cs, v), nil
		}
		vs, ok := AsSlice(v)
		if !ok {
			return false, nil
		}
		for _, e := range vs {
			if containsValue(cs, e) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, Errorf(CodeInvalidArgument, "invalid operator %q", op)
	}
}
