package sqlx

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
)

type Rows interface {
	Next() bool
	Err() error
	Columns() ([]string, error)
	Scan(...any) error
}

type ScanOptions struct {
	// Strict makes every result column require a matching struct field.
	Strict bool
}

// RowScanner decodes result rows into values of T. Columns are matched against the `sql` tag
// of the struct fields, or the lower-cased field name when a field has no tag.
type RowScanner[T any] struct {
	rows   Rows
	fields [][]int
	cells  []sql.Null[any]
	dest   []any
}

func NewRowScanner[T any](rows Rows, options *ScanOptions) (*RowScanner[T], error) {
	var opts ScanOptions
	if options != nil {
		opts = *options
	}
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot scan into non-struct type %s", typ)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("rows.columns: %w", err)
	}
	byName := columnFields(typ)
	sc := &RowScanner[T]{
		rows:   rows,
		fields: make([][]int, len(cols)),
		cells:  make([]sql.Null[any], len(cols)),
		dest:   make([]any, len(cols)),
	}
	for i, col := range cols {
		idx, ok := byName[strings.ToLower(col)]
		if !ok && opts.Strict {
			return nil, fmt.Errorf("no field in %s for column %q", typ, col)
		}
		sc.fields[i] = idx
		sc.dest[i] = &sc.cells[i]
	}
	return sc, nil
}

func columnFields(typ reflect.Type) map[string][]int {
	m := map[string][]int{}
	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, ok := f.Tag.Lookup("sql")
		switch {
		case name == "-":
			continue
		case !ok || name == "":
			name = f.Name
		}
		m[strings.ToLower(name)] = f.Index
	}
	return m
}

func (sc *RowScanner[T]) Next() bool {
	return sc.rows.Next()
}

func (sc *RowScanner[T]) Err() error {
	return sc.rows.Err()
}

// Scan decodes the current row. NULL cells leave the field at its zero value.
func (sc *RowScanner[T]) Scan() (T, error) {
	var t T
	if err := sc.rows.Scan(sc.dest...); err != nil {
		return t, fmt.Errorf("rows.scan: %w", err)
	}
	rv := reflect.ValueOf(&t).Elem()
	for i, idx := range sc.fields {
		cell := sc.cells[i]
		if idx == nil || !cell.Valid {
			continue
		}
		field := rv.FieldByIndex(idx)
		if err := assign(field, cell.V); err != nil {
			return t, fmt.Errorf("field %s: %w", rv.Type().FieldByIndex(idx).Name, err)
		}
	}
	return t, nil
}

// Collect drains rows into a slice.
func Collect[T any](rows Rows, options *ScanOptions) ([]T, error) {
	sc, err := NewRowScanner[T](rows, options)
	if err != nil {
		return nil, err
	}
	ts := []T{}
	for sc.Next() {
		t, err := sc.Scan()
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return ts, nil
}

var timeType = reflect.TypeFor[time.Time]()

func assign(to reflect.Value, v any) error {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if to.Type() == timeType {
		switch v := v.(type) {
		case time.Time:
			to.Set(reflect.ValueOf(v))
		case string:
			tm, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return fmt.Errorf("parse time %q: %w", v, err)
			}
			to.Set(reflect.ValueOf(tm))
		default:
			return fmt.Errorf("cannot assign %T to time", v)
		}
		return nil
	}

	switch to.Kind() {
	case reflect.String:
		switch v := v.(type) {
		case string:
			to.SetString(v)
		case time.Time:
			to.SetString(v.Format(time.RFC3339Nano))
		default:
			to.SetString(fmt.Sprint(v))
		}
	case reflect.Bool:
		switch v := v.(type) {
		case bool:
			to.SetBool(v)
		case int64:
			to.SetBool(v != 0)
		default:
			return fmt.Errorf("cannot assign %T to bool", v)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := v.(type) {
		case int64:
			to.SetInt(v)
		case float64:
			to.SetInt(int64(v))
		default:
			return fmt.Errorf("cannot assign %T to int", v)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v := v.(type) {
		case int64:
			if v < 0 {
				return fmt.Errorf("negative value %d for unsigned field", v)
			}
			to.SetUint(uint64(v))
		default:
			return fmt.Errorf("cannot assign %T to uint", v)
		}
	case reflect.Float32, reflect.Float64:
		switch v := v.(type) {
		case float64:
			to.SetFloat(v)
		case int64:
			to.SetFloat(float64(v))
		default:
			return fmt.Errorf("cannot assign %T to float", v)
		}
	default:
		return fmt.Errorf("unsupported field kind %s", to.Kind())
	}
	return nil
}
