package memstore

import (
	"reflect"
	"strings"
	"sync"
)

var columnIndex sync.Map // reflect.Type -> map[string][]int

// columns maps bun column names to field index paths of the struct type t.
func columns(t reflect.Type) map[string][]int {
	if cached, ok := columnIndex.Load(t); ok {
		return cached.(map[string][]int)
	}

	out := make(map[string][]int)
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("bun"), ",")
		if name == "" || name == "-" || strings.Contains(name, ":") {
			continue
		}
		out[name] = f.Index
	}

	columnIndex.Store(t, out)
	return out
}

// columnValue returns the value of column on record, a pointer to struct.
func columnValue(record any, column string) (any, bool) {
	v := reflect.ValueOf(record)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, false
	}
	v = v.Elem()

	idx, ok := columns(v.Type())[column]
	if !ok {
		return nil, false
	}
	return v.FieldByIndex(idx).Interface(), true
}

func equalValues(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}
