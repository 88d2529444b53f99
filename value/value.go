// Package value provides the dynamic context values for the template engine.
//
// A render context is a tree of Values: strings, numbers, booleans, and
// nested sequences and maps. Variable nodes resolve dotted paths against
// this tree left-to-right. Values are immutable as far as the engine is
// concerned; rendering never mutates a context.
package value

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueKind describes the type of a Value.
type ValueKind int

const (
	KindUndefined ValueKind = iota
	KindNone
	KindBool
	KindNumber
	KindString
	KindSeq
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a dynamically typed context value.
type Value struct {
	kind    ValueKind
	boolVal bool
	intVal  int64
	fltVal  float64
	isFloat bool
	strVal  string
	seqVal  []Value
	mapVal  map[string]Value
}

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{kind: KindUndefined}
}

// None returns the none/null value.
func None() Value {
	return Value{kind: KindNone}
}

// FromBool creates a boolean Value.
func FromBool(v bool) Value {
	return Value{kind: KindBool, boolVal: v}
}

// FromInt creates an integer Value.
func FromInt(v int64) Value {
	return Value{kind: KindNumber, intVal: v}
}

// FromFloat creates a float Value.
func FromFloat(v float64) Value {
	return Value{kind: KindNumber, fltVal: v, isFloat: true}
}

// FromString creates a string Value.
func FromString(v string) Value {
	return Value{kind: KindString, strVal: v}
}

// FromSlice creates a sequence Value.
func FromSlice(v []Value) Value {
	return Value{kind: KindSeq, seqVal: v}
}

// FromMap creates a map Value.
func FromMap(v map[string]Value) Value {
	return Value{kind: KindMap, mapVal: v}
}

// FromAny converts an arbitrary Go value into a Value using reflection.
// Unsupported types stringify via fmt.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return None()
	case Value:
		return t
	case bool:
		return FromBool(t)
	case int:
		return FromInt(int64(t))
	case int8:
		return FromInt(int64(t))
	case int16:
		return FromInt(int64(t))
	case int32:
		return FromInt(int64(t))
	case int64:
		return FromInt(t)
	case uint:
		return FromInt(int64(t))
	case uint8:
		return FromInt(int64(t))
	case uint16:
		return FromInt(int64(t))
	case uint32:
		return FromInt(int64(t))
	case uint64:
		return FromInt(int64(t))
	case float32:
		return FromFloat(float64(t))
	case float64:
		return FromFloat(t)
	case string:
		return FromString(t)
	case []any:
		seq := make([]Value, len(t))
		for i, item := range t {
			seq[i] = FromAny(item)
		}
		return FromSlice(seq)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return FromMap(m)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			seq[i] = FromAny(rv.Index(i).Interface())
		}
		return FromSlice(seq)
	case reflect.Map:
		m := make(map[string]Value, rv.Len())
		for _, key := range rv.MapKeys() {
			m[fmt.Sprint(key.Interface())] = FromAny(rv.MapIndex(key).Interface())
		}
		return FromMap(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return None()
		}
		return FromAny(rv.Elem().Interface())
	}

	return FromString(fmt.Sprint(v))
}

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool {
	return v.kind == KindUndefined
}

// AsString returns the string if it is one.
func (v Value) AsString() (string, bool) {
	if v.kind == KindString {
		return v.strVal, true
	}
	return "", false
}

// AsSlice returns the sequence if it is one.
func (v Value) AsSlice() ([]Value, bool) {
	if v.kind == KindSeq {
		return v.seqVal, true
	}
	return nil, false
}

// AsMap returns the map if it is one.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind == KindMap {
		return v.mapVal, true
	}
	return nil, false
}

// GetAttr returns the named attribute of a map value, or undefined.
func (v Value) GetAttr(name string) Value {
	if v.kind == KindMap {
		if item, ok := v.mapVal[name]; ok {
			return item
		}
	}
	return Undefined()
}

// GetIndex returns the item at the given position of a sequence value,
// or undefined. Negative indexes count from the end.
func (v Value) GetIndex(idx int) Value {
	if v.kind != KindSeq {
		return Undefined()
	}
	if idx < 0 {
		idx += len(v.seqVal)
	}
	if idx < 0 || idx >= len(v.seqVal) {
		return Undefined()
	}
	return v.seqVal[idx]
}

// Traverse resolves a dotted path left-to-right against the value. Map
// values resolve segments as attribute names; sequence values resolve
// numeric segments as indexes. Any miss yields undefined, never an error.
func (v Value) Traverse(path []string) Value {
	current := v
	for _, seg := range path {
		switch current.kind {
		case KindMap:
			current = current.GetAttr(seg)
		case KindSeq:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Undefined()
			}
			current = current.GetIndex(idx)
		default:
			return Undefined()
		}
		if current.kind == KindUndefined {
			return Undefined()
		}
	}
	return current
}

// String renders the value as template output. Undefined and none render
// as the empty string; numbers render without a trailing ".0" when they
// are integral.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined, KindNone:
		return ""
	case KindBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case KindString:
		return v.strVal
	case KindNumber:
		if v.isFloat {
			return strconv.FormatFloat(v.fltVal, 'f', -1, 64)
		}
		return strconv.FormatInt(v.intVal, 10)
	case KindSeq:
		parts := make([]string, len(v.seqVal))
		for i, item := range v.seqVal {
			parts[i] = item.debugString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.mapVal))
		for k := range v.mapVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.mapVal[k].debugString())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// debugString is like String but quotes strings, for container rendering.
func (v Value) debugString() string {
	if v.kind == KindString {
		return strconv.Quote(v.strVal)
	}
	if v.kind == KindUndefined {
		return "undefined"
	}
	if v.kind == KindNone {
		return "none"
	}
	return v.String()
}
