package stache

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Value is a dynamically typed value seen by the evaluator.
// It defines string conversion and truthiness semantics.
type Value interface {
	String() string
	Truth() bool
}

// LookupHook can be implemented by Value containers other than DictValue so
// that dotted names can index into them.
type LookupHook interface {
	OnLookup(key string) (Value, bool)
}

// CallableValue wraps a function that templates can call as a helper.
type CallableValue struct {
	Fn func(args []Value) (Value, error)
}

func (c CallableValue) String() string { return "<function>" }
func (c CallableValue) Truth() bool    { return c.Fn != nil }

// NoneValue represents the absence of a value.
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }

// IntValue wraps an integer (64-bit).
type IntValue int64

func (i IntValue) String() string { return fmt.Sprintf("%d", int64(i)) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }

// FloatValue wraps a float (64-bit).
type FloatValue float64

func (f FloatValue) String() string { return fmt.Sprintf("%v", float64(f)) }
func (f FloatValue) Truth() bool {
	return float64(f) != 0 && !math.IsNaN(float64(f))
}

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(string(s)) > 0 }

// ListValue wraps a list of values.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		if v != nil {
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, ",")
}
func (l ListValue) Truth() bool { return len(l) > 0 }

// DictValue wraps a string-keyed dictionary of values. A mapping is always
// truthy, even when empty.
type DictValue map[string]Value

func (d DictValue) String() string { return "{...}" }
func (d DictValue) Truth() bool    { return true }

// Context is the environment a template is rendered against. The renderer
// only ever reads it.
type Context map[string]Value

// NewContextFromAny converts a map[string]any into a Value-based Context.
// It recursively converts nested maps/slices into DictValue/ListValue.
func NewContextFromAny(m map[string]any) Context {
	ctx := Context{}
	for k, v := range m {
		ctx[k] = FromGo(v)
	}
	return ctx
}

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

// FromGo converts a Go value to a Value. Functions become CallableValues
// whose arguments are converted back with ToGo.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case []byte:
		return StringValue(string(t))
	case func(args []Value) (Value, error):
		return CallableValue{Fn: t}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return FloatValue(float64(u))
		}
		return IntValue(int64(u))
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float())
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		// Only string keys can be addressed by name.
		if rv.Type().Key().Kind() == reflect.String {
			out := DictValue{}
			it := rv.MapRange()
			for it.Next() {
				out[it.Key().String()] = FromGo(it.Value().Interface())
			}
			return out
		}
	case reflect.Func:
		if rv.IsNil() {
			return NoneValue{}
		}
		return callableFromFunc(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	// Fallback: string formatting
	return StringValue(fmt.Sprintf("%v", v))
}

// ToGo converts a Value to plain Go data: string, int64, float64, bool,
// []any, map[string]any or nil. Other values are returned unchanged.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, NoneValue:
		return nil
	case StringValue:
		return string(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, 0, len(t))
		for _, it := range t {
			out = append(out, ToGo(it))
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = ToGo(vv)
		}
		return out
	default:
		return v
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callableFromFunc adapts an arbitrary Go function. Missing arguments are
// passed as zero values and extra ones are dropped, unless the function is
// variadic. A trailing error result is reported as the call's error.
func callableFromFunc(fn reflect.Value) CallableValue {
	ft := fn.Type()
	return CallableValue{Fn: func(args []Value) (Value, error) {
		n := ft.NumIn()
		in := make([]reflect.Value, 0, max(n, len(args)))
		for i := 0; i < n; i++ {
			pt := ft.In(i)
			if ft.IsVariadic() && i == n-1 {
				for j := i; j < len(args); j++ {
					a, err := toReflect(args[j], pt.Elem())
					if err != nil {
						return nil, fmt.Errorf("argument %d: %w", j, err)
					}
					in = append(in, a)
				}
				break
			}
			var arg Value = NoneValue{}
			if i < len(args) {
				arg = args[i]
			}
			a, err := toReflect(arg, pt)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, a)
		}
		out := fn.Call(in)
		if len(out) == 0 {
			return NoneValue{}, nil
		}
		if last := out[len(out)-1]; ft.Out(len(out)-1) == errorType {
			if !last.IsNil() {
				return nil, last.Interface().(error)
			}
			out = out[:len(out)-1]
			if len(out) == 0 {
				return NoneValue{}, nil
			}
		}
		return FromGo(out[0].Interface()), nil
	}}
}

func toReflect(v Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		if v == nil {
			v = NoneValue{}
		}
		return reflect.ValueOf(&v).Elem(), nil
	}
	// An empty interface parameter gets plain Go data below.
	isAny := t.Kind() == reflect.Interface && t.NumMethod() == 0
	if v != nil && !isAny && reflect.TypeOf(v).AssignableTo(t) {
		return reflect.ValueOf(v), nil
	}
	g := ToGo(v)
	if g == nil {
		return reflect.Zero(t), nil
	}
	gv := reflect.ValueOf(g)
	switch {
	case gv.Type().AssignableTo(t):
		return gv, nil
	case t.Kind() == reflect.String:
		// int -> string conversion would yield a rune, not digits
		return reflect.ValueOf(fmt.Sprint(g)).Convert(t), nil
	case gv.Type().ConvertibleTo(t) && gv.Kind() != reflect.String:
		return gv.Convert(t), nil
	}
	return reflect.Value{}, errors.New("cannot use " + gv.Type().String() + " as " + t.String())
}
