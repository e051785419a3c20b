package starlark

import (
	"fmt"
	"sort"

	"github.com/neurodesk/stache/pkg/stache"
	"go.starlark.net/starlark"
)

// ConvertToStarlark converts a template Value to a Starlark value
func ConvertToStarlark(val stache.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case stache.StringValue:
		return starlark.String(string(v))
	case stache.IntValue:
		return starlark.MakeInt64(int64(v))
	case stache.FloatValue:
		return starlark.Float(float64(v))
	case stache.BoolValue:
		return starlark.Bool(bool(v))
	case stache.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	case stache.DictValue:
		// Insertion order is visible to scripts, so keep it stable.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(v))
		for _, k := range keys {
			_ = dict.SetKey(starlark.String(k), ConvertToStarlark(v[k]))
		}
		return dict
	case stache.CallableValue:
		return wrapCallable("helper", v)
	case StarlarkValueWrapper:
		return v.Value
	case stache.NoneValue:
		return starlark.None
	default:
		return starlark.String(val.String())
	}
}

// ConvertFromStarlark converts a Starlark value to a template Value.
// Starlark functions become helpers; each call runs on its own thread.
func ConvertFromStarlark(val starlark.Value) stache.Value {
	if val == nil || val == starlark.None {
		return stache.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return stache.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return stache.IntValue(i)
		}
		// For very large integers, convert to string
		return stache.StringValue(v.String())
	case starlark.Float:
		return stache.FloatValue(float64(v))
	case starlark.Bool:
		return stache.BoolValue(bool(v))
	case *starlark.List:
		items := make(stache.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = ConvertFromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make(stache.ListValue, len(v))
		for i, it := range v {
			items[i] = ConvertFromStarlark(it)
		}
		return items
	case *starlark.Dict:
		dict := make(stache.DictValue)
		for _, item := range v.Items() {
			key, value := item[0], item[1]
			if keyStr, ok := key.(starlark.String); ok {
				dict[string(keyStr)] = ConvertFromStarlark(value)
			} else {
				dict[key.String()] = ConvertFromStarlark(value)
			}
		}
		return dict
	case starlark.Callable:
		return helperFromCallable(v)
	default:
		return StarlarkValueWrapper{Value: val}
	}
}

func helperFromCallable(fn starlark.Callable) stache.CallableValue {
	return stache.CallableValue{Fn: func(args []stache.Value) (stache.Value, error) {
		thread := &starlark.Thread{Name: "stache-helper:" + fn.Name()}
		sargs := make(starlark.Tuple, len(args))
		for i, a := range args {
			sargs[i] = ConvertToStarlark(a)
		}
		out, err := starlark.Call(thread, fn, sargs, nil)
		if err != nil {
			return nil, fmt.Errorf("calling %s: %w", fn.Name(), err)
		}
		return ConvertFromStarlark(out), nil
	}}
}

func wrapCallable(name string, c stache.CallableValue) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
		}
		in := make([]stache.Value, len(args))
		for i, a := range args {
			in[i] = ConvertFromStarlark(a)
		}
		if c.Fn == nil {
			return starlark.None, nil
		}
		out, err := c.Fn(in)
		if err != nil {
			return nil, err
		}
		return ConvertToStarlark(out), nil
	})
}

// StarlarkValueWrapper wraps a Starlark value that has no template
// counterpart, such as a set or a struct.
type StarlarkValueWrapper struct {
	Value starlark.Value
}

func (w StarlarkValueWrapper) String() string {
	if w.Value == nil {
		return ""
	}
	return w.Value.String()
}

func (w StarlarkValueWrapper) Truth() bool {
	if w.Value == nil {
		return false
	}
	return bool(w.Value.Truth())
}

// OnLookup exposes attributes of Starlark values that have them, so dotted
// names can reach into them.
func (w StarlarkValueWrapper) OnLookup(key string) (stache.Value, bool) {
	if m, ok := w.Value.(starlark.HasAttrs); ok {
		v, err := m.Attr(key)
		if err == nil && v != nil {
			return ConvertFromStarlark(v), true
		}
	}
	return nil, false
}

var (
	_ stache.Value      = StarlarkValueWrapper{}
	_ stache.LookupHook = StarlarkValueWrapper{}
)
