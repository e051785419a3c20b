package stache

// scope is one link of the name lookup chain used while rendering. Names
// resolve against vars first and then against the enclosing scopes, so a
// section can expose an element's keys without copying or touching the
// caller's Context.
type scope struct {
	vars   Value
	parent *scope
}

func newScope(ctx Context) *scope {
	return &scope{vars: DictValue(ctx)}
}

// push returns a child scope whose keys shadow s.
func (s *scope) push(vars Value) *scope {
	return &scope{vars: vars, parent: s}
}

func (s *scope) lookup(key string) (Value, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := index(c.vars, key); ok {
			return v, true
		}
	}
	return nil, false
}

// index reads one key out of a keyed value.
func index(v Value, key string) (Value, bool) {
	switch t := v.(type) {
	case DictValue:
		val, ok := t[key]
		if !ok {
			return nil, false
		}
		if val == nil {
			return NoneValue{}, true
		}
		return val, true
	case LookupHook:
		return t.OnLookup(key)
	}
	return nil, false
}
