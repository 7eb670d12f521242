package value

import "strings"

// SplitKey splits a dot-notation key into the entry ID and the nested path.
// "user.profile.name" yields ("user", ["profile", "name"]).
func SplitKey(key string) (string, []string) {
	parts := strings.Split(key, ".")
	return parts[0], parts[1:]
}

// Lookup follows path through nested maps.
func (v Value) Lookup(path []string) (Value, bool) {
	cur := v
	for _, p := range path {
		next, ok := cur.Field(p)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// SetPath returns a copy of v with val stored at path. Missing or non-map
// intermediate nodes are replaced by maps.
func (v Value) SetPath(path []string, val Value) Value {
	if len(path) == 0 {
		return val
	}
	fields := map[string]Value{}
	if v.kind == KindMap {
		fields = make(map[string]Value, len(v.fields)+1)
		for k, f := range v.fields {
			fields[k] = f
		}
	}
	child := fields[path[0]]
	fields[path[0]] = child.SetPath(path[1:], val)
	return Value{kind: KindMap, fields: fields}
}

// DeletePath returns a copy of v without the node at path, and whether
// anything was removed.
func (v Value) DeletePath(path []string) (Value, bool) {
	if len(path) == 0 || v.kind != KindMap {
		return v, false
	}
	child, ok := v.fields[path[0]]
	if !ok {
		return v, false
	}
	fields := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		fields[k] = f
	}
	if len(path) == 1 {
		delete(fields, path[0])
	} else {
		updated, removed := child.DeletePath(path[1:])
		if !removed {
			return v, false
		}
		fields[path[0]] = updated
	}
	return Value{kind: KindMap, fields: fields}, true
}
