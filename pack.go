package wirefunc

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Pack maps logical params onto the wire keys declared by o. Fields missing
// from params, nil, or Absent are omitted entirely; only a required nullable
// field is written as null.
// Params that o does not declare are dropped. Nested objects, arrays, dicts
// and Tagged union values are packed recursively.
//
// Pack fails only when a value cannot take the shape its schema requires
// (for example a string where a nested object is declared).
func Pack(o *ObjectSchema, params map[string]any) (map[string]any, error) {
	return packObject(o, params, RootPath())
}

func packObject(o *ObjectSchema, params map[string]any, p PathRef) (map[string]any, error) {
	out := make(map[string]any, len(o.fields))
	for i := range o.fields {
		f := &o.fields[i]
		v, ok := params[f.Name]
		if !ok || v == nil || IsAbsent(v) {
			// a required nullable field has no way to be left out
			if f.Required && isNullable(f.Schema) {
				out[f.Key] = nil
			}
			continue
		}
		pv, err := packValue(v, f.Schema, p.Field(f.Key))
		if err != nil {
			return nil, err
		}
		out[f.Key] = pv
	}
	return out, nil
}

func packValue(v any, s Schema, p PathRef) (any, error) {
	if IsAbsent(v) {
		return nil, nil
	}
	switch t := s.(type) {
	case *NullableSchema:
		if v == nil {
			return nil, nil
		}
		return packValue(v, t.inner, p)
	case *ObjectSchema:
		m, ok := asParams(v)
		if !ok {
			return nil, newVerificationError(p, CodeInvalidType, KindObject, KindOf(v))
		}
		return packObject(t, m, p)
	case *ArraySchema:
		src, ok := v.([]any)
		if !ok {
			// typed slices ([]string, []int64, ...) carry no packed keys
			return v, nil
		}
		out := make([]any, len(src))
		for i := range src {
			ev, err := packValue(src[i], t.elem, p.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *DictSchema:
		src, ok := v.(map[string]any)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(src))
		for k, ev := range src {
			pv, err := packValue(ev, t.elem, p.Field(k))
			if err != nil {
				return nil, err
			}
			out[k] = pv
		}
		return out, nil
	case *UnionSchema:
		tg, ok := v.(Tagged)
		if !ok {
			// assumed to be in wire form already
			return v, nil
		}
		return packTagged(tg, t, p)
	}
	return v, nil
}

func packTagged(tg Tagged, u *UnionSchema, p PathRef) (any, error) {
	b, ok := u.BranchByTag(tg.Tag)
	if !ok {
		ve := newVerificationError(p, CodeDiscriminatorUnknown, KindInvalid, KindObject)
		ve.Discriminant = tg.Tag
		return nil, ve
	}
	if u.payloadKey != "" {
		out := map[string]any{u.key: b.Discriminant}
		if tg.Value != nil && !IsAbsent(tg.Value) {
			pv, err := packValue(tg.Value, b.Schema, p.Field(u.payloadKey))
			if err != nil {
				return nil, err
			}
			out[u.payloadKey] = pv
		}
		return out, nil
	}
	pv, err := packValue(tg.Value, b.Schema, p)
	if err != nil {
		return nil, err
	}
	m, ok := pv.(map[string]any)
	if !ok {
		return nil, newVerificationError(p, CodeInvalidType, KindObject, KindOf(pv))
	}
	m[u.key] = b.Discriminant
	return m, nil
}

func asParams(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// Unpack is the inverse of Pack over the fields present in wire: each
// declared field found under its wire key (or a former key) is copied under
// its logical name. Values are not verified; use Verify for untrusted input.
func Unpack(o *ObjectSchema, wire map[string]any) Record {
	out := make(Record, len(wire))
	for i := range o.fields {
		f := &o.fields[i]
		v, ok := wire[f.Key]
		if !ok {
			for _, old := range f.Formerly {
				if v, ok = wire[old]; ok {
					break
				}
			}
		}
		if !ok {
			continue
		}
		out[f.Name] = unpackValue(v, f.Schema)
	}
	return out
}

func unpackValue(v any, s Schema) any {
	switch t := s.(type) {
	case *NullableSchema:
		if v == nil {
			return nil
		}
		return unpackValue(v, t.inner)
	case *ObjectSchema:
		if m, ok := v.(map[string]any); ok {
			return Unpack(t, m)
		}
	case *ArraySchema:
		if src, ok := v.([]any); ok {
			out := make([]any, len(src))
			for i := range src {
				out[i] = unpackValue(src[i], t.elem)
			}
			return out
		}
	case *DictSchema:
		if src, ok := v.(map[string]any); ok {
			out := make(map[string]any, len(src))
			for k, ev := range src {
				out[k] = unpackValue(ev, t.elem)
			}
			return out
		}
	case *UnionSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		d, ok := asInteger(m[t.key])
		if !ok {
			return v
		}
		b, ok := t.BranchByDiscriminant(d)
		if !ok {
			return v
		}
		if t.payloadKey != "" {
			return Tagged{Tag: b.Tag, Value: unpackValue(m[t.payloadKey], b.Schema)}
		}
		rest := make(map[string]any, len(m))
		for k, ev := range m {
			if k != t.key {
				rest[k] = ev
			}
		}
		return Tagged{Tag: b.Tag, Value: unpackValue(rest, b.Schema)}
	}
	return v
}

// PackStruct packs a Go value (typically a struct whose json tags are the
// logical field names) by converting it to logical params with go-json first.
func PackStruct(o *ObjectSchema, v any) (map[string]any, error) {
	params, err := toParams(v)
	if err != nil {
		return nil, err
	}
	return Pack(o, params)
}

func toParams(v any) (map[string]any, error) {
	if m, ok := asParams(v); ok {
		return m, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, err
	}
	return params, nil
}
