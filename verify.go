package wirefunc

import (
	"context"
	"fmt"
	"sort"
)

// Verify walks a decoded value against s and returns the verified value, or
// the first mismatch as a *VerificationError.
//
// Decoded objects (map[string]any) are read by wire key and come back as a
// Record keyed by logical name. A Record or Tagged given as input is read by
// logical name or tag, so verifying an already verified value yields the same
// value again. Unknown wire keys are ignored.
//
// ctx is checked between container members; its error is returned as is.
func Verify(ctx context.Context, v any, s Schema) (any, error) {
	if s == nil {
		return nil, &SchemaError{Code: CodeInvalidSchema, Message: "nil schema"}
	}
	return verifyAt(ctx, v, s, RootPath())
}

func verifyAt(ctx context.Context, v any, s Schema, p PathRef) (any, error) {
	switch t := s.(type) {
	case *PrimitiveSchema:
		return verifyPrimitive(v, t, p)
	case *NullableSchema:
		if v == nil || IsAbsent(v) {
			return Absent, nil
		}
		return verifyAt(ctx, v, t.inner, p)
	case *ArraySchema:
		return verifyArray(ctx, v, t, p)
	case *DictSchema:
		return verifyDict(ctx, v, t, p)
	case *ObjectSchema:
		return verifyObject(ctx, v, t, p)
	case *UnionSchema:
		return verifyUnion(ctx, v, t, p)
	}
	return nil, &SchemaError{Code: CodeInvalidSchema, Message: fmt.Sprintf("unsupported schema %T", s)}
}

func verifyPrimitive(v any, s *PrimitiveSchema, p PathRef) (any, error) {
	switch s.kind {
	case KindString:
		if str, ok := v.(string); ok {
			return str, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindNumber:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
	case KindInteger:
		if i, ok := asInteger(v); ok {
			return i, nil
		}
	}
	return nil, newVerificationError(p, CodeInvalidType, s.kind, KindOf(v))
}

func verifyArray(ctx context.Context, v any, s *ArraySchema, p PathRef) (any, error) {
	src, ok := v.([]any)
	if !ok {
		return nil, newVerificationError(p, CodeInvalidType, KindArray, KindOf(v))
	}
	out := make([]any, len(src))
	for i := range src {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := verifyAt(ctx, src[i], s.elem, p.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func verifyDict(ctx context.Context, v any, s *DictSchema, p PathRef) (any, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, newVerificationError(p, CodeInvalidType, KindObject, KindOf(v))
	}
	// sorted so the reported failure is deterministic
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(src))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := verifyAt(ctx, src[k], s.elem, p.Field(k))
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}

// objectLookup finds a field's value and the path segment to report.
type objectLookup func(f *Field) (val any, present bool, segment string)

func verifyObject(ctx context.Context, v any, s *ObjectSchema, p PathRef) (any, error) {
	var lookup objectLookup
	switch m := v.(type) {
	case Record:
		lookup = func(f *Field) (any, bool, string) {
			val, ok := m[f.Name]
			return val, ok, f.Name
		}
	case map[string]any:
		lookup = func(f *Field) (any, bool, string) {
			if val, ok := m[f.Key]; ok {
				return val, true, f.Key
			}
			for _, old := range f.Formerly {
				if val, ok := m[old]; ok {
					return val, true, old
				}
			}
			return nil, false, f.Key
		}
	default:
		return nil, newVerificationError(p, CodeInvalidType, KindObject, KindOf(v))
	}

	out := make(Record, len(s.fields))
	for i := range s.fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := &s.fields[i]
		val, present, seg := lookup(f)
		fp := p.Field(seg)
		if !present {
			if f.Required {
				ve := newVerificationError(fp, CodeRequired, f.Schema.Expected(), KindAbsent)
				ve.Field = f.Name
				return nil, ve
			}
			out[f.Name] = Absent
			continue
		}
		if IsAbsent(val) && !f.Required {
			out[f.Name] = Absent
			continue
		}
		fv, err := verifyAt(ctx, val, f.Schema, fp)
		if err != nil {
			return nil, err
		}
		out[f.Name] = fv
	}
	return out, nil
}

func verifyUnion(ctx context.Context, v any, s *UnionSchema, p PathRef) (any, error) {
	var (
		b       Branch
		payload any
		present = true
	)
	switch m := v.(type) {
	case Tagged:
		br, ok := s.BranchByTag(m.Tag)
		if !ok {
			ve := newVerificationError(p, CodeDiscriminatorUnknown, KindInvalid, KindObject)
			ve.Discriminant = m.Tag
			return nil, ve
		}
		b, payload = br, m.Value
	case map[string]any:
		raw, ok := m[s.key]
		if !ok {
			ve := newVerificationError(p.Field(s.key), CodeDiscriminatorMissing, KindInteger, KindAbsent)
			ve.Field = s.key
			return nil, ve
		}
		d, ok := asInteger(raw)
		if !ok {
			return nil, newVerificationError(p.Field(s.key), CodeInvalidType, KindInteger, KindOf(raw))
		}
		br, ok := s.BranchByDiscriminant(d)
		if !ok {
			// reported at the union root: the whole value is unrecognised
			ve := newVerificationError(p, CodeDiscriminatorUnknown, KindInvalid, KindObject)
			ve.Discriminant = d
			return nil, ve
		}
		b = br
		if s.payloadKey != "" {
			payload, present = m[s.payloadKey]
		} else {
			rest := make(map[string]any, len(m))
			for k, val := range m {
				if k != s.key {
					rest[k] = val
				}
			}
			payload = rest
		}
	default:
		return nil, newVerificationError(p, CodeInvalidType, KindObject, KindOf(v))
	}

	pp := p
	if s.payloadKey != "" {
		pp = p.Field(s.payloadKey)
	}
	if !present {
		if !isNullable(b.Schema) {
			ve := newVerificationError(pp, CodeRequired, b.Schema.Expected(), KindAbsent)
			ve.Field = s.payloadKey
			return nil, ve
		}
		payload = Absent
	}
	pv, err := verifyAt(ctx, payload, b.Schema, pp)
	if err != nil {
		return nil, err
	}
	return Tagged{Tag: b.Tag, Value: pv}, nil
}
