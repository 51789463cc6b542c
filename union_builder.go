package wirefunc

import "strconv"

// UnionBuilder collects branches for a UnionSchema.
type UnionBuilder struct {
	key        string
	payloadKey string
	branches   []Branch
}

// Union starts a tagged union whose integer discriminant is stored under the
// wire key discriminantKey.
func Union(discriminantKey string) *UnionBuilder {
	return &UnionBuilder{key: discriminantKey}
}

// Payload places the branch payload under key instead of alongside the
// discriminant.
func (u *UnionBuilder) Payload(key string) *UnionBuilder {
	u.payloadKey = key
	return u
}

// Branch adds an alternative selected by discriminant d and exposed under the
// logical tag name.
func (u *UnionBuilder) Branch(d int64, tag string, s Schema) *UnionBuilder {
	u.branches = append(u.branches, Branch{Discriminant: d, Tag: tag, Schema: s})
	return u
}

// Build validates the branches and returns the immutable schema. Duplicate
// discriminants or tags fail with a *SchemaError.
func (u *UnionBuilder) Build() (*UnionSchema, error) {
	if u.key == "" {
		return nil, &SchemaError{Code: CodeInvalidSchema, Message: "discriminant key must not be empty"}
	}
	if u.payloadKey == u.key {
		return nil, &SchemaError{Code: CodeInvalidSchema, Subject: u.key, Message: "payload key equals discriminant key"}
	}
	if len(u.branches) == 0 {
		return nil, &SchemaError{Code: CodeInvalidSchema, Subject: u.key, Message: "union has no branches"}
	}
	out := &UnionSchema{
		key:        u.key,
		payloadKey: u.payloadKey,
		branches:   make([]Branch, 0, len(u.branches)),
		byDisc:     make(map[int64]int, len(u.branches)),
		byTag:      make(map[string]int, len(u.branches)),
	}
	for _, b := range u.branches {
		if b.Schema == nil {
			return nil, &SchemaError{Code: CodeInvalidSchema, Subject: b.Tag, Message: "branch schema must not be nil"}
		}
		if b.Tag == "" {
			return nil, &SchemaError{Code: CodeInvalidSchema, Subject: strconv.FormatInt(b.Discriminant, 10), Message: "branch tag must not be empty"}
		}
		if _, dup := out.byDisc[b.Discriminant]; dup {
			return nil, schemaError(CodeDuplicateDiscriminant, strconv.FormatInt(b.Discriminant, 10))
		}
		if _, dup := out.byTag[b.Tag]; dup {
			return nil, schemaError(CodeDuplicateTag, b.Tag)
		}
		if u.payloadKey == "" {
			// merged form: the payload is the rest of the object
			switch t := b.Schema.(type) {
			case *ObjectSchema:
				if _, clash := t.byKey[u.key]; clash {
					return nil, schemaError(CodeDuplicateWireKey, u.key)
				}
			case *UnionSchema:
				if t.key == u.key {
					return nil, schemaError(CodeDuplicateWireKey, u.key)
				}
			case *DictSchema:
			default:
				return nil, &SchemaError{Code: CodeInvalidSchema, Subject: b.Tag, Message: "branch without payload key must be an object, dict or union"}
			}
		}
		out.byDisc[b.Discriminant] = len(out.branches)
		out.byTag[b.Tag] = len(out.branches)
		out.branches = append(out.branches, b)
	}
	return out, nil
}

// MustBuild is like Build but panics on error.
func (u *UnionBuilder) MustBuild() *UnionSchema {
	s, err := u.Build()
	if err != nil {
		panic(err)
	}
	return s
}
