package wirefunc

import (
	"fmt"
	"sort"

	"github.com/reoring/wirefunc/jsonschema"
)

// JSONSchema projects s onto a JSON Schema document describing its wire
// form: properties are wire keys and each carries the logical name as its
// title. Former keys are not exported.
func JSONSchema(s Schema) (*jsonschema.Schema, error) {
	js, err := toJSONSchema(s)
	if err != nil {
		return nil, err
	}
	js.Schema = jsonschema.Draft
	return js, nil
}

func toJSONSchema(s Schema) (*jsonschema.Schema, error) {
	switch t := s.(type) {
	case *PrimitiveSchema:
		typ := t.kind.String()
		if t.kind == KindBool {
			typ = "boolean"
		}
		return &jsonschema.Schema{Type: typ}, nil
	case *NullableSchema:
		inner, err := toJSONSchema(t.inner)
		if err != nil {
			return nil, err
		}
		return jsonschema.OrNull(inner), nil
	case *ArraySchema:
		items, err := toJSONSchema(t.elem)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{Type: "array", Items: items}, nil
	case *DictSchema:
		elem, err := toJSONSchema(t.elem)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{Type: "object", AdditionalProperties: elem}, nil
	case *ObjectSchema:
		return objectJSONSchema(t)
	case *UnionSchema:
		return unionJSONSchema(t)
	}
	return nil, &SchemaError{Code: CodeInvalidSchema, Message: fmt.Sprintf("unsupported schema %T", s)}
}

func objectJSONSchema(o *ObjectSchema) (*jsonschema.Schema, error) {
	js := &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema, len(o.fields))}
	for i := range o.fields {
		f := &o.fields[i]
		fs, err := toJSONSchema(f.Schema)
		if err != nil {
			return nil, err
		}
		fs.Title = f.Name
		js.Properties[f.Key] = fs
		if f.Required {
			js.Required = append(js.Required, f.Key)
		}
	}
	sort.Strings(js.Required)
	return js, nil
}

func unionJSONSchema(u *UnionSchema) (*jsonschema.Schema, error) {
	js := &jsonschema.Schema{}
	for _, b := range u.branches {
		disc := &jsonschema.Schema{Type: "integer", Const: b.Discriminant}
		var alt *jsonschema.Schema
		if u.payloadKey != "" {
			payload, err := toJSONSchema(b.Schema)
			if err != nil {
				return nil, err
			}
			alt = &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{u.key: disc, u.payloadKey: payload},
				Required:   []string{u.key},
			}
			if !isNullable(b.Schema) {
				alt.Required = append(alt.Required, u.payloadKey)
			}
		} else {
			// fields merged next to the discriminant
			payload, err := toJSONSchema(b.Schema)
			if err != nil {
				return nil, err
			}
			if payload.Properties == nil {
				payload.Properties = map[string]*jsonschema.Schema{}
			}
			payload.Properties[u.key] = disc
			payload.Required = append(payload.Required, u.key)
			alt = payload
		}
		alt.Title = b.Tag
		js.OneOf = append(js.OneOf, alt)
	}
	return js, nil
}
