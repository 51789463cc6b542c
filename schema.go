package wirefunc

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema describes the expected shape of a wire value. The set of variants
// is closed: *PrimitiveSchema, *NullableSchema, *ArraySchema, *DictSchema,
// *ObjectSchema and *UnionSchema. Descriptors are immutable once built and
// safe for concurrent use; constructors only accept finished schemas, so a
// descriptor can never reference itself.
type Schema interface {
	fmt.Stringer
	// Expected is the value kind a decoded value must have at this node.
	Expected() Kind
	sealed()
}

// PrimitiveSchema matches a string, number, integer or bool.
type PrimitiveSchema struct{ kind Kind }

var (
	stringSchema  = &PrimitiveSchema{kind: KindString}
	numberSchema  = &PrimitiveSchema{kind: KindNumber}
	integerSchema = &PrimitiveSchema{kind: KindInteger}
	boolSchema    = &PrimitiveSchema{kind: KindBool}
)

// String returns the string primitive schema.
func String() *PrimitiveSchema { return stringSchema }

// Number returns the number primitive schema (verified as float64).
func Number() *PrimitiveSchema { return numberSchema }

// Integer returns the integer primitive schema (verified as int64).
func Integer() *PrimitiveSchema { return integerSchema }

// Bool returns the bool primitive schema.
func Bool() *PrimitiveSchema { return boolSchema }

// Primitive returns the primitive schema for kind. It panics for kinds that
// are not primitives, which is a programming error at schema-build time.
func Primitive(kind Kind) *PrimitiveSchema {
	switch kind {
	case KindString:
		return stringSchema
	case KindNumber:
		return numberSchema
	case KindInteger:
		return integerSchema
	case KindBool:
		return boolSchema
	}
	panic("wirefunc: not a primitive kind: " + kind.String())
}

func (p *PrimitiveSchema) Kind() Kind     { return p.kind }
func (p *PrimitiveSchema) Expected() Kind { return p.kind }
func (p *PrimitiveSchema) String() string { return p.kind.String() }
func (*PrimitiveSchema) sealed()          {}

// NullableSchema accepts null (and Absent) in addition to its inner schema.
type NullableSchema struct{ inner Schema }

// Nullable wraps s. Nullable(Nullable(s)) collapses to Nullable(s).
func Nullable(s Schema) *NullableSchema {
	mustSchema(s, "Nullable")
	if n, ok := s.(*NullableSchema); ok {
		return n
	}
	return &NullableSchema{inner: s}
}

func (n *NullableSchema) Inner() Schema  { return n.inner }
func (n *NullableSchema) Expected() Kind { return n.inner.Expected() }
func (n *NullableSchema) String() string { return "?" + n.inner.String() }
func (*NullableSchema) sealed()          {}

// ArraySchema matches a sequence whose elements all match the element schema.
type ArraySchema struct{ elem Schema }

// Array returns an array schema over elem.
func Array(elem Schema) *ArraySchema {
	mustSchema(elem, "Array")
	return &ArraySchema{elem: elem}
}

func (a *ArraySchema) Elem() Schema   { return a.elem }
func (*ArraySchema) Expected() Kind   { return KindArray }
func (a *ArraySchema) String() string { return "[" + a.elem.String() + "]" }
func (*ArraySchema) sealed()          {}

// DictSchema matches an object with arbitrary keys whose values all match
// the value schema. Keys are not packed.
type DictSchema struct{ elem Schema }

// Dict returns a string-keyed map schema over elem.
func Dict(elem Schema) *DictSchema {
	mustSchema(elem, "Dict")
	return &DictSchema{elem: elem}
}

func (d *DictSchema) Elem() Schema   { return d.elem }
func (*DictSchema) Expected() Kind   { return KindObject }
func (d *DictSchema) String() string { return "{" + d.elem.String() + "}" }
func (*DictSchema) sealed()          {}

// Field is one declared member of an ObjectSchema.
type Field struct {
	Name     string   // logical name used by calling code
	Key      string   // wire key
	Formerly []string // wire keys accepted on decode from older peers
	Schema   Schema
	Required bool
}

// ObjectSchema matches an object with packed wire keys. Fields keep their
// declaration order.
type ObjectSchema struct {
	fields []Field
	byName map[string]int
	byKey  map[string]int // current and former wire keys
}

// Fields returns a copy of the declared fields in declaration order.
func (o *ObjectSchema) Fields() []Field {
	out := make([]Field, len(o.fields))
	copy(out, o.fields)
	for i := range out {
		out[i].Formerly = append([]string(nil), out[i].Formerly...)
	}
	return out
}

// Len returns the number of declared fields.
func (o *ObjectSchema) Len() int { return len(o.fields) }

// FieldByName looks up a field by logical name.
func (o *ObjectSchema) FieldByName(name string) (Field, bool) {
	i, ok := o.byName[name]
	if !ok {
		return Field{}, false
	}
	return o.fields[i], true
}

// FieldByKey looks up a field by current or former wire key.
func (o *ObjectSchema) FieldByKey(key string) (Field, bool) {
	i, ok := o.byKey[key]
	if !ok {
		return Field{}, false
	}
	return o.fields[i], true
}

func (*ObjectSchema) Expected() Kind { return KindObject }

func (o *ObjectSchema) String() string {
	b := &strings.Builder{}
	b.WriteString("object{")
	for i, f := range o.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		if f.Key != f.Name {
			b.WriteString("@" + f.Key)
		}
		if !f.Required {
			b.WriteString("?")
		}
		b.WriteString(": " + f.Schema.String())
	}
	b.WriteString("}")
	return b.String()
}

func (*ObjectSchema) sealed() {}

// Branch is one alternative of a UnionSchema.
type Branch struct {
	Discriminant int64
	Tag          string
	Schema       Schema
}

// UnionSchema is a tagged union selected by an integer discriminant stored
// under a reserved wire key. When PayloadKey is set the branch payload lives
// under that key; otherwise the payload is the object minus the
// discriminant.
type UnionSchema struct {
	key        string
	payloadKey string
	branches   []Branch
	byDisc     map[int64]int
	byTag      map[string]int
}

func (u *UnionSchema) DiscriminantKey() string { return u.key }
func (u *UnionSchema) PayloadKey() string      { return u.payloadKey }

// Branches returns a copy of the branches in declaration order.
func (u *UnionSchema) Branches() []Branch {
	return append([]Branch(nil), u.branches...)
}

// BranchByDiscriminant looks up a branch by its wire discriminant.
func (u *UnionSchema) BranchByDiscriminant(d int64) (Branch, bool) {
	i, ok := u.byDisc[d]
	if !ok {
		return Branch{}, false
	}
	return u.branches[i], true
}

// BranchByTag looks up a branch by its logical tag name.
func (u *UnionSchema) BranchByTag(tag string) (Branch, bool) {
	i, ok := u.byTag[tag]
	if !ok {
		return Branch{}, false
	}
	return u.branches[i], true
}

func (*UnionSchema) Expected() Kind { return KindObject }

func (u *UnionSchema) String() string {
	parts := make([]string, len(u.branches))
	for i, b := range u.branches {
		parts[i] = strconv.FormatInt(b.Discriminant, 10) + "=" + b.Tag + ": " + b.Schema.String()
	}
	return "union(" + u.key + "){" + strings.Join(parts, " | ") + "}"
}

func (*UnionSchema) sealed() {}

func mustSchema(s Schema, ctor string) {
	if s == nil {
		panic("wirefunc: " + ctor + " called with nil schema")
	}
}

// isNullable reports whether s accepts null/Absent at its root.
func isNullable(s Schema) bool {
	_, ok := s.(*NullableSchema)
	return ok
}
