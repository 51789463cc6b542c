package wirefunc

// ObjectBuilder collects field declarations for an ObjectSchema. Fields
// default to optional and to the wire key FieldKey(ordinal), so the first
// field is "a", the second "b" and so on.
type ObjectBuilder struct {
	drafts []fieldDraft
}

type fieldDraft struct {
	name     string
	key      string
	id       uint64
	hasID    bool
	formerly []string
	schema   Schema
	required bool
}

// FieldStep configures the field most recently added with Field.
type FieldStep struct {
	b   *ObjectBuilder
	idx int
}

// Object creates a new object builder.
func Object() *ObjectBuilder { return &ObjectBuilder{} }

// Field declares a field with its logical name and schema.
func (b *ObjectBuilder) Field(name string, s Schema) *FieldStep {
	b.drafts = append(b.drafts, fieldDraft{name: name, schema: s})
	return &FieldStep{b: b, idx: len(b.drafts) - 1}
}

// Require marks one or more already declared fields as required.
func (b *ObjectBuilder) Require(names ...string) *ObjectBuilder {
	for _, n := range names {
		for i := range b.drafts {
			if b.drafts[i].name == n {
				b.drafts[i].required = true
			}
		}
	}
	return b
}

func (f *FieldStep) draft() *fieldDraft { return &f.b.drafts[f.idx] }

// Required marks the field as required and returns the builder.
func (f *FieldStep) Required() *ObjectBuilder {
	f.draft().required = true
	return f.b
}

// Optional marks the field as optional (default) and returns the builder.
func (f *FieldStep) Optional() *ObjectBuilder {
	f.draft().required = false
	return f.b
}

// Key sets an explicit wire key, overriding the id-derived one.
func (f *FieldStep) Key(key string) *FieldStep {
	f.draft().key = key
	return f
}

// ID sets the field id; the wire key becomes FieldKey(id).
func (f *FieldStep) ID(id uint64) *FieldStep {
	d := f.draft()
	d.id, d.hasID = id, true
	return f
}

// Formerly records wire keys the field was published under before a rename.
// They are accepted on decode; Pack always writes the current key.
func (f *FieldStep) Formerly(keys ...string) *FieldStep {
	d := f.draft()
	d.formerly = append(d.formerly, keys...)
	return f
}

func (f *FieldStep) Field(name string, s Schema) *FieldStep { return f.b.Field(name, s) }
func (f *FieldStep) Build() (*ObjectSchema, error)          { return f.b.Build() }
func (f *FieldStep) MustBuild() *ObjectSchema               { return f.b.MustBuild() }

// Build validates the declarations and returns the immutable schema. It fails
// with a *SchemaError on empty or duplicate logical names, nil schemas, and
// wire key collisions (current or former keys).
func (b *ObjectBuilder) Build() (*ObjectSchema, error) {
	o := &ObjectSchema{
		fields: make([]Field, 0, len(b.drafts)),
		byName: make(map[string]int, len(b.drafts)),
		byKey:  make(map[string]int, len(b.drafts)),
	}
	for i, d := range b.drafts {
		if d.name == "" {
			return nil, &SchemaError{Code: CodeInvalidSchema, Message: "field name must not be empty"}
		}
		if d.schema == nil {
			return nil, &SchemaError{Code: CodeInvalidSchema, Subject: d.name, Message: "field schema must not be nil"}
		}
		if _, dup := o.byName[d.name]; dup {
			return nil, schemaError(CodeDuplicateField, d.name)
		}
		key := d.key
		if key == "" {
			id := uint64(i)
			if d.hasID {
				id = d.id
			}
			key = FieldKey(id)
		}
		idx := len(o.fields)
		for _, k := range append([]string{key}, d.formerly...) {
			if k == "" {
				return nil, &SchemaError{Code: CodeInvalidSchema, Subject: d.name, Message: "wire key must not be empty"}
			}
			if _, dup := o.byKey[k]; dup {
				return nil, schemaError(CodeDuplicateWireKey, k)
			}
			o.byKey[k] = idx
		}
		o.byName[d.name] = idx
		o.fields = append(o.fields, Field{
			Name:     d.name,
			Key:      key,
			Formerly: append([]string(nil), d.formerly...),
			Schema:   d.schema,
			Required: d.required,
		})
	}
	return o, nil
}

// MustBuild is like Build but panics on error. Intended for package-level
// schema variables.
func (b *ObjectBuilder) MustBuild() *ObjectSchema {
	o, err := b.Build()
	if err != nil {
		panic(err)
	}
	return o
}
