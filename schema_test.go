package wirefunc_test

import (
	"errors"
	"testing"

	"github.com/reoring/wirefunc"
)

func TestObject_DefaultKeysFollowOrdinal(t *testing.T) {
	o := wirefunc.Object().
		Field("name", wirefunc.String()).Required().
		Field("email", wirefunc.String()).Required().
		Field("homepage", wirefunc.Nullable(wirefunc.String())).Optional().
		MustBuild()
	want := []string{"a", "b", "c"}
	for i, f := range o.Fields() {
		if f.Key != want[i] {
			t.Fatalf("field %s key=%q want %q", f.Name, f.Key, want[i])
		}
	}
	f, ok := o.FieldByKey("c")
	if !ok || f.Name != "homepage" || f.Required {
		t.Fatalf("FieldByKey(c)=%+v,%v", f, ok)
	}
}

func TestObject_IDKeyAndFormerly(t *testing.T) {
	o := wirefunc.Object().
		Field("id", wirefunc.Integer()).ID(27).Required().
		Field("title", wirefunc.String()).Key("title").Formerly("t").Optional().
		MustBuild()
	if f, _ := o.FieldByName("id"); f.Key != "ab" {
		t.Fatalf("id key=%q", f.Key)
	}
	f, ok := o.FieldByKey("t")
	if !ok || f.Name != "title" {
		t.Fatalf("former key lookup: %+v,%v", f, ok)
	}
}

func TestObject_BuildErrors(t *testing.T) {
	cases := map[string]struct {
		b    *wirefunc.ObjectBuilder
		code string
	}{
		"duplicate name": {
			wirefunc.Object().Field("x", wirefunc.String()).Field("x", wirefunc.Bool()).Optional(),
			wirefunc.CodeDuplicateField,
		},
		"duplicate key": {
			wirefunc.Object().Field("x", wirefunc.String()).Key("k").Field("y", wirefunc.Bool()).Key("k").Optional(),
			wirefunc.CodeDuplicateWireKey,
		},
		"former key collides": {
			wirefunc.Object().Field("x", wirefunc.String()).Field("y", wirefunc.Bool()).Formerly("a").Optional(),
			wirefunc.CodeDuplicateWireKey,
		},
		"nil schema": {
			wirefunc.Object().Field("x", nil).Optional(),
			wirefunc.CodeInvalidSchema,
		},
		"empty name": {
			wirefunc.Object().Field("", wirefunc.String()).Optional(),
			wirefunc.CodeInvalidSchema,
		},
	}
	for name, c := range cases {
		_, err := c.b.Build()
		var se *wirefunc.SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("%s: expected *SchemaError, got %v", name, err)
		}
		if se.Code != c.code {
			t.Fatalf("%s: code=%s want %s", name, se.Code, c.code)
		}
	}
}

func TestObject_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	wirefunc.Object().Field("x", wirefunc.String()).Field("x", wirefunc.String()).MustBuild()
}

func TestUnion_BuildErrors(t *testing.T) {
	cases := map[string]struct {
		b    *wirefunc.UnionBuilder
		code string
	}{
		"duplicate discriminant": {
			wirefunc.Union("a").Payload("b").Branch(1, "x", wirefunc.String()).Branch(1, "y", wirefunc.String()),
			wirefunc.CodeDuplicateDiscriminant,
		},
		"duplicate tag": {
			wirefunc.Union("a").Payload("b").Branch(1, "x", wirefunc.String()).Branch(2, "x", wirefunc.String()),
			wirefunc.CodeDuplicateTag,
		},
		"payload key equals discriminant key": {
			wirefunc.Union("a").Payload("a").Branch(1, "x", wirefunc.String()),
			wirefunc.CodeInvalidSchema,
		},
		"no branches": {
			wirefunc.Union("a"),
			wirefunc.CodeInvalidSchema,
		},
		"merged branch is not object shaped": {
			wirefunc.Union("a").Branch(1, "x", wirefunc.String()),
			wirefunc.CodeInvalidSchema,
		},
		"merged nullable branch": {
			wirefunc.Union("a").Branch(1, "x", wirefunc.Nullable(wirefunc.Object().MustBuild())),
			wirefunc.CodeInvalidSchema,
		},
		"merged union branch shares discriminant key": {
			wirefunc.Union("a").Branch(1, "x", wirefunc.Union("a").Payload("b").Branch(1, "y", wirefunc.String()).MustBuild()),
			wirefunc.CodeDuplicateWireKey,
		},
		"merged branch reuses discriminant key": {
			wirefunc.Union("a").Branch(1, "x", wirefunc.Object().Field("f", wirefunc.String()).MustBuild()),
			wirefunc.CodeDuplicateWireKey,
		},
	}
	for name, c := range cases {
		_, err := c.b.Build()
		var se *wirefunc.SchemaError
		if !errors.As(err, &se) || se.Code != c.code {
			t.Fatalf("%s: got %v want code %s", name, err, c.code)
		}
	}
}

func TestSchema_String(t *testing.T) {
	s := wirefunc.Array(wirefunc.Nullable(wirefunc.Dict(wirefunc.Integer())))
	if got := s.String(); got != "[?{integer}]" {
		t.Fatalf("String()=%q", got)
	}
	if n := wirefunc.Nullable(wirefunc.Nullable(wirefunc.String())); n.Inner() != wirefunc.String() {
		t.Fatalf("double nullable should collapse, inner=%s", n.Inner())
	}
}
