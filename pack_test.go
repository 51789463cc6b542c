package wirefunc_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/reoring/wirefunc"
)

var sendDMParams = wirefunc.Object().
	Field("name", wirefunc.String()).Required().
	Field("email", wirefunc.String()).Required().
	Field("homepage", wirefunc.Nullable(wirefunc.String())).Optional().
	MustBuild()

func TestPack_SendDM(t *testing.T) {
	got, err := wirefunc.Pack(sendDMParams, map[string]any{
		"name":     "alice",
		"email":    "a@x.com",
		"homepage": nil,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := map[string]any{"a": "alice", "b": "a@x.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
	text, err := wirefunc.EncodeWire(got)
	if err != nil {
		t.Fatalf("EncodeWire: %v", err)
	}
	if string(text) != `{"a":"alice","b":"a@x.com"}` {
		t.Fatalf("wire text %s", text)
	}
}

func TestPack_OmitsAbsentAndUndeclared(t *testing.T) {
	got, err := wirefunc.Pack(sendDMParams, map[string]any{
		"name":     "alice",
		"homepage": wirefunc.Absent,
		"unknown":  1,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"a": "alice"}) {
		t.Fatalf("got %#v", got)
	}
}

func TestPack_RequiredNullableWrittenAsNull(t *testing.T) {
	o := wirefunc.Object().
		Field("homepage", wirefunc.Nullable(wirefunc.String())).Required().
		Field("bio", wirefunc.Nullable(wirefunc.String())).Optional().
		MustBuild()
	for _, v := range []any{nil, wirefunc.Absent} {
		got, err := wirefunc.Pack(o, map[string]any{"homepage": v, "bio": v})
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		if !reflect.DeepEqual(got, map[string]any{"a": nil}) {
			t.Fatalf("got %#v", got)
		}
		// the packed body is accepted by the same schema on the receiving side
		wire, err := wirefunc.EncodeWire(got)
		if err != nil {
			t.Fatalf("EncodeWire: %v", err)
		}
		if _, err := wirefunc.Verify(context.Background(), decode(t, string(wire)), o); err != nil {
			t.Fatalf("Verify(%s): %v", wire, err)
		}
	}
	got, err := wirefunc.Pack(o, map[string]any{})
	if err != nil || !reflect.DeepEqual(got, map[string]any{"a": nil}) {
		t.Fatalf("missing required nullable: got %#v, %v", got, err)
	}
}

func TestPack_Nested(t *testing.T) {
	inner := wirefunc.Object().
		Field("street", wirefunc.String()).Required().
		Field("zip", wirefunc.Nullable(wirefunc.String())).Optional().
		MustBuild()
	o := wirefunc.Object().
		Field("home", inner).Required().
		Field("others", wirefunc.Array(inner)).Optional().
		Field("shape", shapeSchema).Optional().
		MustBuild()
	got, err := wirefunc.Pack(o, map[string]any{
		"home":   map[string]any{"street": "main", "zip": nil},
		"others": []any{wirefunc.Record{"street": "side", "zip": "123"}},
		"shape":  wirefunc.Tagged{Tag: "circle", Value: map[string]any{"radius": 2}},
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := map[string]any{
		"a": map[string]any{"a": "main"},
		"b": []any{map[string]any{"a": "side", "b": "123"}},
		"c": map[string]any{"k": int64(1), "r": 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v\nwant %#v", got, want)
	}
}

func TestPack_ShapeMismatch(t *testing.T) {
	o := wirefunc.Object().Field("home", sendDMParams).Required().MustBuild()
	_, err := wirefunc.Pack(o, map[string]any{"home": "not an object"})
	ve := mustVerificationError(t, err)
	if ve.Path != "/a" || ve.Expected != wirefunc.KindObject {
		t.Fatalf("unexpected error %+v", ve)
	}
}

func TestPack_UnpackRoundTrip(t *testing.T) {
	o := wirefunc.Object().
		Field("name", wirefunc.String()).Required().
		Field("age", wirefunc.Integer()).Optional().
		Field("tags", wirefunc.Array(wirefunc.String())).Optional().
		Field("shape", shapeSchema).Optional().
		MustBuild()
	params := map[string]any{
		"name":  "carol",
		"tags":  []any{"x", "y"},
		"shape": wirefunc.Tagged{Tag: "square", Value: map[string]any{"side": 4.0}},
	}
	packed, err := wirefunc.Pack(o, params)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	back := wirefunc.Unpack(o, packed)
	want := wirefunc.Record{
		"name":  "carol",
		"tags":  []any{"x", "y"},
		"shape": wirefunc.Tagged{Tag: "square", Value: wirefunc.Record{"side": 4.0}},
	}
	if !reflect.DeepEqual(back, want) {
		t.Fatalf("got %#v\nwant %#v", back, want)
	}
}

func TestPack_VerifyAfterWire(t *testing.T) {
	packed, err := wirefunc.Pack(sendDMParams, map[string]any{"name": "alice", "email": "a@x.com"})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	text, _ := wirefunc.EncodeWire(packed)
	got, err := wirefunc.Verify(context.Background(), decode(t, string(text)), sendDMParams)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := wirefunc.Record{"name": "alice", "email": "a@x.com", "homepage": wirefunc.Absent}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
}

type dmParams struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Homepage *string `json:"homepage"`
}

func TestPackStruct(t *testing.T) {
	got, err := wirefunc.PackStruct(sendDMParams, dmParams{Name: "alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("PackStruct: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"a": "alice", "b": "a@x.com"}) {
		t.Fatalf("got %#v", got)
	}
}
