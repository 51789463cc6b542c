package wirefunc

import (
	"context"
	"fmt"

	"github.com/reoring/wirefunc/i18n"
)

// Variant identifies which side of a Result is populated.
type Variant int

const (
	VariantOk Variant = iota + 1
	VariantErr
)

func (v Variant) String() string {
	switch v {
	case VariantOk:
		return TagOk
	case VariantErr:
		return TagErr
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Logical tag names of the two result branches.
const (
	TagOk  = "ok"
	TagErr = "err"
)

// Result is either Ok(T) or Err(E). The zero value is neither and reports
// Variant 0; results built by this package always hold one side.
type Result[T, E any] struct {
	variant Variant
	ok      T
	err     E
}

// Ok builds a success result.
func Ok[T, E any](v T) Result[T, E] { return Result[T, E]{variant: VariantOk, ok: v} }

// Err builds a failure result.
func Err[T, E any](e E) Result[T, E] { return Result[T, E]{variant: VariantErr, err: e} }

func (r Result[T, E]) Variant() Variant { return r.variant }
func (r Result[T, E]) IsOk() bool       { return r.variant == VariantOk }
func (r Result[T, E]) IsErr() bool      { return r.variant == VariantErr }

// Ok returns the success payload and whether the result is Ok.
func (r Result[T, E]) Ok() (T, bool) { return r.ok, r.variant == VariantOk }

// Err returns the failure payload and whether the result is Err.
func (r Result[T, E]) Err() (E, bool) { return r.err, r.variant == VariantErr }

// Payload returns whichever side is populated.
func (r Result[T, E]) Payload() any {
	if r.variant == VariantErr {
		return r.err
	}
	return r.ok
}

func (r Result[T, E]) String() string {
	return fmt.Sprintf("%s(%v)", r.variant, r.Payload())
}

// Protocol holds the wire constants of the tagged result convention. They
// must match the server bit for bit.
type Protocol struct {
	DiscriminantKey string
	PayloadKey      string
	OkTag           int64
	ErrTag          int64
}

// DefaultProtocol is {"a": 1|2, "b": payload}.
var DefaultProtocol = Protocol{DiscriminantKey: "a", PayloadKey: "b", OkTag: 1, ErrTag: 2}

// ResultSchema verifies tagged result documents: a two-branch union whose ok
// and err payloads are typed by their own schemas.
type ResultSchema struct {
	protocol Protocol
	union    *UnionSchema
}

// NewResultSchema builds the result union for ok and err under protocol p.
func NewResultSchema(ok, err Schema, p Protocol) (*ResultSchema, error) {
	if ok == nil || err == nil {
		return nil, &SchemaError{Code: CodeInvalidSchema, Message: "result branches must not be nil"}
	}
	u, e := Union(p.DiscriminantKey).
		Payload(p.PayloadKey).
		Branch(p.OkTag, TagOk, ok).
		Branch(p.ErrTag, TagErr, err).
		Build()
	if e != nil {
		return nil, e
	}
	return &ResultSchema{protocol: p, union: u}, nil
}

// MustResultSchema is like NewResultSchema but panics on error.
func MustResultSchema(ok, err Schema, p Protocol) *ResultSchema {
	r, e := NewResultSchema(ok, err, p)
	if e != nil {
		panic(e)
	}
	return r
}

func (r *ResultSchema) Protocol() Protocol  { return r.protocol }
func (r *ResultSchema) Union() *UnionSchema { return r.union }

// OkSchema returns the schema of the success payload.
func (r *ResultSchema) OkSchema() Schema {
	b, _ := r.union.BranchByTag(TagOk)
	return b.Schema
}

// ErrSchema returns the schema of the failure payload.
func (r *ResultSchema) ErrSchema() Schema {
	b, _ := r.union.BranchByTag(TagErr)
	return b.Schema
}

// Classify verifies a decoded top-level value and returns the Result. A
// discriminant that is missing or is anything but OkTag or ErrTag fails with
// *ProtocolError carrying the offending value (int64 for integers, nil when
// missing); every other
// mismatch is a *VerificationError.
func (r *ResultSchema) Classify(ctx context.Context, v any) (Result[any, any], error) {
	if m, ok := v.(map[string]any); ok {
		var variant any = m[r.protocol.DiscriminantKey]
		d, isInt := asInteger(variant)
		if isInt {
			variant = d
		}
		if !isInt || (d != r.protocol.OkTag && d != r.protocol.ErrTag) {
			return Result[any, any]{}, &ProtocolError{UnknownVariant: variant, Message: i18n.T(CodeUnknownVariant, nil)}
		}
	}
	out, err := Verify(ctx, v, r.union)
	if err != nil {
		if ve, ok := AsVerificationError(err); ok && ve.Code == CodeDiscriminatorUnknown && ve.Path == "/" {
			return Result[any, any]{}, &ProtocolError{UnknownVariant: ve.Discriminant, Message: i18n.T(CodeUnknownVariant, nil)}
		}
		return Result[any, any]{}, err
	}
	tg := out.(Tagged)
	if tg.Tag == TagErr {
		return Err[any, any](tg.Value), nil
	}
	return Ok[any, any](tg.Value), nil
}

// Encode is the producing side: it packs the populated payload with its
// branch schema, verifies the packed form, and wraps it with the
// discriminant. Servers use it to answer a call.
func (r *ResultSchema) Encode(ctx context.Context, res Result[any, any]) (map[string]any, error) {
	var tag string
	switch res.Variant() {
	case VariantOk:
		tag = TagOk
	case VariantErr:
		tag = TagErr
	default:
		return nil, fmt.Errorf("wirefunc: cannot encode empty result")
	}
	packed, err := packTagged(Tagged{Tag: tag, Value: res.Payload()}, r.union, RootPath())
	if err != nil {
		return nil, err
	}
	// round trip through the codec so typed Go slices and numbers are
	// checked in exactly the form a client will decode
	wire, err := toWireTree(packed)
	if err != nil {
		return nil, err
	}
	if _, err := Verify(ctx, wire, r.union); err != nil {
		return nil, err
	}
	return wire.(map[string]any), nil
}
