package wirefunc

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

// Bind converts a verified value into T through go-json. Records bind to
// structs by logical name (json tags), Absent binds as null.
func Bind[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("wirefunc: bind %T: %w", out, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("wirefunc: bind %T: %w", out, err)
	}
	return out, nil
}

// ConvertOutcome binds both sides of an untyped Outcome into T and E. A bind
// failure becomes the Outcome's error.
func ConvertOutcome[T, E any](o Outcome[any, any]) Outcome[T, E] {
	if o.Error != nil {
		return failed[T, E](o.Error)
	}
	if o.Response == nil {
		return failed[T, E](fmt.Errorf("wirefunc: outcome has neither error nor response"))
	}
	if v, ok := o.Response.Ok(); ok {
		t, err := Bind[T](v)
		if err != nil {
			return failed[T, E](err)
		}
		return succeeded(Ok[T, E](t))
	}
	v, _ := o.Response.Err()
	e, err := Bind[E](v)
	if err != nil {
		return failed[T, E](err)
	}
	return succeeded(Err[T, E](e))
}

// TypedEndpoint is an Endpoint with Go types for params (P), the ok payload
// (T) and the err payload (E).
type TypedEndpoint[P, T, E any] struct {
	ep *Endpoint
}

// Typed wraps e with Go types.
func Typed[P, T, E any](e *Endpoint) TypedEndpoint[P, T, E] {
	return TypedEndpoint[P, T, E]{ep: e}
}

// Endpoint returns the underlying untyped endpoint.
func (t TypedEndpoint[P, T, E]) Endpoint() *Endpoint { return t.ep }

// Build packs p, typically a struct tagged with logical names.
func (t TypedEndpoint[P, T, E]) Build(p P) (Request, error) {
	body, err := PackStruct(t.ep.params, p)
	if err != nil {
		return Request{}, err
	}
	return t.ep.request(body)
}

// HandleResponse is Endpoint.HandleResponse followed by ConvertOutcome.
func (t TypedEndpoint[P, T, E]) HandleResponse(ctx context.Context, raw []byte) Outcome[T, E] {
	return ConvertOutcome[T, E](t.ep.HandleResponse(ctx, raw))
}
