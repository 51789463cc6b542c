package rpcserver

import (
	"context"

	"github.com/reoring/wirefunc"
)

type ctxKeyParams struct{}

// ContextWithParams attaches verified request params to the context.
func ContextWithParams(ctx context.Context, params wirefunc.Record) context.Context {
	return context.WithValue(ctx, ctxKeyParams{}, params)
}

// ParamsFromContext retrieves params stored by ContextWithParams.
func ParamsFromContext(ctx context.Context) (wirefunc.Record, bool) {
	v, ok := ctx.Value(ctxKeyParams{}).(wirefunc.Record)
	return v, ok
}

// DefaultParseOpt returns a recommended default for request bodies from
// untrusted clients.
// - Duplicate keys are errors
// - Nesting is capped at 64
// - Bodies are capped at 1 MiB
func DefaultParseOpt() wirefunc.ParseOpt {
	opt := wirefunc.StrictParseOpt()
	opt.MaxBytes = 1 << 20
	return opt
}

// ErrorBody is the JSON shape of a rejected request.
type ErrorBody struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ErrorPayload shapes err for a JSON response.
func ErrorPayload(err error) ErrorBody {
	if ve, ok := wirefunc.AsVerificationError(err); ok {
		return ErrorBody{Code: ve.Code, Path: ve.Path, Message: ve.Error()}
	}
	if pe, ok := wirefunc.AsParseError(err); ok {
		return ErrorBody{Code: pe.Code, Path: pe.Path, Message: pe.Error()}
	}
	return ErrorBody{Code: "internal", Message: err.Error()}
}
