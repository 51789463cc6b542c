package wirefunc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/wirefunc/i18n"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	// Verification
	CodeInvalidType          = "invalid_type"
	CodeRequired             = "required"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	// Result protocol
	CodeUnknownVariant = "unknown_variant"
	// Wire text
	CodeParseError   = "parse_error"
	CodeDuplicateKey = "duplicate_key"
	CodeMaxDepth     = "max_depth"
	CodeTruncated    = "truncated"
	CodeTrailingData = "trailing_data"
	// Schema construction
	CodeDuplicateWireKey      = "duplicate_wire_key"
	CodeDuplicateField        = "duplicate_field"
	CodeDuplicateDiscriminant = "duplicate_discriminant"
	CodeDuplicateTag          = "duplicate_tag"
	CodeInvalidSchema         = "invalid_schema"
	// Transport
	CodeTransport = "transport_error"
)

// VerificationError reports a decoded value that does not match its schema.
// Path is a JSON Pointer over wire keys and array indices from the schema
// root; "/" is the root itself.
type VerificationError struct {
	Path     string
	Code     string
	Expected Kind
	Found    Kind
	// Field is the logical name of a missing field (CodeRequired).
	Field string
	// Discriminant holds the offending tag for CodeDiscriminatorUnknown.
	Discriminant any
	Message      string
}

func (e *VerificationError) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "wirefunc: %s at %s", e.Code, e.Path)
	switch e.Code {
	case CodeRequired:
		fmt.Fprintf(b, ": field %q (%s)", e.Field, e.Expected)
	case CodeDiscriminatorUnknown:
		fmt.Fprintf(b, ": %v", e.Discriminant)
	default:
		if e.Expected != KindInvalid {
			fmt.Fprintf(b, ": expected %s, found %s", e.Expected, e.Found)
		}
	}
	return b.String()
}

func newVerificationError(p PathRef, code string, expected, found Kind) *VerificationError {
	return &VerificationError{
		Path:     p.Pointer(),
		Code:     code,
		Expected: expected,
		Found:    found,
		Message:  i18n.T(code, nil),
	}
}

// ParseError reports raw response text that is not well-formed wire text, or
// that violated a ParseOpt limit.
type ParseError struct {
	Code    string
	Path    string // set for duplicate_key and max_depth
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("wirefunc: %s at %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("wirefunc: %s: %s", e.Code, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ProtocolError reports a result discriminant that is neither the ok nor
// the err tag.
type ProtocolError struct {
	UnknownVariant any
	Message        string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wirefunc: %s: %v", CodeUnknownVariant, e.UnknownVariant)
}

// SchemaError is returned while building a descriptor. It never happens per
// call.
type SchemaError struct {
	Code    string
	Subject string // field name, wire key, tag or discriminant involved
	Message string
}

func (e *SchemaError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("wirefunc: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("wirefunc: %s %q: %s", e.Code, e.Subject, e.Message)
}

func schemaError(code, subject string) *SchemaError {
	return &SchemaError{Code: code, Subject: subject, Message: i18n.T(code, nil)}
}

// TransportError wraps a failure reported by a Transport. Status is the
// transport's status code when it has one (HTTP), zero otherwise.
type TransportError struct {
	Endpoint string
	Status   int
	Cause    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wirefunc: %s %s: status %d: %v", CodeTransport, e.Endpoint, e.Status, e.Cause)
	}
	return fmt.Sprintf("wirefunc: %s %s: %v", CodeTransport, e.Endpoint, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// AsVerificationError extracts a *VerificationError using errors.As.
func AsVerificationError(err error) (*VerificationError, bool) {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsParseError extracts a *ParseError using errors.As.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsProtocolError extracts a *ProtocolError using errors.As.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsTransportError extracts a *TransportError using errors.As.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
