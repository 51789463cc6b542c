package wirefunc

import (
	"errors"
	"io"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/reoring/wirefunc/i18n"
	eng "github.com/reoring/wirefunc/internal/engine"
)

// ParseWire decodes one wire document into a decoded value tree:
// map[string]any, []any, string, json.Number, bool and nil. Any failure is
// a *ParseError.
func ParseWire(raw []byte, opts ...ParseOpt) (any, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 && int64(len(raw)) > opt.MaxBytes {
		return nil, &ParseError{
			Code:    CodeTruncated,
			Message: i18n.T(CodeTruncated, nil) + ": " + strconv.Itoa(len(raw)) + " bytes",
		}
	}
	v, err := decodeWire(eng.NewBytes(raw), opt)
	if err != nil {
		return nil, err
	}
	// the token stream does not check separators, so {"a" 1} or [1,] would
	// otherwise decode
	if !json.Valid(raw) {
		return nil, &ParseError{Code: CodeParseError, Message: i18n.T(CodeParseError, nil)}
	}
	return v, nil
}

// ParseWireReader is ParseWire over a stream. The whole document is read
// first; with MaxBytes set at most MaxBytes+1 bytes are read and the limit is
// enforced by ParseWire.
func ParseWireReader(r io.Reader, opts ...ParseOpt) (any, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 {
		r = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Code: CodeParseError, Message: err.Error(), Cause: err}
	}
	return ParseWire(data, opt)
}

func decodeWire(src eng.TokenSource, opt ParseOpt) (any, error) {
	var sink func(eng.SimpleIssue)
	if opt.OnWarning != nil {
		sink = func(si eng.SimpleIssue) { opt.OnWarning(fromEngineIssue(si)) }
	}
	enforced := eng.WrapWithEnforcement(src, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		IssueSink:   sink,
	})
	v, err := eng.DecodeDocument(enforced)
	if err != nil {
		return nil, toParseError(err)
	}
	return v, nil
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func fromEngineIssue(si eng.SimpleIssue) *ParseError {
	return &ParseError{Code: si.Code, Path: si.Path, Message: si.Message}
}

func toParseError(err error) *ParseError {
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return fromEngineIssue(ie.SimpleIssue)
	}
	if errors.Is(err, eng.ErrTrailingData) {
		return &ParseError{Code: CodeTrailingData, Message: i18n.T(CodeTrailingData, nil), Cause: err}
	}
	return &ParseError{Code: CodeParseError, Message: err.Error(), Cause: err}
}

// EncodeWire renders a packed value as wire text.
func EncodeWire(v any) ([]byte, error) { return json.Marshal(v) }

// toWireTree normalizes an arbitrary Go value into the decoded tree shape by
// encoding and decoding it.
func toWireTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeWire(eng.NewBytes(data), ParseOpt{})
}
