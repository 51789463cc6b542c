package engine

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"testing"
)

type sliceSource struct {
	toks []Token
	i    int
}

func (s *sliceSource) NextToken() (Token, error) {
	if s.i >= len(s.toks) {
		return Token{}, io.EOF
	}
	t := s.toks[s.i]
	s.i++
	return t, nil
}

func TestGoJSONSource_KeysAndValues(t *testing.T) {
	src := NewBytes([]byte(`{"k":"v","n":[1,{"x":"y"}],"z":null}`))
	var kinds []Kind
	for {
		tok, err := src.NextToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{
		KindBeginObject,
		KindKey, KindString,
		KindKey, KindBeginArray, KindNumber, KindBeginObject, KindKey, KindString, KindEndObject, KindEndArray,
		KindKey, KindNull,
		KindEndObject,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds %v\nwant  %v", kinds, want)
	}
}

func TestDecodeDocument(t *testing.T) {
	v, err := DecodeDocument(NewBytes([]byte(`{"a":[1.5,"s",false]}`)))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	want := map[string]any{"a": []any{json.Number("1.5"), "s", false}}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v", v)
	}
}

func TestDecodeDocument_TruncatedAndTrailing(t *testing.T) {
	trunc := &sliceSource{toks: []Token{{Kind: KindBeginArray}, {Kind: KindNumber, Number: "1"}}}
	if _, err := DecodeDocument(trunc); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	if _, err := DecodeDocument(&sliceSource{}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF for empty input, got %v", err)
	}
	trailing := &sliceSource{toks: []Token{{Kind: KindNull}, {Kind: KindBool, Bool: true}}}
	if _, err := DecodeDocument(trailing); !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
}

func TestEnforcement_Duplicate(t *testing.T) {
	var got []SimpleIssue
	src := WrapWithEnforcement(NewBytes([]byte(`{"a":{"b":1,"b":2}}`)), EnforceOptions{
		OnDuplicate: DupWarn,
		IssueSink:   func(si SimpleIssue) { got = append(got, si) },
	})
	if _, err := DecodeDocument(src); err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(got) != 1 || got[0].Code != "duplicate_key" || got[0].Path != "/a/b" {
		t.Fatalf("issues %+v", got)
	}

	src = WrapWithEnforcement(NewBytes([]byte(`{"a":1,"a":2}`)), EnforceOptions{OnDuplicate: DupError})
	_, err := DecodeDocument(src)
	var ie IssueError
	if !errors.As(err, &ie) || ie.Code != "duplicate_key" {
		t.Fatalf("expected duplicate_key, got %v", err)
	}
}

func TestEnforcement_MaxDepth(t *testing.T) {
	src := WrapWithEnforcement(NewBytes([]byte(`{"a":[{"b":[]}]}`)), EnforceOptions{MaxDepth: 3})
	_, err := DecodeDocument(src)
	var ie IssueError
	if !errors.As(err, &ie) || ie.Code != "max_depth" || ie.Path != "/a/0/b" {
		t.Fatalf("expected max_depth at /a/0/b, got %v", err)
	}
	src = WrapWithEnforcement(NewBytes([]byte(`{"a":[{"b":1}]}`)), EnforceOptions{MaxDepth: 3})
	if _, err := DecodeDocument(src); err != nil {
		t.Fatalf("depth 3 should pass: %v", err)
	}
}

func TestWrapWithEnforcement_NoopReturnsInner(t *testing.T) {
	inner := &sliceSource{}
	if WrapWithEnforcement(inner, EnforceOptions{}) != TokenSource(inner) {
		t.Fatalf("expected the inner source back")
	}
}
