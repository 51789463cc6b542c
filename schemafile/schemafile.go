// Package schemafile loads wire schemas and endpoint declarations from YAML
// documents.
//
// A document has three optional sections:
//
//	protocol:
//	  discriminant: a
//	  payload: b
//	  ok: 1
//	  err: 2
//	types:
//	  Profile:
//	    object:
//	      - {name: name, key: name, type: string, required: true}
//	      - {name: email, key: email, type: "?string", required: true}
//	  Shape:
//	    union:
//	      key: k
//	      branches:
//	        - {discriminant: 1, tag: circle, type: Circle}
//	  Names:
//	    alias: "[string]"
//	endpoints:
//	  getUser:
//	    verb: GET
//	    params:
//	      - {name: id, type: int, required: true}
//	    ok: Profile
//	    err: "[string]"
//
// Type expressions are string, number, int, bool, a declared type name, or
// one of ?T (nullable), [T] (array) and {T} (string-keyed dict).
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/wirefunc"
)

// Document is the YAML layout of a schema file.
type Document struct {
	Protocol  *ProtocolDecl           `yaml:"protocol"`
	Types     map[string]TypeDecl     `yaml:"types"`
	Endpoints map[string]EndpointDecl `yaml:"endpoints"`
}

// ProtocolDecl overrides wirefunc.DefaultProtocol for every endpoint.
type ProtocolDecl struct {
	Discriminant string `yaml:"discriminant"`
	Payload      string `yaml:"payload"`
	Ok           *int64 `yaml:"ok"`
	Err          *int64 `yaml:"err"`
}

// TypeDecl declares a named type. Exactly one of Object, Union and Alias is
// set.
type TypeDecl struct {
	Object []FieldDecl `yaml:"object"`
	Union  *UnionDecl  `yaml:"union"`
	Alias  string      `yaml:"alias"`
}

// FieldDecl declares one object field.
type FieldDecl struct {
	Name     string   `yaml:"name"`
	Key      string   `yaml:"key"`
	ID       *uint64  `yaml:"id"`
	Formerly []string `yaml:"formerly"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
}

// UnionDecl declares a tagged union.
type UnionDecl struct {
	Key      string       `yaml:"key"`
	Payload  string       `yaml:"payload"`
	Branches []BranchDecl `yaml:"branches"`
}

// BranchDecl declares one union branch.
type BranchDecl struct {
	Discriminant int64  `yaml:"discriminant"`
	Tag          string `yaml:"tag"`
	Type         string `yaml:"type"`
}

// EndpointDecl declares an endpoint.
type EndpointDecl struct {
	Verb   string      `yaml:"verb"`
	Params []FieldDecl `yaml:"params"`
	Ok     string      `yaml:"ok"`
	Err    string      `yaml:"err"`
}

// ErrCycle is wrapped by errors for type declarations that refer to
// themselves.
var ErrCycle = errors.New("cyclic type reference")

// Registry holds the resolved types and endpoints of a document.
type Registry struct {
	protocol  wirefunc.Protocol
	types     map[string]wirefunc.Schema
	endpoints map[string]*wirefunc.Endpoint
}

// Protocol returns the result protocol shared by the registry's endpoints.
func (r *Registry) Protocol() wirefunc.Protocol { return r.protocol }

// Type returns the schema of a declared type.
func (r *Registry) Type(name string) (wirefunc.Schema, bool) {
	s, ok := r.types[name]
	return s, ok
}

// Endpoint returns a declared endpoint.
func (r *Registry) Endpoint(name string) (*wirefunc.Endpoint, bool) {
	e, ok := r.endpoints[name]
	return e, ok
}

// TypeNames returns the declared type names in ascending order.
func (r *Registry) TypeNames() []string { return sortedKeys(r.types) }

// EndpointNames returns the declared endpoint names in ascending order.
func (r *Registry) EndpointNames() []string { return sortedKeys(r.endpoints) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads and resolves the schema file at path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and resolves a schema document. Unknown YAML keys are
// rejected.
func Parse(data []byte) (*Registry, error) {
	return Load(bytes.NewReader(data))
}

// Load is Parse over a reader.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return Resolve(doc)
}

// Resolve builds the schemas and endpoints of doc.
func Resolve(doc Document) (*Registry, error) {
	res := &resolver{
		decls:    doc.Types,
		done:     make(map[string]wirefunc.Schema, len(doc.Types)),
		visiting: make(map[string]bool),
	}
	reg := &Registry{
		protocol:  wirefunc.DefaultProtocol,
		types:     res.done,
		endpoints: make(map[string]*wirefunc.Endpoint, len(doc.Endpoints)),
	}
	if p := doc.Protocol; p != nil {
		if p.Discriminant != "" {
			reg.protocol.DiscriminantKey = p.Discriminant
		}
		if p.Payload != "" {
			reg.protocol.PayloadKey = p.Payload
		}
		if p.Ok != nil {
			reg.protocol.OkTag = *p.Ok
		}
		if p.Err != nil {
			reg.protocol.ErrTag = *p.Err
		}
	}
	for _, name := range sortedKeys(doc.Types) {
		if _, err := res.named(name); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(doc.Endpoints) {
		ed := doc.Endpoints[name]
		ep, err := res.endpoint(name, ed, reg.protocol)
		if err != nil {
			return nil, fmt.Errorf("schemafile: endpoint %q: %w", name, err)
		}
		reg.endpoints[name] = ep
	}
	return reg, nil
}

type resolver struct {
	decls    map[string]TypeDecl
	done     map[string]wirefunc.Schema
	visiting map[string]bool
}

func (r *resolver) named(name string) (wirefunc.Schema, error) {
	if s, ok := r.done[name]; ok {
		return s, nil
	}
	decl, ok := r.decls[name]
	if !ok {
		return nil, fmt.Errorf("schemafile: unknown type %q", name)
	}
	if r.visiting[name] {
		return nil, fmt.Errorf("schemafile: type %q: %w", name, ErrCycle)
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	s, err := r.decl(decl)
	if err != nil {
		if errors.Is(err, ErrCycle) {
			return nil, err
		}
		return nil, fmt.Errorf("schemafile: type %q: %w", name, err)
	}
	r.done[name] = s
	return s, nil
}

func (r *resolver) decl(d TypeDecl) (wirefunc.Schema, error) {
	set := 0
	if d.Object != nil {
		set++
	}
	if d.Union != nil {
		set++
	}
	if d.Alias != "" {
		set++
	}
	if set != 1 {
		return nil, errors.New("exactly one of object, union and alias must be set")
	}
	switch {
	case d.Object != nil:
		return r.object(d.Object)
	case d.Union != nil:
		return r.union(d.Union)
	default:
		return r.expr(d.Alias)
	}
}

func (r *resolver) object(fields []FieldDecl) (*wirefunc.ObjectSchema, error) {
	b := wirefunc.Object()
	for _, fd := range fields {
		s, err := r.expr(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		step := b.Field(fd.Name, s)
		if fd.ID != nil {
			step.ID(*fd.ID)
		}
		if fd.Key != "" {
			step.Key(fd.Key)
		}
		if len(fd.Formerly) > 0 {
			step.Formerly(fd.Formerly...)
		}
		if fd.Required {
			step.Required()
		}
	}
	return b.Build()
}

func (r *resolver) union(u *UnionDecl) (*wirefunc.UnionSchema, error) {
	b := wirefunc.Union(u.Key).Payload(u.Payload)
	for _, bd := range u.Branches {
		s, err := r.expr(bd.Type)
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", bd.Tag, err)
		}
		b.Branch(bd.Discriminant, bd.Tag, s)
	}
	return b.Build()
}

// expr resolves a type expression.
func (r *resolver) expr(e string) (wirefunc.Schema, error) {
	e = strings.TrimSpace(e)
	switch {
	case e == "":
		return nil, errors.New("empty type expression")
	case strings.HasPrefix(e, "?"):
		inner, err := r.expr(e[1:])
		if err != nil {
			return nil, err
		}
		return wirefunc.Nullable(inner), nil
	case strings.HasPrefix(e, "["):
		if !strings.HasSuffix(e, "]") {
			return nil, fmt.Errorf("unterminated array type %q", e)
		}
		elem, err := r.expr(e[1 : len(e)-1])
		if err != nil {
			return nil, err
		}
		return wirefunc.Array(elem), nil
	case strings.HasPrefix(e, "{"):
		if !strings.HasSuffix(e, "}") {
			return nil, fmt.Errorf("unterminated dict type %q", e)
		}
		elem, err := r.expr(e[1 : len(e)-1])
		if err != nil {
			return nil, err
		}
		return wirefunc.Dict(elem), nil
	}
	if k, ok := wirefunc.ParseKind(e); ok {
		return wirefunc.Primitive(k), nil
	}
	return r.named(e)
}

func (r *resolver) endpoint(name string, d EndpointDecl, p wirefunc.Protocol) (*wirefunc.Endpoint, error) {
	params, err := r.object(d.Params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	ok, err := r.expr(d.Ok)
	if err != nil {
		return nil, fmt.Errorf("ok: %w", err)
	}
	errSchema, err := r.expr(d.Err)
	if err != nil {
		return nil, fmt.Errorf("err: %w", err)
	}
	verb := d.Verb
	if verb == "" {
		verb = "POST"
	}
	return wirefunc.NewEndpoint(name, verb, params, ok, errSchema, wirefunc.WithProtocol(p))
}
