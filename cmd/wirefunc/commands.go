package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/internal/config"
	"github.com/reoring/wirefunc/schemafile"
)

// common holds the flags shared by the schema-driven commands.
type common struct {
	configPath string
	schemaPath string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&c.schemaPath, "schema", "", "YAML schema file (overrides schema.file)")
}

func (c *common) load() (config.Config, *schemafile.Registry, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return cfg, nil, err
		}
	}
	if c.schemaPath != "" {
		cfg.Schema.File = c.schemaPath
	}
	if cfg.Schema.File == "" {
		return cfg, nil, fmt.Errorf("no schema file: pass -schema or set schema.file")
	}
	reg, err := schemafile.LoadFile(cfg.Schema.File)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, reg, nil
}

func endpoint(reg *schemafile.Registry, name string) (*wirefunc.Endpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("-endpoint is required")
	}
	ep, ok := reg.Endpoint(name)
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", name)
	}
	return ep, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func keyCmd(e env, args []string) error {
	fs := newFlagSet("key")
	id := fs.String("id", "", "field id to encode")
	key := fs.String("key", "", "packed key to decode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch {
	case *id != "" && *key == "":
		n, err := strconv.ParseUint(*id, 10, 64)
		if err != nil {
			return fmt.Errorf("-id: %w", err)
		}
		_, err = fmt.Fprintln(e.stdout, wirefunc.FieldKey(n))
		return err
	case *key != "" && *id == "":
		n, err := wirefunc.ParseFieldKey(*key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.stdout, n)
		return err
	}
	return fmt.Errorf("exactly one of -id and -key is required")
}

func endpointsCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("endpoints")
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, reg, err := c.load()
	if err != nil {
		return err
	}
	for _, name := range reg.EndpointNames() {
		ep, _ := reg.Endpoint(name)
		if _, err := fmt.Fprintln(e.stdout, ep.String()); err != nil {
			return err
		}
	}
	return nil
}

func packCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("pack")
	c.register(fs)
	name := fs.String("endpoint", "", "endpoint whose params to pack")
	params := fs.String("params", "-", "logical params as JSON, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, reg, err := c.load()
	if err != nil {
		return err
	}
	ep, err := endpoint(reg, *name)
	if err != nil {
		return err
	}
	p, err := readParams(e, *params, cfg.Parse.Opt())
	if err != nil {
		return err
	}
	req, err := ep.Build(p)
	if err != nil {
		return err
	}
	out, err := req.Encode()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\n", out)
	return err
}

func verifyCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("verify")
	c.register(fs)
	typ := fs.String("type", "", "named type to verify against")
	name := fs.String("endpoint", "", "endpoint whose result document to verify")
	data := fs.String("data", "-", "wire text, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, reg, err := c.load()
	if err != nil {
		return err
	}
	raw, err := readArg(e, *data)
	if err != nil {
		return err
	}
	ctx := context.Background()
	switch {
	case *typ != "" && *name == "":
		s, ok := reg.Type(*typ)
		if !ok {
			return fmt.Errorf("unknown type %q", *typ)
		}
		v, err := wirefunc.ParseWire(raw, cfg.Parse.Opt())
		if err != nil {
			return err
		}
		out, err := wirefunc.Verify(ctx, v, s)
		if err != nil {
			return err
		}
		return printJSON(e.stdout, out)
	case *name != "" && *typ == "":
		ep, err := endpoint(reg, *name)
		if err != nil {
			return err
		}
		return printOutcome(e.stdout, ep.HandleResponse(ctx, raw))
	}
	return fmt.Errorf("exactly one of -type and -endpoint is required")
}

func jsonSchemaCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("jsonschema")
	c.register(fs)
	typ := fs.String("type", "", "named type to export")
	name := fs.String("endpoint", "", "endpoint to export")
	part := fs.String("part", "params", "endpoint part: params or result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, reg, err := c.load()
	if err != nil {
		return err
	}
	var s wirefunc.Schema
	switch {
	case *typ != "" && *name == "":
		var ok bool
		if s, ok = reg.Type(*typ); !ok {
			return fmt.Errorf("unknown type %q", *typ)
		}
	case *name != "" && *typ == "":
		ep, err := endpoint(reg, *name)
		if err != nil {
			return err
		}
		switch *part {
		case "params":
			s = ep.Params()
		case "result":
			s = ep.Result().Union()
		default:
			return fmt.Errorf("-part %q: want params or result", *part)
		}
	default:
		return fmt.Errorf("exactly one of -type and -endpoint is required")
	}
	js, err := wirefunc.JSONSchema(s)
	if err != nil {
		return err
	}
	return printJSON(e.stdout, js)
}

func readParams(e env, arg string, opt wirefunc.ParseOpt) (map[string]any, error) {
	raw, err := readArg(e, arg)
	if err != nil {
		return nil, err
	}
	v, err := wirefunc.ParseWire(raw, opt)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params must be a JSON object, got %s", wirefunc.KindOf(v))
	}
	return m, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// printOutcome writes {"ok": ...} or {"err": ...}. A failed outcome is
// returned as the error; an err result yields errErrResult after printing.
func printOutcome(w io.Writer, out wirefunc.Outcome[any, any]) error {
	if out.Failed() {
		return out.Error
	}
	res := out.Response
	if err := printJSON(w, map[string]any{res.Variant().String(): res.Payload()}); err != nil {
		return err
	}
	if res.IsErr() {
		return errErrResult
	}
	return nil
}
