package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// errErrResult makes the process exit with status 3 after printing an err
// result, so scripts can tell it from a failed call.
var errErrResult = errors.New("call returned err")

type env struct {
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	e := env{stdin: os.Stdin, stdout: os.Stdout}
	err := run(e, os.Args[1], os.Args[2:])
	switch {
	case err == nil:
	case errors.Is(err, errErrResult):
		os.Exit(3)
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		usage()
		os.Exit(2)
	default:
		fatalf("wirefunc %s: %v", os.Args[1], err)
	}
}

var errUsage = errors.New("usage")

func run(e env, sub string, args []string) error {
	switch sub {
	case "key":
		return keyCmd(e, args)
	case "endpoints":
		return endpointsCmd(e, args)
	case "pack":
		return packCmd(e, args)
	case "verify":
		return verifyCmd(e, args)
	case "jsonschema":
		return jsonSchemaCmd(e, args)
	case "call":
		return callCmd(e, args)
	case "serve":
		return serveCmd(e, args)
	}
	return errUsage
}

func usage() {
	fmt.Fprintln(os.Stderr, `wirefunc CLI

Usage:
  wirefunc key -id N | -key K
  wirefunc endpoints [-config f.toml] [-schema api.yaml]
  wirefunc pack -endpoint NAME [-params JSON|-]
  wirefunc verify -type NAME | -endpoint NAME [-data JSON|-]
  wirefunc jsonschema -type NAME | -endpoint NAME [-part params|result]
  wirefunc call -endpoint NAME [-params JSON|-]
  wirefunc serve [-listen :8080] [-stubs stubs.yaml] [-kafka]

Every command except key reads -config (TOML) and -schema (YAML schema file).`)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// readArg returns s, or all of stdin when s is "-".
func readArg(e env, s string) ([]byte, error) {
	if strings.TrimSpace(s) != "-" {
		return []byte(s), nil
	}
	return io.ReadAll(e.stdin)
}
