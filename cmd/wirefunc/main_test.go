package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reoring/wirefunc/schemafile"
)

const apiYAML = `
types:
  User:
    object:
      - {name: userId, key: userId, type: int, required: true}
      - {name: name, key: name, type: string, required: true}
      - {name: email, key: email, type: "?string", required: true}
endpoints:
  getUser:
    verb: get
    params:
      - {name: name, type: string, required: true}
    ok: User
    err: string
  sendDM:
    params:
      - {name: recipient, id: 0, type: int, required: true}
      - {name: text, id: 1, type: string, required: true}
      - {name: silent, id: 27, type: bool}
    ok: "?bool"
    err: "[string]"
`

const stubsYAML = `
getUser:
  ok: {userId: 7, name: ada, email: null}
sendDM:
  err: [blocked]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, stdin string, sub string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(env{stdin: strings.NewReader(stdin), stdout: &out}, sub, args)
	return out.String(), err
}

func TestKey(t *testing.T) {
	out, err := runCmd(t, "", "key", "-id", "27")
	require.NoError(t, err)
	require.Equal(t, "ab\n", out)

	out, err = runCmd(t, "", "key", "-key", "ab")
	require.NoError(t, err)
	require.Equal(t, "27\n", out)

	_, err = runCmd(t, "", "key", "-key", "A")
	require.Error(t, err)
	_, err = runCmd(t, "", "key")
	require.Error(t, err)
}

func TestUnknownSubcommand(t *testing.T) {
	_, err := runCmd(t, "", "compile")
	require.ErrorIs(t, err, errUsage)
}

func TestEndpoints(t *testing.T) {
	schema := writeFile(t, "api.yaml", apiYAML)
	out, err := runCmd(t, "", "endpoints", "-schema", schema)
	require.NoError(t, err)
	require.Equal(t, "GET getUser\nPOST sendDM\n", out)

	_, err = runCmd(t, "", "endpoints")
	require.Error(t, err)
}

func TestPack(t *testing.T) {
	schema := writeFile(t, "api.yaml", apiYAML)
	out, err := runCmd(t, `{"recipient": 42, "text": "hi", "extra": 1}`, "pack", "-schema", schema, "-endpoint", "sendDM")
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 42, "b": "hi"}`, out)

	_, err = runCmd(t, "", "pack", "-schema", schema, "-endpoint", "sendDM", "-params", "[1]")
	require.Error(t, err)
	_, err = runCmd(t, "", "pack", "-schema", schema, "-endpoint", "nope", "-params", "{}")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	schema := writeFile(t, "api.yaml", apiYAML)
	out, err := runCmd(t, `{"userId": 1, "name": "ada", "email": "a@x"}`, "verify", "-schema", schema, "-type", "User")
	require.NoError(t, err)
	require.JSONEq(t, `{"userId": 1, "name": "ada", "email": "a@x"}`, out)

	_, err = runCmd(t, `{"userId": "1", "name": "ada", "email": null}`, "verify", "-schema", schema, "-type", "User")
	require.Error(t, err)
	require.Contains(t, err.Error(), "/userId")

	out, err = runCmd(t, `{"a": 2, "b": ["blocked"]}`, "verify", "-schema", schema, "-endpoint", "sendDM")
	require.ErrorIs(t, err, errErrResult)
	require.JSONEq(t, `{"err": ["blocked"]}`, out)

	_, err = runCmd(t, `{"a": 9}`, "verify", "-schema", schema, "-endpoint", "sendDM")
	require.Error(t, err)
}

func TestJSONSchema(t *testing.T) {
	schema := writeFile(t, "api.yaml", apiYAML)
	out, err := runCmd(t, "", "jsonschema", "-schema", schema, "-endpoint", "sendDM")
	require.NoError(t, err)
	require.Contains(t, out, `"required": [`)
	require.Contains(t, out, `"ab"`)

	out, err = runCmd(t, "", "jsonschema", "-schema", schema, "-endpoint", "getUser", "-part", "result")
	require.NoError(t, err)
	require.Contains(t, out, `"oneOf"`)

	_, err = runCmd(t, "", "jsonschema", "-schema", schema, "-endpoint", "getUser", "-part", "body")
	require.Error(t, err)
}

func TestLoadStubs(t *testing.T) {
	stubs, err := loadStubs([]byte(stubsYAML))
	require.NoError(t, err)
	require.Len(t, stubs, 2)
	require.True(t, stubs["sendDM"].result().IsErr())

	_, err = loadStubs([]byte("getUser: {ok: 1, err: 2}\n"))
	require.Error(t, err)
	_, err = loadStubs([]byte("getUser: {maybe: 1}\n"))
	require.Error(t, err)

	reg, err := schemafile.Parse([]byte(apiYAML))
	require.NoError(t, err)
	_, err = stubServer(reg, map[string]stub{"nope": {}})
	require.Error(t, err)
}

func TestCallAgainstStubServer(t *testing.T) {
	reg, err := schemafile.Parse([]byte(apiYAML))
	require.NoError(t, err)
	stubs, err := loadStubs([]byte(stubsYAML))
	require.NoError(t, err)
	srv, err := stubServer(reg, stubs)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	schema := writeFile(t, "api.yaml", apiYAML)
	conf := writeFile(t, "wirefunc.toml", fmt.Sprintf("[log]\nlevel = \"error\"\n[client]\nbase_url = %q\n", ts.URL))

	out, err := runCmd(t, "", "call", "-config", conf, "-schema", schema, "-endpoint", "getUser", "-params", `{"name": "ada"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": {"userId": 7, "name": "ada", "email": null}}`, out)

	out, err = runCmd(t, "", "call", "-config", conf, "-schema", schema, "-endpoint", "sendDM", "-params", `{"recipient": 1, "text": "hi"}`)
	require.ErrorIs(t, err, errErrResult)
	require.JSONEq(t, `{"err": ["blocked"]}`, out)

	// missing required param is rejected by the server before the handler
	_, err = runCmd(t, "", "call", "-config", conf, "-schema", schema, "-endpoint", "sendDM", "-params", `{"text": "hi"}`)
	require.Error(t, err)
}
