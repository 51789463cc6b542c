// Package wirefunc provides:
//
// - Immutable schema descriptors for RPC payloads (primitive, nullable, array,
//   dict, object with packed wire keys, integer-tagged union)
// - A verifier that walks decoded wire values against a descriptor and
//   reports failures with a JSON Pointer path
// - Packing of logical field names into short wire keys ("a", "b", ... "aa")
// - The tagged result protocol ({"a":1,"b":...} for ok, {"a":2,...} for err)
// - Endpoints that build transport-agnostic requests and turn raw response
//   text into an Outcome holding either an error or a Result
//
// Design policy:
// - Keep only public APIs in the root package; the token reader and
//   enforcement live under internal/.
// - Transports (HTTP, Kafka, tracing) live under transport/, the gin server
//   under rpcserver/, YAML schema documents under schemafile/, the CLI under
//   cmd/wirefunc.
// - Everything that crosses the wire boundary is returned as a value; an
//   Outcome never carries both an error and a response.
//
// Typical usage:
//
//	profile := wirefunc.Object().
//		Field("name", wirefunc.String()).Key("name").Required().
//		Field("email", wirefunc.Nullable(wirefunc.String())).Key("email").Required().
//		MustBuild()
//
//	ep := wirefunc.MustEndpoint("sendDM", "POST", params, profile, wirefunc.Array(wirefunc.String()))
//	out := wirefunc.NewClient(transport).Call(ctx, ep, map[string]any{"name": "alice"})
//	if out.Error != nil {
//		// parse, verification, protocol or transport failure
//	}
//	if v, ok := out.Response.Ok(); ok {
//		_ = v // wirefunc.Record keyed by logical names
//	}
package wirefunc
