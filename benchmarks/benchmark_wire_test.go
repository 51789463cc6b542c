package benchmarks_test

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/reoring/wirefunc"
)

// ---- Helpers ----

var itemSchema = wirefunc.Object().
	Field("id", wirefunc.String()).Key("id").Required().
	Field("name", wirefunc.String()).Key("name").Required().
	Field("age", wirefunc.Integer()).Key("age").Required().
	Field("active", wirefunc.Bool()).Key("active").Required().
	Field("meta", wirefunc.Dict(wirefunc.Number())).Key("meta").Optional().
	MustBuild()

var listEndpoint = wirefunc.MustEndpoint("listItems", "GET", nil,
	wirefunc.Array(itemSchema), wirefunc.String())

// generateItems returns a JSON array of objects of the form:
// [{"id":"obj_0","name":"n0","age":0,"active":true,"meta":{"score":0},"k0":"v0",...}, ...]
func generateItems(numObjects int, extraFields int) []byte {
	var buf bytes.Buffer
	buf.Grow(numObjects * (64 + extraFields*16))
	buf.WriteByte('[')
	for i := 0; i < numObjects; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		n := strconv.Itoa(i)
		buf.WriteString(`{"id":"obj_` + n + `","name":"n` + n + `","age":` + n + `,"active":true,"meta":{"score":` + n + `}`)
		for k := 0; k < extraFields; k++ {
			ks := strconv.Itoa(k)
			buf.WriteString(`,"k` + ks + `":"v` + ks + `"`)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func okDocument(items []byte) []byte {
	return append(append([]byte(`{"a":1,"b":`), items...), '}')
}

// ---- Benchmarks ----

func BenchmarkParseWire(b *testing.B) {
	for _, n := range []int{10, 1000} {
		data := generateItems(n, 4)
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := wirefunc.ParseWire(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkVerify(b *testing.B) {
	ctx := context.Background()
	s := wirefunc.Array(itemSchema)
	v, err := wirefunc.ParseWire(generateItems(1000, 4))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := wirefunc.Verify(ctx, v, s); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHandleResponse(b *testing.B) {
	ctx := context.Background()
	for _, n := range []int{10, 1000} {
		data := okDocument(generateItems(n, 0))
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if out := listEndpoint.HandleResponse(ctx, data); out.Failed() {
					b.Fatal(out.Error)
				}
			}
		})
	}
}

func BenchmarkPack(b *testing.B) {
	params := map[string]any{"id": "obj_1", "name": "n1", "age": 1, "active": true, "meta": map[string]any{"score": 1.5}}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := wirefunc.Pack(itemSchema, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFieldKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		id := uint64(i)
		if got, _ := wirefunc.ParseFieldKey(wirefunc.FieldKey(id)); got != id {
			b.Fatalf("round trip %d -> %d", id, got)
		}
	}
}
