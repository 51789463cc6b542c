package wirefunc_test

import (
	"testing"

	"github.com/reoring/wirefunc"
)

func TestFieldKey_KnownValues(t *testing.T) {
	cases := []struct {
		id  uint64
		key string
	}{
		{0, "a"},
		{1, "b"},
		{25, "z"},
		{26, "aa"},
		{27, "ab"},
		{51, "az"},
		{52, "ba"},
		{701, "zz"},
		{702, "aaa"},
	}
	for _, c := range cases {
		if got := wirefunc.FieldKey(c.id); got != c.key {
			t.Fatalf("FieldKey(%d)=%q want %q", c.id, got, c.key)
		}
		id, err := wirefunc.ParseFieldKey(c.key)
		if err != nil {
			t.Fatalf("ParseFieldKey(%q): %v", c.key, err)
		}
		if id != c.id {
			t.Fatalf("ParseFieldKey(%q)=%d want %d", c.key, id, c.id)
		}
	}
}

func TestFieldKey_RoundTripRange(t *testing.T) {
	for id := uint64(0); id < 20000; id++ {
		got, err := wirefunc.ParseFieldKey(wirefunc.FieldKey(id))
		if err != nil || got != id {
			t.Fatalf("round trip of %d gave %d, %v", id, got, err)
		}
	}
	max := ^uint64(0)
	got, err := wirefunc.ParseFieldKey(wirefunc.FieldKey(max))
	if err != nil || got != max {
		t.Fatalf("round trip of max uint64 gave %d, %v", got, err)
	}
	if key := wirefunc.FieldKey(max); key != "gkgwbylwrxtlpp" {
		t.Fatalf("FieldKey(max)=%q", key)
	}
}

func TestParseFieldKey_Rejects(t *testing.T) {
	for _, in := range []string{"", "A", "a1", "ab_", "é", "zzzzzzzzzzzzzzzzzzzz", "gkgwbylwrxtlpq", "aaaaaaaaaaaaaaa"} {
		if _, err := wirefunc.ParseFieldKey(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
