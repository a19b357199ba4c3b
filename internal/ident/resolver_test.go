package ident

import "testing"

func TestResolveBareName(t *testing.T) {
	p := Resolve("t", DefaultDefaults())
	if got := p.String(); got != "clarium/public/t" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveSchemaQualified(t *testing.T) {
	p := Resolve("s.t", DefaultDefaults())
	if got := p.String(); got != "clarium/s/t" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveFullyQualified(t *testing.T) {
	p := Resolve("d.s.t", DefaultDefaults())
	if got := p.String(); got != "d/s/t" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveTimeSuffix(t *testing.T) {
	p := Resolve("db1.time", DefaultDefaults())
	if !p.IsTime || p.Table != "db1" {
		t.Fatalf("got table=%q isTime=%v", p.Table, p.IsTime)
	}
	if got := p.String(); got != "clarium/public/db1.time" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveQuotedDotsLiteral(t *testing.T) {
	p := Resolve(`"a.b"`, DefaultDefaults())
	if p.Table != "a.b" {
		t.Fatalf("expected literal dot preserved, got %q", p.Table)
	}
}

func TestCanonicalKeyFloatTrim(t *testing.T) {
	got := CanonicalKey([]string{"a", "b"}, []any{float64(1.50), "north"})
	want := "a=1.5,b=north"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCanonicalKeyNull(t *testing.T) {
	got := CanonicalKey([]string{"a"}, []any{nil})
	if got != "a=<null>" {
		t.Fatalf("got %q", got)
	}
}
