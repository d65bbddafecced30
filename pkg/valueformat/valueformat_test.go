package valueformat

import (
	"testing"
	"time"
)

func TestSelect_LangStringByLanguage(t *testing.T) {
	f := Select("", "en")
	if f.Datatype() != RDFLangString {
		t.Fatalf("expected langString for non-empty language, got %s", f.Datatype())
	}
}

func TestSelect_UnknownFallsBackToString(t *testing.T) {
	f := Select("http://example.org/SomeWeirdType", "")
	if f.Datatype() != XSDString {
		t.Fatalf("expected string fallback, got %s", f.Datatype())
	}
}

func TestIntegerFormat_RoundTrip(t *testing.T) {
	f := Select(XSDInteger, "")
	lex, err := f.ToLexical(int64(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex != "42" {
		t.Fatalf("unexpected lexical form: %s", lex)
	}
	v, err := f.FromLexical(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int64) != 42 {
		t.Fatalf("unexpected round-trip value: %v", v)
	}
}

func TestIntegerFormat_RejectsNonInteger(t *testing.T) {
	f := Select(XSDInteger, "")
	if err := f.Check("not a number"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := f.FromLexical("not a number"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestBooleanFormat_RoundTrip(t *testing.T) {
	f := Select(XSDBoolean, "")
	lex, err := f.ToLexical(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := f.FromLexical(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(bool) != true {
		t.Fatalf("unexpected round-trip: %v", v)
	}
}

func TestDateTimeFormat_RoundTrip(t *testing.T) {
	f := Select(XSDDateTime, "")
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	lex, err := f.ToLexical(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := f.FromLexical(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.(time.Time).Equal(now) {
		t.Fatalf("expected %v, got %v", now, v)
	}
}

func TestHexBinaryFormat_RoundTrip(t *testing.T) {
	f := Select(XSDHexBinary, "")
	lex, err := f.ToLexical([]byte("abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := f.FromLexical(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(v.([]byte)) != "abc" {
		t.Fatalf("unexpected round-trip: %v", v)
	}
}

func TestIRIRefFormat_RejectsEmpty(t *testing.T) {
	f := Select(IRIObject, "")
	if err := f.Check(""); err == nil {
		t.Fatal("expected an error for empty IRI")
	}
}
