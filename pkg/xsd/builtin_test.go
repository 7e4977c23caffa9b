package xsd

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

func element(t *testing.T, text string) *etree.Element {
	t.Helper()
	el := etree.NewElement("value")
	el.SetText(text)
	return el
}

func read(t *testing.T, local, text string) any {
	t.Helper()
	fn, err := Builtin().Reader(xmlns.Name(xmlns.Schema2001, local), ReaderOptions{IsType: true})
	if err != nil {
		t.Fatalf("Reader(%s): %v", local, err)
	}
	v, err := fn(element(t, text))
	if err != nil {
		t.Fatalf("read %s %q: %v", local, text, err)
	}
	return v
}

func TestReadPrimitives(t *testing.T) {
	cases := []struct {
		local, text string
		want        any
	}{
		{"string", "hello", "hello"},
		{"string", "  padded  ", "padded"},
		{"boolean", "true", true},
		{"boolean", "1", true},
		{"boolean", "0", false},
		{"int", "42", int64(42)},
		{"long", "-7", int64(-7)},
		{"unsignedInt", "7", uint64(7)},
		{"double", "2.5", 2.5},
		{"anyURI", "urn:x", "urn:x"},
	}
	for _, c := range cases {
		got := read(t, c.local, c.text)
		if got != c.want {
			t.Errorf("%s %q = %#v, want %#v", c.local, c.text, got, c.want)
		}
	}
}

func TestReadInfinity(t *testing.T) {
	if got := read(t, "float", "INF"); !math.IsInf(got.(float64), 1) {
		t.Errorf("INF = %#v", got)
	}
	if got := read(t, "double", "-INF"); !math.IsInf(got.(float64), -1) {
		t.Errorf("-INF = %#v", got)
	}
}

func TestReadBinary(t *testing.T) {
	if got := read(t, "base64Binary", "aGk="); !bytes.Equal(got.([]byte), []byte("hi")) {
		t.Errorf("base64Binary = %#v", got)
	}
	if got := read(t, "hexBinary", "6869"); !bytes.Equal(got.([]byte), []byte("hi")) {
		t.Errorf("hexBinary = %#v", got)
	}
}

func TestReadDateTime(t *testing.T) {
	got := read(t, "dateTime", "2024-03-01T10:30:00Z").(time.Time)
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dateTime = %v, want %v", got, want)
	}
	if got := read(t, "date", "2024-03-01").(time.Time); got.Day() != 1 {
		t.Errorf("date = %v", got)
	}
}

func TestReadNilAttribute(t *testing.T) {
	el := etree.NewElement("value")
	el.CreateAttr("xmlns:xsi", xmlns.XSI)
	el.CreateAttr("xsi:nil", "true")
	fn, err := Builtin().Reader(xmlns.Name(xmlns.Schema2001, "int"), ReaderOptions{IsType: true})
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	v, err := fn(el)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != nil {
		t.Errorf("xsi:nil element read as %#v, want nil", v)
	}
}

func TestReadInvalidLexical(t *testing.T) {
	fn, err := Builtin().Reader(xmlns.Name(xmlns.Schema2001, "int"), ReaderOptions{IsType: true})
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if _, err := fn(element(t, "not a number")); err == nil {
		t.Error("expected error for invalid integer text")
	}
}

func TestUnknownType(t *testing.T) {
	_, err := Builtin().Reader(xmlns.Name(xmlns.Schema2001, "noSuchType"), ReaderOptions{IsType: true})
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("error = %v, want ErrUnknownType", err)
	}
	_, err = Builtin().Reader(xmlns.Name("urn:custom", "int"), ReaderOptions{IsType: true})
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("foreign namespace error = %v, want ErrUnknownType", err)
	}
}

func TestNamespaceAcceptance(t *testing.T) {
	for _, space := range []string{xmlns.Schema2001, xmlns.Schema1999, xmlns.SOAPEncoding, ""} {
		if _, err := Builtin().Reader(xmlns.Name(space, "string"), ReaderOptions{IsType: true}); err != nil {
			t.Errorf("namespace %q rejected: %v", space, err)
		}
	}
}

func TestWriterNamesElement(t *testing.T) {
	doc := etree.NewDocument()
	fn, err := Builtin().Writer(xmlns.Name(xmlns.Schema2001, "int"), WriterOptions{IsType: true})
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	el, err := fn(doc, 42)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if el.Tag != "int" || el.Text() != "42" {
		t.Errorf("element = <%s>%s</%s>", el.Tag, el.Text(), el.Tag)
	}

	fn, err = Builtin().Writer(xmlns.Name(xmlns.Schema2001, "int"),
		WriterOptions{IsType: true, ElementName: xmlns.Name("", "Count")})
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	el, err = fn(doc, 7)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if el.Tag != "Count" {
		t.Errorf("named element = %q", el.Tag)
	}
}

func TestLexicalForms(t *testing.T) {
	cases := []struct {
		local string
		value any
		want  string
	}{
		{"string", "x", "x"},
		{"boolean", true, "true"},
		{"int", 42, "42"},
		{"int", int64(-1), "-1"},
		{"double", 2.5, "2.5"},
		{"base64Binary", []byte("hi"), "aGk="},
		{"hexBinary", []byte("hi"), "6869"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"string", nil, ""},
	}
	for _, c := range cases {
		got, err := Lexical(c.local, c.value)
		if err != nil {
			t.Errorf("Lexical(%s, %#v): %v", c.local, c.value, err)
			continue
		}
		if got != c.want {
			t.Errorf("Lexical(%s, %#v) = %q, want %q", c.local, c.value, got, c.want)
		}
	}

	if _, err := Lexical("int", struct{}{}); err == nil {
		t.Error("expected error for unrenderable value")
	}
}
