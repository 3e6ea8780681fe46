package normalize

import (
	"strings"
	"testing"
)

func drain(rows <-chan Row) []Row {
	var out []Row
	for r := range rows {
		out = append(out, r)
	}
	return out
}

func TestDelimited_SimpleCSV(t *testing.T) {
	header, rows := Delimited(strings.NewReader("a,b,c\n1,2,3\n4,5,6\n"), ',')
	if len(header) != 3 {
		t.Fatalf("expected 3 header fields, got %v", header)
	}
	got := drain(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("expected monotone row indices, got %+v", got)
	}
	if got[0].Fields[0] != "1" {
		t.Errorf("unexpected first field: %v", got[0].Fields)
	}
}

func TestDelimited_QuotedFieldWithEmbeddedDelimiterAndNewline(t *testing.T) {
	header, rows := Delimited(strings.NewReader("a,b\n\"x,y\nz\",2\n"), ',')
	_ = header
	got := drain(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Fields[0] != "x,y\nz" {
		t.Errorf("expected embedded delimiter/newline preserved, got %q", got[0].Fields[0])
	}
}

func TestDelimited_MismatchedColumnCountIsMalformedNotAbort(t *testing.T) {
	header, rows := Delimited(strings.NewReader("a,b,c\n1,2\n4,5,6\n"), ',')
	_ = header
	got := drain(rows)
	if len(got) != 2 {
		t.Fatalf("expected stream to continue past malformed row, got %d rows", len(got))
	}
	if len(got[0].Fields) != 1 || got[0].Fields[0] != MalformedRowField {
		t.Errorf("expected malformed row sentinel, got %+v", got[0])
	}
	if got[1].Fields[0] != "4" {
		t.Errorf("expected stream to continue after malformed row, got %+v", got[1])
	}
}

func TestDelimited_TSV(t *testing.T) {
	header, rows := Delimited(strings.NewReader("a\tb\n1\t2\n"), '\t')
	if len(header) != 2 {
		t.Fatalf("expected 2 header fields, got %v", header)
	}
	got := drain(rows)
	if len(got) != 1 || got[0].Fields[1] != "2" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestDelimited_NoFinalNewlineStillEmitsLastRow(t *testing.T) {
	header, rows := Delimited(strings.NewReader("a,b\n1,2"), ',')
	_ = header
	got := drain(rows)
	if len(got) != 1 {
		t.Fatalf("expected final row without trailing newline to be emitted, got %d", len(got))
	}
}

func TestJSON_ArrayOfObjects_SortedUnionHeader(t *testing.T) {
	header, rows, err := JSON([]byte(`[{"b":1,"a":{"x":1}},{"a":{"y":2}}]`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := []string{"a.x", "a.y", "b"}
	if len(header) != len(want) {
		t.Fatalf("expected header %v, got %v", want, header)
	}
	for i, w := range want {
		if header[i] != w {
			t.Errorf("header[%d] = %q, want %q", i, header[i], w)
		}
	}
	got := drain(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Fields[2] != "1" {
		t.Errorf("expected b=1 in first row, got %+v", got[0])
	}
	if got[0].Fields[0] != "1" || got[0].Fields[1] != "" {
		t.Errorf("expected missing keys to be empty, got %+v", got[0])
	}
}

func TestJSON_ArrayOfArrays(t *testing.T) {
	_, rows, err := JSON([]byte(`[[1,2],[3,4,5]]`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	got := drain(rows)
	if len(got) != 2 || len(got[1].Fields) != 3 {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestJSON_ArrayOfPrimitives(t *testing.T) {
	_, rows, err := JSON([]byte(`["a","b","c"]`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	got := drain(rows)
	if len(got) != 3 || got[1].Fields[0] != "b" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestJSON_SingleObject(t *testing.T) {
	_, rows, err := JSON([]byte(`{"a":1,"b":null}`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	got := drain(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
}

func TestJSON_NestedArrayRenderedInline(t *testing.T) {
	_, rows, err := JSON([]byte(`[{"tags":[1,2,3]}]`))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	got := drain(rows)
	if got[0].Fields[0] != "[1, 2, 3]" {
		t.Errorf("expected inline array rendering, got %q", got[0].Fields[0])
	}
}

func TestXML_EmitsTagTextPairsSkippingEmptyAndDirectives(t *testing.T) {
	rows := XML(strings.NewReader(`<?xml version="1.0"?><root><row><name>Alice</name><age>30</age></row><row><name>  </name></row></root>`))
	got := drain(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 non-empty text events, got %d: %+v", len(got), got)
	}
	if got[0].Fields[0] != "name" || got[0].Fields[1] != "Alice" {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].Fields[0] != "age" || got[1].Fields[1] != "30" {
		t.Errorf("unexpected second event: %+v", got[1])
	}
}
