package output

import (
	"bytes"
	"strings"
	"testing"
)

type records []map[string]any

func (r records) Table() *Table {
	t := NewTable("KEY", "VALUE")
	for _, rec := range r {
		t.AddRow(rec["key"].(string), Compact(rec["value"]))
	}
	return t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTableFormatter_Tabler(t *testing.T) {
	var buf bytes.Buffer
	data := records{
		{"key": "doors", "value": []any{"a"}},
		{"key": "favorites", "value": nil},
	}

	if err := NewFormatter(FormatTable, false).Format(&buf, data); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "KEY") || !strings.Contains(lines[1], `["a"]`) || !strings.Contains(lines[2], "-") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestTableFormatter_Truncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	tbl := NewTable("VALUE")
	tbl.AddRow(long)

	var narrow, wide bytes.Buffer
	(&TableFormatter{}).Format(&narrow, tbl)
	(&TableFormatter{Wide: true}).Format(&wide, tbl)

	if strings.Contains(narrow.String(), long) || !strings.Contains(narrow.String(), "...") {
		t.Errorf("narrow table should truncate: %q", narrow.String())
	}
	if !strings.Contains(wide.String(), long) {
		t.Error("wide table should keep the full cell")
	}
	if tbl.Rows[0][0] != long {
		t.Error("truncation must not modify the source table")
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	tbl := NewTable("KEY")
	tbl.AddRow("doors")

	var buf bytes.Buffer
	(&TableFormatter{NoHeaders: true}).Format(&buf, tbl)
	if strings.TrimSpace(buf.String()) != "doors" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableFormatter_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{}).Format(&buf, map[string]any{"ok": true})
	if !strings.Contains(buf.String(), `"ok": true`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	type result struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}

	var buf bytes.Buffer
	err := NewFormatter(FormatYAML, false).Format(&buf, result{Key: "doors", Value: []any{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}

	want := "key: doors\nvalue:\n  - a\n  - b\n"
	if buf.String() != want {
		t.Errorf("yaml = %q, want %q", buf.String(), want)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON, false).Format(&buf, []any{"a"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[\n  \"a\"\n]\n" {
		t.Errorf("json = %q", buf.String())
	}
}

func TestCompact(t *testing.T) {
	if got := Compact(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Errorf("Compact() = %q", got)
	}
	if got := Compact(nil); got != "-" {
		t.Errorf("Compact(nil) = %q", got)
	}
}
