package output

import (
	"strings"
	"testing"
)

type row struct {
	Name    string `json:"name" yaml:"name"`
	Value   int    `json:"value" yaml:"value"`
	Skipped string `json:"-" yaml:"-"`
	hidden  string
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", "*output.JSONFormatter"},
		{"YAML", "*output.YAMLFormatter"},
		{"table", "*output.TableFormatter"},
		{"bogus", "*output.TableFormatter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := typeName(NewFormatter(tt.format))
			if got != tt.want {
				t.Errorf("NewFormatter(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *JSONFormatter:
		return "*output.JSONFormatter"
	case *YAMLFormatter:
		return "*output.YAMLFormatter"
	case *TableFormatter:
		return "*output.TableFormatter"
	}
	return "unknown"
}

func TestSupported(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml", "JSON"} {
		if !Supported(f) {
			t.Errorf("Supported(%q) = false", f)
		}
	}
	if Supported("xml") {
		t.Error("Supported(xml) = true")
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	out := (&TableFormatter{}).Format([]row{{Name: "a", Value: 1, Skipped: "x"}, {Name: "bb", Value: 22}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if fields := strings.Fields(lines[0]); len(fields) != 2 || fields[0] != "NAME" || fields[1] != "VALUE" {
		t.Errorf("header = %q", lines[0])
	}
	if fields := strings.Fields(lines[2]); fields[0] != "bb" || fields[1] != "22" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	out := (&TableFormatter{}).Format(&row{Name: "a", Value: 1})
	if !strings.Contains(out, "name:") || !strings.Contains(out, "value:") {
		t.Errorf("Format() = %q", out)
	}
	if strings.Contains(out, "Skipped") || strings.Contains(out, "hidden") {
		t.Errorf("Format() leaked hidden fields: %q", out)
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	if out := (&TableFormatter{}).Format([]row{}); out != "No results.\n" {
		t.Errorf("Format() = %q", out)
	}
}

func TestJSONAndYAML(t *testing.T) {
	r := row{Name: "a", Value: 1}
	if out := (&JSONFormatter{}).Format(r); !strings.Contains(out, `"name": "a"`) {
		t.Errorf("JSON = %q", out)
	}
	if out := (&YAMLFormatter{}).Format(r); out != "name: a\nvalue: 1\n" {
		t.Errorf("YAML = %q", out)
	}
}
