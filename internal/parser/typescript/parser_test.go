package typescript

import (
	"testing"

	"github.com/imyousuf/codescribe/internal/model"
)

const sample = `interface Reader {
  read(): string;
}

type Row = Record<string, string>;

enum Level {
  Low,
  High,
}

export class FileReader implements Reader {
  read(): string {
    return decode(this.raw);
  }
}

export function decode(raw: string): string {
  return raw.trim();
}

const parse = (input: string) => decode(input);
`

func TestParseTypeScript(t *testing.T) {
	res, err := NewParser().ParseFile("/repo/src/io/reader.ts", "src/io/reader.ts", []byte(sample))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	byID := map[string]*model.Component{}
	for _, c := range res.Components {
		byID[c.ID] = c
	}

	tests := []struct {
		id   string
		kind model.Kind
	}{
		{"src.io.reader.Reader", model.KindInterface},
		{"src.io.reader.Row", model.KindTypeAlias},
		{"src.io.reader.Level", model.KindEnum},
		{"src.io.reader.FileReader", model.KindClass},
		{"src.io.reader.FileReader.read", model.KindMethod},
		{"src.io.reader.decode", model.KindFunction},
		{"src.io.reader.parse", model.KindFunction},
	}
	for _, tt := range tests {
		c, ok := byID[tt.id]
		if !ok {
			t.Errorf("missing component %s", tt.id)
			continue
		}
		if c.Kind != tt.kind {
			t.Errorf("%s kind = %s, want %s", tt.id, c.Kind, tt.kind)
		}
	}

	edges := map[[2]string]model.EdgeKind{}
	for _, e := range res.Edges {
		edges[[2]string{e.Caller, e.Callee}] = e.Kind
	}
	want := map[[2]string]model.EdgeKind{
		{"src.io.reader.FileReader", "Reader"}:       model.EdgeImplements,
		{"src.io.reader.FileReader.read", "decode"}:  model.EdgeCalls,
		{"src.io.reader.parse", "decode"}:            model.EdgeCalls,
	}
	for key, kind := range want {
		if edges[key] != kind {
			t.Errorf("edge %v = %q, want %q", key, edges[key], kind)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Repository<User>", "Repository"},
		{"Base", "Base"},
		{"mixin(Base)", ""},
	}
	for _, tt := range tests {
		if got := baseName(tt.in); got != tt.want {
			t.Errorf("baseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
