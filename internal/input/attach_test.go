package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		spec     string
		path     string
		from, to int
		ranged   bool
		wantErr  bool
	}{
		{spec: "main.go", path: "main.go"},
		{spec: "main.go:11-22", path: "main.go", from: 11, to: 22, ranged: true},
		{spec: "main.go:11-", path: "main.go", from: 11, ranged: true},
		{spec: "main.go:-22", path: "main.go", to: 22, ranged: true},
		{spec: "dir/*.go", path: "dir/*.go"},
		{spec: "main.go:22-11", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			rs, err := parseRange(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rs.path != tt.path || rs.from != tt.from || rs.to != tt.to || rs.ranged != tt.ranged {
				t.Errorf("parseRange(%q) = %+v", tt.spec, rs)
			}
		})
	}
}

func TestSliceLines(t *testing.T) {
	content := "one\ntwo\nthree\nfour"
	tests := []struct {
		from, to int
		want     string
	}{
		{0, 0, content},
		{2, 3, "two\nthree"},
		{3, 0, "three\nfour"},
		{0, 1, "one"},
		{9, 0, ""},
		{3, 2, ""},
	}
	for _, tt := range tests {
		if got := sliceLines(content, tt.from, tt.to); got != tt.want {
			t.Errorf("sliceLines(%d, %d) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestReadAttachments(t *testing.T) {
	dir := t.TempDir()
	goFile := filepath.Join(dir, "main.go")
	if err := os.WriteFile(goFile, []byte("package main\n\nfunc main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0755); err != nil {
		t.Fatal(err)
	}

	atts, err := ReadAttachments([]string{filepath.Join(dir, "*.go"), goFile + ":3-3", filepath.Join(dir, "*.none")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("expected 2 attachments, got %d: %+v", len(atts), atts)
	}
	if atts[0].Path != goFile || atts[0].Language != "go" {
		t.Errorf("unexpected first attachment: %+v", atts[0])
	}
	if atts[1].Content != "func main() {}" || atts[1].Path != goFile+":3-3" {
		t.Errorf("unexpected ranged attachment: %+v", atts[1])
	}

	if _, err := ReadAttachments([]string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildMessage(t *testing.T) {
	if got := BuildMessage("hi", nil, ""); got != "hi" {
		t.Errorf("expected message unchanged, got %q", got)
	}

	got := BuildMessage("explain", []Attachment{{Path: "a.go", Language: "go", Content: "package a"}}, "piped\n")
	want := "explain\n\nFile: a.go\n```go\npackage a\n```\n\nInput:\n```\npiped\n```"
	if got != want {
		t.Errorf("unexpected message:\n%s\nwant:\n%s", got, want)
	}

	nested := BuildMessage("", []Attachment{{Path: "x.md", Content: "```go\nx\n```"}}, "")
	if !strings.HasPrefix(nested, "File: x.md\n````\n") || !strings.HasSuffix(nested, "\n````") {
		t.Errorf("expected a longer fence around nested fences, got %q", nested)
	}
}

func TestExpandGlobRecursive(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.go", "sub/b.go", "sub/deep/c.go", "sub/notes.txt"} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("package x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := expandGlob(filepath.Join(dir, "sub", "**", "*.go"))
	if err != nil {
		t.Fatalf("expandGlob: %v", err)
	}
	want := []string{
		filepath.Join(dir, "sub", "b.go"),
		filepath.Join(dir, "sub", "deep", "c.go"),
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expandGlob = %v, want %v", got, want)
	}

	none, err := expandGlob(filepath.Join(dir, "missing", "**", "*.go"))
	if err != nil || len(none) != 0 {
		t.Errorf("expected no matches under a missing dir, got %v %v", none, err)
	}
}
