package streaming

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		mode      Mode
		construct Construct
		lang      string
	}{
		{"fence with lang", "```go", ModeNormal, StartCodeFence, "go"},
		{"bare fence", "```", ModeNormal, StartCodeFence, DefaultLanguage},
		{"padded fence", "  ```  python  ", ModeNormal, StartCodeFence, "python"},
		{"long fence", "````", ModeNormal, StartCodeFence, DefaultLanguage},
		{"table row", "| a | b |", ModeNormal, StartTable, ""},
		{"indented table row", "   |a|b|   ", ModeNormal, StartTable, ""},
		{"no interior pipe", "| a |", ModeNormal, Ordinary, ""},
		{"pipes inside prose", "a | b", ModeNormal, Ordinary, ""},
		{"blank", "", ModeNormal, Ordinary, ""},
		{"two backticks", "``", ModeNormal, Ordinary, ""},
		{"row continues table", "| 1 | 2 |", ModeBufferingTable, ContinueTable, ""},
		{"prose ends table", "text", ModeBufferingTable, EndTable, ""},
		{"blank ends table", "", ModeBufferingTable, EndTable, ""},
		{"fence ends table", "```go", ModeBufferingTable, EndTable, ""},
		{"closing fence", "```", ModeBufferingCodeBlock, EndCodeFence, ""},
		{"padded closing fence", "  ````  ", ModeBufferingCodeBlock, EndCodeFence, ""},
		{"fence with text continues", "```go", ModeBufferingCodeBlock, ContinueCodeFence, ""},
		{"table row inside code", "| a | b |", ModeBufferingCodeBlock, ContinueCodeFence, ""},
		{"short fence inside code", "``", ModeBufferingCodeBlock, ContinueCodeFence, ""},
		{"blank inside code", "", ModeBufferingCodeBlock, ContinueCodeFence, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			construct, lang := Classify(tt.line, tt.mode)
			if construct != tt.construct || lang != tt.lang {
				t.Fatalf("Classify(%q, %v) = %v, %q; want %v, %q",
					tt.line, tt.mode, construct, lang, tt.construct, tt.lang)
			}
		})
	}
}

func TestIsSeparatorRow(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"|---|---|", true},
		{"| :--- | ---: |", true},
		{"|:-:|:-:|", true},
		{"  |----|----|  ", true},
		{"| --- | abc |", false},
		{"| : | - |", false},
		{"| a | b |", false},
		{"---|---", false},
	}

	for _, tt := range tests {
		if got := isSeparatorRow(tt.line); got != tt.want {
			t.Errorf("isSeparatorRow(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want [][]string
		ok   bool
	}{
		{
			name: "single row",
			rows: []string{"| a | b |"},
		},
		{
			name: "header and separator",
			rows: []string{"| a | b |", "|---|---|"},
			want: [][]string{{"a", "b"}},
			ok:   true,
		},
		{
			name: "only separators",
			rows: []string{"|---|---|", "|---|---|"},
		},
		{
			name: "cells trimmed",
			rows: []string{"|  Name  |Age|", "|:--|--:|", "| Ann |  31 |"},
			want: [][]string{{"Name", "Age"}, {"Ann", "31"}},
			ok:   true,
		},
		{
			name: "empty cells kept",
			rows: []string{"| a | | c |", "| 1 | 2 | |"},
			want: [][]string{{"a", "", "c"}, {"1", "2", ""}},
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTable(tt.rows)
			if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseTable(%q) = %q, %v; want %q, %v", tt.rows, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLineAssembler(t *testing.T) {
	var a lineAssembler

	if lines := a.feed("ab"); len(lines) != 0 {
		t.Fatalf("feed(ab) = %q, want no lines", lines)
	}
	if a.partial() != "ab" {
		t.Fatalf("partial = %q", a.partial())
	}

	lines := a.feed("c\nde\r\nf")
	if want := []string{"abc", "de"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if a.partial() != "f" {
		t.Fatalf("partial = %q", a.partial())
	}

	lines = a.feed("\n\n")
	if want := []string{"f", ""}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if a.partial() != "" {
		t.Fatalf("partial = %q", a.partial())
	}

	a.feed("left over")
	a.reset()
	if a.partial() != "" {
		t.Fatalf("partial after reset = %q", a.partial())
	}
}
