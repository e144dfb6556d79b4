package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sgmcp/sgmcp/internal/request"
)

func searchRequest() *request.Sanitized {
	return &request.Sanitized{
		Kind: request.KindSearch,
		Common: request.Common{
			Pattern:    "console.log($ARG)",
			Language:   "javascript",
			MaxMatches: 100,
		},
	}
}

func streamRecord(file string, line, col int, text string) string {
	return fmt.Sprintf(
		`{"text":%q,"file":%q,"range":{"start":{"line":%d,"column":%d},"end":{"line":%d,"column":%d}}}`,
		text, file, line, col, line, col+len(text))
}

func TestMatches_StreamJSON(t *testing.T) {
	stdout := strings.Join([]string{
		streamRecord("src/a.js", 0, 0, "console.log('a')"),
		streamRecord("src/a.js", 4, 2, "console.log('b')"),
	}, "\n") + "\n"

	got := Matches(stdout, searchRequest(), "/work")
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Line != 1 || got[1].Line != 5 {
		t.Errorf("lines = %d,%d, want 1,5 (zero-based input rebased)", got[0].Line, got[1].Line)
	}
	if got[1].Column != 2 {
		t.Errorf("column = %d, want 2 (columns stay zero-based)", got[1].Column)
	}
}

func TestMatches_InlineCodeTwoHitsOnLineOne(t *testing.T) {
	s := searchRequest()
	s.Code = "console.log('a'); console.log('b');"

	stdout := streamRecord("STDIN", 0, 0, "console.log('a')") + "\n" +
		streamRecord("STDIN", 0, 18, "console.log('b')") + "\n"

	got := Matches(stdout, s, "")
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	for i, m := range got {
		if m.Line != 1 {
			t.Errorf("match %d line = %d, want 1", i, m.Line)
		}
	}
}

func TestMatches_JSONArrayFallback(t *testing.T) {
	stdout := "[" + streamRecord("a.js", 2, 0, "x") + "," + streamRecord("b.js", 3, 0, "y") + "]"

	got := Matches(stdout, searchRequest(), "/work")
	if len(got) != 2 {
		t.Fatalf("got %d matches from array output, want 2", len(got))
	}
}

func TestMatches_GarbageAndEmpty(t *testing.T) {
	for name, stdout := range map[string]string{
		"empty":      "",
		"whitespace": "  \n\t\n",
		"plain text": "warning: something\nnot json at all",
		"half json":  `{"text": "unterminated`,
	} {
		t.Run(name, func(t *testing.T) {
			if got := Matches(stdout, searchRequest(), "/work"); len(got) != 0 {
				t.Errorf("got %d matches from unparseable output, want 0", len(got))
			}
		})
	}
}

func TestMatches_NegativeLineClampedToOne(t *testing.T) {
	stdout := `{"text":"x","file":"a.js","range":{"start":{"line":-3,"column":0},"end":{"line":-3,"column":1}}}`
	got := Matches(stdout, searchRequest(), "/work")
	if len(got) != 1 || got[0].Line < 1 {
		t.Fatalf("got %+v, want one match with line >= 1", got)
	}
}

func TestMatches_Captures(t *testing.T) {
	stdout := `{"text":"console.log('a')","file":"a.js",` +
		`"range":{"start":{"line":0,"column":0},"end":{"line":0,"column":16}},` +
		`"metaVariables":{"single":{"ARG":{"text":"'a'","range":{"start":{"line":0,"column":12},"end":{"line":0,"column":15}}}}}}`

	got := Matches(stdout, searchRequest(), "/work")
	if len(got) != 1 || len(got[0].Captures) != 1 {
		t.Fatalf("got %+v, want one match with one capture", got)
	}
	c := got[0].Captures[0]
	if c.Name != "ARG" || c.Text != "'a'" || c.StartLine != 1 {
		t.Errorf("capture = %+v", c)
	}
}

func TestMatches_PerFileCapThenGlobalCap(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, streamRecord("a.js", i, 0, "x"))
		lines = append(lines, streamRecord("b.js", i, 0, "x"))
	}
	stdout := strings.Join(lines, "\n")

	s := searchRequest()
	s.PerFileCap = 3
	s.MaxMatches = 4

	got := Matches(stdout, s, "/work")
	if len(got) != 4 {
		t.Fatalf("got %d matches, want 4 after caps", len(got))
	}
	// Per-file cap keeps engine order: a, b, a, b.
	if got[0].File != "a.js" || got[1].File != "b.js" {
		t.Errorf("order not preserved: %s, %s", got[0].File, got[1].File)
	}
}

func TestMatches_ContextSynthesizedFromFile(t *testing.T) {
	dir := t.TempDir()
	source := "one\ntwo\nthree\nfour\nfive\n"
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	s := searchRequest()
	s.ContextLines = 1

	stdout := streamRecord("a.txt", 2, 0, "three")
	got := Matches(stdout, s, dir)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if len(got[0].ContextBefore) != 1 || got[0].ContextBefore[0] != "two" {
		t.Errorf("ContextBefore = %v, want [two]", got[0].ContextBefore)
	}
	if len(got[0].ContextAfter) != 1 || got[0].ContextAfter[0] != "four" {
		t.Errorf("ContextAfter = %v, want [four]", got[0].ContextAfter)
	}
}

func TestMatches_ContextFromInlineCode(t *testing.T) {
	s := searchRequest()
	s.Code = "before\nconsole.log('a')\nafter"
	s.ContextLines = 2

	stdout := streamRecord("STDIN", 1, 0, "console.log('a')")
	got := Matches(stdout, s, "")
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if len(got[0].ContextBefore) != 1 || got[0].ContextBefore[0] != "before" {
		t.Errorf("ContextBefore = %v", got[0].ContextBefore)
	}
	if len(got[0].ContextAfter) != 1 || got[0].ContextAfter[0] != "after" {
		t.Errorf("ContextAfter = %v", got[0].ContextAfter)
	}
}

func TestMatches_ContextBeyondSourceEnd(t *testing.T) {
	s := searchRequest()
	s.Code = "console.log('a');"
	s.ContextLines = 2

	// Line 5 does not exist in the one-line source; context synthesis
	// must degrade to no context, not fail.
	stdout := streamRecord("STDIN", 5, 0, "console.log('a')")
	got := Matches(stdout, s, "")
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].ContextBefore != nil || got[0].ContextAfter != nil {
		t.Errorf("context must be empty past the source end: %+v", got[0])
	}
}

func TestMatches_EmptyMatchedTextIsKept(t *testing.T) {
	stdout := `{"text":"","file":"a.js","range":{"start":{"line":2,"column":0},"end":{"line":2,"column":0}}}`

	got := Matches(stdout, searchRequest(), "/work")
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1 (empty matched text is still a match)", len(got))
	}
	if got[0].File != "a.js" || got[0].Line != 3 {
		t.Errorf("match = %+v", got[0])
	}
}

func TestMatches_MissingFileContextIsSilent(t *testing.T) {
	s := searchRequest()
	s.ContextLines = 3

	stdout := streamRecord("gone.js", 0, 0, "x")
	got := Matches(stdout, s, t.TempDir())
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].ContextBefore != nil || got[0].ContextAfter != nil {
		t.Errorf("context should be empty for an unreadable file: %+v", got[0])
	}
}
