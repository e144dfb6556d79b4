package request

import "strings"

// knownLanguages is the closed set of language hints the pipeline accepts;
// it mirrors the engine's built-in parsers.
var knownLanguages = map[string]bool{
	"javascript": true, "typescript": true, "tsx": true, "jsx": true,
	"python": true, "go": true, "rust": true, "java": true, "kotlin": true,
	"c": true, "cpp": true, "csharp": true, "ruby": true, "php": true,
	"swift": true, "scala": true, "lua": true, "elixir": true,
	"html": true, "css": true, "json": true, "yaml": true, "bash": true,
}

// languageAliases maps common spellings onto canonical names.
var languageAliases = map[string]string{
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"golang": "go",
	"c++":    "cpp",
	"c#":     "csharp",
	"rb":     "ruby",
	"sh":     "bash",
	"shell":  "bash",
}

// languageSignal pairs a substring heuristic with a language. Ordered:
// the first language whose signals hit wins ties by position.
type languageSignal struct {
	language string
	markers  []string
}

// languageSignals are keyword and punctuation heuristics for the pattern
// text itself. They only need to distinguish pattern fragments, not parse
// whole programs, so short distinctive forms are enough.
var languageSignals = []languageSignal{
	{"go", []string{"func ", ":=", "chan ", "go func", "fmt.", "package "}},
	{"rust", []string{"fn ", "let mut", "impl ", "-> ", "::<", "println!"}},
	{"python", []string{"def ", "lambda ", "elif ", "import ", "self."}},
	{"java", []string{"public class", "public static", "void ", "System.out", "@Override"}},
	{"typescript", []string{": string", ": number", "interface ", "enum ", "readonly "}},
	{"javascript", []string{"function ", "console.", "=> ", "const ", "let ", "var ", "require("}},
	{"ruby", []string{"def ", "end", "puts ", ".each"}},
	{"php", []string{"<?php", "$this->", "echo "}},
}

// normalizeLanguage canonicalizes a user-supplied hint. Returns the
// canonical name and whether the hint is in the closed set.
func normalizeLanguage(hint string) (string, bool) {
	lang := strings.ToLower(strings.TrimSpace(hint))
	if alias, ok := languageAliases[lang]; ok {
		lang = alias
	}
	return lang, knownLanguages[lang]
}

// inferLanguage guesses a language from the pattern text. The best match
// is the signal set with the most hits; zero hits yields "".
func inferLanguage(pattern string) string {
	best := ""
	bestHits := 0
	for _, sig := range languageSignals {
		hits := 0
		for _, marker := range sig.markers {
			if strings.Contains(pattern, marker) {
				hits++
			}
		}
		if hits > bestHits {
			best = sig.language
			bestHits = hits
		}
	}
	return best
}
