package output

import (
	"strings"

	"github.com/rs/zerolog"
)

// diffState is the position of the segmenter inside the engine's
// diff-like replace output.
type diffState int

const (
	diffIdle diffState = iota
	diffInFileHeader
	diffInHunk
)

// Changes segments replace stdout into per-file changes. The engine emits
// a loose diff grammar: a file header line (non-empty, no diff marker),
// followed by hunk lines carrying removal/addition markers. matchCount is
// the number of removal lines in the segment, at least 1 when the segment
// has any content. When the text matches no part of that grammar the whole
// output becomes one synthetic change so the signal is never dropped, and
// the mismatch is logged loudly.
func Changes(stdout string, applied bool, log zerolog.Logger) []Change {
	if strings.TrimSpace(stdout) == "" {
		return nil
	}

	var (
		changes []Change
		state   = diffIdle
		current *Change
		preview strings.Builder
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.MatchCount == 0 {
			current.MatchCount = 1
		}
		if !applied {
			current.UnifiedPreview = strings.TrimRight(preview.String(), "\n")
		}
		changes = append(changes, *current)
		current = nil
		preview.Reset()
	}

	for _, line := range strings.Split(stdout, "\n") {
		switch classifyDiffLine(line) {
		case lineFileHeader:
			flush()
			current = &Change{File: strings.TrimSpace(line), Applied: applied}
			state = diffInFileHeader
		case lineHunkHeader:
			if state == diffIdle {
				continue // hunk without a header: grammar drift, caught below
			}
			state = diffInHunk
			preview.WriteString(line)
			preview.WriteString("\n")
		case lineRemoval:
			if state == diffIdle {
				continue
			}
			state = diffInHunk
			current.MatchCount++
			preview.WriteString(line)
			preview.WriteString("\n")
		case lineAddition, lineContext:
			if state == diffIdle {
				continue
			}
			state = diffInHunk
			preview.WriteString(line)
			preview.WriteString("\n")
		case lineBlank:
			// blank lines separate segments in idle, belong to the hunk otherwise
			if state == diffInHunk {
				preview.WriteString("\n")
			}
		}
	}
	flush()

	if len(changes) == 0 {
		log.Warn().
			Str("first_line", firstNonBlankLine(stdout)).
			Msg("replace output did not match the expected diff grammar; returning it unsegmented")
		c := Change{File: "(unparsed)", MatchCount: 1, Applied: applied}
		if !applied {
			c.UnifiedPreview = strings.TrimRight(stdout, "\n")
		}
		return []Change{c}
	}
	return changes
}

type diffLineKind int

const (
	lineBlank diffLineKind = iota
	lineFileHeader
	lineHunkHeader
	lineRemoval
	lineAddition
	lineContext
)

func classifyDiffLine(line string) diffLineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return lineBlank
	case strings.HasPrefix(trimmed, "@@"):
		return lineHunkHeader
	case strings.HasPrefix(line, "-"):
		return lineRemoval
	case strings.HasPrefix(line, "+"):
		return lineAddition
	case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
		return lineContext
	default:
		return lineFileHeader
	}
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
