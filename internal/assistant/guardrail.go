package assistant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/retrieval"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/store"
)

// citationPattern matches inline citation markers of the form
// [<document> p.<page>].
var citationPattern = regexp.MustCompile(`\[([^\[\]]+?) p\.(\d+)\]`)

// validateCitations checks every citation marker in text against the chunks
// that were actually retrieved for this answer. Markers that name a source
// outside the retrieved set are removed from the text. It returns the cleaned
// text, the surviving citations in order of first appearance, and the number
// of fabricated markers removed.
func validateCitations(text string, chunks []retrieval.Chunk) (string, []store.Citation, int) {
	allowed := make(map[string]string, len(chunks))
	for _, c := range chunks {
		allowed[citationKey(c.Document, c.Page)] = c.Text
	}
	var citations []store.Citation
	seen := make(map[string]bool)
	violations := 0
	clean := citationPattern.ReplaceAllStringFunc(text, func(marker string) string {
		m := citationPattern.FindStringSubmatch(marker)
		doc := strings.TrimSpace(m[1])
		page, err := strconv.Atoi(m[2])
		if err != nil {
			violations++
			return ""
		}
		key := citationKey(doc, page)
		quote, ok := allowed[key]
		if !ok {
			violations++
			return ""
		}
		if !seen[key] {
			seen[key] = true
			citations = append(citations, store.Citation{
				Document: doc,
				Page:     page,
				Quote:    snippet(quote, 160),
			})
		}
		return marker
	})
	clean = collapseSpaces(clean)
	return clean, citations, violations
}

func citationKey(document string, page int) string {
	return fmt.Sprintf("%s\x00%d", document, page)
}

// collapseSpaces tidies the gaps left by removed markers.
func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		line = strings.ReplaceAll(line, " .", ".")
		line = strings.ReplaceAll(line, " ,", ",")
		lines[i] = line
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], ' ')
	if cut <= 0 {
		// No space to break on: back up to a rune boundary instead of
		// slicing mid-rune.
		cut = max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return s[:cut] + "…"
}
