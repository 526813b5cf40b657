package decode

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmptyDocument is returned by Clean when markup carries no recognizable
// document text.
const EmptyDocument = "proxies: []"

var (
	markupMarkers = []string{"<html", "<!doctype", "<head", "<body", "</div>", "style="}
	styleMarkers  = []string{"white-space: pre-wrap", "word-wrap: break-word"}

	keyLineRe     = regexp.MustCompile(`^\s*[a-zA-Z0-9_-]+\s*:\s*.+$`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	entityRe      = regexp.MustCompile(`&[a-z]+;`)
	styleAttrRe   = regexp.MustCompile(`style="[^"]*"`)
	classAttrRe   = regexp.MustCompile(`class="[^"]*"`)
	wordWrapRe    = regexp.MustCompile(`word-wrap:[^;]*;`)
	whiteSpaceRe  = regexp.MustCompile(`white-space:[^;]*;`)
	strTagRe      = regexp.MustCompile(`!<str>\s+`)
	bareTagRe     = regexp.MustCompile(`!\s+`)
	verbatimTagRe = regexp.MustCompile(`!<[^>]+>\s+`)
	controlRe     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F]`)
)

// Clean strips presentation artifacts from a fetched payload: HTML wrapping,
// inline style residue, tag syntax the document parser does not support,
// escaped quotes, tabs and control characters.
func Clean(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	if s == "" {
		return s
	}

	if hasAny(strings.ToLower(s), markupMarkers) {
		var ok bool
		s, ok = extractFromMarkup(s)
		if !ok {
			return EmptyDocument
		}
	}

	if hasAny(s, styleMarkers) {
		s = styleAttrRe.ReplaceAllString(s, "")
		s = classAttrRe.ReplaceAllString(s, "")
		s = wordWrapRe.ReplaceAllString(s, "")
		s = whiteSpaceRe.ReplaceAllString(s, "")
		s = tagRe.ReplaceAllString(s, "")
	}

	s = strTagRe.ReplaceAllString(s, "")
	s = bareTagRe.ReplaceAllString(s, "")
	s = verbatimTagRe.ReplaceAllString(s, "")

	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, "\t", "  ")
	return controlRe.ReplaceAllString(s, "")
}

// extractFromMarkup returns the text of the first <pre> element, or the tail of
// the page starting at the first "key: value" line.
func extractFromMarkup(s string) (string, bool) {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		if pre := doc.Find("pre").First(); pre.Length() > 0 {
			return stripMarkup(pre.Text()), true
		}
	}

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if keyLineRe.MatchString(line) {
			return stripMarkup(strings.Join(lines[i:], "\n")), true
		}
	}
	return "", false
}

func stripMarkup(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return entityRe.ReplaceAllString(s, " ")
}

func hasAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
