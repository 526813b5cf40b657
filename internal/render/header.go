package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/submerge/internal/compiler"
)

// SourceLine is one per-source diagnostic. Exactly one of Nodes (with
// Err empty) or Err describes the outcome.
type SourceLine struct {
	Locator  string
	Template bool
	Nodes    int
	Err      string
}

func (l SourceLine) String() string {
	switch {
	case l.Template && l.Err != "":
		return fmt.Sprintf("template(%s): error: %s", l.Locator, l.Err)
	case l.Template:
		return fmt.Sprintf("template(%s): loaded", l.Locator)
	case l.Err != "":
		return fmt.Sprintf("%s (error: %s)", l.Locator, l.Err)
	default:
		return fmt.Sprintf("%s (%d nodes)", l.Locator, l.Nodes)
	}
}

// Summary is everything the header reports.
type Summary struct {
	Stats       compiler.Stats
	Criteria    compiler.Criteria
	Sources     []SourceLine
	GeneratedAt time.Time
}

// Header renders the leading comment block. Every line starts with "# " so
// the output stays a valid document.
func Header(s Summary) string {
	var b strings.Builder
	st := s.Stats
	fmt.Fprintf(&b, "# original: %d, invalid: %d, post-validation: %d, post-dedup: %d (duplicates removed: %d), post-filter: %d\n",
		st.Original, st.Invalid, st.PostValidation, st.PostDedup, st.Duplicates, st.PostFilter)
	writeFilter(&b, "name", s.Criteria.Name, s.Criteria.ForceName)
	writeFilter(&b, "type", s.Criteria.Type, s.Criteria.ForceType)
	writeFilter(&b, "server", s.Criteria.Server, s.Criteria.ForceServer)

	at := s.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	fmt.Fprintf(&b, "# generated at: %s\n", at.UTC().Format(time.RFC3339))
	b.WriteString("# sources:\n")
	for _, l := range s.Sources {
		b.WriteString("# ")
		b.WriteString(oneLine(l.String()))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeFilter(b *strings.Builder, dim, user, forced string) {
	if user == "" {
		user = "none"
	}
	fmt.Fprintf(b, "# %s filter: %s", dim, oneLine(user))
	if forced != "" {
		fmt.Fprintf(b, " (forced: %s)", oneLine(forced))
	}
	b.WriteByte('\n')
}

// oneLine keeps user-controlled text from breaking out of a comment line.
func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
