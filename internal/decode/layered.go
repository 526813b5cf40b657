// Package decode turns fetched subscription payloads into classifiable text:
// it strips presentation artifacts, peels off up to two layers of base64 and
// decides whether the result is a structured document or a URI list.
package decode

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/submerge/internal/sub"
)

const (
	minLayeredLen   = 20
	blobMinLen      = 100
	blobProbeLen    = 1000
	maxDecodePasses = 2
	minTextRatio    = 0.9
)

var documentMarkers = []string{"proxies:", "mixed-port:", "port:", "proxy-groups:", "rules:"}

// Payload is the outcome of layered decoding.
type Payload struct {
	// Original is the cleaned input before any base64 pass.
	Original string
	// Text is the best decoded text; equal to Original when nothing was decoded.
	Text string
	// Passes counts successful base64 passes (0..2).
	Passes int
}

func (p Payload) Decoded() bool { return p.Passes > 0 }

// Decode cleans s and reverses at most two layers of base64. A layer that fails
// to decode leaves the text as it was.
func Decode(s string) Payload {
	cleaned := Clean(s)
	p := Payload{Original: cleaned, Text: cleaned}

	text := cleaned
	for p.Passes < maxDecodePasses {
		if p.Passes > 0 && len(text) <= minLayeredLen {
			break
		}
		if !IsLayered(text) {
			break
		}
		b, err := DecodeBase64(text)
		if err != nil || !utf8.Valid(b) {
			break
		}
		text = Clean(string(b))
		p.Text = text
		p.Passes++
	}
	return p
}

// IsLayered reports whether s looks like base64 wrapping a subscription.
func IsLayered(s string) bool {
	clean := removeWhitespace(s)
	if len(clean) < minLayeredLen {
		return false
	}

	// Long single-line blobs: probe the head for scheme content.
	if countLines(strings.TrimSpace(s)) <= 3 && len(clean) > blobMinLen && isBase64Alphabet(clean) {
		n := min(len(clean), blobProbeLen)
		n -= n % 4
		if b, err := DecodeBase64(clean[:n]); err == nil && sub.ContainsSchemeMarker(string(b)) {
			return true
		}
	}

	if !isBase64Alphabet(clean) || len(clean)%4 != 0 {
		return false
	}

	b, err := DecodeBase64(clean)
	if err != nil || !utf8.Valid(b) || hasBinaryBytes(b) {
		return false
	}
	decoded := string(b)

	if hasAny(decoded, documentMarkers) || sub.ContainsSchemeMarker(decoded) {
		return true
	}

	// Another base64 layer underneath.
	inner := removeWhitespace(decoded)
	if len(inner) >= minLayeredLen && len(inner)%4 == 0 && isBase64Alphabet(inner) {
		return true
	}

	if textRatio(b) > minTextRatio {
		if strings.Contains(decoded, "name:") &&
			(strings.Contains(decoded, "server:") || strings.Contains(decoded, "port:") || strings.Contains(decoded, "type:")) {
			return true
		}
		if countNonEmptyLines(decoded) > 2 {
			return true
		}
	}
	return false
}

// SingleLineBlob decodes a single long base64 line that wraps a URI list. It
// returns false when s is not such a blob.
func SingleLineBlob(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if countLines(t) != 1 || len(s) <= blobMinLen {
		return "", false
	}
	clean := removeWhitespace(t)
	if !isBase64Alphabet(clean) {
		return "", false
	}
	b, err := DecodeBase64(clean)
	if err != nil || !utf8.Valid(b) {
		return "", false
	}
	decoded := string(b)
	if !sub.ContainsSchemeMarker(decoded) {
		return "", false
	}
	return decoded, true
}

// DecodeBase64 decodes s with any of the four common alphabets after removing
// whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = removeWhitespace(s)
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func isBase64Alphabet(s string) bool {
	if s == "" {
		return false
	}
	body := strings.TrimRight(s, "=")
	if len(s)-len(body) > 2 {
		return false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func hasBinaryBytes(b []byte) bool {
	for _, c := range b {
		if c <= 0x08 || (c >= 0x0E && c <= 0x1F) {
			return true
		}
	}
	return false
}

func textRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	n := 0
	for _, c := range b {
		if c >= 32 && c <= 126 {
			n++
		}
	}
	return float64(n) / float64(len(b))
}

func removeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func countLines(s string) int {
	return strings.Count(s, "\n") + 1
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
