package region

import (
	"regexp"
	"strconv"
	"strings"
)

// IsIPv4 reports whether s is a dotted quad with every octet in 0..255.
func IsIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return false
		}
		for i := 0; i < len(p); i++ {
			if p[i] < '0' || p[i] > '9' {
				return false
			}
		}
		if v, _ := strconv.Atoi(p); v > 255 {
			return false
		}
	}
	return true
}

var (
	domainLabelRe   = regexp.MustCompile(`^([a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z0-9\-]{1,}$`)
	domainBadCharRe = regexp.MustCompile(`[\s,!@#$%^&*()+={}\[\]:;"'<>?/\\|]`)
	whitespaceRe    = regexp.MustCompile(`\s`)
)

// IsDomain is a permissive host-name test: not an IP or loopback, has a dot
// and no whitespace, and either follows label grammar or is 4..254 bytes
// without punctuation.
func IsDomain(s string) bool {
	if s == "" || IsIPv4(s) {
		return false
	}
	if s == "localhost" || strings.HasPrefix(s, "127.") || s == "0.0.0.0" {
		return false
	}
	if !strings.Contains(s, ".") || whitespaceRe.MatchString(s) {
		return false
	}
	if domainLabelRe.MatchString(s) {
		return true
	}
	return len(s) > 3 && len(s) < 255 && !domainBadCharRe.MatchString(s)
}
