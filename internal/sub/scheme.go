package sub

import "strings"

// Scheme names one connection-URI variant.
type Scheme string

const (
	SchemeSS        Scheme = "ss"
	SchemeSSR       Scheme = "ssr"
	SchemeVMess     Scheme = "vmess"
	SchemeTrojan    Scheme = "trojan"
	SchemeVLESS     Scheme = "vless"
	SchemeHysteria2 Scheme = "hysteria2"
)

// Schemes lists every supported scheme.
var Schemes = []Scheme{SchemeSS, SchemeSSR, SchemeVMess, SchemeTrojan, SchemeVLESS, SchemeHysteria2}

func (s Scheme) Prefix() string { return string(s) + "://" }

// label is used in generated names ("VMess_host_443").
func (s Scheme) label() string {
	switch s {
	case SchemeSS:
		return "SS"
	case SchemeSSR:
		return "SSR"
	case SchemeVMess:
		return "VMess"
	case SchemeTrojan:
		return "Trojan"
	case SchemeVLESS:
		return "VLESS"
	case SchemeHysteria2:
		return "Hysteria2"
	default:
		return string(s)
	}
}

// SchemeOf returns the supported scheme a line starts with.
func SchemeOf(line string) (Scheme, bool) {
	name, _, ok := strings.Cut(line, "://")
	if !ok {
		return "", false
	}
	s := Scheme(name)
	_, known := parsers[s]
	return s, known
}

// ContainsSchemeMarker reports whether text mentions any supported scheme prefix.
func ContainsSchemeMarker(text string) bool {
	for _, s := range Schemes {
		if strings.Contains(text, s.Prefix()) {
			return true
		}
	}
	return false
}
