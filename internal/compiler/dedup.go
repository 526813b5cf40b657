package compiler

import (
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
)

// Dedup keeps the first node for every identity key, preserving order.
func Dedup(nodes []*model.Node) []*model.Node {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		key := DedupKey(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DedupKey is the identity of a node: the fields that make two entries the
// same endpoint for their protocol. The display name never takes part.
func DedupKey(n *model.Node) string {
	typ := n.Type()
	fields := func(keys ...string) string {
		parts := []string{typ, n.Server(), n.Str(model.KeyPort)}
		for _, k := range keys {
			parts = append(parts, n.Str(k))
		}
		return strings.Join(parts, ":")
	}

	switch typ {
	case "ss":
		return fields("cipher")
	case "ssr":
		return fields("cipher", "protocol", "obfs")
	case "vmess":
		alterID := n.Str("alterId")
		if alterID == "" {
			alterID = "0"
		}
		return fields("uuid") + ":" + alterID
	case "trojan", "hysteria2":
		return fields("password")
	case "vless":
		return fields("uuid")
	case "http", "https", "socks5", "socks5-tls":
		return fields("username", "password")
	default:
		return n.Canonical(model.KeyName)
	}
}
