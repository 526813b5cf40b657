package sub

import (
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
)

// parseSSR decodes base64url(host:port:protocol:method:obfs:base64url(pass)/?params).
// The host may itself contain ':' (IPv6), so the fields are taken from the right.
func parseSSR(body, name string) (*model.Node, error) {
	decoded, err := decodeB64(body)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "ssr base64 解码失败", err)
	}

	head, query, ok := strings.Cut(decoded, "/?")
	if !ok {
		head, query, _ = strings.Cut(decoded, "?")
	}
	head = strings.TrimSuffix(head, "/")

	parts := strings.Split(head, ":")
	if len(parts) < 6 {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "ssr 字段数量不足", nil)
	}
	k := len(parts)
	server := strings.Trim(strings.Join(parts[:k-5], ":"), "[]")
	if server == "" {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", errEmptyHost)
	}
	port, err := parsePort(parts[k-5])
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
	}
	password, err := decodeB64(parts[k-1])
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "ssr 密码解码失败", err)
	}

	p := parseParams(query)
	param := func(key string) string {
		v := p[key]
		if v == "" {
			return ""
		}
		if d, err := decodeB64(v); err == nil {
			return d
		}
		return v
	}

	if name == "" {
		name = strings.TrimSpace(param("remarks"))
	}

	n := newNode("ssr", name, server, port)
	n.Set("cipher", parts[k-3])
	n.Set("password", password)
	n.Set("protocol", parts[k-4])
	n.Set("obfs", parts[k-2])
	setIf(n, "obfs-param", param("obfsparam"))
	setIf(n, "protocol-param", param("protoparam"))
	return n, nil
}
