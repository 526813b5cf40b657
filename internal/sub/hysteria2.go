package sub

import (
	"strconv"

	"github.com/John-Robertt/submerge/internal/model"
)

func parseHysteria2(body, name string) (*model.Node, error) {
	user, hostPort, _, query, err := splitAuthority(body)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "hysteria2 uri 缺少 auth@host", err)
	}
	server, port, err := splitHostPort(hostPort)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
	}
	p := parseParams(query)

	n := newNode("hysteria2", name, server, port)
	n.Set("password", unescape(user))
	setIf(n, "sni", p["sni"])
	if p.truthy("insecure") {
		n.Set("skip-cert-verify", true)
	}
	if alpn := splitList(p["alpn"]); len(alpn) > 0 {
		n.Set("alpn", alpn)
	}
	setIf(n, "obfs", p["obfs"])
	setIf(n, "obfs-password", p["obfs-password"])
	setIf(n, "up", p["up"])
	setIf(n, "down", p["down"])
	if v, err := strconv.Atoi(p.get("hop-interval", "hopInterval")); err == nil && v > 0 {
		n.Set("hop-interval", v)
	}
	n.Set("fast-open", true)
	n.Set("udp", true)
	return n, nil
}
