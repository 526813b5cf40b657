package sub

import (
	"github.com/John-Robertt/submerge/internal/model"
)

func parseTrojan(body, name string) (*model.Node, error) {
	user, hostPort, _, query, err := splitAuthority(body)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "trojan uri 缺少 password@host", err)
	}
	server, port, err := splitHostPort(hostPort)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
	}
	p := parseParams(query)

	n := newNode("trojan", name, server, port)
	n.Set("password", unescape(user))
	n.Set("udp", true)
	setIf(n, "sni", p.get("sni", "peer"))
	if p.truthy("allowInsecure", "insecure") {
		n.Set("skip-cert-verify", true)
	}
	if alpn := splitList(p["alpn"]); len(alpn) > 0 {
		n.Set("alpn", alpn)
	}
	setIf(n, "client-fingerprint", p["fp"])
	if network := p["type"]; network != "" && network != "tcp" {
		setTransport(n, network, p["path"], p["host"], p.get("serviceName", "grpc-service-name"))
	}
	return n, nil
}
