package sub

import (
	"github.com/John-Robertt/submerge/internal/model"
)

func parseVLESS(body, name string) (*model.Node, error) {
	user, hostPort, _, query, err := splitAuthority(body)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "vless uri 缺少 uuid@host", err)
	}
	server, port, err := splitHostPort(hostPort)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
	}
	p := parseParams(query)
	security := p["security"]

	n := newNode("vless", name, server, port)
	n.Set("uuid", unescape(user))
	n.Set("udp", true)
	n.Set("tls", security == "tls" || security == "reality")
	setIf(n, "flow", p["flow"])
	if p.truthy("insecure", "allowInsecure") {
		n.Set("skip-cert-verify", true)
	}
	setIf(n, "servername", p.get("sni", "servername"))
	if alpn := splitList(p["alpn"]); len(alpn) > 0 {
		n.Set("alpn", alpn)
	}
	setIf(n, "client-fingerprint", p["fp"])
	if security == "reality" {
		opts := model.NewFields()
		opts.Set("public-key", p["pbk"])
		opts.Set("short-id", p["sid"])
		n.Set("reality-opts", opts)
	}
	setTransport(n, p["type"], p["path"], p["host"], p.get("serviceName", "grpc-service-name"))
	return n, nil
}
