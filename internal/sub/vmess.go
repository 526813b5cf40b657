package sub

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
)

// vmessLink is the base64 JSON payload of a vmess:// URI. Clients disagree on
// whether port and aid are strings or numbers, so they are decoded loosely.
type vmessLink struct {
	PS         flexString `json:"ps"`
	Add        flexString `json:"add"`
	Port       flexString `json:"port"`
	ID         flexString `json:"id"`
	Aid        flexString `json:"aid"`
	Scy        flexString `json:"scy"`
	Net        flexString `json:"net"`
	Type       flexString `json:"type"`
	Host       flexString `json:"host"`
	Path       flexString `json:"path"`
	TLS        flexString `json:"tls"`
	SNI        flexString `json:"sni"`
	ALPN       flexString `json:"alpn"`
	FP         flexString `json:"fp"`
	VerifyCert flexString `json:"verify_cert"`
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	// Numbers and booleans keep their literal text.
	*f = flexString(b)
	return nil
}

func parseVMess(body, name string) (*model.Node, error) {
	decoded, err := decodeB64(body)
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "vmess base64 解码失败", err)
	}
	var link vmessLink
	if err := json.Unmarshal([]byte(decoded), &link); err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "vmess JSON 解析失败", err)
	}

	server := string(link.Add)
	if server == "" {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", errEmptyHost)
	}
	port, err := parsePort(string(link.Port))
	if err != nil {
		return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
	}
	alterID := 0
	if link.Aid != "" {
		if v, err := strconv.Atoi(string(link.Aid)); err == nil {
			alterID = v
		}
	}

	if name == "" {
		name = string(link.PS)
	}

	n := newNode("vmess", name, server, port)
	n.Set("uuid", string(link.ID))
	n.Set("alterId", alterID)
	n.Set("cipher", defaultString(string(link.Scy), "auto"))
	n.Set("tls", link.TLS == "tls")
	if link.VerifyCert == "false" {
		n.Set("skip-cert-verify", true)
	}
	setIf(n, "servername", string(link.SNI))
	if alpn := splitList(string(link.ALPN)); len(alpn) > 0 {
		n.Set("alpn", alpn)
	}
	setIf(n, "client-fingerprint", string(link.FP))

	network := string(link.Net)
	if network == "tcp" && link.Type == "http" {
		network = "http"
	}
	setTransport(n, network, string(link.Path), string(link.Host), string(link.Path))
	return n, nil
}
