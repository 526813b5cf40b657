package sub

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/John-Robertt/submerge/internal/model"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func b64url(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func mustParse(t *testing.T, raw string) *model.Node {
	t.Helper()
	n, err := ParseURI(raw)
	if err != nil {
		t.Fatalf("ParseURI(%q) error: %v", raw, err)
	}
	return n
}

func TestParseList_RawList(t *testing.T) {
	raw := strings.Join([]string{
		"# comment",
		"  ",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201",
		"ss://YWVzLTEyOC1nY206cDI=@example.com:8389#Node%202",
		"http://not-a-node.example.com",
		"",
	}, "\n")

	nodes, stats := ParseList(raw)
	if len(nodes) != 2 {
		t.Fatalf("len=%d, want=2", len(nodes))
	}
	if stats.Lines != 3 || stats.Parsed != 2 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	if nodes[0].Type() != "ss" {
		t.Fatalf("type=%q, want=%q", nodes[0].Type(), "ss")
	}
	if nodes[0].Name() != "Node 1" {
		t.Fatalf("name=%q, want=%q", nodes[0].Name(), "Node 1")
	}
	if port, _ := nodes[0].Port(); nodes[0].Server() != "example.com" || port != 8388 {
		t.Fatalf("server/port=%q/%d, want example.com/8388", nodes[0].Server(), port)
	}
	if got := nodes[0].Str("cipher"); got != "aes-128-gcm" {
		t.Fatalf("cipher=%q, want=%q", got, "aes-128-gcm")
	}
}

func TestParseList_RecordsFailedLines(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#ok\nvmess://not-base64!!\n"
	nodes, stats := ParseList(raw)
	if len(nodes) != 1 || stats.Failed != 1 {
		t.Fatalf("nodes=%d stats=%+v", len(nodes), stats)
	}
	var pe *ParseError
	if !errors.As(stats.Errors[0], &pe) {
		t.Fatalf("error type=%T, want *ParseError", stats.Errors[0])
	}
	if pe.AppError.Line != 2 || pe.AppError.Stage != "parse_sub" {
		t.Fatalf("line=%d stage=%q", pe.AppError.Line, pe.AppError.Stage)
	}
}

func TestParseSS_SIP002Plugin(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?plugin=simple-obfs%3Bobfs%3Dtls%3Bobfs-host%3Dexample.com#obfs"
	n := mustParse(t, raw)
	if got := n.Str("plugin"); got != "obfs" {
		t.Fatalf("plugin=%q, want=%q", got, "obfs")
	}
	opts, ok := n.Sub("plugin-opts")
	if !ok {
		t.Fatalf("plugin-opts missing")
	}
	if opts.Str("mode") != "tls" || opts.Str("host") != "example.com" {
		t.Fatalf("plugin-opts=%v", opts.Plain())
	}
}

func TestParseSS_V2rayPlugin(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:443?plugin=" +
		"v2ray-plugin%3Btls%3Bhost%3Dcdn.example.com%3Bpath%3D%2Fws%3Bmux%3D4#v2"
	n := mustParse(t, raw)
	opts, ok := n.Sub("plugin-opts")
	if !ok {
		t.Fatalf("plugin-opts missing")
	}
	if opts.Str("mode") != "websocket" {
		t.Fatalf("mode=%q, want=websocket", opts.Str("mode"))
	}
	if !opts.Bool("tls") {
		t.Fatalf("tls not set")
	}
	if v, _ := opts.Get("mux"); v != 4 {
		t.Fatalf("mux=%v, want=4", v)
	}
	if opts.Str("path") != "/ws" || opts.Str("host") != "cdn.example.com" {
		t.Fatalf("plugin-opts=%v", opts.Plain())
	}
}

func TestParseSS_PlainUserinfo(t *testing.T) {
	n := mustParse(t, "ss://2022-blake3-aes-128-gcm:c2VjcmV0%3D@[2001:db8::1]:8443#v6")
	if n.Str("cipher") != "2022-blake3-aes-128-gcm" || n.Str("password") != "c2VjcmV0=" {
		t.Fatalf("cipher/password=%q/%q", n.Str("cipher"), n.Str("password"))
	}
	if n.Server() != "2001:db8::1" {
		t.Fatalf("server=%q", n.Server())
	}
}

func TestParseSS_OldBase64Form(t *testing.T) {
	raw := "ss://" + b64("aes-128-gcm:pass@ex.com:443")
	n := mustParse(t, raw)
	if n.Server() != "ex.com" || n.Str("password") != "pass" {
		t.Fatalf("server/password=%q/%q", n.Server(), n.Str("password"))
	}
	if n.Name() != "SS_ex.com_443" {
		t.Fatalf("name=%q, want=%q", n.Name(), "SS_ex.com_443")
	}
}

func TestParseSS_Rejects(t *testing.T) {
	cases := []string{
		"ss://",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:0",
		"ss://YWVzLTEyOC1nY206cGFzcw==@:443",
		"ss://bm90LWEtdmFsaWQtcGF5bG9hZA==",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:443#%zz",
	}
	for _, raw := range cases {
		if _, err := ParseURI(raw); err == nil {
			t.Fatalf("ParseURI(%q) succeeded, want error", raw)
		}
	}
}

func TestParseSSR(t *testing.T) {
	payload := "ssr.example.com:8443:auth_aes128_md5:aes-256-cfb:tls1.2_ticket_auth:" + b64url("secret") +
		"/?obfsparam=" + b64url("cdn.example.com") + "&protoparam=" + b64url("1:abc") + "&remarks=" + b64url("香港 01")
	n := mustParse(t, "ssr://"+b64url(payload))

	want := map[string]string{
		"name":           "香港 01",
		"type":           "ssr",
		"server":         "ssr.example.com",
		"port":           "8443",
		"cipher":         "aes-256-cfb",
		"password":       "secret",
		"protocol":       "auth_aes128_md5",
		"obfs":           "tls1.2_ticket_auth",
		"obfs-param":     "cdn.example.com",
		"protocol-param": "1:abc",
	}
	for k, v := range want {
		if got := n.Str(k); got != v {
			t.Fatalf("%s=%q, want=%q", k, got, v)
		}
	}
}

func TestParseVMess(t *testing.T) {
	link := map[string]any{
		"v": "2", "ps": "jp-01", "add": "vm.example.com", "port": 443, "id": "b831381d-6324-4d53-ad4f-8cda48b30811",
		"aid": "0", "net": "ws", "host": "cdn.example.com", "path": "/ray", "tls": "tls", "sni": "vm.example.com",
	}
	b, _ := json.Marshal(link)
	n := mustParse(t, "vmess://"+b64(string(b)))

	if n.Name() != "jp-01" || n.Server() != "vm.example.com" {
		t.Fatalf("name/server=%q/%q", n.Name(), n.Server())
	}
	if port, ok := n.Port(); !ok || port != 443 {
		t.Fatalf("port=%d", port)
	}
	if n.Str("cipher") != "auto" || !n.Bool("tls") || n.Str("network") != "ws" {
		t.Fatalf("cipher/tls/network=%q/%v/%q", n.Str("cipher"), n.Bool("tls"), n.Str("network"))
	}
	if v, _ := n.Get("alterId"); v != 0 {
		t.Fatalf("alterId=%v, want=0", v)
	}
	ws, ok := n.Sub("ws-opts")
	if !ok || ws.Str("path") != "/ray" {
		t.Fatalf("ws-opts=%v", ws.Plain())
	}
	headers, _ := ws.Sub("headers")
	if headers.Str("Host") != "cdn.example.com" {
		t.Fatalf("ws headers=%v", headers.Plain())
	}
}

func TestParseVMess_FragmentWinsOverPS(t *testing.T) {
	b, _ := json.Marshal(map[string]any{"ps": "ps-name", "add": "h.example.com", "port": "80", "id": "u"})
	n := mustParse(t, "vmess://"+b64(string(b))+"#frag")
	if n.Name() != "frag" {
		t.Fatalf("name=%q, want=frag", n.Name())
	}

	b, _ = json.Marshal(map[string]any{"add": "h.example.com", "port": "80", "id": "u", "net": "grpc", "path": "svc"})
	n = mustParse(t, "vmess://"+b64(string(b)))
	if n.Name() != "VMess_h.example.com_80" {
		t.Fatalf("name=%q", n.Name())
	}
	grpc, ok := n.Sub("grpc-opts")
	if !ok || grpc.Str("grpc-service-name") != "svc" {
		t.Fatalf("grpc-opts missing")
	}
}

func TestParseTrojan(t *testing.T) {
	n := mustParse(t, "trojan://p%40ss@tj.example.com:443?sni=sni.example.com&allowInsecure=1&type=ws&path=%2Ftj#TJ")
	if n.Str("password") != "p@ss" || n.Str("sni") != "sni.example.com" {
		t.Fatalf("password/sni=%q/%q", n.Str("password"), n.Str("sni"))
	}
	if !n.Bool("skip-cert-verify") {
		t.Fatalf("skip-cert-verify not set")
	}
	ws, ok := n.Sub("ws-opts")
	if !ok || ws.Str("path") != "/tj" {
		t.Fatalf("ws-opts missing")
	}
}

// The first '@' ends the credential; '?' only starts the query after the
// host and port.
func TestParseURI_CredentialDelimiters(t *testing.T) {
	cases := []struct {
		raw, server, cred, sni string
	}{
		{"trojan://pa?ss@example.com:443#n", "example.com", "pa?ss", ""},
		{"trojan://pa?ss@example.com:443?sni=s.example.com#n", "example.com", "pa?ss", "s.example.com"},
		{"trojan://pa/ss@example.com:443/?sni=s.example.com", "example.com", "pa/ss", "s.example.com"},
		{"hysteria2://a?b@hy.example.com:8443?sni=s.example.com", "hy.example.com", "a?b", "s.example.com"},
		{"trojan://first@second@example.com:443", "second@example.com", "first", ""},
	}
	for _, tc := range cases {
		n := mustParse(t, tc.raw)
		if n.Server() != tc.server || n.Str("password") != tc.cred || n.Str("sni") != tc.sni {
			t.Fatalf("%s: server/password/sni=%q/%q/%q, want %q/%q/%q",
				tc.raw, n.Server(), n.Str("password"), n.Str("sni"), tc.server, tc.cred, tc.sni)
		}
	}

	n := mustParse(t, "vless://id?x@vl.example.com:443?type=ws&path=%2Fv")
	if n.Str("uuid") != "id?x" || n.Server() != "vl.example.com" {
		t.Fatalf("uuid/server=%q/%q", n.Str("uuid"), n.Server())
	}
}

func TestParseSS_CredentialDelimiters(t *testing.T) {
	n := mustParse(t, "ss://2022-blake3-aes-128-gcm:pa?ss@ss.example.com:8388/?plugin=obfs-local%3Bobfs%3Dhttp#q")
	if n.Str("password") != "pa?ss" || n.Server() != "ss.example.com" {
		t.Fatalf("password/server=%q/%q", n.Str("password"), n.Server())
	}
	if n.Str("plugin") == "" {
		t.Fatalf("plugin lost: %v", n.Plain())
	}

	// Legacy form whose plugin query carries an '@'.
	raw := "ss://" + b64("aes-128-gcm:pass@ex.com:443") + "?plugin=obfs-local%3Bobfs-host%3Du@h"
	n = mustParse(t, raw)
	if n.Server() != "ex.com" || n.Str("password") != "pass" {
		t.Fatalf("server/password=%q/%q", n.Server(), n.Str("password"))
	}
}

func TestParseVLESS_Reality(t *testing.T) {
	raw := "vless://b831381d-6324-4d53-ad4f-8cda48b30811@vl.example.com:443?security=reality&sni=www.example.com" +
		"&fp=chrome&pbk=PUBKEY&sid=ab12&type=grpc&serviceName=grpcsvc&flow=xtls-rprx-vision#VL"
	n := mustParse(t, raw)
	if !n.Bool("tls") || n.Str("servername") != "www.example.com" || n.Str("client-fingerprint") != "chrome" {
		t.Fatalf("tls/servername/fp=%v/%q/%q", n.Bool("tls"), n.Str("servername"), n.Str("client-fingerprint"))
	}
	ro, ok := n.Sub("reality-opts")
	if !ok || ro.Str("public-key") != "PUBKEY" || ro.Str("short-id") != "ab12" {
		t.Fatalf("reality-opts=%v", ro.Plain())
	}
	grpc, ok := n.Sub("grpc-opts")
	if !ok || grpc.Str("grpc-service-name") != "grpcsvc" {
		t.Fatalf("grpc-opts missing")
	}
	if n.Str("flow") != "xtls-rprx-vision" || !n.Bool("udp") {
		t.Fatalf("flow/udp=%q/%v", n.Str("flow"), n.Bool("udp"))
	}
}

func TestParseVLESS_HTTPDefaults(t *testing.T) {
	n := mustParse(t, "vless://u@vl.example.com:80?type=http")
	opts, ok := n.Sub("http-opts")
	if !ok {
		t.Fatalf("http-opts missing")
	}
	path, _ := opts.Get("path")
	if fmt.Sprint(path) != "[/]" {
		t.Fatalf("path=%v, want=[/]", path)
	}
	if n.Name() != "VLESS_vl.example.com_80" {
		t.Fatalf("name=%q", n.Name())
	}
}

func TestParseHysteria2(t *testing.T) {
	n := mustParse(t, "hysteria2://auth-pass@hy.example.com:8443?sni=hy.example.com&insecure=1&obfs=salamander&obfs-password=op&alpn=h3")
	if n.Str("password") != "auth-pass" || n.Str("obfs") != "salamander" || n.Str("obfs-password") != "op" {
		t.Fatalf("password/obfs=%q/%q", n.Str("password"), n.Str("obfs"))
	}
	if !n.Bool("skip-cert-verify") || !n.Bool("udp") {
		t.Fatalf("skip-cert-verify/udp not set")
	}
	if n.Name() != "Hysteria2_hy.example.com_8443" {
		t.Fatalf("name=%q", n.Name())
	}
	if !n.Bool("fast-open") || n.Has("hop-interval") {
		t.Fatalf("fast-open=%v hop-interval=%v", n.Bool("fast-open"), n.Has("hop-interval"))
	}

	n = mustParse(t, "hysteria2://pw@hy.example.com:8443?hop-interval=30")
	if v, ok := n.Get("hop-interval"); !ok || v != 30 {
		t.Fatalf("hop-interval=%#v, want int 30", v)
	}
}

// Each scheme round-trips server, port and credential from a URI rebuilt from
// those values.
func TestParseURI_RecoversCoreFields(t *testing.T) {
	type want struct{ server, port, credKey, cred string }
	vm, _ := json.Marshal(map[string]any{"add": "10.0.0.3", "port": "10003", "id": "uuid-3"})
	cases := map[string]struct {
		raw  string
		want want
	}{
		"ss":        {"ss://" + b64("chacha20-ietf-poly1305:pw1") + "@10.0.0.1:10001", want{"10.0.0.1", "10001", "password", "pw1"}},
		"ssr":       {"ssr://" + b64url("10.0.0.2:10002:origin:aes-128-cfb:plain:"+b64url("pw2")), want{"10.0.0.2", "10002", "password", "pw2"}},
		"vmess":     {"vmess://" + b64(string(vm)), want{"10.0.0.3", "10003", "uuid", "uuid-3"}},
		"trojan":    {"trojan://pw4@10.0.0.4:10004", want{"10.0.0.4", "10004", "password", "pw4"}},
		"vless":     {"vless://uuid-5@10.0.0.5:10005", want{"10.0.0.5", "10005", "uuid", "uuid-5"}},
		"hysteria2": {"hysteria2://pw6@10.0.0.6:10006", want{"10.0.0.6", "10006", "password", "pw6"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			n := mustParse(t, tc.raw)
			if n.Type() != name {
				t.Fatalf("type=%q, want=%q", n.Type(), name)
			}
			if n.Server() != tc.want.server || n.Str("port") != tc.want.port || n.Str(tc.want.credKey) != tc.want.cred {
				t.Fatalf("server/port/%s=%q/%q/%q", tc.want.credKey, n.Server(), n.Str("port"), n.Str(tc.want.credKey))
			}
		})
	}
}

func TestParseConnectionURI_UnknownScheme(t *testing.T) {
	_, err := ParseConnectionURI(Scheme("wireguard"), "wireguard://x")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.AppError.Code != "SUB_UNSUPPORTED_SCHEME" {
		t.Fatalf("err=%v, want SUB_UNSUPPORTED_SCHEME", err)
	}
}

func TestSchemeOf(t *testing.T) {
	if s, ok := SchemeOf("vless://x@y:1"); !ok || s != SchemeVLESS {
		t.Fatalf("SchemeOf(vless)=%q,%v", s, ok)
	}
	if _, ok := SchemeOf("https://example.com"); ok {
		t.Fatalf("https must not be a node scheme")
	}
	if !ContainsSchemeMarker("foo\nhysteria2://a@b:1") {
		t.Fatalf("marker not found")
	}
}
