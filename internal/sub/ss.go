package sub

import (
	"errors"
	"strconv"
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
)

// parseSS handles SIP002 (base64 or percent-encoded userinfo, optional plugin)
// and the legacy fully-encoded form.
func parseSS(body, name string) (*model.Node, error) {
	var method, password, server, query string
	var port int

	if userinfo, hostPart, ok := sip002Parts(body); ok {
		// Form A: <userinfo>@<host>:<port>[/][?query]
		hostPart, query, _ = strings.Cut(hostPart, "?")
		if userinfo == "" || hostPart == "" {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "ss uri 格式不合法", nil)
		}
		if i := strings.IndexByte(hostPart, '/'); i >= 0 {
			hostPart = hostPart[:i]
		}

		var err error
		method, password, err = decodeUserinfo(userinfo)
		if err != nil {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "ss userinfo 解码失败", err)
		}
		server, port, err = splitHostPort(hostPart)
		if err != nil {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
		}
	} else {
		// Form B: <b64(method:password@host:port)>[?query]
		var encoded string
		encoded, query, _ = strings.Cut(body, "?")
		decoded, err := decodeB64(strings.TrimSuffix(encoded, "/"))
		if err != nil {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "ss base64 解码失败", err)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "ss base64 解码结果缺少 @ 分隔符", nil)
		}
		method, password, err = splitMethodPassword(decoded[:at])
		if err != nil {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "ss base64 解码结果缺少 cipher:password", err)
		}
		server, port, err = splitHostPort(decoded[at+1:])
		if err != nil {
			return nil, newParseError(body, "SUB_PARSE_ERROR", "服务器地址或端口不合法", err)
		}
	}

	n := newNode("ss", name, server, port)
	n.Set("cipher", method)
	n.Set("password", password)

	if plugin := parseParams(query).get("plugin"); plugin != "" {
		pluginName, opts := parsePlugin(plugin)
		if pluginName != "" {
			n.Set("plugin", pluginName)
			if opts.Len() > 0 {
				n.Set("plugin-opts", opts)
			}
		}
	}
	return n, nil
}

// sip002Parts splits body at its first '@'. A legacy encoded body never
// contains '@' itself, so an '@' that only shows up in its query does not
// count.
func sip002Parts(body string) (userinfo, rest string, ok bool) {
	userinfo, rest, ok = strings.Cut(body, "@")
	if !ok {
		return "", "", false
	}
	if q := strings.IndexByte(body, '?'); q >= 0 && q < len(userinfo) {
		if decoded, err := decodeB64(strings.TrimSuffix(body[:q], "/")); err == nil && strings.Contains(decoded, "@") {
			return "", "", false
		}
	}
	return userinfo, rest, true
}

// decodeUserinfo accepts base64(method:password) and, for 2022 ciphers, the
// plain percent-encoded "method:password".
func decodeUserinfo(userinfo string) (string, string, error) {
	if decoded, err := decodeB64(userinfo); err == nil {
		if method, password, err := splitMethodPassword(decoded); err == nil {
			return method, password, nil
		}
	}
	plain := unescape(userinfo)
	if strings.Contains(plain, ":") {
		return splitMethodPassword(plain)
	}
	return "", "", errors.New("userinfo is neither base64 nor method:password")
}

func splitMethodPassword(s string) (string, string, error) {
	method, password, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New("missing ':'")
	}
	method = strings.TrimSpace(method)
	password = strings.TrimSpace(password)
	if method == "" || password == "" {
		return "", "", errors.New("empty method or password")
	}
	if strings.ContainsAny(method, "\r\n\x00") || strings.ContainsAny(password, "\r\n\x00") {
		return "", "", errors.New("control chars in method/password")
	}
	return method, password, nil
}

// parsePlugin turns "name;k=v;flag" into the Clash plugin name and options.
func parsePlugin(value string) (string, *model.Fields) {
	segs := strings.Split(value, ";")
	name := strings.TrimSpace(segs[0])
	raw := model.NewFields()
	for _, seg := range segs[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !ok {
			raw.Set(k, true)
			continue
		}
		raw.Set(k, v)
	}

	opts := model.NewFields()
	switch name {
	case "simple-obfs", "obfs-local", "obfs":
		name = "obfs"
		if v, ok := raw.Get("obfs"); ok {
			opts.Set("mode", v)
		}
		if v, ok := raw.Get("obfs-host"); ok {
			opts.Set("host", v)
		}
	case "v2ray-plugin":
		opts.Set("mode", defaultString(raw.Str("mode"), "websocket"))
		for _, k := range []string{"host", "path"} {
			if v := raw.Str(k); v != "" {
				opts.Set(k, v)
			}
		}
		if raw.Has("tls") {
			opts.Set("tls", raw.Bool("tls") || raw.Str("tls") == "tls")
		}
		if v := raw.Str("mux"); v != "" {
			if m, err := strconv.Atoi(v); err == nil {
				opts.Set("mux", m)
			} else {
				opts.Set("mux", raw.Bool("mux"))
			}
		}
	default:
		opts = raw
	}
	return name, opts
}
