package sub

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/submerge/internal/model"
)

var (
	errMissingAt   = errors.New("missing '@'")
	errMissingPort = errors.New("missing port")
	errEmptyHost   = errors.New("empty host")
	errPortRange   = errors.New("port out of range")
)

// splitFragment cuts "#name" off s and percent-decodes the name.
func splitFragment(s string) (body, name string, err error) {
	body, frag, ok := strings.Cut(s, "#")
	if !ok {
		return body, "", nil
	}
	decoded, err := url.PathUnescape(frag)
	if err != nil {
		return "", "", err
	}
	return body, strings.TrimSpace(decoded), nil
}

// splitAuthority splits "user@host:port[/path][?query]" into its parts. The
// first '@' ends the user part, so credentials may carry '?' or '/'; the query
// starts at the first '?' after it.
func splitAuthority(body string) (user, hostPort, path, query string, err error) {
	at := strings.IndexByte(body, '@')
	if at < 0 {
		return "", "", "", "", errMissingAt
	}
	user = body[:at]
	hostPort, query, _ = strings.Cut(body[at+1:], "?")
	if i := strings.IndexByte(hostPort, '/'); i >= 0 {
		path = hostPort[i:]
		hostPort = hostPort[:i]
	}
	return user, hostPort, path, query, nil
}

// splitHostPort honours bracketed IPv6 hosts; otherwise the first ':' splits.
func splitHostPort(s string) (string, int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(s, "/"))
	var host, portStr string
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", 0, errors.New("unterminated IPv6 host")
		}
		host = s[1:end]
		rest := s[end+1:]
		if !strings.HasPrefix(rest, ":") {
			return "", 0, errMissingPort
		}
		portStr = rest[1:]
	} else {
		var ok bool
		host, portStr, ok = strings.Cut(s, ":")
		if !ok {
			return "", 0, errMissingPort
		}
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errEmptyHost
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, errPortRange
	}
	return p, nil
}

// params is a decoded query. The first occurrence of a key wins.
type params map[string]string

// parseParams splits on '&' only; values may carry ';' (plugin strings) that
// net/url would reject.
func parseParams(query string) params {
	out := params{}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		k = unescape(k)
		if k == "" {
			continue
		}
		if _, dup := out[k]; dup {
			continue
		}
		out[k] = unescape(v)
	}
	return out
}

func (p params) get(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}

func (p params) truthy(keys ...string) bool {
	for _, k := range keys {
		switch strings.ToLower(p[k]) {
		case "1", "true":
			return true
		}
	}
	return false
}

// unescape percent-decodes s, keeping s as-is when it is not valid escaping.
func unescape(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

func decodeB64(s string) (string, error) {
	s = strings.TrimSpace(s)
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err != nil {
			lastErr = err
			continue
		}
		if !utf8.Valid(b) {
			return "", errors.New("decoded text is not valid utf-8")
		}
		return string(b), nil
	}
	return "", lastErr
}

func splitList(s string) []any {
	var out []any
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// newNode starts a record with the common leading keys in output order.
func newNode(typ, name, server string, port int) *model.Node {
	n := model.NewNode(typ)
	n.SetName(name)
	n.Set(model.KeyServer, server)
	n.Set(model.KeyPort, port)
	return n
}

func setIf(n *model.Node, key, v string) {
	if v != "" {
		n.Set(key, v)
	}
}

// setTransport writes the network field and its Clash *-opts block.
func setTransport(n *model.Node, network, path, host, serviceName string) {
	if network == "" {
		network = "tcp"
	}
	n.Set("network", network)

	switch network {
	case "ws":
		opts := model.NewFields()
		opts.Set("path", defaultString(path, "/"))
		if host != "" {
			headers := model.NewFields()
			headers.Set("Host", host)
			opts.Set("headers", headers)
		}
		n.Set("ws-opts", opts)
	case "h2":
		opts := model.NewFields()
		if host != "" {
			opts.Set("host", []any{host})
		}
		opts.Set("path", defaultString(path, "/"))
		n.Set("h2-opts", opts)
	case "http":
		opts := model.NewFields()
		opts.Set("path", []any{defaultString(path, "/")})
		if host != "" {
			headers := model.NewFields()
			headers.Set("Host", []any{host})
			opts.Set("headers", headers)
		}
		n.Set("http-opts", opts)
	case "grpc":
		opts := model.NewFields()
		opts.Set("grpc-service-name", serviceName)
		n.Set("grpc-opts", opts)
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
