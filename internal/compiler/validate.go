package compiler

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/submerge/internal/decode"
	"github.com/John-Robertt/submerge/internal/model"
)

// ValidationError explains why a node was dropped.
type ValidationError struct {
	AppError model.AppError
	Cause    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Rejection pairs a dropped node with the reason.
type Rejection struct {
	Node *model.Node
	Err  *ValidationError
}

var ssCiphers = map[string]struct{}{
	"aes-128-gcm": {}, "aes-192-gcm": {}, "aes-256-gcm": {},
	"aes-128-cfb": {}, "aes-192-cfb": {}, "aes-256-cfb": {},
	"aes-128-ctr": {}, "aes-192-ctr": {}, "aes-256-ctr": {},
	"rc4-md5": {}, "chacha20": {}, "chacha20-ietf": {},
	"chacha20-ietf-poly1305": {}, "xchacha20-ietf-poly1305": {},
	"2022-blake3-aes-128-gcm": {}, "2022-blake3-aes-256-gcm": {}, "2022-blake3-chacha20-poly1305": {},
}

const defaultSSCipher = "aes-256-gcm"

// Validate checks every node, repairs what can be repaired in place and
// returns the survivors in input order. Invalid nodes never fail the batch.
func Validate(nodes []*model.Node, logger *slog.Logger) ([]*model.Node, []Rejection) {
	if logger == nil {
		logger = slog.Default()
	}
	valid := make([]*model.Node, 0, len(nodes))
	var rejected []Rejection
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if err := validateNode(n); err != nil {
			logger.Warn("node dropped",
				"name", n.Name(),
				"type", n.Type(),
				"code", err.AppError.Code,
				"reason", err.AppError.Message,
			)
			rejected = append(rejected, Rejection{Node: n, Err: err})
			continue
		}
		valid = append(valid, n)
	}
	return valid, rejected
}

func validateNode(n *model.Node) *ValidationError {
	name := strings.TrimSpace(n.Name())
	server := strings.TrimSpace(n.Server())
	typ := strings.TrimSpace(n.Type())
	if name == "" || server == "" || typ == "" {
		return newValidationError(n, "NODE_MISSING_FIELD", "节点缺少 name/server/type", nil)
	}
	n.SetName(name)
	n.Set(model.KeyServer, server)
	n.Set(model.KeyType, typ)

	if typ == "ss" {
		if err := repairPortPlugin(n); err != nil {
			return err
		}
	}
	raw, _ := n.Get(model.KeyPort)
	port, ok := coercePort(raw)
	if !ok {
		return newValidationError(n, "NODE_INVALID_PORT", fmt.Sprintf("端口无效：%v", raw), nil)
	}
	n.Set(model.KeyPort, port)

	switch typ {
	case "ss":
		return validateSS(n)
	case "ssr":
		for _, k := range []string{"cipher", "password", "protocol", "obfs"} {
			if n.Str(k) == "" {
				return newValidationError(n, "NODE_MISSING_FIELD", "SSR 节点缺少 "+k, nil)
			}
		}
	case "vmess":
		if n.Str("uuid") == "" {
			return newValidationError(n, "NODE_MISSING_CREDENTIAL", "VMess 节点缺少 uuid", nil)
		}
		alterID := 0
		if v, ok := n.Get("alterId"); ok {
			if a, ok := coerceInt(v); ok && a >= 0 {
				alterID = a
			}
		}
		n.Set("alterId", alterID)
	case "vless":
		if n.Str("uuid") == "" {
			return newValidationError(n, "NODE_MISSING_CREDENTIAL", "VLESS 节点缺少 uuid", nil)
		}
	case "trojan", "hysteria2":
		if n.Str("password") == "" {
			return newValidationError(n, "NODE_MISSING_CREDENTIAL", typ+" 节点缺少 password", nil)
		}
	}
	return nil
}

func validateSS(n *model.Node) *ValidationError {
	cipher := strings.ToLower(strings.TrimSpace(n.Str("cipher")))
	password := n.Str("password")
	repaired := false

	switch {
	case cipher == "":
		return newValidationError(n, "NODE_INVALID_CIPHER", "SS 节点缺少加密方式", nil)
	case cipher == "ss":
		if strings.HasPrefix(password, "//") {
			b, err := decode.DecodeBase64(password[2:])
			if err != nil {
				return newValidationError(n, "NODE_INVALID_CIPHER", "无法从密码解析加密方式", err)
			}
			c, p, ok := strings.Cut(string(b), ":")
			if !ok {
				return newValidationError(n, "NODE_INVALID_CIPHER", "无法从密码解析加密方式", nil)
			}
			if _, known := ssCiphers[c]; !known {
				return newValidationError(n, "NODE_INVALID_CIPHER", "无法识别的加密方式："+c, nil)
			}
			cipher, password = c, p
			n.Set("password", password)
			repaired = true
		} else {
			cipher = defaultSSCipher
		}
	default:
		if _, known := ssCiphers[cipher]; !known {
			return newValidationError(n, "NODE_INVALID_CIPHER", "无效的加密方式："+cipher, nil)
		}
	}
	n.Set("cipher", cipher)

	if password == "" {
		return newValidationError(n, "NODE_MISSING_CREDENTIAL", "SS 节点缺少密码", nil)
	}
	if strings.HasPrefix(password, "//") && !repaired {
		return newValidationError(n, "NODE_MISSING_CREDENTIAL", "SS 节点密码格式异常", nil)
	}

	if n.Str("plugin") == "v2ray-plugin" {
		if opts, ok := n.Sub("plugin-opts"); ok {
			n.Set("plugin-opts", repairV2rayOpts(opts))
		}
	}
	return nil
}

// repairPortPlugin handles "port: 443?plugin=name%3Bk%3Dv" where a plugin
// string leaked into the port field.
func repairPortPlugin(n *model.Node) *ValidationError {
	s, ok := n.Get(model.KeyPort)
	str, isStr := s.(string)
	if !ok || !isStr || !strings.Contains(str, "?plugin=") {
		return nil
	}
	portPart, pluginInfo, _ := strings.Cut(str, "?")
	port, err := strconv.Atoi(strings.TrimSpace(portPart))
	if err != nil || port < 1 || port > 65535 {
		return newValidationError(n, "NODE_INVALID_PORT", "端口无效："+str, err)
	}
	n.Set(model.KeyPort, port)

	if n.Has("plugin") || !strings.HasPrefix(pluginInfo, "plugin=") {
		return nil
	}
	parts := strings.Split(strings.ReplaceAll(pluginInfo, "%3B", ";"), ";")
	name := strings.TrimPrefix(parts[0], "plugin=")
	n.Set("plugin", name)
	if len(parts) == 1 || strings.Join(parts[1:], ";") == "" {
		return nil
	}

	opts := model.NewFields()
	if name == "v2ray-plugin" || name == "obfs" {
		for _, part := range parts[1:] {
			if part == "" {
				continue
			}
			if k, v, ok := strings.Cut(part, "="); ok {
				opts.Set(k, v)
			} else {
				opts.Set(part, true)
			}
		}
	} else {
		opts.Set("mode", strings.Join(parts[1:], ";"))
	}
	n.Set("plugin-opts", opts)
	return nil
}

// repairV2rayOpts decodes "mode%3Dwebsocket"-style keys and makes sure mode
// is set.
func repairV2rayOpts(opts *model.Fields) *model.Fields {
	needFix := false
	for _, k := range opts.Keys() {
		if strings.Contains(k, "%3D") {
			needFix = true
			break
		}
	}
	if !needFix {
		if opts.Str("mode") == "" {
			opts.Set("mode", "websocket")
		}
		return opts
	}

	out := model.NewFields()
	for _, k := range opts.Keys() {
		v, _ := opts.Get(k)
		switch {
		case strings.Contains(k, "%3D"):
			parts := strings.Split(k, "%3D")
			key, val := parts[0], parts[1]
			switch key {
			case "mux":
				m, _ := strconv.Atoi(val)
				out.Set("mux", m)
			case "path", "host":
				out.Set(key, unescape(val))
			default:
				out.Set(key, val)
			}
		case k == "tls", k == "mode", k == "mux", k == "path", k == "host":
			out.Set(k, v)
		}
	}
	if out.Str("mode") == "" {
		out.Set("mode", "websocket")
	}
	return out
}

func coercePort(v any) (int, bool) {
	p, ok := coerceInt(v)
	if !ok || p < 1 || p > 65535 {
		return 0, false
	}
	return p, true
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), t <= math.MaxInt32
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

func unescape(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

func newValidationError(n *model.Node, code, message string, cause error) *ValidationError {
	return &ValidationError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "validate",
			Snippet: n.Name(),
		},
		Cause: cause,
	}
}
