// Package sub parses single-line connection URIs (ss, ssr, vmess, trojan,
// vless, hysteria2) into canonical nodes.
package sub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
)

// parseFunc receives the URI body between "scheme://" and "#", and the decoded
// fragment (possibly empty).
type parseFunc func(body, name string) (*model.Node, error)

var parsers = map[Scheme]parseFunc{
	SchemeSS:        parseSS,
	SchemeSSR:       parseSSR,
	SchemeVMess:     parseVMess,
	SchemeTrojan:    parseTrojan,
	SchemeVLESS:     parseVLESS,
	SchemeHysteria2: parseHysteria2,
}

const maxListErrors = 10

// ListStats summarizes a ParseList run.
type ListStats struct {
	Lines   int // non-empty, non-comment lines
	Parsed  int
	Skipped int // unknown scheme
	Failed  int
	// Errors keeps the first few parse failures, with Line set.
	Errors []error
}

// ParseConnectionURI parses raw, which must start with scheme's prefix.
// Malformed input yields a *ParseError; the parser never panics.
func ParseConnectionURI(scheme Scheme, raw string) (node *model.Node, err error) {
	parse, ok := parsers[scheme]
	if !ok {
		return nil, newParseError(raw, "SUB_UNSUPPORTED_SCHEME", "不支持的协议", nil)
	}
	line := strings.TrimSpace(raw)
	if !strings.HasPrefix(line, scheme.Prefix()) {
		return nil, newParseError(raw, "SUB_PARSE_ERROR", fmt.Sprintf("缺少 %s 前缀", scheme.Prefix()), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = newParseError(raw, "SUB_PARSE_ERROR", "解析器内部错误", fmt.Errorf("panic: %v", r))
		}
	}()

	rest := strings.TrimPrefix(line, scheme.Prefix())
	body, name, err := splitFragment(rest)
	if err != nil {
		return nil, newParseError(raw, "SUB_PARSE_ERROR", "节点名称 URL 解码失败", err)
	}
	if body == "" {
		return nil, newParseError(raw, "SUB_PARSE_ERROR", fmt.Sprintf("%s 后缺少内容", scheme.Prefix()), nil)
	}

	node, err = parse(body, name)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.AppError.Snippet = truncateSnippet(raw, snippetMax)
			return nil, pe
		}
		return nil, newParseError(raw, "SUB_PARSE_ERROR", fmt.Sprintf("%s uri 格式不合法", scheme.label()), err)
	}
	if node.Name() == "" {
		node.SetName(defaultName(scheme, node))
	}
	return node, nil
}

// ParseURI detects the scheme of raw and parses it.
func ParseURI(raw string) (*model.Node, error) {
	scheme, ok := SchemeOf(strings.TrimSpace(raw))
	if !ok {
		return nil, newParseError(raw, "SUB_UNSUPPORTED_SCHEME", "不支持的协议", nil)
	}
	return ParseConnectionURI(scheme, raw)
}

// ParseList parses a newline-separated URI list. Blank lines, comments and
// unknown schemes are skipped; failing lines are counted and dropped.
func ParseList(text string) ([]*model.Node, ListStats) {
	var stats ListStats
	lines := strings.Split(text, "\n")
	out := make([]*model.Node, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++

		scheme, ok := SchemeOf(line)
		if !ok {
			stats.Skipped++
			continue
		}
		n, err := ParseConnectionURI(scheme, line)
		if err != nil {
			stats.Failed++
			if len(stats.Errors) < maxListErrors {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.AppError.Line = i + 1
				}
				stats.Errors = append(stats.Errors, err)
			}
			continue
		}
		stats.Parsed++
		out = append(out, n)
	}
	return out, stats
}

func defaultName(s Scheme, n *model.Node) string {
	return fmt.Sprintf("%s_%s_%s", s.label(), n.Server(), n.Str(model.KeyPort))
}
