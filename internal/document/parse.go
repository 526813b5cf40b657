// Package document parses and encodes structured (YAML) configuration
// documents while keeping every key in its original order.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/submerge/internal/model"
	"gopkg.in/yaml.v3"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse reads a YAML document whose top level is a mapping with at least one
// key. A missing proxies list yields an empty one; list items that are not
// mappings are skipped.
//
// The returned Settings keep the proxies (and proxy-groups) slots as empty
// placeholders so the assembler can write the final lists back in place.
func Parse(text string) (*model.Document, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newParseError(text, "DOC_EMPTY", "文档为空", nil)
		}
		return nil, newParseError(text, "DOC_PARSE_ERROR", "YAML 解析失败", err)
	}

	top := &root
	if top.Kind == yaml.DocumentNode {
		if len(top.Content) == 0 {
			return nil, newParseError(text, "DOC_EMPTY", "文档为空", nil)
		}
		top = top.Content[0]
	}
	if top.Kind != yaml.MappingNode {
		return nil, newParseError(text, "DOC_PARSE_ERROR", "文档顶层必须是映射", nil)
	}
	if len(top.Content) == 0 {
		return nil, newParseError(text, "DOC_EMPTY", "文档没有任何字段", nil)
	}

	settings := model.NewFields()
	if err := settings.UnmarshalYAML(top); err != nil {
		return nil, newParseError(text, "DOC_PARSE_ERROR", "YAML 解析失败", err)
	}

	doc := &model.Document{Settings: settings}
	for _, item := range mappings(settings, model.KeyProxies) {
		doc.Nodes = append(doc.Nodes, model.NodeFromFields(item))
	}
	settings.Set(model.KeyProxies, []any{})

	if settings.Has(model.KeyGroups) {
		doc.HasGroups = true
		for _, item := range mappings(settings, model.KeyGroups) {
			doc.Groups = append(doc.Groups, model.GroupFromFields(item))
		}
		settings.Set(model.KeyGroups, []any{})
	}
	return doc, nil
}

func mappings(f *model.Fields, key string) []*model.Fields {
	v, _ := f.Get(key)
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*model.Fields, 0, len(list))
	for _, item := range list {
		if m, ok := item.(*model.Fields); ok {
			out = append(out, m)
		}
	}
	return out
}

// Encode writes doc as 2-space indented YAML. Nodes and groups are placed in
// the proxies / proxy-groups slots of Settings.
func Encode(doc *model.Document) (string, error) {
	if doc == nil || doc.Settings == nil {
		return "", errors.New("nil document")
	}
	out := doc.Settings.Clone()

	nodes := make([]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodes[i] = &n.Fields
	}
	out.Set(model.KeyProxies, nodes)

	if doc.HasGroups {
		groups := make([]any, len(doc.Groups))
		for i, g := range doc.Groups {
			groups[i] = &g.Fields
		}
		out.Set(model.KeyGroups, groups)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func newParseError(text, code, message string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "parse_document",
			Snippet: truncateSnippet(text, 200),
		},
		Cause: cause,
	}
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if len(s) <= max {
		return s
	}
	return s[:max]
}
