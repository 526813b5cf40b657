// Package template supplies the base document: either the embedded default
// or a document fetched from a locator.
package template

import (
	"context"
	_ "embed"
	"strings"
	"sync"

	"github.com/John-Robertt/submerge/internal/document"
	"github.com/John-Robertt/submerge/internal/fetch"
	"github.com/John-Robertt/submerge/internal/model"
)

// BuiltinLocator selects the embedded default template.
const BuiltinLocator = "builtin"

//go:embed default.yaml
var defaultYAML string

var builtin = sync.OnceValues(func() (*model.Document, error) {
	return document.Parse(defaultYAML)
})

func IsBuiltin(locator string) bool {
	return strings.EqualFold(strings.TrimSpace(locator), BuiltinLocator)
}

// Builtin returns a fresh copy of the embedded default template.
func Builtin() (*model.Document, error) {
	doc, err := builtin()
	if err != nil {
		return nil, newTemplateError("TEMPLATE_INVALID", "内置模板无法解析", BuiltinLocator, err)
	}
	return doc.Clone(), nil
}

// Fetcher is the part of fetch.Fetcher a template load needs.
type Fetcher interface {
	Fetch(ctx context.Context, kind fetch.Kind, src fetch.Source) fetch.Result
}

// Load resolves locator to a base document. Nodes carried by a fetched
// template are discarded: a template contributes settings and groups only.
func Load(ctx context.Context, f Fetcher, locator string, opt fetch.SourceOptions) (*model.Document, error) {
	if IsBuiltin(locator) {
		return Builtin()
	}
	r := f.Fetch(ctx, fetch.KindTemplate, fetch.Source{Locator: locator, Options: opt})
	if !r.OK() {
		return nil, newTemplateError("TEMPLATE_FETCH_ERROR", r.Reason(), locator, r.Err)
	}
	doc := r.Document
	doc.Nodes = nil
	return doc, nil
}
