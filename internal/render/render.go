// Package render assembles the output document and its diagnostic header.
package render

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/submerge/internal/document"
	"github.com/John-Robertt/submerge/internal/model"
)

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Assemble merges base settings with the final nodes and groups and prepends
// the diagnostic header. base is not modified. groups replace the base groups
// only when the base declares a proxy-groups list.
func Assemble(base *model.Document, nodes []*model.Node, groups []*model.Group, s Summary) (string, error) {
	if base == nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "render input 不能为空",
				Stage:   "render",
			},
		}
	}

	out := &model.Document{
		Settings:  base.Settings.Clone(),
		Nodes:     nodes,
		HasGroups: base.HasGroups,
	}
	if base.HasGroups {
		out.Groups = groups
	}

	body, err := document.Encode(out)
	if err != nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "输出文档序列化失败",
				Stage:   "render",
			},
			Cause: err,
		}
	}

	var b strings.Builder
	b.WriteString(Header(s))
	b.WriteString(body)
	return b.String(), nil
}
