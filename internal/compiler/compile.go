// Package compiler turns the merged node list into the final node and group
// lists: validation, deduplication, filtering, renaming and group
// reconciliation.
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/John-Robertt/submerge/internal/model"
)

// Stats counts nodes after each stage.
type Stats struct {
	Original       int
	Invalid        int
	PostValidation int
	PostDedup      int
	Duplicates     int
	PostFilter     int
}

type Result struct {
	Nodes    []*model.Node
	Groups   []*model.Group
	Stats    Stats
	Rejected []Rejection
}

type Options struct {
	Criteria Criteria
	Logger   *slog.Logger
}

type CompileError struct {
	AppError model.AppError
	Cause    error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Compile runs the node stages in order. The nodes are modified in place
// (repairs, new names); groups are cloned before reconciliation.
//
// Nothing surviving the filter is an error: the caller has no node list to
// emit.
func Compile(nodes []*model.Node, groups []*model.Group, opt Options) (*Result, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var st Stats
	st.Original = len(nodes)

	valid, rejected := Validate(nodes, logger)
	st.Invalid = len(rejected)
	st.PostValidation = len(valid)

	unique := Dedup(valid)
	st.PostDedup = len(unique)
	st.Duplicates = st.PostValidation - st.PostDedup

	kept := NewFilter(opt.Criteria, logger).Apply(unique)
	st.PostFilter = len(kept)

	logger.Info("nodes compiled",
		"original", st.Original,
		"invalid", st.Invalid,
		"duplicates", st.Duplicates,
		"post_filter", st.PostFilter,
	)

	if len(kept) == 0 {
		code, msg := "NO_MATCHING_NODES", "过滤后没有剩余节点"
		if st.PostDedup == 0 {
			code, msg = "NO_VALID_NODES", "没有任何有效节点"
		}
		return nil, &CompileError{
			AppError: model.AppError{
				Code:    code,
				Message: msg,
				Stage:   "compile",
				Hint:    fmt.Sprintf("original=%d invalid=%d", st.Original, st.Invalid),
			},
		}
	}

	renamed := Rename(kept, opt.Criteria.Name)
	return &Result{
		Nodes:    renamed,
		Groups:   Reconcile(groups, model.NodeNames(renamed)),
		Stats:    st,
		Rejected: rejected,
	}, nil
}
