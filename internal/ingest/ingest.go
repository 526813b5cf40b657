// Package ingest turns one fetched payload into a document by trying an
// ordered chain of parsing strategies.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/John-Robertt/submerge/internal/decode"
	"github.com/John-Robertt/submerge/internal/document"
	"github.com/John-Robertt/submerge/internal/model"
	"github.com/John-Robertt/submerge/internal/sub"
)

// Outcome is the result of one strategy: a document, or the reason the
// strategy does not apply.
type Outcome struct {
	Document *model.Document
	Reason   string
}

func Parsed(doc *model.Document) Outcome { return Outcome{Document: doc} }

func NotApplicable(format string, args ...any) Outcome {
	return Outcome{Reason: fmt.Sprintf(format, args...)}
}

func (o Outcome) OK() bool { return o.Document != nil }

// Strategy is one named way of reading a payload.
type Strategy struct {
	Name  string
	Apply func(p decode.Payload) Outcome
}

// Strategies lists the parsing strategies in the order they are tried.
var Strategies = []Strategy{
	{Name: "single-line-blob", Apply: singleLineBlob},
	{Name: "uri-list", Apply: uriList},
	{Name: "document", Apply: decodedDocument},
	{Name: "document-original", Apply: originalDocument},
}

// Attempt records why a strategy was skipped.
type Attempt struct {
	Strategy string
	Reason   string
}

type ParseError struct {
	AppError model.AppError
	Attempts []Attempt
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
}

// Result is a successfully ingested payload.
type Result struct {
	Document *model.Document
	Strategy string
	Passes   int
}

// Parse decodes text and returns the document produced by the first
// applicable strategy.
func Parse(text string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return parsePayload(decode.Decode(text), logger)
}

func parsePayload(payload decode.Payload, logger *slog.Logger) (*Result, error) {
	attempts := make([]Attempt, 0, len(Strategies))
	for _, s := range Strategies {
		out := s.Apply(payload)
		if out.OK() {
			logger.Debug("payload parsed",
				"strategy", s.Name,
				"base64_passes", payload.Passes,
				"nodes", len(out.Document.Nodes),
			)
			return &Result{Document: out.Document, Strategy: s.Name, Passes: payload.Passes}, nil
		}
		attempts = append(attempts, Attempt{Strategy: s.Name, Reason: out.Reason})
	}

	reasons := make([]string, len(attempts))
	for i, a := range attempts {
		reasons[i] = a.Strategy + ": " + a.Reason
	}
	return nil, &ParseError{
		AppError: model.AppError{
			Code:    "NO_PARSING_STRATEGY",
			Message: "no parsing strategy succeeded",
			Stage:   "parse",
			Snippet: snippet(payload.Original),
			Hint:    strings.Join(reasons, "; "),
		},
		Attempts: attempts,
	}
}

func singleLineBlob(p decode.Payload) Outcome {
	text, ok := decode.SingleLineBlob(p.Original)
	if !ok {
		return NotApplicable("not a single-line base64 blob")
	}
	return fromList(text)
}

func uriList(p decode.Payload) Outcome {
	if k := decode.Classify(p.Text); k != decode.KindURIList {
		return NotApplicable("classified as %s", k)
	}
	return fromList(p.Text)
}

func decodedDocument(p decode.Payload) Outcome {
	return fromDocument(p.Text)
}

func originalDocument(p decode.Payload) Outcome {
	if !p.Decoded() {
		return NotApplicable("payload was not decoded")
	}
	return fromDocument(p.Original)
}

func fromList(text string) Outcome {
	nodes, stats := sub.ParseList(text)
	if len(nodes) == 0 {
		return NotApplicable("no URI parsed (%d lines, %d failed)", stats.Lines, stats.Failed)
	}
	return Parsed(FromURIList(nodes))
}

func fromDocument(text string) Outcome {
	doc, err := document.Parse(text)
	if err != nil {
		return NotApplicable("%v", err)
	}
	return Parsed(doc)
}

func snippet(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if len(s) <= 200 {
		return s
	}
	return s[:200]
}
