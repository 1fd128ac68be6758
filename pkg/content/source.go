package content

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a lookup is attempted with a blank query.
var ErrEmptyQuery = errors.New("empty query")

// Content is the result of a single lookup against a content source.
type Content struct {
	Exists bool   `json:"exists"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Source resolves a query into reference text.
type Source interface {
	Lookup(ctx context.Context, query string) (Content, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, query string) (Content, error)

func (f SourceFunc) Lookup(ctx context.Context, query string) (Content, error) {
	return f(ctx, query)
}

// NormalizeQuery trims the query and collapses internal whitespace so that
// "  Go   language " and "Go language" share a cache slot.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
