// Package lexical defines the text query language evaluated by local
// indexes.
//
// A query is a whitespace-separated list of terms. A bare term matches that
// token in any string field; a term written as field:token matches only in
// the named field. Terms combine as a conjunction: a document is a candidate
// only when every term matches, and relevance sums the per-term scores.
//
// The empty string and the sentinel "*:*" both parse as the match-all query,
// which places no restriction on candidates.
package lexical

import (
	"fmt"
	"strings"
)

// MatchAll is the sentinel query string matching every document.
const MatchAll = "*:*"

// Term is one parsed token of a query. An empty Field matches the token in
// any string field.
type Term struct {
	Field string
	Text  string
}

// String implements fmt.Stringer.
func (t Term) String() string {
	if t.Field == "" {
		return t.Text
	}
	return t.Field + ":" + t.Text
}

// Query is a parsed text query. The zero value is the match-all query.
type Query struct {
	terms []Term
}

// MatchAll reports whether the query matches every document.
func (q Query) MatchAll() bool { return len(q.terms) == 0 }

// Terms returns the parsed terms. Match-all queries have none.
func (q Query) Terms() []Term { return q.terms }

// String implements fmt.Stringer.
func (q Query) String() string {
	if q.MatchAll() {
		return MatchAll
	}
	parts := make([]string, len(q.terms))
	for i, t := range q.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// QueryError reports a text query that could not be parsed.
type QueryError struct {
	Query  string
	Reason string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("parse text query %q: %s", e.Query, e.Reason)
}

// Parse parses a text query. Tokens are lowercased, so matching is
// case-insensitive.
func Parse(s string) (Query, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == MatchAll {
		return Query{}, nil
	}

	tokens := Tokenize(trimmed)
	terms := make([]Term, 0, len(tokens))

	for _, tok := range tokens {
		if tok == MatchAll {
			return Query{}, &QueryError{Query: s, Reason: "match-all must be the entire query"}
		}

		field, text, scoped := strings.Cut(tok, ":")
		if !scoped {
			terms = append(terms, Term{Text: tok})
			continue
		}
		if field == "" {
			return Query{}, &QueryError{Query: s, Reason: fmt.Sprintf("term %q has an empty field", tok)}
		}
		if text == "" {
			return Query{}, &QueryError{Query: s, Reason: fmt.Sprintf("term %q has an empty token", tok)}
		}
		terms = append(terms, Term{Field: field, Text: text})
	}

	return Query{terms: terms}, nil
}

// MustParse is like Parse but panics on error. Intended for queries fixed at
// compile time.
func MustParse(s string) Query {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

// Tokenize lowercases text and splits it on whitespace. Indexing and query
// parsing share it, so both sides agree on token boundaries.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
