// Package query turns a client's keyword list into a boolean search string.
package query

import (
	"strings"
)

const defaultOperator = "OR"

// Build joins keywords into a boolean query. Keywords containing whitespace are quoted.
// When ops is non-empty, the operator placed before keyword i is ops[keywords[i-1]], defaulting to OR.
func Build(keywords []string, ops map[string]string) string {
	if len(keywords) == 0 {
		return ""
	}

	var b strings.Builder
	for i, kw := range keywords {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(operatorAfter(keywords[i-1], ops))
			b.WriteByte(' ')
		}
		b.WriteString(quoteIfSpaced(kw))
	}
	return b.String()
}

// Quoted joins every keyword in double quotes with OR, the form used by search-engine RSS queries.
func Quoted(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		parts = append(parts, `"`+kw+`"`)
	}
	return strings.Join(parts, " "+defaultOperator+" ")
}

func operatorAfter(prev string, ops map[string]string) string {
	if len(ops) == 0 {
		return defaultOperator
	}
	op, ok := ops[prev]
	if !ok {
		return defaultOperator
	}
	op = strings.ToUpper(strings.TrimSpace(op))
	switch op {
	case "AND", "OR", "NOT":
		return op
	}
	return defaultOperator
}

func quoteIfSpaced(kw string) string {
	if strings.ContainsFunc(kw, isSpace) {
		return `"` + kw + `"`
	}
	return kw
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
