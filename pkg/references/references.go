// Package references rewrites step references held inside interpolation tokens.
//
// A token is the text between "{{" and the next "}}" that is not inside a
// string literal. Within a token, quoted literals ('…', "…", `…`) are left
// alone and an identifier is a maximal run of letters, digits, '_' and '$'.
// An identifier is a step reference when it names a renamed step and is not a
// property access, i.e. not preceded by '.'. Text outside tokens is never
// changed.
package references

import (
	"strings"

	"github.com/dukex/flowops/pkg/models"
)

const (
	tokenOpen  = "{{"
	tokenClose = "}}"
)

// RewriteAll walks strings, maps and slices and returns a new value where every
// step reference found in renames points at its new name. Map keys are kept.
func RewriteAll(value any, renames map[string]string) any {
	if len(renames) == 0 {
		return models.CloneValue(value)
	}

	switch v := value.(type) {
	case string:
		return RewriteString(v, renames)
	case map[string]any:
		return rewriteMap(v, renames)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RewriteAll(item, renames)
		}

		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = RewriteString(item, renames)
		}

		return out
	default:
		return v
	}
}

func rewriteMap(m map[string]any, renames map[string]string) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for key, item := range m {
		out[key] = RewriteAll(item, renames)
	}

	return out
}

// RewriteString rewrites the step references of every token in s.
func RewriteString(s string, renames map[string]string) string {
	if len(renames) == 0 || !strings.Contains(s, tokenOpen) {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	rest := s
	for {
		start := strings.Index(rest, tokenOpen)
		if start < 0 {
			b.WriteString(rest)

			break
		}

		body := rest[start+len(tokenOpen):]

		end := closingIndex(body)
		if end < 0 {
			b.WriteString(rest)

			break
		}

		b.WriteString(rest[:start+len(tokenOpen)])
		b.WriteString(rewriteExpression(body[:end], renames))
		b.WriteString(tokenClose)

		rest = body[end+len(tokenClose):]
	}

	return b.String()
}

// closingIndex returns the index of the "}}" closing a token body, skipping
// string literals, or -1.
func closingIndex(body string) int {
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case isQuote(c):
			i = literalEnd(body, i)
		case strings.HasPrefix(body[i:], tokenClose):
			return i
		}
	}

	return -1
}

// literalEnd returns the index of the quote closing the literal opened at
// start, or the last index when the literal is unterminated.
func literalEnd(s string, start int) int {
	quote := s[start]

	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}

	return len(s) - 1
}

func rewriteExpression(expr string, renames map[string]string) string {
	var b strings.Builder

	b.Grow(len(expr))

	scanIdentifiers(expr, func(ident string, isReference bool) {
		if newName, ok := renames[ident]; ok && isReference {
			b.WriteString(newName)

			return
		}

		b.WriteString(ident)
	}, func(text string) {
		b.WriteString(text)
	})

	return b.String()
}

// scanIdentifiers splits expr into identifiers and everything else. onOther may
// be nil when only identifiers matter.
func scanIdentifiers(expr string, onIdent func(ident string, isReference bool), onOther func(text string)) {
	var previous byte

	emit := func(text string) {
		if onOther != nil {
			onOther(text)
		}
	}

	for i := 0; i < len(expr); {
		c := expr[i]

		switch {
		case isQuote(c):
			end := literalEnd(expr, i)
			emit(expr[i : end+1])
			previous = c
			i = end + 1
		case isIdentByte(c):
			start := i
			for i < len(expr) && isIdentByte(expr[i]) {
				i++
			}

			onIdent(expr[start:i], previous != '.')
			previous = expr[i-1]
		default:
			emit(expr[i : i+1])

			if !isSpace(c) {
				previous = c
			}

			i++
		}
	}
}

// RewriteStep returns a copy of step whose settings point at the renamed steps.
// Source code is not rewritten.
func RewriteStep(step *models.Step, renames map[string]string) *models.Step {
	clone := step.Clone()

	if clone.Code != nil {
		clone.Code.Input = rewriteMap(clone.Code.Input, renames)
	}

	if clone.Piece != nil {
		clone.Piece.Input = rewriteMap(clone.Piece.Input, renames)
	}

	if clone.Loop != nil {
		clone.Loop.Items = RewriteString(clone.Loop.Items, renames)
	}

	if clone.Router != nil {
		for i := range clone.Router.Branches {
			clone.Router.Branches[i].Conditions = RewriteConditions(clone.Router.Branches[i].Conditions, renames)
		}
	}

	return clone
}

// RewriteConditions returns a copy of conditions with rewritten values.
func RewriteConditions(conditions [][]models.Condition, renames map[string]string) [][]models.Condition {
	if conditions == nil {
		return nil
	}

	out := make([][]models.Condition, len(conditions))
	for i, group := range conditions {
		out[i] = make([]models.Condition, len(group))
		for j, condition := range group {
			condition.FirstValue = RewriteString(condition.FirstValue, renames)
			condition.SecondValue = RewriteString(condition.SecondValue, renames)
			out[i][j] = condition
		}
	}

	return out
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
