package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/steveyegge/beadboard/internal/types"
)

// anyValue resets a field filter to "match everything".
const anyValue = "any"

// Parse converts a query string into a FilterSpec.
func Parse(input string) (types.FilterSpec, error) {
	var spec types.FilterSpec

	terms, err := tokenize(input)
	if err != nil {
		return spec, err
	}

	var words []string
	for _, term := range terms {
		if term.field == "" {
			words = append(words, term.value)
			continue
		}

		switch term.field {
		case "assignee":
			if strings.EqualFold(term.value, anyValue) {
				spec.Assignee = ""
			} else {
				spec.Assignee = term.value
			}
		case "severity", "sev":
			if strings.EqualFold(term.value, anyValue) {
				spec.Severity = nil
				continue
			}
			n, err := strconv.Atoi(term.value)
			if err != nil {
				return spec, fmt.Errorf("invalid severity %q: must be an integer or %q", term.value, anyValue)
			}
			spec.Severity = &n
		case "search", "text":
			words = append(words, term.value)
		default:
			return spec, fmt.Errorf("unknown filter field %q (want assignee, severity or search)", term.field)
		}
	}

	spec.Search = strings.Join(words, " ")
	return spec, nil
}

// Format renders spec back into the query syntax accepted by Parse.
func Format(spec types.FilterSpec) string {
	var parts []string
	if spec.Search != "" {
		if strings.ContainsFunc(spec.Search, unicode.IsSpace) || strings.ContainsAny(spec.Search, ":=") {
			parts = append(parts, strconv.Quote(spec.Search))
		} else {
			parts = append(parts, spec.Search)
		}
	}
	if spec.Assignee != "" {
		parts = append(parts, "assignee:"+quoteIfNeeded(spec.Assignee))
	}
	if spec.Severity != nil {
		parts = append(parts, "severity:"+strconv.Itoa(*spec.Severity))
	}
	return strings.Join(parts, " ")
}

func quoteIfNeeded(s string) string {
	if strings.ContainsFunc(s, unicode.IsSpace) {
		return strconv.Quote(s)
	}
	return s
}

// term is a single lexed unit: either a bare word (field == "") or a
// field:value pair.
type term struct {
	field string
	value string
}

// tokenize splits input on whitespace, honouring double-quoted phrases in
// both bare words and field values.
func tokenize(input string) ([]term, error) {
	var terms []term
	runes := []rune(input)
	pos := 0

	for {
		for pos < len(runes) && unicode.IsSpace(runes[pos]) {
			pos++
		}
		if pos >= len(runes) {
			return terms, nil
		}

		if runes[pos] == '"' {
			value, next, err := readQuoted(runes, pos)
			if err != nil {
				return nil, err
			}
			terms = append(terms, term{value: value})
			pos = next
			continue
		}

		start := pos
		for pos < len(runes) && !unicode.IsSpace(runes[pos]) && runes[pos] != ':' && runes[pos] != '=' && runes[pos] != '"' {
			pos++
		}
		word := string(runes[start:pos])

		if pos < len(runes) && (runes[pos] == ':' || runes[pos] == '=') {
			pos++
			var value string
			if pos < len(runes) && runes[pos] == '"' {
				v, next, err := readQuoted(runes, pos)
				if err != nil {
					return nil, err
				}
				value, pos = v, next
			} else {
				vstart := pos
				for pos < len(runes) && !unicode.IsSpace(runes[pos]) {
					pos++
				}
				value = string(runes[vstart:pos])
			}
			if word == "" {
				return nil, fmt.Errorf("missing field name before %q", value)
			}
			if value == "" {
				return nil, fmt.Errorf("missing value for field %q", word)
			}
			terms = append(terms, term{field: strings.ToLower(word), value: value})
			continue
		}

		terms = append(terms, term{value: word})
	}
}

// readQuoted reads a double-quoted string starting at runes[pos] == '"'.
// Backslash escapes the next rune.
func readQuoted(runes []rune, pos int) (string, int, error) {
	var sb strings.Builder
	pos++ // opening quote
	for pos < len(runes) {
		r := runes[pos]
		switch r {
		case '\\':
			if pos+1 < len(runes) {
				sb.WriteRune(runes[pos+1])
				pos += 2
				continue
			}
			return "", pos, fmt.Errorf("unterminated escape at end of query")
		case '"':
			return sb.String(), pos + 1, nil
		default:
			sb.WriteRune(r)
			pos++
		}
	}
	return "", pos, fmt.Errorf("unterminated quoted string")
}
