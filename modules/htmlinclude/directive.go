package htmlinclude

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var errMalformed = errors.New("malformed include directive")

type directive struct {
	path    string
	context string
	// end is the offset just past the closing parenthesis.
	end int
}

// parseDirective parses the arguments of an include directive starting at
// pos, just after "include(".
func parseDirective(b []byte, pos int) (directive, error) {
	var d directive
	pos = skipSpace(b, pos)
	if pos >= len(b) || (b[pos] != '\'' && b[pos] != '"') {
		return d, fmt.Errorf("%w: expected a quoted path", errMalformed)
	}
	quote := b[pos]
	pos++
	start := pos
	for pos < len(b) && b[pos] != quote && b[pos] != '\n' {
		pos++
	}
	if pos >= len(b) || b[pos] != quote {
		return d, fmt.Errorf("%w: unterminated path", errMalformed)
	}
	d.path = string(b[start:pos])
	if d.path == "" {
		return d, fmt.Errorf("%w: empty path", errMalformed)
	}
	pos = skipSpace(b, pos+1)

	if pos < len(b) && b[pos] == ',' {
		pos = skipSpace(b, pos+1)
		end, err := scanJSONObject(b, pos)
		if err != nil {
			return d, err
		}
		d.context = string(b[pos:end])
		if !gjson.Valid(d.context) {
			return d, fmt.Errorf("%w: invalid JSON context %s", errMalformed, d.context)
		}
		pos = skipSpace(b, end)
	}

	if pos >= len(b) || b[pos] != ')' {
		return d, fmt.Errorf("%w: expected ')'", errMalformed)
	}
	d.end = pos + 1
	return d, nil
}

// scanJSONObject returns the offset just past the object starting at pos.
func scanJSONObject(b []byte, pos int) (int, error) {
	if pos >= len(b) || b[pos] != '{' {
		return 0, fmt.Errorf("%w: context must be a JSON object", errMalformed)
	}
	depth := 0
	inString := false
	for i := pos; i < len(b); i++ {
		c := b[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unterminated JSON context", errMalformed)
}

func skipSpace(b []byte, pos int) int {
	for pos < len(b) && (b[pos] == ' ' || b[pos] == '\t' || b[pos] == '\n' || b[pos] == '\r') {
		pos++
	}
	return pos
}
