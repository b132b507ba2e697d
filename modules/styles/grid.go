package styles

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var repeatRe = regexp.MustCompile(`repeat\(\s*(\d+)\s*,\s*([^()]+(?:\([^()]*\)[^()]*)*)\)`)

// AddGridFallbacks rewrites a stylesheet so every grid declaration is
// preceded by its -ms- equivalent where one exists.
func AddGridFallbacks(src []byte) ([]byte, error) {
	p := css.NewParser(parse.NewInput(bytes.NewReader(src)), false)
	var out bytes.Buffer

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, p.Err()
		case css.DeclarationGrammar:
			value := joinTokens(p.Values())
			for _, decl := range msGridDeclarations(strings.ToLower(string(data)), value) {
				out.WriteString(decl)
				out.WriteByte(';')
			}
			out.Write(data)
			out.WriteByte(':')
			out.WriteString(value)
			out.WriteByte(';')
		case css.CustomPropertyGrammar:
			out.Write(data)
			out.WriteByte(':')
			out.WriteString(joinTokens(p.Values()))
			out.WriteByte(';')
		case css.AtRuleGrammar, css.BeginAtRuleGrammar, css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			out.Write(data)
			if gt == css.AtRuleGrammar || gt == css.BeginAtRuleGrammar {
				if vals := p.Values(); len(vals) > 0 {
					out.WriteByte(' ')
					out.WriteString(strings.TrimSpace(joinTokens(vals)))
				}
			} else {
				out.WriteString(joinTokens(p.Values()))
			}
			switch gt {
			case css.AtRuleGrammar:
				out.WriteByte(';')
			case css.QualifiedRuleGrammar:
				out.WriteByte(',')
			default:
				out.WriteByte('{')
			}
		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			// The last declaration of a block needs no terminator.
			if b := out.Bytes(); len(b) > 0 && b[len(b)-1] == ';' {
				out.Truncate(out.Len() - 1)
			}
			out.Write(data)
		default:
			out.Write(data)
		}
	}
}

func joinTokens(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}

// msGridDeclarations returns the -ms- declarations to emit ahead of the
// declaration prop:value, or nil for anything without an equivalent.
func msGridDeclarations(prop, value string) []string {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	important := ""
	if i := strings.Index(lower, "!important"); i >= 0 {
		important = "!important"
		v = strings.TrimSpace(v[:i])
		lower = strings.TrimSpace(lower[:i])
	}

	switch prop {
	case "display":
		switch lower {
		case "grid":
			return []string{"display:-ms-grid" + important}
		case "inline-grid":
			return []string{"display:-ms-inline-grid" + important}
		}
	case "grid-template-columns", "grid-template-rows":
		if strings.Contains(lower, "auto-fill") || strings.Contains(lower, "auto-fit") || strings.Contains(v, "[") {
			return nil
		}
		track := repeatRe.ReplaceAllString(v, "($2)[$1]")
		name := "-ms-grid-columns"
		if prop == "grid-template-rows" {
			name = "-ms-grid-rows"
		}
		return []string{name + ":" + track + important}
	case "grid-column", "grid-row":
		axis := strings.TrimPrefix(prop, "grid-")
		start, span, ok := parsePlacement(lower)
		if !ok {
			return nil
		}
		var decls []string
		if start > 0 {
			decls = append(decls, "-ms-grid-"+axis+":"+strconv.Itoa(start)+important)
		}
		if span > 1 {
			decls = append(decls, "-ms-grid-"+axis+"-span:"+strconv.Itoa(span)+important)
		}
		return decls
	case "grid-column-start", "grid-row-start":
		axis := strings.TrimSuffix(strings.TrimPrefix(prop, "grid-"), "-start")
		if n, err := strconv.Atoi(lower); err == nil && n > 0 {
			return []string{"-ms-grid-" + axis + ":" + strconv.Itoa(n) + important}
		}
	case "align-self":
		return []string{"-ms-grid-row-align:" + v + important}
	case "justify-self":
		return []string{"-ms-grid-column-align:" + v + important}
	}
	return nil
}

// parsePlacement understands "N", "N/M", "N/span S" and "span S". A zero
// start means the placement only sets a span.
func parsePlacement(v string) (start, span int, ok bool) {
	parts := strings.Split(v, "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 2 {
		return 0, 0, false
	}

	if s, found := strings.CutPrefix(parts[0], "span"); found {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 || len(parts) != 1 {
			return 0, 0, false
		}
		return 0, n, true
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1 {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return start, 1, true
	}

	if s, found := strings.CutPrefix(parts[1], "span"); found {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return 0, 0, false
		}
		return start, n, true
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end <= start {
		return 0, 0, false
	}
	return start, end - start, true
}
