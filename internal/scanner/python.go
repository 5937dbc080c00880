package scanner

import (
	"regexp"
	"strings"

	"github.com/olegasics/VectorScan/internal/models"
)

var (
	pyClassRe  = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)`)
	pyDefRe    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyAssignRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=([^=]|$)`)
)

var pyKeywords = map[string]bool{
	"else": true, "elif": true, "if": true, "try": true, "except": true, "finally": true,
	"while": true, "for": true, "with": true, "lambda": true, "return": true, "pass": true,
}

type pythonParser struct {
	marker string
}

func (p *pythonParser) Language() string     { return models.LanguagePython }
func (p *pythonParser) Extensions() []string { return []string{".py"} }

// Parse finds classes decorated with the marker, including nested ones.
// It works on logical lines and never fails on malformed input.
func (p *pythonParser) Parse(_ string, src []byte) ([]models.MetadataRecord, error) {
	lines := pyLogicalLines(string(src))
	var out []models.MetadataRecord
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i].text, "@") {
			continue
		}
		indent := lines[i].indent
		tagged := false
		j := i
		for ; j < len(lines) && lines[j].indent == indent && strings.HasPrefix(lines[j].text, "@"); j++ {
			if p.isMarker(lines[j].text) {
				tagged = true
			}
		}
		if j >= len(lines) || lines[j].indent != indent {
			i = j - 1
			continue
		}
		m := pyClassRe.FindStringSubmatch(lines[j].text)
		if m == nil || !tagged {
			i = j - 1
			continue
		}
		rec := models.MetadataRecord{ClassName: m[1], Line: lines[j].line}
		p.fillBody(&rec, lines, j)
		out = append(out, rec)
		// Continue inside the body so nested tagged classes are found too.
		i = j
	}
	return out, nil
}

// isMarker accepts @marker, @pkg.marker and @marker(...).
func (p *pythonParser) isMarker(decorator string) bool {
	name := strings.TrimSpace(strings.TrimPrefix(decorator, "@"))
	if k := strings.IndexByte(name, '('); k >= 0 {
		name = strings.TrimSpace(name[:k])
	}
	return name == p.marker || strings.HasSuffix(name, "."+p.marker)
}

func (p *pythonParser) fillBody(rec *models.MetadataRecord, lines []pyLine, header int) {
	headIndent := lines[header].indent
	start := header + 1
	if start >= len(lines) || lines[start].indent <= headIndent {
		return
	}
	bodyIndent := lines[start].indent
	for k := start; k < len(lines) && lines[k].indent > headIndent; k++ {
		if lines[k].indent != bodyIndent {
			continue
		}
		text := lines[k].text
		if k == start {
			if doc, ok := pyStringLiteral(text); ok {
				rec.Docstring = doc
				continue
			}
		}
		if m := pyDefRe.FindStringSubmatch(text); m != nil {
			rec.Methods = append(rec.Methods, m[1])
			continue
		}
		if m := pyAssignRe.FindStringSubmatch(text); m != nil && !pyKeywords[m[1]] {
			rec.Attributes = append(rec.Attributes, m[1])
		}
	}
}

type pyLine struct {
	line   int
	indent int
	text   string
}

// pyLogicalLines joins bracketed and backslash-continued lines, keeps string contents
// intact and drops comments and blank lines.
func pyLogicalLines(src string) []pyLine {
	var (
		out   []pyLine
		buf   strings.Builder
		depth int
		quote string
		line  = 1
		start = 1
	)
	flush := func() {
		raw := buf.String()
		buf.Reset()
		text := strings.TrimSpace(raw)
		if text != "" {
			out = append(out, pyLine{line: start, indent: indentWidth(raw), text: text})
		}
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != "" {
			switch {
			case c == '\\' && i+1 < len(src):
				if src[i+1] == '\n' {
					line++
				}
				buf.WriteByte(c)
				buf.WriteByte(src[i+1])
				i++
				continue
			case strings.HasPrefix(src[i:], quote):
				buf.WriteString(quote)
				i += len(quote) - 1
				quote = ""
				continue
			case c == '\n' && len(quote) == 1:
				// Unterminated single-quoted string ends at the newline.
				quote = ""
			default:
				if c == '\n' {
					line++
				}
				buf.WriteByte(c)
				continue
			}
		}
		switch {
		case c == '#':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], `"""`) || strings.HasPrefix(src[i:], `'''`):
			quote = src[i : i+3]
			buf.WriteString(quote)
			i += 2
		case c == '"' || c == '\'':
			quote = string(c)
			buf.WriteByte(c)
		case c == '(' || c == '[' || c == '{':
			depth++
			buf.WriteByte(c)
		case c == ')' || c == ']' || c == '}':
			if depth > 0 {
				depth--
			}
			buf.WriteByte(c)
		case c == '\\' && i+1 < len(src) && src[i+1] == '\n':
			buf.WriteByte(' ')
			line++
			i++
		case c == '\n':
			line++
			if depth == 0 {
				flush()
				start = line
			} else {
				buf.WriteByte(' ')
			}
		case c == '\r':
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return out
}

func indentWidth(raw string) int {
	n := 0
	for _, c := range raw {
		switch c {
		case ' ':
			n++
		case '\t':
			n += 8 - n%8
		case '\f':
			n = 0
		default:
			return n
		}
	}
	return n
}

// pyStringLiteral returns the value of text when the whole logical line is one string literal.
func pyStringLiteral(text string) (string, bool) {
	raw := false
	k := 0
	for k < len(text) && k < 2 && strings.ContainsRune("rRuU", rune(text[k])) {
		if text[k] == 'r' || text[k] == 'R' {
			raw = true
		}
		k++
	}
	body := text[k:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			inner := body[len(q) : len(body)-len(q)]
			if len(q) == 1 && strings.Contains(inner, q) && !strings.Contains(inner, `\`+q) {
				return "", false
			}
			if !raw {
				inner = pyUnescape(inner)
			}
			return cleanDoc(inner), true
		}
	}
	return "", false
}

var pyEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\t`, "\t",
	`\"`, `"`,
	`\'`, `'`,
	"\\\n", "",
)

func pyUnescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return pyEscapes.Replace(s)
}

// cleanDoc strips the common indentation of continuation lines and surrounding blank lines.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if n := len(l) - len(trimmed); margin < 0 || n < margin {
			margin = n
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
