package pgdump

import (
	"bufio"
	"bytes"
	"strings"
)

var noisePrefixes = []string{
	"--",
	"SET ",
	"SELECT pg_catalog.",
	"COMMENT ON ",
	// psql meta-commands such as \restrict.
	`\`,
}

// Strip reduces pg_dump output to its DDL statements. Comments, session settings, catalog calls
// and psql meta-commands are dropped, the "public." schema qualifier is removed from identifiers and
// runs of blank lines collapse into one. Quoted literals, quoted identifiers and dollar-quoted
// bodies are left untouched. The result ends with a single newline, or is nil when nothing is left.
func Strip(raw []byte) []byte {
	var (
		out       bytes.Buffer
		qualifier qualifierStripper
	)
	prevBlank := true
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if qualifier.quoted() {
			// Continuation of a literal or function body: kept verbatim.
			prevBlank = false
		} else {
			if isNoise(trimmed) {
				continue
			}
			blank := trimmed == ""
			if blank && prevBlank {
				continue
			}
			prevBlank = blank
			if strings.HasPrefix(trimmed, "CREATE EXTENSION ") {
				line = strings.Replace(line, " WITH SCHEMA public;", ";", 1)
			}
		}
		line = qualifier.strip(line)
		out.WriteString(line)
		out.WriteByte('\n')
	}
	result := bytes.TrimSpace(out.Bytes())
	if len(result) == 0 {
		return nil
	}
	return append(result, '\n')
}

func isNoise(trimmed string) bool {
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

const publicQualifier = "public."

// qualifierStripper removes the public schema qualifier from identifiers. It carries the quoting
// state from one line to the next, since literals and function bodies may span lines.
type qualifierStripper struct {
	quote     byte   // ' or " while inside a quoted literal or identifier
	dollarTag string // the open $tag$ while inside a dollar-quoted body
}

func (q *qualifierStripper) quoted() bool {
	return q.quote != 0 || q.dollarTag != ""
}

func (q *qualifierStripper) strip(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case q.dollarTag != "":
			if strings.HasPrefix(line[i:], q.dollarTag) {
				b.WriteString(q.dollarTag)
				i += len(q.dollarTag)
				q.dollarTag = ""
				continue
			}
		case q.quote != 0:
			// A doubled quote is an escaped quote and toggles twice.
			if c == q.quote {
				q.quote = 0
			}
		case c == '\'' || c == '"':
			q.quote = c
		case c == '$':
			if tag := dollarTagAt(line[i:]); tag != "" {
				b.WriteString(tag)
				i += len(tag)
				q.dollarTag = tag
				continue
			}
		case strings.HasPrefix(line[i:], publicQualifier) && (i == 0 || isQualifierBoundary(line[i-1])):
			i += len(publicQualifier)
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isQualifierBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '(', ',', ':', '=':
		return true
	}
	return false
}

// dollarTagAt returns the dollar-quote tag ($$ or $name$) at the start of s, or "".
func dollarTagAt(s string) string {
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			return s[:i+1]
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 1 && c >= '0' && c <= '9':
		default:
			return ""
		}
	}
	return ""
}
