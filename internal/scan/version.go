package scan

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// Undef is the version reported when no declaration is found or when the
// declared expression is too dynamic for the narrow evaluator.
const Undef = "undef"

// versionDeclRe matches a (possibly package-qualified) VERSION variable
// being assigned, e.g. `our $VERSION = '1.23';` or `$Foo::Bar::VERSION = 2`.
var versionDeclRe = regexp.MustCompile(`^\s*(?:our\s+|my\s+|local\s+)?[$*](?:[\w:']*\b)?VERSION\b\s*=\s*([^=].*?)\s*$`)

// docStartRe matches the start of a documentation block: a block marker
// immediately followed by a word, e.g. "=head1" or "=pod".
var docStartRe = regexp.MustCompile(`^=(\w+)`)

// ParseVersionFile opens path and extracts its declared version string.
func ParseVersionFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	return ParseVersion(fh), nil
}

// ParseVersion scans source line by line for the first version declaration
// outside documentation blocks and comments, and evaluates just that line.
// The scan stops at the first match.
func ParseVersion(r io.Reader) string {
	inDoc := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := docStartRe.FindStringSubmatch(line); m != nil {
			// "=cut" ends a block; any other marker starts one.
			inDoc = m[1] != "cut"
			continue
		}
		if inDoc {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		m := versionDeclRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v, ok := evalVersionExpr(m[1]); ok {
			return v
		}
		return Undef
	}
	return Undef
}

// evalVersionExpr evaluates the right-hand side of a version declaration
// in a tiny sandbox: literals and simple concatenations only. The original
// tool evaluated arbitrary code found on that line; narrowing the accepted
// forms is a deliberate safety choice.
func evalVersionExpr(expr string) (string, bool) {
	expr = strings.TrimSpace(truncateExpr(expr))
	if expr == "" {
		return "", false
	}

	var parts []string
	for _, term := range splitConcat(expr) {
		v, ok := evalTerm(strings.TrimSpace(term))
		if !ok {
			return "", false
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ""), true
}

// truncateExpr cuts the expression at the first statement terminator or
// comment outside of quotes, so trailing `;` and `# remarks` do not defeat
// the evaluator.
func truncateExpr(expr string) string {
	var quote byte
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ';' || ch == '#':
			return expr[:i]
		}
	}
	return expr
}

// splitConcat splits on the string-concatenation operator at the top
// level, leaving dots inside quotes and numbers alone.
func splitConcat(expr string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '.' && i > 0 && i+1 < len(expr) &&
			!(isDigitish(expr[i-1]) && isDigitish(expr[i+1])):
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	return append(parts, expr[start:])
}

// isDigitish reports whether b can sit inside a numeric literal, which is
// how a decimal point is told apart from the concatenation operator.
func isDigitish(b byte) bool {
	return (b >= '0' && b <= '9') || b == '_'
}

var (
	numberRe  = regexp.MustCompile(`^[0-9][0-9_]*(?:\.[0-9_]+)?$`)
	vstringRe = regexp.MustCompile(`^v[0-9]+(?:\.[0-9]+)*$`)
	quoteRe   = regexp.MustCompile(`^(?:'([^']*)'|"([^"]*)")$`)
	qRe       = regexp.MustCompile(`^qq?\s*([({\[<'/])(.*)[)}\]>'/]$`)
	wrapperRe = regexp.MustCompile(`^(?:qv|version->declare)\s*\(\s*(.+?)\s*\)$`)
)

// evalTerm evaluates a single literal term, or fails.
func evalTerm(term string) (string, bool) {
	switch {
	case numberRe.MatchString(term):
		return strings.ReplaceAll(term, "_", ""), true
	case vstringRe.MatchString(term):
		return term, true
	}
	if m := quoteRe.FindStringSubmatch(term); m != nil {
		return literalString(m[1] + m[2])
	}
	if m := qRe.FindStringSubmatch(term); m != nil {
		return literalString(m[2])
	}
	if m := wrapperRe.FindStringSubmatch(term); m != nil {
		return evalTerm(m[1])
	}
	return "", false
}

// literalString accepts a quoted body only when it carries no
// interpolation or escapes worth worrying about.
func literalString(s string) (string, bool) {
	if strings.ContainsAny(s, "$@\\") {
		return "", false
	}
	return s, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
