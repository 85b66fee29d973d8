package grading

import (
	"regexp"
	"strings"

	"codequest/internal/domain/model"
)

// ComplexityReport carries the structural metrics of a submission plus
// the derived score and bonus. The analysis is a language-agnostic
// textual heuristic tuned for brace-delimited imperative code; it is a
// secondary scoring signal, not a verified complexity measurement.
type ComplexityReport struct {
	Metrics     model.ComplexityMetrics
	Score       float64 // 0..100, higher = simpler
	BonusPoints float64 // 0..20
}

// Decision-point patterns. "else if (" is counted once through the
// plain if pattern.
var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bif\s*\(`),
	regexp.MustCompile(`\bwhile\s*\(`),
	regexp.MustCompile(`\bfor\s*\(`),
	regexp.MustCompile(`\bswitch\s*\(`),
	regexp.MustCompile(`\bcatch\s*\(`),
	regexp.MustCompile(`\bcase\s`),
	regexp.MustCompile(`&&`),
	regexp.MustCompile(`\|\|`),
	regexp.MustCompile(`\?[^:?]*:`), // ternary
}

var methodHeaderRe = regexp.MustCompile(`(?:\bfunction\s+([A-Za-z_]\w*)\s*\(|([A-Za-z_]\w*)\s*\([^()]*\)\s*\{)`)

// Control keywords whose "name(...) {" shape would otherwise look like a
// method header.
var headerKeywords = map[string]bool{
	"if": true, "else": true, "while": true, "for": true, "switch": true,
	"catch": true, "return": true, "do": true, "try": true, "new": true,
}

func AnalyzeComplexity(source string) ComplexityReport {
	lines := stripComments(strings.Split(source, "\n"))

	loc := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			loc++
		}
	}

	stripped := strings.Join(lines, "\n")

	cyclomatic := 1
	for _, p := range decisionPatterns {
		cyclomatic += len(p.FindAllStringIndex(stripped, -1))
	}

	depth, maxDepth := 0, 0
	for _, ch := range stripped {
		switch ch {
		case '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}':
			depth--
		}
	}

	recursion := hasRecursion(stripped)

	raw := 100 - (2*float64(cyclomatic) + float64(loc)/10 + 5*float64(maxDepth))
	if recursion {
		raw -= 10
	}
	score := round2(clamp(raw, 0, 100))
	bonus := round2(score / 100 * 20)

	return ComplexityReport{
		Metrics: model.ComplexityMetrics{
			CyclomaticComplexity: cyclomatic,
			LinesOfCode:          loc,
			MaxNestingDepth:      maxDepth,
			HasRecursion:         recursion,
		},
		Score:       score,
		BonusPoints: bonus,
	}
}

// stripComments removes // and /* */ comments per physical line; the
// block-comment state carries across lines. String literals are not
// tracked, which is acceptable for a scoring heuristic.
func stripComments(lines []string) []string {
	out := make([]string, len(lines))
	inBlock := false
	for i, line := range lines {
		var b strings.Builder
		for j := 0; j < len(line); {
			if inBlock {
				if end := strings.Index(line[j:], "*/"); end >= 0 {
					j += end + 2
					inBlock = false
					continue
				}
				j = len(line)
				continue
			}
			if strings.HasPrefix(line[j:], "//") {
				j = len(line)
				continue
			}
			if strings.HasPrefix(line[j:], "/*") {
				inBlock = true
				j += 2
				continue
			}
			b.WriteByte(line[j])
			j++
		}
		out[i] = b.String()
	}
	return out
}

// hasRecursion reports whether any detected method calls itself within
// its own textual body span. Method boundaries come from a regexp, the
// body span from brace balancing; both can misfire on exotic layouts,
// and that imprecision is deliberately kept (scoring signal only).
func hasRecursion(source string) bool {
	for _, m := range methodHeaderRe.FindAllStringSubmatchIndex(source, -1) {
		name := submatch(source, m, 1)
		if name == "" {
			name = submatch(source, m, 2)
		}
		if name == "" || headerKeywords[name] {
			continue
		}

		open := strings.IndexByte(source[m[0]:], '{')
		if open < 0 {
			continue
		}
		body := methodBody(source[m[0]+open:])
		if body == "" {
			continue
		}

		callRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
		if callRe.MatchString(body) {
			return true
		}
	}
	return false
}

// methodBody returns the text between the opening brace at the start of
// s and its matching close brace, exclusive.
func methodBody(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[1:i]
			}
		}
	}
	return ""
}

func submatch(s string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return s[idx[2*n]:idx[2*n+1]]
}
