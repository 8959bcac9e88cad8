package listing

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// nbspReplacer folds non-breaking and narrow no-break spaces.
var nbspReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// blankRunRegex matches horizontal whitespace runs (NBSP already folded).
var blankRunRegex = regexp.MustCompile(`[ \t\f\v\r]+`)

// newlineRunRegex matches any whitespace run that contains a line break.
var newlineRunRegex = regexp.MustCompile(`[ \n]*\n[ \n]*`)

// NormalizeWhitespace folds non-breaking spaces, collapses runs of blanks to a
// single space and runs of line breaks (with surrounding blanks) to a single
// newline, then trims. NormalizeWhitespace(NormalizeWhitespace(s)) == NormalizeWhitespace(s).
func NormalizeWhitespace(s string) string {
	s = nbspReplacer.Replace(s)
	s = blankRunRegex.ReplaceAllString(s, " ")
	s = newlineRunRegex.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// crlfReplacer maps CRLF and lone CR line endings to "\n".
var crlfReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// CleanText prepares free text from an outside source for a listing file. Line
// endings become "\n", control characters other than "\n" are dropped or
// turned into spaces, each line is whitespace-collapsed, and at most one blank
// line separates paragraphs.
func CleanText(s string) string {
	s = crlfReplacer.Replace(nbspReplacer.Replace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t' || r == '\f' || r == '\v':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	var lines []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = normalizeLine(line)
		if line == "" {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// normalizeLine is NormalizeWhitespace for values that must stay on one line.
func normalizeLine(s string) string {
	return strings.Join(strings.Fields(nbspReplacer.Replace(s)), " ")
}

// DedupeKeepOrder removes case-insensitive duplicates, keeping the first
// spelling seen. Items that are empty after normalization are dropped.
func DedupeKeepOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := normalizeLine(item)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// capList returns at most n leading items. n <= 0 means no cap.
func capList(items []string, n int) []string {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// CountChars returns the character count as runes (not bytes).
// Channel limits are expressed in characters.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// shortenSeparators are tried in order; the first one found in the tail
// window wins, so line breaks are preferred over inline separators.
var shortenSeparators = []string{"\n", " • ", " | ", " — ", " - ", ". "}

// shortenFloor is the fraction of the limit below which a separator is ignored.
const shortenFloor = 0.6

// Shorten returns text unchanged when it fits in limit characters. Otherwise
// it cuts the first limit characters back to the preferred separator located
// at or after 60% of the limit, dropping the partial trailing fragment; with no
// such separator it hard-cuts at limit. The result never exceeds limit.
func Shorten(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if CountChars(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	floor := len(string(runes[:int(float64(limit)*shortenFloor)]))

	for _, sep := range shortenSeparators {
		i := strings.LastIndex(cut, sep)
		if i < floor {
			continue
		}
		if sep == ". " {
			// Keep the sentence's closing period.
			i++
		}
		return strings.TrimRight(cut[:i], " \t\n")
	}
	return strings.TrimRight(cut, " \t\n")
}
