package tagging

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	yearPrefix    = "*py_"
	journalPrefix = "*jo_"
	unknownValue  = "unknown"
)

// YearToken returns *py_<year> for integer-like input and *py_unknown
// otherwise. Numeric values with a fraction are truncated, so spreadsheet
// cells such as "2020.0" resolve to 2020.
func YearToken(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return yearPrefix + strconv.Itoa(n), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= math.MinInt64 && f < math.MaxInt64 {
		return yearPrefix + strconv.FormatInt(int64(f), 10), true
	}
	return yearPrefix + unknownValue, false
}

// JournalToken returns *jo_ followed by the lowercase first character of every
// whitespace-separated word. Leading punctuation is kept as-is ("A&B" gives
// "a"). A nil journal gives *jo_unknown; an empty one gives *jo_.
func JournalToken(journal *string) string {
	if journal == nil {
		return journalPrefix + unknownValue
	}
	var b strings.Builder
	b.WriteString(journalPrefix)
	for _, word := range strings.Fields(*journal) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// TagToken returns *<tag>_<value>, or "" when the value is empty.
func TagToken(r ClassificationResult) string {
	if r.Value == "" {
		return ""
	}
	return "*" + strings.ToLower(r.Tag) + "_" + strings.ToLower(r.Value)
}

// BuildHeading assembles the Iramuteq heading: year, journal, then one token
// per non-empty result in the order given.
func BuildHeading(p Paper, results []ClassificationResult) string {
	year, _ := YearToken(p.Year)
	tokens := []string{year, JournalToken(p.Journal)}
	for _, r := range results {
		if tok := TagToken(r); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, " ")
}
