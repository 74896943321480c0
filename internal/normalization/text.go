package normalization

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	urlRe        = regexp.MustCompile(`(?m)https?\S+|www\S+`)
	truncationRe = regexp.MustCompile(`\[\+\d+ chars\]`)
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s.!?]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanText prepares free text for NLP: lowercased, without HTML tags, URLs,
// "[+N chars]" truncation markers or punctuation other than . ! ?, and with
// whitespace collapsed.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = htmlTagRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, "")
	s = truncationRe.ReplaceAllString(s, "")
	s = nonWordRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Ticker normalizes a stock symbol for lookups.
func Ticker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FirstNonEmpty returns the first value that is non-nil and not blank.
func FirstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return ""
}

// OrDefault returns def when v is nil or blank.
func OrDefault(v *string, def string) string {
	if s := FirstNonEmpty(v); s != "" {
		return s
	}
	return def
}
