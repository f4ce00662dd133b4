// Package text normalizes input text before it is sent for speech synthesis.
//
// The remote models read raw text well; normalization only removes the
// typographic noise that makes them stumble (smart quotes, stray whitespace,
// repeated punctuation) and expands a few abbreviations that are otherwise
// spelled out letter by letter.
package text

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for normalization.
const (
	urlRegexPattern        = `https?://\S+`
	emailRegexPattern      = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	whitespaceRegexPattern = `\s+`
	repeatedPunctPattern   = `([!?,;:])[!?,;:]+`
	longDotsPattern        = `\.{4,}`
)

// Placeholders protect URLs and emails from the cleanup passes.
const (
	urlPlaceholderPattern   = "\x00URL%d\x00"
	emailPlaceholderPattern = "\x00EMAIL%d\x00"
)

const ellipsis = "..."

// Normalizer rewrites text into a form that synthesizes cleanly.
// It is safe for concurrent use once constructed.
type Normalizer struct {
	urlPattern           *regexp.Regexp
	emailPattern         *regexp.Regexp
	whitespacePattern    *regexp.Regexp
	repeatedPunctuation  *regexp.Regexp
	longDots             *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	typographyReplacer   *strings.Replacer
}

// NewNormalizer compiles the patterns and replacers once.
func NewNormalizer() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Missus",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
		"e.g.", "for example",
		"i.e.", "that is",
		"etc.", "et cetera",
	}

	typography := []string{
		"—", " - ",
		"–", "-",
		"‒", "-",
		"…", ellipsis,
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"\u00a0", " ",
	}

	return &Normalizer{
		urlPattern:           regexp.MustCompile(urlRegexPattern),
		emailPattern:         regexp.MustCompile(emailRegexPattern),
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		repeatedPunctuation:  regexp.MustCompile(repeatedPunctPattern),
		longDots:             regexp.MustCompile(longDotsPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		typographyReplacer:   strings.NewReplacer(typography...),
	}
}

// Normalize returns the cleaned text. Empty or whitespace-only input yields "".
func (n *Normalizer) Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	preserved, placeholders := n.preserveTokens(input)

	cleaned := n.typographyReplacer.Replace(preserved)
	cleaned = n.abbreviationReplacer.Replace(cleaned)
	cleaned = n.repeatedPunctuation.ReplaceAllString(cleaned, "$1")
	cleaned = n.longDots.ReplaceAllString(cleaned, ellipsis)
	cleaned = strings.TrimSpace(n.whitespacePattern.ReplaceAllString(cleaned, " "))

	for placeholder, original := range placeholders {
		cleaned = strings.ReplaceAll(cleaned, placeholder, original)
	}

	return ensureSentenceEnding(cleaned)
}

// preserveTokens swaps URLs and emails for placeholders, URLs first so an
// address inside a URL stays part of it.
func (n *Normalizer) preserveTokens(input string) (string, map[string]string) {
	placeholders := make(map[string]string)
	counter := 0

	replace := func(text string, pattern *regexp.Regexp, format string) string {
		return pattern.ReplaceAllStringFunc(text, func(match string) string {
			placeholder := fmt.Sprintf(format, counter)
			placeholders[placeholder] = match
			counter++

			return placeholder
		})
	}

	output := replace(input, n.urlPattern, urlPlaceholderPattern)
	output = replace(output, n.emailPattern, emailPlaceholderPattern)

	return output, placeholders
}

func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)

	switch {
	case lastChar == '.' || lastChar == '!' || lastChar == '?':
		return text
	case lastChar == '"' || lastChar == '\'' || lastChar == ')':
		return text
	case unicode.IsPunct(lastChar):
		return strings.TrimRightFunc(text, unicode.IsPunct) + "."
	default:
		return text + "."
	}
}
