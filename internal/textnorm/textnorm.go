// Package textnorm cleans scraped page text before it is handed to a language model.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*?>`)
	urlPattern     = regexp.MustCompile(`https?://(?:[$-_a-z@.&+!*(),]|%[0-9a-fA-F]{2})+`)
	specialPattern = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

// Normalize strips markup tags, absolute URLs and every character that is not an
// ASCII letter, digit or space, then collapses whitespace runs into single spaces.
//
// Newlines and tabs are turned into spaces before the character filter runs so that
// words separated only by a line break do not get glued together.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = tagPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', '\v', '\f':
			return ' '
		}
		return r
	}, text)
	text = specialPattern.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}
