package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// paragraphSentinel marks a paragraph boundary while other whitespace is
// collapsed. U+FDD0 is a Unicode noncharacter, so it is stripped from the
// input first and cannot collide with document content.
const paragraphSentinel = "\uFDD0"

var (
	hyphenBreak   = regexp.MustCompile(`-\n`)
	paragraphGap  = regexp.MustCompile(`\n{2,}`)
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)
	sentinelRun   = regexp.MustCompile(`[\s\p{Z}]*` + paragraphSentinel + `(?:[\s\p{Z}]*` + paragraphSentinel + `)*[\s\p{Z}]*`)
)

// Normalize cleans raw extracted text. It applies NFKC normalization,
// joins words split by a hyphen at a line break, collapses whitespace and
// keeps every run of two or more line breaks as exactly one blank line.
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ReplaceAll(s, paragraphSentinel, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = hyphenBreak.ReplaceAllString(s, "")
	s = paragraphGap.ReplaceAllString(s, paragraphSentinel)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, paragraphSentinel+" ")
	s = sentinelRun.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
