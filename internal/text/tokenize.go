package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

// Tokenize splits normalized text into word tokens. Paragraphs are
// separated by exactly one paragraph-break token; there is none after the
// last paragraph. The result is empty when text has no words.
func Tokenize(normalized string) []Token {
	var tokens []Token
	for _, paragraph := range paragraphSplit.Split(normalized, -1) {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		if len(tokens) > 0 {
			tokens = append(tokens, ParagraphBreak())
		}
		for _, word := range words {
			tokens = append(tokens, Token{
				Text:       word,
				FocusIndex: FocusIndex(word),
				Flags:      Flags{Punctuation: endsSentence(word)},
			})
		}
	}
	return tokens
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	return strings.ContainsRune(".!?;:", r)
}
