// Package text turns extracted document text into RSVP word tokens.
//
// The pipeline has three pure stages: Normalize cleans raw text into a
// canonical string with explicit paragraph boundaries, Tokenize splits it
// into annotated tokens for storage, and Preprocess reshapes stored tokens
// into the final units shown during playback.
package text

import "unicode/utf8"

// Flags carries timing hints for a token.
type Flags struct {
	Punctuation    bool `json:"punctuation"`
	ParagraphBreak bool `json:"paragraphBreak"`
}

// Token is one displayable word. A token with ParagraphBreak set has empty
// Text and is never rendered as a word.
type Token struct {
	Text       string `json:"text"`
	FocusIndex int    `json:"focusIndex"`
	Flags      Flags  `json:"flags"`
}

// ParagraphBreak returns the synthetic marker placed between paragraphs.
func ParagraphBreak() Token {
	return Token{Flags: Flags{ParagraphBreak: true}}
}

// ORP returns the Optimal Recognition Point for a word of the given length
// in characters. It is the index of the character the eye should anchor on.
func ORP(length int) int {
	switch {
	case length <= 1:
		return 0
	case length <= 5:
		return 1
	case length <= 9:
		return 2
	case length <= 13:
		return 3
	}
	return 4
}

// FocusIndex returns the ORP for word measured in runes.
func FocusIndex(word string) int {
	return ORP(utf8.RuneCountInString(word))
}

// Parts splits the token text around its focus character. The focus index
// is clamped so a malformed token still renders.
func (t Token) Parts() (before, focus, after string) {
	runes := []rune(t.Text)
	if len(runes) == 0 {
		return "", "", ""
	}
	i := t.FocusIndex
	if i >= len(runes) {
		i = len(runes) - 1
	}
	if i < 0 {
		i = 0
	}
	return string(runes[:i]), string(runes[i]), string(runes[i+1:])
}
