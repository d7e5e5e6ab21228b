package text

import (
	"regexp"
	"strings"
	"unicode"
)

// dashSplit matches the separators that break a token into several
// fixations: a double hyphen, an em-dash or an en-dash.
var dashSplit = regexp.MustCompile(`--|—|–`)

// Preprocess reshapes stored tokens into display units. Dash-joined
// compounds become one token per piece, bracketing punctuation and quotes
// are stripped, and tokens without letters or digits are dropped. Paragraph
// breaks pass through untouched. Every returned word token has non-empty
// text and a focus index valid for that text.
func Preprocess(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Flags.ParagraphBreak {
			out = append(out, tok)
			continue
		}

		s := strings.TrimSpace(tok.Text)
		if s == "" || s == "-" || s == "--" {
			continue
		}

		if dashSplit.MatchString(s) {
			for _, piece := range dashSplit.Split(s, -1) {
				piece = strings.TrimSpace(piece)
				if !hasAlnum(piece) {
					continue
				}
				out = append(out, Token{Text: piece, FocusIndex: FocusIndex(piece), Flags: tok.Flags})
			}
			continue
		}

		s = strings.TrimLeftFunc(s, func(r rune) bool { return !isAlnum(r) })
		s = strings.TrimRightFunc(s, func(r rune) bool { return !isAlnum(r) && !strings.ContainsRune(".?!,", r) })
		if !hasAlnum(s) {
			continue
		}
		out = append(out, Token{Text: s, FocusIndex: FocusIndex(s), Flags: tok.Flags})
	}
	return out
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasAlnum(s string) bool {
	return strings.IndexFunc(s, isAlnum) >= 0
}

// DisplayWords preprocesses tokens and tidies the paragraph breaks left
// behind by paragraphs that preprocessing emptied: runs of breaks collapse
// to one, and the result never starts or ends with a break.
func DisplayWords(tokens []Token) []Token {
	words := Preprocess(tokens)
	out := words[:0]
	for _, tok := range words {
		if tok.Flags.ParagraphBreak && (len(out) == 0 || out[len(out)-1].Flags.ParagraphBreak) {
			continue
		}
		out = append(out, tok)
	}
	if n := len(out); n > 0 && out[n-1].Flags.ParagraphBreak {
		out = out[:n-1]
	}
	return out
}
