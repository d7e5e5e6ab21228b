package reader

import "github.com/metcalfc/florida/internal/text"

// findSentenceStarts returns the indices of tokens that begin a sentence:
// the first token, and the first word after sentence punctuation or a
// paragraph break.
func findSentenceStarts(words []text.Token) []int {
	if len(words) == 0 {
		return nil
	}
	starts := []int{0}
	for i, w := range words {
		if !w.Flags.Punctuation && !w.Flags.ParagraphBreak {
			continue
		}
		next := i + 1
		if next < len(words) && !words[next].Flags.ParagraphBreak && starts[len(starts)-1] != next {
			starts = append(starts, next)
		}
	}
	return starts
}

// prevSentence returns the start of the sentence before index, or 0.
func prevSentence(starts []int, index int) int {
	for i := len(starts) - 1; i >= 0; i-- {
		if starts[i] < index {
			return starts[i]
		}
	}
	return 0
}

// nextSentence returns the next sentence start after index, or the last
// token when there is none.
func nextSentence(starts []int, index, n int) int {
	for _, s := range starts {
		if s > index {
			return s
		}
	}
	return lastIndex(n)
}
