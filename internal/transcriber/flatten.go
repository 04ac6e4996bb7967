package transcriber

import (
	"math"
	"strings"
)

// Flatten walks segments in order and their words in order, producing one
// sequence with trimmed text and offsets rounded to 4 decimal places. The
// emission order is significant and is preserved as-is. The result is never
// nil so an empty transcript serializes as [].
func Flatten(t Transcript) []Word {
	words := make([]Word, 0, wordCount(t))
	for _, seg := range t.Segments {
		for _, w := range seg.Words {
			words = append(words, Word{
				Word:  strings.TrimSpace(w.Word),
				Start: round4(w.Start),
				End:   round4(w.End),
			})
		}
	}
	return words
}

func wordCount(t Transcript) int {
	n := 0
	for _, seg := range t.Segments {
		n += len(seg.Words)
	}
	return n
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
