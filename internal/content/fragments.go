package content

import (
	"regexp"
	"strings"
	"unicode"

	"clawdx/internal/randsrc"
)

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

type window struct {
	minSentence int
	minWords    int
	maxWords    int
}

var (
	topicWindow = window{minSentence: 15, minWords: 2, maxWords: 4}
	quoteWindow = window{minSentence: 25, minWords: 3, maxWords: 6}
)

// ExtractTopic returns a short lower-cased run of words taken from a
// qualifying sentence of text, or fallback when no sentence qualifies.
func ExtractTopic(src randsrc.Source, text, fallback string) string {
	return extract(src, text, fallback, topicWindow)
}

// ExtractQuote is ExtractTopic with a longer sentence threshold and window.
func ExtractQuote(src randsrc.Source, text, fallback string) string {
	return extract(src, text, fallback, quoteWindow)
}

func extract(src randsrc.Source, text, fallback string, w window) string {
	var sentences [][]string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len([]rune(s)) < w.minSentence {
			continue
		}
		words := strings.Fields(sanitize(s))
		if len(words) == 0 {
			continue
		}
		sentences = append(sentences, words)
	}
	if len(sentences) == 0 {
		return fallback
	}

	words := randsrc.Pick(src, sentences)
	size := w.minWords + src.IntN(w.maxWords-w.minWords+1)
	if size > len(words) {
		size = len(words)
	}
	start := src.IntN(len(words) - size + 1)

	frag := strings.ToLower(strings.Join(words[start:start+size], " "))
	frag = strings.TrimFunc(frag, func(r rune) bool { return !unicode.IsLetter(r) })
	if frag == "" {
		return fallback
	}
	return frag
}

// sanitize drops brace characters so extracted text can never look like a
// template placeholder.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '{' || r == '}' {
			return -1
		}
		return r
	}, s)
}
