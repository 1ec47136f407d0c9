package summary

import (
	"strings"

	"github.com/Shimizu-Technology/learnsmart-api/internal/textutil"
)

// ChunkText splits normalized text into pieces of at most size characters,
// breaking between sentences where possible. A sentence longer than size
// is split between words, and a word longer than size is cut.
func ChunkText(text string, size int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	add := func(piece string) {
		n := textutil.Len(piece)
		if curLen > 0 && curLen+1+n > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, sentence := range splitSentences(text) {
		if textutil.Len(sentence) <= size {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			for textutil.Len(word) > size {
				head := textutil.Truncate(word, size)
				add(head)
				word = word[len(head):]
			}
			add(word)
		}
	}
	flush()
	return chunks
}

// splitSentences breaks after '.', '!' or '?' when followed by a space.
// The input is expected to be whitespace-normalized.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] == ' ' {
				out = append(out, text[start:i+1])
				start = i + 2
				i++
			}
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
