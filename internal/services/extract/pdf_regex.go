package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// RegexBackend scans the raw bytes for text-showing operators. It knows
// nothing about the object graph: compressed content streams, string
// escapes and font encodings all defeat it, and it then returns little or
// no text.
type RegexBackend struct{}

var (
	reTextObject = regexp.MustCompile(`(?s)\bBT\b(.*?)\bET\b`)
	reLiteral    = regexp.MustCompile(`\(([^()\r\n]*)\)`)
	reShowText   = regexp.MustCompile(`\(([^()\r\n]*)\)\s*Tj`)
	reLetter     = regexp.MustCompile(`[A-Za-z]`)
)

func (RegexBackend) Name() string { return "regex" }

func (RegexBackend) ExtractPDF(ctx context.Context, _ string, data []byte) (PDFText, error) {
	if err := ctx.Err(); err != nil {
		return PDFText{}, err
	}

	raw := string(data)
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "")
	}

	var sb strings.Builder
	keep := func(literal string) {
		literal = strings.TrimSpace(literal)
		if utf8.RuneCountInString(literal) > 2 && reLetter.MatchString(literal) {
			sb.WriteString(literal)
			sb.WriteByte(' ')
		}
	}

	// Literals inside BT ... ET text objects.
	blocks := reTextObject.FindAllStringSubmatchIndex(raw, -1)
	for _, b := range blocks {
		for _, m := range reLiteral.FindAllStringSubmatch(raw[b[2]:b[3]], -1) {
			keep(m[1])
		}
	}

	// "(...) Tj" outside any text object; the ones inside were taken above.
	for _, m := range reShowText.FindAllStringSubmatchIndex(raw, -1) {
		if insideAny(m[0], blocks) {
			continue
		}
		keep(raw[m[2]:m[3]])
	}

	return PDFText{Text: strings.TrimSpace(sb.String())}, nil
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
