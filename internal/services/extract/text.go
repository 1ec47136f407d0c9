package extract

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
)

// htmlToText converts an HTML page to Markdown, which keeps headings and
// lists readable for the model. Scripts and styles are dropped with their
// content. Whitespace is collapsed later by the caller.
func htmlToText(page string) (string, error) {
	conv := md.NewConverter("", true, nil)
	conv.Remove("script", "style", "noscript")
	return conv.ConvertString(page)
}
