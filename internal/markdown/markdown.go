// Package markdown renders user-supplied resolution notes to HTML.
package markdown

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// The converter is stateless between calls and safe to share.
var (
	converter     goldmark.Markdown
	converterOnce sync.Once
)

func getConverter() goldmark.Markdown {
	converterOnce.Do(func() {
		converter = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// raw HTML stays omitted: html.WithUnsafe is never set
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return converter
}

// Render converts markdown source to HTML. Raw HTML in the source is
// dropped and link URLs with dangerous schemes are not emitted.
func Render(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := getConverter().Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTML is Render typed for html/template. Conversion errors fall back
// to the escaped source text.
func RenderHTML(source string) template.HTML {
	out, err := Render(source)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(out)
}
