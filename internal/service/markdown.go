package service

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer 将 Markdown 转换为经过清洗的 HTML。
type Renderer struct {
	engine    goldmark.Markdown
	sanitizer *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown to sanitized HTML. Content that fails to convert
// is returned escaped.
func (r *Renderer) Render(markdown string) template.HTML {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes()))
}
