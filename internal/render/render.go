// Package render produces the popup body markup for a quick-add view.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"golang.org/x/net/html"

	"quickadd/internal/quickadd"
)

//go:embed templates/*.html
var templateFS embed.FS

var popupTemplate = template.Must(
	template.New("popup.html").
		Funcs(template.FuncMap{"shorten": ShortenDescription}).
		ParseFS(templateFS, "templates/popup.html"),
)

// Popup writes the popup body for v.
func Popup(w io.Writer, v quickadd.View) error {
	return popupTemplate.Execute(w, v)
}

// PopupString renders the popup body to a string.
func PopupString(v quickadd.View) (string, error) {
	var buf bytes.Buffer
	if err := Popup(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ShortenDescription reduces an HTML description to the text of its first
// sentence, terminated by a single period. Script and style contents are not
// text. Returns "" for empty input.
func ShortenDescription(description string) string {
	text := strings.TrimSpace(textContent(description))
	first, _, _ := strings.Cut(text, ". ")
	first = strings.TrimRight(strings.TrimSpace(first), ".")
	if first == "" {
		return ""
	}
	return first + "."
}

func textContent(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
