package qti

import (
	"archive/zip"
	"html"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
)

// coverText pulls the description out of the package's metadata document and
// flattens it to plain text for the test cover page. Absent or unreadable
// metadata yields "".
func coverText(f *zip.File) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	root, err := parseTree(rc)
	if err != nil {
		return ""
	}
	stripNamespaces(root)
	desc := root.find("description")
	if desc == nil {
		return ""
	}
	return flattenHTML(desc.Text)
}

var spaceRun = regexp.MustCompile(`\s+`)

// flattenHTML strips markup and entities, collapsing whitespace. Used for the
// cover text only; question prompts keep their markup.
func flattenHTML(s string) string {
	doc, err := xhtml.Parse(strings.NewReader(html.UnescapeString(s)))
	if err != nil {
		return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	}
	var b strings.Builder
	var visit func(*xhtml.Node)
	visit = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return strings.TrimSpace(spaceRun.ReplaceAllString(b.String(), " "))
}

var divTag = regexp.MustCompile(`</?div[^>]*>`)

// cleanMattext undoes the double HTML-escaping Canvas applies to mattext
// payloads and drops the bare div wrapper it puts around prompts. Other
// markup is kept: embedded images must survive for asset resolution.
func cleanMattext(s string) string {
	s = html.UnescapeString(s)
	s = divTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
