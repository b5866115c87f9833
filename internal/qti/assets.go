package qti

import (
	"archive/zip"
	"bytes"
	"io"
	"log"
	"net/url"
	"path"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// filebasePrefix is the IMS Common Cartridge placeholder meaning "relative to
// the content package root".
const filebasePrefix = "$IMS-CC-FILEBASE$/"

// inlineImage is an image reference found inside rich text, resolved against
// the archive.
type inlineImage struct {
	Name string // display name: img alt attribute, or the file's base name
	File string // base name of the decoded package-relative path
	Data []byte
}

// resolveImage finds the first img element in markup, decodes its
// package-relative src and extracts the matching archive member. Returns
// ok=false when the markup has no image or the referenced file is not in the
// archive; in both cases the caller must leave the original text alone.
func resolveImage(markup string, files []*zip.File) (inlineImage, bool) {
	img := firstImg(markup)
	if img == nil {
		return inlineImage{}, false
	}
	src := attrVal(img, "src")
	if src == "" {
		return inlineImage{}, false
	}
	rel := strings.TrimPrefix(src, filebasePrefix)
	if dec, err := url.PathUnescape(rel); err == nil {
		rel = dec
	}

	// Suffix match: the reference's root rarely lines up with the archive's
	// actual entry naming.
	for _, f := range files {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, rel) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			log.Printf("qti: open archive member %s: %v", f.Name, err)
			return inlineImage{}, false
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Printf("qti: read archive member %s: %v", f.Name, err)
			return inlineImage{}, false
		}
		name := attrVal(img, "alt")
		if name == "" {
			name = path.Base(rel)
		}
		return inlineImage{Name: name, File: path.Base(rel), Data: data}, true
	}
	log.Printf("qti: image %q not found in archive", rel)
	return inlineImage{}, false
}

// rewriteImageSrc returns markup with the first img's src replaced by newSrc.
// The fragment is re-parsed and re-serialized rather than string-spliced so
// surrounding markup cannot be corrupted.
func rewriteImageSrc(markup, newSrc string) (string, error) {
	nodes, err := parseFragment(markup)
	if err != nil {
		return "", err
	}
	done := false
	var rewrite func(*xhtml.Node)
	rewrite = func(n *xhtml.Node) {
		if done {
			return
		}
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Img {
			for i := range n.Attr {
				if n.Attr[i].Key == "src" {
					n.Attr[i].Val = newSrc
					done = true
					return
				}
			}
			n.Attr = append(n.Attr, xhtml.Attribute{Key: "src", Val: newSrc})
			done = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rewrite(c)
		}
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		rewrite(n)
		if err := xhtml.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func firstImg(markup string) *xhtml.Node {
	nodes, err := parseFragment(markup)
	if err != nil {
		return nil
	}
	var found *xhtml.Node
	var visit func(*xhtml.Node)
	visit = func(n *xhtml.Node) {
		if found != nil {
			return
		}
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Img {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return found
}

func parseFragment(markup string) ([]*xhtml.Node, error) {
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	return xhtml.ParseFragment(strings.NewReader(markup), ctx)
}

func attrVal(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
