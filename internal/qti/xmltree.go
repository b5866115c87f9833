package qti

import (
	"encoding/xml"
	"fmt"
	"io"
)

// element is a minimal DOM over encoding/xml tokens. QTI 1.2 documents are
// too irregular for struct unmarshalling: question shapes vary per type and
// most lookups are "first descendant with this tag", so we keep a tree and
// search it.
type element struct {
	// Tag is namespace-qualified as "{uri}local" until stripNamespaces runs.
	Tag      string
	Attrs    map[string]string
	Text     string // concatenated character data directly inside this element
	Children []*element
}

func parseTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{Tag: qualify(t.Name), Attrs: map[string]string{}}
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xml parse: empty document")
	}
	return root, nil
}

func qualify(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// attr returns the named attribute or "".
func (e *element) attr(name string) string { return e.Attrs[name] }

// find returns the first descendant with the given tag, depth-first, or nil.
func (e *element) find(tag string) *element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
		if m := c.find(tag); m != nil {
			return m
		}
	}
	return nil
}

// findAll returns all descendants with the given tag in document order.
func (e *element) findAll(tag string) []*element {
	var out []*element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, c.findAll(tag)...)
	}
	return out
}

// childrenByTag returns direct children with the given tag only.
func (e *element) childrenByTag(tag string) []*element {
	var out []*element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// mustFind is the "required lookup" form: a miss is an error for the caller
// to classify (item-fatal or package-fatal).
func (e *element) mustFind(tag string) (*element, error) {
	if m := e.find(tag); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("element %q not found under %q", tag, e.Tag)
}

func (e *element) walk(fn func(*element)) {
	fn(e)
	for _, c := range e.Children {
		c.walk(fn)
	}
}
