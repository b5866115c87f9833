package qti

import "strings"

// stripNamespaces rewrites every tag in the tree to its local part so lookups
// can use bare names regardless of the document's namespace declarations.
// Safe to run more than once; a no-op on unqualified trees.
func stripNamespaces(root *element) {
	root.walk(func(e *element) {
		if i := strings.LastIndex(e.Tag, "}"); i >= 0 {
			e.Tag = e.Tag[i+1:]
		}
	})
}
