// Package extract holds the pure field extraction functions used by the
// entity normalizers. Every function takes one element subtree and never
// fails: an absent sub-element yields an empty string or an empty (non-nil)
// slice.
package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	xmlparser "discogs/internal/parser/xml"
)

// Clean trims surrounding whitespace and normalizes s to NFC.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return norm.NFC.String(s)
}

// Text returns the cleaned text of the first child named name. Blank text is
// reported as absent.
func Text(n *xmlparser.Node, name string) (string, bool) {
	raw, ok := n.ChildText(name)
	if !ok {
		return "", false
	}
	s := Clean(raw)
	return s, s != ""
}

// RawText returns the untrimmed text of the first child named name, or "".
func RawText(n *xmlparser.Node, name string) string {
	raw, _ := n.ChildText(name)
	return raw
}

// Attr returns the cleaned value of attribute name. Blank values are
// reported as absent.
func Attr(n *xmlparser.Node, name string) (string, bool) {
	s := Clean(n.Attr(name))
	return s, s != ""
}

// List returns the cleaned text of the children of the first container
// child. When item is non-empty only children with that name are read.
// Entries with no text are skipped.
func List(n *xmlparser.Node, container, item string) []string {
	out := []string{}
	for _, c := range n.Child(container).Elements() {
		if item != "" && c.Name != item {
			continue
		}
		if s := Clean(c.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// URLs reads <urls><url>...</url></urls>.
func URLs(n *xmlparser.Node) []string { return List(n, "urls", "url") }

// Aliases reads <aliases><name>...</name></aliases>.
func Aliases(n *xmlparser.Node) []string { return List(n, "aliases", "") }

// NameVariations reads <namevariations><name>...</name></namevariations>.
func NameVariations(n *xmlparser.Node) []string { return List(n, "namevariations", "") }

// fieldOf collects the cleaned text of child field from every item,
// skipping items where it is missing or blank.
func fieldOf(items []*xmlparser.Node, field string) []string {
	out := []string{}
	for _, it := range items {
		if s, ok := Text(it, field); ok {
			out = append(out, s)
		}
	}
	return out
}

// textOf is fieldOf keeping one entry per item ("" where the field is
// missing or blank).
func textOf(items []*xmlparser.Node, field string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, _ := Text(it, field)
		out = append(out, s)
	}
	return out
}

// attrOf collects attribute attr from every item, keeping one entry per
// item ("" where the attribute is missing).
func attrOf(items []*xmlparser.Node, attr string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, Clean(it.Attr(attr)))
	}
	return out
}
