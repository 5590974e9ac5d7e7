package xmlparser

import (
	"encoding/xml"
	"strings"
)

// Node is a fully materialized element subtree. It keeps only what the field
// extractors need: the local name, attributes, direct character data and
// child elements in document order.
//
// All accessor methods are nil-safe so that lookups through absent
// sub-elements degrade to empty results instead of panicking.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// UnmarshalXML implements xml.Unmarshaler. It is invoked by
// xml.Decoder.DecodeElement and consumes tokens up to and including the
// matching end element.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	if len(start.Attr) > 0 {
		n.Attrs = append(n.Attrs[:0], start.Attr...)
	}

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = text.String()
			return nil
		}
	}
}

// Attr returns the value of the named attribute, or "" when the node or the
// attribute is absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given local name, in
// document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns every direct child element.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	return n.Children
}

// ChildText returns the raw character data of the first child named name.
// The boolean is false when the child does not exist.
func (n *Node) ChildText(name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return c.Text, true
}

// Find walks a slash separated path of child names ("tracklist/track") and
// returns every node matching the final segment.
func (n *Node) Find(path string) []*Node {
	if n == nil || path == "" {
		return nil
	}
	cur := []*Node{n}
	for _, seg := range strings.Split(path, "/") {
		var next []*Node
		for _, c := range cur {
			next = append(next, c.ChildrenNamed(seg)...)
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}
