package ogc

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Attr is a single attribute; element attributes keep insertion order.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or, when Name is empty, a text node. Names carry
// their namespace prefix verbatim ("sos:Capabilities").
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Content  string
}

func Element(name string) *Node {
	return &Node{Name: name}
}

// TextElement builds <name>text</name>.
func TextElement(name, text string) *Node {
	return Element(name).Text(text)
}

func (n *Node) Attr(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// AttrsFrom appends a fixed attribute table in order.
func (n *Node) AttrsFrom(attrs []Attr) *Node {
	n.Attrs = append(n.Attrs, attrs...)
	return n
}

func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

func (n *Node) Text(s string) *Node {
	n.Children = append(n.Children, &Node{Content: s})
	return n
}

// Write emits the XML declaration and walks the tree depth first,
// handing tokens to the encoder as they are reached.
func Write(w io.Writer, root *Node) error {
	if root == nil {
		return fmt.Errorf("write document: nil root")
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeNode(enc, root); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush document: %w", err)
	}
	return nil
}

func encodeNode(enc *xml.Encoder, n *Node) error {
	if n.Name == "" {
		if err := enc.EncodeToken(xml.CharData(n.Content)); err != nil {
			return fmt.Errorf("encode text: %w", err)
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	if len(n.Attrs) > 0 {
		start.Attr = make([]xml.Attr, 0, len(n.Attrs))
		for _, a := range n.Attrs {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode <%s>: %w", n.Name, err)
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("encode </%s>: %w", n.Name, err)
	}
	return nil
}
