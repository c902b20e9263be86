package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Element is a live or captured DOM node the resolver can inspect.
type Element interface {
	// Attribute returns the value of a markup attribute.
	Attribute(name string) (string, bool)
	// ParentElement returns the structural parent, or nil at the top.
	ParentElement() Element
	// Props returns the element's own properties in enumeration order.
	// Values are foreign framework state and may have any shape.
	Props() []Property
}

// Property is a single own property of a DOM node.
type Property struct {
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

// Rect is a screen-space bounding box.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// KeyEvent is a keyboard event delivered to an inspection session.
type KeyEvent struct {
	Code  string `json:"code"`
	Meta  bool   `json:"meta"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
}

// Document is a captured page.
type Document struct {
	URL   string           `json:"url" yaml:"url"`
	Title string           `json:"title" yaml:"title"`
	Root  *ElementSnapshot `json:"root" yaml:"root"`
}

// ElementSnapshot is a captured DOM element.
//
// Snapshots come in two shapes: a document tree (Children) or a single
// target with its ancestors (Parent). Link rebuilds parent pointers for the
// tree shape without touching Parent, so linked trees stay serializable.
type ElementSnapshot struct {
	Tag        string             `json:"tag" yaml:"tag"`
	Attributes map[string]string  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Properties []Property         `json:"properties,omitempty" yaml:"properties,omitempty"`
	Bounds     Rect               `json:"bounds" yaml:"bounds"`
	Children   []*ElementSnapshot `json:"children,omitempty" yaml:"children,omitempty"`
	Parent     *ElementSnapshot   `json:"parent,omitempty" yaml:"parent,omitempty"`

	linkedParent *ElementSnapshot
}

// FlatElement is one entry of a flattened snapshot tree.
type FlatElement struct {
	Path    string
	Depth   int
	Element *ElementSnapshot
}

// Attribute implements Element.
func (e *ElementSnapshot) Attribute(name string) (string, bool) {
	if e == nil || e.Attributes == nil {
		return "", false
	}

	value, ok := e.Attributes[name]

	return value, ok
}

// ParentElement implements Element.
func (e *ElementSnapshot) ParentElement() Element {
	if e == nil {
		return nil
	}

	if e.linkedParent != nil {
		return e.linkedParent
	}

	if e.Parent != nil {
		return e.Parent
	}

	return nil
}

// Props implements Element.
func (e *ElementSnapshot) Props() []Property {
	if e == nil {
		return nil
	}

	return e.Properties
}

// Link sets parent pointers for every descendant.
func (e *ElementSnapshot) Link() {
	if e == nil {
		return
	}

	for _, child := range e.Children {
		if child == nil {
			continue
		}

		child.linkedParent = e
		child.Link()
	}
}

// Label renders a short selector-like description such as div#main.card.
func (e *ElementSnapshot) Label() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder

	tag := e.Tag
	if tag == "" {
		tag = "element"
	}

	b.WriteString(strings.ToLower(tag))

	if id, ok := e.Attribute("id"); ok && id != "" {
		fmt.Fprintf(&b, "#%s", id)
	}

	if class, ok := e.Attribute("class"); ok {
		for _, name := range strings.Fields(class) {
			fmt.Fprintf(&b, ".%s", name)
		}
	}

	return b.String()
}

// Flatten lists the tree depth first. Paths are dot separated child indexes
// starting at "0" for the root.
func (e *ElementSnapshot) Flatten() []FlatElement {
	if e == nil {
		return nil
	}

	var out []FlatElement

	var walk func(el *ElementSnapshot, path string, depth int)
	walk = func(el *ElementSnapshot, path string, depth int) {
		out = append(out, FlatElement{Path: path, Depth: depth, Element: el})

		for i, child := range el.Children {
			if child == nil {
				continue
			}

			walk(child, path+"."+strconv.Itoa(i), depth+1)
		}
	}

	walk(e, "0", 0)

	return out
}

// Find returns the element at a path produced by Flatten.
func (e *ElementSnapshot) Find(path string) (*ElementSnapshot, bool) {
	if e == nil {
		return nil, false
	}

	parts := strings.Split(strings.TrimSpace(path), ".")
	if len(parts) == 0 || parts[0] != "0" {
		return nil, false
	}

	current := e

	for _, part := range parts[1:] {
		index, err := strconv.Atoi(part)
		if err != nil || index < 0 || index >= len(current.Children) || current.Children[index] == nil {
			return nil, false
		}

		current = current.Children[index]
	}

	return current, true
}
