// Package dom provides shadow-including traversal over go-xmldom trees.
//
// xmldom has no notion of shadow trees, so shadow roots are attached out of band
// through Shadows. A shadow root is any node; its children form the shadow tree.
package dom

import (
	"errors"
	"sync"

	"github.com/agentflare-ai/go-xmldom"
)

// IsAttribute is the attribute carrying a customized built-in element's is value.
const IsAttribute = "is"

var (
	ErrNilShadowRoot  = errors.New("dom: shadow root cannot be nil")
	ErrShadowAttached = errors.New("dom: element already hosts a shadow root")
	ErrNilShadowHost  = errors.New("dom: shadow host cannot be nil")
)

// Shadows records which elements host a shadow root.
type Shadows struct {
	mu    sync.RWMutex
	roots map[xmldom.Element]xmldom.Node
}

// NewShadows returns an empty table.
func NewShadows() *Shadows {
	return &Shadows{roots: make(map[xmldom.Element]xmldom.Node)}
}

// Attach makes root the shadow root of host. An element hosts at most one shadow
// root.
func (s *Shadows) Attach(host xmldom.Element, root xmldom.Node) error {
	if host == nil {
		return ErrNilShadowHost
	}
	if root == nil {
		return ErrNilShadowRoot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roots[host]; ok {
		return ErrShadowAttached
	}
	s.roots[host] = root
	return nil
}

// Root returns the shadow root hosted by host, or nil.
func (s *Shadows) Root(host xmldom.Element) xmldom.Node {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roots[host]
}

// Walker enumerates elements in shadow-including tree order: an element, then the
// elements of its shadow tree, then its children.
type Walker struct {
	shadows *Shadows
}

// NewWalker returns a Walker that descends into the shadow roots recorded in
// shadows. shadows may be nil.
func NewWalker(shadows *Shadows) *Walker {
	return &Walker{shadows: shadows}
}

// Descendants returns the shadow-including descendant elements of node.
func (w *Walker) Descendants(node xmldom.Node) []xmldom.Element {
	var out []xmldom.Element
	if node != nil {
		w.walkChildren(node, &out)
	}
	return out
}

// InclusiveDescendants returns node, when it is an element, followed by its
// shadow-including descendant elements.
func (w *Walker) InclusiveDescendants(node xmldom.Node) []xmldom.Element {
	if node == nil {
		return nil
	}
	var out []xmldom.Element
	if el, ok := node.(xmldom.Element); ok {
		out = append(out, el)
		w.walkShadow(el, &out)
	}
	w.walkChildren(node, &out)
	return out
}

func (w *Walker) walkChildren(node xmldom.Node, out *[]xmldom.Element) {
	children := node.ChildNodes()
	if children == nil {
		return
	}
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil {
			continue
		}
		if el, ok := child.(xmldom.Element); ok {
			*out = append(*out, el)
			w.walkShadow(el, out)
		}
		w.walkChildren(child, out)
	}
}

func (w *Walker) walkShadow(host xmldom.Element, out *[]xmldom.Element) {
	if root := w.shadows.Root(host); root != nil {
		w.walkChildren(root, out)
	}
}

// IsValue returns the is value of el, read from its is attribute.
func IsValue(el xmldom.Element) string {
	if el == nil {
		return ""
	}
	return string(el.GetAttribute(IsAttribute))
}
