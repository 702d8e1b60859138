// Package path implements absolute repository paths.
//
// A path is a slash-separated sequence of name elements rooted at "/". A name
// element may carry an explicit one-based same-name-sibling index, written as
// a bracketed suffix: "/content/article[2]/title". An omitted index addresses
// the first sibling of that name.
package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leachuk/jackrabbit/internal/nodeid"
)

// IndexUndefined marks a name element without an explicit index.
const IndexUndefined = 0

// IndexDefault is the index addressed by an element without a subscript.
const IndexDefault = 1

// Element is a single path segment: a name plus an optional index.
type Element struct {
	Name  string
	Index int // IndexUndefined when no subscript was given
}

// NormalizedIndex returns the effective one-based index of the element.
func (e Element) NormalizedIndex() int {
	if e.Index == IndexUndefined {
		return IndexDefault
	}
	return e.Index
}

// String renders the element, including the subscript when present.
func (e Element) String() string {
	if e.Index == IndexUndefined {
		return e.Name
	}
	return fmt.Sprintf("%s[%d]", e.Name, e.Index)
}

// Path is an absolute path. The zero value is the root path "/".
type Path struct {
	elems []Element
}

// Root is the root path "/".
var Root = Path{}

// Parse decodes an absolute path string.
func Parse(s string) (Path, error) {
	if s == "" || s[0] != '/' {
		return Path{}, fmt.Errorf("path %q is not absolute", s)
	}
	if s == "/" {
		return Root, nil
	}

	segments := strings.Split(s[1:], "/")
	elems := make([]Element, 0, len(segments))
	for _, seg := range segments {
		elem, err := parseElement(seg)
		if err != nil {
			return Path{}, fmt.Errorf("path %q: %w", s, err)
		}
		elems = append(elems, elem)
	}
	return Path{elems: elems}, nil
}

func parseElement(seg string) (Element, error) {
	if seg == "" {
		return Element{}, fmt.Errorf("empty name element")
	}

	name := seg
	index := IndexUndefined
	if open := strings.IndexByte(seg, '['); open >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return Element{}, fmt.Errorf("malformed subscript in element %q", seg)
		}
		n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
		if err != nil || n < 1 {
			return Element{}, fmt.Errorf("malformed subscript in element %q", seg)
		}
		name = seg[:open]
		index = n
	}
	if name == "" || strings.ContainsAny(name, "[]") {
		return Element{}, fmt.Errorf("invalid name element %q", seg)
	}

	return Element{Name: name, Index: index}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.elems) == 0
}

// Depth returns the number of elements below the root.
func (p Path) Depth() int {
	return len(p.elems)
}

// Elements returns the path's elements in order.
func (p Path) Elements() []Element {
	return p.elems
}

// NameElement returns the final element. For the root path it returns the
// zero Element.
func (p Path) NameElement() Element {
	if p.IsRoot() {
		return Element{}
	}
	return p.elems[len(p.elems)-1]
}

// Parent returns the path with the final element removed.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, fmt.Errorf("root path has no parent")
	}
	return Path{elems: p.elems[:len(p.elems)-1]}, nil
}

// Join returns the path extended with one more element.
func (p Path) Join(elem Element) Path {
	elems := make([]Element, len(p.elems), len(p.elems)+1)
	copy(elems, p.elems)
	return Path{elems: append(elems, elem)}
}

// Equal reports whether the two paths address the same node, normalizing
// omitted indexes.
func (p Path) Equal(q Path) bool {
	if len(p.elems) != len(q.elems) {
		return false
	}
	for i := range p.elems {
		if p.elems[i].Name != q.elems[i].Name ||
			p.elems[i].NormalizedIndex() != q.elems[i].NormalizedIndex() {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict ancestor of q.
func (p Path) IsAncestorOf(q Path) bool {
	if len(p.elems) >= len(q.elems) {
		return false
	}
	return p.Equal(Path{elems: q.elems[:len(p.elems)]})
}

// String renders the path in canonical form.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	var b strings.Builder
	for _, e := range p.elems {
		b.WriteByte('/')
		b.WriteString(e.String())
	}
	return b.String()
}

// Resolver maps a path to the identifier of the node it addresses.
type Resolver interface {
	Resolve(p Path) (nodeid.ID, error)
}
