/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dom is the rendering surface of the engine: it clones fragments,
// attaches and detaches subtrees, reads and writes attributes and queries
// descendants of golang.org/x/net/html node trees.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete document.
func Parse(src []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(src))
}

// Render writes n and its subtree as markup.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// String renders n, returning an empty string on failure.
func String(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Clone deep copies n. The copy has no parent.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(Clone(ch))
	}
	return c
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// IsElement reports whether n is an element named tag.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// Attr returns the value of the attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the value of the attribute key, or "" when it is absent.
func AttrOr(n *html.Node, key string) string {
	v, _ := Attr(n, key)
	return v
}

func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets or adds the attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(AttrOr(n, "class"))
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class unless n already carries it.
func AddClass(n *html.Node, class string) {
	if class == "" || HasClass(n, class) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(AttrOr(n, "class")+" "+class))
}

// Detach removes n from its parent. Detaching a root is a no-op.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Append moves n to the end of parent.
func Append(parent, n *html.Node) {
	Detach(n)
	parent.AppendChild(n)
}

// InsertBefore moves n right before ref.
func InsertBefore(ref, n *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref)
}

// Attached reports whether n currently has a parent.
func Attached(n *html.Node) bool {
	return n.Parent != nil
}

// Children returns the child nodes of n.
func Children(n *html.Node) []*html.Node {
	var res []*html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		res = append(res, ch)
	}
	return res
}

// Elements returns the element children of n.
func Elements(n *html.Node) []*html.Node {
	var res []*html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode {
			res = append(res, ch)
		}
	}
	return res
}

// Walk visits the descendants of root in document order, root excluded. When
// visit returns false the subtree of that node is skipped.
func Walk(root *html.Node, visit func(n *html.Node) bool) {
	for ch := root.FirstChild; ch != nil; {
		next := ch.NextSibling
		if visit(ch) {
			Walk(ch, visit)
		}
		ch = next
	}
}

// PathOf returns the child positions leading from root down to n. ok is false
// when n is not inside root.
func PathOf(root, n *html.Node) (path []int, ok bool) {
	for cur := n; cur != root; cur = cur.Parent {
		if cur == nil {
			return nil, false
		}
		i := 0
		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		path = append(path, i)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// At follows a path returned by PathOf from root, nil when it leads nowhere.
func At(root *html.Node, path []int) *html.Node {
	n := root
	for _, i := range path {
		n = n.FirstChild
		for ; i > 0 && n != nil; i-- {
			n = n.NextSibling
		}
		if n == nil {
			return nil
		}
	}
	return n
}

// FindAll returns the descendants of root matching pred, in document order.
func FindAll(root *html.Node, pred func(n *html.Node) bool) []*html.Node {
	var res []*html.Node
	Walk(root, func(n *html.Node) bool {
		if pred(n) {
			res = append(res, n)
		}
		return true
	})
	return res
}

// Find returns the first descendant of root matching pred.
func Find(root *html.Node, pred func(n *html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// ById returns the first descendant element with the given id.
func ById(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && AttrOr(n, "id") == id
	})
}

// ByTag returns the first descendant element named tag.
func ByTag(root *html.Node, tag string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return IsElement(n, tag)
	})
}

// AllByTag returns every descendant element named tag.
func AllByTag(root *html.Node, tag string) []*html.Node {
	return FindAll(root, func(n *html.Node) bool {
		return IsElement(n, tag)
	})
}

// TextNodes returns the text nodes of root and its descendants.
func TextNodes(root *html.Node) []*html.Node {
	var res []*html.Node
	if root.Type == html.TextNode {
		res = append(res, root)
	}
	return append(res, FindAll(root, func(n *html.Node) bool {
		return n.Type == html.TextNode
	})...)
}

// Text concatenates the text nodes of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	for _, t := range TextNodes(n) {
		sb.WriteString(t.Data)
	}
	return sb.String()
}

// Hide marks n hidden, Show removes the mark.
func Hide(n *html.Node) {
	SetAttr(n, "hidden", "")
}

func Show(n *html.Node) {
	RemoveAttr(n, "hidden")
}

// Hidden reports whether n carries the hidden mark.
func Hidden(n *html.Node) bool {
	return HasAttr(n, "hidden")
}
