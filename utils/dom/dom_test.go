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

package dom

import (
	"bytes"
	"testing"

	"github.com/rulego/zoox/test/assert"
	"golang.org/x/net/html"
)

func body(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := Parse([]byte(src))
	assert.Nil(t, err)
	return ByTag(doc, "body")
}

func TestCloneAndRender(t *testing.T) {
	b := body(t, `<div id="a" class="x"><p>one</p>two</div>`)
	div := ById(b, "a")
	c := Clone(div)
	assert.Nil(t, c.Parent)
	assert.Equal(t, String(div), String(c))

	SetAttr(c, "id", "b")
	assert.Equal(t, "a", AttrOr(div, "id"))

	var buf bytes.Buffer
	assert.Nil(t, Render(&buf, c))
	assert.Equal(t, `<div id="b" class="x"><p>one</p>two</div>`, buf.String())
}

func TestAttributes(t *testing.T) {
	n := NewElement("z", html.Attribute{Key: "type", Val: "card"})
	v, ok := Attr(n, "type")
	assert.True(t, ok)
	assert.Equal(t, "card", v)
	assert.False(t, HasAttr(n, "id"))
	assert.Equal(t, "", AttrOr(n, "id"))

	SetAttr(n, "id", "x")
	SetAttr(n, "id", "y")
	assert.Equal(t, "y", AttrOr(n, "id"))
	RemoveAttr(n, "id")
	assert.False(t, HasAttr(n, "id"))

	AddClass(n, "a")
	AddClass(n, "b")
	AddClass(n, "a")
	assert.Equal(t, []string{"a", "b"}, Classes(n))
	assert.True(t, HasClass(n, "b"))
	assert.False(t, HasClass(n, "c"))

	Hide(n)
	assert.True(t, Hidden(n))
	Show(n)
	assert.False(t, Hidden(n))
}

func TestMoveNodes(t *testing.T) {
	b := body(t, `<ul><li id="1"></li><li id="2"></li></ul><ol></ol>`)
	ul, ol := ByTag(b, "ul"), ByTag(b, "ol")
	first := ById(b, "1")

	Append(ol, first)
	assert.Equal(t, 1, len(Elements(ul)))
	assert.True(t, Attached(first))

	InsertBefore(ById(b, "2"), first)
	assert.Equal(t, 2, len(Elements(ul)))
	assert.Equal(t, "1", AttrOr(Elements(ul)[0], "id"))
	assert.Equal(t, 0, len(Children(ol)))

	Detach(first)
	assert.False(t, Attached(first))
	Detach(first)
}

func TestQueries(t *testing.T) {
	b := body(t, `<div><z type="a" id="x"><z type="b" id="y"></z></z>text<z type="c" id="w"></z></div>`)
	var ids []string
	for _, n := range AllByTag(b, "z") {
		ids = append(ids, AttrOr(n, "id"))
	}
	assert.Equal(t, []string{"x", "y", "w"}, ids)
	assert.Equal(t, "w", AttrOr(Find(b, func(n *html.Node) bool { return AttrOr(n, "type") == "c" }), "id"))
	assert.Nil(t, ById(b, "nope"))

	// skipping a subtree
	var visited []string
	Walk(b, func(n *html.Node) bool {
		if IsElement(n, "z") {
			visited = append(visited, AttrOr(n, "id"))
			return false
		}
		return true
	})
	assert.Equal(t, []string{"x", "w"}, visited)

	assert.Equal(t, "text", Text(ByTag(b, "div")))
	assert.Equal(t, 1, len(TextNodes(b)))
	assert.Equal(t, 1, len(TextNodes(NewText("alone"))))
}

func TestPathOf(t *testing.T) {
	b := body(t, `<div id="a">x<p><i id="i"></i><b id="b"></b></p></div>`)
	div := ById(b, "a")
	path, ok := PathOf(div, ById(b, "b"))
	assert.True(t, ok)
	assert.Equal(t, []int{1, 1}, path)

	c := Clone(div)
	assert.Equal(t, "b", AttrOr(At(c, path), "id"))
	assert.Same(t, c, At(c, nil))
	assert.Nil(t, At(c, []int{5}))

	_, ok = PathOf(ById(b, "i"), div)
	assert.False(t, ok)
}
