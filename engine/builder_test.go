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

package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/test/assert"
	"github.com/rulego/zoox/utils/dom"
	"golang.org/x/net/html"
)

var lazySources = map[string]string{
	"panel": `<div><z type="label" id="eager"></z><z type="label" id="later" lazy></z>` +
		`<z type="frame" id="f" lazy><div class="z-impl" id="in"><z type="label" id="inner"></z></div></z></div>`,
	"frame": `<section><z-slot id="in"></z-slot></section>`,
	"label": `<span>label</span>`,
}

func TestLazyChildren(t *testing.T) {
	e, m := newTestEngine(t, lazySources)
	_, err := bootstrap(t, e, `<body><z type="panel" id="p"></z></body>`)
	assert.Nil(t, err)
	assert.Equal(t, 0, m.Calls("frame"))

	var panel *Instance
	on(t, e, func() {
		panel = declared(e, types.RootId, "p")
		assert.NotNil(t, declared(e, panel.Id, "eager"))
		assert.Nil(t, declared(e, panel.Id, "later"))
		assert.Nil(t, declared(e, panel.Id, "f"))
		// routed into a lazy sibling, skipped with it
		assert.Nil(t, declared(e, panel.Id, "inner"))
		a, ok := panel.ChildAnchor("later")
		assert.True(t, ok)
		assert.True(t, dom.Hidden(a))
	})

	ch := make(chan created, 2)
	on(t, e, func() {
		assert.Nil(t, panel.handle.LazyInit("later", callback(ch)))
	})
	first := waitCreated(t, ch)
	assert.Nil(t, first.err)
	assert.Equal(t, "later", first.zx.ComponentId())

	on(t, e, func() {
		a, _ := panel.ChildAnchor("later")
		assert.False(t, dom.Hidden(a))
		// the child exists, the callback runs right away
		called := 0
		assert.Nil(t, panel.handle.LazyInit("later", func(zx types.Handle, err error) {
			called++
			assert.Nil(t, err)
			assert.Equal(t, first.zx.Id(), zx.Id())
		}))
		assert.Equal(t, 1, called)
		assert.ErrorIs(t, panel.handle.LazyInit("missing", nil), types.ErrStructural)
	})
}

func TestLazyChildWithRoutedComponents(t *testing.T) {
	e, _ := newTestEngine(t, lazySources)
	_, err := bootstrap(t, e, `<body><z type="panel" id="p"></z></body>`)
	assert.Nil(t, err)

	ch := make(chan created, 1)
	var panel *Instance
	on(t, e, func() {
		panel = declared(e, types.RootId, "p")
		assert.Nil(t, panel.handle.LazyInit("f", callback(ch)))
	})
	c := waitCreated(t, ch)
	assert.Nil(t, c.err)
	on(t, e, func() {
		f := declared(e, panel.Id, "f")
		inner := declared(e, panel.Id, "inner")
		assert.NotNil(t, inner)
		assert.Equal(t, f.Id, inner.Parent)
		assert.Equal(t, panel.Id, inner.SourceParent)
		assert.True(t, inner.Visible)
		assert.Same(t, f.Fragment, inner.Anchor.Parent.Parent)
	})
}

// inDocument reports whether n hangs from the page document.
func inDocument(e *Engine, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == e.Document() {
			return true
		}
	}
	return false
}

func TestLazyChildRebuiltAfterFree(t *testing.T) {
	e, _ := newTestEngine(t, lazySources)
	_, err := bootstrap(t, e, `<body><z type="panel" id="p"></z></body>`)
	assert.Nil(t, err)

	ch := make(chan created, 1)
	var panel *Instance
	on(t, e, func() {
		panel = declared(e, types.RootId, "p")
		assert.Nil(t, panel.handle.LazyInit("f", callback(ch)))
	})
	first := waitCreated(t, ch)
	assert.Nil(t, first.err)
	on(t, e, func() {
		f := declared(e, panel.Id, "f")
		anchor := f.Anchor
		assert.Nil(t, first.zx.Free())
		assert.Nil(t, declared(e, panel.Id, "f"))
		assert.Nil(t, declared(e, panel.Id, "inner"))
		assert.Equal(t, "f", dom.AttrOr(anchor, types.AttrId))
		assert.Nil(t, panel.handle.LazyInit("f", callback(ch)))
	})
	second := waitCreated(t, ch)
	assert.Nil(t, second.err)
	assert.NotEqual(t, first.zx.Id(), second.zx.Id())
	on(t, e, func() {
		f := declared(e, panel.Id, "f")
		inner := declared(e, panel.Id, "inner")
		assert.NotNil(t, inner)
		assert.Equal(t, f.Id, inner.Parent)
		assert.True(t, inner.Visible)
		assert.True(t, inDocument(e, inner.Fragment))
		assert.Same(t, f.Fragment, inner.Anchor.Parent.Parent)
		out := dom.String(f.Anchor)
		assert.True(t, strings.Contains(out, `<div class="z-impl" id="in"><z type="label" id="inner-`), out)
		assert.True(t, strings.Contains(out, "<span>label</span>"), out)
	})
}

func TestRoutedChildBuiltBeforeItsSibling(t *testing.T) {
	e, m := newTestEngine(t, lazySources)
	_, err := bootstrap(t, e, `<body><z type="panel" id="p"></z></body>`)
	assert.Nil(t, err)

	// label is loaded already, the frame arrives after inner is built
	m.Hold("frame")
	ch := make(chan created, 1)
	var panel *Instance
	on(t, e, func() {
		panel = declared(e, types.RootId, "p")
		assert.Nil(t, panel.handle.LazyInit("f", callback(ch)))
		assert.NotNil(t, declared(e, panel.Id, "inner"))
	})
	m.Release("frame")
	c := waitCreated(t, ch)
	assert.Nil(t, c.err)
	on(t, e, func() {
		f := declared(e, panel.Id, "f")
		inner := declared(e, panel.Id, "inner")
		assert.Equal(t, f.Id, inner.Parent)
		assert.True(t, inDocument(e, inner.Fragment))
		assert.Same(t, f.Fragment, inner.Anchor.Parent.Parent)
		// the markup of the panel is composed once
		assert.Equal(t, 1, len(dom.AllByTag(f.Anchor, "span")))
	})
}

func TestConcurrentLazyInit(t *testing.T) {
	e, m := newTestEngine(t, map[string]string{
		"panel": `<div><z type="slow" id="later" lazy></z></div>`,
		"slow":  `<em>slow</em>`,
	})
	_, err := bootstrap(t, e, `<body><z type="panel" id="p"></z></body>`)
	assert.Nil(t, err)

	m.Hold("slow")
	ch := make(chan created, 2)
	on(t, e, func() {
		panel := declared(e, types.RootId, "p")
		assert.Nil(t, panel.handle.LazyInit("later", callback(ch)))
		assert.Nil(t, panel.handle.LazyInit("later", callback(ch)))
		assert.ErrorIs(t, panel.handle.Create(nil, "slow", "later", nil), types.ErrStructural)
	})
	m.Release("slow")
	a := waitCreated(t, ch)
	b := waitCreated(t, ch)
	assert.Nil(t, a.err)
	assert.Nil(t, b.err)
	assert.Equal(t, a.zx.Id(), b.zx.Id())
	assert.Equal(t, 1, m.Calls("slow"))
}

func TestRedirect(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"frame": `<section><z-slot id="in"></z-slot></section>`,
		"label": `<span>label</span>`,
	})
	root, err := bootstrap(t, e, `<body><z type="frame" id="y">`+
		`<div class="z-impl" id="in"><z type="label" id="z"></z></div></z></body>`)
	assert.Nil(t, err)
	on(t, e, func() {
		y := declared(e, types.RootId, "y")
		z := declared(e, types.RootId, "z")
		assert.Equal(t, y.Id, z.Parent)
		assert.Equal(t, types.RootId, z.SourceParent)

		// declared by the page, a child of the frame
		zx, err := root.Get("z")
		assert.Nil(t, err)
		assert.Equal(t, z.Id, zx.Id())
		assert.Equal(t, 1, len(root.GetAll()))
		assert.Equal(t, z.Id, y.handle.GetAll()[0].Id())

		// hiding the frame hides the redirected child
		assert.Nil(t, y.handle.Hide())
		assert.False(t, z.Visible)
	})
}

// orderSources declares a1 > (b1 > c2), c1.
var orderSources = map[string]string{
	"a": `<div><z type="b" id="b1"></z><z type="c" id="c1"></z></div>`,
	"b": `<div><z type="c" id="c2"></z></div>`,
	"c": `<i>c</i>`,
}

func TestCreationAndInitOrder(t *testing.T) {
	var createdOrder, initOrder []string
	record := func(zx types.Handle) error {
		createdOrder = append(createdOrder, zx.ComponentId())
		zx.SetInitHandler(func() { initOrder = append(initOrder, zx.ComponentId()) })
		return nil
	}
	e, _ := newTestEngine(t, nil,
		types.WithHook("a", record), types.WithHook("b", record), types.WithHook("c", record),
		types.WithInit(func(zx types.Handle) error {
			initOrder = append(initOrder, "page")
			return nil
		}))
	for _, name := range []string{"a", "b", "c"} {
		assert.Nil(t, e.Register(name, []byte(orderSources[name])))
	}
	_, err := bootstrap(t, e, `<body><z type="a" id="a1"></z></body>`)
	assert.Nil(t, err)
	on(t, e, func() {
		assert.Equal(t, []string{"a1", "b1", "c2", "c1"}, createdOrder)
		assert.Equal(t, []string{"c2", "b1", "c1", "a1", "page"}, initOrder)
	})
}

func TestRollbackOnMissingType(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a": `<div><z type="c" id="c1"></z><z type="nope" id="n"></z></div>`,
		"c": `<i>c</i>`,
	})
	_, err := bootstrap(t, e, `<body><z type="a" id="a1"></z></body>`)
	assert.ErrorIs(t, err, types.ErrTransport)
	on(t, e, func() {
		assert.Equal(t, 1, e.tree.Len())
		def, ok := e.registry.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 0, def.Refs())
	})
}

var errBoom = errors.New("boom")

func TestRollbackOnHookError(t *testing.T) {
	e, _ := newTestEngine(t, orderSources, types.WithHook("c", func(zx types.Handle) error {
		if zx.ComponentId() == "c1" {
			return errBoom
		}
		return nil
	}))
	_, err := bootstrap(t, e, `<body><z type="a" id="a1"></z></body>`)
	assert.ErrorIs(t, err, errBoom)
	on(t, e, func() {
		assert.Equal(t, 1, e.tree.Len())
	})
	assert.False(t, strings.Contains(render(t, e), "<i>c</i>"))
}

func TestRedirectToFreedSibling(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"frame": `<section><z-slot id="in"></z-slot></section>`,
		"label": `<span>label</span>`,
	}, types.WithHook("frame", func(zx types.Handle) error {
		return zx.Free()
	}))
	_, err := bootstrap(t, e, `<body><z type="label" id="x"></z><z type="frame" id="y">`+
		`<div class="z-impl" id="in"><z type="label" id="z"></z></div></z></body>`)
	assert.ErrorIs(t, err, types.ErrStructural)
	on(t, e, func() {
		assert.Equal(t, 1, e.tree.Len())
		assert.Nil(t, declared(e, types.RootId, "x"))
		assert.Nil(t, declared(e, types.RootId, "z"))
		def, ok := e.registry.Get("label")
		assert.True(t, ok)
		assert.Equal(t, 0, def.Refs())
	})
	assert.False(t, strings.Contains(render(t, e), "<span>label</span>"))
}

func TestCreate(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>label</span>`})
	root, err := bootstrap(t, e, `<body></body>`)
	assert.Nil(t, err)

	ch := make(chan created, 2)
	on(t, e, func() {
		assert.Nil(t, root.Create(nil, "label", "", callback(ch)))
	})
	c := waitCreated(t, ch)
	assert.Nil(t, c.err)
	assert.Equal(t, "dyn0", c.zx.ComponentId())
	assert.True(t, c.zx.Visible())

	on(t, e, func() {
		assert.ErrorIs(t, root.Create(nil, "label", "dyn0", nil), types.ErrStructural)
		assert.ErrorIs(t, root.Create(nil, "", "x", nil), types.ErrConfiguration)
		assert.Nil(t, root.Create(nil, "label", "", callback(ch)))
	})
	second := waitCreated(t, ch)
	assert.Nil(t, second.err)
	assert.Equal(t, "dyn1", second.zx.ComponentId())

	on(t, e, func() {
		inst, err := e.tree.Get(c.zx.Id())
		assert.Nil(t, err)
		anchor := inst.Anchor
		assert.True(t, dom.Attached(anchor))
		assert.Nil(t, c.zx.Free())
		assert.False(t, dom.Attached(anchor))
	})
	out := render(t, e)
	assert.False(t, strings.Contains(out, `id="dyn0`), out)
	assert.True(t, strings.Contains(out, `id="dyn1`), out)
}

func TestCreateIntoContainer(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>label</span>`})
	root, err := bootstrap(t, e, `<body><ul id="list"></ul></body>`)
	assert.Nil(t, err)

	ch := make(chan created, 1)
	on(t, e, func() {
		assert.Nil(t, root.Create(dom.ById(root.Fragment(), "list"), "label", "item", callback(ch)))
	})
	c := waitCreated(t, ch)
	assert.Nil(t, c.err)
	on(t, e, func() {
		list := dom.ById(root.Fragment(), "list")
		assert.Equal(t, 1, len(dom.Elements(list)))
		assert.Equal(t, "label", dom.AttrOr(dom.Elements(list)[0], types.AttrType))
	})
}

func TestCreateFailureRemovesAnchor(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>label</span>`})
	root, err := bootstrap(t, e, `<body></body>`)
	assert.Nil(t, err)

	ch := make(chan created, 1)
	on(t, e, func() {
		assert.Nil(t, root.Create(nil, "nope", "n", callback(ch)))
	})
	c := waitCreated(t, ch)
	assert.ErrorIs(t, c.err, types.ErrTransport)
	assert.Nil(t, c.zx)
	assert.False(t, strings.Contains(render(t, e), `type="nope"`))
}

func TestCopy(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>label</span>`})
	root, err := bootstrap(t, e, `<body><div id="list"><z type="label" id="s"></z><hr/></div></body>`)
	assert.Nil(t, err)

	var sampleId string
	on(t, e, func() {
		sampleId = declared(e, types.RootId, "s").Id
	})

	ch := make(chan created, 2)
	on(t, e, func() {
		assert.Nil(t, root.Copy(sampleId, callback(ch), 0))
	})
	first := waitCreated(t, ch)
	assert.Nil(t, first.err)
	assert.Equal(t, "label", first.zx.TypeName())

	on(t, e, func() {
		assert.Nil(t, root.Copy(sampleId, callback(ch)))
	})
	last := waitCreated(t, ch)
	assert.Nil(t, last.err)

	on(t, e, func() {
		items := dom.Elements(dom.ById(root.Fragment(), "list"))
		assert.Equal(t, 4, len(items))
		assert.Equal(t, first.zx.Id(), dom.AttrOr(items[0], types.AttrId))
		assert.Equal(t, sampleId, dom.AttrOr(items[1], types.AttrId))
		assert.True(t, dom.IsElement(items[2], "hr"))
		assert.Equal(t, last.zx.Id(), dom.AttrOr(items[3], types.AttrId))

		assert.ErrorIs(t, root.Copy("unknown", nil), types.ErrStructural)
	})
}

func TestScriptBehavior(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"greeter": `<script>zx.setText("t", {en: "scripted"})</script><b>{{t}}</b>`,
	})
	_, err := bootstrap(t, e, `<body><z type="greeter" id="g"></z></body>`)
	assert.Nil(t, err)
	assert.Equal(t, "scripted", dom.Text(findTag(e, "b")))
}

func TestScriptErrors(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"thrower": `<script>throw new Error("bad")</script><b>x</b>`,
	})
	_, err := bootstrap(t, e, `<body><z type="thrower" id="x"></z></body>`)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad"), err.Error())

	err = e.Register("broken", []byte(`<script>function (</script><b>x</b>`))
	assert.ErrorIs(t, err, types.ErrStructural)
}

func TestScriptsDisabled(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"thrower": `<script>throw new Error("bad")</script><b>x</b>`,
	}, types.WithScripts(false))
	_, err := bootstrap(t, e, `<body><z type="thrower" id="x"></z></body>`)
	assert.Nil(t, err)
}
