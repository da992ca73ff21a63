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
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/fetcher"
	"github.com/rulego/zoox/test/assert"
	"github.com/rulego/zoox/utils/dom"
	"golang.org/x/net/html"
)

const waitTimeout = 5 * time.Second

// recordLogger collects log lines.
type recordLogger struct {
	lock  sync.Mutex
	lines []string
}

func (l *recordLogger) Printf(format string, v ...interface{}) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.lines = append(l.lines, format)
}

func newTestEngine(t *testing.T, sources map[string]string, opts ...types.Option) (*Engine, *fetcher.MemoryFetcher) {
	t.Helper()
	m := fetcher.NewMemoryFetcher(sources)
	opts = append([]types.Option{types.WithFetcher(m), types.WithLogger(&recordLogger{})}, opts...)
	e, err := New(types.NewConfig(opts...))
	assert.Nil(t, err)
	t.Cleanup(e.Stop)
	return e, m
}

type created struct {
	zx  types.Handle
	err error
}

// waitCreated waits for one callback result.
func waitCreated(t *testing.T, ch <-chan created) created {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("construction did not complete")
		return created{}
	}
}

func callback(ch chan created) types.OnCreated {
	return func(zx types.Handle, err error) {
		ch <- created{zx: zx, err: err}
	}
}

func bootstrap(t *testing.T, e *Engine, page string) (types.Handle, error) {
	t.Helper()
	ch := make(chan created, 4)
	if err := e.Bootstrap([]byte(page), callback(ch)); err != nil {
		return nil, err
	}
	c := waitCreated(t, ch)
	select {
	case <-ch:
		t.Fatal("completion fired twice")
	case <-time.After(20 * time.Millisecond):
	}
	return c.zx, c.err
}

// on runs fn on the engine loop.
func on(t *testing.T, e *Engine, fn func()) {
	t.Helper()
	assert.Nil(t, e.Do(func() error {
		fn()
		return nil
	}))
}

func declared(e *Engine, parent, componentId string) *Instance {
	inst, _ := e.tree.Declared(parent, componentId)
	return inst
}

func render(t *testing.T, e *Engine) string {
	t.Helper()
	var buf bytes.Buffer
	assert.Nil(t, e.Render(&buf))
	return buf.String()
}

func TestBootstrap(t *testing.T) {
	e, m := newTestEngine(t, map[string]string{
		"card":  `<style>h2 { margin: 0 }</style><div class="card"><h2><z-slot id="title"></z-slot></h2><z-slot id="body"></z-slot></div>`,
		"label": `<span>label</span>`,
	})
	root, err := bootstrap(t, e, `<html><head></head><body>`+
		`<z type="card" id="news" class="wide">`+
		`<b class="z-impl" id="title">News</b>`+
		`<div class="z-impl" id="body"><z type="label" id="l1"></z><z type="label" id="l2"></z></div>`+
		`</z></body></html>`)
	assert.Nil(t, err)
	assert.Equal(t, types.RootId, root.Id())
	assert.Equal(t, 1, m.Calls("card"))
	assert.Equal(t, 1, m.Calls("label"))

	out := render(t, e)
	assert.True(t, strings.Contains(out, `<z type="card" id="news-`), out)
	assert.True(t, strings.Contains(out, `"><div class="card wide"><h2><b class="z-impl" id="title">News</b></h2><div class="z-impl" id="body"><z type="label" id="l1-`), out)
	assert.True(t, strings.Contains(out, `<z type="label" id="l1-`), out)
	assert.True(t, strings.Contains(out, `<style id="card">`), out)
	assert.True(t, strings.Contains(out, `z[type="card"] h2 {`), out)
	assert.False(t, strings.Contains(out, "hidden"), out)
	assert.False(t, strings.Contains(out, "z-slot"), out)

	on(t, e, func() {
		news := declared(e, types.RootId, "news")
		assert.NotNil(t, news)
		assert.Equal(t, types.RootId, news.Parent)
		l1 := declared(e, types.RootId, "l1")
		assert.NotNil(t, l1)
		// declared under the page, placed into the card
		assert.Equal(t, types.RootId, l1.SourceParent)
		assert.Equal(t, news.Id, l1.Parent)
		assert.Equal(t, 4, e.tree.Len())
	})

	err = e.Bootstrap([]byte(`<body></body>`), nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestEngineLookup(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>x</span>`})
	assert.Nil(t, e.Root())
	_, err := bootstrap(t, e, `<body><z type="label" id="a"></z></body>`)
	assert.Nil(t, err)

	h, err := e.Lookup("a-0")
	assert.Nil(t, err)
	assert.Equal(t, "a", h.ComponentId())
	assert.Equal(t, "label", h.TypeName())
	assert.True(t, h.Visible())

	_, err = e.Lookup("nope")
	assert.ErrorIs(t, err, types.ErrStructural)
	assert.Equal(t, types.RootId, e.Root().Id())
}

func TestEngineRegisterAndLoadDir(t *testing.T) {
	e, m := newTestEngine(t, nil)
	assert.Nil(t, e.Register("label", []byte(`<span>x</span>`)))
	assert.ErrorIs(t, e.Register("label", []byte(`<span>x</span>`)), types.ErrConfiguration)
	assert.ErrorIs(t, e.Register("", []byte(`<span>x</span>`)), types.ErrConfiguration)

	_, err := bootstrap(t, e, `<body><z type="label" id="a"></z></body>`)
	assert.Nil(t, err)
	assert.Equal(t, 0, m.Calls("label"))

	assert.NotNil(t, e.LoadDir(t.TempDir()+"/missing"))
}

func TestEngineSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"label": `<span>x</span>`})
	_, err := bootstrap(t, e, `<body><z type="label" id="a"></z></body>`)
	assert.Nil(t, err)
	data, err := e.Snapshot()
	assert.Nil(t, err)
	s := string(data)
	assert.True(t, strings.Contains(s, `"name": "label"`), s)
	assert.True(t, strings.Contains(s, `"id": "a-0"`), s)
	assert.True(t, strings.Contains(s, `"lang": "en"`), s)
}

func TestEngineStop(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.Stop()
	e.Stop()
	err := e.Do(func() error { return nil })
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestBusyIndicator(t *testing.T) {
	busy := &countingBusy{}
	e, _ := newTestEngine(t, map[string]string{"label": `<span>x</span>`},
		types.WithLoader(func() types.BusyIndicator { return busy }))
	_, err := bootstrap(t, e, `<body><z type="label" id="a"></z></body>`)
	assert.Nil(t, err)
	on(t, e, func() {
		assert.Equal(t, 1, busy.shown)
		assert.Equal(t, 1, busy.hidden)
	})
}

type countingBusy struct {
	shown, hidden int
}

func (b *countingBusy) Show() { b.shown++ }
func (b *countingBusy) Hide() { b.hidden++ }

func TestDebugDump(t *testing.T) {
	logger := &recordLogger{}
	e, _ := newTestEngine(t, map[string]string{"label": `<span>x</span>`},
		types.WithDebug(types.DebugAll), types.WithLogger(logger))
	_, err := bootstrap(t, e, `<body><z type="label" id="a"></z></body>`)
	assert.Nil(t, err)

	logger.lock.Lock()
	defer logger.lock.Unlock()
	var channels []string
	for _, l := range logger.lines {
		channels = append(channels, strings.SplitN(l, " ", 2)[0])
	}
	joined := strings.Join(channels, ",")
	for _, c := range []string{types.ChannelTypes, types.ChannelInst, types.ChannelLoad} {
		assert.True(t, strings.Contains(joined, c), joined)
	}
}

// findTag returns the first element with tag in the page, on the loop.
func findTag(e *Engine, tag string) *html.Node {
	return dom.ByTag(e.Document(), tag)
}
