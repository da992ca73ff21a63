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

// Package engine instantiates declarative components.
//
// A page declares components with <z type="name" id="cid"> elements. The engine
// loads each type source once, composes the caller content into the extension
// points of the type template and registers a live instance tree with
// display/hide/free lifecycle, lazy subtrees and localized texts.
//
// Key components:
//   - TypeRegistry: parsed types and their scoped styles
//   - Loader: fetches unknown types, one fetch in flight per name
//   - InstanceTree: live instances, visibility and effective parents
//   - Builder: asynchronous construction passes with single-shot completion
//   - TextEngine: {{token}} placeholders filled per language
//
// Every store is owned by the engine loop goroutine. Hooks and callbacks run on
// the loop; other goroutines go through Engine methods or Engine.Do.
package engine

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/fetcher"
	"github.com/rulego/zoox/utils/dom"
	"github.com/rulego/zoox/utils/fs"
	"github.com/rulego/zoox/utils/json"
	"github.com/rulego/zoox/utils/pool"
	"github.com/rulego/zoox/utils/runtime"
	"golang.org/x/net/html"
)

// Engine is one page: its document, type registry and instance tree.
type Engine struct {
	// Config is the validated engine configuration.
	Config types.Config

	ctx    context.Context
	cancel context.CancelFunc
	loop   *loop
	// ownPool is the fetch pool created when none is configured
	ownPool *pool.WorkerPool

	registry *TypeRegistry
	loader   *Loader
	tree     *InstanceTree
	text     *TextEngine
	builder  *Builder

	doc  *html.Node
	root *Instance

	stopOnce sync.Once
}

// New creates an engine and starts its loop.
func New(config types.Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{Config: config}
	if e.Config.Fetcher == nil && e.Config.Path != "" {
		e.Config.Fetcher = fetcherOf(e.Config.Path)
	}
	if e.Config.Pool == nil {
		e.ownPool = &pool.WorkerPool{}
		e.ownPool.Start()
		e.Config.Pool = e.ownPool
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.registry = NewTypeRegistry(&e.Config)
	e.tree = NewInstanceTree(e.registry,
		func(inst *Instance) types.Handle { return newHandle(e, inst) },
		func(inst *Instance) { e.text.Drop(inst.Id) })
	e.text = NewTextEngine(&e.Config, e.tree)
	e.loop = newLoop(func(v interface{}) {
		e.Config.Logger.Printf("engine loop panic: %v\n%s", v, runtime.Stack())
	})
	e.loader = NewLoader(e.ctx, &e.Config, e.registry, e.loop.Post)
	e.builder = NewBuilder(&e.Config, e.loader, e.tree, e.text)
	return e, nil
}

// fetcherOf returns the fetcher of a source path: an http base url or a directory.
func fetcherOf(path string) types.Fetcher {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return fetcher.NewHttpFetcher(fetcher.HttpConfig{BaseUrl: path})
	}
	return fetcher.NewFileFetcher(path)
}

// Bootstrap parses the page document and materializes the components it
// declares. onReady receives the page root handle once every non lazy
// component is built, or the error that aborted the construction.
func (e *Engine) Bootstrap(page []byte, onReady types.OnCreated) error {
	doc, err := dom.Parse(page)
	if err != nil {
		return types.NewStructuralError("page: %v", err)
	}
	return e.Do(func() error {
		if e.doc != nil {
			return types.NewConfigurationError("the page is already bootstrapped")
		}
		body := dom.ByTag(doc, "body")
		if body == nil || body.Parent == nil {
			return types.NewStructuralError("page has no body")
		}
		head := dom.ByTag(doc, "head")
		if head == nil {
			head = dom.NewElement("head")
			dom.InsertBefore(body, head)
		}
		def, err := e.registry.RegisterPage(body)
		if err != nil {
			return err
		}
		e.doc = doc
		e.registry.SetHead(head)
		e.root = e.tree.CreateRoot(def, body, body.Parent)
		e.builder.BuildPage(e.root, onReady)
		return nil
	})
}

// Do runs fn on the engine loop and waits for it. Handles may be used inside fn.
func (e *Engine) Do(fn func() error) error {
	return e.loop.Do(fn)
}

// Post queues fn onto the engine loop.
func (e *Engine) Post(fn func()) error {
	return e.loop.Post(fn)
}

// Stop cancels pending fetches and ends the loop. Results of fetches still in
// flight are dropped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		e.loop.Stop()
		if e.ownPool != nil {
			e.ownPool.Release()
		}
	})
}

// Register adds a type from its source, so that it is never fetched.
func (e *Engine) Register(name string, src []byte) error {
	return e.Do(func() error {
		_, err := e.registry.Register(name, src)
		return err
	})
}

// LoadDir registers every z-<name>.html type source found under dir.
func (e *Engine) LoadDir(dir string) error {
	sources, err := fs.SourcePaths(dir)
	if err != nil {
		return types.NewTransportError(dir, err)
	}
	for name, path := range sources {
		src := fs.LoadFile(path)
		if src == nil {
			return types.NewTransportError(name, io.ErrUnexpectedEOF)
		}
		if err := e.Register(name, src); err != nil {
			return err
		}
	}
	return nil
}

// GetLang returns the active language.
func (e *Engine) GetLang() string {
	var lang string
	_ = e.Do(func() error {
		lang = e.text.Lang()
		return nil
	})
	return lang
}

// GetLangs returns the configured languages.
func (e *Engine) GetLangs() []string {
	return append([]string(nil), e.Config.Langs...)
}

// SetLang switches the active language and refills every text of the page.
func (e *Engine) SetLang(lang string) error {
	return e.Do(func() error {
		if e.root == nil {
			if !e.Config.HasLang(lang) {
				return types.NewConfigurationError("unknown language %q, expected one of %v", lang, e.Config.Langs)
			}
			e.text.lang = lang
			return nil
		}
		return e.text.SetLanguage(lang, "")
	})
}

// Render writes the current page document.
func (e *Engine) Render(w io.Writer) error {
	return e.Do(func() error {
		if e.doc == nil {
			return types.NewConfigurationError("the page is not bootstrapped")
		}
		return dom.Render(w, e.doc)
	})
}

// Lookup returns the handle of the instance with id.
func (e *Engine) Lookup(id string) (types.Handle, error) {
	var h types.Handle
	err := e.Do(func() error {
		inst, err := e.tree.Get(id)
		if err == nil {
			h = inst.handle
		}
		return err
	})
	return h, err
}

// Root returns the page root handle, nil before Bootstrap.
func (e *Engine) Root() types.Handle {
	var h types.Handle
	_ = e.Do(func() error {
		if e.root != nil {
			h = e.root.handle
		}
		return nil
	})
	return h
}

// Document returns the page document. It must only be read on the loop.
func (e *Engine) Document() *html.Node {
	return e.doc
}

// Snapshot returns the registered types and live instances as json.
func (e *Engine) Snapshot() ([]byte, error) {
	var data []byte
	err := e.Do(func() error {
		var err error
		data, err = json.MarshalIndent(struct {
			Lang      string         `json:"lang"`
			Types     []typeInfo     `json:"types"`
			Instances []instanceInfo `json:"instances"`
		}{
			Lang:      e.text.Lang(),
			Types:     e.registry.snapshot(),
			Instances: e.tree.snapshot(),
		})
		return err
	})
	return data, err
}
