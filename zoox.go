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

// Package zoox instantiates declarative components described in html.
//
// # Usage
//
// A page declares components with <z> elements. Each type lives in its own
// source file z-<name>.html with an optional <style>, an optional <script> and
// exactly one root element:
//
//	<!-- z-card.html -->
//	<style>h2 { margin: 0 }</style>
//	<script>zx.setText("more", {en: "More", fr: "Plus"})</script>
//	<div><h2><z-slot id="title"></z-slot></h2><z-slot id="body"></z-slot><a>{{more}}</a></div>
//
//	<!-- page -->
//	<body>
//	  <z type="card" id="news">
//	    <span class="z-impl" id="title">News</span>
//	    <div class="z-impl" id="body"><z type="list" id="items" lazy></z></div>
//	  </z>
//	</body>
//
// Example:
//
//	e, root, err := zoox.Init(ctx, page,
//		types.WithFetcher(fetcher.NewFileFetcher("./types")),
//		types.WithLangs("en", "fr"))
//	if err != nil {
//		return err
//	}
//	defer e.Stop()
//	_ = e.SetLang("fr")
//	_ = e.Render(os.Stdout)
//
// Behavior can also be registered in Go, per type name:
//
//	types.WithHook("card", func(zx types.Handle) error {
//		zx.SetInitHandler(func() { ... })
//		return nil
//	})
package zoox

import (
	"context"
	"reflect"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/engine"
	"github.com/rulego/zoox/utils/str"
)

// Engine is a page engine.
type Engine = engine.Engine

// Handle is the capability handle of an instance.
type Handle = types.Handle

// Option configures an engine.
type Option = types.Option

// New creates an engine configured by opts. Call Bootstrap to materialize a page.
func New(opts ...Option) (*Engine, error) {
	return engine.New(types.NewConfig(opts...))
}

// Init creates an engine, bootstraps page and waits until every non lazy
// component is built. The engine is stopped when the construction fails.
func Init(ctx context.Context, page []byte, opts ...Option) (*Engine, Handle, error) {
	e, err := New(opts...)
	if err != nil {
		return nil, nil, err
	}
	type result struct {
		root Handle
		err  error
	}
	done := make(chan result, 1)
	if err := e.Bootstrap(page, func(root types.Handle, err error) {
		done <- result{root: root, err: err}
	}); err != nil {
		e.Stop()
		return nil, nil, err
	}
	select {
	case r := <-done:
		if r.err != nil {
			e.Stop()
			return nil, nil, r.err
		}
		return e, r.root, nil
	case <-ctx.Done():
		e.Stop()
		return nil, nil, ctx.Err()
	}
}

// RandomId returns a random identifier usable as an element id.
func RandomId() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "z" + str.RandomStr(31)
	}
	return "z" + strings.ReplaceAll(id.String(), "-", "")
}

// ToSlice returns the elements of a slice or an array, and an empty slice for
// anything else.
func ToSlice(v interface{}) []interface{} {
	if v == nil {
		return []interface{}{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]interface{}, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return list
	default:
		return []interface{}{}
	}
}
