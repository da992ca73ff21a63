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

package types

import (
	"context"

	"golang.org/x/net/html"
)

// Markup vocabulary of a type source. Tag names are lower case because the
// html parser folds them.
const (
	// BlockTag marks a child declaration: <z type="button" id="ok"></z>
	BlockTag = "z"
	// SlotTag marks an extension point of a type: <z-slot id="body"></z-slot>
	SlotTag = "z-slot"
	// ImplClass marks an implementation grouping directly inside a block.
	ImplClass = "z-impl"
	// FilePrefix is prepended to the type name to form the source file name.
	FilePrefix = "z"
	// FileExt is the source file extension.
	FileExt = ".html"

	AttrType  = "type"
	AttrId    = "id"
	AttrLazy  = "lazy"
	AttrClass = "class"
	// AttrHidden hides an anchor while its subtree is pending or lazy.
	AttrHidden = "hidden"

	// ScriptParam is the name under which a behavior script sees its handle.
	ScriptParam = "zx"
)

// RootId is the instance id of the page root.
const RootId = "root"

// SourceName returns the source file name of the type, e.g. z-button.html.
func SourceName(typeName string) string {
	return FilePrefix + "-" + typeName + FileExt
}

// HookFunc is a behavior hook. It is invoked once per instance, right after the
// instance is created, with the instance capability handle.
type HookFunc func(zx Handle) error

// OnCreated receives the handle of a constructed subtree root, or the error that
// aborted the construction. It is invoked exactly once per top-level call.
type OnCreated func(zx Handle, err error)

// Handle is the capability handle of one instance. Behavior hooks and completion
// callbacks interact with the engine only through it. Handle methods must be
// called on the engine loop: from hooks, handlers and callbacks, or inside
// Engine.Do.
type Handle interface {
	// Id returns the globally unique instance id.
	Id() string
	// ComponentId returns the id of the declaration the instance realizes.
	ComponentId() string
	// TypeName returns the name of the instance type.
	TypeName() string
	// Fragment returns the render fragment owned by the instance.
	Fragment() *html.Node
	// Visible reports whether the instance is displayed.
	Visible() bool
	Display() error
	// Hide hides the instance unless its hide handler vetoes it.
	Hide() error
	// Get returns the realized child declared with componentId.
	Get(componentId string) (Handle, error)
	// GetAll returns every current child in creation order.
	GetAll() []Handle
	// SetText binds token to one value per configured language.
	SetText(token string, valuesByLang map[string]string) error
	// RefreshTexts rescans the fragment after it has been mutated and refills it.
	RefreshTexts() error
	SetInitHandler(fn func())
	SetDisplayHandler(fn func())
	// SetHideHandler registers fn; fn returning true vetoes the hide.
	SetHideHandler(fn func() bool)
	// Create instantiates typeName as a new child placed at the end of container,
	// or of the instance fragment when container is nil. An empty componentId is
	// generated.
	Create(container *html.Node, typeName string, componentId string, onCreated OnCreated) error
	// Copy instantiates the type of the sample instance as its new sibling, at the
	// given element position when one is passed.
	Copy(sampleId string, onCreated OnCreated, position ...int) error
	// LazyInit materializes the lazy child componentId, or hands over the existing one.
	LazyInit(componentId string, onCreated OnCreated) error
	// Free destroys the instance and its subtree.
	Free() error
}

// Fetcher returns the source of a type. Fetch blocks and is called off the
// engine loop, at most once in flight per type name.
type Fetcher interface {
	Fetch(ctx context.Context, typeName string) ([]byte, error)
}

// BusyIndicator is shown while a construction is running.
type BusyIndicator interface {
	Show()
	Hide()
}

// Pool runs fetch tasks.
type Pool interface {
	// Submit runs task asynchronously, returning an error when the pool is full.
	Submit(task func()) error
	Release()
}
