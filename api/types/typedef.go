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
	"strconv"

	"golang.org/x/net/html"
)

// DynamicIdPrefix prefixes component ids generated for programmatic children.
const DynamicIdPrefix = "dyn"

// Implementation is the caller content assigned to one extension point of the
// declared child type.
type Implementation struct {
	// Id of the extension point, empty when the child type has a single one.
	Id string `json:"id"`
	// Components lists the component ids declared inside the content.
	Components []string `json:"components"`
}

// Has reports whether componentId is placed into this implementation.
func (i Implementation) Has(componentId string) bool {
	for _, c := range i.Components {
		if c == componentId {
			return true
		}
	}
	return false
}

// ChildDecl is a component declared inside the template of a type.
type ChildDecl struct {
	// Id is unique within the declaring type only.
	Id string `json:"id"`
	// Type is the declared type name.
	Type string `json:"type"`
	// Lazy children are materialized on demand.
	Lazy bool `json:"lazy,omitempty"`
	// Impls are the implementations of the child type extension points.
	Impls []Implementation `json:"impls,omitempty"`
	// Dynamic is set for children created programmatically; they carry no content.
	Dynamic bool `json:"dynamic,omitempty"`
}

// Routes reports whether componentId is placed into one of the child implementations.
func (c *ChildDecl) Routes(componentId string) bool {
	for _, impl := range c.Impls {
		if impl.Has(componentId) {
			return true
		}
	}
	return false
}

// TypeDef is a parsed, validated type definition.
type TypeDef struct {
	// Name is empty for the page root type.
	Name string `json:"name"`
	// Fragment is the template root element, cloned for every instance.
	Fragment *html.Node `json:"-"`
	// Style holds the scoped style rules.
	Style string `json:"-"`
	// Script is the behavior script body.
	Script string `json:"-"`
	// OnCreate is the behavior-creation hook, nil when the type has no behavior.
	OnCreate HookFunc `json:"-"`
	// Slots lists the extension point ids in document order.
	Slots []string `json:"slots"`
	// Children lists the child declarations in document order.
	Children []*ChildDecl `json:"children"`

	refs     int
	dynCount int
}

// Child returns the declaration of componentId.
func (t *TypeDef) Child(componentId string) (*ChildDecl, bool) {
	for _, c := range t.Children {
		if c.Id == componentId {
			return c, true
		}
	}
	return nil, false
}

// RoutedTo returns the sibling declaration whose implementations contain componentId.
func (t *TypeDef) RoutedTo(componentId string) (*ChildDecl, bool) {
	for _, c := range t.Children {
		if c.Id != componentId && c.Routes(componentId) {
			return c, true
		}
	}
	return nil, false
}

// Refs returns the number of displayed instances of the type.
func (t *TypeDef) Refs() int {
	return t.refs
}

// Acquire counts one more displayed instance and reports the 0→1 transition.
func (t *TypeDef) Acquire() bool {
	t.refs++
	return t.refs == 1
}

// Release counts one less displayed instance and reports the 1→0 transition.
func (t *TypeDef) Release() bool {
	if t.refs == 0 {
		return false
	}
	t.refs--
	return t.refs == 0
}

// NextDynamicId returns a fresh component id for a programmatic child.
func (t *TypeDef) NextDynamicId() string {
	id := DynamicIdPrefix + strconv.Itoa(t.dynCount)
	t.dynCount++
	return id
}
