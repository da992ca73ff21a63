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
	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/dom"
	"golang.org/x/net/html"
)

// Compose clones template and splices the content of caller into its extension
// points, one per implementation.
func Compose(template, caller *html.Node, impls []types.Implementation) (*html.Node, error) {
	fragment := dom.Clone(template)
	if err := composeInto(fragment, caller, impls); err != nil {
		return nil, err
	}
	return fragment, nil
}

// composeInto fills the extension points of an already cloned fragment. The
// content is inserted right before the anchor, receives the anchor classes and
// the anchor is removed.
func composeInto(fragment, caller *html.Node, impls []types.Implementation) error {
	for _, impl := range impls {
		slot := findSlot(fragment, impl.Id)
		if slot == nil {
			if impl.Id == "" {
				return types.NewStructuralError("extension point not found")
			}
			return types.NewStructuralError("extension point %q not found", impl.Id)
		}
		classes := dom.Classes(slot)
		for _, n := range contentOf(caller, impl.Id) {
			dom.InsertBefore(slot, n)
			if n.Type == html.ElementNode {
				for _, c := range classes {
					dom.AddClass(n, c)
				}
			}
		}
		dom.Detach(slot)
	}
	return nil
}

// findSlot returns the sole anchor when id is empty, else the anchor with id.
func findSlot(fragment *html.Node, id string) *html.Node {
	if id == "" {
		return dom.ByTag(fragment, types.SlotTag)
	}
	return dom.Find(fragment, func(n *html.Node) bool {
		return dom.IsElement(n, types.SlotTag) && dom.AttrOr(n, types.AttrId) == id
	})
}

// contentOf returns the implementation element with id, or the whole content of
// caller when there is none.
func contentOf(caller *html.Node, id string) []*html.Node {
	if id != "" {
		for _, e := range dom.Elements(caller) {
			if dom.AttrOr(e, types.AttrId) == id {
				return []*html.Node{e}
			}
		}
	}
	return dom.Children(caller)
}
