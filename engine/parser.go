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
	"strings"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/dom"
	"golang.org/x/net/html"
)

// source is a type source split into its three sections.
type source struct {
	style    string
	script   string
	fragment *html.Node
}

// splitSource parses a type source document: an optional <style>, an optional
// <script> and a body with exactly one root element.
func splitSource(name string, src []byte) (*source, error) {
	doc, err := dom.Parse(src)
	if err != nil {
		return nil, types.NewStructuralError("type %s: %v", name, err)
	}
	s := &source{}
	if style := dom.ByTag(doc, "style"); style != nil {
		s.style = dom.Text(style)
		dom.Detach(style)
	}
	if script := dom.ByTag(doc, "script"); script != nil {
		s.script = dom.Text(script)
		dom.Detach(script)
	}
	body := dom.ByTag(doc, "body")
	if body == nil {
		return nil, types.NewStructuralError("type %s has no body", name)
	}
	roots := dom.Elements(body)
	if len(roots) != 1 {
		return nil, types.NewStructuralError("type %s must have exactly one root element, found %d", name, len(roots))
	}
	s.fragment = roots[0]
	dom.Detach(s.fragment)
	return s, nil
}

// newTypeDef builds and validates the definition of a template fragment.
func newTypeDef(name string, fragment *html.Node) (*types.TypeDef, error) {
	def := &types.TypeDef{Name: name, Fragment: fragment}
	if err := checkImplBlocks(name, fragment); err != nil {
		return nil, err
	}
	slots, err := slotIds(name, fragment)
	if err != nil {
		return nil, err
	}
	def.Slots = slots

	blocks := blocksOf(fragment)
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		decl, err := childDecl(name, b, len(blocks))
		if err != nil {
			return nil, err
		}
		if seen[decl.Id] {
			return nil, types.NewStructuralError("type %q declares component %q twice", name, decl.Id)
		}
		seen[decl.Id] = true
		def.Children = append(def.Children, decl)
	}
	if err := checkRouting(def); err != nil {
		return nil, err
	}
	return def, nil
}

// blocksOf returns the child declaration markers of a fragment in document
// order, the fragment root included.
func blocksOf(fragment *html.Node) []*html.Node {
	var blocks []*html.Node
	if dom.IsElement(fragment, types.BlockTag) {
		blocks = append(blocks, fragment)
	}
	return append(blocks, dom.AllByTag(fragment, types.BlockTag)...)
}

func childDecl(typeName string, block *html.Node, siblings int) (*types.ChildDecl, error) {
	childType := dom.AttrOr(block, types.AttrType)
	if childType == "" {
		return nil, types.NewConfigurationError("type %q: every <%s> needs a %q attribute", typeName, types.BlockTag, types.AttrType)
	}
	id := dom.AttrOr(block, types.AttrId)
	if id == "" && siblings > 1 {
		return nil, types.NewConfigurationError("type %q: component of type %q needs an %q attribute", typeName, childType, types.AttrId)
	}
	return &types.ChildDecl{
		Id:    id,
		Type:  childType,
		Lazy:  dom.HasAttr(block, types.AttrLazy),
		Impls: implementations(block),
	}, nil
}

// implementations reads the content of a block. Elements marked z-impl group
// content per extension point; without them, any content fills the single
// extension point of the child type.
func implementations(block *html.Node) []types.Implementation {
	var impls []types.Implementation
	for _, e := range dom.Elements(block) {
		if dom.HasClass(e, types.ImplClass) {
			impls = append(impls, types.Implementation{
				Id:         dom.AttrOr(e, types.AttrId),
				Components: componentsOf(e),
			})
		}
	}
	if len(impls) > 0 || !hasContent(block) {
		return impls
	}
	return []types.Implementation{{Components: componentsOf(block)}}
}

// componentsOf lists the ids of blocks inside e owned by the block e belongs
// to: blocks nested in another block belong to that one.
func componentsOf(e *html.Node) []string {
	var ids []string
	dom.Walk(e, func(n *html.Node) bool {
		if dom.IsElement(n, types.BlockTag) {
			ids = append(ids, dom.AttrOr(n, types.AttrId))
			return false
		}
		return true
	})
	return ids
}

func hasContent(n *html.Node) bool {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.ElementNode:
			return true
		case html.TextNode:
			if strings.TrimSpace(ch.Data) != "" {
				return true
			}
		}
	}
	return false
}

// checkImplBlocks rejects implementation groupings that are not directly inside a block.
func checkImplBlocks(typeName string, fragment *html.Node) error {
	var err error
	dom.Walk(fragment, func(n *html.Node) bool {
		if err == nil && n.Type == html.ElementNode && dom.HasClass(n, types.ImplClass) && !dom.IsElement(n.Parent, types.BlockTag) {
			err = types.NewStructuralError("type %q: implementation %q is not inside a <%s> element",
				typeName, dom.AttrOr(n, types.AttrId), types.BlockTag)
		}
		return err == nil
	})
	return err
}

func slotIds(typeName string, fragment *html.Node) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, s := range dom.AllByTag(fragment, types.SlotTag) {
		id := dom.AttrOr(s, types.AttrId)
		if id != "" && seen[id] {
			return nil, types.NewStructuralError("type %q declares extension point %q twice", typeName, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// checkRouting rejects components routed into each other in a cycle.
func checkRouting(def *types.TypeDef) error {
	for _, c := range def.Children {
		id := c.Id
		for hops := 0; ; hops++ {
			target, ok := def.RoutedTo(id)
			if !ok {
				break
			}
			if hops > len(def.Children) {
				return types.NewStructuralError("type %q routes component %q in a cycle", def.Name, c.Id)
			}
			id = target.Id
		}
	}
	return nil
}
