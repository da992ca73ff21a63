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
	"sort"
	"strings"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/dom"
	"github.com/rulego/zoox/utils/js"
	"golang.org/x/net/html"
)

// TypeRegistry parses and caches type definitions and attaches the style of a
// type while at least one of its instances is displayed.
type TypeRegistry struct {
	config *types.Config
	// types is a map of parsed types by name
	types map[string]*types.TypeDef
	// names keeps registration order
	names []string
	// styles holds the style element of each type with rules
	styles map[string]*html.Node
	// head receives the style elements
	head *html.Node
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry(config *types.Config) *TypeRegistry {
	return &TypeRegistry{
		config: config,
		types:  make(map[string]*types.TypeDef),
		styles: make(map[string]*html.Node),
	}
}

// SetHead sets the element receiving the style of displayed types.
func (r *TypeRegistry) SetHead(head *html.Node) {
	r.head = head
}

// Register parses the source of a type and adds it to the registry.
func (r *TypeRegistry) Register(name string, src []byte) (*types.TypeDef, error) {
	if name == "" {
		return nil, types.NewConfigurationError("type name can not be empty")
	}
	if _, ok := r.types[name]; ok {
		return nil, types.NewConfigurationError("the type already exists. type=%s", name)
	}
	s, err := splitSource(name, src)
	if err != nil {
		return nil, err
	}
	def, err := newTypeDef(name, s.fragment)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.style) != "" {
		def.Style = scopeStyle(name, s.style)
	}
	def.Script = s.script
	if def.OnCreate, err = r.behavior(name, s.script); err != nil {
		return nil, err
	}
	r.add(def)
	return def, nil
}

// RegisterPage builds the definition of the page root from the document body.
func (r *TypeRegistry) RegisterPage(body *html.Node) (*types.TypeDef, error) {
	return newTypeDef("", body)
}

func (r *TypeRegistry) add(def *types.TypeDef) {
	r.types[def.Name] = def
	r.names = append(r.names, def.Name)
	if def.Style != "" {
		style := dom.NewElement("style", html.Attribute{Key: types.AttrId, Val: def.Name})
		style.AppendChild(dom.NewText(def.Style))
		r.styles[def.Name] = style
	}
	r.config.Debugf(types.ChannelTypes, "registered type=%s children=%d slots=%v", def.Name, len(def.Children), def.Slots)
}

// Get returns the type registered under name.
func (r *TypeRegistry) Get(name string) (*types.TypeDef, bool) {
	def, ok := r.types[name]
	return def, ok
}

// Names returns the registered type names in registration order.
func (r *TypeRegistry) Names() []string {
	names := append([]string(nil), r.names...)
	return names
}

// Display counts one more displayed instance of def and attaches its style on
// the first one.
func (r *TypeRegistry) Display(def *types.TypeDef) {
	if def.Acquire() {
		if style, ok := r.styles[def.Name]; ok && r.head != nil {
			dom.Append(r.head, style)
		}
	}
}

// Hide counts one less displayed instance of def and detaches its style after the last one.
func (r *TypeRegistry) Hide(def *types.TypeDef) {
	if def.Release() {
		if style, ok := r.styles[def.Name]; ok {
			dom.Detach(style)
		}
	}
}

// StyleAttached reports whether the style of the type is on the surface.
func (r *TypeRegistry) StyleAttached(name string) bool {
	style, ok := r.styles[name]
	return ok && dom.Attached(style)
}

// behavior combines the hook registered for the type with its compiled script.
func (r *TypeRegistry) behavior(name, script string) (types.HookFunc, error) {
	hook := r.config.Hooks[name]
	if !r.config.ScriptsEnabled || strings.TrimSpace(script) == "" {
		return hook, nil
	}
	compiled, err := js.Compile(name, types.ScriptParam, script, r.config.ScriptMaxExecutionTime)
	if err != nil {
		return nil, types.NewStructuralError("type %q: invalid behavior script: %v", name, err)
	}
	return func(zx types.Handle) error {
		if hook != nil {
			if err := hook(zx); err != nil {
				return err
			}
		}
		return compiled.Call(zx, nil)
	}, nil
}

// snapshot lists the types for debug dumps.
func (r *TypeRegistry) snapshot() []typeInfo {
	var list []typeInfo
	for _, name := range r.names {
		def := r.types[name]
		list = append(list, typeInfo{Name: name, Display: def.Refs(), Children: def.Children, Slots: def.Slots})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

type typeInfo struct {
	Name     string             `json:"name"`
	Display  int                `json:"display"`
	Children []*types.ChildDecl `json:"children"`
	Slots    []string           `json:"slots"`
}
