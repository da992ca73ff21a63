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

// Placeholder returns the placeholder form of a token: {{token}}.
func Placeholder(token string) string {
	return "{{" + token + "}}"
}

// binding is a token with one value per configured language.
type binding struct {
	token  string
	values map[string]string
}

// occurrence is a text node holding placeholders, with its original content.
type occurrence struct {
	node     *html.Node
	original string
	// filled is the content last written by the engine
	filled string
	tokens []string
}

func (o *occurrence) has(token string) bool {
	for _, t := range o.tokens {
		if t == token {
			return true
		}
	}
	return false
}

// textState holds the bindings and occurrences of one instance.
type textState struct {
	bindings    []*binding
	occurrences []*occurrence
}

func (s *textState) binding(token string) *binding {
	for _, b := range s.bindings {
		if b.token == token {
			return b
		}
	}
	return nil
}

func (s *textState) occurrence(n *html.Node) *occurrence {
	for _, o := range s.occurrences {
		if o.node == n {
			return o
		}
	}
	return nil
}

// TextEngine binds tokens to localized values and fills their placeholders in
// the text nodes of instance fragments.
type TextEngine struct {
	config *types.Config
	tree   *InstanceTree
	lang   string
	states map[string]*textState
}

// NewTextEngine creates a text engine using the initial language of config.
func NewTextEngine(config *types.Config, tree *InstanceTree) *TextEngine {
	return &TextEngine{
		config: config,
		tree:   tree,
		lang:   config.Lang,
		states: make(map[string]*textState),
	}
}

// Lang returns the active language.
func (e *TextEngine) Lang() string {
	return e.lang
}

// CreateBinding binds token to values for the instance and fills the
// placeholders found in its fragment. Rebinding a token replaces its values.
func (e *TextEngine) CreateBinding(id, token string, values map[string]string) error {
	inst, err := e.tree.Get(id)
	if err != nil {
		return err
	}
	if token == "" {
		return types.NewConfigurationError("instance %s: empty text token", id)
	}
	placeholder := Placeholder(token)
	bound := make(map[string]string, len(e.config.Langs))
	for _, lang := range e.config.Langs {
		v := values[lang]
		if v == "" {
			return types.NewConfigurationError("text not found. id=%s token=%s lang=%s", id, token, lang)
		}
		if v == placeholder {
			return types.NewConfigurationError("text value of token %s can not be its own placeholder", token)
		}
		bound[lang] = v
	}
	state := e.state(id)
	if b := state.binding(token); b != nil {
		b.values = bound
	} else {
		state.bindings = append(state.bindings, &binding{token: token, values: bound})
	}
	e.scan(inst, state, token)
	e.fillState(state)
	e.config.Debugf(types.ChannelText, "binding id=%s token=%s occurrences=%d", id, token, len(state.occurrences))
	return nil
}

func (e *TextEngine) state(id string) *textState {
	state, ok := e.states[id]
	if !ok {
		state = &textState{}
		e.states[id] = state
	}
	return state
}

// scan records the text nodes of the fragment that contain the placeholder of token.
func (e *TextEngine) scan(inst *Instance, state *textState, token string) {
	placeholder := Placeholder(token)
	for _, n := range dom.TextNodes(inst.Fragment) {
		if o := state.occurrence(n); o != nil {
			if !o.has(token) && strings.Contains(o.original, placeholder) {
				o.tokens = append(o.tokens, token)
			}
			continue
		}
		if strings.Contains(n.Data, placeholder) {
			state.occurrences = append(state.occurrences, &occurrence{node: n, original: n.Data, tokens: []string{token}})
		}
	}
}

// Fill fills the placeholders of the instance and of its current children with
// the values of the active language.
func (e *TextEngine) Fill(id string) error {
	inst, err := e.tree.Get(id)
	if err != nil {
		return err
	}
	e.fill(inst)
	return nil
}

func (e *TextEngine) fill(inst *Instance) {
	if state, ok := e.states[inst.Id]; ok {
		e.fillState(state)
	}
	for _, child := range e.tree.Children(inst.Id) {
		e.fill(child)
	}
}

// fillState rebuilds every occurrence from its original content. Values are
// inserted in one pass and never scanned for placeholders again.
func (e *TextEngine) fillState(state *textState) {
	for _, o := range state.occurrences {
		pairs := make([]string, 0, 2*len(o.tokens))
		for _, token := range o.tokens {
			if b := state.binding(token); b != nil {
				pairs = append(pairs, Placeholder(token), b.values[e.lang])
			}
		}
		o.filled = strings.NewReplacer(pairs...).Replace(o.original)
		o.node.Data = o.filled
	}
}

// SetLanguage switches the active language and fills the tree from root, the
// whole tree when root is empty.
func (e *TextEngine) SetLanguage(lang, root string) error {
	if !e.config.HasLang(lang) {
		return types.NewConfigurationError("unknown language %q, expected one of %v", lang, e.config.Langs)
	}
	if root == "" {
		root = types.RootId
	}
	e.lang = lang
	e.config.Debugf(types.ChannelText, "language=%s root=%s", lang, root)
	return e.Fill(root)
}

// Refresh restores the original texts of the instance, rescans its fragment for
// the placeholders of every bound token and fills it again. A text node rewritten
// since the last fill keeps its new content.
func (e *TextEngine) Refresh(id string) error {
	inst, err := e.tree.Get(id)
	if err != nil {
		return err
	}
	state, ok := e.states[id]
	if !ok {
		return nil
	}
	for _, o := range state.occurrences {
		if o.node.Data == o.filled {
			o.node.Data = o.original
		}
	}
	state.occurrences = nil
	for _, b := range state.bindings {
		e.scan(inst, state, b.token)
	}
	e.fillState(state)
	return nil
}

// Drop forgets the bindings of a freed instance.
func (e *TextEngine) Drop(id string) {
	delete(e.states, id)
}
