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
	"golang.org/x/net/html"
)

var _ types.Handle = (*handle)(nil)

// handle is the capability handle of one instance.
type handle struct {
	engine *Engine
	inst   *Instance
}

func newHandle(e *Engine, inst *Instance) *handle {
	return &handle{engine: e, inst: inst}
}

// live returns the instance while it is registered.
func (h *handle) live() (*Instance, error) {
	return h.engine.tree.Get(h.inst.Id)
}

func (h *handle) Id() string {
	return h.inst.Id
}

func (h *handle) ComponentId() string {
	return h.inst.ComponentId
}

func (h *handle) TypeName() string {
	return h.inst.Type.Name
}

func (h *handle) Fragment() *html.Node {
	return h.inst.Fragment
}

func (h *handle) Visible() bool {
	return h.inst.Visible
}

func (h *handle) Display() error {
	return h.engine.tree.Display(h.inst.Id)
}

func (h *handle) Hide() error {
	return h.engine.tree.Hide(h.inst.Id)
}

// Get returns the handle of a realized child declared by this instance.
func (h *handle) Get(componentId string) (types.Handle, error) {
	if _, err := h.live(); err != nil {
		return nil, err
	}
	child, ok := h.engine.tree.Declared(h.inst.Id, componentId)
	if !ok {
		return nil, types.NewStructuralError("component %q not found in instance %q", componentId, h.inst.Id)
	}
	return child.handle, nil
}

func (h *handle) GetAll() []types.Handle {
	children := h.engine.tree.Children(h.inst.Id)
	list := make([]types.Handle, 0, len(children))
	for _, c := range children {
		list = append(list, c.handle)
	}
	return list
}

func (h *handle) SetText(token string, valuesByLang map[string]string) error {
	return h.engine.text.CreateBinding(h.inst.Id, token, valuesByLang)
}

func (h *handle) RefreshTexts() error {
	return h.engine.text.Refresh(h.inst.Id)
}

func (h *handle) SetInitHandler(fn func()) {
	h.inst.initFn = fn
}

func (h *handle) SetDisplayHandler(fn func()) {
	h.inst.displayFn = fn
}

func (h *handle) SetHideHandler(fn func() bool) {
	h.inst.hideFn = fn
}

func (h *handle) Create(container *html.Node, typeName string, componentId string, onCreated types.OnCreated) error {
	inst, err := h.live()
	if err != nil {
		return err
	}
	return h.engine.builder.Create(inst, container, typeName, componentId, onCreated)
}

func (h *handle) Copy(sampleId string, onCreated types.OnCreated, position ...int) error {
	inst, err := h.live()
	if err != nil {
		return err
	}
	return h.engine.builder.Copy(inst, sampleId, onCreated, position...)
}

func (h *handle) LazyInit(componentId string, onCreated types.OnCreated) error {
	inst, err := h.live()
	if err != nil {
		return err
	}
	return h.engine.builder.LazyInit(inst, componentId, onCreated)
}

func (h *handle) Free() error {
	return h.engine.tree.Free(h.inst.Id)
}
