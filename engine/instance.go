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
	"fmt"
	"strconv"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/dom"
	"golang.org/x/net/html"
)

// Instance is a realized node of the component tree.
type Instance struct {
	// Id is globally unique and never reused
	Id string
	// ComponentId is the id of the realized declaration, unique within the declaring type
	ComponentId string
	// SourceParent is the id of the declaring parent instance
	SourceParent string
	// Parent is the effective parent, see InstanceTree.Redirect
	Parent string
	Type   *types.TypeDef
	// Fragment is the render fragment owned by the instance
	Fragment *html.Node
	// Anchor is the block element the fragment is attached to
	Anchor *html.Node
	// OwnsAnchor is set when the anchor was created programmatically and goes away with the instance
	OwnsAnchor bool
	Visible    bool

	// anchors holds the anchor of every child declaration by component id
	anchors map[string]*html.Node
	// contents keeps the markup written inside child anchors by component id
	contents map[string]*content
	// redirected is set once the effective parent is resolved
	redirected bool
	handle     types.Handle
	initFn     func()
	displayFn  func()
	hideFn     func() bool
}

// Handle returns the capability handle of the instance.
func (inst *Instance) Handle() types.Handle {
	return inst.handle
}

// ChildAnchor returns the anchor of the child declared with componentId.
func (inst *Instance) ChildAnchor(componentId string) (*html.Node, bool) {
	a, ok := inst.anchors[componentId]
	return a, ok
}

// content is the markup a parent wrote inside the anchor of a declared child.
type content struct {
	// root is a copy of the anchor taken before any child was built
	root *html.Node
	// paths locates inside root the anchors of the declarations placed there
	paths map[string][]int
}

// contentsOf copies the markup of every anchor, with the position of the
// anchors nested in it.
func contentsOf(anchors map[string]*html.Node) map[string]*content {
	contents := make(map[string]*content, len(anchors))
	for id, anchor := range anchors {
		c := &content{root: dom.Clone(anchor), paths: make(map[string][]int)}
		for nested, a := range anchors {
			if a == anchor {
				continue
			}
			if path, ok := dom.PathOf(anchor, a); ok {
				c.paths[nested] = path
			}
		}
		contents[id] = c
	}
	return contents
}

// InstanceTree is the registry of live instances. It owns visibility, hierarchy
// and effective-parent redirection.
type InstanceTree struct {
	registry *TypeRegistry
	counter  int
	// instances by id
	instances map[string]*Instance
	// children holds the ordered effective children of every instance
	children map[string][]string
	// declared maps a source parent id and a component id to the instance id
	declared map[string]map[string]string
	// order keeps creation order
	order []string
	// newHandle builds the capability handle of a new instance
	newHandle func(inst *Instance) types.Handle
	// onFree is called for every freed instance
	onFree func(inst *Instance)
}

// NewInstanceTree creates an empty tree.
func NewInstanceTree(registry *TypeRegistry, newHandle func(inst *Instance) types.Handle, onFree func(inst *Instance)) *InstanceTree {
	return &InstanceTree{
		registry:  registry,
		instances: make(map[string]*Instance),
		children:  make(map[string][]string),
		declared:  make(map[string]map[string]string),
		newHandle: newHandle,
		onFree:    onFree,
	}
}

// CreateRoot registers the page root. The root is always visible.
func (t *InstanceTree) CreateRoot(def *types.TypeDef, body, anchor *html.Node) *Instance {
	inst := &Instance{
		Id:         types.RootId,
		Type:       def,
		Fragment:   body,
		Anchor:     anchor,
		Visible:    true,
		redirected: true,
		anchors:    anchorsOf(def, body),
	}
	inst.contents = contentsOf(inst.anchors)
	t.add(inst)
	t.registry.Display(def)
	return inst
}

// Create registers a new instance of def declared under parent with
// componentId. anchors maps the child declarations of def to their markers in
// fragment, see anchorsOf. The instance inherits the visibility of its
// declaring parent and the type creation hook runs before Create returns. On a
// hook error the instance stays registered so that the caller can free it.
func (t *InstanceTree) Create(def *types.TypeDef, fragment *html.Node, anchors map[string]*html.Node, anchor *html.Node, componentId string, parent *Instance) (*Instance, error) {
	inst := &Instance{
		Id:           componentId + "-" + strconv.Itoa(t.counter),
		ComponentId:  componentId,
		SourceParent: parent.Id,
		Parent:       parent.Id,
		Type:         def,
		Fragment:     fragment,
		Anchor:       anchor,
		anchors:      anchors,
		contents:     contentsOf(anchors),
	}
	t.counter++
	dom.SetAttr(anchor, types.AttrId, inst.Id)
	t.add(inst)
	if parent.Visible {
		t.attach(inst)
	}
	if def.OnCreate != nil {
		if err := callHook(def.OnCreate, inst.handle); err != nil {
			return inst, fmt.Errorf("create %s of type %q: %w", inst.Id, def.Name, err)
		}
	}
	return inst, nil
}

// anchorsOf maps the child declarations of def to their markers in fragment.
// fragment must be a fresh clone of the template. Anchors placed in the content
// of another child move when that child is built, see Builder.callerContent.
func anchorsOf(def *types.TypeDef, fragment *html.Node) map[string]*html.Node {
	anchors := make(map[string]*html.Node, len(def.Children))
	blocks := blocksOf(fragment)
	for i, decl := range def.Children {
		if i < len(blocks) {
			anchors[decl.Id] = blocks[i]
		}
	}
	return anchors
}

func (t *InstanceTree) add(inst *Instance) {
	t.instances[inst.Id] = inst
	t.order = append(t.order, inst.Id)
	if inst.Id != types.RootId {
		t.children[inst.Parent] = append(t.children[inst.Parent], inst.Id)
		byComponent, ok := t.declared[inst.SourceParent]
		if !ok {
			byComponent = make(map[string]string)
			t.declared[inst.SourceParent] = byComponent
		}
		byComponent[inst.ComponentId] = inst.Id
	}
	if t.newHandle != nil {
		inst.handle = t.newHandle(inst)
	}
}

// Get returns the instance with id.
func (t *InstanceTree) Get(id string) (*Instance, error) {
	if inst, ok := t.instances[id]; ok {
		return inst, nil
	}
	return nil, types.ErrUnknownInstance(id)
}

// Declared returns the instance declared with componentId under the source parent.
func (t *InstanceTree) Declared(sourceParent, componentId string) (*Instance, bool) {
	if id, ok := t.declared[sourceParent][componentId]; ok {
		return t.instances[id], true
	}
	return nil, false
}

// Children returns the effective children of id in creation order.
func (t *InstanceTree) Children(id string) []*Instance {
	ids := t.children[id]
	list := make([]*Instance, 0, len(ids))
	for _, cid := range ids {
		list = append(list, t.instances[cid])
	}
	return list
}

// Len returns the number of live instances.
func (t *InstanceTree) Len() int {
	return len(t.instances)
}

// Display shows the instance and its subtree.
func (t *InstanceTree) Display(id string) error {
	inst, err := t.Get(id)
	if err != nil {
		return err
	}
	t.display(inst)
	return nil
}

func (t *InstanceTree) display(inst *Instance) {
	if inst.Visible {
		return
	}
	t.attach(inst)
	for _, child := range t.Children(inst.Id) {
		t.display(child)
	}
	if inst.displayFn != nil {
		inst.displayFn()
	}
}

func (t *InstanceTree) attach(inst *Instance) {
	inst.Visible = true
	dom.Append(inst.Anchor, inst.Fragment)
	t.registry.Display(inst.Type)
}

// Hide hides the instance and its subtree unless its hide handler vetoes.
// The page root is always visible.
func (t *InstanceTree) Hide(id string) error {
	inst, err := t.Get(id)
	if err != nil {
		return err
	}
	if !inst.Visible || inst.Id == types.RootId {
		return nil
	}
	if inst.hideFn != nil && inst.hideFn() {
		return nil
	}
	t.hide(inst)
	return nil
}

func (t *InstanceTree) hide(inst *Instance) {
	if !inst.Visible {
		return
	}
	dom.Detach(inst.Fragment)
	inst.Visible = false
	t.registry.Hide(inst.Type)
	for _, child := range t.Children(inst.Id) {
		t.hide(child)
	}
}

// Free destroys the instance and its subtree, children first.
func (t *InstanceTree) Free(id string) error {
	inst, err := t.Get(id)
	if err != nil {
		return err
	}
	if inst.Id == types.RootId {
		return types.NewStructuralError("the page root can not be freed")
	}
	t.free(inst)
	return nil
}

func (t *InstanceTree) free(inst *Instance) {
	for _, child := range t.Children(inst.Id) {
		t.free(child)
	}
	if inst.Visible {
		t.hide(inst)
	}
	delete(t.instances, inst.Id)
	delete(t.children, inst.Id)
	delete(t.declared, inst.Id)
	t.children[inst.Parent] = remove(t.children[inst.Parent], inst.Id)
	if byComponent, ok := t.declared[inst.SourceParent]; ok && byComponent[inst.ComponentId] == inst.Id {
		delete(byComponent, inst.ComponentId)
	}
	t.order = remove(t.order, inst.Id)
	if inst.OwnsAnchor {
		dom.Detach(inst.Anchor)
	} else if inst.ComponentId != "" {
		dom.SetAttr(inst.Anchor, types.AttrId, inst.ComponentId)
	} else {
		dom.RemoveAttr(inst.Anchor, types.AttrId)
	}
	if t.onFree != nil {
		t.onFree(inst)
	}
}

// Redirect resolves the effective parent of every instance in list. An instance
// declared by a type that places its component id into the implementation of a
// sibling becomes a child of that sibling's instance. Resolved parents are
// never revisited.
func (t *InstanceTree) Redirect(list []*Instance) error {
	for _, inst := range list {
		if inst.redirected {
			continue
		}
		if _, ok := t.instances[inst.Id]; !ok {
			continue
		}
		source, ok := t.instances[inst.SourceParent]
		if !ok {
			return types.ErrUnknownInstance(inst.SourceParent)
		}
		if sibling, ok := source.Type.RoutedTo(inst.ComponentId); ok {
			target, found := t.Declared(source.Id, sibling.Id)
			if !found {
				return types.NewStructuralError("component %q in instance %q not found", sibling.Id, source.Id)
			}
			t.reparent(inst, target.Id)
		}
		inst.redirected = true
	}
	return nil
}

func (t *InstanceTree) reparent(inst *Instance, parent string) {
	if inst.Parent == parent {
		return
	}
	t.children[inst.Parent] = remove(t.children[inst.Parent], inst.Id)
	inst.Parent = parent
	t.children[parent] = append(t.children[parent], inst.Id)
}

// snapshot lists the instances in creation order for debug dumps.
func (t *InstanceTree) snapshot() []instanceInfo {
	list := make([]instanceInfo, 0, len(t.order))
	for _, id := range t.order {
		inst := t.instances[id]
		list = append(list, instanceInfo{
			Id:           inst.Id,
			ComponentId:  inst.ComponentId,
			SourceParent: inst.SourceParent,
			Parent:       inst.Parent,
			Type:         inst.Type.Name,
			Visible:      inst.Visible,
		})
	}
	return list
}

type instanceInfo struct {
	Id           string `json:"id"`
	ComponentId  string `json:"cId"`
	SourceParent string `json:"sId"`
	Parent       string `json:"pId"`
	Type         string `json:"type"`
	Visible      bool   `json:"visible"`
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// callHook runs a behavior hook, turning a panic into an error.
func callHook(hook types.HookFunc, zx types.Handle) (err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("hook panic: %v", caught)
		}
	}()
	return hook(zx)
}
