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

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/dom"
	"github.com/rulego/zoox/utils/json"
	"github.com/rulego/zoox/utils/runtime"
	"golang.org/x/net/html"
)

// job is a declared child waiting for its type.
type job struct {
	// parent is the declaring instance
	parent *Instance
	decl   *types.ChildDecl
	anchor *html.Node
	// ownsAnchor is set when the anchor was created for a programmatic child
	ownsAnchor bool
}

// pass is one top-level construction. Every job discovered while building goes
// to the same stack; the pass completes once the stack is empty and no removed
// job still waits for its type.
type pass struct {
	name string
	// jobs is drained last in, first out
	jobs        []*job
	outstanding int
	draining    bool
	finished    bool
	// top is the job whose instance is handed to the callbacks, nil for the page
	top    *job
	result *Instance
	// built lists the instances created by the pass in creation order
	built []*Instance
	// reveal lists the page anchors hidden until the pass completes, the anchor
	// of top is shown as well
	reveal    []*html.Node
	lazyKey   string
	callbacks []types.OnCreated
	busy      types.BusyIndicator
}

func (p *pass) push(j *job) {
	p.jobs = append(p.jobs, j)
}

func (p *pass) pop() *job {
	j := p.jobs[len(p.jobs)-1]
	p.jobs[len(p.jobs)-1] = nil
	p.jobs = p.jobs[:len(p.jobs)-1]
	return j
}

// Builder drives the construction of instance subtrees.
type Builder struct {
	config *types.Config
	loader *Loader
	tree   *InstanceTree
	text   *TextEngine
	// lazy holds the lazy passes in flight by parent id and component id
	lazy map[string]*pass
}

// NewBuilder creates a builder over the engine stores.
func NewBuilder(config *types.Config, loader *Loader, tree *InstanceTree, text *TextEngine) *Builder {
	return &Builder{
		config: config,
		loader: loader,
		tree:   tree,
		text:   text,
		lazy:   make(map[string]*pass),
	}
}

// BuildPage materializes the declared children of the page root. The anchors of
// the direct children stay hidden until the whole page is built; the init hook
// of the configuration runs as the root init handler.
func (b *Builder) BuildPage(root *Instance, onReady types.OnCreated) {
	p := b.newPass("page", onReady)
	p.result = root
	p.built = append(p.built, root)
	if b.config.Init != nil {
		root.initFn = func() {
			if err := callHook(b.config.Init, root.handle); err != nil {
				b.config.Logger.Printf("page init hook failed: %v", err)
			}
		}
	}
	for _, j := range b.enumerate(p, root) {
		// routed anchors live inside a sibling that is hidden already
		if _, routed := root.Type.RoutedTo(j.decl.Id); routed {
			continue
		}
		dom.Hide(j.anchor)
		p.reveal = append(p.reveal, j.anchor)
	}
	b.drain(p)
}

// Create instantiates typeName as a new child of parent, placed at the end of
// container. An empty componentId is generated.
func (b *Builder) Create(parent *Instance, container *html.Node, typeName, componentId string, onCreated types.OnCreated) error {
	if typeName == "" {
		return types.NewConfigurationError("instance %s: create needs a type name", parent.Id)
	}
	if container == nil {
		container = parent.Fragment
	}
	if componentId == "" {
		componentId = b.nextDynamicId(parent)
	} else if err := b.checkFree(parent, componentId); err != nil {
		return err
	}
	anchor := newAnchor(typeName, componentId)
	dom.Append(container, anchor)
	b.start(parent, anchor, typeName, componentId, onCreated)
	return nil
}

// Copy instantiates the type of the sample instance as a new child of parent,
// next to the sample anchor: at the given element position of the anchor
// container, or at its end.
func (b *Builder) Copy(parent *Instance, sampleId string, onCreated types.OnCreated, position ...int) error {
	sample, err := b.tree.Get(sampleId)
	if err != nil {
		return err
	}
	container := sample.Anchor.Parent
	if container == nil {
		return types.NewStructuralError("sample %s is not attached", sampleId)
	}
	componentId := b.nextDynamicId(parent)
	anchor := newAnchor(sample.Type.Name, componentId)
	siblings := dom.Elements(container)
	if len(position) > 0 && position[0] >= 0 && position[0] < len(siblings) {
		dom.InsertBefore(siblings[position[0]], anchor)
	} else {
		dom.Append(container, anchor)
	}
	b.start(parent, anchor, sample.Type.Name, componentId, onCreated)
	return nil
}

// LazyInit materializes the lazy child componentId of parent. onCreated is
// invoked synchronously when the child already exists and queued onto the
// pass in flight when one is already building it.
func (b *Builder) LazyInit(parent *Instance, componentId string, onCreated types.OnCreated) error {
	if inst, ok := b.tree.Declared(parent.Id, componentId); ok {
		if onCreated != nil {
			onCreated(inst.handle, nil)
		}
		return nil
	}
	key := parent.Id + "/" + componentId
	if p, ok := b.lazy[key]; ok {
		if onCreated != nil {
			p.callbacks = append(p.callbacks, onCreated)
		}
		return nil
	}
	decl, ok := parent.Type.Child(componentId)
	if !ok {
		return types.NewStructuralError("type %q declares no component %q", parent.Type.Name, componentId)
	}
	anchor, ok := parent.ChildAnchor(componentId)
	if !ok {
		return types.NewStructuralError("component %q in instance %q has no anchor", componentId, parent.Id)
	}
	p := b.newPass(key, onCreated)
	p.lazyKey = key
	b.lazy[key] = p

	// components routed into the lazy child were skipped with it
	routed := b.routedInto(parent.Type, decl)
	for i := len(routed) - 1; i >= 0; i-- {
		d := routed[i]
		if _, ok := b.tree.Declared(parent.Id, d.Id); ok {
			continue
		}
		if a, ok := parent.ChildAnchor(d.Id); ok {
			p.push(&job{parent: parent, decl: d, anchor: a})
		}
	}
	p.top = &job{parent: parent, decl: decl, anchor: anchor}
	p.push(p.top)
	b.config.Debugf(types.ChannelInst, "lazy init id=%s routed=%d", key, len(routed))
	b.drain(p)
	return nil
}

func (b *Builder) start(parent *Instance, anchor *html.Node, typeName, componentId string, onCreated types.OnCreated) {
	dom.Hide(anchor)
	p := b.newPass(parent.Id+"/"+componentId, onCreated)
	p.top = &job{
		parent:     parent,
		decl:       &types.ChildDecl{Id: componentId, Type: typeName, Dynamic: true},
		anchor:     anchor,
		ownsAnchor: true,
	}
	p.push(p.top)
	b.drain(p)
}

func (b *Builder) newPass(name string, onCreated types.OnCreated) *pass {
	p := &pass{name: name}
	if onCreated != nil {
		p.callbacks = append(p.callbacks, onCreated)
	}
	if b.config.Loader != nil {
		if p.busy = b.config.Loader(); p.busy != nil {
			p.busy.Show()
		}
	}
	return p
}

func newAnchor(typeName, componentId string) *html.Node {
	return dom.NewElement(types.BlockTag,
		html.Attribute{Key: types.AttrType, Val: typeName},
		html.Attribute{Key: types.AttrId, Val: componentId})
}

// nextDynamicId returns the next generated component id free under parent.
func (b *Builder) nextDynamicId(parent *Instance) string {
	for {
		id := parent.Type.NextDynamicId()
		if b.checkFree(parent, id) == nil {
			return id
		}
	}
}

func (b *Builder) checkFree(parent *Instance, componentId string) error {
	if _, ok := b.tree.Declared(parent.Id, componentId); ok {
		return types.NewStructuralError("component %q already exists in instance %q", componentId, parent.Id)
	}
	if _, ok := b.lazy[parent.Id+"/"+componentId]; ok {
		return types.NewStructuralError("component %q is being built in instance %q", componentId, parent.Id)
	}
	return nil
}

// drain takes jobs until the stack is empty. A job resolved synchronously
// pushes its children onto the stack being drained; a job resolved later
// restarts the drain.
func (b *Builder) drain(p *pass) {
	if p.draining {
		return
	}
	p.draining = true
	for !p.finished && len(p.jobs) > 0 {
		j := p.pop()
		p.outstanding++
		b.loader.Resolve(j.decl.Type, func(def *types.TypeDef, err error) {
			b.resolved(p, j, def, err)
		})
	}
	p.draining = false
	if !p.finished && len(p.jobs) == 0 && p.outstanding == 0 {
		b.complete(p)
	}
}

func (b *Builder) resolved(p *pass, j *job, def *types.TypeDef, err error) {
	p.outstanding--
	if p.finished {
		return
	}
	if err == nil {
		err = b.build(p, j, def)
	}
	if err != nil {
		b.fail(p, err)
		return
	}
	b.drain(p)
}

// build creates the instance of a job and pushes its eligible children.
func (b *Builder) build(p *pass, j *job, def *types.TypeDef) error {
	if _, err := b.tree.Get(j.parent.Id); err != nil {
		return err
	}
	if _, ok := b.tree.Declared(j.parent.Id, j.decl.Id); ok {
		return types.NewStructuralError("component %q already exists in instance %q", j.decl.Id, j.parent.Id)
	}
	fragment := dom.Clone(def.Fragment)
	anchors := anchorsOf(def, fragment)
	// classes of the anchor belong to the instance root element
	classes := dom.Classes(j.anchor)
	if !j.decl.Dynamic {
		// a sibling built earlier in the pass may have moved the anchor
		anchor, ok := j.parent.ChildAnchor(j.decl.Id)
		if !ok {
			return types.NewStructuralError("component %q in instance %q has no anchor", j.decl.Id, j.parent.Id)
		}
		j.anchor = anchor
		caller := b.callerContent(j.parent, j.decl.Id, anchor)
		if err := composeInto(fragment, caller, j.decl.Impls); err != nil {
			return fmt.Errorf("component %q of type %q: %w", j.decl.Id, def.Name, err)
		}
		classes = dom.Classes(caller)
	}
	for _, c := range classes {
		dom.AddClass(fragment, c)
	}
	dom.RemoveAttr(j.anchor, types.AttrClass)

	inst, err := b.tree.Create(def, fragment, anchors, j.anchor, j.decl.Id, j.parent)
	if inst != nil {
		inst.OwnsAnchor = j.ownsAnchor
		if j.decl.Dynamic {
			inst.redirected = true
		}
		p.built = append(p.built, inst)
		if j == p.top {
			p.result = inst
		}
	}
	if err != nil {
		return err
	}
	if _, err := b.tree.Get(inst.Id); err == nil {
		b.enumerate(p, inst)
	}
	return nil
}

// callerContent returns a fresh copy of the markup parent wrote inside the
// anchor of componentId and empties the anchor. The anchors of declarations
// placed in that markup move to the copy; one already carrying an instance is
// moved into the copy with it. Every construction of the child composes the
// same markup.
func (b *Builder) callerContent(parent *Instance, componentId string, anchor *html.Node) *html.Node {
	c, ok := parent.contents[componentId]
	if !ok {
		return anchor
	}
	cp := dom.Clone(c.root)
	nodes := make(map[string]*html.Node, len(c.paths))
	for id, path := range c.paths {
		if a := dom.At(cp, path); a != nil {
			nodes[id] = a
		}
	}
	var kept []*html.Node
	for _, d := range parent.Type.Children {
		a, ok := nodes[d.Id]
		if !ok || insideAny(a, kept) {
			continue
		}
		if inst, ok := b.tree.Declared(parent.Id, d.Id); ok {
			dom.InsertBefore(a, inst.Anchor)
			dom.Detach(a)
			kept = append(kept, a)
			parent.anchors[d.Id] = inst.Anchor
			continue
		}
		if d.Lazy {
			dom.Hide(a)
		}
		parent.anchors[d.Id] = a
	}
	for _, n := range dom.Children(anchor) {
		dom.Detach(n)
	}
	return cp
}

func insideAny(n *html.Node, roots []*html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, r := range roots {
			if p == r {
				return true
			}
		}
	}
	return false
}

// enumerate pushes the eligible declared children of inst, the first declared
// one on top. Lazy children are skipped and their anchors hidden; children
// routed into a skipped sibling are skipped with it.
func (b *Builder) enumerate(p *pass, inst *Instance) []*job {
	var pushed []*job
	decls := inst.Type.Children
	for i := len(decls) - 1; i >= 0; i-- {
		d := decls[i]
		if _, ok := b.tree.Declared(inst.Id, d.Id); ok {
			continue
		}
		if _, ok := b.lazy[inst.Id+"/"+d.Id]; ok {
			continue
		}
		if skipped(inst.Type, d) {
			if a, ok := inst.anchors[d.Id]; ok && d.Lazy {
				dom.Hide(a)
			}
			continue
		}
		anchor, ok := inst.anchors[d.Id]
		if !ok {
			continue
		}
		j := &job{parent: inst, decl: d, anchor: anchor}
		p.push(j)
		pushed = append(pushed, j)
	}
	return pushed
}

// skipped reports whether d is left out of ordinary construction.
func skipped(def *types.TypeDef, d *types.ChildDecl) bool {
	for hops := 0; hops <= len(def.Children); hops++ {
		if d.Lazy {
			return true
		}
		sibling, ok := def.RoutedTo(d.Id)
		if !ok {
			return false
		}
		d = sibling
	}
	return false
}

// routedInto lists the non lazy declarations routed into target, directly or
// through other routed declarations, in declaration order.
func (b *Builder) routedInto(def *types.TypeDef, target *types.ChildDecl) []*types.ChildDecl {
	var routed []*types.ChildDecl
	for _, d := range def.Children {
		if d == target || d.Lazy {
			continue
		}
		for cur, hops := d, 0; hops <= len(def.Children); hops++ {
			sibling, ok := def.RoutedTo(cur.Id)
			if !ok || (sibling.Lazy && sibling != target) {
				break
			}
			if sibling == target {
				routed = append(routed, d)
				break
			}
			cur = sibling
		}
	}
	return routed
}

// complete finishes a pass: redirection, init handlers, text fill, reveal and
// callbacks, in that order.
func (b *Builder) complete(p *pass) {
	p.finished = true
	if p.lazyKey != "" {
		delete(b.lazy, p.lazyKey)
	}
	if err := b.tree.Redirect(p.built); err != nil {
		b.abort(p, err)
		return
	}
	origin := p.result
	if origin == nil {
		b.abort(p, types.NewStructuralError("construction %s produced no instance", p.name))
		return
	}
	built := make(map[*Instance]bool, len(p.built))
	for _, inst := range p.built {
		built[inst] = true
	}
	b.runInit(origin, built)
	if err := b.text.Fill(origin.Id); err != nil {
		b.config.Logger.Printf("fill texts of %s: %v", origin.Id, err)
	}
	for _, a := range p.reveal {
		dom.Show(a)
	}
	if p.top != nil {
		dom.Show(p.top.anchor)
	}
	if p.busy != nil {
		p.busy.Hide()
	}
	if types.DebugEnabled(b.config.Debug, types.ChannelInst) {
		if dump, err := json.MarshalIndent(b.tree.snapshot()); err == nil {
			b.config.Debugf(types.ChannelInst, "built %s instances=%d\n%s", p.name, len(p.built), dump)
		}
	}
	for _, cb := range p.callbacks {
		cb(origin.handle, nil)
	}
}

// runInit invokes the init handlers of the instances built by the pass, children first.
func (b *Builder) runInit(inst *Instance, built map[*Instance]bool) {
	for _, child := range b.tree.Children(inst.Id) {
		b.runInit(child, built)
	}
	if built[inst] && inst.initFn != nil {
		safeCall(b.config, "init handler of "+inst.Id, inst.initFn)
	}
}

// fail aborts the pass: every instance it built is freed, an anchor it created
// is removed and the callbacks receive err.
func (b *Builder) fail(p *pass, err error) {
	if p.finished {
		return
	}
	b.abort(p, err)
}

func (b *Builder) abort(p *pass, err error) {
	p.finished = true
	if p.lazyKey != "" {
		delete(b.lazy, p.lazyKey)
	}
	for i := len(p.built) - 1; i >= 0; i-- {
		inst := p.built[i]
		if inst.Id == types.RootId {
			continue
		}
		if _, getErr := b.tree.Get(inst.Id); getErr == nil {
			_ = b.tree.Free(inst.Id)
		}
	}
	if p.top != nil && p.top.ownsAnchor {
		dom.Detach(p.top.anchor)
	}
	if p.busy != nil {
		p.busy.Hide()
	}
	b.config.Logger.Printf("construction %s failed: %v", p.name, err)
	for _, cb := range p.callbacks {
		cb(nil, err)
	}
}

// safeCall runs a handler, logging a panic instead of unwinding the loop.
func safeCall(config *types.Config, name string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			config.Logger.Printf("%s panic: %v\n%s", name, v, runtime.Stack())
		}
	}()
	fn()
}
