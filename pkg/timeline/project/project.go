// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package project implements the timeline data model: Project,
// RootComponentClass, ComponentInstance, MarkerPin and MarkerLink. Every
// entity is arena-owned by its RootComponentClass (or, for interior pins, by
// its ComponentInstance). MarkerLinks and ComponentInstances hold their
// MarkerPins by pointer; parameter curves refer to pins by id. A
// RootComponentClass's single sync.RWMutex is
// the lock editor commands write and render passes read.
package project

import (
	"sync"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	ptime "mpdelta/pkg/timeline/time"
)

// Project holds a named set of root component classes. A root component
// class referenced from another project's instance acts as a reusable
// composite component.
type Project struct {
	mu    sync.RWMutex
	gen   id.Generator
	roots map[id.ID]*RootComponentClass
}

// NewProject returns an empty project backed by gen for id allocation.
func NewProject(gen id.Generator) *Project {
	return &Project{gen: gen, roots: make(map[id.ID]*RootComponentClass)}
}

// DefaultLength is the natural length assigned to a freshly created root
// component class when the caller doesn't specify one: one second at a
// nominal 1/1 timebase.
var DefaultLength = fraction.One

// NewRootComponentClass allocates a root class with left pin locked at
// MarkerTime 0 and right pin locked at the given natural length, and
// registers it on the project.
func (p *Project) NewRootComponentClass(length fraction.Fraction) *RootComponentClass {
	p.mu.Lock()
	defer p.mu.Unlock()

	classID := p.gen.Generate()
	leftID := p.gen.Generate()
	rightID := p.gen.Generate()

	leftLock, _ := ptime.NewMarkerTime(fraction.Zero)
	rightLock, ok := ptime.NewMarkerTime(length)
	if !ok {
		rightLock, _ = ptime.NewMarkerTime(fraction.One)
	}

	left := NewLockedMarkerPin(leftID, leftLock)
	right := NewLockedMarkerPin(rightID, rightLock)
	left.SetCachedTimelineTime(ptime.NewTimelineTime(fraction.Zero))
	right.SetCachedTimelineTime(ptime.NewTimelineTime(length))

	root := &RootComponentClass{
		id:        classID,
		gen:       p.gen,
		left:      left,
		right:     right,
		pins:      map[id.ID]*MarkerPin{leftID: left, rightID: right},
		instances: map[id.ID]*ComponentInstance{},
	}
	p.roots[classID] = root
	return root
}

// Root returns the root class with the given id, if present.
func (p *Project) Root(classID id.ID) (*RootComponentClass, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.roots[classID]
	return r, ok
}

// RemoveRoot deregisters a root class from the project.
func (p *Project) RemoveRoot(classID id.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.roots, classID)
}

// Roots returns every registered root class id.
func (p *Project) Roots() []id.ID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]id.ID, 0, len(p.roots))
	for k := range p.roots {
		out = append(out, k)
	}
	return out
}

// RootComponentClass is a container of component instances and the marker
// links connecting their pins, plus the class's own left (time 0) and right
// (time = length) anchor pins. Guarded by one sync.RWMutex: editor commands
// hold it for write for the duration of one mutation; render passes hold it
// for read for the duration of one render() call.
type RootComponentClass struct {
	Mu sync.RWMutex

	id  id.ID
	gen id.Generator

	left, right *MarkerPin
	order       []id.ID // instance ids, front-to-back layer order

	instances map[id.ID]*ComponentInstance
	links     []*MarkerLink
	pins      map[id.ID]*MarkerPin

	// Dirty is set when the most recent differential solver pass (run after
	// every successful edit) failed; failures are logged, not rolled back.
	Dirty bool
}

// ID returns the class's identifier.
func (r *RootComponentClass) ID() id.ID { return r.id }

// Left returns the class's left anchor pin (always locked at MarkerTime 0).
func (r *RootComponentClass) Left() *MarkerPin { return r.left }

// Right returns the class's right anchor pin (locked at MarkerTime = length).
func (r *RootComponentClass) Right() *MarkerPin { return r.right }

// Instances returns the instance list in front-to-back layer order.
func (r *RootComponentClass) Instances() []*ComponentInstance {
	out := make([]*ComponentInstance, 0, len(r.order))
	for _, instID := range r.order {
		out = append(out, r.instances[instID])
	}
	return out
}

// Instance looks up an instance by id.
func (r *RootComponentClass) Instance(instanceID id.ID) (*ComponentInstance, bool) {
	inst, ok := r.instances[instanceID]
	return inst, ok
}

// AddInstance appends inst to the layer stack and registers its pins in the
// class's lookup map.
func (r *RootComponentClass) AddInstance(inst *ComponentInstance) {
	r.instances[inst.ID()] = inst
	r.order = append(r.order, inst.ID())
	for _, pin := range inst.AllPins() {
		r.pins[pin.ID()] = pin
	}
}

// InsertInstanceAt inserts inst at position index in the layer stack.
func (r *RootComponentClass) InsertInstanceAt(index int, inst *ComponentInstance) {
	r.instances[inst.ID()] = inst
	r.order = append(r.order, id.ID{})
	copy(r.order[index+1:], r.order[index:])
	r.order[index] = inst.ID()
	for _, pin := range inst.AllPins() {
		r.pins[pin.ID()] = pin
	}
}

// RemoveInstance removes inst and deregisters its pins. Callers (the editor)
// are responsible for first removing every link incident to those pins.
func (r *RootComponentClass) RemoveInstance(instanceID id.ID) bool {
	inst, ok := r.instances[instanceID]
	if !ok {
		return false
	}
	for _, pin := range inst.AllPins() {
		delete(r.pins, pin.ID())
	}
	delete(r.instances, instanceID)
	for i, v := range r.order {
		if v == instanceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Links returns the live marker link set.
func (r *RootComponentClass) Links() []*MarkerLink { return r.links }

// AddLink appends link to the live link set. Endpoint membership (invariant
//1) is the editor's responsibility to check before calling this.
func (r *RootComponentClass) AddLink(link *MarkerLink) {
	r.links = append(r.links, link)
}

// RemoveLink removes the link with the given id.
func (r *RootComponentClass) RemoveLink(linkID id.ID) bool {
	for i, l := range r.links {
		if l.ID() == linkID {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return true
		}
	}
	return false
}

// LinksOn returns every link with pin as an endpoint, either side.
func (r *RootComponentClass) LinksOn(pin *MarkerPin) []*MarkerLink {
	var out []*MarkerLink
	for _, l := range r.links {
		if l.From == pin || l.To == pin {
			out = append(out, l)
		}
	}
	return out
}

// Pin looks up any pin (anchor or interior) owned transitively by this class.
func (r *RootComponentClass) Pin(pinID id.ID) (*MarkerPin, bool) {
	p, ok := r.pins[pinID]
	return p, ok
}

// RegisterPin adds pin to the lookup map; used when an instance gains a new
// interior marker after construction.
func (r *RootComponentClass) RegisterPin(pin *MarkerPin) {
	r.pins[pin.ID()] = pin
}

// UnregisterPin removes pin from the lookup map.
func (r *RootComponentClass) UnregisterPin(pinID id.ID) {
	delete(r.pins, pinID)
}

// NewID allocates a fresh id using the class's generator, for
// callers (editor commands) that need to mint pin/instance/link ids.
func (r *RootComponentClass) NewID() id.ID {
	return r.gen.Generate()
}
