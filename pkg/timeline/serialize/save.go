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

package serialize

import (
	"fmt"

	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/project"
)

// Save converts root into its persisted Document. Ids are discarded:
// entities are addressed purely by the stable indices computed here.
func Save(root *project.RootComponentClass) (*Document, error) {
	instances := root.Instances()

	pinRef := newPinIndexer(root, instances)

	doc := &Document{
		FormatVersion: FormatVersion,
		Length:        packFraction(root.Right().CachedTimelineTime().Value()),
		Instances:     make([]InstanceDoc, len(instances)),
	}

	for i, inst := range instances {
		fixed := make([]ValueDoc, len(inst.FixedParams()))
		for j, v := range inst.FixedParams() {
			encoded, err := encodeRawValue(v)
			if err != nil {
				return nil, fmt.Errorf("serialize: instance %d fixed param %d: %w", i, j, err)
			}
			fixed[j] = encoded
		}

		markers := make([]MarkerPinDoc, len(inst.Markers()))
		for j, m := range inst.Markers() {
			markers[j] = pinDoc(m)
		}

		doc.Instances[i] = InstanceDoc{
			Class:       classDoc(inst.Class()),
			Left:        pinDoc(inst.Left()),
			Right:       pinDoc(inst.Right()),
			Markers:     markers,
			FixedParams: fixed,
		}
	}

	for _, l := range root.Links() {
		from, ok := pinRef(l.From.ID())
		if !ok {
			return nil, fmt.Errorf("serialize: link %s references unknown pin %s", l.ID(), l.From.ID())
		}
		to, ok := pinRef(l.To.ID())
		if !ok {
			return nil, fmt.Errorf("serialize: link %s references unknown pin %s", l.ID(), l.To.ID())
		}
		doc.Links = append(doc.Links, LinkDoc{From: from, To: to, Len: packFraction(l.Len)})
	}

	return doc, nil
}

func pinDoc(p *project.MarkerPin) MarkerPinDoc {
	lock, locked := p.Locked()
	if !locked {
		return MarkerPinDoc{Locked: false}
	}
	return MarkerPinDoc{Locked: true, Lock: packFraction(lock.Value())}
}

// newPinIndexer builds a lookup from pin id to its stable PinRef across the
// root's own anchors and every instance's left/right/marker pins.
func newPinIndexer(root *project.RootComponentClass, instances []*project.ComponentInstance) func(id.ID) (PinRef, bool) {
	refs := map[id.ID]PinRef{
		root.Left().ID():  {Component: nil, Index: PinIndex{Kind: PinLeft}},
		root.Right().ID(): {Component: nil, Index: PinIndex{Kind: PinRight}},
	}
	for i, inst := range instances {
		idx := i
		refs[inst.Left().ID()] = PinRef{Component: &idx, Index: PinIndex{Kind: PinLeft}}
		refs[inst.Right().ID()] = PinRef{Component: &idx, Index: PinIndex{Kind: PinRight}}
		for j, m := range inst.Markers() {
			refs[m.ID()] = PinRef{Component: &idx, Index: PinIndex{Kind: PinMarker, Marker: j}}
		}
	}
	return func(pinID id.ID) (PinRef, bool) {
		ref, ok := refs[pinID]
		return ref, ok
	}
}
