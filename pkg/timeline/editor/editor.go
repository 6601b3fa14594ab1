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

// Package editor implements every structural mutation a timeline project
// supports: adding/removing component instances and marker links, moving
// and (un)locking marker pins, and updating an instance's parameter values.
// Every command holds its root component class's RWMutex for write for the
// call's whole duration, reruns the differential solver (pkg/timeline/
// differential) afterward, and notifies registered EditEventListeners on
// success. A solver failure after a structurally-valid mutation is logged
// and marks the root dirty; it never rolls the mutation back.
package editor

import (
	"context"
	"errors"
	"sync"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/log"
	"mpdelta/pkg/timeline/differential"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	ptime "mpdelta/pkg/timeline/time"
)

var (
	ErrInvalidTarget                = errors.New("editor: invalid target")
	ErrComponentInstanceNotFound    = errors.New("editor: component instance not found")
	ErrInvalidMarkerPin             = errors.New("editor: invalid marker pin")
	ErrCannotUnlockForAvoidFloating = errors.New("editor: cannot unlock, would leave a pin floating")
	ErrMarkerPinNotFound            = errors.New("editor: marker pin not found")
	ErrInvalidMarkerPinAddPosition  = errors.New("editor: invalid marker pin add position")
	ErrParameterTypeMismatch        = errors.New("editor: parameter type mismatch")
)

// Editor applies structural and parameter edits to timeline projects and
// fans out notifications to registered listeners.
type Editor struct {
	logger *log.Logger

	mu        sync.Mutex
	listeners []EditEventListener
}

// New returns an Editor that logs solver failures through logger.
func New(logger *log.Logger) *Editor {
	return &Editor{logger: logger}
}

// AddEditEventListener registers l to receive every future successful edit.
func (e *Editor) AddEditEventListener(l EditEventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *Editor) notifyRoot(root *project.RootComponentClass, event RootComponentEditEvent) {
	e.mu.Lock()
	listeners := append([]EditEventListener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l.OnEdit(root, event)
	}
}

func (e *Editor) notifyInstance(root *project.RootComponentClass, instance *project.ComponentInstance, event InstanceEditEvent) {
	e.mu.Lock()
	listeners := append([]EditEventListener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l.OnEditInstance(root, instance, event)
	}
}

// resolve reruns the differential solver against root's current live link
// graph. A failure never undoes the mutation that triggered it: it is
// logged and the root is flagged dirty, mirroring a live editing session
// where transient inconsistency is expected mid multi-step edit.
func (e *Editor) resolve(root *project.RootComponentClass) {
	err := differential.Solve(root.Links(), root.Left(), root.Right())
	root.Dirty = err != nil
	if err != nil && e.logger != nil {
		e.logger.Error().Src("editor").Monitor(root.ID().String()).Msgf("differential solve: %v", err)
	}
}

// ---- root-level commands ----

// RootCommand is the tagged union of root-level edit commands.
type RootCommand interface{ isRootCommand() }

type CmdAddComponentInstance struct{ Instance *project.ComponentInstance }

func (CmdAddComponentInstance) isRootCommand() {}

type CmdRemoveMarkerLink struct{ LinkID id.ID }

func (CmdRemoveMarkerLink) isRootCommand() {}

type CmdEditMarkerLinkLength struct {
	LinkID id.ID
	Length fraction.Fraction
}

func (CmdEditMarkerLinkLength) isRootCommand() {}

type CmdDeleteComponentInstance struct{ InstanceID id.ID }

func (CmdDeleteComponentInstance) isRootCommand() {}

type CmdEditComponentLength struct {
	InstanceID id.ID
	Length     fraction.Fraction
}

func (CmdEditComponentLength) isRootCommand() {}

type CmdConnectMarkerPins struct {
	FromPinID, ToPinID id.ID
	Length             fraction.Fraction
}

func (CmdConnectMarkerPins) isRootCommand() {}

type CmdInsertComponentInstanceTo struct {
	Instance *project.ComponentInstance
	Index    int
}

func (CmdInsertComponentInstanceTo) isRootCommand() {}

// Edit applies cmd to root under root's write lock.
func (e *Editor) Edit(_ context.Context, root *project.RootComponentClass, cmd RootCommand) error {
	if root == nil {
		return ErrInvalidTarget
	}
	root.Mu.Lock()
	defer root.Mu.Unlock()

	switch c := cmd.(type) {
	case CmdAddComponentInstance:
		base := root.Left()
		if instances := root.Instances(); len(instances) > 0 {
			base = instances[len(instances)-1].Left()
		}
		link1 := project.NewMarkerLink(root.NewID(), base, c.Instance.Left(), fraction.One)
		link2 := project.NewMarkerLink(root.NewID(), c.Instance.Left(), c.Instance.Right(), fraction.One)
		root.AddInstance(c.Instance)
		root.AddLink(link1)
		root.AddLink(link2)
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventAddComponentInstance, Instance: c.Instance})
		return nil

	case CmdRemoveMarkerLink:
		var link *project.MarkerLink
		for _, l := range root.Links() {
			if l.ID() == c.LinkID {
				link = l
				break
			}
		}
		if !root.RemoveLink(c.LinkID) {
			return ErrInvalidTarget
		}
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventRemoveMarkerLink, Link: link})
		return nil

	case CmdEditMarkerLinkLength:
		var link *project.MarkerLink
		for _, l := range root.Links() {
			if l.ID() == c.LinkID {
				link = l
				break
			}
		}
		if link == nil {
			return ErrInvalidTarget
		}
		link.Len = c.Length
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventEditMarkerLinkLength, Link: link, Length: c.Length})
		return nil

	case CmdDeleteComponentInstance:
		return e.deleteComponentInstance(root, c.InstanceID)

	case CmdEditComponentLength:
		inst, ok := root.Instance(c.InstanceID)
		if !ok {
			return ErrComponentInstanceNotFound
		}
		lock, ok := ptime.NewMarkerTime(c.Length)
		if !ok {
			return ErrInvalidMarkerPin
		}
		inst.Right().Lock(lock)
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventEditComponentLength, Instance: inst, Length: c.Length})
		return nil

	case CmdConnectMarkerPins:
		from, ok := root.Pin(c.FromPinID)
		if !ok {
			return ErrInvalidMarkerPin
		}
		to, ok := root.Pin(c.ToPinID)
		if !ok {
			return ErrInvalidMarkerPin
		}
		link := project.NewMarkerLink(root.NewID(), from, to, c.Length)
		root.AddLink(link)
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventConnectMarkerPins, Link: link})
		return nil

	case CmdInsertComponentInstanceTo:
		instances := root.Instances()
		index := c.Index
		if index < 0 || index > len(instances) {
			return ErrInvalidTarget
		}
		base := root.Left()
		if index > 0 {
			base = instances[index-1].Left()
		}
		link1 := project.NewMarkerLink(root.NewID(), base, c.Instance.Left(), fraction.One)
		link2 := project.NewMarkerLink(root.NewID(), c.Instance.Left(), c.Instance.Right(), fraction.One)
		root.InsertInstanceAt(index, c.Instance)
		root.AddLink(link1)
		root.AddLink(link2)
		e.resolve(root)
		e.notifyRoot(root, RootComponentEditEvent{Kind: EventInsertComponentInstanceTo, Instance: c.Instance})
		return nil

	default:
		return ErrInvalidTarget
	}
}

func (e *Editor) deleteComponentInstance(root *project.RootComponentClass, instanceID id.ID) error {
	inst, ok := root.Instance(instanceID)
	if !ok {
		return ErrComponentInstanceNotFound
	}

	deleteTargetPins := map[id.ID]bool{}
	for _, p := range inst.AllPins() {
		deleteTargetPins[p.ID()] = true
	}

	uf, connected := buildConnectivity(root, deleteTargetPins, false, nil)

	adjacent := map[id.ID]bool{}
	for pinID := range deleteTargetPins {
		for _, link := range connected[pinID] {
			if link.From.ID() != pinID {
				adjacent[link.From.ID()] = true
			}
			if link.To.ID() != pinID {
				adjacent[link.To.ID()] = true
			}
		}
	}

	leftRoot := uf.find(root.Left().ID())
	pinByID := pinLookup(root)

	var connectionBase *project.MarkerPin
	for pinID := range adjacent {
		if uf.find(pinID) == leftRoot {
			connectionBase = pinByID[pinID]
			break
		}
	}
	if connectionBase != nil {
		fromTime := connectionBase.CachedTimelineTime()
		for pinID := range adjacent {
			if uf.find(pinID) == leftRoot {
				continue
			}
			p := pinByID[pinID]
			link := project.NewMarkerLink(root.NewID(), connectionBase, p, p.CachedTimelineTime().Sub(fromTime))
			root.AddLink(link)
		}
	}

	var toRemove []id.ID
	for _, l := range root.Links() {
		if deleteTargetPins[l.From.ID()] || deleteTargetPins[l.To.ID()] {
			toRemove = append(toRemove, l.ID())
		}
	}
	for _, lid := range toRemove {
		root.RemoveLink(lid)
	}

	root.RemoveInstance(instanceID)
	e.resolve(root)
	e.notifyRoot(root, RootComponentEditEvent{Kind: EventDeleteComponentInstance, Instance: inst})
	return nil
}

func pinLookup(root *project.RootComponentClass) map[id.ID]*project.MarkerPin {
	out := map[id.ID]*project.MarkerPin{}
	out[root.Left().ID()] = root.Left()
	out[root.Right().ID()] = root.Right()
	for _, inst := range root.Instances() {
		for _, p := range inst.AllPins() {
			out[p.ID()] = p
		}
	}
	return out
}

// ---- instance-level commands ----

// InstanceCommand is the tagged union of instance-level edit commands.
type InstanceCommand interface{ isInstanceCommand() }

type CmdUpdateFixedParams struct{ Params []parameter.RawValue }

func (CmdUpdateFixedParams) isInstanceCommand() {}

type CmdUpdateImageRequiredParams struct{ Params *project.ImageRequiredParams }

func (CmdUpdateImageRequiredParams) isInstanceCommand() {}

type CmdMoveComponentInstance struct{ To ptime.TimelineTime }

func (CmdMoveComponentInstance) isInstanceCommand() {}

type CmdMoveMarkerPin struct {
	PinID id.ID
	To    ptime.TimelineTime
}

func (CmdMoveMarkerPin) isInstanceCommand() {}

type CmdAddMarkerPin struct{ At ptime.TimelineTime }

func (CmdAddMarkerPin) isInstanceCommand() {}

type CmdDeleteMarkerPin struct{ PinID id.ID }

func (CmdDeleteMarkerPin) isInstanceCommand() {}

type CmdLockMarkerPin struct{ PinID id.ID }

func (CmdLockMarkerPin) isInstanceCommand() {}

type CmdUnlockMarkerPin struct{ PinID id.ID }

func (CmdUnlockMarkerPin) isInstanceCommand() {}

// EditInstance applies cmd to instance, a member of root, under root's
// write lock.
func (e *Editor) EditInstance(_ context.Context, root *project.RootComponentClass, instance *project.ComponentInstance, cmd InstanceCommand) error {
	if root == nil || instance == nil {
		return ErrInvalidTarget
	}
	root.Mu.Lock()
	defer root.Mu.Unlock()

	switch c := cmd.(type) {
	case CmdUpdateFixedParams:
		existing := instance.FixedParams()
		if len(existing) != len(c.Params) {
			return ErrParameterTypeMismatch
		}
		for i, v := range c.Params {
			if existing[i] != nil && existing[i].Type() != v.Type() {
				return ErrParameterTypeMismatch
			}
		}
		instance.SetFixedParams(c.Params)
		e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventUpdateFixedParams, FixedParams: c.Params})
		return nil

	case CmdUpdateImageRequiredParams:
		instance.SetImageRequiredParams(c.Params)
		e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventUpdateImageRequiredParams, ImageParams: c.Params})
		return nil

	case CmdMoveComponentInstance:
		return e.moveComponentInstance(root, instance, c.To)

	case CmdMoveMarkerPin:
		return e.moveMarkerPin(root, instance, c.PinID, c.To)

	case CmdAddMarkerPin:
		return e.addMarkerPin(root, instance, c.At)

	case CmdDeleteMarkerPin:
		return e.deleteMarkerPin(root, instance, c.PinID)

	case CmdLockMarkerPin:
		return e.lockMarkerPin(root, instance, c.PinID)

	case CmdUnlockMarkerPin:
		return e.unlockMarkerPin(root, instance, c.PinID)

	default:
		return ErrInvalidTarget
	}
}

func (e *Editor) moveComponentInstance(root *project.RootComponentClass, instance *project.ComponentInstance, to ptime.TimelineTime) error {
	targetPins := map[id.ID]bool{}
	for _, p := range instance.AllPins() {
		targetPins[p.ID()] = true
	}
	uf, connected := buildConnectivity(root, targetPins, true, nil)

	currentLeftTime := instance.Left().CachedTimelineTime()
	delta := to.Sub(currentLeftTime)
	zeroRoot := uf.find(root.Left().ID())

	for pinID := range targetPins {
		pin := findPinAmong(instance.AllPins(), pinID)
		if pin == nil {
			continue
		}
		if _, locked := pin.Locked(); !locked {
			continue
		}
		for _, link := range connected[pinID] {
			var otherID id.ID
			if link.To.ID() == pinID {
				otherID = link.From.ID()
			} else {
				otherID = link.To.ID()
			}
			if uf.find(otherID) != zeroRoot {
				continue
			}
			if link.To.ID() == pinID {
				link.Len = link.Len.Add(delta)
			} else {
				link.Len = link.Len.Sub(delta)
			}
		}
	}

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventMoveComponentInstance, To: to})
	return nil
}

func (e *Editor) moveMarkerPin(root *project.RootComponentClass, instance *project.ComponentInstance, pinID id.ID, to ptime.TimelineTime) error {
	pins := instance.AllPins()
	pin := findPinAmong(pins, pinID)
	if pin == nil {
		return ErrInvalidMarkerPin
	}

	exclude := map[id.ID]bool{pinID: true}
	uf, connected := buildConnectivity(root, exclude, true, exclude)
	leftRoot := uf.find(root.Left().ID())

	timeDiff := to.Sub(pin.CachedTimelineTime())
	edited := false
	for _, link := range connected[pinID] {
		var otherID id.ID
		if link.To.ID() == pinID {
			otherID = link.From.ID()
		} else {
			otherID = link.To.ID()
		}
		if uf.find(otherID) != leftRoot {
			continue
		}
		if link.To.ID() == pinID {
			link.Len = link.Len.Add(timeDiff)
		} else {
			link.Len = link.Len.Sub(timeDiff)
		}
		edited = true
	}

	if !edited {
		idx := findPinIndex(pins, pinID)
		left, right := lockedNeighbors(pins, pinID, idx)
		pin.Lock(interpolateLock(left, right, to))
	}

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventMoveMarkerPin, Pin: pinID, To: to})
	return nil
}

func (e *Editor) addMarkerPin(root *project.RootComponentClass, instance *project.ComponentInstance, at ptime.TimelineTime) error {
	left, right := instance.Left(), instance.Right()
	if !left.CachedTimelineTime().Before(at) || !at.Before(right.CachedTimelineTime()) {
		return ErrInvalidMarkerPinAddPosition
	}

	markers := instance.Markers()
	insertIndex := 0
	for insertIndex < len(markers) {
		ct := markers[insertIndex].CachedTimelineTime()
		if ct.Cmp(at) == 0 {
			return ErrInvalidMarkerPinAddPosition
		}
		if ct.Before(at) {
			insertIndex++
			continue
		}
		break
	}

	pins := instance.AllPins()
	idx := insertIndex + 1 // offset for the leading left pin
	leftLock, rightLock := lockedNeighbors(pins, id.ID{}, idx)
	lockTime := interpolateLock(leftLock, rightLock, at)

	newPin := project.NewLockedMarkerPin(root.NewID(), lockTime)
	newPin.SetCachedTimelineTime(at)
	instance.InsertMarker(insertIndex, newPin)
	root.RegisterPin(newPin)

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventAddMarkerPin, At: at})
	return nil
}

func (e *Editor) deleteMarkerPin(root *project.RootComponentClass, instance *project.ComponentInstance, pinID id.ID) error {
	found := false
	for _, m := range instance.Markers() {
		if m.ID() == pinID {
			found = true
			break
		}
	}
	if !found {
		return ErrMarkerPinNotFound
	}

	pins := instance.AllPins()
	lockedRemaining := 0
	for _, p := range pins {
		if p.ID() == pinID {
			continue
		}
		if _, ok := p.Locked(); ok {
			lockedRemaining++
		}
	}
	if lockedRemaining == 0 {
		return ErrMarkerPinNotFound
	}

	idx := findPinIndex(pins, pinID)
	nearLocked := nearestLockedPin(pins, pinID, idx)

	exclude := map[id.ID]bool{pinID: true}
	uf, connected := buildConnectivity(root, exclude, true, exclude)
	leftRoot := uf.find(root.Left().ID())

	var base *project.MarkerPin
	if nearLocked != nil && uf.find(nearLocked.ID()) == leftRoot {
		base = nearLocked
	} else {
		for _, link := range connected[pinID] {
			var other *project.MarkerPin
			if link.From.ID() == pinID {
				other = link.To
			} else {
				other = link.From
			}
			if _, locked := other.Locked(); locked {
				base = other
				break
			}
		}
	}

	if base != nil {
		baseTime := base.CachedTimelineTime()
		var floating []*project.MarkerPin
		for _, link := range connected[pinID] {
			var other *project.MarkerPin
			if link.From.ID() == pinID {
				other = link.To
			} else {
				other = link.From
			}
			if other.ID() == base.ID() {
				continue
			}
			if uf.find(other.ID()) == leftRoot {
				floating = append(floating, other)
			}
		}
		for _, p := range floating {
			link := project.NewMarkerLink(root.NewID(), base, p, p.CachedTimelineTime().Sub(baseTime))
			root.AddLink(link)
		}
	}

	var toRemove []id.ID
	for _, l := range root.Links() {
		if l.From.ID() == pinID || l.To.ID() == pinID {
			toRemove = append(toRemove, l.ID())
		}
	}
	for _, lid := range toRemove {
		root.RemoveLink(lid)
	}

	instance.RemoveMarker(pinID)
	root.UnregisterPin(pinID)

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventDeleteMarkerPin, Pin: pinID})
	return nil
}

func (e *Editor) lockMarkerPin(root *project.RootComponentClass, instance *project.ComponentInstance, pinID id.ID) error {
	pins := instance.AllPins()
	idx := findPinIndex(pins, pinID)
	if idx < 0 {
		return ErrMarkerPinNotFound
	}
	pin := pins[idx]
	if _, locked := pin.Locked(); locked {
		return nil
	}

	left, right := lockedNeighbors(pins, pinID, idx)
	if left == nil && right == nil {
		return ErrInvalidMarkerPin
	}
	pin.Lock(interpolateLock(left, right, pin.CachedTimelineTime()))

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventLockMarkerPin, Pin: pinID})
	return nil
}

func (e *Editor) unlockMarkerPin(root *project.RootComponentClass, instance *project.ComponentInstance, pinID id.ID) error {
	pins := instance.AllPins()
	idx := findPinIndex(pins, pinID)
	if idx < 0 {
		return ErrMarkerPinNotFound
	}
	pin := pins[idx]
	if _, locked := pin.Locked(); !locked {
		return nil
	}

	exclude := map[id.ID]bool{pinID: true}
	uf, _ := buildConnectivity(root, nil, true, exclude)
	leftRoot := uf.find(root.Left().ID())

	if uf.find(pinID) == leftRoot {
		pin.Unlock()
		e.resolve(root)
		e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventUnlockMarkerPin, Pin: pinID})
		return nil
	}

	next := nearestLockedPin(pins, pinID, idx)
	if next == nil {
		return ErrCannotUnlockForAvoidFloating
	}

	link := project.NewMarkerLink(root.NewID(), pin, next, next.CachedTimelineTime().Sub(pin.CachedTimelineTime()))
	root.AddLink(link)
	pin.Unlock()

	e.resolve(root)
	e.notifyInstance(root, instance, InstanceEditEvent{Kind: EventUnlockMarkerPin, Pin: pinID})
	return nil
}

// ---- shared pin/link helpers ----

// buildConnectivity unions the endpoints of every live link whose neither
// endpoint is in excludeLinks, and records every link (regardless of
// exclusion) incident on each pin for later adjacency queries. When
// includeInstanceLocks is set, it additionally unions every pair of locked
// pins within the same component instance (a time-stretch map ties their
// positions together structurally, independent of any explicit link),
// skipping pins in excludeInstanceLocks.
func buildConnectivity(root *project.RootComponentClass, excludeLinks map[id.ID]bool, includeInstanceLocks bool, excludeInstanceLocks map[id.ID]bool) (*unionFind, map[id.ID][]*project.MarkerLink) {
	uf := newUnionFind()
	connected := map[id.ID][]*project.MarkerLink{}
	for _, link := range root.Links() {
		connected[link.From.ID()] = append(connected[link.From.ID()], link)
		connected[link.To.ID()] = append(connected[link.To.ID()], link)
		if excludeLinks[link.From.ID()] || excludeLinks[link.To.ID()] {
			continue
		}
		uf.union(link.From.ID(), link.To.ID())
	}
	if includeInstanceLocks {
		for _, inst := range root.Instances() {
			var base id.ID
			baseSet := false
			for _, pin := range inst.AllPins() {
				if excludeInstanceLocks[pin.ID()] {
					continue
				}
				if _, locked := pin.Locked(); !locked {
					continue
				}
				if !baseSet {
					base, baseSet = pin.ID(), true
					continue
				}
				uf.union(base, pin.ID())
			}
		}
	}
	return uf, connected
}

func findPinAmong(pins []*project.MarkerPin, target id.ID) *project.MarkerPin {
	for _, p := range pins {
		if p.ID() == target {
			return p
		}
	}
	return nil
}

func findPinIndex(pins []*project.MarkerPin, target id.ID) int {
	for i, p := range pins {
		if p.ID() == target {
			return i
		}
	}
	return -1
}

// lockedNeighbors finds the nearest locked pin strictly before idx and the
// nearest locked pin at-or-after idx in pins, skipping excludeID.
func lockedNeighbors(pins []*project.MarkerPin, excludeID id.ID, idx int) (left, right *project.MarkerPin) {
	for i := idx - 1; i >= 0; i-- {
		if pins[i].ID() == excludeID {
			continue
		}
		if _, ok := pins[i].Locked(); ok {
			left = pins[i]
			break
		}
	}
	for i := idx; i < len(pins); i++ {
		if pins[i].ID() == excludeID {
			continue
		}
		if _, ok := pins[i].Locked(); ok {
			right = pins[i]
			break
		}
	}
	return
}

// nearestLockedPin prefers the nearest locked pin before idx, falling back
// to the nearest at-or-after idx.
func nearestLockedPin(pins []*project.MarkerPin, excludeID id.ID, idx int) *project.MarkerPin {
	left, right := lockedNeighbors(pins, excludeID, idx)
	if left != nil {
		return left
	}
	return right
}

// interpolateLock derives a MarkerTime for a pin positioned at global time
// at, between locked siblings left and right. With both siblings present it
// linearly interpolates their MarkerTime locks; with only one, it
// extrapolates at slope 1.
func clampMarkerValue(v fraction.Fraction) ptime.MarkerTime {
	if v.Signum() < 0 {
		return ptime.Zero
	}
	mt, ok := ptime.NewMarkerTime(v)
	if !ok {
		return ptime.Zero
	}
	return mt
}

func interpolateLock(left, right *project.MarkerPin, at ptime.TimelineTime) ptime.MarkerTime {
	switch {
	case left != nil && right != nil:
		leftLock, _ := left.Locked()
		rightLock, _ := right.Locked()
		span := right.CachedTimelineTime().Sub(left.CachedTimelineTime())
		p, ok := at.Sub(left.CachedTimelineTime()).CheckedDiv(span)
		if !ok {
			return clampMarkerValue(leftLock.Value())
		}
		return clampMarkerValue(leftLock.Value().Add(rightLock.Value().Sub(leftLock.Value()).Mul(p)))
	case left != nil:
		lock, _ := left.Locked()
		return clampMarkerValue(lock.Value().Add(at.Sub(left.CachedTimelineTime())))
	case right != nil:
		lock, _ := right.Locked()
		return clampMarkerValue(lock.Value().Add(at.Sub(right.CachedTimelineTime())))
	default:
		return ptime.Zero
	}
}
