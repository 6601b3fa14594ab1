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

// Package render is the evaluator: it walks one component's tree, picking a
// state for each node the first time it is rendered (Components, Native or
// GatherNative; the FixedParam and VariableParam states are handled by
// renderNode but never picked), then replays that choice lock-free on every
// subsequent render. Fan-out across a Components node's
// children is bounded by pkg/timeline/render/pool.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"mpdelta/pkg/timeline/combine"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/invalidate"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/render/pool"
	"mpdelta/pkg/timeline/stretch"
	ptime "mpdelta/pkg/timeline/time"
)

// ErrNotProvided is a soft failure: the component has nothing to contribute
// at the requested time/type. Filtered out, not propagated, when a
// Components node reduces its children's results.
var ErrNotProvided = errors.New("render: not provided")

// ErrRenderTargetTimeOutOfRange reports that at falls outside the
// component's active window. A soft failure like ErrNotProvided.
type ErrRenderTargetTimeOutOfRange struct {
	Component id.ID
	Range     invalidate.Range
	At        ptime.TimelineTime
}

func (e *ErrRenderTargetTimeOutOfRange) Error() string {
	return fmt.Sprintf("render: %s out of range at %s", e.Component, e.At)
}

// ErrOutputTypeMismatch reports that a processor's produced value's type
// didn't match the request.
type ErrOutputTypeMismatch struct {
	Component      id.ID
	Expect, Actual parameter.Type
}

func (e *ErrOutputTypeMismatch) Error() string {
	return fmt.Sprintf("render: %s expected %s, got %s", e.Component, e.Expect, e.Actual)
}

// ErrUnsupportedParameterType is returned when no state on a node can ever
// produce the requested type.
var ErrUnsupportedParameterType = errors.New("render: unsupported parameter type")

func isSoftFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotProvided) {
		return true
	}
	var outOfRange *ErrRenderTargetTimeOutOfRange
	return errors.As(err, &outOfRange)
}

// Resolver looks up the processor backing a component class. Implemented by
// pkg/timeline/classloader.
type Resolver interface {
	Resolve(class id.ClassIdentifier) (processor.Processor, error)
}

// Node is the evaluation-tree view of one project.ComponentInstance: its
// resolved processor, its local time-stretch map, and (for a Components
// node) the children found after expansion.
type Node struct {
	Instance *project.ComponentInstance
	Proc     processor.Processor
	Stretch  *stretch.Map
	Children []*Node
}

// Renderer evaluates one root Node, caching intermediate results in two
// scopes and fanning out bounded-width concurrent child renders.
type Renderer struct {
	root    *Node
	whole   procache.WholeCache
	framed  procache.FramedCache
	images  combine.ImageCombinerBuilder
	audio   combine.AudioCombinerBuilder
	pool    *pool.Pool
	renders sync.Map // id.ID -> *componentRenderer
}

// New constructs a Renderer for root, backed by the given caches, combiner
// builders and a bounded fan-out pool (nil uses pool.DefaultWidth).
func New(root *Node, whole procache.WholeCache, framed procache.FramedCache, images combine.ImageCombinerBuilder, audio combine.AudioCombinerBuilder, p *pool.Pool) *Renderer {
	if p == nil {
		p = pool.New(pool.DefaultWidth)
	}
	return &Renderer{root: root, whole: whole, framed: framed, images: images, audio: audio, pool: p}
}

// ComponentLength returns the root node's natural length: its right pin's
// cached TimelineTime minus its left pin's.
func (r *Renderer) ComponentLength() ptime.MarkerTime {
	d := r.root.Instance.Right().CachedTimelineTime().Sub(r.root.Instance.Left().CachedTimelineTime())
	v, _ := ptime.NewMarkerTime(d)
	return v
}

// Render evaluates the root node at global time at for output type ty. For
// ty == parameter.TypeImage, imageSize gives the requested canvas extent
// (ignored for every other output type).
func (r *Renderer) Render(ctx context.Context, at ptime.TimelineTime, ty parameter.Type, imageSize [2]int) (parameter.RawValue, invalidate.Range, error) {
	return r.renderNode(ctx, r.root, at, ty, imageSize)
}

func (r *Renderer) rendererFor(n *Node) *componentRenderer {
	v, _ := r.renders.LoadOrStore(n.Instance.ID(), &componentRenderer{node: n})
	return v.(*componentRenderer)
}

func (r *Renderer) renderNode(ctx context.Context, n *Node, at ptime.TimelineTime, ty parameter.Type, imageSize [2]int) (parameter.RawValue, invalidate.Range, error) {
	cr := r.rendererFor(n)

	// Step 1: range check, audio exempt.
	if ty != parameter.TypeAudio {
		left, right := n.Instance.Left().CachedTimelineTime(), n.Instance.Right().CachedTimelineTime()
		if at.Before(left) || !at.Before(right) {
			rng := invalidate.New(n.Instance.Left().ID(), n.Instance.Right().ID())
			return nil, nil, &ErrRenderTargetTimeOutOfRange{Component: n.Instance.ID(), Range: rng, At: at}
		}
	}

	switch st := cr.state(r.resolveState(n)).(type) {
	case componentsState:
		return r.renderComponents(ctx, n, st, at, ty, imageSize)
	case nativeState:
		return r.renderNative(ctx, n, st, at, ty)
	case gatherNativeState:
		return r.renderGatherNative(ctx, n, st, at, ty)
	case fixedParamState:
		if st.value.Type() != ty {
			return nil, nil, &ErrOutputTypeMismatch{Component: n.Instance.ID(), Expect: ty, Actual: st.value.Type()}
		}
		return st.value, invalidate.New(), nil
	case variableParamState:
		return r.renderVariableParam(ctx, n, st, at, ty)
	default:
		return nil, nil, ErrUnsupportedParameterType
	}
}

// resolveState performs the one-time selection of n's state: componentsState
// when n has children or its processor is neither native shape, otherwise
// nativeState or gatherNativeState by its processor's type. It never selects
// fixedParamState or variableParamState. Only called the first time cr.state
// has no cached value; componentRenderer.state guards the call with its
// mutex and stores the result in an atomic.Pointer for lock-free reuse.
func (r *Renderer) resolveState(n *Node) rendererState {
	if len(n.Children) > 0 {
		return componentsState{children: n.Children}
	}
	switch p := n.Proc.(type) {
	case processor.NativeProcessor:
		return nativeState{proc: p}
	case processor.GatherNativeProcessor:
		return gatherNativeState{proc: p}
	default:
		return componentsState{children: n.Children}
	}
}

func (r *Renderer) renderComponents(ctx context.Context, n *Node, st componentsState, at ptime.TimelineTime, ty parameter.Type, imageSize [2]int) (parameter.RawValue, invalidate.Range, error) {
	tasks := make([]pool.Task[childResult], len(st.children))
	for i, child := range st.children {
		child := child
		tasks[i] = func() (childResult, error) {
			v, rng, err := r.renderNode(ctx, child, at, ty, imageSize)
			return childResult{value: v, rng: rng, err: err}, nil
		}
	}
	results := pool.RunAll(r.pool, tasks)

	rng := invalidate.New()
	switch ty {
	case parameter.TypeImage:
		combiner := r.images.New(combine.ImageCombinerRequest{Size: imageSize})
		any := false
		for i, res := range results {
			cr := res.Value
			if isSoftFailure(cr.err) {
				continue
			}
			if cr.err != nil {
				return nil, nil, cr.err
			}
			any = true
			rng = rng.Union(cr.rng)
			fixed, paramRng := r.evalImageRequiredParams(ctx, st.children[i], at)
			rng = rng.Union(paramRng)
			combiner.AddLayer(cr.value, fixed)
		}
		if !any {
			return nil, nil, ErrNotProvided
		}
		out, err := combiner.Collect(ctx)
		return out, rng, err
	case parameter.TypeAudio:
		combiner := r.audio.New(combine.AudioCombinerRequest{})
		any := false
		for i, res := range results {
			cr := res.Value
			if isSoftFailure(cr.err) {
				continue
			}
			if cr.err != nil {
				return nil, nil, cr.err
			}
			any = true
			rng = rng.Union(cr.rng)
			if buf, ok := cr.value.(parameter.AudioBuffer); ok {
				param, paramRng := r.evalAudioRequiredParams(ctx, st.children[i], at)
				rng = rng.Union(paramRng)
				combiner.AddLayer(buf, param)
			}
		}
		if !any {
			return nil, nil, ErrNotProvided
		}
		out, err := combiner.Collect(ctx)
		return out, rng, err
	default:
		// Scalar types: take the first non-empty result in reverse order
		// (layer precedence — later layers shadow earlier ones).
		for i := len(results) - 1; i >= 0; i-- {
			cr := results[i].Value
			if isSoftFailure(cr.err) {
				continue
			}
			if cr.err != nil {
				return nil, nil, cr.err
			}
			return cr.value, cr.rng, nil
		}
		return nil, nil, ErrNotProvided
	}
}

type childResult struct {
	value parameter.RawValue
	rng   invalidate.Range
	err   error
}

func (r *Renderer) renderNative(ctx context.Context, n *Node, st nativeState, at ptime.TimelineTime, ty parameter.Type) (parameter.RawValue, invalidate.Range, error) {
	fixed := n.Instance.FixedParams()
	if !st.proc.SupportsOutputType(fixed, ty, r.whole) {
		return nil, nil, ErrUnsupportedParameterType
	}

	local := at
	if n.Stretch != nil && ty != parameter.TypeAudio {
		localTime := n.Stretch.At(at)
		local = ptime.NewTimelineTime(localTime.Value())
	}

	variable, rng := r.resolveVariableParams(ctx, n, at)

	input := processor.NativeInput{Fixed: fixed, Variable: variable}

	wholeKey, wholeOK := st.proc.WholeComponentCacheKey(fixed, nil)
	framedKey, framedOK := st.proc.FramedCacheKey(input, local, ty)
	value, err := r.processCached(wholeKey, wholeOK, framedKey, framedOK, func() (parameter.RawValue, error) {
		return st.proc.Process(ctx, input, local, ty, r.whole, r.framed)
	})
	if err != nil {
		return nil, nil, err
	}
	if value.Type() != ty {
		return nil, nil, &ErrOutputTypeMismatch{Component: n.Instance.ID(), Expect: ty, Actual: value.Type()}
	}
	return value, rng, nil
}

func (r *Renderer) renderGatherNative(ctx context.Context, n *Node, st gatherNativeState, at ptime.TimelineTime, ty parameter.Type) (parameter.RawValue, invalidate.Range, error) {
	fixed := n.Instance.FixedParams()
	if !st.proc.SupportsOutputType(fixed, ty, r.whole) {
		return nil, nil, ErrUnsupportedParameterType
	}

	window := processor.GatherWindow{
		Begin: n.Instance.Left().CachedTimelineTime(),
		End:   n.Instance.Right().CachedTimelineTime(),
		Resolve: func(slot int, t ptime.TimelineTime) (parameter.RawValue, bool) {
			value, _ := r.resolveVariableParamAt(ctx, n, slot, t)
			return value, value != nil
		},
	}

	wholeKey, wholeOK := st.proc.WholeComponentCacheKey(fixed, nil)
	framedKey, framedOK := st.proc.FramedCacheKey(window, ty)
	value, err := r.processCached(wholeKey, wholeOK, framedKey, framedOK, func() (parameter.RawValue, error) {
		return st.proc.Process(ctx, fixed, window, ty, r.whole, r.framed)
	})
	if err != nil {
		return nil, nil, err
	}
	_, rng := r.resolveVariableParams(ctx, n, at)
	return value, rng, nil
}

// processCached looks up the framed cache, then the whole-component cache,
// before calling compute, and stores compute's result back under whichever
// key(s) apply. A cache a processor doesn't support (ok==false) is skipped
// on both the read and the write side.
func (r *Renderer) processCached(wholeKey procache.Key, wholeOK bool, framedKey procache.Key, framedOK bool, compute func() (parameter.RawValue, error)) (parameter.RawValue, error) {
	if framedOK {
		if entry, found := r.framed.Get(framedKey); found {
			if value, ok := entry.Value.(parameter.RawValue); ok {
				return value, nil
			}
		}
	}
	if wholeOK {
		if entry, found := r.whole.Get(wholeKey); found {
			if value, ok := entry.Value.(parameter.RawValue); ok {
				return value, nil
			}
		}
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}

	if framedOK {
		r.framed.Put(framedKey, &procache.Entry{Value: value})
	}
	if wholeOK {
		r.whole.Put(wholeKey, &procache.Entry{Value: value})
	}
	return value, nil
}

func (r *Renderer) renderVariableParam(ctx context.Context, n *Node, st variableParamState, at ptime.TimelineTime, ty parameter.Type) (parameter.RawValue, invalidate.Range, error) {
	value, rng := r.resolveVariableParamByValue(ctx, n, st.value, at)
	if value == nil {
		return nil, nil, ErrNotProvided
	}
	if value.Type() != ty {
		return nil, nil, &ErrOutputTypeMismatch{Component: n.Instance.ID(), Expect: ty, Actual: value.Type()}
	}
	return value, rng, nil
}

// resolveVariableParams walks every declared variable parameter slot on n
// and resolves it at at, per §4.9.1: manual curve vs sub-component
// overrides, ordered by Priority. Returns the resolved raw values in schema
// order (nil entries mean no value was available) and their combined
// invalidation range.
func (r *Renderer) resolveVariableParams(ctx context.Context, n *Node, at ptime.TimelineTime) ([]parameter.RawValue, invalidate.Range) {
	slots := n.Instance.VariableParams()
	out := make([]parameter.RawValue, len(slots))
	rng := invalidate.New()
	for i := range slots {
		v, r2 := r.resolveVariableParamAt(ctx, n, i, at)
		out[i] = v
		rng = rng.Union(r2)
	}
	return out, rng
}

func (r *Renderer) resolveVariableParamAt(ctx context.Context, n *Node, slot int, at ptime.TimelineTime) (parameter.RawValue, invalidate.Range) {
	slots := n.Instance.VariableParams()
	if slot < 0 || slot >= len(slots) {
		return nil, invalidate.New()
	}
	// VariableParameterSlot type-erases parameter.VariableParameterValue[V];
	// float64 (gain/opacity-shaped parameters) is the instantiation every
	// leaf processor in this module actually declares, so it is the one
	// concrete case resolved here. A class wiring a Vector3- or
	// Quaternion-valued slot supplies its own resolution inside its
	// NativeProcessor.Process rather than through this shared path.
	typed, ok := slots[slot].(*project.TypedVariableParameter[float64])
	if !ok {
		return nil, invalidate.New()
	}
	return r.resolveFloatVariableParam(ctx, n, typed.Value, at)
}

func (r *Renderer) resolveVariableParamByValue(ctx context.Context, n *Node, value any, at ptime.TimelineTime) (parameter.RawValue, invalidate.Range) {
	v, ok := value.(parameter.VariableParameterValue[float64])
	if !ok {
		return nil, invalidate.New()
	}
	return r.resolveFloatVariableParam(ctx, n, v, at)
}

// resolveFloatVariableParam implements §4.9.1 for a float64-valued variable
// parameter: evaluate the manual PinSplitValue curve at at (if the
// bracketing segment has a value), render every sub-component override at
// at (filtering soft failures, taking the first in reverse order that
// produced a value), then apply priority.
func (r *Renderer) resolveFloatVariableParam(ctx context.Context, n *Node, v parameter.VariableParameterValue[float64], at ptime.TimelineTime) (parameter.RawValue, invalidate.Range) {
	rng := invalidate.New(v.Params.Pins...)

	manual, manualOK := r.evalManualCurve(n, v.Params, at)

	var fromComponent parameter.RawValue
	for i := len(v.Components) - 1; i >= 0; i-- {
		child := r.childByID(n, v.Components[i])
		if child == nil {
			continue
		}
		value, childRng, err := r.renderNode(ctx, child, at, parameter.TypeReal, [2]int{})
		if err != nil {
			if isSoftFailure(err) {
				continue
			}
			continue
		}
		rng = rng.Union(childRng)
		fromComponent = value
		break
	}

	switch v.Priority {
	case parameter.PrioritizeComponent:
		if fromComponent != nil {
			return fromComponent, rng
		}
		if manualOK {
			return parameter.RealValue(manual), rng
		}
	default: // PrioritizeManually
		if manualOK {
			return parameter.RealValue(manual), rng
		}
		if fromComponent != nil {
			return fromComponent, rng
		}
	}
	return nil, rng
}

// evalManualCurve evaluates the PinSplitValue segment bracketing at, using
// each bracketing pin's cached TimelineTime to normalize the position
// within the segment. Returns ok=false for a nil (undefined) segment.
func (r *Renderer) evalManualCurve(n *Node, p parameter.PinSplitValue[*parameter.EasingValue[float64]], at ptime.TimelineTime) (float64, bool) {
	return evalCurve(r, n, p, at)
}

// evalCurve is evalManualCurve generalized over the curve's value type, so
// the same pin-bracketing logic serves float64 gain/opacity curves and the
// Vector3/Quaternion transform curves alike.
func evalCurve[V any](r *Renderer, n *Node, p parameter.PinSplitValue[*parameter.EasingValue[V]], at ptime.TimelineTime) (V, bool) {
	var zero V
	if len(p.Pins) < 2 || len(p.Values) < 1 {
		return zero, false
	}
	times := make([]float64, len(p.Pins))
	for i, pinID := range p.Pins {
		pin, ok := r.pinByID(n, pinID)
		if !ok {
			return zero, false
		}
		times[i] = pin.CachedTimelineTime().Value().Float64()
	}
	idx, pos, ok := parameter.SegmentIndex(times, at.Value().Float64())
	if !ok || idx >= len(p.Values) || p.Values[idx] == nil {
		return zero, false
	}
	return p.Values[idx].At(pos), true
}

// resolveVariableParamGeneric is resolveFloatVariableParam generalized over
// V: evaluate the manual curve, render every sub-component override
// (filtering soft failures, taking the first in reverse order that produced
// a V-typed value), then apply priority.
func resolveVariableParamGeneric[V any](ctx context.Context, r *Renderer, n *Node, v parameter.VariableParameterValue[V], at ptime.TimelineTime) (V, bool, invalidate.Range) {
	var zero V
	rng := invalidate.New(v.Params.Pins...)

	manual, manualOK := evalCurve(r, n, v.Params, at)

	var fromComponent V
	haveComponent := false
	for i := len(v.Components) - 1; i >= 0; i-- {
		child := r.childByID(n, v.Components[i])
		if child == nil {
			continue
		}
		value, childRng, err := r.renderNode(ctx, child, at, parameter.TypeReal, [2]int{})
		if err != nil {
			continue
		}
		typed, ok := value.(V)
		if !ok {
			continue
		}
		rng = rng.Union(childRng)
		fromComponent = typed
		haveComponent = true
		break
	}

	switch v.Priority {
	case parameter.PrioritizeComponent:
		if haveComponent {
			return fromComponent, true, rng
		}
		if manualOK {
			return manual, true, rng
		}
	default: // PrioritizeManually
		if manualOK {
			return manual, true, rng
		}
		if haveComponent {
			return fromComponent, true, rng
		}
	}
	return zero, false, rng
}

// evalImageRequiredParams resolves child's ImageRequiredParams into a
// combine.ImageRequiredParamsFixed at at, per §4.9 step 3: evaluate the
// transform first, then attach the evaluated required-params to the layer.
// An instance with no ImageRequiredParams set composites fully opaque with
// the identity transform.
func (r *Renderer) evalImageRequiredParams(ctx context.Context, child *Node, at ptime.TimelineTime) (combine.ImageRequiredParamsFixed, invalidate.Range) {
	p := child.Instance.ImageRequiredParams()
	if p == nil {
		identity, _ := r.evalTransform(ctx, child, project.Transform{}, at)
		return combine.ImageRequiredParamsFixed{Transform: identity, Opacity: parameter.OpacityOpaque.Value()}, invalidate.New()
	}

	rng := invalidate.New(p.Opacity.Pins...)

	transform, transformRng := r.evalTransform(ctx, child, p.Transform, at)
	rng = rng.Union(transformRng)

	opacity := parameter.OpacityOpaque
	if raw, ok := evalCurve(r, child, p.Opacity, at); ok {
		opacity = parameter.SaturatingOpacity(raw)
	}

	return combine.ImageRequiredParamsFixed{
		Transform:          transform,
		BackgroundColor:    p.BackgroundColor,
		Opacity:            opacity.Value(),
		BlendMode:          p.BlendMode,
		CompositeOperation: p.CompositeOperation,
	}, rng
}

// evalTransform resolves a project.Transform's curves into a
// combine.TransformFixed at at. Unresolved fields fall back to the
// identity transform (unit size/scale, zero translate, identity rotation).
func (r *Renderer) evalTransform(ctx context.Context, n *Node, t project.Transform, at ptime.TimelineTime) (combine.TransformFixed, invalidate.Range) {
	rng := invalidate.New()
	vec := func(v parameter.VariableParameterValue[project.Vector3], fallback project.Vector3) project.Vector3 {
		value, ok, vRng := resolveVariableParamGeneric(ctx, r, n, v, at)
		rng = rng.Union(vRng)
		if !ok {
			return fallback
		}
		return value
	}

	out := combine.TransformFixed{Kind: t.Kind}
	switch t.Kind {
	case project.TransformFreeKind:
		out.LT = vec(t.LT, project.Vector3{})
		out.RT = vec(t.RT, project.Vector3{})
		out.LB = vec(t.LB, project.Vector3{})
		out.RB = vec(t.RB, project.Vector3{})
	default:
		out.Size = vec(t.Size, project.Vector3{X: 1, Y: 1, Z: 1})
		out.Scale = vec(t.Scale, project.Vector3{X: 1, Y: 1, Z: 1})
		out.Translate = vec(t.Translate, project.Vector3{})
		out.ScaleCenter = vec(t.ScaleCenter, project.Vector3{})
		out.RotateCenter = vec(t.RotateCenter, project.Vector3{})

		rotate, ok, rotRng := resolveVariableParamGeneric(ctx, r, n, t.Rotate, at)
		rng = rng.Union(rotRng)
		if ok {
			out.Rotate = rotate
		} else {
			out.Rotate = project.Quaternion{W: 1}
		}
	}
	return out, rng
}

// evalAudioRequiredParams resolves child's AudioRequiredParams per-channel
// gain curves into a combine.AudioCombinerParam at at, carrying the child's
// own time-stretch map so AudioCombiner.Collect resamples it correctly. An
// instance with no AudioRequiredParams set mixes at unit gain.
func (r *Renderer) evalAudioRequiredParams(ctx context.Context, child *Node, at ptime.TimelineTime) (combine.AudioCombinerParam, invalidate.Range) {
	param := combine.AudioCombinerParam{TimeMap: child.Stretch}

	ap := child.Instance.AudioRequiredParams()
	if ap == nil {
		return param, invalidate.New()
	}

	rng := invalidate.New()
	gains := make([]float64, len(ap.Volume))
	for i, v := range ap.Volume {
		value, ok, vRng := resolveVariableParamGeneric(ctx, r, child, v, at)
		rng = rng.Union(vRng)
		if ok {
			gains[i] = value
		} else {
			gains[i] = 1
		}
	}
	param.PerChannelGain = gains
	return param, rng
}

func (r *Renderer) pinByID(n *Node, pinID id.ID) (*project.MarkerPin, bool) {
	for _, pin := range n.Instance.AllPins() {
		if pin.ID() == pinID {
			return pin, true
		}
	}
	return nil, false
}

func (r *Renderer) childByID(n *Node, instanceID id.ID) *Node {
	for _, c := range n.Children {
		if c.Instance.ID() == instanceID {
			return c
		}
	}
	return nil
}

// componentRenderer selects its rendererState once, guarded by a mutex, and
// stores it in an atomic.Pointer so subsequent renders read it lock-free —
// the Go substitute for an ArcSwap-guarded OnceCell.
type componentRenderer struct {
	node *Node

	mu   sync.Mutex
	cell atomic.Pointer[rendererState]
}

func (cr *componentRenderer) state(compute func() rendererState) rendererState {
	if p := cr.cell.Load(); p != nil {
		return *p
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if p := cr.cell.Load(); p != nil {
		return *p
	}
	s := compute()
	cr.cell.Store(&s)
	return s
}

type rendererState interface{ isRendererState() }

type componentsState struct{ children []*Node }

func (componentsState) isRendererState() {}

type nativeState struct{ proc processor.NativeProcessor }

func (nativeState) isRendererState() {}

type gatherNativeState struct{ proc processor.GatherNativeProcessor }

func (gatherNativeState) isRendererState() {}

type fixedParamState struct{ value parameter.RawValue }

func (fixedParamState) isRendererState() {}

type variableParamState struct{ value any }

func (variableParamState) isRendererState() {}
