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

package web

import (
	"fmt"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/editor"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/serialize"
	ptime "mpdelta/pkg/timeline/time"
)

// classRef is the wire form of an id.ClassIdentifier in a command payload.
// Kept local to this package rather than reusing serialize.ClassIdentifierDoc,
// whose class() decoder is unexported outside that package.
type classRef struct {
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	Inner     [2]uint64 `json:"inner,omitempty"`
}

func (c classRef) class() id.ClassIdentifier {
	return id.ClassIdentifier{Namespace: c.Namespace, Name: c.Name, Inner: c.Inner}
}

// fractionDoc is the wire form of a fraction.Fraction: its Deconstruct
// triple, rather than a decimal string, since the package exposes no
// string parser to invert Fraction.String's "I+N/D" rendering.
type fractionDoc struct {
	I int32  `json:"i"`
	N uint32 `json:"n"`
	D uint32 `json:"d"`
}

func (f fractionDoc) value() (fraction.Fraction, error) {
	if f.D == 0 {
		return fraction.Zero, nil
	}
	v, ok := fraction.NewChecked(f.I, f.N, f.D)
	if !ok {
		return fraction.Zero, fmt.Errorf("web: invalid fraction %+v", f)
	}
	return v, nil
}

// newInstanceDoc is the wire form of a to-be-created ComponentInstance: a
// class plus its initial fixed parameter values. Left/right pins are always
// freshly generated and left floating; the caller locks or links them with
// a follow-up command.
type newInstanceDoc struct {
	Class       classRef             `json:"class"`
	FixedParams []serialize.ValueDoc `json:"fixedParams,omitempty"`
}

func (d newInstanceDoc) build(gen id.Generator) (*project.ComponentInstance, error) {
	fixed := make([]parameter.RawValue, len(d.FixedParams))
	for i, v := range d.FixedParams {
		val, err := serialize.DecodeRawValue(v)
		if err != nil {
			return nil, fmt.Errorf("fixedParams[%d]: %w", i, err)
		}
		fixed[i] = val
	}

	left := project.NewMarkerPin(gen.Generate())
	right := project.NewMarkerPin(gen.Generate())
	inst := project.NewComponentInstance(gen.Generate(), d.Class.class(), left, right)
	inst.SetFixedParams(fixed)
	return inst, nil
}

// rootCommandDoc is the wire envelope for a RootCommand: Cmd names which of
// editor's seven concrete RootCommand types to build, with only the fields
// that command needs populated.
type rootCommandDoc struct {
	Cmd string `json:"cmd"`

	Instance   *newInstanceDoc `json:"instance,omitempty"`
	Index      int             `json:"index,omitempty"`
	LinkID     string          `json:"linkId,omitempty"`
	InstanceID string          `json:"instanceId,omitempty"`
	FromPinID  string          `json:"fromPinId,omitempty"`
	ToPinID    string          `json:"toPinId,omitempty"`
	Length     fractionDoc     `json:"length,omitempty"`
}

func (d rootCommandDoc) build(gen id.Generator) (editor.RootCommand, error) {
	switch d.Cmd {
	case "addComponentInstance":
		if d.Instance == nil {
			return nil, fmt.Errorf("web: addComponentInstance requires instance")
		}
		inst, err := d.Instance.build(gen)
		if err != nil {
			return nil, err
		}
		return editor.CmdAddComponentInstance{Instance: inst}, nil
	case "insertComponentInstanceTo":
		if d.Instance == nil {
			return nil, fmt.Errorf("web: insertComponentInstanceTo requires instance")
		}
		inst, err := d.Instance.build(gen)
		if err != nil {
			return nil, err
		}
		return editor.CmdInsertComponentInstanceTo{Instance: inst, Index: d.Index}, nil
	case "deleteComponentInstance":
		instID, err := id.ParseID(d.InstanceID)
		if err != nil {
			return nil, err
		}
		return editor.CmdDeleteComponentInstance{InstanceID: instID}, nil
	case "editComponentLength":
		instID, err := id.ParseID(d.InstanceID)
		if err != nil {
			return nil, err
		}
		length, err := d.Length.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdEditComponentLength{InstanceID: instID, Length: length}, nil
	case "removeMarkerLink":
		linkID, err := id.ParseID(d.LinkID)
		if err != nil {
			return nil, err
		}
		return editor.CmdRemoveMarkerLink{LinkID: linkID}, nil
	case "editMarkerLinkLength":
		linkID, err := id.ParseID(d.LinkID)
		if err != nil {
			return nil, err
		}
		length, err := d.Length.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdEditMarkerLinkLength{LinkID: linkID, Length: length}, nil
	case "connectMarkerPins":
		from, err := id.ParseID(d.FromPinID)
		if err != nil {
			return nil, err
		}
		to, err := id.ParseID(d.ToPinID)
		if err != nil {
			return nil, err
		}
		length, err := d.Length.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdConnectMarkerPins{FromPinID: from, ToPinID: to, Length: length}, nil
	default:
		return nil, fmt.Errorf("web: unknown root command %q", d.Cmd)
	}
}

// instanceCommandDoc is the wire envelope for an InstanceCommand. Cmd
// updateImageRequiredParams is intentionally not supported: its payload
// (Transform, a PinSplitValue[*EasingValue[float64]] opacity curve,
// BlendMode, CompositeOperation) has no JSON wire form defined yet — see
// DESIGN.md.
type instanceCommandDoc struct {
	Cmd string `json:"cmd"`

	FixedParams []serialize.ValueDoc `json:"fixedParams,omitempty"`
	To          fractionDoc          `json:"to,omitempty"`
	PinID       string               `json:"pinId,omitempty"`
	At          fractionDoc          `json:"at,omitempty"`
}

func (d instanceCommandDoc) build() (editor.InstanceCommand, error) {
	switch d.Cmd {
	case "updateFixedParams":
		params := make([]parameter.RawValue, len(d.FixedParams))
		for i, v := range d.FixedParams {
			val, err := serialize.DecodeRawValue(v)
			if err != nil {
				return nil, fmt.Errorf("fixedParams[%d]: %w", i, err)
			}
			params[i] = val
		}
		return editor.CmdUpdateFixedParams{Params: params}, nil
	case "moveComponentInstance":
		to, err := d.To.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdMoveComponentInstance{To: ptime.NewTimelineTime(to)}, nil
	case "moveMarkerPin":
		pinID, err := id.ParseID(d.PinID)
		if err != nil {
			return nil, err
		}
		to, err := d.To.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdMoveMarkerPin{PinID: pinID, To: ptime.NewTimelineTime(to)}, nil
	case "addMarkerPin":
		at, err := d.At.value()
		if err != nil {
			return nil, err
		}
		return editor.CmdAddMarkerPin{At: ptime.NewTimelineTime(at)}, nil
	case "deleteMarkerPin":
		pinID, err := id.ParseID(d.PinID)
		if err != nil {
			return nil, err
		}
		return editor.CmdDeleteMarkerPin{PinID: pinID}, nil
	case "lockMarkerPin":
		pinID, err := id.ParseID(d.PinID)
		if err != nil {
			return nil, err
		}
		return editor.CmdLockMarkerPin{PinID: pinID}, nil
	case "unlockMarkerPin":
		pinID, err := id.ParseID(d.PinID)
		if err != nil {
			return nil, err
		}
		return editor.CmdUnlockMarkerPin{PinID: pinID}, nil
	default:
		return nil, fmt.Errorf("web: unknown instance command %q", d.Cmd)
	}
}
