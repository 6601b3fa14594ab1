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

// Package serialize implements the on-disk project document: a tagged JSON
// shape, versioned at FormatVersion, that references pins and instances by
// stable internal indices instead of ids. Identifiers are discarded on save
// and reissued by an id.Generator on load, the same way the original
// implementation's IdGenerator-keyed persistence format works.
package serialize

import (
	"encoding/json"
	"fmt"

	"mpdelta/pkg/timeline/id"
)

// FormatVersion is embedded in every Document so a future incompatible
// format change can be detected before a confusing partial load.
const FormatVersion = 0

// PinIndexKind discriminates PinIndex.
type PinIndexKind int

const (
	PinLeft PinIndexKind = iota
	PinRight
	PinMarker
)

// PinIndex addresses one pin within a component instance (or, via PinRef's
// Component == nil, within the root class itself): its left pin, its right
// pin, or one of its interior markers by position.
type PinIndex struct {
	Kind   PinIndexKind
	Marker int // valid when Kind == PinMarker
}

func (p PinIndex) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PinLeft:
		return json.Marshal("l")
	case PinRight:
		return json.Marshal("r")
	case PinMarker:
		return json.Marshal(map[string]int{"m": p.Marker})
	default:
		return nil, fmt.Errorf("serialize: invalid pin index kind %d", p.Kind)
	}
}

func (p *PinIndex) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch tag {
		case "l":
			*p = PinIndex{Kind: PinLeft}
			return nil
		case "r":
			*p = PinIndex{Kind: PinRight}
			return nil
		default:
			return fmt.Errorf("serialize: invalid pin index tag %q", tag)
		}
	}
	var marker struct {
		M int `json:"m"`
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return fmt.Errorf("serialize: invalid pin index: %w", err)
	}
	*p = PinIndex{Kind: PinMarker, Marker: marker.M}
	return nil
}

// PinRef addresses a pin anywhere in a root component class. Component is
// nil for the root's own left/right anchors (Index must then be PinLeft or
// PinRight), or an index into Document.Instances otherwise.
type PinRef struct {
	Component *int     `json:"c,omitempty"`
	Index     PinIndex `json:"i"`
}

// MarkerPinDoc persists a pin's lock state. The cached TimelineTime is never
// persisted: it is derived fresh by the differential solver on load.
type MarkerPinDoc struct {
	Locked bool   `json:"locked"`
	Lock   []byte `json:"lock,omitempty"`
}

// ClassIdentifierDoc persists an id.ClassIdentifier.
type ClassIdentifierDoc struct {
	Namespace string    `json:"ns"`
	Name      string    `json:"name"`
	Inner     [2]uint64 `json:"inner,omitempty"`
}

func classDoc(c id.ClassIdentifier) ClassIdentifierDoc {
	return ClassIdentifierDoc{Namespace: c.Namespace, Name: c.Name, Inner: c.Inner}
}

func (c ClassIdentifierDoc) class() id.ClassIdentifier {
	return id.ClassIdentifier{Namespace: c.Namespace, Name: c.Name, Inner: c.Inner}
}

// InstanceDoc persists one ComponentInstance. Variable parameter curves
// (image/audio required params, VariableParameterValue slots) are not yet
// part of the persisted document: see DESIGN.md.
type InstanceDoc struct {
	Class       ClassIdentifierDoc `json:"class"`
	Left        MarkerPinDoc       `json:"left"`
	Right       MarkerPinDoc       `json:"right"`
	Markers     []MarkerPinDoc     `json:"markers,omitempty"`
	FixedParams []ValueDoc         `json:"fixedParams,omitempty"`
}

// LinkDoc persists one MarkerLink as a pair of stable PinRefs plus its
// signed length.
type LinkDoc struct {
	From PinRef `json:"from"`
	To   PinRef `json:"to"`
	Len  []byte `json:"len"`
}

// Document is the full persisted form of one RootComponentClass.
type Document struct {
	FormatVersion int           `json:"formatVersion"`
	Length        []byte        `json:"length"`
	Instances     []InstanceDoc `json:"instances,omitempty"`
	Links         []LinkDoc     `json:"links,omitempty"`
}

// ErrUnsupportedFormatVersion is returned by Load when a document was
// written by a newer, incompatible format.
type ErrUnsupportedFormatVersion struct{ Got int }

func (e *ErrUnsupportedFormatVersion) Error() string {
	return fmt.Sprintf("serialize: unsupported format version %d (want %d)", e.Got, FormatVersion)
}
