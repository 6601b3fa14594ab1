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

// Package id defines the 128-bit identifiers used for every long-lived
// project entity, and the generator contract that issues them.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ID is an opaque 128-bit identifier. The zero value is never issued by a
// Generator and is used as a "no id" sentinel in a few places (e.g. an
// unresolved ComponentClassIdentifier).
type ID [16]byte

// String renders the id as lowercase hex, for logs and error messages.
func (i ID) String() string {
	return hex.EncodeToString(i[:])
}

// IsZero reports whether i is the all-zero sentinel.
func (i ID) IsZero() bool {
	return i == ID{}
}

// ParseID parses the lowercase-hex form String returns back into an ID, for
// decoding ids carried over the wire (JSON request bodies, URL path
// segments).
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("id: expected %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Generator issues unique identifiers for the life of the process.
type Generator interface {
	Generate() ID
}

// RandGenerator is the default Generator, backed by crypto/rand.
type RandGenerator struct{}

// Generate returns a fresh random ID.
func (RandGenerator) Generate() ID {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand.Read on a [16]byte only fails if the OS entropy
		// source is unavailable, which we treat as unrecoverable.
		panic(fmt.Sprintf("id: crypto/rand unavailable: %v", err))
	}
	return id
}

// ClassIdentifier names a component class: a namespace + name pair plus two
// free 64-bit words a provider may use to disambiguate variants it exposes
// under the same name (e.g. format revisions).
type ClassIdentifier struct {
	Namespace string
	Name      string
	Inner     [2]uint64
}

func (c ClassIdentifier) String() string {
	return fmt.Sprintf("%s:%s:%x:%x", c.Namespace, c.Name, c.Inner[0], c.Inner[1])
}
