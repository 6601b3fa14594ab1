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
	"bytes"
	"fmt"

	"github.com/icza/bitio"

	"mpdelta/pkg/fraction"
)

// packFraction packs a Fraction's (integer, numerator, denominator) triple
// into 12 bytes via a bitio.Writer rather than decimal text, so the
// document's fraction fields round-trip exactly instead of through a
// float-lossy or locale-sensitive string form. The result is embedded as a
// []byte field, which encoding/json already renders as base64.
func packFraction(f fraction.Fraction) []byte {
	i, n, d := f.Deconstruct()

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	_ = w.WriteBits(uint64(uint32(i)), 32)
	_ = w.WriteBits(uint64(n), 32)
	_ = w.WriteBits(uint64(d), 32)
	_ = w.Close()
	return buf.Bytes()
}

// unpackFraction reverses packFraction.
func unpackFraction(raw []byte) (fraction.Fraction, error) {
	r := bitio.NewReader(bytes.NewReader(raw))
	i, err := r.ReadBits(32)
	if err != nil {
		return fraction.Zero, fmt.Errorf("serialize: read fraction integer part: %w", err)
	}
	n, err := r.ReadBits(32)
	if err != nil {
		return fraction.Zero, fmt.Errorf("serialize: read fraction numerator: %w", err)
	}
	d, err := r.ReadBits(32)
	if err != nil {
		return fraction.Zero, fmt.Errorf("serialize: read fraction denominator: %w", err)
	}
	f, ok := fraction.NewChecked(int32(uint32(i)), uint32(n), uint32(d))
	if !ok {
		return fraction.Zero, fmt.Errorf("serialize: packed fraction %d+%d/%d out of range", int32(uint32(i)), n, d)
	}
	return f, nil
}
