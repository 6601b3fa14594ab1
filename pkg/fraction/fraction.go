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

// Package fraction implements a fixed-layout rational number, packed into a
// single int64 as I + N/D: a 28-bit signed integer part, an 18-bit unsigned
// numerator and an 18-bit unsigned denominator. Every timestamp and duration
// in a project timeline is one of these instead of a float, so that seeking
// and re-rendering the same frame twice always lands on the same value.
package fraction

import (
	"fmt"
	"math/big"
)

// Fraction is I + N/D packed as (I << 36) | (N << 18) | D.
type Fraction int64

const fracValueMask uint32 = (1 << 18) - 1

// Zero is 0 + 0/1.
var Zero = newInner(0, 0, 1)

// One is 1 + 0/1.
var One = newInner(1, 0, 1)

// Min is the smallest representable Fraction, -134,217,728 + 0/1.
var Min = newInner(-0x800_0000, 0, 1)

// Max is the largest representable Fraction, 134,217,727 + 262,142/262,143.
var Max = newInner(0x7ff_ffff, fracValueMask-1, fracValueMask)

func validateInteger(integer int32) bool {
	top := uint32(integer) & 0xf800_0000
	return top == 0 || top == 0xf800_0000
}

func validateNumerator(numerator uint32) bool {
	return numerator&fracValueMask == numerator
}

func validateDenominator(denominator uint32) bool {
	return denominator != 0 && denominator&fracValueMask == denominator
}

func gcdU64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// roundInto rescales a numerator/denominator pair to targetDenominator,
// rounding half-to-even (banker's rounding) on exact ties.
func roundInto(numerator, denominator, targetDenominator uint64) uint64 {
	n := new(big.Int).Mul(big.NewInt(0).SetUint64(numerator), big.NewInt(0).SetUint64(targetDenominator))
	d := new(big.Int).SetUint64(denominator)
	quotient, remainder := new(big.Int), new(big.Int)
	quotient.DivMod(n, d, remainder)
	twice := new(big.Int).Lsh(remainder, 1)
	switch twice.Cmp(d) {
	case -1:
		return quotient.Uint64()
	case 0:
		q := quotient.Uint64()
		if q&1 == 1 {
			return q + 1
		}
		return q
	default:
		return quotient.Uint64() + 1
	}
}

func newInner(integer int32, numerator, denominator uint32) Fraction {
	return Fraction(int64(integer)<<36 | int64(numerator)<<18 | int64(denominator))
}

// New constructs I + N/D, reducing N/D to lowest terms. It panics if any
// component is out of range or N >= D.
func New(integer int32, numerator, denominator uint32) Fraction {
	f, ok := NewChecked(integer, numerator, denominator)
	if !ok {
		panic("fraction: validate error")
	}
	return f
}

// NewChecked is New without the panic: it reports false instead of
// constructing a Fraction when the arguments don't fit.
func NewChecked(integer int32, numerator, denominator uint32) (Fraction, bool) {
	if !validateInteger(integer) || !validateNumerator(numerator) || !validateDenominator(denominator) || numerator >= denominator {
		return 0, false
	}
	gcd := gcdU64(uint64(numerator), uint64(denominator))
	return newInner(integer, numerator/uint32(gcd), denominator/uint32(gcd)), true
}

// FromInt converts a plain integer.
func FromInt(integer int32) Fraction {
	return New(integer, 0, 1)
}

// FromRatio builds a Fraction from numerator/denominator, where numerator may
// be negative and denominator must be a positive 18-bit value.
func FromRatio(numerator int64, denominator uint32) Fraction {
	integer := numerator / int64(denominator)
	rem := numerator % int64(denominator)
	if rem < 0 {
		integer--
		rem += int64(denominator)
	}
	return New(int32(integer), uint32(rem), denominator)
}

// FromFloat64 converts a float64, truncating the fractional part to 18 bits
// of denominator precision.
func FromFloat64(value float64) Fraction {
	integer := float64(int64(value))
	if value < 0 && value != integer {
		integer--
	}
	fract := value - integer
	if fract < 0 {
		fract++
	}
	num := uint32(fract * float64(fracValueMask))
	if num > fracValueMask-1 {
		num = fracValueMask - 1
	}
	return New(int32(integer), num, fracValueMask)
}

// Deconstruct splits the Fraction back into (I, N, D).
func (f Fraction) Deconstruct() (int32, uint32, uint32) {
	x := int64(f)
	integer := int32(x >> 36)
	numerator := uint32(x>>18) & fracValueMask
	denominator := uint32(x) & fracValueMask
	return integer, numerator, denominator
}

// DeconstructRound splits the Fraction into (I, N') such that N'/denominator
// approximates the true N/D, rounding half-to-even.
func (f Fraction) DeconstructRound(denominator uint32) (int32, uint32) {
	i, n, d := f.Deconstruct()
	if d == denominator {
		return i, n
	}
	return i, uint32(roundInto(uint64(n), uint64(d), uint64(denominator)))
}

// Signum returns -1, 0 or 1 according to the sign of the integer part.
func (f Fraction) Signum() int {
	i, _, _ := f.Deconstruct()
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	default:
		return 0
	}
}

func reduceWide(i int64, n, d uint64) (Fraction, bool) {
	if !validateInteger(int32(i)) || i != int64(int32(i)) {
		return 0, false
	}
	gcd := gcdU64(n, d)
	if gcd != 0 {
		n /= gcd
		d /= gcd
	}
	if validateDenominator(uint32(d)) && d == uint64(uint32(d)) {
		return newInner(int32(i), uint32(n), uint32(d)), true
	}
	n = roundInto(n, d, uint64(fracValueMask))
	return newInner(int32(i), uint32(n), fracValueMask), true
}

// CheckedAdd returns f+rhs, or false on overflow of the integer part.
func (f Fraction) CheckedAdd(rhs Fraction) (Fraction, bool) {
	i1, n1, d1 := f.Deconstruct()
	i2, n2, d2 := rhs.Deconstruct()
	i := int64(i1) + int64(i2)
	d := uint64(d1) * uint64(d2)
	n := uint64(n1)*uint64(d2) + uint64(n2)*uint64(d1)
	if n >= d {
		i++
		n -= d
	}
	return reduceWide(i, n, d)
}

// SaturatingAdd is CheckedAdd clamped to Min/Max instead of reporting overflow.
func (f Fraction) SaturatingAdd(rhs Fraction) Fraction {
	if r, ok := f.CheckedAdd(rhs); ok {
		return r
	}
	if f.Signum() >= 0 {
		return Max
	}
	return Min
}

// CheckedSub returns f-rhs, or false on overflow of the integer part.
func (f Fraction) CheckedSub(rhs Fraction) (Fraction, bool) {
	i1, n1, d1 := f.Deconstruct()
	i2, n2, d2 := rhs.Deconstruct()
	i := int64(i1) - int64(i2) - 1
	d := uint64(d1) * uint64(d2)
	n := d + uint64(n1)*uint64(d2) - uint64(n2)*uint64(d1)
	if n >= d {
		i++
		n -= d
	}
	return reduceWide(i, n, d)
}

// SaturatingSub is CheckedSub clamped to Min/Max instead of reporting overflow.
func (f Fraction) SaturatingSub(rhs Fraction) Fraction {
	if r, ok := f.CheckedSub(rhs); ok {
		return r
	}
	if f.Signum() >= 0 {
		return Max
	}
	return Min
}

// CheckedMul returns f*rhs, or false on overflow of the integer part.
func (f Fraction) CheckedMul(rhs Fraction) (Fraction, bool) {
	i1, n1, d1 := f.Deconstruct()
	i2, n2, d2 := rhs.Deconstruct()

	bi1, bn1, bd1 := big.NewInt(int64(i1)), big.NewInt(int64(n1)), big.NewInt(int64(d1))
	bi2, bn2, bd2 := big.NewInt(int64(i2)), big.NewInt(int64(n2)), big.NewInt(int64(d2))

	i := new(big.Int).Mul(bi1, bi2)
	n := new(big.Int).Mul(bn1, bn2)
	n.Add(n, new(big.Int).Mul(new(big.Int).Mul(bn1, bi2), bd2))
	n.Add(n, new(big.Int).Mul(new(big.Int).Mul(bn2, bi1), bd1))
	d := new(big.Int).Mul(bd1, bd2)

	div, rem := new(big.Int), new(big.Int)
	div.DivMod(n, d, rem)
	i.Add(i, div)
	if rem.Sign() < 0 {
		i.Sub(i, big.NewInt(1))
		rem.Add(rem, d)
	}

	if !i.IsInt64() {
		return 0, false
	}
	return reduceWide(i.Int64(), rem.Uint64(), d.Uint64())
}

// SaturatingMul is CheckedMul clamped to Min/Max instead of reporting overflow.
func (f Fraction) SaturatingMul(rhs Fraction) Fraction {
	if r, ok := f.CheckedMul(rhs); ok {
		return r
	}
	if f.Signum()*rhs.Signum() >= 0 {
		return Max
	}
	return Min
}

// CheckedDiv returns f/rhs, or false on division by zero or overflow of the
// integer part.
func (f Fraction) CheckedDiv(rhs Fraction) (Fraction, bool) {
	i1, n1, d1 := f.Deconstruct()
	i2, n2, d2 := rhs.Deconstruct()

	bi1, bn1, bd1 := big.NewInt(int64(i1)), big.NewInt(int64(n1)), big.NewInt(int64(d1))
	bi2, bn2, bd2 := big.NewInt(int64(i2)), big.NewInt(int64(n2)), big.NewInt(int64(d2))

	n := new(big.Int).Mul(new(big.Int).Add(new(big.Int).Mul(bd1, bi1), bn1), bd2)
	d := new(big.Int).Mul(new(big.Int).Add(new(big.Int).Mul(bi2, bd2), bn2), bd1)

	switch d.Sign() {
	case -1:
		n.Neg(n)
		d.Neg(d)
	case 0:
		return 0, false
	}

	gcd := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if gcd.Sign() != 0 {
		n.Div(n, gcd)
		d.Div(d, gcd)
	}

	div, rem := new(big.Int), new(big.Int)
	div.QuoRem(n, d, rem)
	i := div
	if rem.Sign() < 0 {
		i.Sub(i, big.NewInt(1))
		rem.Add(rem, d)
	}

	if !i.IsInt64() {
		return 0, false
	}
	return reduceWide(i.Int64(), rem.Uint64(), d.Uint64())
}

// SaturatingDiv is CheckedDiv clamped to Min/Max instead of reporting
// overflow or division by zero.
func (f Fraction) SaturatingDiv(rhs Fraction) Fraction {
	if r, ok := f.CheckedDiv(rhs); ok {
		return r
	}
	if f.Signum()*rhs.Signum() >= 0 {
		return Max
	}
	return Min
}

// CheckedNeg returns -f, or false on overflow.
func (f Fraction) CheckedNeg() (Fraction, bool) {
	return Zero.CheckedSub(f)
}

// SaturatingNeg is CheckedNeg clamped to Min/Max instead of reporting overflow.
func (f Fraction) SaturatingNeg() Fraction {
	return Zero.SaturatingSub(f)
}

// Add panics on overflow; use CheckedAdd or SaturatingAdd where overflow is
// a normal outcome.
func (f Fraction) Add(rhs Fraction) Fraction {
	r, ok := f.CheckedAdd(rhs)
	if !ok {
		panic("fraction: add overflow")
	}
	return r
}

// Sub panics on overflow; use CheckedSub or SaturatingSub where overflow is
// a normal outcome.
func (f Fraction) Sub(rhs Fraction) Fraction {
	r, ok := f.CheckedSub(rhs)
	if !ok {
		panic("fraction: sub overflow")
	}
	return r
}

// Mul panics on overflow; use CheckedMul or SaturatingMul where overflow is
// a normal outcome.
func (f Fraction) Mul(rhs Fraction) Fraction {
	r, ok := f.CheckedMul(rhs)
	if !ok {
		panic("fraction: mul overflow")
	}
	return r
}

// Div panics on division by zero or overflow; use CheckedDiv or SaturatingDiv
// where either is a normal outcome.
func (f Fraction) Div(rhs Fraction) Fraction {
	r, ok := f.CheckedDiv(rhs)
	if !ok {
		panic("fraction: div by zero or overflow")
	}
	return r
}

// Neg panics on overflow (only Min has no representable negation).
func (f Fraction) Neg() Fraction {
	r, ok := f.CheckedNeg()
	if !ok {
		panic("fraction: neg overflow")
	}
	return r
}

// Float64 converts to an approximate float64.
func (f Fraction) Float64() float64 {
	i, n, d := f.Deconstruct()
	return float64(i) + float64(n)/float64(d)
}

// Cmp returns -1, 0 or 1 as f is less than, equal to or greater than rhs.
func (f Fraction) Cmp(rhs Fraction) int {
	i1, n1, d1 := f.Deconstruct()
	i2, n2, d2 := rhs.Deconstruct()
	switch {
	case i1 < i2:
		return -1
	case i1 > i2:
		return 1
	}
	lhs := uint64(n1) * uint64(d2)
	other := uint64(n2) * uint64(d1)
	switch {
	case lhs < other:
		return -1
	case lhs > other:
		return 1
	default:
		return 0
	}
}

// String renders I+N/D, matching the Rust Display/Debug implementation.
func (f Fraction) String() string {
	i, n, d := f.Deconstruct()
	return fmt.Sprintf("%d+%d/%d", i, n, d)
}

// GoString is the same rendering as String, used by %#v in tests.
func (f Fraction) GoString() string {
	return f.String()
}
