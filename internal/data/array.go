// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package data holds the pre-allocated result arrays of a sweep run and the
// named collection that groups them.
//
// Arrays are created with their final dimensions and filled with the unset
// sentinel (NaN). The engine writes into them in place; they are never resized.
package data

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// Unset is the sentinel stored in elements that have not been written.
var Unset = math.NaN()

// IsUnset reports whether v is the unset sentinel.
func IsUnset(v float64) bool { return math.IsNaN(v) }

// Array is an n-dimensional float64 array stored in row-major order.
//
// A setpoint array records the values of a swept axis; SetArrays lists, for a
// measured array, the setpoint arrays indexing each of its dimensions. For a
// setpoint array the last entry is the array itself.
type Array struct {
	Name       string
	Label      string
	Unit       string
	IsSetpoint bool
	SetArrays  []*Array

	mu        sync.RWMutex
	dims      []int
	strides   []int
	data      []float64
	modLow    int
	modHigh   int
	lastSaved int
}

// NewArray allocates an array of the given dimensions filled with Unset.
func NewArray(name string, dims []int) (*Array, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("array %s: at least one dimension is required", name)
	}
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("array %s: dimensions must be positive, got %v", name, dims)
		}
	}
	a := &Array{
		Name:      name,
		dims:      slices.Clone(dims),
		strides:   make([]int, len(dims)),
		modLow:    -1,
		modHigh:   -1,
		lastSaved: -1,
	}
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		a.strides[i] = stride
		stride *= dims[i]
	}
	a.data = make([]float64, stride)
	a.Clear()
	return a, nil
}

// Dims returns a copy of the array dimensions.
func (a *Array) Dims() []int { return slices.Clone(a.dims) }

// Rank is the number of dimensions.
func (a *Array) Rank() int { return len(a.dims) }

// Size is the total number of elements.
func (a *Array) Size() int { return len(a.data) }

// Clear resets every element to Unset and forgets modification history.
func (a *Array) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.data {
		a.data[i] = Unset
	}
	a.modLow, a.modHigh, a.lastSaved = -1, -1, -1
}

// offset returns the flat offset of an index prefix and the size of the block
// it addresses.
func (a *Array) offset(index []int) (int, int, error) {
	if len(index) > len(a.dims) {
		return 0, 0, fmt.Errorf("array %s: index %v has more entries than dims %v", a.Name, index, a.dims)
	}
	off := 0
	for i, v := range index {
		if v < 0 || v >= a.dims[i] {
			return 0, 0, fmt.Errorf("array %s: index %v out of range for dims %v", a.Name, index, a.dims)
		}
		off += v * a.strides[i]
	}
	if len(index) == 0 {
		return 0, len(a.data), nil
	}
	return off, a.strides[len(index)-1], nil
}

// Set writes values into the block addressed by the index prefix. values must
// either fill the block exactly or be a single value broadcast across it.
func (a *Array) Set(index []int, values ...float64) error {
	off, block, err := a.offset(index)
	if err != nil {
		return err
	}
	if len(values) != block && len(values) != 1 {
		return fmt.Errorf("array %s: %d values for block of %d at index %v", a.Name, len(values), block, index)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(values) == 1 {
		for i := off; i < off+block; i++ {
			a.data[i] = values[0]
		}
	} else {
		copy(a.data[off:off+block], values)
	}
	a.markModified(off, off+block-1)
	return nil
}

// SetBlock writes exactly one full block at the index prefix. Unlike Set it
// never broadcasts.
func (a *Array) SetBlock(index []int, values []float64) error {
	_, block, err := a.offset(index)
	if err != nil {
		return err
	}
	if len(values) != block {
		return fmt.Errorf("array %s: %d values for block of %d at index %v", a.Name, len(values), block, index)
	}
	return a.Set(index, values...)
}

func (a *Array) markModified(lo, hi int) {
	if a.modLow < 0 || lo < a.modLow {
		a.modLow = lo
	}
	if hi > a.modHigh {
		a.modHigh = hi
	}
}

// At returns the element at a full index.
func (a *Array) At(index ...int) float64 {
	if len(index) != len(a.dims) {
		panic(fmt.Sprintf("array %s: At needs %d indices, got %d", a.Name, len(a.dims), len(index)))
	}
	off, _, err := a.offset(index)
	if err != nil {
		panic(err)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[off]
}

// Values returns a copy of the flat row-major data.
func (a *Array) Values() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.data)
}

// Block returns a copy of the block addressed by an index prefix.
func (a *Array) Block(index ...int) ([]float64, error) {
	off, block, err := a.offset(index)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.data[off : off+block]), nil
}

// Filled counts the elements that are not Unset.
func (a *Array) Filled() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, v := range a.data {
		if !IsUnset(v) {
			n++
		}
	}
	return n
}

// ModifiedRange returns the flat range [low, high] written since the last
// MarkSaved. ok is false when nothing new was written.
func (a *Array) ModifiedRange() (low, high int, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.modHigh < 0 {
		return 0, 0, false
	}
	low = a.modLow
	if a.lastSaved >= low {
		low = a.lastSaved + 1
	}
	if low > a.modHigh {
		return 0, 0, false
	}
	return low, a.modHigh, true
}

// MarkSaved records that everything up to the current modified range has been
// persisted.
func (a *Array) MarkSaved() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.modHigh > a.lastSaved {
		a.lastSaved = a.modHigh
	}
	a.modLow, a.modHigh = -1, -1
}

// LastSavedIndex returns the last flat index persisted, or -1.
func (a *Array) LastSavedIndex() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastSaved
}

// Equal compares dims and data, treating Unset elements as equal to each other.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !slices.Equal(a.dims, b.dims) {
		return false
	}
	av, bv := a.Values(), b.Values()
	for i := range av {
		if IsUnset(av[i]) && IsUnset(bv[i]) {
			continue
		}
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	kind := "measured"
	if a.IsSetpoint {
		kind = "setpoint"
	}
	return fmt.Sprintf("%s %s %v", kind, a.Name, a.dims)
}
