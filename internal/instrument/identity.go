// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package instrument defines the capability interfaces a sweep needs from
// external hardware: things that can be set, scalars and arrays that can be read,
// and multi-output measurables. It also provides concrete in-memory handles
// (parameters, instruments, channels and channel lists) used by simulated
// stations and tests.
package instrument

import (
	"context"
	"strings"
)

// Identity names a quantity or measurable. Name is the short identifier; the
// owner fields are used to qualify the name when short names collide.
type Identity struct {
	Name       string
	Label      string
	Unit       string
	Instrument string
	Channel    string
}

// FullName joins the non-empty owner fields and the short name with "_".
func (id Identity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{id.Instrument, id.Channel, id.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// Qualified reports whether the identity belongs to an addressable sub-unit.
func (id Identity) Qualified() bool { return id.Channel != "" }

// DisplayLabel falls back to the short name when no label is set.
func (id Identity) DisplayLabel() string {
	if id.Label != "" {
		return id.Label
	}
	return id.Name
}

func (id Identity) String() string { return id.FullName() }

// Identified is anything that carries an Identity.
type Identified interface {
	Identity() Identity
}

// Settable is a controlled quantity.
type Settable interface {
	Identified
	Set(ctx context.Context, value float64) error
}

// Scalar is a measurable producing one value per read.
type Scalar interface {
	Identified
	Get(ctx context.Context) (float64, error)
}

// SetpointAxis describes one inner axis of an array-valued result. Empty Name
// or Values fall back to "index<j>" and 0..n-1.
type SetpointAxis struct {
	Name   string
	Label  string
	Unit   string
	Values []float64
}

// Array is a measurable producing a fixed-shape block per read. GetArray returns
// the values flattened in row-major order.
type Array interface {
	Identified
	Shape() []int
	Setpoints() []SetpointAxis
	GetArray(ctx context.Context) ([]float64, error)
}

// Member describes one output of a Multi measurable. A nil Shape is a scalar
// output.
type Member struct {
	Name      string
	Label     string
	Unit      string
	Shape     []int
	Setpoints []SetpointAxis
}

// Multi is a measurable producing several named sub-results per read.
type Multi interface {
	Identified
	Members() []Member
	GetMulti(ctx context.Context) ([][]float64, error)
}

// MemberIdentity returns the identity of a member of m, owned by the same
// instrument and channel as m itself.
func MemberIdentity(m Multi, member Member) Identity {
	owner := m.Identity()
	return Identity{
		Name:       member.Name,
		Label:      member.Label,
		Unit:       member.Unit,
		Instrument: owner.Instrument,
		Channel:    owner.Channel,
	}
}

// Size returns the number of elements of a shape.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
