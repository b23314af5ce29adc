// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package station assembles the instruments available to a sweep from a YAML
// inventory and resolves dotted references such as "dci.A.temperature" to
// instrument handles.
package station

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"gopkg.in/yaml.v3"
)

// Instrument types understood by the inventory.
const (
	TypeDummyChannel = "dummy_channel"
	TypeParameters   = "parameters"
	TypeSpectrum     = "spectrum"
)

// File is the YAML inventory.
type File struct {
	Instruments        map[string]InstrumentSpec `yaml:"instruments"`
	DefaultMeasurement []string                  `yaml:"default_measurement"`
}

// InstrumentSpec declares one simulated instrument.
type InstrumentSpec struct {
	Type       string          `yaml:"type"`
	Channels   []string        `yaml:"channels,omitempty"`
	Parameters []ParameterSpec `yaml:"parameters,omitempty"`
	Points     int             `yaml:"points,omitempty"`
	SampleRate float64         `yaml:"sample_rate,omitempty"`
}

// ParameterSpec declares a stored scalar parameter.
type ParameterSpec struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label,omitempty"`
	Unit    string   `yaml:"unit,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	Initial float64  `yaml:"initial,omitempty"`
}

// Station is a named set of instruments.
type Station struct {
	instruments map[string]*instrument.Instrument
	order       []string
	defaults    []string
}

// New returns an empty station.
func New() *Station {
	return &Station{instruments: make(map[string]*instrument.Instrument)}
}

// Parse decodes a YAML inventory and builds its instruments. Unknown keys are
// rejected.
func Parse(data []byte) (*Station, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("station: inventory is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("station: decode inventory: %w", err)
	}
	return Build(f)
}

// Load reads and parses the inventory at path.
func Load(path string) (*Station, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("station: read %s: %w", path, err)
	}
	st, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// Build creates the instruments declared in f, in name order.
func Build(f File) (*Station, error) {
	st := New()
	names := make([]string, 0, len(f.Instruments))
	for name := range f.Instruments {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		in, err := buildInstrument(name, f.Instruments[name])
		if err != nil {
			return nil, fmt.Errorf("station: %w", err)
		}
		if err := st.Add(in); err != nil {
			return nil, fmt.Errorf("station: %w", err)
		}
	}
	st.defaults = slices.Clone(f.DefaultMeasurement)
	return st, nil
}

func buildInstrument(name string, spec InstrumentSpec) (*instrument.Instrument, error) {
	if strings.ContainsAny(name, ".[]") || name == "" {
		return nil, fmt.Errorf("invalid instrument name %q", name)
	}
	switch spec.Type {
	case TypeDummyChannel:
		return NewDummyChannelInstrument(name, spec.Channels...)
	case TypeParameters:
		in := instrument.New(name)
		for _, p := range spec.Parameters {
			opts := []instrument.ParameterOption{
				instrument.WithLabel(p.Label),
				instrument.WithUnit(p.Unit),
				instrument.WithInitial(p.Initial),
			}
			if p.Min != nil || p.Max != nil {
				lo, hi := -1e308, 1e308
				if p.Min != nil {
					lo = *p.Min
				}
				if p.Max != nil {
					hi = *p.Max
				}
				opts = append(opts, instrument.WithBounds(lo, hi))
			}
			if err := in.AddParameter(instrument.NewParameter(p.Name, opts...)); err != nil {
				return nil, err
			}
		}
		return in, nil
	case TypeSpectrum:
		points, rate := spec.Points, spec.SampleRate
		if points == 0 {
			points = 64
		}
		if rate == 0 {
			rate = 1000
		}
		return NewSpectrumAnalyzer(name, points, rate)
	case "":
		return nil, fmt.Errorf("instrument %s: type is required", name)
	default:
		return nil, fmt.Errorf("instrument %s: unknown type %q", name, spec.Type)
	}
}

// Add registers an instrument under its own name.
func (s *Station) Add(in *instrument.Instrument) error {
	if _, dup := s.instruments[in.Name()]; dup {
		return fmt.Errorf("duplicate instrument %q", in.Name())
	}
	s.instruments[in.Name()] = in
	s.order = append(s.order, in.Name())
	return nil
}

// Names lists instruments in registration order.
func (s *Station) Names() []string { return slices.Clone(s.order) }

// Instrument returns the named instrument.
func (s *Station) Instrument(name string) (*instrument.Instrument, error) {
	in, ok := s.instruments[name]
	if !ok {
		return nil, &instrument.AttributeError{Kind: "Station", Attr: name}
	}
	return in, nil
}

// DefaultMeasurement returns the references measured when a loop has no
// explicit actions.
func (s *Station) DefaultMeasurement() []string { return slices.Clone(s.defaults) }

// SetDefaultMeasurement replaces the default measurement references.
func (s *Station) SetDefaultMeasurement(refs ...string) { s.defaults = slices.Clone(refs) }

// Resolve looks up "<instrument>.<path>"; see instrument.Instrument.Resolve for
// the path syntax.
func (s *Station) Resolve(ref string) (any, error) {
	head, rest, _ := strings.Cut(ref, ".")
	in, err := s.Instrument(head)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return in.Resolve(rest)
}

// Settable resolves ref and checks that it can be swept.
func (s *Station) Settable(ref string) (instrument.Settable, error) {
	v, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	q, ok := v.(instrument.Settable)
	if !ok {
		return nil, fmt.Errorf("%q is not a settable parameter", ref)
	}
	return q, nil
}
