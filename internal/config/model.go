package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
)

// Model is the format-agnostic representation of a sweep plan file.
type Model struct {
	Run  *RunSettings
	Loop *LoopDef
}

// RunSettings carries optional run metadata.
type RunSettings struct {
	Label    string
	Location string
}

// LoopDef is one level of a sweep. Nested loops become sub-plans that run at
// every point of this level, before the Each actions.
type LoopDef struct {
	Quantity string
	Values   []float64
	Delay    time.Duration
	Nested   []*LoopDef
	Each     []*ActionDef
}

// ActionKind selects how an ActionDef is interpreted.
type ActionKind string

const (
	ActionMeasure ActionKind = "measure"
	ActionWait    ActionKind = "wait"
	ActionCall    ActionKind = "call"
)

// ActionDef is one entry of a loop's action list.
type ActionDef struct {
	Kind  ActionKind
	Ref   string
	Delay time.Duration
}

func (a *ActionDef) String() string {
	if a.Kind == ActionWait {
		return fmt.Sprintf("wait(%s)", a.Delay)
	}
	return fmt.Sprintf("%s(%q)", a.Kind, a.Ref)
}

// Validate checks the structural rules a model must satisfy before it is
// bound to a station.
func (m *Model) Validate() error {
	if m == nil || m.Loop == nil {
		return errdefs.Configurationf("plan defines no loop")
	}
	return m.Loop.validate("loop")
}

func (l *LoopDef) validate(path string) error {
	path = fmt.Sprintf("%s %q", path, l.Quantity)
	if strings.TrimSpace(l.Quantity) == "" {
		return errdefs.Configurationf("%s: quantity reference is empty", path)
	}
	if len(l.Values) == 0 {
		return errdefs.Configurationf("%s: values must not be empty", path)
	}
	if l.Delay < 0 {
		return errdefs.Configurationf("%s: delay must be non-negative, got %s", path, l.Delay)
	}
	for _, n := range l.Nested {
		if err := n.validate(path + " > loop"); err != nil {
			return err
		}
	}
	for i, a := range l.Each {
		switch a.Kind {
		case ActionMeasure, ActionCall:
			if strings.TrimSpace(a.Ref) == "" {
				return errdefs.Configurationf("%s: action %d: %s needs a reference", path, i, a.Kind)
			}
		case ActionWait:
			if a.Delay < 0 {
				return errdefs.Configurationf("%s: action %d: wait must be non-negative", path, i)
			}
		default:
			return errdefs.Configurationf("%s: action %d: unknown kind %q", path, i, a.Kind)
		}
	}
	return nil
}

// Depth returns the number of loop levels along the deepest branch.
func (l *LoopDef) Depth() int {
	d := 0
	for _, n := range l.Nested {
		d = max(d, n.Depth())
	}
	return d + 1
}
