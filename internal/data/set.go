package data

import (
	"fmt"
	"slices"
	"strings"
)

// Set is the named collection of arrays produced by one run, kept in
// declaration order.
type Set struct {
	ID       string
	Label    string
	Location string

	arrays []*Array
	byName map[string]*Array
}

// NewSet returns an empty collection.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Array)}
}

// Add appends an array. Names must be unique.
func (s *Set) Add(a *Array) error {
	if a.Name == "" {
		return fmt.Errorf("array name must not be empty")
	}
	if _, dup := s.byName[a.Name]; dup {
		return fmt.Errorf("duplicate array name %q", a.Name)
	}
	s.arrays = append(s.arrays, a)
	s.byName[a.Name] = a
	return nil
}

// Get returns the array with the given name.
func (s *Set) Get(name string) (*Array, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Names returns array names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.arrays))
	for i, a := range s.arrays {
		out[i] = a.Name
	}
	return out
}

// Arrays returns the arrays in declaration order.
func (s *Set) Arrays() []*Array { return slices.Clone(s.arrays) }

func (s *Set) Len() int { return len(s.arrays) }

// Description summarizes one array.
type Description struct {
	Name     string `json:"name"`
	Dims     []int  `json:"dims"`
	Setpoint bool   `json:"setpoint"`
}

// Describe lists name and dims of every array.
func (s *Set) Describe() []Description {
	out := make([]Description, len(s.arrays))
	for i, a := range s.arrays {
		out[i] = Description{Name: a.Name, Dims: a.Dims(), Setpoint: a.IsSetpoint}
	}
	return out
}

// Equal compares names, order, dims and data of two sets.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, a := range s.arrays {
		b := o.arrays[i]
		if a.Name != b.Name || a.IsSetpoint != b.IsSetpoint || !a.Equal(b) {
			return false
		}
	}
	return true
}

func (s *Set) String() string {
	var sb strings.Builder
	sb.WriteString("DataSet")
	if s.Location != "" {
		fmt.Fprintf(&sb, " location=%q", s.Location)
	}
	sb.WriteString(":\n")
	width := 0
	for _, a := range s.arrays {
		width = max(width, len(a.Name))
	}
	for _, a := range s.arrays {
		kind := "Measured"
		if a.IsSetpoint {
			kind = "Setpoint"
		}
		fmt.Fprintf(&sb, "   %-8s | %-*s | %v\n", kind, width, a.Name, a.dims)
	}
	return sb.String()
}
