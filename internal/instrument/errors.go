package instrument

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchAttribute is returned when a parameter, function or channel lookup fails.
	ErrNoSuchAttribute = errors.New("no such attribute")
	// ErrOutOfRange is returned when a value falls outside a parameter's bounds.
	ErrOutOfRange = errors.New("value out of range")
	// ErrShapeMismatch is returned when a measurable returns a block of the wrong size.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNotSettable is returned by Set on a read-only parameter.
	ErrNotSettable = errors.New("parameter is not settable")
)

// AttributeError reports a failed lookup on an instrument, channel or collection.
type AttributeError struct {
	Kind string
	Attr string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("'%s' object has no attribute '%s'", e.Kind, e.Attr)
}

func (e *AttributeError) Is(target error) bool { return target == ErrNoSuchAttribute }

func noAttr(kind, attr string) error {
	return &AttributeError{Kind: kind, Attr: attr}
}
