// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package errdefs defines the error taxonomy shared by the plan builder, the
// array allocator and the execution engine.
//
// Every typed error matches one sentinel through errors.Is, so callers can branch
// on the category without depending on the concrete type:
//
//   - ErrConfiguration: malformed plan construction, raised at build time.
//   - ErrUnsupported: an ambiguous or unsupported expansion, raised at build time.
//   - ErrDriver: a controlled quantity or measurable rejected an operation.
//   - ErrConcurrentRun: a run was requested against an already-active target.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrDriver        = errors.New("driver error")
	ErrConcurrentRun = errors.New("concurrent run")
)

// ConfigurationError reports a malformed plan.
type ConfigurationError struct {
	Msg string
	Err error
}

// Configurationf builds a ConfigurationError from a format string.
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// WrapConfiguration marks err as a configuration failure with context msg.
func WrapConfiguration(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Msg: msg, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
func (e *ConfigurationError) Unwrap() error        { return e.Err }

// UnsupportedOperationError reports an expansion or shape that cannot be resolved.
type UnsupportedOperationError struct {
	Msg string
}

func Unsupportedf(format string, args ...any) error {
	return &UnsupportedOperationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UnsupportedOperationError) Error() string {
	return "unsupported operation: " + e.Msg
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }

// DriverError carries the identity of the failing quantity or measurable and the
// sweep index tuple at which the failure happened.
type DriverError struct {
	Target string
	Op     string
	Index  []int
	Err    error
}

func (e *DriverError) Error() string {
	var sb strings.Builder
	sb.WriteString("driver error: ")
	sb.WriteString(e.Op)
	sb.WriteString(" ")
	sb.WriteString(e.Target)
	if len(e.Index) > 0 {
		sb.WriteString(" at index ")
		sb.WriteString(FormatIndex(e.Index))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *DriverError) Is(target error) bool { return target == ErrDriver }
func (e *DriverError) Unwrap() error        { return e.Err }

// ConcurrentRunError is returned when a target is already driven by another run.
type ConcurrentRunError struct {
	Target string
	Owner  string
}

func (e *ConcurrentRunError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("concurrent run: %s is already active in run %s", e.Target, e.Owner)
	}
	return fmt.Sprintf("concurrent run: %s is already active", e.Target)
}

func (e *ConcurrentRunError) Is(target error) bool { return target == ErrConcurrentRun }

// FormatIndex renders an index tuple as "(i, j, k)".
func FormatIndex(index []int) string {
	parts := make([]string, len(index))
	for i, v := range index {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
