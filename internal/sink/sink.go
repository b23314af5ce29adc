// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package sink persists finalized result collections.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/sweepgrid/internal/data"
)

// Handle identifies where a collection was written.
type Handle struct {
	Location string
	Dir      string
	Files    []string
	URLs     []string
}

// Sink writes a finalized collection. label names the run.
type Sink interface {
	Write(ctx context.Context, set *data.Set, label string) (Handle, error)
}

// Memory keeps every collection it is given.
type Memory struct {
	mu   sync.Mutex
	sets []*data.Set
}

func (m *Memory) Write(_ context.Context, set *data.Set, _ string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, set)
	return Handle{Location: set.Location}, nil
}

// Sets returns the collections written so far.
func (m *Memory) Sets() []*data.Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*data.Set(nil), m.sets...)
}

// Multi writes to every sink in order and returns the first sink's handle
// merged with the files and URLs of the others.
type Multi []Sink

func (m Multi) Write(ctx context.Context, set *data.Set, label string) (Handle, error) {
	var (
		out  Handle
		errs []error
	)
	for i, s := range m {
		h, err := s.Write(ctx, set, label)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			out = h
			continue
		}
		out.URLs = append(out.URLs, h.URLs...)
	}
	return out, errors.Join(errs...)
}
