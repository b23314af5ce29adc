// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package loop builds and executes nested measurement sweeps.
//
// # Building
//
// A Builder describes one or more nested sweeps. Each attaches measurement
// actions at the innermost level and returns an immutable Plan:
//
//	b := loop.New(outer, 10*time.Millisecond).Loop(inner, 0)
//	plan, err := b.Each(dci.A.temperature, channels.Parameter("temperature"))
//
// Action arguments are resolved once, at build time, into tagged Actions:
// multi-output measurables first, then array-valued, then scalar. Collections
// (instrument.ParameterSlice) expand elementwise. An already-built Plan becomes
// the child loop of the level, and further Plans become nested-loop actions.
//
// # Allocation
//
// Before anything is set, Allocate walks the plan depth-first and creates every
// result array with its final dimensions: a setpoint array per loop level, one
// measured array per output, and inner setpoint arrays for array-valued
// outputs. All elements start as data.Unset. Names are resolved across the
// whole run so that colliding channel parameters are qualified with their
// instrument and channel.
//
// # Execution
//
// The Engine walks the plan in row-major order: set the quantity, wait the
// level delay, run the child loop, then run the level actions in declaration
// order, writing each result at the current outer index. Cancelling the
// context or calling Halt stops the run at the next step boundary; the data
// written so far is kept and the result is marked Aborted. Waits are
// cooperative and report ticks to the configured Observer.
package loop
