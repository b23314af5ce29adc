// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hclplan loads sweep plans written in HCL into the format-agnostic
// config.Model.
//
// A plan file holds at most one `run` block and exactly one top-level `loop`
// block (across all files passed to Load). The loop label is a station
// reference to the swept quantity:
//
//	run {
//	  label    = "cooldown"
//	  location = "{date}/{time}_{counter}_{name}"
//	}
//
//	loop "dci.A.temperature" {
//	  values = range(0, 20, 1)
//	  delay  = 0.01
//
//	  loop "dci.B.temperature" {
//	    values = linspace(0, 10, 11)
//	    each   = ["dci.channels.temperature"]
//	  }
//
//	  each = [measure("dci.C.temperature"), wait("100ms"), call("dci.channels.turn_on")]
//	}
//
// `values` must evaluate to a list of numbers. `range(start, stop, step)` is
// inclusive of both ends and `linspace(start, stop, n)` yields n points; the
// cty standard `concat`, `reverse`, `min`, `max` and `abs` functions are also
// available. Delays are seconds (number) or Go duration strings. A bare string
// in `each` is shorthand for measure(...).
package hclplan
