// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package format writes result collections as tab-separated text files, one
// file per group of arrays sharing the same setpoint arrays, plus a JSON
// snapshot describing the collection.
package format

import (
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/data"
)

// Group is a set of measured arrays indexed by the same setpoint arrays.
type Group struct {
	Name      string
	SetArrays []*data.Array
	Data      []*data.Array
}

// Dims returns the dimensions of the group, i.e. of its innermost setpoint array.
func (g Group) Dims() []int {
	return g.SetArrays[len(g.SetArrays)-1].Dims()
}

// GroupArrays groups the arrays of set by their setpoint arrays, in order of
// first appearance. Setpoint arrays that index no measured array form a group
// of their own.
func GroupArrays(set *data.Set) []Group {
	var groups []Group
	index := make(map[string]int)
	used := make(map[*data.Array]bool)

	add := func(setArrays []*data.Array, arr *data.Array) {
		key := groupKey(setArrays)
		i, ok := index[key]
		if !ok {
			names := make([]string, len(setArrays))
			for j, s := range setArrays {
				names[j] = s.Name
				used[s] = true
			}
			groups = append(groups, Group{Name: strings.Join(names, "_"), SetArrays: setArrays})
			i = len(groups) - 1
			index[key] = i
		}
		if arr != nil {
			groups[i].Data = append(groups[i].Data, arr)
		}
	}

	for _, a := range set.Arrays() {
		if !a.IsSetpoint && len(a.SetArrays) > 0 {
			add(a.SetArrays, a)
		}
	}
	for _, a := range set.Arrays() {
		if a.IsSetpoint && !used[a] && len(a.SetArrays) > 0 {
			add(a.SetArrays, nil)
		}
	}
	return groups
}

func groupKey(arrays []*data.Array) string {
	names := make([]string, len(arrays))
	for i, a := range arrays {
		names[i] = a.Name
	}
	return strings.Join(names, "\x00")
}
