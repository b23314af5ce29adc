// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package location generates storage locations for result collections from a
// format string such as "{date}/{time}_{name}".
package location

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultFormat is used when no format string is given.
const DefaultFormat = "{date}/{time}"

const (
	defaultDateLayout = "2006-01-02"
	defaultTimeLayout = "15-04-05"
)

// Lister reports existing entries under a storage root. Patterns use the
// path.Match syntax and are relative to the root.
type Lister interface {
	List(pattern string) ([]string, error)
}

// Formatter turns a format string into a location. Known keys are {date},
// {time}, {counter} and {name}; any other key is looked up in the record, and
// keys missing from the record are left in place.
type Formatter struct {
	Format       string
	DateLayout   string
	TimeLayout   string
	CounterWidth int
	Record       map[string]string

	now func() time.Time
}

// New returns a Formatter for format with default layouts.
func New(format string, record map[string]string) *Formatter {
	if format == "" {
		format = DefaultFormat
	}
	return &Formatter{
		Format:       format,
		DateLayout:   defaultDateLayout,
		TimeLayout:   defaultTimeLayout,
		CounterWidth: 3,
		Record:       record,
		now:          time.Now,
	}
}

var keyPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Location generates a location that is not yet occupied in io. record entries
// override the formatter's own record. A "name" entry not referenced by the
// format is appended as "_<name>".
//
// If the format has a {counter} key, the counter starts one above the highest
// counter found among existing entries with the same prefix. Otherwise, when
// the location is already occupied, "_<n>" is appended starting at 2.
func (f *Formatter) Location(io Lister, record map[string]string) (string, error) {
	now := f.now()
	vals := map[string]string{
		"date": now.Format(f.DateLayout),
		"time": now.Format(f.TimeLayout),
	}
	for k, v := range f.Record {
		vals[k] = v
	}
	for k, v := range record {
		vals[k] = v
	}

	format := f.Format
	if name := vals["name"]; name != "" && !strings.Contains(format, "{name}") {
		format += "_{name}"
	}

	if strings.Contains(format, "{counter}") {
		head, _, _ := strings.Cut(format, "{counter}")
		headPrefix := substitute(head, vals)
		existing, err := io.List(escapeGlob(headPrefix) + "*")
		if err != nil {
			return "", fmt.Errorf("list existing locations: %w", err)
		}
		counter := 1
		for _, e := range existing {
			if n, ok := leadingInt(strings.TrimPrefix(e, headPrefix)); ok && n >= counter {
				counter = n + 1
			}
		}
		vals["counter"] = f.formatCounter(counter)
		return clean(substitute(format, vals)), nil
	}

	loc := clean(substitute(format, vals))
	for n := 2; ; n++ {
		occupied, err := io.List(escapeGlob(loc))
		if err != nil {
			return "", fmt.Errorf("list existing locations: %w", err)
		}
		if len(occupied) == 0 {
			return loc, nil
		}
		loc = clean(substitute(format, vals)) + "_" + strconv.Itoa(n)
	}
}

// escapeGlob quotes the Match metacharacters in s so it matches itself.
// Character classes are used instead of backslashes, which filepath.Match on
// Windows treats as separators.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (f *Formatter) formatCounter(n int) string {
	if f.CounterWidth <= 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%0*d", f.CounterWidth, n)
}

// substitute replaces {key} with vals[key] and leaves unknown keys untouched.
func substitute(format string, vals map[string]string) string {
	return keyPattern.ReplaceAllStringFunc(format, func(m string) string {
		if v, ok := vals[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func clean(loc string) string {
	return path.Clean(strings.ReplaceAll(loc, "\\", "/"))
}
