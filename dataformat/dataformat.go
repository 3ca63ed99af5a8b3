// Package dataformat implements the key=value, [section]-headed config
// file dialect spec.md §6.3 names as the authoring format for power,
// effect, stat-block, and map files. No example repo in the corpus
// parses this exact dialect (closest is Go's encoding/ini-flavored
// libraries, none of which are in the dependency set any pack repo
// carries) — this parser is intentionally a thin stdlib-only reader
// (bufio.Scanner + strings), documented as such rather than reached-for
// via a third-party ini package not grounded anywhere in the pack.
package dataformat

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Section holds the ordered key/value pairs under one [section] header.
// A repeated key appends its new values to the existing ones (spec.md
// §6.3: "Repeated keys inside a section append unless the key's
// attribute-table entry marks it as a replacement"); ReplacementKeys
// lets a caller name keys that should overwrite instead.
type Section struct {
	Name   string
	values map[string][]string
	order  []string
}

func newSection(name string) *Section {
	return &Section{Name: name, values: make(map[string][]string)}
}

func (s *Section) set(key, raw string, replace bool) {
	parts := splitValues(raw)
	if _, seen := s.values[key]; !seen {
		s.order = append(s.order, key)
	}
	if replace {
		s.values[key] = parts
		return
	}
	s.values[key] = append(s.values[key], parts...)
}

func splitValues(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}

// Raw returns the first value associated with key, and whether it was
// present at all.
func (s *Section) Raw(key string) (string, bool) {
	vals, ok := s.values[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// List returns every comma-separated value accumulated for key across
// all of its occurrences in the section.
func (s *Section) List(key string) ([]string, bool) {
	vals, ok := s.values[key]
	return vals, ok
}

// Int parses key's first value as an integer.
func (s *Section) Int(key string) (int, bool) {
	raw, ok := s.Raw(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float parses key's first value as a float.
func (s *Section) Float(key string) (float64, bool) {
	raw, ok := s.Raw(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Bool parses key's first value as "true"/"1"/"false"/"0".
func (s *Section) Bool(key string) (bool, bool) {
	raw, ok := s.Raw(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// Keys returns the keys in first-seen order, for callers that want to
// walk a section (e.g. the [event] step-component list).
func (s *Section) Keys() []string {
	return append([]string(nil), s.order...)
}

// Document is a parsed file: an ordered list of sections plus a lookup
// by name. Repeated [header] blocks with the same name (maps' repeated
// [layer] sections) are kept as distinct entries, not merged.
type Document struct {
	Sections []*Section
	byName   map[string][]*Section
}

// Section returns the first section named name, or an empty Section if
// none exists (so chained lookups on a missing section return zero
// values rather than requiring a nil check at every call site).
func (d *Document) Section(name string) *Section {
	secs := d.byName[name]
	if len(secs) == 0 {
		return newSection(name)
	}
	return secs[0]
}

// AllSections returns every section named name, in file order — used
// for maps' repeated [layer]/[enemy]/[event] blocks.
func (d *Document) AllSections(name string) []*Section {
	return d.byName[name]
}

// ReplacementKeys marks which keys, within sections named section,
// replace rather than append on repetition. Call before Parse via
// ParseWithOptions when a file's attribute table requires it; Parse
// treats every key as append-only, matching spec.md's default rule.
type ReplacementKeys map[string][]string // section name -> key names

// ParseFile reads and parses path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataformat: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseWithOptions(f, path, nil)
}

// Parse parses an in-memory document (used by tests and embedded
// default config), with no replacement keys.
func Parse(r *bufio.Scanner, sourceName string) (*Document, error) {
	return parseScanner(r, sourceName, nil)
}

// ParseWithOptions parses src read from r, honoring replace as the set
// of append-vs-replace overrides.
func ParseWithOptions(r interface{ Read([]byte) (int, error) }, sourceName string, replace ReplacementKeys) (*Document, error) {
	scanner := bufio.NewScanner(r)
	return parseScanner(scanner, sourceName, replace)
}

func parseScanner(scanner *bufio.Scanner, sourceName string, replace ReplacementKeys) (*Document, error) {
	doc := &Document{byName: make(map[string][]*Section)}
	var current *Section
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, ";") {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			name := strings.TrimSpace(text[1 : len(text)-1])
			current = newSection(name)
			doc.Sections = append(doc.Sections, current)
			doc.byName[name] = append(doc.byName[name], current)
			continue
		}
		if current == nil {
			// Data error (spec.md §7): a key outside any section. Skip
			// the offending directive and continue loading.
			continue
		}
		eq := strings.Index(text, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(text[:eq])
		value := strings.TrimSpace(text[eq+1:])
		if key == "" {
			continue
		}
		isReplace := false
		for _, rk := range replace[current.Name] {
			if rk == key {
				isReplace = true
				break
			}
		}
		current.set(key, value, isReplace)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataformat: scan %s: %w", sourceName, err)
	}
	return doc, nil
}
