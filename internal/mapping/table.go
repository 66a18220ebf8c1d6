// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"fmt"
	"slices"
	"strings"

	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

// Table maps legacy labels onto a closed vocabulary. Every lookup resolves to
// a vocabulary member: unknown or missing labels resolve to the default.
type Table struct {
	name    string
	def     string
	members []string
	member  map[string]bool
	labels  map[string]string
	folded  map[string]string
	sep     string
}

// MustTable builds a Table and panics if the default or any label target is
// not a vocabulary member. Tables are package-level constants, so a bad one
// is a programming error.
func MustTable(name, def string, members []string, labels map[string]string) *Table {
	t, err := NewTable(name, def, members, labels)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable builds a Table, validating that the mapping is closed over members.
func NewTable(name, def string, members []string, labels map[string]string) (*Table, error) {
	t := &Table{
		name:    name,
		def:     def,
		members: slices.Clone(members),
		member:  make(map[string]bool, len(members)),
		labels:  make(map[string]string, len(labels)),
		folded:  make(map[string]string, len(labels)),
		sep:     "-",
	}
	for _, m := range members {
		t.member[m] = true
		if strings.Contains(m, "_") {
			t.sep = "_"
		}
	}
	if !t.member[def] {
		return nil, fmt.Errorf("mapping table %s: default %q is not a member", name, def)
	}
	for label, target := range labels {
		if !t.member[target] {
			return nil, fmt.Errorf("mapping table %s: label %q maps to unknown member %q", name, label, target)
		}
		t.labels[label] = target
		t.folded[strings.ToLower(strings.TrimSpace(label))] = target
	}
	return t, nil
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Default() string {
	return t.def
}

// Members returns the closed vocabulary in declaration order.
func (t *Table) Members() []string {
	return slices.Clone(t.members)
}

func (t *Table) Contains(v string) bool {
	return t.member[v]
}

// Lookup maps a decoded value. NULL resolves to the default.
func (t *Table) Lookup(v sqldump.Value) string {
	if v.IsNull() {
		return t.def
	}
	return t.LookupLabel(v.Text())
}

// LookupLabel resolves label by exact match, then case-insensitive match,
// then by normalizing it onto a canonical member ("Trade Show" -> trade-show).
func (t *Table) LookupLabel(label string) string {
	if target, ok := t.labels[label]; ok {
		return target
	}

	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" || key == "null" {
		return t.def
	}
	if target, ok := t.folded[key]; ok {
		return target
	}

	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), t.sep)
	if t.member[key] {
		return key
	}
	return t.def
}
