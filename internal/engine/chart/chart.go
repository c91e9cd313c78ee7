// Package chart holds the line/bar model handed to the charting layer.
package chart

import (
	"fmt"
	"sort"
)

type Series struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
	Color  string `json:"color,omitempty"`
}

// Model is a set of named series aligned positionally with XLabels.
type Model struct {
	XLabels []string `json:"xLabels"`
	Series  []Series `json:"series"`
}

func Empty() Model {
	return Model{XLabels: []string{}, Series: []Series{}}
}

func (m Model) IsEmpty() bool {
	return len(m.XLabels) == 0 && len(m.Series) == 0
}

// Validate checks that every series has exactly one value per label.
func (m Model) Validate() error {
	seen := make(map[string]bool, len(m.Series))
	for _, s := range m.Series {
		if len(s.Values) != len(m.XLabels) {
			return fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(m.XLabels))
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate series %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// SeriesByName returns the named series.
func (m Model) SeriesByName(name string) (Series, bool) {
	for _, s := range m.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// Builder assembles a Model column by column. Series keep their declaration order and
// are padded with zero for columns in which they have no value.
type Builder struct {
	labels []string
	order  []string
	values map[string][]int
	colors map[string]string
}

func NewBuilder() *Builder {
	return &Builder{
		values: make(map[string][]int),
		colors: make(map[string]string),
	}
}

// Declare adds a series if it does not exist yet.
func (b *Builder) Declare(name, color string) {
	if _, ok := b.values[name]; ok {
		return
	}
	b.order = append(b.order, name)
	b.values[name] = make([]int, len(b.labels))
	if color != "" {
		b.colors[name] = color
	}
}

// AddColumn appends one x position. Names not declared before are declared in sorted
// order so the result stays deterministic.
func (b *Builder) AddColumn(label string, values map[string]int) {
	undeclared := make([]string, 0)
	for name := range values {
		if _, ok := b.values[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	sort.Strings(undeclared)
	for _, name := range undeclared {
		b.Declare(name, "")
	}

	b.labels = append(b.labels, label)
	for _, name := range b.order {
		b.values[name] = append(b.values[name], values[name])
	}
}

func (b *Builder) Build() Model {
	if len(b.labels) == 0 {
		return Empty()
	}
	m := Model{
		XLabels: append([]string{}, b.labels...),
		Series:  make([]Series, 0, len(b.order)),
	}
	for _, name := range b.order {
		m.Series = append(m.Series, Series{
			Name:   name,
			Values: append([]int{}, b.values[name]...),
			Color:  b.colors[name],
		})
	}
	return m
}
