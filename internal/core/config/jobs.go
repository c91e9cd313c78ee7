package config

import (
	"github.com/gobwas/glob"
)

// JobFilter decides which job names are visible.
type JobFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewJobFilter compiles the [jobs] patterns. With no include patterns every job not
// excluded is visible.
func NewJobFilter(j Jobs) (*JobFilter, error) {
	f := &JobFilter{}
	for _, p := range j.Include {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		f.include = append(f.include, g)
	}
	for _, p := range j.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

func (f *JobFilter) Match(name string) bool {
	if f == nil {
		return true
	}
	for _, g := range f.exclude {
		if g.Match(name) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}
