// Package tagging implements the abstract tagging pipeline: tag specs, the
// per-abstract classification protocol, Iramuteq heading assembly and the
// sequential batch processor that ties them together.
package tagging

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// TagDefinition is a tag as entered by the user, before normalization.
// Subtags is the raw comma-separated list.
type TagDefinition struct {
	Name       string `yaml:"name" json:"name"`
	Subtags    string `yaml:"subtags" json:"subtags"`
	Definition string `yaml:"definition" json:"definition"`
}

// TagSpec is one classification dimension. Name and subtags are lowercase.
type TagSpec struct {
	tag        string
	subtags    []string
	definition string
}

// NewTagSpec normalizes the tag and its subtags to lowercase and rejects specs
// that end up without a name or without a single subtag.
func NewTagSpec(tag string, subtags []string, definition string) (TagSpec, error) {
	name := strings.ToLower(strings.TrimSpace(tag))
	if name == "" {
		return TagSpec{}, fmt.Errorf("%w: tag name is empty", ErrInvalidTagSpec)
	}

	values := make([]string, 0, len(subtags))
	for _, s := range subtags {
		if v := strings.ToLower(strings.TrimSpace(s)); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return TagSpec{}, fmt.Errorf("%w: tag %q has no subtags", ErrInvalidTagSpec, name)
	}

	return TagSpec{tag: name, subtags: values, definition: definition}, nil
}

// ParseSubtags splits a comma-separated list into lowercase, non-empty values.
// Duplicates are kept in the order given.
func ParseSubtags(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// BuildTagSpecs converts user definitions into specs, keeping their order.
// Unusable definitions are dropped with a warning.
func BuildTagSpecs(defs []TagDefinition) []TagSpec {
	specs := make([]TagSpec, 0, len(defs))
	for i, d := range defs {
		spec, err := NewTagSpec(d.Name, ParseSubtags(d.Subtags), d.Definition)
		if err != nil {
			slog.Warn("Discarding tag definition.", "position", i+1, "name", d.Name, "error", err)
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// Tag returns the lowercase tag name.
func (t TagSpec) Tag() string { return t.tag }

// Definition returns the free-text definition, possibly empty.
func (t TagSpec) Definition() string { return t.definition }

// Subtags returns a copy of the allowed values in configured order.
func (t TagSpec) Subtags() []string { return slices.Clone(t.subtags) }

// Allows reports whether value is one of the allowed subtags.
func (t TagSpec) Allows(value string) bool {
	return slices.Contains(t.subtags, value)
}
