// Package config loads the run configuration: the study objective and the
// tag definitions to classify abstracts against.
package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
	"gopkg.in/yaml.v3"
)

const (
	// MaxObjectiveLength is the longest objective accepted, in characters.
	MaxObjectiveLength = 120
	// MaxTags is the most tag definitions a run may carry.
	MaxTags = 10
)

// RunConfig is the user-facing configuration of one tagging run.
type RunConfig struct {
	Objective string                  `yaml:"objective" json:"objective"`
	Tags      []tagging.TagDefinition `yaml:"tags" json:"tags"`
}

// Validate checks the objective and tag limits and that at least one tag
// definition is usable.
func (c *RunConfig) Validate() error {
	if c.Objective == "" {
		return fmt.Errorf("%w: objective is required", tagging.ErrConfiguration)
	}
	if n := utf8.RuneCountInString(c.Objective); n > MaxObjectiveLength {
		return fmt.Errorf("%w: objective is %d characters, at most %d allowed", tagging.ErrConfiguration, n, MaxObjectiveLength)
	}
	if len(c.Tags) > MaxTags {
		return fmt.Errorf("%w: %d tags configured, at most %d allowed", tagging.ErrConfiguration, len(c.Tags), MaxTags)
	}
	for _, d := range c.Tags {
		if _, err := tagging.NewTagSpec(d.Name, tagging.ParseSubtags(d.Subtags), d.Definition); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no usable tag (each needs a name and at least one subtag)", tagging.ErrConfiguration)
}

// TagSpecs returns the usable tag specs in configured order.
func (c *RunConfig) TagSpecs() []tagging.TagSpec {
	return tagging.BuildTagSpecs(c.Tags)
}

// Parse decodes a YAML run configuration and validates it.
func Parse(data []byte) (*RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and validates a YAML run configuration.
func LoadFromFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}
	return Parse(data)
}
