package tagging

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the tagging pipeline.
var (
	// ErrConfiguration is fatal and raised before any classification call.
	ErrConfiguration = errors.New("configuration error")
	// ErrClassification is recoverable: the (paper, tag) pair resolves to "".
	ErrClassification = errors.New("classification failed")
	// ErrOutputGeneration is fatal and raised after classification has completed.
	ErrOutputGeneration = errors.New("output generation failed")
	// ErrInvalidTagSpec marks a tag definition without a name or without subtags.
	ErrInvalidTagSpec = errors.New("invalid tag spec")
)

// ConfigurationError reports required dataset columns that are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrConfiguration) match a ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
