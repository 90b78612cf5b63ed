package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagSpec_Normalizes(t *testing.T) {
	spec, err := NewTagSpec("  Method ", []string{"Qualitative", " QUANTITATIVE ", ""}, "Research design")
	require.NoError(t, err)

	assert.Equal(t, "method", spec.Tag())
	assert.Equal(t, []string{"qualitative", "quantitative"}, spec.Subtags())
	assert.Equal(t, "Research design", spec.Definition())
	assert.True(t, spec.Allows("quantitative"))
	assert.False(t, spec.Allows("Quantitative"))
}

func TestNewTagSpec_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		subtags []string
	}{
		{name: "empty tag", tag: "  ", subtags: []string{"a"}},
		{name: "no subtags", tag: "method", subtags: nil},
		{name: "blank subtags", tag: "method", subtags: []string{" ", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTagSpec(tt.tag, tt.subtags, "")
			assert.ErrorIs(t, err, ErrInvalidTagSpec)
		})
	}
}

func TestTagSpec_SubtagsIsCopy(t *testing.T) {
	spec := mustSpec(t, "method", []string{"a", "b"}, "")
	got := spec.Subtags()
	got[0] = "zzz"
	assert.Equal(t, []string{"a", "b"}, spec.Subtags())
}

func TestParseSubtags(t *testing.T) {
	assert.Equal(t, []string{"qualitative", "mixed", "qualitative"}, ParseSubtags(" Qualitative, ,MIXED,qualitative,"))
	assert.Empty(t, ParseSubtags(""))
	assert.Empty(t, ParseSubtags(" , ,"))
}

func TestBuildTagSpecs_DropsInvalidKeepsOrder(t *testing.T) {
	specs := BuildTagSpecs([]TagDefinition{
		{Name: "Topic", Subtags: "health, education"},
		{Name: "", Subtags: "a, b"},
		{Name: "empty", Subtags: " , "},
		{Name: "Method", Subtags: "qualitative,quantitative", Definition: "design"},
	})

	require.Len(t, specs, 2)
	assert.Equal(t, "topic", specs[0].Tag())
	assert.Equal(t, "method", specs[1].Tag())
	assert.Equal(t, "design", specs[1].Definition())
}
