package tagging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeService answers prompts from a script keyed by tag name.
type fakeService struct {
	answers map[string]string
	errs    map[string]error
	prompts []string
}

func (f *fakeService) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	for tag, err := range f.errs {
		if strings.Contains(prompt, "for tag '"+tag+"'") {
			return "", err
		}
	}
	for tag, answer := range f.answers {
		if strings.Contains(prompt, "for tag '"+tag+"'") {
			return answer, nil
		}
	}
	return NoneToken, nil
}

func (f *fakeService) calls() int { return len(f.prompts) }

func mustSpec(t *testing.T, tag string, subtags []string, def string) TagSpec {
	t.Helper()
	spec, err := NewTagSpec(tag, subtags, def)
	require.NoError(t, err)
	return spec
}

func strPtr(s string) *string { return &s }
