package gcp

import (
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://papers-in/2024/survey.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "papers-in", bucket)
	assert.Equal(t, "2024/survey.xlsx", object)
	assert.Equal(t, "gs://papers-in/2024/survey.xlsx", GCSURI(bucket, object))

	for _, bad := range []string{"", "papers-in/survey.xlsx", "gs://", "gs://papers-in", "gs://papers-in/", "gs:///survey.xlsx"} {
		_, _, err := ParseGCSURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetDurationEnv(t *testing.T) {
	d, err := GetDurationEnv("TAGGER_TEST_UNSET_PAUSE", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("TAGGER_TEST_PAUSE", "250ms")
	d, err = GetDurationEnv("TAGGER_TEST_PAUSE", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	t.Setenv("TAGGER_TEST_PAUSE", "soon")
	_, err = GetDurationEnv("TAGGER_TEST_PAUSE", time.Second)
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TAGGER_TEST_BUCKET", "out")
	assert.Equal(t, "out", GetEnv("TAGGER_TEST_BUCKET", "fallback"))
	assert.Equal(t, "fallback", GetEnv("TAGGER_TEST_UNSET_BUCKET", "fallback"))
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" Quanti"), genai.Text("tative\n")}},
		}},
	}
	got, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, " Quantitative\n", got)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errEmptyResponse)
	_, err = extractText(nil)
	assert.ErrorIs(t, err, errEmptyResponse)
}
