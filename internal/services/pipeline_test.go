package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Lllllllleong/iramuteqtagger/internal/config"
	"github.com/Lllllllleong/iramuteqtagger/internal/dataset"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// scriptedService returns answers in order and counts calls.
type scriptedService struct {
	answers []string
	err     error
	calls   int
}

func (s *scriptedService) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.answers) == 0 {
		return tagging.NoneToken, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func methodConfig() *config.RunConfig {
	return &config.RunConfig{
		Objective: "Study X effects",
		Tags: []tagging.TagDefinition{
			{Name: "method", Subtags: "qualitative,quantitative", Definition: "Research design"},
		},
	}
}

func TestExecute_EndToEnd(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal", "abstract"},
		[]interface{}{"X paper", 2020, "Journal of Biology", "Study of X"},
	)
	svc := &scriptedService{answers: []string{"quantitative"}}

	art, err := Execute(context.Background(), src, methodConfig(), svc, ClassifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, 1, art.PaperCount)
	assert.Equal(t, "****\n*py_2020 *jo_job *method_quantitative\nStudy of X\n****", art.Corpus)

	table, err := dataset.ReadXLSX(bytes.NewReader(art.Excel))
	require.NoError(t, err)
	assert.Equal(t, []string{"paper title", "publication year", "journal", "abstract", "method", dataset.HeadingColumn}, table.Header)
	assert.Equal(t, []string{"quantitative"}, table.Column("method"))
	assert.Equal(t, []string{"*py_2020 *jo_job *method_quantitative"}, table.Column(dataset.HeadingColumn))
}

func TestExecute_RowAndColumnCounts(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal", "abstract", "doi"},
		[]interface{}{"a", 2001, "Health Policy", "first", "d1"},
		[]interface{}{"b", "unknown", nil, "second", "d2"},
		[]interface{}{"c", 2003, "Nature", nil, "d3"},
	)
	cfg := &config.RunConfig{
		Objective: "Health policy research",
		Tags: []tagging.TagDefinition{
			{Name: "method", Subtags: "qualitative,quantitative"},
			{Name: "scope", Subtags: "local,global"},
		},
	}
	svc := &scriptedService{answers: []string{"qualitative", "NONE", "Quantitative", "global"}}

	var progress []float64
	art, err := Execute(context.Background(), src, cfg, svc, ClassifyOptions{
		Progress: tagging.ProgressFunc(func(f float64) { progress = append(progress, f) }),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, svc.calls, "third paper has no abstract")
	assert.Len(t, progress, 3)
	assert.Equal(t, 1, art.UnknownYears)

	table, err := dataset.ReadXLSX(bytes.NewReader(art.Excel))
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Len(t, table.Header, 5+2+1)
	assert.Equal(t, []string{"d1", "d2", "d3"}, table.Column("doi"))
	assert.Equal(t, []string{"qualitative", "quantitative", ""}, table.Column("method"))
	assert.Equal(t, []string{"", "global", ""}, table.Column("scope"))

	assert.Equal(t, 4, strings.Count(art.Corpus, dataset.CorpusDelimiter))
	assert.Equal(t, "****\n"+
		"*py_2001 *jo_hp *method_qualitative\nfirst\n****\n"+
		"*py_unknown *jo_unknown *method_quantitative *scope_global\nsecond\n****\n"+
		"*py_2003 *jo_n\n\n****", art.Corpus)
}

func TestExecute_MissingColumnMakesNoCalls(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal"},
		[]interface{}{"X paper", 2020, "Journal of Biology"},
	)
	svc := &scriptedService{}

	_, err := Execute(context.Background(), src, methodConfig(), svc, ClassifyOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, tagging.ErrConfiguration)

	var cfgErr *tagging.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"abstract"}, cfgErr.Missing)
	assert.Zero(t, svc.calls)
}

func TestExecute_InvalidConfigMakesNoCalls(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal", "abstract"},
		[]interface{}{"X paper", 2020, "Journal of Biology", "Study of X"},
	)
	svc := &scriptedService{}
	cfg := &config.RunConfig{Objective: "obj", Tags: []tagging.TagDefinition{{Name: "method"}}}

	_, err := Execute(context.Background(), src, cfg, svc, ClassifyOptions{})
	assert.ErrorIs(t, err, tagging.ErrConfiguration)
	assert.Zero(t, svc.calls)
}

func TestExecute_ServiceDownStillProducesOutputs(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal", "abstract"},
		[]interface{}{"X paper", 2020, "Journal of Biology", "Study of X"},
		[]interface{}{"Y paper", 2021, "Journal of Biology", "Study of Y"},
	)
	svc := &scriptedService{err: errors.New("401 unauthenticated")}
	var notified int

	art, err := Execute(context.Background(), src, methodConfig(), svc, ClassifyOptions{
		Notifier: func(string, error) { notified++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, svc.calls)
	assert.Equal(t, 2, notified)
	assert.Equal(t, 2, art.Failures)
	assert.Contains(t, art.Corpus, "*py_2020 *jo_job\nStudy of X")
}

func TestExecute_NonTextJournalAndAbstract(t *testing.T) {
	src := workbook(t,
		[]interface{}{"paper title", "publication year", "journal", "abstract"},
		[]interface{}{"X", 2020, 42, 12345},
	)
	svc := &scriptedService{answers: []string{"quantitative"}}

	art, err := Execute(context.Background(), src, methodConfig(), svc, ClassifyOptions{})
	require.NoError(t, err)
	assert.Zero(t, svc.calls)
	assert.Equal(t, "****\n*py_2020 *jo_unknown\n12345\n****", art.Corpus)
}

func TestRender_BeforeClassify(t *testing.T) {
	_, err := (&Job{}).Render()
	assert.ErrorIs(t, err, tagging.ErrOutputGeneration)
}

func TestSidecarConfigName(t *testing.T) {
	name, ok := SidecarConfigName("uploads/survey.xlsx")
	assert.True(t, ok)
	assert.Equal(t, "uploads/survey.tags.yaml", name)

	name, ok = SidecarConfigName("survey.XLSX")
	assert.True(t, ok)
	assert.Equal(t, "survey.tags.yaml", name)

	for _, obj := range []string{"uploads/survey.tags.yaml", "notes.txt", "archive"} {
		_, ok := SidecarConfigName(obj)
		assert.False(t, ok, obj)
	}
}
