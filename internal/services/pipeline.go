package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Lllllllleong/iramuteqtagger/internal/config"
	"github.com/Lllllllleong/iramuteqtagger/internal/dataset"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
)

// Job is a validated tagging run that has not been classified yet.
type Job struct {
	Objective string
	Specs     []tagging.TagSpec
	Table     *dataset.Table
	Papers    []tagging.Paper

	result *tagging.BatchResult
}

// Artifacts are the two outputs of a run.
type Artifacts struct {
	Excel        []byte
	Corpus       string
	PaperCount   int
	Failures     int
	UnknownYears int
}

// ClassifyOptions tune the classification phase.
type ClassifyOptions struct {
	ErrorPause time.Duration
	Progress   tagging.ProgressObserver
	Notifier   tagging.Notifier
}

// Prepare reads the workbook and validates configuration and required
// columns. Nothing is sent to the classification service.
func Prepare(src io.Reader, cfg *config.RunConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table, err := dataset.ReadXLSX(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read input workbook: %w", err)
	}
	papers, err := table.Papers()
	if err != nil {
		return nil, err
	}
	return &Job{
		Objective: cfg.Objective,
		Specs:     cfg.TagSpecs(),
		Table:     table,
		Papers:    papers,
	}, nil
}

// TagNames returns the configured tag names in order.
func (j *Job) TagNames() []string {
	names := make([]string, len(j.Specs))
	for i, s := range j.Specs {
		names[i] = s.Tag()
	}
	return names
}

// Classify runs the batch processor over the job's papers.
func (j *Job) Classify(ctx context.Context, svc tagging.ClassificationService, opts ClassifyOptions) error {
	copts := []tagging.ClassifierOption{tagging.WithErrorPause(opts.ErrorPause)}
	if opts.Notifier != nil {
		copts = append(copts, tagging.WithNotifier(opts.Notifier))
	}
	var bopts []tagging.BatchOption
	if opts.Progress != nil {
		bopts = append(bopts, tagging.WithProgress(opts.Progress))
	}

	bp := tagging.NewBatchProcessor(tagging.NewClassifier(svc, copts...), bopts...)
	res, err := bp.Run(ctx, j.Papers, j.Objective, j.Specs)
	if err != nil {
		return err
	}
	j.result = res
	return nil
}

// Render augments the table and produces both artifacts. The corpus carries
// each abstract cell as written, empty when the cell is. Any failure wraps
// tagging.ErrOutputGeneration.
func (j *Job) Render() (*Artifacts, error) {
	if j.result == nil {
		return nil, fmt.Errorf("%w: job has not been classified", tagging.ErrOutputGeneration)
	}

	corpus, err := dataset.FormatCorpus(j.result.Headings, j.Table.Column(tagging.ColumnAbstract))
	if err != nil {
		return nil, err
	}

	if err := j.Table.Augment(j.Specs, j.result); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dataset.WriteXLSX(&buf, j.Table); err != nil {
		return nil, fmt.Errorf("%w: %v", tagging.ErrOutputGeneration, err)
	}

	return &Artifacts{
		Excel:        buf.Bytes(),
		Corpus:       corpus,
		PaperCount:   len(j.Papers),
		Failures:     j.result.Failures,
		UnknownYears: j.result.UnknownYears,
	}, nil
}

// Execute prepares, classifies and renders in one call.
func Execute(ctx context.Context, src io.Reader, cfg *config.RunConfig, svc tagging.ClassificationService, opts ClassifyOptions) (*Artifacts, error) {
	job, err := Prepare(src, cfg)
	if err != nil {
		return nil, err
	}
	if err := job.Classify(ctx, svc, opts); err != nil {
		return nil, err
	}
	return job.Render()
}
