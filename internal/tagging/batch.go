package tagging

import (
	"context"
	"log/slog"
	"slices"
)

// Required input columns, matched exactly.
const (
	ColumnTitle    = "paper title"
	ColumnYear     = "publication year"
	ColumnJournal  = "journal"
	ColumnAbstract = "abstract"
)

// RequiredColumns lists the metadata columns every input dataset must carry.
var RequiredColumns = []string{ColumnTitle, ColumnYear, ColumnJournal, ColumnAbstract}

// ValidateColumns fails with a *ConfigurationError naming every required
// column absent from header.
func ValidateColumns(header []string) error {
	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// ProgressObserver is told the fraction of papers processed after each paper.
type ProgressObserver interface {
	OnProgress(fraction float64)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(fraction float64)

func (f ProgressFunc) OnProgress(fraction float64) { f(fraction) }

// BatchResult holds per-paper results in input order. Results[i] has one
// entry per TagSpec in configured order.
type BatchResult struct {
	Results      [][]ClassificationResult
	Headings     []string
	Failures     int
	UnknownYears int
}

// Values returns the resolved values of the tag at position col, one per paper.
func (r *BatchResult) Values(col int) []string {
	out := make([]string, len(r.Results))
	for i, row := range r.Results {
		out[i] = row[col].Value
	}
	return out
}

// BatchProcessor classifies papers one at a time, tag by tag.
type BatchProcessor struct {
	classifier *Classifier
	progress   ProgressObserver
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithProgress registers a progress observer.
func WithProgress(p ProgressObserver) BatchOption {
	return func(b *BatchProcessor) { b.progress = p }
}

func NewBatchProcessor(c *Classifier, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{classifier: c}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run classifies every paper against every spec, sequentially and in order,
// and builds one heading per paper. Classification failures degrade to empty
// values; only cancellation of ctx stops the batch early.
func (b *BatchProcessor) Run(ctx context.Context, papers []Paper, objective string, specs []TagSpec) (*BatchResult, error) {
	res := &BatchResult{
		Results:  make([][]ClassificationResult, 0, len(papers)),
		Headings: make([]string, 0, len(papers)),
	}
	total := len(papers)

	for i, p := range papers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logCtx := slog.With("row", i+1, "title", p.Title)

		row := make([]ClassificationResult, 0, len(specs))
		for _, spec := range specs {
			value, err := b.classifier.Classify(ctx, objective, spec, p.Abstract)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				res.Failures++
				logCtx.Warn("Classification failed, leaving tag empty.", "tag", spec.Tag(), "error", err)
			}
			row = append(row, ClassificationResult{Tag: spec.Tag(), Value: value})
		}

		if _, ok := YearToken(p.Year); !ok {
			res.UnknownYears++
			logCtx.Warn("Invalid year format.", "year", p.Year)
		}
		res.Results = append(res.Results, row)
		res.Headings = append(res.Headings, BuildHeading(p, row))

		if b.progress != nil {
			b.progress.OnProgress(float64(i+1) / float64(total))
		}
	}
	return res, nil
}
