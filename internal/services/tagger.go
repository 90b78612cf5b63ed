package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/iramuteqtagger/internal/config"
	"github.com/Lllllllleong/iramuteqtagger/internal/gcp"
	"github.com/Lllllllleong/iramuteqtagger/internal/models"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Output object names, placed under a per-run prefix.
const (
	ExcelObjectName  = "classified_abstracts.xlsx"
	CorpusObjectName = "iramuteq_output.txt"

	excelContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	corpusContentType = "text/plain; charset=utf-8"

	// SidecarSuffix names the run config uploaded next to a workbook.
	SidecarSuffix = ".tags.yaml"
)

// TaggerConfig holds all configuration for the tagger service.
type TaggerConfig struct {
	ProjectID        string
	VertexAIRegion   string
	VertexAIModel    string
	OutputBucket     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	ErrorPause       time.Duration
}

// TaggerFunction holds the dependencies for the tagging logic.
type TaggerFunction struct {
	storageClient    *storage.Client
	runs             *gcp.RunStore
	vertexClient     *gcp.VertexClient
	executionsClient *executions.Client
	config           TaggerConfig
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// LoadTaggerConfig loads and validates all necessary environment variables for this service.
func LoadTaggerConfig() (*TaggerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	pause, err := gcp.GetDurationEnv("CLASSIFY_ERROR_PAUSE", tagging.DefaultErrorPause)
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFY_ERROR_PAUSE: %w", err)
	}

	return &TaggerConfig{
		ProjectID:        projectID,
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexAIModel:    gcp.GetEnv("VERTEX_AI_MODEL", gcp.DefaultModel),
		OutputBucket:     outputBucket,
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "tagging_runs"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		ErrorPause:       pause,
	}, nil
}

// NewTagger creates a new TaggerFunction instance.
func NewTagger(ctx context.Context) (*TaggerFunction, error) {
	cfg, err := LoadTaggerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	runs, err := gcp.NewRunStore(ctx, cfg.ProjectID, cfg.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexAIModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	f := &TaggerFunction{
		storageClient: storageClient,
		runs:          runs,
		vertexClient:  vertexClient,
		config:        *cfg,
	}
	if cfg.WorkflowID != "" {
		f.executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	slog.Info("Tagger initialized.", "model", cfg.VertexAIModel, "outputBucket", cfg.OutputBucket, "workflowId", cfg.WorkflowID)
	return f, nil
}

// Process tags the workbook named in the request with the request's objective and tags.
func (f *TaggerFunction) Process(ctx context.Context, req *models.TagRequest) (*models.TagResponse, error) {
	cfg := &config.RunConfig{Objective: req.Objective, Tags: req.Tags}
	return f.run(ctx, req.InputGCSUri, cfg)
}

// ProcessUpload tags an uploaded workbook using the run config stored next
// to it. Objects that are not .xlsx workbooks, and objects in the output
// bucket, are ignored.
func (f *TaggerFunction) ProcessUpload(ctx context.Context, e GCSEvent) (*models.TagResponse, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if e.Bucket == f.config.OutputBucket {
		logCtx.Info("Object is in the output bucket, skipping.")
		return nil, nil
	}
	sidecar, ok := SidecarConfigName(e.Name)
	if !ok {
		logCtx.Info("Object is not a workbook, skipping.")
		return nil, nil
	}

	data, err := gcp.ReadObject(ctx, f.storageClient, e.Bucket, sidecar)
	if err != nil {
		logCtx.Error("Failed to read run config", "config", sidecar, "error", err)
		return nil, fmt.Errorf("%w: run config %s: %v", tagging.ErrConfiguration, gcp.GCSURI(e.Bucket, sidecar), err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		logCtx.Error("Invalid run config", "config", sidecar, "error", err)
		return nil, err
	}
	return f.run(ctx, gcp.GCSURI(e.Bucket, e.Name), cfg)
}

func (f *TaggerFunction) run(ctx context.Context, inputURI string, cfg *config.RunConfig) (*models.TagResponse, error) {
	runID := uuid.NewString()
	logCtx := slog.With("runId", runID, "input", inputURI)
	logCtx.Info("Starting tagging run.", "tagCount", len(cfg.Tags))

	if err := f.runs.Create(ctx, runID, models.Run{
		InputGCSUri: inputURI,
		Objective:   cfg.Objective,
		Tags:        definitionNames(cfg.Tags),
		Status:      models.StatusValidating,
		CreatedAt:   time.Now(),
	}); err != nil {
		logCtx.Error("Failed to create run record", "error", err)
		return nil, err
	}

	bucket, object, err := gcp.ParseGCSURI(inputURI)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "invalid input URI", err)
	}
	data, err := gcp.ReadObject(ctx, f.storageClient, bucket, object)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "failed to download input workbook", err)
	}
	job, err := Prepare(bytes.NewReader(data), cfg)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "input validation failed", err)
	}

	if err := f.runs.Update(ctx, runID,
		firestore.Update{Path: "status", Value: models.StatusClassifying},
		firestore.Update{Path: "paperCount", Value: len(job.Papers)},
	); err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "failed to update status to CLASSIFYING", err)
	}
	logCtx.Info("Input validated.", "paperCount", len(job.Papers), "tags", job.TagNames())

	err = job.Classify(ctx, f.vertexClient, ClassifyOptions{
		ErrorPause: f.config.ErrorPause,
		Progress:   &runProgress{ctx: ctx, runs: f.runs, runID: runID, logCtx: logCtx},
	})
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "classification interrupted", err)
	}

	if err := f.runs.SetStatus(ctx, runID, models.StatusWriting, ""); err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "failed to update status to WRITING", err)
	}
	artifacts, err := job.Render()
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "failed to generate output files", err)
	}
	excelURI, corpusURI, err := f.uploadArtifacts(ctx, runID, artifacts)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, "failed to upload output files", fmt.Errorf("%w: %v", tagging.ErrOutputGeneration, err))
	}

	if err := f.runs.Update(ctx, runID,
		firestore.Update{Path: "status", Value: models.StatusCompleted},
		firestore.Update{Path: "failures", Value: artifacts.Failures},
		firestore.Update{Path: "unknownYears", Value: artifacts.UnknownYears},
		firestore.Update{Path: "excelGcsUri", Value: excelURI},
		firestore.Update{Path: "corpusGcsUri", Value: corpusURI},
	); err != nil {
		logCtx.Error("Failed to mark run as completed", "error", err)
	}

	if err := f.triggerWorkflow(ctx, logCtx, runID, excelURI, corpusURI); err != nil {
		// A failed hand-off does not fail the run.
		logCtx.Error("Failed to trigger downstream workflow", "error", err)
	}

	logCtx.Info("Tagging run complete.", "paperCount", artifacts.PaperCount, "failures", artifacts.Failures, "excelGcsUri", excelURI, "corpusGcsUri", corpusURI)
	return &models.TagResponse{
		Status:       "success",
		RunID:        runID,
		PaperCount:   artifacts.PaperCount,
		Failures:     artifacts.Failures,
		ExcelGCSUri:  excelURI,
		CorpusGCSUri: corpusURI,
	}, nil
}

// uploadArtifacts writes both artifacts under the run prefix of the output bucket.
func (f *TaggerFunction) uploadArtifacts(ctx context.Context, runID string, a *Artifacts) (string, string, error) {
	bucket := f.storageClient.Bucket(f.config.OutputBucket)
	excelObject := path.Join(runID, ExcelObjectName)
	corpusObject := path.Join(runID, CorpusObjectName)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return gcp.SaveToGCSAtomically(gctx, bucket, excelObject, excelContentType, a.Excel)
	})
	eg.Go(func() error {
		return gcp.SaveToGCSAtomically(gctx, bucket, corpusObject, corpusContentType, []byte(a.Corpus))
	})
	if err := eg.Wait(); err != nil {
		return "", "", err
	}
	return gcp.GCSURI(f.config.OutputBucket, excelObject), gcp.GCSURI(f.config.OutputBucket, corpusObject), nil
}

func (f *TaggerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, runID, excelURI, corpusURI string) error {
	if f.executionsClient == nil {
		return nil
	}
	payload, err := json.Marshal(models.WorkflowArgument{RunID: runID, ExcelGCSUri: excelURI, CorpusGCSUri: corpusURI})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	exec, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	logCtx.Info("Triggered downstream workflow.", "execution", exec.GetName())
	if err := f.runs.Update(ctx, runID, firestore.Update{Path: "workflowExecutionId", Value: exec.GetName()}); err != nil {
		logCtx.Warn("Failed to record workflow execution", "error", err)
	}
	return nil
}

// handleError logs, marks the run FAILED and returns an error carrying the message.
func (f *TaggerFunction) handleError(ctx context.Context, logCtx *slog.Logger, runID, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	if err := f.runs.SetStatus(ctx, runID, models.StatusFailed, fmt.Sprintf("%s: %v", message, originalErr)); err != nil {
		logCtx.Error("CRITICAL: Failed to update run status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *TaggerFunction) Close() error {
	var errs []error
	if f.executionsClient != nil {
		errs = append(errs, f.executionsClient.Close())
	}
	errs = append(errs, f.vertexClient.Close(), f.runs.Close(), f.storageClient.Close())
	return errors.Join(errs...)
}

// SidecarConfigName maps papers/survey.xlsx to papers/survey.tags.yaml.
// It reports false for objects that are not .xlsx workbooks.
func SidecarConfigName(object string) (string, bool) {
	ext := path.Ext(object)
	if !strings.EqualFold(ext, ".xlsx") {
		return "", false
	}
	return strings.TrimSuffix(object, ext) + SidecarSuffix, true
}

func definitionNames(defs []tagging.TagDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// runProgress mirrors batch progress into the run record.
type runProgress struct {
	ctx    context.Context
	runs   *gcp.RunStore
	runID  string
	logCtx *slog.Logger
}

func (p *runProgress) OnProgress(fraction float64) {
	if err := p.runs.Update(p.ctx, p.runID, firestore.Update{Path: "progress", Value: fraction}); err != nil {
		p.logCtx.Warn("Failed to record progress", "progress", fraction, "error", err)
	}
}
