package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/iramuteqtagger/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	taggerInstance *services.TaggerFunction
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("TagOnUpload", tagOnUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// tagOnUpload is the Cloud Function entry point for workbook uploads.
func tagOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		taggerInstance, initErr = services.NewTagger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context within ProcessUpload; returning one marks the invocation as failed.
	res, err := taggerInstance.ProcessUpload(ctx, gcsEvent)
	if err != nil {
		return err
	}
	if res != nil {
		slog.Info("Upload tagged.", "eventId", e.ID(), "runId", res.RunID, "excelGcsUri", res.ExcelGCSUri, "corpusGcsUri", res.CorpusGCSUri)
	}
	return nil
}
