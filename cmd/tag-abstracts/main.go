package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/iramuteqtagger/internal/models"
	"github.com/Lllllllleong/iramuteqtagger/internal/services"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
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

	functions.HTTP("HandleTagAbstracts", handleTagAbstracts)
}

// main is required by the Go Functions Framework.
func main() {}

// handleTagAbstracts is the HTTP handler for the tagging service.
func handleTagAbstracts(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		taggerInstance, initErr = services.NewTagger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Tagger initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := taggerInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		if errors.Is(err, tagging.ErrConfiguration) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error(
			"Failed to write response",
			"error", err,
			"runId", res.RunID,
			"inputGcsUri", req.InputGCSUri,
		)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
