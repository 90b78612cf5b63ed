// Package main provides a local command line for tagging a paper workbook
// with the same pipeline the Cloud Functions run.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Lllllllleong/iramuteqtagger/internal/config"
	"github.com/Lllllllleong/iramuteqtagger/internal/gcp"
	"github.com/Lllllllleong/iramuteqtagger/internal/services"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "iramuteq-tagger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runFlags struct {
	input      string
	configPath string
	outDir     string
	project    string
	region     string
	model      string
	errorPause time.Duration
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Tag paper abstracts for Iramuteq",
		Long: `iramuteq-tagger classifies each abstract of a paper workbook against
user-defined tags with a Vertex AI model and writes:

- classified_abstracts.xlsx: the input rows with one column per tag and a final_heading column
- iramuteq_output.txt: the Iramuteq corpus, one heading and abstract per paper

The workbook needs the columns: paper title, publication year, journal, abstract.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCmd(), validateCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify a workbook and write both output files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input workbook (.xlsx)")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Run config file (YAML)")
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", ".", "Directory for the output files")
	cmd.Flags().StringVar(&f.project, "project", gcp.GetEnv("PROJECT_ID", ""), "Google Cloud project ID")
	cmd.Flags().StringVar(&f.region, "region", gcp.GetEnv("VERTEX_AI_REGION", "us-central1"), "Vertex AI region")
	cmd.Flags().StringVar(&f.model, "model", gcp.GetEnv("VERTEX_AI_MODEL", gcp.DefaultModel), "Vertex AI model")
	cmd.Flags().DurationVar(&f.errorPause, "error-pause", tagging.DefaultErrorPause, "Pause after a failed classification call")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func validateCmd() *cobra.Command {
	var input, configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the run config and workbook columns without classifying",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := prepare(input, configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d papers, tags: %s\n", len(job.Papers), strings.Join(job.TagNames(), ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input workbook (.xlsx)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Run config file (YAML)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, f runFlags) error {
	job, err := prepare(f.input, f.configPath)
	if err != nil {
		return err
	}
	if f.project == "" {
		return fmt.Errorf("--project or PROJECT_ID is required")
	}

	vertexClient, err := gcp.NewVertexClient(ctx, f.project, f.region, f.model)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	defer vertexClient.Close()

	total := len(job.Papers)
	slog.Info("Classifying abstracts.", "papers", total, "tags", job.TagNames(), "model", f.model)
	err = job.Classify(ctx, vertexClient, services.ClassifyOptions{
		ErrorPause: f.errorPause,
		Progress: tagging.ProgressFunc(func(fraction float64) {
			done := int(fraction*float64(total) + 0.5)
			fmt.Fprintf(os.Stderr, "\rProcessing abstract %d of %d...", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}),
		Notifier: func(tag string, err error) {
			fmt.Fprintf(os.Stderr, "\nClassification error for tag '%s': %v\n", tag, err)
		},
	})
	if err != nil {
		return fmt.Errorf("classification interrupted: %w", err)
	}

	artifacts, err := job.Render()
	if err != nil {
		return fmt.Errorf("error during file generation: %w", err)
	}
	if err := writeArtifacts(f.outDir, artifacts); err != nil {
		return fmt.Errorf("error during file generation: %w", err)
	}

	slog.Info("Processing complete.",
		"papers", artifacts.PaperCount,
		"failures", artifacts.Failures,
		"unknownYears", artifacts.UnknownYears,
		"outDir", f.outDir,
	)
	return nil
}

func prepare(input, configPath string) (*services.Job, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input workbook: %w", err)
	}
	defer in.Close()
	return services.Prepare(in, cfg)
}

func writeArtifacts(outDir string, a *services.Artifacts) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, services.ExcelObjectName), a.Excel, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, services.CorpusObjectName), []byte(a.Corpus), 0o644); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	return nil
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}
