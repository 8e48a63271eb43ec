package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invscan/internal/config"
	"invscan/internal/logger"
	"invscan/internal/resolve"
	"invscan/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Resolve all document images in a folder",
	Long: `Resolve every document image in a folder into structured records.

Images (jpg, jpeg, png) are recognized and resolved in parallel with a
worker pool. Records are collected in the original file order and written
as one JSON array.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 8)`,
	Example: `  # Resolve a folder of receipt photos
  invscan batch ./receipts -o records.json

  # Use Document AI and skip the verification service
  invscan batch ./receipts --engine documentai --no-lookup

  # Show each record as it completes
  invscan batch ./receipts --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchRecord represents the outcome of resolving a single file.
type BatchRecord struct {
	Filename string                 `json:"filename"`
	Record   *models.ResolvedRecord `json:"record,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// batchJob represents one file resolution job.
type batchJob struct {
	filePath string
	index    int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("engine", "", "Recognition engine: vision or documentai (default from OCR_ENGINE)")
	batchCmd.Flags().Bool("no-lookup", false, "Skip the verification service even when configured")
	batchCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
	batchCmd.Flags().Int("timeout", 1800, "Total processing timeout in seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	engine, _ := cmd.Flags().GetString("engine")
	noLookup, _ := cmd.Flags().GetBool("no-lookup")
	outputPath, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if engine == "" {
		engine = cfg.OCREngine
	}

	imageFiles, err := findImageFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find image files: %w", err)
	}
	if len(imageFiles) == 0 {
		fmt.Println("No image files found in folder.")
		return nil
	}

	ctx, cancel := createResolveContext(timeoutSecs, log)
	defer cancel()

	resolver, err := buildResolver(cfg, noLookup, log)
	if err != nil {
		return err
	}

	numWorkers := getNumWorkers()

	log.Info().
		Str("folder", folderPath).
		Str("engine", engine).
		Int("files", len(imageFiles)).
		Int("workers", numWorkers).
		Msg("Starting batch resolution")

	fmt.Printf("Resolving %d images with %d parallel workers...\n\n", len(imageFiles), numWorkers)

	results := resolveInParallel(ctx, imageFiles, engine, resolver, numWorkers, log, verbose)

	var resolved, review, failed int
	for _, result := range results {
		switch {
		case result.Error != "":
			failed++
		case result.Record.NeedsReview:
			review++
		default:
			resolved++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Resolved: %d\n", resolved)
	if review > 0 {
		fmt.Printf("Needs review: %d\n", review)
	}
	if failed > 0 {
		fmt.Printf("Failed: %d\n", failed)
	}
	fmt.Println(strings.Repeat("=", 50))

	log.Info().
		Int("total", len(imageFiles)).
		Int("resolved", resolved).
		Int("needs_review", review).
		Int("failed", failed).
		Msg("Batch resolution completed")

	return outputJSON(results, outputPath, log)
}

// findImageFiles finds all supported image files in the specified folder.
func findImageFiles(folderPath string) ([]string, error) {
	var imageFiles []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".jpg", ".jpeg", ".png":
			imageFiles = append(imageFiles, path)
		}
		return nil
	})

	return imageFiles, err
}

// resolveSingleFile recognizes and resolves one image file.
func resolveSingleFile(ctx context.Context, filePath, engine string, resolver *resolve.Resolver, log zerolog.Logger) BatchRecord {
	result := BatchRecord{Filename: filepath.Base(filePath)}

	candidates, err := recognizeImageFile(ctx, filePath, engine, log)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	record, err := resolver.Resolve(ctx, resolve.Input{Texts: candidates})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Record = record
	return result
}

// getNumWorkers returns the number of workers from environment or default.
func getNumWorkers() int {
	if workersStr := os.Getenv("BATCH_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			return workers
		}
	}
	return 8
}

// resolveInParallel resolves files using a worker pool pattern, collecting
// results in the original file order.
func resolveInParallel(ctx context.Context, imageFiles []string, engine string, resolver *resolve.Resolver, numWorkers int, log zerolog.Logger, verbose bool) []BatchRecord {
	jobs := make(chan batchJob, len(imageFiles))
	results := make([]BatchRecord, len(imageFiles))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.filePath).
					Int("index", job.index+1).
					Msg("Worker resolving image")

				result := resolveSingleFile(ctx, job.filePath, engine, resolver, log)
				results[job.index] = result

				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s", processedCount, len(imageFiles), result.Filename, batchStatus(result))
				if result.Error != "" {
					fmt.Printf(" (%s)", result.Error)
				} else if verbose {
					fmt.Printf(" (%s, %.2f, confidence %.2f)",
						result.Record.Merchant, models.MajorUnits(result.Record.Total), result.Record.Confidence)
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	for i, imageFile := range imageFiles {
		jobs <- batchJob{filePath: imageFile, index: i}
	}
	close(jobs)

	wg.Wait()

	return results
}

// batchStatus renders a short status marker for one result.
func batchStatus(result BatchRecord) string {
	switch {
	case result.Error != "":
		return "failed"
	case result.Record.NeedsReview:
		return "needs review"
	default:
		return "resolved"
	}
}
