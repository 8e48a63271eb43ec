package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invscan/internal/analysis"
	"invscan/internal/config"
	"invscan/internal/logger"
	"invscan/internal/lookup"
	"invscan/internal/recognize"
	"invscan/internal/resolve"
	"invscan/pkg/models"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one scanned document into a structured record",
	Long: `Resolve a scanned receipt or e-invoice into one structured record.

Sources can be combined: decoded code payloads always take priority over
recognized text, and a payload confirmed by the verification service
produces a fully verified record. At least one of --image, --text-file or
--payload is required.

Required environment variables for --image:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID (Document AI only)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI processor ID (Document AI only)

Optional environment variables:
  LOOKUP_BASE_URL, LOOKUP_APP_ID, LOOKUP_API_KEY - verification service
  OPENAI_API_KEY - enables analysis of low-confidence records`,
	Example: `  # Resolve from a code payload only
  invscan resolve --payload "12A12345678||AB12||20250115||150000"

  # Resolve a photo with Google Cloud Vision
  invscan resolve --image receipt.jpg

  # Resolve a photo with Document AI and save the record
  invscan resolve --image invoice.png --engine documentai -o record.json

  # Resolve pre-recognized text without contacting the verification service
  invscan resolve --text-file receipt.txt --no-lookup`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

// ResolveOutput represents the JSON output structure for one resolution.
type ResolveOutput struct {
	// Record is the resolved financial record.
	Record models.ResolvedRecord `json:"record"`

	// Metadata contains processing information.
	Metadata ResolveMetadata `json:"metadata"`
}

// ResolveMetadata contains information about the resolution operation.
type ResolveMetadata struct {
	Sources            []string      `json:"sources"`
	Engine             string        `json:"engine,omitempty"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().String("image", "", "Document image to recognize (jpg, png)")
	resolveCmd.Flags().String("text-file", "", "File with already recognized document text")
	resolveCmd.Flags().StringArray("payload", nil, "Raw code payload (repeatable)")
	resolveCmd.Flags().String("engine", "", "Recognition engine: vision or documentai (default from OCR_ENGINE)")
	resolveCmd.Flags().Bool("no-lookup", false, "Skip the verification service even when configured")
	resolveCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	resolveCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runResolve(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("resolve-cmd")

	imagePath, _ := cmd.Flags().GetString("image")
	textPath, _ := cmd.Flags().GetString("text-file")
	payloads, _ := cmd.Flags().GetStringArray("payload")
	engine, _ := cmd.Flags().GetString("engine")
	noLookup, _ := cmd.Flags().GetBool("no-lookup")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if imagePath == "" && textPath == "" && len(payloads) == 0 {
		return fmt.Errorf("nothing to resolve: provide --image, --text-file or --payload")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if engine == "" {
		engine = cfg.OCREngine
	}

	ctx, cancel := createResolveContext(timeoutSecs, log)
	defer cancel()

	startTime := time.Now()

	input := resolve.Input{Payloads: payloads}
	var sources []string
	if len(payloads) > 0 {
		sources = append(sources, "payload")
	}

	if textPath != "" {
		text, err := os.ReadFile(textPath)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		// Pre-recognized text carries no engine score; trust it fully.
		input.Texts = append(input.Texts, models.RecognizedText{Text: string(text), Confidence: 1.0})
		sources = append(sources, "text-file")
	}

	if imagePath != "" {
		candidates, err := recognizeImageFile(ctx, imagePath, engine, log)
		if err != nil {
			return err
		}
		input.Texts = append(input.Texts, candidates...)
		sources = append(sources, "image")
	}

	resolver, err := buildResolver(cfg, noLookup, log)
	if err != nil {
		return err
	}

	record, err := resolver.Resolve(ctx, input)
	if err != nil {
		return handleResolveError(err, log)
	}

	processingDuration := time.Since(startTime)

	log.Info().
		Str("merchant", record.Merchant).
		Float64("total", models.MajorUnits(record.Total)).
		Float64("confidence", record.Confidence).
		Str("source", string(record.Provenance.Source)).
		Dur("duration", processingDuration).
		Msg("Resolution completed successfully")

	output := ResolveOutput{
		Record: *record,
		Metadata: ResolveMetadata{
			Sources:            sources,
			ProcessedAt:        time.Now(),
			ProcessingDuration: processingDuration,
		},
	}
	if imagePath != "" {
		output.Metadata.Engine = engine
	}

	return outputJSON(output, outputPath, log)
}

// recognizeImageFile runs the configured recognition engine over an image file.
func recognizeImageFile(ctx context.Context, imagePath, engine string, log zerolog.Logger) ([]models.RecognizedText, error) {
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}

	recognizer, closeFn, err := buildRecognizer(ctx, engine, log)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	imageFile, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer func() {
		if closeErr := imageFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close image file")
		}
	}()

	log.Info().
		Str("file", filepath.Base(imagePath)).
		Int64("size", fileInfo.Size()).
		Str("engine", engine).
		Msg("Recognizing document image")

	candidates, err := recognizer.RecognizeImage(ctx, imageFile)
	if err != nil {
		return nil, handleRecognitionError(err, log)
	}
	return candidates, nil
}

// buildRecognizer creates the requested recognition engine.
func buildRecognizer(ctx context.Context, engine string, log zerolog.Logger) (recognize.TextRecognizer, func(), error) {
	switch engine {
	case "vision":
		r, err := recognize.NewGoogleVisionRecognizer(ctx)
		if err != nil {
			return nil, nil, friendlyCredentialError(err, log)
		}
		return r, func() { r.Close() }, nil
	case "documentai":
		r, err := recognize.NewDocumentAIRecognizer(ctx)
		if err != nil {
			return nil, nil, friendlyCredentialError(err, log)
		}
		return r, func() { r.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown recognition engine: %s (must be 'vision' or 'documentai')", engine)
	}
}

// buildResolver wires the resolver with whichever optional stages the
// configuration enables.
func buildResolver(cfg *config.Config, noLookup bool, log zerolog.Logger) (*resolve.Resolver, error) {
	var lookupSvc lookup.Service
	if cfg.LookupEnabled() && !noLookup {
		client, err := lookup.NewClient(cfg.GetLookupConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create verification client: %w", err)
		}
		lookupSvc = client
		log.Debug().Msg("Verification service enabled")
	}

	var analyzer resolve.Analyzer
	if cfg.OpenAIAPIKey != "" {
		a, err := analysis.NewOpenAIAnalyzer()
		if err != nil {
			return nil, fmt.Errorf("failed to create analyzer: %w", err)
		}
		analyzer = a
		log.Debug().Msg("Text analysis enabled")
	}

	return resolve.NewResolverWithDeps(lookupSvc, analyzer), nil
}

// createResolveContext creates a context with timeout and signal handling.
func createResolveContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling resolution")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// friendlyCredentialError maps recognizer construction failures to messages
// with setup instructions.
func friendlyCredentialError(err error, log zerolog.Logger) error {
	if errors.Is(err, recognize.ErrMissingCredentials) {
		log.Error().Err(err).Msg("Google Cloud credentials not configured")
		return fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
			"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
			"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
			"Original error: %w", err)
	}
	if errors.Is(err, recognize.ErrInvalidConfiguration) {
		log.Error().Err(err).Msg("Recognizer configuration invalid")
		return fmt.Errorf("invalid recognizer configuration. Please check your .env file:\n"+
			"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
			"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
			"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
			"Original error: %w", err)
	}
	log.Error().Err(err).Msg("Failed to create recognizer")
	return fmt.Errorf("failed to create recognizer: %w", err)
}

// handleRecognitionError provides user-friendly messages for recognition failures.
func handleRecognitionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text recognition failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("recognition timed out. Try increasing --timeout or using a smaller image")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("recognition was canceled")
	case errors.Is(err, recognize.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB). Try compressing it")
	case errors.Is(err, recognize.ErrNoTextFound):
		return fmt.Errorf("no readable text found in the image. Try a sharper, better-lit capture")
	case errors.Is(err, recognize.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check your DOCUMENT_AI_PROCESSOR_ID environment variable")
	case errors.Is(err, recognize.ErrQuotaExceeded):
		return fmt.Errorf("recognition API quota exceeded. Check your project quotas in Google Cloud Console")
	default:
		return fmt.Errorf("text recognition failed: %w", err)
	}
}

// handleResolveError provides user-friendly messages for resolution failures.
func handleResolveError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Resolution failed")

	switch {
	case errors.Is(err, resolve.ErrUnrecognizedDocument):
		return fmt.Errorf("document not recognized: no decodable payload and no usable text. Please retry with a clearer capture")
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("resolution timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("resolution was canceled")
	default:
		return fmt.Errorf("resolution failed: %w", err)
	}
}

// outputJSON formats and writes a result as indented JSON.
func outputJSON(output interface{}, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal output to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Record written to file")
		return nil
	}

	if _, err := os.Stdout.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
