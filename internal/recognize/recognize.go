// Package recognize turns document photos and scans into ordered text
// candidates for the resolution pipeline.
//
// Two engines are supported, both behind the same interface: Google Cloud
// Vision for plain text detection and Google Document AI for layout-aware
// recognition of dense documents. Candidates carry per-region confidence so
// downstream stages can filter out smudges and stamps.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Document AI additionally requires GOOGLE_PROJECT_ID, GOOGLE_LOCATION and
// GOOGLE_PROCESSOR_ID.
package recognize

import (
	"context"
	"fmt"
	"io"

	"invscan/pkg/models"
)

// MaxImageSizeBytes is the maximum image size for synchronous processing (20MB).
const MaxImageSizeBytes = 20 * 1024 * 1024

// TextRecognizer extracts text candidates from a document image.
type TextRecognizer interface {
	// RecognizeImage returns text candidates in reading order, each with a
	// confidence score in [0, 1].
	RecognizeImage(ctx context.Context, image io.Reader) ([]models.RecognizedText, error)
}

// readImage reads and validates image bytes for synchronous processing.
func readImage(op string, image io.Reader) ([]byte, error) {
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, WrapRecognitionError(op, err, "failed to read image data")
	}
	if len(data) == 0 {
		return nil, WrapRecognitionError(op, ErrEmptyImage, "")
	}
	if len(data) > MaxImageSizeBytes {
		return nil, WrapRecognitionError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}
	return data, nil
}
