package recognize

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"invscan/pkg/models"
)

// GoogleVisionRecognizer implements TextRecognizer using Google Cloud Vision
// document text detection. Each detected block becomes one candidate with
// the block's confidence.
type GoogleVisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionRecognizer creates a recognizer with credentials from
// environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path or
// GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionRecognizer(ctx context.Context) (*GoogleVisionRecognizer, error) {
	const op = "NewGoogleVisionRecognizer"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapRecognitionError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapRecognitionError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapRecognitionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionRecognizer{client: client}, nil
}

// NewGoogleVisionRecognizerWithClient creates a recognizer with an explicit
// client (for testing).
func NewGoogleVisionRecognizerWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionRecognizer {
	return &GoogleVisionRecognizer{client: client}
}

// RecognizeImage extracts text candidates from a document image.
func (g *GoogleVisionRecognizer) RecognizeImage(ctx context.Context, image io.Reader) ([]models.RecognizedText, error) {
	const op = "RecognizeImage"

	data, err := readImage(op, image)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, "no response from Vision API")
	}

	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return nil, WrapRecognitionError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API error: %s", imageResp.Error.Message))
	}

	candidates := blockCandidates(imageResp.FullTextAnnotation)
	if len(candidates) == 0 {
		return nil, WrapRecognitionError(op, ErrNoTextFound, "")
	}
	return candidates, nil
}

// blockCandidates flattens the annotation's page/block hierarchy into one
// candidate per block, preserving reading order.
func blockCandidates(annotation *visionpb.TextAnnotation) []models.RecognizedText {
	if annotation == nil {
		return nil
	}

	var candidates []models.RecognizedText
	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			text := blockText(block)
			if strings.TrimSpace(text) == "" {
				continue
			}
			candidates = append(candidates, models.RecognizedText{
				Text:       text,
				Confidence: float64(block.Confidence),
			})
		}
	}
	return candidates
}

// blockText reassembles a block's text from its symbols, honoring the
// detected break types so line structure survives.
func blockText(block *visionpb.Block) string {
	var b strings.Builder
	for _, paragraph := range block.Paragraphs {
		for _, word := range paragraph.Words {
			for _, symbol := range word.Symbols {
				b.WriteString(symbol.Text)
				if symbol.Property != nil && symbol.Property.DetectedBreak != nil {
					switch symbol.Property.DetectedBreak.Type {
					case visionpb.TextAnnotation_DetectedBreak_SPACE,
						visionpb.TextAnnotation_DetectedBreak_SURE_SPACE:
						b.WriteString(" ")
					case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
						visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
						b.WriteString("\n")
					}
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Close closes the underlying Vision client.
func (g *GoogleVisionRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
