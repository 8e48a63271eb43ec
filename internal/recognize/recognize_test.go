package recognize

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

func TestReadImageValidation(t *testing.T) {
	if _, err := readImage("test", bytes.NewReader(nil)); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty input error = %v, want %v", err, ErrEmptyImage)
	}

	huge := bytes.Repeat([]byte{0xFF}, MaxImageSizeBytes+1)
	if _, err := readImage("test", bytes.NewReader(huge)); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("oversized input error = %v, want %v", err, ErrImageTooLarge)
	}

	data, err := readImage("test", strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("readImage: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("data = %q", data)
	}
}

func symbol(text string, brk visionpb.TextAnnotation_DetectedBreak_BreakType) *visionpb.Symbol {
	s := &visionpb.Symbol{Text: text}
	if brk != visionpb.TextAnnotation_DetectedBreak_UNKNOWN {
		s.Property = &visionpb.TextAnnotation_TextProperty{
			DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
		}
	}
	return s
}

func TestBlockCandidatesPreservesOrderAndBreaks(t *testing.T) {
	annotation := &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{
			Blocks: []*visionpb.Block{
				{
					Confidence: 0.92,
					Paragraphs: []*visionpb.Paragraph{{
						Words: []*visionpb.Word{
							{Symbols: []*visionpb.Symbol{
								symbol("統", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("一", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("發", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("票", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK),
							}},
						},
					}},
				},
				{
					Confidence: 0.41,
					Paragraphs: []*visionpb.Paragraph{{
						Words: []*visionpb.Word{
							{Symbols: []*visionpb.Symbol{
								symbol("總", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("計", visionpb.TextAnnotation_DetectedBreak_SPACE),
								symbol("1", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("5", visionpb.TextAnnotation_DetectedBreak_UNKNOWN),
								symbol("0", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK),
							}},
						},
					}},
				},
			},
		}},
	}

	candidates := blockCandidates(annotation)
	if len(candidates) != 2 {
		t.Fatalf("candidates = %v, want two", candidates)
	}
	if candidates[0].Text != "統一發票" {
		t.Errorf("first candidate = %q, want 統一發票", candidates[0].Text)
	}
	if candidates[0].Confidence < 0.91 || candidates[0].Confidence > 0.93 {
		t.Errorf("first confidence = %v, want the block confidence", candidates[0].Confidence)
	}
	if candidates[1].Text != "總計 150" {
		t.Errorf("second candidate = %q, want %q", candidates[1].Text, "總計 150")
	}
}

func TestBlockCandidatesNilAnnotation(t *testing.T) {
	if got := blockCandidates(nil); got != nil {
		t.Errorf("blockCandidates(nil) = %v, want nil", got)
	}
}

func TestAnchorText(t *testing.T) {
	full := "統一發票\n總計 150\n"
	anchor := &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: 0, EndIndex: int64(len("統一發票\n"))},
		},
	}
	if got := anchorText(full, anchor); got != "統一發票\n" {
		t.Errorf("anchorText = %q", got)
	}

	// Out-of-range segments are skipped, not panicked on.
	bad := &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: 5, EndIndex: int64(len(full) + 10)},
		},
	}
	if got := anchorText(full, bad); got != "" {
		t.Errorf("anchorText out of range = %q, want empty", got)
	}
	if got := anchorText(full, nil); got != "" {
		t.Errorf("anchorText(nil) = %q, want empty", got)
	}
}
