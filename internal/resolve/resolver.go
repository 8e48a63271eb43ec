// Package resolve orchestrates the multi-source resolution pipeline: decoded
// code payloads, recognized document text, remote verification and optional
// text analysis are merged into a single resolved record with a confidence
// score and explicit provenance.
//
// Source priority is fixed: a decodable code payload always beats recognized
// text, and a verified registry record always beats raw code data. Remote
// verification is best-effort; any lookup failure downgrades the record to
// unverified code data instead of failing the resolution.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"invscan/internal/logger"
	"invscan/internal/lookup"
	"invscan/internal/payload"
	"invscan/internal/textproc"
	"invscan/internal/validation"
	"invscan/pkg/models"
)

const (
	// minTextConfidence filters recognition candidates; blocks below it are
	// usually smudges and stamps, not text.
	minTextConfidence = 0.5

	// codeConfidence applies to records built from an unverified but
	// well-formed code payload.
	codeConfidence = 0.95

	// verifiedConfidence applies to records confirmed by the registry.
	verifiedConfidence = 1.0

	// reviewThreshold marks the format score below which a re-capture is
	// suggested, and the merged score below which the analyzer is consulted.
	reviewThreshold = 0.7
)

// ErrUnrecognizedDocument is returned when neither a code payload nor usable
// recognized text is available.
var ErrUnrecognizedDocument = errors.New("document not recognized, please retry")

// Analyzer enriches low-confidence text records with inferred attributes.
type Analyzer interface {
	Suggest(ctx context.Context, text string) (*Suggestion, error)
}

// Suggestion is an analyzer's best guess at attributes the rule-based
// extraction could not settle.
type Suggestion struct {
	Category string
	Merchant string
}

// Input carries all recognition sources for one document.
type Input struct {
	// Texts are recognition candidates in reading order.
	Texts []models.RecognizedText

	// Payloads are raw machine-readable code payloads, most trusted first.
	Payloads []string
}

// Resolver merges recognition sources into resolved records. All methods are
// safe for concurrent use; a Resolver carries no per-document state.
type Resolver struct {
	lookup   lookup.Service
	analyzer Analyzer
	log      zerolog.Logger
}

// NewResolver creates a resolver without remote verification or analysis.
// Records built from code payloads stay unverified.
func NewResolver() *Resolver {
	return NewResolverWithDeps(nil, nil)
}

// NewResolverWithDeps creates a resolver with explicit dependencies. Either
// may be nil to disable the corresponding stage.
func NewResolverWithDeps(lookupSvc lookup.Service, analyzer Analyzer) *Resolver {
	return &Resolver{
		lookup:   lookupSvc,
		analyzer: analyzer,
		log:      logger.WithComponent("resolve"),
	}
}

// Resolve produces a resolved record from the available sources. It fails
// only when no source is usable; every other degradation is absorbed into
// the record's confidence, notes and suggestions.
func (r *Resolver) Resolve(ctx context.Context, input Input) (*models.ResolvedRecord, error) {
	code := r.decodeFirstPayload(input.Payloads)
	text := usableText(input.Texts)

	if code == nil && text == "" {
		return nil, ErrUnrecognizedDocument
	}

	if code != nil {
		return r.resolveFromCode(ctx, code), nil
	}
	return r.resolveFromText(ctx, text), nil
}

// decodeFirstPayload returns the first decodable payload, in order.
func (r *Resolver) decodeFirstPayload(payloads []string) *payload.InvoiceCode {
	for _, raw := range payloads {
		if code, ok := payload.TryParse(raw); ok {
			return code
		}
	}
	return nil
}

// usableText joins recognition candidates above the confidence floor,
// preserving reading order.
func usableText(texts []models.RecognizedText) string {
	var parts []string
	for _, t := range texts {
		if t.Confidence > minTextConfidence && strings.TrimSpace(t.Text) != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// resolveFromCode builds a record from a decoded payload, upgrading it with
// registry data when verification succeeds.
func (r *Resolver) resolveFromCode(ctx context.Context, code *payload.InvoiceCode) *models.ResolvedRecord {
	if r.lookup != nil {
		result, err := r.lookup.LookupInvoice(ctx, code.DocumentNumber, code.RandomCode)
		if err == nil {
			return r.buildVerifiedRecord(code, result)
		}
		r.log.Warn().
			Err(err).
			Str("document_number", code.DocumentNumber).
			Msg("verification unavailable, falling back to code data")
	}
	return r.buildCodeRecord(code)
}

func (r *Resolver) buildVerifiedRecord(code *payload.InvoiceCode, result *lookup.Result) *models.ResolvedRecord {
	record := models.NewResolvedRecord()
	record.Merchant = result.SellerName
	record.Total = result.TotalAmount
	record.Amount = result.TotalAmount
	// The registry's tax figure is authoritative; the policy-rate derivation
	// only covers services that omit it.
	record.Tax = result.TaxAmount
	if record.Tax == 0 {
		record.Tax = code.DerivedTax()
	}
	record.PaymentMethod = result.PaymentMethod
	record.LineItems = result.LineItems
	record.DocumentNumber = code.DocumentNumber
	record.RandomCode = code.RandomCode
	record.SellerID = result.SellerID
	issueDate := result.IssueDate
	if issueDate.IsZero() {
		issueDate = code.IssueDate
	}
	record.Date = &issueDate
	record.IssueDate = &issueDate
	record.Confidence = verifiedConfidence
	record.Provenance = models.VerifiedProvenance()
	return &record
}

func (r *Resolver) buildCodeRecord(code *payload.InvoiceCode) *models.ResolvedRecord {
	record := models.NewResolvedRecord()
	record.Merchant = models.UnknownMerchant
	if code.SellerID != "" {
		record.Merchant = "賣方 " + code.SellerID
	}
	record.Total = code.TotalAmount
	record.Amount = code.TotalAmount
	record.Tax = code.DerivedTax()
	record.DocumentNumber = code.DocumentNumber
	record.RandomCode = code.RandomCode
	record.SellerID = code.SellerID
	issueDate := code.IssueDate
	record.Date = &issueDate
	record.IssueDate = &issueDate
	record.Confidence = codeConfidence
	record.Provenance = models.CodeProvenance()
	if r.lookup != nil {
		record.Notes = "verification unavailable, record built from code data"
	}
	return &record
}

// resolveFromText runs the rule-based half of the pipeline: classify,
// extract, then validate format and completeness concurrently and merge the
// two scores by arithmetic mean.
func (r *Resolver) resolveFromText(ctx context.Context, text string) *models.ResolvedRecord {
	docType := textproc.Classify(text)
	details := textproc.Extract(text, docType)

	var (
		wg sync.WaitGroup
		fv models.FormatValidation
		cc models.CompletenessCheck
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fv = validation.ValidateFormat(text, docType)
	}()
	go func() {
		defer wg.Done()
		cc = validation.CheckCompleteness(details, docType)
	}()
	wg.Wait()

	record := models.NewResolvedRecord()
	record.Merchant = details.MerchantName
	if details.TotalAmount != nil {
		record.Total = *details.TotalAmount
		record.Amount = *details.TotalAmount
	}
	if details.TaxAmount != nil {
		record.Tax = *details.TaxAmount
	}
	record.LineItems = details.LineItems
	record.Date = details.IssueDate
	record.IssueDate = details.IssueDate
	record.DocumentNumber = details.DocumentNumber
	record.SellerID = details.SellerID
	record.PaymentMethod = details.PaymentMethod
	record.Confidence = (fv.Confidence + cc.Confidence) / 2
	record.NeedsReview = !(fv.IsValid && cc.IsValid)
	record.Suggestions = buildSuggestions(fv, cc)
	record.Provenance = models.TextProvenance()

	r.enrich(ctx, &record, details)

	r.log.Debug().
		Str("document_type", string(docType)).
		Float64("confidence", record.Confidence).
		Bool("needs_review", record.NeedsReview).
		Msg("resolved from recognized text")

	return &record
}

// enrich consults the analyzer for low-confidence text records. Analyzer
// failures are absorbed; the record stands on the rule-based result.
func (r *Resolver) enrich(ctx context.Context, record *models.ResolvedRecord, details models.ExtractedDetails) {
	if r.analyzer == nil || record.Confidence >= reviewThreshold {
		return
	}
	suggestion, err := r.analyzer.Suggest(ctx, details.RawText)
	if err != nil {
		r.log.Warn().Err(err).Msg("analyzer unavailable, keeping rule-based record")
		return
	}
	if suggestion.Category != "" {
		record.Category = suggestion.Category
	}
	if suggestion.Merchant != "" && record.Merchant == models.UnknownMerchant {
		record.Merchant = suggestion.Merchant
	}
}

func buildSuggestions(fv models.FormatValidation, cc models.CompletenessCheck) []string {
	var suggestions []string
	if !fv.IsValid {
		suggestions = append(suggestions, fmt.Sprintf("document format issues: %s", strings.Join(fv.Issues, "; ")))
	}
	if fv.Confidence < reviewThreshold {
		suggestions = append(suggestions, "image quality may be low, consider re-capturing the document")
	}
	if len(cc.MissingFields) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("missing fields: %s", strings.Join(cc.MissingFields, ", ")))
	}
	return suggestions
}
