package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownMerchant is the sentinel merchant name used when no merchant could be
// extracted. It is never the empty string so downstream consumers can rely on
// the field being populated.
const UnknownMerchant = "未知商家"

// DefaultCurrency is used for all resolved records; code payloads carry no
// currency information.
const DefaultCurrency = "TWD"

// DocumentType classifies a scanned document. Assigned once by the classifier
// and never mutated afterward.
type DocumentType string

const (
	// ElectronicInvoice is a uniform e-invoice carrying a digital carrier reference.
	ElectronicInvoice DocumentType = "electronic_invoice"

	// TraditionalInvoice is a printed uniform invoice without a carrier reference.
	TraditionalInvoice DocumentType = "traditional_invoice"

	// Receipt is a generic store receipt.
	Receipt DocumentType = "receipt"

	// InternationalInvoice is a foreign-format invoice or tax document.
	InternationalInvoice DocumentType = "international_invoice"
)

// RecognizedText is one candidate string produced by a text recognition
// engine, in detection order.
type RecognizedText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// LineItem is a single purchased item. Monetary values are minor units
// (cents) to avoid float rounding, matching the payload encoding.
type LineItem struct {
	Name      string   `json:"name"`
	Quantity  float64  `json:"quantity"`
	UnitPrice int64    `json:"unit_price_cents"`
	Amount    int64    `json:"amount_cents"`
	TaxRate   *float64 `json:"tax_rate,omitempty"`
}

// ExtractedDetails is the structured result of rule-based field extraction
// over recognized text. Every field is extracted independently; absence of
// one never blocks the others. Optional strings use "" for absent, optional
// amounts and dates use nil.
type ExtractedDetails struct {
	MerchantName   string     `json:"merchant_name"`
	DocumentNumber string     `json:"document_number,omitempty"`
	IssueDate      *time.Time `json:"issue_date,omitempty"`
	TotalAmount    *int64     `json:"total_amount_cents,omitempty"`
	TaxAmount      *int64     `json:"tax_amount_cents,omitempty"`
	LineItems      []LineItem `json:"line_items,omitempty"`
	SellerID       string     `json:"seller_id,omitempty"`
	SellerAddress  string     `json:"seller_address,omitempty"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	RawText        string     `json:"raw_text"`
}

// FormatValidation is the result of checking raw text against the required
// field patterns for a document type. Confidence starts at 1.0 and loses a
// fixed penalty per missing field, floored at 0.
type FormatValidation struct {
	IsValid    bool     `json:"is_valid"`
	Issues     []string `json:"issues,omitempty"`
	Confidence float64  `json:"confidence"`
}

// CompletenessCheck is the result of checking the structured extracted record
// against business-completeness rules. Same scoring discipline as
// FormatValidation, evaluated against ExtractedDetails rather than raw text.
type CompletenessCheck struct {
	IsValid       bool     `json:"is_valid"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// ResolvedRecord is the final output of one resolution pass: one scanned
// document reconciled into one structured financial record with provenance.
type ResolvedRecord struct {
	ID       uuid.UUID  `json:"id"`
	Merchant string     `json:"merchant"`
	Amount   int64      `json:"amount_cents"`
	Currency string     `json:"currency"`
	Date     *time.Time `json:"date,omitempty"`

	LineItems     []LineItem `json:"line_items,omitempty"`
	Tax           int64      `json:"tax_cents"`
	Total         int64      `json:"total_cents"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Category      string     `json:"category"`

	Confidence  float64  `json:"confidence"`
	Notes       string   `json:"notes,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	NeedsReview bool     `json:"needs_review"`

	DocumentNumber string     `json:"document_number,omitempty"`
	RandomCode     string     `json:"random_code,omitempty"`
	SellerID       string     `json:"seller_id,omitempty"`
	IssueDate      *time.Time `json:"issue_date,omitempty"`

	Provenance Provenance `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewResolvedRecord returns a record with identity, currency and creation
// time populated.
func NewResolvedRecord() ResolvedRecord {
	return ResolvedRecord{
		ID:        uuid.New(),
		Currency:  DefaultCurrency,
		Category:  "Uncategorized",
		CreatedAt: time.Now(),
	}
}

// AnnotatedCopy returns a new record with the note appended. Downstream edits
// always produce a fresh record; provenance fields are never mutated in place.
func (r ResolvedRecord) AnnotatedCopy(note string) ResolvedRecord {
	edited := r
	edited.LineItems = append([]LineItem(nil), r.LineItems...)
	edited.Suggestions = append([]string(nil), r.Suggestions...)
	if edited.Notes == "" {
		edited.Notes = note
	} else {
		edited.Notes = edited.Notes + "; " + note
	}
	return edited
}

// MajorUnits converts a minor-unit amount to major currency units for display.
func MajorUnits(cents int64) float64 {
	return float64(cents) / 100
}
