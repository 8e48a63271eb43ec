// Package textproc implements the rule-based half of the resolution
// pipeline: classifying recognized free text into a document type and
// extracting structured invoice fields from it with ordered regex and
// keyword heuristics. Everything here is pure and total - extraction never
// fails, fields are simply absent when no rule matches.
package textproc

import (
	"strings"

	"invscan/pkg/models"
)

// Keyword rule sets, matched case-insensitively against the whole text.
// Rule order matters: the uniform-invoice markers must be checked before the
// receipt and generic invoice terms because they routinely co-occur with
// receipt-like substrings on the same document.
var (
	electronicInvoiceMarkers = []string{"統一發票", "電子發票", "uniform invoice", "uniform-invoice"}
	carrierMarkers           = []string{"載具", "carrier"}
	receiptMarkers           = []string{"收據", "receipt"}
	invoiceTaxMarkers        = []string{"invoice", "發票", "tax", "vat"}
)

// Classify assigns a document type from recognized text. It is total: any
// input, including the empty string, yields a value, defaulting to Receipt.
func Classify(text string) models.DocumentType {
	lower := strings.ToLower(text)

	if containsAny(lower, electronicInvoiceMarkers) {
		if containsAny(lower, carrierMarkers) {
			return models.ElectronicInvoice
		}
		return models.TraditionalInvoice
	}
	if containsAny(lower, receiptMarkers) {
		return models.Receipt
	}
	if containsAny(lower, invoiceTaxMarkers) {
		return models.InternationalInvoice
	}
	return models.Receipt
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
