// Package validation scores one recognized document along two independent
// axes: format validity (does the raw text show the field shapes the claimed
// document type requires) and completeness (are the fields a usable record
// needs present in the extracted details). Both checks are data-driven: each
// document type has a declarative rule table, and every rule carries its own
// confidence penalty. Adding a rule means adding a table row, not a branch.
package validation

import (
	"regexp"

	"invscan/pkg/models"
)

// formatRule is one shape requirement for a document type. A rule fails when
// its pattern never matches the text; it then contributes its issue to the
// report and subtracts its penalty from the confidence score.
type formatRule struct {
	field   string
	issue   string
	penalty float64
	pattern *regexp.Regexp
}

var (
	uniformNumberRe = regexp.MustCompile(`\b\d{2}[A-Z]\d{8}\b`)
	freeFormNumRe   = regexp.MustCompile(`(?i)\b(?:invoice|inv|receipt)\s*(?:no|number|#)?[\s.:：#]*[A-Za-z0-9][A-Za-z0-9-]{3,}`)
	anyDateRe       = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}|\d{4}/\d{1,2}/\d{1,2}|\d{4}年\d{1,2}月\d{1,2}日`)
	anyAmountRe     = regexp.MustCompile(`(?:總計|總金額|合計|金額)[\s:：]*(?:NT\$|\$)?\s*\d|(?i:\b(?:grand\s+total|total\s+amount|amount\s+due|total)\b)[\s:：]*(?:NT\$|\$)?\s*\d|(?:NT\$|\$)\s*\d`)
	sellerIDRe      = regexp.MustCompile(`(?:統編|統一編號|[Ss]eller\s*ID)[\s:：]*\d{8}\b`)
)

// formatRules lists the shape requirements per document type. Penalties per
// type must sum to at most 1.0 so the score never leaves [0, 1]; the invoice
// types weigh the national number shape heaviest because it is the field
// downstream verification keys on.
var formatRules = map[models.DocumentType][]formatRule{
	models.ElectronicInvoice: {
		{"document_number", "document number missing or not in uniform invoice format", 0.25, uniformNumberRe},
		{"issue_date", "issue date missing", 0.20, anyDateRe},
		{"total_amount", "total amount missing", 0.25, anyAmountRe},
		{"seller_id", "seller identifier missing or not 8 digits", 0.20, sellerIDRe},
	},
	models.TraditionalInvoice: {
		{"document_number", "document number missing or not in uniform invoice format", 0.25, uniformNumberRe},
		{"issue_date", "issue date missing", 0.25, anyDateRe},
		{"total_amount", "total amount missing", 0.25, anyAmountRe},
	},
	models.Receipt: {
		{"total_amount", "total amount missing", 0.40, anyAmountRe},
		{"issue_date", "issue date missing", 0.20, anyDateRe},
	},
	models.InternationalInvoice: {
		{"document_number", "invoice number missing", 0.30, freeFormNumRe},
		{"total_amount", "total amount missing", 0.30, anyAmountRe},
		{"issue_date", "issue date missing", 0.20, anyDateRe},
	},
}

// ValidateFormat checks the recognized text against the rule table for the
// document type. The result confidence starts at 1.0 and drops by each
// failing rule's penalty; IsValid means every rule matched.
func ValidateFormat(text string, docType models.DocumentType) models.FormatValidation {
	result := models.FormatValidation{IsValid: true, Confidence: 1.0}
	for _, rule := range formatRules[docType] {
		if rule.pattern.MatchString(text) {
			continue
		}
		result.IsValid = false
		result.Issues = append(result.Issues, rule.issue)
		result.Confidence -= rule.penalty
	}
	result.Confidence = clamp01(result.Confidence)
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
