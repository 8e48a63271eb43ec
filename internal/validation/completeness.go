package validation

import "invscan/pkg/models"

// completenessRule marks one field a usable record needs. Unlike format
// rules these do not care about shape, only presence.
type completenessRule struct {
	field   string
	penalty float64
	present func(d models.ExtractedDetails) bool

	// docTypes restricts the rule to specific document types; empty means
	// the rule applies to all of them.
	docTypes []models.DocumentType
}

func hasPositiveTotal(d models.ExtractedDetails) bool {
	return d.TotalAmount != nil && *d.TotalAmount > 0
}

func hasIssueDate(d models.ExtractedDetails) bool {
	return d.IssueDate != nil
}

func hasDocumentNumber(d models.ExtractedDetails) bool {
	return d.DocumentNumber != ""
}

// completenessRules carry an equal 0.2 penalty each: any single gap leaves a
// usable but review-worthy record, two gaps push it below the review
// threshold. The document number only counts for the uniform invoice types,
// where it is mandated; receipts frequently have none. Penalties sum to 1.0.
var completenessRules = []completenessRule{
	{field: "merchant_name", penalty: 0.2, present: func(d models.ExtractedDetails) bool {
		return d.MerchantName != "" && d.MerchantName != models.UnknownMerchant
	}},
	{field: "total_amount", penalty: 0.2, present: hasPositiveTotal},
	{field: "issue_date", penalty: 0.2, present: hasIssueDate},
	{field: "line_items", penalty: 0.2, present: func(d models.ExtractedDetails) bool {
		return len(d.LineItems) > 0
	}},
	{field: "document_number", penalty: 0.2, present: hasDocumentNumber,
		docTypes: []models.DocumentType{models.ElectronicInvoice, models.TraditionalInvoice}},
}

// CheckCompleteness reports which required fields are absent from the
// extracted details. Confidence starts at 1.0 and drops by each missing
// field's penalty; IsValid means nothing required is missing.
func CheckCompleteness(details models.ExtractedDetails, docType models.DocumentType) models.CompletenessCheck {
	result := models.CompletenessCheck{IsValid: true, Confidence: 1.0}
	for _, rule := range completenessRules {
		if !rule.appliesTo(docType) || rule.present(details) {
			continue
		}
		result.IsValid = false
		result.MissingFields = append(result.MissingFields, rule.field)
		result.Confidence -= rule.penalty
	}
	result.Confidence = clamp01(result.Confidence)
	return result
}

func (r completenessRule) appliesTo(docType models.DocumentType) bool {
	if len(r.docTypes) == 0 {
		return true
	}
	for _, dt := range r.docTypes {
		if dt == docType {
			return true
		}
	}
	return false
}
