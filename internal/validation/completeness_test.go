package validation

import (
	"testing"
	"time"

	"invscan/pkg/models"
)

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func completeDetails() models.ExtractedDetails {
	return models.ExtractedDetails{
		MerchantName:   "好鄰居咖啡",
		DocumentNumber: "12A12345678",
		IssueDate:      timePtr(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)),
		TotalAmount:    int64Ptr(15000),
		SellerID:       "12345678",
		LineItems:      []models.LineItem{{Name: "Coffee", Quantity: 2, UnitPrice: 6000, Amount: 12000}},
	}
}

func TestCheckCompletenessFullRecord(t *testing.T) {
	result := CheckCompleteness(completeDetails(), models.ElectronicInvoice)
	if !result.IsValid {
		t.Errorf("IsValid = false, missing = %v", result.MissingFields)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", result.Confidence)
	}
}

func TestCheckCompletenessSentinelMerchantCountsAsMissing(t *testing.T) {
	details := completeDetails()
	details.MerchantName = models.UnknownMerchant
	result := CheckCompleteness(details, models.ElectronicInvoice)
	if result.IsValid {
		t.Error("IsValid = true, want false for the unknown-merchant sentinel")
	}
	if len(result.MissingFields) != 1 || result.MissingFields[0] != "merchant_name" {
		t.Errorf("MissingFields = %v, want [merchant_name]", result.MissingFields)
	}
}

func TestCheckCompletenessFieldAbsenceForms(t *testing.T) {
	// Each predicate's notion of "absent": zero and negative totals count as
	// missing, not just nil.
	tests := []struct {
		name   string
		mutate func(*models.ExtractedDetails)
		want   string
	}{
		{"nil total", func(d *models.ExtractedDetails) { d.TotalAmount = nil }, "total_amount"},
		{"zero total", func(d *models.ExtractedDetails) { d.TotalAmount = int64Ptr(0) }, "total_amount"},
		{"negative total", func(d *models.ExtractedDetails) { d.TotalAmount = int64Ptr(-500) }, "total_amount"},
		{"nil date", func(d *models.ExtractedDetails) { d.IssueDate = nil }, "issue_date"},
		{"empty document number", func(d *models.ExtractedDetails) { d.DocumentNumber = "" }, "document_number"},
		{"no line items", func(d *models.ExtractedDetails) { d.LineItems = nil }, "line_items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := completeDetails()
			tt.mutate(&details)
			result := CheckCompleteness(details, models.ElectronicInvoice)
			if result.IsValid {
				t.Fatal("IsValid = true, want false")
			}
			if len(result.MissingFields) != 1 || result.MissingFields[0] != tt.want {
				t.Errorf("MissingFields = %v, want [%s]", result.MissingFields, tt.want)
			}
		})
	}
}

func TestCheckCompletenessSingleGapScoresAtMostPointEight(t *testing.T) {
	details := completeDetails()
	details.LineItems = nil
	result := CheckCompleteness(details, models.ElectronicInvoice)
	if result.Confidence > 0.8 {
		t.Errorf("Confidence = %v, want at most 0.8 with line items missing", result.Confidence)
	}
}

func TestCheckCompletenessDocumentNumberOnlyRequiredForInvoices(t *testing.T) {
	details := completeDetails()
	details.DocumentNumber = ""

	for _, docType := range []models.DocumentType{models.ElectronicInvoice, models.TraditionalInvoice} {
		result := CheckCompleteness(details, docType)
		if result.IsValid {
			t.Errorf("%s: IsValid = true, want document_number flagged", docType)
		}
	}
	for _, docType := range []models.DocumentType{models.Receipt, models.InternationalInvoice} {
		result := CheckCompleteness(details, docType)
		if !result.IsValid {
			t.Errorf("%s: IsValid = false, missing = %v", docType, result.MissingFields)
		}
	}
}

func TestCheckCompletenessEmptyDetails(t *testing.T) {
	result := CheckCompleteness(models.ExtractedDetails{}, models.Receipt)
	if result.IsValid {
		t.Error("IsValid = true, want false")
	}
	want := []string{"merchant_name", "total_amount", "issue_date", "line_items"}
	if len(result.MissingFields) != len(want) {
		t.Fatalf("MissingFields = %v, want %v", result.MissingFields, want)
	}
	for i, field := range want {
		if result.MissingFields[i] != field {
			t.Errorf("MissingFields[%d] = %q, want %q", i, result.MissingFields[i], field)
		}
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want within [0, 1]", result.Confidence)
	}
}

func TestCompletenessRulePenaltiesBounded(t *testing.T) {
	var sum float64
	for _, rule := range completenessRules {
		if rule.penalty <= 0 {
			t.Errorf("%s: penalty %v must be positive", rule.field, rule.penalty)
		}
		sum += rule.penalty
	}
	if sum > 1.0 {
		t.Errorf("penalties sum to %v, want at most 1.0", sum)
	}
}
