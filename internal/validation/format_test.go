package validation

import (
	"testing"

	"invscan/pkg/models"
)

const completeInvoiceText = `好鄰居咖啡
統一發票
發票號碼: 12A12345678
2025-01-15
統編: 12345678
Coffee 2 60
總計 150`

func TestValidateFormatCompleteElectronicInvoice(t *testing.T) {
	result := ValidateFormat(completeInvoiceText, models.ElectronicInvoice)
	if !result.IsValid {
		t.Errorf("IsValid = false, issues = %v", result.Issues)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", result.Confidence)
	}
}

func TestValidateFormatMissingUniformNumber(t *testing.T) {
	text := `好鄰居咖啡
統一發票 載具
2025-01-15
統編: 12345678
總計 150`
	result := ValidateFormat(text, models.ElectronicInvoice)
	if result.IsValid {
		t.Error("IsValid = true, want false when the document number is missing")
	}
	if len(result.Issues) != 1 {
		t.Errorf("Issues = %v, want exactly one", result.Issues)
	}
	if result.Confidence > 0.8 {
		t.Errorf("Confidence = %v, want at most 0.8", result.Confidence)
	}
}

func TestValidateFormatRejectsMalformedUniformNumber(t *testing.T) {
	// Shape, not mere presence: a number with a lowercase letter or the
	// wrong digit count must fail too.
	text := `統一發票
發票號碼: 12a12345678
2025-01-15
總計 150`
	result := ValidateFormat(text, models.TraditionalInvoice)
	if result.IsValid {
		t.Error("IsValid = true, want false for a malformed document number")
	}
}

func TestValidateFormatBareReceipt(t *testing.T) {
	// No amount and no date on a receipt: two issues, confidence well below
	// the review threshold.
	result := ValidateFormat("店名\n內用一位", models.Receipt)
	if result.IsValid {
		t.Error("IsValid = true, want false")
	}
	if len(result.Issues) != 2 {
		t.Errorf("Issues = %v, want two", result.Issues)
	}
	if result.Confidence > 0.6 {
		t.Errorf("Confidence = %v, want at most 0.6", result.Confidence)
	}
}

func TestValidateFormatReceiptIgnoresDocumentNumber(t *testing.T) {
	result := ValidateFormat("店名\n2025-01-15\n總計 150", models.Receipt)
	if !result.IsValid {
		t.Errorf("receipts have no number requirement, issues = %v", result.Issues)
	}
}

func TestValidateFormatInternationalInvoiceAcceptsFreeFormNumber(t *testing.T) {
	text := `ACME Ltd
Invoice No: INV-2025-001
2025-01-15
Total $1,234.56`
	result := ValidateFormat(text, models.InternationalInvoice)
	if !result.IsValid {
		t.Errorf("IsValid = false, issues = %v", result.Issues)
	}
}

func TestValidateFormatAcceptsAllDateShapes(t *testing.T) {
	for _, date := range []string{"2025-01-15", "2025/01/15", "2025年1月15日"} {
		result := ValidateFormat("店名\n"+date+"\n總計 150", models.Receipt)
		if !result.IsValid {
			t.Errorf("%s: IsValid = false, issues = %v", date, result.Issues)
		}
	}
}

func TestValidateFormatConfidenceStaysInRange(t *testing.T) {
	for _, docType := range []models.DocumentType{
		models.ElectronicInvoice, models.TraditionalInvoice,
		models.Receipt, models.InternationalInvoice,
	} {
		result := ValidateFormat("", docType)
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("%s: Confidence = %v, want within [0, 1]", docType, result.Confidence)
		}
	}
}

func TestFormatRulePenaltiesBounded(t *testing.T) {
	// Each type's penalties must sum to at most 1.0 or the score range
	// guarantee breaks silently when rules are edited.
	for docType, rules := range formatRules {
		var sum float64
		for _, rule := range rules {
			if rule.penalty <= 0 {
				t.Errorf("%s/%s: penalty %v must be positive", docType, rule.field, rule.penalty)
			}
			sum += rule.penalty
		}
		if sum > 1.0 {
			t.Errorf("%s: penalties sum to %v, want at most 1.0", docType, sum)
		}
	}
}
