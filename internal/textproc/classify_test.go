package textproc

import (
	"testing"

	"invscan/pkg/models"
)

func TestClassifyUniformInvoiceWithCarrier(t *testing.T) {
	text := "統一發票\n載具號碼: /ABC1234\n總計 150"
	if got := Classify(text); got != models.ElectronicInvoice {
		t.Errorf("Classify = %q, want %q", got, models.ElectronicInvoice)
	}
}

func TestClassifyUniformInvoiceWithoutCarrier(t *testing.T) {
	text := "統一發票\n發票號碼: 12A12345678\n總計 150"
	if got := Classify(text); got != models.TraditionalInvoice {
		t.Errorf("Classify = %q, want %q", got, models.TraditionalInvoice)
	}
}

func TestClassifyReceiptMarkers(t *testing.T) {
	for _, text := range []string{
		"好鄰居商店 收據\n合計 85",
		"NEIGHBOR MART\nRECEIPT NO. A123456",
	} {
		if got := Classify(text); got != models.Receipt {
			t.Errorf("Classify(%q) = %q, want %q", text, got, models.Receipt)
		}
	}
}

func TestClassifyInternationalInvoice(t *testing.T) {
	text := "ACME GmbH\nInvoice No. INV-2025-001\nVAT 19%\nTotal 119.00"
	if got := Classify(text); got != models.InternationalInvoice {
		t.Errorf("Classify = %q, want %q", got, models.InternationalInvoice)
	}
}

func TestClassifyDefaultsToReceipt(t *testing.T) {
	// Classification is total: marker-free and empty inputs still classify.
	for _, text := range []string{"", "好鄰居商店\n咖啡 60", "random text with numbers 123"} {
		if got := Classify(text); got != models.Receipt {
			t.Errorf("Classify(%q) = %q, want %q", text, got, models.Receipt)
		}
	}
}

func TestClassifyUniformInvoiceMarkerWinsOverReceiptMarker(t *testing.T) {
	// Uniform-invoice documents often print 收據-like wording too; the
	// stronger marker must win regardless.
	text := "電子發票證明聯\n此為收據\n載具存根"
	if got := Classify(text); got != models.ElectronicInvoice {
		t.Errorf("Classify = %q, want %q", got, models.ElectronicInvoice)
	}
}
