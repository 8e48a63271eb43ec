package models

import "testing"

func TestNewResolvedRecordDefaults(t *testing.T) {
	record := NewResolvedRecord()
	if record.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("ID should be populated")
	}
	if record.Currency != DefaultCurrency {
		t.Errorf("Currency = %q, want %q", record.Currency, DefaultCurrency)
	}
	if record.Category != "Uncategorized" {
		t.Errorf("Category = %q, want Uncategorized", record.Category)
	}
	if record.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}
}

func TestAnnotatedCopyDoesNotMutateOriginal(t *testing.T) {
	original := NewResolvedRecord()
	original.Notes = "imported"
	original.LineItems = []LineItem{{Name: "Coffee", Quantity: 2, UnitPrice: 6000, Amount: 12000}}
	original.Provenance = VerifiedProvenance()

	edited := original.AnnotatedCopy("amount corrected by reviewer")

	if edited.Notes != "imported; amount corrected by reviewer" {
		t.Errorf("Notes = %q", edited.Notes)
	}
	if original.Notes != "imported" {
		t.Errorf("original Notes mutated to %q", original.Notes)
	}
	if edited.Provenance != original.Provenance {
		t.Error("annotation must never change provenance")
	}

	edited.LineItems[0].Name = "Tea"
	if original.LineItems[0].Name != "Coffee" {
		t.Error("edited copy shares line item storage with the original")
	}
}

func TestAnnotatedCopyFirstNote(t *testing.T) {
	record := NewResolvedRecord()
	edited := record.AnnotatedCopy("needs review")
	if edited.Notes != "needs review" {
		t.Errorf("Notes = %q, want the bare note", edited.Notes)
	}
}

func TestMajorUnits(t *testing.T) {
	tests := []struct {
		cents int64
		want  float64
	}{
		{0, 0},
		{1, 0.01},
		{150000, 1500},
		{12345, 123.45},
	}
	for _, tt := range tests {
		if got := MajorUnits(tt.cents); got != tt.want {
			t.Errorf("MajorUnits(%d) = %v, want %v", tt.cents, got, tt.want)
		}
	}
}
