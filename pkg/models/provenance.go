package models

import "fmt"

// DataSource identifies which source produced the final record's field values.
type DataSource string

const (
	// SourceCode means the record was decoded from the machine-readable code payload.
	SourceCode DataSource = "code"

	// SourceRecognizedText means the record was extracted from recognized free text.
	SourceRecognizedText DataSource = "recognized_text"

	// SourceRemoteVerified means the record was confirmed by the authoritative
	// remote lookup.
	SourceRemoteVerified DataSource = "remote_verified"
)

// VerificationStatus tracks how far remote verification got for a record.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusVerified   VerificationStatus = "verified"
	StatusVerifying  VerificationStatus = "verifying"
	StatusFailed     VerificationStatus = "failed"
)

// Provenance pairs a data source with its verification status. The pair is
// one tagged value rather than two independent enums so that the illegal
// combination {source: code, status: verified} is unrepresentable: construct
// it only through NewProvenance or the shape helpers below.
type Provenance struct {
	Source DataSource         `json:"source"`
	Status VerificationStatus `json:"status"`
}

// NewProvenance builds a provenance pair, enforcing the invariant that a
// record may only be verified when its data came from the remote lookup.
func NewProvenance(source DataSource, status VerificationStatus) (Provenance, error) {
	if status == StatusVerified && source != SourceRemoteVerified {
		return Provenance{}, fmt.Errorf("provenance: status %q requires source %q, got %q",
			StatusVerified, SourceRemoteVerified, source)
	}
	return Provenance{Source: source, Status: status}, nil
}

// CodeProvenance is the unverified code-payload terminal shape.
func CodeProvenance() Provenance {
	return Provenance{Source: SourceCode, Status: StatusUnverified}
}

// TextProvenance is the recognized-text terminal shape.
func TextProvenance() Provenance {
	return Provenance{Source: SourceRecognizedText, Status: StatusUnverified}
}

// VerifiedProvenance is the remote-verified terminal shape.
func VerifiedProvenance() Provenance {
	return Provenance{Source: SourceRemoteVerified, Status: StatusVerified}
}
