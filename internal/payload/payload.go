// Package payload decodes the text payload embedded in the machine-readable
// code printed on jurisdiction e-invoices.
//
// The encoding is a fixed national contract: fields separated by a
// two-character delimiter ("||"), a document number shaped as 2 digits,
// 1 uppercase letter and 8 digits, a 4-character random verification code,
// and amounts encoded as minor-unit (cent) integers. Two structurally
// identical variants exist - a "simple" one carrying only the total and an
// "itemized" one carrying pre-tax and tax amounts - and the payload itself
// carries no format tag. The only disambiguator is the numeric consistency
// check preTax + tax == total, which a simple payload can in principle
// satisfy by coincidence; the exact integer equality is preserved here
// deliberately, and should be revisited only if the encoding ever grows a
// version tag.
package payload

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Delimiter separates payload fields. A known encoder variant emits a
	// single-character delimiter instead; TryParse tolerates it.
	Delimiter = "||"

	// DefaultTaxRate is the jurisdiction's standard VAT rate, used to derive
	// tax breakdowns for simple-format payloads. Policy constant: derived
	// values are recomputed on every call and never stored.
	DefaultTaxRate = 0.05

	// minSegments is the smallest valid payload: document number, random
	// code, issue date, total amount.
	minSegments = 4
)

var (
	documentNumberRe = regexp.MustCompile(`^\d{2}[A-Z]\d{8}$`)
	randomCodeRe     = regexp.MustCompile(`^[0-9A-Za-z]{4}$`)
)

// dateLayouts are tried in order against the issue date segment.
var dateLayouts = []string{"20060102", "2006-01-02", "2006/01/02"}

// InvoiceCode is a decoded code payload. Constructed once per successful
// parse and treated as immutable afterward.
type InvoiceCode struct {
	DocumentNumber string
	RandomCode     string
	IssueDate      time.Time

	// TotalAmount is the invoice total in minor units (cents).
	TotalAmount int64

	// Itemized reports whether the payload carried an explicit pre-tax/tax
	// breakdown. PreTaxAmount and TaxAmount are only meaningful when set.
	Itemized     bool
	PreTaxAmount int64
	TaxAmount    int64

	// Optional fields. Empty string means not provided; the encoding uses
	// both "" and the literal "0" to mean absent.
	SellerID     string
	CarrierID    string
	BuyerID      string
	DonationCode string
}

// Parse decodes a raw code payload. It fails with one of the package
// sentinel errors (wrapped in a *ParseError) at the first invalid required
// field; optional trailing fields never cause a failure.
func Parse(raw string) (*InvoiceCode, error) {
	segments := strings.Split(raw, Delimiter)
	if len(segments) < minSegments {
		return nil, &ParseError{Segment: -1, Err: ErrMalformedPayload}
	}

	if !documentNumberRe.MatchString(segments[0]) {
		return nil, &ParseError{Segment: 0, Value: segments[0], Err: ErrInvalidDocumentNumber}
	}
	if !randomCodeRe.MatchString(segments[1]) {
		return nil, &ParseError{Segment: 1, Value: segments[1], Err: ErrInvalidRandomCode}
	}

	issueDate, ok := parseDate(segments[2])
	if !ok {
		return nil, &ParseError{Segment: 2, Value: segments[2], Err: ErrInvalidDate}
	}

	total, err := strconv.ParseInt(segments[3], 10, 64)
	if err != nil || total <= 0 {
		return nil, &ParseError{Segment: 3, Value: segments[3], Err: ErrInvalidAmount}
	}

	code := &InvoiceCode{
		DocumentNumber: segments[0],
		RandomCode:     segments[1],
		IssueDate:      issueDate,
		TotalAmount:    total,
	}

	if len(segments) >= 6 {
		// Disambiguate the itemized variant: segments 3-5 read as
		// (preTax, tax, total) must balance exactly. No tolerance - the
		// equality is the sole format signal. Negative components and a
		// non-positive grand total stay in the simple layout; a triple like
		// (100, -100, 0) balances arithmetically but is not a price breakdown.
		pre, preErr := strconv.ParseInt(segments[3], 10, 64)
		tax, taxErr := strconv.ParseInt(segments[4], 10, 64)
		grand, grandErr := strconv.ParseInt(segments[5], 10, 64)
		if preErr == nil && taxErr == nil && grandErr == nil &&
			pre >= 0 && tax >= 0 && grand > 0 && pre+tax == grand {
			code.Itemized = true
			code.PreTaxAmount = pre
			code.TaxAmount = tax
			code.TotalAmount = grand
			code.SellerID = optionalField(segments, 6)
			code.CarrierID = optionalField(segments, 7)
			code.DonationCode = optionalField(segments, 8)
			code.BuyerID = optionalField(segments, 9)
			return code, nil
		}
	}

	code.SellerID = optionalField(segments, 4)
	code.CarrierID = optionalField(segments, 5)
	code.DonationCode = optionalField(segments, 6)
	code.BuyerID = optionalField(segments, 7)
	return code, nil
}

// TryParse is the best-effort wrapper used during resolution: on failure it
// retries once with single-character delimiters normalized to the standard
// two-character form (a known encoder variant), and reports absence rather
// than propagating errors.
func TryParse(raw string) (*InvoiceCode, bool) {
	if code, err := Parse(raw); err == nil {
		return code, true
	}
	if strings.Contains(raw, "|") && !strings.Contains(raw, Delimiter) {
		normalized := strings.ReplaceAll(raw, "|", Delimiter)
		if code, err := Parse(normalized); err == nil {
			return code, true
		}
	}
	return nil, false
}

// DerivedPreTax returns the pre-tax amount in minor units. For itemized
// payloads it is the encoded value; otherwise it is derived from the total
// using DefaultTaxRate. Derived values are never cached: the rate is policy,
// not data.
func (c *InvoiceCode) DerivedPreTax() int64 {
	if c.Itemized {
		return c.PreTaxAmount
	}
	return int64(math.Round(float64(c.TotalAmount) / (1 + DefaultTaxRate)))
}

// DerivedTax returns the tax amount in minor units, computed so that
// DerivedPreTax + DerivedTax always equals TotalAmount.
func (c *InvoiceCode) DerivedTax() int64 {
	if c.Itemized {
		return c.TaxAmount
	}
	return c.TotalAmount - c.DerivedPreTax()
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optionalField reads an optional trailing segment. The encoding treats both
// the empty string and the literal "0" as "not provided"; neither is ever a
// valid value for these fields.
func optionalField(segments []string, idx int) string {
	if idx >= len(segments) {
		return ""
	}
	v := segments[idx]
	if v == "" || v == "0" {
		return ""
	}
	return v
}
