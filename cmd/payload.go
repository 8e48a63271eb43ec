package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invscan/internal/logger"
	"invscan/internal/payload"
)

var payloadCmd = &cobra.Command{
	Use:   "payload [raw-payload]",
	Short: "Decode a machine-readable code payload",
	Long: `Decode the text payload of an e-invoice code without resolving it.

The payload is validated against the national encoding contract and printed
as JSON. This is useful for checking what a scanner actually read before
running a full resolution.`,
	Example: `  # Decode a simple payload
  invscan payload "12A12345678||AB12||20250115||150000"

  # Decode an itemized payload and save it
  invscan payload "12A12345678||AB12||20250115||100000||5000||105000" -o code.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPayload,
}

// PayloadOutput represents the JSON output of a decoded payload.
type PayloadOutput struct {
	DocumentNumber string    `json:"document_number"`
	RandomCode     string    `json:"random_code"`
	IssueDate      time.Time `json:"issue_date"`
	TotalAmount    int64     `json:"total_amount_cents"`
	Itemized       bool      `json:"itemized"`
	PreTaxAmount   int64     `json:"pre_tax_amount_cents"`
	TaxAmount      int64     `json:"tax_amount_cents"`
	SellerID       string    `json:"seller_id,omitempty"`
	CarrierID      string    `json:"carrier_id,omitempty"`
	BuyerID        string    `json:"buyer_id,omitempty"`
	DonationCode   string    `json:"donation_code,omitempty"`
}

func init() {
	rootCmd.AddCommand(payloadCmd)

	payloadCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runPayload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payload-cmd")

	outputPath, _ := cmd.Flags().GetString("output")

	code, ok := payload.TryParse(args[0])
	if !ok {
		// Re-run the strict parser for the precise failure.
		_, err := payload.Parse(args[0])
		return handlePayloadError(err, log)
	}

	log.Info().
		Str("document_number", code.DocumentNumber).
		Int64("total_amount", code.TotalAmount).
		Bool("itemized", code.Itemized).
		Msg("Payload decoded")

	output := PayloadOutput{
		DocumentNumber: code.DocumentNumber,
		RandomCode:     code.RandomCode,
		IssueDate:      code.IssueDate,
		TotalAmount:    code.TotalAmount,
		Itemized:       code.Itemized,
		PreTaxAmount:   code.DerivedPreTax(),
		TaxAmount:      code.DerivedTax(),
		SellerID:       code.SellerID,
		CarrierID:      code.CarrierID,
		BuyerID:        code.BuyerID,
		DonationCode:   code.DonationCode,
	}

	return outputJSON(output, outputPath, log)
}

// handlePayloadError provides user-friendly messages for decode failures.
func handlePayloadError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Payload decode failed")

	switch {
	case errors.Is(err, payload.ErrMalformedPayload):
		return fmt.Errorf("malformed payload: expected at least 4 fields separated by \"||\"")
	case errors.Is(err, payload.ErrInvalidDocumentNumber):
		return fmt.Errorf("invalid document number: expected 2 digits, 1 uppercase letter and 8 digits (e.g. 12A12345678)")
	case errors.Is(err, payload.ErrInvalidRandomCode):
		return fmt.Errorf("invalid random code: expected exactly 4 alphanumeric characters")
	case errors.Is(err, payload.ErrInvalidDate):
		return fmt.Errorf("invalid issue date: expected YYYYMMDD, YYYY-MM-DD or YYYY/MM/DD")
	case errors.Is(err, payload.ErrInvalidAmount):
		return fmt.Errorf("invalid total amount: expected a positive integer in cents")
	default:
		return fmt.Errorf("payload decode failed: %w", err)
	}
}
