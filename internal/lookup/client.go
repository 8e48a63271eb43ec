// Package lookup queries the national invoice verification service to
// confirm a decoded code payload against the issuer's registered record.
// Verification is best-effort throughout the pipeline: any failure here is
// soft, and callers fall back to the unverified code data.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invscan/internal/logger"
	"invscan/pkg/models"
)

const (
	defaultTimeout = 10 * time.Second

	// qryAction is the service action that returns the itemized invoice
	// detail for a number and random code pair.
	qryAction = "qryInvDetail"
)

// Service verifies decoded invoice codes against the issuer registry.
type Service interface {
	// LookupInvoice fetches the registered record for an invoice number and
	// its 4-character random verification code.
	LookupInvoice(ctx context.Context, documentNumber, randomCode string) (*Result, error)
}

// Result is the registered invoice record returned by the service, with
// amounts normalized to minor units. TaxAmount is zero and PaymentMethod
// empty when the service omits them.
type Result struct {
	SellerName    string
	SellerID      string
	TotalAmount   int64
	TaxAmount     int64
	IssueDate     time.Time
	PaymentMethod string
	LineItems     []models.LineItem
}

// Config holds the verification service connection settings.
type Config struct {
	BaseURL string
	AppID   string
	APIKey  string
	Timeout time.Duration
}

// Client implements Service over the verification service's form-encoded
// HTTP API.
type Client struct {
	config Config
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a verification client. Both credentials are required;
// construction fails early rather than at the first query.
func NewClient(config Config) (*Client, error) {
	const op = "NewClient"

	if config.AppID == "" || config.APIKey == "" {
		return nil, &LookupError{Op: op, Err: ErrMissingCredential}
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    logger.WithComponent("lookup"),
	}, nil
}

// NewClientWithHTTPClient creates a verification client with a custom HTTP
// client, primarily for testing.
func NewClientWithHTTPClient(config Config, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(config)
	if err != nil {
		return nil, err
	}
	c.client = httpClient
	return c, nil
}

// apiResponse mirrors the service's JSON envelope. Numeric values arrive as
// strings in major units.
type apiResponse struct {
	Code          string `json:"code"`
	Msg           string `json:"msg"`
	InvNum        string `json:"invNum"`
	SellerName    string `json:"sellerName"`
	SellerBan     string `json:"sellerBan"`
	Amount        string `json:"amount"`
	TaxAmount     string `json:"taxAmount"`
	InvDate       string `json:"invDate"`
	PaymentMethod string `json:"paymentMethod"`
	Details       []struct {
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		UnitPrice   string `json:"unitPrice"`
		Amount      string `json:"amount"`
	} `json:"details"`
}

// LookupInvoice implements Service.
func (c *Client) LookupInvoice(ctx context.Context, documentNumber, randomCode string) (*Result, error) {
	const op = "LookupInvoice"

	c.log.Debug().
		Str("document_number", documentNumber).
		Msg("querying verification service")

	form := url.Values{}
	form.Set("action", qryAction)
	form.Set("invNum", documentNumber)
	form.Set("randomNumber", randomCode)
	form.Set("appID", c.config.AppID)
	form.Set("apiKey", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &LookupError{Op: op, Err: ErrUnauthorized, Details: resp.Status}
	case resp.StatusCode != http.StatusOK:
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: err.Error()}
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: "unparseable response body"}
	}

	switch payload.Code {
	case "200":
		// Registered record found.
	case "404":
		return nil, &LookupError{Op: op, Err: ErrNotFound, Details: payload.Msg}
	default:
		details := fmt.Sprintf("service code %s: %s", payload.Code, payload.Msg)
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: details}
	}

	result, err := payload.toResult()
	if err != nil {
		return nil, &LookupError{Op: op, Err: ErrLookupFailed, Details: err.Error()}
	}

	c.log.Info().
		Str("document_number", documentNumber).
		Str("seller", result.SellerName).
		Int64("total_amount", result.TotalAmount).
		Msg("invoice verified")

	return result, nil
}

func (r *apiResponse) toResult() (*Result, error) {
	total, err := parseMajorUnits(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("total amount %q: %w", r.Amount, err)
	}

	result := &Result{
		SellerName:    r.SellerName,
		SellerID:      r.SellerBan,
		TotalAmount:   total,
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
	}

	if r.TaxAmount != "" {
		tax, err := parseMajorUnits(r.TaxAmount)
		if err != nil {
			return nil, fmt.Errorf("tax amount %q: %w", r.TaxAmount, err)
		}
		result.TaxAmount = tax
	}

	if r.InvDate != "" {
		t, err := time.Parse("20060102", r.InvDate)
		if err != nil {
			return nil, fmt.Errorf("issue date %q: %w", r.InvDate, err)
		}
		result.IssueDate = t
	}

	for _, d := range r.Details {
		qty, err := strconv.ParseFloat(d.Quantity, 64)
		if err != nil || qty <= 0 {
			continue
		}
		unitPrice, err := parseMajorUnits(d.UnitPrice)
		if err != nil {
			continue
		}
		amount, err := parseMajorUnits(d.Amount)
		if err != nil {
			amount = int64(math.Round(qty * float64(unitPrice)))
		}
		result.LineItems = append(result.LineItems, models.LineItem{
			Name:      d.Description,
			Quantity:  qty,
			UnitPrice: unitPrice,
			Amount:    amount,
		})
	}

	return result, nil
}

// parseMajorUnits converts a major-unit decimal string to minor units.
func parseMajorUnits(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v * 100)), nil
}
