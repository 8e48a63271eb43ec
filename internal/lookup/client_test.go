package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		AppID:   "test-app",
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"no app ID", Config{APIKey: "k"}},
		{"no API key", Config{AppID: "a"}},
		{"neither", Config{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.config); !errors.Is(err, ErrMissingCredential) {
				t.Errorf("NewClient error = %v, want %v", err, ErrMissingCredential)
			}
		})
	}
}

func TestLookupInvoiceSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostFormValue("action"); got != "qryInvDetail" {
			t.Errorf("action = %q, want qryInvDetail", got)
		}
		if got := r.PostFormValue("invNum"); got != "12A12345678" {
			t.Errorf("invNum = %q, want 12A12345678", got)
		}
		if got := r.PostFormValue("randomNumber"); got != "AB12" {
			t.Errorf("randomNumber = %q, want AB12", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": "200",
			"msg": "ok",
			"invNum": "12A12345678",
			"sellerName": "好鄰居咖啡股份有限公司",
			"sellerBan": "12345678",
			"amount": "1500.00",
			"taxAmount": "71.43",
			"invDate": "20250115",
			"paymentMethod": "credit card",
			"details": [
				{"description": "Coffee", "quantity": "2", "unitPrice": "60", "amount": "120"},
				{"description": "Bagel", "quantity": "1", "unitPrice": "45", "amount": "45"}
			]
		}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12")
	if err != nil {
		t.Fatalf("LookupInvoice: %v", err)
	}
	if result.SellerName != "好鄰居咖啡股份有限公司" {
		t.Errorf("SellerName = %q", result.SellerName)
	}
	if result.SellerID != "12345678" {
		t.Errorf("SellerID = %q, want 12345678", result.SellerID)
	}
	if result.TotalAmount != 150000 {
		t.Errorf("TotalAmount = %d, want 150000 cents", result.TotalAmount)
	}
	if result.TaxAmount != 7143 {
		t.Errorf("TaxAmount = %d, want 7143 cents", result.TaxAmount)
	}
	if result.PaymentMethod != "credit card" {
		t.Errorf("PaymentMethod = %q, want credit card", result.PaymentMethod)
	}
	want := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !result.IssueDate.Equal(want) {
		t.Errorf("IssueDate = %v, want %v", result.IssueDate, want)
	}
	if len(result.LineItems) != 2 {
		t.Fatalf("LineItems = %v, want two", result.LineItems)
	}
	if result.LineItems[0].Name != "Coffee" || result.LineItems[0].UnitPrice != 6000 || result.LineItems[0].Amount != 12000 {
		t.Errorf("first item = %+v", result.LineItems[0])
	}
}

func TestLookupInvoiceOptionalFieldsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "200", "sellerName": "店家", "sellerBan": "87654321", "amount": "85.00", "invDate": "20250115"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12")
	if err != nil {
		t.Fatalf("LookupInvoice: %v", err)
	}
	if result.TaxAmount != 0 {
		t.Errorf("TaxAmount = %d, want 0 when the service omits it", result.TaxAmount)
	}
	if result.PaymentMethod != "" {
		t.Errorf("PaymentMethod = %q, want empty when the service omits it", result.PaymentMethod)
	}
}

func TestLookupInvoiceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "404", "msg": "no such invoice"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want %v", err, ErrNotFound)
	}
}

func TestLookupInvoiceUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want %v", err, ErrUnauthorized)
	}
}

func TestLookupInvoiceServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "500", "msg": "internal error"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12"); !errors.Is(err, ErrLookupFailed) {
		t.Errorf("error = %v, want %v", err, ErrLookupFailed)
	}
}

func TestLookupInvoiceContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.LookupInvoice(ctx, "12A12345678", "AB12"); !errors.Is(err, ErrLookupFailed) {
		t.Errorf("error = %v, want a wrapped %v", err, ErrLookupFailed)
	}
}

func TestLookupInvoiceUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.LookupInvoice(context.Background(), "12A12345678", "AB12"); !errors.Is(err, ErrLookupFailed) {
		t.Errorf("error = %v, want %v", err, ErrLookupFailed)
	}
}
