package textproc

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"invscan/pkg/models"
)

const (
	// merchantScanLines bounds the header scan: merchant names appear at the
	// top of receipts, anything deeper is noise.
	merchantScanLines = 5

	minMerchantRunes = 2
	maxMerchantRunes = 50

	minItemLineRunes = 3
	maxItemLineRunes = 50
)

// Document number patterns, ordered per type; the first matching pattern
// wins and its capture group carries the bare number. Invoice types use the
// strict national shape, receipts and international invoices use looser
// label-anchored alphanumerics.
var documentNumberPatterns = map[models.DocumentType][]*regexp.Regexp{
	models.ElectronicInvoice: {
		regexp.MustCompile(`(?:發票號碼|發票號)[\s:：#]*(\d{2}[A-Z]\d{8})`),
		regexp.MustCompile(`\b(\d{2}[A-Z]\d{8})\b`),
	},
	models.TraditionalInvoice: {
		regexp.MustCompile(`(?:發票號碼|發票號)[\s:：#]*(\d{2}[A-Z]\d{8})`),
		regexp.MustCompile(`\b(\d{2}[A-Z]\d{8})\b`),
	},
	models.Receipt: {
		regexp.MustCompile(`(?i)(?:receipt\s*(?:no|number|#)?|單號|編號)[\s.:：#]*([A-Za-z0-9-]{6,20})`),
	},
	models.InternationalInvoice: {
		regexp.MustCompile(`(?i)(?:invoice\s*(?:no|number|#)?|inv)[\s.:：#]*([A-Za-z0-9-]{4,24})`),
	},
}

// Date shapes tried in order against the whole text; only the first shape
// that matches is parsed. Guessing a default date when none parses would be
// worse than reporting absence.
var dateShapes = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`),
	regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006年01月02日",
	"2006年1月2日",
}

// Label-keyword amount patterns. Source documents vary wildly in labeling,
// so each field carries several synonymous labels; the first match wins and
// its trailing numeric group is the amount.
var totalAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:總計|總金額|合計)[\s:：]*(?:NT\$|\$)?\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+amount|amount\s+due|total)\b[\s:：]*(?:NT\$|\$)?\s*(\d[\d,]*(?:\.\d{1,2})?)`),
}

var taxAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:稅額|營業稅)[\s:：]*(?:NT\$|\$)?\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)\b(?:sales\s+tax|tax|vat)\b[\s:：]*(?:NT\$|\$)?\s*(\d[\d,]*(?:\.\d{1,2})?)`),
}

// Item line shapes, tried in order: "name qty price", "name price",
// "name x qty price".
var (
	itemNameQtyPriceRe  = regexp.MustCompile(`^(.+?)\s+(\d+(?:\.\d+)?)\s+(\d[\d,]*(?:\.\d{1,2})?)$`)
	itemNamePriceRe     = regexp.MustCompile(`^(.+?)\s+(\d[\d,]*(?:\.\d{1,2})?)$`)
	itemNameXQtyPriceRe = regexp.MustCompile(`^(.+?)\s*[xX×]\s*(\d+(?:\.\d+)?)\s+(\d[\d,]*(?:\.\d{1,2})?)$`)
)

// Lines containing these never yield items or merchant names: aggregates,
// document structure, payment footers.
var structuralKeywords = []string{
	"總計", "合計", "小計", "稅額", "營業稅", "統編", "統一編號", "發票", "收據", "日期", "載具",
	"total", "subtotal", "tax", "vat", "invoice", "receipt", "date", "no.", "number",
	"change", "找零", "cash", "card", "payment", "現金", "信用卡",
}

var (
	sellerIDRe      = regexp.MustCompile(`(?:統編|統一編號|[Ss]eller\s*ID)[\s:：]*(\d{8})`)
	sellerAddressRe = regexp.MustCompile(`(?:地址|[Aa]ddress)[\s:：]*([^\n]{4,80})`)

	currencyMarkerRe = regexp.MustCompile(`(?i)(NT\$|\$|元|\d+\.\d{2})`)
	numericOnlyRe    = regexp.MustCompile(`^[\d\s.,:/\-]+$`)
)

// paymentMethodTokens maps known payment tokens, in match priority order, to
// canonical names.
var paymentMethodTokens = []struct {
	token     string
	canonical string
}{
	{"現金", "cash"},
	{"cash", "cash"},
	{"信用卡", "credit card"},
	{"credit card", "credit card"},
	{"card", "credit card"},
	{"line pay", "line pay"},
	{"apple pay", "apple pay"},
	{"悠遊卡", "easycard"},
	{"easycard", "easycard"},
	{"街口", "jkopay"},
	{"jkopay", "jkopay"},
}

// Extract pulls structured invoice fields out of classified text. It never
// fails: each field is extracted independently and is simply absent when no
// rule matches.
func Extract(text string, docType models.DocumentType) models.ExtractedDetails {
	lines := strings.Split(text, "\n")

	details := models.ExtractedDetails{
		MerchantName: models.UnknownMerchant,
		RawText:      text,
	}

	if name := extractMerchantName(lines); name != "" {
		details.MerchantName = name
	}
	details.DocumentNumber = extractDocumentNumber(text, docType)
	details.IssueDate = extractIssueDate(text)
	details.TotalAmount = extractAmount(text, totalAmountPatterns)
	details.TaxAmount = extractAmount(text, taxAmountPatterns)
	details.LineItems = extractLineItems(lines)

	if m := sellerIDRe.FindStringSubmatch(text); m != nil {
		details.SellerID = m[1]
	}
	if m := sellerAddressRe.FindStringSubmatch(text); m != nil {
		details.SellerAddress = strings.TrimSpace(m[1])
	}
	details.PaymentMethod = extractPaymentMethod(text)

	return details
}

// extractMerchantName scans the top of the document for the first plausible
// store name: not empty, not numeric noise, not a structural line, between 2
// and 50 characters, and free of currency amounts.
func extractMerchantName(lines []string) string {
	limit := merchantScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || numericOnlyRe.MatchString(line) || hasStructuralKeyword(line) {
			continue
		}
		n := len([]rune(line))
		if n < minMerchantRunes || n > maxMerchantRunes {
			continue
		}
		if currencyMarkerRe.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

func extractDocumentNumber(text string, docType models.DocumentType) string {
	for _, re := range documentNumberPatterns[docType] {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractIssueDate(text string) *time.Time {
	for _, shape := range dateShapes {
		match := shape.FindString(text)
		if match == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, match); err == nil {
				return &t
			}
		}
		// Only the first matching shape is considered; an unparseable match
		// means the field is absent, never a guessed default.
		return nil
	}
	return nil
}

func extractAmount(text string, patterns []*regexp.Regexp) *int64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if cents, ok := parseAmountCents(m[1]); ok {
				return &cents
			}
		}
	}
	return nil
}

// extractLineItems walks every line, skipping aggregates and structure, and
// tries the three item shapes in order on each remaining candidate.
func extractLineItems(lines []string) []models.LineItem {
	var items []models.LineItem
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || hasStructuralKeyword(line) {
			continue
		}
		n := len([]rune(line))
		if n < minItemLineRunes || n > maxItemLineRunes || !containsDigit(line) {
			continue
		}
		if item, ok := matchItemLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func matchItemLine(line string) (models.LineItem, bool) {
	if m := itemNameQtyPriceRe.FindStringSubmatch(line); m != nil {
		return buildItem(m[1], m[2], m[3])
	}
	if m := itemNamePriceRe.FindStringSubmatch(line); m != nil {
		// Two tokens only: quantity defaults to 1.
		return buildItem(m[1], "1", m[2])
	}
	if m := itemNameXQtyPriceRe.FindStringSubmatch(line); m != nil {
		return buildItem(m[1], m[2], m[3])
	}
	return models.LineItem{}, false
}

func buildItem(name, qty, price string) (models.LineItem, bool) {
	name = strings.TrimSpace(name)
	quantity, err := strconv.ParseFloat(qty, 64)
	if err != nil || quantity <= 0 {
		return models.LineItem{}, false
	}
	unitPrice, ok := parseAmountCents(price)
	if !ok || unitPrice <= 0 || name == "" {
		return models.LineItem{}, false
	}
	return models.LineItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    int64(math.Round(quantity * float64(unitPrice))),
	}, true
}

func extractPaymentMethod(text string) string {
	lower := strings.ToLower(text)
	for _, pm := range paymentMethodTokens {
		if strings.Contains(lower, pm.token) {
			return pm.canonical
		}
	}
	return ""
}

// parseAmountCents parses a printed decimal amount into minor units.
func parseAmountCents(s string) (int64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(v * 100)), true
}

func hasStructuralKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range structuralKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
