package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/paycrypto"
)

const CodeECPay = "ecpay"

var (
	taipei              = time.FixedZone("Asia/Taipei", 8*60*60)
	merchantTradeNoExpr = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)
)

var DefaultECPayPendingCodes = []string{"2", "10100073", "10200047", "10200095"}

// DefaultECPayQueryFailedCodes are the QueryTradeInfo TradeStatus values that
// close an order. Anything unrecognized keeps it pending.
var DefaultECPayQueryFailedCodes = []string{"10100012", "10100013", "10100014"}

var ecpayMethods = []Method{
	{Code: "credit_card", ProviderCode: "Credit", Name: "Credit card", FeeRate: mustDecimal("0.028"), MinAmount: mustDecimal("1"), MaxAmount: mustDecimal("20000"), ProcessingTime: "instant"},
	{Code: "atm", ProviderCode: "ATM", Name: "ATM transfer", FeeRate: mustDecimal("0.015"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("20000"), ProcessingTime: "within 3 days"},
	{Code: "cvs", ProviderCode: "CVS", Name: "Convenience store code", FeeRate: mustDecimal("0.025"), MinAmount: mustDecimal("30"), MaxAmount: mustDecimal("20000"), ProcessingTime: "within 7 days"},
	{Code: "barcode", ProviderCode: "BARCODE", Name: "Convenience store barcode", FeeRate: mustDecimal("0.025"), MinAmount: mustDecimal("20"), MaxAmount: mustDecimal("40000"), ProcessingTime: "within 7 days"},
	{Code: "webatm", ProviderCode: "WebATM", Name: "Web ATM", FeeRate: mustDecimal("0.020"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("20000"), ProcessingTime: "instant"},
}

type ECPayConfig struct {
	MerchantID       string
	HashKey          string
	HashIV           string
	BaseURL          string
	ReturnURL        string
	ClientBackURL    string
	PendingCodes     []string
	QueryFailedCodes []string
	DisabledMethods  []string
}

type ECPayProvider struct {
	cfg       ECPayConfig
	methods   []Method
	transport *Transport
	scheme    paycrypto.Scheme
	now       func() time.Time
}

func NewECPayProvider(cfg ECPayConfig, transport *Transport) *ECPayProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.PendingCodes) == 0 {
		cfg.PendingCodes = DefaultECPayPendingCodes
	}
	if len(cfg.QueryFailedCodes) == 0 {
		cfg.QueryFailedCodes = DefaultECPayQueryFailedCodes
	}
	return &ECPayProvider{
		cfg:       cfg,
		methods:   methodsWith(ecpayMethods, cfg.DisabledMethods),
		transport: transport,
		scheme: paycrypto.Scheme{
			Digest:              paycrypto.DigestSHA256,
			Framing:             paycrypto.FramingHashKeyIV,
			Encoding:            paycrypto.EncodingURLLower,
			CaseInsensitiveSort: true,
		},
		now: time.Now,
	}
}

func (p *ECPayProvider) Code() string {
	return CodeECPay
}

func (p *ECPayProvider) Name() string {
	return "ECPay"
}

func (p *ECPayProvider) Methods() []Method {
	return p.methods
}

func (p *ECPayProvider) secret() paycrypto.Secret {
	return paycrypto.Secret{Key: p.cfg.HashKey, IV: p.cfg.HashIV}
}

// CreateOrder signs an AioCheckOut form for the browser to post. No request
// is sent from here.
func (p *ECPayProvider) CreateOrder(_ context.Context, input *CreateInput) (*CreateOutput, error) {
	method, err := checkCreate(p, input)
	if err != nil {
		return nil, err
	}
	if !input.Amount.Equal(input.Amount.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount must be whole TWD", ErrAmountOutOfRange)
	}
	if !merchantTradeNoExpr.MatchString(input.OrderID) {
		return nil, fmt.Errorf("%w: merchant trade no must be alphanumeric and at most 20 characters", ErrProviderRejected)
	}
	if p.cfg.MerchantID == "" || p.cfg.HashKey == "" {
		return nil, ErrNotConfigured
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = p.now()
	}

	fields := map[string]string{
		"MerchantID":        p.cfg.MerchantID,
		"MerchantTradeNo":   input.OrderID,
		"MerchantTradeDate": createdAt.In(taipei).Format("2006/01/02 15:04:05"),
		"PaymentType":       "aio",
		"TotalAmount":       input.Amount.StringFixed(0),
		"TradeDesc":         limitRunes(input.Note, 200),
		"ItemName":          limitRunes(input.ItemName, 400),
		"ReturnURL":         p.cfg.ReturnURL,
		"OrderResultURL":    p.cfg.ClientBackURL,
		"ClientBackURL":     p.cfg.ClientBackURL,
		"ChoosePayment":     method.ProviderCode,
		"EncryptType":       "1",
		"NeedExtraPaidInfo": "N",
		"CustomField1":      limitRunes(input.CustomerName, 50),
		"CustomField2":      limitRunes(input.CustomerPhone, 50),
		"CustomField3":      limitRunes(input.CustomerEmail, 50),
	}
	if fields["TradeDesc"] == "" {
		fields["TradeDesc"] = "sponsorship"
	}
	if fields["ItemName"] == "" {
		fields["ItemName"] = "sponsorship"
	}
	expiresAt := input.ExpiresAt
	switch method.Code {
	case "atm":
		fields["ExpireDate"] = "3"
		fields["PaymentInfoURL"] = p.cfg.ReturnURL
		expiresAt = createdAt.AddDate(0, 0, 3)
	case "cvs", "barcode":
		fields["StoreExpireDate"] = "10080"
		fields["PaymentInfoURL"] = p.cfg.ReturnURL
		expiresAt = createdAt.Add(10080 * time.Minute)
	}

	mac, err := paycrypto.Sign(fields, p.secret(), p.scheme)
	if err != nil {
		return nil, err
	}
	fields["CheckMacValue"] = mac

	return &CreateOutput{
		PaymentURL:        p.cfg.BaseURL + "/Cashier/AioCheckOut/V5",
		FormFields:        fields,
		ProviderReference: input.OrderID,
		ExpiresAt:         expiresAt,
	}, nil
}

func (p *ECPayProvider) QueryStatus(ctx context.Context, input *QueryInput) (*QueryResult, error) {
	fields := map[string]string{
		"MerchantID":      p.cfg.MerchantID,
		"MerchantTradeNo": input.OrderID,
		"TimeStamp":       strconv.FormatInt(p.now().Unix(), 10),
	}
	mac, err := paycrypto.Sign(fields, p.secret(), p.scheme)
	if err != nil {
		return nil, err
	}
	fields["CheckMacValue"] = mac

	resp, err := postForm(ctx, p.transport, "query", p.cfg.BaseURL+"/Cashier/QueryTradeInfo/V5", fields)
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(string(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable query response", ErrProviderUnavailable)
	}
	result := flattenValues(values)
	signature := result["CheckMacValue"]
	if signature == "" {
		return nil, fmt.Errorf("%w: unsigned query response", ErrProviderUnavailable)
	}
	if !paycrypto.Verify(result, signature, p.secret(), p.scheme) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrInvalidSignature)
	}
	if orderID := field(result, "MerchantTradeNo"); orderID != input.OrderID {
		return nil, fmt.Errorf("%w: query answered for order %q", ErrProviderUnavailable, orderID)
	}
	tradeStatus := field(result, "TradeStatus")
	if tradeStatus == "" {
		return nil, fmt.Errorf("%w: missing TradeStatus", ErrProviderUnavailable)
	}

	// TradeStatus 0 is an unpaid order, still inside its payment window.
	status := StatusPending
	switch {
	case tradeStatus == "1":
		status = StatusCompleted
	case p.isFailedQueryCode(tradeStatus):
		status = StatusFailed
	}

	out := &QueryResult{
		Status:        status,
		ProviderTxnID: field(result, "TradeNo"),
		Message:       "TradeStatus=" + tradeStatus,
	}
	if raw := field(result, "TradeAmt"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: TradeAmt %q", ErrProviderUnavailable, raw)
		}
		out.Amount = amount
	}
	return out, nil
}

func (p *ECPayProvider) ExtractOrderID(payload *CallbackPayload) (string, error) {
	if payload == nil {
		return "", ErrMalformedCallback
	}
	orderID := field(payload.Fields, "MerchantTradeNo")
	if orderID == "" {
		return "", fmt.Errorf("%w: missing MerchantTradeNo", ErrMalformedCallback)
	}
	return orderID, nil
}

func (p *ECPayProvider) ValidateCallback(_ context.Context, payload *CallbackPayload) (*CallbackResult, error) {
	if payload == nil {
		return nil, ErrMalformedCallback
	}
	fields := payload.Fields
	for _, name := range []string{"MerchantID", "MerchantTradeNo", "TradeAmt", "RtnCode", "CheckMacValue"} {
		if strings.TrimSpace(fields[name]) == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedCallback, name)
		}
	}
	if fields["MerchantID"] != p.cfg.MerchantID {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrMerchantMismatch)
	}
	if !paycrypto.Verify(fields, fields["CheckMacValue"], p.secret(), p.scheme) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrInvalidSignature)
	}

	amount, err := decimal.NewFromString(fields["TradeAmt"])
	if err != nil {
		return nil, fmt.Errorf("%w: TradeAmt %q", ErrMalformedCallback, fields["TradeAmt"])
	}

	status := StatusFailed
	switch code := fields["RtnCode"]; {
	case code == "1":
		status = StatusCompleted
	case p.isPendingCode(code):
		status = StatusPending
	}

	result := &CallbackResult{
		OrderID:       field(fields, "MerchantTradeNo"),
		Status:        status,
		Amount:        amount,
		ProviderTxnID: fields["TradeNo"],
		Message:       fields["RtnMsg"],
	}
	if paidAt, err := time.ParseInLocation("2006/01/02 15:04:05", fields["PaymentDate"], taipei); err == nil && status == StatusCompleted {
		result.PaidAt = &paidAt
	}
	return result, nil
}

func (p *ECPayProvider) Cancel(context.Context, string, string) (*OperationResult, error) {
	return unsupported("cancel"), nil
}

func (p *ECPayProvider) Refund(context.Context, string, decimal.Decimal, string) (*OperationResult, error) {
	return unsupported("refund"), nil
}

func (p *ECPayProvider) Acknowledge(outcome AckOutcome, message string) Ack {
	switch outcome {
	case AckAccepted, AckDuplicate:
		return okAck("1|OK")
	}
	if message == "" {
		message = "error"
	}
	return okAck("0|" + message)
}

func (p *ECPayProvider) isPendingCode(code string) bool {
	for _, c := range p.cfg.PendingCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (p *ECPayProvider) isFailedQueryCode(code string) bool {
	for _, c := range p.cfg.QueryFailedCodes {
		if c == code {
			return true
		}
	}
	return false
}

func postForm(ctx context.Context, transport *Transport, operation, endpoint string, fields map[string]string) (*Response, error) {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	encoded := form.Encode()

	return transport.Do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

func flattenValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func limitRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
