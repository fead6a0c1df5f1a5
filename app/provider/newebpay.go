package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/paycrypto"
)

const CodeNewebPay = "newebpay"

var newebpayMethods = []Method{
	{Code: "credit_card", ProviderCode: "CREDIT", Name: "Credit card", FeeRate: mustDecimal("0.028"), MinAmount: mustDecimal("1"), MaxAmount: mustDecimal("99999"), ProcessingTime: "instant"},
	{Code: "webatm", ProviderCode: "WEBATM", Name: "Web ATM", FeeRate: mustDecimal("0.020"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("99999"), ProcessingTime: "instant"},
	{Code: "atm", ProviderCode: "VACC", Name: "ATM transfer", FeeRate: mustDecimal("0.015"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("99999"), ProcessingTime: "1-30 minutes"},
	{Code: "cvs", ProviderCode: "CVS", Name: "Convenience store code", FeeRate: mustDecimal("0.025"), MinAmount: mustDecimal("30"), MaxAmount: mustDecimal("20000"), ProcessingTime: "instant"},
	{Code: "barcode", ProviderCode: "BARCODE", Name: "Convenience store barcode", FeeRate: mustDecimal("0.025"), MinAmount: mustDecimal("20"), MaxAmount: mustDecimal("40000"), ProcessingTime: "instant"},
	{Code: "linepay", ProviderCode: "LINEPAY", Name: "LINE Pay", FeeRate: mustDecimal("0.030"), MinAmount: mustDecimal("1"), MaxAmount: mustDecimal("99999"), ProcessingTime: "instant"},
	{Code: "googlepay", ProviderCode: "ANDROIDPAY", Name: "Google Pay", FeeRate: mustDecimal("0.030"), MinAmount: mustDecimal("1"), MaxAmount: mustDecimal("99999"), ProcessingTime: "instant"},
	{Code: "samsungpay", ProviderCode: "SAMSUNGPAY", Name: "Samsung Pay", FeeRate: mustDecimal("0.030"), MinAmount: mustDecimal("1"), MaxAmount: mustDecimal("99999"), ProcessingTime: "instant"},
}

const newebpayVersion = "2.0"

type NewebPayConfig struct {
	BaseURL         string
	MerchantID      string
	HashKey         string
	HashIV          string
	NotifyURL       string
	ReturnURL       string
	ClientBackURL   string
	DisabledMethods []string
}

type NewebPayProvider struct {
	cfg       NewebPayConfig
	methods   []Method
	transport *Transport
	now       func() time.Time
}

func NewNewebPayProvider(cfg NewebPayConfig, transport *Transport) *NewebPayProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &NewebPayProvider{
		cfg:       cfg,
		methods:   methodsWith(newebpayMethods, cfg.DisabledMethods),
		transport: transport,
		now:       time.Now,
	}
}

func (p *NewebPayProvider) Code() string {
	return CodeNewebPay
}

func (p *NewebPayProvider) Name() string {
	return "NewebPay"
}

func (p *NewebPayProvider) Methods() []Method {
	return p.methods
}

// CreateOrder encrypts the trade info for an MPG form post.
func (p *NewebPayProvider) CreateOrder(_ context.Context, input *CreateInput) (*CreateOutput, error) {
	method, err := checkCreate(p, input)
	if err != nil {
		return nil, err
	}
	if !input.Amount.Equal(input.Amount.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount must be whole TWD", ErrAmountOutOfRange)
	}
	if p.cfg.MerchantID == "" || p.cfg.HashKey == "" {
		return nil, ErrNotConfigured
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = p.now()
	}

	info := url.Values{}
	info.Set("MerchantID", p.cfg.MerchantID)
	info.Set("RespondType", "JSON")
	info.Set("TimeStamp", strconv.FormatInt(createdAt.Unix(), 10))
	info.Set("Version", newebpayVersion)
	info.Set("MerchantOrderNo", input.OrderID)
	info.Set("Amt", input.Amount.StringFixed(0))
	info.Set("ItemDesc", limitRunes(input.ItemName, 50))
	info.Set("ReturnURL", p.cfg.ReturnURL)
	info.Set("NotifyURL", p.cfg.NotifyURL)
	info.Set("ClientBackURL", p.cfg.ClientBackURL)
	info.Set("Email", input.CustomerEmail)
	info.Set("LoginType", "0")
	info.Set(method.ProviderCode, "1")
	expiresAt := input.ExpiresAt
	switch method.Code {
	case "atm":
		expiresAt = createdAt.AddDate(0, 0, 3)
		info.Set("ExpireDate", expiresAt.In(taipei).Format("20060102"))
	case "cvs", "barcode":
		expiresAt = createdAt.AddDate(0, 0, 7)
		info.Set("ExpireDate", expiresAt.In(taipei).Format("20060102"))
	}

	tradeInfo, err := paycrypto.EncryptCBC([]byte(info.Encode()), []byte(p.cfg.HashKey), []byte(p.cfg.HashIV))
	if err != nil {
		return nil, err
	}
	tradeSha, err := p.tradeSha(tradeInfo)
	if err != nil {
		return nil, err
	}

	return &CreateOutput{
		PaymentURL: p.cfg.BaseURL + "/MPG/mpg_gateway",
		FormFields: map[string]string{
			"MerchantID": p.cfg.MerchantID,
			"TradeInfo":  tradeInfo,
			"TradeSha":   tradeSha,
			"Version":    newebpayVersion,
		},
		ProviderReference: input.OrderID,
		ExpiresAt:         expiresAt,
	}, nil
}

func (p *NewebPayProvider) QueryStatus(ctx context.Context, input *QueryInput) (*QueryResult, error) {
	amount := input.Amount.StringFixed(0)
	checkValue, err := paycrypto.HashHex(paycrypto.DigestSHA256, fmt.Sprintf(
		"IV=%s&Amt=%s&MerchantID=%s&MerchantOrderNo=%s&Key=%s",
		p.cfg.HashIV, amount, p.cfg.MerchantID, input.OrderID, p.cfg.HashKey,
	))
	if err != nil {
		return nil, err
	}

	resp, err := postForm(ctx, p.transport, "query", p.cfg.BaseURL+"/API/QueryTradeInfo", map[string]string{
		"MerchantID":      p.cfg.MerchantID,
		"Version":         "1.3",
		"RespondType":     "JSON",
		"CheckValue":      checkValue,
		"TimeStamp":       strconv.FormatInt(p.now().Unix(), 10),
		"MerchantOrderNo": input.OrderID,
		"Amt":             amount,
	})
	if err != nil {
		return nil, err
	}

	top, result, err := decodeNewebPayJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable query response", ErrProviderUnavailable)
	}
	if top["Status"] != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, top["Message"])
	}
	if orderID := field(result, "MerchantOrderNo"); orderID != input.OrderID {
		return nil, fmt.Errorf("%w: query answered for order %q", ErrProviderUnavailable, orderID)
	}

	var status Status
	switch result["TradeStatus"] {
	case "1":
		status = StatusCompleted
	case "2", "3":
		status = StatusFailed
	default:
		status = StatusPending
	}
	out := &QueryResult{Status: status, ProviderTxnID: result["TradeNo"], Message: "TradeStatus=" + result["TradeStatus"]}
	if raw := field(result, "Amt"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: Amt %q", ErrProviderUnavailable, raw)
		}
		out.Amount = amount
	}
	return out, nil
}

// ExtractOrderID decrypts TradeInfo only to read MerchantOrderNo. The value
// is not trusted until ValidateCallback succeeds.
func (p *NewebPayProvider) ExtractOrderID(payload *CallbackPayload) (string, error) {
	if payload == nil {
		return "", ErrMalformedCallback
	}
	if tradeInfo := payload.Fields["TradeInfo"]; tradeInfo != "" {
		_, result, err := p.decryptTradeInfo(tradeInfo)
		if err != nil {
			return "", err
		}
		if orderID := result["MerchantOrderNo"]; orderID != "" {
			return orderID, nil
		}
	}
	if orderID := field(payload.Fields, "MerchantOrderNo"); orderID != "" {
		return orderID, nil
	}
	return "", fmt.Errorf("%w: missing MerchantOrderNo", ErrMalformedCallback)
}

func (p *NewebPayProvider) ValidateCallback(_ context.Context, payload *CallbackPayload) (*CallbackResult, error) {
	if payload == nil {
		return nil, ErrMalformedCallback
	}
	tradeInfo := payload.Fields["TradeInfo"]
	tradeSha := payload.Fields["TradeSha"]
	if tradeInfo == "" || tradeSha == "" {
		return nil, fmt.Errorf("%w: missing TradeInfo or TradeSha", ErrMalformedCallback)
	}

	expected, err := p.tradeSha(tradeInfo)
	if err != nil {
		return nil, err
	}
	if !paycrypto.EqualHex(expected, tradeSha) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrInvalidSignature)
	}

	top, result, err := p.decryptTradeInfo(tradeInfo)
	if err != nil {
		return nil, err
	}
	if result["MerchantID"] != p.cfg.MerchantID {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrMerchantMismatch)
	}
	orderID := result["MerchantOrderNo"]
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing MerchantOrderNo", ErrMalformedCallback)
	}
	amount, err := decimal.NewFromString(result["Amt"])
	if err != nil {
		return nil, fmt.Errorf("%w: Amt %q", ErrMalformedCallback, result["Amt"])
	}

	var status Status
	switch top["Status"] {
	case "SUCCESS":
		status = StatusCompleted
	case "FAIL":
		status = StatusFailed
	default:
		status = StatusPending
	}

	out := &CallbackResult{
		OrderID:       orderID,
		Status:        status,
		Amount:        amount,
		ProviderTxnID: result["TradeNo"],
		Message:       top["Message"],
	}
	if paidAt, err := time.ParseInLocation("2006-01-02 15:04:05", result["PayTime"], taipei); err == nil && status == StatusCompleted {
		out.PaidAt = &paidAt
	}
	return out, nil
}

func (p *NewebPayProvider) Cancel(context.Context, string, string) (*OperationResult, error) {
	return unsupported("cancel"), nil
}

func (p *NewebPayProvider) Refund(context.Context, string, decimal.Decimal, string) (*OperationResult, error) {
	return unsupported("refund"), nil
}

func (p *NewebPayProvider) Acknowledge(outcome AckOutcome, _ string) Ack {
	if outcome == AckAccepted || outcome == AckDuplicate {
		return okAck("SUCCESS")
	}
	return okAck("FAIL")
}

func (p *NewebPayProvider) tradeSha(tradeInfo string) (string, error) {
	return paycrypto.HashHex(paycrypto.DigestSHA256, "HashKey="+p.cfg.HashKey+"&"+tradeInfo+"&HashIV="+p.cfg.HashIV)
}

// decryptTradeInfo returns the top level fields and the Result fields. When
// the body is flat both maps are the same.
func (p *NewebPayProvider) decryptTradeInfo(tradeInfo string) (map[string]string, map[string]string, error) {
	plain, err := paycrypto.DecryptCBC(tradeInfo, []byte(p.cfg.HashKey), []byte(p.cfg.HashIV))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAuthenticity, err)
	}
	top, result, err := decodeNewebPayJSON(plain)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: trade info is not json", ErrMalformedCallback)
	}
	return top, result, nil
}

func decodeNewebPayJSON(body []byte) (map[string]string, map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(body)))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, err
	}

	top := make(map[string]string, len(raw))
	for k, v := range raw {
		top[k] = stringify(v)
	}

	nested, ok := raw["Result"].(map[string]interface{})
	if !ok {
		return top, top, nil
	}
	result := make(map[string]string, len(nested))
	for k, v := range nested {
		result[k] = stringify(v)
	}
	return top, result, nil
}
