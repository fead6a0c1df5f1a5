package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/paycrypto"
	"github.com/vibast-solutions/ms-go-sponsorships/app/pricing"
)

const (
	CodeUSDTERC20 = "usdt_erc20"
	CodeUSDTTRC20 = "usdt_trc20"
)

// StablecoinNetwork describes one chain a USDT transfer may arrive on.
type StablecoinNetwork struct {
	Code                  string
	Network               string
	DisplayName           string
	URIScheme             string
	Address               string
	RequiredConfirmations int
	FeeRate               decimal.Decimal
	MinAmount             decimal.Decimal
	MaxAmount             decimal.Decimal
	ProcessingTime        string
	CaseInsensitiveAddr   bool
}

func ERC20Network() StablecoinNetwork {
	return StablecoinNetwork{
		Code:                  CodeUSDTERC20,
		Network:               "ERC20",
		DisplayName:           "Ethereum (ERC-20)",
		URIScheme:             "ethereum",
		Address:               "0x732b0b53435977b03c4cef6b7bdffc45e6ec44e6",
		RequiredConfirmations: 12,
		FeeRate:               mustDecimal("0.005"),
		MinAmount:             mustDecimal("1"),
		MaxAmount:             mustDecimal("10000"),
		ProcessingTime:        "5-30 minutes",
		CaseInsensitiveAddr:   true,
	}
}

func TRC20Network() StablecoinNetwork {
	return StablecoinNetwork{
		Code:                  CodeUSDTTRC20,
		Network:               "TRC20",
		DisplayName:           "Tron (TRC-20)",
		URIScheme:             "tron",
		Address:               "TDejRjcLQa92rrE6SB71LSC7J5VmHs35gq",
		RequiredConfirmations: 19,
		FeeRate:               mustDecimal("0.003"),
		MinAmount:             mustDecimal("1"),
		MaxAmount:             mustDecimal("50000"),
		ProcessingTime:        "1-5 minutes",
	}
}

type StablecoinProvider struct {
	network       StablecoinNetwork
	watcherSecret string
	ledger        LedgerClient
	methods       []Method
	scheme        paycrypto.Scheme
}

// NewStablecoinProvider builds the adapter for one network. ledger may be
// nil, in which case status polling reports the provider unavailable.
func NewStablecoinProvider(network StablecoinNetwork, watcherSecret string, ledger LedgerClient, disabled bool) *StablecoinProvider {
	method := Method{
		Code:           "usdt",
		ProviderCode:   network.Network,
		Name:           "USDT " + network.DisplayName,
		FeeRate:        network.FeeRate,
		MinAmount:      network.MinAmount,
		MaxAmount:      network.MaxAmount,
		ProcessingTime: network.ProcessingTime,
		Enabled:        !disabled,
		Currency:       "USDT",
	}
	return &StablecoinProvider{
		network:       network,
		watcherSecret: watcherSecret,
		ledger:        ledger,
		methods:       []Method{method},
		scheme: paycrypto.Scheme{
			Digest:  paycrypto.DigestSHA256,
			Framing: paycrypto.FramingHMAC,
		},
	}
}

func (p *StablecoinProvider) Code() string {
	return p.network.Code
}

func (p *StablecoinProvider) Name() string {
	return "USDT " + p.network.Network
}

func (p *StablecoinProvider) Methods() []Method {
	return p.methods
}

func (p *StablecoinProvider) expectedTotal(amount decimal.Decimal) decimal.Decimal {
	return pricing.Total(amount, pricing.Fee(amount, p.network.FeeRate))
}

func (p *StablecoinProvider) CreateOrder(_ context.Context, input *CreateInput) (*CreateOutput, error) {
	if _, err := checkCreate(p, input); err != nil {
		return nil, err
	}
	if p.network.Address == "" {
		return nil, ErrNotConfigured
	}

	total := p.expectedTotal(input.Amount)
	totalText := total.String()
	return &CreateOutput{
		ProviderReference:     input.OrderID,
		Network:               p.network.Network,
		Address:               p.network.Address,
		TotalAmount:           total,
		RequiredConfirmations: p.network.RequiredConfirmations,
		QRCode:                fmt.Sprintf("%s:%s?amount=%s&token=USDT", p.network.URIScheme, p.network.Address, totalText),
		Instructions: []string{
			"Open a wallet on " + p.network.DisplayName,
			"Send " + totalText + " USDT to " + p.network.Address,
			"Wait " + p.network.ProcessingTime + " for " + strconv.Itoa(p.network.RequiredConfirmations) + " confirmations",
			"The order completes automatically once confirmed",
		},
		ExpiresAt: input.ExpiresAt,
	}, nil
}

func (p *StablecoinProvider) QueryStatus(ctx context.Context, input *QueryInput) (*QueryResult, error) {
	if p.ledger == nil {
		return nil, fmt.Errorf("%w: no ledger client for %s", ErrProviderUnavailable, p.network.Network)
	}
	confirmation, err := p.ledger.GetConfirmations(ctx, p.network.Network, p.network.Address, p.expectedTotal(input.Amount))
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if confirmation.Count >= p.network.RequiredConfirmations {
		status = StatusCompleted
	}
	return &QueryResult{
		Status:        status,
		ProviderTxnID: confirmation.TxHash,
		Confirmations: confirmation.Count,
		Message:       fmt.Sprintf("%d/%d confirmations", confirmation.Count, p.network.RequiredConfirmations),
	}, nil
}

func (p *StablecoinProvider) ExtractOrderID(payload *CallbackPayload) (string, error) {
	if payload == nil {
		return "", ErrMalformedCallback
	}
	orderID := field(payload.Fields, "order_id")
	if orderID == "" {
		return "", fmt.Errorf("%w: missing order_id", ErrMalformedCallback)
	}
	return orderID, nil
}

func (p *StablecoinProvider) ValidateCallback(_ context.Context, payload *CallbackPayload) (*CallbackResult, error) {
	if payload == nil {
		return nil, ErrMalformedCallback
	}
	fields := payload.Fields
	for _, name := range []string{"order_id", "network", "address", "amount", "confirmations", "tx_hash", "signature"} {
		if strings.TrimSpace(fields[name]) == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedCallback, name)
		}
	}
	if !paycrypto.Verify(fields, fields["signature"], paycrypto.Secret{Key: p.watcherSecret}, p.scheme) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrInvalidSignature)
	}
	if !strings.EqualFold(fields["network"], p.network.Network) || !p.sameAddress(fields["address"]) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrMerchantMismatch)
	}

	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", ErrMalformedCallback, fields["amount"])
	}
	confirmations, err := strconv.Atoi(fields["confirmations"])
	if err != nil || confirmations < 0 {
		return nil, fmt.Errorf("%w: confirmations %q", ErrMalformedCallback, fields["confirmations"])
	}

	status := StatusPending
	switch {
	case strings.EqualFold(fields["status"], "failed"):
		status = StatusFailed
	case confirmations >= p.network.RequiredConfirmations:
		status = StatusCompleted
	}

	return &CallbackResult{
		OrderID:       fields["order_id"],
		Status:        status,
		Amount:        amount,
		ProviderTxnID: fields["tx_hash"],
		Confirmations: confirmations,
		Message:       fmt.Sprintf("%d/%d confirmations", confirmations, p.network.RequiredConfirmations),
	}, nil
}

// Cancel has nothing to call: an unpaid address request simply lapses.
func (p *StablecoinProvider) Cancel(context.Context, string, string) (*OperationResult, error) {
	return &OperationResult{Status: OperationSucceeded, Message: "address request released"}, nil
}

func (p *StablecoinProvider) Refund(context.Context, string, decimal.Decimal, string) (*OperationResult, error) {
	return unsupported("refund"), nil
}

func (p *StablecoinProvider) Acknowledge(outcome AckOutcome, _ string) Ack {
	switch outcome {
	case AckAccepted, AckDuplicate:
		return okAck("OK")
	case AckRejected:
		return Ack{StatusCode: http.StatusBadRequest, Body: "ERROR"}
	case AckBusy:
		return Ack{StatusCode: http.StatusConflict, Body: "ERROR"}
	default:
		return Ack{StatusCode: http.StatusInternalServerError, Body: "ERROR"}
	}
}

func (p *StablecoinProvider) sameAddress(address string) bool {
	if p.network.CaseInsensitiveAddr {
		return strings.EqualFold(address, p.network.Address)
	}
	return address == p.network.Address
}
