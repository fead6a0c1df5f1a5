package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Confirmation is what the ledger reports for an expected transfer.
type Confirmation struct {
	Count  int
	TxHash string
}

// LedgerClient reports how many confirmations a transfer of amount to
// address has on network.
type LedgerClient interface {
	GetConfirmations(ctx context.Context, network, address string, amount decimal.Decimal) (*Confirmation, error)
}

type HTTPLedgerClient struct {
	baseURL   string
	apiKey    string
	transport *Transport
}

func NewHTTPLedgerClient(baseURL, apiKey string, transport *Transport) *HTTPLedgerClient {
	return &HTTPLedgerClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		transport: transport,
	}
}

func (c *HTTPLedgerClient) GetConfirmations(ctx context.Context, network, address string, amount decimal.Decimal) (*Confirmation, error) {
	query := url.Values{}
	query.Set("network", network)
	query.Set("address", address)
	query.Set("amount", amount.String())
	endpoint := c.baseURL + "/v1/confirmations?" + query.Encode()

	resp, err := c.transport.Do(ctx, "confirmations", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Confirmations int    `json:"confirmations"`
		TxHash        string `json:"tx_hash"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unreadable ledger response", ErrProviderUnavailable)
	}
	return &Confirmation{Count: payload.Confirmations, TxHash: payload.TxHash}, nil
}
