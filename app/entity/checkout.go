package entity

import (
	"encoding/json"
	"time"
)

// Checkout is what a payer needs to complete an order: either a redirect
// with form fields or, for wallet payments, an address and instructions.
// It is persisted as the order's instructions JSON.
type Checkout struct {
	PaymentURL            string            `json:"payment_url,omitempty"`
	FormFields            map[string]string `json:"form_fields,omitempty"`
	QRCode                string            `json:"qr_code,omitempty"`
	Network               string            `json:"network,omitempty"`
	Address               string            `json:"address,omitempty"`
	TotalAmount           string            `json:"total_amount,omitempty"`
	RequiredConfirmations int               `json:"required_confirmations,omitempty"`
	Instructions          []string          `json:"instructions,omitempty"`
	ExpiresAt             time.Time         `json:"expires_at"`
}

// Checkout decodes the stored instructions. Orders created before the
// provider answered have none.
func (o *Order) Checkout() *Checkout {
	if o.InstructionsJSON == nil || *o.InstructionsJSON == "" {
		return nil
	}
	var checkout Checkout
	if err := json.Unmarshal([]byte(*o.InstructionsJSON), &checkout); err != nil {
		return nil
	}
	return &checkout
}
