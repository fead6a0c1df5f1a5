package provider

import "errors"

var (
	ErrProviderNotSupported = errors.New("provider is not supported")
	ErrMethodNotSupported   = errors.New("payment method is not supported")
	ErrAmountOutOfRange     = errors.New("amount is outside the method bounds")
	ErrNotConfigured        = errors.New("provider is not configured")

	// ErrAuthenticity is returned for every callback whose origin cannot be
	// proven. The cause is wrapped alongside it.
	ErrAuthenticity      = errors.New("callback authenticity check failed")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMerchantMismatch  = errors.New("merchant id mismatch")
	ErrMalformedCallback = errors.New("malformed callback payload")

	ErrProviderRejected    = errors.New("provider rejected the request")
	ErrProviderUnavailable = errors.New("provider unavailable")
)
