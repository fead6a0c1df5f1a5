package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidState        = errors.New("invalid order state")
	ErrOrderBusy           = errors.New("order is being processed")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected the request")
	ErrAuthenticity        = errors.New("callback authenticity check failed")
)
