package paycrypto

import (
	"errors"
	"fmt"
)

var ErrCrypto = errors.New("crypto error")

// CryptoError reports malformed key material or ciphertext.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrCrypto, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCrypto, e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

func (e *CryptoError) Is(target error) bool {
	return target == ErrCrypto
}

func cryptoErr(op string, err error) error {
	return &CryptoError{Op: op, Err: err}
}
