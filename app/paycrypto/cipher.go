package paycrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	errInvalidPadding = errors.New("invalid padding")
	errBlockSize      = errors.New("ciphertext is not a multiple of the block size")
)

// EncryptCBC encrypts plaintext with AES-CBC and PKCS#7 padding and returns
// base64 ciphertext. Key width picks AES-128/192/256; iv must be 16 bytes.
func EncryptCBC(plaintext, key, iv []byte) (string, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptCBC reverses EncryptCBC. Any malformed input yields a *CryptoError.
func DecryptCBC(ciphertext string, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, cryptoErr("decode", err)
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return nil, cryptoErr("decrypt", errBlockSize)
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)

	plain, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return nil, cryptoErr("unpad", err)
	}
	return plain, nil
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cryptoErr("key", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, cryptoErr("iv", fmt.Errorf("iv must be %d bytes, got %d", block.BlockSize(), len(iv)))
	}
	return block, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
