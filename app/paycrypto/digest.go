package paycrypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

type Digest string

const (
	DigestMD5    Digest = "md5"
	DigestSHA1   Digest = "sha1"
	DigestSHA256 Digest = "sha256"
	DigestSHA512 Digest = "sha512"
)

func (d Digest) hasher() (func() hash.Hash, error) {
	switch Digest(strings.ToLower(string(d))) {
	case DigestMD5:
		return md5.New, nil
	case DigestSHA1:
		return sha1.New, nil
	case DigestSHA256, "":
		return sha256.New, nil
	case DigestSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported digest %q", string(d))
	}
}

// HashHex hashes s with the digest and returns upper-case hex.
func HashHex(d Digest, s string) (string, error) {
	newHash, err := d.hasher()
	if err != nil {
		return "", err
	}
	h := newHash()
	_, _ = h.Write([]byte(s))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}
