package paycrypto

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

type Framing int

const (
	// FramingKeySuffix appends "&key=<secret>" to the joined fields.
	FramingKeySuffix Framing = iota
	// FramingHashKeyIV wraps the joined fields as "HashKey=<key>&...&HashIV=<iv>".
	FramingHashKeyIV
	// FramingHMAC signs the joined fields with a keyed HMAC.
	FramingHMAC
)

type Encoding int

const (
	EncodingNone Encoding = iota
	// EncodingURLLower applies .NET compatible form encoding and lower-cases the result.
	EncodingURLLower
)

var DefaultExcludedFields = []string{"signature", "sign", "CheckMacValue"}

var ErrEmptySecret = errors.New("signing secret is empty")

// Secret carries the provider issued key material. IV is only used by
// FramingHashKeyIV.
type Secret struct {
	Key string
	IV  string
}

type Scheme struct {
	Digest              Digest
	Framing             Framing
	Encoding            Encoding
	CaseInsensitiveSort bool
	SkipEmpty           bool
	Exclude             []string
}

// Canonical returns the exact string that gets hashed for the given fields.
func (s Scheme) Canonical(fields map[string]string, secret Secret) string {
	excluded := s.Exclude
	if excluded == nil {
		excluded = DefaultExcludedFields
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if isExcluded(k, excluded) {
			continue
		}
		if s.SkipEmpty && v == "" {
			continue
		}
		keys = append(keys, k)
	}

	if s.CaseInsensitiveSort {
		sort.Slice(keys, func(i, j int) bool {
			li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
			if li == lj {
				return keys[i] < keys[j]
			}
			return li < lj
		})
	} else {
		sort.Strings(keys)
	}

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	joined := strings.Join(pairs, "&")

	switch s.Framing {
	case FramingHashKeyIV:
		joined = "HashKey=" + secret.Key + "&" + joined + "&HashIV=" + secret.IV
	case FramingKeySuffix:
		joined += "&key=" + secret.Key
	}

	if s.Encoding == EncodingURLLower {
		joined = dotNetURLEncode(joined)
	}

	return joined
}

// Sign produces an upper-case hex signature that does not depend on the
// insertion order of fields.
func Sign(fields map[string]string, secret Secret, scheme Scheme) (string, error) {
	if secret.Key == "" {
		return "", ErrEmptySecret
	}

	payload := scheme.Canonical(fields, secret)
	if scheme.Framing != FramingHMAC {
		return HashHex(scheme.Digest, payload)
	}

	newHash, err := scheme.Digest.hasher()
	if err != nil {
		return "", err
	}
	mac := hmac.New(newHash, []byte(secret.Key))
	_, _ = mac.Write([]byte(payload))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))), nil
}

// Verify recomputes the signature and compares it in constant time.
func Verify(fields map[string]string, signature string, secret Secret, scheme Scheme) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	expected, err := Sign(fields, secret, scheme)
	if err != nil {
		return false
	}
	return EqualHex(expected, signature)
}

// EqualHex compares two hex strings case-insensitively in constant time.
func EqualHex(a, b string) bool {
	return hmac.Equal([]byte(strings.ToUpper(a)), []byte(strings.ToUpper(b)))
}

func isExcluded(key string, excluded []string) bool {
	for _, e := range excluded {
		if key == e {
			return true
		}
	}
	return false
}

var dotNetUnescapes = strings.NewReplacer(
	"%2d", "-",
	"%5f", "_",
	"%2e", ".",
	"%21", "!",
	"%2a", "*",
	"%28", "(",
	"%29", ")",
	"~", "%7e",
)

func dotNetURLEncode(s string) string {
	return dotNetUnescapes.Replace(strings.ToLower(url.QueryEscape(s)))
}
