package mold

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
)

// Sign computes the request signature: HMAC-SHA256 of the signing string keyed
// with secretKey, base64 encoded and then query-escaped. The result can be
// appended to the wire query string as-is.
func Sign(r *Request, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(r.SigningString()))

	encoded := strings.TrimSpace(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return url.QueryEscape(encoded)
}
