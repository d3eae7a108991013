// Package gateway implements the signed redirect/callback protocol of the
// external payment gateway: payload construction, canonical amount
// formatting, and HMAC signature generation and verification.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Field is one signed key/value pair. Signatures are computed over an
// explicit ordered field list, never over the full inbound payload.
type Field struct {
	Name  string
	Value string
}

// SignatureInput builds the deterministic comma-joined key=value string the
// gateway signs. Field order must match exactly between initiation and
// verification.
func SignatureInput(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + "=" + f.Value
	}
	return strings.Join(parts, ",")
}

// Sign computes the base64-encoded HMAC-SHA256 of data under secret.
func Sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignFields signs the ordered field list.
func SignFields(fields []Field, secret string) string {
	return Sign(SignatureInput(fields), secret)
}

// Verify recomputes the signature over fields and compares it with the
// provided one. Wrong-length and mismatched signatures are both reported as
// a plain false; callers surface a single "invalid signature" failure.
func Verify(fields []Field, secret, signature string) bool {
	expected := SignFields(fields, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
