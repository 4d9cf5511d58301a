package paynet

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ControlCode signs the values at order, concatenated without separator, with SHA-1.
// Missing values contribute an empty string. The signing key is part of order as PathSigningKey.
func ControlCode(t *Transaction, cfg QueryConfig, order []Path) string {
	var b strings.Builder
	for _, p := range order {
		value, _ := p.Resolve(t, cfg)
		b.WriteString(value)
	}
	return sha1Hex(b.String())
}

// ResponseControlCode is the signature expected on status responses and callbacks:
// SHA-1 of status + gateway order id + merchant order id + secret.
func ResponseControlCode(resp *Response, secret string) string {
	return sha1Hex(resp.Get("status") + resp.GatewayOrderID() + resp.MerchantOrderID() + secret)
}

// VerifyControlCode checks the control field carried by resp.
func VerifyControlCode(resp *Response, secret string) error {
	expected := ResponseControlCode(resp, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(resp.Control())) != 1 {
		return &InvalidControlCodeError{Expected: expected, Received: resp.Control()}
	}
	return nil
}

func sha1Hex(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
