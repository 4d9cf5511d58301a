package paynet

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
)

// Response types sent by the gateway.
const (
	TypeAsyncResponse     = "async-response"
	TypeAsyncFormResponse = "async-form-response"
	TypeStatusResponse    = "status-response"
	TypeSyncResponse      = "sync-response"
	TypeValidationError   = "validation-error"
	TypeError             = "error"
)

// Response is an immutable view over a received key/value payload, used for both
// query responses and callbacks.
type Response struct {
	fields map[string]string
}

// NewResponse copies fields into a new Response.
func NewResponse(fields map[string]string) *Response {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[strings.TrimSpace(k)] = v
	}
	return &Response{fields: copied}
}

// ResponseFromValues builds a Response from form or query values, keeping the first value per key.
func ResponseFromValues(values url.Values) *Response {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return NewResponse(fields)
}

// ParseResponse decodes a url-encoded gateway body. Pairs may be separated by '&' or newlines.
func ParseResponse(body []byte) (*Response, error) {
	normalized := bytes.TrimSpace(body)
	normalized = bytes.ReplaceAll(normalized, []byte("\r\n"), []byte("&"))
	normalized = bytes.ReplaceAll(normalized, []byte("\n"), []byte("&"))
	values, err := url.ParseQuery(string(normalized))
	if err != nil {
		return nil, fmt.Errorf("paynet: parse response: %w", err)
	}
	return ResponseFromValues(values), nil
}

// Get returns the raw value for key.
func (r *Response) Get(key string) string {
	if r == nil {
		return ""
	}
	return r.fields[key]
}

// Has reports whether key is present with a non-blank value.
func (r *Response) Has(key string) bool {
	return strings.TrimSpace(r.Get(key)) != ""
}

// Fields returns a copy of the payload.
func (r *Response) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func (r *Response) first(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(r.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

func (r *Response) Type() string   { return strings.ToLower(r.first("type")) }
func (r *Response) Status() string { return strings.ToLower(r.first("status")) }

func (r *Response) GatewayOrderID() string {
	return r.first("paynet-order-id", "orderid", "paynet_order_id")
}

func (r *Response) MerchantOrderID() string {
	return r.first("merchant-order-id", "client_orderid", "client-orderid", "merchant_order")
}

func (r *Response) SerialNumber() string { return r.first("serial-number") }
func (r *Response) Amount() string       { return r.first("amount") }
func (r *Response) Control() string      { return r.Get("control") }
func (r *Response) HTML() string         { return r.first("html") }
func (r *Response) RedirectURL() string  { return r.first("redirect-url") }
func (r *Response) ErrorMessage() string { return r.first("error-message", "error_message") }
func (r *Response) ErrorCode() string    { return r.first("error-code", "error_code") }

func (r *Response) IsApproved() bool   { return r.Status() == "approved" }
func (r *Response) IsDeclined() bool   { return r.Status() == "declined" || r.Status() == "filtered" }
func (r *Response) IsProcessing() bool { return r.Status() == "processing" }

// HasRedirect reports whether the customer must be sent to a 3-D-Secure page or form.
func (r *Response) HasRedirect() bool { return r.HTML() != "" || r.RedirectURL() != "" }

// HasError reports an error payload. A decline reason attached to a decided status is not one.
func (r *Response) HasError() bool {
	switch r.Type() {
	case TypeError, TypeValidationError:
		return true
	}
	if r.Status() == "error" {
		return true
	}
	if r.ErrorMessage() == "" && r.ErrorCode() == "" {
		return false
	}
	return !r.IsApproved() && !r.IsDeclined()
}

// GatewayError converts the error payload into a GatewayError, or nil without one.
func (r *Response) GatewayError() *GatewayError {
	if !r.HasError() {
		return nil
	}
	message := r.ErrorMessage()
	if message == "" {
		message = "gateway reported an error"
	}
	return &GatewayError{ErrorCode: r.ErrorCode(), Message: message}
}

// missing returns the keys from expected that are absent in the payload.
func (r *Response) missing(expected []string) []string {
	var out []string
	for _, key := range expected {
		if !r.Has(key) {
			out = append(out, key)
		}
	}
	return out
}
