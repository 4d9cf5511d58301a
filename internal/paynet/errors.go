package paynet

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes exposed by Code() on every engine error.
const (
	CodeConfig               = "CONFIG_ERROR"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidControlCode   = "INVALID_CONTROL_CODE"
	CodeGateway              = "GATEWAY_ERROR"
	CodeUnrecognizedResponse = "UNRECOGNIZED_RESPONSE"
	CodeTransport            = "TRANSPORT_ERROR"
)

// ConfigError reports bad or missing setup, including unreachable states.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return "paynet: config: " + e.Message }

// Code returns the stable error code.
func (e *ConfigError) Code() string { return CodeConfig }

// FieldError describes one value that failed its format rule.
type FieldError struct {
	Field string
	Value string
	Rule  Rule
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s=%q violates %s", e.Field, e.Value, e.Rule)
}

// ValidationError batches every missing and malformed field found in one pass.
type ValidationError struct {
	Message string
	Missing []string
	Invalid []FieldError
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing or empty fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		invalid := make([]string, 0, len(e.Invalid))
		for _, fe := range e.Invalid {
			invalid = append(invalid, fe.String())
		}
		parts = append(parts, "invalid fields: "+strings.Join(invalid, "; "))
	}
	if len(parts) == 0 {
		return "paynet: validation failed"
	}
	return "paynet: " + strings.Join(parts, "; ")
}

// Code returns the stable error code.
func (e *ValidationError) Code() string { return CodeValidation }

func (e *ValidationError) empty() bool {
	return e.Message == "" && len(e.Missing) == 0 && len(e.Invalid) == 0
}

// InvalidControlCodeError carries the expected and received signatures, never the secret.
// Expected is a valid signature for the rejected payload, so Error leaves it out.
type InvalidControlCodeError struct {
	Expected string
	Received string
}

func (e *InvalidControlCodeError) Error() string {
	return fmt.Sprintf("paynet: invalid control code: received %q", e.Received)
}

// Code returns the stable error code.
func (e *InvalidControlCodeError) Code() string { return CodeInvalidControlCode }

// GatewayError is an error payload returned by the gateway or an unrecognized response.
type GatewayError struct {
	ErrorCode string
	Message   string
}

func (e *GatewayError) Error() string {
	if e.ErrorCode == "" {
		return "paynet: gateway error: " + e.Message
	}
	return fmt.Sprintf("paynet: gateway error %s: %s", e.ErrorCode, e.Message)
}

// Code returns the stable error code.
func (e *GatewayError) Code() string {
	if e.ErrorCode == CodeUnrecognizedResponse {
		return CodeUnrecognizedResponse
	}
	return CodeGateway
}

// TransportError wraps a network or protocol failure of the transport collaborator.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "paynet: transport failure"
	}
	return "paynet: transport: " + e.Err.Error()
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *TransportError) Code() string { return CodeTransport }

// ErrorCode extracts the stable code from any engine error, or "" for foreign errors.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
