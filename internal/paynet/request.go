package paynet

import "context"

// Request is a signed outbound query. Method and EndPoint route the request and are
// not part of the wire fields.
type Request struct {
	Operation Operation
	Method    string
	EndPoint  string
	Fields    map[string]string
}

// Transport delivers a request to the gateway and returns its parsed response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

var sensitiveFields = map[string]Rule{
	"credit_card_number": RuleCardNumber,
	"cvv2":               RuleCVV2,
	"control":            RuleCVV2,
}

// Redacted returns the fields with card data and the control code masked, for diagnostics.
func (r *Request) Redacted() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		if rule, ok := sensitiveFields[k]; ok {
			v = maskValue(rule, v)
		}
		out[k] = v
	}
	return out
}
