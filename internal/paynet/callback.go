package paynet

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallbackKind distinguishes the customer browser return from the server-to-server notification.
type CallbackKind int

const (
	CallbackCustomerReturn CallbackKind = iota + 1
	CallbackServer
)

func (k CallbackKind) String() string {
	switch k {
	case CallbackCustomerReturn:
		return "customer_return"
	case CallbackServer:
		return "server_callback"
	default:
		return fmt.Sprintf("callback(%d)", int(k))
	}
}

var callbackAccessors = map[string]func(*Response) string{
	"status":         func(r *Response) string { return r.Status() },
	"orderid":        (*Response).GatewayOrderID,
	"client_orderid": (*Response).MerchantOrderID,
	"amount":         (*Response).Amount,
	"control":        func(r *Response) string { return strings.TrimSpace(r.Control()) },
}

// CallbackDefinition is the declarative description of one callback kind.
type CallbackDefinition struct {
	Kind            CallbackKind
	Required        []string
	AllowedStatuses []string
}

// CallbackDefinitions holds the table of every supported callback kind.
var CallbackDefinitions = map[CallbackKind]CallbackDefinition{
	CallbackCustomerReturn: {
		Kind:            CallbackCustomerReturn,
		Required:        []string{"status", "orderid", "client_orderid", "amount", "control"},
		AllowedStatuses: []string{"approved", "declined", "filtered", "processing", "error"},
	},
	CallbackServer: {
		Kind:            CallbackServer,
		Required:        []string{"status", "orderid", "client_orderid", "amount", "control"},
		AllowedStatuses: []string{"approved", "declined", "filtered", "processing", "error"},
	},
}

// CallbackProcessor applies an inbound gateway notification to a transaction.
type CallbackProcessor struct {
	def    CallbackDefinition
	config QueryConfig
	opts   options
}

// NewCallbackProcessor binds a callback kind to a merchant config.
func NewCallbackProcessor(kind CallbackKind, cfg QueryConfig, opts ...Option) (*CallbackProcessor, error) {
	def, ok := CallbackDefinitions[kind]
	if !ok {
		return nil, &ConfigError{Message: "unsupported callback kind " + kind.String()}
	}
	return &CallbackProcessor{def: def, config: cfg, opts: buildOptions(opts)}, nil
}

// Kind returns the callback kind handled.
func (p *CallbackProcessor) Kind() CallbackKind { return p.def.Kind }

// Process verifies and applies resp to t. On an ended transaction a verified callback is
// acknowledged without mutation. Any other returned error has been recorded on t, which is
// then ended with status error.
func (p *CallbackProcessor) Process(ctx context.Context, t *Transaction, resp *Response) (*Result, error) {
	if t == nil {
		return nil, &ConfigError{Message: "transaction undefined"}
	}
	_, span := otel.Tracer(tracerName).Start(ctx, "CallbackProcessor."+p.def.Kind.String())
	defer span.End()
	span.SetAttributes(
		attribute.String("paynet.callback_kind", p.def.Kind.String()),
		attribute.String("paynet.merchant_order_id", t.MerchantOrderID()),
	)

	logger := p.opts.logger.With().
		Str("callback_kind", p.def.Kind.String()).
		Str("merchant_order_id", t.MerchantOrderID()).
		Logger()

	if err := p.config.validate(); err != nil {
		return p.reject(span, logger, t, err)
	}
	if resp == nil {
		return p.reject(span, logger, t, &ValidationError{Message: "callback payload empty"})
	}

	if t.IsEnded() {
		if err := VerifyControlCode(resp, p.config.SigningKey); err != nil {
			span.RecordError(err)
			p.opts.metrics.ObserveCallback(p.def.Kind.String(), "rejected")
			logger.Warn().Err(err).Msg("paynet_callback_rejected")
			return nil, err
		}
		p.opts.metrics.ObserveCallback(p.def.Kind.String(), "ignored")
		logger.Info().Str("status", string(t.Status)).Msg("paynet_callback_after_end")
		return &Result{Callback: p.def.Kind, Response: resp, Outcome: Interpret(resp), NeededAction: ActionNone}, nil
	}

	if err := p.validate(t, resp); err != nil {
		return p.reject(span, logger, t, err)
	}
	if t.State == StateRedirect {
		if err := t.advance(StateWait); err != nil {
			return p.reject(span, logger, t, err)
		}
	}
	out := Interpret(resp)
	if err := out.apply(t); err != nil {
		return p.reject(span, logger, t, err)
	}

	span.SetAttributes(attribute.String("paynet.outcome", out.Kind.String()))
	p.opts.metrics.ObserveCallback(p.def.Kind.String(), out.Kind.String())
	logger.Info().
		Str("outcome", out.Kind.String()).
		Str("state", t.State.String()).
		Str("gateway_order_id", t.GatewayOrderID).
		Msg("paynet_callback_applied")
	res := newResult(0, resp, out)
	res.Callback = p.def.Kind
	return res, nil
}

func (p *CallbackProcessor) reject(span trace.Span, logger zerolog.Logger, t *Transaction, err error) (*Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, ErrorCode(err))
	p.opts.metrics.ObserveCallback(p.def.Kind.String(), "rejected")
	logger.Warn().Err(err).Str("code", ErrorCode(err)).Msg("paynet_callback_rejected")
	return nil, t.fail(err)
}

// validate checks, in order: signature, required fields, status, and that the callback belongs to t.
func (p *CallbackProcessor) validate(t *Transaction, resp *Response) error {
	if err := VerifyControlCode(resp, p.config.SigningKey); err != nil {
		return err
	}

	verr := &ValidationError{}
	for _, name := range p.def.Required {
		if callbackAccessors[name](resp) == "" {
			verr.Missing = append(verr.Missing, name)
		}
	}
	if !verr.empty() {
		verr.Message = "callback incomplete"
		return verr
	}

	if !p.allowed(resp.Status()) {
		return &ValidationError{Message: fmt.Sprintf("invalid callback status %q", resp.Status())}
	}
	if id := resp.MerchantOrderID(); id != t.MerchantOrderID() {
		return &ValidationError{Message: fmt.Sprintf("callback merchant order id %q does not match %q", id, t.MerchantOrderID())}
	}
	raw := resp.Amount()
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.Equal(t.Amount) {
		return &ValidationError{Message: fmt.Sprintf("callback amount %q does not match %s", raw, t.Amount.String())}
	}
	return nil
}

func (p *CallbackProcessor) allowed(status string) bool {
	for _, s := range p.def.AllowedStatuses {
		if s == status {
			return true
		}
	}
	return false
}
