package paynet

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "paynet"

// NeededAction tells the caller what to do after a round trip.
type NeededAction string

const (
	ActionNone         NeededAction = "none"
	ActionShowHTML     NeededAction = "show_html"
	ActionRedirect     NeededAction = "redirect"
	ActionStatusUpdate NeededAction = "status_update"
	ActionFinish       NeededAction = "finish"
)

// Result is what one processing round produced. Callback is set instead of Operation
// when the round applied an inbound callback.
type Result struct {
	Operation    Operation
	Callback     CallbackKind
	Response     *Response
	Outcome      Outcome
	NeededAction NeededAction
}

func newResult(op Operation, resp *Response, out Outcome) *Result {
	return &Result{Operation: op, Response: resp, Outcome: out, NeededAction: neededAction(out)}
}

func neededAction(out Outcome) NeededAction {
	switch out.Kind {
	case OutcomeRedirect:
		if out.HTML != "" {
			return ActionShowHTML
		}
		return ActionRedirect
	case OutcomeProcessing:
		return ActionStatusUpdate
	default:
		return ActionFinish
	}
}

// Metrics receives one observation per query and per callback.
type Metrics interface {
	ObserveQuery(operation, outcome string)
	ObserveCallback(kind, result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveQuery(string, string)    {}
func (nopMetrics) ObserveCallback(string, string) {}

// Option customises queries and callback processors.
type Option func(*options)

type options struct {
	logger  zerolog.Logger
	metrics Metrics
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Query runs one outbound operation against a transaction: validate, build, sign,
// send, interpret and transition.
type Query struct {
	def       Definition
	config    QueryConfig
	transport Transport
	opts      options
}

// NewQuery binds an operation to a merchant config and a transport.
func NewQuery(op Operation, cfg QueryConfig, transport Transport, opts ...Option) (*Query, error) {
	def, err := Lookup(op)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, &ConfigError{Message: "transport undefined"}
	}
	return &Query{def: def, config: cfg, transport: transport, opts: buildOptions(opts)}, nil
}

// Operation returns the operation this query sends.
func (q *Query) Operation() Operation { return q.def.Operation }

// Build validates the transaction and returns the signed request without sending it.
func (q *Query) Build(t *Transaction) (*Request, error) {
	if err := q.config.validate(); err != nil {
		return nil, err
	}
	verr := &ValidationError{Missing: q.def.missingEntities(t)}
	wire, err := BuildWireMap(t, q.config, q.def.Request)
	if err != nil {
		var fieldErr *ValidationError
		if !errors.As(err, &fieldErr) {
			return nil, err
		}
		verr.Missing = append(verr.Missing, fieldErr.Missing...)
		verr.Invalid = append(verr.Invalid, fieldErr.Invalid...)
	}
	if !verr.empty() {
		return nil, verr
	}
	wire["control"] = ControlCode(t, q.config, q.def.Signature)
	return &Request{
		Operation: q.def.Operation,
		Method:    q.def.Method,
		EndPoint:  q.config.EndPoint,
		Fields:    wire,
	}, nil
}

// Process runs the operation. An ended transaction is left untouched and yields (nil, nil).
// Any returned error has already been recorded on t, which is then ended with status error.
func (q *Query) Process(ctx context.Context, t *Transaction) (*Result, error) {
	if t == nil {
		return nil, &ConfigError{Message: "transaction undefined"}
	}
	if t.IsEnded() {
		return nil, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Query."+q.def.Method)
	defer span.End()
	span.SetAttributes(
		attribute.String("paynet.operation", q.def.Method),
		attribute.String("paynet.merchant_order_id", t.MerchantOrderID()),
	)

	logger := q.opts.logger.With().
		Str("operation", q.def.Method).
		Str("merchant_order_id", t.MerchantOrderID()).
		Logger()

	result, err := q.process(ctx, t, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		q.opts.metrics.ObserveQuery(q.def.Method, "failure")
		logger.Warn().Err(err).Str("code", ErrorCode(err)).Msg("paynet_query_failed")
		return result, t.fail(err)
	}

	span.SetAttributes(attribute.String("paynet.outcome", result.Outcome.Kind.String()))
	q.opts.metrics.ObserveQuery(q.def.Method, result.Outcome.Kind.String())
	logger.Info().
		Str("outcome", result.Outcome.Kind.String()).
		Str("state", t.State.String()).
		Str("gateway_order_id", t.GatewayOrderID).
		Msg("paynet_query_completed")
	return result, nil
}

func (q *Query) process(ctx context.Context, t *Transaction, logger zerolog.Logger) (*Result, error) {
	req, err := q.Build(t)
	if err != nil {
		return nil, err
	}
	if q.def.Initiating {
		switch t.State {
		case StateNull, StateInit:
			if err := t.advance(StateProcessing); err != nil {
				return nil, err
			}
			t.Status = StatusProcessing
		default:
			return nil, &ConfigError{Message: fmt.Sprintf("%s cannot start from state %s", q.def.Method, t.State)}
		}
	}

	logger.Debug().Interface("fields", req.Redacted()).Msg("paynet_query_sent")
	resp, err := q.transport.Send(ctx, req)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return nil, err
		}
		return nil, &TransportError{Err: err}
	}
	if resp == nil {
		return nil, &TransportError{Err: errors.New("empty response")}
	}

	if err := q.checkResponse(t, resp); err != nil {
		return &Result{Operation: q.def.Operation, Response: resp}, err
	}
	out := Interpret(resp)
	if err := out.apply(t); err != nil {
		return &Result{Operation: q.def.Operation, Response: resp, Outcome: out}, err
	}
	return newResult(q.def.Operation, resp, out), nil
}

// checkResponse rejects responses that do not belong to this operation and transaction.
// Error payloads skip the checks and are classified by Interpret.
func (q *Query) checkResponse(t *Transaction, resp *Response) error {
	switch resp.Type() {
	case TypeError, TypeValidationError:
		return nil
	}
	if resp.Type() != q.def.SuccessType {
		return &ValidationError{Message: fmt.Sprintf("unexpected response type %q, expected %q", resp.Type(), q.def.SuccessType)}
	}
	if missing := resp.missing(q.def.ResponseFields); len(missing) > 0 {
		return &ValidationError{Message: "response incomplete", Missing: missing}
	}
	if id := resp.MerchantOrderID(); id != t.MerchantOrderID() {
		return &ValidationError{Message: fmt.Sprintf("response merchant order id %q does not match %q", id, t.MerchantOrderID())}
	}
	if q.def.SignedResponse {
		return VerifyControlCode(resp, q.config.SigningKey)
	}
	return nil
}
