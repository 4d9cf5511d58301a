package paynet

import (
	"context"
	"fmt"
)

// HandlerFunc reacts to a processed round.
type HandlerFunc func(ctx context.Context, t *Transaction, res *Result) error

// Handlers are the caller hooks fired after each round. Nil handlers are skipped.
// SaveChanges runs first after every round, including failed ones, so a terminal
// transaction can be persisted before CatchError sees the error.
type Handlers struct {
	SaveChanges      HandlerFunc
	ShowHTML         HandlerFunc
	Redirect         HandlerFunc
	StatusUpdate     HandlerFunc
	FinishProcessing HandlerFunc
	// CatchError may swallow the error by returning nil.
	CatchError func(ctx context.Context, t *Transaction, err error) error
}

// Processor is the entry point for merchant code: it runs workflows, single queries
// and callbacks and dispatches the result to Handlers by its needed action.
type Processor struct {
	config    QueryConfig
	transport Transport
	handlers  Handlers
	opts      []Option
}

func NewProcessor(cfg QueryConfig, transport Transport, handlers Handlers, opts ...Option) *Processor {
	return &Processor{config: cfg, transport: transport, handlers: handlers, opts: opts}
}

// ExecuteWorkflow advances the workflow for op by one round.
func (p *Processor) ExecuteWorkflow(ctx context.Context, op Operation, t *Transaction, data *Response) (*Result, error) {
	w, err := NewWorkflow(op, p.config, p.transport, p.opts...)
	if err != nil {
		return nil, err
	}
	res, err := w.Process(ctx, t, data)
	return p.dispatch(ctx, t, res, err)
}

// ExecuteQuery runs a single operation outside any workflow.
func (p *Processor) ExecuteQuery(ctx context.Context, op Operation, t *Transaction) (*Result, error) {
	q, err := NewQuery(op, p.config, p.transport, p.opts...)
	if err != nil {
		return nil, err
	}
	res, err := q.Process(ctx, t)
	return p.dispatch(ctx, t, res, err)
}

// ProcessCustomerReturn applies the payload posted to redirect_url when the customer comes back.
func (p *Processor) ProcessCustomerReturn(ctx context.Context, t *Transaction, data *Response) (*Result, error) {
	return p.processCallback(ctx, CallbackCustomerReturn, t, data)
}

// ProcessGatewayCallback applies a server_callback_url notification.
func (p *Processor) ProcessGatewayCallback(ctx context.Context, t *Transaction, data *Response) (*Result, error) {
	return p.processCallback(ctx, CallbackServer, t, data)
}

func (p *Processor) processCallback(ctx context.Context, kind CallbackKind, t *Transaction, data *Response) (*Result, error) {
	cb, err := NewCallbackProcessor(kind, p.config, p.opts...)
	if err != nil {
		return nil, err
	}
	res, err := cb.Process(ctx, t, data)
	return p.dispatch(ctx, t, res, err)
}

func (p *Processor) dispatch(ctx context.Context, t *Transaction, res *Result, err error) (*Result, error) {
	if err != nil {
		if p.handlers.SaveChanges != nil && t != nil {
			if saveErr := p.handlers.SaveChanges(ctx, t, res); saveErr != nil {
				err = fmt.Errorf("%w (save changes: %v)", err, saveErr)
			}
		}
		if p.handlers.CatchError != nil {
			return res, p.handlers.CatchError(ctx, t, err)
		}
		return res, err
	}
	if res == nil {
		return nil, nil
	}
	if err := call(ctx, p.handlers.SaveChanges, t, res); err != nil {
		return res, fmt.Errorf("save changes: %w", err)
	}
	var next HandlerFunc
	switch res.NeededAction {
	case ActionShowHTML:
		next = p.handlers.ShowHTML
	case ActionRedirect:
		next = p.handlers.Redirect
	case ActionStatusUpdate:
		next = p.handlers.StatusUpdate
	case ActionFinish:
		next = p.handlers.FinishProcessing
	}
	if err := call(ctx, next, t, res); err != nil {
		return res, fmt.Errorf("%s handler: %w", res.NeededAction, err)
	}
	return res, nil
}

func call(ctx context.Context, h HandlerFunc, t *Transaction, res *Result) error {
	if h == nil {
		return nil
	}
	return h(ctx, t, res)
}
