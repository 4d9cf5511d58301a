package paynet

import (
	"context"
	"fmt"
)

// Workflow drives a multi-round operation such as a sale. It owns the initiating query
// and delegates to a status query and a customer return callback as the transaction
// advances. All three act on the same transaction, so state, status and errors set by a
// delegate are the workflow's own.
type Workflow struct {
	initial  *Query
	status   *Query
	callback *CallbackProcessor
	opts     options
}

// NewWorkflow builds the workflow for an initiating operation.
func NewWorkflow(op Operation, cfg QueryConfig, transport Transport, opts ...Option) (*Workflow, error) {
	def, err := Lookup(op)
	if err != nil {
		return nil, err
	}
	if !def.Initiating {
		return nil, &ConfigError{Message: def.Method + " cannot start a workflow"}
	}
	initial, err := NewQuery(op, cfg, transport, opts...)
	if err != nil {
		return nil, err
	}
	status, err := NewQuery(OpStatus, cfg, transport, opts...)
	if err != nil {
		return nil, err
	}
	callback, err := NewCallbackProcessor(CallbackCustomerReturn, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Workflow{initial: initial, status: status, callback: callback, opts: buildOptions(opts)}, nil
}

// Process advances t by one round. data carries the 3-D-Secure or form return payload and
// is required only in the redirect state. An ended transaction yields (nil, nil).
func (w *Workflow) Process(ctx context.Context, t *Transaction, data *Response) (*Result, error) {
	if t == nil {
		return nil, &ConfigError{Message: "transaction undefined"}
	}
	w.opts.logger.Debug().
		Str("operation", w.initial.def.Method).
		Str("merchant_order_id", t.MerchantOrderID()).
		Str("state", t.State.String()).
		Msg("paynet_workflow_round")

	switch t.State {
	case StateNull, StateInit:
		return w.initial.Process(ctx, t)
	case StateProcessing, StateWait:
		return w.status.Process(ctx, t)
	case StateRedirect:
		if data == nil || len(data.fields) == 0 {
			return nil, t.fail(&ConfigError{Message: "redirect state requires return data"})
		}
		if err := t.advance(StateWait); err != nil {
			return nil, t.fail(err)
		}
		return w.callback.Process(ctx, t, data)
	case StateEnd:
		return nil, nil
	default:
		return nil, t.fail(&ConfigError{Message: fmt.Sprintf("unknown state %q", string(t.State))})
	}
}
