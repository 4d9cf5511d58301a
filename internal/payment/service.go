package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/paynet-bridge/internal/common"
	"github.com/noah-isme/paynet-bridge/internal/lock"
	"github.com/noah-isme/paynet-bridge/internal/obs"
	"github.com/noah-isme/paynet-bridge/internal/paynet"
	"github.com/noah-isme/paynet-bridge/internal/replay"
	"github.com/noah-isme/paynet-bridge/internal/session"
)

var (
	ErrNotFound = common.NewAppError("PAYMENT_NOT_FOUND", "payment not found", http.StatusNotFound, nil)
	ErrExists   = common.NewAppError("PAYMENT_EXISTS", "payment already started for this order", http.StatusConflict, nil)
	ErrBusy     = common.NewAppError("PAYMENT_BUSY", "payment is being processed", http.StatusConflict, nil)

	// ErrDuplicateCallback marks a server callback whose exact payload was already accepted.
	ErrDuplicateCallback = errors.New("payment: duplicate callback")
)

// Scheduler enqueues a delayed status poll for a merchant order.
type Scheduler interface {
	Schedule(ctx context.Context, orderID string, attempt int) error
}

// Service runs paynet workflows for API requests, gateway callbacks and worker polls.
// Every mutation of a payment happens under its distributed lock.
type Service struct {
	Config    paynet.QueryConfig
	Transport paynet.Transport
	Sessions  session.Store
	Locker    lock.Locker
	LockTTL   time.Duration
	Replay    replay.Guard
	Poller    Scheduler
	MaxPolls  int
	Logger    zerolog.Logger
	Validate  *validator.Validate
}

// View is the API representation of a payment session.
type View struct {
	MerchantOrderID string    `json:"merchantOrderId"`
	GatewayOrderID  string    `json:"gatewayOrderId,omitempty"`
	Operation       string    `json:"operation"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	State           string    `json:"state"`
	Status          string    `json:"status,omitempty"`
	NeededAction    string    `json:"neededAction,omitempty"`
	HTML            string    `json:"html,omitempty"`
	RedirectURL     string    `json:"redirectUrl,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newView(s *session.Snapshot) *View {
	return &View{
		MerchantOrderID: s.MerchantOrderID,
		GatewayOrderID:  s.GatewayOrderID,
		Operation:       s.Operation,
		Amount:          s.Amount.String(),
		Currency:        s.Currency,
		State:           s.State.String(),
		Status:          string(s.Status),
		NeededAction:    string(s.NeededAction),
		HTML:            s.HTML,
		RedirectURL:     s.RedirectURL,
		Errors:          s.Errors,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (s *Service) validate() *validator.Validate {
	if s.Validate == nil {
		s.Validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.Validate
}

func (s *Service) engineOptions() []paynet.Option {
	return []paynet.Option{paynet.WithLogger(s.Logger), paynet.WithMetrics(obs.PaynetMetrics{})}
}

// Start validates req, opens the session and runs the first workflow round.
func (s *Service) Start(ctx context.Context, req StartRequest) (*View, error) {
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Start")
	defer span.End()

	operation := strings.TrimSpace(req.Operation)
	if operation == "" {
		operation = paynet.OpSale.String()
	}
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("paynet.operation", operation),
			attribute.String("payment.start.result", result),
		)
		obs.IncCounter(obs.PaymentStartTotal, operation, result)
	}()

	if err := s.validate().StructCtx(ctx, req); err != nil {
		result = "invalid"
		return nil, invalidRequest(err)
	}
	op, err := paynet.ParseOperation(operation)
	if err != nil {
		result = "invalid"
		return nil, common.NewAppError("INVALID_REQUEST", err.Error(), http.StatusBadRequest, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		result = "invalid"
		return nil, common.NewAppError("INVALID_REQUEST", "amount must be a positive decimal", http.StatusBadRequest, err)
	}
	tx := req.transaction(amount)
	span.SetAttributes(attribute.String("paynet.merchant_order_id", tx.MerchantOrderID()))

	var view *View
	err = s.withLock(ctx, tx.MerchantOrderID(), func(ctx context.Context) error {
		snap := &session.Snapshot{}
		snap.Capture(op, tx)
		created, err := s.Sessions.Create(ctx, snap)
		if err != nil {
			return err
		}
		if !created {
			return ErrExists
		}
		proc := paynet.NewProcessor(s.Config, s.Transport, s.handlers(op, snap), s.engineOptions()...)
		_, runErr := proc.ExecuteWorkflow(ctx, op, tx, nil)
		view = newView(snap)
		return runErr
	})
	if err != nil {
		span.RecordError(err)
		return view, s.classify(err)
	}
	result = string(tx.Status)
	return view, nil
}

// Get returns the current view of a payment.
func (s *Service) Get(ctx context.Context, orderID string) (*View, error) {
	snap, err := s.Sessions.Load(ctx, orderID)
	if err != nil {
		return nil, s.classify(err)
	}
	return newView(snap), nil
}

// CustomerReturn applies the payload the customer's browser brought back from the
// gateway. A payment still waiting on 3-D-Secure continues its workflow with it.
func (s *Service) CustomerReturn(ctx context.Context, orderID string, values url.Values) (*View, error) {
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CustomerReturn")
	defer span.End()
	span.SetAttributes(attribute.String("paynet.merchant_order_id", orderID))

	data := paynet.ResponseFromValues(values)
	if strings.TrimSpace(data.Status()) == "" {
		return nil, common.NewAppError("INVALID_REQUEST", "return carries no gateway payload", http.StatusBadRequest, nil)
	}
	var view *View
	err := s.withLock(ctx, orderID, func(ctx context.Context) error {
		snap, op, tx, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		proc := paynet.NewProcessor(s.Config, s.Transport, s.handlers(op, snap), s.engineOptions()...)
		if tx.State == paynet.StateRedirect {
			_, err = proc.ExecuteWorkflow(ctx, op, tx, data)
		} else {
			_, err = proc.ProcessCustomerReturn(ctx, tx, data)
		}
		view = newView(snap)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return view, s.classify(err)
	}
	return view, nil
}

// ServerCallback applies a server-to-server notification. The payload itself names the
// merchant order. A payload already accepted returns ErrDuplicateCallback.
func (s *Service) ServerCallback(ctx context.Context, values url.Values) (*View, error) {
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.ServerCallback")
	defer span.End()

	data := paynet.ResponseFromValues(values)
	orderID := data.MerchantOrderID()
	if orderID == "" {
		return nil, common.NewAppError("CALLBACK_INVALID", "callback does not name a merchant order", http.StatusBadRequest, nil)
	}
	span.SetAttributes(attribute.String("paynet.merchant_order_id", orderID))

	key := s.Replay.Key(paynet.CallbackServer.String(), values)
	fresh, err := s.Replay.Acquire(ctx, key)
	if err != nil {
		return nil, s.classify(err)
	}
	if !fresh {
		if obs.CallbackReplayTotal != nil {
			obs.CallbackReplayTotal.Inc()
		}
		s.Logger.Info().Str("merchant_order_id", orderID).Msg("paynet_callback_replayed")
		return nil, ErrDuplicateCallback
	}

	var view *View
	err = s.withLock(ctx, orderID, func(ctx context.Context) error {
		snap, _, tx, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		proc := paynet.NewProcessor(s.Config, s.Transport, s.handlers(paynetOperation(snap), snap), s.engineOptions()...)
		_, err = proc.ProcessGatewayCallback(ctx, tx, data)
		view = newView(snap)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if paynet.ErrorCode(err) == "" {
			_ = s.Replay.Release(ctx, key)
		}
		return view, s.classify(err)
	}
	return view, nil
}

// Poll runs one status round for a payment the gateway has not decided yet. Stale or
// superseded polls are dropped.
func (s *Service) Poll(ctx context.Context, orderID string, attempt int) error {
	result := "skipped"
	defer func() { obs.IncCounter(obs.StatusPollTotal, result) }()

	return s.withLock(ctx, orderID, func(ctx context.Context) error {
		snap, op, tx, err := s.load(ctx, orderID)
		if errors.Is(err, ErrNotFound) {
			s.Logger.Info().Str("merchant_order_id", orderID).Msg("paynet_poll_session_gone")
			return nil
		}
		if err != nil {
			result = "error"
			return err
		}
		if attempt < snap.PollAttempts {
			return nil
		}
		proc := paynet.NewProcessor(s.Config, s.Transport, s.handlers(op, snap), s.engineOptions()...)
		switch tx.State {
		case paynet.StateProcessing, paynet.StateWait:
			_, err = proc.ExecuteWorkflow(ctx, op, tx, nil)
		case paynet.StateRedirect:
			// The customer has not come back; ask the gateway directly.
			_, err = proc.ExecuteQuery(ctx, paynet.OpStatus, tx)
		default:
			return nil
		}
		if err != nil {
			result = "error"
			s.Logger.Warn().Err(err).Str("merchant_order_id", orderID).Msg("paynet_poll_failed")
			// The transaction is already terminal and saved; retrying would not change it.
			if paynet.ErrorCode(err) != "" {
				return nil
			}
			return err
		}
		result = string(tx.Status)
		return nil
	})
}

// handlers persists every round and schedules polls while the gateway is still deciding.
func (s *Service) handlers(op paynet.Operation, snap *session.Snapshot) paynet.Handlers {
	schedule := func(ctx context.Context, t *paynet.Transaction, _ *paynet.Result) error {
		return s.schedule(ctx, snap)
	}
	return paynet.Handlers{
		SaveChanges: func(ctx context.Context, t *paynet.Transaction, res *paynet.Result) error {
			snap.Capture(op, t)
			snap.Record(res)
			if res != nil {
				switch res.NeededAction {
				case paynet.ActionStatusUpdate, paynet.ActionRedirect, paynet.ActionShowHTML:
					snap.PollAttempts++
				}
			}
			return s.Sessions.Save(ctx, snap)
		},
		ShowHTML:     schedule,
		Redirect:     schedule,
		StatusUpdate: schedule,
		FinishProcessing: func(ctx context.Context, t *paynet.Transaction, _ *paynet.Result) error {
			s.Logger.Info().
				Str("merchant_order_id", t.MerchantOrderID()).
				Str("gateway_order_id", t.GatewayOrderID).
				Str("status", string(t.Status)).
				Msg("payment_finished")
			return nil
		},
	}
}

func (s *Service) schedule(ctx context.Context, snap *session.Snapshot) error {
	if s.Poller == nil {
		return nil
	}
	if s.MaxPolls > 0 && snap.PollAttempts > s.MaxPolls {
		s.Logger.Warn().
			Str("merchant_order_id", snap.MerchantOrderID).
			Int("attempts", snap.PollAttempts).
			Msg("paynet_poll_budget_exhausted")
		return nil
	}
	return s.Poller.Schedule(ctx, snap.MerchantOrderID, snap.PollAttempts)
}

func (s *Service) load(ctx context.Context, orderID string) (*session.Snapshot, paynet.Operation, *paynet.Transaction, error) {
	snap, err := s.Sessions.Load(ctx, orderID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, 0, nil, ErrNotFound
	}
	if err != nil {
		return nil, 0, nil, err
	}
	op, tx, err := snap.Transaction()
	if err != nil {
		return nil, 0, nil, err
	}
	return snap, op, tx, nil
}

func (s *Service) withLock(ctx context.Context, orderID string, fn func(context.Context) error) error {
	return s.Locker.WithLock(ctx, orderID, s.LockTTL, fn)
}

func paynetOperation(snap *session.Snapshot) paynet.Operation {
	op, err := paynet.ParseOperation(snap.Operation)
	if err != nil {
		return paynet.OpSale
	}
	return op
}

// classify maps engine, lock and store errors onto API errors. Control code mismatches
// never echo the expected value back to the caller.
func (s *Service) classify(err error) error {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, session.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, lock.ErrBusy):
		return ErrBusy
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return common.NewAppError("TIMEOUT", "request timed out", http.StatusGatewayTimeout, err)
	}
	switch code := paynet.ErrorCode(err); code {
	case paynet.CodeValidation:
		return common.NewAppError(code, err.Error(), http.StatusUnprocessableEntity, err)
	case paynet.CodeInvalidControlCode:
		return common.NewAppError(code, "control code mismatch", http.StatusForbidden, err)
	case paynet.CodeGateway, paynet.CodeUnrecognizedResponse, paynet.CodeTransport:
		return common.NewAppError(code, err.Error(), http.StatusBadGateway, err)
	case paynet.CodeConfig:
		s.Logger.Error().Err(err).Msg("paynet_config_error")
		return common.NewAppError(code, "payment gateway misconfigured", http.StatusInternalServerError, err)
	}
	s.Logger.Error().Err(err).Msg("payment_internal_error")
	return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
}

func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewAppError("INVALID_REQUEST", "invalid request", http.StatusBadRequest, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	appErr := common.NewAppError("INVALID_REQUEST", "request failed validation", http.StatusBadRequest, err)
	appErr.Details = fields
	return appErr
}
