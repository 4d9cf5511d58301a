// Package session persists transactions between gateway round trips.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

// ErrNotFound is returned when no snapshot exists for a merchant order id.
var ErrNotFound = errors.New("session: not found")

// Snapshot is the persisted form of a transaction. Raw card data and CVV values are
// never part of it: after the initiating request only gateway references are needed.
type Snapshot struct {
	MerchantOrderID    string                 `json:"merchantOrderId"`
	Operation          string                 `json:"operation"`
	GatewayOrderID     string                 `json:"gatewayOrderId,omitempty"`
	Amount             decimal.Decimal        `json:"amount"`
	Currency           string                 `json:"currency"`
	Description        string                 `json:"description,omitempty"`
	SiteURL            string                 `json:"siteUrl,omitempty"`
	ReferenceGatewayID string                 `json:"referenceGatewayId,omitempty"`
	Comment            string                 `json:"comment,omitempty"`
	State              paynet.State           `json:"state"`
	Status             paynet.Status          `json:"status"`
	Errors             []string               `json:"errors,omitempty"`
	Customer           *paynet.Customer       `json:"customer,omitempty"`
	BillingAddress     *paynet.BillingAddress `json:"billingAddress,omitempty"`
	RecurrentCardID    string                 `json:"recurrentCardId,omitempty"`
	DestinationCardID  string                 `json:"destinationCardId,omitempty"`

	// NeededAction, HTML and RedirectURL describe what the caller should do next.
	NeededAction paynet.NeededAction `json:"neededAction,omitempty"`
	HTML         string              `json:"html,omitempty"`
	RedirectURL  string              `json:"redirectUrl,omitempty"`

	PollAttempts int       `json:"pollAttempts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Capture copies the persistable parts of t into s, keeping s's bookkeeping fields.
// An ended transaction has no next step, so any pending HTML or redirect is dropped.
func (s *Snapshot) Capture(op paynet.Operation, t *paynet.Transaction) {
	s.MerchantOrderID = t.MerchantOrderID()
	s.Operation = op.String()
	s.GatewayOrderID = t.GatewayOrderID
	s.Amount = t.Amount
	s.Currency = t.Currency
	s.Description = t.Description
	s.SiteURL = t.SiteURL
	s.ReferenceGatewayID = t.ReferenceGatewayID
	s.Comment = t.Comment
	s.State = t.State
	s.Status = t.Status
	s.Errors = s.Errors[:0]
	for _, err := range t.Errors {
		s.Errors = append(s.Errors, errorMessage(err))
	}
	s.Customer = t.Customer
	s.BillingAddress = t.BillingAddress
	s.RecurrentCardID = ""
	if t.RecurrentCard != nil {
		s.RecurrentCardID = t.RecurrentCard.GatewayID
	}
	s.DestinationCardID = ""
	if t.DestinationCard != nil {
		s.DestinationCardID = t.DestinationCard.GatewayID
	}
	if t.State == paynet.StateEnd {
		s.NeededAction, s.HTML, s.RedirectURL = "", "", ""
	}
}

// errorMessage keeps the expected control code of a signature mismatch out of storage.
func errorMessage(err error) string {
	var mismatch *paynet.InvalidControlCodeError
	if errors.As(err, &mismatch) {
		return "paynet: invalid control code"
	}
	return err.Error()
}

// Record stores the next step a processing round asked for.
func (s *Snapshot) Record(res *paynet.Result) {
	if res == nil || res.NeededAction == "" || res.NeededAction == paynet.ActionNone {
		return
	}
	s.NeededAction = res.NeededAction
	s.HTML = res.Outcome.HTML
	s.RedirectURL = res.Outcome.RedirectURL
}

// Transaction rebuilds a transaction that can continue the workflow.
func (s Snapshot) Transaction() (paynet.Operation, *paynet.Transaction, error) {
	op, err := paynet.ParseOperation(s.Operation)
	if err != nil {
		return 0, nil, err
	}
	t := paynet.NewTransaction(s.MerchantOrderID, s.Amount, s.Currency)
	t.SetGatewayOrderID(s.GatewayOrderID)
	t.Description = s.Description
	t.SiteURL = s.SiteURL
	t.ReferenceGatewayID = s.ReferenceGatewayID
	t.Comment = s.Comment
	t.State = s.State
	t.Status = s.Status
	for _, msg := range s.Errors {
		t.AddError(errors.New(msg))
	}
	t.Customer = s.Customer
	t.BillingAddress = s.BillingAddress
	if s.RecurrentCardID != "" {
		t.RecurrentCard = &paynet.RecurrentCard{GatewayID: s.RecurrentCardID}
	}
	if s.DestinationCardID != "" {
		t.DestinationCard = &paynet.RecurrentCard{GatewayID: s.DestinationCardID}
	}
	return op, t, nil
}

// Store keeps snapshots in Redis as JSON, keyed by merchant order id.
type Store struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
	Now    func() time.Time
}

func (s Store) key(orderID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "paynet:session:"
	}
	return prefix + orderID
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create stores snap only when no session exists yet for its order id.
func (s Store) Create(ctx context.Context, snap *Snapshot) (bool, error) {
	now := s.now()
	snap.CreatedAt = now
	snap.UpdatedAt = now
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("session: encode: %w", err)
	}
	return s.R.SetNX(ctx, s.key(snap.MerchantOrderID), payload, s.TTL).Result()
}

// Save overwrites the snapshot and refreshes its TTL.
func (s Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = s.now()
	}
	snap.UpdatedAt = s.now()
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return s.R.Set(ctx, s.key(snap.MerchantOrderID), payload, s.TTL).Err()
}

// Load returns the snapshot for orderID or ErrNotFound.
func (s Store) Load(ctx context.Context, orderID string) (*Snapshot, error) {
	payload, err := s.R.Get(ctx, s.key(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", orderID, err)
	}
	return &snap, nil
}

// Delete drops the snapshot for orderID.
func (s Store) Delete(ctx context.Context, orderID string) error {
	return s.R.Del(ctx, s.key(orderID)).Err()
}
