package paynet

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// State is the lifecycle position of a transaction.
type State string

const (
	StateNull       State = ""
	StateInit       State = "init"
	StateProcessing State = "processing"
	StateRedirect   State = "redirect"
	StateWait       State = "wait"
	StateEnd        State = "end"
)

// Status is the business status of a transaction.
type Status string

const (
	StatusNone       Status = ""
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusError      Status = "error"
)

// Legal edges. Null and init are never re-entered, end is reachable from every
// state and absorbing. Redirect and wait may fall back to processing when a status
// sub-query or callback reports it.
var transitions = map[State][]State{
	StateNull:       {StateInit, StateProcessing},
	StateInit:       {StateProcessing},
	StateProcessing: {StateProcessing, StateRedirect, StateWait},
	StateRedirect:   {StateRedirect, StateWait, StateProcessing},
	StateWait:       {StateProcessing, StateRedirect, StateWait},
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNull, StateInit, StateProcessing, StateRedirect, StateWait, StateEnd:
		return true
	}
	return false
}

func (s State) String() string {
	if s == StateNull {
		return "null"
	}
	return string(s)
}

// Customer holds the payer identity sent with initiating operations.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	IPAddress string
	Birthday  string
	SSN       string
}

// BillingAddress is the payer's billing address.
type BillingAddress struct {
	Country   string
	State     string
	City      string
	FirstLine string
	ZipCode   string
	Phone     string
	CellPhone string
}

// CreditCard holds raw card data. It is only needed by the initiating request.
type CreditCard struct {
	PrintedName string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVV2        string
}

// RecurrentCard references a card stored on the gateway side.
type RecurrentCard struct {
	GatewayID string
	CVV2      string
}

// QueryConfig is the per-merchant gateway configuration. It is read-only once built.
type QueryConfig struct {
	EndPoint    string
	Login       string
	SigningKey  string
	RedirectURL string
	CallbackURL string
}

// String never includes the signing key.
func (c QueryConfig) String() string {
	return fmt.Sprintf("QueryConfig{EndPoint:%s Login:%s RedirectURL:%s CallbackURL:%s}", c.EndPoint, c.Login, c.RedirectURL, c.CallbackURL)
}

// MarshalZerologObject lets the config be logged without leaking the signing key.
func (c QueryConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Str("end_point", c.EndPoint).Str("login", c.Login)
}

func (c QueryConfig) validate() error {
	var missing []string
	if strings.TrimSpace(c.EndPoint) == "" {
		missing = append(missing, "end_point")
	}
	if strings.TrimSpace(c.Login) == "" {
		missing = append(missing, "login")
	}
	if strings.TrimSpace(c.SigningKey) == "" {
		missing = append(missing, "signing_key")
	}
	if len(missing) > 0 {
		return &ConfigError{Message: "query config incomplete: " + strings.Join(missing, ", ") + " undefined"}
	}
	return nil
}

// Transaction is one payment attempt and the aggregate mutated by queries and callbacks.
// The caller owns it across round trips and must not process it concurrently.
type Transaction struct {
	merchantOrderID string

	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	SiteURL        string

	// ReferenceGatewayID identifies the original payment for capture/return.
	ReferenceGatewayID string
	Comment            string

	State  State
	Status Status
	Errors []error

	Customer        *Customer
	BillingAddress  *BillingAddress
	CreditCard      *CreditCard
	RecurrentCard   *RecurrentCard
	DestinationCard *RecurrentCard
}

// NewTransaction creates a transaction in the null state.
func NewTransaction(merchantOrderID string, amount decimal.Decimal, currency string) *Transaction {
	return &Transaction{
		merchantOrderID: strings.TrimSpace(merchantOrderID),
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(currency)),
	}
}

// MerchantOrderID returns the caller-assigned identifier.
func (t *Transaction) MerchantOrderID() string { return t.merchantOrderID }

func (t *Transaction) HasCustomer() bool        { return t.Customer != nil }
func (t *Transaction) HasBillingAddress() bool  { return t.BillingAddress != nil }
func (t *Transaction) HasCreditCard() bool      { return t.CreditCard != nil }
func (t *Transaction) HasRecurrentCard() bool   { return t.RecurrentCard != nil }
func (t *Transaction) HasDestinationCard() bool { return t.DestinationCard != nil }

// SetGatewayOrderID stores the gateway identifier. Empty values are ignored so it never reverts.
func (t *Transaction) SetGatewayOrderID(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	t.GatewayOrderID = id
}

// AddError appends err to the transaction error log.
func (t *Transaction) AddError(err error) {
	if err == nil {
		return
	}
	t.Errors = append(t.Errors, err)
}

// LastError returns the most recently recorded error, if any.
func (t *Transaction) LastError() error {
	if len(t.Errors) == 0 {
		return nil
	}
	return t.Errors[len(t.Errors)-1]
}

// IsEnded reports whether the transaction reached its terminal state.
func (t *Transaction) IsEnded() bool { return t.State == StateEnd }

// AmountInCents returns the amount encoding used in control codes.
func (t *Transaction) AmountInCents() string {
	return AmountInCents(t.Amount.String())
}

// AmountInCents splits amount at the dot and pads the fraction to two digits.
func AmountInCents(amount string) string {
	intPart, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	}
	return intPart + frac
}

func (t *Transaction) advance(next State) error {
	if next == StateEnd {
		t.State = StateEnd
		return nil
	}
	for _, allowed := range transitions[t.State] {
		if allowed == next {
			t.State = next
			return nil
		}
	}
	return &ConfigError{Message: fmt.Sprintf("illegal state transition %s -> %s", t.State, next)}
}

func (t *Transaction) finish(status Status) {
	t.State = StateEnd
	t.Status = status
}

// fail labels the transaction terminal and records err before it is returned to the caller.
func (t *Transaction) fail(err error) error {
	t.AddError(err)
	t.finish(StatusError)
	return err
}
