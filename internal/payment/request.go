package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

// StartRequest is the body of POST /payments. Format rules beyond presence are
// enforced by the paynet field rules so API and gateway agree on them.
type StartRequest struct {
	Operation          string `json:"operation" validate:"omitempty,oneof=sale preauth sale-form preauth-form capture return make-rebill transfer-by-ref"`
	MerchantOrderID    string `json:"merchantOrderId" validate:"required,max=128,printascii"`
	Amount             string `json:"amount" validate:"required,numeric"`
	Currency           string `json:"currency" validate:"required,len=3,alpha"`
	Description        string `json:"description" validate:"max=125"`
	SiteURL            string `json:"siteUrl" validate:"omitempty,url"`
	ReferenceGatewayID string `json:"referenceGatewayId" validate:"required_if=Operation capture,required_if=Operation return"`
	Comment            string `json:"comment" validate:"max=255"`

	Customer          *CustomerInput      `json:"customer"`
	BillingAddress    *AddressInput       `json:"billingAddress"`
	Card              *CardInput          `json:"card"`
	RecurrentCard     *RecurrentCardInput `json:"recurrentCard"`
	DestinationCardID string              `json:"destinationCardId"`
}

type CustomerInput struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	IPAddress string `json:"ipAddress" validate:"omitempty,ip"`
	Birthday  string `json:"birthday"`
	SSN       string `json:"ssn"`
}

type AddressInput struct {
	Country   string `json:"country" validate:"required,len=2,alpha"`
	State     string `json:"state"`
	City      string `json:"city" validate:"required"`
	FirstLine string `json:"address1" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	CellPhone string `json:"cellPhone"`
}

type CardInput struct {
	PrintedName string `json:"printedName" validate:"required"`
	Number      string `json:"number" validate:"required"`
	ExpireMonth string `json:"expireMonth" validate:"required"`
	ExpireYear  string `json:"expireYear" validate:"required"`
	CVV2        string `json:"cvv2" validate:"required"`
}

type RecurrentCardInput struct {
	ID   string `json:"id" validate:"required"`
	CVV2 string `json:"cvv2"`
}

func (r StartRequest) transaction(amount decimal.Decimal) *paynet.Transaction {
	t := paynet.NewTransaction(r.MerchantOrderID, amount, r.Currency)
	t.Description = strings.TrimSpace(r.Description)
	t.SiteURL = strings.TrimSpace(r.SiteURL)
	t.ReferenceGatewayID = strings.TrimSpace(r.ReferenceGatewayID)
	t.Comment = strings.TrimSpace(r.Comment)
	if c := r.Customer; c != nil {
		t.Customer = &paynet.Customer{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			IPAddress: c.IPAddress,
			Birthday:  c.Birthday,
			SSN:       c.SSN,
		}
	}
	if a := r.BillingAddress; a != nil {
		t.BillingAddress = &paynet.BillingAddress{
			Country:   strings.ToUpper(a.Country),
			State:     a.State,
			City:      a.City,
			FirstLine: a.FirstLine,
			ZipCode:   a.ZipCode,
			Phone:     a.Phone,
			CellPhone: a.CellPhone,
		}
	}
	if c := r.Card; c != nil {
		t.CreditCard = &paynet.CreditCard{
			PrintedName: c.PrintedName,
			Number:      c.Number,
			ExpireMonth: c.ExpireMonth,
			ExpireYear:  c.ExpireYear,
			CVV2:        c.CVV2,
		}
	}
	if rc := r.RecurrentCard; rc != nil {
		t.RecurrentCard = &paynet.RecurrentCard{GatewayID: rc.ID, CVV2: rc.CVV2}
	}
	if id := strings.TrimSpace(r.DestinationCardID); id != "" {
		t.DestinationCard = &paynet.RecurrentCard{GatewayID: id}
	}
	return t
}
