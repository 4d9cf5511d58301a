package paynet_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

func TestBuildWireMapReportsEveryMissingField(t *testing.T) {
	tx := newSaleTransaction()
	tx.Description = ""
	tx.Customer.Email = ""
	tx.Customer.IPAddress = " "

	_, err := paynet.BuildWireMap(tx, testConfig(), paynet.Definitions[paynet.OpSale].Request)

	var verr *paynet.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"order_desc", "ipaddress", "email"}, verr.Missing)
	require.Empty(t, verr.Invalid)
	require.Equal(t, paynet.CodeValidation, paynet.ErrorCode(err))
}

func TestBuildWireMapMasksInvalidCardData(t *testing.T) {
	tx := newSaleTransaction()
	tx.CreditCard.Number = "4485 9408 2237 9131"
	tx.CreditCard.CVV2 = "08x"

	_, err := paynet.BuildWireMap(tx, testConfig(), paynet.Definitions[paynet.OpSale].Request)

	var verr *paynet.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Invalid, 2)
	require.Equal(t, "credit_card_number", verr.Invalid[0].Field)
	require.Equal(t, "************9131", verr.Invalid[0].Value)
	require.Equal(t, paynet.RuleCardNumber, verr.Invalid[0].Rule)
	require.Equal(t, "cvv2", verr.Invalid[1].Field)
	require.Equal(t, "***", verr.Invalid[1].Value)
	require.NotContains(t, err.Error(), "4485")
}

func TestBuildWireMapProjectsTransaction(t *testing.T) {
	wire, err := paynet.BuildWireMap(newSaleTransaction(), testConfig(), paynet.Definitions[paynet.OpSale].Request)
	require.NoError(t, err)

	require.Equal(t, testClientOrderID, wire["client_orderid"])
	require.Equal(t, "99.1", wire["amount"])
	require.Equal(t, "USD", wire["currency"])
	require.Equal(t, "4485940822379130", wire["credit_card_number"])
	require.Equal(t, "https://shop.example.com/return", wire["redirect_url"])
	require.NotContains(t, wire, "ssn")
	require.NotContains(t, wire, "cell_phone")
}

func TestBuildWireMapUnknownPath(t *testing.T) {
	fields := []paynet.FieldDefinition{{WireName: "x", Path: paynet.Path("order.nothing"), Required: true, Rule: paynet.RuleID}}

	_, err := paynet.BuildWireMap(newSaleTransaction(), testConfig(), fields)
	require.Equal(t, paynet.CodeConfig, paynet.ErrorCode(err))
}
