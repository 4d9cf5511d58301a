package paynet_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

func TestVerifyControlCodeRoundTrip(t *testing.T) {
	expected := sha1Hex("approved" + testPaynetOrderID + testClientOrderID + testSigningKey)

	resp := paynet.NewResponse(map[string]string{
		"status":            "approved",
		"paynet-order-id":   testPaynetOrderID,
		"merchant-order-id": testClientOrderID,
		"control":           expected,
	})
	require.Equal(t, expected, paynet.ResponseControlCode(resp, testSigningKey))
	require.NoError(t, paynet.VerifyControlCode(resp, testSigningKey))
}

func TestVerifyControlCodeMismatch(t *testing.T) {
	resp := paynet.NewResponse(map[string]string{
		"status":            "approved",
		"paynet-order-id":   testPaynetOrderID,
		"merchant-order-id": testClientOrderID,
		"control":           "0000000000000000000000000000000000000000",
	})

	err := paynet.VerifyControlCode(resp, testSigningKey)
	var cerr *paynet.InvalidControlCodeError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "0000000000000000000000000000000000000000", cerr.Received)
	require.Equal(t, paynet.ResponseControlCode(resp, testSigningKey), cerr.Expected)
	require.NotContains(t, err.Error(), testSigningKey)
	require.NotContains(t, err.Error(), cerr.Expected)
	require.Equal(t, paynet.CodeInvalidControlCode, paynet.ErrorCode(err))
}

func TestVerifyControlCodeIsCaseSensitive(t *testing.T) {
	expected := sha1Hex("approved" + testPaynetOrderID + testClientOrderID + testSigningKey)
	upper := []byte(expected)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 32
		}
	}
	resp := paynet.NewResponse(map[string]string{
		"status":         "approved",
		"orderid":        testPaynetOrderID,
		"client_orderid": testClientOrderID,
		"control":        string(upper),
	})
	require.Error(t, paynet.VerifyControlCode(resp, testSigningKey))
}

func TestControlCodeDeterministic(t *testing.T) {
	cfg := testConfig()
	order := []paynet.Path{paynet.PathEndPoint, paynet.PathMerchantOrderID, paynet.PathAmountInCents, paynet.PathEmail, paynet.PathSigningKey}

	tx := newSaleTransaction()
	first := paynet.ControlCode(tx, cfg, order)
	require.Equal(t, first, paynet.ControlCode(tx, cfg, order))
	require.Equal(t, sha1Hex("789"+testClientOrderID+"9910"+"vass.pupkin@example.com"+testSigningKey), first)

	tx.Customer.Email = "other@example.com"
	require.NotEqual(t, first, paynet.ControlCode(tx, cfg, order))
}

func TestControlCodeMissingValuesAreEmpty(t *testing.T) {
	cfg := testConfig()
	tx := newSaleTransaction()
	tx.Customer = nil

	order := []paynet.Path{paynet.PathMerchantOrderID, paynet.PathEmail, paynet.PathSigningKey}
	require.Equal(t, sha1Hex(testClientOrderID+testSigningKey), paynet.ControlCode(tx, cfg, order))
}
