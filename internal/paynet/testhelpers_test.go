package paynet_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

const (
	testLogin         = "test-login"
	testEndPoint      = "789"
	testSigningKey    = "D5F82EC1-8575-4482-AD89-97X6X0X20X22"
	testClientOrderID = "CLIENT-112233"
	testPaynetOrderID = "PAYNET-112233"
)

func testConfig() paynet.QueryConfig {
	return paynet.QueryConfig{
		EndPoint:    testEndPoint,
		Login:       testLogin,
		SigningKey:  testSigningKey,
		RedirectURL: "https://shop.example.com/return",
		CallbackURL: "https://shop.example.com/callback",
	}
}

func newSaleTransaction() *paynet.Transaction {
	t := paynet.NewTransaction(testClientOrderID, decimal.RequireFromString("99.1"), "usd")
	t.Description = "This is test payment"
	t.Customer = &paynet.Customer{
		FirstName: "Vasya",
		LastName:  "Pupkin",
		Email:     "vass.pupkin@example.com",
		IPAddress: "127.0.0.1",
		Birthday:  "112681",
	}
	t.BillingAddress = &paynet.BillingAddress{
		Country:   "US",
		State:     "TX",
		City:      "Houston",
		FirstLine: "2704 Colonial Drive",
		ZipCode:   "1235",
		Phone:     "660-485-6353",
	}
	t.CreditCard = &paynet.CreditCard{
		PrintedName: "Vasya Pupkin",
		Number:      "4485 9408 2237 9130",
		ExpireMonth: "12",
		ExpireYear:  "14",
		CVV2:        "084",
	}
	return t
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// signedCallback returns a callback payload carrying a valid control code.
func signedCallback(status, gatewayID, merchantID string, extra map[string]string) *paynet.Response {
	fields := map[string]string{
		"status":         status,
		"orderid":        gatewayID,
		"merchant_order": merchantID,
		"client_orderid": merchantID,
		"amount":         "99.10",
		"control":        sha1Hex(status + gatewayID + merchantID + testSigningKey),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return paynet.NewResponse(fields)
}

type fakeTransport struct {
	mu        sync.Mutex
	responses []*paynet.Response
	err       error
	requests  []*paynet.Request
}

func (f *fakeTransport) Send(_ context.Context, req *paynet.Request) (*paynet.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeTransport) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
