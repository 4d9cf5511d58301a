package paynet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

type handlerLog struct {
	calls  []string
	caught error
}

func (l *handlerLog) handlers() paynet.Handlers {
	record := func(name string) paynet.HandlerFunc {
		return func(context.Context, *paynet.Transaction, *paynet.Result) error {
			l.calls = append(l.calls, name)
			return nil
		}
	}
	return paynet.Handlers{
		SaveChanges:      record("save"),
		ShowHTML:         record("show_html"),
		Redirect:         record("redirect"),
		StatusUpdate:     record("status_update"),
		FinishProcessing: record("finish"),
		CatchError: func(_ context.Context, _ *paynet.Transaction, err error) error {
			l.calls = append(l.calls, "catch")
			l.caught = err
			return nil
		},
	}
}

func TestProcessorDispatchesByNeededAction(t *testing.T) {
	ctx := context.Background()
	log := &handlerLog{}
	transport := &fakeTransport{responses: []*paynet.Response{
		asyncResponse("processing", map[string]string{"html": "<form/>"}),
	}}
	p := paynet.NewProcessor(testConfig(), transport, log.handlers())

	tx := newSaleTransaction()
	_, err := p.ExecuteWorkflow(ctx, paynet.OpSale, tx, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"save", "show_html"}, log.calls)

	_, err = p.ProcessCustomerReturn(ctx, tx, signedCallback("approved", testPaynetOrderID, testClientOrderID, nil))
	require.NoError(t, err)
	require.Equal(t, []string{"save", "show_html", "save", "finish"}, log.calls)
	require.Equal(t, paynet.StatusApproved, tx.Status)
}

func TestProcessorFormRedirect(t *testing.T) {
	log := &handlerLog{}
	transport := &fakeTransport{responses: []*paynet.Response{paynet.NewResponse(map[string]string{
		"type":              paynet.TypeAsyncFormResponse,
		"paynet-order-id":   testPaynetOrderID,
		"merchant-order-id": testClientOrderID,
		"serial-number":     "1",
		"redirect-url":      "https://gate.example.com/paynet/form/1",
	})}}
	p := paynet.NewProcessor(testConfig(), transport, log.handlers())

	tx := newSaleTransaction()
	tx.CreditCard = nil
	res, err := p.ExecuteWorkflow(context.Background(), paynet.OpSaleForm, tx, nil)
	require.NoError(t, err)
	require.Equal(t, paynet.ActionRedirect, res.NeededAction)
	require.Equal(t, "https://gate.example.com/paynet/form/1", res.Outcome.RedirectURL)
	require.Equal(t, []string{"save", "redirect"}, log.calls)
	require.Equal(t, paynet.StateRedirect, tx.State)
}

func TestProcessorCatchError(t *testing.T) {
	log := &handlerLog{}
	cause := errors.New("gateway unreachable")
	p := paynet.NewProcessor(testConfig(), &fakeTransport{err: cause}, log.handlers())

	tx := newSaleTransaction()
	_, err := p.ExecuteQuery(context.Background(), paynet.OpSale, tx)
	require.NoError(t, err, "CatchError swallowed the error")
	require.Equal(t, []string{"save", "catch"}, log.calls)
	require.ErrorIs(t, log.caught, cause)
	require.Equal(t, paynet.StatusError, tx.Status)
}

func TestProcessorReturnsErrorWithoutCatchHandler(t *testing.T) {
	p := paynet.NewProcessor(testConfig(), &fakeTransport{}, paynet.Handlers{})

	tx := newSaleTransaction()
	_, err := p.ProcessGatewayCallback(context.Background(), tx, signedCallback("approved", testPaynetOrderID, testClientOrderID, map[string]string{"amount": ""}))
	require.Equal(t, paynet.CodeValidation, paynet.ErrorCode(err))
	require.Equal(t, paynet.StatusError, tx.Status)
}
