package paynet

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAdvanceRejectsIllegalEdges(t *testing.T) {
	tx := NewTransaction("CLIENT-1", decimal.NewFromInt(1), "USD")

	err := tx.advance(StateWait)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, StateNull, tx.State)

	require.NoError(t, tx.advance(StateProcessing))
	require.NoError(t, tx.advance(StateRedirect))
	require.NoError(t, tx.advance(StateWait))
	require.Error(t, tx.advance(StateInit))
	require.NoError(t, tx.advance(StateEnd))
	require.Error(t, tx.advance(StateProcessing), "end is absorbing")
}

func TestFailLabelsTransaction(t *testing.T) {
	tx := NewTransaction("CLIENT-1", decimal.NewFromInt(1), "USD")
	cause := errors.New("boom")

	require.Same(t, cause, tx.fail(cause))
	require.Equal(t, StateEnd, tx.State)
	require.Equal(t, StatusError, tx.Status)
	require.Same(t, cause, tx.LastError())
}
