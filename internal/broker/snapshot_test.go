package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

func TestDecodeSnapshot(t *testing.T) {
	body := []byte(`{
		"id": "acc-1",
		"currency": "usd",
		"cash": "1000.25",
		"orders": [
			{"id": "o-1", "exchange": "NASDAQ", "pieces": 10, "type": "limit", "price": "101.5", "stopLoss": "95", "validity": "day"},
			{"id": "o-2", "kind": "oco", "legs": [
				{"id": "o-2a", "pieces": 1, "type": "stop", "price": 110},
				{"id": "o-2b", "pieces": 1, "type": "limit", "price": 90, "position": "short_put"}
			]}
		]
	}`)

	deposit, err := DecodeSnapshot(body)
	require.NoError(t, err)
	assert.Equal(t, ledger.HashRawID("acc-1"), deposit.ID())
	assert.Equal(t, ledger.Currency("USD"), deposit.Currency())
	assert.Equal(t, market.Price(1000.25), deposit.Cash())
	assert.Equal(t, 2, deposit.OrderCount())
	assert.Equal(t, 0, deposit.PositionCount())

	first, ok := deposit.GetOrder(ledger.HashRawID("o-1"))
	require.True(t, ok)
	assert.Equal(t, ledger.OrderNormal, first.Kind)
	data := first.Data[0]
	assert.Equal(t, ledger.LimitOrder(101.5), data.Type)
	assert.Equal(t, ledger.AbsoluteStopLoss(95), data.StopLoss)
	assert.Equal(t, ledger.NoTakeProfit(), data.TakeProfit)
	assert.Equal(t, ledger.ValidOneDay, data.Validity)
	assert.Equal(t, ledger.StockExchange("NASDAQ"), data.Exchange)

	oco, ok := deposit.GetOrder(ledger.HashRawID("o-2b"))
	require.True(t, ok)
	assert.Equal(t, ledger.OrderOneCancelsTheOther, oco.Kind)
	require.Len(t, oco.Data, 2)
	assert.Equal(t, ledger.StopOrder(110), oco.Data[0].Type)
	assert.Equal(t, ledger.ShortPut, oco.Data[1].PositionType)
}

func TestDecodeSnapshotErrors(t *testing.T) {
	testCases := []struct {
		desc string
		body string
	}{
		{"malformed json", `{"id":`},
		{"empty id", `{"cash": 1}`},
		{"unknown kind", `{"id": "a", "orders": [{"id": "o", "kind": "iceberg"}]}`},
		{"unknown type", `{"id": "a", "orders": [{"id": "o", "type": "trailing"}]}`},
		{"unknown position", `{"id": "a", "orders": [{"id": "o", "position": "covered"}]}`},
		{"unknown validity", `{"id": "a", "orders": [{"id": "o", "validity": "gtc"}]}`},
		{"empty order id", `{"id": "a", "orders": [{"pieces": 1}]}`},
		{"normal with two legs", `{"id": "a", "orders": [{"id": "o", "kind": "normal", "legs": [{"id": "l1"}, {"id": "l2"}]}]}`},
		{"ioc with two legs", `{"id": "a", "orders": [{"id": "o", "kind": "ioc", "legs": [{"id": "l1"}, {"id": "l2"}]}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tc.body))
			require.ErrorIs(t, err, exception.ErrBrokerSnapshot)
		})
	}
}

func TestDecodeSnapshotSingleLeg(t *testing.T) {
	deposit, err := DecodeSnapshot([]byte(`{"id": "a", "orders": [{"id": "o", "kind": "ioc", "legs": [{"id": "l1", "pieces": 2}]}]}`))
	require.NoError(t, err)

	order, ok := deposit.GetOrder(ledger.HashRawID("l1"))
	require.True(t, ok)
	assert.Equal(t, ledger.OrderImmediateOrCancel, order.Kind)
	require.Len(t, order.Data, 1)
	assert.Equal(t, uint64(2), order.Data[0].Pieces)
	assert.Equal(t, market.Price(0), deposit.Cash())
}

func TestCapability(t *testing.T) {
	assert.Equal(t, "TrailingStopLoss", TrailingStopLoss.String())
	assert.Equal(t, "MultipleDeposits", MultipleDeposits.String())
	assert.Equal(t, "Unknown", Capability(0).String())
}
