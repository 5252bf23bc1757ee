package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

type noop struct{}

func (noop) Tick([]ledger.Position, []market.Price) ([]Instruction, error) { return nil, nil }

func TestCheckDataLength(t *testing.T) {
	testCases := []struct {
		desc     string
		min, max DataLength
		ok       bool
	}{
		{"fixed max above min", Fixed(5), Fixed(10), true},
		{"fixed max equals min", Fixed(5), Fixed(5), true},
		{"fixed max below min", Fixed(6), Fixed(5), false},
		{"zero max", Fixed(0), Fixed(0), false},
		{"zero max with variable min", Variable(), Fixed(0), false},
		{"variable max", Fixed(100), Variable(), true},
		{"variable both", Variable(), Variable(), true},
		{"variable min fixed max", Variable(), Fixed(1), true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := CheckDataLength(tc.min, tc.max)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, exception.ErrInvalidModuleConfig)
			assert.Contains(t, err.Error(), tc.max.String())
		})
	}
}

func TestCheckDataLengthProperty(t *testing.T) {
	for n := uint64(0); n < 20; n++ {
		for m := uint64(0); m < 20; m++ {
			err := CheckDataLength(Fixed(n), Fixed(m))
			if m >= n && m > 0 {
				assert.NoError(t, err, "min %d max %d", n, m)
			} else {
				assert.Error(t, err, "min %d max %d", n, m)
			}
		}
	}
}

func TestExport(t *testing.T) {
	reg := Export("sma", "moving average", Fixed(3), Fixed(9), func() Algorithm { return noop{} })

	assert.Equal(t, ToolchainVersion(), reg.ToolchainVersion)
	assert.Equal(t, UtilsVersion, reg.UtilsVersion)
	assert.Equal(t, "sma", reg.Name)
	assert.Equal(t, "Fixed(3)", reg.MinDataLength.String())
	assert.Equal(t, "Fixed(9)", reg.MaxDataLength.String())
	require.NotNil(t, reg.New)
	assert.NotNil(t, reg.New())

	unbounded := ExportUnbounded("any", "", func() Algorithm { return noop{} })
	assert.True(t, unbounded.MaxDataLength.IsVariable())
	assert.Equal(t, uint64(0), unbounded.MinDataLength.Min())
	assert.Equal(t, "Variable", Variable().String())
}

func TestInstruction(t *testing.T) {
	place := PlaceOrder(ledger.NewNormalOrder(ledger.OrderData{ID: 1}))
	assert.True(t, place.Opens())
	assert.Equal(t, "PlaceOrder(Normal, 1 legs)", place.String())

	closing := ClosePosition(4)
	assert.False(t, closing.Opens())
	assert.Equal(t, "ClosePosition(4)", closing.String())

	assert.False(t, UpdateStopLoss(4, ledger.NoStopLoss()).Opens())
	assert.Equal(t, InstructionDeleteOrder, DeleteOrder(3).Kind)
	assert.Equal(t, ledger.AbsoluteTakeProfit(9), UpdateTakeProfit(2, ledger.AbsoluteTakeProfit(9)).TakeProfit)
}
