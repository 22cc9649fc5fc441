package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/sarafi-settlement/internal/currency"
	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

func leg(dir domain.RemittanceDirection, send, sendRate, receive, receiveRate, fee, feeRate string) Leg {
	return Leg{
		TransactionID: uuid.New(),
		Direction:     dir,
		SendAmount:    dec(send),
		SendRate:      dec(sendRate),
		ReceiveAmount: dec(receive),
		ReceiveRate:   dec(receiveRate),
		Fee:           dec(fee),
		FeeRate:       dec(feeRate),
	}
}

func TestNet(t *testing.T) {
	calc := NewCalculator(currency.DefaultTable())

	tests := []struct {
		name       string
		legs       []Leg
		wantNet    string
		wantFee    string
		wantPL     string
		wantStatus NetStatus
	}{
		{
			name: "equal legs settle",
			legs: []Leg{
				leg(domain.DirectionOutgoing, "1000", "1", "1000", "1", "0", "1"),
				leg(domain.DirectionIncoming, "1000", "1", "1000", "1", "0", "1"),
			},
			wantNet:    "0",
			wantFee:    "0",
			wantPL:     "0",
			wantStatus: NetStatusSettled,
		},
		{
			name: "more incoming is receivable",
			legs: []Leg{
				leg(domain.DirectionOutgoing, "500", "1", "500", "1", "5", "1"),
				leg(domain.DirectionIncoming, "800", "1", "800", "1", "8", "1"),
			},
			wantNet:    "300",
			wantFee:    "13",
			wantPL:     "13",
			wantStatus: NetStatusReceivable,
		},
		{
			name: "outgoing AFN converted to USD base is payable",
			legs: []Leg{
				leg(domain.DirectionOutgoing, "1010", "1", "70000", "0.0142857", "10", "1"),
			},
			wantNet:    "-999.999",
			wantFee:    "10",
			wantPL:     "20.001",
			wantStatus: NetStatusPayable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := calc.Net("USD", tc.legs)

			require.NoError(t, err)
			assert.True(t, pos.Net.Equal(dec(tc.wantNet)), "net: got %s, want %s", pos.Net, tc.wantNet)
			assert.True(t, pos.FeeIncome.Equal(dec(tc.wantFee)), "fee: got %s, want %s", pos.FeeIncome, tc.wantFee)
			assert.True(t, pos.ProfitLoss.Equal(dec(tc.wantPL)), "p/l: got %s, want %s", pos.ProfitLoss, tc.wantPL)
			assert.Equal(t, tc.wantStatus, pos.Status)
			assert.Equal(t, len(tc.legs), pos.Legs)
		})
	}
}

func TestNet_Errors(t *testing.T) {
	calc := NewCalculator(currency.DefaultTable())
	good := leg(domain.DirectionOutgoing, "1", "1", "1", "1", "0", "0")

	badDirection := good
	badDirection.Direction = "sideways"
	badRate := good
	badRate.ReceiveRate = decimal.Zero
	badAmount := good
	badAmount.SendAmount = dec("-1")
	feeWithoutRate := good
	feeWithoutRate.Fee = dec("2")

	tests := []struct {
		name    string
		base    domain.Currency
		legs    []Leg
		wantErr error
	}{
		{name: "no legs", base: "USD", wantErr: domain.ErrInvalidRequest},
		{name: "bad base", base: "usd1", legs: []Leg{good}, wantErr: domain.ErrInvalidCurrency},
		{name: "bad direction", base: "USD", legs: []Leg{badDirection}, wantErr: domain.ErrInvalidRequest},
		{name: "zero rate", base: "USD", legs: []Leg{badRate}, wantErr: domain.ErrInvalidRate},
		{name: "negative amount", base: "USD", legs: []Leg{badAmount}, wantErr: domain.ErrInvalidAmount},
		{name: "fee without rate", base: "USD", legs: []Leg{feeWithoutRate}, wantErr: domain.ErrInvalidRate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := calc.Net(tc.base, tc.legs)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
