package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/walletflow/internal/domain"
)

const (
	binance = "Binance;binance"
	kraken  = "Kraken;kraken_connect"
	btc     = "BTC;1"
	eth     = "ETH;3"
	jpy     = "JPY;13"
)

// fixedNow pins the fallback date used for records without date or year.
func fixedNow() time.Time {
	return time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)
}

func record(year int, fromWallet, toWallet, fromCur, toCur string, fromAmt, toAmt float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		Year:         year,
		FromWallet:   fromWallet,
		ToWallet:     toWallet,
		FromCurrency: fromCur,
		ToCurrency:   toCur,
		FromAmount:   fromAmt,
		ToAmount:     toAmt,
	}
}

func dated(r domain.TransactionRecord, date string) domain.TransactionRecord {
	r.Date = date
	return r
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("%s = %v, want %v (±1e-10)", name, got, want)
	}
}
