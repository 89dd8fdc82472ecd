package pipeline

import (
	"math"
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
)

// CurrencyCode extracts the currency code from a compound currency field,
// e.g. "BTC;1" → "BTC". Callers guard against empty fields themselves;
// an empty field yields an empty code.
func CurrencyCode(field string) string {
	code, _, _ := strings.Cut(field, ";")
	return strings.TrimSpace(code)
}

// ExchangeLabel extracts the exchange or wallet name from a compound wallet
// field, e.g. "Binance;binance" → "Binance". Missing wallets map to UnknownWallet.
func ExchangeLabel(wallet string) string {
	if strings.TrimSpace(wallet) == "" {
		return UnknownWallet
	}
	label, _, _ := strings.Cut(wallet, ";")
	return strings.TrimSpace(label)
}

// fromCode and toCode apply the empty-field guard required by CurrencyCode.
func fromCode(r domain.TransactionRecord) string {
	if r.FromCurrency == "" {
		return ""
	}
	return CurrencyCode(r.FromCurrency)
}

func toCode(r domain.TransactionRecord) string {
	if r.ToCurrency == "" {
		return ""
	}
	return CurrencyCode(r.ToCurrency)
}

// DirectionKey groups transactions moving the same currency between the same
// wallets in the same direction. A→B and B→A produce different keys.
type DirectionKey struct {
	FromCurrency string
	FromWallet   string
	ToCurrency   string
	ToWallet     string
}

// DirectionKeyOf returns the aggregation key of r. It compares the raw
// compound fields, so two wallets with the same label but different ids
// stay apart.
func DirectionKeyOf(r domain.TransactionRecord) DirectionKey {
	return DirectionKey{
		FromCurrency: r.FromCurrency,
		FromWallet:   r.FromWallet,
		ToCurrency:   r.ToCurrency,
		ToWallet:     r.ToWallet,
	}
}

// TransactionKey is the direction-insensitive netting key: the sorted
// currency-code pair plus the sorted exchange-label pair.
type TransactionKey struct {
	CurrencyLow  string
	CurrencyHigh string
	ExchangeLow  string
	ExchangeHigh string
}

// TransactionKeyOf returns the netting key of r.
func TransactionKeyOf(r domain.TransactionRecord) TransactionKey {
	c1, c2 := sortedPair(fromCode(r), toCode(r))
	e1, e2 := sortedPair(ExchangeLabel(r.FromWallet), ExchangeLabel(r.ToWallet))
	return TransactionKey{
		CurrencyLow:  c1,
		CurrencyHigh: c2,
		ExchangeLow:  e1,
		ExchangeHigh: e2,
	}
}

// IsReverse reports whether r2 is the exact directional inverse of r1:
// currencies and wallets both swapped.
func IsReverse(r1, r2 domain.TransactionRecord) bool {
	return r1.FromCurrency == r2.ToCurrency &&
		r1.ToCurrency == r2.FromCurrency &&
		r1.FromWallet == r2.ToWallet &&
		r1.ToWallet == r2.FromWallet
}

func sortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// amountOrZero treats an unparseable amount (NaN) as 0 in sums.
func amountOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
