package domain

import (
	"strings"
)

// TransactionRecord represents one transfer row taken from a Koinly export.
// Wallet and currency fields keep the compound "Label;id" form of the source
// file; only the part before the first ';' is meaningful for rendering.
// Records are values: pipeline stages derive new records instead of mutating
// the ones they were given.
type TransactionRecord struct {
	Year int    `json:"year"`           // derived from the transaction date
	Date string `json:"date,omitempty"` // full date when available, e.g. "2021-03-14" or "2021-03-14 10:22:00 UTC"

	FromWallet   string `json:"from_wallet"`   // "Binance;binance" or empty for deposits
	ToWallet     string `json:"to_wallet"`     // "Kraken;kraken_connect" or empty for withdrawals
	FromCurrency string `json:"from_currency"` // "BTC;1" or empty
	ToCurrency   string `json:"to_currency"`   // "JPY;13" or empty

	FromAmount float64 `json:"from_amount"`
	ToAmount   float64 `json:"to_amount"`
}

// HasFromWallet reports whether the sending side names a wallet.
func (r TransactionRecord) HasFromWallet() bool {
	return strings.TrimSpace(r.FromWallet) != ""
}

// HasToWallet reports whether the receiving side names a wallet.
func (r TransactionRecord) HasToWallet() bool {
	return strings.TrimSpace(r.ToWallet) != ""
}

// WithAmounts returns a copy of r carrying the given amounts.
func (r TransactionRecord) WithAmounts(from, to float64) TransactionRecord {
	r.FromAmount = from
	r.ToAmount = to
	return r
}
