package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
)

// Amount is a record amount sent as a JSON number or string. Numeric
// strings parse ("1,250.5" included); anything else becomes NaN so the
// pipeline can apply its zero-in-sums rule. null and "" are 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("Amount: %w", err)
		}
		*a = Amount(parseAmountString(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("Amount: %w", err)
	}
	*a = Amount(f)
	return nil
}

func parseAmountString(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// recordInput is the JSON form of one transaction record.
type recordInput struct {
	Year         int    `json:"year"`
	Date         string `json:"date"`
	FromWallet   string `json:"from_wallet"`
	ToWallet     string `json:"to_wallet"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromAmount   Amount `json:"from_amount"`
	ToAmount     Amount `json:"to_amount"`
}

func (in recordInput) record() domain.TransactionRecord {
	return domain.TransactionRecord{
		Year:         in.Year,
		Date:         in.Date,
		FromWallet:   in.FromWallet,
		ToWallet:     in.ToWallet,
		FromCurrency: in.FromCurrency,
		ToCurrency:   in.ToCurrency,
		FromAmount:   float64(in.FromAmount),
		ToAmount:     float64(in.ToAmount),
	}
}
