package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
)

// balanceChange is the net movement of one participant or currency within
// a period.
type balanceChange struct {
	Label  string
	Code   string
	Amount float64
}

// balanceChanges computes net changes per participant and per currency code
// over the records of one period. Endpoints without a wallet are the outside
// world and are not counted.
func balanceChanges(records []domain.TransactionRecord) (byParticipant, byCurrency []balanceChange) {
	participants := make(map[string]*balanceChange)
	currencies := make(map[string]*balanceChange)
	var participantOrder, currencyOrder []string

	add := func(exchange, code string, amount float64) {
		label := ParticipantLabel(exchange, code)
		if _, ok := participants[label]; !ok {
			participants[label] = &balanceChange{Label: label, Code: code}
			participantOrder = append(participantOrder, label)
		}
		participants[label].Amount += amount

		if _, ok := currencies[code]; !ok {
			currencies[code] = &balanceChange{Label: code, Code: code}
			currencyOrder = append(currencyOrder, code)
		}
		currencies[code].Amount += amount
	}

	for _, r := range records {
		if code, exchange := fromCode(r), ExchangeLabel(r.FromWallet); code != "" && exchange != UnknownWallet {
			add(exchange, code, -amountOrZero(r.FromAmount))
		}
		if code, exchange := toCode(r), ExchangeLabel(r.ToWallet); code != "" && exchange != UnknownWallet {
			add(exchange, code, amountOrZero(r.ToAmount))
		}
	}

	for _, label := range participantOrder {
		byParticipant = append(byParticipant, *participants[label])
	}
	for _, code := range currencyOrder {
		byCurrency = append(byCurrency, *currencies[code])
	}
	return byParticipant, byCurrency
}

// significantChanges drops float noise and orders the remaining changes by
// magnitude, largest first.
func significantChanges(changes []balanceChange) []balanceChange {
	var kept []balanceChange
	for _, c := range changes {
		if math.Abs(c.Amount) > noteThreshold {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ai, aj := math.Abs(kept[i].Amount), math.Abs(kept[j].Amount)
		if ai != aj {
			return ai > aj
		}
		return kept[i].Label < kept[j].Label
	})
	return kept
}

func formatChanges(changes []balanceChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		sign := ""
		if c.Amount > 0 {
			sign = "+"
		}
		parts = append(parts, c.Label+" "+sign+formatValue(c.Amount)+c.Code)
	}
	return strings.Join(parts, ", ")
}

// currencyTotalNote renders the per-currency net change of a period, e.g.
// "Note right of A (BTC): 2021 currency totals: BTC +0.2BTC". ok is false
// when nothing moved.
func currencyTotalNote(first, period string, totals []balanceChange) (string, bool) {
	kept := significantChanges(totals)
	if len(kept) == 0 {
		return "", false
	}
	return indent + "Note right of " + first + ": " + period + " currency totals: " + formatChanges(kept), true
}

// participantBalanceNote renders the per-participant net change of a period.
func participantBalanceNote(first string, changes []balanceChange) (string, bool) {
	kept := significantChanges(changes)
	if len(kept) == 0 {
		return "", false
	}
	return indent + "Note right of " + first + ": " + formatChanges(kept), true
}
