package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
	"github.com/shopspring/decimal"
)

// ParticipantLabel renders a diagram participant: "<exchange> (<code>)".
func ParticipantLabel(exchange, code string) string {
	return fmt.Sprintf("%s (%s)", exchange, code)
}

// ExtractParticipants lists the participants a record draws on the diagram.
// Each present currency contributes its own exchange; a missing wallet on the
// opposite side adds the UnknownWallet participant of that currency.
func ExtractParticipants(r domain.TransactionRecord) []string {
	var participants []string

	if code := fromCode(r); code != "" {
		participants = append(participants, ParticipantLabel(ExchangeLabel(r.FromWallet), code))
		if !r.HasToWallet() {
			participants = append(participants, ParticipantLabel(UnknownWallet, code))
		}
	}

	if code := toCode(r); code != "" {
		participants = append(participants, ParticipantLabel(ExchangeLabel(r.ToWallet), code))
		if !r.HasFromWallet() {
			participants = append(participants, ParticipantLabel(UnknownWallet, code))
		}
	}

	return participants
}

// CollectParticipants returns the distinct participants of records, sorted
// ascending. The order fixes the layout of the diagram.
func CollectParticipants(records []domain.TransactionRecord) []string {
	seen := make(map[string]struct{})
	var participants []string
	for _, r := range records {
		for _, p := range ExtractParticipants(r) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			participants = append(participants, p)
		}
	}
	sort.Strings(participants)
	return participants
}

// RenderLine renders one diagram arrow for r:
//
//	conversion  Binance (BTC)->>Kraken (JPY): 1BTC -> 5,000,000JPY
//	withdrawal  Binance (BTC)->>UnknownWallet (BTC): 1BTC Withdraw
//	deposit     UnknownWallet (JPY)->>Kraken (JPY): 5,000,000JPY Deposit
//
// A record with neither wallet renders as a deposit between two
// UnknownWallet participants of its to-currency.
func RenderLine(r domain.TransactionRecord) string {
	from, to := fromCode(r), toCode(r)
	fromExchange, toExchange := ExchangeLabel(r.FromWallet), ExchangeLabel(r.ToWallet)

	switch {
	case r.HasFromWallet() && r.HasToWallet():
		return fmt.Sprintf("%s->>%s: %s%s -> %s%s",
			ParticipantLabel(fromExchange, from), ParticipantLabel(toExchange, to),
			formatValue(r.FromAmount), from, formatValue(r.ToAmount), to)
	case r.HasFromWallet():
		return fmt.Sprintf("%s->>%s: %s%s Withdraw",
			ParticipantLabel(fromExchange, from), ParticipantLabel(UnknownWallet, from),
			formatValue(r.FromAmount), from)
	default:
		// deposit; also the degenerate record without any wallet
		return fmt.Sprintf("%s->>%s: %s%s Deposit",
			ParticipantLabel(UnknownWallet, to), ParticipantLabel(toExchange, to),
			formatValue(r.ToAmount), to)
	}
}

// FormatAmount formats a numeric string with comma thousands separators and
// at most 8 fractional digits, trailing zeros stripped: "1234567.50" →
// "1,234,567.5". Non-numeric input is returned unchanged.
func FormatAmount(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return raw
	}
	return formatValue(v)
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := decimal.NewFromFloat(v).Round(maxFractionDigits).String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	fracPart = strings.TrimRight(fracPart, "0")

	out := sign + groupThousands(intPart)
	if fracPart != "" {
		out += "." + fracPart
	}
	return out
}

// groupThousands inserts commas into a run of digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
