package pipeline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/walletflow/internal/domain"
)

func TestExtractParticipants(t *testing.T) {
	tests := []struct {
		name   string
		record domain.TransactionRecord
		want   []string
	}{
		{
			name:   "conversion",
			record: record(2021, binance, kraken, btc, jpy, 1, 5000000),
			want:   []string{"Binance (BTC)", "Kraken (JPY)"},
		},
		{
			name:   "withdrawal",
			record: record(2021, binance, "", btc, "", 1, 0),
			want:   []string{"Binance (BTC)", "UnknownWallet (BTC)"},
		},
		{
			name:   "deposit",
			record: record(2021, "", kraken, "", jpy, 0, 5000000),
			want:   []string{"Kraken (JPY)", "UnknownWallet (JPY)"},
		},
		{
			name:   "withdrawal with a to currency",
			record: record(2021, binance, "", btc, jpy, 1, 0),
			want:   []string{"Binance (BTC)", "UnknownWallet (BTC)", "UnknownWallet (JPY)"},
		},
		{
			name:   "currencies without wallets",
			record: record(2021, "", "", btc, jpy, 1, 1),
			want:   []string{"UnknownWallet (BTC)", "UnknownWallet (BTC)", "UnknownWallet (JPY)", "UnknownWallet (JPY)"},
		},
		{
			name:   "no currencies",
			record: record(2021, "", "", "", "", 0, 0),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractParticipants(tt.record)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractParticipants() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCollectParticipants_SortedAndDistinct(t *testing.T) {
	records := []domain.TransactionRecord{
		record(2021, kraken, binance, jpy, btc, 100, 0.1),
		record(2021, binance, "", btc, "", 1, 0),
		record(2021, binance, kraken, btc, jpy, 1, 5000000),
	}

	want := []string{"Binance (BTC)", "Kraken (JPY)", "UnknownWallet (BTC)"}
	if diff := cmp.Diff(want, CollectParticipants(records)); diff != "" {
		t.Errorf("CollectParticipants() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderLine(t *testing.T) {
	tests := []struct {
		name   string
		record domain.TransactionRecord
		want   string
	}{
		{
			name:   "conversion",
			record: record(2021, binance, kraken, btc, jpy, 1, 5000000),
			want:   "Binance (BTC)->>Kraken (JPY): 1BTC -> 5,000,000JPY",
		},
		{
			name:   "withdrawal",
			record: record(2021, binance, "", btc, "", 0.5, 0),
			want:   "Binance (BTC)->>UnknownWallet (BTC): 0.5BTC Withdraw",
		},
		{
			name:   "deposit",
			record: record(2021, "", kraken, "", jpy, 0, 1234567.5),
			want:   "UnknownWallet (JPY)->>Kraken (JPY): 1,234,567.5JPY Deposit",
		},
		{
			name:   "no wallets renders as deposit",
			record: record(2021, "", "", btc, jpy, 1, 2),
			want:   "UnknownWallet (JPY)->>UnknownWallet (JPY): 2JPY Deposit",
		},
		{
			name:   "nothing at all",
			record: record(2021, "", "", "", "", 0, 0),
			want:   "UnknownWallet ()->>UnknownWallet (): 0 Deposit",
		},
		{
			name:   "unparseable amount",
			record: record(2021, binance, kraken, btc, jpy, math.NaN(), 1),
			want:   "Binance (BTC)->>Kraken (JPY): NaNBTC -> 1JPY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderLine(tt.record); got != tt.want {
				t.Errorf("RenderLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "0"},
		{"100", "100"},
		{"1000", "1,000"},
		{"5000000", "5,000,000"},
		{"1234567.50", "1,234,567.5"},
		{"123456", "123,456"},
		{"0.12345678", "0.12345678"},
		{"0.123456789", "0.12345679"},
		{"0.00000001", "0.00000001"},
		{"1.10", "1.1"},
		{"-1234.5", "-1,234.5"},
		{"999999.999999999", "1,000,000"},
		{"0.30000000000000004", "0.3"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FormatAmount(tt.input); got != tt.want {
				t.Errorf("FormatAmount(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
