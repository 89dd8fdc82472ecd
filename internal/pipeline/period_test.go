package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/walletflow/internal/domain"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    Period
		wantErr bool
	}{
		{"", PeriodYear, false},
		{"year", PeriodYear, false},
		{"Month", PeriodMonth, false},
		{" day ", PeriodDay, false},
		{"none", PeriodNone, false},
		{"week", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"2021-03-14 10:22:00 UTC", "2021-03-14", true},
		{"2021-03-14T23:59:00Z", "2021-03-14", true},
		{"2021-03-14", "2021-03-14", true},
		{"2021/03/14", "2021-03-14", true},
		{"14.03.2021", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	withDate := dated(record(2021, binance, kraken, btc, jpy, 1, 1), "2021-03-14 10:22:00 UTC")
	yearOnly := record(2020, binance, kraken, btc, jpy, 1, 1)
	malformed := dated(record(2019, binance, kraken, btc, jpy, 1, 1), "not a date")
	undated := record(0, binance, kraken, btc, jpy, 1, 1)

	tests := []struct {
		name   string
		record domain.TransactionRecord
		period Period
		want   string
	}{
		{"date by year", withDate, PeriodYear, "2021"},
		{"date by month", withDate, PeriodMonth, "2021-03"},
		{"date by day", withDate, PeriodDay, "2021-03-14"},
		{"date by none", withDate, PeriodNone, "2021-03-14"},
		{"year only by year", yearOnly, PeriodYear, "2020"},
		{"year only by month", yearOnly, PeriodMonth, "2020-01"},
		{"year only by day", yearOnly, PeriodDay, "2020-01-01"},
		{"malformed date falls back to year", malformed, PeriodMonth, "2019-01"},
		{"undated uses reference", undated, PeriodDay, "2024-06-30"},
		{"undated uses reference year", undated, PeriodYear, "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeriodKey(tt.record, tt.period, fixedNow()); got != tt.want {
				t.Errorf("PeriodKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroupByPeriod_KeepsInputOrder(t *testing.T) {
	a := dated(record(2021, binance, kraken, btc, jpy, 1, 1), "2021-05-01")
	b := dated(record(2021, kraken, binance, jpy, btc, 2, 2), "2021-01-01")
	c := dated(record(2022, binance, kraken, eth, jpy, 3, 3), "2022-02-02")
	d := dated(record(2021, binance, kraken, eth, jpy, 4, 4), "2021-12-31")

	groups := GroupByPeriod([]domain.TransactionRecord{a, b, c, d}, PeriodYear)

	want := map[string][]domain.TransactionRecord{
		"2021": {a, b, d},
		"2022": {c},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("GroupByPeriod() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"2021", "2022"}, SortedPeriodKeys(groups)); diff != "" {
		t.Errorf("SortedPeriodKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestSortedPeriodKeys_Chronological(t *testing.T) {
	groups := map[string][]domain.TransactionRecord{
		"2021-10": nil,
		"2021-02": nil,
		"2020-12": nil,
	}
	want := []string{"2020-12", "2021-02", "2021-10"}
	if diff := cmp.Diff(want, SortedPeriodKeys(groups)); diff != "" {
		t.Errorf("SortedPeriodKeys() mismatch (-want +got):\n%s", diff)
	}
}
