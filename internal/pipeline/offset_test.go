package pipeline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dvloznov/walletflow/internal/domain"
)

func TestOffset(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.TransactionRecord
		want    []domain.TransactionRecord
	}{
		{
			name: "partial netting keeps the larger direction",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, kraken, binance, jpy, btc, 4000000, 0.8),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 0.2, 1000000),
			},
		},
		{
			name: "order of the pair does not matter",
			records: []domain.TransactionRecord{
				record(2021, kraken, binance, jpy, btc, 4000000, 0.8),
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 0.2, 1000000),
			},
		},
		{
			name: "reverse larger flips the direction",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, kraken, binance, jpy, btc, 6000000, 1.2),
			},
			want: []domain.TransactionRecord{
				record(2021, kraken, binance, jpy, btc, 1000000, 0.2),
			},
		},
		{
			name: "full cancellation drops both",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, kraken, binance, jpy, btc, 5000000, 1),
			},
			want: nil,
		},
		{
			name: "mixed sign residual is dropped",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, kraken, binance, jpy, btc, 4000000, 1.2),
			},
			want: nil,
		},
		{
			name: "different years never net",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2022, kraken, binance, jpy, btc, 4000000, 0.8),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2022, kraken, binance, jpy, btc, 4000000, 0.8),
			},
		},
		{
			name: "pairs are matched greedily in order",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, binance, kraken, btc, jpy, 2, 10000000),
				record(2021, kraken, binance, jpy, btc, 4000000, 0.8),
				record(2021, kraken, binance, jpy, btc, 9000000, 1.9),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 0.2, 1000000),
				record(2021, binance, kraken, btc, jpy, 0.1, 1000000),
			},
		},
		{
			name: "unmatched record passes through",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, kraken, binance, jpy, btc, 4000000, 0.8),
				record(2021, binance, kraken, btc, jpy, 3, 15000000),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 0.2, 1000000),
				record(2021, binance, kraken, btc, jpy, 3, 15000000),
			},
		},
		{
			name: "same labels with different wallet ids do not net",
			records: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, "Kraken;other", binance, jpy, btc, 4000000, 0.8),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, kraken, btc, jpy, 1, 5000000),
				record(2021, "Kraken;other", binance, jpy, btc, 4000000, 0.8),
			},
		},
		{
			// The residual of a withdrawal against a deposit always has a
			// zero leg, so the pair never survives.
			name: "withdrawal against deposit on the same wallet cancels",
			records: []domain.TransactionRecord{
				record(2021, binance, "", btc, "", 1, 0),
				record(2021, "", binance, "", btc, 0, 0.4),
			},
			want: nil,
		},
		{
			name: "withdrawals from different wallets pass through",
			records: []domain.TransactionRecord{
				record(2021, binance, "", btc, "", 1, 0),
				record(2021, "", kraken, "", btc, 0, 1),
			},
			want: []domain.TransactionRecord{
				record(2021, binance, "", btc, "", 1, 0),
				record(2021, "", kraken, "", btc, 0, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Offset(tt.records)
			if diff := cmp.Diff(tt.want, got, approx, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Offset() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOffset_ResidualIsExact(t *testing.T) {
	got := Offset([]domain.TransactionRecord{
		record(2021, binance, kraken, btc, jpy, 1, 5000000),
		record(2021, kraken, binance, jpy, btc, 4000000, 0.8),
	})
	if len(got) != 1 {
		t.Fatalf("Offset() returned %d records, want 1", len(got))
	}
	assertClose(t, "FromAmount", got[0].FromAmount, 0.2)
	assertClose(t, "ToAmount", got[0].ToAmount, 1000000)
	if got[0].FromWallet != binance || got[0].ToWallet != kraken {
		t.Errorf("residual direction = %s -> %s, want %s -> %s", got[0].FromWallet, got[0].ToWallet, binance, kraken)
	}
}

func TestOffsetByPeriod_Day(t *testing.T) {
	sameDay := []domain.TransactionRecord{
		dated(record(2021, binance, kraken, btc, jpy, 1, 5000000), "2021-01-01 09:00:00 UTC"),
		dated(record(2021, kraken, binance, jpy, btc, 4000000, 0.8), "2021-01-01 18:00:00 UTC"),
	}
	if got := offsetAt(sameDay, PeriodDay, fixedNow()); len(got) != 1 {
		t.Errorf("same day: got %d records, want 1", len(got))
	}

	otherDays := []domain.TransactionRecord{
		dated(record(2021, binance, kraken, btc, jpy, 1, 5000000), "2021-01-01"),
		dated(record(2021, kraken, binance, jpy, btc, 4000000, 0.8), "2021-01-02"),
	}
	if got := offsetAt(otherDays, PeriodDay, fixedNow()); len(got) != 2 {
		t.Errorf("different days: got %d records, want 2", len(got))
	}
}

func TestNetPair_NoTolerance(t *testing.T) {
	r1 := record(2021, binance, kraken, btc, jpy, 0.3, 3)
	r2 := record(2021, kraken, binance, jpy, btc, 2, 0.1+0.2-1e-12)

	residual, ok := netPair(r1, r2)
	if !ok {
		t.Fatal("netPair() dropped a residual that is positive on both legs")
	}
	if residual.FromAmount <= 0 || residual.FromAmount > 1e-11 {
		t.Errorf("residual FromAmount = %v, want a tiny positive leftover", residual.FromAmount)
	}
}

func TestOffset_NaNLegCancelsPair(t *testing.T) {
	// NaN compares false on both legs, so the pair never leaves a residual.
	nan := Offset([]domain.TransactionRecord{
		record(2021, binance, kraken, btc, jpy, math.NaN(), 5000000),
		record(2021, kraken, binance, jpy, btc, 6000000, 0.8),
	})
	if len(nan) != 0 {
		t.Errorf("NaN leg: Offset() = %+v, want the pair cancelled", nan)
	}

	zero := Offset([]domain.TransactionRecord{
		record(2021, binance, kraken, btc, jpy, 0, 5000000),
		record(2021, kraken, binance, jpy, btc, 6000000, 0.8),
	})
	if len(zero) != 1 {
		t.Fatalf("zero leg: Offset() returned %d records, want 1", len(zero))
	}
	assertClose(t, "FromAmount", zero[0].FromAmount, 1000000)
	assertClose(t, "ToAmount", zero[0].ToAmount, 0.8)
}
