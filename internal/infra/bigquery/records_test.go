package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/walletflow/internal/domain"
)

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		input   string
		want    TableRef
		wantErr bool
	}{
		{"bq://my-project.koinly.transactions", TableRef{"my-project", "koinly", "transactions"}, false},
		{"my-project.koinly.tx_2021", TableRef{"my-project", "koinly", "tx_2021"}, false},
		{"bq://my-project.koinly", TableRef{}, true},
		{"bq://My_Project.koinly.transactions", TableRef{}, true},
		{"bq://my-project.koinly.tx`; DROP TABLE x", TableRef{}, true},
		{"", TableRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTableRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTableRef() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTableRef() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecordRow_ToRecord(t *testing.T) {
	ts := time.Date(2021, 3, 14, 10, 22, 0, 0, time.UTC)

	tests := []struct {
		name string
		row  RecordRow
		want domain.TransactionRecord
	}{
		{
			name: "timestamp wins over date",
			row: RecordRow{
				TransactionDate: civil.Date{Year: 2021, Month: 3, Day: 14},
				TransactionTS:   bigquery.NullTimestamp{Timestamp: ts, Valid: true},
				FromWallet:      bigquery.NullString{StringVal: "Binance;binance", Valid: true},
				FromAmount:      bigquery.NullFloat64{Float64: 1, Valid: true},
				FromCurrency:    bigquery.NullString{StringVal: "BTC;1", Valid: true},
				ToWallet:        bigquery.NullString{StringVal: "Kraken;kraken_connect", Valid: true},
				ToAmount:        bigquery.NullFloat64{Float64: 5000000, Valid: true},
				ToCurrency:      bigquery.NullString{StringVal: "JPY;13", Valid: true},
			},
			want: domain.TransactionRecord{
				Year:         2021,
				Date:         "2021-03-14T10:22:00Z",
				FromWallet:   "Binance;binance",
				ToWallet:     "Kraken;kraken_connect",
				FromCurrency: "BTC;1",
				ToCurrency:   "JPY;13",
				FromAmount:   1,
				ToAmount:     5000000,
			},
		},
		{
			name: "deposit with date only",
			row: RecordRow{
				TransactionDate: civil.Date{Year: 2022, Month: 1, Day: 2},
				ToWallet:        bigquery.NullString{StringVal: "Kraken;kraken_connect", Valid: true},
				ToAmount:        bigquery.NullFloat64{Float64: 300, Valid: true},
				ToCurrency:      bigquery.NullString{StringVal: "JPY;13", Valid: true},
			},
			want: domain.TransactionRecord{
				Year:       2022,
				Date:       "2022-01-02",
				ToWallet:   "Kraken;kraken_connect",
				ToCurrency: "JPY;13",
				ToAmount:   300,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.row.ToRecord()); diff != "" {
				t.Errorf("ToRecord() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRecordsQuery(t *testing.T) {
	table := TableRef{"my-project", "koinly", "transactions"}

	query, params := buildRecordsQuery(table, RecordFilter{})
	if !strings.Contains(query, "FROM `my-project.koinly.transactions`") {
		t.Errorf("query does not select from the table:\n%s", query)
	}
	if strings.Contains(query, "WHERE") || len(params) != 0 {
		t.Errorf("unbounded filter produced a WHERE clause:\n%s", query)
	}

	start, _ := ParseDate("2021-01-01")
	end, _ := ParseDate("2021-12-31")
	query, params = buildRecordsQuery(table, RecordFilter{StartDate: start, EndDate: end})
	if !strings.Contains(query, "WHERE transaction_date >= @start_date AND transaction_date <= @end_date") {
		t.Errorf("bounded filter missing WHERE clause:\n%s", query)
	}
	if len(params) != 2 || params[0].Name != "start_date" || params[1].Name != "end_date" {
		t.Errorf("params = %+v", params)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-03-14")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d != (civil.Date{Year: 2021, Month: 3, Day: 14}) {
		t.Errorf("ParseDate() = %v", d)
	}

	if d, err := ParseDate(""); err != nil || d.IsValid() {
		t.Errorf("ParseDate(\"\") = %v, %v, want zero date", d, err)
	}
	if _, err := ParseDate("14/03/2021"); err == nil {
		t.Error("ParseDate() accepted a malformed date")
	}
}
