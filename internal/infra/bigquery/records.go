package bigquery

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/walletflow/internal/domain"
)

// URIScheme prefixes table references used as job sources.
const URIScheme = "bq://"

const dateFormat = "2006-01-02"

// RecordRow is one exported Koinly transaction as loaded into BigQuery.
// Wallet and currency columns keep the compound "Label;id" form.
type RecordRow struct {
	TransactionDate civil.Date             `bigquery:"transaction_date"` // REQUIRED DATE
	TransactionTS   bigquery.NullTimestamp `bigquery:"transaction_ts"`   // NULLABLE TIMESTAMP

	FromWallet   bigquery.NullString  `bigquery:"from_wallet"`   // NULLABLE
	FromAmount   bigquery.NullFloat64 `bigquery:"from_amount"`   // NULLABLE
	FromCurrency bigquery.NullString  `bigquery:"from_currency"` // NULLABLE

	ToWallet   bigquery.NullString  `bigquery:"to_wallet"`   // NULLABLE
	ToAmount   bigquery.NullFloat64 `bigquery:"to_amount"`   // NULLABLE
	ToCurrency bigquery.NullString  `bigquery:"to_currency"` // NULLABLE
}

// ToRecord converts the row into a pipeline record. The timestamp, when
// present, is used as the date; otherwise the DATE column is.
func (r *RecordRow) ToRecord() domain.TransactionRecord {
	rec := domain.TransactionRecord{
		FromWallet:   r.FromWallet.StringVal,
		ToWallet:     r.ToWallet.StringVal,
		FromCurrency: r.FromCurrency.StringVal,
		ToCurrency:   r.ToCurrency.StringVal,
		FromAmount:   r.FromAmount.Float64,
		ToAmount:     r.ToAmount.Float64,
	}

	switch {
	case r.TransactionTS.Valid:
		ts := r.TransactionTS.Timestamp.UTC()
		rec.Date = ts.Format(time.RFC3339)
		rec.Year = ts.Year()
	case r.TransactionDate.IsValid():
		rec.Date = r.TransactionDate.String()
		rec.Year = r.TransactionDate.Year
	}
	return rec
}

// TableRef identifies a table holding RecordRows.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

var (
	projectPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,61}[a-z0-9]$`)
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9_]{1,1024}$`)
)

// ParseTableRef parses "project.dataset.table", optionally prefixed with
// "bq://".
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), URIScheme), ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("ParseTableRef: want project.dataset.table, got %q", s)
	}

	ref := TableRef{ProjectID: parts[0], DatasetID: parts[1], TableID: parts[2]}
	if !projectPattern.MatchString(ref.ProjectID) {
		return TableRef{}, fmt.Errorf("ParseTableRef: invalid project id %q", ref.ProjectID)
	}
	if !namePattern.MatchString(ref.DatasetID) || !namePattern.MatchString(ref.TableID) {
		return TableRef{}, fmt.Errorf("ParseTableRef: invalid dataset or table in %q", s)
	}
	return ref, nil
}

// IsTableURI reports whether s is a bq:// source.
func IsTableURI(s string) bool {
	return strings.HasPrefix(s, URIScheme)
}

// String returns the fully qualified table name.
func (t TableRef) String() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// RecordFilter narrows the rows read from a table. Zero dates are unbounded.
type RecordFilter struct {
	StartDate civil.Date
	EndDate   civil.Date
}

// buildRecordsQuery returns the SQL and parameters that read the rows of
// table matching filter, oldest first.
func buildRecordsQuery(table TableRef, filter RecordFilter) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if filter.StartDate.IsValid() {
		where = append(where, "transaction_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: filter.StartDate})
	}
	if filter.EndDate.IsValid() {
		where = append(where, "transaction_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: filter.EndDate})
	}

	query := `
		SELECT
			transaction_date,
			transaction_ts,
			from_wallet,
			from_amount,
			from_currency,
			to_wallet,
			to_amount,
			to_currency
		FROM ` + "`" + table.String() + "`"
	if len(where) > 0 {
		query += `
		WHERE ` + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY transaction_date, transaction_ts`

	return query, params
}

// ParseDate parses a YYYY-MM-DD filter bound. The empty string is unbounded.
func ParseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("ParseDate: %w", err)
	}
	return civil.DateOf(t), nil
}
